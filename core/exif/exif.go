// Package exif decodes EXIF tag blocks into numeric tag ID → value maps and
// resolves tag IDs to display names through a static table.
package exif

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/pkg/errors"
	goexif "github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/tiff"
)

// Tags maps a numeric EXIF tag ID to its rendered value.
type Tags map[uint16]string

// Pointer tags locate sub-IFDs; their values are offsets, not metadata.
const (
	tagExifIFD    uint16 = 0x8769
	tagGPSIFD     uint16 = 0x8825
	tagInteropIFD uint16 = 0xA005
)

var exifHeader = []byte("Exif\x00\x00")

// Decode parses a raw EXIF block: a TIFF stream, optionally preceded by the
// "Exif\0\0" identifier used in JPEG APP1 segments and WebP chunks.
//
// IFD0 and the Exif sub-IFD are flattened into one map. The GPS sub-IFD is
// rendered as a single GPSInfo value. The thumbnail IFD and interoperability
// IFD are ignored.
func Decode(raw []byte) (Tags, error) {
	raw = bytes.TrimPrefix(raw, exifHeader)
	if len(raw) == 0 {
		return nil, errors.New("exif: empty block")
	}
	if err := checkIFDs(raw); err != nil {
		return nil, err
	}

	x, err := goexif.Decode(bytes.NewReader(raw))
	if err != nil && (x == nil || goexif.IsCriticalError(err)) {
		return nil, errors.Wrap(err, "exif")
	}
	tags := Tags{}
	if x.Tiff == nil || len(x.Tiff.Dirs) == 0 {
		return tags, nil
	}
	addDir(tags, x.Tiff.Dirs[0])

	if dir, err := subDir(x, goexif.ExifIFDPointer); err == nil {
		addDir(tags, dir)
	}
	if dir, err := subDir(x, goexif.GPSInfoIFDPointer); err == nil && len(dir.Tags) > 0 {
		tags[tagGPSIFD] = renderGPS(dir)
	}
	return tags, nil
}

func addDir(tags Tags, dir *tiff.Dir) {
	for _, tag := range dir.Tags {
		switch tag.Id {
		case tagExifIFD, tagGPSIFD, tagInteropIFD:
			continue
		}
		tags[tag.Id] = Value(tag)
	}
}

func subDir(x *goexif.Exif, ptr goexif.FieldName) (*tiff.Dir, error) {
	tag, err := x.Get(ptr)
	if err != nil {
		return nil, err
	}
	offset, err := tag.Int64(0)
	if err != nil {
		return nil, err
	}
	r := bytes.NewReader(x.Raw)
	if _, err := r.Seek(offset, io.SeekStart); err != nil {
		return nil, err
	}
	dir, _, err := tiff.DecodeDir(r, x.Tiff.Order)
	if err != nil {
		return nil, errors.Wrapf(err, "exif: sub-IFD %s", ptr)
	}
	return dir, nil
}

// Value renders a tag value for display. ASCII values come back without
// quotes or trailing NULs; everything else uses goexif's rendering.
func Value(tag *tiff.Tag) string {
	if tag.Format() == tiff.StringVal {
		if s, err := tag.StringVal(); err == nil {
			return strings.TrimRight(s, "\x00 ")
		}
	}
	val := tag.String()
	if len(val) >= 2 && val[0] == '"' && val[len(val)-1] == '"' {
		val = val[1 : len(val)-1]
	}
	return val
}

func renderGPS(dir *tiff.Dir) string {
	ids := make([]int, 0, len(dir.Tags))
	vals := make(map[uint16]string, len(dir.Tags))
	for _, tag := range dir.Tags {
		ids = append(ids, int(tag.Id))
		vals[tag.Id] = Value(tag)
	}
	sort.Ints(ids)

	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		name, ok := gpsTagNames[uint16(id)]
		if !ok {
			name = fmt.Sprintf("0x%04X", id)
		}
		parts = append(parts, name+": "+vals[uint16(id)])
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// WithoutLayout returns a copy of t minus the baseline TIFF tags that
// describe pixel layout. A TIFF file's IFD0 doubles as its EXIF block, and
// any encoder writes these tags back; they are not auxiliary metadata.
func (t Tags) WithoutLayout() Tags {
	out := make(Tags, len(t))
	for id, v := range t {
		if layoutTags[id] {
			continue
		}
		out[id] = v
	}
	return out
}

// TagName resolves a numeric tag ID through the static name table.
func TagName(id uint16) (string, bool) {
	name, ok := tagNames[id]
	return name, ok
}

// Resolve translates tag IDs to display names. Tags whose ID has no known
// name are excluded from named and listed in dropped, in ascending order.
func Resolve(tags Tags) (named map[string]string, dropped []uint16) {
	named = make(map[string]string, len(tags))
	for id, v := range tags {
		name, ok := TagName(id)
		if !ok {
			dropped = append(dropped, id)
			continue
		}
		named[name] = v
	}
	sort.Slice(dropped, func(i, j int) bool { return dropped[i] < dropped[j] })
	return named, dropped
}
