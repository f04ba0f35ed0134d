package container

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sort"
	"strings"
)

const (
	markerSOI   = 0xD8
	markerEOI   = 0xD9
	markerSOS   = 0xDA
	markerCOM   = 0xFE
	markerAPP0  = 0xE0
	markerAPP1  = 0xE1
	markerAPP2  = 0xE2
	markerAPP13 = 0xED
	markerAPP14 = 0xEE
	markerAPP15 = 0xEF
)

var (
	jfifPrefix      = []byte("JFIF\x00")
	jfxxPrefix      = []byte("JFXX\x00")
	exifPrefix      = []byte("Exif\x00\x00")
	xmpPrefix       = []byte("http://ns.adobe.com/xap/1.0/\x00")
	iccPrefix       = []byte("ICC_PROFILE\x00")
	photoshopPrefix = []byte("Photoshop 3.0\x00")
	adobePrefix     = []byte("Adobe")
)

type jpegSegment struct {
	marker byte
	data   []byte
}

// jpegSegments returns the marker segments between SOI and SOS. Entropy-coded
// data is never touched.
func jpegSegments(data []byte) ([]jpegSegment, error) {
	if len(data) < 2 || data[0] != 0xFF || data[1] != markerSOI {
		return nil, invalid("jpeg: missing SOI")
	}
	var segs []jpegSegment
	i := 2
	for i < len(data) {
		if data[i] != 0xFF {
			return nil, invalid("jpeg: expected marker at offset %d", i)
		}
		// Fill bytes may precede a marker.
		for i < len(data) && data[i] == 0xFF {
			i++
		}
		if i >= len(data) {
			break
		}
		marker := data[i]
		i++

		switch {
		case marker == markerEOI || marker == markerSOS:
			return segs, nil
		case marker == markerSOI || marker == 0x01 || (marker >= 0xD0 && marker <= 0xD7):
			continue
		}

		if i+2 > len(data) {
			return nil, invalid("jpeg: truncated length of marker 0x%02X", marker)
		}
		segLen := int(binary.BigEndian.Uint16(data[i:i+2])) - 2
		i += 2
		if segLen < 0 || i+segLen > len(data) {
			return nil, invalid("jpeg: truncated segment 0x%02X", marker)
		}
		segs = append(segs, jpegSegment{marker: marker, data: data[i : i+segLen]})
		i += segLen
	}
	return nil, invalid("jpeg: no SOS marker")
}

func readJPEG(data []byte) (*Info, error) {
	segs, err := jpegSegments(data)
	if err != nil {
		return nil, err
	}
	info := newInfo()

	type iccChunk struct {
		seq  int
		data []byte
	}
	var icc []iccChunk

	for _, seg := range segs {
		d := seg.data
		switch {
		case seg.marker == markerAPP0 && bytes.HasPrefix(d, jfifPrefix):
			readJFIF(info, d[len(jfifPrefix):])
		case seg.marker == markerAPP0 && bytes.HasPrefix(d, jfxxPrefix):
			info.set("jfxx", d[len(jfxxPrefix):])
		case seg.marker == markerAPP1 && bytes.HasPrefix(d, exifPrefix):
			if info.EXIF == nil {
				info.EXIF = d
			}
		case seg.marker == markerAPP1 && bytes.HasPrefix(d, xmpPrefix):
			info.set("xmp", string(d[len(xmpPrefix):]))
		case seg.marker == markerAPP2 && bytes.HasPrefix(d, iccPrefix):
			if len(d) >= len(iccPrefix)+2 {
				icc = append(icc, iccChunk{seq: int(d[len(iccPrefix)]), data: d[len(iccPrefix)+2:]})
			}
		case seg.marker == markerAPP13 && bytes.HasPrefix(d, photoshopPrefix):
			readPhotoshop(info, d[len(photoshopPrefix):])
		case seg.marker == markerAPP14 && bytes.HasPrefix(d, adobePrefix):
			if len(d) >= 12 {
				info.set("adobe", fmt.Sprintf("%d", binary.BigEndian.Uint16(d[5:7])))
				info.set("adobe_transform", fmt.Sprintf("%d", d[11]))
			} else {
				info.set("adobe", d)
			}
		case seg.marker == markerCOM:
			info.set("comment", string(d))
		case seg.marker >= markerAPP0 && seg.marker <= markerAPP15:
			info.set(fmt.Sprintf("app%d", seg.marker-markerAPP0), d)
		}
	}

	if len(icc) > 0 {
		sort.SliceStable(icc, func(i, j int) bool { return icc[i].seq < icc[j].seq })
		var profile []byte
		for _, c := range icc {
			profile = append(profile, c.data...)
		}
		info.set("icc_profile", profile)
	}
	return info, nil
}

func readJFIF(info *Info, d []byte) {
	if len(d) < 7 {
		info.set("jfif", d)
		return
	}
	info.set("jfif_version", fmt.Sprintf("%d.%02d", d[0], d[1]))
	info.set("jfif_unit", fmt.Sprintf("%d", d[2]))
	info.set("jfif_density", fmt.Sprintf("%dx%d",
		binary.BigEndian.Uint16(d[3:5]), binary.BigEndian.Uint16(d[5:7])))
}

// ─── IPTC ─────────────────────────────────────────────────────────────────────

var iptcFieldNames = map[byte]string{
	0x05: "ObjectName",
	0x0F: "Category",
	0x14: "SupplementalCategory",
	0x19: "Keywords",
	0x1E: "DateCreated",
	0x1F: "TimeCreated",
	0x28: "SpecialInstructions",
	0x37: "DigitalCreationDate",
	0x3C: "Byline",
	0x3E: "BylineTitle",
	0x46: "City",
	0x4E: "Province",
	0x55: "Country",
	0x67: "OriginalTransmissionReference",
	0x69: "Headline",
	0x6E: "Credit",
	0x73: "Source",
	0x74: "CopyrightNotice",
	0x76: "Contact",
	0x78: "Caption",
	0x7A: "CaptionWriter",
}

// readPhotoshop walks the 8BIM resource blocks of an APP13 segment. The IPTC
// resource (0x0404) is rendered field by field; other resources only count.
func readPhotoshop(info *Info, data []byte) {
	var fields []string
	resources := 0
	i := 0
	for i+8 < len(data) {
		if !bytes.Equal(data[i:i+4], []byte("8BIM")) {
			i++
			continue
		}
		resType := binary.BigEndian.Uint16(data[i+4 : i+6])
		nameLen := int(data[i+6])
		if nameLen%2 == 0 {
			nameLen++
		}
		i += 7 + nameLen
		if i+4 > len(data) {
			break
		}
		blockLen := int(binary.BigEndian.Uint32(data[i : i+4]))
		i += 4
		if i+blockLen > len(data) {
			break
		}
		resources++
		if resType == 0x0404 {
			fields = append(fields, iptcFields(data[i:i+blockLen])...)
		}
		i += blockLen
		if blockLen%2 != 0 {
			i++
		}
	}

	switch {
	case len(fields) > 0:
		info.set("iptc", "{"+strings.Join(fields, ", ")+"}")
	case resources > 0:
		info.set("photoshop", fmt.Sprintf("%d resource blocks", resources))
	default:
		info.set("photoshop", data)
	}
}

func iptcFields(data []byte) []string {
	var out []string
	i := 0
	for i+5 <= len(data) {
		if data[i] != 0x1C {
			i++
			continue
		}
		dataset := data[i+2]
		length := int(binary.BigEndian.Uint16(data[i+3 : i+5]))
		i += 5
		if i+length > len(data) {
			break
		}
		if name, ok := iptcFieldNames[dataset]; ok {
			out = append(out, name+": "+string(data[i:i+length]))
		}
		i += length
	}
	return out
}
