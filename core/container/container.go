// Package container walks image container formats and collects their
// auxiliary, non-pixel data: text chunks, comments, profiles, application
// extensions, and the raw EXIF block.
//
// Walkers never decode pixels. Fields an encoder always writes back
// (headers, palettes, transparency, loop extensions, layout tags) are
// structural and are not collected.
package container

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/pokkz/metadata-stripper/core"
)

var (
	// ErrInvalidData indicates a malformed or truncated container.
	ErrInvalidData = errors.New("container: invalid data")

	// ErrUnsupportedFormat is returned for formats without a walker.
	ErrUnsupportedFormat = errors.New("container: unsupported format")
)

// Info is what a walker found in one file.
type Info struct {
	// Fields is the container info mapping. Values are string for textual
	// data and []byte for binary payloads.
	Fields map[string]any

	// EXIF is the raw EXIF block, nil when the file embeds none.
	EXIF []byte

	// Width and Height are set by walkers that can read dimensions without
	// a pixel codec (HEIC).
	Width, Height int
}

func newInfo() *Info {
	return &Info{Fields: map[string]any{}}
}

// set stores a field, appending to an existing textual value of the same key
// so repeated comments are not lost.
func (in *Info) set(key string, value any) {
	if prev, ok := in.Fields[key].(string); ok {
		if s, ok := value.(string); ok {
			in.Fields[key] = prev + "\n" + s
			return
		}
	}
	in.Fields[key] = value
}

// Read dispatches to the walker for format.
func Read(format core.FormatID, data []byte) (*Info, error) {
	switch format {
	case core.FmtJPEG:
		return readJPEG(data)
	case core.FmtPNG:
		return readPNG(data)
	case core.FmtGIF:
		return readGIF(data)
	case core.FmtWebP:
		return readWebP(data)
	case core.FmtTIFF:
		return readTIFF(data)
	case core.FmtBMP:
		return readBMP(data)
	case core.FmtHEIC:
		return readHEIC(data)
	default:
		return nil, errors.Wrapf(ErrUnsupportedFormat, "%s", format)
	}
}

func invalid(format string, args ...any) error {
	return errors.Wrap(ErrInvalidData, fmt.Sprintf(format, args...))
}

// latin1 converts ISO 8859-1 bytes (PNG tEXt/zTXt) to a UTF-8 string.
func latin1(b []byte) string {
	r := make([]rune, len(b))
	for i, c := range b {
		r[i] = rune(c)
	}
	return string(r)
}
