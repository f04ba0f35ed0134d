// Package codec is the image codec capability the inspector and stripper are
// built on: open a file, read its container info and optional EXIF block,
// decode pixels, rebuild a metadata-free image, and encode it again.
package codec

import (
	"bytes"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"os"

	"github.com/HugoSmits86/nativewebp"
	"github.com/pkg/errors"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	"golang.org/x/image/webp"

	"github.com/pokkz/metadata-stripper/core"
	"github.com/pokkz/metadata-stripper/core/container"
	"github.com/pokkz/metadata-stripper/core/exif"
)

// Quality is the fixed quality setting used for every encode. Only JPEG
// honours it.
const Quality = 95

var (
	// ErrUnknownFormat is returned for content no walker recognises.
	ErrUnknownFormat = errors.New("codec: unknown image format")

	// ErrUnsupported is returned when a format has no pixel decoder or encoder.
	ErrUnsupported = errors.New("codec: no pixel codec for format")
)

type pixelCodec struct {
	decode func(io.Reader) (image.Image, error)
	config func(io.Reader) (image.Config, error)
	encode func(io.Writer, image.Image) error
}

// HEIC has no entry: there is no pure-Go HEVC codec.
var codecs = map[core.FormatID]pixelCodec{
	core.FmtJPEG: {
		decode: jpeg.Decode,
		config: jpeg.DecodeConfig,
		encode: func(w io.Writer, m image.Image) error {
			return jpeg.Encode(w, m, &jpeg.Options{Quality: Quality})
		},
	},
	core.FmtPNG: {decode: png.Decode, config: png.DecodeConfig, encode: png.Encode},
	core.FmtGIF: {
		decode: gif.Decode,
		config: gif.DecodeConfig,
		encode: func(w io.Writer, m image.Image) error { return gif.Encode(w, m, nil) },
	},
	core.FmtBMP: {decode: bmp.Decode, config: bmp.DecodeConfig, encode: bmp.Encode},
	core.FmtTIFF: {
		decode: tiff.Decode,
		config: tiff.DecodeConfig,
		encode: func(w io.Writer, m image.Image) error {
			return tiff.Encode(w, m, &tiff.Options{Compression: tiff.Uncompressed})
		},
	},
	core.FmtWebP: {
		decode: webp.Decode,
		config: webp.DecodeConfig,
		encode: func(w io.Writer, m image.Image) error { return nativewebp.Encode(w, m, nil) },
	},
}

// Handle is an opened image. It is owned by the call that opened it and is
// never shared.
type Handle struct {
	Path      string
	Format    core.FormatID
	ColorMode string
	Width     int
	Height    int
	Size      int64

	// Info is the container info mapping: string values for text, []byte for
	// binary payloads.
	Info map[string]any

	data    []byte
	exifRaw []byte
}

// Open reads the file at path and parses its container. The header is
// sniffed first so that non-image files are rejected without reading them in
// full.
func Open(path string) (*Handle, error) {
	format, err := core.DetectFormat(path)
	if err != nil {
		return nil, &core.DecodeError{Path: path, Err: err}
	}
	if format == core.FmtUnknown {
		return nil, &core.DecodeError{Path: path, Err: ErrUnknownFormat}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &core.DecodeError{Path: path, Err: err}
	}
	return Read(path, data)
}

// Read parses an in-memory image. path is only used for error reporting.
func Read(path string, data []byte) (*Handle, error) {
	format := core.Detect(data)
	if format == core.FmtUnknown {
		return nil, &core.DecodeError{Path: path, Err: ErrUnknownFormat}
	}
	info, err := container.Read(format, data)
	if err != nil {
		return nil, &core.DecodeError{Path: path, Err: err}
	}

	h := &Handle{
		Path:    path,
		Format:  format,
		Size:    int64(len(data)),
		Info:    info.Fields,
		data:    data,
		exifRaw: info.EXIF,
	}
	pc, ok := codecs[format]
	if !ok {
		h.Width, h.Height = info.Width, info.Height
		return h, nil
	}
	cfg, err := pc.config(bytes.NewReader(data))
	if err != nil {
		return nil, &core.DecodeError{Path: path, Err: errors.Wrapf(err, "%s header", format.Name())}
	}
	h.Width, h.Height = cfg.Width, cfg.Height
	h.ColorMode = ModelName(cfg.ColorModel)
	return h, nil
}

// HasEXIF reports whether the container embeds an EXIF block at all.
func (h *Handle) HasEXIF() bool { return len(h.exifRaw) > 0 }

// EXIF decodes the embedded EXIF block. A file without one yields nil tags
// and no error. For TIFF files the pixel layout tags are left out.
func (h *Handle) EXIF() (exif.Tags, error) {
	if !h.HasEXIF() {
		return nil, nil
	}
	tags, err := exif.Decode(h.exifRaw)
	if err != nil {
		return nil, &core.DecodeError{Path: h.Path, Err: err}
	}
	if h.Format == core.FmtTIFF {
		tags = tags.WithoutLayout()
	}
	return tags, nil
}

// Pixels decodes the image. ColorMode is updated to the decoded image's
// model, which is authoritative over the header's.
func (h *Handle) Pixels() (image.Image, error) {
	pc, ok := codecs[h.Format]
	if !ok {
		return nil, &core.DecodeError{Path: h.Path, Err: errors.Wrapf(ErrUnsupported, "%s", h.Format.Name())}
	}
	img, err := pc.decode(bytes.NewReader(h.data))
	if err != nil {
		return nil, &core.DecodeError{Path: h.Path, Err: err}
	}
	h.ColorMode = ModelName(img.ColorModel())
	return img, nil
}

// Encode writes img in format. Errors are returned unwrapped; callers attach
// the path.
func Encode(w io.Writer, img image.Image, format core.FormatID) error {
	pc, ok := codecs[format]
	if !ok {
		return errors.Wrapf(ErrUnsupported, "%s", format.Name())
	}
	return pc.encode(w, img)
}
