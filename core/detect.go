package core

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// FormatID enumerates every recognised container format.
type FormatID string

const (
	FmtJPEG FormatID = "jpeg"
	FmtPNG  FormatID = "png"
	FmtGIF  FormatID = "gif"
	FmtWebP FormatID = "webp"
	FmtTIFF FormatID = "tiff"
	FmtBMP  FormatID = "bmp"
	FmtHEIC FormatID = "heic"

	FmtUnknown FormatID = "unknown"
)

var formatNames = map[FormatID]string{
	FmtJPEG: "JPEG",
	FmtPNG:  "PNG",
	FmtGIF:  "GIF",
	FmtWebP: "WEBP",
	FmtTIFF: "TIFF",
	FmtBMP:  "BMP",
	FmtHEIC: "HEIC",
}

// Name returns the upper-case display name of the format ("JPEG", "WEBP", ...).
func (id FormatID) Name() string {
	if n, ok := formatNames[id]; ok {
		return n
	}
	return "UNKNOWN"
}

// imageExts are the extensions a shell offers for selection. Detection itself
// never looks at them.
var imageExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".bmp":  true,
	".gif":  true,
	".tif":  true,
	".tiff": true,
	".webp": true,
	".heic": true,
	".heif": true,
}

// IsImageExt reports whether path carries an image-like extension.
func IsImageExt(path string) bool {
	return imageExts[strings.ToLower(filepath.Ext(path))]
}

// headerLen is how many leading bytes Detect needs.
const headerLen = 16

// DetectFormat returns the FormatID for the file at path by reading its magic
// bytes. The extension is never consulted. A file too short to classify is
// FmtUnknown, not an error.
func DetectFormat(path string) (FormatID, error) {
	f, err := os.Open(path)
	if err != nil {
		return FmtUnknown, err
	}
	defer f.Close()

	buf := make([]byte, headerLen)
	n, err := io.ReadFull(f, buf)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return FmtUnknown, err
	}
	return Detect(buf[:n]), nil
}

// Detect classifies a file header.
func Detect(b []byte) FormatID {
	if len(b) < 4 {
		return FmtUnknown
	}
	switch {
	// JPEG: FF D8 FF
	case b[0] == 0xFF && b[1] == 0xD8 && b[2] == 0xFF:
		return FmtJPEG
	// PNG: 89 50 4E 47 0D 0A 1A 0A
	case bytes.HasPrefix(b, []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}):
		return FmtPNG
	// GIF: GIF87a or GIF89a
	case bytes.HasPrefix(b, []byte("GIF87a")) || bytes.HasPrefix(b, []byte("GIF89a")):
		return FmtGIF
	// WebP: RIFF????WEBP
	case len(b) >= 12 && bytes.Equal(b[0:4], []byte("RIFF")) && bytes.Equal(b[8:12], []byte("WEBP")):
		return FmtWebP
	// TIFF: 49 49 2A 00 (little-endian) or 4D 4D 00 2A (big-endian)
	case bytes.HasPrefix(b, []byte{0x49, 0x49, 0x2A, 0x00}) ||
		bytes.HasPrefix(b, []byte{0x4D, 0x4D, 0x00, 0x2A}):
		return FmtTIFF
	// BMP: 42 4D
	case b[0] == 0x42 && b[1] == 0x4D:
		return FmtBMP
	// HEIC/HEIF: ftyp box at offset 4 with an HEVC-family brand
	case len(b) >= 12 && bytes.Equal(b[4:8], []byte("ftyp")):
		return detectHEIFBrand(b[8:12])
	}
	return FmtUnknown
}

func detectHEIFBrand(brand []byte) FormatID {
	switch string(brand) {
	case "heic", "heix", "hevc", "hevx", "heim", "heis", "mif1", "msf1":
		return FmtHEIC
	}
	return FmtUnknown
}
