package container

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/klauspost/compress/zlib"
)

var pngSignature = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}

// pngStructural chunks carry pixels or the data needed to decode them.
// APNG animation chunks are listed too: the codec only keeps the default image.
var pngStructural = map[string]bool{
	"IHDR": true,
	"PLTE": true,
	"IDAT": true,
	"IEND": true,
	"tRNS": true,
	"acTL": true,
	"fcTL": true,
	"fdAT": true,
}

type pngChunk struct {
	typ  string
	data []byte
}

func readPNGChunks(data []byte) ([]pngChunk, error) {
	if !bytes.HasPrefix(data, pngSignature) {
		return nil, invalid("png: bad signature")
	}
	var chunks []pngChunk
	i := len(pngSignature)
	for {
		if i+8 > len(data) {
			return nil, invalid("png: missing IEND")
		}
		length := int(binary.BigEndian.Uint32(data[i : i+4]))
		typ := string(data[i+4 : i+8])
		i += 8
		if length < 0 || i+length+4 > len(data) {
			return nil, invalid("png: truncated %s chunk", typ)
		}
		chunks = append(chunks, pngChunk{typ: typ, data: data[i : i+length]})
		i += length + 4 // data + CRC
		if typ == "IEND" {
			return chunks, nil
		}
	}
}

func readPNG(data []byte) (*Info, error) {
	chunks, err := readPNGChunks(data)
	if err != nil {
		return nil, err
	}
	info := newInfo()
	for _, c := range chunks {
		if pngStructural[c.typ] {
			continue
		}
		switch c.typ {
		case "tEXt":
			// keyword\0text
			if key, rest, ok := bytes.Cut(c.data, []byte{0}); ok && len(key) > 0 {
				info.set(latin1(key), latin1(rest))
			}
		case "zTXt":
			// keyword\0method compressed-text
			key, rest, ok := bytes.Cut(c.data, []byte{0})
			if !ok || len(key) == 0 || len(rest) < 1 {
				continue
			}
			text, err := inflate(rest[1:])
			if err != nil {
				info.set(latin1(key), rest[1:])
				continue
			}
			info.set(latin1(key), latin1(text))
		case "iTXt":
			readITXt(info, c.data)
		case "eXIf":
			if info.EXIF == nil {
				info.EXIF = c.data
			}
		case "tIME":
			if len(c.data) == 7 {
				year := binary.BigEndian.Uint16(c.data[0:2])
				info.set("last_modified", fmt.Sprintf("%04d-%02d-%02d %02d:%02d:%02d",
					year, c.data[2], c.data[3], c.data[4], c.data[5], c.data[6]))
			}
		case "pHYs":
			readPHYs(info, c.data)
		case "gAMA":
			if len(c.data) == 4 {
				info.set("gamma", fmt.Sprintf("%g", float64(binary.BigEndian.Uint32(c.data))/100000))
			}
		case "cHRM":
			if len(c.data) == 32 {
				var vals [8]float64
				for k := range vals {
					vals[k] = float64(binary.BigEndian.Uint32(c.data[k*4:])) / 100000
				}
				info.set("chromaticity", fmt.Sprintf("%g", vals))
			}
		case "sRGB":
			if len(c.data) == 1 {
				info.set("srgb", fmt.Sprintf("%d", c.data[0]))
			}
		case "iCCP":
			// name\0method compressed-profile
			_, rest, ok := bytes.Cut(c.data, []byte{0})
			if !ok || len(rest) < 1 {
				info.set("icc_profile", c.data)
				continue
			}
			profile, err := inflate(rest[1:])
			if err != nil {
				profile = rest[1:]
			}
			info.set("icc_profile", profile)
		case "bKGD":
			info.set("background", c.data)
		default:
			// Remaining ancillary chunks (hIST, sBIT, sPLT, oFFs, private
			// chunks, ...) are kept under their chunk type.
			info.set(c.typ, c.data)
		}
	}
	return info, nil
}

// readITXt parses keyword\0flag method language\0translated\0text.
func readITXt(info *Info, d []byte) {
	key, rest, ok := bytes.Cut(d, []byte{0})
	if !ok || len(key) == 0 || len(rest) < 2 {
		return
	}
	compressed := rest[0] == 1
	rest = rest[2:]
	_, rest, ok = bytes.Cut(rest, []byte{0}) // language tag
	if !ok {
		return
	}
	_, text, ok := bytes.Cut(rest, []byte{0}) // translated keyword
	if !ok {
		return
	}
	if compressed {
		inflated, err := inflate(text)
		if err != nil {
			info.set(string(key), text)
			return
		}
		text = inflated
	}
	info.set(string(key), string(text))
}

func readPHYs(info *Info, d []byte) {
	if len(d) != 9 {
		return
	}
	px := binary.BigEndian.Uint32(d[0:4])
	py := binary.BigEndian.Uint32(d[4:8])
	if d[8] == 1 {
		// pixels per metre
		info.set("dpi", fmt.Sprintf("(%g, %g)",
			math.Round(float64(px)*0.0254), math.Round(float64(py)*0.0254)))
		return
	}
	info.set("aspect", fmt.Sprintf("(%d, %d)", px, py))
}

func inflate(b []byte) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return io.ReadAll(zr)
}
