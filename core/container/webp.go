package container

import (
	"bytes"
	"encoding/binary"
	"strings"
)

// webpStructural chunks hold the bitstream, alpha, or animation frames.
var webpStructural = map[string]bool{
	"VP8 ": true,
	"VP8L": true,
	"VP8X": true,
	"ALPH": true,
	"ANIM": true,
	"ANMF": true,
}

func readWebP(data []byte) (*Info, error) {
	if len(data) < 12 || !bytes.Equal(data[0:4], []byte("RIFF")) || !bytes.Equal(data[8:12], []byte("WEBP")) {
		return nil, invalid("webp: bad RIFF header")
	}
	end := len(data)
	if riffSize := int(binary.LittleEndian.Uint32(data[4:8])) + 8; riffSize < end {
		end = riffSize
	}

	info := newInfo()
	offset := 12 // skip RIFF header
	for offset+8 <= end {
		chunkID := string(data[offset : offset+4])
		chunkSize := int(binary.LittleEndian.Uint32(data[offset+4 : offset+8]))
		offset += 8
		if offset+chunkSize > end {
			return nil, invalid("webp: truncated %q chunk", chunkID)
		}
		chunkData := data[offset : offset+chunkSize]

		switch {
		case webpStructural[chunkID]:
		case chunkID == "EXIF":
			if info.EXIF == nil {
				info.EXIF = chunkData
			}
		case chunkID == "XMP ":
			info.set("xmp", string(chunkData))
		case chunkID == "ICCP":
			info.set("icc_profile", chunkData)
		default:
			info.set(strings.TrimSpace(chunkID), chunkData)
		}

		offset += chunkSize
		if chunkSize%2 != 0 {
			offset++ // padding
		}
	}
	return info, nil
}
