package container

import (
	"encoding/binary"
	"strings"
)

const (
	bmpFileHeaderLen = 14
	bmpV5HeaderLen   = 124

	profileLinked   = 0x4C494E4B // 'LINK'
	profileEmbedded = 0x4D424544 // 'MBED'
)

// readBMP only looks for a BITMAPV5HEADER colour profile. Everything else in
// a BMP header describes the pixel layout.
func readBMP(data []byte) (*Info, error) {
	if len(data) < bmpFileHeaderLen+4 || data[0] != 'B' || data[1] != 'M' {
		return nil, invalid("bmp: bad header")
	}
	dibLen := int(binary.LittleEndian.Uint32(data[14:18]))
	if bmpFileHeaderLen+dibLen > len(data) {
		return nil, invalid("bmp: truncated DIB header")
	}
	info := newInfo()
	if dibLen < bmpV5HeaderLen {
		return info, nil
	}

	dib := data[bmpFileHeaderLen : bmpFileHeaderLen+dibLen]
	csType := binary.LittleEndian.Uint32(dib[56:60])
	if csType != profileLinked && csType != profileEmbedded {
		return info, nil
	}
	// Profile offset is relative to the start of the DIB header.
	offset := bmpFileHeaderLen + int(binary.LittleEndian.Uint32(dib[112:116]))
	size := int(binary.LittleEndian.Uint32(dib[116:120]))
	if size == 0 || offset+size > len(data) {
		return info, nil
	}
	profile := data[offset : offset+size]
	if csType == profileLinked {
		info.set("icc_profile_link", strings.TrimRight(string(profile), "\x00"))
		return info, nil
	}
	info.set("icc_profile", profile)
	return info, nil
}
