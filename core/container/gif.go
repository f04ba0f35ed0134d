package container

import (
	"bytes"
	"strings"
)

const (
	gifExtension  = 0x21
	gifImage      = 0x2C
	gifTrailer    = 0x3B
	gifPlainText  = 0x01
	gifGraphicCtl = 0xF9
	gifComment    = 0xFE
	gifAppExt     = 0xFF
)

// Looping extensions are rewritten by any encoder of animated GIFs.
var gifLoopApps = map[string]bool{
	"NETSCAPE2.0": true,
	"ANIMEXTS1.0": true,
}

// gifSubBlocks reads a chain of data sub-blocks starting at i and returns
// their concatenation and the offset after the block terminator.
func gifSubBlocks(data []byte, i int) ([]byte, int, error) {
	var out []byte
	for {
		if i >= len(data) {
			return nil, i, invalid("gif: truncated sub-block")
		}
		n := int(data[i])
		i++
		if n == 0 {
			return out, i, nil
		}
		if i+n > len(data) {
			return nil, i, invalid("gif: truncated sub-block")
		}
		out = append(out, data[i:i+n]...)
		i += n
	}
}

func readGIF(data []byte) (*Info, error) {
	if len(data) < 13 {
		return nil, invalid("gif: file too short")
	}
	info := newInfo()

	i := 13 // header (6) + logical screen descriptor (7)
	if data[10]&0x80 != 0 {
		i += 3 * (1 << (int(data[10]&0x07) + 1))
	}

	for i < len(data) {
		switch data[i] {
		case gifTrailer:
			return info, nil

		case gifImage:
			if i+10 > len(data) {
				return nil, invalid("gif: truncated image descriptor")
			}
			flags := data[i+9]
			i += 10
			if flags&0x80 != 0 {
				i += 3 * (1 << (int(flags&0x07) + 1))
			}
			i++ // LZW minimum code size
			var err error
			if _, i, err = gifSubBlocks(data, i); err != nil {
				return nil, err
			}

		case gifExtension:
			if i+2 > len(data) {
				return nil, invalid("gif: truncated extension")
			}
			label := data[i+1]
			body, next, err := gifSubBlocks(data, i+2)
			if err != nil {
				return nil, err
			}
			switch label {
			case gifComment:
				info.set("comment", string(body))
			case gifPlainText:
				if len(body) > 12 {
					info.set("plain_text", string(body[12:]))
				}
			case gifAppExt:
				readGIFApp(info, data[i+2:next], body)
			case gifGraphicCtl:
			default:
				info.set("extension", body)
			}
			i = next

		default:
			return nil, invalid("gif: unexpected block 0x%02X", data[i])
		}
	}
	// Missing trailer: tolerated like most decoders do.
	return info, nil
}

// readGIFApp handles an application extension. raw is the undecoded
// sub-block chain, which XMP packets need verbatim.
func readGIFApp(info *Info, raw, body []byte) {
	if len(body) < 11 {
		info.set("extension", body)
		return
	}
	app := string(body[:11])
	switch {
	case gifLoopApps[app]:
		return
	case app == "XMP DataXMP":
		// XMP is stored raw, so the sub-block length bytes are packet text.
		// Drop the 11-byte identifier block header and the magic trailer.
		packet := raw
		if len(packet) > 12 {
			packet = packet[12:]
		}
		if end := bytes.LastIndex(packet, []byte("<?xpacket end")); end >= 0 {
			if gt := bytes.IndexByte(packet[end:], '>'); gt >= 0 {
				packet = packet[:end+gt+1]
			}
		}
		info.set("xmp", string(packet))
	default:
		info.set("application:"+strings.TrimSpace(app), body[11:])
	}
}
