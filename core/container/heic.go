package container

import (
	"bytes"
	"encoding/binary"
)

// byteReader is a bounds-checked big-endian cursor. The first out-of-range
// read sets err and every later read returns zero.
type byteReader struct {
	b   []byte
	p   int
	err error
}

func (r *byteReader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || r.p+n > len(r.b) {
		r.err = invalid("heic: read past end of box")
		return nil
	}
	out := r.b[r.p : r.p+n]
	r.p += n
	return out
}

func (r *byteReader) u8() uint8 {
	if b := r.take(1); b != nil {
		return b[0]
	}
	return 0
}

func (r *byteReader) u16() uint16 {
	if b := r.take(2); b != nil {
		return binary.BigEndian.Uint16(b)
	}
	return 0
}

func (r *byteReader) u32() uint32 {
	if b := r.take(4); b != nil {
		return binary.BigEndian.Uint32(b)
	}
	return 0
}

func (r *byteReader) u64() uint64 {
	if b := r.take(8); b != nil {
		return binary.BigEndian.Uint64(b)
	}
	return 0
}

// uN reads an n-byte field as used by iloc (n is 0, 4 or 8).
func (r *byteReader) uN(n int) uint64 {
	switch n {
	case 0:
		return 0
	case 4:
		return uint64(r.u32())
	case 8:
		return r.u64()
	default:
		r.err = invalid("heic: unsupported field size %d", n)
		return 0
	}
}

func (r *byteReader) cstring() string {
	if r.err != nil {
		return ""
	}
	n := bytes.IndexByte(r.b[r.p:], 0)
	if n < 0 {
		r.err = invalid("heic: unterminated string")
		return ""
	}
	s := string(r.b[r.p : r.p+n])
	r.p += n + 1
	return s
}

type isoBox struct {
	typ  string
	body []byte
}

func isoBoxes(data []byte) ([]isoBox, error) {
	var out []isoBox
	for i := 0; i < len(data); {
		if i+8 > len(data) {
			return nil, invalid("heic: truncated box header")
		}
		size := uint64(binary.BigEndian.Uint32(data[i : i+4]))
		typ := string(data[i+4 : i+8])
		hdr := uint64(8)
		switch size {
		case 1:
			if i+16 > len(data) {
				return nil, invalid("heic: truncated large box header")
			}
			size = binary.BigEndian.Uint64(data[i+8 : i+16])
			hdr = 16
		case 0:
			size = uint64(len(data) - i)
		}
		if size < hdr || size > uint64(len(data)-i) {
			return nil, invalid("heic: bad size for box %q", typ)
		}
		out = append(out, isoBox{typ: typ, body: data[i+int(hdr) : i+int(size)]})
		i += int(size)
	}
	return out, nil
}

func findBox(boxes []isoBox, typ string) (isoBox, bool) {
	for _, b := range boxes {
		if b.typ == typ {
			return b, true
		}
	}
	return isoBox{}, false
}

type heifItem struct {
	typ         string
	contentType string
	method      uint16 // 0 = file offset, 1 = idat offset
	extents     [][2]uint64
}

func readHEIC(data []byte) (*Info, error) {
	top, err := isoBoxes(data)
	if err != nil {
		return nil, err
	}
	if len(top) == 0 || top[0].typ != "ftyp" {
		return nil, invalid("heic: missing ftyp")
	}
	info := newInfo()

	meta, ok := findBox(top, "meta")
	if !ok {
		return info, nil
	}
	if len(meta.body) < 4 {
		return nil, invalid("heic: short meta box")
	}
	children, err := isoBoxes(meta.body[4:]) // FullBox version + flags
	if err != nil {
		return nil, err
	}

	items := map[uint32]*heifItem{}
	if iinf, ok := findBox(children, "iinf"); ok {
		if err := readIINF(iinf.body, items); err != nil {
			return nil, err
		}
	}
	if iloc, ok := findBox(children, "iloc"); ok {
		if err := readILOC(iloc.body, items); err != nil {
			return nil, err
		}
	}
	if iprp, ok := findBox(children, "iprp"); ok {
		readISPE(info, iprp.body)
	}
	idat, _ := findBox(children, "idat")

	for _, it := range items {
		switch {
		case it.typ == "Exif":
			payload, err := it.payload(data, idat.body)
			if err != nil {
				return nil, err
			}
			if info.EXIF == nil {
				info.EXIF = exifFromItem(payload)
			}
		case it.typ == "mime" && it.contentType == "application/rdf+xml":
			payload, err := it.payload(data, idat.body)
			if err != nil {
				return nil, err
			}
			info.set("xmp", string(payload))
		}
	}
	return info, nil
}

// exifFromItem skips the 4-byte offset that precedes the TIFF header in a
// HEIF Exif item.
func exifFromItem(payload []byte) []byte {
	if len(payload) < 4 {
		return payload
	}
	off := uint64(binary.BigEndian.Uint32(payload[0:4]))
	if 4+off > uint64(len(payload)) {
		return payload[4:]
	}
	return payload[4+off:]
}

func (it *heifItem) payload(file, idat []byte) ([]byte, error) {
	src := file
	if it.method == 1 {
		src = idat
	}
	var out []byte
	for _, ext := range it.extents {
		offset, length := ext[0], ext[1]
		if offset > uint64(len(src)) {
			return nil, invalid("heic: item extent out of range")
		}
		avail := uint64(len(src)) - offset
		if length == 0 {
			length = avail
		}
		if length > avail {
			return nil, invalid("heic: item extent out of range")
		}
		// Extents may not add up to more than their source holds.
		if length > uint64(len(src)-len(out)) {
			return nil, invalid("heic: item larger than its source")
		}
		out = append(out, src[offset:offset+length]...)
	}
	return out, nil
}

func readIINF(body []byte, items map[uint32]*heifItem) error {
	r := &byteReader{b: body}
	version := r.u8()
	r.take(3)
	if version == 0 {
		r.u16()
	} else {
		r.u32()
	}
	if r.err != nil {
		return r.err
	}
	entries, err := isoBoxes(body[r.p:])
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.typ != "infe" {
			continue
		}
		er := &byteReader{b: e.body}
		v := er.u8()
		er.take(3)
		if v < 2 {
			continue
		}
		var id uint32
		if v == 2 {
			id = uint32(er.u16())
		} else {
			id = er.u32()
		}
		er.u16() // protection index
		typ := string(er.take(4))
		er.cstring() // item name
		it := item(items, id)
		it.typ = typ
		if typ == "mime" {
			it.contentType = er.cstring()
		}
		if er.err != nil {
			return er.err
		}
	}
	return nil
}

func readILOC(body []byte, items map[uint32]*heifItem) error {
	r := &byteReader{b: body}
	version := r.u8()
	r.take(3)
	sizes := r.u8()
	offsetSize, lengthSize := int(sizes>>4), int(sizes&0x0F)
	sizes = r.u8()
	baseOffsetSize, indexSize := int(sizes>>4), 0
	if version == 1 || version == 2 {
		indexSize = int(sizes & 0x0F)
	}
	var count uint32
	if version < 2 {
		count = uint32(r.u16())
	} else {
		count = r.u32()
	}

	for n := uint32(0); n < count && r.err == nil; n++ {
		var id uint32
		if version < 2 {
			id = uint32(r.u16())
		} else {
			id = r.u32()
		}
		it := item(items, id)
		if version == 1 || version == 2 {
			it.method = r.u16() & 0x0F
		}
		r.u16() // data reference index
		base := r.uN(baseOffsetSize)
		extents := r.u16()
		for e := uint16(0); e < extents && r.err == nil; e++ {
			if indexSize > 0 {
				r.uN(indexSize)
			}
			off := r.uN(offsetSize)
			length := r.uN(lengthSize)
			if base+off < base {
				return invalid("heic: extent offset overflows for item %d", id)
			}
			it.extents = append(it.extents, [2]uint64{base + off, length})
		}
	}
	return r.err
}

// readISPE takes the largest image spatial extent, which is the primary
// image rather than a thumbnail.
func readISPE(info *Info, iprp []byte) {
	boxes, err := isoBoxes(iprp)
	if err != nil {
		return
	}
	ipco, ok := findBox(boxes, "ipco")
	if !ok {
		return
	}
	props, err := isoBoxes(ipco.body)
	if err != nil {
		return
	}
	for _, p := range props {
		if p.typ != "ispe" {
			continue
		}
		r := &byteReader{b: p.body}
		r.take(4)
		w, h := int(r.u32()), int(r.u32())
		if r.err == nil && w*h > info.Width*info.Height {
			info.Width, info.Height = w, h
		}
	}
}

func item(items map[uint32]*heifItem, id uint32) *heifItem {
	it, ok := items[id]
	if !ok {
		it = &heifItem{}
		items[id] = it
	}
	return it
}
