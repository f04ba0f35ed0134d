package exif

import (
	"bytes"
	"encoding/binary"

	"github.com/pkg/errors"
)

// ErrInvalidData reports an EXIF block whose IFD layout cannot be decoded
// within the block's own bounds.
var ErrInvalidData = errors.New("exif: invalid data")

// typeSizes is the byte size of each TIFF field type, indexed by type code.
var typeSizes = [...]uint64{1: 1, 2: 1, 3: 2, 4: 4, 5: 8, 6: 1, 7: 1, 8: 2, 9: 4, 10: 8, 11: 4, 12: 8}

func typeSize(typ uint16) uint64 {
	if int(typ) < len(typeSizes) {
		return typeSizes[typ]
	}
	return 0
}

// checkIFDs visits the IFDs goexif will visit (the IFD0 chain plus the Exif,
// GPS and Interop sub-IFDs) before goexif does. Entries whose values would
// extend past the end of raw and IFD chains that loop are rejected: goexif
// sizes values in uint32 and only stops a chain on a back-to-back repeat.
//
// Truncated directories are left for goexif to report.
func checkIFDs(raw []byte) error {
	var order binary.ByteOrder
	switch {
	case bytes.HasPrefix(raw, []byte("II*\x00")):
		order = binary.LittleEndian
	case bytes.HasPrefix(raw, []byte("MM\x00*")):
		order = binary.BigEndian
	default:
		return errors.Wrap(ErrInvalidData, "missing TIFF header")
	}
	if len(raw) < 8 {
		return errors.Wrap(ErrInvalidData, "truncated TIFF header")
	}

	seen := map[uint32]bool{}
	var subs []uint32
	for off := order.Uint32(raw[4:8]); off != 0; {
		if seen[off] {
			return errors.Wrapf(ErrInvalidData, "IFD chain loops at offset %d", off)
		}
		seen[off] = true
		next, ptrs, err := checkDir(raw, order, off)
		if err != nil {
			return err
		}
		subs = append(subs, ptrs...)
		off = next
	}

	for len(subs) > 0 {
		off := subs[0]
		subs = subs[1:]
		if seen[off] {
			continue
		}
		seen[off] = true
		_, ptrs, err := checkDir(raw, order, off)
		if err != nil {
			return err
		}
		subs = append(subs, ptrs...)
	}
	return nil
}

// checkDir validates the IFD at off and returns the offset of the next IFD
// and any sub-IFD pointers it holds.
func checkDir(raw []byte, order binary.ByteOrder, off uint32) (next uint32, ptrs []uint32, err error) {
	end := uint64(len(raw))
	p := uint64(off)
	if p+2 > end {
		return 0, nil, nil
	}
	// goexif reads the entry count as int16: a negative count means no entries.
	n := int16(order.Uint16(raw[p:]))
	p += 2
	for i := int16(0); i < n; i++ {
		if p+12 > end {
			return 0, ptrs, nil
		}
		e := raw[p : p+12]
		id, typ, count := order.Uint16(e[0:]), order.Uint16(e[2:]), order.Uint32(e[4:])
		size := typeSize(typ)
		if size*uint64(count) > end {
			return 0, nil, errors.Wrapf(ErrInvalidData,
				"tag 0x%04X holds %d values of type %d, more than the %d-byte block", id, count, typ, end)
		}
		switch id {
		case tagExifIFD, tagGPSIFD, tagInteropIFD:
			if ptr, ok := firstValue(raw, order, e, size*uint64(count)); ok && ptr != 0 {
				ptrs = append(ptrs, ptr)
			}
		}
		p += 12
	}
	if p+4 > end {
		return 0, ptrs, nil
	}
	return order.Uint32(raw[p:]), ptrs, nil
}

// firstValue reads the first integer value of an IFD entry, inline or at its
// value offset.
func firstValue(raw []byte, order binary.ByteOrder, entry []byte, valLen uint64) (uint32, bool) {
	v := entry[8:12]
	if valLen > 4 {
		at := uint64(order.Uint32(v))
		if at+4 > uint64(len(raw)) {
			return 0, false
		}
		v = raw[at : at+4]
	}
	switch order.Uint16(entry[2:]) {
	case 1, 6: // BYTE, SBYTE
		return uint32(v[0]), true
	case 3, 8: // SHORT, SSHORT
		return uint32(order.Uint16(v)), true
	case 4, 9: // LONG, SLONG
		return order.Uint32(v), true
	}
	return 0, false
}
