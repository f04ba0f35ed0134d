// Package testimage builds small image files with embedded metadata for
// tests. Pixels come from the real encoders; metadata chunks and segments are
// spliced in by hand.
package testimage

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"sort"
	"testing"

	"github.com/HugoSmits86/nativewebp"
	"github.com/klauspost/compress/zlib"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"
)

// ─── TIFF / EXIF ──────────────────────────────────────────────────────────────

// TIFF field types.
const (
	TypeASCII     uint16 = 2
	TypeShort     uint16 = 3
	TypeLong      uint16 = 4
	TypeUndefined uint16 = 7
)

// Entry is one IFD entry with its little-endian encoded value.
type Entry struct {
	ID    uint16
	Type  uint16
	Count uint32
	Data  []byte
}

// ASCII returns a NUL-terminated string entry.
func ASCII(id uint16, s string) Entry {
	return Entry{ID: id, Type: TypeASCII, Count: uint32(len(s) + 1), Data: append([]byte(s), 0)}
}

// Short returns a single SHORT entry.
func Short(id, v uint16) Entry {
	b := make([]byte, 2)
	binary.LittleEndian.PutUint16(b, v)
	return Entry{ID: id, Type: TypeShort, Count: 1, Data: b}
}

// Long returns a single LONG entry.
func Long(id uint16, v uint32) Entry {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return Entry{ID: id, Type: TypeLong, Count: 1, Data: b}
}

// Undefined returns an UNDEFINED entry holding raw bytes.
func Undefined(id uint16, b []byte) Entry {
	return Entry{ID: id, Type: TypeUndefined, Count: uint32(len(b)), Data: b}
}

const (
	tagExifIFD = 0x8769
	tagGPSIFD  = 0x8825
)

// TIFF lays out a little-endian TIFF stream: the header, payload at offset 8,
// IFD0, the Exif and GPS sub-IFDs when given, then out-of-line values.
// Pointer entries for the sub-IFDs are added to IFD0 automatically.
func TIFF(payload []byte, ifd0, exifIFD, gps []Entry) []byte {
	le := binary.LittleEndian

	root := append([]Entry(nil), ifd0...)
	dirs := [][]Entry{root}
	if len(exifIFD) > 0 {
		dirs = append(dirs, append([]Entry(nil), exifIFD...))
	}
	if len(gps) > 0 {
		dirs = append(dirs, append([]Entry(nil), gps...))
	}

	offsets := make([]int, len(dirs))
	off := 8 + len(payload) + len(payload)%2
	for i, d := range dirs {
		n := len(d)
		if i == 0 {
			n += len(dirs) - 1 // sub-IFD pointers
		}
		offsets[i] = off
		off += 2 + 12*n + 4
	}
	next := 1
	if len(exifIFD) > 0 {
		dirs[0] = append(dirs[0], Long(tagExifIFD, uint32(offsets[next])))
		next++
	}
	if len(gps) > 0 {
		dirs[0] = append(dirs[0], Long(tagGPSIFD, uint32(offsets[next])))
	}

	buf := make([]byte, off)
	copy(buf, "II*\x00")
	le.PutUint32(buf[4:], uint32(offsets[0]))
	copy(buf[8:], payload)
	for i, d := range dirs {
		sort.Slice(d, func(a, b int) bool { return d[a].ID < d[b].ID })
		p := offsets[i]
		le.PutUint16(buf[p:], uint16(len(d)))
		p += 2
		for _, e := range d {
			le.PutUint16(buf[p:], e.ID)
			le.PutUint16(buf[p+2:], e.Type)
			le.PutUint32(buf[p+4:], e.Count)
			if len(e.Data) <= 4 {
				copy(buf[p+8:p+12], e.Data)
			} else {
				le.PutUint32(buf[p+8:], uint32(len(buf)))
				buf = append(buf, e.Data...)
				if len(buf)%2 == 1 {
					buf = append(buf, 0)
				}
			}
			p += 12
		}
	}
	return buf
}

// EXIF returns a bare TIFF stream holding only tags.
func EXIF(ifd0, exifIFD, gps []Entry) []byte {
	return TIFF(nil, ifd0, exifIFD, gps)
}

// Make is the common fixture: an EXIF block whose only tag is Make.
func Make(vendor string) []byte {
	return EXIF([]Entry{ASCII(0x010F, vendor)}, nil, nil)
}

// GrayTIFF returns an uncompressed 8-bit grayscale TIFF file with extra
// entries added to IFD0.
func GrayTIFF(img *image.Gray, extra ...Entry) []byte {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	pix := make([]byte, 0, w*h)
	for y := 0; y < h; y++ {
		pix = append(pix, img.Pix[y*img.Stride:y*img.Stride+w]...)
	}
	ifd0 := append([]Entry{
		Short(0x0100, uint16(w)),
		Short(0x0101, uint16(h)),
		Short(0x0102, 8),
		Short(0x0103, 1),
		Short(0x0106, 1), // BlackIsZero
		Long(0x0111, 8),
		Short(0x0115, 1),
		Short(0x0116, uint16(h)),
		Long(0x0117, uint32(len(pix))),
	}, extra...)
	return TIFF(pix, ifd0, nil, nil)
}

// ─── Pixels ───────────────────────────────────────────────────────────────────

// Pattern returns an opaque RGBA gradient.
func Pattern(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 40), G: uint8(y * 40), B: uint8((x + y) * 20), A: 0xFF})
		}
	}
	return img
}

// GrayPattern returns a grayscale gradient.
func GrayPattern(w, h int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = uint8(i * 13)
	}
	return img
}

// PalettedPattern returns a paletted image over a four-colour palette.
func PalettedPattern(w, h int) *image.Paletted {
	palette := color.Palette{
		color.RGBA{A: 0xFF},
		color.RGBA{R: 0xFF, A: 0xFF},
		color.RGBA{G: 0xFF, A: 0xFF},
		color.RGBA{B: 0xFF, A: 0xFF},
	}
	img := image.NewPaletted(image.Rect(0, 0, w, h), palette)
	for i := range img.Pix {
		img.Pix[i] = uint8(i % len(palette))
	}
	return img
}

// ─── PNG ──────────────────────────────────────────────────────────────────────

// Chunk is a PNG or RIFF chunk.
type Chunk struct {
	Type string
	Data []byte
}

// TextChunk returns a tEXt chunk.
func TextChunk(key, value string) Chunk {
	return Chunk{Type: "tEXt", Data: []byte(key + "\x00" + value)}
}

// ZTextChunk returns a zTXt chunk with zlib-compressed text.
func ZTextChunk(t testing.TB, key, value string) Chunk {
	data := append([]byte(key), 0, 0)
	return Chunk{Type: "zTXt", Data: append(data, deflate(t, []byte(value))...)}
}

// ITextChunk returns an uncompressed iTXt chunk.
func ITextChunk(key, value string) Chunk {
	data := append([]byte(key), 0, 0, 0) // flag, method
	data = append(data, "en\x00\x00"...)
	return Chunk{Type: "iTXt", Data: append(data, value...)}
}

func deflate(t testing.TB, b []byte) []byte {
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	_, err := zw.Write(b)
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

// PNG encodes img and inserts chunks right after IHDR.
func PNG(t testing.TB, img image.Image, chunks ...Chunk) []byte {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	data := buf.Bytes()

	const afterIHDR = 8 + 8 + 13 + 4
	var extra bytes.Buffer
	for _, c := range chunks {
		writePNGChunk(&extra, c.Type, c.Data)
	}
	return splice(data, afterIHDR, extra.Bytes())
}

func writePNGChunk(w *bytes.Buffer, typ string, data []byte) {
	var n [4]byte
	binary.BigEndian.PutUint32(n[:], uint32(len(data)))
	w.Write(n[:])
	w.WriteString(typ)
	w.Write(data)
	crc := crc32.NewIEEE()
	crc.Write([]byte(typ))
	crc.Write(data)
	binary.BigEndian.PutUint32(n[:], crc.Sum32())
	w.Write(n[:])
}

// ─── JPEG ─────────────────────────────────────────────────────────────────────

// Segment is a JPEG marker segment without its length field.
type Segment struct {
	Marker byte
	Data   []byte
}

// EXIFSegment wraps a TIFF stream in an APP1 Exif segment.
func EXIFSegment(tiff []byte) Segment {
	return Segment{Marker: 0xE1, Data: append([]byte("Exif\x00\x00"), tiff...)}
}

// CommentSegment returns a COM segment.
func CommentSegment(text string) Segment {
	return Segment{Marker: 0xFE, Data: []byte(text)}
}

// JPEG encodes img and inserts segments right after SOI.
func JPEG(t testing.TB, img image.Image, segs ...Segment) []byte {
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, &jpeg.Options{Quality: 95}))

	var extra bytes.Buffer
	for _, s := range segs {
		require.Less(t, len(s.Data), 0xFFFF-2)
		extra.Write([]byte{0xFF, s.Marker})
		var n [2]byte
		binary.BigEndian.PutUint16(n[:], uint16(len(s.Data)+2))
		extra.Write(n[:])
		extra.Write(s.Data)
	}
	return splice(buf.Bytes(), 2, extra.Bytes())
}

// ─── GIF ──────────────────────────────────────────────────────────────────────

// CommentExtension returns a GIF comment extension block.
func CommentExtension(text string) []byte {
	return extension(0xFE, subBlocks([]byte(text)))
}

// AppExtension returns a GIF application extension with an 11-byte
// identifier such as "NETSCAPE2.0".
func AppExtension(id string, data []byte) []byte {
	body := append([]byte{11}, id...)
	return extension(0xFF, append(body, subBlocks(data)...))
}

func extension(label byte, body []byte) []byte {
	return append([]byte{0x21, label}, body...)
}

func subBlocks(data []byte) []byte {
	var out []byte
	for len(data) > 0 {
		n := min(len(data), 255)
		out = append(out, byte(n))
		out = append(out, data[:n]...)
		data = data[n:]
	}
	return append(out, 0)
}

// GIF encodes img and inserts raw extension blocks before the first frame.
func GIF(t testing.TB, img *image.Paletted, exts ...[]byte) []byte {
	var buf bytes.Buffer
	require.NoError(t, gif.Encode(&buf, img, nil))
	data := buf.Bytes()

	at := 13
	if data[10]&0x80 != 0 {
		at += 3 * (1 << (int(data[10]&0x07) + 1))
	}
	return splice(data, at, bytes.Join(exts, nil))
}

// ─── WebP ─────────────────────────────────────────────────────────────────────

// WebP encodes img losslessly and rebuilds it as an extended (VP8X) file
// carrying chunks. ICCP goes before the bitstream, everything else after.
func WebP(t testing.TB, img image.Image, chunks ...Chunk) []byte {
	var buf bytes.Buffer
	require.NoError(t, nativewebp.Encode(&buf, img, nil))
	bitstream := riffChunk(t, buf.Bytes(), "VP8L")
	if len(chunks) == 0 {
		return buf.Bytes()
	}

	var flags byte
	var before, after []Chunk
	for _, c := range chunks {
		switch c.Type {
		case "ICCP":
			flags |= 0x20
			before = append(before, c)
		case "EXIF":
			flags |= 0x08
			after = append(after, c)
		case "XMP ":
			flags |= 0x04
			after = append(after, c)
		default:
			after = append(after, c)
		}
	}

	b := img.Bounds()
	vp8x := make([]byte, 10)
	vp8x[0] = flags
	putUint24(vp8x[4:], uint32(b.Dx()-1))
	putUint24(vp8x[7:], uint32(b.Dy()-1))

	var body bytes.Buffer
	body.WriteString("WEBP")
	writeRIFFChunk(&body, "VP8X", vp8x)
	for _, c := range before {
		writeRIFFChunk(&body, c.Type, c.Data)
	}
	writeRIFFChunk(&body, "VP8L", bitstream)
	for _, c := range after {
		writeRIFFChunk(&body, c.Type, c.Data)
	}

	var out bytes.Buffer
	out.WriteString("RIFF")
	var n [4]byte
	binary.LittleEndian.PutUint32(n[:], uint32(body.Len()))
	out.Write(n[:])
	out.Write(body.Bytes())
	return out.Bytes()
}

func riffChunk(t testing.TB, file []byte, id string) []byte {
	for i := 12; i+8 <= len(file); {
		size := int(binary.LittleEndian.Uint32(file[i+4 : i+8]))
		if string(file[i:i+4]) == id {
			return file[i+8 : i+8+size]
		}
		i += 8 + size + size%2
	}
	t.Fatalf("no %s chunk in encoded webp", id)
	return nil
}

func writeRIFFChunk(w *bytes.Buffer, id string, data []byte) {
	var n [4]byte
	binary.LittleEndian.PutUint32(n[:], uint32(len(data)))
	w.WriteString(id)
	w.Write(n[:])
	w.Write(data)
	if len(data)%2 == 1 {
		w.WriteByte(0)
	}
}

func putUint24(b []byte, v uint32) {
	b[0], b[1], b[2] = byte(v), byte(v>>8), byte(v>>16)
}

// ─── BMP ──────────────────────────────────────────────────────────────────────

// BMP encodes img with the x/image encoder.
func BMP(t testing.TB, img image.Image) []byte {
	var buf bytes.Buffer
	require.NoError(t, bmp.Encode(&buf, img))
	return buf.Bytes()
}

// BMPWithProfile writes a 24-bit BITMAPV5HEADER file embedding an ICC
// profile after the pixel array.
func BMPWithProfile(img *image.RGBA, profile []byte) []byte {
	const fileHeader, v5Header = 14, 124
	le := binary.LittleEndian
	w, h := img.Rect.Dx(), img.Rect.Dy()
	rowLen := (3*w + 3) &^ 3

	pix := make([]byte, rowLen*h)
	for y := 0; y < h; y++ {
		row := pix[(h-1-y)*rowLen:]
		for x := 0; x < w; x++ {
			c := img.RGBAAt(x, y)
			row[3*x], row[3*x+1], row[3*x+2] = c.B, c.G, c.R
		}
	}

	out := make([]byte, fileHeader+v5Header)
	out[0], out[1] = 'B', 'M'
	le.PutUint32(out[2:], uint32(fileHeader+v5Header+len(pix)+len(profile)))
	le.PutUint32(out[10:], fileHeader+v5Header)

	dib := out[fileHeader:]
	le.PutUint32(dib[0:], v5Header)
	le.PutUint32(dib[4:], uint32(w))
	le.PutUint32(dib[8:], uint32(h))
	le.PutUint16(dib[12:], 1)
	le.PutUint16(dib[14:], 24)
	le.PutUint32(dib[20:], uint32(len(pix)))
	le.PutUint32(dib[56:], 0x4D424544) // 'MBED'
	le.PutUint32(dib[112:], uint32(v5Header+len(pix)))
	le.PutUint32(dib[116:], uint32(len(profile)))

	out = append(out, pix...)
	return append(out, profile...)
}

// ─── HEIC ─────────────────────────────────────────────────────────────────────

// HEIC returns an HEIF container with no coded image: ftyp, and a meta box
// declaring an Exif item and, when xmp is set, an XMP mime item. Item data
// lives in idat.
func HEIC(tiff []byte, xmp string, w, h int) []byte {
	type item struct {
		typ, contentType string
		data             []byte
	}
	items := []item{{typ: "Exif", data: append([]byte{0, 0, 0, 0}, tiff...)}}
	if xmp != "" {
		items = append(items, item{typ: "mime", contentType: "application/rdf+xml", data: []byte(xmp)})
	}

	var infes [][]byte
	iloc := []byte{1, 0, 0, 0, 0x44, 0x00} // version 1, 4-byte offset/length
	iloc = binary.BigEndian.AppendUint16(iloc, uint16(len(items)))
	var idat []byte
	for i, it := range items {
		id := uint16(i + 1)
		infe := []byte{2, 0, 0, 0}
		infe = binary.BigEndian.AppendUint16(infe, id)
		infe = append(infe, 0, 0)
		infe = append(infe, it.typ...)
		infe = append(infe, 0) // empty name
		if it.contentType != "" {
			infe = append(infe, it.contentType...)
			infe = append(infe, 0)
		}
		infes = append(infes, box("infe", infe))

		iloc = binary.BigEndian.AppendUint16(iloc, id)
		iloc = binary.BigEndian.AppendUint16(iloc, 1) // construction method: idat
		iloc = binary.BigEndian.AppendUint16(iloc, 0)
		iloc = binary.BigEndian.AppendUint16(iloc, 1) // extent count
		iloc = binary.BigEndian.AppendUint32(iloc, uint32(len(idat)))
		iloc = binary.BigEndian.AppendUint32(iloc, uint32(len(it.data)))
		idat = append(idat, it.data...)
	}

	iinf := binary.BigEndian.AppendUint16([]byte{0, 0, 0, 0}, uint16(len(items)))
	iinf = append(iinf, bytes.Join(infes, nil)...)

	ispe := []byte{0, 0, 0, 0}
	ispe = binary.BigEndian.AppendUint32(ispe, uint32(w))
	ispe = binary.BigEndian.AppendUint32(ispe, uint32(h))

	meta := bytes.Join([][]byte{
		{0, 0, 0, 0},
		box("iinf", iinf),
		box("iloc", iloc),
		box("iprp", box("ipco", box("ispe", ispe))),
		box("idat", idat),
	}, nil)

	ftyp := []byte("heic\x00\x00\x00\x00mif1heic")
	return append(box("ftyp", ftyp), box("meta", meta)...)
}

func box(typ string, body []byte) []byte {
	out := binary.BigEndian.AppendUint32(nil, uint32(8+len(body)))
	out = append(out, typ...)
	return append(out, body...)
}

func splice(data []byte, at int, insert []byte) []byte {
	out := make([]byte, 0, len(data)+len(insert))
	out = append(out, data[:at]...)
	out = append(out, insert...)
	return append(out, data[at:]...)
}
