package exif_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pokkz/metadata-stripper/core/exif"
	"github.com/pokkz/metadata-stripper/internal/testimage"
)

func TestDecode(t *testing.T) {
	raw := testimage.EXIF(
		[]testimage.Entry{
			testimage.ASCII(0x010F, "Acme"),
			testimage.ASCII(0x0110, "Model 7 Pro"),
			testimage.Short(0x0112, 1),
		},
		[]testimage.Entry{testimage.ASCII(0x9003, "2024:01:02 03:04:05")},
		[]testimage.Entry{testimage.ASCII(0x0001, "N")},
	)

	tests := []struct {
		name string
		raw  []byte
	}{
		{name: "bare tiff stream", raw: raw},
		{name: "with exif identifier", raw: append([]byte("Exif\x00\x00"), raw...)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tags, err := exif.Decode(tt.raw)
			require.NoError(t, err)

			assert.Equal(t, exif.Tags{
				0x010F: "Acme",
				0x0110: "Model 7 Pro",
				0x0112: "1",
				0x9003: "2024:01:02 03:04:05",
				0x8825: "{GPSLatitudeRef: N}",
			}, tags)
		})
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		raw  []byte
	}{
		{name: "identifier only", raw: []byte("Exif\x00\x00")},
		{name: "garbage", raw: []byte("not a tiff stream at all")},
		{name: "truncated", raw: testimage.Make("Acme")[:10]},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := exif.Decode(tt.raw)
			assert.Error(t, err)
		})
	}
}

func TestDecodeRejectsOutOfBoundsIFDs(t *testing.T) {
	oversized := testimage.Entry{ID: 0x9286, Type: testimage.TypeShort, Count: 0x80000002, Data: []byte{0, 0, 0, 0}}

	tests := []struct {
		name string
		raw  []byte
	}{
		{
			// One SHORT entry claiming 0x80000002 values in a 26-byte block.
			name: "oversized count little endian",
			raw: []byte("II*\x00\x08\x00\x00\x00" +
				"\x01\x00" +
				"\x0F\x01\x03\x00\x02\x00\x00\x80\x00\x00\x00\x00" +
				"\x00\x00\x00\x00"),
		},
		{
			name: "oversized count big endian",
			raw: []byte("MM\x00*\x00\x00\x00\x08" +
				"\x00\x01" +
				"\x01\x0F\x00\x03\x80\x00\x00\x02\x00\x00\x00\x00" +
				"\x00\x00\x00\x00"),
		},
		{
			name: "oversized count in Exif sub-IFD",
			raw:  testimage.EXIF([]testimage.Entry{testimage.ASCII(0x010F, "Acme")}, []testimage.Entry{oversized}, nil),
		},
		{
			name: "oversized count behind identifier",
			raw:  append([]byte("Exif\x00\x00"), testimage.EXIF(nil, nil, []testimage.Entry{oversized})...),
		},
		{
			// IFD at 8 links to 14, which links back to 8.
			name: "looping IFD chain",
			raw: []byte("II*\x00\x08\x00\x00\x00" +
				"\x00\x00\x0E\x00\x00\x00" +
				"\x00\x00\x08\x00\x00\x00"),
		},
		{name: "not a TIFF stream", raw: []byte("\xFF\xD8\xFF\xE1 looks like a JPEG")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := exif.Decode(tt.raw)
			require.Error(t, err)
			assert.ErrorIs(t, err, exif.ErrInvalidData)
		})
	}
}

func TestResolveDropsUnknownTags(t *testing.T) {
	named, dropped := exif.Resolve(exif.Tags{
		0x010F: "Acme",
		0xFFF1: "b",
		0xFFF0: "a",
	})
	assert.Equal(t, map[string]string{"Make": "Acme"}, named)
	assert.Equal(t, []uint16{0xFFF0, 0xFFF1}, dropped)

	named, dropped = exif.Resolve(nil)
	assert.Empty(t, named)
	assert.Empty(t, dropped)
}

func TestTagName(t *testing.T) {
	name, ok := exif.TagName(0x8825)
	assert.True(t, ok)
	assert.Equal(t, "GPSInfo", name)

	_, ok = exif.TagName(0xFFF0)
	assert.False(t, ok)
}

func TestWithoutLayout(t *testing.T) {
	tags := exif.Tags{
		0x0100: "2",
		0x0101: "2",
		0x0111: "8",
		0x011A: "72/1",
		0x010F: "Acme",
		0x0131: "scanner 1.0",
	}
	assert.Equal(t, exif.Tags{0x010F: "Acme", 0x0131: "scanner 1.0"}, tags.WithoutLayout())
	assert.Len(t, tags, 6, "receiver is not modified")
}
