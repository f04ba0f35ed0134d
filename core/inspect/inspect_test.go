package inspect_test

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pokkz/metadata-stripper/core"
	"github.com/pokkz/metadata-stripper/core/exif"
	"github.com/pokkz/metadata-stripper/core/inspect"
	"github.com/pokkz/metadata-stripper/internal/testimage"
)

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func quietInspector() *inspect.Inspector {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return inspect.New(inspect.WithLogger(logrus.NewEntry(logger)))
}

func TestMakeAcme(t *testing.T) {
	path := writeFile(t, "photo.jpg", testimage.JPEG(t, testimage.Pattern(4, 4),
		testimage.EXIFSegment(testimage.Make("Acme"))))
	insp := quietInspector()

	report, err := insp.Report(path)
	require.NoError(t, err)
	assert.Equal(t, "Make: Acme", report)

	has, err := insp.HasMetadata(path)
	require.NoError(t, err)
	assert.True(t, has)
}

func TestNoMetadata(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"photo.png", testimage.PNG(t, testimage.Pattern(3, 3))},
		{"photo.jpg", testimage.JPEG(t, testimage.Pattern(3, 3))},
		{"anim.gif", testimage.GIF(t, testimage.PalettedPattern(3, 3))},
		{"pic.bmp", testimage.BMP(t, testimage.Pattern(3, 3))},
		{"pic.webp", testimage.WebP(t, testimage.Pattern(3, 3))},
		{"scan.tiff", testimage.GrayTIFF(testimage.GrayPattern(3, 3))},
	}
	insp := quietInspector()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, tt.name, tt.data)

			report, err := insp.Report(path)
			require.NoError(t, err)
			assert.Equal(t, core.NoMetadata, report)

			has, err := insp.HasMetadata(path)
			require.NoError(t, err)
			assert.False(t, has)
		})
	}
}

func TestContainerInfoCountsAsMetadata(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want string
	}{
		{"a.png", testimage.PNG(t, testimage.Pattern(2, 2), testimage.TextChunk("Author", "Jo")), "Author: Jo"},
		{"a.gif", testimage.GIF(t, testimage.PalettedPattern(2, 2), testimage.CommentExtension("hi")), "comment: hi"},
		{"a.jpg", testimage.JPEG(t, testimage.Pattern(2, 2), testimage.CommentSegment("hi")), "comment: hi"},
		{"a.bmp", testimage.BMPWithProfile(testimage.Pattern(2, 2), []byte("icc")), "icc_profile: <3 bytes>"},
		{"a.webp", testimage.WebP(t, testimage.Pattern(2, 2), testimage.Chunk{Type: "XMP ", Data: []byte("<x/>")}), "xmp: <x/>"},
	}
	insp := quietInspector()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, tt.name, tt.data)

			has, err := insp.HasMetadata(path)
			require.NoError(t, err)
			assert.True(t, has)

			report, err := insp.Report(path)
			require.NoError(t, err)
			assert.Equal(t, tt.want, report)
		})
	}
}

func TestReportSortedAcrossSources(t *testing.T) {
	raw := testimage.EXIF([]testimage.Entry{
		testimage.ASCII(0x010F, "Acme"),
		testimage.ASCII(0x0131, "editor 2"),
	}, nil, nil)
	data := testimage.PNG(t, testimage.Pattern(2, 2),
		testimage.TextChunk("zeta", "last"),
		testimage.TextChunk("Artist", "Jo"),
		testimage.Chunk{Type: "eXIf", Data: raw},
	)
	report, err := quietInspector().Report(writeFile(t, "a.png", data))
	require.NoError(t, err)
	assert.Equal(t, "Artist: Jo\nMake: Acme\nSoftware: editor 2\nzeta: last", report)
}

func TestEXIFWinsKeyCollision(t *testing.T) {
	data := testimage.PNG(t, testimage.Pattern(2, 2),
		testimage.TextChunk("Make", "from-text-chunk"),
		testimage.Chunk{Type: "eXIf", Data: testimage.Make("from-exif")},
	)
	report, err := quietInspector().Report(writeFile(t, "a.png", data))
	require.NoError(t, err)
	assert.Equal(t, "Make: from-exif", report)
}

func TestUnknownTagsAreDropped(t *testing.T) {
	raw := testimage.EXIF([]testimage.Entry{
		testimage.ASCII(0x010F, "Acme"),
		testimage.ASCII(0xFFF0, "mystery"),
	}, nil, nil)
	path := writeFile(t, "a.jpg", testimage.JPEG(t, testimage.Pattern(2, 2), testimage.EXIFSegment(raw)))

	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	insp := inspect.New(inspect.WithLogger(logrus.NewEntry(logger)))

	md, err := insp.Inspect(path)
	require.NoError(t, err)
	assert.Equal(t, core.Report{"Make": "Acme"}, md.Report)
	assert.Equal(t, []uint16{0xFFF0}, md.Dropped)

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, "inspector", entry.Data["component"])
}

func TestUnreadableEXIF(t *testing.T) {
	path := writeFile(t, "broken.jpg", testimage.JPEG(t, testimage.Pattern(2, 2),
		testimage.EXIFSegment([]byte("garbage that is not tiff"))))
	insp := quietInspector()

	_, err := insp.Report(path)
	var de *core.DecodeError
	require.ErrorAs(t, err, &de)

	has, err := insp.HasMetadata(path)
	require.NoError(t, err)
	assert.False(t, has)
}

func TestOversizedEXIFValueCount(t *testing.T) {
	// A SHORT Make entry claiming 0x80000002 values.
	hostile := []byte("II*\x00\x08\x00\x00\x00\x01\x00" +
		"\x0F\x01\x03\x00\x02\x00\x00\x80\x00\x00\x00\x00" +
		"\x00\x00\x00\x00")
	path := writeFile(t, "hostile.jpg", testimage.JPEG(t, testimage.Pattern(2, 2), testimage.EXIFSegment(hostile)))
	insp := quietInspector()

	_, err := insp.Report(path)
	var de *core.DecodeError
	require.ErrorAs(t, err, &de)
	assert.ErrorIs(t, err, exif.ErrInvalidData)

	has, err := insp.HasMetadata(path)
	require.NoError(t, err)
	assert.False(t, has)
}

func TestInspectAgreesWithHasMetadata(t *testing.T) {
	onlyUnnamed := testimage.EXIF([]testimage.Entry{testimage.ASCII(0xFFF0, "mystery")}, nil, nil)
	path := writeFile(t, "a.jpg", testimage.JPEG(t, testimage.Pattern(2, 2), testimage.EXIFSegment(onlyUnnamed)))
	insp := quietInspector()

	md, err := insp.Inspect(path)
	require.NoError(t, err)
	assert.Empty(t, md.Report)
	assert.Equal(t, core.NoMetadata, md.Report.String())

	has, err := insp.HasMetadata(path)
	require.NoError(t, err)
	assert.True(t, has)
	assert.Equal(t, has, md.HasMetadata())
}

func TestUnreadableEXIFWithContainerInfo(t *testing.T) {
	path := writeFile(t, "broken.jpg", testimage.JPEG(t, testimage.Pattern(2, 2),
		testimage.EXIFSegment([]byte("garbage")),
		testimage.CommentSegment("still here"),
	))
	has, err := quietInspector().HasMetadata(path)
	require.NoError(t, err)
	assert.True(t, has)
}

func TestInspectDetails(t *testing.T) {
	data := testimage.HEIC(testimage.Make("Acme"), "<x/>", 320, 240)
	md, err := quietInspector().Inspect(writeFile(t, "a.heic", data))
	require.NoError(t, err)
	assert.Equal(t, core.FmtHEIC, md.Format)
	assert.Equal(t, 320, md.Width)
	assert.Equal(t, 240, md.Height)
	assert.Equal(t, int64(len(data)), md.Size)
	assert.Equal(t, core.Report{"Make": "Acme", "xmp": "<x/>"}, md.Report)
}

func TestDecodeErrors(t *testing.T) {
	insp := quietInspector()
	tests := []struct {
		name string
		path string
	}{
		{"missing file", filepath.Join(t.TempDir(), "nope.png")},
		{"not an image", writeFile(t, "notes.png", []byte("just some text"))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var de *core.DecodeError

			_, err := insp.Report(tt.path)
			assert.ErrorAs(t, err, &de)

			_, err = insp.HasMetadata(tt.path)
			assert.ErrorAs(t, err, &de)
		})
	}
}

func TestMerge(t *testing.T) {
	report, dropped := inspect.Merge(
		map[string]any{"comment": "hi", "icc_profile": []byte{1, 2, 3, 4}, "Make": "text"},
		exif.Tags{0x010F: "Acme", 0xFFF0: "x"},
	)
	assert.Equal(t, core.Report{"comment": "hi", "icc_profile": "<4 bytes>", "Make": "Acme"}, report)
	assert.Equal(t, []uint16{0xFFF0}, dropped)
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "text", inspect.FormatValue("text"))
	assert.Equal(t, "<0 bytes>", inspect.FormatValue([]byte{}))
	assert.Equal(t, "42", inspect.FormatValue(42))
}
