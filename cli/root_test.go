package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pokkz/metadata-stripper/core/strip"
	"github.com/pokkz/metadata-stripper/internal/testimage"
)

func run(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err = cmd.Execute()
	return out.String(), errOut.String(), err
}

func fixture(t *testing.T, dir string) (withMeta, clean string) {
	t.Helper()
	withMeta = filepath.Join(dir, "photo.jpg")
	clean = filepath.Join(dir, "clean.png")
	require.NoError(t, os.WriteFile(withMeta, testimage.JPEG(t, testimage.Pattern(4, 4),
		testimage.EXIFSegment(testimage.Make("Acme"))), 0o644))
	require.NoError(t, os.WriteFile(clean, testimage.PNG(t, testimage.Pattern(2, 2)), 0o644))
	return withMeta, clean
}

func TestView(t *testing.T) {
	photo, clean := fixture(t, t.TempDir())

	out, _, err := run(t, "view", photo, clean)
	require.NoError(t, err)
	assert.Equal(t,
		"Metadata for "+photo+":\nMake: Acme\n\nMetadata for "+clean+":\nNo metadata found.\n\n",
		out)
}

func TestViewJSONFromConfig(t *testing.T) {
	dir := t.TempDir()
	photo, _ := fixture(t, dir)
	cfg := filepath.Join(dir, "surgery.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("json: true\nworkers: 2\n"), 0o644))

	out, _, err := run(t, "--config", cfg, "view", photo)
	require.NoError(t, err)
	var got struct {
		File   string `json:"file"`
		Fields []struct {
			Key   string `json:"key"`
			Value string `json:"value"`
		} `json:"fields"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, photo, got.File)
	require.Len(t, got.Fields, 1)
	assert.Equal(t, "Make", got.Fields[0].Key)

	// The flag wins over the file.
	out, _, err = run(t, "--config", cfg, "--json=false", "view", photo)
	require.NoError(t, err)
	assert.Contains(t, out, "Make: Acme")
}

func TestCheck(t *testing.T) {
	photo, clean := fixture(t, t.TempDir())

	out, _, err := run(t, "check", photo, clean)
	require.NoError(t, err)
	assert.Equal(t, photo+": has metadata\n"+clean+": no metadata\n", out)
}

func TestStrip(t *testing.T) {
	photo, clean := fixture(t, t.TempDir())

	out, _, err := run(t, "strip", photo, clean)
	require.NoError(t, err)
	assert.Contains(t, out, "Metadata removed from selected images.")
	assert.FileExists(t, strip.OutputPath(photo))
	assert.FileExists(t, strip.OutputPath(clean))

	out, _, err = run(t, "check", strip.OutputPath(photo))
	require.NoError(t, err)
	assert.Equal(t, strip.OutputPath(photo)+": no metadata\n", out)
}

func TestStripStopsAtFirstFailure(t *testing.T) {
	dir := t.TempDir()
	photo, _ := fixture(t, dir)
	broken := filepath.Join(dir, "broken.png")
	require.NoError(t, os.WriteFile(broken, []byte("not an image"), 0o644))

	out, errOut, err := run(t, "strip", broken, photo)
	require.ErrorIs(t, err, errReported)
	assert.Contains(t, errOut, "✗ Error: "+broken)
	assert.NotContains(t, out, "Metadata removed")
	assert.NoFileExists(t, strip.OutputPath(photo))
	assert.NoFileExists(t, strip.StagingPath(broken))
}

func TestViewReportsPerFileErrors(t *testing.T) {
	dir := t.TempDir()
	photo, _ := fixture(t, dir)
	broken := filepath.Join(dir, "broken.gif")
	require.NoError(t, os.WriteFile(broken, []byte("GIF89a"), 0o644))

	out, errOut, err := run(t, "view", broken, photo)
	require.ErrorIs(t, err, errReported)
	assert.Contains(t, errOut, "✗ Error: "+broken)
	assert.Contains(t, out, "Make: Acme")
}

func TestSkipsNonImageArguments(t *testing.T) {
	dir := t.TempDir()
	photo, _ := fixture(t, dir)
	notes := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(notes, []byte("hi"), 0o644))

	out, errOut, err := run(t, "check", notes, photo)
	require.NoError(t, err)
	assert.Equal(t, photo+": has metadata\n", out)
	assert.Contains(t, errOut, "skipping file without an image extension")

	_, _, err = run(t, "check", notes)
	assert.EqualError(t, err, "no image files given")
}

func TestList(t *testing.T) {
	photo, clean := fixture(t, t.TempDir())

	out, _, err := run(t, "ls", photo, clean)
	require.NoError(t, err)
	for _, want := range []string{filepath.Base(photo), "JPEG", "4x4", "1 fields", "PNG", "2x2"} {
		assert.Contains(t, out, want)
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) string {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
		return p
	}

	tests := []struct {
		name    string
		path    string
		want    *fileConfig
		wantErr bool
	}{
		{name: "no file", path: "", want: &fileConfig{}},
		{name: "empty file", path: write("empty.yaml", ""), want: &fileConfig{}},
		{
			name: "all keys",
			path: write("full.yaml", "log_level: debug\nlog_json: true\njson: true\nworkers: 8\n"),
			want: &fileConfig{LogLevel: "debug", LogJSON: true, JSON: true, Workers: 8},
		},
		{name: "unknown key", path: write("typo.yaml", "wokers: 3\n"), wantErr: true},
		{name: "negative workers", path: write("neg.yaml", "workers: -1\n"), wantErr: true},
		{name: "missing", path: filepath.Join(dir, "nope.yaml"), wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := loadConfig(tt.path)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBadLogLevelInConfig(t *testing.T) {
	dir := t.TempDir()
	photo, _ := fixture(t, dir)
	cfg := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("log_level: loud\n"), 0o644))

	_, _, err := run(t, "--config", cfg, "check", photo)
	assert.Error(t, err)
}
