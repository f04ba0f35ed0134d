// Package core defines the shared types, error kinds, and format registry
// for the metadata stripper.
package core

import (
	"sort"
	"strings"
)

// NoMetadata is the report text for an image carrying no metadata at all.
const NoMetadata = "No metadata found."

// Report is the merged, display-ready view of an image's metadata:
// display name → rendered value. Keys are case-sensitive.
type Report map[string]string

// Keys returns the report keys in lexicographic order.
func (r Report) Keys() []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Lines renders one "key: value" line per entry, sorted by key.
func (r Report) Lines() []string {
	lines := make([]string, 0, len(r))
	for _, k := range r.Keys() {
		lines = append(lines, k+": "+r[k])
	}
	return lines
}

// String joins Lines with newlines, or returns NoMetadata for an empty report.
func (r Report) String() string {
	if len(r) == 0 {
		return NoMetadata
	}
	return strings.Join(r.Lines(), "\n")
}

// Metadata holds everything inspection learned about a single file.
type Metadata struct {
	FilePath  string
	Format    FormatID
	ColorMode string // Go image model, e.g. "NRGBA", "Paletted", "YCbCr"
	Width     int
	Height    int
	Size      int64 // file size in bytes
	Report    Report
	Dropped   []uint16 // EXIF tag IDs left out because they have no known name
}

// HasMetadata reports whether the file embeds any metadata: a report entry or
// an EXIF tag left out of the report for lack of a name. This matches
// inspect.Inspector.HasMetadata for every file Inspect can read.
func (m *Metadata) HasMetadata() bool { return len(m.Report) > 0 || len(m.Dropped) > 0 }
