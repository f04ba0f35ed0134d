package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReportString(t *testing.T) {
	tests := []struct {
		name   string
		report Report
		want   string
	}{
		{name: "empty", report: Report{}, want: NoMetadata},
		{name: "nil", report: nil, want: NoMetadata},
		{name: "single", report: Report{"Make": "Acme"}, want: "Make: Acme"},
		{
			name:   "sorted by key",
			report: Report{"comment": "hi", "Make": "Acme", "Artist": "Jo"},
			want:   "Artist: Jo\nMake: Acme\ncomment: hi",
		},
		{name: "empty value", report: Report{"comment": ""}, want: "comment: "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.report.String())
		})
	}
}

func TestReportKeysCaseSensitive(t *testing.T) {
	r := Report{"b": "1", "B": "2", "a": "3"}
	require.Equal(t, []string{"B", "a", "b"}, r.Keys())
	assert.Equal(t, []string{"B: 2", "a: 3", "b: 1"}, r.Lines())
}

func TestMetadataHasMetadata(t *testing.T) {
	assert.True(t, (&Metadata{Report: Report{"comment": ""}}).HasMetadata())
	assert.False(t, (&Metadata{Report: Report{}}).HasMetadata())
	assert.True(t, (&Metadata{Report: Report{}, Dropped: []uint16{0xFFF0}}).HasMetadata())
}
