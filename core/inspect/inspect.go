// Package inspect reports the metadata embedded in an image and decides
// whether an image carries any.
package inspect

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/pokkz/metadata-stripper/core"
	"github.com/pokkz/metadata-stripper/core/codec"
	"github.com/pokkz/metadata-stripper/core/exif"
)

// Inspector answers "what metadata exists" and "does any exist". It keeps no
// state between calls; every call opens its own codec handle.
type Inspector struct {
	log *logrus.Entry
}

// Option configures an Inspector.
type Option func(*Inspector)

// WithLogger sets the logger used for debug output.
func WithLogger(log *logrus.Entry) Option {
	return func(i *Inspector) { i.log = log }
}

// New returns an Inspector.
func New(opts ...Option) *Inspector {
	i := &Inspector{log: logrus.NewEntry(logrus.StandardLogger())}
	for _, o := range opts {
		o(i)
	}
	i.log = i.log.WithField("component", "inspector")
	return i
}

// Inspect opens path and returns the merged report with file details.
// A corrupt EXIF block fails the call.
func (i *Inspector) Inspect(path string) (*core.Metadata, error) {
	h, err := codec.Open(path)
	if err != nil {
		return nil, err
	}
	tags, err := h.EXIF()
	if err != nil {
		return nil, err
	}
	report, dropped := Merge(h.Info, tags)
	if len(dropped) > 0 {
		i.log.WithFields(logrus.Fields{"path": path, "tags": dropped}).Debug("dropped EXIF tags without a known name")
	}
	return &core.Metadata{
		FilePath:  path,
		Format:    h.Format,
		ColorMode: h.ColorMode,
		Width:     h.Width,
		Height:    h.Height,
		Size:      h.Size,
		Report:    report,
		Dropped:   dropped,
	}, nil
}

// Report returns one "key: value" line per metadata entry sorted by key, or
// core.NoMetadata when there is none.
func (i *Inspector) Report(path string) (string, error) {
	md, err := i.Inspect(path)
	if err != nil {
		return "", err
	}
	return md.Report.String(), nil
}

// HasMetadata reports whether path embeds a non-empty EXIF block or any
// container info. Unlike Report, a corrupt EXIF block counts as no EXIF.
func (i *Inspector) HasMetadata(path string) (bool, error) {
	h, err := codec.Open(path)
	if err != nil {
		return false, err
	}

	hasEXIF := false
	tags, err := h.EXIF()
	if err != nil {
		i.log.WithError(err).WithField("path", path).Debug("ignoring unreadable EXIF block")
	} else {
		hasEXIF = len(tags) > 0
	}
	return hasEXIF || len(h.Info) > 0, nil
}

// Merge builds the report from container info and EXIF tags. EXIF is merged
// last and wins on key collision. Tags whose ID has no known name are left
// out and returned as dropped.
func Merge(info map[string]any, tags exif.Tags) (report core.Report, dropped []uint16) {
	report = make(core.Report, len(info)+len(tags))
	for k, v := range info {
		report[k] = FormatValue(v)
	}
	named, dropped := exif.Resolve(tags)
	for k, v := range named {
		report[k] = v
	}
	return report, dropped
}

// FormatValue renders a container info value. Binary payloads are shown by
// size only.
func FormatValue(v any) string {
	switch v := v.(type) {
	case string:
		return v
	case []byte:
		return fmt.Sprintf("<%d bytes>", len(v))
	default:
		return fmt.Sprint(v)
	}
}
