// Package strip produces metadata-free copies of images. Pixels are decoded,
// copied into a fresh image, and encoded again in the original format; the
// original file is never modified.
package strip

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/moby/sys/atomicwriter"
	"github.com/sirupsen/logrus"

	"github.com/pokkz/metadata-stripper/core"
	"github.com/pokkz/metadata-stripper/core/codec"
)

const (
	outputSuffix  = "_NOMETADATA"
	stagingSuffix = "_temp"
)

// OutputPath returns <dir>/<name>_NOMETADATA<ext> for original.
func OutputPath(original string) string {
	return withSuffix(original, outputSuffix)
}

// StagingPath returns <dir>/<name>_temp<ext> for original.
func StagingPath(original string) string {
	return withSuffix(original, stagingSuffix)
}

func withSuffix(path, suffix string) string {
	dir, base := filepath.Split(path)
	ext := filepath.Ext(base)
	name := strings.TrimSuffix(base, ext)
	if name == "" {
		// Dotfile such as ".png": the whole name is the stem.
		name, ext = base, ""
	}
	return filepath.Join(dir, name+suffix+ext)
}

// Stripper removes metadata. Like Inspector it keeps no state between calls.
//
// Two calls on the same original share one staging path; callers that strip
// concurrently must serialise per path.
type Stripper struct {
	log *logrus.Entry
}

// Option configures a Stripper.
type Option func(*Stripper)

// WithLogger sets the logger used for debug output.
func WithLogger(log *logrus.Entry) Option {
	return func(s *Stripper) { s.log = log }
}

// New returns a Stripper.
func New(opts ...Option) *Stripper {
	s := &Stripper{log: logrus.NewEntry(logrus.StandardLogger())}
	for _, o := range opts {
		o(s)
	}
	s.log = s.log.WithField("component", "stripper")
	return s
}

// Strip copies path to its staging location and overwrites the copy with a
// metadata-free encoding of the same pixels. It returns the staging path,
// which the caller must pass to Finalize or Discard. On failure the staging
// file is removed if this call created it.
func (s *Stripper) Strip(path string) (_ string, err error) {
	staging := StagingPath(path)
	log := s.log.WithFields(logrus.Fields{"path": path, "staging": staging})

	staged := false
	defer func() {
		if err == nil || !staged {
			return
		}
		if rmErr := os.Remove(staging); rmErr != nil && !os.IsNotExist(rmErr) {
			log.WithError(rmErr).Warn("could not remove staging file")
		}
	}()

	var perm os.FileMode
	perm, staged, err = copyFile(path, staging)
	if err != nil {
		return "", &core.IOError{Op: "copy", Path: path, Err: err}
	}
	log.Debug("staged copy")

	data, err := os.ReadFile(staging)
	if err != nil {
		return "", &core.IOError{Op: "read", Path: staging, Err: err}
	}
	h, err := codec.Read(path, data)
	if err != nil {
		return "", err
	}
	img, err := h.Pixels()
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := codec.Encode(&buf, codec.Strip(img), h.Format); err != nil {
		return "", &core.EncodeError{Path: path, Format: h.Format, Err: err}
	}
	if err := atomicwriter.WriteFile(staging, buf.Bytes(), perm); err != nil {
		return "", &core.EncodeError{Path: staging, Format: h.Format, Err: err}
	}
	log.WithFields(logrus.Fields{
		"format": h.Format.Name(),
		"mode":   h.ColorMode,
		"bytes":  buf.Len(),
	}).Debug("encoded without metadata")
	return staging, nil
}

// Finalize moves the staging file to OutputPath(original), replacing any
// output left by an earlier run.
func (s *Stripper) Finalize(staging, original string) (string, error) {
	out := OutputPath(original)
	if err := os.Rename(staging, out); err != nil {
		return "", &core.IOError{Op: "move", Path: staging, Err: err}
	}
	s.log.WithFields(logrus.Fields{"path": original, "output": out}).Debug("finalized")
	return out, nil
}

// Discard removes a staging file that will not be finalized. A missing file
// is not an error.
func (s *Stripper) Discard(staging string) error {
	if err := os.Remove(staging); err != nil && !os.IsNotExist(err) {
		return &core.IOError{Op: "remove", Path: staging, Err: err}
	}
	return nil
}

// Remove runs Strip and Finalize, discarding the staging file on any failure.
func (s *Stripper) Remove(path string) (out string, err error) {
	staging, err := s.Strip(path)
	if err != nil {
		return "", err
	}
	defer func() {
		if err != nil {
			if dErr := s.Discard(staging); dErr != nil {
				s.log.WithError(dErr).Warn("could not discard staging file")
			}
		}
	}()
	return s.Finalize(staging, path)
}

// copyFile duplicates src onto dst byte for byte and returns src's
// permissions. created reports whether dst was opened for writing, so a
// failure before that point leaves any existing dst alone.
func copyFile(src, dst string) (perm os.FileMode, created bool, err error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, false, err
	}
	defer in.Close()

	fi, err := in.Stat()
	if err != nil {
		return 0, false, err
	}
	perm = fi.Mode().Perm()
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return 0, false, err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return 0, true, err
	}
	return perm, true, out.Close()
}
