package core

import "fmt"

// DecodeError reports a file that could not be read or is not a supported image.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// EncodeError reports an image that could not be written in its target format.
type EncodeError struct {
	Path   string
	Format FormatID
	Err    error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("encode %s as %s: %v", e.Path, e.Format, e.Err)
}

func (e *EncodeError) Unwrap() error { return e.Err }

// IOError reports a copy, move or other filesystem failure.
type IOError struct {
	Op   string // copy, read, move or remove
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }
