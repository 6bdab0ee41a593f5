package report

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingRoot is returned when a document lacks its required root element.
	ErrMissingRoot = errors.New("required root element missing")

	// ErrUnsupportedFormat is returned for unknown formats or file extensions.
	ErrUnsupportedFormat = errors.New("unsupported format")
)

// DocumentError is a document-structure failure that aborts an import.
type DocumentError struct {
	Err    error
	Format string
}

// Structure wraps err as a document-structure failure of format.
func Structure(format string, err error) error {
	return &DocumentError{Format: format, Err: err}
}

func (e *DocumentError) Error() string {
	return fmt.Sprintf("%s: document structure: %v", e.Format, e.Err)
}

func (e *DocumentError) Unwrap() error { return e.Err }

// IOError is a failure to read or write the underlying stream or archive.
type IOError struct {
	Err  error
	Op   string
	Path string
}

// IO wraps err as an I/O failure of op on path.
func IO(op, path string, err error) error {
	return &IOError{Op: op, Path: path, Err: err}
}

func (e *IOError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }
