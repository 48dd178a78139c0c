package xmp

import (
	"errors"
	"fmt"
)

var (
	// ErrFormat is returned when text is not an XMP property document.
	ErrFormat = errors.New("xmp: invalid document")
	// ErrMissingField is returned when a read addresses a field that does not exist.
	ErrMissingField = errors.New("xmp: missing field")
	// ErrBadPath is returned for malformed paths. It indicates a programming
	// error rather than a problem with the document.
	ErrBadPath = errors.New("xmp: bad path")
)

// FieldError reports the path of a field that could not be read.
type FieldError struct {
	Path string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("xmp: missing field: %s", e.Path)
}

// Unwrap lets errors.Is match ErrMissingField.
func (e *FieldError) Unwrap() error {
	return ErrMissingField
}

func missing(path string) error {
	return &FieldError{Path: path}
}

func badPath(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrBadPath, fmt.Sprintf(format, args...))
}
