package loader

import (
	"errors"
	"fmt"
)

var (
	// ErrSourceNotFound is returned when the source file or object does not exist.
	ErrSourceNotFound = errors.New("source not found")

	// ErrMissingColumn is wrapped by MissingColumnError.
	ErrMissingColumn = errors.New("missing column")

	// ErrEmptySource is returned when the source has no header row.
	ErrEmptySource = errors.New("source has no header row")
)

// MissingColumnError names a required column absent from the source header.
type MissingColumnError struct {
	Column string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("missing column %q", e.Column)
}

func (e *MissingColumnError) Unwrap() error {
	return ErrMissingColumn
}

// ParseError describes a cell that could not be converted to its column type.
// Row is the 1-based data row, not counting the header.
type ParseError struct {
	Row    int
	Column string
	Value  string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("row %d: column %q: cannot parse %q: %v", e.Row, e.Column, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
