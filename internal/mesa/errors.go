package mesa

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when neither a file nor its .gz sibling exists.
	ErrNotFound = errors.New("mesa output not found")

	// ErrMissingColumn is wrapped by MissingColumnError.
	ErrMissingColumn = errors.New("column not found")
)

// MissingColumnError reports a column lookup that failed on a loaded table.
// Callers decide whether the gap is fatal; it never is for the table itself.
type MissingColumnError struct {
	Column string
	Path   string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("could not find %q in %s", e.Column, e.Path)
}

func (e *MissingColumnError) Unwrap() error {
	return ErrMissingColumn
}

// ParseError reports a malformed line in a MESA table.
type ParseError struct {
	Path    string
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s:%d: %s", e.Path, e.Line, e.Message)
}

// IsMissingColumn returns true if err is (or wraps) a missing column error.
func IsMissingColumn(err error) bool {
	return errors.Is(err, ErrMissingColumn)
}
