package dataset

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMissingColumn is wrapped when a source lacks a required column
	ErrMissingColumn = errors.New("missing required column")
	// ErrUnsupportedFormat is wrapped when a source extension is not .csv or .xlsx
	ErrUnsupportedFormat = errors.New("unsupported source format")
	// ErrEmptySource is wrapped when a source has no header row
	ErrEmptySource = errors.New("source has no header row")
	// ErrInvalidValue is wrapped when a cell cannot be parsed or fails validation
	ErrInvalidValue = errors.New("invalid value")
)

// DataLoadError reports a source file that could not be loaded.
// It is fatal at startup; there is no partial-load recovery.
type DataLoadError struct {
	Path   string
	Row    int    // 1-based line in the source, 0 when not row specific
	Column string // empty when not column specific
	Err    error
}

// Error implements the error interface
func (e *DataLoadError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "load %s", e.Path)
	if e.Row > 0 {
		fmt.Fprintf(&b, " row %d", e.Row)
	}
	if e.Column != "" {
		fmt.Fprintf(&b, " column %q", e.Column)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

// Unwrap allows errors.Is and errors.As to see the cause
func (e *DataLoadError) Unwrap() error {
	return e.Err
}

// IsDataLoadError reports whether err is or wraps a DataLoadError
func IsDataLoadError(err error) bool {
	var loadErr *DataLoadError
	return errors.As(err, &loadErr)
}
