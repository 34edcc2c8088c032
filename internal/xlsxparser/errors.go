package xlsxparser

import (
	"errors"
	"fmt"
)

// ErrInvalidFormat indicates the input is not a readable spreadsheet.
var ErrInvalidFormat = errors.New("invalid spreadsheet format")

// ErrNoUsableSheet indicates that no sheet in the document classifies as
// either an Icons sheet or a Folders sheet.
var ErrNoUsableSheet = errors.New("no icons or folders sheet found")

// FormatError is returned when a document cannot be opened or one of its
// sheets cannot be read. It always matches ErrInvalidFormat via errors.Is.
type FormatError struct {
	Source string // file name, empty for anonymous byte input
	Sheet  string // empty when the package itself failed to open
	Err    error
}

func (e *FormatError) Error() string {
	source := e.Source
	if source == "" {
		source = "spreadsheet"
	}
	if e.Sheet != "" {
		return fmt.Sprintf("%s: sheet %q: %v", source, e.Sheet, e.Err)
	}
	return fmt.Sprintf("%s: %v", source, e.Err)
}

func (e *FormatError) Unwrap() []error {
	return []error{ErrInvalidFormat, e.Err}
}

func newFormatError(source, sheet string, err error) *FormatError {
	return &FormatError{Source: source, Sheet: sheet, Err: err}
}
