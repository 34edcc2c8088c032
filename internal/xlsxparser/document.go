// =============================================================================
// Speakboard - Spreadsheet Reader
// =============================================================================
//
// This module opens an import document and exposes its sheets as ordered
// rows of string cells. Two document formats are supported:
//   - Packaged XML workbooks (.xlsx / .xlsm), read with excelize
//   - Delimited text (.csv), read as a single-sheet document
//
// CELL RESOLUTION:
//   excelize loads the shared-string table once when the package is opened
//   and substitutes it transparently, so shared-string cells and inline
//   string cells both come back as plain display strings.
//
// ROW SHAPE:
//   Cells are positioned by column index in ascending order. A blank cell
//   between two populated cells is returned as "", trailing blank cells are
//   not materialized. Callers that need a specific column align by header
//   name (see extract.go).
//
// =============================================================================

package xlsxparser

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// =============================================================================
// DOCUMENT MODEL
// =============================================================================

// Row is one ordered sequence of resolved cell strings.
type Row []string

// Cell returns the cell at index i, or "" when the row is shorter.
func (r Row) Cell(i int) string {
	if i < 0 || i >= len(r) {
		return ""
	}
	return r[i]
}

// Sheet is one worksheet, rows in stored order.
type Sheet struct {
	// Name is the worksheet name (or the file base name for CSV input).
	Name string

	// Rows contains every row up to the last populated one.
	Rows []Row
}

// Header returns row 0, or nil for an empty sheet.
func (s *Sheet) Header() Row {
	if s == nil || len(s.Rows) == 0 {
		return nil
	}
	return s.Rows[0]
}

// Document is an opened import document.
type Document interface {
	// Sheets returns the sheet names in document order.
	Sheets() []string

	// ReadSheet reads one sheet. Failures are *FormatError.
	ReadSheet(name string) (*Sheet, error)

	// Close releases the underlying package.
	Close() error
}

// Options controls how non-workbook documents are read.
type Options struct {
	// Delimiter is the CSV field separator. Accepts a single character or
	// one of "comma", "tab", "pipe", "semicolon". Default: ","
	Delimiter string
}

// =============================================================================
// OPENING DOCUMENTS
// =============================================================================

// Open opens a workbook package from raw bytes.
//
// RETURNS:
//   - The opened Document.
//   - A *FormatError if the bytes are not a valid workbook package.
func Open(data []byte) (Document, error) {
	return openWorkbook("", data)
}

// OpenNamed opens raw bytes using the file name's extension to pick the
// reader. Names without a recognized extension are treated as workbooks.
func OpenNamed(name string, data []byte, opts Options) (Document, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		return openCSV(name, data, opts)
	default:
		return openWorkbook(name, data)
	}
}

// OpenFile reads a document from disk.
func OpenFile(path string, opts Options) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return OpenNamed(filepath.Base(path), data, opts)
}

// =============================================================================
// WORKBOOK DOCUMENT
// =============================================================================

// workbook adapts an excelize file to the Document interface.
type workbook struct {
	source string
	file   *excelize.File
}

func openWorkbook(source string, data []byte) (*workbook, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, newFormatError(source, "", err)
	}
	return &workbook{source: source, file: f}, nil
}

func (w *workbook) Sheets() []string {
	return w.file.GetSheetList()
}

func (w *workbook) ReadSheet(name string) (*Sheet, error) {
	rows, err := w.file.GetRows(name)
	if err != nil {
		return nil, newFormatError(w.source, name, err)
	}

	sheet := &Sheet{Name: name, Rows: make([]Row, len(rows))}
	for i, row := range rows {
		sheet.Rows[i] = Row(row)
	}
	return sheet, nil
}

func (w *workbook) Close() error {
	return w.file.Close()
}
