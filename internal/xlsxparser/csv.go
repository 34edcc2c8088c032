// =============================================================================
// Speakboard - CSV Document
// =============================================================================
//
// Delimited-text exports are accepted as single-sheet documents. The sheet
// is named after the file so it classifies and extracts exactly like a
// workbook sheet.
//
// FEATURES:
//   - Configurable delimiter (comma, pipe, tab, semicolon or any character)
//   - Variable field counts per row
//   - Lenient quoting
//   - Trailing empty cells trimmed, matching workbook row shape
//
// =============================================================================

package xlsxparser

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"path/filepath"
	"strings"
)

// csvDocument is a Document backed by one parsed delimited-text sheet.
type csvDocument struct {
	sheet *Sheet
}

// openCSV parses the whole input eagerly. CSV inputs are import spreadsheets
// of a few thousand rows at most.
func openCSV(name string, data []byte, opts Options) (*csvDocument, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	configureReader(reader, opts.Delimiter)

	records, err := reader.ReadAll()
	if err != nil {
		return nil, newFormatError(name, "", fmt.Errorf("failed to read CSV: %w", err))
	}

	sheetName := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	if sheetName == "" || sheetName == "." {
		sheetName = "Sheet1"
	}

	sheet := &Sheet{Name: sheetName, Rows: make([]Row, 0, len(records))}
	for _, record := range records {
		sheet.Rows = append(sheet.Rows, trimTrailingEmpty(record))
	}
	return &csvDocument{sheet: sheet}, nil
}

// configureReader applies the delimiter aliases and the lenient parsing
// settings used for every CSV input.
func configureReader(reader *csv.Reader, delimiter string) {
	switch delimiter {
	case "\\t", "\t", "tab", "TAB":
		reader.Comma = '\t'
	case "|", "pipe", "PIPE":
		reader.Comma = '|'
	case ";", "semicolon":
		reader.Comma = ';'
	case ",", "comma":
		reader.Comma = ','
	default:
		if len(delimiter) > 0 {
			reader.Comma = rune(delimiter[0])
		} else {
			reader.Comma = ','
		}
	}

	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
}

func trimTrailingEmpty(record []string) Row {
	end := len(record)
	for end > 0 && record[end-1] == "" {
		end--
	}
	return Row(record[:end])
}

func (d *csvDocument) Sheets() []string {
	return []string{d.sheet.Name}
}

func (d *csvDocument) ReadSheet(name string) (*Sheet, error) {
	if name != d.sheet.Name {
		return nil, newFormatError(d.sheet.Name, name, fmt.Errorf("sheet %s does not exist", name))
	}
	return d.sheet, nil
}

func (d *csvDocument) Close() error {
	return nil
}
