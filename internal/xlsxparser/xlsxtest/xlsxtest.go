// Package xlsxtest builds in-memory workbooks for tests.
package xlsxtest

import (
	"testing"

	"github.com/xuri/excelize/v2"
)

// Sheet is one worksheet to build: a name and its rows, top to bottom.
type Sheet struct {
	Name string
	Rows [][]any
}

// Workbook returns the bytes of an .xlsx package holding the given sheets
// in order. String cells are written through the shared-string table.
func Workbook(t testing.TB, sheets ...Sheet) []byte {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	for i, sheet := range sheets {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", sheet.Name); err != nil {
				t.Fatalf("rename sheet: %v", err)
			}
		} else if _, err := f.NewSheet(sheet.Name); err != nil {
			t.Fatalf("new sheet %q: %v", sheet.Name, err)
		}

		for r, row := range sheet.Rows {
			cell, err := excelize.CoordinatesToCellName(1, r+1)
			if err != nil {
				t.Fatalf("cell name: %v", err)
			}
			values := row
			if err := f.SetSheetRow(sheet.Name, cell, &values); err != nil {
				t.Fatalf("set row %d of %q: %v", r+1, sheet.Name, err)
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	return buf.Bytes()
}

// Icons is a convenience for an Icons sheet with the canonical header.
func Icons(rows ...[]any) Sheet {
	return Sheet{
		Name: "Icons",
		Rows: append([][]any{{"icon", "folder", "s3link"}}, rows...),
	}
}

// Folders is a convenience for a Folders sheet with a "folder" header.
func Folders(names ...string) Sheet {
	rows := [][]any{{"folder"}}
	for _, name := range names {
		rows = append(rows, []any{name})
	}
	return Sheet{Name: "Folders", Rows: rows}
}
