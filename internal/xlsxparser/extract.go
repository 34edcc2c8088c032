package xlsxparser

import (
	"strings"

	"github.com/ginjaninja78/speakboard/internal/types"
	"github.com/ginjaninja78/speakboard/internal/validation"
)

// Header names recognized on an Icons sheet. Matching is exact after
// trimming and case folding.
var (
	iconHeaders   = []string{"icon"}
	folderHeaders = []string{"folder"}
	linkHeaders   = []string{"s3link", "s3 link"}
)

// columnIndex returns the first header cell matching one of names, or -1.
func columnIndex(header Row, names ...string) int {
	for i, cell := range header {
		cell = strings.ToLower(strings.TrimSpace(cell))
		for _, name := range names {
			if cell == name {
				return i
			}
		}
	}
	return -1
}

// ExtractIcons turns the data rows of an Icons sheet into records.
//
// Rows shorter than the furthest required column are skipped, as are rows
// with any required field empty after trimming. A sheet whose header lacks
// one of the required columns yields no records. Source row order is kept.
func ExtractIcons(s *Sheet) []types.IconRecord {
	header := s.Header()
	iconCol := columnIndex(header, iconHeaders...)
	folderCol := columnIndex(header, folderHeaders...)
	linkCol := columnIndex(header, linkHeaders...)
	if iconCol < 0 || folderCol < 0 || linkCol < 0 {
		return nil
	}

	minLen := max(iconCol, folderCol, linkCol) + 1

	var records []types.IconRecord
	for _, row := range s.Rows[1:] {
		if len(row) < minLen {
			continue
		}
		rec := types.IconRecord{
			IconName:   strings.TrimSpace(row[iconCol]),
			FolderName: strings.TrimSpace(row[folderCol]),
			ImageLink:  strings.TrimSpace(row[linkCol]),
		}
		if validation.IconRecord(rec) != nil {
			continue
		}
		records = append(records, rec)
	}
	return records
}

// ExtractFolders turns the rows of a Folders sheet into records. The first
// row is skipped when it is a header row. Only the first cell of each row
// is read; empty names are dropped.
func ExtractFolders(s *Sheet) []types.FolderRecord {
	if len(s.Rows) == 0 {
		return nil
	}

	rows := s.Rows
	if HasFolderHeader(s) {
		rows = rows[1:]
	}

	var records []types.FolderRecord
	for _, row := range rows {
		rec := types.FolderRecord{Name: strings.TrimSpace(row.Cell(0))}
		if validation.FolderRecord(rec) != nil {
			continue
		}
		records = append(records, rec)
	}
	return records
}
