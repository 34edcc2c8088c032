package xlsxparser

import (
	"strings"
)

// SheetKind is the role a sheet plays in an import.
type SheetKind int

const (
	Unrecognized SheetKind = iota
	Folders
	Icons
)

func (k SheetKind) String() string {
	switch k {
	case Folders:
		return "folders"
	case Icons:
		return "icons"
	default:
		return "unrecognized"
	}
}

// folderHeaderNames are the accepted first-cell values of a Folders header row.
var folderHeaderNames = map[string]bool{
	"folder":  true,
	"folders": true,
	"name":    true,
}

// Classify decides a sheet's role from its header row.
//
// The header cells are joined and lowercased, then:
//   - "icon" AND an s3link token AND "folder" present: Icons
//   - neither "icon" nor an s3link token present: Folders
//   - anything else: Unrecognized
//
// A sheet without rows is Unrecognized.
func Classify(s *Sheet) SheetKind {
	header := s.Header()
	if len(header) == 0 {
		return Unrecognized
	}

	joined := strings.ToLower(strings.Join(header, "\t"))
	hasIcon := strings.Contains(joined, "icon")
	hasLink := strings.Contains(joined, "s3link") || strings.Contains(joined, "s3 link")
	hasFolder := strings.Contains(joined, "folder")

	switch {
	case hasIcon && hasLink && hasFolder:
		return Icons
	case !hasIcon && !hasLink:
		return Folders
	default:
		return Unrecognized
	}
}

// HasFolderHeader reports whether row 0 of a Folders sheet is a header row
// rather than the first folder name.
func HasFolderHeader(s *Sheet) bool {
	first := strings.ToLower(strings.TrimSpace(s.Header().Cell(0)))
	return folderHeaderNames[first]
}

// FindSheet returns the first sheet of the given kind, in document order.
// Sheets after the match are never read. A nil sheet with a nil error means
// no sheet matched.
func FindSheet(doc Document, kind SheetKind) (*Sheet, error) {
	for _, name := range doc.Sheets() {
		sheet, err := doc.ReadSheet(name)
		if err != nil {
			return nil, err
		}
		if Classify(sheet) == kind {
			return sheet, nil
		}
	}
	return nil, nil
}
