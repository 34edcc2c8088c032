// =============================================================================
// Speakboard - Shared Types
// =============================================================================
//
// This package contains the types shared by the import pipeline, the library
// and the stores. Keeping them here avoids import cycles between:
//   - xlsxparser (produces records)
//   - dedup      (partitions records)
//   - importer   (reconciles records into folders)
//   - store      (persists folders)
//
// =============================================================================

package types

import (
	"fmt"

	"github.com/google/uuid"
)

// =============================================================================
// LIBRARY ENTITIES
// =============================================================================

// Folder is a named container of icons.
type Folder struct {
	// ID is the stable identity of the folder.
	ID uuid.UUID

	// Name is the natural key used by the import pipeline. It is not
	// required to be unique across folders.
	Name string

	// Icons is the ordered icon list. The import pipeline only appends.
	Icons []Icon

	// IsDefault marks folders that cannot be deleted.
	IsDefault bool

	// Image is the optional folder cover image.
	Image []byte
}

// Icon is one image + title (+ optional recorded audio) unit.
type Icon struct {
	// ID is the stable identity of the icon.
	ID uuid.UUID

	// Title is spoken when no audio is recorded.
	Title string

	// Image is the raw image blob.
	Image []byte

	// Audio is the optional recorded audio blob.
	Audio []byte

	// QuickAccess places the icon in the cross-folder favorites view.
	QuickAccess bool
}

// NewFolder returns an empty, non-default folder with a fresh ID.
func NewFolder(name string) *Folder {
	return &Folder{
		ID:    uuid.New(),
		Name:  name,
		Icons: []Icon{},
	}
}

// NewIcon returns an icon with a fresh ID and no audio.
func NewIcon(title string, image []byte) Icon {
	return Icon{
		ID:    uuid.New(),
		Title: title,
		Image: image,
	}
}

// Clone returns a copy of the folder whose icon slice can be read without
// holding the owner's lock. Blobs are shared; they are never mutated.
func (f *Folder) Clone() *Folder {
	c := *f
	c.Icons = append([]Icon(nil), f.Icons...)
	return &c
}

// =============================================================================
// IMPORT RECORDS
// =============================================================================

// FolderRecord is one folder name extracted from a Folders sheet.
type FolderRecord struct {
	Name string `validate:"required"`
}

// IconRecord is one fully populated row of an Icons sheet.
type IconRecord struct {
	IconName   string `validate:"required"`
	FolderName string `validate:"required"`
	ImageLink  string `validate:"required"`
}

// FailedIcon is an icon record dropped because its image could not be
// fetched.
type FailedIcon struct {
	Title  string `yaml:"title" json:"title"`
	Folder string `yaml:"folder" json:"folder"`
	Link   string `yaml:"link" json:"link"`
	Reason string `yaml:"reason" json:"reason"`
}

// =============================================================================
// IMPORT SUMMARY
// =============================================================================

// ImportSummary contains the counts reported at the end of an import batch.
type ImportSummary struct {
	// CreatedIcons is the number of icons appended to folders.
	CreatedIcons int `yaml:"created_icons" json:"created_icons"`

	// SkippedIcons is the number of records skipped as duplicates.
	SkippedIcons int `yaml:"skipped_icons" json:"skipped_icons"`

	// AffectedFolders is the number of distinct folders that were created
	// or received at least one icon.
	AffectedFolders int `yaml:"affected_folders" json:"affected_folders"`

	// FailedIcons is the number of records dropped because their image could
	// not be fetched. They are counted in neither CreatedIcons nor SkippedIcons.
	FailedIcons int `yaml:"failed_icons" json:"failed_icons"`

	// CreatedFolders is the number of folders appended by the batch.
	CreatedFolders int `yaml:"created_folders" json:"created_folders"`
}

// Text renders the terminal status line shown to the user.
func (s ImportSummary) Text() string {
	text := fmt.Sprintf("Imported %d icon(s) into %d folder(s), %d duplicate(s) skipped",
		s.CreatedIcons, s.AffectedFolders, s.SkippedIcons)
	if s.FailedIcons > 0 {
		text += fmt.Sprintf(", %d image(s) could not be downloaded", s.FailedIcons)
	}
	return text
}
