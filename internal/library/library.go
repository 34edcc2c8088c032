// =============================================================================
// Speakboard - Icon Library
// =============================================================================
//
// This module owns the in-memory folder collection. It is the single writer
// for folders and icons: every mutation takes the write lock, and readers
// receive copies so they never observe a half-applied change.
//
// ATOMIC STEPS:
//   - AppendFolder: one folder appended to the collection
//   - MergeIcons:   one batch of icons appended to one folder's list,
//                   creating the folder first if no folder has that name
//
// PERSISTENCE:
//   The library itself is not persisted. Callers load it from a store.Store
//   with New(folders) and save Snapshot() back when they are done.
//
// =============================================================================

package library

import (
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/ginjaninja78/speakboard/internal/types"
)

var (
	// ErrNotFound is returned when a folder or icon ID does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDefaultFolder is returned when deleting a default folder.
	ErrDefaultFolder = errors.New("default folders cannot be deleted")
)

// Library is the folder collection.
type Library struct {
	mu      sync.RWMutex
	folders []*types.Folder
}

// New creates a library holding folders in the given order.
func New(folders []*types.Folder) *Library {
	return &Library{folders: append([]*types.Folder(nil), folders...)}
}

// =============================================================================
// READS
// =============================================================================

// Snapshot returns copies of every folder in collection order.
func (l *Library) Snapshot() []*types.Folder {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]*types.Folder, len(l.folders))
	for i, f := range l.folders {
		out[i] = f.Clone()
	}
	return out
}

// Folders is an alias of Snapshot used by listing surfaces.
func (l *Library) Folders() []*types.Folder {
	return l.Snapshot()
}

// Folder returns a copy of the folder with the given ID.
func (l *Library) Folder(id uuid.UUID) (*types.Folder, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	i := l.indexOf(id)
	if i < 0 {
		return nil, ErrNotFound
	}
	return l.folders[i].Clone(), nil
}

// QuickAccess returns every icon flagged for quick access, in folder order
// and then icon order.
func (l *Library) QuickAccess() []types.Icon {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var icons []types.Icon
	for _, f := range l.folders {
		for _, icon := range f.Icons {
			if icon.QuickAccess {
				icons = append(icons, icon)
			}
		}
	}
	return icons
}

// =============================================================================
// IMPORT MUTATIONS
// =============================================================================

// AppendFolder appends a new empty folder and returns a copy of it.
func (l *Library) AppendFolder(name string) *types.Folder {
	f := types.NewFolder(name)

	l.mu.Lock()
	l.folders = append(l.folders, f)
	l.mu.Unlock()

	return f.Clone()
}

// MergeIcons appends icons to the first folder named name, creating that
// folder when none exists. The lookup and the append happen under one lock.
//
// RETURNS:
//   - The ID of the folder that received the icons.
//   - true if the folder was created by this call.
func (l *Library) MergeIcons(name string, icons []types.Icon) (uuid.UUID, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, f := range l.folders {
		if f.Name == name {
			f.Icons = append(f.Icons, icons...)
			return f.ID, false
		}
	}

	f := types.NewFolder(name)
	f.Icons = append(f.Icons, icons...)
	l.folders = append(l.folders, f)
	return f.ID, true
}

// =============================================================================
// EDITING OPERATIONS
// =============================================================================

// AddFolder appends a folder with an optional cover image.
func (l *Library) AddFolder(name string, image []byte) *types.Folder {
	f := types.NewFolder(name)
	f.Image = image

	l.mu.Lock()
	l.folders = append(l.folders, f)
	l.mu.Unlock()

	return f.Clone()
}

// DeleteFolder removes a non-default folder and its icons.
func (l *Library) DeleteFolder(id uuid.UUID) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	i := l.indexOf(id)
	if i < 0 {
		return ErrNotFound
	}
	if l.folders[i].IsDefault {
		return ErrDefaultFolder
	}
	l.folders = append(l.folders[:i], l.folders[i+1:]...)
	return nil
}

// AddIcon appends an icon to a folder.
func (l *Library) AddIcon(folderID uuid.UUID, icon types.Icon) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	i := l.indexOf(folderID)
	if i < 0 {
		return ErrNotFound
	}
	if icon.ID == uuid.Nil {
		icon.ID = uuid.New()
	}
	l.folders[i].Icons = append(l.folders[i].Icons, icon)
	return nil
}

// DeleteIcon removes an icon from whichever folder holds it.
func (l *Library) DeleteIcon(iconID uuid.UUID) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, f := range l.folders {
		for j, icon := range f.Icons {
			if icon.ID == iconID {
				f.Icons = append(f.Icons[:j], f.Icons[j+1:]...)
				return nil
			}
		}
	}
	return ErrNotFound
}

// SetQuickAccess flags or unflags an icon for the quick access view.
func (l *Library) SetQuickAccess(iconID uuid.UUID, on bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, f := range l.folders {
		for j := range f.Icons {
			if f.Icons[j].ID == iconID {
				f.Icons[j].QuickAccess = on
				return nil
			}
		}
	}
	return ErrNotFound
}

func (l *Library) indexOf(id uuid.UUID) int {
	for i, f := range l.folders {
		if f.ID == id {
			return i
		}
	}
	return -1
}
