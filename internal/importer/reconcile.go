package importer

import (
	"github.com/google/uuid"

	"github.com/ginjaninja78/speakboard/internal/library"
	"github.com/ginjaninja78/speakboard/internal/types"
)

// IconGroup is a batch of ready-to-insert icons bound for one folder name.
type IconGroup struct {
	FolderName string
	Icons      []types.Icon
}

// ReconcileResult describes what one Reconcile call changed.
type ReconcileResult struct {
	// CreatedFolders holds the IDs of folders appended by the call, whether
	// requested explicitly or created to receive icons.
	CreatedFolders []uuid.UUID

	// CreatedIcons is the number of icons appended.
	CreatedIcons int

	// AffectedFolders holds the distinct IDs of folders that were created or
	// received at least one icon, in first-touch order.
	AffectedFolders []uuid.UUID
}

// Reconcile applies an import batch to the library. It only appends: first
// one empty folder per name in foldersToCreate, then each group's icons to
// the first folder with the group's exact name (created if absent). Groups
// without icons are ignored.
func Reconcile(lib *library.Library, foldersToCreate []string, groups []IconGroup) ReconcileResult {
	var res ReconcileResult
	touched := make(map[uuid.UUID]bool)
	touch := func(id uuid.UUID) {
		if !touched[id] {
			touched[id] = true
			res.AffectedFolders = append(res.AffectedFolders, id)
		}
	}

	for _, name := range foldersToCreate {
		f := lib.AppendFolder(name)
		res.CreatedFolders = append(res.CreatedFolders, f.ID)
		touch(f.ID)
	}

	for _, g := range groups {
		if len(g.Icons) == 0 {
			continue
		}
		id, created := lib.MergeIcons(g.FolderName, g.Icons)
		if created {
			res.CreatedFolders = append(res.CreatedFolders, id)
		}
		res.CreatedIcons += len(g.Icons)
		touch(id)
	}

	return res
}
