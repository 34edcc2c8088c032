// Package dedup decides which extracted records are new relative to the
// current library.
//
// Folder names compare exactly, so "Snacks" and "snacks" are distinct
// folders. Icon titles compare case-insensitively within the record's
// folder, so "Hello" and "HELLO" collide.
package dedup

import (
	"strings"

	"github.com/ginjaninja78/speakboard/internal/types"
)

// PartitionFolders splits folder records into names to create and names to
// skip. A name is skipped when it equals an existing folder name exactly,
// or when an earlier candidate already claimed it.
func PartitionFolders(candidates []types.FolderRecord, existing []*types.Folder) (toCreate, toSkip []string) {
	seen := make(map[string]bool, len(existing)+len(candidates))
	for _, f := range existing {
		seen[f.Name] = true
	}

	for _, rec := range candidates {
		name := strings.TrimSpace(rec.Name)
		if name == "" {
			continue
		}
		if seen[name] {
			toSkip = append(toSkip, name)
			continue
		}
		seen[name] = true
		toCreate = append(toCreate, name)
	}
	return toCreate, toSkip
}

// TitleSnapshot maps a folder name to the case-folded titles it held when
// the snapshot was taken.
type TitleSnapshot map[string]map[string]bool

// Contains reports whether folder already held title.
func (s TitleSnapshot) Contains(folder, title string) bool {
	return s[folder][foldTitle(title)]
}

// SnapshotTitles captures the icon titles of every folder. When several
// folders share a name, the first one in collection order is used, which
// is also the folder new icons are merged into.
func SnapshotTitles(existing []*types.Folder) TitleSnapshot {
	snap := make(TitleSnapshot, len(existing))
	for _, f := range existing {
		if _, ok := snap[f.Name]; ok {
			continue
		}
		titles := make(map[string]bool, len(f.Icons))
		for _, icon := range f.Icons {
			titles[foldTitle(icon.Title)] = true
		}
		snap[f.Name] = titles
	}
	return snap
}

// FolderIcons is the group of accepted icon records bound for one folder.
type FolderIcons struct {
	FolderName string
	Records    []types.IconRecord
}

// PartitionIcons groups icon records by folder name, dropping those whose
// title the snapshot already holds for that folder. The snapshot is never
// updated, so duplicates within one batch are all kept. Groups appear in
// order of first appearance and keep extraction order.
func PartitionIcons(candidates []types.IconRecord, snapshot TitleSnapshot) (groups []FolderIcons, skipped int) {
	index := make(map[string]int)
	for _, rec := range candidates {
		if snapshot.Contains(rec.FolderName, rec.IconName) {
			skipped++
			continue
		}
		i, ok := index[rec.FolderName]
		if !ok {
			i = len(groups)
			index[rec.FolderName] = i
			groups = append(groups, FolderIcons{FolderName: rec.FolderName})
		}
		groups[i].Records = append(groups[i].Records, rec)
	}
	return groups, skipped
}

func foldTitle(title string) string {
	return strings.ToLower(strings.TrimSpace(title))
}
