package dedup

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/speakboard/internal/types"
)

func folder(name string, titles ...string) *types.Folder {
	f := types.NewFolder(name)
	for _, title := range titles {
		f.Icons = append(f.Icons, types.NewIcon(title, nil))
	}
	return f
}

func TestPartitionFolders_CaseSensitive(t *testing.T) {
	existing := []*types.Folder{folder("Snacks")}
	candidates := []types.FolderRecord{{Name: "Snacks"}, {Name: "snacks"}, {Name: "Drinks"}}

	toCreate, toSkip := PartitionFolders(candidates, existing)
	assert.Equal(t, []string{"snacks", "Drinks"}, toCreate)
	assert.Equal(t, []string{"Snacks"}, toSkip)
}

func TestPartitionFolders_DuplicateCandidates(t *testing.T) {
	candidates := []types.FolderRecord{{Name: "Toys"}, {Name: " Toys "}, {Name: "Toys"}}

	toCreate, toSkip := PartitionFolders(candidates, nil)
	assert.Equal(t, []string{"Toys"}, toCreate)
	assert.Len(t, toSkip, 2)
}

func TestPartitionIcons_CaseInsensitiveTitles(t *testing.T) {
	snap := SnapshotTitles([]*types.Folder{folder("Words", "Hello")})

	groups, skipped := PartitionIcons([]types.IconRecord{
		{IconName: "HELLO", FolderName: "Words", ImageLink: "u1"},
		{IconName: "Bye", FolderName: "Words", ImageLink: "u2"},
	}, snap)

	assert.Equal(t, 1, skipped)
	require.Len(t, groups, 1)
	assert.Equal(t, "Words", groups[0].FolderName)
	require.Len(t, groups[0].Records, 1)
	assert.Equal(t, "Bye", groups[0].Records[0].IconName)
}

func TestPartitionIcons_ScopedToFolder(t *testing.T) {
	snap := SnapshotTitles([]*types.Folder{folder("Snacks", "Juice")})

	groups, skipped := PartitionIcons([]types.IconRecord{
		{IconName: "Juice", FolderName: "Drinks", ImageLink: "u1"},
		{IconName: "Juice", FolderName: "snacks", ImageLink: "u2"},
	}, snap)

	assert.Zero(t, skipped)
	require.Len(t, groups, 2)
	assert.Equal(t, "Drinks", groups[0].FolderName)
	assert.Equal(t, "snacks", groups[1].FolderName)
}

func TestPartitionIcons_NoIntraBatchDedup(t *testing.T) {
	groups, skipped := PartitionIcons([]types.IconRecord{
		{IconName: "Juice", FolderName: "Snacks", ImageLink: "u1"},
		{IconName: "Milk", FolderName: "Drinks", ImageLink: "u2"},
		{IconName: "Juice", FolderName: "Snacks", ImageLink: "u3"},
	}, SnapshotTitles(nil))

	assert.Zero(t, skipped)
	require.Len(t, groups, 2)
	assert.Equal(t, "Snacks", groups[0].FolderName)
	require.Len(t, groups[0].Records, 2)
	assert.Equal(t, "u1", groups[0].Records[0].ImageLink)
	assert.Equal(t, "u3", groups[0].Records[1].ImageLink)
}

func TestSnapshotTitles_FirstFolderWins(t *testing.T) {
	snap := SnapshotTitles([]*types.Folder{
		folder("Snacks", "Juice"),
		folder("Snacks", "Apple"),
	})

	assert.True(t, snap.Contains("Snacks", "juice"))
	assert.False(t, snap.Contains("Snacks", "Apple"))
	assert.False(t, snap.Contains("Missing", "Juice"))
}
