package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/speakboard/internal/library"
)

var (
	foldersPage    int
	foldersPerPage int
	foldersIcons   bool
)

var foldersCmd = &cobra.Command{
	Use:   "folders",
	Short: "List the folders in the library",
	RunE: func(cmd *cobra.Command, args []string) error {
		lib, _, release, err := openLibrary(cmd.Context())
		if err != nil {
			return err
		}
		defer release()
		return printFolders(cmd.OutOrStdout(), lib, foldersPage, foldersPerPage, foldersIcons)
	},
}

func init() {
	rootCmd.AddCommand(foldersCmd)

	foldersCmd.Flags().IntVar(&foldersPage, "page", 1, "Page to show, starting at 1")
	foldersCmd.Flags().IntVar(&foldersPerPage, "per-page", 25, "Folders per page")
	foldersCmd.Flags().BoolVar(&foldersIcons, "icons", false, "List each folder's icons")
}

// printFolders writes one page of folders. Quick-access icons are starred.
func printFolders(out io.Writer, lib *library.Library, page, perPage int, withIcons bool) error {
	folders, pages := library.Paginate(lib.Folders(), perPage, page-1)
	if len(folders) == 0 && page != 1 {
		return fmt.Errorf("page %d out of range (1-%d)", page, pages)
	}

	for _, f := range folders {
		marker := ""
		if f.IsDefault {
			marker = " [default]"
		}
		fmt.Fprintf(out, "%s (%d icon(s))%s\n", f.Name, len(f.Icons), marker)
		if !withIcons {
			continue
		}
		for _, icon := range f.Icons {
			star := " "
			if icon.QuickAccess {
				star = "*"
			}
			fmt.Fprintf(out, "  %s %s\n", star, icon.Title)
		}
	}

	quick := lib.QuickAccess()
	fmt.Fprintf(out, "\nPage %d of %d, %d quick-access icon(s)\n", page, pages, len(quick))
	return nil
}
