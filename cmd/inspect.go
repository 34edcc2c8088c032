package cmd

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/speakboard/internal/xlsxparser"
)

var (
	inspectFile  string
	inspectLimit int
)

// inspectCmd shows how a spreadsheet would be read, without downloading
// anything or touching the library.
var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Show the sheets and records of a spreadsheet",
	RunE: func(cmd *cobra.Command, args []string) error {
		if inspectFile == "" {
			return errors.New("--file is required")
		}
		return runInspect(cmd.OutOrStdout(), inspectFile, inspectLimit)
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)

	inspectCmd.Flags().StringVar(&inspectFile, "file", "", "Spreadsheet to inspect")
	inspectCmd.Flags().IntVar(&inspectLimit, "limit", 20, "Maximum records listed per sheet (0 lists all)")
}

func runInspect(out io.Writer, path string, limit int) error {
	doc, err := xlsxparser.OpenFile(path, documentOptions())
	if err != nil {
		return err
	}
	defer doc.Close()

	for _, name := range doc.Sheets() {
		sheet, err := doc.ReadSheet(name)
		if err != nil {
			return err
		}
		kind := xlsxparser.Classify(sheet)
		fmt.Fprintf(out, "Sheet %q: %s, %d row(s)\n", name, kind, len(sheet.Rows))

		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		switch kind {
		case xlsxparser.Icons:
			records := xlsxparser.ExtractIcons(sheet)
			fmt.Fprintf(out, "  %d icon record(s)\n", len(records))
			for i, rec := range records {
				if limit > 0 && i >= limit {
					fmt.Fprintf(tw, "  ...\t\t\n")
					break
				}
				fmt.Fprintf(tw, "  %s\t%s\t%s\n", rec.IconName, rec.FolderName, rec.ImageLink)
			}
		case xlsxparser.Folders:
			records := xlsxparser.ExtractFolders(sheet)
			fmt.Fprintf(out, "  %d folder record(s), header row: %t\n", len(records), xlsxparser.HasFolderHeader(sheet))
			for i, rec := range records {
				if limit > 0 && i >= limit {
					fmt.Fprintln(tw, "  ...")
					break
				}
				fmt.Fprintf(tw, "  %s\n", rec.Name)
			}
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}
	return nil
}
