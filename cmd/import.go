// =============================================================================
// Speakboard - Import Command
// =============================================================================
//
// The 'import' command runs spreadsheets through the import pipeline and
// saves the library after each file.
//
// COMMAND USAGE:
//   speakboard import [flags]
//
// FLAGS:
//   --file        : Import a single spreadsheet
//   --dir         : Scan this directory instead of paths.input_dir
//   --dry-run     : Run the pipeline without saving, archiving the input
//   --concurrency : Parallel image downloads (default: fetch.concurrency)
//
// PROCESSING PIPELINE (per file):
//   1. Open the workbook or CSV file
//   2. Create the folders listed on the Folders sheet
//   3. Extract and deduplicate the Icons sheet
//   4. Download images, then append the icons to their folders
//   5. Save the library, archive the input, write a YAML report
//
// Ctrl-C cancels the running file. Folders it already created are kept and
// saved; none of its icons are.
//
// =============================================================================

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/speakboard/internal/importer"
	"github.com/ginjaninja78/speakboard/internal/library"
	"github.com/ginjaninja78/speakboard/internal/store"
	"github.com/ginjaninja78/speakboard/pkg/utils"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

type importFlags struct {
	file        string
	dir         string
	dryRun      bool
	concurrency int
}

var importOpts importFlags

// =============================================================================
// IMPORT COMMAND DEFINITION
// =============================================================================

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import icons from spreadsheets into the library",
	Long: `The import command reads spreadsheets with an Icons sheet (columns icon,
folder and s3link) and/or a Folders sheet (one folder name per row).

Folders that already exist are skipped by exact name. Icons whose title
already exists in the target folder are skipped, ignoring case. Icons whose
image cannot be downloaded are dropped and listed in the report; the rest of
the file is still imported.

On success the spreadsheet is moved to the archive directory. Malformed
files are left in place and reported.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		if importOpts.file != "" && importOpts.dir != "" {
			return errors.New("--file and --dir are mutually exclusive")
		}
		return runImport(cmd.Context(), cmd.OutOrStdout(), importOpts)
	},
}

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().StringVar(&importOpts.file, "file", "", "Import a single spreadsheet")
	importCmd.Flags().StringVar(&importOpts.dir, "dir", "", "Directory to scan instead of paths.input_dir")
	importCmd.Flags().BoolVar(&importOpts.dryRun, "dry-run", false, "Run the pipeline without saving the library or archiving input")
	importCmd.Flags().IntVar(&importOpts.concurrency, "concurrency", 0, "Parallel image downloads (default: fetch.concurrency)")
}

// =============================================================================
// MAIN IMPORT FUNCTION
// =============================================================================

// fileOutcome is the result of importing one file.
type fileOutcome struct {
	report    utils.ImportReport
	cancelled bool
}

func runImport(ctx context.Context, out io.Writer, opts importFlags) error {
	startTime := time.Now()

	fm := utils.NewFileManager(cfg.Paths.InputDir, cfg.Paths.ArchiveDir, cfg.Paths.ReportDir)
	fm.ArchiveOnSuccess = !cfg.Import.KeepInput && !opts.dryRun
	if opts.dir != "" {
		fm.InputDir = opts.dir
	}

	// =========================================================================
	// STEP 1: DISCOVER INPUT FILES
	// =========================================================================

	var files []string
	if opts.file != "" {
		files = []string{opts.file}
	} else {
		if err := fm.EnsureDirectories(); err != nil {
			return err
		}
		found, err := fm.DiscoverInputFiles(cfg.Paths.FilePattern)
		if err != nil {
			return err
		}
		files = found
	}

	if len(files) == 0 {
		fmt.Fprintf(out, "No spreadsheets found in %s\n", fm.InputDir)
		return nil
	}

	// =========================================================================
	// STEP 2: LOAD THE LIBRARY
	// =========================================================================

	lib, st, release, err := openLibrary(ctx)
	if err != nil {
		return err
	}
	defer release()

	f := newFetcher()
	concurrency := cfg.Fetch.Concurrency
	if opts.concurrency > 0 {
		concurrency = opts.concurrency
	}

	if opts.dryRun {
		fmt.Fprintln(out, "Dry run: the library will not be saved")
	}
	fmt.Fprintf(out, "Importing %d file(s)\n", len(files))

	// =========================================================================
	// STEP 3: IMPORT FILES IN ORDER
	// =========================================================================

	var succeeded, failed int
	for _, path := range files {
		fmt.Fprintf(out, "\n%s\n", filepath.Base(path))

		im := importer.New(lib, f,
			importer.WithReporter(newConsoleReporter(out)),
			importer.WithConcurrency(concurrency),
			importer.WithDocumentOptions(documentOptions()),
			importer.WithLogger(logger.With("file", filepath.Base(path))),
		)

		outcome := importFile(ctx, im, lib, st, fm, path, opts.dryRun)
		outcome.report.DryRun = opts.dryRun

		if reportPath, err := utils.WriteImportReport(fm.ReportDir, outcome.report); err != nil {
			logger.Warn("failed to write import report", "file", path, "error", err)
		} else {
			logger.Debug("import report written", "path", reportPath)
		}

		if outcome.report.Status == utils.ReportDone {
			succeeded++
			fmt.Fprintf(out, "  ✓ %s\n", outcome.report.Summary.Text())
		} else {
			failed++
			fmt.Fprintf(out, "  ✗ %s\n", outcome.report.Error)
		}
		if outcome.cancelled {
			break
		}
	}

	// =========================================================================
	// STEP 4: PRINT SUMMARY
	// =========================================================================

	fmt.Fprintln(out, "\n=== Import Complete ===")
	fmt.Fprintf(out, "Total files:     %d\n", len(files))
	fmt.Fprintf(out, "Successful:      %d\n", succeeded)
	fmt.Fprintf(out, "Errors:          %d\n", failed)
	fmt.Fprintf(out, "Time elapsed:    %s\n", time.Since(startTime).Round(time.Millisecond))

	if ctx.Err() != nil {
		return fmt.Errorf("import interrupted: %w", ctx.Err())
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d file(s) failed", failed, len(files))
	}
	return nil
}

// importFile imports one spreadsheet and persists the outcome.
func importFile(ctx context.Context, im *importer.Importer, lib *library.Library, st store.Store, fm *utils.FileManager, path string, dryRun bool) fileOutcome {
	started := time.Now()
	report := utils.ImportReport{File: path, StartedAt: started}
	finish := func(status string, err error) fileOutcome {
		report.Status = status
		report.Duration = time.Since(started).Round(time.Millisecond).String()
		if err != nil {
			report.Error = err.Error()
		}
		return fileOutcome{report: report, cancelled: status == utils.ReportCancelled}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return finish(utils.ReportFailed, fmt.Errorf("failed to read file: %w", err))
	}

	result, runErr := im.ImportNamed(ctx, filepath.Base(path), data)
	if result != nil {
		report.Summary = result.Summary
		report.Failures = result.Failures
	}

	switch {
	case runErr == nil:
	case errors.Is(runErr, importer.ErrCancelled):
		// Folders created before the cancellation are part of the library.
		if !dryRun {
			if err := st.Save(context.WithoutCancel(ctx), lib.Snapshot()); err != nil {
				return finish(utils.ReportFailed, fmt.Errorf("failed to save library: %w", err))
			}
		}
		return finish(utils.ReportCancelled, runErr)
	default:
		return finish(utils.ReportFailed, runErr)
	}

	if !dryRun {
		if err := st.Save(ctx, lib.Snapshot()); err != nil {
			return finish(utils.ReportFailed, fmt.Errorf("failed to save library: %w", err))
		}
	}

	archived, err := fm.ArchiveInputFile(path)
	if err != nil {
		logger.Warn("failed to archive input", "file", path, "error", err)
	} else if archived != path {
		report.Archived = archived
	}
	return finish(utils.ReportDone, nil)
}

// =============================================================================
// PROGRESS OUTPUT
// =============================================================================

// consoleReporter prints phase changes and every tenth of download progress.
type consoleReporter struct {
	out        io.Writer
	lastStatus string
	lastTenth  int
}

func newConsoleReporter(out io.Writer) *consoleReporter {
	return &consoleReporter{out: out, lastTenth: -1}
}

func (r *consoleReporter) Progress(fraction float64, status string) {
	tenth := int(fraction * 10)
	if fraction > 0 && tenth <= r.lastTenth {
		return
	}
	if fraction == 0 && status == r.lastStatus {
		return
	}
	r.lastTenth = tenth
	r.lastStatus = status
	fmt.Fprintf(r.out, "  [%3.0f%%] %s\n", fraction*100, status)
}

func (r *consoleReporter) Finished(string) {
	r.lastTenth = 10
}
