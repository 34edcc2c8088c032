package cmd

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/speakboard/internal/config"
	"github.com/ginjaninja78/speakboard/internal/library"
	"github.com/ginjaninja78/speakboard/internal/logging"
	"github.com/ginjaninja78/speakboard/internal/store"
	"github.com/ginjaninja78/speakboard/internal/types"
	"github.com/ginjaninja78/speakboard/internal/xlsxparser/xlsxtest"
	"github.com/ginjaninja78/speakboard/pkg/utils"
)

var pngBytes = append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 32)...)

// setupCommand points the package configuration at a temp directory and
// returns it with the URL of an image server serving /juice.png and
// /apple.png.
func setupCommand(t *testing.T) (string, string) {
	t.Helper()

	mux := http.NewServeMux()
	for _, name := range []string{"/juice.png", "/apple.png"} {
		mux.HandleFunc(name, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write(pngBytes)
		})
	}
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	cfg = &config.Config{
		Paths: config.PathsConfig{
			InputDir:    filepath.Join(dir, "input"),
			ArchiveDir:  filepath.Join(dir, "archive"),
			ReportDir:   filepath.Join(dir, "reports"),
			FilePattern: "*.xlsx,*.csv",
		},
		Store: config.StoreConfig{Driver: store.DriverFile, Dir: filepath.Join(dir, "library")},
		Fetch: config.FetchConfig{
			Timeout:     5 * time.Second,
			MaxBytes:    1 << 20,
			Attempts:    1,
			Concurrency: 2,
		},
		Import: config.ImportConfig{CSVDelimiter: ","},
	}
	logger = logging.Discard()

	require.NoError(t, os.MkdirAll(cfg.Paths.InputDir, 0o755))
	return dir, srv.URL
}

func writeInput(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(cfg.Paths.InputDir, name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func loadSaved(t *testing.T) []*types.Folder {
	t.Helper()
	folders, err := store.NewFile(cfg.Store.Dir, logger).Load(context.Background())
	require.NoError(t, err)
	return folders
}

func readOnlyReport(t *testing.T) *utils.ImportReport {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(cfg.Paths.ReportDir, "import_*.yaml"))
	require.NoError(t, err)
	require.Len(t, matches, 1)
	report, err := utils.ReadImportReport(matches[0])
	require.NoError(t, err)
	return report
}

func TestRunImport_Directory(t *testing.T) {
	_, imageURL := setupCommand(t)
	input := writeInput(t, "board.xlsx", xlsxtest.Workbook(t,
		xlsxtest.Icons(
			[]any{"Juice", "Snacks", imageURL + "/juice.png"},
			[]any{"Apple", "Snacks", imageURL + "/apple.png"},
			[]any{"Ghost", "Snacks", imageURL + "/missing.png"},
		),
		xlsxtest.Folders("Drinks"),
	))

	var out bytes.Buffer
	require.NoError(t, runImport(context.Background(), &out, importFlags{}))

	assert.Contains(t, out.String(), "Imported 2 icon(s) into 2 folder(s)")
	assert.Contains(t, out.String(), "Successful:      1")

	folders := loadSaved(t)
	require.Len(t, folders, 2)
	assert.Equal(t, "Drinks", folders[0].Name)
	assert.Equal(t, "Snacks", folders[1].Name)
	require.Len(t, folders[1].Icons, 2)
	assert.Equal(t, pngBytes, folders[1].Icons[0].Image)

	assert.NoFileExists(t, input)
	assert.FileExists(t, filepath.Join(cfg.Paths.ArchiveDir, "board.xlsx"))

	report := readOnlyReport(t)
	assert.Equal(t, utils.ReportDone, report.Status)
	assert.Equal(t, 2, report.Summary.CreatedIcons)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, "Ghost", report.Failures[0].Title)
}

func TestRunImport_ReimportIsIdempotent(t *testing.T) {
	_, imageURL := setupCommand(t)
	data := xlsxtest.Workbook(t, xlsxtest.Icons([]any{"Juice", "Snacks", imageURL + "/juice.png"}))
	cfg.Import.KeepInput = true
	path := writeInput(t, "board.xlsx", data)

	var out bytes.Buffer
	require.NoError(t, runImport(context.Background(), &out, importFlags{file: path}))
	require.NoError(t, runImport(context.Background(), &out, importFlags{file: path}))

	assert.FileExists(t, path)
	folders := loadSaved(t)
	require.Len(t, folders, 1)
	assert.Len(t, folders[0].Icons, 1)
	assert.Contains(t, out.String(), "1 duplicate(s) skipped")
}

func TestRunImport_MalformedFileStaysInPlace(t *testing.T) {
	setupCommand(t)
	input := writeInput(t, "broken.xlsx", []byte("not a workbook"))

	var out bytes.Buffer
	err := runImport(context.Background(), &out, importFlags{})
	assert.ErrorContains(t, err, "1 of 1 file(s) failed")

	assert.FileExists(t, input)
	assert.Equal(t, utils.ReportFailed, readOnlyReport(t).Status)
}

func TestRunImport_DryRun(t *testing.T) {
	_, imageURL := setupCommand(t)
	input := writeInput(t, "board.csv", []byte("icon,folder,s3link\nJuice,Snacks,"+imageURL+"/juice.png\n"))

	var out bytes.Buffer
	require.NoError(t, runImport(context.Background(), &out, importFlags{dryRun: true}))

	assert.Contains(t, out.String(), "Dry run")
	assert.Contains(t, out.String(), "Imported 1 icon(s)")
	assert.FileExists(t, input)
	assert.Empty(t, loadSaved(t))

	report := readOnlyReport(t)
	assert.True(t, report.DryRun)
	assert.Empty(t, report.Archived)
}

func TestRunImport_Cancelled(t *testing.T) {
	setupCommand(t)
	writeInput(t, "board.xlsx", xlsxtest.Workbook(t, xlsxtest.Folders("Drinks")))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	err := runImport(ctx, &out, importFlags{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, utils.ReportCancelled, readOnlyReport(t).Status)
}

func TestRunImport_NoFiles(t *testing.T) {
	setupCommand(t)

	var out bytes.Buffer
	require.NoError(t, runImport(context.Background(), &out, importFlags{}))
	assert.Contains(t, out.String(), "No spreadsheets found")
}

func TestRunInspect(t *testing.T) {
	setupCommand(t)
	path := writeInput(t, "board.xlsx", xlsxtest.Workbook(t,
		xlsxtest.Sheet{Name: "Notes", Rows: [][]any{{"icon", "comment"}}},
		xlsxtest.Icons(
			[]any{"Juice", "Snacks", "https://cdn.example/juice.png"},
			[]any{"Cookie", "Snacks", "https://cdn.example/cookie.png"},
		),
		xlsxtest.Folders("Drinks"),
	))

	var out bytes.Buffer
	require.NoError(t, runInspect(&out, path, 1))

	text := out.String()
	assert.Contains(t, text, `Sheet "Notes": unrecognized`)
	assert.Contains(t, text, `Sheet "Icons": icons, 3 row(s)`)
	assert.Contains(t, text, "2 icon record(s)")
	assert.Contains(t, text, "Juice")
	assert.NotContains(t, text, "Cookie")
	assert.Contains(t, text, "1 folder record(s), header row: true")
}

func TestPrintFolders(t *testing.T) {
	core := types.NewFolder("Core")
	core.IsDefault = true
	yes := types.NewIcon("Yes", nil)
	yes.QuickAccess = true
	core.Icons = append(core.Icons, yes, types.NewIcon("No", nil))
	lib := library.New([]*types.Folder{core, types.NewFolder("Snacks"), types.NewFolder("Drinks")})

	var out bytes.Buffer
	require.NoError(t, printFolders(&out, lib, 1, 2, true))
	text := out.String()
	assert.Contains(t, text, "Core (2 icon(s)) [default]")
	assert.Contains(t, text, "  * Yes")
	assert.Contains(t, text, "Snacks (0 icon(s))")
	assert.NotContains(t, text, "Drinks")
	assert.Contains(t, text, "Page 1 of 2, 1 quick-access icon(s)")

	assert.Error(t, printFolders(&out, lib, 5, 2, false))
}

func TestConsoleReporter(t *testing.T) {
	var out bytes.Buffer
	r := newConsoleReporter(&out)

	r.Progress(0, "Reading folders")
	r.Progress(0, "Reading folders")
	r.Progress(0, "Reading icons")
	r.Progress(0.05, "Downloaded 1 of 20 image(s)")
	r.Progress(0.12, "Downloaded 2 of 20 image(s)")
	r.Progress(0.15, "Downloaded 3 of 20 image(s)")
	r.Progress(1, "Saving icons")
	r.Finished("done")

	assert.Equal(t,
		"  [  0%] Reading folders\n"+
			"  [  0%] Reading icons\n"+
			"  [ 12%] Downloaded 2 of 20 image(s)\n"+
			"  [100%] Saving icons\n",
		out.String())
}
