package importer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/speakboard/internal/fetcher"
	"github.com/ginjaninja78/speakboard/internal/library"
	"github.com/ginjaninja78/speakboard/internal/types"
	"github.com/ginjaninja78/speakboard/internal/xlsxparser"
	"github.com/ginjaninja78/speakboard/internal/xlsxparser/xlsxtest"
)

// =============================================================================
// TEST DOUBLES
// =============================================================================

// mapFetcher serves images from a fixed map; unknown links fail with 404.
type mapFetcher struct {
	images   map[string][]byte
	inFlight atomic.Int32
	maxSeen  atomic.Int32
}

func (f *mapFetcher) Fetch(ctx context.Context, link string) ([]byte, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		seen := f.maxSeen.Load()
		if n <= seen || f.maxSeen.CompareAndSwap(seen, n) {
			break
		}
	}
	time.Sleep(time.Millisecond)

	if img, ok := f.images[link]; ok {
		return img, nil
	}
	return nil, &fetcher.FetchError{URL: link, StatusCode: 404, Err: errors.New("not found")}
}

func images(links ...string) *mapFetcher {
	f := &mapFetcher{images: make(map[string][]byte)}
	for _, link := range links {
		f.images[link] = []byte("img:" + link)
	}
	return f
}

// blockingFetcher blocks every fetch until the context is cancelled.
type blockingFetcher struct {
	started chan struct{}
	once    sync.Once
}

func (f *blockingFetcher) Fetch(ctx context.Context, link string) ([]byte, error) {
	f.once.Do(func() { close(f.started) })
	<-ctx.Done()
	return nil, ctx.Err()
}

// recordingReporter captures every progress call.
type recordingReporter struct {
	mu        sync.Mutex
	fractions []float64
	summary   string
}

func (r *recordingReporter) Progress(fraction float64, status string) {
	r.mu.Lock()
	r.fractions = append(r.fractions, fraction)
	r.mu.Unlock()
}

func (r *recordingReporter) Finished(summary string) {
	r.mu.Lock()
	r.summary = summary
	r.mu.Unlock()
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newImporter(lib *library.Library, f fetcher.Fetcher, opts ...Option) *Importer {
	return New(lib, f, append([]Option{WithLogger(quietLogger())}, opts...)...)
}

func folderNamed(t *testing.T, lib *library.Library, name string) *types.Folder {
	t.Helper()
	for _, f := range lib.Snapshot() {
		if f.Name == name {
			return f
		}
	}
	t.Fatalf("folder %q not found", name)
	return nil
}

// =============================================================================
// PIPELINE BEHAVIOUR
// =============================================================================

func TestImport_ScenarioEmptyLibrary(t *testing.T) {
	data := xlsxtest.Workbook(t, xlsxtest.Icons(
		[]any{"Juice", "Snacks", "u1"},
		[]any{"", "Snacks", "u2"},
		[]any{"Juice", "Snacks", "u3"},
	))

	lib := library.New(nil)
	im := newImporter(lib, images("u1", "u2", "u3"))

	res, err := im.Import(context.Background(), data)
	require.NoError(t, err)
	assert.Equal(t, Done, im.State())

	assert.Equal(t, 2, res.Summary.CreatedIcons)
	assert.Equal(t, 0, res.Summary.SkippedIcons)
	assert.Equal(t, 1, res.Summary.AffectedFolders)
	assert.Equal(t, 1, res.Summary.CreatedFolders)

	folders := lib.Snapshot()
	require.Len(t, folders, 1)
	assert.Equal(t, "Snacks", folders[0].Name)
	require.Len(t, folders[0].Icons, 2)
	assert.Equal(t, []byte("img:u1"), folders[0].Icons[0].Image)
	assert.Equal(t, []byte("img:u3"), folders[0].Icons[1].Image)
}

func TestImport_ReimportIsIdempotent(t *testing.T) {
	data := xlsxtest.Workbook(t,
		xlsxtest.Folders("Toys"),
		xlsxtest.Icons(
			[]any{"Juice", "Snacks", "u1"},
			[]any{"Milk", "Drinks", "u2"},
		),
	)

	lib := library.New(nil)
	first, err := newImporter(lib, images("u1", "u2")).Import(context.Background(), data)
	require.NoError(t, err)
	require.Equal(t, 2, first.Summary.CreatedIcons)

	second, err := newImporter(lib, images("u1", "u2")).Import(context.Background(), data)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Summary.CreatedIcons)
	assert.Equal(t, first.Summary.CreatedIcons, second.Summary.SkippedIcons)
	assert.Equal(t, 0, second.Summary.CreatedFolders)
	assert.Len(t, lib.Snapshot(), 3)
}

func TestImport_IconTitlesCaseInsensitive(t *testing.T) {
	words := types.NewFolder("Words")
	words.Icons = append(words.Icons, types.NewIcon("Hello", nil))
	lib := library.New([]*types.Folder{words})

	data := xlsxtest.Workbook(t, xlsxtest.Icons([]any{"HELLO", "Words", "u1"}))
	res, err := newImporter(lib, images("u1")).Import(context.Background(), data)
	require.NoError(t, err)

	assert.Equal(t, 0, res.Summary.CreatedIcons)
	assert.Equal(t, 1, res.Summary.SkippedIcons)
	assert.Len(t, folderNamed(t, lib, "Words").Icons, 1)
}

func TestImport_FolderNamesCaseSensitive(t *testing.T) {
	snacks := types.NewFolder("Snacks")
	lib := library.New([]*types.Folder{snacks})

	data := xlsxtest.Workbook(t, xlsxtest.Folders("snacks", "Snacks"))
	res, err := newImporter(lib, images()).Import(context.Background(), data)
	require.NoError(t, err)

	assert.Equal(t, 1, res.Summary.CreatedFolders)
	folders := lib.Snapshot()
	require.Len(t, folders, 2)
	assert.Equal(t, snacks.ID, folders[0].ID)
	assert.Equal(t, "snacks", folders[1].Name)
}

func TestImport_UnreachableImageDropsOnlyThatRecord(t *testing.T) {
	data := xlsxtest.Workbook(t, xlsxtest.Icons(
		[]any{"Juice", "Snacks", "u1"},
		[]any{"Apple", "Snacks", "broken"},
		[]any{"Milk", "Drinks", "u3"},
	))

	lib := library.New(nil)
	res, err := newImporter(lib, images("u1", "u3")).Import(context.Background(), data)
	require.NoError(t, err)

	assert.Equal(t, 2, res.Summary.CreatedIcons)
	assert.Equal(t, 1, res.Summary.FailedIcons)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, "Apple", res.Failures[0].Title)
	assert.Equal(t, "broken", res.Failures[0].Link)
	assert.Contains(t, res.Summary.Text(), "1 image(s) could not be downloaded")
}

func TestImport_AllImagesFailedCreatesNoFolder(t *testing.T) {
	data := xlsxtest.Workbook(t, xlsxtest.Icons([]any{"Juice", "Snacks", "broken"}))

	lib := library.New(nil)
	res, err := newImporter(lib, images()).Import(context.Background(), data)
	require.NoError(t, err)

	assert.Equal(t, 0, res.Summary.CreatedIcons)
	assert.Equal(t, 0, res.Summary.AffectedFolders)
	assert.Empty(t, lib.Snapshot())
}

func TestImport_FoldersOnly(t *testing.T) {
	existing := types.NewFolder("Snacks")
	lib := library.New([]*types.Folder{existing})

	data := xlsxtest.Workbook(t, xlsxtest.Folders("Snacks", "Toys", "Places"))
	res, err := newImporter(lib, images()).Import(context.Background(), data)
	require.NoError(t, err)

	assert.Equal(t, 0, res.Summary.CreatedIcons)
	assert.Equal(t, 2, res.Summary.AffectedFolders)
	assert.Equal(t, 2, res.Summary.CreatedFolders)
	assert.Len(t, res.CreatedFolders, 2)
}

func TestImport_MergesIntoExistingFolder(t *testing.T) {
	snacks := types.NewFolder("Snacks")
	snacks.Icons = append(snacks.Icons, types.NewIcon("Apple", nil))
	lib := library.New([]*types.Folder{snacks})

	data := xlsxtest.Workbook(t, xlsxtest.Icons([]any{"Juice", "Snacks", "u1"}))
	res, err := newImporter(lib, images("u1")).Import(context.Background(), data)
	require.NoError(t, err)

	assert.Equal(t, 0, res.Summary.CreatedFolders)
	assert.Equal(t, 1, res.Summary.AffectedFolders)

	got := folderNamed(t, lib, "Snacks")
	assert.Equal(t, snacks.ID, got.ID)
	require.Len(t, got.Icons, 2)
	assert.Equal(t, snacks.Icons[0].ID, got.Icons[0].ID)
	assert.Equal(t, "Juice", got.Icons[1].Title)
}

// =============================================================================
// FAILURES
// =============================================================================

func TestImport_MalformedDocument(t *testing.T) {
	lib := library.New(nil)
	im := newImporter(lib, images())

	_, err := im.Import(context.Background(), []byte("not a workbook"))
	require.Error(t, err)

	var fe *xlsxparser.FormatError
	assert.ErrorAs(t, err, &fe)
	assert.Equal(t, Failed, im.State())
	assert.Empty(t, lib.Snapshot())
}

func TestImport_NoUsableSheet(t *testing.T) {
	data := xlsxtest.Workbook(t, xlsxtest.Sheet{Name: "Notes", Rows: [][]any{{"icon", "notes"}}})

	im := newImporter(library.New(nil), images())
	_, err := im.Import(context.Background(), data)

	assert.ErrorIs(t, err, xlsxparser.ErrNoUsableSheet)
	assert.ErrorIs(t, err, xlsxparser.ErrInvalidFormat)
	assert.Equal(t, Failed, im.State())
}

func TestImport_CancelledDuringFetch(t *testing.T) {
	data := xlsxtest.Workbook(t,
		xlsxtest.Folders("Toys"),
		xlsxtest.Icons(
			[]any{"Juice", "Snacks", "u1"},
			[]any{"Milk", "Drinks", "u2"},
		),
	)

	lib := library.New(nil)
	f := &blockingFetcher{started: make(chan struct{})}
	im := newImporter(lib, f)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-f.started
		cancel()
	}()

	res, err := im.Import(ctx, data)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCancelled)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, Failed, im.State())

	require.NotNil(t, res)
	assert.Equal(t, 1, res.Summary.CreatedFolders)
	assert.Equal(t, 0, res.Summary.CreatedIcons)

	folders := lib.Snapshot()
	require.Len(t, folders, 1)
	assert.Equal(t, "Toys", folders[0].Name)
	assert.Empty(t, folders[0].Icons)
}

func TestImport_CancelledBeforeStart(t *testing.T) {
	data := xlsxtest.Workbook(t, xlsxtest.Folders("Toys"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	lib := library.New(nil)
	_, err := newImporter(lib, images()).Import(ctx, data)
	assert.ErrorIs(t, err, ErrCancelled)
	assert.Empty(t, lib.Snapshot())
}

// =============================================================================
// PROGRESS AND CONCURRENCY
// =============================================================================

func TestImport_ProgressIsMonotonic(t *testing.T) {
	var rows [][]any
	var links []string
	for i := 0; i < 12; i++ {
		link := string(rune('a' + i))
		links = append(links, link)
		rows = append(rows, []any{"Icon " + link, "Letters", link})
	}
	data := xlsxtest.Workbook(t, xlsxtest.Icons(rows...))

	rep := &recordingReporter{}
	res, err := newImporter(library.New(nil), images(links...), WithReporter(rep)).Import(context.Background(), data)
	require.NoError(t, err)

	require.NotEmpty(t, rep.fractions)
	for i := 1; i < len(rep.fractions); i++ {
		assert.GreaterOrEqual(t, rep.fractions[i], rep.fractions[i-1])
	}
	assert.Equal(t, 1.0, rep.fractions[len(rep.fractions)-1])
	assert.Equal(t, res.Summary.Text(), rep.summary)
}

func TestImport_BoundedConcurrency(t *testing.T) {
	var rows [][]any
	var links []string
	for i := 0; i < 20; i++ {
		link := string(rune('a' + i))
		links = append(links, link)
		rows = append(rows, []any{"Icon " + link, "Letters", link})
	}
	data := xlsxtest.Workbook(t, xlsxtest.Icons(rows...))

	f := images(links...)
	res, err := newImporter(library.New(nil), f, WithConcurrency(2)).Import(context.Background(), data)
	require.NoError(t, err)

	assert.Equal(t, 20, res.Summary.CreatedIcons)
	assert.LessOrEqual(t, f.maxSeen.Load(), int32(2))
}

func TestLatestReporter(t *testing.T) {
	var r LatestReporter
	r.Progress(0.5, "half")

	fraction, status := r.Latest()
	assert.Equal(t, 0.5, fraction)
	assert.Equal(t, "half", status)

	_, done := r.Summary()
	assert.False(t, done)

	r.Finished("all done")
	summary, done := r.Summary()
	assert.True(t, done)
	assert.Equal(t, "all done", summary)
}

func TestReporterFunc(t *testing.T) {
	var got []string
	r := ReporterFunc(func(fraction float64, status string) {
		got = append(got, status)
	})

	_, err := newImporter(library.New(nil), images(), WithReporter(r)).
		Import(context.Background(), xlsxtest.Workbook(t, xlsxtest.Folders("Drinks")))
	require.NoError(t, err)

	require.NotEmpty(t, got)
	assert.Equal(t, "Reading folders", got[0])
	assert.Contains(t, got[len(got)-1], "into 1 folder(s)")
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "fetching_and_creating", FetchingAndCreating.String())
	assert.Equal(t, "state(42)", State(42).String())
}
