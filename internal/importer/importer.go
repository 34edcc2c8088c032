// =============================================================================
// Speakboard - Import Pipeline
// =============================================================================
//
// This module orchestrates one bulk import batch, from an opened spreadsheet
// document to icons appended in the library.
//
// IMPORT PIPELINE:
//   1. Find the Folders sheet and extract folder records
//   2. Create the folders the library does not have yet
//   3. Find the Icons sheet and extract icon records
//   4. Drop icons whose title the target folder already holds
//   5. Fetch every remaining image with bounded concurrency
//   6. Append the fetched icons to their folders
//
// STATES:
//   Idle -> ParsingFolders -> CreatingFolders -> ParsingIcons ->
//   FetchingAndCreating -> Reconciling -> Done
//   Any phase can move to Failed on a format error or cancellation.
//
// PARTIAL FAILURE:
//   A record whose image cannot be fetched is dropped and counted; the batch
//   continues. Folder creation and icon insertion are separate phases, so a
//   cancelled icon phase leaves the folders from step 2 in place.
//
// =============================================================================

package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/ginjaninja78/speakboard/internal/dedup"
	"github.com/ginjaninja78/speakboard/internal/fetcher"
	"github.com/ginjaninja78/speakboard/internal/library"
	"github.com/ginjaninja78/speakboard/internal/types"
	"github.com/ginjaninja78/speakboard/internal/xlsxparser"
)

// DefaultConcurrency is the number of images fetched in parallel.
const DefaultConcurrency = 4

// ErrCancelled is returned when the context is cancelled during an import.
var ErrCancelled = errors.New("import cancelled")

// =============================================================================
// STATE
// =============================================================================

// State is the phase an import is in.
type State int

const (
	Idle State = iota
	ParsingFolders
	CreatingFolders
	ParsingIcons
	FetchingAndCreating
	Reconciling
	Done
	Failed
)

var stateNames = [...]string{
	Idle:                "idle",
	ParsingFolders:      "parsing_folders",
	CreatingFolders:     "creating_folders",
	ParsingIcons:        "parsing_icons",
	FetchingAndCreating: "fetching_and_creating",
	Reconciling:         "reconciling",
	Done:                "done",
	Failed:              "failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return stateNames[s]
}

// =============================================================================
// RESULT STRUCTURE
// =============================================================================

// Result is the outcome of one import batch.
type Result struct {
	// Summary holds the counts shown to the user.
	Summary types.ImportSummary

	// CreatedFolders holds the IDs of every folder appended by the batch.
	CreatedFolders []uuid.UUID

	// Failures lists the records whose image could not be fetched.
	Failures []types.FailedIcon

	// Duration is the wall time of the batch.
	Duration time.Duration
}

// =============================================================================
// IMPORTER STRUCTURE
// =============================================================================

// Importer runs import batches against one library.
type Importer struct {
	lib         *library.Library
	fetcher     fetcher.Fetcher
	reporter    Reporter
	log         *slog.Logger
	concurrency int
	docOpts     xlsxparser.Options

	mu    sync.Mutex
	state State
}

// Option configures an Importer.
type Option func(*Importer)

// WithReporter sets the progress reporter. Default: no reporting.
func WithReporter(r Reporter) Option {
	return func(im *Importer) { im.reporter = r }
}

// WithConcurrency sets the number of parallel image fetches.
func WithConcurrency(n int) Option {
	return func(im *Importer) {
		if n > 0 {
			im.concurrency = n
		}
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(im *Importer) { im.log = l }
}

// WithDocumentOptions sets how CSV inputs are read by Import.
func WithDocumentOptions(o xlsxparser.Options) Option {
	return func(im *Importer) { im.docOpts = o }
}

// New creates an Importer that appends into lib and downloads with f.
func New(lib *library.Library, f fetcher.Fetcher, opts ...Option) *Importer {
	im := &Importer{
		lib:         lib,
		fetcher:     f,
		reporter:    nopReporter{},
		log:         slog.Default(),
		concurrency: DefaultConcurrency,
		state:       Idle,
	}
	for _, opt := range opts {
		opt(im)
	}
	im.log = im.log.With("component", "importer")
	return im
}

// State returns the current phase.
func (im *Importer) State() State {
	im.mu.Lock()
	defer im.mu.Unlock()
	return im.state
}

func (im *Importer) setState(s State) {
	im.mu.Lock()
	im.state = s
	im.mu.Unlock()
	im.log.Debug("import state", slog.String("state", s.String()))
}

// =============================================================================
// MAIN IMPORT FUNCTIONS
// =============================================================================

// Import opens a workbook from raw bytes and runs it.
func (im *Importer) Import(ctx context.Context, data []byte) (*Result, error) {
	return im.ImportNamed(ctx, "", data)
}

// ImportNamed opens raw bytes, choosing the reader from the file name, and
// runs the document. An unreadable document fails without touching the
// library.
func (im *Importer) ImportNamed(ctx context.Context, name string, data []byte) (*Result, error) {
	doc, err := xlsxparser.OpenNamed(name, data, im.docOpts)
	if err != nil {
		im.setState(Failed)
		return nil, err
	}
	defer doc.Close()
	return im.Run(ctx, doc)
}

// Run executes the import pipeline for an opened document.
//
// RETURNS:
//   - The batch Result. On cancellation it describes the folders created
//     before the icon phase was aborted.
//   - A *xlsxparser.FormatError if a sheet is unreadable or the document has
//     neither an Icons nor a Folders sheet.
//   - An error wrapping ErrCancelled and the context error on cancellation.
func (im *Importer) Run(ctx context.Context, doc xlsxparser.Document) (*Result, error) {
	start := time.Now()
	result := &Result{}
	prog := &progress{reporter: im.reporter}

	// =========================================================================
	// STEP 1: PARSE FOLDERS
	// =========================================================================

	im.setState(ParsingFolders)
	prog.report(0, "Reading folders")

	folderSheet, err := xlsxparser.FindSheet(doc, xlsxparser.Folders)
	if err != nil {
		return nil, im.fail(err)
	}

	var folderRecords []types.FolderRecord
	if folderSheet != nil {
		folderRecords = xlsxparser.ExtractFolders(folderSheet)
	}
	toCreate, toSkip := dedup.PartitionFolders(folderRecords, im.lib.Snapshot())

	im.log.Info("folder records parsed",
		slog.Int("records", len(folderRecords)),
		slog.Int("new", len(toCreate)),
		slog.Int("existing", len(toSkip)))

	// =========================================================================
	// STEP 2: CREATE FOLDERS
	// =========================================================================

	if err := ctx.Err(); err != nil {
		return result, im.cancelled(err)
	}

	im.setState(CreatingFolders)
	prog.report(0, fmt.Sprintf("Creating %d folder(s)", len(toCreate)))

	folderPhase := Reconcile(im.lib, toCreate, nil)
	affected := newIDSet(folderPhase.AffectedFolders)
	result.CreatedFolders = append(result.CreatedFolders, folderPhase.CreatedFolders...)

	// =========================================================================
	// STEP 3: PARSE ICONS
	// =========================================================================

	im.setState(ParsingIcons)
	prog.report(0, "Reading icons")

	iconSheet, err := xlsxparser.FindSheet(doc, xlsxparser.Icons)
	if err != nil {
		return nil, im.fail(err)
	}
	if iconSheet == nil && folderSheet == nil {
		return nil, im.fail(&xlsxparser.FormatError{Err: xlsxparser.ErrNoUsableSheet})
	}

	var iconRecords []types.IconRecord
	if iconSheet != nil {
		iconRecords = xlsxparser.ExtractIcons(iconSheet)
	}

	snapshot := dedup.SnapshotTitles(im.lib.Snapshot())
	groups, skipped := dedup.PartitionIcons(iconRecords, snapshot)
	result.Summary.SkippedIcons = skipped

	im.log.Info("icon records parsed",
		slog.Int("records", len(iconRecords)),
		slog.Int("duplicates", skipped))

	// =========================================================================
	// STEP 4: FETCH IMAGES
	// =========================================================================

	im.setState(FetchingAndCreating)

	batches, failures := im.fetchAll(ctx, groups, prog)
	result.Failures = failures
	result.Summary.FailedIcons = len(failures)

	if err := ctx.Err(); err != nil {
		result.Summary.CreatedFolders = len(result.CreatedFolders)
		result.Summary.AffectedFolders = affected.len()
		result.Duration = time.Since(start)
		return result, im.cancelled(err)
	}

	// =========================================================================
	// STEP 5: RECONCILE ICONS
	// =========================================================================

	im.setState(Reconciling)
	prog.report(1, "Saving icons")

	iconPhase := Reconcile(im.lib, nil, batches)
	affected.add(iconPhase.AffectedFolders...)
	result.CreatedFolders = append(result.CreatedFolders, iconPhase.CreatedFolders...)

	// =========================================================================
	// COMPLETE
	// =========================================================================

	result.Summary.CreatedIcons = iconPhase.CreatedIcons
	result.Summary.CreatedFolders = len(result.CreatedFolders)
	result.Summary.AffectedFolders = affected.len()
	result.Duration = time.Since(start)

	im.setState(Done)
	prog.finish(result.Summary.Text())

	im.log.Info("import complete",
		slog.Int("created_icons", result.Summary.CreatedIcons),
		slog.Int("skipped_icons", result.Summary.SkippedIcons),
		slog.Int("failed_icons", result.Summary.FailedIcons),
		slog.Int("affected_folders", result.Summary.AffectedFolders),
		slog.Duration("duration", result.Duration))

	return result, nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// fetchAll downloads every record's image. Records keep their group and
// extraction order in the returned batches; failed records are left out.
// Once ctx is cancelled no further fetches start.
func (im *Importer) fetchAll(ctx context.Context, groups []dedup.FolderIcons, prog *progress) ([]IconGroup, []types.FailedIcon) {
	type job struct{ group, index int }

	var jobs []job
	images := make([][][]byte, len(groups))
	for g, group := range groups {
		images[g] = make([][]byte, len(group.Records))
		for i := range group.Records {
			jobs = append(jobs, job{group: g, index: i})
		}
	}

	total := len(jobs)
	prog.report(0, fmt.Sprintf("Downloading %d image(s)", total))

	var (
		mu       sync.Mutex
		done     int
		failures = make([]*types.FailedIcon, total)
	)

	var eg errgroup.Group
	eg.SetLimit(im.concurrency)

	for n, j := range jobs {
		if ctx.Err() != nil {
			break
		}
		eg.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			rec := groups[j.group].Records[j.index]

			image, err := im.fetcher.Fetch(ctx, rec.ImageLink)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				im.log.Warn("image fetch failed",
					slog.String("icon", rec.IconName),
					slog.String("folder", rec.FolderName),
					slog.String("error", err.Error()))
				failures[n] = &types.FailedIcon{
					Title:  rec.IconName,
					Folder: rec.FolderName,
					Link:   rec.ImageLink,
					Reason: err.Error(),
				}
			} else {
				images[j.group][j.index] = image
			}

			mu.Lock()
			done++
			prog.report(float64(done)/float64(total), fmt.Sprintf("Downloaded %d of %d image(s)", done, total))
			mu.Unlock()
			return nil
		})
	}
	_ = eg.Wait()

	var failed []types.FailedIcon
	for _, f := range failures {
		if f != nil {
			failed = append(failed, *f)
		}
	}

	batches := make([]IconGroup, 0, len(groups))
	for g, group := range groups {
		batch := IconGroup{FolderName: group.FolderName}
		for i, rec := range group.Records {
			if images[g][i] != nil {
				batch.Icons = append(batch.Icons, types.NewIcon(rec.IconName, images[g][i]))
			}
		}
		batches = append(batches, batch)
	}
	return batches, failed
}

func (im *Importer) fail(err error) error {
	im.setState(Failed)
	im.log.Error("import failed", slog.String("error", err.Error()))
	return err
}

func (im *Importer) cancelled(cause error) error {
	im.setState(Failed)
	im.log.Warn("import cancelled", slog.String("error", cause.Error()))
	return fmt.Errorf("%w: %w", ErrCancelled, cause)
}

// progress serializes reporter calls and keeps fractions non-decreasing.
type progress struct {
	mu       sync.Mutex
	reporter Reporter
	last     float64
}

func (p *progress) report(fraction float64, status string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if fraction < p.last {
		fraction = p.last
	}
	p.last = fraction
	p.reporter.Progress(fraction, status)
}

func (p *progress) finish(summary string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.last = 1
	p.reporter.Finished(summary)
}

// idSet tracks distinct folder IDs.
type idSet map[uuid.UUID]struct{}

func newIDSet(ids []uuid.UUID) idSet {
	s := make(idSet, len(ids))
	s.add(ids...)
	return s
}

func (s idSet) add(ids ...uuid.UUID) {
	for _, id := range ids {
		s[id] = struct{}{}
	}
}

func (s idSet) len() int { return len(s) }
