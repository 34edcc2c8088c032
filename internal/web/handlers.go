package web

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ginjaninja78/speakboard/internal/importer"
	"github.com/ginjaninja78/speakboard/internal/library"
	"github.com/ginjaninja78/speakboard/internal/logging"
	"github.com/ginjaninja78/speakboard/internal/types"
	"github.com/ginjaninja78/speakboard/internal/xlsxparser"
)

const (
	defaultPerPage = 50
	maxPerPage     = 500
)

// importResponse is returned by POST /api/imports.
type importResponse struct {
	Summary        types.ImportSummary `json:"summary"`
	Message        string              `json:"message"`
	CreatedFolders []uuid.UUID         `json:"created_folders"`
	Failures       []types.FailedIcon  `json:"failures"`
	DurationMS     int64               `json:"duration_ms"`
	Cancelled      bool                `json:"cancelled,omitempty"`
}

type iconView struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	QuickAccess bool      `json:"quick_access"`
	HasAudio    bool      `json:"has_audio"`
	ImageBytes  int       `json:"image_bytes"`
}

type folderView struct {
	ID        uuid.UUID  `json:"id"`
	Name      string     `json:"name"`
	IsDefault bool       `json:"is_default"`
	IconCount int        `json:"icon_count"`
	Icons     []iconView `json:"icons,omitempty"`
}

type folderPage struct {
	Folders []folderView `json:"folders"`
	Page    int          `json:"page"`
	Pages   int          `json:"pages"`
}

func newIconView(icon types.Icon) iconView {
	return iconView{
		ID:          icon.ID,
		Title:       icon.Title,
		QuickAccess: icon.QuickAccess,
		HasAudio:    len(icon.Audio) > 0,
		ImageBytes:  len(icon.Image),
	}
}

func newFolderView(f *types.Folder, withIcons bool) folderView {
	v := folderView{ID: f.ID, Name: f.Name, IsDefault: f.IsDefault, IconCount: len(f.Icons)}
	if withIcons {
		v.Icons = make([]iconView, 0, len(f.Icons))
		for _, icon := range f.Icons {
			v.Icons = append(v.Icons, newIconView(icon))
		}
	}
	return v
}

// handleImport runs one spreadsheet upload through the import pipeline and
// persists the library.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logging.FromContext(ctx, s.log)

	if err := s.limiter.Acquire(ctx); err != nil {
		if errors.Is(err, ErrTooManyImports) {
			w.Header().Set("Retry-After", "5")
			s.writeError(w, r, http.StatusTooManyRequests, err.Error())
			return
		}
		s.writeError(w, r, http.StatusServiceUnavailable, "request cancelled while waiting for an import slot")
		return
	}
	defer s.limiter.Release()

	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadSize)
	if err := r.ParseMultipartForm(s.opts.MaxUploadSize); err != nil {
		s.writeError(w, r, http.StatusBadRequest, "file too large or invalid form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, "no file provided")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, "failed to read file")
		return
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	im := importer.New(s.lib, s.fetcher,
		importer.WithConcurrency(s.opts.FetchConcurrency),
		importer.WithDocumentOptions(s.opts.Document),
		importer.WithLogger(log.With(slog.String("file", header.Filename))),
	)

	result, runErr := im.ImportNamed(ctx, header.Filename, data)
	if runErr != nil && !errors.Is(runErr, importer.ErrCancelled) {
		if errors.Is(runErr, xlsxparser.ErrInvalidFormat) {
			s.writeError(w, r, http.StatusUnprocessableEntity, runErr.Error())
			return
		}
		s.writeError(w, r, http.StatusInternalServerError, "import failed")
		log.Error("import failed", slog.String("error", runErr.Error()))
		return
	}

	// Folders created before a cancellation stay in the library, so the
	// store is written either way.
	if err := s.store.Save(context.WithoutCancel(ctx), s.lib.Snapshot()); err != nil {
		log.Error("failed to save library", slog.String("error", err.Error()))
		s.writeError(w, r, http.StatusInternalServerError, "failed to save library")
		return
	}

	if runErr != nil {
		s.writeError(w, r, http.StatusServiceUnavailable, runErr.Error())
		return
	}

	failures := result.Failures
	if failures == nil {
		failures = []types.FailedIcon{}
	}
	created := result.CreatedFolders
	if created == nil {
		created = []uuid.UUID{}
	}
	s.writeJSON(w, http.StatusOK, importResponse{
		Summary:        result.Summary,
		Message:        result.Summary.Text(),
		CreatedFolders: created,
		Failures:       failures,
		DurationMS:     result.Duration.Milliseconds(),
	})
}

// handleListFolders returns one page of folders without their icons.
// Query: page (zero-based), per_page.
func (s *Server) handleListFolders(w http.ResponseWriter, r *http.Request) {
	page := queryInt(r, "page", 0)
	perPage := min(queryInt(r, "per_page", defaultPerPage), maxPerPage)
	if perPage <= 0 {
		perPage = defaultPerPage
	}

	items, pages := library.Paginate(s.lib.Folders(), perPage, page)
	views := make([]folderView, 0, len(items))
	for _, f := range items {
		views = append(views, newFolderView(f, false))
	}
	s.writeJSON(w, http.StatusOK, folderPage{Folders: views, Page: page, Pages: pages})
}

// handleGetFolder returns one folder with its icons.
func (s *Server) handleGetFolder(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "folderID"))
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, "invalid folder id")
		return
	}

	f, err := s.lib.Folder(id)
	if errors.Is(err, library.ErrNotFound) {
		s.writeError(w, r, http.StatusNotFound, "folder not found")
		return
	}
	if err != nil {
		s.writeError(w, r, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, newFolderView(f, true))
}

// handleQuickAccess returns every quick-access icon in folder order.
func (s *Server) handleQuickAccess(w http.ResponseWriter, r *http.Request) {
	icons := s.lib.QuickAccess()
	views := make([]iconView, 0, len(icons))
	for _, icon := range icons {
		views = append(views, newIconView(icon))
	}
	s.writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"imports": s.limiter.Status(),
	})
}

// queryInt parses an integer query parameter, returning def when it is
// absent or malformed.
func queryInt(r *http.Request, name string, def int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return def
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return def
	}
	return i
}
