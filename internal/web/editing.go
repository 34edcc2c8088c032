package web

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ginjaninja78/speakboard/internal/library"
	"github.com/ginjaninja78/speakboard/internal/logging"
	"github.com/ginjaninja78/speakboard/internal/types"
	"github.com/ginjaninja78/speakboard/internal/validation"
)

const maxEditBody = 1 << 20

type createFolderRequest struct {
	Name string `json:"name" validate:"notblank"`
}

type createIconRequest struct {
	Title    string `json:"title" validate:"notblank"`
	ImageURL string `json:"image_url" validate:"required,url"`
}

type quickAccessRequest struct {
	QuickAccess bool `json:"quick_access"`
}

// decodeBody reads a JSON body into v and validates it. It writes the error
// response itself and reports whether the handler should continue.
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxEditBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		s.writeError(w, r, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	if err := validation.Struct(v); err != nil {
		s.writeError(w, r, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

// pathID parses a UUID route parameter, writing a 400 when it is malformed.
func (s *Server) pathID(w http.ResponseWriter, r *http.Request, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, "invalid "+param)
		return uuid.Nil, false
	}
	return id, true
}

// commit persists the library after an edit. The caller holds writeMu.
func (s *Server) commit(w http.ResponseWriter, r *http.Request) bool {
	if err := s.store.Save(r.Context(), s.lib.Snapshot()); err != nil {
		logging.FromContext(r.Context(), s.log).Error("failed to save library", slog.String("error", err.Error()))
		s.writeError(w, r, http.StatusInternalServerError, "failed to save library")
		return false
	}
	return true
}

// editError maps library errors onto status codes.
func (s *Server) editError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, library.ErrNotFound):
		s.writeError(w, r, http.StatusNotFound, err.Error())
	case errors.Is(err, library.ErrDefaultFolder):
		s.writeError(w, r, http.StatusConflict, err.Error())
	default:
		s.writeError(w, r, http.StatusInternalServerError, err.Error())
	}
}

// handleCreateFolder appends an empty folder.
func (s *Server) handleCreateFolder(w http.ResponseWriter, r *http.Request) {
	var req createFolderRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	f := s.lib.AddFolder(req.Name, nil)
	if !s.commit(w, r) {
		return
	}
	s.writeJSON(w, http.StatusCreated, newFolderView(f, true))
}

func (s *Server) handleDeleteFolder(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r, "folderID")
	if !ok {
		return
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.lib.DeleteFolder(id); err != nil {
		s.editError(w, r, err)
		return
	}
	if s.commit(w, r) {
		w.WriteHeader(http.StatusNoContent)
	}
}

// handleCreateIcon downloads image_url and appends the icon to the folder.
// Unlike a spreadsheet import a failed download fails the request.
func (s *Server) handleCreateIcon(w http.ResponseWriter, r *http.Request) {
	folderID, ok := s.pathID(w, r, "folderID")
	if !ok {
		return
	}
	var req createIconRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	image, err := s.fetcher.Fetch(r.Context(), req.ImageURL)
	if err != nil {
		s.writeError(w, r, http.StatusBadGateway, err.Error())
		return
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	icon := types.NewIcon(req.Title, image)
	if err := s.lib.AddIcon(folderID, icon); err != nil {
		s.editError(w, r, err)
		return
	}
	if !s.commit(w, r) {
		return
	}
	s.writeJSON(w, http.StatusCreated, newIconView(icon))
}

func (s *Server) handleDeleteIcon(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r, "iconID")
	if !ok {
		return
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.lib.DeleteIcon(id); err != nil {
		s.editError(w, r, err)
		return
	}
	if s.commit(w, r) {
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) handleSetQuickAccess(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r, "iconID")
	if !ok {
		return
	}
	var req quickAccessRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.lib.SetQuickAccess(id, req.QuickAccess); err != nil {
		s.editError(w, r, err)
		return
	}
	if s.commit(w, r) {
		w.WriteHeader(http.StatusNoContent)
	}
}
