// Package web serves the HTTP import API: spreadsheet uploads and read-only
// views of the folder collection.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ginjaninja78/speakboard/internal/fetcher"
	"github.com/ginjaninja78/speakboard/internal/library"
	"github.com/ginjaninja78/speakboard/internal/logging"
	"github.com/ginjaninja78/speakboard/internal/store"
	"github.com/ginjaninja78/speakboard/internal/xlsxparser"
)

// DefaultMaxUploadSize caps multipart uploads when Options leaves it unset.
const DefaultMaxUploadSize = 32 << 20

// Options configures a Server.
type Options struct {
	Addr                 string
	MaxUploadSize        int64
	MaxConcurrentImports int
	ImportWaitTime       time.Duration
	FetchConcurrency     int
	Document             xlsxparser.Options

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// Server is the HTTP server for the import API.
type Server struct {
	lib     *library.Library
	store   store.Store
	fetcher fetcher.Fetcher
	limiter *ImportLimiter
	opts    Options
	log     *slog.Logger

	// writeMu serializes imports and edits so duplicate detection always
	// sees the previous batch and every save writes a consistent library.
	writeMu sync.Mutex

	router *chi.Mux
	server *http.Server
}

// NewServer creates a Server importing into lib and persisting to st.
func NewServer(lib *library.Library, st store.Store, f fetcher.Fetcher, opts Options, logger *slog.Logger) *Server {
	if opts.MaxUploadSize <= 0 {
		opts.MaxUploadSize = DefaultMaxUploadSize
	}
	s := &Server{
		lib:     lib,
		store:   st,
		fetcher: f,
		limiter: NewImportLimiter(opts.MaxConcurrentImports, opts.ImportWaitTime),
		opts:    opts,
		log:     logger.With("component", "web"),
		router:  chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	s.server = &http.Server{
		Addr:         opts.Addr,
		Handler:      s.router,
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
		IdleTimeout:  opts.IdleTimeout,
	}
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.requestLogger)
	s.router.Use(middleware.Recoverer)
}

func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Post("/imports", s.handleImport)
		r.Get("/quick-access", s.handleQuickAccess)

		r.Route("/folders", func(r chi.Router) {
			r.Get("/", s.handleListFolders)
			r.Post("/", s.handleCreateFolder)
			r.Get("/{folderID}", s.handleGetFolder)
			r.Delete("/{folderID}", s.handleDeleteFolder)
			r.Post("/{folderID}/icons", s.handleCreateIcon)
		})

		r.Route("/icons/{iconID}", func(r chi.Router) {
			r.Delete("/", s.handleDeleteIcon)
			r.Put("/quick-access", s.handleSetQuickAccess)
		})
	})
}

// Router returns the chi router for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Limiter returns the import limiter.
func (s *Server) Limiter() *ImportLimiter {
	return s.limiter
}

// Start listens on Options.Addr until Shutdown is called.
func (s *Server) Start() error {
	s.log.Info("starting server", slog.String("addr", s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for running imports.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.server.Shutdown(ctx)
	if drainErr := s.limiter.WaitForDrain(ctx); drainErr != nil {
		s.log.Warn("imports still running at shutdown", slog.Int("active", s.limiter.ActiveCount()))
		err = errors.Join(err, drainErr)
	}
	return err
}

// requestLogger logs method, path, status and duration of every request.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		logging.FromContext(r.Context(), s.log).Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration_ms", time.Since(start).Milliseconds(),
			"ip", r.RemoteAddr,
		)
	})
}

// errorResponse is the body of every non-2xx response.
type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	logging.FromContext(r.Context(), s.log).Warn("request error",
		"path", r.URL.Path,
		"status", status,
		"error", message,
	)
	s.writeJSON(w, status, errorResponse{Error: message})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error("json encode error", slog.String("error", err.Error()))
	}
}
