// Package server exposes the drive over HTTP.
//
// Routing is handled by chi; every operation of the drive service, the
// icon resolver, the searcher, and the optional bookmark store gets a
// JSON endpoint under /api. Errors cross the wire as their error kind
// plus message, mapped onto conventional status codes.
//
// Usage:
//
//	srv := server.New(cfg, log, drive, resolver, searcher, bookmarkStore)
//	if err := srv.Start(); err != nil { ... }
//	...
//	srv.Shutdown(ctx)
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/koustreak/vdrive/internal/bookmarks"
	"github.com/koustreak/vdrive/internal/icons"
	"github.com/koustreak/vdrive/internal/logger"
	"github.com/koustreak/vdrive/internal/objstore"
	"github.com/koustreak/vdrive/internal/search"
	"github.com/koustreak/vdrive/internal/vfs"
)

// Config holds the HTTP listener settings.
type Config struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// DefaultConfig returns production listener settings.
func DefaultConfig() *Config {
	return &Config{
		Addr:            ":8080",
		ReadTimeout:     15 * time.Second,
		WriteTimeout:    30 * time.Second,
		ShutdownTimeout: 10 * time.Second,
	}
}

// Server ties the drive components to an HTTP listener.
type Server struct {
	cfg       *Config
	log       *logger.Logger
	store     objstore.Store
	drive     *vfs.Service
	icons     *icons.Resolver
	search    *search.Searcher
	bookmarks bookmarks.Store // nil disables the bookmark routes

	http *http.Server
}

// New assembles the router. bookmarkStore may be nil, in which case the
// bookmark endpoints are not registered.
func New(cfg *Config, log *logger.Logger, store objstore.Store, drive *vfs.Service,
	resolver *icons.Resolver, searcher *search.Searcher, bookmarkStore bookmarks.Store) *Server {

	if cfg == nil {
		cfg = DefaultConfig()
	}

	s := &Server{
		cfg:       cfg,
		log:       log,
		store:     store,
		drive:     drive,
		icons:     resolver,
		search:    searcher,
		bookmarks: bookmarkStore,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/healthz", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/list", s.handleList)
		r.Get("/search", s.handleSearch)

		r.Route("/folders", func(r chi.Router) {
			r.Post("/", s.handleCreateFolder)
			r.Delete("/", s.handleDeleteFolder)
			r.Post("/rename", s.handleRenameFolder)
		})

		r.Route("/files", func(r chi.Router) {
			r.Delete("/", s.handleDeleteFile)
			r.Post("/rename", s.handleRenameFile)
			r.Get("/download-url", s.handleDownloadURL)
			r.Post("/upload-url", s.handleUploadURL)
		})

		r.Route("/icons", func(r chi.Router) {
			r.Get("/url", s.handleIconURL)
			r.Post("/upload-url", s.handleIconUploadURL)
			r.Post("/refresh", s.handleIconRefresh)
		})

		if s.bookmarks != nil {
			r.Route("/bookmarks", func(r chi.Router) {
				r.Get("/", s.handleListBookmarks)
				r.Put("/", s.handleAddBookmark)
				r.Delete("/", s.handleRemoveBookmark)
			})
		}
	})

	s.http = &http.Server{
		Addr:         cfg.Addr,
		Handler:      r,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

// Handler returns the assembled router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// Start blocks serving HTTP until Shutdown is called or the listener
// fails.
func (s *Server) Start() error {
	s.log.With().Str("addr", s.cfg.Addr).Logger().Info("http server listening")
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests, bounded by ShutdownTimeout.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
	defer cancel()
	return s.http.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
