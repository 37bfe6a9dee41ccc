package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/Aravindmodala/Bookology-sub001/internal/config"
	"github.com/Aravindmodala/Bookology-sub001/internal/markup"
	"github.com/Aravindmodala/Bookology-sub001/internal/media"
	"github.com/Aravindmodala/Bookology-sub001/internal/persist"
)

// Server is the HTTP surface of the editing engine.
type Server struct {
	router   chi.Router
	store    *SessionStore
	backend  *persist.Client
	uploader *media.Uploader
	codec    *markup.Codec
	log      *slog.Logger
	cfg      config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(backend *persist.Client, uploader *media.Uploader, store *SessionStore, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		store:    store,
		backend:  backend,
		uploader: uploader,
		codec:    markup.New(),
		log:      log,
		cfg:      cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	r.Get("/health", s.handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.EditorAPIKey, s.log))

		r.Post("/api/sessions", s.handleOpenSession)
		r.Get("/api/sessions/{sessionID}", s.handleSessionStatus)
		r.Get("/api/sessions/{sessionID}/content", s.handleSessionContent)
		r.Delete("/api/sessions/{sessionID}", s.handleCloseSession)

		r.Post("/api/sessions/{sessionID}/edits", s.handleEdit)
		r.Post("/api/sessions/{sessionID}/undo", s.handleUndo)
		r.Post("/api/sessions/{sessionID}/redo", s.handleRedo)

		r.Post("/api/sessions/{sessionID}/refresh", s.handleRefresh)
		r.Post("/api/sessions/{sessionID}/regenerate", s.handleRegenerate)
		r.Post("/api/sessions/{sessionID}/media", s.handleMediaUpload)

		r.Post("/api/import", s.handleImport)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
