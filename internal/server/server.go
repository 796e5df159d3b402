// Package server is the read-only HTTP gateway in front of the object store.
package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/soundcrate/soundcrate/internal/logger"
	"github.com/soundcrate/soundcrate/internal/objectstore"
)

type Server struct {
	objects objectstore.Store
	log     *logger.Logger
}

func New(objects objectstore.Store, log *logger.Logger) *Server {
	return &Server{
		objects: objects,
		log:     log.WithComponent("server"),
	}
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Get("/files/*", s.handleFile)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

// handleFile streams an object by key. Version-scoped keys are never reused,
// so anything under tracks/ can be cached as immutable.
func (s *Server) handleFile(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "*")
	if key == "" || strings.Contains(key, "..") {
		http.Error(w, "invalid key", http.StatusBadRequest)
		return
	}

	data, err := s.objects.Get(r.Context(), key)
	if err != nil {
		if errors.Is(err, objectstore.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		s.log.Error("Failed to fetch object", "key", key, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	contentType := "application/octet-stream"
	if info, err := s.objects.Stat(r.Context(), key); err == nil && info.ContentType != "" {
		contentType = info.ContentType
	}

	w.Header().Set("Content-Type", contentType)
	if strings.HasPrefix(key, "tracks/") {
		w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	} else {
		w.Header().Set("Cache-Control", "public, max-age=300")
	}
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
