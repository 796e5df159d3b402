package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/soundcrate/soundcrate/internal/logger"
	"github.com/soundcrate/soundcrate/internal/objectstore"
)

func setupServer(t *testing.T) (*objectstore.MemoryStore, http.Handler) {
	t.Helper()
	objects := objectstore.NewMemoryStore()
	srv := New(objects, logger.New(logger.Config{Level: "error"}))
	return objects, srv.Routes()
}

func TestHealthz(t *testing.T) {
	_, h := setupServer(t)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestServeFile(t *testing.T) {
	objects, h := setupServer(t)
	objects.Put(context.Background(), "tracks/t1/versions/v1/stream.mp3", []byte("audio bytes"), "audio/mpeg")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/files/tracks/t1/versions/v1/stream.mp3", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := rec.Body.String(); got != "audio bytes" {
		t.Errorf("body = %q", got)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "audio/mpeg" {
		t.Errorf("Content-Type = %q, want audio/mpeg", ct)
	}
	// Version-scoped artifacts are immutable.
	if cc := rec.Header().Get("Cache-Control"); cc != "public, max-age=31536000, immutable" {
		t.Errorf("Cache-Control = %q", cc)
	}
}

func TestServeFileShortCacheOutsideTracks(t *testing.T) {
	objects, h := setupServer(t)
	objects.Put(context.Background(), "users/u1/avatar.png", []byte("png"), "image/png")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/files/users/u1/avatar.png", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if cc := rec.Header().Get("Cache-Control"); cc != "public, max-age=300" {
		t.Errorf("Cache-Control = %q, want short-lived", cc)
	}
}

func TestServeFileNotFound(t *testing.T) {
	_, h := setupServer(t)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/files/tracks/missing/versions/v/stream.mp3", nil))

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestServeFileRejectsTraversal(t *testing.T) {
	_, h := setupServer(t)

	req := httptest.NewRequest(http.MethodGet, "/files/x", nil)
	// Build the traversal path directly; NewRequest would reject it.
	req.URL.Path = "/files/../etc/passwd"

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code == http.StatusOK {
		t.Errorf("status = %d for traversal path, want an error", rec.Code)
	}
}
