package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/oriys/feedcache/internal/config"
	"github.com/oriys/feedcache/internal/domain"
	"github.com/oriys/feedcache/internal/feed"
	"github.com/oriys/feedcache/internal/logging"
)

const maxBodyBytes = 8 << 20

// sessionHeader carries the engine session id that handled a submission, for
// matching a response to its log lines.
const sessionHeader = "X-Feedcache-Session"

// AddItems handles POST /feeds/{name}/items. The request is not atomic:
// when submission i is rejected, submissions 0..i-1 are still persisted.
func (s *Server) AddItems(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	fc, ok := s.lookup(w, name)
	if !ok {
		return
	}

	var subs []domain.Submission
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&subs); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload: expected an array of submissions")
		return
	}

	lock := s.feedLock(name)
	lock.Lock()
	defer lock.Unlock()

	// Submissions before a rejected one stay applied and are flushed; the
	// error body reports how many that was.
	eng := s.engine(r.Context(), name, fc)
	w.Header().Set(sessionHeader, eng.SessionID())
	var rejected *feed.SubmissionError
	if err := eng.Add(r.Context(), subs...); err != nil && !errors.As(err, &rejected) {
		s.fail(w, name, err)
		return
	}
	doc, err := eng.Render(r.Context())
	if err != nil {
		s.fail(w, name, err)
		return
	}
	if rejected != nil {
		writeJSON(w, statusFor(rejected), map[string]interface{}{
			"error":   rejected.Error(),
			"index":   rejected.Index,
			"id":      rejected.ID,
			"applied": rejected.Index,
		})
		return
	}
	writeDocument(w, doc)
}

// RenderFeed handles GET /feeds/{name} and GET /feeds/{name}/feed.json
func (s *Server) RenderFeed(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	fc, ok := s.lookup(w, name)
	if !ok {
		return
	}

	lock := s.feedLock(name)
	lock.Lock()
	defer lock.Unlock()

	doc, err := s.engine(r.Context(), name, fc).Render(r.Context())
	if err != nil {
		s.fail(w, name, err)
		return
	}
	writeDocument(w, doc)
}

// ListItems handles GET /feeds/{name}/items
func (s *Server) ListItems(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	fc, ok := s.lookup(w, name)
	if !ok {
		return
	}

	lock := s.feedLock(name)
	lock.Lock()
	defer lock.Unlock()

	items, err := s.engine(r.Context(), name, fc).Items(r.Context())
	if err != nil {
		s.fail(w, name, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"feed":  name,
		"count": len(items),
		"items": items,
	})
}

// Health handles GET /health
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.cache.Ping(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status": "unavailable",
			"store":  s.cfg.Store.Backend,
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"store":  s.cfg.Store.Backend,
		"feeds":  len(s.cfg.Feeds),
	})
}

func (s *Server) lookup(w http.ResponseWriter, name string) (config.FeedConfig, bool) {
	fc, err := s.cfg.Feed(name)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return config.FeedConfig{}, false
	}
	return fc, true
}

func (s *Server) fail(w http.ResponseWriter, name string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logging.Op().Warn("feed request failed", "feed_name", name, "status", status, "error", err)
	}
	writeError(w, status, err.Error())
}

// statusFor maps engine errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, feed.ErrDuplicateSubmission):
		return http.StatusConflict
	case errors.Is(err, feed.ErrExpiredSubmission):
		return http.StatusUnprocessableEntity
	case feed.IsValidation(err):
		return http.StatusBadRequest
	case errors.Is(err, feed.ErrStoreRead), errors.Is(err, feed.ErrStoreWrite):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeDocument(w http.ResponseWriter, doc []byte) {
	w.Header().Set("Content-Type", "application/feed+json")
	w.WriteHeader(http.StatusOK)
	w.Write(doc)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
