package proxy

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/richshaffer/replay"
	"github.com/richshaffer/replay/logger"
)

// StatusResponse is the response for GET /admin/status.
type StatusResponse struct {
	LoadDir     string `json:"load_dir"`
	RecordDir   string `json:"record_dir"`
	Fallback    bool   `json:"fallback"`
	Recording   bool   `json:"recording"`
	Repetition  bool   `json:"repetition"`
	HasHandlers bool   `json:"has_handlers"`
}

// FixtureSummary describes one recorded fixture in GET /admin/fixtures.
type FixtureSummary struct {
	Method     string     `json:"method"`
	URL        string     `json:"url"`
	Status     int        `json:"status"`
	Kind       string     `json:"kind"`
	Hash       string     `json:"hash"`
	RecordedAt *time.Time `json:"recorded_at,omitempty"`
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(s.forwardProxyRequests)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	r.Route("/admin", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/fixtures", s.handleListFixtures)
		r.Get("/fixtures/*", s.handleListFixtures)
		r.Post("/counter/reset", s.handleCounterReset)
	})
	return r
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	b := s.rt.Bundle
	s.writeJSON(w, http.StatusOK, StatusResponse{
		LoadDir:     b.LoadDir,
		RecordDir:   b.RecordDir,
		Fallback:    s.rt.Fallback,
		Recording:   b.Recording(),
		Repetition:  b.LoadCounter != nil || b.RecordCounter != nil,
		HasHandlers: b.HasHandlers(),
	})
}

func (s *Server) handleListFixtures(w http.ResponseWriter, r *http.Request) {
	prefix := chi.URLParam(r, "*")
	fixtures, err := s.rt.ListFixtures(prefix)
	if errors.Is(err, replay.ErrInvalidPrefix) {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid host prefix"})
		return
	}
	if err != nil {
		s.log.Error("Failed to list fixtures", logger.String("prefix", prefix), logger.Error(err))
		s.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "list_failed"})
		return
	}

	out := make([]FixtureSummary, 0, len(fixtures))
	for _, p := range fixtures {
		if p.Response == nil {
			continue
		}
		summary := FixtureSummary{
			Method: p.Request.Method,
			URL:    p.Request.URL,
			Kind:   p.Response.Kind.String(),
			Status: p.Response.StatusCode,
			Hash:   p.Identity.Hash,
		}
		if !p.RecordedAt.IsZero() {
			at := p.RecordedAt
			summary.RecordedAt = &at
		}
		out = append(out, summary)
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCounterReset(w http.ResponseWriter, _ *http.Request) {
	b := s.rt.Bundle
	for _, c := range []*replay.Counter{b.LoadCounter, b.RecordCounter} {
		if c != nil {
			c.Reset()
		}
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"message": "Counters reset"})
}
