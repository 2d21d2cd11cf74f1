// Package proxy serves the replay engine as a forward HTTP proxy. Clients
// send absolute-form requests (GET http://host/path) and get back handler,
// fixture or network responses; every other request goes to the admin API.
package proxy

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/richshaffer/replay"
	"github.com/richshaffer/replay/logger"
)

// SourceHeader reports where a proxied response came from.
const SourceHeader = "X-Replay-Source"

// hopHeaders are not forwarded.
var hopHeaders = []string{
	"Connection",
	"Proxy-Connection",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Keep-Alive",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

// Server is the proxy handler.
type Server struct {
	rt       *replay.RoundTripper
	log      logger.Logger
	registry *prometheus.Registry
	router   chi.Router
}

// New builds a Server from cfg. The replay engine's fallback requests go
// through a clone of http.DefaultTransport limited by cfg.LiveTimeout.
func New(cfg *Config, log logger.Logger) (*Server, error) {
	if log == nil {
		log = logger.NewNop()
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics, err := replay.NewMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("register metrics: %w", err)
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ResponseHeaderTimeout = cfg.LiveTimeout

	rt, err := cfg.Replay.NewRoundTripper(transport, log, metrics)
	if err != nil {
		return nil, fmt.Errorf("build round tripper: %w", err)
	}
	return NewWithRoundTripper(rt, registry, log), nil
}

// NewWithRoundTripper wraps an existing RoundTripper. registry is served on
// /metrics and may be nil.
func NewWithRoundTripper(rt *replay.RoundTripper, registry *prometheus.Registry, log logger.Logger) *Server {
	if log == nil {
		log = logger.NewNop()
	}
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	s := &Server{rt: rt, log: log, registry: registry}
	s.router = s.routes()
	return s
}

// RoundTripper returns the engine behind the proxy, for registering
// handlers.
func (s *Server) RoundTripper() *replay.RoundTripper {
	return s.rt
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// forwardProxyRequests diverts absolute-form and CONNECT requests away from
// the admin routes.
func (s *Server) forwardProxyRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodConnect:
			http.Error(w, "CONNECT is not supported", http.StatusNotImplemented)
		case r.URL.IsAbs():
			s.handleProxy(w, r)
		default:
			next.ServeHTTP(w, r)
		}
	})
}

func (s *Server) handleProxy(w http.ResponseWriter, r *http.Request) {
	outReq, err := http.NewRequestWithContext(r.Context(), r.Method, r.URL.String(), r.Body)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "bad_request", r.URL.String(), err)
		return
	}
	copyHeaders(outReq.Header, r.Header)
	for _, h := range hopHeaders {
		outReq.Header.Del(h)
	}
	outReq.ContentLength = r.ContentLength

	res, err := s.rt.Resolve(outReq)
	if errors.Is(err, replay.ErrNoMockAvailable) {
		s.writeError(w, http.StatusBadGateway, "no_mock_available", outReq.URL.String(), nil)
		return
	}
	if err != nil {
		s.log.Warn("Upstream request failed", logger.String("url", outReq.URL.String()), logger.Error(err))
		s.writeError(w, http.StatusBadGateway, "upstream_failed", outReq.URL.String(), err)
		return
	}
	defer res.Response.Body.Close()

	copyHeaders(w.Header(), res.Response.Header)
	for _, h := range hopHeaders {
		w.Header().Del(h)
	}
	w.Header().Set(SourceHeader, string(res.Source))
	w.WriteHeader(res.Response.StatusCode)
	if _, err := io.Copy(w, res.Response.Body); err != nil {
		s.log.Debug("Response write failed", logger.Error(err))
	}
}

type errorResponse struct {
	Error   string `json:"error"`
	URL     string `json:"url"`
	Message string `json:"message,omitempty"`
}

func (s *Server) writeError(w http.ResponseWriter, status int, code, url string, err error) {
	body := errorResponse{Error: code, URL: url}
	if err != nil {
		body.Message = err.Error()
	}
	w.Header().Set(SourceHeader, string(replay.SourceNone))
	s.writeJSON(w, status, body)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Headers are already written.
		s.log.Debug("JSON response write failed", logger.Error(err))
	}
}

func copyHeaders(dst, src http.Header) {
	for key, values := range src {
		for _, value := range values {
			dst.Add(key, value)
		}
	}
}
