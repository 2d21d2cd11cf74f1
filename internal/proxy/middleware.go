package proxy

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/richshaffer/replay/logger"
)

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Info("HTTP request",
			logger.String("method", r.Method),
			logger.String("url", r.URL.String()),
			logger.Int("status", ww.Status()),
			logger.Int("bytes", ww.BytesWritten()),
			logger.Duration("duration", time.Since(start)),
			logger.String("source", ww.Header().Get(SourceHeader)),
			logger.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
