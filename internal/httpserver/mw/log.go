package mw

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/MrSnakeDoc/relay/internal/logger"
)

// attemptHeader is set by the relay handler; the access line copies it so it
// joins the relay_attempt line.
const attemptHeader = "X-Relay-Attempt-Id"

// Log writes one access line per request. 5xx answers, and requests where the
// handler wrote nothing because the caller went away, are logged at warn.
func Log(log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			fields := []logger.Field{
				logger.String("method", r.Method),
				logger.String("path", r.URL.Path),
				logger.Int("status", status),
				logger.Int("bytes", ww.BytesWritten()),
				logger.Duration("duration", time.Since(start)),
				logger.String("remote_addr", r.RemoteAddr),
				logger.String("request_id", middleware.GetReqID(r.Context())),
			}
			if id := ww.Header().Get(attemptHeader); id != "" {
				fields = append(fields, logger.String("attempt_id", id))
			}

			if status == 0 || status >= http.StatusInternalServerError {
				log.Warn("http_request", fields...)
				return
			}
			log.Info("http_request", fields...)
		})
	}
}
