package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"facultyleave/internal/platform/metrics"
	"facultyleave/internal/requestctx"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// Logger writes one access line per request and feeds the collector when one is given.
// Auth and Idempotency, running inside it, add the actor and the idempotency key.
func Logger(collector *metrics.Collector) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ctx, access := requestctx.WithAccess(r.Context())
			recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(recorder, r.WithContext(ctx))
			duration := time.Since(start)

			if collector != nil {
				collector.Record(recorder.status, duration)
			}
			attrs := []any{
				"method", r.Method,
				"path", r.URL.Path,
				"status", recorder.status,
				"durationMs", duration.Milliseconds(),
				"requestId", GetRequestID(r.Context()),
			}
			if access.Actor != "" {
				attrs = append(attrs, "actor", access.Actor, "role", access.Role)
			}
			if access.IdempotencyKey != "" {
				attrs = append(attrs, "idempotencyKey", access.IdempotencyKey)
			}
			if recorder.status >= 500 {
				slog.Error("http request", attrs...)
				return
			}
			slog.Info("http request", attrs...)
		})
	}
}
