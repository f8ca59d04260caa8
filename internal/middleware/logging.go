package middleware

import (
	"log/slog"
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
)

// AccessLog writes one structured line per request. Server errors log at
// error level and client errors at warn.
func AccessLog(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			outcome := "success"
			if status >= 400 {
				outcome = "failure"
			}
			fields := []any{
				"operation", "http_request",
				"outcome", outcome,
				"method", r.Method,
				"path", r.URL.Path,
				"status", status,
				"bytes", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", chimw.GetReqID(r.Context()),
			}
			if id, ok := IdentityFromContext(r.Context()); ok {
				fields = append(fields, "user_id", id.ID.String())
			}

			switch {
			case status >= 500:
				logger.ErrorContext(r.Context(), "http request", fields...)
			case status >= 400:
				logger.WarnContext(r.Context(), "http request", fields...)
			default:
				logger.InfoContext(r.Context(), "http request", fields...)
			}
		})
	}
}
