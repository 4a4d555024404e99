package logging

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Middleware logs the start and end of each request and stores a request
// scoped logger in the context. Completion entries carry the matched chi route
// pattern, and the run id for routes addressing a single run, so log queries
// can group traffic by endpoint instead of by raw path.
func Middleware(logger *Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			requestLogger := logger.WithFields(map[string]interface{}{
				"request_id": middleware.GetReqID(r.Context()),
				"method":     r.Method,
				"path":       r.URL.Path,
				"remote":     r.RemoteAddr,
			})
			requestLogger.Info("Request started")

			ctx := context.WithValue(r.Context(), ctxLoggerKey{}, &CtxLogger{requestLogger})
			next.ServeHTTP(ww, r.WithContext(ctx))

			latency := time.Since(start)
			fields := map[string]interface{}{
				"status":     ww.Status(),
				"bytes":      ww.BytesWritten(),
				"latency_ms": float64(latency.Microseconds()) / 1000.0,
				"user_agent": r.UserAgent(),
			}
			// The router fills the route context in place while matching, so it
			// is only complete after the handler chain returns.
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if pattern := rctx.RoutePattern(); pattern != "" {
					fields["route"] = pattern
				}
				if id := rctx.URLParam("id"); id != "" {
					fields["run_id"] = id
				}
			}

			completed := requestLogger.WithFields(fields)
			switch status := ww.Status(); {
			case status >= http.StatusInternalServerError:
				completed.Error("Request completed", map[string]interface{}{"error": http.StatusText(status)})
			case status >= http.StatusBadRequest:
				completed.Warn("Request completed", map[string]interface{}{"error": http.StatusText(status)})
			default:
				completed.Info("Request completed")
			}
		})
	}
}
