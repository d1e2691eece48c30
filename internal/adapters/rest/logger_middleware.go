package rest

import (
	"net/http"
	"time"

	"interior-sync-service/internal/contextkeys"
	"interior-sync-service/internal/core/port"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

const traceIDHeader = "X-Trace-ID"

// LoggerMiddleware: trace_id из заголовка (или новый) уходит в контекст вместе с логгером
// и возвращается клиенту. Прогон синхронизации пишет его в каждую свою запись лога.
func LoggerMiddleware(logger port.LoggerPort) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			traceID := r.Header.Get(traceIDHeader)
			if traceID == "" {
				traceID = uuid.New().String()
			}

			reqLogger := logger.WithFields(port.Fields{"trace_id": traceID})
			ctx := contextkeys.ContextWithTraceID(contextkeys.ContextWithLogger(r.Context(), reqLogger), traceID)

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			ww.Header().Set(traceIDHeader, traceID)
			started := time.Now()

			next.ServeHTTP(ww, r.WithContext(ctx))

			fields := port.Fields{
				"http_method":   r.Method,
				"http_path":     r.URL.Path,
				"remote_addr":   r.RemoteAddr,
				"status_code":   ww.Status(),
				"bytes_written": ww.BytesWritten(),
				"duration_ms":   time.Since(started).Milliseconds(),
			}
			switch {
			case r.URL.Path == "/healthz":
				reqLogger.Debug("Health check", fields)
			case ww.Status() >= http.StatusInternalServerError:
				reqLogger.Warn("Request failed", fields)
			default:
				reqLogger.Info("Request finished", fields)
			}
		})
	}
}
