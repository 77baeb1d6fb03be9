package middleware

import (
	"bufio"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"
)

// responseWriter is a wrapper that captures the HTTP status code for logging.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Flush lets server-sent event handlers stream through the wrapper.
func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := rw.ResponseWriter.(http.Hijacker); ok {
		return h.Hijack()
	}
	return nil, nil, errors.New("hijack not supported")
}

func (rw *responseWriter) Unwrap() http.ResponseWriter { return rw.ResponseWriter }

// RequestObserver records a served request by its route pattern.
type RequestObserver func(method, route string, code int, elapsed time.Duration)

// Logging is a middleware factory that logs HTTP requests and, when observe is non-nil, reports them for metrics.
// The route is the matched ServeMux pattern, so ids in paths do not explode label cardinality.
func Logging(logger *slog.Logger, observe RequestObserver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(rw, r)

			duration := time.Since(start)
			route := r.Pattern
			if route == "" {
				route = "unmatched"
			}
			clientID, _ := GetClientID(r.Context())

			logger.Info("handled request",
				"method", r.Method,
				"path", r.URL.Path,
				"route", route,
				"client_id", clientID,
				"remote_addr", ClientIP(r),
				"status", rw.statusCode,
				"duration_ms", duration.Milliseconds(),
			)
			if observe != nil {
				observe(r.Method, route, rw.statusCode, duration)
			}
		})
	}
}
