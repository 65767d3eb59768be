package api

import (
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"library_backend/logging"
)

// RequestIDHeader carries the request id back to the client and into logs.
const RequestIDHeader = "X-Request-ID"

// LoggingMiddleware logs one structured line per request with method, path,
// status, size, duration, client IP and a request id. Paths in SkipPaths
// (health probes) are passed through silently.
type LoggingMiddleware struct {
	logger    *logging.Logger
	skipPaths map[string]struct{}
}

// LoggingMiddlewareConfig configures the LoggingMiddleware.
type LoggingMiddlewareConfig struct {
	// SkipPaths are exact request paths that are never logged.
	SkipPaths []string
}

// NewLoggingMiddleware creates a LoggingMiddleware.
func NewLoggingMiddleware(logger *logging.Logger, config LoggingMiddlewareConfig) *LoggingMiddleware {
	if logger == nil {
		logger = logging.NewNop()
	}
	skip := make(map[string]struct{}, len(config.SkipPaths))
	for _, path := range config.SkipPaths {
		skip[path] = struct{}{}
	}
	return &LoggingMiddleware{
		logger:    logger.Named("http"),
		skipPaths: skip,
	}
}

// Handler wraps next with request logging.
func (m *LoggingMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, skip := m.skipPaths[r.URL.Path]; skip {
			next.ServeHTTP(w, r)
			return
		}

		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, requestID)

		wrapped := &responseWriterWrapper{ResponseWriter: w}
		start := time.Now()

		next.ServeHTTP(wrapped, r)

		m.logger.Infow("request",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", wrapped.Status(),
			"bytes", wrapped.bytesWritten,
			"duration_ms", time.Since(start).Milliseconds(),
			"client_ip", getClientIP(r))
	})
}

// responseWriterWrapper captures the status code and body size written by the
// wrapped handler.
type responseWriterWrapper struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int64
	wroteHeader  bool
}

func (w *responseWriterWrapper) WriteHeader(statusCode int) {
	if w.wroteHeader {
		return
	}
	w.statusCode = statusCode
	w.wroteHeader = true
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *responseWriterWrapper) Write(data []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	n, err := w.ResponseWriter.Write(data)
	w.bytesWritten += int64(n)
	return n, err
}

// Status returns the written status code, defaulting to 200.
func (w *responseWriterWrapper) Status() int {
	if !w.wroteHeader {
		return http.StatusOK
	}
	return w.statusCode
}

// getClientIP extracts the client IP, honoring proxy forwarding headers.
func getClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		// First entry is the original client
		parts := strings.Split(forwarded, ",")
		return strings.TrimSpace(parts[0])
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
