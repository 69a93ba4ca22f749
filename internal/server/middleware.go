package server

import (
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// loggingMiddleware logs method, path, status and duration of every request.
func loggingMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(rw, r)
			logger.Info("Handled request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", rw.statusCode),
				zap.Duration("duration", time.Since(start)))
		})
	}
}

// responseWriter captures the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// authMiddleware requires a Bearer token from validKeys. /api/status stays open.
func authMiddleware(validKeys map[string]struct{}) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/api/status" {
				next.ServeHTTP(w, r)
				return
			}
			authHeader := r.Header.Get("Authorization")
			const prefix = "Bearer "
			if !strings.HasPrefix(authHeader, prefix) {
				w.Header().Set("WWW-Authenticate", `Bearer realm="knowledge-hub"`)
				writeError(w, http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
				return
			}
			token := strings.TrimSpace(strings.TrimPrefix(authHeader, prefix))
			if _, ok := validKeys[token]; !ok {
				w.Header().Set("WWW-Authenticate", `Bearer realm="knowledge-hub", error="invalid_token"`)
				writeError(w, http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ParseAPIKeys turns a list of keys, each possibly comma separated, into a set.
func ParseAPIKeys(values ...string) map[string]struct{} {
	keys := make(map[string]struct{})
	for _, s := range values {
		for _, k := range strings.Split(s, ",") {
			if v := strings.TrimSpace(k); v != "" {
				keys[v] = struct{}{}
			}
		}
	}
	return keys
}
