package middleware

import (
	"net/http"
	"slices"
	"time"

	"github.com/kbukum/riskintel/logger"
)

var quietPaths = []string{"/health", "/api/v1/health"}

// RequestLogger logs method, path, status and duration of every request
// except health probes. 5xx logs at error, 4xx at warn, the rest at debug.
func RequestLogger(log *logger.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if slices.Contains(quietPaths, r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			sw := newStatusWriter(w)
			next.ServeHTTP(sw, r)

			fields := logger.Fields(
				"method", r.Method,
				"path", r.URL.Path,
				logger.FieldStatus, sw.status,
				logger.FieldDuration, time.Since(start).Milliseconds(),
			)
			if id := r.Header.Get(RequestIDHeader); id != "" {
				fields[logger.FieldRequestID] = id
			}
			switch {
			case sw.status >= 500:
				log.Error("request completed", fields)
			case sw.status >= 400:
				log.Warn("request completed", fields)
			default:
				log.Debug("request completed", fields)
			}
		})
	}
}
