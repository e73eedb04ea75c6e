package middleware

import (
	"net/http"
	"strconv"
	"strings"
)

// DefaultMaxBodySize applies when the configured size cannot be parsed.
const DefaultMaxBodySize int64 = 1 << 20

// BodySizeLimit caps request bodies at maxSize ("512KB", "1MB", "2GB" or
// plain bytes).
func BodySizeLimit(maxSize string) Middleware {
	limit := ParseSize(maxSize, DefaultMaxBodySize)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, limit)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ParseSize parses a byte size with an optional KB, MB or GB suffix.
func ParseSize(s string, def int64) int64 {
	s = strings.ToUpper(strings.TrimSpace(s))
	mult := int64(1)
	for suffix, m := range map[string]int64{"KB": 1 << 10, "MB": 1 << 20, "GB": 1 << 30} {
		if strings.HasSuffix(s, suffix) {
			mult = m
			s = strings.TrimSuffix(s, suffix)
			break
		}
	}
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || n <= 0 {
		return def
	}
	return n * mult
}
