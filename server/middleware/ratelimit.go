package middleware

import (
	"encoding/json"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	apperrors "github.com/kbukum/riskintel/errors"
	"github.com/kbukum/riskintel/resilience"
)

// RateLimitConfig bounds API calls per client in a fixed window.
type RateLimitConfig struct {
	// Requests per Window. Zero disables the limiter.
	Requests int           `yaml:"requests" mapstructure:"requests"`
	Window   time.Duration `yaml:"window" mapstructure:"window"`
	// KeyFunc picks the client key. Defaults to the remote IP.
	KeyFunc func(*http.Request) string `yaml:"-" mapstructure:"-"`
	Clock   clock.Clock                `yaml:"-" mapstructure:"-"`
}

// RateLimit keeps one fixed window per client key and answers 429 with a
// Retry-After header when the window is full.
func RateLimit(cfg RateLimitConfig) Middleware {
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = RemoteIP
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	var (
		mu      sync.Mutex
		windows = make(map[string]*resilience.FixedWindow)
	)
	windowFor := func(key string) *resilience.FixedWindow {
		mu.Lock()
		defer mu.Unlock()
		w, ok := windows[key]
		if !ok {
			w = resilience.NewFixedWindow(resilience.FixedWindowConfig{
				Name:   key,
				Limit:  cfg.Requests,
				Window: cfg.Window,
				Clock:  cfg.Clock,
			})
			windows[key] = w
		}
		return w
	}

	return func(next http.Handler) http.Handler {
		if cfg.Requests <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ok, resetIn := windowFor(cfg.KeyFunc(r)).Acquire()
			if !ok {
				appErr := apperrors.New(apperrors.ErrCodeRateLimited, "Too many requests.", http.StatusTooManyRequests).
					WithDetail("reset_in_ms", resetIn.Milliseconds())
				w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(resetIn.Seconds()))))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(appErr.ToResponse())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RemoteIP returns the host part of the request's remote address.
func RemoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
