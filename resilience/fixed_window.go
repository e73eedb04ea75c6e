package resilience

import (
	"errors"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// ErrRateLimited is returned by Execute when the current window is exhausted.
var ErrRateLimited = errors.New("rate limit exceeded")

// FixedWindowConfig configures a fixed-window limiter.
type FixedWindowConfig struct {
	// Name identifies this limiter for logging.
	Name string
	// Limit is the number of requests allowed per window. Zero or less disables limiting.
	Limit int
	// Window is the window length.
	Window time.Duration
	// Clock is the time source. Defaults to the wall clock.
	Clock clock.Clock
	// OnLimit is called when a request is rejected.
	OnLimit func(name string, resetIn time.Duration)
}

// WindowState is a point-in-time view of the limiter.
type WindowState struct {
	Requests    int           `json:"requests_in_window"`
	Limit       int           `json:"limit"`
	WindowStart time.Time     `json:"window_start"`
	ResetIn     time.Duration `json:"reset_in"`
}

// FixedWindow counts requests in consecutive fixed windows. When more than
// Window has elapsed since the window started, the count resets.
type FixedWindow struct {
	config FixedWindowConfig
	clock  clock.Clock

	mu          sync.Mutex
	requests    int
	windowStart time.Time
}

// NewFixedWindow creates a limiter whose first window starts now.
func NewFixedWindow(config FixedWindowConfig) *FixedWindow {
	clk := config.Clock
	if clk == nil {
		clk = clock.New()
	}
	if config.Window <= 0 {
		config.Window = time.Minute
	}
	return &FixedWindow{
		config:      config,
		clock:       clk,
		windowStart: clk.Now(),
	}
}

// Available reports whether a request would be admitted, without consuming
// a slot. When it would not, resetIn is the time until the window rolls over.
func (w *FixedWindow) Available() (ok bool, resetIn time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.checkLocked(w.clock.Now())
}

// Acquire admits and counts one request if the window has room.
func (w *FixedWindow) Acquire() (ok bool, resetIn time.Duration) {
	w.mu.Lock()
	ok, resetIn = w.checkLocked(w.clock.Now())
	if ok {
		w.requests++
	}
	w.mu.Unlock()

	if !ok && w.config.OnLimit != nil {
		w.config.OnLimit(w.config.Name, resetIn)
	}
	return ok, resetIn
}

// Execute runs fn if the window admits one more request.
func (w *FixedWindow) Execute(fn func() error) error {
	if ok, _ := w.Acquire(); !ok {
		return ErrRateLimited
	}
	return fn()
}

// Snapshot returns the current window state.
func (w *FixedWindow) Snapshot() WindowState {
	w.mu.Lock()
	defer w.mu.Unlock()
	now := w.clock.Now()
	_, resetIn := w.checkLocked(now)
	return WindowState{
		Requests:    w.requests,
		Limit:       w.config.Limit,
		WindowStart: w.windowStart,
		ResetIn:     resetIn,
	}
}

// Reset starts a fresh window immediately.
func (w *FixedWindow) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.requests = 0
	w.windowStart = w.clock.Now()
}

// Limit returns the configured per-window limit.
func (w *FixedWindow) Limit() int { return w.config.Limit }

// Window returns the configured window length.
func (w *FixedWindow) Window() time.Duration { return w.config.Window }

// checkLocked rolls the window if it has elapsed and evaluates admission.
// Must be called with w.mu held.
func (w *FixedWindow) checkLocked(now time.Time) (bool, time.Duration) {
	elapsed := now.Sub(w.windowStart)
	if elapsed > w.config.Window {
		w.requests = 0
		w.windowStart = now
		elapsed = 0
	}
	if w.config.Limit <= 0 || w.requests < w.config.Limit {
		return true, 0
	}
	return false, w.config.Window - elapsed
}
