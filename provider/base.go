package provider

import (
	"context"
	"errors"
	"slices"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"

	apperrors "github.com/kbukum/riskintel/errors"
	"github.com/kbukum/riskintel/resilience"
)

// Probe is an optional live health check run by IsAvailable after the
// enabled flag and the rate window pass.
type Probe func(ctx context.Context) bool

// ExecFunc performs the provider-specific work for one request.
type ExecFunc func(ctx context.Context, req *Request) (map[string]any, error)

// BaseOption configures a Base.
type BaseOption func(*Base)

// WithClock sets the time source used for the rate window, timeouts and timestamps.
func WithClock(clk clock.Clock) BaseOption {
	return func(b *Base) {
		if clk != nil {
			b.clock = clk
		}
	}
}

// WithProbe installs a live health probe.
func WithProbe(p Probe) BaseOption {
	return func(b *Base) { b.probe = p }
}

// WithRateLimitHook is called whenever the rate window rejects a request.
func WithRateLimitHook(fn func(name string, resetIn time.Duration)) BaseOption {
	return func(b *Base) { b.onLimit = fn }
}

// Base carries the state shared by every concrete provider: identity,
// capabilities, the fixed rate window and health counters. Concrete
// providers embed *Base and implement Complete with Execute.
type Base struct {
	cfg     Config
	caps    Capabilities
	clock   clock.Clock
	probe   Probe
	onLimit func(string, time.Duration)
	limiter *resilience.FixedWindow

	online    atomic.Bool
	healthy   atomic.Bool
	requests  atomic.Int64
	errors    atomic.Int64
	lastCheck atomic.Int64
}

// NewBase builds a Base from configuration. caps are the provider's native
// capabilities; Config.SupportedTypes, when set, narrows them.
func NewBase(cfg Config, caps Capabilities, opts ...BaseOption) *Base {
	cfg.ApplyDefaults()
	b := &Base{
		cfg:   cfg,
		caps:  narrow(caps, cfg.SupportedTypes),
		clock: clock.New(),
	}
	b.healthy.Store(true)
	for _, opt := range opts {
		opt(b)
	}
	b.limiter = resilience.NewFixedWindow(resilience.FixedWindowConfig{
		Name:    cfg.ID,
		Limit:   cfg.RateLimit.Requests,
		Window:  cfg.RateLimit.Window(),
		Clock:   b.clock,
		OnLimit: b.onLimit,
	})
	return b
}

func narrow(caps Capabilities, only []RequestType) Capabilities {
	if len(only) == 0 {
		return caps
	}
	out := caps
	out.SupportedRequestTypes = nil
	for _, t := range caps.SupportedRequestTypes {
		if slices.Contains(only, t) {
			out.SupportedRequestTypes = append(out.SupportedRequestTypes, t)
		}
	}
	return out
}

func (b *Base) ID() string                 { return b.cfg.ID }
func (b *Base) Name() string               { return b.cfg.Name }
func (b *Base) Tier() Tier                 { return b.cfg.PriorityTier }
func (b *Base) Enabled() bool              { return b.cfg.Enabled }
func (b *Base) Capabilities() Capabilities { return b.caps }

// Config returns a copy of the provider configuration.
func (b *Base) Config() Config { return b.cfg }

// Clock returns the provider's time source.
func (b *Base) Clock() clock.Clock { return b.clock }

// Init marks the provider online. Providers with setup work override it and
// call MarkOnline themselves.
func (b *Base) Init(_ context.Context) error {
	b.MarkOnline(true)
	return nil
}

// Close marks the provider offline. Safe to call repeatedly.
func (b *Base) Close(_ context.Context) error {
	b.MarkOnline(false)
	return nil
}

// MarkOnline sets the online flag.
func (b *Base) MarkOnline(online bool) {
	b.online.Store(online)
}

// Online reports the online flag.
func (b *Base) Online() bool { return b.online.Load() }

// IsAvailable composes the enabled flag, the rate window and the optional
// probe, in that order. It never consumes a rate window slot. The probe runs
// on every call and only records its result in the healthy flag, so a
// provider comes back as soon as its probe passes again.
func (b *Base) IsAvailable(ctx context.Context) bool {
	b.touch()
	if !b.cfg.Enabled || !b.online.Load() {
		return false
	}
	if ok, _ := b.limiter.Available(); !ok {
		return false
	}
	if b.probe == nil {
		return true
	}
	ok := b.probe(ctx)
	b.healthy.Store(ok)
	return ok
}

// Status returns the provider's health counters and rate window.
func (b *Base) Status() Status {
	window := b.limiter.Snapshot()
	available := b.cfg.Enabled && b.online.Load() && b.healthy.Load() &&
		(window.Limit <= 0 || window.Requests < window.Limit)
	var last time.Time
	if ns := b.lastCheck.Load(); ns != 0 {
		last = time.Unix(0, ns).UTC()
	}
	return Status{
		ID:           b.cfg.ID,
		Name:         b.cfg.Name,
		Tier:         b.cfg.PriorityTier,
		Enabled:      b.cfg.Enabled,
		Online:       b.online.Load(),
		Healthy:      b.healthy.Load(),
		Available:    available,
		ErrorCount:   b.errors.Load(),
		RequestCount: b.requests.Load(),
		LastCheck:    last,
		RateLimit:    window,
	}
}

// Execute runs fn under the provider's admission rules: the request type
// must be supported, the rate window must have room, and fn must finish
// within the request timeout (Options.Timeout, else the configured one).
// A result that arrives after the deadline is discarded.
func (b *Base) Execute(ctx context.Context, req *Request, fn ExecFunc) (*Response, error) {
	if !b.caps.Supports(req.Type) {
		return nil, apperrors.UnsupportedType(b.cfg.ID, string(req.Type))
	}
	if ok, resetIn := b.limiter.Acquire(); !ok {
		return nil, apperrors.RateLimited(b.cfg.ID, resetIn)
	}

	b.requests.Add(1)
	start := b.clock.Now()
	defer b.touch()

	timeout := req.Options.Timeout
	if timeout <= 0 {
		timeout = b.cfg.Timeout()
	}
	// A shorter caller deadline is the one that fires; report that.
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := deadline.Sub(start); remaining < timeout {
			timeout = max(remaining, 0)
		}
	}
	attemptCtx, cancel := b.clock.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		data map[string]any
		err  error
	}
	done := make(chan result, 1)
	go func() {
		data, err := fn(attemptCtx, req)
		done <- result{data: data, err: err}
	}()

	var (
		data map[string]any
		err  error
	)
	select {
	case r := <-done:
		data, err = r.data, r.err
	case <-attemptCtx.Done():
		if ctx.Err() != nil && !errors.Is(ctx.Err(), context.DeadlineExceeded) {
			err = apperrors.Canceled(ctx.Err())
		} else {
			err = apperrors.Timeout(b.cfg.ID, timeout)
		}
	}

	if err != nil {
		b.errors.Add(1)
		return nil, apperrors.NormalizeFor(b.cfg.ID, err)
	}

	resp := Succeeded(req.ID, data)
	resp.Metadata = Metadata{
		Provider:       b.cfg.Name,
		ProviderID:     b.cfg.ID,
		Timestamp:      b.clock.Now().UTC(),
		ProcessingTime: b.clock.Since(start),
		Attempts:       1,
	}
	return resp, nil
}

func (b *Base) touch() {
	b.lastCheck.Store(b.clock.Now().UnixNano())
}
