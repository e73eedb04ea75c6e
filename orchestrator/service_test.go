package orchestrator

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/kbukum/riskintel/cache"
	apperrors "github.com/kbukum/riskintel/errors"
	"github.com/kbukum/riskintel/events"
	"github.com/kbukum/riskintel/logger"
	"github.com/kbukum/riskintel/provider"
	"github.com/kbukum/riskintel/provider/offline"
)

const fakeKind = "fake"

// fakeProvider counts the calls that reach the provider body.
type fakeProvider struct {
	*provider.Base
	calls   atomic.Int32
	fn      provider.ExecFunc
	initErr error
}

func (p *fakeProvider) Init(ctx context.Context) error {
	if p.initErr != nil {
		return p.initErr
	}
	return p.Base.Init(ctx)
}

func (p *fakeProvider) Complete(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	return p.Execute(ctx, req, func(ctx context.Context, req *provider.Request) (map[string]any, error) {
		p.calls.Add(1)
		return p.fn(ctx, req)
	})
}

type harness struct {
	svc   *Service
	clock *clock.Mock

	mu       sync.Mutex
	fakes    map[string]*fakeProvider
	behavior map[string]provider.ExecFunc
	initErrs map[string]error
}

func newHarness(cfg Config) *harness {
	h := &harness{
		clock:    clock.NewMock(),
		fakes:    make(map[string]*fakeProvider),
		behavior: make(map[string]provider.ExecFunc),
		initErrs: make(map[string]error),
	}
	factory := func(pc provider.Config) (provider.Provider, error) {
		h.mu.Lock()
		defer h.mu.Unlock()
		fn := h.behavior[pc.ID]
		if fn == nil {
			id := pc.ID
			fn = func(context.Context, *provider.Request) (map[string]any, error) {
				return map[string]any{"by": id}, nil
			}
		}
		p := &fakeProvider{
			Base: provider.NewBase(pc, provider.Capabilities{SupportedRequestTypes: provider.KnownRequestTypes()},
				provider.WithClock(h.clock)),
			fn:      fn,
			initErr: h.initErrs[pc.ID],
		}
		h.fakes[pc.ID] = p
		return p, nil
	}
	h.svc = New(cfg,
		WithClock(h.clock),
		WithLogger(logger.NewNop()),
		WithEventBus(events.NewBus(logger.NewNop())),
		WithFactory(fakeKind, factory),
	)
	return h
}

func (h *harness) fake(id string) *fakeProvider {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.fakes[id]
}

// recorder counts events by kind.
type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recorder) listen(e events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) count(kind events.Kind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

func fakeConfig(id, name string, tier provider.Tier) provider.Config {
	return provider.Config{ID: id, Name: name, Kind: fakeKind, Enabled: true, PriorityTier: tier}
}

func twoProviderConfig() Config {
	return Config{
		Providers: []provider.Config{
			fakeConfig("providerA", "Provider A", provider.TierPrimary),
			fakeConfig("providerB", "Provider B", provider.TierFallback),
		},
		FallbackProvider: "providerB",
	}
}

func initHarness(t *testing.T, h *harness) *recorder {
	t.Helper()
	if err := h.svc.Initialize(context.Background()); err != nil {
		t.Fatalf("initialize failed: %v", err)
	}
	rec := &recorder{}
	h.svc.AddEventListener(rec.listen)
	return rec
}

func TestRequest_FallbackAfterNetworkError(t *testing.T) {
	h := newHarness(twoProviderConfig())
	h.behavior["providerA"] = func(context.Context, *provider.Request) (map[string]any, error) {
		return nil, errors.New("dial tcp 10.0.0.7:443: connection refused")
	}
	h.behavior["providerB"] = func(context.Context, *provider.Request) (map[string]any, error) {
		return map[string]any{"x": 1}, nil
	}
	rec := initHarness(t, h)

	resp := h.svc.Request(context.Background(), Input{Type: provider.TypeCompromiseAnalysis, Data: map[string]any{"domain": "acme.test"}})

	if !resp.Success {
		t.Fatalf("expected success, got %+v", resp.Error)
	}
	if resp.Data["x"] != 1 {
		t.Errorf("expected data.x = 1, got %v", resp.Data["x"])
	}
	if resp.Metadata.Provider != "Provider B" {
		t.Errorf("expected metadata provider %q, got %q", "Provider B", resp.Metadata.Provider)
	}
	if resp.Metadata.Attempts != 2 {
		t.Errorf("expected 2 attempts, got %d", resp.Metadata.Attempts)
	}
	if got := h.svc.GetState().CurrentProvider; got != "providerB" {
		t.Errorf("expected current provider providerB, got %q", got)
	}
	if n := rec.count(events.ProviderChanged); n != 1 {
		t.Errorf("expected 1 provider-changed event, got %d", n)
	}
	if n := rec.count(events.ErrorOccurred); n != 1 {
		t.Errorf("expected 1 error-occurred event, got %d", n)
	}
	if n := rec.count(events.RequestCompleted); n != 1 {
		t.Errorf("expected 1 request-completed event, got %d", n)
	}
}

func TestRequest_UnsupportedTypeMakesNoCall(t *testing.T) {
	cfg := twoProviderConfig()
	cfg.Providers[0].SupportedTypes = []provider.RequestType{provider.TypeCompromiseAnalysis}
	cfg.Cache = cache.Config{Enabled: true}
	h := newHarness(cfg)
	rec := initHarness(t, h)

	resp := h.svc.Request(context.Background(), Input{
		Type:    provider.TypeThreatContext,
		Data:    map[string]any{"indicator": "198.51.100.4"},
		Options: provider.Options{Cache: true},
	})

	if resp.Success || resp.Error == nil {
		t.Fatal("expected failure")
	}
	if resp.Error.Code != apperrors.ErrCodeUnsupportedType {
		t.Errorf("expected UNSUPPORTED_TYPE, got %s", resp.Error.Code)
	}
	if resp.Error.Retryable {
		t.Error("expected unsupported type to be non-retryable")
	}
	if n := h.fake("providerA").calls.Load() + h.fake("providerB").calls.Load(); n != 0 {
		t.Errorf("expected no provider calls, got %d", n)
	}
	if n := h.svc.cache.Len(); n != 0 {
		t.Errorf("expected no cache writes, got %d entries", n)
	}
	if n := rec.count(events.ProviderChanged); n != 0 {
		t.Errorf("expected no provider switch, got %d", n)
	}
}

func TestRequest_CacheHitAndExpiry(t *testing.T) {
	cfg := twoProviderConfig()
	cfg.Cache = cache.Config{Enabled: true, TTL: time.Hour}
	h := newHarness(cfg)
	initHarness(t, h)

	in := Input{
		Type:    provider.TypeCompanyEnrichment,
		Data:    map[string]any{"company": "Acme", "country": "DE"},
		Options: provider.Options{Cache: true},
	}

	first := h.svc.Request(context.Background(), in)
	if !first.Success || first.Metadata.Provider != "Provider A" {
		t.Fatalf("expected first call to dispatch to Provider A, got %+v", first.Metadata)
	}

	h.clock.Add(3599 * time.Second)
	second := h.svc.Request(context.Background(), in)
	if second.Metadata.Provider != CacheProvider || !second.Metadata.Cached {
		t.Errorf("expected cache hit, got provider %q", second.Metadata.Provider)
	}
	if second.Metadata.ProcessingTime != 0 {
		t.Errorf("expected zero processing time on hit, got %s", second.Metadata.ProcessingTime)
	}
	if second.ID == first.ID {
		t.Error("expected a fresh request id on a cache hit")
	}
	if n := h.fake("providerA").calls.Load(); n != 1 {
		t.Errorf("expected 1 provider call after hit, got %d", n)
	}

	h.clock.Add(2 * time.Second)
	third := h.svc.Request(context.Background(), in)
	if third.Metadata.Provider != "Provider A" {
		t.Errorf("expected expired entry to dispatch again, got %q", third.Metadata.Provider)
	}
	if n := h.fake("providerA").calls.Load(); n != 2 {
		t.Errorf("expected 2 provider calls, got %d", n)
	}
}

func TestRequest_CachedDataIsolatedFromCallers(t *testing.T) {
	cfg := twoProviderConfig()
	cfg.Cache = cache.Config{Enabled: true, TTL: time.Hour}
	h := newHarness(cfg)
	initHarness(t, h)

	in := Input{
		Type:    provider.TypeThreatContext,
		Data:    map[string]any{"company": "Acme"},
		Options: provider.Options{Cache: true},
	}
	first := h.svc.Request(context.Background(), in)
	if !first.Success {
		t.Fatalf("expected success, got %+v", first.Error)
	}
	first.Data["by"] = "edited"

	second := h.svc.Request(context.Background(), in)
	if second.Metadata.Provider != CacheProvider {
		t.Fatalf("expected cache hit, got %q", second.Metadata.Provider)
	}
	if second.Data["by"] != "providerA" {
		t.Errorf("expected cached data unchanged, got %v", second.Data)
	}
	second.Data["by"] = "edited again"

	third := h.svc.Request(context.Background(), in)
	if third.Data["by"] != "providerA" {
		t.Errorf("expected each hit to get its own copy, got %v", third.Data)
	}
}

func TestEvents_StampedWithServiceClock(t *testing.T) {
	h := newHarness(twoProviderConfig())
	rec := initHarness(t, h)
	h.clock.Add(42 * time.Minute)

	h.svc.Request(context.Background(), Input{Type: provider.TypeThreatContext, Data: map[string]any{"company": "Acme"}})

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.events) == 0 {
		t.Fatal("expected events")
	}
	for _, e := range rec.events {
		if !e.Timestamp.Equal(h.clock.Now()) {
			t.Errorf("%s stamped %s, want %s", e.Kind, e.Timestamp, h.clock.Now())
		}
	}
}

func TestRequest_CacheRequiresOptIn(t *testing.T) {
	cfg := twoProviderConfig()
	cfg.Cache = cache.Config{Enabled: true}
	h := newHarness(cfg)
	initHarness(t, h)

	in := Input{Type: provider.TypeRiskCommentary, Data: map[string]any{"company": "Acme"}}
	h.svc.Request(context.Background(), in)
	h.svc.Request(context.Background(), in)

	if n := h.fake("providerA").calls.Load(); n != 2 {
		t.Errorf("expected both calls to dispatch, got %d", n)
	}
	if n := h.svc.cache.Len(); n != 0 {
		t.Errorf("expected empty cache, got %d", n)
	}
}

func TestRequest_AuthShortCircuits(t *testing.T) {
	h := newHarness(twoProviderConfig())
	h.behavior["providerA"] = func(context.Context, *provider.Request) (map[string]any, error) {
		return nil, apperrors.Auth("providerA", "invalid api key")
	}
	rec := initHarness(t, h)

	resp := h.svc.Request(context.Background(), Input{Type: provider.TypeRiskCommentary})

	if resp.Success || resp.Error.Code != apperrors.ErrCodeAuth {
		t.Fatalf("expected AUTH failure, got %+v", resp)
	}
	if n := h.fake("providerB").calls.Load(); n != 0 {
		t.Errorf("expected no fallback call, got %d", n)
	}
	if got := h.svc.GetState().CurrentProvider; got != "providerA" {
		t.Errorf("expected active provider unchanged, got %q", got)
	}
	if n := rec.count(events.ErrorOccurred); n != 1 {
		t.Errorf("expected 1 error-occurred event, got %d", n)
	}
	if n := rec.count(events.ProviderChanged); n != 0 {
		t.Errorf("expected no provider-changed event, got %d", n)
	}
}

func TestRequest_FallbackFailureIsFinal(t *testing.T) {
	h := newHarness(twoProviderConfig())
	failing := func(context.Context, *provider.Request) (map[string]any, error) {
		return nil, errors.New("503 service unavailable")
	}
	h.behavior["providerA"] = failing
	h.behavior["providerB"] = failing
	rec := initHarness(t, h)

	resp := h.svc.Request(context.Background(), Input{Type: provider.TypeThreatContext})

	if resp.Success {
		t.Fatal("expected failure")
	}
	if resp.Error.Code != apperrors.ErrCodeServiceError {
		t.Errorf("expected SERVICE_ERROR, got %s", resp.Error.Code)
	}
	if resp.Metadata.ProviderID != "providerB" || resp.Metadata.Attempts != 2 {
		t.Errorf("expected final attempt on providerB after 2 attempts, got %+v", resp.Metadata)
	}
	total := h.fake("providerA").calls.Load() + h.fake("providerB").calls.Load()
	if total != 2 {
		t.Errorf("expected exactly 2 provider calls, got %d", total)
	}
	if n := rec.count(events.ErrorOccurred); n != 2 {
		t.Errorf("expected 2 error-occurred events, got %d", n)
	}
	if st := h.svc.GetState(); st.LastError == nil || st.LastError.Code != apperrors.ErrCodeServiceError {
		t.Errorf("expected last error to be recorded, got %+v", st.LastError)
	}
}

func TestRequest_UnavailablePrimaryIsSkippedSilently(t *testing.T) {
	h := newHarness(twoProviderConfig())
	h.initErrs["providerA"] = errors.New("missing api key")
	rec := initHarness(t, h)

	resp := h.svc.Request(context.Background(), Input{Type: provider.TypeCompromiseAnalysis})

	if !resp.Success || resp.Metadata.ProviderID != "providerB" {
		t.Fatalf("expected fallback success, got %+v", resp)
	}
	if n := h.fake("providerA").calls.Load(); n != 0 {
		t.Errorf("expected offline primary not to be called, got %d", n)
	}
	if n := rec.count(events.ErrorOccurred); n != 0 {
		t.Errorf("expected no error-occurred event for a skip, got %d", n)
	}
	if n := rec.count(events.ProviderChanged); n != 1 {
		t.Errorf("expected 1 provider-changed event, got %d", n)
	}
}

func TestRequest_RateLimitedProviderRecovers(t *testing.T) {
	pc := fakeConfig("providerA", "Provider A", provider.TierFallback)
	pc.RateLimit = provider.RateLimitConfig{Requests: 1, WindowS: 60}
	h := newHarness(Config{Providers: []provider.Config{pc}, FallbackProvider: "providerA"})
	initHarness(t, h)

	in := Input{Type: provider.TypeRiskCommentary}
	if resp := h.svc.Request(context.Background(), in); !resp.Success {
		t.Fatalf("expected first request to succeed, got %+v", resp.Error)
	}

	resp := h.svc.Request(context.Background(), in)
	if resp.Success || resp.Error.Code != apperrors.ErrCodeRateLimited {
		t.Fatalf("expected RATE_LIMITED, got %+v", resp)
	}
	if !resp.Error.Retryable {
		t.Error("expected rate limit to be retryable")
	}
	if st := h.svc.GetState().Providers["providerA"]; st.RequestCount != 1 {
		t.Errorf("expected rejected request not to be counted, got %d", st.RequestCount)
	}

	h.clock.Add(61 * time.Second)
	if resp := h.svc.Request(context.Background(), in); !resp.Success {
		t.Errorf("expected request after window to succeed, got %+v", resp.Error)
	}
}

func TestRequest_RateLimitedPrimaryFallsBack(t *testing.T) {
	cfg := twoProviderConfig()
	cfg.Providers[0].RateLimit = provider.RateLimitConfig{Requests: 1, WindowS: 60}
	h := newHarness(cfg)
	initHarness(t, h)

	in := Input{Type: provider.TypeCompanyEnrichment}
	h.svc.Request(context.Background(), in)
	resp := h.svc.Request(context.Background(), in)

	if !resp.Success || resp.Metadata.ProviderID != "providerB" {
		t.Fatalf("expected fallback to serve the rate-limited request, got %+v", resp.Metadata)
	}

	h.clock.Add(61 * time.Second)
	if err := h.svc.SwitchProvider("providerA"); err != nil {
		t.Fatalf("switch failed: %v", err)
	}
	resp = h.svc.Request(context.Background(), in)
	if resp.Metadata.ProviderID != "providerA" {
		t.Errorf("expected restored primary to serve, got %q", resp.Metadata.ProviderID)
	}
}

func TestRequest_Validation(t *testing.T) {
	h := newHarness(twoProviderConfig())

	resp := h.svc.Request(context.Background(), Input{Type: provider.TypeRiskCommentary})
	if resp.Success || resp.Error.Code != apperrors.ErrCodeConfiguration {
		t.Errorf("expected CONFIGURATION before initialize, got %+v", resp.Error)
	}

	initHarness(t, h)
	resp = h.svc.Request(context.Background(), Input{})
	if resp.Success || resp.Error.Code != apperrors.ErrCodeInvalidInput {
		t.Errorf("expected INVALID_INPUT for empty type, got %+v", resp.Error)
	}
	if resp.ID == "" {
		t.Error("expected a request id even on failure")
	}
}

func TestRequest_UniqueIDs(t *testing.T) {
	h := newHarness(twoProviderConfig())
	initHarness(t, h)

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		resp := h.svc.Request(context.Background(), Input{Type: provider.TypeRiskCommentary})
		if seen[resp.ID] {
			t.Fatalf("duplicate request id %s", resp.ID)
		}
		seen[resp.ID] = true
	}
}

func TestRequest_ConcurrentCallsShareWindow(t *testing.T) {
	cfg := twoProviderConfig()
	cfg.Providers[0].RateLimit = provider.RateLimitConfig{Requests: 5, WindowS: 60}
	h := newHarness(cfg)
	initHarness(t, h)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.svc.Request(context.Background(), Input{Type: provider.TypeThreatContext})
		}()
	}
	wg.Wait()

	if n := h.fake("providerA").calls.Load(); n > 5 {
		t.Errorf("expected at most 5 calls inside the window, got %d", n)
	}
	if q := h.svc.GetState().RequestQueue; q != 0 {
		t.Errorf("expected empty queue after completion, got %d", q)
	}
}

func TestEvents_PanickingListenerDoesNotBreakDispatch(t *testing.T) {
	h := newHarness(twoProviderConfig())
	initHarness(t, h)
	h.svc.AddEventListener(func(events.Event) { panic("listener bug") })
	rec := &recorder{}
	id := h.svc.AddEventListener(rec.listen)

	resp := h.svc.Request(context.Background(), Input{Type: provider.TypeRiskCommentary})
	if !resp.Success {
		t.Fatalf("expected success, got %+v", resp.Error)
	}
	if n := rec.count(events.RequestCompleted); n != 1 {
		t.Errorf("expected listener after panicking one to run, got %d events", n)
	}

	if !h.svc.RemoveEventListener(id) {
		t.Error("expected listener to be removed")
	}
	h.svc.Request(context.Background(), Input{Type: provider.TypeRiskCommentary})
	if n := rec.count(events.RequestCompleted); n != 1 {
		t.Errorf("expected no delivery after removal, got %d", n)
	}
}

func TestInitialize_BuiltinOfflineFallback(t *testing.T) {
	h := newHarness(Config{})
	initHarness(t, h)

	st := h.svc.GetState()
	if st.CurrentProvider != builtinOfflineID {
		t.Errorf("expected built-in offline provider to be active, got %q", st.CurrentProvider)
	}
	if st.Config.FallbackProvider != builtinOfflineID {
		t.Errorf("expected fallback to default to offline, got %q", st.Config.FallbackProvider)
	}

	resp := h.svc.Request(context.Background(), Input{Type: provider.TypeRiskCommentary, Data: map[string]any{"company": "Acme"}})
	if !resp.Success || resp.Metadata.Provider != "Offline Analysis" {
		t.Fatalf("expected offline answer, got %+v", resp)
	}
}

func TestInitialize_OfflineAddedNextToConfiguredProviders(t *testing.T) {
	h := newHarness(Config{
		Providers:        []provider.Config{fakeConfig("providerA", "Provider A", provider.TierPrimary)},
		FallbackProvider: builtinOfflineID,
	})
	initHarness(t, h)

	ids := h.svc.ProviderIDs()
	if len(ids) != 2 || ids[0] != "providerA" || ids[1] != builtinOfflineID {
		t.Errorf("expected [providerA offline], got %v", ids)
	}
	if got := h.svc.GetState().CurrentProvider; got != "providerA" {
		t.Errorf("expected providerA active, got %q", got)
	}
}

func TestInitialize_ImplicitFallbackFollowsRegisteredOffline(t *testing.T) {
	h := newHarness(Config{
		Providers: []provider.Config{
			{ID: builtinOfflineID, Name: "Primary Offline", Kind: offline.Kind, Enabled: true, PriorityTier: provider.TierPrimary},
		},
	})
	initHarness(t, h)

	st := h.svc.GetState()
	if st.CurrentProvider != builtinOfflineID {
		t.Errorf("expected primary-tier offline provider active, got %q", st.CurrentProvider)
	}
	want := builtinOfflineID + "-fallback"
	if st.Config.FallbackProvider != want {
		t.Errorf("expected fallback %q, got %q", want, st.Config.FallbackProvider)
	}
	if st.Config.FallbackProvider == st.CurrentProvider {
		t.Error("fallback must be distinct from the active provider")
	}
}

func TestInitialize_DefaultProviderWins(t *testing.T) {
	cfg := twoProviderConfig()
	cfg.Providers = append(cfg.Providers, fakeConfig("providerC", "Provider C", provider.TierSecondary))
	cfg.DefaultProvider = "providerC"
	h := newHarness(cfg)
	initHarness(t, h)

	if got := h.svc.GetState().CurrentProvider; got != "providerC" {
		t.Errorf("expected default provider active, got %q", got)
	}
}

func TestInitialize_ConfigurationErrors(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*Config)
		initErrs map[string]error
	}{
		{name: "unknown default", mutate: func(c *Config) { c.DefaultProvider = "missing" }},
		{name: "unknown fallback", mutate: func(c *Config) { c.FallbackProvider = "missing" }},
		{name: "duplicate id", mutate: func(c *Config) {
			c.Providers = append(c.Providers, fakeConfig("providerA", "again", provider.TierSecondary))
		}},
		{name: "unknown kind", mutate: func(c *Config) {
			c.Providers = append(c.Providers, provider.Config{ID: "x", Kind: "nope", Enabled: true})
		}},
		{name: "fallback init failure", initErrs: map[string]error{"providerB": errors.New("boom")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := twoProviderConfig()
			if tt.mutate != nil {
				tt.mutate(&cfg)
			}
			h := newHarness(cfg)
			for id, err := range tt.initErrs {
				h.initErrs[id] = err
			}

			err := h.svc.Initialize(context.Background())
			if !apperrors.HasCode(err, apperrors.ErrCodeConfiguration) {
				t.Fatalf("expected CONFIGURATION error, got %v", err)
			}
			if st := h.svc.GetState(); st.Initialized || len(st.Providers) != 0 {
				t.Errorf("expected nothing registered after failure, got %+v", st)
			}
		})
	}
}

func TestInitialize_NonFallbackInitFailureIsTolerated(t *testing.T) {
	h := newHarness(twoProviderConfig())
	h.initErrs["providerA"] = errors.New("missing api key")
	initHarness(t, h)

	health := h.svc.CheckHealth(context.Background())
	if health["providerA"] {
		t.Error("expected providerA to report unhealthy")
	}
	if !health["providerB"] || !health[builtinOfflineID] {
		t.Errorf("expected fallback providers healthy, got %v", health)
	}
}

func TestDestroy_Idempotent(t *testing.T) {
	h := newHarness(twoProviderConfig())
	initHarness(t, h)

	if err := h.svc.Destroy(context.Background()); err != nil {
		t.Fatalf("first destroy failed: %v", err)
	}
	if err := h.svc.Destroy(context.Background()); err != nil {
		t.Fatalf("second destroy failed: %v", err)
	}
	st := h.svc.GetState()
	if st.Initialized || len(st.Providers) != 0 {
		t.Errorf("expected empty service, got %+v", st)
	}
	if h.fake("providerA").Online() {
		t.Error("expected providers closed")
	}

	resp := h.svc.Request(context.Background(), Input{Type: provider.TypeRiskCommentary})
	if resp.Success || resp.Error.Code != apperrors.ErrCodeConfiguration {
		t.Errorf("expected CONFIGURATION after destroy, got %+v", resp.Error)
	}
}

func TestSwitchProvider(t *testing.T) {
	h := newHarness(twoProviderConfig())
	rec := initHarness(t, h)

	if err := h.svc.SwitchProvider("nope"); !apperrors.HasCode(err, apperrors.ErrCodeNotFound) {
		t.Errorf("expected NOT_FOUND, got %v", err)
	}
	if err := h.svc.SwitchProvider("providerB"); err != nil {
		t.Fatalf("switch failed: %v", err)
	}
	if got := h.svc.GetState().CurrentProvider; got != "providerB" {
		t.Errorf("expected providerB active, got %q", got)
	}
	if err := h.svc.SwitchProvider("providerB"); err != nil {
		t.Fatalf("switch to active provider failed: %v", err)
	}
	if n := rec.count(events.ProviderChanged); n != 1 {
		t.Errorf("expected 1 provider-changed event, got %d", n)
	}
}

func TestUpdateConfig(t *testing.T) {
	cfg := twoProviderConfig()
	cfg.Cache = cache.Config{Enabled: true}
	h := newHarness(cfg)
	rec := initHarness(t, h)

	bad := "nope"
	if err := h.svc.UpdateConfig(ConfigUpdate{FallbackProvider: &bad}); !apperrors.HasCode(err, apperrors.ErrCodeInvalidInput) {
		t.Errorf("expected INVALID_INPUT, got %v", err)
	}

	off := false
	def := "providerB"
	if err := h.svc.UpdateConfig(ConfigUpdate{CacheEnabled: &off, DefaultProvider: &def}); err != nil {
		t.Fatalf("update failed: %v", err)
	}
	snap := h.svc.GetState().Config
	if snap.CacheEnabled || snap.DefaultProvider != "providerB" {
		t.Errorf("unexpected snapshot: %+v", snap)
	}
	if n := rec.count(events.ConfigUpdated); n != 1 {
		t.Errorf("expected 1 config-updated event, got %d", n)
	}

	in := Input{Type: provider.TypeRiskCommentary, Options: provider.Options{Cache: true}}
	h.svc.Request(context.Background(), in)
	if n := h.svc.cache.Len(); n != 0 {
		t.Errorf("expected cache disabled at runtime, got %d entries", n)
	}
}

func TestEstimateCost(t *testing.T) {
	cfg := twoProviderConfig()
	cfg.Costs = map[string]map[string]float64{
		"providerA": {string(provider.TypeRiskCommentary): 0.02},
	}
	h := newHarness(cfg)
	initHarness(t, h)

	costs := h.svc.EstimateCost(provider.TypeRiskCommentary)
	if costs["providerA"] != 0.02 {
		t.Errorf("expected override cost 0.02, got %v", costs["providerA"])
	}
	if c, ok := costs[builtinOfflineID]; !ok || c != 0 {
		t.Errorf("expected free offline provider, got %v (present=%v)", c, ok)
	}

	resp := h.svc.Request(context.Background(), Input{Type: provider.TypeRiskCommentary})
	if resp.Metadata.Cost != 0.02 {
		t.Errorf("expected response cost 0.02, got %v", resp.Metadata.Cost)
	}
}

func TestClearCache(t *testing.T) {
	cfg := twoProviderConfig()
	cfg.Cache = cache.Config{Enabled: true}
	h := newHarness(cfg)
	initHarness(t, h)

	in := Input{Type: provider.TypeRiskCommentary, Options: provider.Options{Cache: true}}
	h.svc.Request(context.Background(), in)
	h.svc.ClearCache()
	resp := h.svc.Request(context.Background(), in)

	if resp.Metadata.Cached {
		t.Error("expected miss after clear")
	}
	if n := h.fake("providerA").calls.Load(); n != 2 {
		t.Errorf("expected 2 provider calls, got %d", n)
	}
}
