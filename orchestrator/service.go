package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"

	"github.com/kbukum/riskintel/cache"
	"github.com/kbukum/riskintel/cost"
	apperrors "github.com/kbukum/riskintel/errors"
	"github.com/kbukum/riskintel/events"
	"github.com/kbukum/riskintel/logger"
	"github.com/kbukum/riskintel/observability"
	"github.com/kbukum/riskintel/provider"
	"github.com/kbukum/riskintel/provider/offline"
)

const (
	builtinOfflineID = "offline"

	// CacheProvider is reported as Metadata.Provider on a cache hit.
	CacheProvider = "cache"
)

// Service dispatches typed requests to providers.
type Service struct {
	cfg        Config
	registry   *provider.Registry
	factories  map[string]provider.Factory
	cache      *cache.Cache
	bus        *events.Bus
	costs      *cost.Estimator
	clock      clock.Clock
	log        *logger.Logger
	metrics    *observability.Metrics
	middleware []provider.Middleware

	// implicitFallback is set when no fallback_provider was configured; the
	// fallback then follows the offline provider actually registered.
	implicitFallback bool

	mu           sync.RWMutex
	initialized  bool
	active       string
	defaultID    string
	fallbackID   string
	cacheEnabled bool
	lastError    *apperrors.AppError
	kinds        map[string]string

	inFlight atomic.Int64
}

// New creates a Service. Call Initialize before Request.
func New(cfg Config, opts ...Option) *Service {
	implicit := cfg.FallbackProvider == ""
	cfg.ApplyDefaults()
	s := &Service{
		cfg:              cfg,
		factories:        make(map[string]provider.Factory),
		kinds:            make(map[string]string),
		implicitFallback: implicit,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.clock == nil {
		s.clock = clock.New()
	}
	if s.log == nil {
		s.log = logger.Get("orchestrator")
	}
	if s.registry == nil {
		s.registry = provider.NewRegistry()
	}
	if s.bus == nil {
		s.bus = events.NewBus(s.log.WithComponent("events"), events.WithClock(s.clock))
	}
	if s.costs == nil {
		s.costs = cost.NewEstimator(nil)
	}
	for kind, f := range s.factories {
		s.registry.RegisterFactory(kind, f)
	}
	if !hasKind(s.registry, offline.Kind) {
		s.registry.RegisterFactory(offline.Kind, offline.Factory)
	}
	s.cache = cache.New(cfg.Cache, s.clock)
	return s
}

func hasKind(reg *provider.Registry, kind string) bool {
	for _, k := range reg.Kinds() {
		if k == kind {
			return true
		}
	}
	return false
}

// Initialize builds, initializes and resolves providers. Configuration
// problems and a fallback that fails to initialize are fatal. Calling it
// on an initialized service is a no-op.
func (s *Service) Initialize(ctx context.Context) error {
	s.mu.Lock()
	if s.initialized {
		s.mu.Unlock()
		return nil
	}
	active, err := s.initLocked(ctx)
	s.mu.Unlock()
	if err != nil {
		return err
	}

	s.log.Info("orchestrator initialized", logger.Fields(
		"providers", s.registry.IDs(),
		"active", active,
		"fallback", s.fallbackID,
	))
	s.publish(events.Event{Kind: events.ProviderChanged, To: active, Provider: active, Reason: "initialize"})
	return nil
}

func (s *Service) initLocked(ctx context.Context) (string, error) {
	if err := s.cfg.Validate(); err != nil {
		return "", err
	}

	for _, pc := range s.cfg.Providers {
		p, err := s.registry.Create(pc)
		if err != nil {
			s.resetLocked(ctx)
			return "", apperrors.Configuration(err.Error()).WithCause(err)
		}
		if err := s.register(p, pc.Kind); err != nil {
			s.resetLocked(ctx)
			return "", err
		}
	}
	offlineID, err := s.ensureOfflineFallback()
	if err != nil {
		s.resetLocked(ctx)
		return "", err
	}
	if s.implicitFallback {
		s.cfg.FallbackProvider = offlineID
	}

	if _, ok := s.registry.Get(s.cfg.FallbackProvider); !ok {
		s.resetLocked(ctx)
		return "", apperrors.Configuration(fmt.Sprintf("fallback provider %q is not configured", s.cfg.FallbackProvider))
	}
	if id := s.cfg.DefaultProvider; id != "" {
		if _, ok := s.registry.Get(id); !ok {
			s.resetLocked(ctx)
			return "", apperrors.Configuration(fmt.Sprintf("default provider %q is not configured", id))
		}
	}

	for _, p := range s.registry.Ordered() {
		err := p.Init(ctx)
		if err == nil {
			continue
		}
		if p.ID() == s.cfg.FallbackProvider {
			s.resetLocked(ctx)
			return "", apperrors.Configuration(fmt.Sprintf("fallback provider %q failed to initialize: %v", p.ID(), err)).WithCause(err)
		}
		s.log.Warn("provider failed to initialize, leaving it offline", logger.MergeWithError(
			logger.Fields(logger.FieldProvider, p.ID()), err))
	}

	active, err := provider.Resolve(s.registry, s.cfg.DefaultProvider, s.cfg.FallbackProvider)
	if err != nil {
		s.resetLocked(ctx)
		return "", apperrors.Configuration(err.Error())
	}

	for id, ops := range s.cfg.Costs {
		for op, usd := range ops {
			s.costs.Override(id, provider.RequestType(op), usd)
		}
	}

	s.active = active.ID()
	s.defaultID = s.cfg.DefaultProvider
	s.fallbackID = s.cfg.FallbackProvider
	s.cacheEnabled = s.cfg.Cache.Enabled
	s.initialized = true
	return s.active, nil
}

func (s *Service) register(p provider.Provider, kind string) error {
	if len(s.middleware) > 0 {
		p = provider.Chain(s.middleware...)(p)
	}
	if err := s.registry.Add(p); err != nil {
		return apperrors.Configuration(err.Error()).WithCause(err)
	}
	s.kinds[p.ID()] = kind
	return nil
}

// ensureOfflineFallback guarantees an always-available, no-I/O provider in
// the fallback tier and returns its id.
func (s *Service) ensureOfflineFallback() (string, error) {
	for _, p := range s.registry.Tier(provider.TierFallback) {
		if s.kinds[p.ID()] == offline.Kind {
			return p.ID(), nil
		}
	}
	id := builtinOfflineID
	if _, taken := s.registry.Get(id); taken {
		id = builtinOfflineID + "-fallback"
	}
	p := offline.New(provider.Config{
		ID:           id,
		Kind:         offline.Kind,
		Enabled:      true,
		PriorityTier: provider.TierFallback,
	}, provider.WithClock(s.clock))
	return id, s.register(p, offline.Kind)
}

// Destroy closes every provider and clears the registry and cache. It is
// safe to call repeatedly.
func (s *Service) Destroy(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resetLocked(ctx)
}

func (s *Service) resetLocked(ctx context.Context) error {
	var errs []error
	for _, p := range s.registry.Ordered() {
		if err := p.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", p.ID(), err))
		}
	}
	s.registry.Clear()
	s.cache.Clear()
	s.kinds = make(map[string]string)
	s.active = ""
	s.initialized = false
	return errors.Join(errs...)
}

// Request dispatches one logical request and always returns a Response.
// Failures are reported in Response.Error.
func (s *Service) Request(ctx context.Context, in Input) *provider.Response {
	start := s.clock.Now()
	req := &provider.Request{
		ID:      uuid.NewString(),
		Type:    in.Type,
		Payload: in.Data,
		Options: in.Options,
	}

	s.inFlight.Add(1)
	defer s.inFlight.Add(-1)

	ctx, op := observability.StartOperation(ctx, req.ID, string(req.Type), s.metrics)
	resp := s.dispatch(ctx, req)
	resp.ID = req.ID
	resp.Metadata.ProcessingTime = s.clock.Since(start)
	if resp.Metadata.Timestamp.IsZero() {
		resp.Metadata.Timestamp = s.clock.Now().UTC()
	}

	code := ""
	if resp.Error != nil {
		code = string(resp.Error.Code)
		s.mu.Lock()
		s.lastError = resp.Error
		s.mu.Unlock()
		s.publishError(req, resp.Metadata.ProviderID, resp.Error)
	}
	op.End(ctx, resp.Metadata.Provider, code)

	s.publish(events.Event{
		Kind:      events.RequestCompleted,
		RequestID: req.ID,
		Provider:  resp.Metadata.Provider,
		Success:   resp.Success,
		Cached:    resp.Metadata.Cached,
		Duration:  resp.Metadata.ProcessingTime,
		Error:     resp.Error,
	})
	return resp
}

func (s *Service) dispatch(ctx context.Context, req *provider.Request) *provider.Response {
	if req.Type == "" {
		return provider.Failed(req.ID, apperrors.InvalidInput("type", "type is required"))
	}

	s.mu.RLock()
	initialized, activeID, fallbackID, cacheOn := s.initialized, s.active, s.fallbackID, s.cacheEnabled
	s.mu.RUnlock()
	if !initialized {
		return provider.Failed(req.ID, apperrors.Configuration("service is not initialized"))
	}
	active, ok := s.registry.Get(activeID)
	if !ok {
		return provider.Failed(req.ID, apperrors.Configuration(fmt.Sprintf("active provider %q is not registered", activeID)))
	}

	log := s.log.WithRequest(req.ID, string(req.Type))

	if !active.Capabilities().Supports(req.Type) {
		return s.failed(req, active, apperrors.UnsupportedType(active.ID(), string(req.Type)), 0)
	}

	var key string
	if cacheOn && req.Options.Cache {
		k, err := cache.Key(req)
		if err != nil {
			log.Warn("cache key failed, skipping cache", logger.MergeWithError(nil, err))
		} else {
			key = k
			hit, found := s.cache.Get(key)
			if s.metrics != nil {
				s.metrics.RecordCache(ctx, found)
			}
			if found {
				return fromCache(req.ID, hit, s.clock)
			}
		}
	}

	resp, appErr, skipped := s.attempt(ctx, active, req)
	attempts := 1
	last := active

	if appErr != nil && appErr.Retryable && fallbackID != active.ID() {
		if fb, ok := s.registry.Get(fallbackID); ok {
			fields := logger.Fields(logger.FieldFrom, active.ID(), logger.FieldTo, fb.ID(), logger.FieldCode, string(appErr.Code))
			if skipped {
				log.Info("active provider unavailable, using fallback", fields)
			} else {
				log.Warn("provider failed, retrying on fallback", fields)
				s.publishError(req, active.ID(), appErr)
			}
			s.switchActive(active.ID(), fb.ID(), string(appErr.Code))
			if s.metrics != nil {
				s.metrics.RecordFallback(ctx, active.ID(), fb.ID())
			}

			last = fb
			if !fb.Capabilities().Supports(req.Type) {
				return s.failed(req, fb, apperrors.UnsupportedType(fb.ID(), string(req.Type)), attempts)
			}
			resp, appErr, _ = s.attempt(ctx, fb, req)
			attempts++
		}
	}

	if appErr != nil {
		return s.failed(req, last, appErr, attempts)
	}

	resp.Metadata.Attempts = attempts
	resp.Metadata.Cost = s.estimate(last.ID(), req.Type)
	if key != "" {
		s.cache.Set(key, resp)
	}
	return resp
}

// attempt runs one provider. skipped reports that the provider was not
// called because it was unavailable.
func (s *Service) attempt(ctx context.Context, p provider.Provider, req *provider.Request) (*provider.Response, *apperrors.AppError, bool) {
	if !p.IsAvailable(ctx) {
		if w := p.Status().RateLimit; w.Limit > 0 && w.Requests >= w.Limit {
			return nil, apperrors.RateLimited(p.ID(), w.ResetIn), true
		}
		return nil, apperrors.Unavailable(p.ID()), true
	}

	resp, err := p.Complete(ctx, req)
	switch {
	case err != nil:
		return nil, apperrors.NormalizeFor(p.ID(), err), false
	case resp == nil:
		return nil, apperrors.ServiceError(p.ID(), errors.New("provider returned no response")), false
	case !resp.Success:
		if resp.Error == nil {
			return nil, apperrors.Unknown(errors.New("unsuccessful response without error")), false
		}
		return nil, apperrors.NormalizeFor(p.ID(), resp.Error), false
	}
	return resp, nil, false
}

func (s *Service) failed(req *provider.Request, p provider.Provider, appErr *apperrors.AppError, attempts int) *provider.Response {
	resp := provider.Failed(req.ID, appErr)
	resp.Metadata = provider.Metadata{
		Provider:   p.Name(),
		ProviderID: p.ID(),
		Timestamp:  s.clock.Now().UTC(),
		Attempts:   attempts,
	}
	return resp
}

func fromCache(id string, hit *provider.Response, clk clock.Clock) *provider.Response {
	out := *hit
	out.ID = id
	out.Metadata = provider.Metadata{
		Provider:   CacheProvider,
		ProviderID: hit.Metadata.ProviderID,
		Timestamp:  clk.Now().UTC(),
		Cached:     true,
	}
	return &out
}

// publish stamps e with the service clock so event times agree with
// response metadata.
func (s *Service) publish(e events.Event) {
	e.Timestamp = s.clock.Now().UTC()
	s.bus.Publish(e)
}

func (s *Service) estimate(id string, op provider.RequestType) float64 {
	s.mu.RLock()
	kind := s.kinds[id]
	s.mu.RUnlock()
	return s.costs.Estimate(id, kind, op)
}

// switchActive moves the active provider from → to unless another request
// already moved it, and publishes provider-changed when it did.
func (s *Service) switchActive(from, to, reason string) bool {
	s.mu.Lock()
	if s.active != from || from == to {
		s.mu.Unlock()
		return false
	}
	s.active = to
	s.mu.Unlock()

	s.log.Info("active provider changed", logger.Fields(logger.FieldFrom, from, logger.FieldTo, to, "reason", reason))
	s.publish(events.Event{Kind: events.ProviderChanged, From: from, To: to, Provider: to, Reason: reason})
	return true
}

func (s *Service) publishError(req *provider.Request, providerID string, appErr *apperrors.AppError) {
	s.publish(events.Event{
		Kind:      events.ErrorOccurred,
		RequestID: req.ID,
		Provider:  providerID,
		Error:     appErr,
	})
}

// GetState returns a snapshot for dashboards.
func (s *Service) GetState() State {
	s.mu.RLock()
	st := State{
		Initialized:     s.initialized,
		CurrentProvider: s.active,
		LastError:       s.lastError,
		Config:          s.snapshotLocked(),
	}
	s.mu.RUnlock()

	st.RequestQueue = s.inFlight.Load()
	st.Cache = s.cache.Stats()
	st.Providers = make(map[string]provider.Status, s.registry.Len())
	for id, p := range s.registry.All() {
		st.Providers[id] = p.Status()
	}
	return st
}

func (s *Service) snapshotLocked() Snapshot {
	return Snapshot{
		DefaultProvider:  s.defaultID,
		FallbackProvider: s.fallbackID,
		CacheEnabled:     s.cacheEnabled,
		CacheTTLSeconds:  int64(s.cache.TTL().Seconds()),
		Providers:        s.registry.IDs(),
	}
}

// AddEventListener subscribes fn to every event kind.
func (s *Service) AddEventListener(fn events.Listener) events.ListenerID {
	return s.bus.Subscribe(fn)
}

// RemoveEventListener unsubscribes a listener.
func (s *Service) RemoveEventListener(id events.ListenerID) bool {
	return s.bus.Unsubscribe(id)
}

// EstimateCost returns the per-call cost of op on every provider.
func (s *Service) EstimateCost(op provider.RequestType) map[string]float64 {
	s.mu.RLock()
	kinds := make(map[string]string, len(s.kinds))
	for id, k := range s.kinds {
		kinds[id] = k
	}
	s.mu.RUnlock()
	return s.costs.ForProviders(op, kinds)
}

// CheckHealth runs IsAvailable on every provider.
func (s *Service) CheckHealth(ctx context.Context) map[string]bool {
	out := make(map[string]bool, s.registry.Len())
	for id, p := range s.registry.All() {
		out[id] = p.IsAvailable(ctx)
	}
	return out
}

// ProviderIDs returns provider ids in tier order.
func (s *Service) ProviderIDs() []string {
	return s.registry.IDs()
}

// ClearCache drops every cached response.
func (s *Service) ClearCache() {
	s.cache.Clear()
	s.log.Info("response cache cleared")
}

// SwitchProvider makes id the active provider.
func (s *Service) SwitchProvider(id string) error {
	s.mu.RLock()
	initialized, from := s.initialized, s.active
	s.mu.RUnlock()
	if !initialized {
		return apperrors.Configuration("service is not initialized")
	}
	if _, ok := s.registry.Get(id); !ok {
		return apperrors.NotFound("provider", id)
	}
	s.switchActive(from, id, "manual")
	return nil
}

// UpdateConfig applies runtime setting changes and publishes config-updated.
func (s *Service) UpdateConfig(u ConfigUpdate) error {
	for field, id := range map[string]*string{"default_provider": u.DefaultProvider, "fallback_provider": u.FallbackProvider} {
		if id == nil || *id == "" {
			continue
		}
		if _, ok := s.registry.Get(*id); !ok {
			return apperrors.InvalidInput(field, fmt.Sprintf("provider %q is not registered", *id))
		}
	}

	s.mu.Lock()
	if u.DefaultProvider != nil {
		s.defaultID = *u.DefaultProvider
	}
	if u.FallbackProvider != nil && *u.FallbackProvider != "" {
		s.fallbackID = *u.FallbackProvider
	}
	if u.CacheEnabled != nil {
		s.cacheEnabled = *u.CacheEnabled
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.log.Info("configuration updated", logger.Fields(
		"default", snap.DefaultProvider,
		"fallback", snap.FallbackProvider,
		"cache_enabled", snap.CacheEnabled,
	))
	s.publish(events.Event{Kind: events.ConfigUpdated, Data: map[string]any{
		"defaultProvider":  snap.DefaultProvider,
		"fallbackProvider": snap.FallbackProvider,
		"cacheEnabled":     snap.CacheEnabled,
	}})
	return nil
}
