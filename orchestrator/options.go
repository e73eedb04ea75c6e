package orchestrator

import (
	"github.com/benbjohnson/clock"

	"github.com/kbukum/riskintel/cost"
	"github.com/kbukum/riskintel/events"
	"github.com/kbukum/riskintel/logger"
	"github.com/kbukum/riskintel/observability"
	"github.com/kbukum/riskintel/provider"
)

// Option configures a Service.
type Option func(*Service)

// WithClock sets the time source for the cache, timestamps and the built-in provider.
func WithClock(clk clock.Clock) Option {
	return func(s *Service) { s.clock = clk }
}

// WithLogger sets the service logger.
func WithLogger(log *logger.Logger) Option {
	return func(s *Service) { s.log = log }
}

// WithMetrics records dispatch metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithRegistry supplies the registry and its factories. The offline
// factory is added when missing.
func WithRegistry(reg *provider.Registry) Option {
	return func(s *Service) { s.registry = reg }
}

// WithFactory registers a provider factory for a kind.
func WithFactory(kind string, f provider.Factory) Option {
	return func(s *Service) { s.factories[kind] = f }
}

// WithCostEstimator replaces the default cost table.
func WithCostEstimator(e *cost.Estimator) Option {
	return func(s *Service) { s.costs = e }
}

// WithMiddleware wraps every configured provider.
func WithMiddleware(mw ...provider.Middleware) Option {
	return func(s *Service) { s.middleware = append(s.middleware, mw...) }
}

// WithEventBus shares an existing bus.
func WithEventBus(bus *events.Bus) Option {
	return func(s *Service) { s.bus = bus }
}
