package orchestrator

import (
	"context"
	"fmt"

	"github.com/kbukum/riskintel/observability"
)

// Name identifies the service in a component registry.
func (s *Service) Name() string { return "orchestrator" }

// Start is Initialize.
func (s *Service) Start(ctx context.Context) error { return s.Initialize(ctx) }

// Stop is Destroy.
func (s *Service) Stop(ctx context.Context) error { return s.Destroy(ctx) }

// Health is up while the active provider is available, degraded while only
// others are, and down otherwise.
func (s *Service) Health(ctx context.Context) observability.Health {
	h := observability.Health{Name: s.Name(), Status: observability.HealthStatusDown}

	s.mu.RLock()
	initialized, active := s.initialized, s.active
	s.mu.RUnlock()
	if !initialized {
		h.Message = "not initialized"
		return h
	}

	available := s.CheckHealth(ctx)
	up := 0
	for _, ok := range available {
		if ok {
			up++
		}
	}
	switch {
	case available[active]:
		h.Status = observability.HealthStatusUp
	case up > 0:
		h.Status = observability.HealthStatusDegraded
		h.Message = fmt.Sprintf("active provider %s unavailable", active)
	default:
		h.Message = "no provider available"
	}
	return h
}
