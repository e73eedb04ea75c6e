package observability

// HealthStatus represents the health state of a component or service.
type HealthStatus string

const (
	HealthStatusUp       HealthStatus = "up"
	HealthStatusDown     HealthStatus = "down"
	HealthStatusDegraded HealthStatus = "degraded"
)

// Health describes one provider's health.
type Health struct {
	Name    string       `json:"name"`
	Status  HealthStatus `json:"status"`
	Message string       `json:"message,omitempty"`
}

// ServiceHealth aggregates provider health. The service is up while every
// provider is up, degraded while at least one is up, and down otherwise.
type ServiceHealth struct {
	Service    string       `json:"service"`
	Status     HealthStatus `json:"status"`
	Version    string       `json:"version,omitempty"`
	Components []Health     `json:"components,omitempty"`
}

// NewServiceHealth creates a ServiceHealth with no components.
func NewServiceHealth(service, version string) *ServiceHealth {
	return &ServiceHealth{
		Service: service,
		Status:  HealthStatusUp,
		Version: version,
	}
}

// AddComponent appends a component and recomputes the overall status.
func (sh *ServiceHealth) AddComponent(h Health) {
	sh.Components = append(sh.Components, h)

	up := 0
	for _, c := range sh.Components {
		if c.Status == HealthStatusUp {
			up++
		}
	}
	switch {
	case up == len(sh.Components):
		sh.Status = HealthStatusUp
	case up > 0:
		sh.Status = HealthStatusDegraded
	default:
		sh.Status = HealthStatusDown
	}
}

// FromAvailability builds a ServiceHealth from a provider id → available map.
// ids fixes the component order.
func FromAvailability(service, version string, ids []string, available map[string]bool) *ServiceHealth {
	sh := NewServiceHealth(service, version)
	for _, id := range ids {
		h := Health{Name: id, Status: HealthStatusUp}
		if !available[id] {
			h.Status = HealthStatusDown
			h.Message = "unavailable"
		}
		sh.AddComponent(h)
	}
	return sh
}
