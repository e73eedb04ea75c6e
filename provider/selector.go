package provider

import (
	"fmt"
)

// Selector picks the starting active provider from a registry.
type Selector interface {
	Select(reg *Registry) (Provider, error)
}

// TierSelector returns the first enabled provider, scanning tiers in order.
type TierSelector struct{}

// Select returns the first enabled provider in tier order.
func (TierSelector) Select(reg *Registry) (Provider, error) {
	for _, p := range reg.Ordered() {
		if p.Enabled() {
			return p, nil
		}
	}
	return nil, fmt.Errorf("no enabled provider registered")
}

// Resolve picks the active provider at startup: an enabled defaultID wins,
// otherwise the tier scan, otherwise fallbackID regardless of its flag.
func Resolve(reg *Registry, defaultID, fallbackID string) (Provider, error) {
	if defaultID != "" {
		if p, ok := reg.Get(defaultID); ok && p.Enabled() {
			return p, nil
		}
	}
	if p, err := (TierSelector{}).Select(reg); err == nil {
		return p, nil
	}
	if p, ok := reg.Get(fallbackID); ok {
		return p, nil
	}
	return nil, fmt.Errorf("no enabled provider and fallback %q not registered", fallbackID)
}
