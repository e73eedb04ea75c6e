package orchestrator

import (
	"github.com/kbukum/riskintel/cache"
	apperrors "github.com/kbukum/riskintel/errors"
	"github.com/kbukum/riskintel/provider"
	"github.com/kbukum/riskintel/validation"
)

// Config is the startup configuration of the Service.
type Config struct {
	// Providers lists every provider instance to build.
	Providers []provider.Config `yaml:"providers" mapstructure:"providers" json:"providers" validate:"dive"`
	// DefaultProvider is preferred as the active provider when enabled.
	DefaultProvider string `yaml:"default_provider" mapstructure:"default_provider" json:"default_provider"`
	// FallbackProvider receives the one-shot retry. Defaults to the built-in offline provider.
	FallbackProvider string `yaml:"fallback_provider" mapstructure:"fallback_provider" json:"fallback_provider"`
	// Cache configures the response cache.
	Cache cache.Config `yaml:"cache" mapstructure:"cache" json:"cache"`
	// Costs overrides per-call cost estimates: provider id → request type → USD.
	Costs map[string]map[string]float64 `yaml:"costs" mapstructure:"costs" json:"costs,omitempty"`
}

// ApplyDefaults fills provider defaults, the fallback id and cache limits.
func (c *Config) ApplyDefaults() {
	for i := range c.Providers {
		c.Providers[i].ApplyDefaults()
	}
	if c.FallbackProvider == "" {
		c.FallbackProvider = builtinOfflineID
	}
	c.Cache.ApplyDefaults()
}

// Validate checks struct tags and cross-field rules. Registry-dependent
// checks (that the default and fallback exist) run in Initialize.
func (c *Config) Validate() error {
	if err := validation.Validate(c); err != nil {
		return apperrors.Configuration(err.Error())
	}

	v := validation.New()
	ids := make([]string, 0, len(c.Providers))
	for _, p := range c.Providers {
		ids = append(ids, p.ID)
		if err := p.Validate(); err != nil {
			v.AddError("providers", err.Error())
		}
	}
	v.Unique("providers.id", ids)
	v.Required("fallback_provider", c.FallbackProvider)
	if appErr := v.Validate(); appErr != nil {
		return apperrors.Configuration(appErr.Message).WithDetails(appErr.Details)
	}
	return nil
}

// ConfigUpdate changes runtime settings. Nil fields are left unchanged.
type ConfigUpdate struct {
	DefaultProvider  *string `json:"default_provider,omitempty"`
	FallbackProvider *string `json:"fallback_provider,omitempty"`
	CacheEnabled     *bool   `json:"cache_enabled,omitempty"`
}

// Snapshot is the configuration reported by GetState.
type Snapshot struct {
	DefaultProvider  string   `json:"defaultProvider"`
	FallbackProvider string   `json:"fallbackProvider"`
	CacheEnabled     bool     `json:"cacheEnabled"`
	CacheTTLSeconds  int64    `json:"cacheTtlSeconds"`
	Providers        []string `json:"providers"`
}
