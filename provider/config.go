package provider

import (
	"fmt"
	"time"

	"github.com/spf13/cast"
)

const (
	// DefaultTimeout bounds an attempt when neither the request nor the config sets one.
	DefaultTimeout = 30 * time.Second
)

// RateLimitConfig is the per-provider fixed window.
type RateLimitConfig struct {
	Requests int `yaml:"requests" mapstructure:"requests" json:"requests" validate:"gte=0"`
	WindowS  int `yaml:"window_s" mapstructure:"window_s" json:"window_s" validate:"gte=0"`
}

// Window returns the window length.
func (c RateLimitConfig) Window() time.Duration {
	return time.Duration(c.WindowS) * time.Second
}

// Config is the configuration of one provider instance.
type Config struct {
	// ID is the registry key. Defaults to Kind.
	ID string `yaml:"id" mapstructure:"id" json:"id"`
	// Name is the display name. Defaults to ID.
	Name string `yaml:"name" mapstructure:"name" json:"name"`
	// Kind selects the factory (e.g. "openai", "offline").
	Kind         string          `yaml:"kind" mapstructure:"kind" json:"kind" validate:"required"`
	Enabled      bool            `yaml:"enabled" mapstructure:"enabled" json:"enabled"`
	TimeoutMS    int             `yaml:"timeout_ms" mapstructure:"timeout_ms" json:"timeout_ms" validate:"gte=0"`
	Retries      int             `yaml:"retries" mapstructure:"retries" json:"retries" validate:"gte=0"`
	PriorityTier Tier            `yaml:"priority_tier" mapstructure:"priority_tier" json:"priority_tier" validate:"omitempty,oneof=primary secondary fallback"`
	RateLimit    RateLimitConfig `yaml:"rate_limit" mapstructure:"rate_limit" json:"rate_limit"`
	// SupportedTypes narrows the provider's declared capabilities. Empty keeps the provider default.
	SupportedTypes []RequestType `yaml:"supported_types" mapstructure:"supported_types" json:"supported_types,omitempty"`
	// Options carries provider-specific settings (api_key, model, ...).
	Options map[string]any `yaml:"options" mapstructure:"options" json:"-"`
}

// ApplyDefaults fills ID, Name, tier and timeout.
func (c *Config) ApplyDefaults() {
	if c.ID == "" {
		c.ID = c.Kind
	}
	if c.Name == "" {
		c.Name = c.ID
	}
	if c.PriorityTier == "" {
		c.PriorityTier = TierPrimary
	}
	if c.TimeoutMS == 0 {
		c.TimeoutMS = int(DefaultTimeout / time.Millisecond)
	}
	if c.RateLimit.Requests > 0 && c.RateLimit.WindowS == 0 {
		c.RateLimit.WindowS = 60
	}
}

// Validate checks the fields the dispatcher relies on.
func (c *Config) Validate() error {
	if c.Kind == "" {
		return fmt.Errorf("provider.kind is required")
	}
	if c.ID == "" {
		return fmt.Errorf("provider %s: id is required", c.Kind)
	}
	if !c.PriorityTier.Valid() {
		return fmt.Errorf("provider %s: priority_tier must be one of %v (got: %s)", c.ID, Tiers(), c.PriorityTier)
	}
	if c.TimeoutMS < 0 {
		return fmt.Errorf("provider %s: timeout_ms must be non-negative (got: %d)", c.ID, c.TimeoutMS)
	}
	if c.RateLimit.Requests < 0 || c.RateLimit.WindowS < 0 {
		return fmt.Errorf("provider %s: rate_limit values must be non-negative", c.ID)
	}
	return nil
}

// Timeout returns the configured per-attempt timeout.
func (c *Config) Timeout() time.Duration {
	if c.TimeoutMS <= 0 {
		return DefaultTimeout
	}
	return time.Duration(c.TimeoutMS) * time.Millisecond
}

// StringOption returns a string provider option or def.
func (c *Config) StringOption(key, def string) string {
	if v, ok := c.Options[key]; ok {
		if s := cast.ToString(v); s != "" {
			return s
		}
	}
	return def
}

// BoolOption returns a boolean provider option or def.
func (c *Config) BoolOption(key string, def bool) bool {
	if v, ok := c.Options[key]; ok {
		if b, err := cast.ToBoolE(v); err == nil {
			return b
		}
	}
	return def
}
