package main

import (
	"os"
	"strings"

	"github.com/kbukum/riskintel/config"
	"github.com/kbukum/riskintel/observability"
	"github.com/kbukum/riskintel/orchestrator"
	"github.com/kbukum/riskintel/provider/openai"
	"github.com/kbukum/riskintel/server"
	"github.com/kbukum/riskintel/version"
)

// AppConfig is the full riskintel configuration.
type AppConfig struct {
	config.ServiceConfig `yaml:",inline" mapstructure:",squash"`
	Server               server.Config        `yaml:"server" mapstructure:"server"`
	Orchestrator         orchestrator.Config  `yaml:"orchestrator" mapstructure:"orchestrator"`
	Observability        observability.Config `yaml:"observability" mapstructure:"observability"`
}

// ApplyDefaults fills every section. The build version is used when the
// config does not pin one.
func (c *AppConfig) ApplyDefaults() {
	c.ServiceConfig.ApplyDefaults()
	if c.Version == "" {
		c.Version = version.Get().Short()
	}
	c.Server.ApplyDefaults()
	c.Orchestrator.ApplyDefaults()
	c.Observability.ApplyDefaults()
}

// Validate checks every section.
func (c *AppConfig) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	if err := c.Server.Validate(); err != nil {
		return err
	}
	if err := c.Orchestrator.Validate(); err != nil {
		return err
	}
	return c.Observability.Validate()
}

// apiKeyEnv is read for openai providers whose config has no api_key.
const apiKeyEnv = "OPENAI_API_KEY"

// injectAPIKeys keeps secrets out of config files.
func injectAPIKeys(cfg *orchestrator.Config) {
	key := strings.TrimSpace(os.Getenv(apiKeyEnv))
	if key == "" {
		return
	}
	for i := range cfg.Providers {
		p := &cfg.Providers[i]
		if p.Kind != openai.Kind || p.StringOption(openai.OptAPIKey, "") != "" {
			continue
		}
		if p.Options == nil {
			p.Options = make(map[string]any)
		}
		p.Options[openai.OptAPIKey] = key
	}
}
