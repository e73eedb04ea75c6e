package bootstrap

import (
	"github.com/kbukum/riskintel/config"
)

// Config is satisfied by any struct that embeds config.ServiceConfig and
// adds its own ApplyDefaults and Validate.
//
//	type AppConfig struct {
//	    config.ServiceConfig `yaml:",inline" mapstructure:",squash"`
//	    Server server.Config `yaml:"server" mapstructure:"server"`
//	}
type Config interface {
	GetServiceConfig() *config.ServiceConfig
	ApplyDefaults()
	Validate() error
}
