// Package config loads riskintel configuration with Viper.
//
// Values come from, in increasing precedence: a YAML file found next to the
// binary (cmd/<service>/config.yml, config/config.yml or ./config.yml, or
// the path in RISKINTEL_CONFIG), a .env file loaded with godotenv, and
// RISKINTEL_-prefixed environment variables. An environment key maps to a
// nested config key by splitting on underscores, so
// RISKINTEL_ORCHESTRATOR_CACHE_ENABLED sets orchestrator.cache.enabled.
//
// # Usage
//
//	var cfg AppConfig
//	if err := config.Load("riskintel", &cfg); err != nil {
//	    return err
//	}
package config
