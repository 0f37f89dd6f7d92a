// Package config provides process configuration sourced from the environment.
//
// A Config is built once at start-up and passed explicitly to every component;
// nothing in this package holds mutable state.
package config

import (
	"fmt"

	"github.com/festy23/dora_collector/internal/apperr"
)

// Config holds application configuration.
type Config struct {
	GitHub   GitHubConfig
	Schedule ScheduleConfig
	Server   ServerConfig
	Logger   LoggerConfig
	// GinMode is the Gin framework mode (debug, release, test).
	GinMode string
}

// LoadFromEnv loads all configuration from environment variables.
func LoadFromEnv() Config {
	return Config{
		GitHub:   LoadGitHubConfigFromEnv(),
		Schedule: LoadScheduleConfigFromEnv(),
		Server:   LoadServerConfigFromEnv(),
		Logger:   LoadLoggerConfigFromEnv(),
		GinMode:  GetEnv("GIN_MODE", "release"),
	}
}

// Validate validates all configuration. Failures are apperr.ErrConfig.
func (c Config) Validate() error {
	if err := c.GitHub.Validate(); err != nil {
		return apperr.Wrap(apperr.ErrConfig, "github config", err)
	}
	if err := c.Schedule.Validate(); err != nil {
		return apperr.Wrap(apperr.ErrConfig, "schedule config", err)
	}
	if err := c.Server.Validate(); err != nil {
		return apperr.Wrap(apperr.ErrConfig, "server config", err)
	}
	if err := c.Logger.Validate(); err != nil {
		return apperr.Wrap(apperr.ErrConfig, "logger config", err)
	}

	switch c.GinMode {
	case "debug", "release", "test":
	default:
		return apperr.Wrap(apperr.ErrConfig, "gin mode",
			fmt.Errorf("invalid GIN_MODE: %s (must be: debug, release, test)", c.GinMode))
	}

	return nil
}
