// Package config provides store connection configuration.
package config

import (
	"errors"
	"fmt"
	"strings"

	appconfig "github.com/festy23/dora_collector/internal/config"
	"github.com/festy23/dora_collector/pkg/retry"
)

// Config holds database connection configuration.
//
// Exactly one of Password and TokenFile is expected; TokenFile wins when both are set.
type Config struct {
	Host      string
	User      string
	Password  string
	TokenFile string
	DBName    string
	Port      string
	SSLMode   string
	TimeZone  string
	// MigrationsPath is the golang-migrate source directory.
	MigrationsPath string
}

// LoadConfigFromEnv loads database configuration from environment variables.
func LoadConfigFromEnv() Config {
	return Config{
		Host:           appconfig.GetEnv("DB_HOST", "localhost"),
		User:           appconfig.GetEnv("DB_USER", "postgres"),
		Password:       appconfig.GetEnv("DB_PASSWORD", ""),
		TokenFile:      appconfig.GetEnv("DB_TOKEN_FILE", ""),
		DBName:         appconfig.GetEnv("DB_NAME", "dora"),
		Port:           appconfig.GetEnv("DB_PORT", "5432"),
		SSLMode:        appconfig.GetEnv("DB_SSLMODE", "disable"),
		TimeZone:       appconfig.GetEnv("DB_TIMEZONE", "UTC"),
		MigrationsPath: appconfig.GetEnv("MIGRATIONS_PATH", "migrations"),
	}
}

// Validate reports missing connection settings.
func (c Config) Validate() error {
	if c.Host == "" {
		return errors.New("DB_HOST must be set")
	}
	if c.DBName == "" {
		return errors.New("DB_NAME must be set")
	}
	if c.Password == "" && c.TokenFile == "" {
		return errors.New("one of DB_PASSWORD or DB_TOKEN_FILE must be set")
	}
	return nil
}

// BuildDSN constructs a PostgreSQL DSN from configuration and a freshly acquired credential.
func BuildDSN(cfg Config, credential string) string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s",
		cfg.Host, cfg.User, quoteValue(credential), cfg.DBName, cfg.Port, cfg.SSLMode, cfg.TimeZone)
}

// quoteValue quotes a libpq keyword value so tokens with spaces or quotes survive.
func quoteValue(v string) string {
	if v != "" && !strings.ContainsAny(v, ` '\`) {
		return v
	}
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`)
	return "'" + r.Replace(v) + "'"
}

// redactedError reports a connection failure with the credential masked
// while keeping the driver error reachable through errors.Is and errors.As.
type redactedError struct {
	msg string
	err error
}

func (e *redactedError) Error() string { return e.msg }
func (e *redactedError) Unwrap() error { return e.err }

// SanitizeError removes the credential from error messages.
func SanitizeError(err error, credential string) error {
	if err == nil {
		return nil
	}
	errMsg := err.Error()
	if credential != "" {
		errMsg = strings.ReplaceAll(errMsg, quoteValue(credential), "***")
		errMsg = strings.ReplaceAll(errMsg, credential, "***")
	}
	return &redactedError{msg: "failed to connect to database: " + errMsg, err: err}
}

// LoadRetryConfigFromEnv loads the start-up availability retry configuration.
func LoadRetryConfigFromEnv() retry.Config {
	cfg := retry.PostgresConfig()
	cfg.MaxAttempts = appconfig.GetEnvInt("DB_RETRY_MAX_ATTEMPTS", cfg.MaxAttempts)
	cfg.InitialDelay = appconfig.GetEnvDuration("DB_RETRY_INITIAL_DELAY", cfg.InitialDelay)
	cfg.MaxDelay = appconfig.GetEnvDuration("DB_RETRY_MAX_DELAY", cfg.MaxDelay)
	cfg.Multiplier = appconfig.GetEnvFloat("DB_RETRY_MULTIPLIER", cfg.Multiplier)
	return cfg
}
