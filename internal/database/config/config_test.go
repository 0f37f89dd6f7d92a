package config

import (
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigFromEnv(t *testing.T) {
	t.Run("default values", func(t *testing.T) {
		t.Setenv("DB_PASSWORD", "")
		t.Setenv("DB_TOKEN_FILE", "")

		cfg := LoadConfigFromEnv()
		expected := Config{
			Host:           "localhost",
			User:           "postgres",
			DBName:         "dora",
			Port:           "5432",
			SSLMode:        "disable",
			TimeZone:       "UTC",
			MigrationsPath: "migrations",
		}
		assert.Equal(t, expected, cfg)
		assert.Error(t, cfg.Validate())
	})

	t.Run("custom values", func(t *testing.T) {
		t.Setenv("DB_HOST", "db.internal")
		t.Setenv("DB_USER", "collector")
		t.Setenv("DB_TOKEN_FILE", "/var/run/secrets/db-token")
		t.Setenv("DB_NAME", "metrics")
		t.Setenv("DB_SSLMODE", "require")

		cfg := LoadConfigFromEnv()
		assert.Equal(t, "db.internal", cfg.Host)
		assert.Equal(t, "collector", cfg.User)
		assert.Equal(t, "/var/run/secrets/db-token", cfg.TokenFile)
		assert.Equal(t, "metrics", cfg.DBName)
		assert.Equal(t, "require", cfg.SSLMode)
		assert.NoError(t, cfg.Validate())
	})
}

func TestConfig_Validate(t *testing.T) {
	valid := Config{Host: "localhost", DBName: "dora", Password: "secret"}
	require.NoError(t, valid.Validate())

	noHost := valid
	noHost.Host = ""
	assert.EqualError(t, noHost.Validate(), "DB_HOST must be set")

	noName := valid
	noName.DBName = ""
	assert.EqualError(t, noName.Validate(), "DB_NAME must be set")

	noCredential := valid
	noCredential.Password = ""
	assert.Error(t, noCredential.Validate())
}

func TestBuildDSN(t *testing.T) {
	cfg := Config{
		Host:     "localhost",
		User:     "postgres",
		DBName:   "dora",
		Port:     "5432",
		SSLMode:  "disable",
		TimeZone: "UTC",
	}

	t.Run("plain credential", func(t *testing.T) {
		assert.Equal(t,
			"host=localhost user=postgres password=secret dbname=dora port=5432 sslmode=disable TimeZone=UTC",
			BuildDSN(cfg, "secret"))
	})

	t.Run("credential with spaces and quotes", func(t *testing.T) {
		assert.Contains(t, BuildDSN(cfg, `it's a token`), `password='it\'s a token'`)
	})

	t.Run("empty credential", func(t *testing.T) {
		assert.Contains(t, BuildDSN(cfg, ""), "password='' ")
	})
}

func TestSanitizeError(t *testing.T) {
	assert.NoError(t, SanitizeError(nil, "secret"))

	err := SanitizeError(errors.New("dial failed: password=secret host=localhost"), "secret")
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "secret")
	assert.Contains(t, err.Error(), "password=***")
	assert.Contains(t, err.Error(), "failed to connect to database")
}

func TestSanitizeError_KeepsCause(t *testing.T) {
	cause := &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused password=secret")}

	err := SanitizeError(cause, "secret")
	assert.NotContains(t, err.Error(), "secret")
	assert.ErrorIs(t, err, cause)

	var opErr *net.OpError
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, "dial", opErr.Op)
}

func TestLoadRetryConfigFromEnv(t *testing.T) {
	t.Setenv("DB_RETRY_MAX_ATTEMPTS", "3")
	t.Setenv("DB_RETRY_INITIAL_DELAY", "250ms")

	cfg := LoadRetryConfigFromEnv()
	assert.Equal(t, 3, cfg.MaxAttempts)
	assert.Equal(t, 250*time.Millisecond, cfg.InitialDelay)
	assert.NotEmpty(t, cfg.RetryableErrors)
}
