// Package database opens and releases store connections.
//
// Pipelines never share a connection: each run asks a Connector for a fresh
// *gorm.DB and closes it when the run's store step finishes.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/festy23/dora_collector/internal/apperr"
	"github.com/festy23/dora_collector/internal/database/config"
	"github.com/festy23/dora_collector/internal/database/credential"
	"github.com/festy23/dora_collector/internal/database/pool"
	"github.com/festy23/dora_collector/pkg/retry"
)

// Connector opens a new store connection.
type Connector interface {
	Connect(ctx context.Context) (*gorm.DB, error)
}

// ConnectorFunc adapts a function to the Connector interface.
type ConnectorFunc func(ctx context.Context) (*gorm.DB, error)

// Connect calls f(ctx).
func (f ConnectorFunc) Connect(ctx context.Context) (*gorm.DB, error) {
	return f(ctx)
}

// PostgresConnector opens PostgreSQL connections with a credential acquired per call.
type PostgresConnector struct {
	cfg    config.Config
	source credential.Source
	pool   pool.Config
}

// NewConnector creates a PostgresConnector sized for a single pipeline run.
func NewConnector(cfg config.Config, source credential.Source) *PostgresConnector {
	return &PostgresConnector{cfg: cfg, source: source, pool: pool.RunPoolConfig()}
}

// WithPool overrides the connection pool settings.
func (c *PostgresConnector) WithPool(poolCfg pool.Config) *PostgresConnector {
	c.pool = poolCfg
	return c
}

// Connect acquires a credential and opens a verified connection.
func (c *PostgresConnector) Connect(ctx context.Context) (*gorm.DB, error) {
	secret, err := c.source.Credential(ctx)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(postgres.Open(config.BuildDSN(c.cfg, secret)), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrPersistence, "connect", config.SanitizeError(err, secret))
	}

	if err := pool.SetupConnectionPool(db, c.pool); err != nil {
		_ = Close(db)
		return nil, apperr.Wrap(apperr.ErrPersistence, "connect", fmt.Errorf("failed to setup connection pool: %w", err))
	}

	if err := HealthCheck(ctx, db); err != nil {
		_ = Close(db)
		return nil, apperr.Wrap(apperr.ErrPersistence, "connect", config.SanitizeError(err, secret))
	}

	return db, nil
}

// WaitForStore connects with exponential backoff; used once at start-up before migrations.
func WaitForStore(ctx context.Context, connector Connector, retryCfg retry.Config, logger *zap.SugaredLogger) (*gorm.DB, error) {
	retryCfg.OnRetry = func(attempt int, err error) {
		logger.Warnw("store not ready, retrying",
			"attempt", attempt,
			"error", err,
		)
	}
	return retry.DoWithResult(ctx, retryCfg, func() (*gorm.DB, error) {
		db, err := connector.Connect(ctx)
		if errors.Is(err, apperr.ErrAuth) {
			return nil, retry.Permanent(err)
		}
		return db, err
	})
}

// HealthCheck verifies database connection availability.
func HealthCheck(ctx context.Context, db *gorm.DB) error {
	if db == nil {
		return errors.New("database connection is nil")
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	return nil
}

// Close releases a connection. A nil db is a no-op.
func Close(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("failed to close database connection: %w", err)
	}
	return nil
}

// GetStats returns database connection pool statistics.
func GetStats(db *gorm.DB) (*sql.DBStats, error) {
	if db == nil {
		return nil, errors.New("database connection is nil")
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	stats := sqlDB.Stats()
	return &stats, nil
}

// Release closes db and folds the close error into err.
//
// A close failure becomes the result only when err is nil; otherwise it is
// logged and the earlier error wins. Intended for a deferred call with a named
// return value.
func Release(db *gorm.DB, err *error, logger *zap.SugaredLogger) {
	closeErr := Close(db)
	if closeErr == nil {
		return
	}
	if *err == nil {
		*err = apperr.Wrap(apperr.ErrPersistence, "release connection", closeErr)
		return
	}
	logger.Warnw("failed to release store connection", "error", closeErr)
}
