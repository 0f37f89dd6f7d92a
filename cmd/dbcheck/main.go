// Package main provides a connectivity check for the collector's store: it
// connects with the configured credential, lists the tables and prints the
// deployments row count.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/festy23/dora_collector/internal/apperr"
	dbConfig "github.com/festy23/dora_collector/internal/database/config"
	"github.com/festy23/dora_collector/internal/database/credential"
	"github.com/festy23/dora_collector/internal/database/database"
	"github.com/festy23/dora_collector/internal/database/pool"
	deploymentModel "github.com/festy23/dora_collector/internal/deployment/model"
	"github.com/festy23/dora_collector/pkg/logger"
)

const checkTimeout = 30 * time.Second

func main() {
	log, err := logger.New()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), checkTimeout)
	defer cancel()

	if err := run(ctx, os.Stdout, log); err != nil {
		log.Errorw("store check failed", "kind", apperr.KindOf(err), "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, out io.Writer, log *zap.SugaredLogger) (err error) {
	cfg := dbConfig.LoadConfigFromEnv()
	if err := cfg.Validate(); err != nil {
		return apperr.Wrap(apperr.ErrConfig, "database config", err)
	}

	db, err := database.NewConnector(cfg, credential.FromConfig(cfg)).
		WithPool(pool.DefaultPoolConfig()).
		Connect(ctx)
	if err != nil {
		return err
	}
	defer database.Release(db, &err, log)

	return check(ctx, db, out)
}

// check prints the store's tables, the deployments row count and pool stats.
func check(ctx context.Context, db *gorm.DB, out io.Writer) error {
	if err := database.HealthCheck(ctx, db); err != nil {
		return apperr.Wrap(apperr.ErrPersistence, "ping", err)
	}

	tables, err := db.WithContext(ctx).Migrator().GetTables()
	if err != nil {
		return apperr.Wrap(apperr.ErrPersistence, "list tables", err)
	}
	sort.Strings(tables)

	fmt.Fprintf(out, "tables (%d):\n", len(tables))
	for _, t := range tables {
		fmt.Fprintf(out, "  %s\n", t)
	}

	var count int64
	if err := db.WithContext(ctx).Model(&deploymentModel.Deployment{}).Count(&count).Error; err != nil {
		return apperr.Wrap(apperr.ErrPersistence, "count deployments", err)
	}
	fmt.Fprintf(out, "deployments: %d\n", count)

	if stats, err := database.GetStats(db); err == nil {
		fmt.Fprintf(out, "pool: open=%d in_use=%d idle=%d\n", stats.OpenConnections, stats.InUse, stats.Idle)
	}
	return nil
}
