// Package repository provides data access layer for deployment module.
package repository

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	deploymentModel "github.com/festy23/dora_collector/internal/deployment/model"
)

// mutableColumns are refreshed when a known deployment is collected again.
var mutableColumns = []string{"status", "status_updated_at", "collected_at"}

// Repository defines the interface for deployment data access operations.
type Repository interface {
	// Upsert inserts d or refreshes the mutable columns of the stored row with the same deployment id.
	Upsert(ctx context.Context, d *deploymentModel.Deployment) error

	// CountCollectedSince counts rows whose collected_at is at or after since.
	CountCollectedSince(ctx context.Context, since time.Time) (int64, error)
}

type repository struct {
	db     *gorm.DB
	logger *zap.SugaredLogger
}

// New creates a new deployment repository instance.
func New(db *gorm.DB, logger *zap.SugaredLogger) Repository {
	return &repository{db: db, logger: logger}
}

// Upsert implements Repository.
func (r *repository) Upsert(ctx context.Context, d *deploymentModel.Deployment) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "deployment_id"}},
		DoUpdates: clause.AssignmentColumns(mutableColumns),
	}).Create(d).Error
	if err != nil {
		return fmt.Errorf("upsert deployment %s: %w", d.DeploymentID, err)
	}
	return nil
}

// CountCollectedSince implements Repository.
func (r *repository) CountCollectedSince(ctx context.Context, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&deploymentModel.Deployment{}).
		Where("collected_at >= ?", since).
		Count(&count).Error
	return count, err
}
