// Package repository provides data access layer for incident module.
package repository

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	incidentModel "github.com/festy23/dora_collector/internal/incident/model"
)

var mutableColumns = []string{"title", "closed_at", "state", "labels", "product", "creator", "url", "collected_at"}

// Repository defines the interface for incident data access operations.
type Repository interface {
	// Upsert inserts incident or refreshes the mutable columns of the row with the same (repository, issue_number).
	Upsert(ctx context.Context, incident *incidentModel.Incident) error

	// CountCollectedSince counts rows whose collected_at is at or after since.
	CountCollectedSince(ctx context.Context, since time.Time) (int64, error)
}

type repository struct {
	db     *gorm.DB
	logger *zap.SugaredLogger
}

// New creates a new incident repository instance.
func New(db *gorm.DB, logger *zap.SugaredLogger) Repository {
	return &repository{db: db, logger: logger}
}

// Upsert implements Repository.
func (r *repository) Upsert(ctx context.Context, incident *incidentModel.Incident) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "repository"}, {Name: "issue_number"}},
		DoUpdates: clause.AssignmentColumns(mutableColumns),
	}).Create(incident).Error
	if err != nil {
		return fmt.Errorf("upsert incident %s#%d: %w", incident.Repository, incident.IssueNumber, err)
	}
	return nil
}

// CountCollectedSince implements Repository.
func (r *repository) CountCollectedSince(ctx context.Context, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&incidentModel.Incident{}).
		Where("collected_at >= ?", since).
		Count(&count).Error
	return count, err
}
