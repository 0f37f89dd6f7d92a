// Package repository provides data access layer for pullrequest module.
package repository

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	pullrequestModel "github.com/festy23/dora_collector/internal/pullrequest/model"
)

// mutableColumns are refreshed when a known pull request is collected again.
var mutableColumns = []string{"title", "author", "merged_at", "merge_commit_sha", "base_branch", "collected_at"}

// Repository defines the interface for pullrequest data access operations.
type Repository interface {
	// Upsert inserts pr or refreshes the mutable columns of the row with the same (repository, pr_number).
	Upsert(ctx context.Context, pr *pullrequestModel.PullRequest) error

	// CountCollectedSince counts rows whose collected_at is at or after since.
	CountCollectedSince(ctx context.Context, since time.Time) (int64, error)
}

type repository struct {
	db     *gorm.DB
	logger *zap.SugaredLogger
}

// New creates a new pullrequest repository instance.
func New(db *gorm.DB, logger *zap.SugaredLogger) Repository {
	return &repository{db: db, logger: logger}
}

// Upsert implements Repository.
func (r *repository) Upsert(ctx context.Context, pr *pullrequestModel.PullRequest) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "repository"}, {Name: "pr_number"}},
		DoUpdates: clause.AssignmentColumns(mutableColumns),
	}).Create(pr).Error
	if err != nil {
		return fmt.Errorf("upsert pull request %s#%d: %w", pr.Repository, pr.PRNumber, err)
	}
	return nil
}

// CountCollectedSince implements Repository.
func (r *repository) CountCollectedSince(ctx context.Context, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&pullrequestModel.PullRequest{}).
		Where("collected_at >= ?", since).
		Count(&count).Error
	return count, err
}
