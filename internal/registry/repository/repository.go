// Package repository provides data access for the repository registry.
package repository

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	registryModel "github.com/festy23/dora_collector/internal/registry/model"
)

// Repository defines the registry data access operations.
type Repository interface {
	// Register inserts name as an active repository, or back-fills its team
	// when the stored team is null and team is not.
	Register(ctx context.Context, name string, team *string) error
}

type repository struct {
	db     *gorm.DB
	logger *zap.SugaredLogger
}

// New creates a new registry repository instance.
func New(db *gorm.DB, logger *zap.SugaredLogger) Repository {
	return &repository{db: db, logger: logger}
}

// Register implements Repository.
func (r *repository) Register(ctx context.Context, name string, team *string) error {
	now := time.Now().UTC()
	entry := &registryModel.Repository{
		Name:      name,
		Team:      team,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "name"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"team":       gorm.Expr("excluded.team"),
			"updated_at": now,
		}),
		Where: clause.Where{Exprs: []clause.Expression{
			clause.Expr{SQL: "repositories.team IS NULL AND excluded.team IS NOT NULL"},
		}},
	}).Create(entry).Error
	if err != nil {
		return fmt.Errorf("register repository %s: %w", name, err)
	}

	r.logger.Debugw("repository registered", "repository", name, "team", team)
	return nil
}
