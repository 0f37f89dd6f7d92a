// Package repository provides data access layer for statistics module.
package repository

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	deploymentModel "github.com/festy23/dora_collector/internal/deployment/model"
	incidentModel "github.com/festy23/dora_collector/internal/incident/model"
	pullrequestModel "github.com/festy23/dora_collector/internal/pullrequest/model"
	"github.com/festy23/dora_collector/internal/statistics/model"
)

const day = 24 * time.Hour

// Repository defines the interface for statistics data access operations.
type Repository interface {
	// TouchedGroups returns every (UTC date, repository, environment) with a deployment created at or after since.
	TouchedGroups(ctx context.Context, since time.Time) ([]model.Group, error)

	// CountDay counts all deployments of the group's date.
	CountDay(ctx context.Context, group model.Group) (model.DailyMetric, error)

	// UpsertDaily inserts metric or overwrites the counts of the row with the same group.
	UpsertDaily(ctx context.Context, metric *model.DailyMetric) error

	// CommitCorrelation matches pull requests collected at or after since against deployed commits.
	CommitCorrelation(ctx context.Context, since time.Time) (model.CommitCorrelation, error)

	// IncidentCorrelation matches deployments created at or after since against incidents
	// opened in the same repository within window after each deployment.
	IncidentCorrelation(ctx context.Context, since time.Time, window time.Duration) (model.IncidentCorrelation, error)
}

type deploymentRow struct {
	Repository  string
	Environment string
	CreatedAt   time.Time
}

type deployedCommit struct {
	DeploymentID string
	CommitSHA    string
}

type repository struct {
	db     *gorm.DB
	logger *zap.SugaredLogger
}

// New creates a new statistics repository instance.
func New(db *gorm.DB, logger *zap.SugaredLogger) Repository {
	return &repository{
		db:     db,
		logger: logger,
	}
}

// TouchedGroups implements Repository.
func (r *repository) TouchedGroups(ctx context.Context, since time.Time) ([]model.Group, error) {
	var rows []deploymentRow
	err := r.db.WithContext(ctx).
		Model(&deploymentModel.Deployment{}).
		Select("repository, environment, created_at").
		Where("created_at >= ?", since).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list touched deployment groups: %w", err)
	}

	seen := make(map[model.Group]struct{}, len(rows))
	groups := make([]model.Group, 0, len(rows))
	for _, row := range rows {
		g := model.Group{Date: model.Day(row.CreatedAt), Repository: row.Repository, Environment: row.Environment}
		if _, ok := seen[g]; ok {
			continue
		}
		seen[g] = struct{}{}
		groups = append(groups, g)
	}

	sort.Slice(groups, func(i, j int) bool {
		a, b := groups[i], groups[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if a.Repository != b.Repository {
			return a.Repository < b.Repository
		}
		return a.Environment < b.Environment
	})

	r.logger.Debugw("touched deployment groups", "since", since, "groups", len(groups))
	return groups, nil
}

// CountDay implements Repository.
func (r *repository) CountDay(ctx context.Context, group model.Group) (model.DailyMetric, error) {
	var result struct {
		Total      int64 `gorm:"column:total"`
		Successful int64 `gorm:"column:successful"`
		Failed     int64 `gorm:"column:failed"`
	}

	err := r.db.WithContext(ctx).
		Model(&deploymentModel.Deployment{}).
		Select(`
			COUNT(*) as total,
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) as successful,
			COALESCE(SUM(CASE WHEN status IN ? THEN 1 ELSE 0 END), 0) as failed
		`, deploymentModel.StatusSuccess, []string{deploymentModel.StatusFailure, deploymentModel.StatusError}).
		Where("repository = ? AND environment = ?", group.Repository, group.Environment).
		Where("created_at >= ? AND created_at < ?", group.Date, group.Date.Add(day)).
		Scan(&result).Error
	if err != nil {
		return model.DailyMetric{}, fmt.Errorf("count deployments for %s/%s on %s: %w",
			group.Repository, group.Environment, group.Date.Format(time.DateOnly), err)
	}

	return model.DailyMetric{
		Date:                  group.Date,
		Repository:            group.Repository,
		Environment:           group.Environment,
		TotalDeployments:      int(result.Total),
		SuccessfulDeployments: int(result.Successful),
		FailedDeployments:     int(result.Failed),
	}, nil
}

// UpsertDaily implements Repository.
func (r *repository) UpsertDaily(ctx context.Context, metric *model.DailyMetric) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "date"}, {Name: "repository"}, {Name: "environment"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"total_deployments",
			"successful_deployments",
			"failed_deployments",
			"calculated_at",
		}),
	}).Create(metric).Error
	if err != nil {
		return fmt.Errorf("upsert daily metric %s/%s on %s: %w",
			metric.Repository, metric.Environment, metric.Date.Format(time.DateOnly), err)
	}
	return nil
}

// CommitCorrelation implements Repository.
func (r *repository) CommitCorrelation(ctx context.Context, since time.Time) (model.CommitCorrelation, error) {
	var shas []string
	err := r.db.WithContext(ctx).
		Model(&pullrequestModel.PullRequest{}).
		Where("collected_at >= ?", since).
		Pluck("merge_commit_sha", &shas).Error
	if err != nil {
		return model.CommitCorrelation{}, fmt.Errorf("list recent merge commits: %w", err)
	}

	result := model.CommitCorrelation{RecentPullRequests: len(shas)}
	if len(shas) == 0 {
		return result, nil
	}

	var deployments []deployedCommit
	err = r.db.WithContext(ctx).
		Model(&deploymentModel.Deployment{}).
		Select("deployment_id, commit_sha").
		Where("commit_sha IN ?", distinct(shas)).
		Scan(&deployments).Error
	if err != nil {
		return model.CommitCorrelation{}, fmt.Errorf("match deployments to merge commits: %w", err)
	}

	deployed := make(map[string]struct{}, len(deployments))
	for _, d := range deployments {
		deployed[d.CommitSHA] = struct{}{}
	}
	for _, sha := range shas {
		if _, ok := deployed[sha]; ok {
			result.PullRequestsDeployed++
		}
	}
	result.MatchedDeployments = len(deployments)
	result.DistinctMergeCommits = len(deployed)
	return result, nil
}

// IncidentCorrelation implements Repository.
func (r *repository) IncidentCorrelation(
	ctx context.Context,
	since time.Time,
	window time.Duration,
) (model.IncidentCorrelation, error) {
	var deployments []deploymentModel.Deployment
	err := r.db.WithContext(ctx).
		Select("id, repository, created_at").
		Where("created_at >= ?", since).
		Find(&deployments).Error
	if err != nil {
		return model.IncidentCorrelation{}, fmt.Errorf("list recent deployments: %w", err)
	}

	result := model.IncidentCorrelation{RecentDeployments: len(deployments)}
	if len(deployments) == 0 {
		return result, nil
	}

	repos := make([]string, 0, len(deployments))
	for _, d := range deployments {
		repos = append(repos, d.Repository)
	}

	var incidents []incidentModel.Incident
	err = r.db.WithContext(ctx).
		Select("id, repository, created_at").
		Where("repository IN ? AND created_at >= ?", distinct(repos), since).
		Find(&incidents).Error
	if err != nil {
		return model.IncidentCorrelation{}, fmt.Errorf("list incidents after deployments: %w", err)
	}

	byRepo := make(map[string][]incidentModel.Incident)
	for _, inc := range incidents {
		byRepo[inc.Repository] = append(byRepo[inc.Repository], inc)
	}

	participating := make(map[int64]struct{})
	for _, d := range deployments {
		matched := false
		for _, inc := range byRepo[d.Repository] {
			if inc.CreatedAt.Before(d.CreatedAt) || inc.CreatedAt.After(d.CreatedAt.Add(window)) {
				continue
			}
			matched = true
			participating[inc.ID] = struct{}{}
		}
		if matched {
			result.DeploymentsWithIncident++
		}
	}
	result.DistinctIncidents = len(participating)
	return result, nil
}

func distinct(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
