// Package service provides the post-store derived statistics: the daily deployment
// aggregate and the correlation reports.
package service

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/festy23/dora_collector/internal/statistics/repository"
)

const (
	aggregationWindow = 24 * time.Hour
	commitWindow      = time.Hour
	deploymentWindow  = 24 * time.Hour
	incidentFollowUp  = 24 * time.Hour
)

// Service defines the statistics operations run on a pipeline's connection after its store commits.
type Service interface {
	// RecomputeDaily rebuilds deployment_metrics_daily for every group touched by
	// deployments created in the last day. It runs in its own transaction and
	// returns the number of groups written.
	RecomputeDaily(ctx context.Context, db *gorm.DB) (int, error)

	// ReportCommitCorrelation logs how many recently collected pull requests reached a deployment.
	ReportCommitCorrelation(ctx context.Context, db *gorm.DB)

	// ReportIncidentCorrelation logs how many recent deployments were followed by an incident.
	ReportIncidentCorrelation(ctx context.Context, db *gorm.DB)
}

type service struct {
	logger *zap.SugaredLogger
	now    func() time.Time
}

// New creates a new statistics service instance.
func New(logger *zap.SugaredLogger) Service {
	return &service{
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// RecomputeDaily implements Service.
func (s *service) RecomputeDaily(ctx context.Context, db *gorm.DB) (int, error) {
	now := s.now()
	written := 0

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txRepo := repository.New(tx, s.logger)

		groups, err := txRepo.TouchedGroups(ctx, now.Add(-aggregationWindow))
		if err != nil {
			return err
		}

		for _, g := range groups {
			metric, err := txRepo.CountDay(ctx, g)
			if err != nil {
				return err
			}
			metric.CalculatedAt = now
			if err := txRepo.UpsertDaily(ctx, &metric); err != nil {
				return err
			}
			written++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.logger.Infow("daily metrics recomputed", "groups", written)
	return written, nil
}

// ReportCommitCorrelation implements Service.
func (s *service) ReportCommitCorrelation(ctx context.Context, db *gorm.DB) {
	c, err := repository.New(db, s.logger).CommitCorrelation(ctx, s.now().Add(-commitWindow))
	if err != nil {
		s.logger.Warnw("commit correlation report failed", "error", err)
		return
	}

	s.logger.Infow("commit correlation",
		"recent_pull_requests", c.RecentPullRequests,
		"pull_requests_deployed", c.PullRequestsDeployed,
		"matched_deployments", c.MatchedDeployments,
		"distinct_merge_commits", c.DistinctMergeCommits,
	)
}

// ReportIncidentCorrelation implements Service.
func (s *service) ReportIncidentCorrelation(ctx context.Context, db *gorm.DB) {
	c, err := repository.New(db, s.logger).IncidentCorrelation(ctx, s.now().Add(-deploymentWindow), incidentFollowUp)
	if err != nil {
		s.logger.Warnw("incident correlation report failed", "error", err)
		return
	}

	s.logger.Infow("incident correlation",
		"recent_deployments", c.RecentDeployments,
		"deployments_with_incident", c.DeploymentsWithIncident,
		"distinct_incidents", c.DistinctIncidents,
	)
}
