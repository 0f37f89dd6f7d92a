// Package service collects production incidents and persists them.
package service

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/festy23/dora_collector/internal/apperr"
	"github.com/festy23/dora_collector/internal/config"
	"github.com/festy23/dora_collector/internal/database/database"
	"github.com/festy23/dora_collector/internal/github"
	incidentModel "github.com/festy23/dora_collector/internal/incident/model"
	"github.com/festy23/dora_collector/internal/incident/repository"
)

const verificationWindow = 5 * time.Minute

// Reporter logs how recent deployments correlate with incidents.
type Reporter interface {
	ReportIncidentCorrelation(ctx context.Context, db *gorm.DB)
}

// Service defines the incident pipeline operations.
type Service interface {
	// Run acquires a token, collects incidents and stores them. It returns the number collected.
	Run(ctx context.Context) (int, error)

	// Store upserts incidents in one transaction.
	Store(ctx context.Context, incidents []incidentModel.Incident) error
}

type service struct {
	tokens    github.TokenSource
	collector *Collector
	connector database.Connector
	reporter  Reporter
	logger    *zap.SugaredLogger
	now       func() time.Time
}

// New creates a new incident service instance.
func New(
	cfg config.GitHubConfig,
	source Source,
	tokens github.TokenSource,
	connector database.Connector,
	reporter Reporter,
	logger *zap.SugaredLogger,
) Service {
	return &service{
		tokens:    tokens,
		collector: NewCollector(source, cfg, logger),
		connector: connector,
		reporter:  reporter,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Run implements Service.
func (s *service) Run(ctx context.Context) (int, error) {
	token, err := s.tokens.Token(ctx)
	if err != nil {
		return 0, err
	}

	incidents, err := s.collector.Collect(ctx, token)
	if err != nil {
		return 0, err
	}

	if err := s.Store(ctx, incidents); err != nil {
		return len(incidents), err
	}

	summary := incidentModel.Summarize(incidents)
	s.logger.Infow("incident run summary",
		"total", summary.Total,
		"by_repository", summary.ByRepository,
		"by_state", summary.ByState,
	)
	return len(incidents), nil
}

// Store implements Service.
func (s *service) Store(ctx context.Context, incidents []incidentModel.Incident) (err error) {
	if len(incidents) == 0 {
		s.logger.Infow("no incidents to store")
		return nil
	}

	db, err := s.connector.Connect(ctx)
	if err != nil {
		return err
	}
	defer database.Release(db, &err, s.logger)

	collectedAt := s.now()
	txErr := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txRepo := repository.New(tx, s.logger)
		for i := range incidents {
			inc := incidents[i]
			inc.ID = 0
			inc.CollectedAt = collectedAt
			if err := txRepo.Upsert(ctx, &inc); err != nil {
				return err
			}
		}
		return nil
	})
	if txErr != nil {
		return apperr.Wrap(apperr.ErrPersistence, "store incidents", txErr)
	}

	recent, countErr := repository.New(db, s.logger).CountCollectedSince(ctx, collectedAt.Add(-verificationWindow))
	if countErr != nil {
		s.logger.Warnw("incident verification count failed", "error", countErr)
	} else {
		s.logger.Infow("incidents stored",
			"stored", len(incidents),
			"collected_last_5m", recent,
		)
	}

	s.reporter.ReportIncidentCorrelation(ctx, db)
	return nil
}
