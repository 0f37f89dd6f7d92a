// Package service collects merged pull requests and persists them.
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
	pullrequestModel "github.com/festy23/dora_collector/internal/pullrequest/model"
	"github.com/festy23/dora_collector/internal/pullrequest/repository"
)

const verificationWindow = 5 * time.Minute

// Reporter logs how recently collected pull requests correlate with deployments.
type Reporter interface {
	ReportCommitCorrelation(ctx context.Context, db *gorm.DB)
}

// Service defines the pull request pipeline operations.
type Service interface {
	// Run acquires a token, collects pull requests and stores them. It returns the number collected.
	Run(ctx context.Context) (int, error)

	// Store drops pull requests that cannot be stored and upserts the rest in one transaction.
	Store(ctx context.Context, prs []pullrequestModel.PullRequest) error
}

type service struct {
	tokens    github.TokenSource
	collector *Collector
	connector database.Connector
	reporter  Reporter
	branch    string
	logger    *zap.SugaredLogger
	now       func() time.Time
}

// New creates a new pullrequest service instance.
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
		branch:    cfg.BaseBranch,
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

	prs, err := s.collector.Collect(ctx, token)
	if err != nil {
		return 0, err
	}

	if err := s.Store(ctx, prs); err != nil {
		return len(prs), err
	}

	summary := pullrequestModel.Summarize(prs)
	s.logger.Infow("pull request run summary",
		"total", summary.Total,
		"by_repository", summary.ByRepository,
	)
	return len(prs), nil
}

// storable drops records that cannot be persisted, logging each at warn.
func (s *service) storable(prs []pullrequestModel.PullRequest) []pullrequestModel.PullRequest {
	kept := make([]pullrequestModel.PullRequest, 0, len(prs))
	for _, pr := range prs {
		if err := pr.Validate(s.branch); err != nil {
			s.logger.Warnw("pull request dropped before storage",
				"repository", pr.Repository,
				"pr_number", pr.PRNumber,
				"reason", err,
			)
			continue
		}
		kept = append(kept, pr)
	}
	return kept
}

// Store implements Service.
func (s *service) Store(ctx context.Context, prs []pullrequestModel.PullRequest) (err error) {
	prs = s.storable(prs)
	if len(prs) == 0 {
		s.logger.Infow("no pull requests to store")
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
		for i := range prs {
			pr := prs[i]
			pr.ID = 0
			pr.CollectedAt = collectedAt
			if err := txRepo.Upsert(ctx, &pr); err != nil {
				return err
			}
		}
		return nil
	})
	if txErr != nil {
		return apperr.Wrap(apperr.ErrPersistence, "store pull requests", txErr)
	}

	recent, countErr := repository.New(db, s.logger).CountCollectedSince(ctx, collectedAt.Add(-verificationWindow))
	if countErr != nil {
		s.logger.Warnw("pull request verification count failed", "error", countErr)
	} else {
		s.logger.Infow("pull requests stored",
			"stored", len(prs),
			"collected_last_5m", recent,
		)
	}

	s.reporter.ReportCommitCorrelation(ctx, db)
	return nil
}
