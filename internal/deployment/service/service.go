// Package service collects deployments and persists them with their side effects.
package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/festy23/dora_collector/internal/apperr"
	"github.com/festy23/dora_collector/internal/config"
	"github.com/festy23/dora_collector/internal/database/database"
	deploymentModel "github.com/festy23/dora_collector/internal/deployment/model"
	"github.com/festy23/dora_collector/internal/deployment/repository"
	"github.com/festy23/dora_collector/internal/github"
	registryRepository "github.com/festy23/dora_collector/internal/registry/repository"
)

// verificationWindow bounds the post-commit "recently collected" count.
const verificationWindow = 5 * time.Minute

// API is the part of the GitHub client the deployment pipeline uses.
type API interface {
	Source
	RepositoryTeams(ctx context.Context, token, owner, name string) (string, error)
}

// Statistics runs the post-commit derived work on the run's connection.
type Statistics interface {
	RecomputeDaily(ctx context.Context, db *gorm.DB) (int, error)
	ReportCommitCorrelation(ctx context.Context, db *gorm.DB)
	ReportIncidentCorrelation(ctx context.Context, db *gorm.DB)
}

// Service defines the deployment pipeline operations.
type Service interface {
	// Run acquires a token, collects deployments and stores them. It returns the number collected.
	Run(ctx context.Context) (int, error)

	// Store persists deployments in one transaction together with their registry entries,
	// then recomputes daily metrics and logs correlation previews.
	Store(ctx context.Context, token string, deployments []deploymentModel.Deployment) error
}

type service struct {
	api       API
	tokens    github.TokenSource
	collector *Collector
	connector database.Connector
	stats     Statistics
	logger    *zap.SugaredLogger
	now       func() time.Time
}

// New creates a new deployment service instance.
func New(
	cfg config.GitHubConfig,
	api API,
	tokens github.TokenSource,
	connector database.Connector,
	stats Statistics,
	logger *zap.SugaredLogger,
) Service {
	return &service{
		api:       api,
		tokens:    tokens,
		collector: NewCollector(api, cfg, logger),
		connector: connector,
		stats:     stats,
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

	deployments, err := s.collector.Collect(ctx, token)
	if err != nil {
		return 0, err
	}

	if err := s.Store(ctx, token, deployments); err != nil {
		return len(deployments), err
	}

	summary := deploymentModel.Summarize(deployments)
	s.logger.Infow("deployment run summary",
		"total", summary.Total,
		"by_repository", summary.ByRepository,
		"by_status", summary.ByStatus,
		"successful", summary.Successful,
		"failed", summary.Failed,
	)
	return len(deployments), nil
}

// Store implements Service.
func (s *service) Store(ctx context.Context, token string, deployments []deploymentModel.Deployment) (err error) {
	if len(deployments) == 0 {
		s.logger.Infow("no deployments to store")
		return nil
	}

	teams := s.resolveTeams(ctx, token, deployments)

	db, err := s.connector.Connect(ctx)
	if err != nil {
		return err
	}
	defer database.Release(db, &err, s.logger)

	collectedAt := s.now()
	txErr := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.storeInTransaction(ctx, tx, deployments, teams, collectedAt)
	})
	if txErr != nil {
		return apperr.Wrap(apperr.ErrPersistence, "store deployments", txErr)
	}

	recent, countErr := repository.New(db, s.logger).CountCollectedSince(ctx, collectedAt.Add(-verificationWindow))
	if countErr != nil {
		s.logger.Warnw("deployment verification count failed", "error", countErr)
	} else {
		s.logger.Infow("deployments stored",
			"stored", len(deployments),
			"collected_last_5m", recent,
			"repositories", len(teams),
		)
	}

	if _, aggErr := s.stats.RecomputeDaily(ctx, db); aggErr != nil {
		return apperr.Wrap(apperr.ErrPersistence, "recompute daily metrics", aggErr)
	}
	s.stats.ReportCommitCorrelation(ctx, db)
	s.stats.ReportIncidentCorrelation(ctx, db)

	return nil
}

// storeInTransaction registers repositories and upserts every deployment.
func (s *service) storeInTransaction(
	ctx context.Context,
	tx *gorm.DB,
	deployments []deploymentModel.Deployment,
	teams map[string]*string,
	collectedAt time.Time,
) error {
	txRegistry := registryRepository.New(tx, s.logger)
	for _, name := range sortedKeys(teams) {
		if err := txRegistry.Register(ctx, name, teams[name]); err != nil {
			return err
		}
	}

	txRepo := repository.New(tx, s.logger)
	for i := range deployments {
		d := deployments[i]
		d.ID = 0
		d.CollectedAt = collectedAt
		if err := txRepo.Upsert(ctx, &d); err != nil {
			return err
		}
	}
	return nil
}

// resolveTeams looks up the team of every distinct repository once. Failures
// are best-effort and leave the team nil.
func (s *service) resolveTeams(ctx context.Context, token string, deployments []deploymentModel.Deployment) map[string]*string {
	teams := make(map[string]*string)
	for _, d := range deployments {
		if _, seen := teams[d.Repository]; seen {
			continue
		}
		teams[d.Repository] = s.lookupTeam(ctx, token, d.Repository)
	}
	return teams
}

func (s *service) lookupTeam(ctx context.Context, token, repository string) *string {
	owner, name, ok := strings.Cut(repository, "/")
	if !ok {
		return nil
	}

	team, err := s.api.RepositoryTeams(ctx, token, owner, name)
	if err != nil {
		s.logger.Warnw("team lookup failed",
			"repository", repository,
			"error", apperr.Wrap(apperr.ErrBestEffort, "team lookup", err),
		)
		return nil
	}
	if team == "" {
		return nil
	}
	return &team
}

func sortedKeys(m map[string]*string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
