package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/festy23/dora_collector/internal/config"
	deploymentModel "github.com/festy23/dora_collector/internal/deployment/model"
	"github.com/festy23/dora_collector/internal/github"
)

// Source fetches pages of repositories with their deployments.
type Source interface {
	DeploymentsPage(
		ctx context.Context,
		token, org string,
		environments []string,
		cursor *string,
	) (github.Page[github.DeploymentRepository], error)
}

// Collector harvests the organization's recent deployments.
type Collector struct {
	source       Source
	org          string
	environments []string
	window       time.Duration
	now          func() time.Time
	logger       *zap.SugaredLogger
}

// NewCollector creates a deployment collector for the configured organization.
func NewCollector(source Source, cfg config.GitHubConfig, logger *zap.SugaredLogger) *Collector {
	return &Collector{
		source:       source,
		org:          cfg.Org,
		environments: cfg.Environments,
		window:       config.DeploymentWindow,
		now:          func() time.Time { return time.Now().UTC() },
		logger:       logger,
	}
}

// Collect walks every repository page and returns the deployments created within the window.
// The environment allow-list is applied by the query.
func (c *Collector) Collect(ctx context.Context, token string) ([]deploymentModel.Deployment, error) {
	var (
		deployments []deploymentModel.Deployment
		skipped     int
		unresolved  int
	)

	fetch := func(ctx context.Context, cursor *string) (github.Page[github.DeploymentRepository], error) {
		return c.source.DeploymentsPage(ctx, token, c.org, c.environments, cursor)
	}
	visit := func(repo github.DeploymentRepository) {
		for _, node := range repo.Deployments.Nodes {
			if c.now().Sub(*node.CreatedAt) > c.window {
				skipped++
				continue
			}
			// GitHub nulls the commit once it is unreachable, e.g. after a force-push.
			if node.Commit == nil || node.Commit.OID == "" {
				unresolved++
				c.logger.Warnw("dropping deployment without commit",
					"repository", repo.FullName(),
					"deployment_id", node.ID,
				)
				continue
			}
			deployments = append(deployments, Normalize(repo, node))
		}
	}

	pages, err := github.Paginate(ctx, fetch, visit)
	if err != nil {
		return nil, err
	}

	c.logger.Infow("deployments collected",
		"org", c.org,
		"pages", pages,
		"collected", len(deployments),
		"skipped_outside_window", skipped,
		"dropped_without_commit", unresolved,
		"window", c.window,
	)
	return deployments, nil
}
