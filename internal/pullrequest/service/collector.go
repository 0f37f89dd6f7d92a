package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/festy23/dora_collector/internal/config"
	"github.com/festy23/dora_collector/internal/github"
	pullrequestModel "github.com/festy23/dora_collector/internal/pullrequest/model"
)

// Source fetches pages of repositories with their merged pull requests.
type Source interface {
	PullRequestsPage(ctx context.Context, token, org string, cursor *string) (github.Page[github.PullRequestRepository], error)
}

// Collector harvests pull requests recently merged into the tracked branch.
type Collector struct {
	source   Source
	org      string
	branch   string
	lookback time.Duration
	now      func() time.Time
	logger   *zap.SugaredLogger
}

// NewCollector creates a pull request collector for the configured organization.
func NewCollector(source Source, cfg config.GitHubConfig, logger *zap.SugaredLogger) *Collector {
	return &Collector{
		source:   source,
		org:      cfg.Org,
		branch:   cfg.BaseBranch,
		lookback: cfg.PRLookback,
		now:      func() time.Time { return time.Now().UTC() },
		logger:   logger,
	}
}

// keep reports whether node targets the tracked branch and merged within the lookback.
func (c *Collector) keep(node github.PullRequestNode) bool {
	if node.BaseRefName != c.branch || node.MergedAt == nil {
		return false
	}
	return c.now().Sub(*node.MergedAt) <= c.lookback
}

// Collect walks every repository page and returns the pull requests that pass the filters.
func (c *Collector) Collect(ctx context.Context, token string) ([]pullrequestModel.PullRequest, error) {
	var (
		prs     []pullrequestModel.PullRequest
		skipped int
	)

	fetch := func(ctx context.Context, cursor *string) (github.Page[github.PullRequestRepository], error) {
		return c.source.PullRequestsPage(ctx, token, c.org, cursor)
	}
	visit := func(repo github.PullRequestRepository) {
		for _, node := range repo.PullRequests.Nodes {
			if !c.keep(node) {
				skipped++
				continue
			}
			prs = append(prs, Normalize(repo, node))
		}
	}

	pages, err := github.Paginate(ctx, fetch, visit)
	if err != nil {
		return nil, err
	}

	c.logger.Infow("pull requests collected",
		"org", c.org,
		"branch", c.branch,
		"pages", pages,
		"collected", len(prs),
		"skipped", skipped,
		"lookback", c.lookback,
	)
	return prs, nil
}
