package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/festy23/dora_collector/internal/config"
	"github.com/festy23/dora_collector/internal/github"
	incidentModel "github.com/festy23/dora_collector/internal/incident/model"
)

// Source fetches pages of repositories with their labelled issues.
type Source interface {
	IssuesPage(ctx context.Context, token, org string, cursor *string) (github.Page[github.IssueRepository], error)
}

// Collector harvests recent production incidents.
type Collector struct {
	source   Source
	org      string
	lookback time.Duration
	now      func() time.Time
	logger   *zap.SugaredLogger
}

// NewCollector creates an incident collector for the configured organization.
func NewCollector(source Source, cfg config.GitHubConfig, logger *zap.SugaredLogger) *Collector {
	return &Collector{
		source:   source,
		org:      cfg.Org,
		lookback: cfg.IncidentLookback,
		now:      func() time.Time { return time.Now().UTC() },
		logger:   logger,
	}
}

func (c *Collector) keep(node github.IssueNode) bool {
	if node.CreatedAt == nil || c.now().Sub(*node.CreatedAt) > c.lookback {
		return false
	}
	return incidentModel.IsProductionIncident(node.LabelNames())
}

// Collect walks every repository page and returns the incidents that pass the filters.
func (c *Collector) Collect(ctx context.Context, token string) ([]incidentModel.Incident, error) {
	var (
		incidents []incidentModel.Incident
		skipped   int
	)

	fetch := func(ctx context.Context, cursor *string) (github.Page[github.IssueRepository], error) {
		return c.source.IssuesPage(ctx, token, c.org, cursor)
	}
	visit := func(repo github.IssueRepository) {
		for _, node := range repo.Issues.Nodes {
			if !c.keep(node) {
				skipped++
				continue
			}
			incidents = append(incidents, Normalize(repo, node))
		}
	}

	pages, err := github.Paginate(ctx, fetch, visit)
	if err != nil {
		return nil, err
	}

	c.logger.Infow("incidents collected",
		"org", c.org,
		"pages", pages,
		"collected", len(incidents),
		"skipped", skipped,
		"lookback", c.lookback,
	)
	return incidents, nil
}
