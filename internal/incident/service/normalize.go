package service

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/festy23/dora_collector/internal/github"
	incidentModel "github.com/festy23/dora_collector/internal/incident/model"
)

var productPattern = regexp.MustCompile(`### Product Affected\s*\n\s*(.+)`)

// Normalize maps a source issue to the stored incident shape. CollectedAt is set by the store.
func Normalize(repo github.IssueRepository, node github.IssueNode) incidentModel.Incident {
	inc := incidentModel.Incident{
		Repository:  repo.FullName(),
		IssueNumber: node.Number,
		Title:       node.Title,
		CreatedAt:   node.CreatedAt.UTC(),
		State:       strings.ToLower(node.State),
		Labels:      encodeLabels(node.LabelNames()),
		Product:     ExtractProduct(node.BodyText),
		Creator:     incidentModel.UnknownActor,
		URL:         node.URL,
	}
	if node.Author != nil && node.Author.Login != "" {
		inc.Creator = node.Author.Login
	}
	if node.ClosedAt != nil {
		closed := node.ClosedAt.UTC()
		inc.ClosedAt = &closed
	}
	return inc
}

// ExtractProduct returns the first line under the "Product Affected" heading, or nil.
func ExtractProduct(body string) *string {
	m := productPattern.FindStringSubmatch(body)
	if m == nil {
		return nil
	}
	product := strings.TrimSpace(m[1])
	if product == "" {
		return nil
	}
	return &product
}

func encodeLabels(labels []string) string {
	// []string always marshals
	b, _ := json.Marshal(labels)
	return string(b)
}
