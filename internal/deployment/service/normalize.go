package service

import (
	deploymentModel "github.com/festy23/dora_collector/internal/deployment/model"
	"github.com/festy23/dora_collector/internal/github"
)

// Normalize maps a source deployment to the stored shape. CollectedAt is set by the store.
func Normalize(repo github.DeploymentRepository, node github.DeploymentNode) deploymentModel.Deployment {
	d := deploymentModel.Deployment{
		DeploymentID: node.ID,
		Repository:   repo.FullName(),
		Environment:  node.Environment,
		CommitSHA:    node.Commit.OID,
		CreatedAt:    node.CreatedAt.UTC(),
		Creator:      deploymentModel.UnknownActor,
		Status:       deploymentModel.StatusPending,
	}
	if node.Creator != nil && node.Creator.Login != "" {
		d.Creator = node.Creator.Login
	}
	if node.LatestStatus != nil {
		d.Status = node.LatestStatus.State
		if node.LatestStatus.CreatedAt != nil {
			updated := node.LatestStatus.CreatedAt.UTC()
			d.StatusUpdatedAt = &updated
		}
	}
	return d
}
