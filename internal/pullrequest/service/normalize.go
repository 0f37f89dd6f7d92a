package service

import (
	"github.com/festy23/dora_collector/internal/github"
	pullrequestModel "github.com/festy23/dora_collector/internal/pullrequest/model"
)

// Normalize maps a source pull request to the stored shape. CollectedAt is set by the store.
func Normalize(repo github.PullRequestRepository, node github.PullRequestNode) pullrequestModel.PullRequest {
	pr := pullrequestModel.PullRequest{
		Repository: repo.FullName(),
		PRNumber:   node.Number,
		Title:      node.Title,
		Author:     pullrequestModel.UnknownActor,
		CreatedAt:  node.CreatedAt.UTC(),
		BaseBranch: node.BaseRefName,
	}
	if node.Author != nil && node.Author.Login != "" {
		pr.Author = node.Author.Login
	}
	if node.MergedAt != nil {
		merged := node.MergedAt.UTC()
		pr.MergedAt = &merged
	}
	if node.MergeCommit != nil && node.MergeCommit.OID != "" {
		sha := node.MergeCommit.OID
		pr.MergeCommitSHA = &sha
	}
	return pr
}
