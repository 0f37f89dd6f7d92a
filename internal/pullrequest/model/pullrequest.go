package model

import "time"

// UnknownActor replaces a missing author.
const UnknownActor = "unknown"

// PullRequest is a pull request merged into the tracked branch.
// Matches the pull_requests table schema.
type PullRequest struct {
	ID             int64      `gorm:"primaryKey;autoIncrement;column:id"                                                            json:"-"`
	Repository     string     `gorm:"column:repository;size:255;not null;uniqueIndex:uq_pull_requests_repository_number,priority:1" json:"repository"`
	PRNumber       int        `gorm:"column:pr_number;not null;uniqueIndex:uq_pull_requests_repository_number,priority:2"           json:"pr_number"`
	Title          string     `gorm:"column:title;not null"                                                                         json:"title"`
	Author         string     `gorm:"column:author;size:255;not null"                                                               json:"author"`
	CreatedAt      time.Time  `gorm:"column:created_at;not null"                                                                    json:"created_at"`
	MergedAt       *time.Time `gorm:"column:merged_at;not null"                                                                     json:"merged_at"`
	MergeCommitSHA *string    `gorm:"column:merge_commit_sha;size:64;not null;index:idx_pull_requests_merge_commit_sha"             json:"merge_commit_sha"`
	BaseBranch     string     `gorm:"column:base_branch;size:255;not null"                                                          json:"base_branch"`
	CollectedAt    time.Time  `gorm:"column:collected_at;not null;index:idx_pull_requests_collected_at"                             json:"collected_at"`
}

// TableName specifies the table name for GORM.
func (PullRequest) TableName() string {
	return "pull_requests"
}

// Validate reports why a pull request cannot be stored for trackedBranch.
func (pr PullRequest) Validate(trackedBranch string) error {
	switch {
	case pr.MergeCommitSHA == nil || *pr.MergeCommitSHA == "":
		return ErrMissingMergeCommit
	case pr.MergedAt == nil:
		return ErrMissingMergedAt
	case pr.BaseBranch != trackedBranch:
		return ErrUntrackedBranch
	}
	return nil
}
