package model

import "errors"

var (
	// ErrMissingMergeCommit indicates a merged pull request without a merge commit SHA.
	ErrMissingMergeCommit = errors.New("pull request has no merge commit")
	// ErrMissingMergedAt indicates a pull request without a merge timestamp.
	ErrMissingMergedAt = errors.New("pull request has no merge timestamp")
	// ErrUntrackedBranch indicates a pull request merged into a branch other than the tracked one.
	ErrUntrackedBranch = errors.New("pull request targets an untracked branch")
)
