package model

// CommitCorrelation links recently collected pull requests to deployments of their merge commits.
type CommitCorrelation struct {
	RecentPullRequests   int `json:"recent_pull_requests"`
	PullRequestsDeployed int `json:"pull_requests_deployed"`
	MatchedDeployments   int `json:"matched_deployments"`
	DistinctMergeCommits int `json:"distinct_merge_commits"`
}

// IncidentCorrelation links recent deployments to incidents opened in the same repository
// within a day after the deployment.
type IncidentCorrelation struct {
	RecentDeployments       int `json:"recent_deployments"`
	DeploymentsWithIncident int `json:"deployments_with_incident"`
	DistinctIncidents       int `json:"distinct_incidents"`
}
