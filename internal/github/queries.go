package github

import (
	"context"
	"fmt"

	"github.com/festy23/dora_collector/internal/apperr"
)

const (
	repositoriesPerPage = 100
	entitiesPerRepo     = 50
	labelsPerIssue      = 20
)

const deploymentsQuery = `query($org: String!, $cursor: String%s) {
  organization(login: $org) {
    repositories(first: %d, after: $cursor) {
      pageInfo { hasNextPage endCursor }
      nodes {
        name
        owner { login }
        deployments(first: %d%s, orderBy: {field: CREATED_AT, direction: DESC}) {
          nodes {
            id
            environment
            createdAt
            commit { oid }
            creator { login }
            latestStatus { state createdAt }
          }
        }
      }
    }
  }
}`

const pullRequestsQuery = `query($org: String!, $cursor: String) {
  organization(login: $org) {
    repositories(first: %d, after: $cursor) {
      pageInfo { hasNextPage endCursor }
      nodes {
        name
        owner { login }
        pullRequests(first: %d, states: MERGED, orderBy: {field: UPDATED_AT, direction: DESC}) {
          nodes {
            number
            title
            createdAt
            mergedAt
            baseRefName
            mergeCommit { oid }
            author { login }
          }
        }
      }
    }
  }
}`

const issuesQuery = `query($org: String!, $cursor: String) {
  organization(login: $org) {
    repositories(first: %d, after: $cursor) {
      pageInfo { hasNextPage endCursor }
      nodes {
        name
        owner { login }
        issues(first: %d, labels: ["incident", "production"], states: [OPEN, CLOSED], orderBy: {field: CREATED_AT, direction: DESC}) {
          nodes {
            number
            title
            createdAt
            closedAt
            state
            bodyText
            url
            author { login }
            labels(first: %d) { nodes { name } }
          }
        }
      }
    }
  }
}`

// DeploymentsQuery renders the deployment document, restricted to environments when non-empty.
func DeploymentsQuery(environments []string) string {
	if len(environments) == 0 {
		return fmt.Sprintf(deploymentsQuery, "", repositoriesPerPage, entitiesPerRepo, "")
	}
	return fmt.Sprintf(deploymentsQuery, ", $environments: [String!]", repositoriesPerPage, entitiesPerRepo,
		", environments: $environments")
}

// PullRequestsQuery renders the merged pull request document.
func PullRequestsQuery() string {
	return fmt.Sprintf(pullRequestsQuery, repositoriesPerPage, entitiesPerRepo)
}

// IssuesQuery renders the incident issue document.
func IssuesQuery() string {
	return fmt.Sprintf(issuesQuery, repositoriesPerPage, entitiesPerRepo, labelsPerIssue)
}

func fetchPage[N repositoryNode](ctx context.Context, c *Client, token, query string, vars map[string]any) (Page[N], error) {
	var doc organizationPage[N]
	if err := c.Query(ctx, token, query, vars, &doc); err != nil {
		return Page[N]{}, err
	}
	page, err := doc.page()
	if err != nil {
		return Page[N]{}, apperr.Errorf(apperr.ErrTransport, "graphql query", "malformed page: %v", err)
	}
	return page, nil
}

func pageVariables(org string, cursor *string) map[string]any {
	vars := map[string]any{"org": org, "cursor": nil}
	if cursor != nil {
		vars["cursor"] = *cursor
	}
	return vars
}

// DeploymentsPage fetches one page of repositories with their deployments.
func (c *Client) DeploymentsPage(ctx context.Context, token, org string, environments []string, cursor *string) (Page[DeploymentRepository], error) {
	vars := pageVariables(org, cursor)
	if len(environments) > 0 {
		vars["environments"] = environments
	}
	return fetchPage[DeploymentRepository](ctx, c, token, DeploymentsQuery(environments), vars)
}

// PullRequestsPage fetches one page of repositories with their merged pull requests.
func (c *Client) PullRequestsPage(ctx context.Context, token, org string, cursor *string) (Page[PullRequestRepository], error) {
	return fetchPage[PullRequestRepository](ctx, c, token, PullRequestsQuery(), pageVariables(org, cursor))
}

// IssuesPage fetches one page of repositories with their incident-labelled issues.
func (c *Client) IssuesPage(ctx context.Context, token, org string, cursor *string) (Page[IssueRepository], error) {
	return fetchPage[IssueRepository](ctx, c, token, IssuesQuery(), pageVariables(org, cursor))
}
