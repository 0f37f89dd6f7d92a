package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	gogithub "github.com/google/go-github/v62/github"
)

const teamsPerPage = 100

// RepositoryTeams returns the comma-joined names of the teams with access to
// owner/name. A repository unknown to the API yields "".
func (c *Client) RepositoryTeams(ctx context.Context, token, owner, name string) (string, error) {
	rest := c.restClient(token)
	opts := &gogithub.ListOptions{PerPage: teamsPerPage}

	var names []string
	for {
		teams, resp, err := rest.Repositories.ListTeams(ctx, owner, name, opts)
		if err != nil {
			var apiErr *gogithub.ErrorResponse
			if errors.As(err, &apiErr) && apiErr.Response != nil && apiErr.Response.StatusCode == http.StatusNotFound {
				return "", nil
			}
			return "", fmt.Errorf("list teams of %s/%s: %w", owner, name, err)
		}
		for _, t := range teams {
			names = append(names, t.GetName())
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return strings.Join(names, ", "), nil
}
