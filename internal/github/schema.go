package github

import (
	"errors"
	"fmt"
	"time"
)

// Actor is a user reference; the API returns null for deleted accounts.
type Actor struct {
	Login string `json:"login"`
}

// Owner is a repository owner.
type Owner struct {
	Login string `json:"login"`
}

// GitObject is a commit reference.
type GitObject struct {
	OID string `json:"oid"`
}

// DeploymentStatus is the most recent status of a deployment.
type DeploymentStatus struct {
	State     string     `json:"state"`
	CreatedAt *time.Time `json:"createdAt"`
}

// DeploymentNode is a deployment as returned by the API.
type DeploymentNode struct {
	ID           string            `json:"id"`
	Environment  string            `json:"environment"`
	CreatedAt    *time.Time        `json:"createdAt"`
	Commit       *GitObject        `json:"commit"`
	Creator      *Actor            `json:"creator"`
	LatestStatus *DeploymentStatus `json:"latestStatus"`
}

// DeploymentRepository is a repository node carrying its recent deployments.
type DeploymentRepository struct {
	Name        string `json:"name"`
	Owner       *Owner `json:"owner"`
	Deployments struct {
		Nodes []DeploymentNode `json:"nodes"`
	} `json:"deployments"`
}

// PullRequestNode is a merged pull request as returned by the API.
type PullRequestNode struct {
	Number      int        `json:"number"`
	Title       string     `json:"title"`
	CreatedAt   *time.Time `json:"createdAt"`
	MergedAt    *time.Time `json:"mergedAt"`
	BaseRefName string     `json:"baseRefName"`
	MergeCommit *GitObject `json:"mergeCommit"`
	Author      *Actor     `json:"author"`
}

// PullRequestRepository is a repository node carrying its recently merged pull requests.
type PullRequestRepository struct {
	Name         string `json:"name"`
	Owner        *Owner `json:"owner"`
	PullRequests struct {
		Nodes []PullRequestNode `json:"nodes"`
	} `json:"pullRequests"`
}

// Label is an issue label.
type Label struct {
	Name string `json:"name"`
}

// IssueNode is an issue as returned by the API.
type IssueNode struct {
	Number    int        `json:"number"`
	Title     string     `json:"title"`
	CreatedAt *time.Time `json:"createdAt"`
	ClosedAt  *time.Time `json:"closedAt"`
	State     string     `json:"state"`
	BodyText  string     `json:"bodyText"`
	URL       string     `json:"url"`
	Author    *Actor     `json:"author"`
	Labels    struct {
		Nodes []Label `json:"nodes"`
	} `json:"labels"`
}

// LabelNames returns the label names in source order.
func (n IssueNode) LabelNames() []string {
	names := make([]string, 0, len(n.Labels.Nodes))
	for _, l := range n.Labels.Nodes {
		names = append(names, l.Name)
	}
	return names
}

// IssueRepository is a repository node carrying its labelled issues.
type IssueRepository struct {
	Name   string `json:"name"`
	Owner  *Owner `json:"owner"`
	Issues struct {
		Nodes []IssueNode `json:"nodes"`
	} `json:"issues"`
}

// FullName returns owner/name.
func (r DeploymentRepository) FullName() string { return fullName(r.Owner, r.Name) }

// FullName returns owner/name.
func (r PullRequestRepository) FullName() string { return fullName(r.Owner, r.Name) }

// FullName returns owner/name.
func (r IssueRepository) FullName() string { return fullName(r.Owner, r.Name) }

func fullName(owner *Owner, name string) string {
	if owner == nil {
		return name
	}
	return owner.Login + "/" + name
}

// repositoryNode is a repository page element that can check its own required fields.
type repositoryNode interface {
	validate() error
}

func validateRepository(owner *Owner, name string) error {
	if name == "" {
		return errors.New("repository without name")
	}
	if owner == nil || owner.Login == "" {
		return fmt.Errorf("repository %q without owner", name)
	}
	return nil
}

func (r DeploymentRepository) validate() error {
	if err := validateRepository(r.Owner, r.Name); err != nil {
		return err
	}
	for i, d := range r.Deployments.Nodes {
		switch {
		case d.ID == "":
			return fmt.Errorf("%s: deployment %d without id", r.FullName(), i)
		case d.CreatedAt == nil:
			return fmt.Errorf("%s: deployment %s without createdAt", r.FullName(), d.ID)
		}
	}
	return nil
}

func (r PullRequestRepository) validate() error {
	if err := validateRepository(r.Owner, r.Name); err != nil {
		return err
	}
	for _, pr := range r.PullRequests.Nodes {
		switch {
		case pr.Number <= 0:
			return fmt.Errorf("%s: pull request without number", r.FullName())
		case pr.CreatedAt == nil:
			return fmt.Errorf("%s: pull request #%d without createdAt", r.FullName(), pr.Number)
		}
	}
	return nil
}

func (r IssueRepository) validate() error {
	if err := validateRepository(r.Owner, r.Name); err != nil {
		return err
	}
	for _, issue := range r.Issues.Nodes {
		switch {
		case issue.Number <= 0:
			return fmt.Errorf("%s: issue without number", r.FullName())
		case issue.CreatedAt == nil:
			return fmt.Errorf("%s: issue #%d without createdAt", r.FullName(), issue.Number)
		}
	}
	return nil
}

// organizationPage is the data member shared by every repository query.
type organizationPage[N repositoryNode] struct {
	Organization *struct {
		Repositories *struct {
			PageInfo *PageInfo `json:"pageInfo"`
			Nodes    []N       `json:"nodes"`
		} `json:"repositories"`
	} `json:"organization"`
}

// page checks required fields and flattens the decoded document.
func (p organizationPage[N]) page() (Page[N], error) {
	if p.Organization == nil {
		return Page[N]{}, errors.New("missing organization")
	}
	repos := p.Organization.Repositories
	if repos == nil || repos.PageInfo == nil {
		return Page[N]{}, errors.New("missing repositories.pageInfo")
	}
	for _, n := range repos.Nodes {
		if err := n.validate(); err != nil {
			return Page[N]{}, err
		}
	}
	return Page[N]{Nodes: repos.Nodes, PageInfo: *repos.PageInfo}, nil
}
