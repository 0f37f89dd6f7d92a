package model

// Summary aggregates one run's pull requests for the run log.
type Summary struct {
	Total        int            `json:"total"`
	ByRepository map[string]int `json:"by_repository"`
}

// Summarize counts pull requests by repository.
func Summarize(prs []PullRequest) Summary {
	s := Summary{Total: len(prs), ByRepository: make(map[string]int)}
	for _, pr := range prs {
		s.ByRepository[pr.Repository]++
	}
	return s
}
