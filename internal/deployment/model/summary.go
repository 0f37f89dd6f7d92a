package model

// Summary aggregates one run's deployments for the run log.
type Summary struct {
	Total        int            `json:"total"`
	ByRepository map[string]int `json:"by_repository"`
	ByStatus     map[string]int `json:"by_status"`
	Successful   int            `json:"successful"`
	Failed       int            `json:"failed"`
}

// Summarize counts deployments by repository and status.
func Summarize(deployments []Deployment) Summary {
	s := Summary{
		Total:        len(deployments),
		ByRepository: make(map[string]int),
		ByStatus:     make(map[string]int),
	}
	for _, d := range deployments {
		s.ByRepository[d.Repository]++
		s.ByStatus[d.Status]++
		switch {
		case d.IsSuccessful():
			s.Successful++
		case d.IsFailed():
			s.Failed++
		}
	}
	return s
}
