package model

// Summary aggregates one run's incidents for the run log.
type Summary struct {
	Total        int            `json:"total"`
	ByRepository map[string]int `json:"by_repository"`
	ByState      map[string]int `json:"by_state"`
}

// Summarize counts incidents by repository and by state.
func Summarize(incidents []Incident) Summary {
	s := Summary{
		Total:        len(incidents),
		ByRepository: make(map[string]int),
		ByState:      make(map[string]int),
	}
	for _, inc := range incidents {
		s.ByRepository[inc.Repository]++
		s.ByState[inc.State]++
	}
	return s
}
