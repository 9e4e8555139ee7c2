package model

// ProjectRecord is one portfolio project returned by search or lookup.
type ProjectRecord struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Summary string  `json:"summary"`
	Details string  `json:"details,omitempty"`
	Score   float64 `json:"score"`
	GitHub  string  `json:"github,omitempty"`
	Demo    string  `json:"demo,omitempty"`
}
