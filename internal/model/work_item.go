package model

// WorkItem is one unit of work recovered from the model's breakdown of a requirements page.
type WorkItem struct {
	Summary     string `json:"summary"`
	Description string `json:"description"`
}
