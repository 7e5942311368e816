package model

import "time"

type RunStatus string

const (
	RunStatusStarted   RunStatus = "started"
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusFailed    RunStatus = "failed"
)

// DecompositionRun is the ledger entry for one page -> epic -> tickets run.
type DecompositionRun struct {
	ID         int64      `json:"id"`
	PageURL    string     `json:"page_url"`
	PageTitle  string     `json:"page_title"`
	ProjectKey string     `json:"project_key"`
	EpicKey    *string    `json:"epic_key,omitempty"`
	Status     RunStatus  `json:"status"`
	Error      *string    `json:"error,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

type DecompositionRunItem struct {
	RunID    int64  `json:"run_id"`
	Position int    `json:"position"`
	Summary  string `json:"summary"`
	ItemKey  string `json:"item_key"`
}
