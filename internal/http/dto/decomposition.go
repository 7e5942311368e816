package dto

import (
	"time"

	"basegraph.app/ticketsmith/internal/model"
	"basegraph.app/ticketsmith/internal/service"
)

type WorkItem struct {
	Summary     string `json:"summary"`
	Description string `json:"description"`
}

func ToWorkItems(items []model.WorkItem) []WorkItem {
	out := make([]WorkItem, 0, len(items))
	for _, item := range items {
		out = append(out, WorkItem{Summary: item.Summary, Description: item.Description})
	}
	return out
}

type BreakdownRequest struct {
	Content string `json:"content" binding:"required"`
}

type BreakdownResponse struct {
	TasksText string     `json:"tasks_text"`
	WorkItems []WorkItem `json:"work_items"`
}

func ToBreakdownResponse(r *service.BreakdownResult) *BreakdownResponse {
	return &BreakdownResponse{
		TasksText: r.TasksText,
		WorkItems: ToWorkItems(r.Items),
	}
}

type CreateEpicRequest struct {
	EpicTitle  string `json:"epic_title" binding:"required,max=255"`
	ProjectKey string `json:"project_key" binding:"required"`
}

type EpicResponse struct {
	Key     string `json:"key"`
	Existed bool   `json:"existed"`
}

type CreateTicketRequest struct {
	EpicKey     string `json:"epic_key" binding:"required"`
	Summary     string `json:"summary" binding:"required,max=255"`
	Description string `json:"description"`
	ProjectKey  string `json:"project_key" binding:"required"`
}

type TicketResponse struct {
	Key string `json:"key"`
}

type DecomposeResponse struct {
	RunID       int64      `json:"run_id,string"`
	PageTitle   string     `json:"page_title"`
	ProjectKey  string     `json:"project_key"`
	EpicKey     string     `json:"epic_key"`
	TicketKeys  []string   `json:"ticket_keys"`
	WorkItems   []WorkItem `json:"work_items"`
	PageVersion int        `json:"page_version"`
}

func ToDecomposeResponse(r *service.DecompositionResult) *DecomposeResponse {
	return &DecomposeResponse{
		RunID:       r.RunID,
		PageTitle:   r.PageTitle,
		ProjectKey:  r.ProjectKey,
		EpicKey:     r.EpicKey,
		TicketKeys:  r.TicketKeys,
		WorkItems:   ToWorkItems(r.Items),
		PageVersion: r.PageVersion,
	}
}

type RunItemResponse struct {
	Position int    `json:"position"`
	Summary  string `json:"summary"`
	ItemKey  string `json:"item_key"`
}

type RunResponse struct {
	ID         int64             `json:"id,string"`
	PageURL    string            `json:"page_url"`
	PageTitle  string            `json:"page_title"`
	ProjectKey string            `json:"project_key"`
	EpicKey    *string           `json:"epic_key,omitempty"`
	Status     string            `json:"status"`
	Error      *string           `json:"error,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
	FinishedAt *time.Time        `json:"finished_at,omitempty"`
	Items      []RunItemResponse `json:"items"`
}

func ToRunResponse(run *model.DecompositionRun, items []model.DecompositionRunItem) *RunResponse {
	resp := &RunResponse{
		ID:         run.ID,
		PageURL:    run.PageURL,
		PageTitle:  run.PageTitle,
		ProjectKey: run.ProjectKey,
		EpicKey:    run.EpicKey,
		Status:     string(run.Status),
		Error:      run.Error,
		CreatedAt:  run.CreatedAt,
		FinishedAt: run.FinishedAt,
		Items:      make([]RunItemResponse, 0, len(items)),
	}
	for _, item := range items {
		resp.Items = append(resp.Items, RunItemResponse{
			Position: item.Position,
			Summary:  item.Summary,
			ItemKey:  item.ItemKey,
		})
	}
	return resp
}
