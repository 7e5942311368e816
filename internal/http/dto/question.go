package dto

import (
	"time"

	"basegraph.app/ticketsmith/internal/service"
)

type CreateSessionRequest struct {
	ProjectKey string `json:"project_key" binding:"required"`
}

type CreateSessionResponse struct {
	SessionID  int64  `json:"session_id,string"`
	ProjectKey string `json:"project_key"`
	Indexed    int    `json:"indexed"`
	Skipped    int    `json:"skipped"`
}

func ToCreateSessionResponse(r *service.IngestResult) *CreateSessionResponse {
	return &CreateSessionResponse{
		SessionID:  r.SessionID,
		ProjectKey: r.ProjectKey,
		Indexed:    r.Indexed,
		Skipped:    r.Skipped,
	}
}

type SessionResponse struct {
	SessionID  int64     `json:"session_id,string"`
	ProjectKey string    `json:"project_key"`
	Items      int       `json:"items"`
	CreatedAt  time.Time `json:"created_at"`
}

func ToSessionResponse(s *service.SessionInfo) *SessionResponse {
	return &SessionResponse{
		SessionID:  s.ID,
		ProjectKey: s.ProjectKey,
		Items:      s.Items,
		CreatedAt:  s.CreatedAt,
	}
}

type AskRequest struct {
	Question string `json:"question" binding:"required"`
}

type AnswerResponse struct {
	SessionID int64    `json:"session_id,string"`
	Answer    string   `json:"answer"`
	Prompt    string   `json:"prompt"`
	TicketIDs []string `json:"ticket_ids"`
}

func ToAnswerResponse(a *service.Answer) *AnswerResponse {
	return &AnswerResponse{
		SessionID: a.SessionID,
		Answer:    a.Answer,
		Prompt:    a.Prompt,
		TicketIDs: a.TicketIDs,
	}
}
