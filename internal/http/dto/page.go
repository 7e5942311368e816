package dto

import "basegraph.app/ticketsmith/internal/model"

type PageRequest struct {
	PageURL string `json:"page_url" binding:"required,url"`
}

type PageResponse struct {
	Content    string `json:"content"`
	Title      string `json:"title"`
	ProjectKey string `json:"project_key"`
}

func ToPageResponse(p *model.Page) *PageResponse {
	return &PageResponse{
		Content:    p.Content,
		Title:      p.Title,
		ProjectKey: p.ProjectKey,
	}
}

type PageFormatsResponse struct {
	Title   string `json:"title"`
	Storage string `json:"storage"`
	Editor  string `json:"editor"`
	View    string `json:"view"`
}

func ToPageFormatsResponse(f *model.PageFormats) *PageFormatsResponse {
	return &PageFormatsResponse{
		Title:   f.Title,
		Storage: f.Storage,
		Editor:  f.Editor,
		View:    f.View,
	}
}

type LinkEpicRequest struct {
	PageURL string `json:"page_url" binding:"required,url"`
	EpicKey string `json:"epic_key" binding:"required"`
}

type LinkTicketsRequest struct {
	PageURL    string   `json:"page_url" binding:"required,url"`
	TicketKeys []string `json:"ticket_keys" binding:"required,min=1,dive,required"`
}

type PageUpdateResponse struct {
	PageID  string `json:"page_id"`
	Title   string `json:"title"`
	Version int    `json:"version"`
}

func ToPageUpdateResponse(p *model.Page) *PageUpdateResponse {
	return &PageUpdateResponse{
		PageID:  p.ID,
		Title:   p.Title,
		Version: p.Version,
	}
}
