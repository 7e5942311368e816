package model

import "strings"

// NoDescription stands in for a blank description wherever a record is rendered or embedded.
const NoDescription = "No description available"

// IssueRecord is an existing tracker item as seen by the question-answering pipeline.
// Missing optional fields are left empty and rendered with placeholders downstream.
type IssueRecord struct {
	Key         string   `json:"key"`
	Summary     string   `json:"summary"`
	Description string   `json:"description"`
	Labels      []string `json:"labels"`
	Impact      string   `json:"impact"`
}

// EmbeddingText is the text embedded for similarity search.
func (r IssueRecord) EmbeddingText() string {
	description := r.Description
	if strings.TrimSpace(description) == "" {
		description = NoDescription
	}
	return r.Summary + " " + description
}
