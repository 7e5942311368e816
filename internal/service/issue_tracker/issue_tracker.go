package issue_tracker

import (
	"context"

	"basegraph.app/ticketsmith/internal/model"
)

type CreateChildParams struct {
	ParentKey   string // Epic key returned by FindEpic/CreateEpic
	ProjectKey  string
	Summary     string
	Description string
}

// IssueTracker is the tracker side of both pipelines: epics and their child tickets on the
// way in, existing items for question answering on the way out.
type IssueTracker interface {
	// FindEpic looks up an epic by title within a project. The bool is false when none exists.
	FindEpic(ctx context.Context, title, projectKey string) (string, bool, error)
	CreateEpic(ctx context.Context, title, projectKey string) (string, error)
	CreateChildItem(ctx context.Context, params CreateChildParams) (string, error)
	ListItems(ctx context.Context, projectKey string) ([]model.IssueRecord, error)
	// BrowseURL is the human-facing link for an item key.
	BrowseURL(key string) string
}
