package document

import (
	"context"

	"basegraph.app/ticketsmith/internal/model"
)

// Store reads and extends requirements pages.
type Store interface {
	// FetchPage returns the page storage body, its title and the project key found in it.
	// It fails with decompose.ErrProjectKeyNotFound when the body carries no "Project: KEY".
	FetchPage(ctx context.Context, pageURL string) (*model.Page, error)
	FetchPageFormats(ctx context.Context, pageURL string) (*model.PageFormats, error)
	// AppendToPage writes fragment after the current body as the next page version.
	AppendToPage(ctx context.Context, pageURL, fragment string) (*model.Page, error)
}
