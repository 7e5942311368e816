package document

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	jira "github.com/andygrunwald/go-jira"

	"basegraph.app/ticketsmith/internal/decompose"
	"basegraph.app/ticketsmith/internal/model"
)

const confluenceService = "confluence"

type ConfluenceConfig struct {
	// BaseURL is the Atlassian site; the content API lives under /wiki.
	BaseURL   string
	Email     string
	APIToken  string
	Transport http.RoundTripper
}

// confluenceStore talks to the Confluence content API through go-jira's authenticated
// request plumbing, since both products share one site and one API token.
type confluenceStore struct {
	client *jira.Client
}

func NewConfluenceStore(cfg ConfluenceConfig) (Store, error) {
	auth := jira.BasicAuthTransport{
		Username:  cfg.Email,
		Password:  cfg.APIToken,
		Transport: cfg.Transport,
	}

	client, err := jira.NewClient(auth.Client(), cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("creating confluence client: %w", err)
	}

	return &confluenceStore{client: client}, nil
}

type contentBody struct {
	Value          string `json:"value"`
	Representation string `json:"representation,omitempty"`
}

type content struct {
	ID    string `json:"id,omitempty"`
	Type  string `json:"type"`
	Title string `json:"title"`
	Body  struct {
		Storage *contentBody `json:"storage,omitempty"`
		Editor  *contentBody `json:"editor,omitempty"`
		View    *contentBody `json:"view,omitempty"`
	} `json:"body"`
	Version struct {
		Number int `json:"number"`
	} `json:"version"`
}

func (s *confluenceStore) FetchPage(ctx context.Context, pageURL string) (*model.Page, error) {
	pageID, err := decompose.ExtractPageID(pageURL)
	if err != nil {
		return nil, err
	}

	c, err := s.getContent(ctx, pageID, "body.storage,version")
	if err != nil {
		return nil, err
	}

	body := storageValue(c)
	projectKey, err := decompose.ExtractProjectKey(body)
	if err != nil {
		return nil, fmt.Errorf("page %s: %w", pageID, err)
	}

	return &model.Page{
		ID:         pageID,
		Title:      c.Title,
		Content:    body,
		ProjectKey: projectKey,
		Version:    c.Version.Number,
	}, nil
}

func (s *confluenceStore) FetchPageFormats(ctx context.Context, pageURL string) (*model.PageFormats, error) {
	pageID, err := decompose.ExtractPageID(pageURL)
	if err != nil {
		return nil, err
	}

	c, err := s.getContent(ctx, pageID, "body.storage,body.view,body.editor")
	if err != nil {
		return nil, err
	}

	formats := &model.PageFormats{Title: c.Title, Storage: storageValue(c)}
	if c.Body.Editor != nil {
		formats.Editor = c.Body.Editor.Value
	}
	if c.Body.View != nil {
		formats.View = c.Body.View.Value
	}
	return formats, nil
}

func (s *confluenceStore) AppendToPage(ctx context.Context, pageURL, fragment string) (*model.Page, error) {
	pageID, err := decompose.ExtractPageID(pageURL)
	if err != nil {
		return nil, err
	}

	current, err := s.getContent(ctx, pageID, "body.storage,version")
	if err != nil {
		return nil, err
	}

	update := content{
		ID:    pageID,
		Type:  "page",
		Title: current.Title,
	}
	update.Version.Number = current.Version.Number + 1
	update.Body.Storage = &contentBody{
		Value:          storageValue(current) + fragment,
		Representation: "storage",
	}

	req, err := s.client.NewRequestWithContext(ctx, http.MethodPut, contentPath(pageID), update)
	if err != nil {
		return nil, fmt.Errorf("building page update request: %w", err)
	}

	updated := new(content)
	resp, err := s.client.Do(req, updated)
	if err != nil {
		return nil, confluenceError("update page", resp, err)
	}

	slog.InfoContext(ctx, "confluence page updated",
		"page_id", pageID,
		"version", update.Version.Number,
		"fragment_bytes", len(fragment))

	return &model.Page{
		ID:      pageID,
		Title:   current.Title,
		Content: update.Body.Storage.Value,
		Version: update.Version.Number,
	}, nil
}

func (s *confluenceStore) getContent(ctx context.Context, pageID, expand string) (*content, error) {
	req, err := s.client.NewRequestWithContext(ctx, http.MethodGet, contentPath(pageID)+"?expand="+expand, nil)
	if err != nil {
		return nil, fmt.Errorf("building page request: %w", err)
	}

	c := new(content)
	resp, err := s.client.Do(req, c)
	if err != nil {
		return nil, confluenceError("fetch page", resp, err)
	}
	return c, nil
}

func contentPath(pageID string) string {
	return "wiki/rest/api/content/" + pageID
}

func storageValue(c *content) string {
	if c.Body.Storage == nil {
		return ""
	}
	return c.Body.Storage.Value
}

func confluenceError(operation string, resp *jira.Response, err error) error {
	status := 0
	if resp != nil && resp.Response != nil {
		status = resp.StatusCode
		// go-jira leaves the error body open for inspection
		_ = resp.Body.Close()
	}
	return &model.UpstreamError{Service: confluenceService, Operation: operation, StatusCode: status, Err: err}
}
