package issue_tracker

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	jira "github.com/andygrunwald/go-jira"

	"basegraph.app/ticketsmith/internal/model"
)

const (
	jiraService    = "jira"
	epicTypeName   = "Epic"
	searchPath     = "rest/api/3/search/jql"
	searchPage     = 100
	epicSearchPage = 50
)

type searchIssue struct {
	Key    string         `json:"key"`
	Fields map[string]any `json:"fields"`
}

type searchResult struct {
	Issues        []searchIssue `json:"issues"`
	NextPageToken string        `json:"nextPageToken"`
	IsLast        bool          `json:"isLast"`
}

type JiraConfig struct {
	BaseURL     string
	Email       string
	APIToken    string
	BrowseURL   string // defaults to BaseURL
	ImpactField string // custom field id holding the impact text, e.g. customfield_10077
	StoryType   string // issue type of child items
	Transport   http.RoundTripper
}

type jiraTracker struct {
	client      *jira.Client
	browseURL   string
	impactField string
	storyType   string
}

func NewJiraTracker(cfg JiraConfig) (IssueTracker, error) {
	auth := jira.BasicAuthTransport{
		Username:  cfg.Email,
		Password:  cfg.APIToken,
		Transport: cfg.Transport,
	}

	client, err := jira.NewClient(auth.Client(), cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("creating jira client: %w", err)
	}

	browseURL := cfg.BrowseURL
	if browseURL == "" {
		browseURL = cfg.BaseURL
	}
	storyType := cfg.StoryType
	if storyType == "" {
		storyType = "Story"
	}

	return &jiraTracker{
		client:      client,
		browseURL:   strings.TrimSuffix(browseURL, "/"),
		impactField: cfg.ImpactField,
		storyType:   storyType,
	}, nil
}

func (t *jiraTracker) FindEpic(ctx context.Context, title, projectKey string) (string, bool, error) {
	jql := fmt.Sprintf(`project = "%s" AND summary ~ "%s" AND issuetype = %s`,
		escapeJQL(projectKey), escapeJQL(title), epicTypeName)

	page, err := t.searchPage(ctx, "search epic", jql, []string{"summary"}, epicSearchPage, "")
	if err != nil {
		return "", false, err
	}
	if len(page.Issues) == 0 {
		return "", false, nil
	}

	// summary ~ is a text search, prefer the exact title when it is among the hits
	for _, issue := range page.Issues {
		if strings.EqualFold(strings.TrimSpace(fieldText(issue.Fields["summary"])), strings.TrimSpace(title)) {
			return issue.Key, true, nil
		}
	}
	return page.Issues[0].Key, true, nil
}

func (t *jiraTracker) CreateEpic(ctx context.Context, title, projectKey string) (string, error) {
	created, resp, err := t.client.Issue.CreateWithContext(ctx, &jira.Issue{
		Fields: &jira.IssueFields{
			Project: jira.Project{Key: projectKey},
			Summary: title,
			Type:    jira.IssueType{Name: epicTypeName},
		},
	})
	if err != nil {
		return "", upstreamError("create epic", resp, err)
	}

	slog.InfoContext(ctx, "jira epic created", "key", created.Key, "project_key", projectKey)
	return created.Key, nil
}

func (t *jiraTracker) CreateChildItem(ctx context.Context, params CreateChildParams) (string, error) {
	created, resp, err := t.client.Issue.CreateWithContext(ctx, &jira.Issue{
		Fields: &jira.IssueFields{
			Project:     jira.Project{Key: params.ProjectKey},
			Summary:     params.Summary,
			Description: params.Description,
			Type:        jira.IssueType{Name: t.storyType},
			Parent:      &jira.Parent{Key: params.ParentKey},
		},
	})
	if err != nil {
		return "", upstreamError("create ticket", resp, err)
	}

	slog.InfoContext(ctx, "jira ticket created", "key", created.Key, "epic_key", params.ParentKey)
	return created.Key, nil
}

func (t *jiraTracker) ListItems(ctx context.Context, projectKey string) ([]model.IssueRecord, error) {
	jql := fmt.Sprintf(`project = "%s" ORDER BY created ASC`, escapeJQL(projectKey))

	fields := []string{"summary", "description", "labels"}
	if t.impactField != "" {
		fields = append(fields, t.impactField)
	}

	records := make([]model.IssueRecord, 0)
	token := ""
	for {
		page, err := t.searchPage(ctx, "list issues", jql, fields, searchPage, token)
		if err != nil {
			return nil, err
		}
		for _, issue := range page.Issues {
			records = append(records, t.toRecord(issue))
		}
		if page.IsLast || page.NextPageToken == "" {
			return records, nil
		}
		token = page.NextPageToken
	}
}

// searchPage runs one page of the enhanced JQL search. Jira Cloud retired rest/api/2/search,
// which go-jira's SearchWithContext still calls.
func (t *jiraTracker) searchPage(ctx context.Context, operation, jql string, fields []string, maxResults int, token string) (*searchResult, error) {
	query := url.Values{}
	query.Set("jql", jql)
	query.Set("fields", strings.Join(fields, ","))
	query.Set("maxResults", strconv.Itoa(maxResults))
	if token != "" {
		query.Set("nextPageToken", token)
	}

	req, err := t.client.NewRequestWithContext(ctx, http.MethodGet, searchPath+"?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("building search request: %w", err)
	}

	result := new(searchResult)
	resp, err := t.client.Do(req, result)
	if err != nil {
		return nil, upstreamError(operation, resp, err)
	}
	return result, nil
}

func (t *jiraTracker) BrowseURL(key string) string {
	return t.browseURL + "/browse/" + key
}

func (t *jiraTracker) toRecord(issue searchIssue) model.IssueRecord {
	record := model.IssueRecord{
		Key:         issue.Key,
		Summary:     fieldText(issue.Fields["summary"]),
		Description: fieldText(issue.Fields["description"]),
	}
	if labels, ok := issue.Fields["labels"].([]any); ok {
		for _, label := range labels {
			if s, ok := label.(string); ok {
				record.Labels = append(record.Labels, s)
			}
		}
	}
	if t.impactField != "" {
		record.Impact = fieldText(issue.Fields[t.impactField])
	}
	return record
}

// fieldText flattens the shapes a field comes back in: plain text, an Atlassian document
// (API v3 rich text), a select option ({"value": "High"}) or a list of options.
func fieldText(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return fmt.Sprintf("%g", val)
	case map[string]any:
		if _, ok := val["content"]; ok {
			return adfText(val)
		}
		if s, ok := val["value"].(string); ok {
			return s
		}
		if s, ok := val["name"].(string); ok {
			return s
		}
	case []any:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			if s := fieldText(item); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	}
	return ""
}

func escapeJQL(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `"`, `\"`)
}

// adfText renders an Atlassian document node as plain text: inline children are concatenated,
// block children go on their own lines.
func adfText(node map[string]any) string {
	switch node["type"] {
	case "text":
		text, _ := node["text"].(string)
		return text
	case "hardBreak":
		return "\n"
	}

	children, _ := node["content"].([]any)
	parts := make([]string, 0, len(children))
	inline := true
	for _, child := range children {
		c, ok := child.(map[string]any)
		if !ok {
			continue
		}
		if !inlineNodes[fmt.Sprint(c["type"])] {
			inline = false
		}
		parts = append(parts, adfText(c))
	}
	if inline {
		return strings.Join(parts, "")
	}
	return strings.Join(parts, "\n")
}

var inlineNodes = map[string]bool{
	"text": true, "hardBreak": true, "mention": true, "emoji": true, "inlineCard": true, "date": true,
}

func upstreamError(operation string, resp *jira.Response, err error) error {
	status := 0
	if resp != nil && resp.Response != nil {
		status = resp.StatusCode
		// go-jira leaves the error body open for inspection
		_ = resp.Body.Close()
	}
	return &model.UpstreamError{Service: jiraService, Operation: operation, StatusCode: status, Err: err}
}
