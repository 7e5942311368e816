package issue_tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	gitlab "gitlab.com/gitlab-org/api/client-go"

	"basegraph.app/ticketsmith/internal/model"
)

const gitlabService = "gitlab"

type GitLabConfig struct {
	BaseURL string
	Token   string
	// Projects maps tracker project keys (the "Project: KEY" token on pages) to GitLab
	// project paths. Keys without an entry are used as the path itself.
	Projects map[string]string
}

// gitLabTracker models an epic as a project milestone and a ticket as an issue in it.
// Epic keys look like "group/app%3" (milestone iid), ticket keys like "group/app#12".
type gitLabTracker struct {
	client   *gitlab.Client
	baseURL  string
	projects map[string]string
}

func NewGitLabTracker(cfg GitLabConfig) (IssueTracker, error) {
	client, err := newGitLabClient(cfg.BaseURL, cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("creating gitlab client: %w", err)
	}

	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://gitlab.com"
	}

	return &gitLabTracker{
		client:   client,
		baseURL:  baseURL,
		projects: cfg.Projects,
	}, nil
}

func newGitLabClient(baseURL, token string) (*gitlab.Client, error) {
	if baseURL == "" {
		return gitlab.NewClient(token)
	}
	apiURL := strings.TrimSuffix(baseURL, "/") + "/api/v4"
	return gitlab.NewClient(token, gitlab.WithBaseURL(apiURL))
}

func (t *gitLabTracker) FindEpic(ctx context.Context, title, projectKey string) (string, bool, error) {
	project := t.projectPath(projectKey)

	milestones, resp, err := t.client.Milestones.ListMilestones(project, &gitlab.ListMilestonesOptions{
		Search: gitlab.Ptr(title),
	}, gitlab.WithContext(ctx))
	if err != nil {
		return "", false, gitlabError("search milestone", resp, err)
	}
	if len(milestones) == 0 {
		return "", false, nil
	}

	for _, m := range milestones {
		if strings.EqualFold(strings.TrimSpace(m.Title), strings.TrimSpace(title)) {
			return milestoneKey(project, m.IID), true, nil
		}
	}
	return milestoneKey(project, milestones[0].IID), true, nil
}

func (t *gitLabTracker) CreateEpic(ctx context.Context, title, projectKey string) (string, error) {
	project := t.projectPath(projectKey)

	m, resp, err := t.client.Milestones.CreateMilestone(project, &gitlab.CreateMilestoneOptions{
		Title: gitlab.Ptr(title),
	}, gitlab.WithContext(ctx))
	if err != nil {
		return "", gitlabError("create milestone", resp, err)
	}

	key := milestoneKey(project, m.IID)
	slog.InfoContext(ctx, "gitlab milestone created", "key", key, "project", project)
	return key, nil
}

func (t *gitLabTracker) CreateChildItem(ctx context.Context, params CreateChildParams) (string, error) {
	project, iid, err := parseMilestoneKey(params.ParentKey)
	if err != nil {
		return "", err
	}

	milestones, resp, err := t.client.Milestones.ListMilestones(project, &gitlab.ListMilestonesOptions{
		IIDs: gitlab.Ptr([]int64{iid}),
	}, gitlab.WithContext(ctx))
	if err != nil {
		return "", gitlabError("get milestone", resp, err)
	}
	if len(milestones) == 0 {
		return "", &model.UpstreamError{
			Service:   gitlabService,
			Operation: "get milestone",
			Err:       fmt.Errorf("milestone %s not found", params.ParentKey),
		}
	}

	issue, resp, err := t.client.Issues.CreateIssue(project, &gitlab.CreateIssueOptions{
		Title:       gitlab.Ptr(params.Summary),
		Description: gitlab.Ptr(params.Description),
		MilestoneID: gitlab.Ptr(milestones[0].ID),
	}, gitlab.WithContext(ctx))
	if err != nil {
		return "", gitlabError("create issue", resp, err)
	}

	key := fmt.Sprintf("%s#%d", project, issue.IID)
	slog.InfoContext(ctx, "gitlab issue created", "key", key, "epic_key", params.ParentKey)
	return key, nil
}

func (t *gitLabTracker) ListItems(ctx context.Context, projectKey string) ([]model.IssueRecord, error) {
	project := t.projectPath(projectKey)

	opts := &gitlab.ListProjectIssuesOptions{
		ListOptions: gitlab.ListOptions{PerPage: 100},
	}

	records := make([]model.IssueRecord, 0)
	for {
		issues, resp, err := t.client.Issues.ListProjectIssues(project, opts, gitlab.WithContext(ctx))
		if err != nil {
			return nil, gitlabError("list issues", resp, err)
		}

		for _, issue := range issues {
			records = append(records, model.IssueRecord{
				Key:         fmt.Sprintf("%s#%d", project, issue.IID),
				Summary:     issue.Title,
				Description: issue.Description,
				Labels:      []string(issue.Labels),
			})
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return records, nil
}

func (t *gitLabTracker) BrowseURL(key string) string {
	if project, iid, err := parseMilestoneKey(key); err == nil {
		return fmt.Sprintf("%s/%s/-/milestones/%d", t.baseURL, project, iid)
	}
	if project, iid, ok := strings.Cut(key, "#"); ok {
		return fmt.Sprintf("%s/%s/-/issues/%s", t.baseURL, project, iid)
	}
	return t.baseURL + "/" + key
}

func (t *gitLabTracker) projectPath(projectKey string) string {
	if path, ok := t.projects[projectKey]; ok {
		return path
	}
	return projectKey
}

func milestoneKey(project string, iid int64) string {
	return fmt.Sprintf("%s%%%d", project, iid)
}

func parseMilestoneKey(key string) (string, int64, error) {
	i := strings.LastIndex(key, "%")
	if i <= 0 {
		return "", 0, fmt.Errorf("invalid milestone key %q", key)
	}
	iid, err := strconv.ParseInt(key[i+1:], 10, 64)
	if err != nil {
		return "", 0, fmt.Errorf("invalid milestone key %q: %w", key, err)
	}
	return key[:i], iid, nil
}

func gitlabError(operation string, resp *gitlab.Response, err error) error {
	status := 0
	if resp != nil && resp.Response != nil {
		status = resp.StatusCode
	} else {
		var errResp *gitlab.ErrorResponse
		if errors.As(err, &errResp) && errResp.Response != nil {
			status = errResp.Response.StatusCode
		}
	}
	return &model.UpstreamError{Service: gitlabService, Operation: operation, StatusCode: status, Err: err}
}
