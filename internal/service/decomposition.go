package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"basegraph.app/ticketsmith/common/id"
	"basegraph.app/ticketsmith/common/llm"
	"basegraph.app/ticketsmith/common/logger"
	"basegraph.app/ticketsmith/internal/decompose"
	"basegraph.app/ticketsmith/internal/model"
	"basegraph.app/ticketsmith/internal/queue"
	"basegraph.app/ticketsmith/internal/service/document"
	"basegraph.app/ticketsmith/internal/service/issue_tracker"
	"basegraph.app/ticketsmith/internal/store"
)

var (
	ErrNoWorkItems = errors.New("model output contained no work items")
	ErrEpicExists  = errors.New("epic already exists")
	ErrRunNotFound = errors.New("run not found")
)

// EpicExistsError stops a run when the page already has an epic. Nothing is created or linked.
type EpicExistsError struct {
	Title string
	Key   string
}

func (e *EpicExistsError) Error() string {
	return fmt.Sprintf("epic %q already exists as %s", e.Title, e.Key)
}

func (e *EpicExistsError) Is(target error) bool {
	return target == ErrEpicExists
}

// RunError reports where a decomposition run stopped and what it had created by then.
// Created items are left in place.
type RunError struct {
	RunID       int64
	Stage       queue.Stage
	EpicKey     string
	CreatedKeys []string
	Err         error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("decomposition run %d failed at %s: %v", e.RunID, e.Stage, e.Err)
}

func (e *RunError) Unwrap() error {
	return e.Err
}

type DecompositionResult struct {
	RunID       int64
	PageTitle   string
	ProjectKey  string
	EpicKey     string
	TicketKeys  []string
	Items       []model.WorkItem
	PageVersion int
}

type BreakdownResult struct {
	TasksText string
	Items     []model.WorkItem
}

type EpicResult struct {
	Key     string
	Existed bool
}

// DecompositionService turns a requirements page into an epic with child tickets and links
// them back on the page. The single steps are exposed for callers driving the flow themselves.
type DecompositionService interface {
	Run(ctx context.Context, pageURL string) (*DecompositionResult, error)
	FetchPage(ctx context.Context, pageURL string) (*model.Page, error)
	FetchPageFormats(ctx context.Context, pageURL string) (*model.PageFormats, error)
	BreakDown(ctx context.Context, content string) (*BreakdownResult, error)
	EnsureEpic(ctx context.Context, title, projectKey string) (*EpicResult, error)
	CreateTicket(ctx context.Context, params issue_tracker.CreateChildParams) (string, error)
	LinkEpic(ctx context.Context, pageURL, epicKey string) (*model.Page, error)
	LinkTickets(ctx context.Context, pageURL string, ticketKeys []string) (*model.Page, error)
	GetRun(ctx context.Context, runID int64) (*model.DecompositionRun, []model.DecompositionRunItem, error)
}

type DecompositionConfig struct {
	// LinkTickets also appends the per-ticket link list, not only the epic card.
	LinkTickets bool
}

type decompositionService struct {
	llm      llm.Client
	tracker  issue_tracker.IssueTracker
	docs     document.Store
	runs     store.RunStore
	progress queue.ProgressPublisher
	cfg      DecompositionConfig
	logger   *slog.Logger
}

func NewDecompositionService(
	llmClient llm.Client,
	tracker issue_tracker.IssueTracker,
	docs document.Store,
	runs store.RunStore,
	progress queue.ProgressPublisher,
	cfg DecompositionConfig,
	logger *slog.Logger,
) DecompositionService {
	if logger == nil {
		logger = slog.Default()
	}
	return &decompositionService{
		llm:      llmClient,
		tracker:  tracker,
		docs:     docs,
		runs:     runs,
		progress: progress,
		cfg:      cfg,
		logger:   logger,
	}
}

func (s *decompositionService) Run(ctx context.Context, pageURL string) (*DecompositionResult, error) {
	runID := id.New()
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		RunID:     &runID,
		Component: "ticketsmith.service.decomposition",
	})

	sc := logger.StartSpan(ctx, "decomposition.run")
	defer sc.End()
	ctx = sc.Context()

	s.logger.InfoContext(ctx, "decomposition run started", "page_url", pageURL)
	s.ledger(ctx, "start", s.runs.Start(ctx, runID, pageURL))

	result, err := s.run(ctx, runID, pageURL)
	if err != nil {
		sc.RecordError(err)
		errMsg := err.Error()
		s.ledger(ctx, "finish", s.runs.Finish(ctx, runID, model.RunStatusFailed, &errMsg))
		s.publish(ctx, queue.ProgressEvent{RunID: runID, Stage: queue.StageRunFailed, PageURL: pageURL, Error: errMsg})
		s.logger.ErrorContext(ctx, "decomposition run failed", "error", err)
		return nil, err
	}

	s.ledger(ctx, "finish", s.runs.Finish(ctx, runID, model.RunStatusSucceeded, nil))
	s.publish(ctx, queue.ProgressEvent{RunID: runID, Stage: queue.StageRunFinished, PageURL: pageURL, EpicKey: result.EpicKey, Total: len(result.TicketKeys), Position: len(result.TicketKeys)})
	s.logger.InfoContext(ctx, "decomposition run finished", "epic_key", result.EpicKey, "tickets", len(result.TicketKeys))
	return result, nil
}

func (s *decompositionService) run(ctx context.Context, runID int64, pageURL string) (*DecompositionResult, error) {
	fail := func(stage queue.Stage, epicKey string, created []string, err error) error {
		return &RunError{RunID: runID, Stage: stage, EpicKey: epicKey, CreatedKeys: created, Err: err}
	}

	page, err := s.docs.FetchPage(ctx, pageURL)
	if err != nil {
		return nil, fail(queue.StageFetchPage, "", nil, fmt.Errorf("fetching page: %w", err))
	}
	ctx = logger.WithLogFields(ctx, logger.LogFields{PageID: &page.ID, ProjectKey: &page.ProjectKey})
	s.ledger(ctx, "set page", s.runs.SetPage(ctx, runID, page.Title, page.ProjectKey))
	s.publish(ctx, queue.ProgressEvent{RunID: runID, Stage: queue.StageFetchPage, PageURL: pageURL})

	breakdown, err := s.BreakDown(ctx, page.Content)
	if err != nil {
		return nil, fail(queue.StageBreakdown, "", nil, err)
	}
	if len(breakdown.Items) == 0 {
		return nil, fail(queue.StageBreakdown, "", nil, ErrNoWorkItems)
	}
	s.publish(ctx, queue.ProgressEvent{RunID: runID, Stage: queue.StageBreakdown, Total: len(breakdown.Items)})

	existing, found, err := s.tracker.FindEpic(ctx, page.Title, page.ProjectKey)
	if err != nil {
		return nil, fail(queue.StageEpic, "", nil, fmt.Errorf("looking up epic: %w", err))
	}
	if found {
		return nil, fail(queue.StageEpic, existing, nil, &EpicExistsError{Title: page.Title, Key: existing})
	}

	epicKey, err := s.tracker.CreateEpic(ctx, page.Title, page.ProjectKey)
	if err != nil {
		return nil, fail(queue.StageEpic, "", nil, fmt.Errorf("creating epic: %w", err))
	}
	ctx = logger.WithLogFields(ctx, logger.LogFields{EpicKey: &epicKey})
	s.ledger(ctx, "set epic", s.runs.SetEpic(ctx, runID, epicKey))
	s.publish(ctx, queue.ProgressEvent{RunID: runID, Stage: queue.StageEpic, EpicKey: epicKey})

	keys := make([]string, 0, len(breakdown.Items))
	for i, item := range breakdown.Items {
		key, err := s.tracker.CreateChildItem(ctx, issue_tracker.CreateChildParams{
			ParentKey:   epicKey,
			ProjectKey:  page.ProjectKey,
			Summary:     item.Summary,
			Description: item.Description,
		})
		if err != nil {
			return nil, fail(queue.StageTicket, epicKey, keys, fmt.Errorf("creating ticket %d of %d: %w", i+1, len(breakdown.Items), err))
		}
		keys = append(keys, key)

		s.ledger(ctx, "add item", s.runs.AddItem(ctx, model.DecompositionRunItem{RunID: runID, Position: i + 1, Summary: item.Summary, ItemKey: key}))
		s.publish(ctx, queue.ProgressEvent{RunID: runID, Stage: queue.StageTicket, EpicKey: epicKey, ItemKey: key, Position: i + 1, Total: len(breakdown.Items)})
	}

	fragment := document.EpicFragment(epicKey, s.tracker.BrowseURL(epicKey))
	if s.cfg.LinkTickets {
		fragment += document.TicketLinksFragment(s.ticketLinks(keys))
	}
	updated, err := s.docs.AppendToPage(ctx, pageURL, fragment)
	if err != nil {
		return nil, fail(queue.StageLinkPage, epicKey, keys, fmt.Errorf("linking page: %w", err))
	}
	s.publish(ctx, queue.ProgressEvent{RunID: runID, Stage: queue.StageLinkPage, EpicKey: epicKey})

	return &DecompositionResult{
		RunID:       runID,
		PageTitle:   page.Title,
		ProjectKey:  page.ProjectKey,
		EpicKey:     epicKey,
		TicketKeys:  keys,
		Items:       breakdown.Items,
		PageVersion: updated.Version,
	}, nil
}

func (s *decompositionService) FetchPage(ctx context.Context, pageURL string) (*model.Page, error) {
	return s.docs.FetchPage(ctx, pageURL)
}

func (s *decompositionService) FetchPageFormats(ctx context.Context, pageURL string) (*model.PageFormats, error) {
	return s.docs.FetchPageFormats(ctx, pageURL)
}

func (s *decompositionService) BreakDown(ctx context.Context, content string) (*BreakdownResult, error) {
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("content is required")
	}

	completion, err := s.llm.Complete(ctx, llm.CompletionRequest{
		UserPrompt:  decompose.BreakdownPrompt(content),
		MaxTokens:   decompose.BreakdownMaxTokens,
		Temperature: llm.Temp(decompose.BreakdownTemperature),
	})
	if err != nil {
		return nil, fmt.Errorf("breaking down content: %w", err)
	}

	items := decompose.Parse(completion.Content)
	s.logger.InfoContext(ctx, "content broken down",
		"work_items", len(items),
		"finish_reason", completion.FinishReason,
		"output_preview", logger.Truncate(completion.Content, 200))

	return &BreakdownResult{TasksText: completion.Content, Items: items}, nil
}

func (s *decompositionService) EnsureEpic(ctx context.Context, title, projectKey string) (*EpicResult, error) {
	key, found, err := s.tracker.FindEpic(ctx, title, projectKey)
	if err != nil {
		return nil, fmt.Errorf("looking up epic: %w", err)
	}
	if found {
		return &EpicResult{Key: key, Existed: true}, nil
	}

	key, err = s.tracker.CreateEpic(ctx, title, projectKey)
	if err != nil {
		return nil, fmt.Errorf("creating epic: %w", err)
	}
	return &EpicResult{Key: key}, nil
}

func (s *decompositionService) CreateTicket(ctx context.Context, params issue_tracker.CreateChildParams) (string, error) {
	key, err := s.tracker.CreateChildItem(ctx, params)
	if err != nil {
		return "", fmt.Errorf("creating ticket: %w", err)
	}
	return key, nil
}

func (s *decompositionService) LinkEpic(ctx context.Context, pageURL, epicKey string) (*model.Page, error) {
	return s.docs.AppendToPage(ctx, pageURL, document.EpicFragment(epicKey, s.tracker.BrowseURL(epicKey)))
}

func (s *decompositionService) LinkTickets(ctx context.Context, pageURL string, ticketKeys []string) (*model.Page, error) {
	if len(ticketKeys) == 0 {
		return nil, fmt.Errorf("at least one ticket key is required")
	}
	return s.docs.AppendToPage(ctx, pageURL, document.TicketLinksFragment(s.ticketLinks(ticketKeys)))
}

func (s *decompositionService) GetRun(ctx context.Context, runID int64) (*model.DecompositionRun, []model.DecompositionRunItem, error) {
	run, items, err := s.runs.Get(ctx, runID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil, ErrRunNotFound
		}
		return nil, nil, fmt.Errorf("reading run: %w", err)
	}
	return run, items, nil
}

func (s *decompositionService) ticketLinks(keys []string) []document.TicketLink {
	links := make([]document.TicketLink, 0, len(keys))
	for _, key := range keys {
		links = append(links, document.TicketLink{Key: key, URL: s.tracker.BrowseURL(key)})
	}
	return links
}

// ledger and progress are side channels: their failures are logged, never fail the run.
func (s *decompositionService) ledger(ctx context.Context, op string, err error) {
	if err != nil {
		s.logger.WarnContext(ctx, "run ledger write failed", "op", op, "error", err)
	}
}

func (s *decompositionService) publish(ctx context.Context, evt queue.ProgressEvent) {
	if err := s.progress.Publish(ctx, evt); err != nil {
		s.logger.WarnContext(ctx, "progress publish failed", "stage", evt.Stage, "error", err)
	}
}
