package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"basegraph.app/ticketsmith/common/llm"
	"basegraph.app/ticketsmith/common/logger"
	"basegraph.app/ticketsmith/internal/queue"
	"basegraph.app/ticketsmith/internal/retrieval"
	"basegraph.app/ticketsmith/internal/service/issue_tracker"
)

var ErrSessionNotFound = errors.New("session not found")

type IngestResult struct {
	SessionID  int64
	ProjectKey string
	Indexed    int
	Skipped    int
}

type Answer struct {
	SessionID int64
	Answer    string
	Prompt    string
	TicketIDs []string
}

type SessionInfo struct {
	ID         int64
	ProjectKey string
	Items      int
	CreatedAt  time.Time
}

// QuestionService answers free-text questions from the tracker items of a project.
// Ingest builds a session; Ask ranks the session's items against the question and hands
// all of them, most relevant first, to the model.
type QuestionService interface {
	Ingest(ctx context.Context, projectKey string) (*IngestResult, error)
	Ask(ctx context.Context, sessionID int64, question string) (*Answer, error)
	Session(ctx context.Context, sessionID int64) (*SessionInfo, error)
	DeleteSession(ctx context.Context, sessionID int64) error
}

type questionService struct {
	llm      llm.Client
	tracker  issue_tracker.IssueTracker
	sessions *SessionRegistry
	progress queue.ProgressPublisher
	logger   *slog.Logger
}

func NewQuestionService(
	llmClient llm.Client,
	tracker issue_tracker.IssueTracker,
	sessions *SessionRegistry,
	progress queue.ProgressPublisher,
	logger *slog.Logger,
) QuestionService {
	if logger == nil {
		logger = slog.Default()
	}
	return &questionService{
		llm:      llmClient,
		tracker:  tracker,
		sessions: sessions,
		progress: progress,
		logger:   logger,
	}
}

func (s *questionService) Ingest(ctx context.Context, projectKey string) (*IngestResult, error) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		ProjectKey: &projectKey,
		Component:  "ticketsmith.service.question",
	})

	sc := logger.StartSpan(ctx, "question.ingest")
	defer sc.End()
	ctx = sc.Context()

	records, err := s.tracker.ListItems(ctx, projectKey)
	if err != nil {
		sc.RecordError(err)
		s.publish(ctx, queue.ProgressEvent{Stage: queue.StageIngestFailed, Error: err.Error()})
		return nil, fmt.Errorf("listing project items: %w", err)
	}

	session := retrieval.NewSession()
	skipped := 0
	for _, record := range records {
		vector, err := s.llm.Embed(ctx, record.EmbeddingText())
		if err != nil {
			if ctx.Err() != nil {
				sc.RecordError(ctx.Err())
				s.publish(ctx, queue.ProgressEvent{Stage: queue.StageIngestFailed, Error: ctx.Err().Error()})
				return nil, fmt.Errorf("embedding %s: %w", record.Key, ctx.Err())
			}
			skipped++
			s.logger.WarnContext(ctx, "item left out of index", "key", record.Key, "error", err)
			continue
		}
		session.Put(record, vector)
	}

	entry := s.sessions.Add(projectKey, session)
	ctx = logger.WithLogFields(ctx, logger.LogFields{SessionID: &entry.ID})

	s.publish(ctx, queue.ProgressEvent{RunID: entry.ID, Stage: queue.StageIngest, Position: session.Len(), Total: len(records)})
	s.logger.InfoContext(ctx, "ingestion finished", "indexed", session.Len(), "skipped", skipped)

	return &IngestResult{
		SessionID:  entry.ID,
		ProjectKey: projectKey,
		Indexed:    session.Len(),
		Skipped:    skipped,
	}, nil
}

func (s *questionService) Ask(ctx context.Context, sessionID int64, question string) (*Answer, error) {
	entry, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, ErrSessionNotFound
	}

	ctx = logger.WithLogFields(ctx, logger.LogFields{
		SessionID:  &sessionID,
		ProjectKey: &entry.ProjectKey,
		Component:  "ticketsmith.service.question",
	})

	sc := logger.StartSpan(ctx, "question.ask")
	defer sc.End()
	ctx = sc.Context()

	query, err := s.llm.Embed(ctx, question)
	if err != nil {
		sc.RecordError(err)
		return nil, fmt.Errorf("embedding question: %w", err)
	}

	ranked := entry.Session.Rank(query)
	prompt := retrieval.BuildReasoningPrompt(retrieval.AssembleContext(entry.Session.Records(ranked)), question)

	completion, err := s.llm.Complete(ctx, llm.CompletionRequest{
		UserPrompt:  prompt,
		MaxTokens:   retrieval.AnswerMaxTokens,
		Temperature: llm.Temp(retrieval.AnswerTemperature),
	})
	if err != nil {
		sc.RecordError(err)
		return nil, fmt.Errorf("answering question: %w", err)
	}

	s.logger.InfoContext(ctx, "question answered",
		"ranked_items", len(ranked),
		"prompt_tokens", completion.PromptTokens,
		"question", logger.Truncate(question, 120))

	return &Answer{
		SessionID: sessionID,
		Answer:    completion.Content,
		Prompt:    prompt,
		TicketIDs: ranked,
	}, nil
}

func (s *questionService) Session(_ context.Context, sessionID int64) (*SessionInfo, error) {
	entry, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, ErrSessionNotFound
	}
	return &SessionInfo{
		ID:         entry.ID,
		ProjectKey: entry.ProjectKey,
		Items:      entry.Session.Len(),
		CreatedAt:  entry.CreatedAt,
	}, nil
}

func (s *questionService) DeleteSession(ctx context.Context, sessionID int64) error {
	if !s.sessions.Delete(sessionID) {
		return ErrSessionNotFound
	}
	s.logger.InfoContext(ctx, "session deleted", "session_id", sessionID)
	return nil
}

func (s *questionService) publish(ctx context.Context, evt queue.ProgressEvent) {
	if err := s.progress.Publish(ctx, evt); err != nil {
		s.logger.WarnContext(ctx, "progress publish failed", "stage", evt.Stage, "error", err)
	}
}
