package service

import (
	"log/slog"

	"basegraph.app/ticketsmith/common/llm"
	"basegraph.app/ticketsmith/internal/queue"
	"basegraph.app/ticketsmith/internal/service/document"
	"basegraph.app/ticketsmith/internal/service/issue_tracker"
	"basegraph.app/ticketsmith/internal/store"
)

type Services struct {
	llm      llm.Client
	tracker  issue_tracker.IssueTracker
	docs     document.Store
	runs     store.RunStore
	progress queue.ProgressPublisher
	sessions *SessionRegistry
	cfg      DecompositionConfig
	logger   *slog.Logger
}

func NewServices(
	llmClient llm.Client,
	tracker issue_tracker.IssueTracker,
	docs document.Store,
	runs store.RunStore,
	progress queue.ProgressPublisher,
	cfg DecompositionConfig,
	logger *slog.Logger,
) *Services {
	if runs == nil {
		runs = store.NewNoopRunStore()
	}
	if progress == nil {
		progress = queue.NewNoopPublisher()
	}
	return &Services{
		llm:      llmClient,
		tracker:  tracker,
		docs:     docs,
		runs:     runs,
		progress: progress,
		sessions: NewSessionRegistry(),
		cfg:      cfg,
		logger:   logger,
	}
}

func (s *Services) Decomposition() DecompositionService {
	return NewDecompositionService(s.llm, s.tracker, s.docs, s.runs, s.progress, s.cfg, s.logger)
}

// Questions shares one session registry across calls, so sessions outlive a single request.
func (s *Services) Questions() QuestionService {
	return NewQuestionService(s.llm, s.tracker, s.sessions, s.progress, s.logger)
}
