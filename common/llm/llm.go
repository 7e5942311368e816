package llm

import (
	"context"
	"errors"
	"fmt"
)

// ErrEmbeddingUnavailable is returned when the embeddings endpoint fails or returns no vector.
// Callers indexing many items treat it as "skip this item", not as a pipeline failure.
var ErrEmbeddingUnavailable = errors.New("embedding unavailable")

// ErrEmptyCompletion is returned when the model answers without any choice.
var ErrEmptyCompletion = errors.New("no choices in response")

// Config holds LLM client configuration.
type Config struct {
	APIKey         string // Required: API key for the provider
	BaseURL        string // Optional: custom API endpoint
	Model          string // Chat model (e.g., "gpt-4o-mini")
	EmbeddingModel string // Embedding model (e.g., "text-embedding-ada-002")
}

// Client is the language-model collaborator: free-form completion plus text embeddings.
type Client interface {
	Complete(ctx context.Context, req CompletionRequest) (*Completion, error)
	Embed(ctx context.Context, text string) ([]float64, error)
	Model() string
}

type CompletionRequest struct {
	SystemPrompt string // Optional
	UserPrompt   string
	MaxTokens    int
	Temperature  *float64 // nil = model default, explicit 0 = deterministic
}

type Completion struct {
	Content          string
	FinishReason     string
	PromptTokens     int
	CompletionTokens int
}

// New creates a Client backed by the OpenAI API.
func New(cfg Config) (Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	return newOpenAIClient(cfg), nil
}

func Temp(t float64) *float64 {
	return &t
}
