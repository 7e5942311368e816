package logger

import "context"

type contextKey string

const logFieldsKey contextKey = "log_fields"

// LogFields contains structured fields automatically added to all logs within a context.
// Fields flow through context enrichment, so pipeline stages (page fetch, breakdown, ticket
// creation, ingestion) log their run/session/page without repeating the attributes.
type LogFields struct {
	RunID      *int64  // Decomposition run ID
	SessionID  *int64  // Retrieval session ID
	PageID     *string // Confluence page ID
	ProjectKey *string // Issue tracker project key
	EpicKey    *string // Parent epic key
	Component  string  // Component name (OTel semantic convention style, e.g., "ticketsmith.service.decomposition")
}

// WithLogFields enriches context with structured log fields.
// Multiple calls merge fields, with newer non-nil/non-empty values taking precedence.
// Context timeouts and cancellation are preserved.
func WithLogFields(ctx context.Context, fields LogFields) context.Context {
	existing := GetLogFields(ctx)
	merged := mergeFields(existing, fields)
	return context.WithValue(ctx, logFieldsKey, merged)
}

// GetLogFields retrieves log fields from context.
// Returns empty LogFields if none are set.
func GetLogFields(ctx context.Context) LogFields {
	if fields, ok := ctx.Value(logFieldsKey).(LogFields); ok {
		return fields
	}
	return LogFields{}
}

// mergeFields merges two LogFields, preferring non-nil/non-empty values from 'new'.
func mergeFields(existing, new LogFields) LogFields {
	result := existing

	if new.RunID != nil {
		result.RunID = new.RunID
	}
	if new.SessionID != nil {
		result.SessionID = new.SessionID
	}
	if new.PageID != nil {
		result.PageID = new.PageID
	}
	if new.ProjectKey != nil {
		result.ProjectKey = new.ProjectKey
	}
	if new.EpicKey != nil {
		result.EpicKey = new.EpicKey
	}
	if new.Component != "" {
		result.Component = new.Component
	}

	return result
}

// Ptr is a helper to create a pointer from a value.
// Useful for setting LogFields inline: logger.WithLogFields(ctx, logger.LogFields{RunID: logger.Ptr(id)})
func Ptr[T any](v T) *T {
	return &v
}

// Truncate truncates a string to maxLen characters, appending "..." if truncated.
// Useful for logging potentially long strings like model output or page bodies.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
