package retrieval

import (
	"fmt"
	"strings"

	"basegraph.app/ticketsmith/internal/model"
)

const (
	AnswerMaxTokens   = 300
	AnswerTemperature = 0.7

	contextDelimiter = "---------------------------------------"

	noLabels = "No labels"
	noImpact = "No impact"
)

// AssembleContext renders each record in order as a fixed block followed by the delimiter line.
// Nothing is filtered.
func AssembleContext(records []model.IssueRecord) string {
	var b strings.Builder
	for _, r := range records {
		description := r.Description
		if strings.TrimSpace(description) == "" {
			description = model.NoDescription
		}
		labels := noLabels
		if len(r.Labels) > 0 {
			labels = strings.Join(r.Labels, ", ")
		}
		impact := r.Impact
		if strings.TrimSpace(impact) == "" {
			impact = noImpact
		}

		fmt.Fprintf(&b, "Ticket ID: %s\nSummary: %s\nDescription: %s\nLabels: %s\nImpact: %s\n%s\n",
			r.Key, r.Summary, description, labels, impact, contextDelimiter)
	}
	return b.String()
}

// BuildReasoningPrompt wraps the retrieved context around the user's question.
func BuildReasoningPrompt(context, question string) string {
	return fmt.Sprintf("I found these tickets relevant to your prompt:\n%s\nand I used them to answer your question:\n%s", context, question)
}
