package decompose

import "fmt"

const (
	BreakdownMaxTokens   = 2048
	BreakdownTemperature = 0.7
)

const breakdownPromptTemplate = `Find the "Requirements" section and break down only the content from this section into separate Jira tickets with the following structure for each ticket:
1. "Summary" - a high-level description of the task (used as the title of the Jira ticket).
2. "Description" - this should contain:
    2.1 "Goal" - a brief explanation of the purpose of the task.
    2.2 "Requirements" - a detailed description of the requirements or steps to implement.

Write every ticket as a "Summary:" line followed by a "Description:" line and separate tickets with a blank line.

Content to be broken down:
%s`

// BreakdownPrompt builds the prompt asking the model to split a page into tickets.
func BreakdownPrompt(content string) string {
	return fmt.Sprintf(breakdownPromptTemplate, content)
}
