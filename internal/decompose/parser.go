package decompose

import (
	"fmt"
	"regexp"
	"strings"

	"basegraph.app/ticketsmith/internal/model"
)

const (
	untitledSummaryFormat = "Untitled Ticket %d"
	missingDescription    = "No description"
)

var (
	// markerPattern matches a Summary/Description marker line in the layouts models emit:
	// "Summary: x", "**Summary:** x", "### Description", "- summary - x", "1. **Description**: x".
	markerPattern = regexp.MustCompile(`(?i)^\s*(?:(?:[-+>]|\d+[.)]|#{1,6})\s*)*[*_]*\s*(summary|description)\s*[*_]*\s*(?:[:\-]\s*[*_]*\s*(.*?))?\s*$`)

	// ticketHeadingPattern matches record headings such as "Ticket 2:", "### Task 3" or
	// "**Story #4: Password reset**". Group 1 holds any trailing title.
	ticketHeadingPattern = regexp.MustCompile(`(?i)^\s*(?:#{1,6}\s*)?[*_]*\s*(?:jira\s+)?(?:ticket|task|story|item)\s*#?\s*\d+\s*[*_]*\s*(?:[:.)\-]\s*(.*?))?\s*$`)

	horizontalRulePattern = regexp.MustCompile(`^\s*(?:-{3,}|\*{3,}|_{3,}|={3,})\s*$`)

	// subsectionPattern matches the Goal / Requirements headings inside a description.
	subsectionPattern = regexp.MustCompile(`(?i)^\s*(?:#{1,6}\s*)?[*_]*\s*(?:goals?|requirements)\s*[*_]*\s*(?::|$)`)
)

type markerKind int

const (
	markerNone markerKind = iota
	markerSummary
	markerDescription
)

type block struct {
	summary        string
	awaitSummary   bool
	hasDescription bool
	description    []string
}

// Parse turns the model's breakdown text into work items, in the order they appear.
// Every block introduced by a marker yields exactly one item; missing fields get placeholders.
func Parse(raw string) []model.WorkItem {
	blocks := scan(raw)

	items := make([]model.WorkItem, 0, len(blocks))
	for i, b := range blocks {
		summary := b.summary
		if summary == "" {
			summary = fmt.Sprintf(untitledSummaryFormat, i+1)
		}

		description := normalize(b.description)
		if description == "" {
			description = missingDescription
		}

		items = append(items, model.WorkItem{Summary: summary, Description: description})
	}
	return items
}

func scan(raw string) []*block {
	var (
		blocks    []*block
		cur       *block
		prevBlank bool
	)

	lines := strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n")
	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			if cur != nil && cur.hasDescription {
				cur.description = append(cur.description, "")
			}
			prevBlank = true
			continue
		}

		if isSeparator(lines, i) {
			prevBlank = true
			continue
		}

		kind, value := parseMarker(line)
		switch {
		case kind == markerSummary:
			cur = &block{summary: cleanValue(value), awaitSummary: cleanValue(value) == ""}
			blocks = append(blocks, cur)

		case kind == markerDescription && (cur == nil || !cur.hasDescription || prevBlank):
			if cur == nil || cur.hasDescription {
				cur = &block{}
				blocks = append(blocks, cur)
			}
			cur.hasDescription = true
			cur.awaitSummary = false
			if value != "" {
				cur.description = append(cur.description, value)
			}

		case cur == nil:
			// preamble before the first record

		case cur.awaitSummary:
			cur.summary = cleanValue(line)
			cur.awaitSummary = false

		case cur.hasDescription:
			cur.description = append(cur.description, line)
		}

		prevBlank = false
	}

	return blocks
}

func parseMarker(line string) (markerKind, string) {
	m := markerPattern.FindStringSubmatch(line)
	if m == nil {
		return markerNone, ""
	}
	if strings.EqualFold(m[1], "summary") {
		return markerSummary, m[2]
	}
	return markerDescription, m[2]
}

// isSeparator reports whether lines[i] sits between records. A rule or ticket heading only counts
// when the next record starts after it or the text ends there, so setext underlines, rules and
// numbered steps inside a description survive. A titled heading needs a Summary to follow.
func isSeparator(lines []string, i int) bool {
	titled := false
	if !horizontalRulePattern.MatchString(lines[i]) {
		m := ticketHeadingPattern.FindStringSubmatch(lines[i])
		if m == nil {
			return false
		}
		titled = strings.Trim(m[1], "*_ ") != ""
	}

	for j := i + 1; j < len(lines); j++ {
		if strings.TrimSpace(lines[j]) == "" {
			continue
		}
		switch kind, _ := parseMarker(lines[j]); kind {
		case markerSummary:
			return true
		case markerDescription:
			return !titled
		default:
			return isSeparator(lines, j)
		}
	}
	return !titled
}

// cleanValue strips markdown emphasis and surrounding quotes from a single-line value.
func cleanValue(s string) string {
	s = strings.Trim(strings.TrimSpace(s), "*_")
	s = strings.TrimSpace(s)
	for _, q := range [][2]string{{`"`, `"`}, {`'`, `'`}, {"“", "”"}, {"`", "`"}} {
		if len(s) >= len(q[0])+len(q[1]) && strings.HasPrefix(s, q[0]) && strings.HasSuffix(s, q[1]) {
			s = strings.TrimSpace(s[len(q[0]) : len(s)-len(q[1])])
			break
		}
	}
	return s
}

// normalize trims trailing spaces, collapses blank-line runs and puts exactly one blank line
// before every Goal / Requirements heading that does not open the description.
func normalize(lines []string) string {
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimRight(line, " \t")
		if line == "" {
			if len(out) > 0 && out[len(out)-1] != "" {
				out = append(out, "")
			}
			continue
		}
		if len(out) > 0 && out[len(out)-1] != "" && subsectionPattern.MatchString(line) {
			out = append(out, "")
		}
		out = append(out, line)
	}

	for len(out) > 0 && out[len(out)-1] == "" {
		out = out[:len(out)-1]
	}
	return strings.Join(out, "\n")
}
