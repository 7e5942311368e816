package document

import (
	"fmt"
	"html"
	"strings"
)

// EpicFragment renders an expand macro embedding the epic card.
func EpicFragment(epicKey, browseURL string) string {
	return fmt.Sprintf(`<ac:structured-macro ac:name="expand" ac:schema-version="1">`+
		`<ac:parameter ac:name="title">Jira Epic</ac:parameter>`+
		`<ac:rich-text-body>`+
		`<a href="%s" data-layout="center" data-width="100.00" data-card-appearance="embed">%s</a>`+
		`<p></p>`+
		`</ac:rich-text-body>`+
		`</ac:structured-macro>`,
		html.EscapeString(browseURL), html.EscapeString(epicKey))
}

type TicketLink struct {
	Key string
	URL string
}

// TicketLinksFragment renders a "Jira Tickets" heading followed by one expand macro per ticket.
func TicketLinksFragment(links []TicketLink) string {
	if len(links) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("<h3>Jira Tickets</h3>")
	for i, link := range links {
		fmt.Fprintf(&b, `<ac:structured-macro ac:name="expand">`+
			`<ac:parameter ac:name="title">Jira Ticket %d</ac:parameter>`+
			`<ac:rich-text-body><p><a href="%s">%s</a></p></ac:rich-text-body>`+
			`</ac:structured-macro>`,
			i+1, html.EscapeString(link.URL), html.EscapeString(link.Key))
	}
	return b.String()
}
