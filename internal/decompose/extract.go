package decompose

import (
	"errors"
	"html"
	"regexp"
	"strings"
)

var (
	ErrProjectKeyNotFound = errors.New("project key not found in page body")
	ErrPageIDNotFound     = errors.New("page id not found in url")
)

var (
	projectKeyPattern = regexp.MustCompile(`Project:\s*([A-Z]+)\b`)
	tagPattern        = regexp.MustCompile(`<[^>]*>`)

	pagePathPattern  = regexp.MustCompile(`/pages/(\d+)(?:[/?#]|$)`)
	pageQueryPattern = regexp.MustCompile(`[?&]pageId=(\d+)`)
)

// ExtractProjectKey finds the "Project: KEY" token authors put in a page body.
// The raw storage markup is tried first, then the same text with tags removed, so
// "<strong>Project:</strong> ABC" is found too.
func ExtractProjectKey(body string) (string, error) {
	if m := projectKeyPattern.FindStringSubmatch(body); m != nil {
		return m[1], nil
	}

	text := html.UnescapeString(tagPattern.ReplaceAllString(body, ""))
	text = strings.ReplaceAll(text, "\u00a0", " ")
	if m := projectKeyPattern.FindStringSubmatch(text); m != nil {
		return m[1], nil
	}

	return "", ErrProjectKeyNotFound
}

// ExtractPageID returns the numeric page id from a Confluence page URL, either the
// ".../pages/<id>/<slug>" form or the legacy "viewpage.action?pageId=<id>" form.
func ExtractPageID(pageURL string) (string, error) {
	if m := pagePathPattern.FindStringSubmatch(pageURL); m != nil {
		return m[1], nil
	}
	if m := pageQueryPattern.FindStringSubmatch(pageURL); m != nil {
		return m[1], nil
	}
	return "", ErrPageIDNotFound
}
