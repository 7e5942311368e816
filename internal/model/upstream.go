package model

import "fmt"

// UpstreamError reports a failed call to an external system (Jira, Confluence, GitLab).
// StatusCode is zero when no HTTP response was received.
type UpstreamError struct {
	Service    string
	Operation  string
	StatusCode int
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s: status %d: %v", e.Service, e.Operation, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Service, e.Operation, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}
