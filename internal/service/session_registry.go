package service

import (
	"sync"
	"time"

	"basegraph.app/ticketsmith/common/id"
	"basegraph.app/ticketsmith/internal/retrieval"
)

type SessionEntry struct {
	ID         int64
	ProjectKey string
	CreatedAt  time.Time
	Session    *retrieval.Session
}

// SessionRegistry holds the retrieval sessions built by ingestion. Sessions live until
// deleted or until the process exits.
type SessionRegistry struct {
	mu       sync.RWMutex
	sessions map[int64]*SessionEntry
}

func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{sessions: make(map[int64]*SessionEntry)}
}

func (r *SessionRegistry) Add(projectKey string, session *retrieval.Session) *SessionEntry {
	entry := &SessionEntry{
		ID:         id.New(),
		ProjectKey: projectKey,
		CreatedAt:  time.Now().UTC(),
		Session:    session,
	}

	r.mu.Lock()
	r.sessions[entry.ID] = entry
	r.mu.Unlock()

	return entry
}

func (r *SessionRegistry) Get(sessionID int64) (*SessionEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.sessions[sessionID]
	return entry, ok
}

func (r *SessionRegistry) Delete(sessionID int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[sessionID]; !ok {
		return false
	}
	delete(r.sessions, sessionID)
	return true
}

func (r *SessionRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
