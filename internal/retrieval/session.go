package retrieval

import (
	"sort"
	"sync"

	"basegraph.app/ticketsmith/internal/model"
)

// Session owns the issue records and their embeddings for one ingestion pass.
// Both mappings are written together, so every indexed id has a record and a vector.
type Session struct {
	mu      sync.RWMutex
	order   []string
	records map[string]model.IssueRecord
	vectors map[string][]float64
}

func NewSession() *Session {
	return &Session{
		records: make(map[string]model.IssueRecord),
		vectors: make(map[string][]float64),
	}
}

// Put indexes a record with its embedding. A known key is overwritten wholesale
// and keeps its original position.
func (s *Session) Put(record model.IssueRecord, vector []float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[record.Key]; !ok {
		s.order = append(s.order, record.Key)
	}
	s.records[record.Key] = record
	s.vectors[record.Key] = append([]float64(nil), vector...)
}

func (s *Session) Record(key string) (model.IssueRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.records[key]
	return r, ok
}

func (s *Session) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// Keys returns the indexed keys in insertion order.
func (s *Session) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.order...)
}

type scored struct {
	key   string
	score float64
	ok    bool
}

// Rank returns every indexed key exactly once, most similar to query first.
// Equal scores keep insertion order; keys whose comparison is degenerate come last.
func (s *Session) Rank(query []float64) []string {
	s.mu.RLock()
	results := make([]scored, 0, len(s.order))
	for _, key := range s.order {
		score, ok := Cosine(query, s.vectors[key])
		results = append(results, scored{key: key, score: score, ok: ok})
	}
	s.mu.RUnlock()

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].ok != results[j].ok {
			return results[i].ok
		}
		return results[i].score > results[j].score
	})

	keys := make([]string, len(results))
	for i, r := range results {
		keys[i] = r.key
	}
	return keys
}

// Records returns the records for keys, in the given order, skipping unknown keys.
func (s *Session) Records(keys []string) []model.IssueRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.IssueRecord, 0, len(keys))
	for _, key := range keys {
		if r, ok := s.records[key]; ok {
			out = append(out, r)
		}
	}
	return out
}
