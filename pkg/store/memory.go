package store

import (
	"context"
	"sync"
)

// MemoryStore is a mutex-guarded in-memory backend. It is the default for
// tests and useful for single-terminal demo deployments. Documents are
// deep-copied on the way in and out, so callers can never alias the
// stored state.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]map[string]Document
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: make(map[string]map[string]Document)}
}

// Get returns the document under id, or ErrNotFound.
func (s *MemoryStore) Get(_ context.Context, collection, id string) (Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	col, ok := s.collections[collection]
	if !ok {
		return nil, ErrNotFound
	}
	doc, ok := col[id]
	if !ok {
		return nil, ErrNotFound
	}
	return deepCopy(doc), nil
}

// Upsert stores a copy of the document under id.
func (s *MemoryStore) Upsert(_ context.Context, collection, id string, doc Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	col, ok := s.collections[collection]
	if !ok {
		col = make(map[string]Document)
		s.collections[collection] = col
	}
	col[id] = deepCopy(doc)
	return nil
}

// Query returns copies of every document matching the filter.
func (s *MemoryStore) Query(_ context.Context, collection string, filter Filter) ([]Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	col := s.collections[collection]
	results := make([]Document, 0)
	for _, doc := range col {
		if Matches(doc, filter) {
			results = append(results, deepCopy(doc))
		}
	}
	return results, nil
}

// Delete removes the document under id, reporting whether it existed.
func (s *MemoryStore) Delete(_ context.Context, collection, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	col, ok := s.collections[collection]
	if !ok {
		return false, nil
	}
	if _, ok := col[id]; !ok {
		return false, nil
	}
	delete(col, id)
	return true, nil
}

// Close is a no-op for the in-memory backend.
func (s *MemoryStore) Close() error { return nil }

func deepCopy(doc Document) Document {
	out := make(Document, len(doc))
	for k, v := range doc {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return deepCopy(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = copyValue(e)
		}
		return out
	}
	return v
}
