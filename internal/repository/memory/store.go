// Package memory provides an in-memory document store implementation.
// This is suitable for tests and single-node development; nothing survives
// a restart.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/versebook/versebook/internal/domain"
	"github.com/versebook/versebook/internal/repository"
)

// Store implements repository.Store backed by maps.
type Store struct {
	mu          sync.RWMutex
	collections map[string]map[string]domain.Document
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{collections: make(map[string]map[string]domain.Document)}
}

func (s *Store) docs(name string) map[string]domain.Document {
	m, ok := s.collections[name]
	if !ok {
		m = make(map[string]domain.Document)
		s.collections[name] = m
	}
	return m
}

// Insert persists a new document.
func (s *Store) Insert(ctx context.Context, col repository.Collection, doc domain.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := s.docs(col.Name)
	id := doc.ID()
	if _, exists := m[id]; exists {
		return fmt.Errorf("%w: duplicate id", domain.ErrConflict)
	}
	if err := s.checkUnique(m, col, doc, id); err != nil {
		return err
	}
	m[id] = doc.Clone()
	return nil
}

// Get retrieves a document by id.
func (s *Store) Get(ctx context.Context, col repository.Collection, id string) (domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.docs(col.Name)[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return doc.Clone(), nil
}

// FindOne retrieves the first document whose field equals value.
func (s *Store) FindOne(ctx context.Context, col repository.Collection, field string, value any, activeOnly bool, excludeID string) (domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	want := render(value)
	for id, doc := range s.docs(col.Name) {
		if id == excludeID {
			continue
		}
		if activeOnly && !doc.IsActive() {
			continue
		}
		if render(doc[field]) == want {
			return doc.Clone(), nil
		}
	}
	return nil, domain.ErrNotFound
}

// Find returns a page of documents matching the query plus the total.
func (s *Store) Find(ctx context.Context, col repository.Collection, q repository.Query) (*repository.FindResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []domain.Document
	search := strings.ToLower(q.Search)
	for _, doc := range s.docs(col.Name) {
		if q.IsActive != nil && doc.IsActive() != *q.IsActive {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(doc.String(col.SearchField)), search) {
			continue
		}
		matched = append(matched, doc.Clone())
	}

	sort.Slice(matched, func(i, j int) bool {
		a := strings.ToLower(matched[i].String(col.SearchField))
		b := strings.ToLower(matched[j].String(col.SearchField))
		if a == b {
			// Stable tie-break so pagination is deterministic.
			return matched[i].ID() < matched[j].ID()
		}
		if q.Descending {
			return a > b
		}
		return a < b
	})

	total := int64(len(matched))
	start := q.Offset
	if start > len(matched) {
		start = len(matched)
	}
	end := len(matched)
	if q.Limit > 0 && start+q.Limit < end {
		end = start + q.Limit
	}

	return &repository.FindResult{Docs: matched[start:end], Total: total}, nil
}

// Apply merges a partial update into the document with the given id.
func (s *Store) Apply(ctx context.Context, col repository.Collection, id string, set domain.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := s.docs(col.Name)
	doc, ok := m[id]
	if !ok {
		return domain.ErrNotFound
	}
	merged := doc.Clone()
	merged.Merge(set.Clone())
	if err := s.checkUnique(m, col, merged, id); err != nil {
		return err
	}
	m[id] = merged
	return nil
}

// Ping implements repository.Store.
func (s *Store) Ping(ctx context.Context) error { return nil }

// Close implements repository.Store.
func (s *Store) Close() error { return nil }

// checkUnique enforces the active-uniqueness invariant against the
// collection's unique field. Inactive records never conflict.
func (s *Store) checkUnique(m map[string]domain.Document, col repository.Collection, doc domain.Document, selfID string) error {
	if col.UniqueField == "" || !doc.IsActive() {
		return nil
	}
	want := render(doc[col.UniqueField])
	if want == "" {
		return nil
	}
	for id, other := range m {
		if id == selfID || !other.IsActive() {
			continue
		}
		if render(other[col.UniqueField]) == want {
			return fmt.Errorf("%w: %s already exists", domain.ErrConflict, col.UniqueField)
		}
	}
	return nil
}

// render normalizes values for equality checks. JSON round trips turn
// integers into float64, so numbers are compared by printed value.
func render(v any) string {
	if v == nil {
		return ""
	}
	if f, ok := v.(float64); ok && f == float64(int64(f)) {
		return fmt.Sprintf("%d", int64(f))
	}
	return fmt.Sprint(v)
}

// Ensure Store implements repository.Store.
var _ repository.Store = (*Store)(nil)
