package document

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-process Store used by tests and the offline CLI.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[string]*Document
	now  func() time.Time
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string]*Document), now: time.Now}
}

// Get returns a copy of the document with id.
func (s *MemoryStore) Get(_ context.Context, id string) (*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.docs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return d.Clone(), nil
}

// List returns copies of every document of docType ordered by name then id.
// An empty docType lists all documents.
func (s *MemoryStore) List(_ context.Context, docType string) ([]*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Document, 0, len(s.docs))
	for _, d := range s.docs {
		if docType == "" || d.Type == docType {
			out = append(out, d.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Create stores a copy of d, assigning an id when empty.
func (s *MemoryStore) Create(_ context.Context, d *Document) (*Document, error) {
	c := d.Clone()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if len(c.System) == 0 {
		c.System = []byte("{}")
	}
	now := s.now()
	c.CreatedAt, c.UpdatedAt = now, now

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.docs[c.ID]; exists {
		return nil, fmt.Errorf("document %s already exists", c.ID)
	}
	s.docs[c.ID] = c
	return c.Clone(), nil
}

// Update applies p to the stored document.
//
// Postcondition: Returns ErrReadOnly for pack documents; on any error the stored document is unchanged.
func (s *MemoryStore) Update(_ context.Context, id string, p Patch) (*Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.docs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if d.Pack != "" {
		return nil, fmt.Errorf("%w: %s is from pack %s", ErrReadOnly, id, d.Pack)
	}
	next := d.Clone()
	if err := p.Apply(next); err != nil {
		return nil, err
	}
	next.UpdatedAt = s.now()
	s.docs[id] = next
	return next.Clone(), nil
}

// Delete removes the document with id.
func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(s.docs, id)
	return nil
}
