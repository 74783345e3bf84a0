package store

import (
	"context"
	"sync"
	"time"

	"github.com/matzehuels/quiverkit/pkg/errors"
)

// MemoryStore keeps diagrams in a map. Contents are lost on exit.
type MemoryStore struct {
	mu       sync.RWMutex
	diagrams map[string]Diagram
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{diagrams: make(map[string]Diagram)}
}

func (s *MemoryStore) Save(ctx context.Context, d *Diagram) error {
	if err := errors.ValidateDiagramID(d.ID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.diagrams[d.ID] = *d
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*Diagram, error) {
	if err := errors.ValidateDiagramID(id); err != nil {
		return nil, err
	}
	s.mu.RLock()
	d, ok := s.diagrams[id]
	s.mu.RUnlock()
	if !ok || d.IsExpired() {
		return nil, notFound(id)
	}
	return &d, nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	if err := errors.ValidateDiagramID(id); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.diagrams, id)
	return nil
}

func (s *MemoryStore) Cleanup(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, d := range s.diagrams {
		if !d.ExpiresAt.IsZero() && now.After(d.ExpiresAt) {
			delete(s.diagrams, id)
		}
	}
	return nil
}

func (s *MemoryStore) Close() error { return nil }

// Len returns the number of stored diagrams, including expired ones not
// yet cleaned up.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.diagrams)
}

var _ Store = (*MemoryStore)(nil)
