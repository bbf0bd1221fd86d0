package source

import (
	"context"
	"sync"
)

// MemorySource serves a document held in memory.
type MemorySource struct {
	mu  sync.RWMutex
	doc map[string]any
	err error
}

// NewMemorySource creates a source returning doc.
func NewMemorySource(doc map[string]any) *MemorySource {
	return &MemorySource{doc: doc}
}

// Load returns the stored document or error.
func (s *MemorySource) Load(ctx context.Context) (map[string]any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.err != nil {
		return nil, s.err
	}
	return s.doc, nil
}

// Name returns "memory".
func (s *MemorySource) Name() string { return "memory" }

// Set replaces the stored document and clears any error.
func (s *MemorySource) Set(doc map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc, s.err = doc, nil
}

// SetError makes Load fail with err.
func (s *MemorySource) SetError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}
