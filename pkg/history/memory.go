package history

import (
	"context"
	"sync"
	"time"

	"odd-hq/decisioning/internal/jsonutil"
)

type memoryEntry struct {
	payload  map[string]any
	lastSeen time.Time
	count    int64
}

// MemoryStore keeps history in process. It is safe for concurrent use.
type MemoryStore struct {
	mu     sync.RWMutex
	byECID map[string]map[string]map[string]*memoryEntry
	closed bool
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byECID: make(map[string]map[string]map[string]*memoryEntry)}
}

// Events returns a copy of the visitor's index.
func (s *MemoryStore) Events(ctx context.Context, ecid string) (map[string]any, error) {
	if ecid == "" {
		return nil, ErrMissingECID
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}

	index := make(map[string]any)
	for eventType, byID := range s.byECID[ecid] {
		ids := make(map[string]any, len(byID))
		for id, e := range byID {
			payload, _ := jsonutil.Clone(e.payload).(map[string]any)
			ids[id] = entry(payload, e.lastSeen, e.count)
		}
		index[eventType] = ids
	}
	return index, nil
}

// Record adds one occurrence of event.
func (s *MemoryStore) Record(ctx context.Context, ecid string, event Event) error {
	if ecid == "" {
		return ErrMissingECID
	}
	if err := event.validate(); err != nil {
		return err
	}
	at := timestamp(event)
	payload, _ := jsonutil.Clone(event.Payload).(map[string]any)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	byType, ok := s.byECID[ecid]
	if !ok {
		byType = make(map[string]map[string]*memoryEntry)
		s.byECID[ecid] = byType
	}
	byID, ok := byType[event.Type]
	if !ok {
		byID = make(map[string]*memoryEntry)
		byType[event.Type] = byID
	}
	e, ok := byID[event.ID]
	if !ok {
		byID[event.ID] = &memoryEntry{payload: payload, lastSeen: at, count: 1}
		return nil
	}
	e.count++
	if payload != nil {
		e.payload = payload
	}
	if at.After(e.lastSeen) {
		e.lastSeen = at
	}
	return nil
}

// Prune deletes entries last seen before cutoff.
func (s *MemoryStore) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrClosed
	}

	var deleted int64
	for ecid, byType := range s.byECID {
		for eventType, byID := range byType {
			for id, e := range byID {
				if e.lastSeen.Before(cutoff) {
					delete(byID, id)
					deleted++
				}
			}
			if len(byID) == 0 {
				delete(byType, eventType)
			}
		}
		if len(byType) == 0 {
			delete(s.byECID, ecid)
		}
	}
	return deleted, nil
}

// Backend returns "memory".
func (s *MemoryStore) Backend() string { return BackendMemory }

// Ping fails once the store is closed.
func (s *MemoryStore) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	return nil
}

// Close releases the stored history.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.byECID = nil
	return nil
}
