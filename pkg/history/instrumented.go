package history

import (
	"context"
	"time"
)

// Recorder receives store measurements. *metrics.Collector implements it.
type Recorder interface {
	RecordHistoryLookup(backend, result string)
	RecordHistoryWrite(backend string, err error)
	RecordHistoryPruned(backend string, n int64)
}

// Lookup results reported to a Recorder.
const (
	LookupHit   = "hit"
	LookupMiss  = "miss"
	LookupError = "error"
)

// InstrumentedStore records metrics around another Store.
type InstrumentedStore struct {
	Store
	recorder Recorder
}

// Instrument wraps store. A nil recorder returns store unchanged.
func Instrument(store Store, recorder Recorder) Store {
	if recorder == nil {
		return store
	}
	return &InstrumentedStore{Store: store, recorder: recorder}
}

// Events looks up the index and records a hit, miss or error.
func (s *InstrumentedStore) Events(ctx context.Context, ecid string) (map[string]any, error) {
	index, err := s.Store.Events(ctx, ecid)
	switch {
	case err != nil:
		s.recorder.RecordHistoryLookup(s.Backend(), LookupError)
	case len(index) == 0:
		s.recorder.RecordHistoryLookup(s.Backend(), LookupMiss)
	default:
		s.recorder.RecordHistoryLookup(s.Backend(), LookupHit)
	}
	return index, err
}

// Record writes the event and records the outcome.
func (s *InstrumentedStore) Record(ctx context.Context, ecid string, event Event) error {
	err := s.Store.Record(ctx, ecid, event)
	s.recorder.RecordHistoryWrite(s.Backend(), err)
	return err
}

// Prune deletes old entries and records how many were removed.
func (s *InstrumentedStore) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	n, err := s.Store.Prune(ctx, cutoff)
	if err == nil {
		s.recorder.RecordHistoryPruned(s.Backend(), n)
	}
	return n, err
}
