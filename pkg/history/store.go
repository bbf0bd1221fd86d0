package history

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"odd-hq/decisioning/pkg/config"
)

const (
	// BackendMemory selects MemoryStore.
	BackendMemory = "memory"

	// BackendSQLite selects SQLiteStore.
	BackendSQLite = "sqlite"
)

var (
	// ErrMissingECID indicates a lookup or write without a visitor id.
	ErrMissingECID = errors.New("ecid is required")

	// ErrInvalidEvent indicates an event without a type or id.
	ErrInvalidEvent = errors.New("event type and id are required")

	// ErrClosed indicates use of a closed store.
	ErrClosed = errors.New("history store is closed")
)

// Event is one occurrence of a visitor event.
type Event struct {
	// Type is the event type, e.g. "display".
	Type string

	// ID identifies the event within its type, e.g. a proposition id.
	ID string

	// Payload is stored as the "event" field of the index entry.
	// Historical conditions compare descriptor fields against it.
	Payload map[string]any

	// Timestamp defaults to the time of recording.
	Timestamp time.Time
}

func (e Event) validate() error {
	if e.Type == "" || e.ID == "" {
		return ErrInvalidEvent
	}
	return nil
}

// Store records events and returns the per-visitor index.
type Store interface {
	// Events returns the index for ecid. A visitor without history yields an
	// empty, non-nil map.
	Events(ctx context.Context, ecid string) (map[string]any, error)

	// Record adds one occurrence of event for ecid.
	Record(ctx context.Context, ecid string, event Event) error

	// Prune deletes entries whose latest occurrence is before cutoff and
	// returns how many were deleted.
	Prune(ctx context.Context, cutoff time.Time) (int64, error)

	// Backend names the storage backend.
	Backend() string

	// Ping checks that the store is usable.
	Ping(ctx context.Context) error

	Close() error
}

// Open creates the store selected by cfg.
func Open(cfg config.HistoryConfig, logger *slog.Logger) (Store, error) {
	switch cfg.Backend {
	case "", BackendMemory:
		return NewMemoryStore(), nil
	case BackendSQLite:
		return NewSQLiteStore(&SQLiteConfig{
			Path:         cfg.SQLite.Path,
			Driver:       cfg.SQLite.Driver,
			MaxOpenConns: cfg.SQLite.MaxOpenConns,
			BusyTimeout:  cfg.SQLite.BusyTimeout,
		}, logger)
	default:
		return nil, fmt.Errorf("unknown history backend %q", cfg.Backend)
	}
}

// entry builds one index value.
func entry(payload map[string]any, lastSeen time.Time, count int64) map[string]any {
	if payload == nil {
		payload = map[string]any{}
	}
	return map[string]any{
		"event":     payload,
		"timestamp": float64(lastSeen.UnixMilli()),
		"count":     float64(count),
	}
}

func timestamp(e Event) time.Time {
	if e.Timestamp.IsZero() {
		return time.Now()
	}
	return e.Timestamp
}
