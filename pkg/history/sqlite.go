package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"
)

const (
	// DriverPureGo is the modernc.org/sqlite driver name.
	DriverPureGo = "sqlite"

	// DriverCGO is the github.com/mattn/go-sqlite3 driver name.
	DriverCGO = "sqlite3"
)

// SQLiteConfig configures SQLiteStore.
type SQLiteConfig struct {
	// Path is the database file path.
	Path string

	// Driver is DriverPureGo or DriverCGO. Defaults to DriverPureGo.
	Driver string

	// MaxOpenConns limits open connections. Defaults to 1, which serializes
	// writers instead of failing them with SQLITE_BUSY.
	MaxOpenConns int

	// BusyTimeout is how long a statement waits on a locked database.
	BusyTimeout time.Duration
}

// DefaultSQLiteConfig returns the default configuration.
func DefaultSQLiteConfig() *SQLiteConfig {
	return &SQLiteConfig{
		Path:         "data/history.db",
		Driver:       DriverPureGo,
		MaxOpenConns: 1,
		BusyTimeout:  5 * time.Second,
	}
}

// SQLiteStore persists history in a SQLite database.
type SQLiteStore struct {
	db     *sql.DB
	config *SQLiteConfig
	logger *slog.Logger

	mu     sync.RWMutex
	closed bool
}

// NewSQLiteStore opens the database and creates the schema.
func NewSQLiteStore(cfg *SQLiteConfig, logger *slog.Logger) (*SQLiteStore, error) {
	if cfg == nil {
		cfg = DefaultSQLiteConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	driver := cfg.Driver
	if driver == "" {
		driver = DriverPureGo
	}
	maxOpen := cfg.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = 1
	}

	if dir := filepath.Dir(cfg.Path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, &StorageError{Backend: BackendSQLite, Op: "mkdir", Cause: err}
		}
	}

	db, err := sql.Open(driver, cfg.Path)
	if err != nil {
		return nil, &StorageError{Backend: BackendSQLite, Op: "open", Cause: err}
	}
	db.SetMaxOpenConns(maxOpen)

	s := &SQLiteStore{
		db:     db,
		config: cfg,
		logger: logger.With("component", "history.sqlite"),
	}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	s.logger.Info("history store initialized",
		"path", cfg.Path,
		"driver", driver,
		"max_open_conns", maxOpen,
	)
	return s, nil
}

func (s *SQLiteStore) initialize() error {
	if s.config.BusyTimeout > 0 {
		pragma := fmt.Sprintf("PRAGMA busy_timeout=%d;", s.config.BusyTimeout.Milliseconds())
		if _, err := s.db.Exec(pragma); err != nil {
			return &StorageError{Backend: BackendSQLite, Op: "set_busy_timeout", Cause: err}
		}
	}
	if _, err := s.db.Exec(schema); err != nil {
		return &StorageError{Backend: BackendSQLite, Op: "create_schema", Cause: err}
	}
	return nil
}

// Events returns the visitor's index.
func (s *SQLiteStore) Events(ctx context.Context, ecid string) (map[string]any, error) {
	if ecid == "" {
		return nil, ErrMissingECID
	}
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, selectEvents, ecid)
	if err != nil {
		return nil, &StorageError{Backend: BackendSQLite, Op: "query", Cause: err}
	}
	defer rows.Close()

	index := make(map[string]any)
	for rows.Next() {
		var (
			eventType, eventID, raw string
			lastSeen, count         int64
		)
		if err := rows.Scan(&eventType, &eventID, &raw, &lastSeen, &count); err != nil {
			return nil, &StorageError{Backend: BackendSQLite, Op: "scan", Cause: err}
		}
		var payload map[string]any
		if err := json.Unmarshal([]byte(raw), &payload); err != nil {
			return nil, &StorageError{Backend: BackendSQLite, Op: "decode_payload", Cause: err}
		}
		byID, _ := index[eventType].(map[string]any)
		if byID == nil {
			byID = make(map[string]any)
			index[eventType] = byID
		}
		byID[eventID] = entry(payload, time.UnixMilli(lastSeen), count)
	}
	if err := rows.Err(); err != nil {
		return nil, &StorageError{Backend: BackendSQLite, Op: "query", Cause: err}
	}
	return index, nil
}

// Record upserts one occurrence of event.
func (s *SQLiteStore) Record(ctx context.Context, ecid string, event Event) error {
	if ecid == "" {
		return ErrMissingECID
	}
	if err := event.validate(); err != nil {
		return err
	}
	if err := s.checkOpen(); err != nil {
		return err
	}

	payload := event.Payload
	if payload == nil {
		payload = map[string]any{}
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return &StorageError{Backend: BackendSQLite, Op: "encode_payload", Cause: err}
	}
	at := timestamp(event).UnixMilli()

	if _, err := s.db.ExecContext(ctx, upsertEvent, ecid, event.Type, event.ID, string(raw), at, at); err != nil {
		return &StorageError{Backend: BackendSQLite, Op: "record", Cause: err}
	}
	return nil
}

// Prune deletes entries last seen before cutoff.
func (s *SQLiteStore) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	if err := s.checkOpen(); err != nil {
		return 0, err
	}
	res, err := s.db.ExecContext(ctx, deleteBefore, cutoff.UnixMilli())
	if err != nil {
		return 0, &StorageError{Backend: BackendSQLite, Op: "prune", Cause: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, &StorageError{Backend: BackendSQLite, Op: "prune", Cause: err}
	}
	return n, nil
}

// Backend returns "sqlite".
func (s *SQLiteStore) Backend() string { return BackendSQLite }

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	return s.db.PingContext(ctx)
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

func (s *SQLiteStore) checkOpen() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	return nil
}
