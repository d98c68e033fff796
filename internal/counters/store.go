package counters

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"mothtrap/internal/config"
)

// Well-known counter names. Callers may also track ad hoc counters; these are
// the ones the daemon and CLI report.
const (
	CounterBoots      = "boots"
	CounterDetections = "detections"
	CounterCommitted  = "windows_committed"
	CounterDiscarded  = "windows_discarded"
	CounterFailures   = "capture_failures"
)

// Store manages counter persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the counters database in the log directory
// and ensures its schema.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := filepath.Join(cfg.Paths.LogDir, "counters.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.ensureSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string { return s.path }

// Increment adds one to the named counter, creating it at one when absent.
func (s *Store) Increment(ctx context.Context, name string) error {
	return s.Add(ctx, name, 1)
}

// Add applies a delta to the named counter, creating it when absent.
func (s *Store) Add(ctx context.Context, name string, delta int64) error {
	if name == "" {
		return errors.New("counter name is empty")
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO counters (name, value, updated_at) VALUES (?, ?, ?)
         ON CONFLICT(name) DO UPDATE SET value = value + excluded.value, updated_at = excluded.updated_at`,
		name,
		delta,
		now,
	)
	if err != nil {
		return fmt.Errorf("bump counter %q: %w", name, err)
	}
	return nil
}

// Get returns the named counter's value, zero when it has never been bumped.
func (s *Store) Get(ctx context.Context, name string) (int64, error) {
	row := s.db.QueryRowContext(ctx, `SELECT value FROM counters WHERE name = ?`, name)
	var value int64
	if err := row.Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("get counter %q: %w", name, err)
	}
	return value, nil
}

// Snapshot returns all counters keyed by name.
func (s *Store) Snapshot(ctx context.Context) (map[string]int64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, value FROM counters ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("snapshot counters: %w", err)
	}
	defer rows.Close()

	values := make(map[string]int64)
	for rows.Next() {
		var name string
		var value int64
		if err := rows.Scan(&name, &value); err != nil {
			return nil, err
		}
		values[name] = value
	}
	return values, rows.Err()
}

// Reset zeroes the named counter. Resetting an absent counter is a no-op.
func (s *Store) Reset(ctx context.Context, name string) error {
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE counters SET value = 0, updated_at = ? WHERE name = ?`,
		time.Now().UTC().Format(time.RFC3339Nano),
		name,
	)
	if err != nil {
		return fmt.Errorf("reset counter %q: %w", name, err)
	}
	return nil
}
