package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore is a SQLite implementation of Store[S].
//
// It stores thread checkpoints in a single-file database. Designed for:
//   - Development and testing with zero setup
//   - Single-process deployments requiring durable conversations
//   - Prototyping before migrating to MySQL
//
// Features:
//   - Single file database (e.g., "./opey.db") or ":memory:"
//   - Auto-migration on first use
//   - WAL mode for concurrent reads
//   - One row per (thread, step); writes are single-statement upserts,
//     which SQLite applies atomically
//
// Type parameter S is the state type to persist (must be JSON-serializable).
type SQLiteStore[S any] struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
	path   string
}

// NewSQLiteStore creates a new SQLite-backed store.
//
// The path parameter specifies the database file location:
//   - "./opey.db" - file in current directory
//   - ":memory:" - in-memory database (data lost on close)
//
// The store automatically creates the database file and schema, enables
// WAL mode for concurrent reads and configures a busy timeout.
//
// Example:
//
//	cps, err := store.NewSQLiteStore[agent.State]("./opey.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer cps.Close()
func NewSQLiteStore[S any](path string) (*SQLiteStore[S], error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite connection: %w", err)
	}

	// SQLite supports one writer at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	ctx := context.Background()
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to apply %s: %w", pragma, err)
		}
	}

	s := &SQLiteStore[S]{db: db, path: path}
	if err := s.createTables(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore[S]) createTables(ctx context.Context) error {
	schema := `
		CREATE TABLE IF NOT EXISTS thread_checkpoints (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			thread_id TEXT NOT NULL,
			step INTEGER NOT NULL,
			node_id TEXT NOT NULL,
			state TEXT NOT NULL,
			saved_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(thread_id, step)
		)
	`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create thread_checkpoints table: %w", err)
	}

	index := `
		CREATE INDEX IF NOT EXISTS idx_thread_checkpoints_latest
		ON thread_checkpoints(thread_id, step DESC)
	`
	if _, err := s.db.ExecContext(ctx, index); err != nil {
		return fmt.Errorf("failed to create checkpoint index: %w", err)
	}
	return nil
}

// SaveStep persists a checkpoint as a single atomic upsert.
func (s *SQLiteStore[S]) SaveStep(ctx context.Context, threadID string, step int, nodeID string, state S) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return fmt.Errorf("store is closed")
	}

	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	query := `
		INSERT INTO thread_checkpoints (thread_id, step, node_id, state, saved_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(thread_id, step)
		DO UPDATE SET node_id = excluded.node_id, state = excluded.state, saved_at = excluded.saved_at
	`
	if _, err := s.db.ExecContext(ctx, query, threadID, step, nodeID, string(data), time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}
	return nil
}

// LoadLatest returns the checkpoint with the highest step for the thread.
func (s *SQLiteStore[S]) LoadLatest(ctx context.Context, threadID string) (Checkpoint[S], error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return Checkpoint[S]{}, fmt.Errorf("store is closed")
	}

	query := `
		SELECT step, node_id, state, saved_at
		FROM thread_checkpoints
		WHERE thread_id = ?
		ORDER BY step DESC
		LIMIT 1
	`
	var (
		cp      Checkpoint[S]
		raw     string
		savedAt time.Time
	)
	err := s.db.QueryRowContext(ctx, query, threadID).Scan(&cp.Step, &cp.NodeID, &raw, &savedAt)
	if err == sql.ErrNoRows {
		return Checkpoint[S]{}, ErrNotFound
	}
	if err != nil {
		return Checkpoint[S]{}, fmt.Errorf("failed to load checkpoint: %w", err)
	}

	if err := json.Unmarshal([]byte(raw), &cp.State); err != nil {
		return Checkpoint[S]{}, fmt.Errorf("failed to unmarshal state: %w", err)
	}
	cp.ThreadID = threadID
	cp.SavedAt = savedAt
	return cp, nil
}

// Prune keeps the newest `keep` checkpoints of a thread.
func (s *SQLiteStore[S]) Prune(ctx context.Context, threadID string, keep int) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return fmt.Errorf("store is closed")
	}
	if keep < 1 {
		keep = 1
	}

	query := `
		DELETE FROM thread_checkpoints
		WHERE thread_id = ?
		AND step <= (
			SELECT MAX(step) FROM thread_checkpoints WHERE thread_id = ?
		) - ?
	`
	if _, err := s.db.ExecContext(ctx, query, threadID, threadID, keep); err != nil {
		return fmt.Errorf("failed to prune checkpoints: %w", err)
	}
	return nil
}

// Close releases the underlying database connection.
func (s *SQLiteStore[S]) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
