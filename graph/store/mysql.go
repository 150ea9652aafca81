package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// MySQLStore is a MySQL/MariaDB implementation of Store[S].
//
// Designed for:
//   - Production deployments requiring durable conversations
//   - Multiple service instances sharing one checkpoint database
//   - Audit trails over conversation history
//
// MySQLStore uses connection pooling; per-step writes are single-statement
// upserts, which InnoDB applies atomically.
//
// Type parameter S is the state type to persist (must be JSON-serializable).
type MySQLStore[S any] struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
}

// NewMySQLStore creates a new MySQL-backed store.
//
// The DSN (Data Source Name) format is:
//
//	[username[:password]@][protocol[(address)]]/dbname[?param1=value1&...]
//
// Example:
//
//	user:password@tcp(localhost:3306)/opey?parseTime=true
//
// Never hardcode credentials; read the DSN from the environment:
//
//	cps, err := store.NewMySQLStore[agent.State](os.Getenv("MYSQL_DSN"))
//
// The store automatically creates the schema and configures pooling.
func NewMySQLStore[S any](dsn string) (*MySQLStore[S], error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL connection: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Minute)

	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping MySQL: %w", err)
	}

	m := &MySQLStore[S]{db: db}
	if err := m.createTables(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return m, nil
}

func (m *MySQLStore[S]) createTables(ctx context.Context) error {
	schema := `
		CREATE TABLE IF NOT EXISTS thread_checkpoints (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			thread_id VARCHAR(255) NOT NULL,
			step INT NOT NULL,
			node_id VARCHAR(255) NOT NULL,
			state JSON NOT NULL,
			saved_at TIMESTAMP(6) NOT NULL,
			UNIQUE KEY uniq_thread_step (thread_id, step),
			KEY idx_thread_latest (thread_id, step DESC)
		) ENGINE=InnoDB
	`
	if _, err := m.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create thread_checkpoints table: %w", err)
	}
	return nil
}

// SaveStep persists a checkpoint as a single atomic upsert.
func (m *MySQLStore[S]) SaveStep(ctx context.Context, threadID string, step int, nodeID string, state S) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return fmt.Errorf("store is closed")
	}

	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	query := `
		INSERT INTO thread_checkpoints (thread_id, step, node_id, state, saved_at)
		VALUES (?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE node_id = VALUES(node_id), state = VALUES(state), saved_at = VALUES(saved_at)
	`
	if _, err := m.db.ExecContext(ctx, query, threadID, step, nodeID, string(data), time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}
	return nil
}

// LoadLatest returns the checkpoint with the highest step for the thread.
func (m *MySQLStore[S]) LoadLatest(ctx context.Context, threadID string) (Checkpoint[S], error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
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
	err := m.db.QueryRowContext(ctx, query, threadID).Scan(&cp.Step, &cp.NodeID, &raw, &savedAt)
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
func (m *MySQLStore[S]) Prune(ctx context.Context, threadID string, keep int) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return fmt.Errorf("store is closed")
	}
	if keep < 1 {
		keep = 1
	}

	// MySQL cannot reference the target table in a DELETE subquery
	// directly; read the max step first.
	var maxStep sql.NullInt64
	err := m.db.QueryRowContext(ctx,
		`SELECT MAX(step) FROM thread_checkpoints WHERE thread_id = ?`, threadID).Scan(&maxStep)
	if err != nil {
		return fmt.Errorf("failed to read max step: %w", err)
	}
	if !maxStep.Valid {
		return nil
	}

	_, err = m.db.ExecContext(ctx,
		`DELETE FROM thread_checkpoints WHERE thread_id = ? AND step <= ?`,
		threadID, maxStep.Int64-int64(keep))
	if err != nil {
		return fmt.Errorf("failed to prune checkpoints: %w", err)
	}
	return nil
}

// Close releases the underlying database connection pool.
func (m *MySQLStore[S]) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true
	return m.db.Close()
}
