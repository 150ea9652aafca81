// Package store provides checkpoint persistence for conversation threads.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a thread has no persisted checkpoints.
var ErrNotFound = errors.New("not found")

// Checkpoint is an immutable snapshot of conversation state plus the
// engine's node position, keyed by (thread, step).
//
// Checkpoints are never mutated, only appended and (optionally) pruned.
// The latest checkpoint per thread is the resume point after a crash or a
// suspension.
//
// Type parameter S is the state type captured by the snapshot.
type Checkpoint[S any] struct {
	// ThreadID identifies the conversation this snapshot belongs to.
	ThreadID string

	// Step is the sequential step number within the thread (1-indexed,
	// monotonically increasing across turns).
	Step int

	// NodeID is the node whose completion produced this state.
	NodeID string

	// State is the merged conversation state after the step completed.
	State S

	// SavedAt records when the checkpoint was written.
	SavedAt time.Time
}

// Store provides durable snapshot/resume of conversation state keyed by
// thread ID.
//
// The engine requires two properties of any implementation:
//   - SaveStep is atomic with respect to the state it captures: a step's
//     mutation is durable before the next node begins, so a crash after
//     step N resumes cleanly at N+1 without replaying or losing step N.
//   - LoadLatest is last-write-wins per thread.
//
// Implementations can use in-memory maps (testing, see MemStore), SQLite
// (single-process persistence, see SQLiteStore) or MySQL (shared
// persistence, see MySQLStore).
//
// Type parameter S is the state type to persist (must be JSON-serializable
// for the database-backed implementations).
type Store[S any] interface {
	// SaveStep persists the state after a node execution step.
	// Writing the same (threadID, step) twice overwrites the earlier
	// record; readers only ever observe complete checkpoints.
	SaveStep(ctx context.Context, threadID string, step int, nodeID string, state S) error

	// LoadLatest retrieves the most recent checkpoint for a thread.
	// Returns ErrNotFound if the thread has no persisted steps.
	LoadLatest(ctx context.Context, threadID string) (Checkpoint[S], error)
}

// Pruner is implemented by stores that can discard old checkpoints.
//
// Pruning keeps the newest `keep` steps of a thread and deletes the rest,
// bounding storage for long-lived conversations. Pruning never removes the
// latest checkpoint.
type Pruner interface {
	Prune(ctx context.Context, threadID string, keep int) error
}
