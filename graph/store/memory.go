package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// MemStore is an in-memory implementation of Store[S].
//
// Designed for:
//   - Testing and development
//   - Single-process deployments where persistence isn't required
//
// MemStore is thread-safe and supports concurrent access from distinct
// threads. States are deep-copied through a JSON round-trip on save and
// load, so a stored checkpoint can never be mutated through the caller's
// reference.
//
// Data is lost when the process terminates. For durable checkpoints use
// SQLiteStore or MySQLStore.
//
// Type parameter S is the state type to persist.
type MemStore[S any] struct {
	mu    sync.RWMutex
	steps map[string][]Checkpoint[S] // threadID -> ordered checkpoints
}

// NewMemStore creates a new in-memory store.
func NewMemStore[S any]() *MemStore[S] {
	return &MemStore[S]{
		steps: make(map[string][]Checkpoint[S]),
	}
}

// SaveStep persists a checkpoint for the thread. Re-writing an existing
// step replaces it; otherwise the checkpoint is appended.
func (m *MemStore[S]) SaveStep(ctx context.Context, threadID string, step int, nodeID string, state S) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	copied, err := deepCopy(state)
	if err != nil {
		return fmt.Errorf("failed to snapshot state: %w", err)
	}

	cp := Checkpoint[S]{
		ThreadID: threadID,
		Step:     step,
		NodeID:   nodeID,
		State:    copied,
		SavedAt:  time.Now(),
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	records := m.steps[threadID]
	for i, existing := range records {
		if existing.Step == step {
			records[i] = cp
			return nil
		}
	}
	m.steps[threadID] = append(records, cp)
	return nil
}

// LoadLatest returns the checkpoint with the highest step for the thread.
func (m *MemStore[S]) LoadLatest(ctx context.Context, threadID string) (Checkpoint[S], error) {
	if err := ctx.Err(); err != nil {
		return Checkpoint[S]{}, err
	}

	m.mu.RLock()
	records := m.steps[threadID]
	var latest Checkpoint[S]
	found := false
	for _, cp := range records {
		if !found || cp.Step > latest.Step {
			latest = cp
			found = true
		}
	}
	m.mu.RUnlock()

	if !found {
		return Checkpoint[S]{}, ErrNotFound
	}

	copied, err := deepCopy(latest.State)
	if err != nil {
		return Checkpoint[S]{}, fmt.Errorf("failed to copy state: %w", err)
	}
	latest.State = copied
	return latest, nil
}

// Prune keeps the newest `keep` checkpoints of a thread.
func (m *MemStore[S]) Prune(ctx context.Context, threadID string, keep int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if keep < 1 {
		keep = 1
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	records := m.steps[threadID]
	if len(records) <= keep {
		return nil
	}

	maxStep := 0
	for _, cp := range records {
		if cp.Step > maxStep {
			maxStep = cp.Step
		}
	}

	kept := records[:0]
	for _, cp := range records {
		if cp.Step > maxStep-keep {
			kept = append(kept, cp)
		}
	}
	m.steps[threadID] = kept
	return nil
}

// deepCopy copies state S through a JSON round-trip. Works for any type
// with exported, JSON-serializable fields, which every checkpointed state
// must have anyway for the database-backed stores.
func deepCopy[S any](state S) (S, error) {
	var copied S

	data, err := json.Marshal(state)
	if err != nil {
		return copied, fmt.Errorf("failed to marshal state: %w", err)
	}
	if err := json.Unmarshal(data, &copied); err != nil {
		return copied, fmt.Errorf("failed to unmarshal state: %w", err)
	}
	return copied, nil
}
