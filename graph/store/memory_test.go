package store

import (
	"context"
	"errors"
	"testing"
)

type convState struct {
	Messages    []string `json:"messages"`
	TotalTokens int      `json:"total_tokens"`
}

func TestMemStoreSaveAndLoadLatest(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore[convState]()

	if err := s.SaveStep(ctx, "thread-001", 1, "opey", convState{Messages: []string{"hi"}, TotalTokens: 10}); err != nil {
		t.Fatalf("SaveStep failed: %v", err)
	}
	if err := s.SaveStep(ctx, "thread-001", 2, "tools", convState{Messages: []string{"hi", "result"}, TotalTokens: 25}); err != nil {
		t.Fatalf("SaveStep failed: %v", err)
	}

	cp, err := s.LoadLatest(ctx, "thread-001")
	if err != nil {
		t.Fatalf("LoadLatest failed: %v", err)
	}
	if cp.Step != 2 {
		t.Errorf("expected latest step 2, got %d", cp.Step)
	}
	if cp.NodeID != "tools" {
		t.Errorf("expected nodeID tools, got %q", cp.NodeID)
	}
	if cp.State.TotalTokens != 25 {
		t.Errorf("expected total tokens 25, got %d", cp.State.TotalTokens)
	}
	if len(cp.State.Messages) != 2 {
		t.Errorf("expected 2 messages, got %d", len(cp.State.Messages))
	}
	if cp.SavedAt.IsZero() {
		t.Error("expected SavedAt to be set")
	}
}

func TestMemStoreLoadLatestNotFound(t *testing.T) {
	s := NewMemStore[convState]()

	_, err := s.LoadLatest(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMemStoreOverwriteSameStep(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore[convState]()

	if err := s.SaveStep(ctx, "thread-001", 1, "opey", convState{TotalTokens: 10}); err != nil {
		t.Fatalf("SaveStep failed: %v", err)
	}
	if err := s.SaveStep(ctx, "thread-001", 1, "opey", convState{TotalTokens: 99}); err != nil {
		t.Fatalf("SaveStep overwrite failed: %v", err)
	}

	cp, err := s.LoadLatest(ctx, "thread-001")
	if err != nil {
		t.Fatalf("LoadLatest failed: %v", err)
	}
	if cp.State.TotalTokens != 99 {
		t.Errorf("expected overwritten state with tokens 99, got %d", cp.State.TotalTokens)
	}
}

func TestMemStoreThreadIsolation(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore[convState]()

	if err := s.SaveStep(ctx, "thread-a", 1, "opey", convState{TotalTokens: 1}); err != nil {
		t.Fatalf("SaveStep failed: %v", err)
	}
	if err := s.SaveStep(ctx, "thread-b", 5, "tools", convState{TotalTokens: 2}); err != nil {
		t.Fatalf("SaveStep failed: %v", err)
	}

	cpA, err := s.LoadLatest(ctx, "thread-a")
	if err != nil {
		t.Fatalf("LoadLatest thread-a failed: %v", err)
	}
	if cpA.Step != 1 || cpA.State.TotalTokens != 1 {
		t.Errorf("thread-a checkpoint polluted: step=%d tokens=%d", cpA.Step, cpA.State.TotalTokens)
	}

	cpB, err := s.LoadLatest(ctx, "thread-b")
	if err != nil {
		t.Fatalf("LoadLatest thread-b failed: %v", err)
	}
	if cpB.Step != 5 || cpB.State.TotalTokens != 2 {
		t.Errorf("thread-b checkpoint polluted: step=%d tokens=%d", cpB.Step, cpB.State.TotalTokens)
	}
}

func TestMemStoreDeepCopyIsolation(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore[convState]()

	state := convState{Messages: []string{"original"}}
	if err := s.SaveStep(ctx, "thread-001", 1, "opey", state); err != nil {
		t.Fatalf("SaveStep failed: %v", err)
	}

	// Mutating the caller's slice must not affect the stored snapshot.
	state.Messages[0] = "mutated"

	cp, err := s.LoadLatest(ctx, "thread-001")
	if err != nil {
		t.Fatalf("LoadLatest failed: %v", err)
	}
	if cp.State.Messages[0] != "original" {
		t.Errorf("stored state shares memory with caller: got %q", cp.State.Messages[0])
	}

	// Mutating a loaded copy must not affect subsequent loads.
	cp.State.Messages[0] = "mutated-load"
	cp2, err := s.LoadLatest(ctx, "thread-001")
	if err != nil {
		t.Fatalf("LoadLatest failed: %v", err)
	}
	if cp2.State.Messages[0] != "original" {
		t.Errorf("loaded state shares memory across loads: got %q", cp2.State.Messages[0])
	}
}

func TestMemStorePrune(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore[convState]()

	for step := 1; step <= 5; step++ {
		if err := s.SaveStep(ctx, "thread-001", step, "opey", convState{TotalTokens: step * 10}); err != nil {
			t.Fatalf("SaveStep failed: %v", err)
		}
	}

	if err := s.Prune(ctx, "thread-001", 2); err != nil {
		t.Fatalf("Prune failed: %v", err)
	}

	// The latest checkpoint always survives pruning.
	cp, err := s.LoadLatest(ctx, "thread-001")
	if err != nil {
		t.Fatalf("LoadLatest after prune failed: %v", err)
	}
	if cp.Step != 5 {
		t.Errorf("expected latest step 5 after prune, got %d", cp.Step)
	}

	s.mu.RLock()
	remaining := len(s.steps["thread-001"])
	s.mu.RUnlock()
	if remaining != 2 {
		t.Errorf("expected 2 checkpoints after prune, got %d", remaining)
	}
}

func TestMemStorePruneUnknownThread(t *testing.T) {
	s := NewMemStore[convState]()

	if err := s.Prune(context.Background(), "missing", 3); err != nil {
		t.Errorf("expected pruning an unknown thread to be a no-op, got %v", err)
	}
}
