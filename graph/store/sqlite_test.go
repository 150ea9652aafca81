package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore[convState] {
	t.Helper()

	path := filepath.Join(t.TempDir(), "checkpoints.db")
	s, err := NewSQLiteStore[convState](path)
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("Close failed: %v", err)
		}
	})
	return s
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLiteStore(t)

	state := convState{Messages: []string{"hello", "world"}, TotalTokens: 42}
	if err := s.SaveStep(ctx, "thread-001", 1, "opey", state); err != nil {
		t.Fatalf("SaveStep failed: %v", err)
	}

	cp, err := s.LoadLatest(ctx, "thread-001")
	if err != nil {
		t.Fatalf("LoadLatest failed: %v", err)
	}
	if cp.ThreadID != "thread-001" {
		t.Errorf("expected threadID thread-001, got %q", cp.ThreadID)
	}
	if cp.Step != 1 {
		t.Errorf("expected step 1, got %d", cp.Step)
	}
	if cp.NodeID != "opey" {
		t.Errorf("expected nodeID opey, got %q", cp.NodeID)
	}
	if cp.State.TotalTokens != 42 {
		t.Errorf("expected tokens 42, got %d", cp.State.TotalTokens)
	}
	if len(cp.State.Messages) != 2 || cp.State.Messages[0] != "hello" {
		t.Errorf("unexpected messages: %v", cp.State.Messages)
	}
}

func TestSQLiteStoreLoadLatestPicksHighestStep(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLiteStore(t)

	for step := 1; step <= 3; step++ {
		if err := s.SaveStep(ctx, "thread-001", step, "opey", convState{TotalTokens: step}); err != nil {
			t.Fatalf("SaveStep failed: %v", err)
		}
	}

	cp, err := s.LoadLatest(ctx, "thread-001")
	if err != nil {
		t.Fatalf("LoadLatest failed: %v", err)
	}
	if cp.Step != 3 {
		t.Errorf("expected latest step 3, got %d", cp.Step)
	}
	if cp.State.TotalTokens != 3 {
		t.Errorf("expected tokens 3, got %d", cp.State.TotalTokens)
	}
}

func TestSQLiteStoreNotFound(t *testing.T) {
	s := newTestSQLiteStore(t)

	_, err := s.LoadLatest(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSQLiteStoreUpsertSameStep(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLiteStore(t)

	if err := s.SaveStep(ctx, "thread-001", 1, "opey", convState{TotalTokens: 1}); err != nil {
		t.Fatalf("SaveStep failed: %v", err)
	}
	if err := s.SaveStep(ctx, "thread-001", 1, "tools", convState{TotalTokens: 2}); err != nil {
		t.Fatalf("SaveStep upsert failed: %v", err)
	}

	cp, err := s.LoadLatest(ctx, "thread-001")
	if err != nil {
		t.Fatalf("LoadLatest failed: %v", err)
	}
	if cp.NodeID != "tools" || cp.State.TotalTokens != 2 {
		t.Errorf("expected upserted checkpoint, got node=%q tokens=%d", cp.NodeID, cp.State.TotalTokens)
	}
}

func TestSQLiteStorePersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "checkpoints.db")

	s, err := NewSQLiteStore[convState](path)
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	if err := s.SaveStep(ctx, "thread-001", 4, "summarize_conversation", convState{TotalTokens: 0}); err != nil {
		t.Fatalf("SaveStep failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened, err := NewSQLiteStore[convState](path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()

	cp, err := reopened.LoadLatest(ctx, "thread-001")
	if err != nil {
		t.Fatalf("LoadLatest after reopen failed: %v", err)
	}
	if cp.Step != 4 || cp.NodeID != "summarize_conversation" {
		t.Errorf("unexpected checkpoint after reopen: step=%d node=%q", cp.Step, cp.NodeID)
	}
}

func TestSQLiteStorePrune(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLiteStore(t)

	for step := 1; step <= 10; step++ {
		if err := s.SaveStep(ctx, "thread-001", step, "opey", convState{TotalTokens: step}); err != nil {
			t.Fatalf("SaveStep failed: %v", err)
		}
	}
	if err := s.SaveStep(ctx, "thread-other", 1, "opey", convState{}); err != nil {
		t.Fatalf("SaveStep failed: %v", err)
	}

	if err := s.Prune(ctx, "thread-001", 3); err != nil {
		t.Fatalf("Prune failed: %v", err)
	}

	cp, err := s.LoadLatest(ctx, "thread-001")
	if err != nil {
		t.Fatalf("LoadLatest after prune failed: %v", err)
	}
	if cp.Step != 10 {
		t.Errorf("expected latest step 10 to survive prune, got %d", cp.Step)
	}

	var count int
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM thread_checkpoints WHERE thread_id = ?", "thread-001").Scan(&count); err != nil {
		t.Fatalf("count query failed: %v", err)
	}
	if count != 3 {
		t.Errorf("expected 3 checkpoints after prune, got %d", count)
	}

	// Other threads are untouched.
	if _, err := s.LoadLatest(ctx, "thread-other"); err != nil {
		t.Errorf("pruning thread-001 affected thread-other: %v", err)
	}
}
