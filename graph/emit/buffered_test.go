package emit

import (
	"sync"
	"testing"
)

func TestBufferedEmitterHistory(t *testing.T) {
	emitter := NewBufferedEmitter()

	emitter.Emit(Event{ThreadID: "thread-001", Step: 1, NodeID: "opey", Msg: "node_completed"})
	emitter.Emit(Event{ThreadID: "thread-001", Step: 2, NodeID: "tools", Msg: "node_completed"})
	emitter.Emit(Event{ThreadID: "thread-002", Step: 1, NodeID: "opey", Msg: "node_completed"})

	history := emitter.GetHistory("thread-001")
	if len(history) != 2 {
		t.Fatalf("expected 2 events for thread-001, got %d", len(history))
	}
	if history[0].NodeID != "opey" || history[1].NodeID != "tools" {
		t.Errorf("expected emission order preserved, got %q then %q", history[0].NodeID, history[1].NodeID)
	}

	other := emitter.GetHistory("thread-002")
	if len(other) != 1 {
		t.Errorf("expected 1 event for thread-002, got %d", len(other))
	}
}

func TestBufferedEmitterHistoryUnknownThread(t *testing.T) {
	emitter := NewBufferedEmitter()

	history := emitter.GetHistory("missing")
	if history == nil {
		t.Error("expected empty slice for unknown thread, got nil")
	}
	if len(history) != 0 {
		t.Errorf("expected no events, got %d", len(history))
	}
}

func TestBufferedEmitterHistoryIsCopy(t *testing.T) {
	emitter := NewBufferedEmitter()
	emitter.Emit(Event{ThreadID: "thread-001", Step: 1, NodeID: "opey"})

	history := emitter.GetHistory("thread-001")
	history[0].NodeID = "mutated"

	fresh := emitter.GetHistory("thread-001")
	if fresh[0].NodeID != "opey" {
		t.Error("expected GetHistory to return a copy, internal state was mutated")
	}
}

func TestBufferedEmitterFilter(t *testing.T) {
	emitter := NewBufferedEmitter()
	emitter.Emit(Event{ThreadID: "t", Step: 1, NodeID: "opey", Msg: "node_completed"})
	emitter.Emit(Event{ThreadID: "t", Step: 2, NodeID: "tools", Msg: "node_completed"})
	emitter.Emit(Event{ThreadID: "t", Step: 3, NodeID: "tools", Msg: "error"})
	emitter.Emit(Event{ThreadID: "t", Step: 4, NodeID: "opey", Msg: "node_completed"})

	t.Run("by node", func(t *testing.T) {
		events := emitter.GetHistoryWithFilter("t", HistoryFilter{NodeID: "tools"})
		if len(events) != 2 {
			t.Fatalf("expected 2 tools events, got %d", len(events))
		}
	})

	t.Run("by message", func(t *testing.T) {
		events := emitter.GetHistoryWithFilter("t", HistoryFilter{Msg: "error"})
		if len(events) != 1 {
			t.Fatalf("expected 1 error event, got %d", len(events))
		}
		if events[0].Step != 3 {
			t.Errorf("expected step 3, got %d", events[0].Step)
		}
	})

	t.Run("by step range", func(t *testing.T) {
		minStep, maxStep := 2, 3
		events := emitter.GetHistoryWithFilter("t", HistoryFilter{MinStep: &minStep, MaxStep: &maxStep})
		if len(events) != 2 {
			t.Fatalf("expected 2 events in range, got %d", len(events))
		}
	})

	t.Run("combined AND logic", func(t *testing.T) {
		events := emitter.GetHistoryWithFilter("t", HistoryFilter{NodeID: "tools", Msg: "node_completed"})
		if len(events) != 1 {
			t.Fatalf("expected 1 event matching both conditions, got %d", len(events))
		}
		if events[0].Step != 2 {
			t.Errorf("expected step 2, got %d", events[0].Step)
		}
	})

	t.Run("no match", func(t *testing.T) {
		events := emitter.GetHistoryWithFilter("t", HistoryFilter{NodeID: "missing"})
		if len(events) != 0 {
			t.Errorf("expected no events, got %d", len(events))
		}
	})
}

func TestBufferedEmitterClear(t *testing.T) {
	emitter := NewBufferedEmitter()
	emitter.Emit(Event{ThreadID: "thread-001", Step: 1})
	emitter.Emit(Event{ThreadID: "thread-002", Step: 1})

	emitter.Clear("thread-001")

	if len(emitter.GetHistory("thread-001")) != 0 {
		t.Error("expected thread-001 events cleared")
	}
	if len(emitter.GetHistory("thread-002")) != 1 {
		t.Error("expected thread-002 events retained")
	}

	emitter.ClearAll()
	if len(emitter.GetHistory("thread-002")) != 0 {
		t.Error("expected all events cleared")
	}
}

func TestBufferedEmitterConcurrent(t *testing.T) {
	emitter := NewBufferedEmitter()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(step int) {
			defer wg.Done()
			emitter.Emit(Event{ThreadID: "thread-001", Step: step})
			emitter.GetHistory("thread-001")
		}(i)
	}
	wg.Wait()

	if len(emitter.GetHistory("thread-001")) != 10 {
		t.Errorf("expected 10 events after concurrent emits, got %d", len(emitter.GetHistory("thread-001")))
	}
}
