package emit

import "sync"

// BufferedEmitter implements Emitter by storing events in memory.
//
// This emitter captures all events and provides query capabilities for
// execution history analysis. Events are organized by threadID for
// efficient retrieval and filtering.
//
// Features:
//   - Thread-safe concurrent access
//   - Query by threadID with optional filtering
//   - Filter by nodeID, message, step range
//   - Clear events by threadID or all events
//
// Warning: This emitter stores all events in memory. For long-running
// conversations or high event volume, prefer LogEmitter or implement
// event rotation via Clear.
//
// Example usage:
//
//	emitter := emit.NewBufferedEmitter()
//	engine := graph.New(reducer, store, emitter, opts)
//
//	engine.Run(ctx, "thread-001", initialState)
//
//	allEvents := emitter.GetHistory("thread-001")
//	errorEvents := emitter.GetHistoryWithFilter("thread-001", emit.HistoryFilter{Msg: "error"})
//
//	emitter.Clear("thread-001")
type BufferedEmitter struct {
	mu     sync.RWMutex
	events map[string][]Event // threadID -> events
}

// HistoryFilter specifies criteria for filtering execution history.
//
// All filter fields are optional. When multiple fields are set, they are
// combined with AND logic (all conditions must match).
//
// Fields:
//   - NodeID: Filter by specific node
//   - Msg: Filter by message type (e.g., "node_completed", "error")
//   - MinStep: Filter events with step >= MinStep (nil = no lower bound)
//   - MaxStep: Filter events with step <= MaxStep (nil = no upper bound)
type HistoryFilter struct {
	NodeID  string // Filter by node ID (empty = no filter)
	Msg     string // Filter by message (empty = no filter)
	MinStep *int   // Minimum step number (nil = no filter)
	MaxStep *int   // Maximum step number (nil = no filter)
}

// NewBufferedEmitter creates a new BufferedEmitter.
//
// Returns a BufferedEmitter that stores all events in memory and provides
// query capabilities. Safe for concurrent use.
func NewBufferedEmitter() *BufferedEmitter {
	return &BufferedEmitter{
		events: make(map[string][]Event),
	}
}

// Emit stores an event in the buffer.
//
// Events are organized by threadID for efficient retrieval. This method is
// thread-safe and can be called concurrently from multiple goroutines.
func (b *BufferedEmitter) Emit(event Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.events[event.ThreadID] = append(b.events[event.ThreadID], event)
}

// GetHistory retrieves all events for a specific threadID.
//
// Returns events in the order they were emitted. Returns an empty slice
// if no events exist for the given threadID.
//
// This method is thread-safe and returns a copy of the events to prevent
// concurrent modification issues.
func (b *BufferedEmitter) GetHistory(threadID string) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()

	events := b.events[threadID]
	if events == nil {
		return []Event{}
	}

	// Return a copy to prevent external modification
	result := make([]Event, len(events))
	copy(result, events)
	return result
}

// GetHistoryWithFilter retrieves filtered events for a specific threadID.
//
// Applies the provided filter criteria to select matching events. All
// filter conditions must match for an event to be included (AND logic).
//
// Returns events in the order they were emitted. Returns an empty slice
// if no events match the filter.
func (b *BufferedEmitter) GetHistoryWithFilter(threadID string, filter HistoryFilter) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()

	events := b.events[threadID]
	if events == nil {
		return []Event{}
	}

	result := make([]Event, 0, len(events))
	for _, event := range events {
		if filter.NodeID != "" && event.NodeID != filter.NodeID {
			continue
		}
		if filter.Msg != "" && event.Msg != filter.Msg {
			continue
		}
		if filter.MinStep != nil && event.Step < *filter.MinStep {
			continue
		}
		if filter.MaxStep != nil && event.Step > *filter.MaxStep {
			continue
		}
		result = append(result, event)
	}
	return result
}

// Clear removes all events for a specific threadID.
//
// Use this to free memory after a conversation thread is no longer
// being inspected.
func (b *BufferedEmitter) Clear(threadID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.events, threadID)
}

// ClearAll removes all stored events for all threads.
func (b *BufferedEmitter) ClearAll() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.events = make(map[string][]Event)
}
