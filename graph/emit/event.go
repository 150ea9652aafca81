package emit

// Event represents an observability event emitted during turn execution.
//
// Events provide detailed insight into conversation processing:
//   - Node execution start/complete
//   - Turn completion and suspension
//   - Errors and cancellations
//   - Checkpoint operations
//
// Events are emitted to an Emitter which can:
//   - Log to stdout/stderr
//   - Send to OpenTelemetry
//   - Store in memory for inspection
type Event struct {
	// ThreadID identifies the conversation thread that emitted this event.
	ThreadID string

	// Step is the monotonically increasing step number for the thread.
	// Zero for turn-level events (turn_completed, turn_suspended, error).
	Step int

	// NodeID identifies which node emitted this event.
	// Empty string for turn-level events.
	NodeID string

	// Msg is a human-readable description of the event.
	Msg string

	// Meta contains additional structured data specific to this event.
	// Common keys:
	//   - "duration_ms": Execution duration in milliseconds
	//   - "error": Error details
	//   - "tokens": Token count for LLM calls
	//   - "cancelled": Whether the node was short-circuited
	Meta map[string]interface{}
}
