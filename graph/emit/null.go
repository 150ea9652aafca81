package emit

// NullEmitter implements Emitter by discarding all events.
//
// This is a no-op emitter for deployments where event logging is not
// desired, and for tests that do not inspect events.
//
// Example usage:
//
//	emitter := emit.NewNullEmitter()
//	engine := graph.New(reducer, store, emitter, opts)
type NullEmitter struct{}

// NewNullEmitter creates a new NullEmitter.
//
// Returns a NullEmitter that discards all events without any processing.
// This is safe for concurrent use and has zero overhead.
func NewNullEmitter() *NullEmitter {
	return &NullEmitter{}
}

// Emit discards the event without any processing.
//
// This method is a no-op that immediately returns. It never errors
// and performs no I/O or processing.
func (n *NullEmitter) Emit(event Event) {
	// No-op: discard the event
}
