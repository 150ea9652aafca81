package graph

import "errors"

// ErrNotCompiled is returned by Run and Resume when the graph has not been
// compiled. Compile must succeed before execution.
var ErrNotCompiled = errors.New("graph not compiled (call Compile before Run)")

// ErrMaxStepsExceeded indicates that a turn reached the maximum allowed
// step count without completing. This prevents infinite loops when a
// conditional exit is missing or misconfigured.
var ErrMaxStepsExceeded = errors.New("execution exceeded maximum steps limit")

// EngineError represents an error from Engine operations.
//
// Codes used by the engine:
//   - DUPLICATE_NODE, NODE_NOT_FOUND, NO_START_NODE: graph construction
//   - UNKNOWN_TARGET, UNREACHABLE_END: compile validation
//   - NO_ROUTE: a router returned a name outside its declared target set
//   - STATE_INVARIANT: the state failed a routing-time invariant
//   - CHECKPOINT_WRITE_FAILED: a step could not be persisted; the turn
//     aborts because the resumability guarantee is broken
type EngineError struct {
	Message string
	Code    string
}

func (e *EngineError) Error() string {
	if e.Code != "" {
		return e.Code + ": " + e.Message
	}
	return e.Message
}
