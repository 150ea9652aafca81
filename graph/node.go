package graph

import "context"

// Node represents a processing unit in the conversation graph.
// It receives state of type S, performs computation, and returns a NodeResult.
//
// Nodes are the only suspension points in a turn: they perform the
// asynchronous work (LLM calls, tool dispatch, retrieval) and the engine
// awaits completion before evaluating the outgoing edge.
//
// Type parameter S is the state type shared across the workflow.
type Node[S any] interface {
	// Run executes the node's logic with the given context and state.
	// It returns a NodeResult containing the partial state update and
	// any error encountered.
	Run(ctx context.Context, state S) NodeResult[S]
}

// NodeResult represents the output of a node execution.
//
// Delta is a partial state update merged into the current state by the
// engine's reducer. Errors halt the turn unless they were already folded
// into the delta by the node (tool errors become tool messages, not Err).
type NodeResult[S any] struct {
	// Delta is the partial state update produced by this node.
	// It will be merged with the current state using the configured reducer.
	Delta S

	// Err contains any error that occurred during node execution.
	// A non-nil Err aborts the turn and is surfaced to the caller.
	Err error
}

// NodeFunc is a function adapter that implements the Node interface.
// It allows using plain functions as nodes without creating custom types.
//
// Example:
//
//	summarize := NodeFunc[ChatState](func(ctx context.Context, s ChatState) NodeResult[ChatState] {
//	    return NodeResult[ChatState]{Delta: ChatState{Summary: compress(s)}}
//	})
type NodeFunc[S any] func(ctx context.Context, state S) NodeResult[S]

// Run implements the Node interface for NodeFunc.
func (f NodeFunc[S]) Run(ctx context.Context, state S) NodeResult[S] {
	return f(ctx, state)
}

// Guard is an optional hook executed before every node body.
//
// If the guard returns handled = true the node body is skipped and the
// returned result is merged in its place. The engine then continues
// routing exactly as if the node had produced that result itself.
//
// Guards implement cooperative cancellation: they run only at node entry,
// so a node already executing a long external call completes before a
// cancellation takes effect. Cancellation latency is therefore bounded by
// the duration of the longest single node body.
type Guard[S any] func(ctx context.Context, threadID, nodeID string, state S) (result NodeResult[S], handled bool)

// NodeError represents an error that occurred during node execution.
type NodeError struct {
	// Message is the human-readable error description.
	Message string

	// Code is a machine-readable error code for programmatic handling.
	Code string

	// NodeID identifies which node produced this error.
	NodeID string

	// Cause is the underlying error that caused this NodeError.
	Cause error
}

// Error implements the error interface.
func (e *NodeError) Error() string {
	if e.NodeID != "" {
		return "node " + e.NodeID + ": " + e.Message
	}
	return e.Message
}

// Unwrap returns the underlying cause error for error wrapping support.
func (e *NodeError) Unwrap() error {
	return e.Cause
}
