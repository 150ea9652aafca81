package graph

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/tesobe/opey-go/graph/emit"
	"github.com/tesobe/opey-go/graph/store"
)

// Reducer merges a partial state update into the previous state.
//
// Reducers must be deterministic. Message lists are concatenated, scalar
// fields overwritten; the reducer encodes that policy for the concrete
// state type. A zero-valued delta must be a no-op.
type Reducer[S any] func(prev, delta S) S

// Engine orchestrates checkpointed conversation-turn execution.
//
// The Engine is the core runtime that:
//   - Manages workflow graph topology (nodes and edges)
//   - Executes nodes strictly sequentially within a thread
//   - Merges state updates via the reducer
//   - Persists a checkpoint after every node via the store
//   - Suspends before interrupt points, returning a Suspension
//   - Emits observability events via the emitter
//   - Enforces the MaxSteps limit
//
// Each thread executes single-threaded and cooperatively: no two nodes of
// the same thread ever run concurrently. Distinct threads may run fully
// concurrently; the thread ID is the sole partition key for state,
// checkpoints and cancellation flags. Concurrent calls against the same
// thread ID are not serialized here and must be prevented by the caller.
//
// Type parameter S is the state type shared across the workflow.
type Engine[S any] struct {
	mu sync.RWMutex

	// reducer merges partial state updates deterministically
	reducer Reducer[S]

	// nodes maps node IDs to Node implementations
	nodes map[string]Node[S]

	// edges maps each node ID to its single outgoing edge
	edges map[string]Edge[S]

	// interrupts marks nodes the engine suspends before
	interrupts map[string]bool

	// startNode is the entry point for turn execution
	startNode string

	// store persists per-thread checkpoints
	store store.Store[S]

	// emitter receives observability events
	emitter emit.Emitter

	// guard, when set, runs before every node body
	guard Guard[S]

	// metrics, when set, records step latency and turn outcomes
	metrics *Metrics

	// opts contains execution configuration
	opts Options

	compiled bool
}

// Options configures Engine execution behavior.
//
// Zero values are valid - the Engine will use sensible defaults.
type Options struct {
	// MaxSteps limits the number of nodes executed in a single turn to
	// prevent infinite loops. If 0, no limit is enforced (use with caution).
	MaxSteps int
}

// Suspension describes a turn stopped at an interrupt point.
//
// It is the explicit continuation value the caller must hold to resume:
// the thread, the node the engine stopped before, and the step of the
// checkpoint that captured the pending state. The engine never re-enters
// a suspended turn implicitly.
type Suspension struct {
	// ThreadID identifies the suspended conversation.
	ThreadID string

	// Node is the interrupt point the engine stopped before.
	Node string

	// Step is the checkpoint step holding the suspended state.
	Step int
}

// Outcome is the result of Run or Resume.
//
// Exactly one of the two shapes applies: Suspended is nil and State holds
// the final merged state of a completed turn, or Suspended describes the
// interrupt point the turn is waiting at (State then holds the suspended
// snapshot).
type Outcome[S any] struct {
	State     S
	Suspended *Suspension
}

// New creates a new Engine with the given configuration.
//
// Parameters:
//   - reducer: merges partial state updates (required)
//   - st: persistence backend for checkpoints (required)
//   - emitter: observability event receiver (optional, can be nil)
//   - opts: execution configuration
//
// The constructor does not validate parameters; validation occurs when
// Compile and Run are called.
func New[S any](reducer Reducer[S], st store.Store[S], emitter emit.Emitter, opts Options) *Engine[S] {
	return &Engine[S]{
		reducer:    reducer,
		nodes:      make(map[string]Node[S]),
		edges:      make(map[string]Edge[S]),
		interrupts: make(map[string]bool),
		store:      st,
		emitter:    emitter,
		opts:       opts,
	}
}

// Add registers a node in the workflow graph.
//
// Node IDs must be unique within the workflow and must not collide with
// the End marker.
func (e *Engine[S]) Add(nodeID string, node Node[S]) error {
	if nodeID == "" || nodeID == End {
		return &EngineError{Message: "invalid node ID: " + nodeID}
	}
	if node == nil {
		return &EngineError{Message: "node cannot be nil"}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, exists := e.nodes[nodeID]; exists {
		return &EngineError{
			Message: "duplicate node ID: " + nodeID,
			Code:    "DUPLICATE_NODE",
		}
	}

	e.nodes[nodeID] = node
	e.compiled = false
	return nil
}

// StartAt sets the entry point for turn execution.
func (e *Engine[S]) StartAt(nodeID string) error {
	if nodeID == "" {
		return &EngineError{Message: "start node ID cannot be empty"}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, exists := e.nodes[nodeID]; !exists {
		return &EngineError{
			Message: "start node does not exist: " + nodeID,
			Code:    "NODE_NOT_FOUND",
		}
	}

	e.startNode = nodeID
	e.compiled = false
	return nil
}

// Connect creates a static edge: after `from` completes, execution always
// proceeds to `to`. The destination may be End.
func (e *Engine[S]) Connect(from, to string) error {
	if from == "" || to == "" {
		return &EngineError{Message: "edge endpoints cannot be empty"}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, exists := e.edges[from]; exists {
		return &EngineError{
			Message: "node already has an outgoing edge: " + from,
			Code:    "DUPLICATE_EDGE",
		}
	}

	e.edges[from] = Edge[S]{From: from, To: to}
	e.compiled = false
	return nil
}

// Route creates a conditional edge: after `from` completes, the router is
// evaluated against the merged state to select one of the declared
// targets. Targets may include End.
//
// Routers must be pure functions of the state; they are evaluated against
// the checkpointed snapshot and must never have side effects.
func (e *Engine[S]) Route(from string, router Router[S], targets ...string) error {
	if from == "" {
		return &EngineError{Message: "edge source cannot be empty"}
	}
	if router == nil {
		return &EngineError{Message: "router cannot be nil"}
	}
	if len(targets) == 0 {
		return &EngineError{Message: "conditional edge needs at least one target"}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, exists := e.edges[from]; exists {
		return &EngineError{
			Message: "node already has an outgoing edge: " + from,
			Code:    "DUPLICATE_EDGE",
		}
	}

	e.edges[from] = Edge[S]{From: from, Router: router, Targets: targets}
	e.compiled = false
	return nil
}

// InterruptBefore marks nodes as interrupt points. Whenever routing
// selects one of them as the next node, the engine suspends the turn and
// returns control to the caller instead of executing it. The latest
// checkpoint already reflects the state the node would have seen.
func (e *Engine[S]) InterruptBefore(nodeIDs ...string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, id := range nodeIDs {
		e.interrupts[id] = true
	}
	e.compiled = false
}

// SetGuard installs a guard executed before every node body.
// Used for cooperative cancellation; see Guard.
func (e *Engine[S]) SetGuard(g Guard[S]) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.guard = g
}

// SetMetrics attaches Prometheus metrics collection to the engine.
func (e *Engine[S]) SetMetrics(m *Metrics) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.metrics = m
}

// Compile validates the graph topology and freezes it for execution.
//
// Compilation rejects:
//   - a missing entry node
//   - edges or interrupt points referring to unknown nodes
//   - router target sets naming unknown nodes
//   - nodes with no outgoing edge
//   - an entry node with no path to End
func (e *Engine[S]) Compile() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.reducer == nil {
		return &EngineError{Message: "reducer is required", Code: "MISSING_REDUCER"}
	}
	if e.store == nil {
		return &EngineError{Message: "store is required", Code: "MISSING_STORE"}
	}
	if e.startNode == "" {
		return &EngineError{Message: "start node not set (call StartAt before Compile)", Code: "NO_START_NODE"}
	}

	for id := range e.interrupts {
		if _, ok := e.nodes[id]; !ok {
			return &EngineError{
				Message: "interrupt point does not exist: " + id,
				Code:    "NODE_NOT_FOUND",
			}
		}
	}

	for from, edge := range e.edges {
		if _, ok := e.nodes[from]; !ok {
			return &EngineError{
				Message: "edge from unknown node: " + from,
				Code:    "NODE_NOT_FOUND",
			}
		}
		for _, target := range edge.targetSet() {
			if target == End {
				continue
			}
			if _, ok := e.nodes[target]; !ok {
				return &EngineError{
					Message: "edge from " + from + " targets unknown node: " + target,
					Code:    "UNKNOWN_TARGET",
				}
			}
		}
	}

	for id := range e.nodes {
		if _, ok := e.edges[id]; !ok {
			return &EngineError{
				Message: "node has no outgoing edge: " + id,
				Code:    "UNKNOWN_TARGET",
			}
		}
	}

	if !e.reachesEnd() {
		return &EngineError{
			Message: "no path from " + e.startNode + " to the terminal marker",
			Code:    "UNREACHABLE_END",
		}
	}

	e.compiled = true
	return nil
}

// reachesEnd walks the declared target sets from the start node and
// reports whether End is reachable. Caller holds e.mu.
func (e *Engine[S]) reachesEnd() bool {
	seen := map[string]bool{e.startNode: true}
	queue := []string{e.startNode}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		edge, ok := e.edges[current]
		if !ok {
			continue
		}
		for _, target := range edge.targetSet() {
			if target == End {
				return true
			}
			if !seen[target] {
				seen[target] = true
				queue = append(queue, target)
			}
		}
	}
	return false
}

// Run executes one conversation turn for the given thread.
//
// If the thread has prior checkpoints, the latest one is loaded and the
// delta (typically the new human message) is merged into it; otherwise the
// delta is merged into the zero state. Execution starts at the entry node
// and continues until routing selects End (turn complete) or an interrupt
// point (turn suspended, see Outcome.Suspended).
//
// Step numbering continues across turns, so checkpoints for a thread form
// one monotonically increasing history.
func (e *Engine[S]) Run(ctx context.Context, threadID string, delta S) (Outcome[S], error) {
	state, step, err := e.loadOrZero(ctx, threadID)
	if err != nil {
		return Outcome[S]{}, err
	}

	e.mu.RLock()
	compiled := e.compiled
	reducer := e.reducer
	start := e.startNode
	e.mu.RUnlock()

	if !compiled {
		return Outcome[S]{}, ErrNotCompiled
	}

	return e.loop(ctx, threadID, reducer(state, delta), step, start)
}

// Resume continues a suspended turn for the given thread.
//
// The latest checkpoint is loaded, the delta is merged (a zero delta is a
// no-op) and execution restarts at node `at`. The caller chooses the
// resume node from the Suspension it holds: resuming at the interrupt
// point itself proceeds down the suspended path, while resuming at a
// different node (with a synthesized delta) implements decisions such as
// a denied tool call.
func (e *Engine[S]) Resume(ctx context.Context, threadID, at string, delta S) (Outcome[S], error) {
	e.mu.RLock()
	compiled := e.compiled
	reducer := e.reducer
	_, exists := e.nodes[at]
	e.mu.RUnlock()

	if !compiled {
		return Outcome[S]{}, ErrNotCompiled
	}
	if !exists {
		return Outcome[S]{}, &EngineError{
			Message: "resume node does not exist: " + at,
			Code:    "NODE_NOT_FOUND",
		}
	}

	cp, err := e.store.LoadLatest(ctx, threadID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Outcome[S]{}, &EngineError{
				Message: "no checkpoint to resume for thread: " + threadID,
				Code:    "NODE_NOT_FOUND",
			}
		}
		return Outcome[S]{}, err
	}

	return e.loop(ctx, threadID, reducer(cp.State, delta), cp.Step, at)
}

// loadOrZero returns the latest checkpointed state for the thread, or the
// zero state when the thread has no history.
func (e *Engine[S]) loadOrZero(ctx context.Context, threadID string) (S, int, error) {
	var zero S

	cp, err := e.store.LoadLatest(ctx, threadID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return zero, 0, nil
		}
		return zero, 0, err
	}
	return cp.State, cp.Step, nil
}

// loop is the shared execution loop for Run and Resume.
func (e *Engine[S]) loop(ctx context.Context, threadID string, state S, step int, current string) (Outcome[S], error) {
	turnSteps := 0

	for {
		turnSteps++
		if e.opts.MaxSteps > 0 && turnSteps > e.opts.MaxSteps {
			return Outcome[S]{}, ErrMaxStepsExceeded
		}

		select {
		case <-ctx.Done():
			return Outcome[S]{}, ctx.Err()
		default:
		}

		e.mu.RLock()
		nodeImpl, exists := e.nodes[current]
		guard := e.guard
		e.mu.RUnlock()

		if !exists {
			return Outcome[S]{}, &EngineError{
				Message: "node not found during execution: " + current,
				Code:    "NODE_NOT_FOUND",
			}
		}

		// Guard check happens at node entry only; in-flight work is
		// never preempted.
		began := time.Now()
		var result NodeResult[S]
		var shortCircuit bool
		if guard != nil {
			result, shortCircuit = guard(ctx, threadID, current, state)
		}
		if !shortCircuit {
			result = nodeImpl.Run(ctx, state)
		}
		elapsed := time.Since(began)

		if result.Err != nil {
			e.observeStep(current, elapsed, "error")
			return Outcome[S]{}, result.Err
		}
		e.observeStep(current, elapsed, stepStatus(shortCircuit))

		state = e.reducer(state, result.Delta)
		step++

		// A step's mutation must be durable before the next node begins.
		if err := e.store.SaveStep(ctx, threadID, step, current, state); err != nil {
			return Outcome[S]{}, &EngineError{
				Message: "failed to save step: " + err.Error(),
				Code:    "CHECKPOINT_WRITE_FAILED",
			}
		}

		e.emitNode(threadID, step, current, elapsed, shortCircuit)

		next, err := e.nextNode(current, state)
		if err != nil {
			return Outcome[S]{}, err
		}

		if next == End {
			e.emitTurn(threadID, step, "turn complete")
			if e.metrics != nil {
				e.metrics.TurnCompleted()
			}
			return Outcome[S]{State: state}, nil
		}

		e.mu.RLock()
		interrupt := e.interrupts[next]
		e.mu.RUnlock()

		if interrupt {
			e.emitTurn(threadID, step, "turn suspended before "+next)
			if e.metrics != nil {
				e.metrics.TurnSuspended()
			}
			return Outcome[S]{
				State: state,
				Suspended: &Suspension{
					ThreadID: threadID,
					Node:     next,
					Step:     step,
				},
			}, nil
		}

		current = next
	}
}

// nextNode evaluates the outgoing edge of `current` against the merged
// state. Edge evaluation is deterministic given the state snapshot.
func (e *Engine[S]) nextNode(current string, state S) (string, error) {
	e.mu.RLock()
	edge, ok := e.edges[current]
	e.mu.RUnlock()

	if !ok {
		return "", &EngineError{
			Message: "no valid route from node: " + current,
			Code:    "NO_ROUTE",
		}
	}

	if edge.Router == nil {
		return edge.To, nil
	}

	next := edge.Router(state)
	for _, target := range edge.Targets {
		if next == target {
			return next, nil
		}
	}
	if next == End {
		return next, nil
	}
	return "", &EngineError{
		Message: "router for " + current + " returned undeclared target: " + next,
		Code:    "NO_ROUTE",
	}
}

func (e *Engine[S]) observeStep(nodeID string, elapsed time.Duration, status string) {
	if e.metrics != nil {
		e.metrics.ObserveStep(nodeID, elapsed, status)
	}
}

func (e *Engine[S]) emitNode(threadID string, step int, nodeID string, elapsed time.Duration, shortCircuit bool) {
	if e.emitter == nil {
		return
	}
	meta := map[string]interface{}{
		"duration_ms": elapsed.Milliseconds(),
	}
	msg := "node completed"
	if shortCircuit {
		msg = "node short-circuited"
		meta["short_circuit"] = true
	}
	e.emitter.Emit(emit.Event{
		ThreadID: threadID,
		Step:     step,
		NodeID:   nodeID,
		Msg:      msg,
		Meta:     meta,
	})
}

func (e *Engine[S]) emitTurn(threadID string, step int, msg string) {
	if e.emitter == nil {
		return
	}
	e.emitter.Emit(emit.Event{
		ThreadID: threadID,
		Step:     step,
		Msg:      msg,
	})
}

func stepStatus(shortCircuit bool) string {
	if shortCircuit {
		return "cancelled"
	}
	return "success"
}
