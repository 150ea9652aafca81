// Package graph provides the checkpointed execution engine for the Opey
// conversation workflow and its retrieval sub-workflow.
package graph

// End is the terminal marker. Routing to End completes the turn.
const End = "__end__"

// Router selects the next node for a conditional edge.
//
// Routers must be pure: deterministic for a given state snapshot and free
// of side effects. The engine may re-evaluate a router when resuming from
// a checkpoint, so any observable effect inside a router would fire twice.
//
// A router must return one of the target names the edge was declared with
// (or End). Returning anything else is a runtime routing error.
type Router[S any] func(state S) string

// Edge represents the single outgoing transition of a node.
//
// Edges come in two forms:
//   - Static: To is set and Router is nil. Always taken.
//   - Conditional: Router is set and Targets declares every node name the
//     router may return. The declared set is validated at compile time so
//     that a router can never route into an unknown node.
//
// Each node has exactly one outgoing edge; branching is expressed by a
// conditional edge, not by multiple edges.
type Edge[S any] struct {
	// From is the source node ID.
	From string

	// To is the destination for a static edge. Ignored when Router is set.
	To string

	// Router picks the destination for a conditional edge.
	Router Router[S]

	// Targets lists every destination the Router may return.
	// May include End.
	Targets []string
}

// targetSet returns the set of nodes this edge can reach.
func (e Edge[S]) targetSet() []string {
	if e.Router == nil {
		return []string{e.To}
	}
	return e.Targets
}
