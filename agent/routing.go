package agent

import (
	"github.com/tesobe/opey-go/graph"
	"github.com/tesobe/opey-go/graph/tool"
)

// Graph node IDs.
const (
	// NodeOpey is the reasoning node that calls the chat model.
	NodeOpey = "opey"

	// NodeTools dispatches the tool calls requested by the model.
	NodeTools = "tools"

	// NodeHumanReview is the interrupt point guarding sensitive tool
	// calls. It is a pass-through marker: suspension happens before it.
	NodeHumanReview = "human_review"

	// NodeSummarize compresses the transcript when the token counter
	// crosses the configured limit.
	NodeSummarize = "summarize_conversation"
)

// Router returns the conditional routing function evaluated after the
// reasoning node. Precedence, highest first:
//
//  1. The latest AI message requests a sensitive tool (per the
//     registry): route to human review. The entire batch waits; no call
//     in the batch executes before approval.
//  2. The latest AI message requests any tools: route to tool dispatch.
//  3. TotalTokens has reached tokenLimit: route to summarization.
//  4. Otherwise the turn is complete.
//
// Routing a batch with one sensitive call through review holds the
// non-sensitive calls of that batch too: the model issued them together
// and partial execution would skew its view of the world.
func Router(registry *tool.Registry, tokenLimit int) graph.Router[State] {
	return func(s State) string {
		pending := s.PendingToolCalls()
		if len(pending) > 0 {
			for _, tc := range pending {
				if registry.IsSensitive(tc.Name) {
					return NodeHumanReview
				}
			}
			return NodeTools
		}
		if tokenLimit > 0 && s.TotalTokens >= tokenLimit {
			return NodeSummarize
		}
		return graph.End
	}
}
