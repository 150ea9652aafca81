package agent

import (
	"context"

	"github.com/tesobe/opey-go/graph"
)

// Review actions.
const (
	// Approve lets the suspended tool batch execute as requested.
	Approve = "approve"

	// Deny rejects the named tool call; nothing in the batch executes.
	Deny = "deny"
)

// Decision is a reviewer's verdict on a suspended tool batch.
type Decision struct {
	// ThreadID identifies the suspended conversation.
	ThreadID string

	// ToolCallID names the reviewed call. On approval it may be empty
	// (the whole batch is approved); on denial it must match a pending
	// call.
	ToolCallID string

	// Action is Approve or Deny.
	Action string

	// Reason is the reviewer's explanation, surfaced to the model on
	// denial so it can react.
	Reason string
}

// Review resolves a turn suspended at the review interrupt point.
//
// Approval resumes at the review node, which passes through to tool
// dispatch: the batch executes exactly as the model requested it.
//
// Denial never executes the batch. Every pending call is closed out with
// an error tool message (the denied call carries the reviewer's reason,
// the rest are marked as held back) and execution resumes at the
// reasoning node so the model can respond to the rejection.
func (a *Agent) Review(ctx context.Context, d Decision) (graph.Outcome[State], error) {
	switch d.Action {
	case Approve:
		return a.engine.Resume(ctx, d.ThreadID, NodeHumanReview, State{})
	case Deny:
		return a.deny(ctx, d)
	default:
		return graph.Outcome[State]{}, &graph.EngineError{
			Message: "unknown review action: " + d.Action,
			Code:    "INVALID_DECISION",
		}
	}
}

func (a *Agent) deny(ctx context.Context, d Decision) (graph.Outcome[State], error) {
	state, err := a.State(ctx, d.ThreadID)
	if err != nil {
		return graph.Outcome[State]{}, err
	}

	pending := state.PendingToolCalls()
	if len(pending) == 0 {
		return graph.Outcome[State]{}, &graph.EngineError{
			Message: "no pending tool calls to deny for thread: " + d.ThreadID,
			Code:    "INVALID_DECISION",
		}
	}

	if d.ToolCallID != "" {
		found := false
		for _, tc := range pending {
			if tc.ID == d.ToolCallID {
				found = true
				break
			}
		}
		if !found {
			return graph.Outcome[State]{}, &graph.EngineError{
				Message: "tool call not pending review: " + d.ToolCallID,
				Code:    "INVALID_DECISION",
			}
		}
	}

	reason := d.Reason
	if reason == "" {
		reason = "denied by reviewer"
	}

	messages := make([]Message, 0, len(pending))
	for _, tc := range pending {
		content := "tool call denied by reviewer: " + reason
		if d.ToolCallID != "" && tc.ID != d.ToolCallID {
			content = "tool call not executed: another call in the batch was denied"
		}
		messages = append(messages, ToolErrorMessage(tc.ID, content))
	}

	return a.engine.Resume(ctx, d.ThreadID, NodeOpey, State{Messages: messages})
}
