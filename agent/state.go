// Package agent assembles the conversational banking assistant on top of
// the graph engine: conversation state, the reasoning and tool nodes,
// summarization, human review of sensitive tool calls, and cooperative
// cancellation.
package agent

import (
	"github.com/tesobe/opey-go/graph/model"
)

// Message roles within a conversation.
const (
	// RoleHuman marks a message authored by the end user.
	RoleHuman = "human"

	// RoleAI marks a message authored by the assistant.
	RoleAI = "ai"

	// RoleTool marks the result of a tool invocation.
	RoleTool = "tool"
)

// Tool message statuses.
const (
	// StatusSuccess marks a tool result produced by a successful call.
	StatusSuccess = "success"

	// StatusError marks a tool result carrying an error description. Tool
	// failures are conversation content, not workflow failures: the model
	// reads the error and decides how to proceed.
	StatusError = "error"
)

// Message is a single entry in the conversation transcript.
type Message struct {
	// Role is one of RoleHuman, RoleAI or RoleTool.
	Role string `json:"role"`

	// Content is the message text. For tool messages this is the
	// serialized tool output or error description.
	Content string `json:"content"`

	// ToolCalls holds the tool invocations an AI message requested.
	// Empty for plain text responses.
	ToolCalls []model.ToolCall `json:"tool_calls,omitempty"`

	// ToolCallID links a tool message back to the AI tool call it
	// answers. Set only when Role is RoleTool.
	ToolCallID string `json:"tool_call_id,omitempty"`

	// Status qualifies tool messages as StatusSuccess or StatusError.
	Status string `json:"status,omitempty"`
}

// State is the conversation state shared across all agent nodes.
//
// The reducer merges deltas by concatenating Messages and overwriting
// the scalar fields, so nodes return only what they changed.
type State struct {
	// Messages is the append-only conversation transcript.
	Messages []Message `json:"messages"`

	// TotalTokens is the running token count accumulated since the last
	// summarization. When it crosses the configured limit the transcript
	// is compressed and the counter resets to zero.
	TotalTokens int `json:"total_tokens"`

	// Summary is the rolling compression of earlier conversation turns.
	// It is injected as context for the model but never shown verbatim
	// to the user.
	Summary string `json:"summary,omitempty"`
}

// Reduce merges a delta into the previous state. Message lists
// concatenate; token counts accumulate (a node resets the counter by
// returning the negative of the current count, which clamps at zero);
// the summary is overwritten only when the delta provides one. A
// zero-valued delta returns the previous state unchanged.
func Reduce(prev, delta State) State {
	next := State{
		Messages:    prev.Messages,
		TotalTokens: prev.TotalTokens + delta.TotalTokens,
		Summary:     prev.Summary,
	}
	if len(delta.Messages) > 0 {
		merged := make([]Message, 0, len(prev.Messages)+len(delta.Messages))
		merged = append(merged, prev.Messages...)
		merged = append(merged, delta.Messages...)
		next.Messages = merged
	}
	if delta.Summary != "" {
		next.Summary = delta.Summary
	}
	if next.TotalTokens < 0 {
		next.TotalTokens = 0
	}
	return next
}

// LastMessage returns the most recent message, or a zero Message when
// the transcript is empty.
func (s State) LastMessage() (Message, bool) {
	if len(s.Messages) == 0 {
		return Message{}, false
	}
	return s.Messages[len(s.Messages)-1], true
}

// PendingToolCalls returns the tool calls of the latest AI message that
// have no matching tool result yet, in the order the model issued them.
func (s State) PendingToolCalls() []model.ToolCall {
	last, ok := s.lastAIMessage()
	if !ok || len(last.ToolCalls) == 0 {
		return nil
	}

	answered := make(map[string]bool)
	for _, msg := range s.Messages {
		if msg.Role == RoleTool && msg.ToolCallID != "" {
			answered[msg.ToolCallID] = true
		}
	}

	var pending []model.ToolCall
	for _, tc := range last.ToolCalls {
		if !answered[tc.ID] {
			pending = append(pending, tc)
		}
	}
	return pending
}

// lastAIMessage returns the most recent AI message in the transcript.
func (s State) lastAIMessage() (Message, bool) {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == RoleAI {
			return s.Messages[i], true
		}
	}
	return Message{}, false
}

// HumanMessage builds a transcript entry for user input.
func HumanMessage(content string) Message {
	return Message{Role: RoleHuman, Content: content}
}

// AIMessage builds a transcript entry for an assistant response.
func AIMessage(content string, toolCalls ...model.ToolCall) Message {
	return Message{Role: RoleAI, Content: content, ToolCalls: toolCalls}
}

// ToolMessage builds a successful tool result entry answering the given
// tool call.
func ToolMessage(toolCallID, content string) Message {
	return Message{
		Role:       RoleTool,
		Content:    content,
		ToolCallID: toolCallID,
		Status:     StatusSuccess,
	}
}

// ToolErrorMessage builds a tool result entry describing a failed or
// rejected tool call.
func ToolErrorMessage(toolCallID, content string) Message {
	return Message{
		Role:       RoleTool,
		Content:    content,
		ToolCallID: toolCallID,
		Status:     StatusError,
	}
}
