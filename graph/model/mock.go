package model

import (
	"context"
	"sync"
)

// MockChatModel is a test implementation of ChatModel.
//
// Use MockChatModel in tests to verify agent behavior without making
// actual LLM API calls. It provides:
//   - Scripted responses returned in order
//   - Call history tracking
//   - Error injection
//   - Thread-safe operation
//
// Example usage:
//
//	mock := &MockChatModel{
//	    Responses: []ChatOut{
//	        {ToolCalls: []ToolCall{{ID: "call_1", Name: "retrieve_endpoints"}}},
//	        {Text: "Here are the matching endpoints."},
//	    },
//	}
//	out, err := mock.Chat(ctx, messages, nil)
//	// Returns the tool call turn, then the text turn on the next call.
type MockChatModel struct {
	// Responses contains the sequence of responses to return.
	// Each call to Chat() returns the next response in order.
	// If all responses are consumed, the last response repeats.
	Responses []ChatOut

	// Err, if set, will be returned by Chat() instead of a response.
	Err error

	// Calls tracks the history of all Chat() invocations.
	// Useful for verifying that nodes called the model with expected inputs.
	Calls []MockChatCall

	mu        sync.Mutex
	callIndex int
}

// MockChatCall records a single invocation of Chat().
type MockChatCall struct {
	Messages []Message
	Tools    []ToolSpec
}

// Chat implements the ChatModel interface.
//
// Returns the next response from Responses (repeating the last one once
// exhausted), or Err if configured. The call is recorded in Calls
// regardless of success or failure.
func (m *MockChatModel) Chat(ctx context.Context, messages []Message, tools []ToolSpec) (ChatOut, error) {
	if ctx.Err() != nil {
		return ChatOut{}, ctx.Err()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, MockChatCall{
		Messages: messages,
		Tools:    tools,
	})

	if m.Err != nil {
		return ChatOut{}, m.Err
	}

	if len(m.Responses) == 0 {
		return ChatOut{}, nil
	}

	idx := m.callIndex
	if idx >= len(m.Responses) {
		idx = len(m.Responses) - 1 // repeat last response
	} else {
		m.callIndex++
	}

	return m.Responses[idx], nil
}

// Reset clears the call history and resets the response index.
//
// Useful when reusing the same mock across multiple test cases.
func (m *MockChatModel) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = nil
	m.callIndex = 0
}

// CallCount returns the number of times Chat() has been called.
func (m *MockChatModel) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.Calls)
}

// LastCall returns the most recent recorded invocation.
//
// Returns false when Chat() has not been called yet.
func (m *MockChatModel) LastCall() (MockChatCall, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.Calls) == 0 {
		return MockChatCall{}, false
	}
	return m.Calls[len(m.Calls)-1], true
}
