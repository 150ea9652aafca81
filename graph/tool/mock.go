package tool

import (
	"context"
	"sync"

	"github.com/tesobe/opey-go/graph/model"
)

// MockTool is a test implementation of Tool.
//
// Use MockTool in tests to verify agent behavior without executing
// actual tool logic. It provides:
//   - Configurable tool name and spec
//   - Scripted response sequences
//   - Call history tracking
//   - Error injection
//   - Thread-safe operation
//
// Example usage:
//
//	mock := &MockTool{
//	    ToolName: "retrieve_endpoints",
//	    Responses: []map[string]interface{}{
//	        {"documents": []string{"getAccounts", "getBanks"}},
//	    },
//	}
//	output, err := mock.Call(ctx, map[string]interface{}{"question": "accounts"})
//
// Example with error injection:
//
//	mock := &MockTool{
//	    ToolName: "obp_requests",
//	    Err:      errors.New("API timeout"),
//	}
//	_, err := mock.Call(ctx, input)
type MockTool struct {
	// ToolName is the identifier returned by Name().
	// Must be set for the mock to function properly.
	ToolName string

	// Description is returned inside Spec(). Optional.
	Description string

	// Responses contains the sequence of outputs to return.
	// Each call to Call() returns the next response in order.
	// If all responses are consumed, the last response repeats.
	Responses []map[string]interface{}

	// Err, if set, will be returned by Call() instead of a response.
	Err error

	// Calls tracks the history of all Call() invocations.
	// Useful for verifying that tools were called with expected inputs.
	Calls []MockToolCall

	mu        sync.Mutex
	callIndex int
}

// MockToolCall records a single invocation of Call().
type MockToolCall struct {
	Input map[string]interface{}
}

// Name implements the Tool interface.
func (m *MockTool) Name() string {
	return m.ToolName
}

// Spec implements the Tool interface.
func (m *MockTool) Spec() model.ToolSpec {
	return model.ToolSpec{
		Name:        m.ToolName,
		Description: m.Description,
		Schema:      map[string]interface{}{"type": "object"},
	}
}

// Call implements the Tool interface.
//
// Returns the next response from Responses (repeating the last one once
// exhausted), or Err if configured. The call is recorded in Calls
// regardless of success or failure.
func (m *MockTool) Call(ctx context.Context, input map[string]interface{}) (map[string]interface{}, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, MockToolCall{
		Input: input,
	})

	if m.Err != nil {
		return nil, m.Err
	}

	if len(m.Responses) == 0 {
		return map[string]interface{}{}, nil
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
func (m *MockTool) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = nil
	m.callIndex = 0
}

// CallCount returns the number of times Call() has been called.
func (m *MockTool) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.Calls)
}
