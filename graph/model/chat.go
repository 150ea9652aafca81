// Package model provides LLM integration adapters.
package model

import "context"

// ChatModel defines the interface for LLM chat providers.
//
// This interface abstracts the differences between various LLM providers
// (OpenAI, Anthropic, Google, local models) providing a unified API for
// chat-based interactions.
//
// Implementations should:
//   - Handle provider-specific authentication
//   - Convert standard Message format to provider-specific format
//   - Parse provider responses back to standard ChatOut format
//   - Respect context cancellation and timeouts
//   - Handle retries and rate limiting appropriately
//
// Example usage:
//
//	model := openai.NewChatModel(apiKey, "gpt-4o")
//	messages := []model.Message{
//	    {Role: model.RoleUser, Content: "What endpoints list accounts?"},
//	}
//	out, err := model.Chat(ctx, messages, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(out.Text)
//
// Example with tools:
//
//	tools := []model.ToolSpec{
//	    {
//	        Name:        "retrieve_endpoints",
//	        Description: "Search the API catalog for relevant endpoints",
//	        Schema: map[string]interface{}{
//	            "type": "object",
//	            "properties": map[string]interface{}{
//	                "question": map[string]interface{}{
//	                    "type":        "string",
//	                    "description": "Natural language question",
//	                },
//	            },
//	            "required": []string{"question"},
//	        },
//	    },
//	}
//	out, err := model.Chat(ctx, messages, tools)
//	for _, call := range out.ToolCalls {
//	    fmt.Printf("Tool: %s, Input: %v\n", call.Name, call.Input)
//	}
type ChatModel interface {
	// Chat sends messages to the LLM and returns the response.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeout control
	//   - messages: Conversation history (system, user, assistant, tool messages)
	//   - tools: Optional tool specifications the LLM can use (nil if no tools)
	//
	// Returns:
	//   - ChatOut: LLM response containing text and/or tool calls plus usage
	//   - error: Provider errors, network errors, or context cancellation
	//
	// The LLM may respond with:
	//   - Text only: Direct answer to the user's question
	//   - Tool calls only: Request to invoke external tools
	//   - Both: Text explanation plus tool invocations
	Chat(ctx context.Context, messages []Message, tools []ToolSpec) (ChatOut, error)
}

// Message represents a single message in an LLM conversation.
//
// Messages follow the common chat format used by OpenAI, Anthropic,
// Google, and other providers.
//
// Typical conversation structure:
//   - System message (optional): Sets context and behavior
//   - User messages: User input or questions
//   - Assistant messages: LLM responses, possibly carrying tool calls
//   - Tool messages: Results of executing a requested tool call
//
// Example:
//
//	conversation := []model.Message{
//	    {Role: model.RoleSystem, Content: "You are Opey, a banking API assistant."},
//	    {Role: model.RoleUser, Content: "How do I list my accounts?"},
//	    {Role: model.RoleAssistant, Content: "Use GET /obp/v5.1.0/my/accounts."},
//	}
type Message struct {
	// Role identifies the message sender.
	// Standard roles: "system", "user", "assistant", "tool".
	// Use the Role* constants for consistency.
	Role string

	// Content contains the message text.
	// May be empty for assistant messages that only contain tool calls.
	Content string

	// ToolCalls carries the tool invocations requested by an assistant
	// message. Empty for all other roles.
	ToolCalls []ToolCall

	// ToolCallID links a tool message back to the assistant tool call it
	// answers. Required when Role is RoleTool, empty otherwise.
	ToolCallID string
}

// Standard role constants for LLM conversations.
// These align with the conventions used by major LLM providers.
const (
	// RoleSystem indicates a system message that sets context or instructions.
	// System messages typically appear first in a conversation.
	RoleSystem = "system"

	// RoleUser indicates a message from the human user.
	RoleUser = "user"

	// RoleAssistant indicates a response from the LLM.
	// Assistant messages contain generated text and/or tool calls.
	RoleAssistant = "assistant"

	// RoleTool indicates the result of executing a tool call.
	// Tool messages must set ToolCallID to the call they answer.
	RoleTool = "tool"
)

// ToolSpec describes a tool that an LLM can call.
//
// The Schema field follows JSON Schema format and describes the expected
// input parameters.
//
// Example:
//
//	spec := model.ToolSpec{
//	    Name:        "obp_requests",
//	    Description: "Execute a request against the Open Bank Project API",
//	    Schema: map[string]interface{}{
//	        "type": "object",
//	        "properties": map[string]interface{}{
//	            "method": map[string]interface{}{"type": "string"},
//	            "path":   map[string]interface{}{"type": "string"},
//	            "body":   map[string]interface{}{"type": "string"},
//	        },
//	        "required": []string{"method", "path"},
//	    },
//	}
type ToolSpec struct {
	// Name uniquely identifies the tool.
	// Must be a valid function name (alphanumeric + underscores).
	Name string

	// Description explains what the tool does.
	// The LLM uses this to decide when to call the tool.
	Description string

	// Schema defines the tool's input parameters using JSON Schema format.
	// Optional for tools with no parameters.
	Schema map[string]interface{}
}

// ChatOut represents the output from an LLM chat completion.
//
// LLMs can respond with:
//   - Text only: A direct answer
//   - Tool calls only: Request to invoke external tools
//   - Both: Text explanation plus tool invocations
type ChatOut struct {
	// Text contains the LLM's generated response.
	// May be empty if the LLM only wants to call tools.
	Text string

	// ToolCalls contains tools the LLM wants to invoke.
	// Empty if the LLM provided a direct text response.
	ToolCalls []ToolCall

	// Usage reports the token counts for this completion as measured by
	// the provider. Zero-valued when the provider does not report usage;
	// callers needing token accounting should fall back to an estimate.
	Usage Usage
}

// Usage holds provider-reported token counts for a single completion.
type Usage struct {
	// InputTokens is the number of tokens in the prompt.
	InputTokens int

	// OutputTokens is the number of tokens in the generated response.
	OutputTokens int
}

// Total returns the combined input and output token count.
func (u Usage) Total() int {
	return u.InputTokens + u.OutputTokens
}

// Reported indicates whether the provider returned any usage data.
func (u Usage) Reported() bool {
	return u.InputTokens > 0 || u.OutputTokens > 0
}

// ToolCall represents a request from the LLM to invoke a specific tool.
//
// After the LLM requests tool calls, the application should:
//  1. Execute each tool with the provided Input
//  2. Collect the results
//  3. Send results back to the LLM as tool messages keyed by ID
type ToolCall struct {
	// ID uniquely identifies this invocation within the conversation.
	// Providers that do not assign IDs get one synthesized by the adapter.
	ID string

	// Name identifies which tool to call.
	// Must match a ToolSpec.Name from the available tools.
	Name string

	// Input contains the parameters for the tool call.
	// Structure matches the ToolSpec.Schema for this tool.
	// May be nil for tools that take no parameters.
	Input map[string]interface{}
}
