// Package google provides ChatModel adapter for Google Gemini API.
package google

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"github.com/google/uuid"
	"google.golang.org/api/option"

	"github.com/tesobe/opey-go/graph/model"
)

// ChatModel implements model.ChatModel for Google's Gemini API.
//
// Provides access to Gemini models with:
//   - Safety filter handling
//   - Tool/function calling support
//   - Provider-reported token usage
//   - Context cancellation
//   - User-friendly error messages for blocked content
//
// Example usage:
//
//	apiKey := os.Getenv("GOOGLE_API_KEY")
//	m := google.NewChatModel(apiKey, "gemini-2.5-flash")
//
//	messages := []model.Message{
//	    {Role: model.RoleUser, Content: "How do I list accounts?"},
//	}
//
//	out, err := m.Chat(ctx, messages, nil)
//	if err != nil {
//	    var safetyErr *google.SafetyFilterError
//	    if errors.As(err, &safetyErr) {
//	        log.Printf("Content blocked: %s", safetyErr.Category())
//	        return
//	    }
//	    log.Fatal(err)
//	}
//	fmt.Println(out.Text)
type ChatModel struct {
	apiKey    string
	modelName string
	client    googleClient
}

// googleClient defines the interface for Google Gemini API operations.
// This allows for easy mocking in tests.
type googleClient interface {
	generateContent(ctx context.Context, messages []model.Message, tools []model.ToolSpec) (model.ChatOut, error)
}

// NewChatModel creates a new Google ChatModel.
//
// Parameters:
//   - apiKey: Google API key (get from https://makersuite.google.com/app/apikey)
//   - modelName: Model to use (e.g., "gemini-2.5-flash"). Empty string uses default.
//
// Returns a ChatModel configured for the Gemini API.
func NewChatModel(apiKey, modelName string) *ChatModel {
	if modelName == "" {
		modelName = "gemini-2.5-flash"
	}

	return &ChatModel{
		apiKey:    apiKey,
		modelName: modelName,
		client:    &defaultClient{apiKey: apiKey, modelName: modelName},
	}
}

// Chat implements the model.ChatModel interface.
//
// Sends messages to Google's Gemini API and returns the response.
// Handles safety filter blocks with descriptive errors.
//
// Returns:
//   - ChatOut with Text and/or ToolCalls plus token Usage
//   - Error for authentication failures, safety blocks, or API errors
func (m *ChatModel) Chat(ctx context.Context, messages []model.Message, tools []model.ToolSpec) (model.ChatOut, error) {
	if ctx.Err() != nil {
		return model.ChatOut{}, ctx.Err()
	}

	out, err := m.client.generateContent(ctx, messages, tools)
	if err != nil {
		// Safety filter errors carry the blocked category for callers.
		var safetyErr *SafetyFilterError
		if errors.As(err, &safetyErr) {
			return model.ChatOut{}, safetyErr
		}
		return model.ChatOut{}, err
	}

	return out, nil
}

// defaultClient wraps the official Google Gemini SDK client.
type defaultClient struct {
	apiKey    string
	modelName string
}

func (c *defaultClient) generateContent(ctx context.Context, messages []model.Message, tools []model.ToolSpec) (model.ChatOut, error) {
	if c.apiKey == "" {
		return model.ChatOut{}, errors.New("google API key is required")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(c.apiKey))
	if err != nil {
		return model.ChatOut{}, fmt.Errorf("failed to create Google client: %w", err)
	}
	defer func() {
		_ = client.Close()
	}()

	genModel := client.GenerativeModel(c.modelName)

	if len(tools) > 0 {
		genModel.Tools = convertTools(tools)
	}

	// Gemini takes the system prompt as a model-level instruction rather
	// than a conversation message.
	systemPrompt, conversation := splitSystemPrompt(messages)
	if systemPrompt != "" {
		genModel.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(systemPrompt)},
		}
	}

	parts := convertMessages(conversation)

	resp, err := genModel.GenerateContent(ctx, parts...)
	if err != nil {
		return model.ChatOut{}, fmt.Errorf("google API error: %w", err)
	}

	return convertResponse(resp), nil
}

// splitSystemPrompt pulls system messages out of the conversation, joining
// multiple system messages with blank lines.
func splitSystemPrompt(messages []model.Message) (string, []model.Message) {
	var systemPrompt string
	var conversation []model.Message

	for _, msg := range messages {
		if msg.Role == model.RoleSystem {
			if systemPrompt != "" {
				systemPrompt += "\n\n"
			}
			systemPrompt += msg.Content
		} else {
			conversation = append(conversation, msg)
		}
	}

	return systemPrompt, conversation
}

// convertMessages converts our Message format to Gemini content parts.
//
// Tool results become FunctionResponse parts and assistant tool calls
// become FunctionCall parts; everything else is flattened to text.
func convertMessages(messages []model.Message) []genai.Part {
	var parts []genai.Part

	// Tool call IDs are an OpenAI/Anthropic concept. Gemini correlates
	// function responses by name, so remember the name behind each ID.
	callNames := make(map[string]string)

	for _, msg := range messages {
		switch msg.Role {
		case model.RoleTool:
			name := callNames[msg.ToolCallID]
			parts = append(parts, genai.FunctionResponse{
				Name: name,
				Response: map[string]interface{}{
					"content": msg.Content,
				},
			})
		case model.RoleAssistant:
			if msg.Content != "" {
				parts = append(parts, genai.Text(msg.Content))
			}
			for _, tc := range msg.ToolCalls {
				callNames[tc.ID] = tc.Name
				parts = append(parts, genai.FunctionCall{
					Name: tc.Name,
					Args: tc.Input,
				})
			}
		default:
			if msg.Content != "" {
				parts = append(parts, genai.Text(msg.Content))
			}
		}
	}

	return parts
}

// convertTools converts our ToolSpec format to Gemini function declarations.
func convertTools(tools []model.ToolSpec) []*genai.Tool {
	declarations := make([]*genai.FunctionDeclaration, len(tools))

	for i, tool := range tools {
		declarations[i] = &genai.FunctionDeclaration{
			Name:        tool.Name,
			Description: tool.Description,
			Parameters:  convertSchemaToGenai(tool.Schema),
		}
	}

	return []*genai.Tool{
		{
			FunctionDeclarations: declarations,
		},
	}
}

// convertSchemaToGenai converts a JSON schema map to genai.Schema format.
//
// Handles the single level of nesting tool schemas use in practice:
// an object with typed, described properties and a required list.
func convertSchemaToGenai(schema map[string]interface{}) *genai.Schema {
	if schema == nil {
		return nil
	}

	result := &genai.Schema{
		Type: genai.TypeObject,
	}

	if props, ok := schema["properties"].(map[string]interface{}); ok {
		properties := make(map[string]*genai.Schema)
		for key, val := range props {
			if propMap, ok := val.(map[string]interface{}); ok {
				propSchema := &genai.Schema{}
				if typeStr, ok := propMap["type"].(string); ok {
					propSchema.Type = convertTypeString(typeStr)
				}
				if desc, ok := propMap["description"].(string); ok {
					propSchema.Description = desc
				}
				properties[key] = propSchema
			}
		}
		result.Properties = properties
	}

	if required, ok := schema["required"].([]string); ok {
		result.Required = required
	} else if required, ok := schema["required"].([]interface{}); ok {
		requiredStrs := make([]string, len(required))
		for i, v := range required {
			if s, ok := v.(string); ok {
				requiredStrs[i] = s
			}
		}
		result.Required = requiredStrs
	}

	return result
}

// convertResponse converts Gemini's response to our ChatOut format.
//
// Gemini does not assign IDs to function calls, so each tool call gets a
// synthesized UUID to keep the call/result correlation the rest of the
// stack relies on.
func convertResponse(resp *genai.GenerateContentResponse) model.ChatOut {
	out := model.ChatOut{}

	if resp.UsageMetadata != nil {
		out.Usage = model.Usage{
			InputTokens:  int(resp.UsageMetadata.PromptTokenCount),
			OutputTokens: int(resp.UsageMetadata.CandidatesTokenCount),
		}
	}

	if len(resp.Candidates) == 0 {
		return out
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil {
		return out
	}

	for _, part := range candidate.Content.Parts {
		switch p := part.(type) {
		case genai.Text:
			if out.Text != "" {
				out.Text += "\n"
			}
			out.Text += string(p)

		case genai.FunctionCall:
			out.ToolCalls = append(out.ToolCalls, model.ToolCall{
				ID:    "call_" + uuid.NewString(),
				Name:  p.Name,
				Input: p.Args,
			})
		}
	}

	return out
}

// convertTypeString converts a JSON Schema type string to genai.Type constant.
func convertTypeString(typeStr string) genai.Type {
	switch typeStr {
	case "string":
		return genai.TypeString
	case "number":
		return genai.TypeNumber
	case "integer":
		return genai.TypeInteger
	case "boolean":
		return genai.TypeBoolean
	case "array":
		return genai.TypeArray
	case "object":
		return genai.TypeObject
	default:
		return genai.TypeUnspecified
	}
}

// SafetyFilterError represents a Google safety filter block.
//
// Provides information about why content was blocked:
//   - Reason: Why the block occurred (e.g., "SAFETY")
//   - Category: Which safety category was triggered
//
// Use errors.As to check for this error type:
//
//	var safetyErr *google.SafetyFilterError
//	if errors.As(err, &safetyErr) {
//	    log.Printf("Content blocked: %s", safetyErr.Category())
//	}
type SafetyFilterError struct {
	reason   string
	category string
}

// Error implements the error interface.
func (e *SafetyFilterError) Error() string {
	return "content blocked by safety filter: " + e.category
}

// Category returns the safety category that triggered the block.
func (e *SafetyFilterError) Category() string {
	return e.category
}

// Reason returns why the content was blocked.
func (e *SafetyFilterError) Reason() string {
	return e.reason
}
