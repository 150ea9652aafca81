// Package anthropic adapts Anthropic's Claude API to the model.ChatModel interface.
package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/tesobe/opey-go/graph/model"
)

// ChatModel implements model.ChatModel for Anthropic's Claude API.
//
// Provides access to Claude models (Opus, Sonnet, Haiku) with:
//   - Tool/function calling support
//   - Provider-reported token usage
//   - Context cancellation
//   - System prompt extraction (Anthropic uses a separate system parameter)
//
// Example usage:
//
//	apiKey := os.Getenv("ANTHROPIC_API_KEY")
//	m := anthropic.NewChatModel(apiKey, "claude-sonnet-4-20250514")
//
//	messages := []model.Message{
//	    {Role: model.RoleUser, Content: "How do I list accounts?"},
//	}
//
//	out, err := m.Chat(ctx, messages, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(out.Text)
type ChatModel struct {
	modelName string
	client    anthropicClient
}

// anthropicClient defines the interface for Anthropic API operations.
// This allows for easy mocking in tests.
type anthropicClient interface {
	createMessage(ctx context.Context, systemPrompt string, messages []model.Message, tools []model.ToolSpec) (model.ChatOut, error)
}

// NewChatModel creates a new Anthropic ChatModel.
//
// Parameters:
//   - apiKey: Anthropic API key (get from https://console.anthropic.com/)
//   - modelName: Model to use (e.g., "claude-sonnet-4-20250514"). Empty string uses default.
//
// Returns a ChatModel configured for the Claude Messages API.
func NewChatModel(apiKey, modelName string) *ChatModel {
	if modelName == "" {
		modelName = "claude-sonnet-4-20250514"
	}

	return &ChatModel{
		modelName: modelName,
		client:    newDefaultClient(apiKey, modelName),
	}
}

// Chat implements the model.ChatModel interface.
//
// Sends messages to Anthropic's API and returns the response.
// Handles Anthropic-specific message format (system prompt extraction,
// tool use and tool result content blocks).
//
// Returns:
//   - ChatOut with Text and/or ToolCalls plus token Usage
//   - Error for authentication failures, invalid requests, or API errors
func (m *ChatModel) Chat(ctx context.Context, messages []model.Message, tools []model.ToolSpec) (model.ChatOut, error) {
	if ctx.Err() != nil {
		return model.ChatOut{}, ctx.Err()
	}

	// Anthropic expects the system prompt as a separate parameter.
	systemPrompt, conversationMessages := extractSystemPrompt(messages)

	out, err := m.client.createMessage(ctx, systemPrompt, conversationMessages, tools)
	if err != nil {
		return model.ChatOut{}, err
	}

	return out, nil
}

// extractSystemPrompt separates the system message from conversation messages.
// Anthropic's API expects system prompts as a separate parameter, not in the
// messages array.
func extractSystemPrompt(messages []model.Message) (string, []model.Message) {
	var systemPrompt string
	var conversationMessages []model.Message

	for _, msg := range messages {
		if msg.Role == model.RoleSystem {
			// Concatenate multiple system messages if present
			if systemPrompt != "" {
				systemPrompt += "\n\n"
			}
			systemPrompt += msg.Content
		} else {
			conversationMessages = append(conversationMessages, msg)
		}
	}

	return systemPrompt, conversationMessages
}

// defaultClient wraps the official anthropic-sdk-go client.
type defaultClient struct {
	client    *anthropic.Client
	apiKey    string
	modelName string
}

func newDefaultClient(apiKey, modelName string) *defaultClient {
	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &defaultClient{
		client:    &client,
		apiKey:    apiKey,
		modelName: modelName,
	}
}

func (c *defaultClient) createMessage(ctx context.Context, systemPrompt string, messages []model.Message, tools []model.ToolSpec) (model.ChatOut, error) {
	if c.apiKey == "" {
		return model.ChatOut{}, errors.New("Anthropic API key is required")
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.modelName),
		MaxTokens: 4096,
		Messages:  convertMessages(messages),
	}
	if systemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: systemPrompt}}
	}
	if len(tools) > 0 {
		params.Tools = convertTools(tools)
	}

	message, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return model.ChatOut{}, fmt.Errorf("create message: %w", err)
	}

	out := model.ChatOut{
		Usage: model.Usage{
			InputTokens:  int(message.Usage.InputTokens),
			OutputTokens: int(message.Usage.OutputTokens),
		},
	}

	for _, block := range message.Content {
		switch block.Type {
		case "text":
			out.Text += block.Text
		case "tool_use":
			input := map[string]interface{}{}
			if len(block.Input) > 0 {
				if err := json.Unmarshal(block.Input, &input); err != nil {
					return model.ChatOut{}, fmt.Errorf("decode tool use input for %s: %w", block.Name, err)
				}
			}
			out.ToolCalls = append(out.ToolCalls, model.ToolCall{
				ID:    block.ID,
				Name:  block.Name,
				Input: input,
			})
		}
	}

	return out, nil
}

// convertMessages maps the provider-neutral message format onto Anthropic
// message params. Tool results become tool_result content blocks on a user
// message, matching the Messages API conventions.
func convertMessages(messages []model.Message) []anthropic.MessageParam {
	converted := make([]anthropic.MessageParam, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case model.RoleAssistant:
			var blocks []anthropic.ContentBlockParamUnion
			if msg.Content != "" {
				blocks = append(blocks, anthropic.NewTextBlock(msg.Content))
			}
			for _, tc := range msg.ToolCalls {
				input := tc.Input
				if input == nil {
					input = map[string]interface{}{}
				}
				blocks = append(blocks, anthropic.NewToolUseBlock(tc.ID, input, tc.Name))
			}
			converted = append(converted, anthropic.NewAssistantMessage(blocks...))
		case model.RoleTool:
			converted = append(converted, anthropic.NewUserMessage(anthropic.ContentBlockParamUnion{
				OfToolResult: &anthropic.ToolResultBlockParam{
					ToolUseID: msg.ToolCallID,
					Content: []anthropic.ToolResultBlockParamContentUnion{
						{OfText: &anthropic.TextBlockParam{Text: msg.Content}},
					},
				},
			}))
		default:
			converted = append(converted, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		}
	}
	return converted
}

// convertTools maps tool specs onto Anthropic tool definitions.
func convertTools(tools []model.ToolSpec) []anthropic.ToolUnionParam {
	converted := make([]anthropic.ToolUnionParam, 0, len(tools))
	for _, t := range tools {
		schema := anthropic.ToolInputSchemaParam{}
		if props, ok := t.Schema["properties"]; ok {
			schema.Properties = props
		}
		if req, ok := t.Schema["required"].([]string); ok {
			schema.Required = req
		}
		converted = append(converted, anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        t.Name,
				Description: anthropic.String(t.Description),
				InputSchema: schema,
			},
		})
	}
	return converted
}
