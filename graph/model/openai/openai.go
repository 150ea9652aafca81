// Package openai adapts OpenAI chat completions to the model.ChatModel interface.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/tesobe/opey-go/graph/model"
)

// ChatModel implements model.ChatModel for OpenAI's API.
//
// Provides access to OpenAI models (GPT-4o, GPT-4, etc.) with:
//   - Automatic retry logic for transient errors
//   - Rate limit handling with backoff
//   - Tool/function calling support
//   - Provider-reported token usage
//   - Context cancellation
//
// Example usage:
//
//	apiKey := os.Getenv("OPENAI_API_KEY")
//	m := openai.NewChatModel(apiKey, "gpt-4o")
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
	modelName  string
	client     openaiClient
	maxRetries int
	retryDelay time.Duration
}

// openaiClient defines the interface for OpenAI API operations.
// This allows for easy mocking in tests.
type openaiClient interface {
	createChatCompletion(ctx context.Context, messages []model.Message, tools []model.ToolSpec) (model.ChatOut, error)
}

// NewChatModel creates a new OpenAI ChatModel.
//
// Parameters:
//   - apiKey: OpenAI API key (get from https://platform.openai.com/api-keys)
//   - modelName: Model to use (e.g., "gpt-4o", "gpt-4"). Empty string uses default.
//
// Returns a ChatModel configured with:
//   - 3 retry attempts for transient errors
//   - 1 second delay between retries
//   - Linear backoff for rate limits
func NewChatModel(apiKey, modelName string) *ChatModel {
	if modelName == "" {
		modelName = "gpt-4o"
	}

	return &ChatModel{
		modelName:  modelName,
		client:     newDefaultClient(apiKey, modelName),
		maxRetries: 3,
		retryDelay: time.Second,
	}
}

// Chat implements the model.ChatModel interface.
//
// Sends messages to OpenAI's API and returns the response.
// Automatically retries on transient errors (network issues, rate limits).
//
// Returns:
//   - ChatOut with Text and/or ToolCalls plus token Usage
//   - Error for authentication failures, invalid requests, or exceeded retries
func (m *ChatModel) Chat(ctx context.Context, messages []model.Message, tools []model.ToolSpec) (model.ChatOut, error) {
	if ctx.Err() != nil {
		return model.ChatOut{}, ctx.Err()
	}

	var lastErr error
	for attempt := 0; attempt <= m.maxRetries; attempt++ {
		out, err := m.client.createChatCompletion(ctx, messages, tools)
		if err == nil {
			return out, nil
		}

		lastErr = err

		if !isTransientError(err) {
			return model.ChatOut{}, err
		}

		if attempt >= m.maxRetries {
			break
		}

		// Rate limits back off harder than plain network blips.
		delay := m.retryDelay
		if isRateLimitError(err) {
			delay = m.retryDelay * time.Duration(attempt+1)
		}

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return model.ChatOut{}, ctx.Err()
		}
	}

	return model.ChatOut{}, fmt.Errorf("OpenAI API failed after %d retries: %w", m.maxRetries, lastErr)
}

// isTransientError determines if an error should trigger a retry.
func isTransientError(err error) bool {
	if err == nil {
		return false
	}

	if isRateLimitError(err) {
		return true
	}

	msgLower := strings.ToLower(err.Error())
	transientPatterns := []string{
		"timeout",
		"network",
		"connection",
		"temporary",
		"503",
		"502",
		"500",
	}

	for _, pattern := range transientPatterns {
		if strings.Contains(msgLower, pattern) {
			return true
		}
	}

	return false
}

// isRateLimitError checks if error is a rate limit error.
func isRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	msgLower := strings.ToLower(err.Error())
	return strings.Contains(msgLower, "rate limit") || strings.Contains(msgLower, "429")
}

// defaultClient wraps the official openai-go SDK.
type defaultClient struct {
	client    openai.Client
	apiKey    string
	modelName string
}

func newDefaultClient(apiKey, modelName string) *defaultClient {
	return &defaultClient{
		client:    openai.NewClient(option.WithAPIKey(apiKey)),
		apiKey:    apiKey,
		modelName: modelName,
	}
}

func (c *defaultClient) createChatCompletion(ctx context.Context, messages []model.Message, tools []model.ToolSpec) (model.ChatOut, error) {
	if c.apiKey == "" {
		return model.ChatOut{}, errors.New("OpenAI API key is required")
	}

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(c.modelName),
		Messages: convertMessages(messages),
	}
	if len(tools) > 0 {
		params.Tools = convertTools(tools)
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return model.ChatOut{}, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return model.ChatOut{}, errors.New("chat completion returned no choices")
	}

	choice := resp.Choices[0].Message
	out := model.ChatOut{
		Text: choice.Content,
		Usage: model.Usage{
			InputTokens:  int(resp.Usage.PromptTokens),
			OutputTokens: int(resp.Usage.CompletionTokens),
		},
	}

	for _, tc := range choice.ToolCalls {
		input := map[string]interface{}{}
		if tc.Function.Arguments != "" {
			if err := json.Unmarshal([]byte(tc.Function.Arguments), &input); err != nil {
				return model.ChatOut{}, fmt.Errorf("decode tool call arguments for %s: %w", tc.Function.Name, err)
			}
		}
		out.ToolCalls = append(out.ToolCalls, model.ToolCall{
			ID:    tc.ID,
			Name:  tc.Function.Name,
			Input: input,
		})
	}

	return out, nil
}

// convertMessages maps the provider-neutral message format onto the
// OpenAI chat completion message unions.
func convertMessages(messages []model.Message) []openai.ChatCompletionMessageParamUnion {
	converted := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case model.RoleSystem:
			converted = append(converted, openai.SystemMessage(msg.Content))
		case model.RoleAssistant:
			assistant := openai.ChatCompletionAssistantMessageParam{}
			if msg.Content != "" {
				assistant.Content.OfString = openai.String(msg.Content)
			}
			for _, tc := range msg.ToolCalls {
				args, err := json.Marshal(tc.Input)
				if err != nil {
					args = []byte("{}")
				}
				assistant.ToolCalls = append(assistant.ToolCalls, openai.ChatCompletionMessageToolCallParam{
					ID: tc.ID,
					Function: openai.ChatCompletionMessageToolCallFunctionParam{
						Name:      tc.Name,
						Arguments: string(args),
					},
				})
			}
			converted = append(converted, openai.ChatCompletionMessageParamUnion{OfAssistant: &assistant})
		case model.RoleTool:
			converted = append(converted, openai.ToolMessage(msg.Content, msg.ToolCallID))
		default:
			converted = append(converted, openai.UserMessage(msg.Content))
		}
	}
	return converted
}

// convertTools maps tool specs onto OpenAI function definitions.
func convertTools(tools []model.ToolSpec) []openai.ChatCompletionToolParam {
	converted := make([]openai.ChatCompletionToolParam, 0, len(tools))
	for _, t := range tools {
		converted = append(converted, openai.ChatCompletionToolParam{
			Function: openai.FunctionDefinitionParam{
				Name:        t.Name,
				Description: openai.String(t.Description),
				Parameters:  openai.FunctionParameters(t.Schema),
			},
		})
	}
	return converted
}
