package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tesobe/opey-go/graph"
	"github.com/tesobe/opey-go/graph/model"
	"github.com/tesobe/opey-go/graph/tool"
)

// defaultSystemPrompt is the base instruction set for the assistant.
const defaultSystemPrompt = `You are Opey, a helpful assistant for the Open Bank Project API.
You answer questions about banking APIs, look up endpoint documentation,
and perform API requests on the user's behalf when asked.
Prefer retrieving endpoint documentation before answering questions about
specific endpoints. Be concise and accurate.`

// summaryPreamble introduces the rolling summary when it is injected as
// model context.
const summaryPreamble = "Summary of the conversation so far: "

// ReasoningNode calls the chat model with the transcript, the system
// prompt and the bound tool specs, and appends the model's response.
//
// Token accounting prefers the provider-reported usage; when the
// provider reports nothing the node approximates at four characters per
// token so the summarization trigger still fires on providers without
// usage metadata.
func ReasoningNode(chat model.ChatModel, registry *tool.Registry, systemPrompt string) graph.NodeFunc[State] {
	if systemPrompt == "" {
		systemPrompt = defaultSystemPrompt
	}
	return func(ctx context.Context, s State) graph.NodeResult[State] {
		messages := buildModelMessages(systemPrompt, s)

		var specs []model.ToolSpec
		if registry != nil {
			specs = registry.Specs()
		}

		out, err := chat.Chat(ctx, messages, specs)
		if err != nil {
			return graph.NodeResult[State]{Err: &graph.NodeError{
				Message: "chat model call failed",
				Code:    "MODEL_CALL_FAILED",
				NodeID:  NodeOpey,
				Cause:   err,
			}}
		}

		tokens := out.Usage.Total()
		if !out.Usage.Reported() {
			tokens = approximateTokens(messages, out.Text)
		}

		return graph.NodeResult[State]{Delta: State{
			Messages:    []Message{AIMessage(out.Text, out.ToolCalls...)},
			TotalTokens: tokens,
		}}
	}
}

// buildModelMessages converts the conversation state into the provider
// message shape: system prompt first, the rolling summary (when present)
// as a second system message, then the transcript.
func buildModelMessages(systemPrompt string, s State) []model.Message {
	messages := make([]model.Message, 0, len(s.Messages)+2)
	messages = append(messages, model.Message{Role: model.RoleSystem, Content: systemPrompt})
	if s.Summary != "" {
		messages = append(messages, model.Message{
			Role:    model.RoleSystem,
			Content: summaryPreamble + s.Summary,
		})
	}
	for _, msg := range s.Messages {
		messages = append(messages, toModelMessage(msg))
	}
	return messages
}

// toModelMessage maps a transcript entry to the provider message shape.
func toModelMessage(msg Message) model.Message {
	switch msg.Role {
	case RoleAI:
		return model.Message{
			Role:      model.RoleAssistant,
			Content:   msg.Content,
			ToolCalls: msg.ToolCalls,
		}
	case RoleTool:
		return model.Message{
			Role:       model.RoleTool,
			Content:    msg.Content,
			ToolCallID: msg.ToolCallID,
		}
	default:
		return model.Message{Role: model.RoleUser, Content: msg.Content}
	}
}

// approximateTokens estimates token usage at four characters per token
// when the provider reports no usage metadata.
func approximateTokens(messages []model.Message, response string) int {
	chars := len(response)
	for _, msg := range messages {
		chars += len(msg.Content)
	}
	return chars / 4
}

// ToolsNode executes the pending tool calls of the latest AI message in
// the order the model issued them and appends one tool message per call.
//
// A failing tool does not abort the turn: the error becomes a tool
// message with an error status, and the model decides how to react on
// the next reasoning step. Unknown tool names are handled the same way.
func ToolsNode(registry *tool.Registry) graph.NodeFunc[State] {
	return func(ctx context.Context, s State) graph.NodeResult[State] {
		pending := s.PendingToolCalls()
		if len(pending) == 0 {
			return graph.NodeResult[State]{}
		}

		results := make([]Message, 0, len(pending))
		for _, tc := range pending {
			results = append(results, dispatch(ctx, registry, tc))
		}
		return graph.NodeResult[State]{Delta: State{Messages: results}}
	}
}

// dispatch runs a single tool call and folds any failure into the
// resulting tool message.
func dispatch(ctx context.Context, registry *tool.Registry, tc model.ToolCall) Message {
	impl, ok := registry.Get(tc.Name)
	if !ok {
		return ToolErrorMessage(tc.ID, "unknown tool: "+tc.Name)
	}

	output, err := impl.Call(ctx, tc.Input)
	if err != nil {
		return ToolErrorMessage(tc.ID, fmt.Sprintf("tool %s failed: %v", tc.Name, err))
	}

	encoded, err := json.Marshal(output)
	if err != nil {
		return ToolErrorMessage(tc.ID, fmt.Sprintf("tool %s returned unencodable output: %v", tc.Name, err))
	}
	return ToolMessage(tc.ID, string(encoded))
}

// summarizePrompt instructs the model to compress the transcript.
const summarizePrompt = `Compress the conversation below into a concise summary that preserves
every fact, decision and open request needed to continue the conversation.
If an existing summary is provided, extend it rather than restating it.`

// SummarizeNode compresses the transcript into the rolling summary and
// resets the token counter.
//
// The full transcript stays in the checkpoint history; only the model's
// working context shrinks. The counter reset means the next
// summarization triggers after another full token budget of new
// conversation.
func SummarizeNode(chat model.ChatModel) graph.NodeFunc[State] {
	return func(ctx context.Context, s State) graph.NodeResult[State] {
		var sb strings.Builder
		sb.WriteString(summarizePrompt)
		if s.Summary != "" {
			sb.WriteString("\n\nExisting summary:\n")
			sb.WriteString(s.Summary)
		}
		sb.WriteString("\n\nConversation:\n")
		for _, msg := range s.Messages {
			sb.WriteString(msg.Role)
			sb.WriteString(": ")
			sb.WriteString(msg.Content)
			sb.WriteString("\n")
		}

		out, err := chat.Chat(ctx, []model.Message{
			{Role: model.RoleUser, Content: sb.String()},
		}, nil)
		if err != nil {
			return graph.NodeResult[State]{Err: &graph.NodeError{
				Message: "summarization call failed",
				Code:    "MODEL_CALL_FAILED",
				NodeID:  NodeSummarize,
				Cause:   err,
			}}
		}

		return graph.NodeResult[State]{Delta: State{
			TotalTokens: -s.TotalTokens,
			Summary:     out.Text,
		}}
	}
}

// HumanReviewNode is the pass-through marker at the review interrupt
// point. The engine suspends before it; by the time it runs, the
// reviewer has already approved, so it simply lets execution continue to
// tool dispatch.
func HumanReviewNode() graph.NodeFunc[State] {
	return func(ctx context.Context, s State) graph.NodeResult[State] {
		return graph.NodeResult[State]{}
	}
}
