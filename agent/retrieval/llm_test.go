package retrieval

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tesobe/opey-go/graph/model"
)

func TestLLMGrader(t *testing.T) {
	cases := []struct {
		name     string
		answer   string
		relevant bool
	}{
		{"plain yes", "yes", true},
		{"yes with trailing text", "Yes, this endpoint lists accounts.", true},
		{"uppercase", "YES", true},
		{"plain no", "no", false},
		{"rambling answer fails closed", "It depends on the use case.", false},
		{"empty answer fails closed", "", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			chat := &model.MockChatModel{Responses: []model.ChatOut{{Text: tc.answer}}}
			g := NewLLMGrader(chat)

			relevant, err := g.Grade(context.Background(), "how do I list accounts?", doc("getAccounts"))
			require.NoError(t, err)
			assert.Equal(t, tc.relevant, relevant)
		})
	}
}

func TestLLMGraderPromptContainsDocument(t *testing.T) {
	chat := &model.MockChatModel{Responses: []model.ChatOut{{Text: "yes"}}}
	g := NewLLMGrader(chat)

	d := doc("getAccounts")
	_, err := g.Grade(context.Background(), "list accounts", d)
	require.NoError(t, err)

	call, ok := chat.LastCall()
	require.True(t, ok)
	require.Len(t, call.Messages, 1)
	assert.Contains(t, call.Messages[0].Content, "list accounts")
	assert.Contains(t, call.Messages[0].Content, d.Path)
}

func TestLLMGraderError(t *testing.T) {
	chat := &model.MockChatModel{Err: errors.New("timeout")}
	g := NewLLMGrader(chat)

	_, err := g.Grade(context.Background(), "q", doc("op-1"))
	require.Error(t, err)
}

func TestLLMRewriter(t *testing.T) {
	chat := &model.MockChatModel{Responses: []model.ChatOut{
		{Text: "  Which OBP endpoint returns the accounts of the current user?  "},
	}}
	r := NewLLMRewriter(chat)

	rewritten, err := r.Rewrite(context.Background(), "how do I see my accounts")
	require.NoError(t, err)
	assert.Equal(t, "Which OBP endpoint returns the accounts of the current user?", rewritten)
}

func TestLLMRewriterEmptyResponseKeepsQuestion(t *testing.T) {
	chat := &model.MockChatModel{Responses: []model.ChatOut{{Text: "   "}}}
	r := NewLLMRewriter(chat)

	rewritten, err := r.Rewrite(context.Background(), "original question")
	require.NoError(t, err)
	assert.Equal(t, "original question", rewritten)
}

func TestLLMRewriterError(t *testing.T) {
	chat := &model.MockChatModel{Err: errors.New("rate limit exceeded (429)")}
	r := NewLLMRewriter(chat)

	_, err := r.Rewrite(context.Background(), "q")
	require.Error(t, err)
}
