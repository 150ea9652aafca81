package retrieval

import (
	"context"
	"fmt"
	"strings"

	"github.com/tesobe/opey-go/graph/model"
)

const gradePrompt = `You are grading whether a piece of API endpoint documentation is
relevant to a user's question. Answer with a single word: "yes" if the
endpoint could help answer the question, "no" otherwise.

Question: %s

Endpoint: %s %s
Documentation:
%s`

// LLMGrader judges document relevance with a binary yes/no model call.
//
// Anything other than an answer starting with "yes" is treated as a
// rejection, so a rambling model response fails closed.
type LLMGrader struct {
	chat model.ChatModel
}

// NewLLMGrader creates a grader backed by the given chat model.
func NewLLMGrader(chat model.ChatModel) *LLMGrader {
	return &LLMGrader{chat: chat}
}

// Grade implements Grader.
func (g *LLMGrader) Grade(ctx context.Context, question string, doc Document) (bool, error) {
	prompt := fmt.Sprintf(gradePrompt, question, doc.Method, doc.Path, doc.Content)
	out, err := g.chat.Chat(ctx, []model.Message{
		{Role: model.RoleUser, Content: prompt},
	}, nil)
	if err != nil {
		return false, err
	}

	answer := strings.ToLower(strings.TrimSpace(out.Text))
	return strings.HasPrefix(answer, "yes"), nil
}

const rewritePrompt = `A search for API endpoint documentation returned too few relevant
results. Rewrite the question below to improve retrieval: use concrete
API terminology, expand abbreviations, and name the resources involved.
Return only the rewritten question, nothing else.

Question: %s`

// LLMRewriter reformulates a query with a model call.
type LLMRewriter struct {
	chat model.ChatModel
}

// NewLLMRewriter creates a rewriter backed by the given chat model.
func NewLLMRewriter(chat model.ChatModel) *LLMRewriter {
	return &LLMRewriter{chat: chat}
}

// Rewrite implements Rewriter. An empty model response keeps the
// original question rather than erasing it.
func (r *LLMRewriter) Rewrite(ctx context.Context, question string) (string, error) {
	out, err := r.chat.Chat(ctx, []model.Message{
		{Role: model.RoleUser, Content: fmt.Sprintf(rewritePrompt, question)},
	}, nil)
	if err != nil {
		return "", err
	}

	rewritten := strings.TrimSpace(out.Text)
	if rewritten == "" {
		return question, nil
	}
	return rewritten, nil
}
