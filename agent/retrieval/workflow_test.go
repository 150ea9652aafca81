package retrieval

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tesobe/opey-go/graph"
)

func doc(id string) Document {
	return Document{
		OperationID: id,
		Method:      "GET",
		Path:        "/obp/v5.1.0/" + id,
		Content:     "documentation for " + id,
	}
}

// stubRetriever returns scripted batches, repeating the last one.
type stubRetriever struct {
	batches [][]Document
	queries []string
	err     error
}

func (s *stubRetriever) Retrieve(ctx context.Context, query string, limit int) ([]Document, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.queries = append(s.queries, query)
	idx := len(s.queries) - 1
	if idx >= len(s.batches) {
		idx = len(s.batches) - 1
	}
	if idx < 0 {
		return nil, nil
	}
	return s.batches[idx], nil
}

// stubGrader accepts the listed operation IDs.
type stubGrader struct {
	accept map[string]bool
	err    error
}

func (s *stubGrader) Grade(ctx context.Context, question string, d Document) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	return s.accept[d.OperationID], nil
}

// stubRewriter appends a marker per rewrite.
type stubRewriter struct {
	calls int
	err   error
}

func (s *stubRewriter) Rewrite(ctx context.Context, question string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.calls++
	return question + " (refined)", nil
}

func acceptAll(ids ...string) map[string]bool {
	m := make(map[string]bool, len(ids))
	for _, id := range ids {
		m[id] = true
	}
	return m
}

func TestWorkflowSingleRoundAboveThreshold(t *testing.T) {
	retriever := &stubRetriever{batches: [][]Document{
		{doc("op-1"), doc("op-2"), doc("op-3"), doc("op-4")},
	}}
	rewriter := &stubRewriter{}

	w, err := NewWorkflow(retriever,
		&stubGrader{accept: acceptAll("op-1", "op-2", "op-3")},
		rewriter, Config{BatchSize: 8, RetryThreshold: 2, MaxRetries: 2}, nil, nil)
	require.NoError(t, err)

	docs, err := w.Search(context.Background(), "list accounts")
	require.NoError(t, err)

	// Three relevant documents beat the threshold of two: no retry.
	require.Len(t, docs, 3)
	assert.Equal(t, 0, rewriter.calls)
	assert.Len(t, retriever.queries, 1)
}

func TestWorkflowRetriesWhenAtThreshold(t *testing.T) {
	retriever := &stubRetriever{batches: [][]Document{
		{doc("op-1"), doc("op-2"), doc("op-9")},
		{doc("op-1"), doc("op-3"), doc("op-4")},
	}}
	rewriter := &stubRewriter{}

	w, err := NewWorkflow(retriever,
		&stubGrader{accept: acceptAll("op-1", "op-2", "op-3", "op-4")},
		rewriter, Config{BatchSize: 8, RetryThreshold: 2, MaxRetries: 2}, nil, nil)
	require.NoError(t, err)

	docs, err := w.Search(context.Background(), "list accounts")
	require.NoError(t, err)

	// Round one found exactly the threshold count, triggering one
	// rewrite; round two pushed the total past it.
	assert.Equal(t, 1, rewriter.calls)
	require.Len(t, retriever.queries, 2)
	assert.Equal(t, "list accounts", retriever.queries[0])
	assert.Equal(t, "list accounts (refined)", retriever.queries[1])

	// op-1 appears in both rounds but only once in the result.
	ids := make([]string, len(docs))
	for i, d := range docs {
		ids[i] = d.OperationID
	}
	assert.Equal(t, []string{"op-1", "op-2", "op-3", "op-4"}, ids)
}

func TestWorkflowRetryBudgetExhausted(t *testing.T) {
	retriever := &stubRetriever{batches: [][]Document{
		{doc("op-1"), doc("op-9")},
	}}
	rewriter := &stubRewriter{}

	w, err := NewWorkflow(retriever,
		&stubGrader{accept: acceptAll("op-1")},
		rewriter, Config{BatchSize: 8, RetryThreshold: 2, MaxRetries: 2}, nil, nil)
	require.NoError(t, err)

	docs, err := w.Search(context.Background(), "obscure question")
	require.NoError(t, err)

	// Every round stays at or below the threshold; two rewrites are
	// spent, then the thin result is returned as-is.
	assert.Equal(t, 2, rewriter.calls)
	assert.Len(t, retriever.queries, 3)
	require.Len(t, docs, 1)
	assert.Equal(t, "op-1", docs[0].OperationID)
}

func TestWorkflowNoRetriesConfigured(t *testing.T) {
	retriever := &stubRetriever{batches: [][]Document{{doc("op-1")}}}

	w, err := NewWorkflow(retriever,
		&stubGrader{accept: acceptAll("op-1")},
		nil, Config{BatchSize: 8, RetryThreshold: 2, MaxRetries: 0}, nil, nil)
	require.NoError(t, err)

	docs, err := w.Search(context.Background(), "anything")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Len(t, retriever.queries, 1)
}

func TestWorkflowEmptyCatalog(t *testing.T) {
	retriever := &stubRetriever{}
	rewriter := &stubRewriter{}

	w, err := NewWorkflow(retriever, &stubGrader{}, rewriter,
		Config{BatchSize: 8, RetryThreshold: 2, MaxRetries: 2}, nil, nil)
	require.NoError(t, err)

	docs, err := w.Search(context.Background(), "anything")
	require.NoError(t, err)
	assert.Empty(t, docs)
	assert.Equal(t, 2, rewriter.calls)
}

func TestWorkflowErrorsSurface(t *testing.T) {
	t.Run("retriever error", func(t *testing.T) {
		w, err := NewWorkflow(
			&stubRetriever{err: errors.New("vector store down")},
			&stubGrader{}, &stubRewriter{}, DefaultConfig(), nil, nil)
		require.NoError(t, err)

		_, err = w.Search(context.Background(), "q")
		require.Error(t, err)
		var nodeErr *graph.NodeError
		require.ErrorAs(t, err, &nodeErr)
		assert.Equal(t, NodeRetrieve, nodeErr.NodeID)
	})

	t.Run("grader error", func(t *testing.T) {
		w, err := NewWorkflow(
			&stubRetriever{batches: [][]Document{{doc("op-1")}}},
			&stubGrader{err: errors.New("model unavailable")},
			&stubRewriter{}, DefaultConfig(), nil, nil)
		require.NoError(t, err)

		_, err = w.Search(context.Background(), "q")
		require.Error(t, err)
	})

	t.Run("rewriter error", func(t *testing.T) {
		w, err := NewWorkflow(
			&stubRetriever{batches: [][]Document{{doc("op-9")}}},
			&stubGrader{},
			&stubRewriter{err: errors.New("rewrite failed")},
			DefaultConfig(), nil, nil)
		require.NoError(t, err)

		_, err = w.Search(context.Background(), "q")
		require.Error(t, err)
	})
}

func TestWorkflowConstructionValidation(t *testing.T) {
	t.Run("missing retriever", func(t *testing.T) {
		_, err := NewWorkflow(nil, &stubGrader{}, &stubRewriter{}, DefaultConfig(), nil, nil)
		require.Error(t, err)
	})

	t.Run("missing grader", func(t *testing.T) {
		_, err := NewWorkflow(&stubRetriever{}, nil, &stubRewriter{}, DefaultConfig(), nil, nil)
		require.Error(t, err)
	})

	t.Run("missing rewriter with retries enabled", func(t *testing.T) {
		_, err := NewWorkflow(&stubRetriever{}, &stubGrader{}, nil, DefaultConfig(), nil, nil)
		require.Error(t, err)
	})
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 8, cfg.BatchSize)
	assert.Equal(t, 2, cfg.RetryThreshold)
	assert.Equal(t, 2, cfg.MaxRetries)
}

func TestDedupePreservesOrder(t *testing.T) {
	base := []Document{doc("op-1"), doc("op-2")}
	merged := dedupe(base, []Document{doc("op-2"), doc("op-3"), doc("op-1")})

	ids := make([]string, len(merged))
	for i, d := range merged {
		ids[i] = d.OperationID
	}
	assert.Equal(t, []string{"op-1", "op-2", "op-3"}, ids)
}
