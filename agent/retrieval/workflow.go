package retrieval

import (
	"context"

	"github.com/google/uuid"

	"github.com/tesobe/opey-go/graph"
	"github.com/tesobe/opey-go/graph/emit"
	"github.com/tesobe/opey-go/graph/store"
)

// Workflow node IDs.
const (
	// NodeRetrieve fetches a batch of candidate documents.
	NodeRetrieve = "retrieve"

	// NodeGrade filters candidates for relevance to the question.
	NodeGrade = "grade_documents"

	// NodeTransformQuery rewrites the question for a retry round.
	NodeTransformQuery = "transform_query"
)

// Retriever fetches candidate documents for a query.
type Retriever interface {
	// Retrieve returns up to limit documents ranked by relevance to the
	// query.
	Retrieve(ctx context.Context, query string, limit int) ([]Document, error)
}

// Grader judges whether a single document is relevant to a question.
type Grader interface {
	Grade(ctx context.Context, question string, doc Document) (bool, error)
}

// Rewriter reformulates a question that retrieved too little.
type Rewriter interface {
	Rewrite(ctx context.Context, question string) (string, error)
}

// State is the working state of one retrieval run.
type State struct {
	// Question is the current query text; rewritten on retries.
	Question string `json:"question"`

	// OriginalQuestion is the user's query as first asked. Rewrites see
	// it so reformulations do not drift from the intent.
	OriginalQuestion string `json:"original_question"`

	// Candidates is the latest retrieved batch, pre-grading.
	Candidates []Document `json:"candidates,omitempty"`

	// Relevant accumulates graded documents across rounds, deduplicated
	// by operation ID.
	Relevant []Document `json:"relevant,omitempty"`

	// TotalRetries counts the query rewrites performed so far.
	TotalRetries int `json:"total_retries"`
}

// reduce merges a retrieval delta: the question and candidate batch are
// replaced when provided, relevant documents accumulate with
// deduplication, and the retry counter adds up.
func reduce(prev, delta State) State {
	next := prev
	if delta.Question != "" {
		next.Question = delta.Question
	}
	if delta.OriginalQuestion != "" {
		next.OriginalQuestion = delta.OriginalQuestion
	}
	if len(delta.Candidates) > 0 {
		next.Candidates = delta.Candidates
	}
	if len(delta.Relevant) > 0 {
		next.Relevant = dedupe(prev.Relevant, delta.Relevant)
	}
	next.TotalRetries = prev.TotalRetries + delta.TotalRetries
	return next
}

// dedupe appends additions to base, skipping operation IDs already
// present. Order of first appearance is preserved.
func dedupe(base, additions []Document) []Document {
	seen := make(map[string]bool, len(base))
	for _, doc := range base {
		seen[doc.OperationID] = true
	}

	merged := append([]Document{}, base...)
	for _, doc := range additions {
		if seen[doc.OperationID] {
			continue
		}
		seen[doc.OperationID] = true
		merged = append(merged, doc)
	}
	return merged
}

// Workflow is the compiled retrieval sub-graph.
//
// Each Search call runs retrieve, grade and decide rounds until enough
// relevant documents accumulate or the retry budget is spent:
//
//	retrieve -> grade_documents -> { transform_query -> retrieve | done }
//
// The workflow keeps its checkpoints in an in-process store under a
// fresh thread ID per run; retrieval rounds are short-lived and not
// resumable across process restarts.
type Workflow struct {
	engine  *graph.Engine[State]
	cfg     Config
	metrics *graph.Metrics
}

// NewWorkflow assembles and compiles the retrieval graph.
//
// Parameters:
//   - retriever: document source (required)
//   - grader: relevance judge (required)
//   - rewriter: query reformulator (required when cfg.MaxRetries > 0)
//   - cfg: workflow bounds; zero BatchSize falls back to the default
//   - emitter: observability event receiver (optional)
//   - metrics: Prometheus collection, records retry rounds (optional)
func NewWorkflow(retriever Retriever, grader Grader, rewriter Rewriter, cfg Config, emitter emit.Emitter, metrics *graph.Metrics) (*Workflow, error) {
	if retriever == nil {
		return nil, &graph.EngineError{Message: "retriever is required", Code: "MISSING_RETRIEVER"}
	}
	if grader == nil {
		return nil, &graph.EngineError{Message: "grader is required", Code: "MISSING_GRADER"}
	}
	cfg = cfg.normalize()
	if rewriter == nil && cfg.MaxRetries > 0 {
		return nil, &graph.EngineError{Message: "rewriter is required when retries are enabled", Code: "MISSING_REWRITER"}
	}

	w := &Workflow{cfg: cfg, metrics: metrics}

	// Worst case per run: (1 + MaxRetries) full rounds of three nodes.
	maxSteps := (cfg.MaxRetries + 1) * 3
	e := graph.New(reduce, store.NewMemStore[State](), emitter, graph.Options{MaxSteps: maxSteps})

	if err := e.Add(NodeRetrieve, w.retrieveNode(retriever)); err != nil {
		return nil, err
	}
	if err := e.Add(NodeGrade, w.gradeNode(grader)); err != nil {
		return nil, err
	}
	if err := e.Add(NodeTransformQuery, w.transformNode(rewriter)); err != nil {
		return nil, err
	}

	if err := e.StartAt(NodeRetrieve); err != nil {
		return nil, err
	}
	if err := e.Connect(NodeRetrieve, NodeGrade); err != nil {
		return nil, err
	}
	if err := e.Route(NodeGrade, w.decide, NodeTransformQuery, graph.End); err != nil {
		return nil, err
	}
	if err := e.Connect(NodeTransformQuery, NodeRetrieve); err != nil {
		return nil, err
	}
	if err := e.Compile(); err != nil {
		return nil, err
	}

	w.engine = e
	return w, nil
}

// Search runs the workflow for a question and returns the relevant
// documents found, deduplicated across retry rounds.
func (w *Workflow) Search(ctx context.Context, question string) ([]Document, error) {
	threadID := "retrieval-" + uuid.NewString()
	out, err := w.engine.Run(ctx, threadID, State{
		Question:         question,
		OriginalQuestion: question,
	})
	if err != nil {
		return nil, err
	}
	return out.State.Relevant, nil
}

// decide routes after grading: retry while the relevant set is at or
// below the threshold and the retry budget remains, otherwise finish.
func (w *Workflow) decide(s State) string {
	if len(s.Relevant) <= w.cfg.RetryThreshold && s.TotalRetries < w.cfg.MaxRetries {
		return NodeTransformQuery
	}
	return graph.End
}

func (w *Workflow) retrieveNode(retriever Retriever) graph.NodeFunc[State] {
	return func(ctx context.Context, s State) graph.NodeResult[State] {
		docs, err := retriever.Retrieve(ctx, s.Question, w.cfg.BatchSize)
		if err != nil {
			return graph.NodeResult[State]{Err: &graph.NodeError{
				Message: "document retrieval failed",
				Code:    "RETRIEVAL_FAILED",
				NodeID:  NodeRetrieve,
				Cause:   err,
			}}
		}
		return graph.NodeResult[State]{Delta: State{Candidates: docs}}
	}
}

func (w *Workflow) gradeNode(grader Grader) graph.NodeFunc[State] {
	return func(ctx context.Context, s State) graph.NodeResult[State] {
		var relevant []Document
		for _, doc := range s.Candidates {
			keep, err := grader.Grade(ctx, s.OriginalQuestion, doc)
			if err != nil {
				return graph.NodeResult[State]{Err: &graph.NodeError{
					Message: "document grading failed",
					Code:    "GRADING_FAILED",
					NodeID:  NodeGrade,
					Cause:   err,
				}}
			}
			if keep {
				relevant = append(relevant, doc)
			}
		}
		return graph.NodeResult[State]{Delta: State{Relevant: relevant}}
	}
}

func (w *Workflow) transformNode(rewriter Rewriter) graph.NodeFunc[State] {
	return func(ctx context.Context, s State) graph.NodeResult[State] {
		rewritten, err := rewriter.Rewrite(ctx, s.Question)
		if err != nil {
			return graph.NodeResult[State]{Err: &graph.NodeError{
				Message: "query rewrite failed",
				Code:    "REWRITE_FAILED",
				NodeID:  NodeTransformQuery,
				Cause:   err,
			}}
		}
		if w.metrics != nil {
			w.metrics.RetrievalRetry()
		}
		return graph.NodeResult[State]{Delta: State{
			Question:     rewritten,
			TotalRetries: 1,
		}}
	}
}
