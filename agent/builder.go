package agent

import (
	"context"
	"time"

	"github.com/tesobe/opey-go/graph"
	"github.com/tesobe/opey-go/graph/emit"
	"github.com/tesobe/opey-go/graph/model"
	"github.com/tesobe/opey-go/graph/store"
	"github.com/tesobe/opey-go/graph/tool"
)

// DefaultTokenLimit is the token count at which the transcript is
// summarized.
const DefaultTokenLimit = 50000

// DefaultMaxSteps bounds the number of nodes executed in one turn.
const DefaultMaxSteps = 25

// Agent is a fully assembled conversational assistant: a compiled
// workflow graph plus the tool registry and cancellation coordinator it
// was built with.
//
// Create one with Builder. An Agent is safe for concurrent use across
// distinct threads; turns for the same thread must be serialized by the
// caller.
type Agent struct {
	engine   *graph.Engine[State]
	store    store.Store[State]
	registry *tool.Registry
	cancels  *CancelCoordinator
}

// Builder assembles an Agent step by step.
//
// Example:
//
//	agent, err := agent.NewBuilder().
//	    WithModel(chat).
//	    WithStore(st).
//	    WithTools(retrieveTool, obpTool).
//	    MarkSensitive("obp_requests").
//	    Build()
type Builder struct {
	chat         model.ChatModel
	st           store.Store[State]
	emitter      emit.Emitter
	metrics      *graph.Metrics
	registry     *tool.Registry
	systemPrompt string
	extraPrompt  []string
	tokenLimit   int
	maxSteps     int
	cancelTTL    time.Duration
	summarize    bool
	review       bool
	err          error
}

// NewBuilder creates a Builder with summarization and human review
// enabled and default limits.
func NewBuilder() *Builder {
	return &Builder{
		registry:   tool.NewRegistry(),
		tokenLimit: DefaultTokenLimit,
		maxSteps:   DefaultMaxSteps,
		cancelTTL:  DefaultCancelTTL,
		summarize:  true,
		review:     true,
	}
}

// WithModel sets the chat model used by the reasoning and summarization
// nodes. Required.
func (b *Builder) WithModel(chat model.ChatModel) *Builder {
	b.chat = chat
	return b
}

// WithStore sets the checkpoint store. Required.
func (b *Builder) WithStore(st store.Store[State]) *Builder {
	b.st = st
	return b
}

// WithEmitter sets the observability event receiver. Optional.
func (b *Builder) WithEmitter(e emit.Emitter) *Builder {
	b.emitter = e
	return b
}

// WithMetrics attaches Prometheus metrics collection. Optional.
func (b *Builder) WithMetrics(m *graph.Metrics) *Builder {
	b.metrics = m
	return b
}

// WithTools registers tools the model may call. Registration order
// determines the order specs are presented to the model.
func (b *Builder) WithTools(tools ...tool.Tool) *Builder {
	for _, t := range tools {
		if err := b.registry.Register(t); err != nil && b.err == nil {
			b.err = err
		}
	}
	return b
}

// MarkSensitive flags tool names as requiring human review before
// execution.
func (b *Builder) MarkSensitive(names ...string) *Builder {
	b.registry.MarkSensitive(names...)
	return b
}

// WithSystemPrompt replaces the default system prompt.
func (b *Builder) WithSystemPrompt(prompt string) *Builder {
	b.systemPrompt = prompt
	return b
}

// AddToSystemPrompt appends an extra instruction block to the system
// prompt, keeping the base prompt intact.
func (b *Builder) AddToSystemPrompt(extra string) *Builder {
	if extra != "" {
		b.extraPrompt = append(b.extraPrompt, extra)
	}
	return b
}

// WithTokenLimit overrides the summarization trigger. A non-positive
// limit disables summarization.
func (b *Builder) WithTokenLimit(limit int) *Builder {
	b.tokenLimit = limit
	if limit <= 0 {
		b.summarize = false
	}
	return b
}

// WithMaxSteps overrides the per-turn step limit.
func (b *Builder) WithMaxSteps(steps int) *Builder {
	b.maxSteps = steps
	return b
}

// WithCancelTTL overrides how long unconsumed cancellation flags
// survive.
func (b *Builder) WithCancelTTL(ttl time.Duration) *Builder {
	b.cancelTTL = ttl
	return b
}

// DisableHumanReview removes the review interrupt point: sensitive tool
// calls execute without approval. Intended for trusted automation, not
// interactive use.
func (b *Builder) DisableHumanReview() *Builder {
	b.review = false
	return b
}

// DisableSummarization removes the summarization node; the transcript
// grows unbounded.
func (b *Builder) DisableSummarization() *Builder {
	b.summarize = false
	return b
}

// Build assembles and compiles the workflow graph.
//
// The graph starts at the reasoning node. Its router fans out to human
// review (pending sensitive call), tool dispatch (pending calls),
// summarization (token limit reached) or the end of the turn. Review
// passes through to tool dispatch; tools loop back to reasoning;
// summarization ends the turn.
func (b *Builder) Build() (*Agent, error) {
	if b.err != nil {
		return nil, b.err
	}
	if b.chat == nil {
		return nil, &graph.EngineError{Message: "chat model is required", Code: "MISSING_MODEL"}
	}
	if b.st == nil {
		return nil, &graph.EngineError{Message: "checkpoint store is required", Code: "MISSING_STORE"}
	}

	prompt := b.systemPrompt
	if prompt == "" {
		prompt = defaultSystemPrompt
	}
	for _, extra := range b.extraPrompt {
		prompt += "\n\n" + extra
	}

	cancels := NewCancelCoordinator(b.cancelTTL)

	e := graph.New(Reduce, b.st, b.emitter, graph.Options{MaxSteps: b.maxSteps})
	if err := e.Add(NodeOpey, ReasoningNode(b.chat, b.registry, prompt)); err != nil {
		return nil, err
	}
	if err := e.Add(NodeTools, ToolsNode(b.registry)); err != nil {
		return nil, err
	}

	targets := []string{NodeTools, graph.End}
	if b.review {
		if err := e.Add(NodeHumanReview, HumanReviewNode()); err != nil {
			return nil, err
		}
		if err := e.Connect(NodeHumanReview, NodeTools); err != nil {
			return nil, err
		}
		e.InterruptBefore(NodeHumanReview)
		targets = append(targets, NodeHumanReview)
	}
	if b.summarize {
		if err := e.Add(NodeSummarize, SummarizeNode(b.chat)); err != nil {
			return nil, err
		}
		if err := e.Connect(NodeSummarize, graph.End); err != nil {
			return nil, err
		}
		targets = append(targets, NodeSummarize)
	}

	tokenLimit := b.tokenLimit
	if !b.summarize {
		tokenLimit = 0
	}
	review := b.review
	registry := b.registry
	router := Router(registry, tokenLimit)
	if err := e.Route(NodeOpey, func(s State) string {
		next := router(s)
		if next == NodeHumanReview && !review {
			return NodeTools
		}
		return next
	}, targets...); err != nil {
		return nil, err
	}

	if err := e.Connect(NodeTools, NodeOpey); err != nil {
		return nil, err
	}
	if err := e.StartAt(NodeOpey); err != nil {
		return nil, err
	}
	e.SetGuard(cancels.Guard())
	if b.metrics != nil {
		e.SetMetrics(b.metrics)
	}
	if err := e.Compile(); err != nil {
		return nil, err
	}

	return &Agent{
		engine:   e,
		store:    b.st,
		registry: registry,
		cancels:  cancels,
	}, nil
}

// Send runs one conversation turn: the text is appended as a human
// message and the workflow executes until it completes or suspends for
// review.
func (a *Agent) Send(ctx context.Context, threadID, text string) (graph.Outcome[State], error) {
	return a.engine.Run(ctx, threadID, State{Messages: []Message{HumanMessage(text)}})
}

// Cancel flags the thread's in-flight turn for cooperative
// cancellation. It takes effect at the next node boundary.
func (a *Agent) Cancel(threadID string) {
	a.cancels.Request(threadID)
}

// Cancels exposes the cancellation coordinator, e.g. to start the
// background sweeper.
func (a *Agent) Cancels() *CancelCoordinator {
	return a.cancels
}

// Tools exposes the tool registry the agent was built with.
func (a *Agent) Tools() *tool.Registry {
	return a.registry
}

// State returns the latest checkpointed state for a thread.
func (a *Agent) State(ctx context.Context, threadID string) (State, error) {
	cp, err := a.store.LoadLatest(ctx, threadID)
	if err != nil {
		return State{}, err
	}
	return cp.State, nil
}
