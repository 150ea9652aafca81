package tool

import (
	"fmt"
	"sync"

	"github.com/tesobe/opey-go/graph/model"
)

// Registry holds the tools available to an agent and tracks which of
// them are sensitive.
//
// Sensitive tools perform privileged side effects (e.g. live API writes)
// and require human approval before execution. The registry only records
// the classification; enforcement happens in the agent's routing.
//
// Registry is safe for concurrent use.
//
// Example usage:
//
//	reg := tool.NewRegistry()
//	if err := reg.Register(retrievalTool); err != nil {
//	    log.Fatal(err)
//	}
//	if err := reg.Register(obpTool); err != nil {
//	    log.Fatal(err)
//	}
//	reg.MarkSensitive("obp_requests")
type Registry struct {
	mu        sync.RWMutex
	tools     map[string]Tool
	order     []string
	sensitive map[string]bool
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{
		tools:     make(map[string]Tool),
		sensitive: make(map[string]bool),
	}
}

// Register adds a tool to the registry.
//
// Returns an error if a tool with the same name is already registered or
// if the tool has an empty name.
func (r *Registry) Register(t Tool) error {
	name := t.Name()
	if name == "" {
		return fmt.Errorf("tool name must not be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("tool %q already registered", name)
	}
	r.tools[name] = t
	r.order = append(r.order, name)
	return nil
}

// MarkSensitive flags the named tools as requiring human approval.
//
// Unknown names are recorded anyway so the classification survives
// re-registration; looking up a never-registered tool still reports it
// sensitive.
func (r *Registry) MarkSensitive(names ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, name := range names {
		r.sensitive[name] = true
	}
}

// IsSensitive reports whether the named tool requires human approval.
func (r *Registry) IsSensitive(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.sensitive[name]
}

// Get returns the tool registered under name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tools[name]
	return t, ok
}

// Specs returns the tool specifications in registration order, ready to
// bind to a ChatModel.
func (r *Registry) Specs() []model.ToolSpec {
	r.mu.RLock()
	defer r.mu.RUnlock()

	specs := make([]model.ToolSpec, 0, len(r.order))
	for _, name := range r.order {
		specs = append(specs, r.tools[name].Spec())
	}
	return specs
}

// Names returns the registered tool names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.tools)
}
