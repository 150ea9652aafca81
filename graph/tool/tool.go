// Package tool provides executable tools that LLMs can invoke.
package tool

import (
	"context"

	"github.com/tesobe/opey-go/graph/model"
)

// Tool defines the interface for executable tools that LLMs can invoke.
//
// Tools enable LLMs to interact with external systems and perform actions:
//   - Endpoint catalog searches
//   - Live API calls
//   - Database queries
//
// Implementations should:
//   - Validate input parameters
//   - Respect context cancellation and timeouts
//   - Return structured output as map[string]interface{}
//   - Handle errors gracefully with clear error messages
//   - Be idempotent when possible
//
// Example implementation:
//
//	type GlossaryTool struct{}
//
//	func (g *GlossaryTool) Name() string { return "glossary_lookup" }
//
//	func (g *GlossaryTool) Spec() model.ToolSpec {
//	    return model.ToolSpec{
//	        Name:        "glossary_lookup",
//	        Description: "Look up a banking term in the glossary",
//	        Schema: map[string]interface{}{
//	            "type": "object",
//	            "properties": map[string]interface{}{
//	                "term": map[string]interface{}{"type": "string"},
//	            },
//	            "required": []string{"term"},
//	        },
//	    }
//	}
//
//	func (g *GlossaryTool) Call(ctx context.Context, input map[string]interface{}) (map[string]interface{}, error) {
//	    term, ok := input["term"].(string)
//	    if !ok {
//	        return nil, errors.New("term parameter required")
//	    }
//	    // Look up the term...
//	    return map[string]interface{}{"definition": "..."}, nil
//	}
type Tool interface {
	// Name returns the unique identifier for this tool.
	//
	// The name must match the tool name the LLM sees in the bound spec.
	// Names should be lowercase with underscores, following function
	// naming conventions.
	//
	// Examples: "retrieve_endpoints", "obp_requests", "glossary_lookup"
	Name() string

	// Spec returns the tool description and input schema bound to the LLM.
	Spec() model.ToolSpec

	// Call executes the tool with the provided input and returns the result.
	//
	// Parameters:
	//   - ctx: Context for cancellation, timeout, and metadata propagation
	//   - input: Tool parameters as key-value pairs (may be nil for parameterless tools)
	//
	// Returns:
	//   - map[string]interface{}: Tool execution result
	//   - error: Execution errors, validation errors, or context cancellation
	//
	// The input structure should match the Schema defined in Spec().
	//
	// Implementations should:
	//   - Check ctx.Err() before expensive operations
	//   - Validate required input parameters
	//   - Return descriptive errors for invalid inputs
	Call(ctx context.Context, input map[string]interface{}) (map[string]interface{}, error)
}
