package retrieval

import (
	"context"
	"fmt"

	"github.com/tesobe/opey-go/graph/model"
)

// ToolName is the name the retrieval tool is registered under.
const ToolName = "retrieve_endpoints"

// Tool adapts a Workflow to the agent's tool interface so the model can
// search endpoint documentation on demand.
type Tool struct {
	workflow *Workflow
}

// NewTool wraps a retrieval workflow as a callable tool.
func NewTool(workflow *Workflow) *Tool {
	return &Tool{workflow: workflow}
}

// Name implements tool.Tool.
func (t *Tool) Name() string {
	return ToolName
}

// Spec implements tool.Tool.
func (t *Tool) Spec() model.ToolSpec {
	return model.ToolSpec{
		Name:        ToolName,
		Description: "Search the API endpoint documentation for endpoints relevant to a natural language question. Use this before answering questions about specific endpoints.",
		Schema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"question": map[string]interface{}{
					"type":        "string",
					"description": "Natural language question about the API",
				},
			},
			"required": []string{"question"},
		},
	}
}

// Call implements tool.Tool. It runs the retrieval workflow and returns
// the relevant documents plus a count, ready for the model to read.
func (t *Tool) Call(ctx context.Context, input map[string]interface{}) (map[string]interface{}, error) {
	question, ok := input["question"].(string)
	if !ok || question == "" {
		return nil, fmt.Errorf("question parameter is required")
	}

	docs, err := t.workflow.Search(ctx, question)
	if err != nil {
		return nil, err
	}

	endpoints := make([]map[string]interface{}, len(docs))
	for i, doc := range docs {
		endpoints[i] = map[string]interface{}{
			"operation_id":  doc.OperationID,
			"method":        doc.Method,
			"path":          doc.Path,
			"documentation": doc.Content,
		}
	}

	return map[string]interface{}{
		"count":     len(docs),
		"endpoints": endpoints,
	}, nil
}
