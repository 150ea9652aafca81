package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tesobe/opey-go/graph"
	"github.com/tesobe/opey-go/graph/model"
	"github.com/tesobe/opey-go/graph/tool"
)

func testRegistry(t *testing.T) *tool.Registry {
	t.Helper()
	reg := tool.NewRegistry()
	require.NoError(t, reg.Register(&tool.MockTool{ToolName: "retrieve_endpoints"}))
	require.NoError(t, reg.Register(&tool.MockTool{ToolName: "obp_requests"}))
	reg.MarkSensitive("obp_requests")
	return reg
}

func TestRouterToolDispatch(t *testing.T) {
	route := Router(testRegistry(t), DefaultTokenLimit)

	s := State{Messages: []Message{
		AIMessage("", model.ToolCall{ID: "call_1", Name: "retrieve_endpoints"}),
	}}
	assert.Equal(t, NodeTools, route(s))
}

func TestRouterSensitiveCallGoesToReview(t *testing.T) {
	route := Router(testRegistry(t), DefaultTokenLimit)

	t.Run("single sensitive call", func(t *testing.T) {
		s := State{Messages: []Message{
			AIMessage("", model.ToolCall{ID: "call_1", Name: "obp_requests"}),
		}}
		assert.Equal(t, NodeHumanReview, route(s))
	})

	t.Run("mixed batch is held entirely", func(t *testing.T) {
		s := State{Messages: []Message{
			AIMessage("",
				model.ToolCall{ID: "call_1", Name: "retrieve_endpoints"},
				model.ToolCall{ID: "call_2", Name: "obp_requests"},
			),
		}}
		assert.Equal(t, NodeHumanReview, route(s))
	})

	t.Run("answered sensitive call no longer gates", func(t *testing.T) {
		s := State{Messages: []Message{
			AIMessage("", model.ToolCall{ID: "call_1", Name: "obp_requests"}),
			ToolMessage("call_1", `{"status_code":200}`),
		}}
		// Pending calls resolved; nothing left to review or dispatch.
		assert.Equal(t, graph.End, route(s))
	})
}

func TestRouterSummarizationTrigger(t *testing.T) {
	route := Router(testRegistry(t), 50000)

	t.Run("below limit ends turn", func(t *testing.T) {
		s := State{
			Messages:    []Message{AIMessage("done")},
			TotalTokens: 49999,
		}
		assert.Equal(t, graph.End, route(s))
	})

	t.Run("at limit summarizes", func(t *testing.T) {
		s := State{
			Messages:    []Message{AIMessage("done")},
			TotalTokens: 50000,
		}
		assert.Equal(t, NodeSummarize, route(s))
	})

	t.Run("above limit summarizes", func(t *testing.T) {
		s := State{
			Messages:    []Message{AIMessage("done")},
			TotalTokens: 50001,
		}
		assert.Equal(t, NodeSummarize, route(s))
	})

	t.Run("pending tools outrank summarization", func(t *testing.T) {
		s := State{
			Messages: []Message{
				AIMessage("", model.ToolCall{ID: "call_1", Name: "retrieve_endpoints"}),
			},
			TotalTokens: 60000,
		}
		assert.Equal(t, NodeTools, route(s))
	})
}

func TestRouterDisabledSummarization(t *testing.T) {
	route := Router(testRegistry(t), 0)

	s := State{
		Messages:    []Message{AIMessage("done")},
		TotalTokens: 1 << 20,
	}
	assert.Equal(t, graph.End, route(s))
}
