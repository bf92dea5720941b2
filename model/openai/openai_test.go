package openai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentcouncil/core"
	"github.com/hupe1980/agentcouncil/model"
)

func TestBuildMessages_ToolResponsesFollowCalls(t *testing.T) {
	req := model.Request{
		Instructions: "be brief",
		Contents: []core.Content{
			core.NewTextContent(core.RoleUser, "how much is 6*7"),
			{Role: core.RoleAssistant, Parts: []core.Part{
				core.FunctionCallPart{FunctionCall: core.FunctionCall{ID: "c1", Name: "calculate", Arguments: `{"expression":"6*7"}`}},
			}},
			{Role: core.RoleTool, Parts: []core.Part{
				core.FunctionResponsePart{FunctionResponse: core.FunctionResponse{ID: "c1", Name: "calculate", Response: map[string]any{"value": 42}}},
			}},
		},
	}

	msgs := buildMessages(req)
	require.Len(t, msgs, 4)

	assert.NotNil(t, msgs[0].OfSystem)
	assert.NotNil(t, msgs[1].OfUser)
	require.NotNil(t, msgs[2].OfAssistant)
	assert.Len(t, msgs[2].OfAssistant.ToolCalls, 1)
	require.NotNil(t, msgs[3].OfTool)
	assert.Equal(t, "c1", msgs[3].OfTool.ToolCallID)
}

func TestBuildParams_RequestOverrides(t *testing.T) {
	m := NewModelFromClient(nil, func(o *Options) { o.Model = "gpt-4o" })

	params := m.buildParams(model.Request{
		Temperature: model.Float(0.1),
		MaxTokens:   128,
		Tools: []model.ToolDefinition{{Type: "function", Function: model.FunctionDefinition{
			Name: "web_search", Parameters: map[string]any{"type": "object"},
		}}},
	}, nil)

	assert.Equal(t, 0.1, params.Temperature.Value)
	assert.Equal(t, int64(128), params.MaxCompletionTokens.Value)
	require.Len(t, params.Tools, 1)
	assert.Equal(t, "web_search", params.Tools[0].Function.Name)
	assert.Equal(t, "openai", m.Info().Provider)
}

func TestFinalParts_OrderedByIndex(t *testing.T) {
	parts := finalParts("", map[int64]*aggCall{
		1: {id: "b", name: "second"},
		0: {id: "a", name: "first"},
	})

	require.Len(t, parts, 2)
	assert.Equal(t, "first", parts[0].(core.FunctionCallPart).FunctionCall.Name)
	assert.Equal(t, "second", parts[1].(core.FunctionCallPart).FunctionCall.Name)
}
