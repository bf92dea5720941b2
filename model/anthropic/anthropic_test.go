package anthropic

import (
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentcouncil/core"
	"github.com/hupe1980/agentcouncil/model"
)

func TestBuildMessages_ToolResultsInUserTurn(t *testing.T) {
	contents := []core.Content{
		core.NewTextContent(core.RoleUser, "search nginx"),
		{Role: core.RoleAssistant, Parts: []core.Part{
			core.FunctionCallPart{FunctionCall: core.FunctionCall{ID: "t1", Name: "web_search", Arguments: `{"query":"nginx"}`}},
		}},
		{Role: core.RoleTool, Parts: []core.Part{
			core.FunctionResponsePart{FunctionResponse: core.FunctionResponse{ID: "t1", Name: "web_search", Error: "quota"}},
		}},
	}

	msgs := buildMessages(contents)
	require.Len(t, msgs, 3)

	assert.Equal(t, anthropic.MessageParamRoleUser, msgs[0].Role)
	assert.Equal(t, anthropic.MessageParamRoleAssistant, msgs[1].Role)
	assert.Equal(t, anthropic.MessageParamRoleUser, msgs[2].Role)
	require.Len(t, msgs[2].Content, 1)
	require.NotNil(t, msgs[2].Content[0].OfToolResult)
	assert.Equal(t, "t1", msgs[2].Content[0].OfToolResult.ToolUseID)
}

func TestBuildParams_InstructionsBecomeSystem(t *testing.T) {
	m := NewModelFromClient(nil)

	params := m.buildParams(model.Request{
		Instructions: "you are helpful",
		MaxTokens:    64,
		Contents:     []core.Content{core.NewTextContent(core.RoleUser, "hi")},
	})

	require.Len(t, params.System, 1)
	assert.Equal(t, "you are helpful", params.System[0].Text)
	assert.Equal(t, int64(64), params.MaxTokens)
}

func TestBuildTools_RequiredFromAnySlice(t *testing.T) {
	tools := buildTools([]model.ToolDefinition{{Function: model.FunctionDefinition{
		Name:        "lookup_docs",
		Description: "docs",
		Parameters:  map[string]any{"type": "object", "properties": map[string]any{}, "required": []any{"topic"}},
	}}})

	require.Len(t, tools, 1)
	require.NotNil(t, tools[0].OfTool)
	assert.Equal(t, []string{"topic"}, tools[0].OfTool.InputSchema.Required)
}
