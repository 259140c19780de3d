package anthropic

import (
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teamchat-ai/mcphost/pkg/llms"
)

func TestProcessMessages(t *testing.T) {
	msgs := []llms.Message{
		llms.MessageFromTextParts(llms.RoleSystem, "be helpful"),
		llms.MessageFromTextParts(llms.RoleHuman, "weather in Paris?"),
		llms.MessageFromParts(llms.RoleAI,
			llms.TextPart("checking"),
			llms.ToolCall{
				ID:   "call1",
				Type: "function",
				FunctionCall: &llms.FunctionCall{
					Name:      "get_weather",
					Arguments: `{"city":"Paris"}`,
				},
			},
		),
		llms.MessageFromToolResponse(llms.RoleTool, llms.ToolCallResponse{
			ToolCallID: "call1",
			Name:       "get_weather",
			Content:    "sunny",
		}),
	}

	sdkMessages, system, err := processMessages(msgs)
	require.NoError(t, err)
	assert.Equal(t, "be helpful", system)

	require.Len(t, sdkMessages, 3)
	assert.Equal(t, anthropic.MessageParamRoleUser, sdkMessages[0].Role)
	assert.Equal(t, anthropic.MessageParamRoleAssistant, sdkMessages[1].Role)
	require.Len(t, sdkMessages[1].Content, 2)
	// tool results ride back inside a user message
	assert.Equal(t, anthropic.MessageParamRoleUser, sdkMessages[2].Role)
	require.Len(t, sdkMessages[2].Content, 1)
}

func TestProcessMessages_MultipleSystemPrompts(t *testing.T) {
	msgs := []llms.Message{
		llms.MessageFromTextParts(llms.RoleSystem, "first"),
		llms.MessageFromTextParts(llms.RoleSystem, "second"),
		llms.MessageFromTextParts(llms.RoleHuman, "hi"),
	}

	_, system, err := processMessages(msgs)
	require.NoError(t, err)
	assert.Equal(t, "first\nsecond", system)
}

func TestProcessMessages_InvalidToolCallArguments(t *testing.T) {
	msgs := []llms.Message{
		llms.MessageFromToolCalls(llms.RoleAI, llms.ToolCall{
			ID:   "call1",
			Type: "function",
			FunctionCall: &llms.FunctionCall{
				Name:      "get_weather",
				Arguments: "not json",
			},
		}),
	}

	_, _, err := processMessages(msgs)
	require.Error(t, err)
}

func TestToTools(t *testing.T) {
	tools := []llms.Tool{
		{
			Type: "function",
			Function: &llms.FunctionDefinition{
				Name:        "get_weather",
				Description: "current weather",
				Parameters: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"city": map[string]any{"type": "string"},
					},
					"required": []any{"city"},
				},
			},
		},
		{Type: "function"},
	}

	sdkTools := toTools(tools)
	// the tool without a function definition is dropped
	require.Len(t, sdkTools, 1)
	p := sdkTools[0].OfTool
	require.NotNil(t, p)
	assert.Equal(t, "get_weather", p.Name)
	assert.Equal(t, []string{"city"}, p.InputSchema.Required)
	assert.Contains(t, p.InputSchema.Properties, "city")
}

func TestToTools_Empty(t *testing.T) {
	assert.Nil(t, toTools(nil))
}

func TestAsStringSlice(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, asStringSlice([]string{"a", "b"}))
	assert.Equal(t, []string{"a"}, asStringSlice([]any{"a", 1}))
	assert.Nil(t, asStringSlice("a"))
}
