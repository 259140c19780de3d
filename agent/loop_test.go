package agent_test

import (
	"context"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teamchat-ai/mcphost/agent"
	"github.com/teamchat-ai/mcphost/pkg/llms"
	"github.com/teamchat-ai/mcphost/upstream"
)

type fakeModel struct {
	responses []*llms.ContentResponse
	calls     [][]llms.Message
	err       error
}

func (m *fakeModel) GetName() string                    { return "fake-model" }
func (m *fakeModel) GetProviderType() llms.ProviderType { return llms.ProviderOpenAI }

func (m *fakeModel) GenerateContent(_ context.Context, messages []llms.Message, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	m.calls = append(m.calls, append([]llms.Message{}, messages...))
	if m.err != nil {
		return nil, m.err
	}
	if len(m.responses) == 0 {
		return nil, errors.New("fakeModel: no scripted response")
	}
	resp := m.responses[0]
	if len(m.responses) > 1 {
		m.responses = m.responses[1:]
	}
	return resp, nil
}

type invocation struct {
	server string
	tool   string
	args   map[string]any
}

type fakeInvoker struct {
	invocations []invocation
	result      *upstream.Result
	err         error
}

func (i *fakeInvoker) Invoke(_ context.Context, server, tool string, args map[string]any) (*upstream.Result, error) {
	i.invocations = append(i.invocations, invocation{server: server, tool: tool, args: args})
	if i.err != nil {
		return nil, i.err
	}
	return i.result, nil
}

func testRegistry() *upstream.Registry {
	return upstream.BuildRegistry(&upstream.Snapshot{
		Servers: []upstream.ServerTools{
			{
				Server: "weather",
				Tools: []mcp.Tool{
					{Name: "get_weather", Description: "current weather"},
				},
			},
		},
	})
}

func textResponse(text string) *llms.ContentResponse {
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: text, StopReason: "stop"}},
	}
}

func toolCallResponse(id, name, args string) *llms.ContentResponse {
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{
			StopReason: "tool_calls",
			ToolCalls: []llms.ToolCall{{
				ID:   id,
				Type: "function",
				FunctionCall: &llms.FunctionCall{
					Name:      name,
					Arguments: args,
				},
			}},
		}},
	}
}

func noNotify(_ context.Context, _ string) {}

func TestRun_FinalAnswerWithoutTools(t *testing.T) {
	model := &fakeModel{responses: []*llms.ContentResponse{textResponse("it depends")}}
	invoker := &fakeInvoker{}
	loop := agent.NewLoop(model, testRegistry(), invoker, agent.Config{})

	answer, err := loop.Run(context.Background(), nil, "is it raining?", noNotify)
	require.NoError(t, err)
	assert.Equal(t, "it depends", answer)
	assert.Len(t, model.calls, 1)
	assert.Empty(t, invoker.invocations)

	// system prompt first, then the user message
	first := model.calls[0]
	require.Len(t, first, 2)
	assert.Equal(t, llms.RoleSystem, first[0].Role)
	assert.Equal(t, llms.RoleHuman, first[1].Role)
	assert.Equal(t, "is it raining?", first[1].GetContent())
}

func TestRun_ToolCallThenAnswer(t *testing.T) {
	model := &fakeModel{responses: []*llms.ContentResponse{
		toolCallResponse("call1", "get_weather", `{"city": "Paris"}`),
		textResponse("sunny in Paris"),
	}}
	invoker := &fakeInvoker{result: &upstream.Result{Content: "sunny"}}
	var notices []string
	notify := func(_ context.Context, text string) { notices = append(notices, text) }

	loop := agent.NewLoop(model, testRegistry(), invoker, agent.Config{})
	answer, err := loop.Run(context.Background(), nil, "weather in Paris?", notify)
	require.NoError(t, err)
	assert.Equal(t, "sunny in Paris", answer)

	require.Len(t, invoker.invocations, 1)
	assert.Equal(t, "weather", invoker.invocations[0].server)
	assert.Equal(t, "get_weather", invoker.invocations[0].tool)
	assert.Equal(t, map[string]any{"city": "Paris"}, invoker.invocations[0].args)

	// second LLM call sees the assistant tool call and its result
	require.Len(t, model.calls, 2)
	second := model.calls[1]
	require.Len(t, second, 4)
	assert.Equal(t, llms.RoleAI, second[2].Role)
	require.Equal(t, llms.RoleTool, second[3].Role)
	resp, ok := second[3].Parts[0].(llms.ToolCallResponse)
	require.True(t, ok)
	assert.Equal(t, "call1", resp.ToolCallID)
	assert.Equal(t, "sunny", resp.Content)
	assert.False(t, resp.IsError)

	require.NotEmpty(t, notices)
	assert.Contains(t, notices[0], "weather.get_weather")
}

func TestRun_ToolNotFound(t *testing.T) {
	model := &fakeModel{responses: []*llms.ContentResponse{
		toolCallResponse("call1", "no_such_tool", `{}`),
		textResponse("I could not use that tool."),
	}}
	invoker := &fakeInvoker{}
	var notices []string
	notify := func(_ context.Context, text string) { notices = append(notices, text) }

	loop := agent.NewLoop(model, testRegistry(), invoker, agent.Config{})
	answer, err := loop.Run(context.Background(), nil, "hi", notify)
	require.NoError(t, err)
	assert.Equal(t, "I could not use that tool.", answer)
	assert.Empty(t, invoker.invocations)

	require.NotEmpty(t, notices)
	assert.Contains(t, notices[0], "not found")

	second := model.calls[1]
	resp, ok := second[len(second)-1].Parts[0].(llms.ToolCallResponse)
	require.True(t, ok)
	assert.True(t, resp.IsError)
	assert.Contains(t, resp.Content, "not found")
}

func TestRun_ToolError_FedBack(t *testing.T) {
	model := &fakeModel{responses: []*llms.ContentResponse{
		toolCallResponse("call1", "get_weather", `{"city": "Atlantis"}`),
		textResponse("that city does not exist"),
	}}
	invoker := &fakeInvoker{result: &upstream.Result{Content: "city unknown", IsError: true}}
	var notices []string
	notify := func(_ context.Context, text string) { notices = append(notices, text) }

	loop := agent.NewLoop(model, testRegistry(), invoker, agent.Config{})
	answer, err := loop.Run(context.Background(), nil, "weather in Atlantis?", notify)
	require.NoError(t, err)
	assert.Equal(t, "that city does not exist", answer)

	second := model.calls[1]
	resp, ok := second[len(second)-1].Parts[0].(llms.ToolCallResponse)
	require.True(t, ok)
	assert.True(t, resp.IsError)
	assert.Equal(t, "city unknown", resp.Content)

	found := false
	for _, n := range notices {
		if strings.Contains(n, "city unknown") {
			found = true
		}
	}
	assert.True(t, found)
}

func TestRun_MaxTurnsExceeded(t *testing.T) {
	model := &fakeModel{responses: []*llms.ContentResponse{
		toolCallResponse("", "get_weather", `{}`),
	}}
	invoker := &fakeInvoker{result: &upstream.Result{Content: "ok"}}

	loop := agent.NewLoop(model, testRegistry(), invoker, agent.Config{MaxTurns: 2})
	_, err := loop.Run(context.Background(), nil, "loop forever", noNotify)
	require.Error(t, err)
	assert.ErrorIs(t, err, agent.ErrMaxTurnsExceeded)
	assert.Len(t, model.calls, 2)
	assert.Len(t, invoker.invocations, 2)
}

func TestRun_MaxToolCallsExceeded(t *testing.T) {
	model := &fakeModel{responses: []*llms.ContentResponse{
		toolCallResponse("", "get_weather", `{}`),
	}}
	invoker := &fakeInvoker{result: &upstream.Result{Content: "ok"}}

	loop := agent.NewLoop(model, testRegistry(), invoker, agent.Config{MaxTurns: 10, MaxToolCalls: 3})
	_, err := loop.Run(context.Background(), nil, "loop forever", noNotify)
	require.Error(t, err)
	assert.ErrorIs(t, err, agent.ErrMaxToolCallsExceeded)
	assert.Len(t, invoker.invocations, 3)
}

func TestRun_LLMRequestError(t *testing.T) {
	model := &fakeModel{err: errors.New("upstream 500")}
	loop := agent.NewLoop(model, testRegistry(), &fakeInvoker{}, agent.Config{})

	_, err := loop.Run(context.Background(), nil, "hello", noNotify)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LLM request failed")
}

func TestRun_NonJSONArgumentsFallBackToText(t *testing.T) {
	model := &fakeModel{responses: []*llms.ContentResponse{
		toolCallResponse("call1", "get_weather", "Paris please"),
		textResponse("done"),
	}}
	invoker := &fakeInvoker{result: &upstream.Result{Content: "sunny"}}

	loop := agent.NewLoop(model, testRegistry(), invoker, agent.Config{})
	_, err := loop.Run(context.Background(), nil, "weather?", noNotify)
	require.NoError(t, err)
	require.Len(t, invoker.invocations, 1)
	assert.Equal(t, map[string]any{"text": "Paris please"}, invoker.invocations[0].args)

	// the replayed assistant message carries canonical JSON arguments, so
	// strict providers can re-marshal the history
	second := model.calls[1]
	require.Len(t, second, 4)
	call, ok := second[2].Parts[0].(llms.ToolCall)
	require.True(t, ok)
	assert.JSONEq(t, `{"text": "Paris please"}`, call.FunctionCall.Arguments)
}

func TestRun_SequentialOrder(t *testing.T) {
	resp := &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{
			StopReason: "tool_calls",
			ToolCalls: []llms.ToolCall{
				{ID: "a", Type: "function", FunctionCall: &llms.FunctionCall{Name: "get_weather", Arguments: `{"city": "Paris"}`}},
				{ID: "b", Type: "function", FunctionCall: &llms.FunctionCall{Name: "get_weather", Arguments: `{"city": "Oslo"}`}},
			},
		}},
	}
	model := &fakeModel{responses: []*llms.ContentResponse{resp, textResponse("done")}}
	invoker := &fakeInvoker{result: &upstream.Result{Content: "ok"}}

	loop := agent.NewLoop(model, testRegistry(), invoker, agent.Config{})
	_, err := loop.Run(context.Background(), nil, "compare", noNotify)
	require.NoError(t, err)

	require.Len(t, invoker.invocations, 2)
	assert.Equal(t, map[string]any{"city": "Paris"}, invoker.invocations[0].args)
	assert.Equal(t, map[string]any{"city": "Oslo"}, invoker.invocations[1].args)
}
