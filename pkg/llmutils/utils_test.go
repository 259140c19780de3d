package llmutils_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/teamchat-ai/mcphost/pkg/llms"
	"github.com/teamchat-ai/mcphost/pkg/llmutils"
)

func TestParseToolArguments(t *testing.T) {
	tcases := []struct {
		name string
		raw  string
		exp  map[string]any
	}{
		{
			name: "empty",
			raw:  "",
			exp:  map[string]any{},
		},
		{
			name: "strict JSON",
			raw:  `{"city": "Paris", "days": 3}`,
			exp:  map[string]any{"city": "Paris", "days": float64(3)},
		},
		{
			name: "fenced JSON",
			raw:  "```json\n{\"city\": \"Paris\"}\n```",
			exp:  map[string]any{"city": "Paris"},
		},
		{
			name: "JSON with chatter around it",
			raw:  `Here you go: {"city": "Paris"} hope that helps`,
			exp:  map[string]any{"city": "Paris"},
		},
		{
			name: "truncated JSON recovered leniently",
			raw:  `{"city": "Paris"`,
			exp:  map[string]any{"city": "Paris"},
		},
		{
			name: "free text falls back to the text key",
			raw:  "weather in Paris please",
			exp:  map[string]any{"text": "weather in Paris please"},
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.exp, llmutils.ParseToolArguments(tc.raw))
		})
	}
}

func TestTrimBackticks(t *testing.T) {
	assert.Equal(t, `{"a": 1}`, llmutils.TrimBackticks("```json\n{\"a\": 1}\n```"))
	assert.Equal(t, `{"a": 1}`, llmutils.TrimBackticks(`{"a": 1}`))
}

func TestCleanJSON(t *testing.T) {
	assert.Equal(t, `{"a": 1}`, string(llmutils.CleanJSON([]byte(`Sure: {"a": 1} done`))))
	assert.Equal(t, `[1, 2]`, string(llmutils.CleanJSON([]byte(`result [1, 2]`))))
	assert.Equal(t, "no json here", string(llmutils.CleanJSON([]byte("no json here"))))
}

func TestJSONRender(t *testing.T) {
	assert.Equal(t, `{"a":1}`, llmutils.ToJSON(map[string]any{"a": 1}))
	assert.Equal(t, "{\n\t\"a\": 1\n}", llmutils.ToJSONIndent(map[string]any{"a": 1}))
	assert.Equal(t, "{\n\t\"a\": 1\n}", llmutils.JSONIndent(`{"a":1}`))
	assert.Equal(t, "\n```json\n{\"a\":1}\n```\n", llmutils.BackticksJSON(`{"a":1}`))
}

func TestCountTokens(t *testing.T) {
	resp := &llms.ContentResponse{
		Choices: []*llms.ContentChoice{
			{GenerationInfo: map[string]any{"InputTokens": 10, "OutputTokens": 5, "TotalTokens": 15}},
			{GenerationInfo: map[string]any{"InputTokens": 1, "OutputTokens": 2, "TotalTokens": 3}},
		},
	}
	in, out, total := llmutils.CountTokens(resp)
	assert.Equal(t, int64(11), in)
	assert.Equal(t, int64(7), out)
	assert.Equal(t, int64(18), total)
}
