package bot_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/teamchat-ai/mcphost/bot"
)

func TestParseCommand(t *testing.T) {
	servers := []string{"weather", "search"}
	prefix := "#mcp "

	tcases := []struct {
		name    string
		message string
		exp     bot.Command
	}{
		{
			name:    "help",
			message: "#mcp help",
			exp:     bot.Command{Kind: bot.KindHelp},
		},
		{
			name:    "servers",
			message: "#mcp servers",
			exp:     bot.Command{Kind: bot.KindServers},
		},
		{
			name:    "server tools",
			message: "#mcp weather tools",
			exp:     bot.Command{Kind: bot.KindServerTools, Server: "weather"},
		},
		{
			name:    "server resources",
			message: "#mcp search resources",
			exp:     bot.Command{Kind: bot.KindServerResources, Server: "search"},
		},
		{
			name:    "server prompts",
			message: "#mcp weather prompts",
			exp:     bot.Command{Kind: bot.KindServerPrompts, Server: "weather"},
		},
		{
			name:    "call with JSON args",
			message: `#mcp weather call get_weather {"city": "Paris"}`,
			exp: bot.Command{
				Kind:   bot.KindToolCall,
				Server: "weather",
				Tool:   "get_weather",
				Args:   map[string]any{"city": "Paris"},
			},
		},
		{
			name:    "call with legacy key value args",
			message: "#mcp weather call get_weather city Paris",
			exp: bot.Command{
				Kind:   bot.KindToolCall,
				Server: "weather",
				Tool:   "get_weather",
				Args:   map[string]any{"city": "Paris"},
			},
		},
		{
			name:    "call without args",
			message: "#mcp weather call status",
			exp: bot.Command{
				Kind:   bot.KindToolCall,
				Server: "weather",
				Tool:   "status",
				Args:   map[string]any{},
			},
		},
		{
			name:    "call with bare text arg",
			message: "#mcp search call query everything",
			exp: bot.Command{
				Kind:   bot.KindToolCall,
				Server: "search",
				Tool:   "query",
				Args:   map[string]any{"text": "everything"},
			},
		},
		{
			name:    "unknown second token degrades to conversation",
			message: "#mcp weather forecast for tomorrow",
			exp:     bot.Command{Kind: bot.KindLLM, Text: "weather forecast for tomorrow"},
		},
		{
			name:    "unknown first token degrades to conversation",
			message: "#mcp what can you do",
			exp:     bot.Command{Kind: bot.KindLLM, Text: "what can you do"},
		},
		{
			name:    "server name without verb degrades to conversation",
			message: "#mcp weather",
			exp:     bot.Command{Kind: bot.KindLLM, Text: "weather"},
		},
		{
			name:    "plain message goes to the model",
			message: "what is the weather in Paris?",
			exp:     bot.Command{Kind: bot.KindLLM, Text: "what is the weather in Paris?"},
		},
		{
			name:    "other bot prefix is ignored",
			message: "!deploy prod",
			exp:     bot.Command{Kind: bot.KindIgnore},
		},
		{
			name:    "slash command is ignored",
			message: "/away",
			exp:     bot.Command{Kind: bot.KindIgnore},
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			got := bot.ParseCommand(tc.message, prefix, servers)
			assert.Equal(t, tc.exp, got)
		})
	}
}

func TestParseCommand_SlashPrefix(t *testing.T) {
	servers := []string{"weather"}
	prefix := "/mcp "

	tcases := []struct {
		name    string
		message string
		exp     bot.Command
	}{
		{
			name:    "own slash prefix keeps the command grammar",
			message: "/mcp servers",
			exp:     bot.Command{Kind: bot.KindServers},
		},
		{
			name:    "server tools under a slash prefix",
			message: "/mcp weather tools",
			exp:     bot.Command{Kind: bot.KindServerTools, Server: "weather"},
		},
		{
			name:    "unrelated slash command is still ignored",
			message: "/away",
			exp:     bot.Command{Kind: bot.KindIgnore},
		},
		{
			name:    "other bot prefix is still ignored",
			message: "!deploy prod",
			exp:     bot.Command{Kind: bot.KindIgnore},
		},
		{
			name:    "plain message goes to the model",
			message: "what is new?",
			exp:     bot.Command{Kind: bot.KindLLM, Text: "what is new?"},
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			got := bot.ParseCommand(tc.message, prefix, servers)
			assert.Equal(t, tc.exp, got)
		})
	}
}
