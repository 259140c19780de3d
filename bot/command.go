package bot

import (
	"encoding/json"
	"slices"
	"strings"
)

// CommandKind classifies an inbound message.
type CommandKind int

const (
	// KindIgnore means the message is addressed to another bot or backend
	// command handler and must be skipped entirely.
	KindIgnore CommandKind = iota
	// KindHelp requests the static help text.
	KindHelp
	// KindServers requests the connected server list.
	KindServers
	// KindServerTools requests the tool list of one server.
	KindServerTools
	// KindServerResources requests the resource list of one server.
	KindServerResources
	// KindServerPrompts requests the prompt list of one server.
	KindServerPrompts
	// KindToolCall is a direct tool invocation.
	KindToolCall
	// KindLLM routes the message to the agent loop as natural language.
	KindLLM
)

// Command is the typed result of parsing one inbound message.
type Command struct {
	Kind   CommandKind
	Server string
	Tool   string
	Args   map[string]any
	// Text is the natural-language payload for KindLLM.
	Text string
}

// reservedPrefixes mark other bots' and the backend's own slash commands.
var reservedPrefixes = []string{"!", "/"}

// ParseCommand classifies a message. The configured prefix is matched
// before the reserved ones, so a prefix that itself starts with "!" or
// "/" keeps its command grammar; only messages carrying an unrelated
// reserved prefix are dropped. Prefix commands that do not parse as a
// known form fall through to the LLM instead of erroring.
func ParseCommand(message, prefix string, servers []string) Command {
	message = strings.TrimSpace(message)

	if prefix == "" || !strings.HasPrefix(message, prefix) {
		for _, reserved := range reservedPrefixes {
			if strings.HasPrefix(message, reserved) {
				return Command{Kind: KindIgnore}
			}
		}
		return Command{Kind: KindLLM, Text: message}
	}

	body := strings.TrimSpace(strings.TrimPrefix(message, prefix))
	fields := strings.Fields(body)
	if len(fields) == 0 {
		return Command{Kind: KindLLM, Text: body}
	}

	switch fields[0] {
	case "help":
		return Command{Kind: KindHelp}
	case "servers":
		return Command{Kind: KindServers}
	}

	if !slices.Contains(servers, fields[0]) {
		return Command{Kind: KindLLM, Text: body}
	}
	server := fields[0]

	if len(fields) < 2 {
		return Command{Kind: KindLLM, Text: body}
	}
	switch fields[1] {
	case "tools":
		return Command{Kind: KindServerTools, Server: server}
	case "resources":
		return Command{Kind: KindServerResources, Server: server}
	case "prompts":
		return Command{Kind: KindServerPrompts, Server: server}
	case "call":
		if len(fields) < 3 {
			return Command{Kind: KindLLM, Text: body}
		}
		rest := strings.TrimSpace(strings.Join(fields[3:], " "))
		return Command{
			Kind:   KindToolCall,
			Server: server,
			Tool:   fields[2],
			Args:   parseCallArgs(rest),
		}
	}
	return Command{Kind: KindLLM, Text: body}
}

// parseCallArgs decodes tool-call arguments. A JSON object is preferred;
// a bare `key value` pair is the legacy fallback; anything else becomes
// free text under the "text" key.
func parseCallArgs(raw string) map[string]any {
	if raw == "" {
		return map[string]any{}
	}

	args := map[string]any{}
	if err := json.Unmarshal([]byte(raw), &args); err == nil {
		return args
	}

	fields := strings.Fields(raw)
	if len(fields) >= 2 {
		return map[string]any{fields[0]: strings.Join(fields[1:], " ")}
	}
	return map[string]any{"text": raw}
}
