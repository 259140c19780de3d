package bot

import (
	"fmt"
	"strings"

	"github.com/teamchat-ai/mcphost/upstream"
)

// HelpText renders the prefix-command grammar for the `help` command.
func HelpText(prefix string) string {
	var sb strings.Builder
	sb.WriteString("#### MCP Host commands\n\n")
	fmt.Fprintf(&sb, "- `%shelp` - show this message\n", prefix)
	fmt.Fprintf(&sb, "- `%sservers` - list connected tool servers\n", prefix)
	fmt.Fprintf(&sb, "- `%s<server> tools` - list the tools of a server\n", prefix)
	fmt.Fprintf(&sb, "- `%s<server> resources` - list the resources of a server\n", prefix)
	fmt.Fprintf(&sb, "- `%s<server> prompts` - list the prompt templates of a server\n", prefix)
	fmt.Fprintf(&sb, "- `%s<server> call <tool> {\"arg\": \"value\"}` - invoke a tool with JSON arguments\n", prefix)
	fmt.Fprintf(&sb, "- `%s<server> call <tool> <key> <value>` - invoke a tool with a single key/value argument\n", prefix)
	sb.WriteString("\nAnything else is sent to the assistant, which may call tools on your behalf.\n")
	return sb.String()
}

// RenderServers renders the connected server list, marking servers whose
// tool listing failed in the current snapshot.
func RenderServers(names []string, listErrors map[string]error) string {
	if len(names) == 0 {
		return "No tool servers connected."
	}
	var sb strings.Builder
	sb.WriteString("#### Connected servers\n\n")
	for _, name := range names {
		if _, failed := listErrors[name]; failed {
			fmt.Fprintf(&sb, "- `%s` (tool listing failed)\n", name)
		} else {
			fmt.Fprintf(&sb, "- `%s`\n", name)
		}
	}
	return sb.String()
}

// RenderTools renders one server's tool list.
func RenderTools(server string, tools []upstream.ToolDescriptor) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "#### Tools on `%s`\n\n", server)
	count := 0
	for _, desc := range tools {
		if desc.Server != server {
			continue
		}
		count++
		if desc.Description != "" {
			fmt.Fprintf(&sb, "- `%s` - %s\n", desc.Name, desc.Description)
		} else {
			fmt.Fprintf(&sb, "- `%s`\n", desc.Name)
		}
	}
	if count == 0 {
		return fmt.Sprintf("No tools found on `%s`.", server)
	}
	return sb.String()
}

// RenderList renders a generic named listing (resources, prompts).
func RenderList(title string, items []string) string {
	if len(items) == 0 {
		return fmt.Sprintf("No %s found.", strings.ToLower(title))
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "#### %s\n\n", title)
	for _, item := range items {
		fmt.Fprintf(&sb, "- `%s`\n", item)
	}
	return sb.String()
}
