package upstream

import (
	"github.com/cockroachdb/errors"
	"github.com/teamchat-ai/mcphost/pkg/llms"
)

// ToolDescriptor is one discovered tool, namespaced by its owning server.
type ToolDescriptor struct {
	// Server is the owning server name.
	Server string
	// Name is the short tool name as the server declares it.
	Name string
	// Qualified is Server + "." + Name; unique by construction.
	Qualified   string
	Description string
	// Schema is the raw JSON-schema parameter spec, nil when the server
	// declares none.
	Schema map[string]any
}

// Registry is a derived view over a pool snapshot. It is rebuilt per
// inbound request and never mutated afterwards, so lookups within one
// snapshot are stable.
type Registry struct {
	tools       []ToolDescriptor
	byQualified map[string]int
}

// BuildRegistry constructs a registry from a snapshot. Iteration order is
// connection order of servers, then listing order of tools, which fixes
// the short-name tie-break.
func BuildRegistry(snap *Snapshot) *Registry {
	r := &Registry{
		byQualified: make(map[string]int),
	}
	for _, st := range snap.Servers {
		for _, tool := range st.Tools {
			desc := ToolDescriptor{
				Server:      st.Server,
				Name:        tool.Name,
				Qualified:   st.Server + "." + tool.Name,
				Description: tool.Description,
			}
			if len(tool.InputSchema.Properties) > 0 || tool.InputSchema.Type != "" {
				desc.Schema = map[string]any{
					"type":       tool.InputSchema.Type,
					"properties": tool.InputSchema.Properties,
				}
				if len(tool.InputSchema.Required) > 0 {
					desc.Schema["required"] = tool.InputSchema.Required
				}
			}
			if _, exists := r.byQualified[desc.Qualified]; exists {
				continue
			}
			r.byQualified[desc.Qualified] = len(r.tools)
			r.tools = append(r.tools, desc)
		}
	}
	return r
}

// Tools returns all descriptors in iteration order.
func (r *Registry) Tools() []ToolDescriptor {
	return r.tools
}

// Resolve maps a tool name to its descriptor. Qualified names are tried
// first and are unambiguous. A bare short name returns the first match in
// iteration order; colliding short names across servers deliberately pick
// that first match instead of erroring, because failing an LLM-issued call
// outright is worse than picking a plausible candidate.
func (r *Registry) Resolve(name string) (*ToolDescriptor, error) {
	if idx, ok := r.byQualified[name]; ok {
		return &r.tools[idx], nil
	}
	for i := range r.tools {
		if r.tools[i].Name == name {
			return &r.tools[i], nil
		}
	}
	return nil, errors.WithMessagef(ErrToolNotFound, "%q", name)
}

// LLMTools converts the registry contents to function-calling tool
// definitions. Short names are exposed to the model (qualified names are
// not valid function names for every provider); a short-name collision
// keeps the first occurrence, matching Resolve's tie-break. Tools without
// a declared schema get the empty-object schema.
func (r *Registry) LLMTools() []llms.Tool {
	seen := make(map[string]bool, len(r.tools))
	out := make([]llms.Tool, 0, len(r.tools))
	for _, desc := range r.tools {
		if seen[desc.Name] {
			continue
		}
		seen[desc.Name] = true

		params := desc.Schema
		if params == nil {
			params = llms.EmptyObjectSchema()
		}
		out = append(out, llms.Tool{
			Type: "function",
			Function: &llms.FunctionDefinition{
				Name:        desc.Name,
				Description: desc.Description,
				Parameters:  params,
			},
		})
	}
	return out
}
