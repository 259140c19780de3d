// Package googleai adapts the Gemini API to the llms.Model contract.
package googleai

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/teamchat-ai/mcphost/pkg/llms"
	"google.golang.org/genai"
)

var (
	ErrMissingAPIKey         = errors.New("googleai: missing API key, set it in the GOOGLE_API_KEY environment variable")
	ErrNoContentInResponse   = errors.New("googleai: no content in generation response")
	ErrUnknownPartInResponse = errors.New("googleai: unknown part type in generation response")
)

const (
	roleModel = "model"
	roleUser  = "user"
)

// GoogleAI is a Gemini-backed implementation of llms.Model.
type GoogleAI struct {
	client  *genai.Client
	options Options
}

var _ llms.Model = (*GoogleAI)(nil)

// New creates a new GoogleAI client.
func New(ctx context.Context, opts ...Option) (*GoogleAI, error) {
	options := DefaultOptions()
	for _, opt := range opts {
		opt(&options)
	}
	if options.APIKey == "" {
		return nil, errors.WithStack(ErrMissingAPIKey)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  options.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, errors.Wrap(err, "googleai: failed to create client")
	}

	return &GoogleAI{
		client:  client,
		options: options,
	}, nil
}

// GetName implements the Model interface.
func (g *GoogleAI) GetName() string {
	return g.options.DefaultModel
}

// GetProviderType implements the Model interface.
func (g *GoogleAI) GetProviderType() llms.ProviderType {
	return llms.ProviderGoogleAI
}

// GenerateContent implements the Model interface.
func (g *GoogleAI) GenerateContent(ctx context.Context, messages []llms.Message, options ...llms.CallOption) (*llms.ContentResponse, error) {
	opts := llms.CallOptions{
		Model: g.options.DefaultModel,
	}
	for _, opt := range options {
		opt(&opts)
	}

	config := &genai.GenerateContentConfig{
		StopSequences: opts.StopWords,
	}
	if opts.MaxTokens > 0 {
		config.MaxOutputTokens = int32(opts.MaxTokens)
	}
	if opts.Temperature > 0 {
		config.Temperature = genai.Ptr(float32(opts.Temperature))
	}
	var err error
	if config.Tools, err = convertTools(opts.Tools); err != nil {
		return nil, err
	}

	history := make([]*genai.Content, 0, len(messages))
	for _, mc := range messages {
		content, err := convertContent(mc)
		if err != nil {
			return nil, err
		}
		if mc.Role == llms.RoleSystem {
			config.SystemInstruction = content
			continue
		}
		history = append(history, content)
	}

	resp, err := g.client.Models.GenerateContent(ctx, opts.Model, history, config)
	if err != nil {
		return nil, errors.Wrap(err, "googleai: failed to generate content")
	}
	if len(resp.Candidates) == 0 {
		return nil, errors.WithStack(ErrNoContentInResponse)
	}
	return convertCandidates(resp.Candidates, resp.UsageMetadata)
}

// convertCandidates converts a sequence of genai.Candidate to a response.
func convertCandidates(candidates []*genai.Candidate, usage *genai.GenerateContentResponseUsageMetadata) (*llms.ContentResponse, error) {
	var contentResponse llms.ContentResponse

	for _, candidate := range candidates {
		buf := strings.Builder{}
		var toolCalls []llms.ToolCall

		if candidate.Content != nil {
			for _, part := range candidate.Content.Parts {
				switch {
				case part.Text != "":
					buf.WriteString(part.Text)
				case part.FunctionCall != nil:
					b, err := json.Marshal(part.FunctionCall.Args)
					if err != nil {
						return nil, errors.Wrap(err, "googleai: failed to marshal function call args")
					}
					toolCalls = append(toolCalls, llms.ToolCall{
						ID:   part.FunctionCall.ID,
						Type: "function",
						FunctionCall: &llms.FunctionCall{
							Name:      part.FunctionCall.Name,
							Arguments: string(b),
						},
					})
				default:
					return nil, errors.WithStack(ErrUnknownPartInResponse)
				}
			}
		}

		metadata := make(map[string]any)
		if usage != nil {
			metadata["InputTokens"] = usage.PromptTokenCount
			metadata["OutputTokens"] = usage.CandidatesTokenCount
			metadata["TotalTokens"] = usage.TotalTokenCount
		}

		contentResponse.Choices = append(contentResponse.Choices,
			&llms.ContentChoice{
				Content:        buf.String(),
				StopReason:     string(candidate.FinishReason),
				GenerationInfo: metadata,
				ToolCalls:      toolCalls,
			})
	}
	return &contentResponse, nil
}

// convertContent converts one provider-neutral message to genai content.
func convertContent(content llms.Message) (*genai.Content, error) {
	c := &genai.Content{}

	switch content.Role {
	case llms.RoleSystem, llms.RoleHuman, llms.RoleTool:
		c.Role = roleUser
	case llms.RoleAI:
		c.Role = roleModel
	default:
		return nil, errors.Errorf("googleai: role %v not supported", content.Role)
	}

	for _, part := range content.Parts {
		out := new(genai.Part)
		switch p := part.(type) {
		case llms.TextContent:
			out.Text = p.Text
		case llms.ToolCall:
			var argsMap map[string]any
			if err := json.Unmarshal([]byte(p.FunctionCall.Arguments), &argsMap); err != nil {
				return nil, errors.Wrap(err, "googleai: failed to unmarshal tool call arguments")
			}
			out.FunctionCall = &genai.FunctionCall{
				ID:   p.ID,
				Name: p.FunctionCall.Name,
				Args: argsMap,
			}
		case llms.ToolCallResponse:
			out.FunctionResponse = &genai.FunctionResponse{
				ID:   p.ToolCallID,
				Name: p.Name,
				Response: map[string]any{
					"response": p.Content,
				},
			}
		default:
			return nil, errors.Errorf("googleai: unsupported message part type %T", part)
		}
		c.Parts = append(c.Parts, out)
	}

	return c, nil
}

// convertTools converts tool definitions to genai tools. The parameter
// schema arrives as a raw JSON-schema map from the owning tool server.
func convertTools(tools []llms.Tool) ([]*genai.Tool, error) {
	if len(tools) == 0 {
		return nil, nil
	}

	genaiTools := make([]*genai.Tool, 0, len(tools))
	for i, tool := range tools {
		if tool.Type != "function" || tool.Function == nil {
			return nil, errors.Errorf("googleai: tool [%d]: unsupported type %q, want 'function'", i, tool.Type)
		}

		decl := &genai.FunctionDeclaration{
			Name:        tool.Function.Name,
			Description: tool.Function.Description,
		}
		if tool.Function.Parameters != nil {
			schema, err := convertSchema(tool.Function.Parameters)
			if err != nil {
				return nil, errors.WithMessagef(err, "googleai: tool [%d]", i)
			}
			decl.Parameters = schema
		}

		genaiTools = append(genaiTools, &genai.Tool{
			FunctionDeclarations: []*genai.FunctionDeclaration{decl},
		})
	}
	return genaiTools, nil
}

// convertSchema recursively converts a JSON-schema map to a genai.Schema.
func convertSchema(m map[string]any) (*genai.Schema, error) {
	out := &genai.Schema{}

	if typ, ok := m["type"].(string); ok {
		switch strings.ToLower(typ) {
		case "object":
			out.Type = genai.TypeObject
		case "string":
			out.Type = genai.TypeString
		case "number":
			out.Type = genai.TypeNumber
		case "integer":
			out.Type = genai.TypeInteger
		case "boolean":
			out.Type = genai.TypeBoolean
		case "array":
			out.Type = genai.TypeArray
		default:
			return nil, errors.Errorf("unsupported schema type %q", typ)
		}
	}
	if desc, ok := m["description"].(string); ok {
		out.Description = desc
	}
	if required, ok := m["required"].([]any); ok {
		for _, item := range required {
			if s, ok := item.(string); ok {
				out.Required = append(out.Required, s)
			}
		}
	}
	if required, ok := m["required"].([]string); ok {
		out.Required = required
	}
	if props, ok := m["properties"].(map[string]any); ok {
		out.Properties = make(map[string]*genai.Schema, len(props))
		for name, prop := range props {
			propMap, ok := prop.(map[string]any)
			if !ok {
				return nil, errors.Errorf("property %q: unexpected schema shape %T", name, prop)
			}
			converted, err := convertSchema(propMap)
			if err != nil {
				return nil, errors.WithMessagef(err, "property %q", name)
			}
			out.Properties[name] = converted
		}
	}
	if items, ok := m["items"].(map[string]any); ok {
		converted, err := convertSchema(items)
		if err != nil {
			return nil, errors.WithMessage(err, "items")
		}
		out.Items = converted
	}
	if enum, ok := m["enum"].([]any); ok {
		for _, item := range enum {
			if s, ok := item.(string); ok {
				out.Enum = append(out.Enum, s)
			}
		}
	}

	return out, nil
}
