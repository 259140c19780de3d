// Package openai adapts the OpenAI chat completions API (and Azure OpenAI
// deployments of it) to the llms.Model contract.
package openai

import (
	"context"

	"github.com/cockroachdb/errors"
	goopenai "github.com/sashabaranov/go-openai"
	"github.com/teamchat-ai/mcphost/pkg/llms"
)

var (
	ErrEmptyResponse = errors.New("openai: no response")
	ErrMissingToken  = errors.New("openai: missing API key, set it in the OPENAI_API_KEY environment variable")
)

// LLM is an OpenAI-backed implementation of llms.Model.
type LLM struct {
	client  *goopenai.Client
	options Options
}

var _ llms.Model = (*LLM)(nil)

// New returns a new OpenAI model.
func New(opts ...Option) (*LLM, error) {
	options := DefaultOptions()
	for _, opt := range opts {
		opt(&options)
	}
	if options.Token == "" {
		return nil, errors.WithStack(ErrMissingToken)
	}

	var cfg goopenai.ClientConfig
	if options.APIType == APITypeAzure {
		cfg = goopenai.DefaultAzureConfig(options.Token, options.BaseURL)
		if options.APIVersion != "" {
			cfg.APIVersion = options.APIVersion
		}
	} else {
		cfg = goopenai.DefaultConfig(options.Token)
		if options.BaseURL != "" {
			cfg.BaseURL = options.BaseURL
		}
	}

	return &LLM{
		client:  goopenai.NewClientWithConfig(cfg),
		options: options,
	}, nil
}

// GetName implements the Model interface.
func (o *LLM) GetName() string {
	return o.options.Model
}

// GetProviderType implements the Model interface.
func (o *LLM) GetProviderType() llms.ProviderType {
	if o.options.APIType == APITypeAzure {
		return llms.ProviderAzure
	}
	return llms.ProviderOpenAI
}

// GenerateContent implements the Model interface.
func (o *LLM) GenerateContent(ctx context.Context, messages []llms.Message, options ...llms.CallOption) (*llms.ContentResponse, error) {
	opts := llms.CallOptions{
		Model: o.options.Model,
	}
	for _, opt := range options {
		opt(&opts)
	}

	chatMsgs, err := processMessages(messages)
	if err != nil {
		return nil, err
	}

	req := goopenai.ChatCompletionRequest{
		Model:       opts.Model,
		Messages:    chatMsgs,
		Stop:        opts.StopWords,
		Temperature: float32(opts.Temperature),
		MaxTokens:   opts.MaxTokens,
	}
	for _, tool := range opts.Tools {
		if tool.Function == nil {
			continue
		}
		req.Tools = append(req.Tools, goopenai.Tool{
			Type: goopenai.ToolTypeFunction,
			Function: &goopenai.FunctionDefinition{
				Name:        tool.Function.Name,
				Description: tool.Function.Description,
				Parameters:  tool.Function.Parameters,
			},
		})
	}
	if len(req.Tools) > 0 {
		if opts.ToolChoice != nil {
			req.ToolChoice = opts.ToolChoice
		} else {
			req.ToolChoice = "auto"
		}
	}

	result, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, errors.Wrap(err, "openai: failed to create chat completion")
	}
	if len(result.Choices) == 0 {
		return nil, errors.WithStack(ErrEmptyResponse)
	}

	choices := make([]*llms.ContentChoice, len(result.Choices))
	for i, c := range result.Choices {
		choices[i] = &llms.ContentChoice{
			Content:    c.Message.Content,
			StopReason: string(c.FinishReason),
			GenerationInfo: map[string]any{
				"InputTokens":  result.Usage.PromptTokens,
				"OutputTokens": result.Usage.CompletionTokens,
				"TotalTokens":  result.Usage.TotalTokens,
			},
		}
		for _, tc := range c.Message.ToolCalls {
			choices[i].ToolCalls = append(choices[i].ToolCalls, llms.ToolCall{
				ID:   tc.ID,
				Type: string(tc.Type),
				FunctionCall: &llms.FunctionCall{
					Name:      tc.Function.Name,
					Arguments: tc.Function.Arguments,
				},
			})
		}
	}
	return &llms.ContentResponse{Choices: choices}, nil
}

// processMessages converts the provider-neutral history into the chat
// completion message list, splitting tool calls and tool responses into the
// shapes the API expects.
func processMessages(messages []llms.Message) ([]goopenai.ChatCompletionMessage, error) {
	chatMsgs := make([]goopenai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		msg := goopenai.ChatCompletionMessage{}
		switch m.Role {
		case llms.RoleSystem:
			msg.Role = goopenai.ChatMessageRoleSystem
			msg.Content = m.GetContent()
		case llms.RoleHuman:
			msg.Role = goopenai.ChatMessageRoleUser
			msg.Content = m.GetContent()
		case llms.RoleAI:
			msg.Role = goopenai.ChatMessageRoleAssistant
			for _, part := range m.Parts {
				switch p := part.(type) {
				case llms.TextContent:
					msg.Content += p.Text
				case llms.ToolCall:
					msg.ToolCalls = append(msg.ToolCalls, goopenai.ToolCall{
						ID:   p.ID,
						Type: goopenai.ToolType(p.Type),
						Function: goopenai.FunctionCall{
							Name:      p.FunctionCall.Name,
							Arguments: p.FunctionCall.Arguments,
						},
					})
				default:
					return nil, errors.Errorf("openai: unsupported AI message part type %T", part)
				}
			}
		case llms.RoleTool:
			if len(m.Parts) != 1 {
				return nil, errors.Errorf("openai: expected exactly one part for role %v, got %d", m.Role, len(m.Parts))
			}
			resp, ok := m.Parts[0].(llms.ToolCallResponse)
			if !ok {
				return nil, errors.Errorf("openai: expected ToolCallResponse part for role %v, got %T", m.Role, m.Parts[0])
			}
			msg.Role = goopenai.ChatMessageRoleTool
			msg.ToolCallID = resp.ToolCallID
			msg.Name = resp.Name
			msg.Content = resp.Content
		default:
			return nil, errors.Errorf("openai: role %v not supported", m.Role)
		}
		chatMsgs = append(chatMsgs, msg)
	}
	return chatMsgs, nil
}
