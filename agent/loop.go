// Package agent drives an LLM through bounded rounds of tool invocation
// until it produces a final answer.
package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/x/slices"
	"github.com/effective-security/x/values"
	"github.com/effective-security/xlog"
	"github.com/google/uuid"
	"github.com/teamchat-ai/mcphost/pkg/llms"
	"github.com/teamchat-ai/mcphost/pkg/llmutils"
	"github.com/teamchat-ai/mcphost/upstream"
)

var logger = xlog.NewPackageLogger("github.com/teamchat-ai/mcphost", "agent")

var (
	// ErrMaxTurnsExceeded is the terminal outcome when the model keeps
	// requesting tools past the configured turn budget.
	ErrMaxTurnsExceeded = errors.New("max turns exceeded")
	// ErrMaxToolCallsExceeded is the terminal outcome when the total tool
	// invocations of one user turn pass the configured budget.
	ErrMaxToolCallsExceeded = errors.New("max tool calls exceeded")
)

const (
	// DefaultSystemPrompt is used when the configuration sets none.
	DefaultSystemPrompt = "You are a helpful assistant with access to external tools. " +
		"Use the provided tools when they help answer the user's question, " +
		"and reply with a concise final answer once you have what you need."

	DefaultMaxTurns     = 8
	DefaultMaxToolCalls = 16
	DefaultLLMTimeout   = 120 * time.Second
	DefaultToolTimeout  = 60 * time.Second
)

// Config bounds and parameterizes the loop.
type Config struct {
	SystemPrompt string        `json:"system_prompt,omitempty" yaml:"system_prompt,omitempty"`
	MaxTurns     int           `json:"max_turns,omitempty" yaml:"max_turns,omitempty"`
	MaxToolCalls int           `json:"max_tool_calls,omitempty" yaml:"max_tool_calls,omitempty"`
	LLMTimeout   time.Duration `json:"llm_timeout,omitempty" yaml:"llm_timeout,omitempty"`
	ToolTimeout  time.Duration `json:"tool_timeout,omitempty" yaml:"tool_timeout,omitempty"`
}

func (c Config) withDefaults() Config {
	c.SystemPrompt = values.StringsCoalesce(c.SystemPrompt, DefaultSystemPrompt)
	c.MaxTurns = values.NumbersCoalesce(c.MaxTurns, DefaultMaxTurns)
	c.MaxToolCalls = values.NumbersCoalesce(c.MaxToolCalls, DefaultMaxToolCalls)
	c.LLMTimeout = values.NumbersCoalesce(c.LLMTimeout, DefaultLLMTimeout)
	c.ToolTimeout = values.NumbersCoalesce(c.ToolTimeout, DefaultToolTimeout)
	return c
}

// Invoker executes a resolved tool call. *upstream.Pool implements it.
type Invoker interface {
	Invoke(ctx context.Context, server, tool string, args map[string]any) (*upstream.Result, error)
}

// Notifier receives progress notices and raw tool results for posting
// into the originating thread.
type Notifier func(ctx context.Context, text string)

// Loop is the agent control structure: one LLM call plus zero or more
// tool invocations per turn, repeated until the model answers without
// requesting tools or a budget runs out.
type Loop struct {
	model    llms.Model
	registry *upstream.Registry
	invoker  Invoker
	cfg      Config
}

// NewLoop returns a loop over a registry snapshot.
func NewLoop(model llms.Model, registry *upstream.Registry, invoker Invoker, cfg Config) *Loop {
	return &Loop{
		model:    model,
		registry: registry,
		invoker:  invoker,
		cfg:      cfg.withDefaults(),
	}
}

// Run drives the loop for one inbound user message on top of the
// reconstructed thread history. It returns the model's final answer.
// Tool-level failures are contained: they are surfaced through notify and
// fed back to the model as error-flagged tool messages. Only an LLM
// request failure or an exhausted budget terminates with an error.
func (l *Loop) Run(ctx context.Context, history []llms.Message, userMessage string, notify Notifier) (string, error) {
	messages := make([]llms.Message, 0, len(history)+2)
	messages = append(messages, llms.MessageFromTextParts(llms.RoleSystem, l.cfg.SystemPrompt))
	messages = append(messages, history...)
	messages = append(messages, llms.MessageFromTextParts(llms.RoleHuman, userMessage))

	tools := l.registry.LLMTools()
	toolCallsUsed := 0

	for turn := 1; turn <= l.cfg.MaxTurns; turn++ {
		choice, err := l.generate(ctx, messages, tools)
		if err != nil {
			return "", err
		}

		logger.ContextKV(ctx, xlog.DEBUG,
			"status", "llm_turn",
			"turn", turn,
			"tool_calls", len(choice.ToolCalls),
			"stop_reason", choice.StopReason)

		if len(choice.ToolCalls) == 0 {
			return choice.Content, nil
		}

		// Missing IDs are synthesized and arguments canonicalized to JSON
		// once, before the assistant message is recorded, so tool results
		// pair with their calls and replaying the history never trips a
		// provider on a non-JSON argument string.
		for i := range choice.ToolCalls {
			if choice.ToolCalls[i].ID == "" {
				choice.ToolCalls[i].ID = uuid.NewString()
			}
			if fc := choice.ToolCalls[i].FunctionCall; fc != nil {
				fc.Arguments = llmutils.ToJSON(llmutils.ParseToolArguments(fc.Arguments))
			}
		}
		messages = append(messages, assistantMessage(choice))

		// Strictly sequential, in response order: later calls may assume
		// earlier results are already visible in history.
		for _, tc := range choice.ToolCalls {
			toolCallsUsed++
			if toolCallsUsed > l.cfg.MaxToolCalls {
				return "", errors.WithStack(ErrMaxToolCallsExceeded)
			}
			messages = append(messages, l.executeToolCall(ctx, tc, notify))
		}
	}

	return "", errors.WithStack(ErrMaxTurnsExceeded)
}

func (l *Loop) generate(ctx context.Context, messages []llms.Message, tools []llms.Tool) (*llms.ContentChoice, error) {
	llmCtx, cancel := context.WithTimeout(ctx, l.cfg.LLMTimeout)
	defer cancel()

	opts := []llms.CallOption{}
	if len(tools) > 0 {
		opts = append(opts, llms.WithTools(tools))
	}
	resp, err := l.model.GenerateContent(llmCtx, messages, opts...)
	if err != nil {
		return nil, errors.WithMessage(err, "LLM request failed")
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("LLM request failed: empty response")
	}

	in, out, total := llmutils.CountTokens(resp)
	logger.ContextKV(ctx, xlog.DEBUG,
		"status", "llm_usage",
		"input_tokens", in,
		"output_tokens", out,
		"total_tokens", total)

	return resp.Choices[0], nil
}

// executeToolCall resolves, invokes, and reports one tool call. Every
// outcome, success or failure, becomes a tool-role message so the model
// can adapt on the next turn.
func (l *Loop) executeToolCall(ctx context.Context, tc llms.ToolCall, notify Notifier) llms.Message {
	id := tc.ID
	name := ""
	rawArgs := ""
	if tc.FunctionCall != nil {
		name = tc.FunctionCall.Name
		rawArgs = tc.FunctionCall.Arguments
	}

	desc, err := l.registry.Resolve(name)
	if err != nil {
		notify(ctx, fmt.Sprintf("Tool `%s` was not found on any connected server.", name))
		return toolMessage(id, name, fmt.Sprintf("tool %q not found", name), true)
	}

	args := llmutils.ParseToolArguments(rawArgs)
	notify(ctx, fmt.Sprintf("Executing tool `%s` with arguments:%s",
		desc.Qualified, llmutils.BackticksJSON(llmutils.ToJSONIndent(args))))

	logger.ContextKV(ctx, xlog.INFO,
		"status", "tool_call",
		"tool", desc.Qualified,
		"args", slices.StringUpto(rawArgs, 256))

	toolCtx, cancel := context.WithTimeout(ctx, l.cfg.ToolTimeout)
	defer cancel()

	res, err := l.invoker.Invoke(toolCtx, desc.Server, desc.Name, args)
	if err != nil {
		notify(ctx, fmt.Sprintf("Tool `%s` failed: %s", desc.Qualified, err.Error()))
		return toolMessage(id, name, err.Error(), true)
	}

	if res.IsError {
		notify(ctx, fmt.Sprintf("Tool `%s` returned an error:\n%s", desc.Qualified, res.Content))
	} else {
		notify(ctx, fmt.Sprintf("Tool `%s` result:\n%s", desc.Qualified, res.Content))
	}
	return toolMessage(id, name, res.Content, res.IsError)
}

func assistantMessage(choice *llms.ContentChoice) llms.Message {
	parts := make([]llms.ContentPart, 0, len(choice.ToolCalls)+1)
	if choice.Content != "" {
		parts = append(parts, llms.TextPart(choice.Content))
	}
	for _, tc := range choice.ToolCalls {
		parts = append(parts, tc)
	}
	return llms.MessageFromParts(llms.RoleAI, parts...)
}

func toolMessage(id, name, content string, isError bool) llms.Message {
	return llms.MessageFromToolResponse(llms.RoleTool, llms.ToolCallResponse{
		ToolCallID: id,
		Name:       name,
		Content:    content,
		IsError:    isError,
	})
}
