package bot

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/x/values"
	"github.com/effective-security/xlog"
	"github.com/teamchat-ai/mcphost/agent"
	"github.com/teamchat-ai/mcphost/mattermost"
	"github.com/teamchat-ai/mcphost/pkg/llms"
	"github.com/teamchat-ai/mcphost/pkg/llmutils"
	"github.com/teamchat-ai/mcphost/upstream"
)

// DefaultCommandPrefix introduces direct tool commands.
const DefaultCommandPrefix = "#mcp "

// Config holds the bot's own settings; the backend, pool, and agent carry
// their own configs.
type Config struct {
	// CommandPrefix introduces prefix commands; messages without it go to
	// the agent.
	CommandPrefix string `json:"command_prefix,omitempty" yaml:"command_prefix,omitempty"`
}

// Bot consumes the post feed and dispatches each message: prefix commands
// are answered directly, everything else runs through the agent loop.
type Bot struct {
	client   mattermost.Client
	pool     *upstream.Pool
	model    llms.Model
	sink     *Sink
	history  *ContextBuilder
	agentCfg agent.Config
	prefix   string
}

// New wires a bot from its collaborators.
func New(client mattermost.Client, pool *upstream.Pool, model llms.Model, sink *Sink, agentCfg agent.Config, cfg Config) *Bot {
	return &Bot{
		client:   client,
		pool:     pool,
		model:    model,
		sink:     sink,
		history:  NewContextBuilder(client, client.BotUserID()),
		agentCfg: agentCfg,
		prefix:   values.StringsCoalesce(cfg.CommandPrefix, DefaultCommandPrefix),
	}
}

// Run consumes the post feed until ctx is done or the feed closes.
// Messages are handled one at a time; the pool and registry are only read
// during steady state, so no locking is needed.
func (b *Bot) Run(ctx context.Context) error {
	events, err := b.client.Listen(ctx)
	if err != nil {
		return err
	}

	logger.ContextKV(ctx, xlog.INFO,
		"status", "listening",
		"prefix", b.prefix)

	for post := range events {
		b.HandlePost(ctx, post)
	}
	return ctx.Err()
}

// HandlePost dispatches one inbound post. Failures are contained: they
// are reported into the thread and never terminate the feed.
func (b *Bot) HandlePost(ctx context.Context, post mattermost.Post) {
	if post.UserID == b.client.BotUserID() || post.Type != "" || post.Message == "" {
		return
	}

	rootID := values.StringsCoalesce(post.RootID, post.ID)
	cmd := ParseCommand(post.Message, b.prefix, b.pool.ServerNames())

	var reply string
	var err error
	switch cmd.Kind {
	case KindIgnore:
		return
	case KindHelp:
		reply = HelpText(b.prefix)
	case KindServers:
		snap := b.pool.ListTools(ctx)
		reply = RenderServers(b.pool.ServerNames(), snap.Errors)
	case KindServerTools:
		reply, err = b.serverTools(ctx, cmd.Server)
	case KindServerResources:
		reply, err = b.serverResources(ctx, cmd.Server)
	case KindServerPrompts:
		reply, err = b.serverPrompts(ctx, cmd.Server)
	case KindToolCall:
		reply, err = b.callTool(ctx, cmd)
	case KindLLM:
		err = b.converse(ctx, post, rootID, cmd.Text)
		if err == nil {
			return
		}
	}

	if err != nil {
		logger.ContextKV(ctx, xlog.ERROR,
			"reason", "handle_post",
			"post_id", post.ID,
			"err", err.Error())
		reply = fmt.Sprintf("Error: %s", err.Error())
	}
	if reply == "" {
		return
	}
	if err := b.sink.Post(ctx, post.ChannelID, reply, rootID); err != nil {
		logger.ContextKV(ctx, xlog.ERROR,
			"reason", "post_reply",
			"post_id", post.ID,
			"err", err.Error())
	}
}

func (b *Bot) serverTools(ctx context.Context, server string) (string, error) {
	conn, err := b.pool.Conn(server)
	if err != nil {
		return "", err
	}
	tools, err := conn.ListTools(ctx)
	if err != nil {
		return "", err
	}
	snap := &upstream.Snapshot{
		Servers: []upstream.ServerTools{{Server: server, Tools: tools}},
	}
	return RenderTools(server, upstream.BuildRegistry(snap).Tools()), nil
}

func (b *Bot) serverResources(ctx context.Context, server string) (string, error) {
	conn, err := b.pool.Conn(server)
	if err != nil {
		return "", err
	}
	resources, err := conn.ListResources(ctx)
	if err != nil {
		return "", err
	}
	names := make([]string, 0, len(resources))
	for _, r := range resources {
		names = append(names, r.URI)
	}
	return RenderList(fmt.Sprintf("Resources on `%s`", server), names), nil
}

func (b *Bot) serverPrompts(ctx context.Context, server string) (string, error) {
	conn, err := b.pool.Conn(server)
	if err != nil {
		return "", err
	}
	prompts, err := conn.ListPrompts(ctx)
	if err != nil {
		return "", err
	}
	names := make([]string, 0, len(prompts))
	for _, p := range prompts {
		names = append(names, p.Name)
	}
	return RenderList(fmt.Sprintf("Prompts on `%s`", server), names), nil
}

func (b *Bot) callTool(ctx context.Context, cmd Command) (string, error) {
	res, err := b.pool.Invoke(ctx, cmd.Server, cmd.Tool, cmd.Args)
	if err != nil {
		return "", err
	}
	if res.IsError {
		return fmt.Sprintf("Tool `%s.%s` returned an error:\n%s", cmd.Server, cmd.Tool, res.Content), nil
	}
	if json.Valid([]byte(res.Content)) {
		return llmutils.BackticksJSON(llmutils.JSONIndent(res.Content)), nil
	}
	return res.Content, nil
}

// converse runs the agent loop for a natural-language message, posting
// progress notices and the final answer into the same thread.
func (b *Bot) converse(ctx context.Context, post mattermost.Post, rootID, text string) error {
	if err := b.sink.Post(ctx, post.ChannelID, "Processing your request...", rootID); err != nil {
		return err
	}

	history, err := b.history.Build(ctx, post.RootID, post.ID)
	if err != nil {
		return err
	}

	registry := upstream.BuildRegistry(b.pool.ListTools(ctx))
	loop := agent.NewLoop(b.model, registry, b.pool, b.agentCfg)

	notify := func(ctx context.Context, text string) {
		if err := b.sink.Post(ctx, post.ChannelID, text, rootID); err != nil {
			logger.ContextKV(ctx, xlog.WARNING,
				"reason", "post_notice",
				"err", err.Error())
		}
	}

	answer, err := loop.Run(ctx, history, text, notify)
	switch {
	case errors.Is(err, agent.ErrMaxTurnsExceeded),
		errors.Is(err, agent.ErrMaxToolCallsExceeded):
		return b.sink.Post(ctx, post.ChannelID,
			"I could not finish within the allowed number of tool rounds. Try narrowing the request.", rootID)
	case err != nil:
		return b.sink.Post(ctx, post.ChannelID,
			fmt.Sprintf("Error: %s", err.Error()), rootID)
	}
	return b.sink.Post(ctx, post.ChannelID, answer, rootID)
}
