// mcphost bridges a Mattermost workspace, a pool of MCP tool servers, and
// an LLM provider so chat users can issue tool commands or converse while
// the model calls tools on their behalf.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/effective-security/xlog"
	"github.com/jessevdk/go-flags"
	"github.com/teamchat-ai/mcphost/bot"
	"github.com/teamchat-ai/mcphost/config"
	"github.com/teamchat-ai/mcphost/mattermost"
	"github.com/teamchat-ai/mcphost/pkg/llmfactory"
	"github.com/teamchat-ai/mcphost/upstream"
)

var logger = xlog.NewPackageLogger("github.com/teamchat-ai/mcphost", "main")

type options struct {
	Config string `short:"c" long:"config" description:"path to the configuration file" default:"mcphost.yaml"`
	Debug  bool   `short:"d" long:"debug" description:"enable debug logging"`
}

func main() {
	var opts options
	if _, err := flags.Parse(&opts); err != nil {
		if flags.WroteHelp(err) {
			return
		}
		os.Exit(2)
	}

	xlog.SetFormatter(xlog.NewStringFormatter(os.Stderr))
	if opts.Debug {
		xlog.SetGlobalLogLevel(xlog.DEBUG)
	} else {
		xlog.SetGlobalLogLevel(xlog.INFO)
	}

	if err := run(opts); err != nil {
		logger.KV(xlog.ERROR, "reason", "fatal", "err", err.Error())
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func run(opts options) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(opts.Config)
	if err != nil {
		return err
	}

	client, err := mattermost.New(ctx, cfg.Mattermost)
	if err != nil {
		return err
	}

	channelID, err := resolveChannel(ctx, client, cfg.Mattermost)
	if err != nil {
		return err
	}

	pool := upstream.NewPool(cfg.Servers, upstream.StdioDialer)
	if err := pool.ConnectAll(ctx); err != nil {
		return err
	}
	defer pool.Shutdown()

	model, err := llmfactory.New(cfg.LLM).DefaultModel()
	if err != nil {
		return err
	}

	logger.KV(xlog.INFO,
		"status", "starting",
		"servers", pool.ServerNames(),
		"model", model.GetName(),
		"provider", model.GetProviderType())

	sink := bot.NewSink(client, channelID)
	b := bot.New(client, pool, model, sink, cfg.Agent, cfg.Bot)
	return b.Run(ctx)
}

// resolveChannel maps the configured team/channel names to a channel id.
// Name resolution failure falls back to the configured channel id; the
// startup fails fast only when no channel id can be determined at all.
func resolveChannel(ctx context.Context, client mattermost.Client, cfg *mattermost.Config) (string, error) {
	if cfg.Team != "" && cfg.Channel != "" {
		id, err := client.ResolveChannel(ctx, cfg.Team, cfg.Channel)
		if err == nil {
			return id, nil
		}
		logger.KV(xlog.WARNING,
			"reason", "channel_resolution",
			"team", cfg.Team,
			"channel", cfg.Channel,
			"err", err.Error())
	}
	if cfg.ChannelID != "" {
		return cfg.ChannelID, nil
	}
	return "", bot.ErrNoChannel
}
