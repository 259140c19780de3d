package bot

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"
	"github.com/teamchat-ai/mcphost/mattermost"
)

// ErrNoChannel is returned when neither the request nor the configuration
// yields a channel to post into.
var ErrNoChannel = errors.New("no channel to post to")

// Sink posts responses back into the chat backend. All posts belonging to
// one inbound message share the same root id, so the backend threads them
// together.
type Sink struct {
	client           mattermost.Client
	defaultChannelID string
}

// NewSink returns a sink falling back to defaultChannelID when a post has
// no channel.
func NewSink(client mattermost.Client, defaultChannelID string) *Sink {
	return &Sink{
		client:           client,
		defaultChannelID: defaultChannelID,
	}
}

// Post sends text into a channel, threaded under rootID when set. An empty
// channelID falls back to the configured default channel.
func (s *Sink) Post(ctx context.Context, channelID, text, rootID string) error {
	if channelID == "" {
		if s.defaultChannelID == "" {
			return errors.WithStack(ErrNoChannel)
		}
		logger.ContextKV(ctx, xlog.WARNING,
			"reason", "default_channel_fallback",
			"channel_id", s.defaultChannelID)
		channelID = s.defaultChannelID
	}
	return s.client.PostMessage(ctx, channelID, text, rootID)
}
