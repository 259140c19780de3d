// Package bot wires the chat backend to the agent: it rebuilds thread
// context, routes commands, runs the agent loop, and posts responses back
// into the originating thread.
package bot

import (
	"context"

	"github.com/effective-security/xlog"
	"github.com/teamchat-ai/mcphost/mattermost"
	"github.com/teamchat-ai/mcphost/pkg/llms"
)

var logger = xlog.NewPackageLogger("github.com/teamchat-ai/mcphost", "bot")

// ContextBuilder reconstructs the conversational history of a thread. No
// history is cached: every inbound request rebuilds from the backend.
type ContextBuilder struct {
	client    mattermost.Client
	botUserID string
}

// NewContextBuilder returns a builder attributing posts by botUserID to
// the assistant role.
func NewContextBuilder(client mattermost.Client, botUserID string) *ContextBuilder {
	return &ContextBuilder{
		client:    client,
		botUserID: botUserID,
	}
}

// Build fetches the thread and maps its posts to model messages in
// creation-time order. Channel-join notifications and empty posts are
// dropped, as is the post identified by excludeID (the triggering post,
// which the caller hands to the model separately). An empty rootID means
// a fresh, non-threaded message: the history is empty and the
// conversation starts now.
func (b *ContextBuilder) Build(ctx context.Context, rootID, excludeID string) ([]llms.Message, error) {
	if rootID == "" {
		return nil, nil
	}

	posts, err := b.client.GetThread(ctx, rootID)
	if err != nil {
		return nil, err
	}

	messages := make([]llms.Message, 0, len(posts))
	for _, p := range posts {
		if p.Type == mattermost.PostTypeJoinChannel || p.Message == "" {
			continue
		}
		if excludeID != "" && p.ID == excludeID {
			continue
		}
		role := llms.RoleHuman
		if p.UserID == b.botUserID {
			role = llms.RoleAI
		}
		messages = append(messages, llms.MessageFromTextParts(role, p.Message))
	}

	logger.ContextKV(ctx, xlog.DEBUG,
		"status", "thread_context",
		"root_id", rootID,
		"posts", len(posts),
		"messages", len(messages))
	return messages, nil
}
