// Package mattermost adapts the Mattermost REST and websocket APIs to the
// narrow surface the bot needs: posting, thread retrieval, channel
// resolution, and a push feed of new posts.
package mattermost

import (
	"context"
	"encoding/json"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"
	"github.com/mattermost/mattermost/server/public/model"
)

var logger = xlog.NewPackageLogger("github.com/teamchat-ai/mcphost", "mattermost")

// PostTypeJoinChannel marks backend system notifications for channel joins.
const PostTypeJoinChannel = model.PostTypeJoinChannel

// Post is the slice of a Mattermost post the bot cares about.
type Post struct {
	ID        string
	ChannelID string
	RootID    string
	UserID    string
	Message   string
	Type      string
	CreateAt  int64
}

// Client is the chat backend surface consumed by the bot.
type Client interface {
	// BotUserID returns the authenticated bot's user id.
	BotUserID() string
	// PostMessage creates a post; rootID threads it under an existing post.
	PostMessage(ctx context.Context, channelID, message, rootID string) error
	// GetThread returns every post of a thread ordered by creation time.
	GetThread(ctx context.Context, rootID string) ([]Post, error)
	// ResolveChannel maps a team and channel name to a channel id.
	ResolveChannel(ctx context.Context, teamName, channelName string) (string, error)
	// Listen starts the websocket feed and returns a channel of new posts.
	// The channel is closed when ctx is done or the connection drops.
	Listen(ctx context.Context) (<-chan Post, error)
}

// Config holds the connection settings for one Mattermost instance.
type Config struct {
	URL     string `json:"url" yaml:"url" validate:"required"`
	Token   string `json:"token" yaml:"token" validate:"required"`
	Team    string `json:"team,omitempty" yaml:"team,omitempty"`
	Channel string `json:"channel,omitempty" yaml:"channel,omitempty"`

	// ChannelID is the fallback when name resolution fails.
	ChannelID string `json:"channel_id,omitempty" yaml:"channel_id,omitempty"`
}

type client struct {
	api       *model.Client4
	wsURL     string
	token     string
	botUserID string
}

var _ Client = (*client)(nil)

// New authenticates against the server and returns a Client.
func New(ctx context.Context, cfg *Config) (Client, error) {
	api := model.NewAPIv4Client(cfg.URL)
	api.SetToken(cfg.Token)

	me, _, err := api.GetMe(ctx, "")
	if err != nil {
		return nil, errors.WithMessage(err, "failed to authenticate with Mattermost")
	}

	logger.ContextKV(ctx, xlog.INFO,
		"status", "authenticated",
		"user", me.Username,
		"user_id", me.Id)

	return &client{
		api:       api,
		wsURL:     websocketURL(cfg.URL),
		token:     cfg.Token,
		botUserID: me.Id,
	}, nil
}

func websocketURL(apiURL string) string {
	switch {
	case strings.HasPrefix(apiURL, "https://"):
		return "wss://" + strings.TrimPrefix(apiURL, "https://")
	case strings.HasPrefix(apiURL, "http://"):
		return "ws://" + strings.TrimPrefix(apiURL, "http://")
	}
	return apiURL
}

func (c *client) BotUserID() string {
	return c.botUserID
}

func (c *client) PostMessage(ctx context.Context, channelID, message, rootID string) error {
	post := &model.Post{
		ChannelId: channelID,
		Message:   message,
		RootId:    rootID,
	}
	_, _, err := c.api.CreatePost(ctx, post)
	if err != nil {
		return errors.WithMessagef(err, "failed to post to channel %q", channelID)
	}
	return nil
}

func (c *client) GetThread(ctx context.Context, rootID string) ([]Post, error) {
	list, _, err := c.api.GetPostThread(ctx, rootID, "", false)
	if err != nil {
		return nil, errors.WithMessagef(err, "failed to fetch thread %q", rootID)
	}
	return toPosts(list), nil
}

// toPosts flattens a post list into creation-time order. The API returns
// the thread as an unordered map.
func toPosts(list *model.PostList) []Post {
	posts := make([]Post, 0, len(list.Posts))
	for _, p := range list.Posts {
		posts = append(posts, Post{
			ID:        p.Id,
			ChannelID: p.ChannelId,
			RootID:    p.RootId,
			UserID:    p.UserId,
			Message:   p.Message,
			Type:      p.Type,
			CreateAt:  p.CreateAt,
		})
	}
	sort.SliceStable(posts, func(i, j int) bool {
		return posts[i].CreateAt < posts[j].CreateAt
	})
	return posts
}

func (c *client) ResolveChannel(ctx context.Context, teamName, channelName string) (string, error) {
	teams, _, err := c.api.GetAllTeams(ctx, "", 0, 200)
	if err != nil {
		return "", errors.WithMessage(err, "failed to list teams")
	}

	var team *model.Team
	for _, t := range teams {
		if t.Name == teamName || t.DisplayName == teamName {
			team = t
			break
		}
	}
	if team == nil {
		return "", errors.Newf("team %q not found", teamName)
	}

	channel, _, err := c.api.GetChannelByName(ctx, channelName, team.Id, "")
	if err != nil {
		return "", errors.WithMessagef(err, "channel %q not found in team %q", channelName, teamName)
	}
	return channel.Id, nil
}

func (c *client) Listen(ctx context.Context) (<-chan Post, error) {
	ws, err := model.NewWebSocketClient4(c.wsURL, c.token)
	if err != nil {
		return nil, errors.WithMessage(err, "failed to open websocket")
	}
	ws.Listen()

	out := make(chan Post, 16)
	go func() {
		defer close(out)
		defer ws.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-ws.EventChannel:
				if !ok {
					logger.KV(xlog.WARNING, "reason", "websocket_closed")
					return
				}
				if event.EventType() != model.WebsocketEventPosted {
					continue
				}
				post, err := decodePostEvent(event)
				if err != nil {
					logger.KV(xlog.WARNING,
						"reason", "decode_post",
						"err", err.Error())
					continue
				}
				select {
				case out <- post:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// decodePostEvent extracts the post carried as a JSON string in the
// websocket event payload.
func decodePostEvent(event *model.WebSocketEvent) (Post, error) {
	raw, ok := event.GetData()["post"].(string)
	if !ok {
		return Post{}, errors.New("posted event without post payload")
	}
	var p model.Post
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return Post{}, errors.WithMessage(err, "failed to decode post payload")
	}
	return Post{
		ID:        p.Id,
		ChannelID: p.ChannelId,
		RootID:    p.RootId,
		UserID:    p.UserId,
		Message:   p.Message,
		Type:      p.Type,
		CreateAt:  p.CreateAt,
	}, nil
}
