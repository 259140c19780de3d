// Package upstream manages connections to MCP tool servers: a pool of
// stdio sessions connected at startup, aggregate tool discovery, and a
// registry that namespaces every discovered tool as "server.tool".
package upstream

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"
	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
)

var logger = xlog.NewPackageLogger("github.com/teamchat-ai/mcphost", "upstream")

// State is the lifecycle state of a server connection.
type State int

const (
	StateDisconnected State = iota
	StateConnected
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateConnected:
		return "connected"
	case StateFailed:
		return "failed"
	}
	return "disconnected"
}

// ServerConfig describes how to launch one tool server.
type ServerConfig struct {
	Command string            `json:"command" yaml:"command" validate:"required"`
	Args    []string          `json:"args,omitempty" yaml:"args,omitempty"`
	Env     map[string]string `json:"env,omitempty" yaml:"env,omitempty"`
	// Type selects the transport; only "stdio" is supported. Empty means
	// stdio.
	Type string `json:"type,omitempty" yaml:"type,omitempty"`
}

// Session is the subset of the MCP client used by a connection.
type Session interface {
	Initialize(ctx context.Context, request mcp.InitializeRequest) (*mcp.InitializeResult, error)
	ListTools(ctx context.Context, request mcp.ListToolsRequest) (*mcp.ListToolsResult, error)
	CallTool(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error)
	ListResources(ctx context.Context, request mcp.ListResourcesRequest) (*mcp.ListResourcesResult, error)
	ListPrompts(ctx context.Context, request mcp.ListPromptsRequest) (*mcp.ListPromptsResult, error)
	Close() error
}

// Dialer launches a server process and returns a live session.
type Dialer func(cfg ServerConfig) (Session, error)

// StdioDialer launches the server as a child process speaking MCP over
// stdin/stdout.
func StdioDialer(cfg ServerConfig) (Session, error) {
	env := make([]string, 0, len(cfg.Env))
	for k, v := range cfg.Env {
		env = append(env, k+"="+v)
	}
	return client.NewStdioMCPClient(cfg.Command, env, cfg.Args...)
}

// Conn is one live session to a single tool server. It is owned by the
// Pool; callers reach it through Pool methods.
type Conn struct {
	name    string
	cfg     ServerConfig
	dial    Dialer
	session Session
	state   State
}

// NewConn returns an unconnected Conn.
func NewConn(name string, cfg ServerConfig, dial Dialer) *Conn {
	return &Conn{
		name:  name,
		cfg:   cfg,
		dial:  dial,
		state: StateDisconnected,
	}
}

// Name returns the configured server name.
func (c *Conn) Name() string {
	return c.name
}

// State returns the connection state.
func (c *Conn) State() State {
	return c.state
}

// Connect launches the server and performs the MCP handshake. On failure
// the connection transitions to StateFailed and stays out of the pool.
func (c *Conn) Connect(ctx context.Context) error {
	session, err := c.dial(c.cfg)
	if err != nil {
		c.state = StateFailed
		return errors.WithMessagef(err, "failed to launch server %q", c.name)
	}

	initReq := mcp.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcp.Implementation{
		Name:    "mcphost",
		Version: "1.0",
	}
	res, err := session.Initialize(ctx, initReq)
	if err != nil {
		_ = session.Close()
		c.state = StateFailed
		return errors.WithMessagef(err, "failed to initialize server %q", c.name)
	}

	logger.ContextKV(ctx, xlog.INFO,
		"status", "connected",
		"server", c.name,
		"server_name", res.ServerInfo.Name,
		"server_version", res.ServerInfo.Version)

	c.session = session
	c.state = StateConnected
	return nil
}

// ListTools returns the tools the server exposes.
func (c *Conn) ListTools(ctx context.Context) ([]mcp.Tool, error) {
	res, err := c.session.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return nil, errors.WithMessagef(err, "failed to list tools on server %q", c.name)
	}
	return res.Tools, nil
}

// ListResources returns the resources the server exposes.
func (c *Conn) ListResources(ctx context.Context) ([]mcp.Resource, error) {
	res, err := c.session.ListResources(ctx, mcp.ListResourcesRequest{})
	if err != nil {
		return nil, errors.WithMessagef(err, "failed to list resources on server %q", c.name)
	}
	return res.Resources, nil
}

// ListPrompts returns the prompt templates the server exposes.
func (c *Conn) ListPrompts(ctx context.Context) ([]mcp.Prompt, error) {
	res, err := c.session.ListPrompts(ctx, mcp.ListPromptsRequest{})
	if err != nil {
		return nil, errors.WithMessagef(err, "failed to list prompts on server %q", c.name)
	}
	return res.Prompts, nil
}

// CallTool invokes a tool by its short name with already-parsed arguments.
// A tool-level failure is reported through Result.IsError, not the error
// return, so callers can feed it back to the model.
func (c *Conn) CallTool(ctx context.Context, tool string, args map[string]any) (*Result, error) {
	req := mcp.CallToolRequest{}
	req.Params.Name = tool
	req.Params.Arguments = args

	res, err := c.session.CallTool(ctx, req)
	if err != nil {
		return nil, errors.WithMessagef(err, "failed to call tool %q on server %q", tool, c.name)
	}
	return &Result{
		Content: resultText(res),
		IsError: res.IsError,
	}, nil
}

// Close terminates the session. Safe on unconnected connections.
func (c *Conn) Close() error {
	if c.session == nil {
		return nil
	}
	err := c.session.Close()
	c.session = nil
	c.state = StateDisconnected
	if err != nil {
		return errors.WithMessagef(err, "failed to close server %q", c.name)
	}
	return nil
}

// Result is the content payload of one tool invocation.
type Result struct {
	Content string
	IsError bool
}

// resultText flattens the textual content blocks of a tool result.
func resultText(res *mcp.CallToolResult) string {
	var sb strings.Builder
	for _, content := range res.Content {
		if tc, ok := content.(mcp.TextContent); ok {
			if sb.Len() > 0 {
				sb.WriteString("\n")
			}
			sb.WriteString(tc.Text)
		}
	}
	return sb.String()
}
