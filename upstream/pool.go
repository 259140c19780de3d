package upstream

import (
	"context"
	"sort"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"
	"github.com/mark3labs/mcp-go/mcp"
)

// Pool owns the set of server connections. Connections are established
// once at startup and treated as immutable while serving; mutation happens
// only in ConnectAll and Shutdown.
type Pool struct {
	conns     []*Conn
	connected []*Conn
	byName    map[string]*Conn
}

// NewPool builds a pool from server configs. Config maps are unordered, so
// servers are arranged by name to make connection order, and with it
// short-name tie-breaks, deterministic. Servers with an unknown transport
// type are skipped with a warning.
func NewPool(configs map[string]ServerConfig, dial Dialer) *Pool {
	names := make([]string, 0, len(configs))
	for name := range configs {
		names = append(names, name)
	}
	sort.Strings(names)

	p := &Pool{
		byName: make(map[string]*Conn, len(configs)),
	}
	for _, name := range names {
		cfg := configs[name]
		if cfg.Type != "" && cfg.Type != "stdio" {
			logger.KV(xlog.WARNING,
				"reason", "unsupported_transport",
				"server", name,
				"type", cfg.Type)
			continue
		}
		p.conns = append(p.conns, NewConn(name, cfg, dial))
	}
	return p
}

// ConnectAll connects every configured server. A failure on one server is
// logged and does not abort the rest; the pool is usable as long as at
// least one server connects. With zero connected servers it returns
// ErrNoServers.
func (p *Pool) ConnectAll(ctx context.Context) error {
	for _, conn := range p.conns {
		if err := conn.Connect(ctx); err != nil {
			logger.ContextKV(ctx, xlog.ERROR,
				"reason", "connect",
				"server", conn.Name(),
				"err", err.Error())
			continue
		}
		p.connected = append(p.connected, conn)
		p.byName[conn.Name()] = conn
	}

	if len(p.connected) == 0 {
		return errors.WithStack(ErrNoServers)
	}

	logger.ContextKV(ctx, xlog.INFO,
		"status", "pool_ready",
		"connected", len(p.connected),
		"configured", len(p.conns))
	return nil
}

// ServerNames returns connected server names in connection order.
func (p *Pool) ServerNames() []string {
	names := make([]string, 0, len(p.connected))
	for _, conn := range p.connected {
		names = append(names, conn.Name())
	}
	return names
}

// Conn returns the connection for a server, or ErrServerNotFound.
func (p *Pool) Conn(server string) (*Conn, error) {
	conn, ok := p.byName[server]
	if !ok {
		return nil, errors.WithMessagef(ErrServerNotFound, "%q", server)
	}
	return conn, nil
}

// ServerTools is one server's contribution to a Snapshot.
type ServerTools struct {
	Server string
	Tools  []mcp.Tool
}

// Snapshot is the result of fanning tool discovery out to every connected
// server. A listing failure does not hide the server: it appears in Errors
// keyed by name, so callers can distinguish "no tools" from "listing
// failed".
type Snapshot struct {
	Servers []ServerTools
	Errors  map[string]error
}

// ListTools fans out to every connected server and collects each server's
// tool list in connection order. Per-server failures are recorded in the
// snapshot, not returned.
func (p *Pool) ListTools(ctx context.Context) *Snapshot {
	snap := &Snapshot{
		Errors: make(map[string]error),
	}
	for _, conn := range p.connected {
		tools, err := conn.ListTools(ctx)
		if err != nil {
			logger.ContextKV(ctx, xlog.WARNING,
				"reason", "list_tools",
				"server", conn.Name(),
				"err", err.Error())
			snap.Errors[conn.Name()] = err
			continue
		}
		snap.Servers = append(snap.Servers, ServerTools{
			Server: conn.Name(),
			Tools:  tools,
		})
	}
	return snap
}

// Invoke calls a tool on a named server. The server must be in the
// connected set; transport errors propagate, tool-level errors come back
// in the Result.
func (p *Pool) Invoke(ctx context.Context, server, tool string, args map[string]any) (*Result, error) {
	conn, err := p.Conn(server)
	if err != nil {
		return nil, err
	}
	return conn.CallTool(ctx, tool, args)
}

// Shutdown disconnects every connection in reverse connection order,
// best-effort.
func (p *Pool) Shutdown() {
	for i := len(p.connected) - 1; i >= 0; i-- {
		conn := p.connected[i]
		if err := conn.Close(); err != nil {
			logger.KV(xlog.WARNING,
				"reason", "close",
				"server", conn.Name(),
				"err", err.Error())
		}
	}
	p.connected = nil
	p.byName = map[string]*Conn{}
}
