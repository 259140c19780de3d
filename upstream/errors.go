package upstream

import (
	"github.com/cockroachdb/errors"
)

var (
	// ErrNoServers is returned when no configured server could be connected.
	ErrNoServers = errors.New("no tool servers connected")
	// ErrServerNotFound is returned when invoking a server absent from the
	// connected set.
	ErrServerNotFound = errors.New("server not found")
	// ErrToolNotFound is returned when a tool name resolves to nothing by
	// either qualified or short name.
	ErrToolNotFound = errors.New("tool not found")
)
