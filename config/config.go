// Package config loads and validates the host configuration from a yaml
// or json file with ${ENV} expansion.
package config

import (
	"github.com/cockroachdb/errors"
	"github.com/effective-security/x/configloader"
	"github.com/go-playground/validator/v10"
	"github.com/teamchat-ai/mcphost/agent"
	"github.com/teamchat-ai/mcphost/bot"
	"github.com/teamchat-ai/mcphost/mattermost"
	"github.com/teamchat-ai/mcphost/pkg/llmfactory"
	"github.com/teamchat-ai/mcphost/upstream"
)

// Config is the root configuration document.
type Config struct {
	Mattermost *mattermost.Config `json:"mattermost" yaml:"mattermost" validate:"required"`
	LLM        *llmfactory.Config `json:"llm" yaml:"llm" validate:"required"`
	// Servers maps server name to its launch spec.
	Servers map[string]upstream.ServerConfig `json:"mcp_servers" yaml:"mcp_servers" validate:"required,min=1,dive"`
	Agent   agent.Config                     `json:"agent,omitempty" yaml:"agent,omitempty"`
	Bot     bot.Config                       `json:"bot,omitempty" yaml:"bot,omitempty"`
}

// Load reads, expands, and validates the configuration file.
func Load(file string) (*Config, error) {
	cfg := new(Config)
	if err := configloader.UnmarshalAndExpand(file, cfg); err != nil {
		return nil, errors.WithMessagef(err, "failed to load config %q", file)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(cfg); err != nil {
		return nil, errors.WithMessagef(err, "invalid config %q", file)
	}
	return cfg, nil
}
