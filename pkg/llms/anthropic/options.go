package anthropic

import (
	"os"
)

const (
	tokenEnvVarName = "ANTHROPIC_API_KEY" //nolint:gosec
	defaultModel    = "claude-sonnet-4-20250514"
)

// Options holds the configuration for the Anthropic client.
type Options struct {
	Token   string
	Model   string
	BaseURL string
}

// Option is a functional option for the Anthropic client.
type Option func(*Options)

// WithToken passes the API token. If unset, the ANTHROPIC_API_KEY
// environment variable is used.
func WithToken(token string) Option {
	return func(opts *Options) {
		opts.Token = token
	}
}

// WithModel passes the model name used unless overridden per call.
func WithModel(model string) Option {
	return func(opts *Options) {
		opts.Model = model
	}
}

// WithBaseURL passes a custom API endpoint.
func WithBaseURL(baseURL string) Option {
	return func(opts *Options) {
		opts.BaseURL = baseURL
	}
}

// DefaultOptions returns the default options, reading the token from the
// environment.
func DefaultOptions() Options {
	return Options{
		Token: os.Getenv(tokenEnvVarName),
		Model: defaultModel,
	}
}
