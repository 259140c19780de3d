package googleai

import (
	"os"
)

const (
	apiKeyEnvVarName = "GOOGLE_API_KEY" //nolint:gosec
	defaultModel     = "gemini-2.0-flash"
)

// Options holds the configuration for the Google AI client.
type Options struct {
	APIKey       string
	DefaultModel string
}

// Option is a functional option for the Google AI client.
type Option func(*Options)

// WithAPIKey passes the API key. If unset, the GOOGLE_API_KEY environment
// variable is used.
func WithAPIKey(apiKey string) Option {
	return func(opts *Options) {
		opts.APIKey = apiKey
	}
}

// WithDefaultModel passes the model name used unless overridden per call.
func WithDefaultModel(model string) Option {
	return func(opts *Options) {
		opts.DefaultModel = model
	}
}

// DefaultOptions returns the default options, reading the API key from the
// environment.
func DefaultOptions() Options {
	return Options{
		APIKey:       os.Getenv(apiKeyEnvVarName),
		DefaultModel: defaultModel,
	}
}
