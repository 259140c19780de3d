package openai

import (
	"os"
)

// APIType distinguishes the OpenAI-compatible endpoints this adapter supports.
type APIType string

const (
	APITypeOpenAI APIType = "OPEN_AI"
	APITypeAzure  APIType = "AZURE"
)

const (
	tokenEnvVarName = "OPENAI_API_KEY" //nolint:gosec
	defaultModel    = "gpt-4o"
)

// Options holds the configuration for the OpenAI client.
type Options struct {
	Token      string
	Model      string
	BaseURL    string
	APIType    APIType
	APIVersion string
}

// Option is a functional option for the OpenAI client.
type Option func(*Options)

// WithToken passes the API token. If unset, the OPENAI_API_KEY
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

// WithBaseURL passes a custom endpoint, required for Azure and for
// OpenAI-compatible gateways.
func WithBaseURL(baseURL string) Option {
	return func(opts *Options) {
		opts.BaseURL = baseURL
	}
}

// WithAPIType selects between the public OpenAI API and Azure OpenAI.
func WithAPIType(apiType APIType) Option {
	return func(opts *Options) {
		opts.APIType = apiType
	}
}

// WithAPIVersion passes the Azure API version.
func WithAPIVersion(apiVersion string) Option {
	return func(opts *Options) {
		opts.APIVersion = apiVersion
	}
}

// DefaultOptions returns the default options, reading the token from the
// environment.
func DefaultOptions() Options {
	return Options{
		Token:   os.Getenv(tokenEnvVarName),
		Model:   defaultModel,
		APIType: APITypeOpenAI,
	}
}
