package llmfactory

import (
	"slices"

	"github.com/effective-security/x/configloader"
)

// Config describes the set of LLM providers available to the host.
type Config struct {
	// Providers specifies the list of providers to use
	Providers []*ProviderConfig `json:"providers" yaml:"providers"`
	// DefaultProvider specifies the default provider to use
	DefaultProvider string `json:"default_provider" yaml:"default_provider"`
}

// ProviderConfig describes a single LLM provider.
type ProviderConfig struct {
	Name         string `json:"name" yaml:"name" validate:"required"`
	Token        string `json:"token,omitempty" yaml:"token,omitempty"`
	DefaultModel string `json:"default_model,omitempty" yaml:"default_model,omitempty"`
	// AvailableModels lists models this provider can serve, used by
	// ModelByName to route a preferred model to its provider.
	AvailableModels []string `json:"available_models,omitempty" yaml:"available_models,omitempty"`
	// APIType specifies the provider kind:
	// OPENAI|AZURE|ANTHROPIC|GOOGLEAI
	APIType    string `json:"api_type,omitempty" yaml:"api_type,omitempty"`
	BaseURL    string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	APIVersion string `json:"api_version,omitempty" yaml:"api_version,omitempty"`
}

// FindModel returns the first preferred model this provider can serve,
// falling back to the provider's default model.
func (c *ProviderConfig) FindModel(models ...string) string {
	for _, model := range models {
		if slices.Contains(c.AvailableModels, model) {
			return model
		}
	}
	return c.DefaultModel
}

// LoadConfig from file
func LoadConfig(file string) (*Config, error) {
	cfg := new(Config)
	if file == "" {
		return cfg, nil
	}

	err := configloader.UnmarshalAndExpand(file, cfg)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}
