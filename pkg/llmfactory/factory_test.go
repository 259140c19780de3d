package llmfactory_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teamchat-ai/mcphost/pkg/llmfactory"
	"github.com/teamchat-ai/mcphost/pkg/llms"
)

func testConfig() *llmfactory.Config {
	return &llmfactory.Config{
		DefaultProvider: "anthropic",
		Providers: []*llmfactory.ProviderConfig{
			{
				Name:            "openai",
				APIType:         "OPENAI",
				Token:           "test-token",
				DefaultModel:    "gpt-4o",
				AvailableModels: []string{"gpt-4o", "gpt-4o-mini"},
			},
			{
				Name:            "anthropic",
				APIType:         "ANTHROPIC",
				Token:           "test-token",
				DefaultModel:    "claude-sonnet-4-20250514",
				AvailableModels: []string{"claude-sonnet-4-20250514"},
			},
		},
	}
}

func TestDefaultModel(t *testing.T) {
	f := llmfactory.New(testConfig())

	model, err := f.DefaultModel()
	require.NoError(t, err)
	assert.Equal(t, llms.ProviderAnthropic, model.GetProviderType())
	assert.Equal(t, "claude-sonnet-4-20250514", model.GetName())
}

func TestDefaultModel_FallsBackToFirstProvider(t *testing.T) {
	cfg := testConfig()
	cfg.DefaultProvider = ""
	f := llmfactory.New(cfg)

	model, err := f.DefaultModel()
	require.NoError(t, err)
	assert.Equal(t, llms.ProviderOpenAI, model.GetProviderType())
}

func TestDefaultModel_NoProviders(t *testing.T) {
	f := llmfactory.New(&llmfactory.Config{})
	_, err := f.DefaultModel()
	require.Error(t, err)
}

func TestModelByType(t *testing.T) {
	f := llmfactory.New(testConfig())

	model, err := f.ModelByType("OPENAI")
	require.NoError(t, err)
	assert.Equal(t, llms.ProviderOpenAI, model.GetProviderType())

	// cached instance on the second call
	again, err := f.ModelByType("OPENAI")
	require.NoError(t, err)
	assert.Same(t, model, again)

	_, err = f.ModelByType("BEDROCK")
	require.Error(t, err)
}

func TestModelByName(t *testing.T) {
	f := llmfactory.New(testConfig())

	model, err := f.ModelByName("gpt-4o-mini")
	require.NoError(t, err)
	assert.Equal(t, llms.ProviderOpenAI, model.GetProviderType())
	assert.Equal(t, "gpt-4o-mini", model.GetName())

	// unknown names fall back to the default provider
	model, err = f.ModelByName("unknown-model")
	require.NoError(t, err)
	assert.Equal(t, llms.ProviderAnthropic, model.GetProviderType())
}

func TestCreateLLM_UnsupportedType(t *testing.T) {
	_, err := llmfactory.CreateLLM(&llmfactory.ProviderConfig{
		Name:    "cloudflare",
		APIType: "CLOUDFLARE",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported provider type")
}

func TestFindModel(t *testing.T) {
	cfg := &llmfactory.ProviderConfig{
		DefaultModel:    "gpt-4o",
		AvailableModels: []string{"gpt-4o", "gpt-4o-mini"},
	}
	assert.Equal(t, "gpt-4o-mini", cfg.FindModel("missing", "gpt-4o-mini"))
	assert.Equal(t, "gpt-4o", cfg.FindModel("missing"))
	assert.Equal(t, "gpt-4o", cfg.FindModel())
}
