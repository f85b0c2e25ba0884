package llm

import (
	"fmt"

	llmprovider "github.com/haowjy/meridian-llm-go"
	"github.com/haowjy/meridian-llm-go/providers/anthropic"
	"github.com/haowjy/meridian-llm-go/providers/lorem"
	"github.com/haowjy/meridian-llm-go/providers/openrouter"

	"supportkb/internal/config"
)

// ProviderFactory creates LLM provider instances from configuration
type ProviderFactory struct {
	config *config.Config
}

// NewProviderFactory creates a new provider factory
func NewProviderFactory(cfg *config.Config) *ProviderFactory {
	return &ProviderFactory{
		config: cfg,
	}
}

// GetProvider returns a provider instance for the given provider name
//
// Supported providers:
//   - "anthropic" - Claude models via Anthropic API
//   - "openrouter" - Multiple providers via OpenRouter
//   - "lorem" - Mock provider for local runs (no API key required)
func (f *ProviderFactory) GetProvider(providerName string) (llmprovider.Provider, error) {
	switch providerName {
	case "anthropic":
		return f.createAnthropicProvider()
	case "openrouter":
		return f.createOpenRouterProvider()
	case "lorem":
		return lorem.NewProvider(), nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", providerName)
	}
}

// TranslationModel resolves the provider and model used for machine translation.
// An explicit TRANSLATION_PROVIDER wins over the one inferred from the model name.
func (f *ProviderFactory) TranslationModel() (*ModelInfo, error) {
	if f.config.TranslationProvider != "" {
		return &ModelInfo{Provider: f.config.TranslationProvider, Model: f.config.TranslationModel}, nil
	}
	return ParseModel(f.config.TranslationModel)
}

// TranslationProvider returns the provider configured for machine translation
func (f *ProviderFactory) TranslationProvider() (llmprovider.Provider, *ModelInfo, error) {
	info, err := f.TranslationModel()
	if err != nil {
		return nil, nil, err
	}
	provider, err := f.GetProvider(info.Provider)
	if err != nil {
		return nil, nil, err
	}
	return provider, info, nil
}

func (f *ProviderFactory) createAnthropicProvider() (llmprovider.Provider, error) {
	if f.config.AnthropicAPIKey == "" {
		return nil, fmt.Errorf("ANTHROPIC_API_KEY environment variable not set")
	}

	provider, err := anthropic.NewProvider(f.config.AnthropicAPIKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create Anthropic provider: %w", err)
	}
	return provider, nil
}

func (f *ProviderFactory) createOpenRouterProvider() (llmprovider.Provider, error) {
	if f.config.OpenRouterAPIKey == "" {
		return nil, fmt.Errorf("OPENROUTER_API_KEY environment variable not set")
	}

	provider, err := openrouter.NewProvider(f.config.OpenRouterAPIKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create OpenRouter provider: %w", err)
	}
	return provider, nil
}
