package llm

import (
	"fmt"
	"log/slog"

	"github.com/haowjy/meridian-llm-go/providers/lorem"

	"supportkb/internal/capabilities"
	"supportkb/internal/config"
	wikiSvc "supportkb/internal/domain/services/wiki"
	"supportkb/internal/service/translation"
)

// loremModel is used when no real provider can be created outside prod
const loremModel = "lorem-fast"

// SetupTranslation builds the translation service on the configured provider.
// Outside prod a missing API key falls back to the lorem provider so the
// server still starts; its output never parses, so translations fail cleanly.
func SetupTranslation(cfg *config.Config, logger *slog.Logger) (wikiSvc.TranslationService, error) {
	factory := NewProviderFactory(cfg)

	provider, info, err := factory.TranslationProvider()
	if err != nil {
		if cfg.Environment == "prod" {
			return nil, fmt.Errorf("translation provider: %w", err)
		}
		logger.Warn("translation provider not available, using lorem provider",
			"provider", cfg.TranslationProvider,
			"model", cfg.TranslationModel,
			"error", err,
		)
		provider = lorem.NewProvider()
		info = &ModelInfo{Provider: "lorem", Model: loremModel}
	} else {
		logger.Info("translation provider available",
			"name", info.Provider,
			"model", info.Model,
		)
	}

	registry, err := capabilities.NewRegistry()
	if err != nil {
		return nil, fmt.Errorf("load model capabilities: %w", err)
	}
	maxTokens := 0
	if caps, err := registry.GetModelCapabilities(info.Provider, info.Model); err == nil {
		maxTokens = caps.MaxOutput
	} else {
		logger.Warn("no capabilities for translation model, using provider default output limit",
			"provider", info.Provider,
			"model", info.Model,
		)
	}

	opts := translation.DefaultOptions()
	opts.Timeout = cfg.TranslationTimeout
	opts.Attempts = cfg.TranslationRetries

	generator := translation.NewProviderGenerator(provider, info.Model, maxTokens)
	return translation.NewService(generator, opts, logger), nil
}
