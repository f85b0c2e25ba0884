package app

import (
	"log/slog"

	"supportkb/internal/config"
	wikiSvc "supportkb/internal/domain/services/wiki"
	"supportkb/internal/locales"
	"supportkb/internal/service/anchors"
	"supportkb/internal/service/importer"
	"supportkb/internal/service/importer/converter"
	"supportkb/internal/service/l10n"
	"supportkb/internal/service/markup"
	"supportkb/internal/service/wiki"
)

// Services holds every domain service
type Services struct {
	Rules      *locales.Rules
	Graph      wikiSvc.VersionGraph
	State      wikiSvc.LocalizationState
	Drafts     wikiSvc.DraftService
	Resolver   wikiSvc.AnchorResolver
	Translator wikiSvc.Translator
	Importer   wikiSvc.Importer
}

// NewServices wires the domain services onto storage and the translation service
func NewServices(
	storage *Storage,
	translation wikiSvc.TranslationService,
	rules *locales.Rules,
	cfg *config.Config,
	logger *slog.Logger,
) *Services {
	renderer := markup.NewRenderer(logger)

	graph := wiki.NewVersionGraph(storage.Documents, storage.Revisions, storage.Drafts, storage.TxManager, renderer, rules, logger)
	state := wiki.NewLocalizationState(storage.Documents, storage.Revisions, rules, logger)
	drafts := wiki.NewDraftService(storage.Documents, storage.Drafts, rules, logger)

	cache := anchors.NewAnchorMapCache(storage.AnchorRecords, logger)
	resolver := anchors.NewResolver(renderer, translation, storage.Documents, storage.Revisions, cache, cfg.TranslationTimeout, logger)
	translator := l10n.NewTranslator(graph, state, translation, resolver, rules, cfg.MachineTranslatorID, logger)

	return &Services{
		Rules:      rules,
		Graph:      graph,
		State:      state,
		Drafts:     drafts,
		Resolver:   resolver,
		Translator: translator,
		Importer:   importer.NewImporter(graph, converter.NewRegistry(), rules, logger),
	}
}
