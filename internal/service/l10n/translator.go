// Package l10n is the machine translation pipeline: it turns the latest
// localizable revision of an origin document into translation revisions.
package l10n

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"supportkb/internal/domain"
	models "supportkb/internal/domain/models/wiki"
	wikiSvc "supportkb/internal/domain/services/wiki"
	"supportkb/internal/locales"
)

// maxConcurrentLocales bounds TranslateAll's parallel provider usage
const maxConcurrentLocales = 3

const autoApproveComment = "Automatically approved machine translation"

// translator implements the Translator interface
type translator struct {
	graph       wikiSvc.VersionGraph
	state       wikiSvc.LocalizationState
	translation wikiSvc.TranslationService
	resolver    wikiSvc.AnchorResolver
	rules       *locales.Rules
	machineUser string
	logger      *slog.Logger
}

// NewTranslator creates the translation pipeline. machineUser is recorded as
// creator and reviewer when a request carries no creator.
func NewTranslator(
	graph wikiSvc.VersionGraph,
	state wikiSvc.LocalizationState,
	translation wikiSvc.TranslationService,
	resolver wikiSvc.AnchorResolver,
	rules *locales.Rules,
	machineUser string,
	logger *slog.Logger,
) wikiSvc.Translator {
	return &translator{
		graph:       graph,
		state:       state,
		translation: translation,
		resolver:    resolver,
		rules:       rules,
		machineUser: machineUser,
		logger:      logger,
	}
}

// TranslateDocument always writes a new translation revision, even when the
// existing translation is up to date. TranslateAll is the selective variant.
func (t *translator) TranslateDocument(ctx context.Context, req *wikiSvc.TranslateDocumentRequest) (*wikiSvc.TranslateDocumentResult, error) {
	if !t.rules.MachineTranslationEnabled(req.TargetLocale) {
		return nil, domain.NewValidationError(fmt.Sprintf("machine translation is not enabled for locale %s", req.TargetLocale))
	}

	origin, source, err := t.loadSource(ctx, req.DocumentID)
	if err != nil {
		return nil, err
	}

	existing, err := t.existingTranslation(ctx, origin.ID, req.TargetLocale)
	if err != nil {
		return nil, err
	}

	return t.translate(ctx, origin, source, existing, req.TargetLocale, t.creator(req.CreatorID))
}

func (t *translator) TranslateAll(ctx context.Context, documentID int64, creatorID string) (*wikiSvc.TranslateAllResult, error) {
	origin, source, err := t.loadSource(ctx, documentID)
	if err != nil {
		return nil, err
	}
	creator := t.creator(creatorID)

	var targets []string
	for _, code := range t.rules.TranslationLocales() {
		if t.rules.MachineTranslationEnabled(code) {
			targets = append(targets, code)
		}
	}

	var (
		mu      sync.Mutex
		skipped = make(map[string]bool)
		failed  = make(map[string]string)
		done    = make([]*wikiSvc.TranslateDocumentResult, len(targets))
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentLocales)
	for i, locale := range targets {
		g.Go(func() error {
			res, skip, err := t.translateIfNeeded(gctx, origin, source, locale, creator)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				// Cancellation of the whole run is the only fatal error
				if ctx.Err() != nil {
					return ctx.Err()
				}
				t.logger.Warn("machine translation failed",
					"document_id", origin.ID,
					"locale", locale,
					"error", err,
				)
				failed[locale] = err.Error()
			case skip:
				skipped[locale] = true
			default:
				done[i] = res
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := &wikiSvc.TranslateAllResult{
		Translated: []wikiSvc.TranslateDocumentResult{},
		Skipped:    []string{},
		Failed:     failed,
	}
	for i, locale := range targets {
		if done[i] != nil {
			result.Translated = append(result.Translated, *done[i])
		}
		if skipped[locale] {
			result.Skipped = append(result.Skipped, locale)
		}
	}

	t.logger.Info("machine translation run finished",
		"document_id", origin.ID,
		"translated", len(result.Translated),
		"skipped", len(result.Skipped),
		"failed", len(result.Failed),
	)
	return result, nil
}

func (t *translator) translateIfNeeded(ctx context.Context, origin *models.Document, source *models.Revision, locale, creator string) (*wikiSvc.TranslateDocumentResult, bool, error) {
	existing, err := t.existingTranslation(ctx, origin.ID, locale)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		needed, err := t.needsTranslation(ctx, existing, source)
		if err != nil {
			return nil, false, err
		}
		if !needed {
			return nil, true, nil
		}
	}

	res, err := t.translate(ctx, origin, source, existing, locale, creator)
	return res, false, err
}

// needsTranslation is false when a translation of source (or something newer)
// is already current or awaiting review
func (t *translator) needsTranslation(ctx context.Context, existing *models.Document, source *models.Revision) (bool, error) {
	revisions, err := t.graph.ListRevisions(ctx, existing.ID)
	if err != nil {
		return false, err
	}
	for _, rev := range revisions {
		if rev.BasedOnID != nil && *rev.BasedOnID >= source.ID && !rev.IsRejected() {
			return false, nil
		}
	}

	if existing.CurrentRevisionID == nil {
		return true, nil
	}
	return t.state.IsOutdatedMedium(ctx, existing)
}

// loadSource returns the origin document and the revision to translate from
func (t *translator) loadSource(ctx context.Context, documentID int64) (*models.Document, *models.Revision, error) {
	origin, err := t.graph.GetDocument(ctx, documentID)
	if err != nil {
		return nil, nil, err
	}
	if !origin.IsOrigin() {
		return nil, nil, domain.NewValidationError(fmt.Sprintf("document %d is a translation; translate its origin document", documentID))
	}
	if !origin.IsLocalizable || origin.LatestLocalizableRevisionID == nil {
		return nil, nil, domain.NewInvalidStateError(fmt.Sprintf("document %d has no revision ready for localization", documentID))
	}

	source, err := t.state.LocalizableOrLatestRevision(ctx, origin, false)
	if err != nil {
		return nil, nil, err
	}
	if source == nil {
		return nil, nil, domain.NewInvalidStateError(fmt.Sprintf("document %d has no revision to translate", documentID))
	}
	return origin, source, nil
}

func (t *translator) existingTranslation(ctx context.Context, parentID int64, locale string) (*models.Document, error) {
	doc, err := t.graph.GetTranslation(ctx, parentID, locale)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return doc, nil
}

func (t *translator) translate(ctx context.Context, origin *models.Document, source *models.Revision, existing *models.Document, locale, creator string) (*wikiSvc.TranslateDocumentResult, error) {
	prior, err := t.priorPair(ctx, existing)
	if err != nil {
		return nil, err
	}

	body, err := t.translation.Translate(ctx, &wikiSvc.TranslateRequest{
		SourceText:   source.Content,
		SourceLocale: origin.Locale,
		TargetLocale: locale,
		Prior:        prior,
	})
	if err != nil {
		return nil, fmt.Errorf("translate content: %w", err)
	}
	if strings.TrimSpace(body.Translation) == "" {
		return nil, &domain.TranslationFormatError{Message: "translator returned empty content"}
	}
	content := t.resolver.ResolveAnchors(ctx, origin.Locale, source.Content, locale, body.Translation)

	summary, err := t.translateLine(ctx, source.Summary, origin.Locale, locale)
	if err != nil {
		return nil, fmt.Errorf("translate summary: %w", err)
	}

	result := &wikiSvc.TranslateDocumentResult{
		Locale:      locale,
		Explanation: body.Explanation,
	}

	if existing == nil {
		title, err := t.translateLine(ctx, origin.Title, origin.Locale, locale)
		if err != nil {
			return nil, fmt.Errorf("translate title: %w", err)
		}
		if title == "" {
			title = origin.Title
		}

		created, err := t.graph.CreateDocument(ctx, &wikiSvc.CreateDocumentRequest{
			Title:     title,
			Slug:      origin.Slug,
			Locale:    locale,
			ParentID:  &origin.ID,
			Content:   content,
			Summary:   summary,
			Keywords:  source.Keywords,
			BasedOnID: &source.ID,
			CreatorID: creator,
		})
		if err != nil {
			return nil, err
		}
		result.DocumentID = created.Document.ID
		result.RevisionID = created.Revision.ID
		result.Created = true
	} else {
		created, err := t.graph.CreateRevision(ctx, &wikiSvc.CreateRevisionRequest{
			DocumentID: existing.ID,
			Content:    content,
			Summary:    summary,
			Keywords:   source.Keywords,
			BasedOnID:  &source.ID,
			CreatorID:  creator,
		})
		if err != nil {
			return nil, err
		}
		result.DocumentID = existing.ID
		result.RevisionID = created.Revision.ID
	}

	if t.rules.AutoApproveMachineTranslation(locale) {
		_, err := t.graph.Approve(ctx, &wikiSvc.ApproveRequest{
			RevisionID:   result.RevisionID,
			ReviewerID:   creator,
			Significance: source.Significance,
			Comment:      autoApproveComment,
		})
		if err != nil {
			return nil, fmt.Errorf("auto-approve revision %d: %w", result.RevisionID, err)
		}
		result.AutoApproved = true
	}

	t.logger.Info("machine translation written",
		"document_id", result.DocumentID,
		"revision_id", result.RevisionID,
		"based_on", source.ID,
		"locale", locale,
		"created", result.Created,
		"auto_approved", result.AutoApproved,
	)
	return result, nil
}

// priorPair pairs the source the current translation was based on with that
// translation, so unchanged passages keep their accepted wording
func (t *translator) priorPair(ctx context.Context, existing *models.Document) (*wikiSvc.TranslationPair, error) {
	if existing == nil || existing.CurrentRevisionID == nil {
		return nil, nil
	}

	current, err := t.graph.GetRevision(ctx, *existing.CurrentRevisionID)
	if err != nil {
		return nil, err
	}
	if current.BasedOnID == nil {
		return nil, nil
	}

	basedOn, err := t.graph.GetRevision(ctx, *current.BasedOnID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &wikiSvc.TranslationPair{Source: basedOn.Content, Translation: current.Content}, nil
}

func (t *translator) translateLine(ctx context.Context, text, sourceLocale, targetLocale string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", nil
	}
	res, err := t.translation.Translate(ctx, &wikiSvc.TranslateRequest{
		SourceText:   text,
		SourceLocale: sourceLocale,
		TargetLocale: targetLocale,
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(res.Translation), nil
}

func (t *translator) creator(id string) string {
	if id != "" {
		return id
	}
	return t.machineUser
}
