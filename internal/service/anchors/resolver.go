// Package anchors rewrites anchor links in translated markup so they point
// at the heading ids of the target-locale documents.
package anchors

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"supportkb/internal/domain"
	models "supportkb/internal/domain/models/wiki"
	wikiRepo "supportkb/internal/domain/repositories/wiki"
	wikiSvc "supportkb/internal/domain/services/wiki"
)

// maxTitleLookups bounds concurrent per-title work in the external pass
const maxTitleLookups = 4

// resolver implements the AnchorResolver interface
type resolver struct {
	renderer   wikiSvc.MarkupRenderer
	translator wikiSvc.TranslationService
	docRepo    wikiRepo.DocumentRepository
	revRepo    wikiRepo.RevisionRepository
	cache      wikiSvc.AnchorMapCache
	timeout    time.Duration
	logger     *slog.Logger
}

// NewResolver creates the anchor resolver. timeout bounds every renderer and
// translator call.
func NewResolver(
	renderer wikiSvc.MarkupRenderer,
	translator wikiSvc.TranslationService,
	docRepo wikiRepo.DocumentRepository,
	revRepo wikiRepo.RevisionRepository,
	cache wikiSvc.AnchorMapCache,
	timeout time.Duration,
	logger *slog.Logger,
) wikiSvc.AnchorResolver {
	return &resolver{
		renderer:   renderer,
		translator: translator,
		docRepo:    docRepo,
		revRepo:    revRepo,
		cache:      cache,
		timeout:    timeout,
		logger:     logger,
	}
}

// ResolveAnchors runs the internal pass, then the external pass. A failure in
// either pass leaves the text of that pass unchanged.
func (r *resolver) ResolveAnchors(ctx context.Context, sourceLocale, sourceText, targetLocale, targetText string) string {
	if targetText == "" || sourceLocale == "" || targetLocale == "" {
		return targetText
	}

	out := targetText
	if HasInternalAnchor(sourceText) {
		resolved, err := r.resolveInternal(ctx, sourceLocale, sourceText, targetLocale, out)
		if err != nil {
			r.logger.Warn("internal anchors left unresolved",
				"source_locale", sourceLocale,
				"target_locale", targetLocale,
				"error", err,
			)
		} else {
			out = resolved
		}
	}

	if HasExternalAnchor(sourceText) {
		out = r.resolveExternal(ctx, sourceLocale, sourceText, targetLocale, out)
	}

	return out
}

func (r *resolver) resolveInternal(ctx context.Context, sourceLocale, sourceText, targetLocale, targetText string) (string, error) {
	var sourceHTML, targetHTML string
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		sourceHTML, err = r.render(gctx, sourceText, sourceLocale)
		return err
	})
	g.Go(func() error {
		var err error
		targetHTML, err = r.render(gctx, targetText, targetLocale)
		return err
	})
	if err := g.Wait(); err != nil {
		return "", err
	}

	hm, err := r.headingMap(ctx, sourceHTML, targetHTML, sourceLocale, targetLocale)
	if err != nil {
		return "", err
	}

	changes := make(map[string]string)
	for from, to := range hm.Map {
		if from != to {
			changes[from] = to
		}
	}
	return ReplaceInternalAnchors(targetText, changes), nil
}

// titleRewrite is the outcome of looking up one linked title
type titleRewrite struct {
	titles          []string // source title and, if different, the translated title
	translatedTitle string
	anchorMap       map[string]string
}

func (r *resolver) resolveExternal(ctx context.Context, sourceLocale, sourceText, targetLocale, targetText string) string {
	var titles []string
	seen := make(map[string]struct{})
	for _, a := range FindExternalAnchors(sourceText) {
		if _, ok := seen[a.Title]; !ok {
			seen[a.Title] = struct{}{}
			titles = append(titles, a.Title)
		}
	}

	rewrites := make([]*titleRewrite, len(titles))
	var g errgroup.Group
	g.SetLimit(maxTitleLookups)
	for i, title := range titles {
		g.Go(func() error {
			rw, err := r.externalRewrite(ctx, title, sourceLocale, targetLocale)
			if err != nil {
				r.logger.Warn("external anchors left unresolved",
					"title", title,
					"target_locale", targetLocale,
					"error", err,
				)
				return nil
			}
			rewrites[i] = rw
			return nil
		})
	}
	_ = g.Wait()

	out := targetText
	for _, rw := range rewrites {
		if rw == nil {
			continue
		}
		out = ReplaceExternalAnchors(out, rw.titles, rw.translatedTitle, rw.anchorMap)
	}
	return out
}

// externalRewrite finds the approved target-locale translation of title and
// its cached heading map. A nil result with nil error means the title has no
// usable translation and its links stay as they are.
func (r *resolver) externalRewrite(ctx context.Context, title, sourceLocale, targetLocale string) (*titleRewrite, error) {
	source, err := r.docRepo.GetByTitle(ctx, sourceLocale, title)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	target, err := r.counterpart(ctx, source, targetLocale)
	if err != nil || target == nil || target.CurrentRevisionID == nil {
		return nil, err
	}

	targetRevisionID := *target.CurrentRevisionID
	anchorMap, err := r.cache.GetOrCompute(ctx, targetRevisionID, func(ctx context.Context) (*wikiSvc.HeadingMap, error) {
		sourceHTML, err := r.sourceHTML(ctx, source, targetRevisionID)
		if err != nil {
			return nil, err
		}
		return r.headingMap(ctx, sourceHTML, target.HTML, sourceLocale, targetLocale)
	})
	if err != nil {
		return nil, err
	}

	rw := &titleRewrite{
		titles:          []string{title},
		translatedTitle: target.Title,
		anchorMap:       anchorMap,
	}
	if target.Title != title {
		rw.titles = append(rw.titles, target.Title)
	}
	return rw, nil
}

// counterpart returns source's document in targetLocale, or nil
func (r *resolver) counterpart(ctx context.Context, source *models.Document, targetLocale string) (*models.Document, error) {
	lineage := source
	if !source.IsOrigin() {
		parent, err := r.docRepo.GetByID(ctx, source.LineageID())
		if err != nil {
			return nil, err
		}
		lineage = parent
	}
	if lineage.Locale == targetLocale {
		return lineage, nil
	}

	doc, err := r.docRepo.GetTranslation(ctx, lineage.ID, targetLocale)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return doc, nil
}

// sourceHTML picks the source content the target revision was translated from:
// the source's current HTML when based_on is still its current revision,
// otherwise the based_on snapshot rendered fresh.
func (r *resolver) sourceHTML(ctx context.Context, source *models.Document, targetRevisionID int64) (string, error) {
	if !source.IsOrigin() {
		return source.HTML, nil
	}

	targetRev, err := r.revRepo.GetByID(ctx, targetRevisionID)
	if err != nil {
		return "", err
	}
	basedOn := targetRev.BasedOnID
	if basedOn == nil || (source.CurrentRevisionID != nil && *basedOn == *source.CurrentRevisionID) {
		return source.HTML, nil
	}

	snapshot, err := r.revRepo.GetByID(ctx, *basedOn)
	if err != nil {
		return "", fmt.Errorf("load based_on revision %d: %w", *basedOn, err)
	}
	return r.render(ctx, snapshot.Content, source.Locale)
}

func (r *resolver) render(ctx context.Context, text, locale string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	return r.renderer.Render(ctx, text, locale)
}

func (r *resolver) headingMap(ctx context.Context, sourceHTML, targetHTML, sourceLocale, targetLocale string) (*wikiSvc.HeadingMap, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	return r.translator.GetHeadingMap(ctx, sourceHTML, targetHTML, sourceLocale, targetLocale)
}
