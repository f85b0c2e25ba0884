package wiki

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"supportkb/internal/domain"
	models "supportkb/internal/domain/models/wiki"
	wikiRepo "supportkb/internal/domain/repositories/wiki"
	wikiSvc "supportkb/internal/domain/services/wiki"
	"supportkb/internal/locales"
)

// localizationState implements the LocalizationState interface
type localizationState struct {
	docRepo wikiRepo.DocumentRepository
	revRepo wikiRepo.RevisionRepository
	rules   *locales.Rules
	logger  *slog.Logger
}

// NewLocalizationState creates the outdatedness service
func NewLocalizationState(
	docRepo wikiRepo.DocumentRepository,
	revRepo wikiRepo.RevisionRepository,
	rules *locales.Rules,
	logger *slog.Logger,
) wikiSvc.LocalizationState {
	return &localizationState{
		docRepo: docRepo,
		revRepo: revRepo,
		rules:   rules,
		logger:  logger,
	}
}

func (s *localizationState) IsOutdated(ctx context.Context, doc *models.Document, threshold models.Significance) (bool, error) {
	if doc.IsOrigin() || doc.CurrentRevisionID == nil {
		return false, nil
	}

	current, err := s.revRepo.GetByID(ctx, *doc.CurrentRevisionID)
	if err != nil {
		return false, fmt.Errorf("load current revision of document %d: %w", doc.ID, err)
	}

	var baseID int64
	if current.BasedOnID != nil {
		baseID = *current.BasedOnID
	}
	return s.revRepo.HasReadyForLocalizationAfter(ctx, *doc.ParentID, baseID, threshold)
}

func (s *localizationState) IsOutdatedMedium(ctx context.Context, doc *models.Document) (bool, error) {
	return s.IsOutdated(ctx, doc, models.SignificanceMedium)
}

func (s *localizationState) IsMajorlyOutdated(ctx context.Context, doc *models.Document) (bool, error) {
	return s.IsOutdated(ctx, doc, models.SignificanceMajor)
}

func (s *localizationState) LocalizableOrLatestRevision(ctx context.Context, doc *models.Document, includeRejected bool) (*models.Revision, error) {
	if doc.IsLocalizable && doc.LatestLocalizableRevisionID != nil {
		return s.revRepo.GetByID(ctx, *doc.LatestLocalizableRevisionID)
	}

	lookups := []func(context.Context, int64) (*models.Revision, error){
		s.revRepo.LatestApproved,
		s.revRepo.LatestUnrejected,
	}
	if includeRejected {
		lookups = append(lookups, s.revRepo.Latest)
	}

	for _, lookup := range lookups {
		rev, err := lookup(ctx, doc.ID)
		if err == nil {
			return rev, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
	}
	return nil, nil
}

// TranslationStatus walks the enabled translation locales of an origin document
func (s *localizationState) TranslationStatus(ctx context.Context, origin *models.Document) ([]models.LocaleStatus, error) {
	if !origin.IsOrigin() {
		return nil, domain.NewValidationError(fmt.Sprintf("document %d is a translation", origin.ID))
	}

	statuses := make([]models.LocaleStatus, 0, len(s.rules.TranslationLocales()))
	for _, locale := range s.rules.TranslationLocales() {
		status := models.LocaleStatus{Locale: locale}

		translation, err := s.docRepo.GetTranslation(ctx, origin.ID, locale)
		if err != nil {
			if !errors.Is(err, domain.ErrNotFound) {
				return nil, err
			}
			status.State = models.TranslationMissing
			statuses = append(statuses, status)
			continue
		}
		id := translation.ID
		status.DocumentID = &id

		status.State, err = s.translationState(ctx, translation)
		if err != nil {
			return nil, err
		}
		statuses = append(statuses, status)
	}

	return statuses, nil
}

func (s *localizationState) translationState(ctx context.Context, translation *models.Document) (models.TranslationState, error) {
	if translation.CurrentRevisionID == nil {
		return models.TranslationUnapproved, nil
	}
	major, err := s.IsMajorlyOutdated(ctx, translation)
	if err != nil {
		return "", err
	}
	if major {
		return models.TranslationMajorlyOutdated, nil
	}
	outdated, err := s.IsOutdatedMedium(ctx, translation)
	if err != nil {
		return "", err
	}
	if outdated {
		return models.TranslationOutdated, nil
	}
	return models.TranslationUpToDate, nil
}
