package wiki

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"supportkb/internal/domain"
	models "supportkb/internal/domain/models/wiki"
	wikiRepo "supportkb/internal/domain/repositories/wiki"
	wikiSvc "supportkb/internal/domain/services/wiki"
	"supportkb/internal/locales"
)

// draftService implements the DraftService interface
type draftService struct {
	docRepo   wikiRepo.DocumentRepository
	draftRepo wikiRepo.DraftRepository
	rules     *locales.Rules
	logger    *slog.Logger
}

// NewDraftService creates the draft service
func NewDraftService(
	docRepo wikiRepo.DocumentRepository,
	draftRepo wikiRepo.DraftRepository,
	rules *locales.Rules,
	logger *slog.Logger,
) wikiSvc.DraftService {
	return &draftService{
		docRepo:   docRepo,
		draftRepo: draftRepo,
		rules:     rules,
		logger:    logger,
	}
}

// SaveDraft creates or replaces the caller's draft. Drafts of an origin
// document may target any enabled locale, which is how a translation is started.
func (s *draftService) SaveDraft(ctx context.Context, req *wikiSvc.SaveDraftRequest) (*models.DraftRevision, error) {
	if err := validateSaveDraft(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	if !s.rules.IsEnabled(req.Locale) {
		return nil, domain.NewValidationError(fmt.Sprintf("locale %s is not enabled", req.Locale))
	}

	doc, err := s.docRepo.GetByID(ctx, req.DocumentID)
	if err != nil {
		return nil, err
	}
	if !doc.IsOrigin() && doc.Locale != req.Locale {
		return nil, domain.NewValidationError(fmt.Sprintf("document %d is a %s translation", doc.ID, doc.Locale))
	}

	draft := &models.DraftRevision{
		ID:         uuid.New().String(),
		CreatorID:  req.CreatorID,
		DocumentID: doc.ID,
		Locale:     req.Locale,
		BasedOnID:  req.BasedOnID,
		Title:      req.Title,
		Slug:       req.Slug,
		Summary:    req.Summary,
		Keywords:   req.Keywords,
		Content:    req.Content,
	}
	if err := s.draftRepo.Upsert(ctx, draft); err != nil {
		return nil, err
	}

	s.logger.Debug("draft saved",
		"draft_id", draft.ID,
		"document_id", doc.ID,
		"locale", req.Locale,
	)

	return draft, nil
}

func (s *draftService) GetDraft(ctx context.Context, creatorID string, documentID int64, locale string) (*models.DraftRevision, error) {
	return s.draftRepo.Get(ctx, creatorID, documentID, locale)
}

func (s *draftService) DiscardDraft(ctx context.Context, creatorID string, documentID int64, locale string) error {
	if err := s.draftRepo.Delete(ctx, creatorID, documentID, locale); err != nil {
		return err
	}
	s.logger.Debug("draft discarded", "document_id", documentID, "locale", locale)
	return nil
}
