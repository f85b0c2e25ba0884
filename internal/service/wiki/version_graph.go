package wiki

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"supportkb/internal/config"
	"supportkb/internal/domain"
	models "supportkb/internal/domain/models/wiki"
	"supportkb/internal/domain/repositories"
	wikiRepo "supportkb/internal/domain/repositories/wiki"
	wikiSvc "supportkb/internal/domain/services/wiki"
	"supportkb/internal/locales"
)

// versionGraph implements the VersionGraph interface
type versionGraph struct {
	docRepo   wikiRepo.DocumentRepository
	revRepo   wikiRepo.RevisionRepository
	draftRepo wikiRepo.DraftRepository
	txManager repositories.TransactionManager
	renderer  wikiSvc.MarkupRenderer
	rules     *locales.Rules
	logger    *slog.Logger
	now       func() time.Time
}

// NewVersionGraph creates the document/revision service
func NewVersionGraph(
	docRepo wikiRepo.DocumentRepository,
	revRepo wikiRepo.RevisionRepository,
	draftRepo wikiRepo.DraftRepository,
	txManager repositories.TransactionManager,
	renderer wikiSvc.MarkupRenderer,
	rules *locales.Rules,
	logger *slog.Logger,
) wikiSvc.VersionGraph {
	return &versionGraph{
		docRepo:   docRepo,
		revRepo:   revRepo,
		draftRepo: draftRepo,
		txManager: txManager,
		renderer:  renderer,
		rules:     rules,
		logger:    logger,
		now:       time.Now,
	}
}

// CreateDocument creates a document and its first, unreviewed revision.
// Translations inherit category and archived flag from their parent and are never localizable.
func (s *versionGraph) CreateDocument(ctx context.Context, req *wikiSvc.CreateDocumentRequest) (*wikiSvc.DocumentResult, error) {
	if err := validateCreateDocument(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	if !s.rules.IsEnabled(req.Locale) {
		return nil, domain.NewValidationError(fmt.Sprintf("locale %s is not enabled", req.Locale))
	}

	doc := &models.Document{
		Title:         req.Title,
		Slug:          req.Slug,
		Locale:        req.Locale,
		Category:      req.Category,
		IsLocalizable: true,
		ParentID:      req.ParentID,
	}

	if s.rules.IsOrigin(req.Locale) {
		if req.ParentID != nil {
			return nil, domain.NewValidationError("documents in the origin locale cannot have a parent")
		}
		if req.IsLocalizable != nil {
			doc.IsLocalizable = *req.IsLocalizable
		}
	} else {
		parent, err := s.translationParent(ctx, req.ParentID)
		if err != nil {
			return nil, err
		}
		if req.IsLocalizable != nil && *req.IsLocalizable {
			return nil, domain.NewValidationError("documents outside the origin locale cannot be localizable")
		}
		doc.IsLocalizable = false
		doc.Category = parent.Category
		doc.IsArchived = parent.IsArchived
	}

	if err := validateTemplateCategory(doc.Title, doc.Category); err != nil {
		return nil, err
	}

	basedOn, guessed, err := s.resolveBasedOn(ctx, doc.ParentID, req.BasedOnID)
	if err != nil {
		return nil, err
	}

	rev := &models.Revision{
		Content:   req.Content,
		Summary:   req.Summary,
		Keywords:  req.Keywords,
		CreatorID: req.CreatorID,
		BasedOnID: basedOn,
	}

	err = s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		if err := s.docRepo.Create(txCtx, doc); err != nil {
			return err
		}
		rev.DocumentID = doc.ID
		return s.revRepo.Create(txCtx, rev)
	})
	if err != nil {
		return nil, err
	}

	// Translations are drafted against the parent document
	if doc.ParentID != nil {
		if err := s.draftRepo.Delete(ctx, req.CreatorID, *doc.ParentID, doc.Locale); err != nil {
			s.logger.Warn("failed to discard draft after publishing",
				"document_id", *doc.ParentID,
				"locale", doc.Locale,
				"error", err,
			)
		}
	}

	s.logger.Info("document created",
		"document_id", doc.ID,
		"revision_id", rev.ID,
		"locale", doc.Locale,
		"based_on_guessed", guessed,
	)

	return &wikiSvc.DocumentResult{
		Document:       doc,
		RevisionResult: wikiSvc.RevisionResult{Revision: rev, BasedOnGuessed: guessed},
	}, nil
}

// translationParent loads and checks the parent of a new translation
func (s *versionGraph) translationParent(ctx context.Context, parentID *int64) (*models.Document, error) {
	if parentID == nil {
		return nil, domain.NewValidationError("documents outside the origin locale need a parent document")
	}
	parent, err := s.docRepo.GetByID(ctx, *parentID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.NewValidationError(fmt.Sprintf("parent document %d does not exist", *parentID))
		}
		return nil, err
	}
	if !parent.IsOrigin() || !s.rules.IsOrigin(parent.Locale) {
		return nil, domain.NewValidationError("the parent must be a document in the origin locale")
	}
	if !parent.IsLocalizable {
		return nil, domain.NewValidationError(fmt.Sprintf("document %d is not localizable", parent.ID))
	}
	return parent, nil
}

// resolveBasedOn enforces that based_on points into the origin document's
// revisions. A translation without based_on gets the parent's latest
// localizable (else latest approved) revision, reported through guessed.
func (s *versionGraph) resolveBasedOn(ctx context.Context, parentID, basedOnID *int64) (basedOn *int64, guessed bool, err error) {
	if parentID == nil {
		if basedOnID != nil {
			return nil, false, domain.NewValidationError("based_on is only allowed on translations")
		}
		return nil, false, nil
	}

	if basedOnID != nil {
		rev, err := s.revRepo.GetByID(ctx, *basedOnID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, false, domain.NewValidationError(fmt.Sprintf("based_on revision %d does not exist", *basedOnID))
			}
			return nil, false, err
		}
		if rev.DocumentID != *parentID {
			return nil, false, domain.NewValidationError(fmt.Sprintf(
				"based_on revision %d does not belong to origin document %d", *basedOnID, *parentID))
		}
		return basedOnID, false, nil
	}

	rev, err := s.revRepo.LatestReadyForLocalization(ctx, *parentID)
	if errors.Is(err, domain.ErrNotFound) {
		rev, err = s.revRepo.LatestApproved(ctx, *parentID)
	}
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return &rev.ID, true, nil
}

// CreateRevision stores a proposed edit and discards the creator's draft
func (s *versionGraph) CreateRevision(ctx context.Context, req *wikiSvc.CreateRevisionRequest) (*wikiSvc.RevisionResult, error) {
	if err := validateCreateRevision(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	doc, err := s.docRepo.GetByID(ctx, req.DocumentID)
	if err != nil {
		return nil, err
	}

	basedOn, guessed, err := s.resolveBasedOn(ctx, doc.ParentID, req.BasedOnID)
	if err != nil {
		return nil, err
	}

	rev := &models.Revision{
		DocumentID: doc.ID,
		Content:    req.Content,
		Summary:    req.Summary,
		Keywords:   req.Keywords,
		CreatorID:  req.CreatorID,
		BasedOnID:  basedOn,
	}
	if err := s.revRepo.Create(ctx, rev); err != nil {
		return nil, err
	}

	if err := s.draftRepo.Delete(ctx, req.CreatorID, doc.ID, doc.Locale); err != nil {
		s.logger.Warn("failed to discard draft after publishing",
			"document_id", doc.ID,
			"locale", doc.Locale,
			"error", err,
		)
	}

	s.logger.Info("revision created",
		"document_id", doc.ID,
		"revision_id", rev.ID,
		"based_on_guessed", guessed,
	)

	return &wikiSvc.RevisionResult{Revision: rev, BasedOnGuessed: guessed}, nil
}

// Approve approves a revision. The HTML is rendered before the transaction;
// pointer moves happen under the document row lock as compare-and-set on
// revision id, so an older revision committed last never moves them back.
func (s *versionGraph) Approve(ctx context.Context, req *wikiSvc.ApproveRequest) (*models.Document, error) {
	if req.ReviewerID == "" {
		return nil, domain.NewValidationError("reviewer is required")
	}

	rev, err := s.revRepo.GetByID(ctx, req.RevisionID)
	if err != nil {
		return nil, err
	}
	doc, err := s.docRepo.GetByID(ctx, rev.DocumentID)
	if err != nil {
		return nil, err
	}

	significance := rev.Significance
	if req.Significance != nil {
		significance = req.Significance
	}
	if significance != nil && !significance.Valid() {
		return nil, domain.NewValidationError(fmt.Sprintf("unknown significance %d", int(*significance)))
	}
	if len(req.Comment) > config.MaxCommentLength {
		return nil, domain.NewValidationError("comment is too long")
	}

	if req.ReadyForLocalization {
		candidate := *rev
		candidate.IsApproved = true
		candidate.Significance = significance
		if !candidate.CanBeReadiedForLocalization(doc) {
			return nil, domain.NewInvalidStateError(fmt.Sprintf(
				"revision %d cannot be ready for localization: it needs a significance above typo on an origin-locale document", rev.ID))
		}
	}

	html, err := s.renderer.Render(ctx, rev.Content, doc.Locale)
	if err != nil {
		return nil, fmt.Errorf("render revision %d: %w", rev.ID, err)
	}

	now := s.now()
	var advanced bool
	err = s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		locked, err := s.docRepo.GetByIDForUpdate(txCtx, doc.ID)
		if err != nil {
			return err
		}

		err = s.revRepo.Review(txCtx, rev.ID, wikiRepo.ReviewUpdate{
			Approved:     true,
			ReviewerID:   req.ReviewerID,
			ReviewedAt:   now,
			Significance: significance,
			Comment:      req.Comment,
		})
		if err != nil {
			return err
		}

		if rev.NewerThan(locked.CurrentRevisionID) {
			creators, err := s.revRepo.ListCreatorsInRange(txCtx, doc.ID, locked.CurrentRevisionID, rev.ID)
			if err != nil {
				return err
			}
			if err := s.docRepo.AddContributors(txCtx, doc.ID, creators); err != nil {
				return err
			}
			if advanced, err = s.docRepo.AdvanceCurrentRevision(txCtx, doc.ID, rev.ID, html); err != nil {
				return err
			}
		}

		if req.ReadyForLocalization {
			if err := s.revRepo.MarkReadyForLocalization(txCtx, rev.ID, req.ReviewerID, now); err != nil {
				return err
			}
			if _, err := s.docRepo.AdvanceLatestLocalizable(txCtx, doc.ID, rev.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("revision approved",
		"document_id", doc.ID,
		"revision_id", rev.ID,
		"current_advanced", advanced,
		"ready_for_localization", req.ReadyForLocalization,
	)

	return s.docRepo.GetByID(ctx, doc.ID)
}

// Reject records an explicit rejection. Rejecting the current or latest
// localizable revision rolls those pointers back.
func (s *versionGraph) Reject(ctx context.Context, req *wikiSvc.RejectRequest) (*models.Document, error) {
	if req.ReviewerID == "" {
		return nil, domain.NewValidationError("reviewer is required")
	}

	rev, err := s.revRepo.GetByID(ctx, req.RevisionID)
	if err != nil {
		return nil, err
	}

	var repair *pointerRepair
	err = s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		locked, err := s.docRepo.GetByIDForUpdate(txCtx, rev.DocumentID)
		if err != nil {
			return err
		}
		err = s.revRepo.Review(txCtx, rev.ID, wikiRepo.ReviewUpdate{
			Approved:   false,
			ReviewerID: req.ReviewerID,
			ReviewedAt: s.now(),
			Comment:    req.Comment,
		})
		if err != nil {
			return err
		}
		repair, err = s.repairPointers(txCtx, locked, rev.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	if repair.currentChanged {
		s.rerender(ctx, rev.DocumentID, repair.current)
	}

	s.logger.Info("revision rejected",
		"document_id", rev.DocumentID,
		"revision_id", rev.ID,
		"pointers_repaired", repair.currentChanged || repair.localizableChanged,
	)

	return s.docRepo.GetByID(ctx, rev.DocumentID)
}

// MarkReadyForLocalization flags an approved, significant origin revision
func (s *versionGraph) MarkReadyForLocalization(ctx context.Context, revisionID int64, approverID string) (*models.Document, error) {
	if approverID == "" {
		return nil, domain.NewValidationError("approver is required")
	}

	rev, err := s.revRepo.GetByID(ctx, revisionID)
	if err != nil {
		return nil, err
	}

	err = s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		doc, err := s.docRepo.GetByIDForUpdate(txCtx, rev.DocumentID)
		if err != nil {
			return err
		}
		// Re-read under the lock: a concurrent rejection may have landed
		rev, err = s.revRepo.GetByID(txCtx, revisionID)
		if err != nil {
			return err
		}
		if !rev.CanBeReadiedForLocalization(doc) {
			return domain.NewInvalidStateError(fmt.Sprintf(
				"revision %d cannot be ready for localization: it must be approved, above typo significance and in the origin locale", rev.ID))
		}

		if err := s.revRepo.MarkReadyForLocalization(txCtx, rev.ID, approverID, s.now()); err != nil {
			return err
		}
		_, err = s.docRepo.AdvanceLatestLocalizable(txCtx, doc.ID, rev.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("revision ready for localization",
		"document_id", rev.DocumentID,
		"revision_id", rev.ID,
	)

	return s.docRepo.GetByID(ctx, rev.DocumentID)
}

// DeleteRevision detaches translations based on the revision, deletes it and
// rolls pointers back. The new current revision is rendered after commit.
func (s *versionGraph) DeleteRevision(ctx context.Context, revisionID int64) (*models.Document, error) {
	rev, err := s.revRepo.GetByID(ctx, revisionID)
	if err != nil {
		return nil, err
	}

	var repair *pointerRepair
	err = s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		locked, err := s.docRepo.GetByIDForUpdate(txCtx, rev.DocumentID)
		if err != nil {
			return err
		}

		detached, err := s.revRepo.ClearBasedOn(txCtx, rev.ID)
		if err != nil {
			return err
		}
		if detached > 0 {
			s.logger.Info("translations detached from deleted revision",
				"revision_id", rev.ID,
				"detached", detached,
			)
		}

		if err := s.revRepo.Delete(txCtx, rev.ID); err != nil {
			return err
		}
		repair, err = s.repairPointers(txCtx, locked, rev.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	if repair.currentChanged {
		s.rerender(ctx, rev.DocumentID, repair.current)
	}

	s.logger.Info("revision deleted",
		"document_id", rev.DocumentID,
		"revision_id", rev.ID,
	)

	return s.docRepo.GetByID(ctx, rev.DocumentID)
}

type pointerRepair struct {
	current            *int64
	currentChanged     bool
	localizableChanged bool
}

// repairPointers recomputes the pointers that referenced revisionID from the
// remaining revisions. Must run inside the transaction holding the row lock.
func (s *versionGraph) repairPointers(txCtx context.Context, locked *models.Document, revisionID int64) (*pointerRepair, error) {
	repair := &pointerRepair{current: locked.CurrentRevisionID}
	latestLocalizable := locked.LatestLocalizableRevisionID

	if locked.CurrentRevisionID != nil && *locked.CurrentRevisionID == revisionID {
		id, err := s.latestID(s.revRepo.LatestApproved(txCtx, locked.ID))
		if err != nil {
			return nil, err
		}
		repair.current = id
		repair.currentChanged = true
	}
	if locked.LatestLocalizableRevisionID != nil && *locked.LatestLocalizableRevisionID == revisionID {
		id, err := s.latestID(s.revRepo.LatestReadyForLocalization(txCtx, locked.ID))
		if err != nil {
			return nil, err
		}
		latestLocalizable = id
		repair.localizableChanged = true
	}

	if !repair.currentChanged && !repair.localizableChanged {
		return repair, nil
	}
	if err := s.docRepo.SetRevisionPointers(txCtx, locked.ID, repair.current, latestLocalizable); err != nil {
		return nil, err
	}
	return repair, nil
}

func (s *versionGraph) latestID(rev *models.Revision, err error) (*int64, error) {
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &rev.ID, nil
}

// rerender refreshes the cached HTML for the given current revision (empty
// when nil). A failed render keeps the previous HTML and is logged.
func (s *versionGraph) rerender(ctx context.Context, docID int64, current *int64) {
	html := ""
	if current != nil {
		rev, err := s.revRepo.GetByID(ctx, *current)
		if err != nil {
			s.logger.Warn("failed to load revision for re-render", "document_id", docID, "revision_id", *current, "error", err)
			return
		}
		doc, err := s.docRepo.GetByID(ctx, docID)
		if err != nil {
			s.logger.Warn("failed to load document for re-render", "document_id", docID, "error", err)
			return
		}
		html, err = s.renderer.Render(ctx, rev.Content, doc.Locale)
		if err != nil {
			s.logger.Warn("failed to re-render document", "document_id", docID, "revision_id", *current, "error", err)
			return
		}
	}

	stored, err := s.docRepo.SetHTMLIfCurrent(ctx, docID, current, html)
	if err != nil {
		s.logger.Warn("failed to store re-rendered html", "document_id", docID, "error", err)
		return
	}
	if !stored {
		s.logger.Debug("current revision moved during re-render, html left to the newer writer", "document_id", docID)
	}
}

// DeleteDocument deletes a document with no translations
func (s *versionGraph) DeleteDocument(ctx context.Context, documentID int64) error {
	count, err := s.docRepo.CountTranslations(ctx, documentID)
	if err != nil {
		return err
	}
	if count > 0 {
		return domain.NewValidationError(fmt.Sprintf("document %d has %d translations; delete them first", documentID, count))
	}

	if err := s.docRepo.Delete(ctx, documentID); err != nil {
		return err
	}

	s.logger.Info("document deleted", "document_id", documentID)
	return nil
}

func (s *versionGraph) GetDocument(ctx context.Context, documentID int64) (*models.Document, error) {
	return s.docRepo.GetByID(ctx, documentID)
}

func (s *versionGraph) GetDocumentBySlug(ctx context.Context, locale, slug string) (*models.Document, error) {
	return s.docRepo.GetBySlug(ctx, locale, slug)
}

func (s *versionGraph) GetTranslation(ctx context.Context, parentID int64, locale string) (*models.Document, error) {
	return s.docRepo.GetTranslation(ctx, parentID, locale)
}

func (s *versionGraph) GetRevision(ctx context.Context, revisionID int64) (*models.Revision, error) {
	return s.revRepo.GetByID(ctx, revisionID)
}

func (s *versionGraph) ListRevisions(ctx context.Context, documentID int64) ([]models.Revision, error) {
	if _, err := s.docRepo.GetByID(ctx, documentID); err != nil {
		return nil, err
	}
	return s.revRepo.ListByDocument(ctx, documentID)
}

func (s *versionGraph) ListContributors(ctx context.Context, documentID int64) ([]string, error) {
	return s.docRepo.ListContributors(ctx, documentID)
}
