package wiki

import (
	"context"
	"errors"
	"fmt"

	"supportkb/internal/config"
	"supportkb/internal/domain"
	models "supportkb/internal/domain/models/wiki"
	wikiRepo "supportkb/internal/domain/repositories/wiki"
	wikiSvc "supportkb/internal/domain/services/wiki"
)

// CommitEdit applies metadata changes. The row is re-read under lock and the
// commit fails if someone else renamed the document after BeginEdit.
// Renaming a document with approved content leaves a redirect stub at the old location.
func (s *versionGraph) CommitEdit(ctx context.Context, session *wikiSvc.EditSession, changes *wikiSvc.DocumentChanges) (*wikiSvc.EditResult, error) {
	if session == nil || session.Document == nil {
		return nil, domain.NewValidationError("edit session is required")
	}
	if changes == nil {
		changes = &wikiSvc.DocumentChanges{}
	}
	if err := validateDocumentChanges(changes); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	renaming := (changes.Title != nil && *changes.Title != session.OldTitle) ||
		(changes.Slug != nil && *changes.Slug != session.OldSlug)
	if renaming && session.Document.HasApprovedContent() && changes.EditorID == "" {
		return nil, domain.NewValidationError("an editor is required to rename a published document")
	}

	var updated *models.Document
	err := s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		locked, err := s.docRepo.GetByIDForUpdate(txCtx, session.Document.ID)
		if err != nil {
			return err
		}
		if locked.Title != session.OldTitle || locked.Slug != session.OldSlug {
			return domain.NewInvalidStateError(fmt.Sprintf("document %d was renamed after the edit began", locked.ID))
		}

		next := *locked
		applyChanges(&next, changes)

		if next.IsLocalizable && !locked.IsLocalizable && !s.rules.IsOrigin(locked.Locale) {
			return domain.NewValidationError("documents outside the origin locale cannot be localizable")
		}
		if locked.IsOrigin() {
			if locked.IsLocalizable && !next.IsLocalizable {
				count, err := s.docRepo.CountTranslations(txCtx, locked.ID)
				if err != nil {
					return err
				}
				if count > 0 {
					return domain.NewValidationError(fmt.Sprintf("document %d has %d translations and must stay localizable", locked.ID, count))
				}
			}
		} else {
			if next.Category != locked.Category || next.IsArchived != locked.IsArchived {
				return domain.NewValidationError("translations take their category and archived state from their parent")
			}
		}

		if err := validateTemplateCategory(next.Title, next.Category); err != nil {
			return err
		}
		if err := s.docRepo.Update(txCtx, &next); err != nil {
			return err
		}

		if locked.IsOrigin() && (next.Category != locked.Category || next.IsArchived != locked.IsArchived) {
			n, err := s.docRepo.PropagateInherited(txCtx, locked.ID, next.Category, next.IsArchived)
			if err != nil {
				return err
			}
			s.logger.Debug("inherited fields propagated", "document_id", locked.ID, "translations", n)
		}

		updated = &next
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("document updated",
		"document_id", updated.ID,
		"title", updated.Title,
		"slug", updated.Slug,
	)

	result := &wikiSvc.EditResult{Document: updated}
	renamed := updated.Title != session.OldTitle || updated.Slug != session.OldSlug
	if renamed && updated.HasApprovedContent() {
		stub, err := s.retarget(ctx, updated, session.OldTitle, session.OldSlug, changes.EditorID)
		if err != nil {
			s.logger.Warn("failed to create redirect",
				"document_id", updated.ID,
				"old_title", session.OldTitle,
				"old_slug", session.OldSlug,
				"error", err,
			)
		}
		result.Redirect = stub
	}

	return result, nil
}

func applyChanges(doc *models.Document, changes *wikiSvc.DocumentChanges) {
	if changes.Title != nil {
		doc.Title = *changes.Title
	}
	if changes.Slug != nil {
		doc.Slug = *changes.Slug
	}
	if changes.Category != nil {
		doc.Category = *changes.Category
	}
	if changes.IsArchived != nil {
		doc.IsArchived = *changes.IsArchived
	}
	if changes.IsLocalizable != nil {
		doc.IsLocalizable = *changes.IsLocalizable
	}
}

// retarget creates a redirect stub at the renamed document's old location,
// in the document's own locale. A field that did not change is still owned
// by the document, so the stub takes a numbered variant of it; collisions
// bump the counter of the colliding field. Each attempt is its own transaction.
func (s *versionGraph) retarget(ctx context.Context, doc *models.Document, oldTitle, oldSlug, editorID string) (*models.Document, error) {
	content := fmt.Sprintf(models.RedirectContent, doc.Title)
	html, err := s.renderer.Render(ctx, content, doc.Locale)
	if err != nil {
		return nil, fmt.Errorf("render redirect: %w", err)
	}

	var titleCounter, slugCounter int
	title, slug := oldTitle, oldSlug
	if doc.Title == oldTitle {
		titleCounter = 1
		title = fmt.Sprintf(models.RedirectTitleTemplate, oldTitle, titleCounter)
	}
	if doc.Slug == oldSlug {
		slugCounter = 1
		slug = fmt.Sprintf(models.RedirectSlugTemplate, oldSlug, slugCounter)
	}

	for attempt := 1; attempt <= config.MaxRedirectAttempts; attempt++ {
		stub, err := s.createRedirectStub(ctx, doc, title, slug, content, html, editorID)
		if err == nil {
			s.logger.Info("redirect created",
				"document_id", doc.ID,
				"redirect_id", stub.ID,
				"title", stub.Title,
				"slug", stub.Slug,
				"attempts", attempt,
			)
			return stub, nil
		}

		var conflict *domain.ConflictError
		if !errors.As(err, &conflict) {
			return nil, err
		}
		if conflict.Field != "slug" {
			titleCounter++
			title = fmt.Sprintf(models.RedirectTitleTemplate, oldTitle, titleCounter)
		}
		if conflict.Field != "title" {
			slugCounter++
			slug = fmt.Sprintf(models.RedirectSlugTemplate, oldSlug, slugCounter)
		}
	}

	return nil, domain.NewInvalidStateError(fmt.Sprintf(
		"no free redirect location for %q after %d attempts", oldTitle, config.MaxRedirectAttempts))
}

func (s *versionGraph) createRedirectStub(ctx context.Context, target *models.Document, title, slug, content, html, editorID string) (*models.Document, error) {
	// Stubs never join a translation lineage and are never localized
	stub := &models.Document{
		Title:         title,
		Slug:          slug,
		Locale:        target.Locale,
		Category:      target.Category,
		IsArchived:    target.IsArchived,
		IsLocalizable: false,
		ParentID:      nil,
	}

	err := s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		if err := s.docRepo.Create(txCtx, stub); err != nil {
			return err
		}

		rev := &models.Revision{
			DocumentID: stub.ID,
			Content:    content,
			CreatorID:  editorID,
		}
		if err := s.revRepo.Create(txCtx, rev); err != nil {
			return err
		}

		err := s.revRepo.Review(txCtx, rev.ID, wikiRepo.ReviewUpdate{
			Approved:   true,
			ReviewerID: editorID,
			ReviewedAt: s.now(),
		})
		if err != nil {
			return err
		}
		if _, err := s.docRepo.AdvanceCurrentRevision(txCtx, stub.ID, rev.ID, html); err != nil {
			return err
		}
		if err := s.docRepo.AddContributors(txCtx, stub.ID, []string{editorID}); err != nil {
			return err
		}

		stub.CurrentRevisionID = &rev.ID
		stub.HTML = html
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stub, nil
}
