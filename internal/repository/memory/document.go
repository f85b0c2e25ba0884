package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"supportkb/internal/domain"
	models "supportkb/internal/domain/models/wiki"
	"supportkb/internal/domain/repositories"
)

type documentRepository struct {
	s *Store
}

func documentNotFound(id int64) error {
	return &domain.NotFoundError{Message: fmt.Sprintf("document %d not found", id)}
}

// uniqueConflict checks the (locale, title), (locale, slug) and (parent, locale) keys
func (st *state) uniqueConflict(doc *models.Document) error {
	for _, other := range st.documents {
		if other.ID == doc.ID || other.Locale != doc.Locale {
			continue
		}
		var field, message string
		switch {
		case other.Title == doc.Title:
			field = "title"
			message = fmt.Sprintf("a document titled '%s' already exists in locale %s", doc.Title, doc.Locale)
		case other.Slug == doc.Slug:
			field = "slug"
			message = fmt.Sprintf("a document with slug '%s' already exists in locale %s", doc.Slug, doc.Locale)
		case doc.ParentID != nil && sameID(other.ParentID, doc.ParentID):
			field = "locale"
			message = fmt.Sprintf("document already has a translation in locale %s", doc.Locale)
		default:
			continue
		}
		return &domain.ConflictError{
			Message:      message,
			ResourceType: "document",
			ResourceID:   idString(other.ID),
			Field:        field,
		}
	}
	return nil
}

func (r *documentRepository) Create(ctx context.Context, doc *models.Document) error {
	return r.s.write(ctx, func(st *state) error {
		if doc.ParentID != nil {
			if _, ok := st.documents[*doc.ParentID]; !ok {
				return documentNotFound(*doc.ParentID)
			}
		}
		if err := st.uniqueConflict(doc); err != nil {
			return err
		}

		st.nextDocumentID++
		now := time.Now()
		doc.ID = st.nextDocumentID
		doc.CreatedAt = now
		doc.UpdatedAt = now
		doc.CurrentRevisionID = nil
		doc.LatestLocalizableRevisionID = nil
		st.documents[doc.ID] = copyDocument(doc)
		return nil
	})
}

func (r *documentRepository) find(ctx context.Context, match func(d *models.Document) bool, notFound error) (*models.Document, error) {
	var found *models.Document
	err := r.s.read(ctx, func(st *state) error {
		for _, d := range st.documents {
			if match(d) {
				found = copyDocument(d)
				return nil
			}
		}
		return notFound
	})
	return found, err
}

func (r *documentRepository) GetByID(ctx context.Context, id int64) (*models.Document, error) {
	return r.find(ctx, func(d *models.Document) bool { return d.ID == id }, documentNotFound(id))
}

// GetByIDForUpdate needs no extra locking: ExecTx already serializes writers
func (r *documentRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.Document, error) {
	if !repositories.InTx(ctx) {
		return nil, fmt.Errorf("lock document %d: no transaction in context", id)
	}
	return r.GetByID(ctx, id)
}

func (r *documentRepository) GetByTitle(ctx context.Context, locale, title string) (*models.Document, error) {
	return r.find(ctx,
		func(d *models.Document) bool { return d.Locale == locale && d.Title == title },
		&domain.NotFoundError{Message: fmt.Sprintf("document '%s' (%s) not found", title, locale)})
}

func (r *documentRepository) GetBySlug(ctx context.Context, locale, slug string) (*models.Document, error) {
	return r.find(ctx,
		func(d *models.Document) bool { return d.Locale == locale && d.Slug == slug },
		&domain.NotFoundError{Message: fmt.Sprintf("document %s/%s not found", locale, slug)})
}

func (r *documentRepository) GetTranslation(ctx context.Context, parentID int64, locale string) (*models.Document, error) {
	return r.find(ctx,
		func(d *models.Document) bool { return d.ParentID != nil && *d.ParentID == parentID && d.Locale == locale },
		&domain.NotFoundError{Message: fmt.Sprintf("document translation of %d into %s not found", parentID, locale)})
}

func (r *documentRepository) ListTranslations(ctx context.Context, parentID int64) ([]models.Document, error) {
	var out []models.Document
	err := r.s.read(ctx, func(st *state) error {
		for _, d := range st.documents {
			if d.ParentID != nil && *d.ParentID == parentID {
				out = append(out, *copyDocument(d))
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Locale < out[j].Locale })
	return out, err
}

func (r *documentRepository) CountTranslations(ctx context.Context, parentID int64) (int, error) {
	docs, err := r.ListTranslations(ctx, parentID)
	return len(docs), err
}

func (r *documentRepository) Update(ctx context.Context, doc *models.Document) error {
	return r.s.write(ctx, func(st *state) error {
		stored, ok := st.documents[doc.ID]
		if !ok {
			return documentNotFound(doc.ID)
		}
		if err := st.uniqueConflict(&models.Document{
			ID:       doc.ID,
			Title:    doc.Title,
			Slug:     doc.Slug,
			Locale:   stored.Locale,
			ParentID: stored.ParentID,
		}); err != nil {
			return err
		}
		if stored.ParentID != nil && doc.IsLocalizable {
			return domain.NewValidationError("translations cannot be localizable")
		}

		stored.Title = doc.Title
		stored.Slug = doc.Slug
		stored.Category = doc.Category
		stored.IsArchived = doc.IsArchived
		stored.IsLocalizable = doc.IsLocalizable
		stored.UpdatedAt = time.Now()
		doc.UpdatedAt = stored.UpdatedAt
		return nil
	})
}

func (r *documentRepository) AdvanceCurrentRevision(ctx context.Context, docID, revisionID int64, html string) (bool, error) {
	advanced := false
	err := r.s.write(ctx, func(st *state) error {
		d, ok := st.documents[docID]
		if !ok {
			return documentNotFound(docID)
		}
		if d.CurrentRevisionID != nil && *d.CurrentRevisionID >= revisionID {
			return nil
		}
		d.CurrentRevisionID = copyID(&revisionID)
		d.HTML = html
		d.UpdatedAt = time.Now()
		advanced = true
		return nil
	})
	return advanced, err
}

func (r *documentRepository) AdvanceLatestLocalizable(ctx context.Context, docID, revisionID int64) (bool, error) {
	advanced := false
	err := r.s.write(ctx, func(st *state) error {
		d, ok := st.documents[docID]
		if !ok {
			return documentNotFound(docID)
		}
		if d.LatestLocalizableRevisionID != nil && *d.LatestLocalizableRevisionID >= revisionID {
			return nil
		}
		d.LatestLocalizableRevisionID = copyID(&revisionID)
		d.UpdatedAt = time.Now()
		advanced = true
		return nil
	})
	return advanced, err
}

func (r *documentRepository) SetRevisionPointers(ctx context.Context, docID int64, current, latestLocalizable *int64) error {
	return r.s.write(ctx, func(st *state) error {
		d, ok := st.documents[docID]
		if !ok {
			return documentNotFound(docID)
		}
		d.CurrentRevisionID = copyID(current)
		d.LatestLocalizableRevisionID = copyID(latestLocalizable)
		d.UpdatedAt = time.Now()
		return nil
	})
}

func (r *documentRepository) SetHTMLIfCurrent(ctx context.Context, docID int64, revisionID *int64, html string) (bool, error) {
	stored := false
	err := r.s.write(ctx, func(st *state) error {
		d, ok := st.documents[docID]
		if !ok || !sameID(d.CurrentRevisionID, revisionID) {
			return nil
		}
		d.HTML = html
		d.UpdatedAt = time.Now()
		stored = true
		return nil
	})
	return stored, err
}

func (r *documentRepository) PropagateInherited(ctx context.Context, parentID int64, category models.Category, archived bool) (int64, error) {
	var n int64
	err := r.s.write(ctx, func(st *state) error {
		for _, d := range st.documents {
			if d.ParentID == nil || *d.ParentID != parentID {
				continue
			}
			if d.Category == category && d.IsArchived == archived {
				continue
			}
			d.Category = category
			d.IsArchived = archived
			d.UpdatedAt = time.Now()
			n++
		}
		return nil
	})
	return n, err
}

func (r *documentRepository) AddContributors(ctx context.Context, docID int64, userIDs []string) error {
	if len(userIDs) == 0 {
		return nil
	}
	return r.s.write(ctx, func(st *state) error {
		if _, ok := st.documents[docID]; !ok {
			return documentNotFound(docID)
		}
		set, ok := st.contributors[docID]
		if !ok {
			set = make(map[string]struct{})
			st.contributors[docID] = set
		}
		for _, u := range userIDs {
			set[u] = struct{}{}
		}
		return nil
	})
}

func (r *documentRepository) ListContributors(ctx context.Context, docID int64) ([]string, error) {
	var users []string
	err := r.s.read(ctx, func(st *state) error {
		for u := range st.contributors[docID] {
			users = append(users, u)
		}
		return nil
	})
	sort.Strings(users)
	return users, err
}

func (r *documentRepository) Delete(ctx context.Context, id int64) error {
	return r.s.write(ctx, func(st *state) error {
		if _, ok := st.documents[id]; !ok {
			return documentNotFound(id)
		}
		for _, d := range st.documents {
			if d.ParentID != nil && *d.ParentID == id {
				return domain.NewValidationError(fmt.Sprintf("document %d still has translations", id))
			}
		}

		delete(st.documents, id)
		delete(st.contributors, id)
		for revID, rev := range st.revisions {
			if rev.DocumentID != id {
				continue
			}
			delete(st.revisions, revID)
			delete(st.anchors, revID)
			st.clearBasedOn(revID)
		}
		for k := range st.drafts {
			if k.documentID == id {
				delete(st.drafts, k)
			}
		}
		return nil
	})
}
