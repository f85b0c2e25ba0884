package memory

import (
	"context"
	"fmt"
	"time"

	"supportkb/internal/domain"
	models "supportkb/internal/domain/models/wiki"
)

type draftRepository struct {
	s *Store
}

func (r *draftRepository) Upsert(ctx context.Context, draft *models.DraftRevision) error {
	return r.s.write(ctx, func(st *state) error {
		if _, ok := st.documents[draft.DocumentID]; !ok {
			return documentNotFound(draft.DocumentID)
		}

		key := draftKey{creatorID: draft.CreatorID, documentID: draft.DocumentID, locale: draft.Locale}
		now := time.Now()
		if existing, ok := st.drafts[key]; ok {
			draft.ID = existing.ID
			draft.CreatedAt = existing.CreatedAt
		} else {
			draft.CreatedAt = now
		}
		draft.UpdatedAt = now

		cp := *draft
		cp.BasedOnID = copyID(draft.BasedOnID)
		st.drafts[key] = &cp
		return nil
	})
}

func (r *draftRepository) Get(ctx context.Context, creatorID string, docID int64, locale string) (*models.DraftRevision, error) {
	var out *models.DraftRevision
	err := r.s.read(ctx, func(st *state) error {
		d, ok := st.drafts[draftKey{creatorID: creatorID, documentID: docID, locale: locale}]
		if !ok {
			return &domain.NotFoundError{Message: fmt.Sprintf("no draft of document %d in %s", docID, locale)}
		}
		cp := *d
		cp.BasedOnID = copyID(d.BasedOnID)
		out = &cp
		return nil
	})
	return out, err
}

func (r *draftRepository) Delete(ctx context.Context, creatorID string, docID int64, locale string) error {
	return r.s.write(ctx, func(st *state) error {
		delete(st.drafts, draftKey{creatorID: creatorID, documentID: docID, locale: locale})
		return nil
	})
}

type anchorRecordRepository struct {
	s *Store
}

func (r *anchorRecordRepository) Get(ctx context.Context, revisionID int64) (*models.RevisionAnchorRecord, error) {
	var out *models.RevisionAnchorRecord
	err := r.s.read(ctx, func(st *state) error {
		a, ok := st.anchors[revisionID]
		if !ok {
			return &domain.NotFoundError{Message: fmt.Sprintf("no anchor record for revision %d", revisionID)}
		}
		out = copyAnchorRecord(a)
		return nil
	})
	return out, err
}

// CreateIfAbsent is atomic under the store lock; the first insert wins
func (r *anchorRecordRepository) CreateIfAbsent(ctx context.Context, record *models.RevisionAnchorRecord) (bool, error) {
	created := false
	err := r.s.write(ctx, func(st *state) error {
		if _, ok := st.revisions[record.RevisionID]; !ok {
			return revisionNotFound(record.RevisionID)
		}
		if _, exists := st.anchors[record.RevisionID]; exists {
			return nil
		}
		record.CreatedAt = time.Now()
		st.anchors[record.RevisionID] = copyAnchorRecord(record)
		created = true
		return nil
	})
	return created, err
}
