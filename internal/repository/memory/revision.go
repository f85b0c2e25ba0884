package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"supportkb/internal/domain"
	models "supportkb/internal/domain/models/wiki"
	wikiRepo "supportkb/internal/domain/repositories/wiki"
)

type revisionRepository struct {
	s *Store
}

func revisionNotFound(id int64) error {
	return &domain.NotFoundError{Message: fmt.Sprintf("revision %d not found", id)}
}

func (st *state) clearBasedOn(revisionID int64) int64 {
	var n int64
	for _, rev := range st.revisions {
		if rev.BasedOnID != nil && *rev.BasedOnID == revisionID {
			rev.BasedOnID = nil
			n++
		}
	}
	for _, d := range st.drafts {
		if d.BasedOnID != nil && *d.BasedOnID == revisionID {
			d.BasedOnID = nil
		}
	}
	return n
}

func (r *revisionRepository) Create(ctx context.Context, rev *models.Revision) error {
	return r.s.write(ctx, func(st *state) error {
		if _, ok := st.documents[rev.DocumentID]; !ok {
			return documentNotFound(rev.DocumentID)
		}
		if rev.BasedOnID != nil {
			if _, ok := st.revisions[*rev.BasedOnID]; !ok {
				return revisionNotFound(*rev.BasedOnID)
			}
		}

		st.nextRevisionID++
		rev.ID = st.nextRevisionID
		rev.CreatedAt = time.Now()
		rev.IsReadyForLocalization = false
		rev.ReadiedForLocalizationAt = nil
		rev.ReadiedForLocalizationBy = nil
		st.revisions[rev.ID] = copyRevision(rev)
		return nil
	})
}

func (r *revisionRepository) GetByID(ctx context.Context, id int64) (*models.Revision, error) {
	var out *models.Revision
	err := r.s.read(ctx, func(st *state) error {
		rev, ok := st.revisions[id]
		if !ok {
			return revisionNotFound(id)
		}
		out = copyRevision(rev)
		return nil
	})
	return out, err
}

// byDocument returns the document's revisions ordered by id descending
func (st *state) byDocument(docID int64) []*models.Revision {
	var revs []*models.Revision
	for _, rev := range st.revisions {
		if rev.DocumentID == docID {
			revs = append(revs, rev)
		}
	}
	sort.Slice(revs, func(i, j int) bool { return revs[i].ID > revs[j].ID })
	return revs
}

func (r *revisionRepository) ListByDocument(ctx context.Context, docID int64) ([]models.Revision, error) {
	var out []models.Revision
	err := r.s.read(ctx, func(st *state) error {
		for _, rev := range st.byDocument(docID) {
			out = append(out, *copyRevision(rev))
		}
		return nil
	})
	return out, err
}

func (r *revisionRepository) Review(ctx context.Context, id int64, update wikiRepo.ReviewUpdate) error {
	return r.s.write(ctx, func(st *state) error {
		rev, ok := st.revisions[id]
		if !ok {
			return revisionNotFound(id)
		}
		reviewer := update.ReviewerID
		reviewedAt := update.ReviewedAt
		rev.IsApproved = update.Approved
		rev.ReviewerID = &reviewer
		rev.ReviewedAt = &reviewedAt
		rev.Comment = update.Comment
		if !update.Approved {
			rev.IsReadyForLocalization = false
		}
		if update.Significance != nil {
			sig := *update.Significance
			rev.Significance = &sig
		}
		return nil
	})
}

func (r *revisionRepository) MarkReadyForLocalization(ctx context.Context, id int64, by string, at time.Time) error {
	return r.s.write(ctx, func(st *state) error {
		rev, ok := st.revisions[id]
		if !ok {
			return revisionNotFound(id)
		}
		if !rev.IsApproved {
			return domain.NewValidationError(fmt.Sprintf("revision %d is not approved", id))
		}
		rev.IsReadyForLocalization = true
		rev.ReadiedForLocalizationAt = &at
		rev.ReadiedForLocalizationBy = &by
		return nil
	})
}

func (r *revisionRepository) Delete(ctx context.Context, id int64) error {
	return r.s.write(ctx, func(st *state) error {
		if _, ok := st.revisions[id]; !ok {
			return revisionNotFound(id)
		}
		delete(st.revisions, id)
		delete(st.anchors, id)
		st.clearBasedOn(id)
		return nil
	})
}

func (r *revisionRepository) ClearBasedOn(ctx context.Context, revisionID int64) (int64, error) {
	var n int64
	err := r.s.write(ctx, func(st *state) error {
		n = st.clearBasedOn(revisionID)
		return nil
	})
	return n, err
}

func (r *revisionRepository) latestWhere(ctx context.Context, docID int64, what string, match func(rev *models.Revision) bool) (*models.Revision, error) {
	var out *models.Revision
	err := r.s.read(ctx, func(st *state) error {
		for _, rev := range st.byDocument(docID) {
			if match(rev) {
				out = copyRevision(rev)
				return nil
			}
		}
		return &domain.NotFoundError{Message: fmt.Sprintf("document %d has no %s revision", docID, what)}
	})
	return out, err
}

func (r *revisionRepository) LatestApproved(ctx context.Context, docID int64) (*models.Revision, error) {
	return r.latestWhere(ctx, docID, "approved", func(rev *models.Revision) bool {
		return rev.IsApproved
	})
}

func (r *revisionRepository) LatestReadyForLocalization(ctx context.Context, docID int64) (*models.Revision, error) {
	return r.latestWhere(ctx, docID, "localizable", func(rev *models.Revision) bool {
		return rev.IsApproved && rev.IsReadyForLocalization
	})
}

func (r *revisionRepository) LatestUnrejected(ctx context.Context, docID int64) (*models.Revision, error) {
	return r.latestWhere(ctx, docID, "unrejected", func(rev *models.Revision) bool {
		return !rev.IsRejected()
	})
}

func (r *revisionRepository) Latest(ctx context.Context, docID int64) (*models.Revision, error) {
	return r.latestWhere(ctx, docID, "stored", func(*models.Revision) bool { return true })
}

func (r *revisionRepository) ListCreatorsInRange(ctx context.Context, docID int64, afterID *int64, uptoID int64) ([]string, error) {
	seen := make(map[string]struct{})
	err := r.s.read(ctx, func(st *state) error {
		for _, rev := range st.byDocument(docID) {
			if rev.ID > uptoID || (afterID != nil && rev.ID <= *afterID) || rev.IsRejected() {
				continue
			}
			seen[rev.CreatorID] = struct{}{}
		}
		return nil
	})

	creators := make([]string, 0, len(seen))
	for c := range seen {
		creators = append(creators, c)
	}
	sort.Strings(creators)
	return creators, err
}

func (r *revisionRepository) HasReadyForLocalizationAfter(ctx context.Context, docID, afterID int64, minSignificance models.Significance) (bool, error) {
	found := false
	err := r.s.read(ctx, func(st *state) error {
		for _, rev := range st.byDocument(docID) {
			if rev.ID <= afterID {
				break
			}
			if rev.IsApproved && rev.IsReadyForLocalization && rev.SignificanceAtLeast(minSignificance) {
				found = true
				break
			}
		}
		return nil
	})
	return found, err
}
