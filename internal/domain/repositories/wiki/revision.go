package wiki

import (
	"context"
	"time"

	"supportkb/internal/domain/models/wiki"
)

// ReviewUpdate carries the fields written when a revision is reviewed
type ReviewUpdate struct {
	Approved     bool
	ReviewerID   string
	ReviewedAt   time.Time
	Significance *wiki.Significance
	Comment      string
}

// RevisionRepository defines data access operations for revisions.
// Lookups returning "latest" order by id descending and return domain.ErrNotFound when empty.
type RevisionRepository interface {
	// Create inserts a revision and assigns its ID and CreatedAt
	Create(ctx context.Context, rev *wiki.Revision) error

	// GetByID retrieves a revision by ID
	GetByID(ctx context.Context, id int64) (*wiki.Revision, error)

	// ListByDocument lists a document's revisions, newest first
	ListByDocument(ctx context.Context, docID int64) ([]wiki.Revision, error)

	// Review records an approval or rejection
	Review(ctx context.Context, id int64, update ReviewUpdate) error

	// MarkReadyForLocalization sets the readiness flag, timestamp and approver
	MarkReadyForLocalization(ctx context.Context, id int64, by string, at time.Time) error

	// Delete removes a revision
	Delete(ctx context.Context, id int64) error

	// ClearBasedOn detaches every revision whose based_on points at revisionID
	ClearBasedOn(ctx context.Context, revisionID int64) (int64, error)

	// LatestApproved returns the highest-id approved revision of a document
	LatestApproved(ctx context.Context, docID int64) (*wiki.Revision, error)

	// LatestReadyForLocalization returns the highest-id approved, ready revision
	LatestReadyForLocalization(ctx context.Context, docID int64) (*wiki.Revision, error)

	// LatestUnrejected returns the highest-id revision that was not explicitly rejected
	LatestUnrejected(ctx context.Context, docID int64) (*wiki.Revision, error)

	// Latest returns the highest-id revision of any kind
	Latest(ctx context.Context, docID int64) (*wiki.Revision, error)

	// ListCreatorsInRange returns distinct creators of non-rejected revisions with
	// afterID < id <= uptoID (afterID nil means from the beginning)
	ListCreatorsInRange(ctx context.Context, docID int64, afterID *int64, uptoID int64) ([]string, error)

	// HasReadyForLocalizationAfter reports whether the document has an approved, ready
	// revision with id > afterID and significance >= minSignificance
	HasReadyForLocalizationAfter(ctx context.Context, docID, afterID int64, minSignificance wiki.Significance) (bool, error)
}
