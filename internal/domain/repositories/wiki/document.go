package wiki

import (
	"context"

	"supportkb/internal/domain/models/wiki"
)

// DocumentRepository defines data access operations for documents
type DocumentRepository interface {
	// Create inserts a document. Title and slug collisions within the locale,
	// and a second translation of the same parent into one locale, return *domain.ConflictError.
	Create(ctx context.Context, doc *wiki.Document) error

	// GetByID retrieves a document by ID
	GetByID(ctx context.Context, id int64) (*wiki.Document, error)

	// GetByIDForUpdate retrieves a document and locks its row until the
	// surrounding transaction ends. Must be called inside ExecTx.
	GetByIDForUpdate(ctx context.Context, id int64) (*wiki.Document, error)

	// GetByTitle retrieves a document by exact title within a locale
	GetByTitle(ctx context.Context, locale, title string) (*wiki.Document, error)

	// GetBySlug retrieves a document by slug within a locale
	GetBySlug(ctx context.Context, locale, slug string) (*wiki.Document, error)

	// GetTranslation returns the translation of parentID into locale
	GetTranslation(ctx context.Context, parentID int64, locale string) (*wiki.Document, error)

	// ListTranslations lists every translation of an origin document
	ListTranslations(ctx context.Context, parentID int64) ([]wiki.Document, error)

	// CountTranslations counts translations of an origin document
	CountTranslations(ctx context.Context, parentID int64) (int, error)

	// Update writes title, slug, category, archived and localizable flags
	Update(ctx context.Context, doc *wiki.Document) error

	// AdvanceCurrentRevision moves current_revision forward to revisionID and
	// stores the rendered HTML, only when the current pointer is null or lower.
	// Returns false when the precondition did not hold.
	AdvanceCurrentRevision(ctx context.Context, docID, revisionID int64, html string) (bool, error)

	// AdvanceLatestLocalizable moves latest_localizable_revision forward under the same rule
	AdvanceLatestLocalizable(ctx context.Context, docID, revisionID int64) (bool, error)

	// SetRevisionPointers overwrites both pointers (used for repair after deletes)
	SetRevisionPointers(ctx context.Context, docID int64, current, latestLocalizable *int64) error

	// SetHTMLIfCurrent stores html only if revisionID is still the current revision
	// (nil revisionID means "no current revision").
	SetHTMLIfCurrent(ctx context.Context, docID int64, revisionID *int64, html string) (bool, error)

	// PropagateInherited copies category and archived flag to every translation of parentID
	PropagateInherited(ctx context.Context, parentID int64, category wiki.Category, archived bool) (int64, error)

	// AddContributors records users as contributors (idempotent)
	AddContributors(ctx context.Context, docID int64, userIDs []string) error

	// ListContributors lists contributor user IDs of a document
	ListContributors(ctx context.Context, docID int64) ([]string, error)

	// Delete removes a document with its revisions, drafts and anchor records
	Delete(ctx context.Context, id int64) error
}
