package wiki

import (
	"context"

	models "supportkb/internal/domain/models/wiki"
)

// LocalizationState decides whether translations lag their origin document
type LocalizationState interface {
	// IsOutdated is false for origin documents and documents without a current revision.
	// Otherwise it reports whether the parent has an approved, ready revision newer
	// than the current revision's based_on with significance >= threshold.
	IsOutdated(ctx context.Context, doc *models.Document, threshold models.Significance) (bool, error)

	// IsOutdatedMedium is IsOutdated at medium significance
	IsOutdatedMedium(ctx context.Context, doc *models.Document) (bool, error)

	// IsMajorlyOutdated is IsOutdated at major significance
	IsMajorlyOutdated(ctx context.Context, doc *models.Document) (bool, error)

	// LocalizableOrLatestRevision picks the revision to translate or show.
	// Returns nil, nil when no revision qualifies.
	LocalizableOrLatestRevision(ctx context.Context, doc *models.Document, includeRejected bool) (*models.Revision, error)

	// TranslationStatus reports one row per enabled translation locale of an origin document
	TranslationStatus(ctx context.Context, origin *models.Document) ([]models.LocaleStatus, error)
}

// DraftService manages per-user scratch copies
type DraftService interface {
	SaveDraft(ctx context.Context, req *SaveDraftRequest) (*models.DraftRevision, error)
	GetDraft(ctx context.Context, creatorID string, documentID int64, locale string) (*models.DraftRevision, error)
	DiscardDraft(ctx context.Context, creatorID string, documentID int64, locale string) error
}

// SaveDraftRequest represents a draft upsert
type SaveDraftRequest struct {
	CreatorID  string `json:"-"`
	DocumentID int64  `json:"-"`
	Locale     string `json:"-"`
	BasedOnID  *int64 `json:"based_on_id,omitempty"`
	Title      string `json:"title"`
	Slug       string `json:"slug"`
	Summary    string `json:"summary"`
	Keywords   string `json:"keywords"`
	Content    string `json:"content"`
}
