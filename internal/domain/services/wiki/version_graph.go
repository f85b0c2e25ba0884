package wiki

import (
	"context"

	models "supportkb/internal/domain/models/wiki"
)

// VersionGraph manages documents, revisions and the derived revision pointers
type VersionGraph interface {
	// CreateDocument creates a document together with its first revision
	CreateDocument(ctx context.Context, req *CreateDocumentRequest) (*DocumentResult, error)

	// CreateRevision proposes new content. Never changes document pointers.
	CreateRevision(ctx context.Context, req *CreateRevisionRequest) (*RevisionResult, error)

	// Approve marks a revision approved and advances the document's pointers when it is newer
	Approve(ctx context.Context, req *ApproveRequest) (*models.Document, error)

	// Reject records an explicit rejection, repairing pointers if the revision was current
	Reject(ctx context.Context, req *RejectRequest) (*models.Document, error)

	// MarkReadyForLocalization flags an approved origin revision as a translation basis
	MarkReadyForLocalization(ctx context.Context, revisionID int64, approverID string) (*models.Document, error)

	// DeleteRevision deletes a revision and rolls pointers back
	DeleteRevision(ctx context.Context, revisionID int64) (*models.Document, error)

	// CommitEdit applies metadata changes made in an EditSession, creating a
	// redirect stub when an approved document changes title or slug
	CommitEdit(ctx context.Context, session *EditSession, changes *DocumentChanges) (*EditResult, error)

	// DeleteDocument deletes a document that has no translations
	DeleteDocument(ctx context.Context, documentID int64) error

	GetDocument(ctx context.Context, documentID int64) (*models.Document, error)
	GetDocumentBySlug(ctx context.Context, locale, slug string) (*models.Document, error)
	GetTranslation(ctx context.Context, parentID int64, locale string) (*models.Document, error)
	GetRevision(ctx context.Context, revisionID int64) (*models.Revision, error)
	ListRevisions(ctx context.Context, documentID int64) ([]models.Revision, error)
	ListContributors(ctx context.Context, documentID int64) ([]string, error)
}

// CreateDocumentRequest represents a document creation request
type CreateDocumentRequest struct {
	Title         string          `json:"title"`
	Slug          string          `json:"slug"`
	Locale        string          `json:"locale"`
	Category      models.Category `json:"category"`
	IsLocalizable *bool           `json:"is_localizable,omitempty"` // Defaults to true for origin documents
	ParentID      *int64          `json:"parent_id,omitempty"`      // Origin document, required outside the origin locale
	Content       string          `json:"content"`
	Summary       string          `json:"summary"`
	Keywords      string          `json:"keywords"`
	BasedOnID     *int64          `json:"based_on_id,omitempty"`
	CreatorID     string          `json:"-"` // Set by handler from auth context
}

// CreateRevisionRequest represents a new revision of an existing document
type CreateRevisionRequest struct {
	DocumentID int64  `json:"-"`
	Content    string `json:"content"`
	Summary    string `json:"summary"`
	Keywords   string `json:"keywords"`
	BasedOnID  *int64 `json:"based_on_id,omitempty"`
	CreatorID  string `json:"-"`
}

// RevisionResult carries a created revision. BasedOnGuessed is set when a
// translation arrived without based_on and one was filled in.
type RevisionResult struct {
	Revision       *models.Revision `json:"revision"`
	BasedOnGuessed bool             `json:"based_on_guessed"`
}

// DocumentResult carries a created document and its first revision
type DocumentResult struct {
	Document *models.Document `json:"document"`
	RevisionResult
}

// ApproveRequest represents a review approving a revision
type ApproveRequest struct {
	RevisionID           int64                `json:"-"`
	ReviewerID           string               `json:"-"`
	Significance         *models.Significance `json:"significance,omitempty"`
	ReadyForLocalization bool                 `json:"ready_for_localization"`
	Comment              string               `json:"comment"`
}

// RejectRequest represents a review rejecting a revision
type RejectRequest struct {
	RevisionID int64  `json:"-"`
	ReviewerID string `json:"-"`
	Comment    string `json:"comment"`
}

// EditSession snapshots a document's location before metadata edits so the
// commit can tell whether a redirect is needed.
type EditSession struct {
	Document *models.Document
	OldTitle string
	OldSlug  string
}

// BeginEdit starts an edit of doc's metadata
func BeginEdit(doc *models.Document) *EditSession {
	cp := *doc
	return &EditSession{Document: &cp, OldTitle: doc.Title, OldSlug: doc.Slug}
}

// DocumentChanges lists metadata to change; nil fields stay as they are
type DocumentChanges struct {
	Title         *string          `json:"title,omitempty"`
	Slug          *string          `json:"slug,omitempty"`
	Category      *models.Category `json:"category,omitempty"`
	IsArchived    *bool            `json:"is_archived,omitempty"`
	IsLocalizable *bool            `json:"is_localizable,omitempty"`
	EditorID      string           `json:"-"` // Creator of any redirect stub
}

// EditResult is the committed document and, when one was created, its redirect stub
type EditResult struct {
	Document *models.Document `json:"document"`
	Redirect *models.Document `json:"redirect,omitempty"`
}
