package wiki

import (
	"context"

	"supportkb/internal/domain/models/wiki"
)

// DraftRepository stores per-(creator, document, locale) scratch copies
type DraftRepository interface {
	// Upsert creates or replaces the creator's draft for the document and locale
	Upsert(ctx context.Context, draft *wiki.DraftRevision) error

	// Get returns the creator's draft for the document and locale
	Get(ctx context.Context, creatorID string, docID int64, locale string) (*wiki.DraftRevision, error)

	// Delete removes the draft; deleting a missing draft is not an error
	Delete(ctx context.Context, creatorID string, docID int64, locale string) error
}

// AnchorRecordRepository persists heading-correspondence maps per translated revision
type AnchorRecordRepository interface {
	// Get returns the record for a revision or domain.ErrNotFound
	Get(ctx context.Context, revisionID int64) (*wiki.RevisionAnchorRecord, error)

	// CreateIfAbsent inserts the record atomically. Returns false, without
	// touching the stored row, when a record for the revision already exists.
	CreateIfAbsent(ctx context.Context, record *wiki.RevisionAnchorRecord) (bool, error)
}
