package wiki

import "time"

// DraftRevision is a scratch working copy scoped to one (creator, document, locale).
// It is discarded once the creator publishes a Revision for the same document and locale.
type DraftRevision struct {
	ID         string    `json:"id" db:"id"`
	CreatorID  string    `json:"creator_id" db:"creator_id"`
	DocumentID int64     `json:"document_id" db:"document_id"`
	Locale     string    `json:"locale" db:"locale"`
	BasedOnID  *int64    `json:"based_on_id,omitempty" db:"based_on_id"`
	Title      string    `json:"title" db:"title"`
	Slug       string    `json:"slug" db:"slug"`
	Summary    string    `json:"summary" db:"summary"`
	Keywords   string    `json:"keywords" db:"keywords"`
	Content    string    `json:"content" db:"content"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}
