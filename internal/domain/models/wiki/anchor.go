package wiki

import "time"

// RevisionAnchorRecord caches the heading-correspondence map computed for a
// translated revision. One record per revision, never updated in place.
type RevisionAnchorRecord struct {
	RevisionID  int64             `json:"revision_id" db:"revision_id"`
	Map         map[string]string `json:"map" db:"anchor_map"`
	Explanation string            `json:"explanation" db:"explanation"`
	CreatedAt   time.Time         `json:"created_at" db:"created_at"`
}

// TranslationState summarizes how a locale's translation relates to its origin document.
type TranslationState string

const (
	TranslationMissing         TranslationState = "missing"
	TranslationUpToDate        TranslationState = "up_to_date"
	TranslationOutdated        TranslationState = "outdated"
	TranslationMajorlyOutdated TranslationState = "majorly_outdated"
	TranslationUnapproved      TranslationState = "unapproved"
)

// LocaleStatus is one row of a document's translation dashboard.
type LocaleStatus struct {
	Locale     string           `json:"locale"`
	DocumentID *int64           `json:"document_id,omitempty"`
	State      TranslationState `json:"state"`
}
