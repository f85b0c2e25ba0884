package wiki

import (
	"fmt"
	"time"
)

// Significance describes how much an edit changes the meaning of a document.
// Levels are ordered; comparisons between them are meaningful.
type Significance int

const (
	SignificanceNone   Significance = 0
	SignificanceTypo   Significance = 10
	SignificanceMedium Significance = 20
	SignificanceMajor  Significance = 30
)

// Valid reports whether s is one of the known levels.
func (s Significance) Valid() bool {
	switch s {
	case SignificanceNone, SignificanceTypo, SignificanceMedium, SignificanceMajor:
		return true
	}
	return false
}

func (s Significance) String() string {
	switch s {
	case SignificanceNone:
		return "none"
	case SignificanceTypo:
		return "typo"
	case SignificanceMedium:
		return "medium"
	case SignificanceMajor:
		return "major"
	default:
		return fmt.Sprintf("significance(%d)", int(s))
	}
}

// ParseSignificance maps the names used by the API to levels.
func ParseSignificance(name string) (Significance, error) {
	switch name {
	case "none":
		return SignificanceNone, nil
	case "typo":
		return SignificanceTypo, nil
	case "medium":
		return SignificanceMedium, nil
	case "major":
		return SignificanceMajor, nil
	}
	return 0, fmt.Errorf("unknown significance %q", name)
}

// Revision is an immutable proposed content snapshot of one Document.
// Only review and localization-readiness fields change after creation.
type Revision struct {
	ID                       int64         `json:"id" db:"id"`
	DocumentID               int64         `json:"document_id" db:"document_id"`
	Content                  string        `json:"content" db:"content"`
	Summary                  string        `json:"summary" db:"summary"`
	Keywords                 string        `json:"keywords" db:"keywords"`
	Comment                  string        `json:"comment" db:"comment"`
	Significance             *Significance `json:"significance,omitempty" db:"significance"`
	CreatorID                string        `json:"creator_id" db:"creator_id"`
	ReviewerID               *string       `json:"reviewer_id,omitempty" db:"reviewer_id"`
	CreatedAt                time.Time     `json:"created_at" db:"created_at"`
	ReviewedAt               *time.Time    `json:"reviewed_at,omitempty" db:"reviewed_at"`
	IsApproved               bool          `json:"is_approved" db:"is_approved"`
	IsReadyForLocalization   bool          `json:"is_ready_for_localization" db:"is_ready_for_localization"`
	ReadiedForLocalizationAt *time.Time    `json:"readied_for_localization_at,omitempty" db:"readied_for_localization_at"`
	ReadiedForLocalizationBy *string       `json:"readied_for_localization_by,omitempty" db:"readied_for_localization_by"`
	BasedOnID                *int64        `json:"based_on_id,omitempty" db:"based_on_id"`
}

// IsRejected reports an explicit rejection: reviewed but not approved.
func (r *Revision) IsRejected() bool {
	return !r.IsApproved && r.ReviewedAt != nil
}

// SignificanceAtLeast compares the revision's significance with a threshold.
// A revision without significance never meets a threshold above none.
func (r *Revision) SignificanceAtLeast(threshold Significance) bool {
	if r.Significance == nil {
		return threshold <= SignificanceNone
	}
	return *r.Significance >= threshold
}

// CanBeReadiedForLocalization holds for approved, non-trivial revisions of
// origin-locale documents.
func (r *Revision) CanBeReadiedForLocalization(doc *Document) bool {
	return r.IsApproved &&
		r.Significance != nil && *r.Significance > SignificanceTypo &&
		doc.IsOrigin()
}

// NewerThan reports whether the revision sorts after the pointer (nil pointers sort first).
func (r *Revision) NewerThan(pointer *int64) bool {
	return pointer == nil || r.ID > *pointer
}
