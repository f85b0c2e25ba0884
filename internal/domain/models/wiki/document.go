package wiki

import (
	"fmt"
	"strings"
	"time"
)

// TemplateTitlePrefix marks documents that are markup templates rather than articles.
const TemplateTitlePrefix = "Template:"

// Redirect stub templates. The counter is appended only when the old title or slug
// is still taken (e.g. only the title changed, so the old slug still belongs to the document).
const (
	RedirectContent       = "REDIRECT [[%s]]"
	RedirectTitleTemplate = "%s Redirect %d"
	RedirectSlugTemplate  = "%s-redirect-%d"
)

// Category groups documents; translations always carry their parent's category.
type Category int

const (
	CategoryTroubleshooting Category = 10
	CategoryHowTo           Category = 20
	CategoryHowToContribute Category = 30
	CategoryAdministration  Category = 40
	CategoryNavigation      Category = 50
	CategoryTemplates       Category = 60
	CategoryCannedResponses Category = 70
)

// Categories lists every valid category in display order.
var Categories = []Category{
	CategoryTroubleshooting,
	CategoryHowTo,
	CategoryHowToContribute,
	CategoryAdministration,
	CategoryNavigation,
	CategoryTemplates,
	CategoryCannedResponses,
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

func (c Category) String() string {
	switch c {
	case CategoryTroubleshooting:
		return "troubleshooting"
	case CategoryHowTo:
		return "how-to"
	case CategoryHowToContribute:
		return "how-to-contribute"
	case CategoryAdministration:
		return "administration"
	case CategoryNavigation:
		return "navigation"
	case CategoryTemplates:
		return "templates"
	case CategoryCannedResponses:
		return "canned-responses"
	default:
		return fmt.Sprintf("category(%d)", int(c))
	}
}

// Document is a titled, slugged unit of content in one locale.
// ParentID is nil exactly when the document lives in the origin locale.
type Document struct {
	ID                          int64     `json:"id" db:"id"`
	Title                       string    `json:"title" db:"title"`
	Slug                        string    `json:"slug" db:"slug"`
	Locale                      string    `json:"locale" db:"locale"`
	Category                    Category  `json:"category" db:"category"`
	IsArchived                  bool      `json:"is_archived" db:"is_archived"`
	IsLocalizable               bool      `json:"is_localizable" db:"is_localizable"`
	ParentID                    *int64    `json:"parent_id,omitempty" db:"parent_id"`
	CurrentRevisionID           *int64    `json:"current_revision_id,omitempty" db:"current_revision_id"`
	LatestLocalizableRevisionID *int64    `json:"latest_localizable_revision_id,omitempty" db:"latest_localizable_revision_id"`
	HTML                        string    `json:"html" db:"html"`
	CreatedAt                   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt                   time.Time `json:"updated_at" db:"updated_at"`
}

// IsOrigin reports whether this document is authored in the origin locale.
func (d *Document) IsOrigin() bool {
	return d.ParentID == nil
}

// IsTemplate is derived from the title prefix.
func (d *Document) IsTemplate() bool {
	return IsTemplateTitle(d.Title)
}

// HasApprovedContent reports whether any revision has been approved.
func (d *Document) HasApprovedContent() bool {
	return d.CurrentRevisionID != nil
}

// LineageID returns the id of the origin-locale document of this document's family.
func (d *Document) LineageID() int64 {
	if d.ParentID != nil {
		return *d.ParentID
	}
	return d.ID
}

// IsTemplateTitle reports whether a title names a template document.
func IsTemplateTitle(title string) bool {
	return strings.HasPrefix(title, TemplateTitlePrefix)
}
