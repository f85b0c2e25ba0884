package wiki

import (
	"errors"
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"supportkb/internal/config"
	"supportkb/internal/domain"
	models "supportkb/internal/domain/models/wiki"
	wikiSvc "supportkb/internal/domain/services/wiki"
)

func validateCreateDocument(req *wikiSvc.CreateDocumentRequest) error {
	return validation.ValidateStruct(req,
		validation.Field(&req.Title, validation.Required, validation.Length(1, config.MaxTitleLength)),
		validation.Field(&req.Slug, validation.Required, validation.Length(1, config.MaxSlugLength), validation.By(noSlash)),
		validation.Field(&req.Locale, validation.Required),
		// Translations take their parent's category
		validation.Field(&req.Category, validation.When(req.ParentID == nil, validation.By(knownCategory))),
		validation.Field(&req.Content, validation.Required),
		validation.Field(&req.Summary, validation.Length(0, config.MaxSummaryLength)),
		validation.Field(&req.Keywords, validation.Length(0, config.MaxKeywordsLength)),
		validation.Field(&req.CreatorID, validation.Required),
	)
}

func validateCreateRevision(req *wikiSvc.CreateRevisionRequest) error {
	return validation.ValidateStruct(req,
		validation.Field(&req.Content, validation.Required),
		validation.Field(&req.Summary, validation.Length(0, config.MaxSummaryLength)),
		validation.Field(&req.Keywords, validation.Length(0, config.MaxKeywordsLength)),
		validation.Field(&req.CreatorID, validation.Required),
	)
}

func validateDocumentChanges(changes *wikiSvc.DocumentChanges) error {
	return validation.ValidateStruct(changes,
		validation.Field(&changes.Title, validation.NilOrNotEmpty, validation.Length(1, config.MaxTitleLength)),
		validation.Field(&changes.Slug, validation.NilOrNotEmpty, validation.Length(1, config.MaxSlugLength), validation.By(noSlash)),
		validation.Field(&changes.Category, validation.By(knownCategory)),
	)
}

func validateSaveDraft(req *wikiSvc.SaveDraftRequest) error {
	return validation.ValidateStruct(req,
		validation.Field(&req.CreatorID, validation.Required),
		validation.Field(&req.DocumentID, validation.Required),
		validation.Field(&req.Locale, validation.Required),
		validation.Field(&req.Title, validation.Length(0, config.MaxTitleLength)),
		validation.Field(&req.Slug, validation.Length(0, config.MaxSlugLength), validation.By(noSlash)),
		validation.Field(&req.Summary, validation.Length(0, config.MaxSummaryLength)),
		validation.Field(&req.Keywords, validation.Length(0, config.MaxKeywordsLength)),
	)
}

// noSlash rejects slugs that would break /kb/{locale}/{slug} routing
func noSlash(value interface{}) error {
	var s string
	switch v := value.(type) {
	case string:
		s = v
	case *string:
		if v == nil {
			return nil
		}
		s = *v
	}
	if strings.Contains(s, "/") {
		return errors.New("must not contain '/'")
	}
	return nil
}

func knownCategory(value interface{}) error {
	var c models.Category
	switch v := value.(type) {
	case models.Category:
		c = v
	case *models.Category:
		if v == nil {
			return nil
		}
		c = *v
	}
	if !c.Valid() {
		return fmt.Errorf("unknown category %d", int(c))
	}
	return nil
}

// validateTemplateCategory: a Template: title belongs in the templates
// category and the templates category holds only Template: titles.
func validateTemplateCategory(title string, category models.Category) error {
	isTemplate := models.IsTemplateTitle(title)
	if isTemplate && category != models.CategoryTemplates {
		return domain.NewValidationError(fmt.Sprintf("documents titled %q must be in the templates category", models.TemplateTitlePrefix))
	}
	if !isTemplate && category == models.CategoryTemplates {
		return domain.NewValidationError(fmt.Sprintf("documents in the templates category must be titled %q", models.TemplateTitlePrefix+"..."))
	}
	return nil
}
