package wiki

import (
	"context"
)

// AnchorResolver rewrites anchor links in translated text to the target
// locale's heading ids. Failures degrade to returning the input unchanged
// for the affected scope, so it never returns an error.
type AnchorResolver interface {
	ResolveAnchors(ctx context.Context, sourceLocale, sourceText, targetLocale, targetText string) string
}

// ComputeFn produces the heading map for a revision on a cache miss
type ComputeFn func(ctx context.Context) (*HeadingMap, error)

// AnchorMapCache stores one heading map per translated revision
type AnchorMapCache interface {
	// Get returns the cached map; found is false on a miss
	Get(ctx context.Context, revisionID int64) (anchorMap map[string]string, found bool, err error)

	// GetOrCompute returns the cached map, computing and storing it atomically on a miss.
	// Concurrent callers for the same revision observe the same stored map.
	GetOrCompute(ctx context.Context, revisionID int64, compute ComputeFn) (map[string]string, error)
}

// Translator is the machine translation pipeline
type Translator interface {
	// TranslateDocument translates the origin document's latest localizable
	// revision into one locale, creating the translation document if needed
	TranslateDocument(ctx context.Context, req *TranslateDocumentRequest) (*TranslateDocumentResult, error)

	// TranslateAll translates into every machine-translated locale that is missing or outdated
	TranslateAll(ctx context.Context, documentID int64, creatorID string) (*TranslateAllResult, error)
}

// TranslateDocumentRequest selects the document and target locale
type TranslateDocumentRequest struct {
	DocumentID   int64  `json:"-"`
	TargetLocale string `json:"-"`
	CreatorID    string `json:"-"`
}

// TranslateDocumentResult reports what the pipeline wrote
type TranslateDocumentResult struct {
	Locale       string `json:"locale"`
	DocumentID   int64  `json:"document_id"`
	RevisionID   int64  `json:"revision_id"`
	Created      bool   `json:"created"`       // a new translation document was created
	AutoApproved bool   `json:"auto_approved"` // the revision was approved by the pipeline
	Explanation  string `json:"explanation,omitempty"`
}

// TranslateAllResult collects per-locale outcomes
type TranslateAllResult struct {
	Translated []TranslateDocumentResult `json:"translated"`
	Skipped    []string                  `json:"skipped"` // up to date
	Failed     map[string]string         `json:"failed"`  // locale -> error message
}
