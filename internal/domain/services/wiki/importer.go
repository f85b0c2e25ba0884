package wiki

import (
	"context"
	"io"

	models "supportkb/internal/domain/models/wiki"
)

// ContentConverter converts an uploaded file into wiki markup.
// Implementations should be stateless and thread-safe.
type ContentConverter interface {
	Convert(ctx context.Context, input []byte) (markup string, err error)

	// SupportedExtensions returns extensions with the leading dot (e.g. ".html")
	SupportedExtensions() []string

	// Name returns a converter name for logging
	Name() string
}

// UploadedFile is a file uploaded for import
type UploadedFile struct {
	Filename string
	Content  io.Reader
}

// ImportRequest imports files as origin-locale documents
type ImportRequest struct {
	Files     []UploadedFile
	Category  models.Category
	CreatorID string
}

// Importer turns uploaded files (single files or zip archives) into
// documents with one unreviewed revision each. Existing titles are skipped.
type Importer interface {
	Import(ctx context.Context, req *ImportRequest) (*ImportResult, error)
}

// ImportResult represents the result of a bulk import operation
type ImportResult struct {
	Summary   ImportSummary    `json:"summary"`
	Errors    []ImportError    `json:"errors"`
	Documents []ImportDocument `json:"documents"`
}

// ImportSummary contains aggregate statistics for an import operation
type ImportSummary struct {
	Created    int `json:"created"`
	Skipped    int `json:"skipped"`
	Failed     int `json:"failed"`
	TotalFiles int `json:"total_files"`
}

// ImportError represents a file that could not be imported
type ImportError struct {
	File  string `json:"file"`
	Error string `json:"error"`
}

// ImportDocument represents a processed file
type ImportDocument struct {
	File       string `json:"file"`
	DocumentID int64  `json:"document_id,omitempty"`
	RevisionID int64  `json:"revision_id,omitempty"`
	Title      string `json:"title"`
	Slug       string `json:"slug"`
	Action     string `json:"action"` // "created" or "skipped"
}
