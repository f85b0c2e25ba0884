package config

const (
	// MaxTitleLength is the maximum length for document titles.
	// Limited to 255 to fit in PostgreSQL VARCHAR(255).
	MaxTitleLength = 255

	// MaxSlugLength is the maximum length for document slugs.
	// Same as titles so a slug derived from a title always fits.
	MaxSlugLength = 255

	// MaxSummaryLength is the maximum length for revision summaries.
	MaxSummaryLength = 1000

	// MaxKeywordsLength is the maximum length for revision keywords.
	MaxKeywordsLength = 255

	// MaxCommentLength is the maximum length for review comments.
	MaxCommentLength = 255

	// MaxRedirectAttempts bounds the counter used to find a free
	// title/slug for a redirect stub.
	MaxRedirectAttempts = 50

	// MaxImportFileSize caps a single uploaded import file (zip included).
	MaxImportFileSize = 32 << 20
)
