package wiki

import "context"

// MarkupRenderer converts raw markup to HTML. Output is deterministic for
// identical input and headings carry a content-derived id attribute.
type MarkupRenderer interface {
	Render(ctx context.Context, markup, locale string) (string, error)
}

// TranslationPair is an earlier source text and its accepted translation,
// given to the translator so unchanged passages keep their wording.
type TranslationPair struct {
	Source      string `json:"source"`
	Translation string `json:"translation"`
}

// TranslateRequest asks for sourceText to be translated into TargetLocale
type TranslateRequest struct {
	SourceText   string
	SourceLocale string
	TargetLocale string
	Prior        *TranslationPair
}

// TranslateResult is the parsed translator answer
type TranslateResult struct {
	Translation string `json:"translation"`
	Explanation string `json:"explanation"`
}

// HeadingMap maps source heading ids to the ids of equivalent target headings.
// Headings without an equivalent are absent.
type HeadingMap struct {
	Map         map[string]string `json:"map"`
	Explanation string            `json:"explanation"`
}

// TranslationService translates text and matches headings across locales
type TranslationService interface {
	// Translate fails with *domain.TranslationFormatError when the provider
	// answer cannot be parsed into {translation, explanation}.
	Translate(ctx context.Context, req *TranslateRequest) (*TranslateResult, error)

	// GetHeadingMap returns an empty map (nil error) when the provider answer
	// cannot be parsed. Transport failures and timeouts are returned as errors.
	GetHeadingMap(ctx context.Context, sourceHTML, targetHTML, sourceLocale, targetLocale string) (*HeadingMap, error)
}
