package sanitizer

import (
	"github.com/microcosm-cc/bluemonday"
)

// HTMLSanitizer strips scripts, event handlers and unsafe URLs from imported HTML.
// Thread-safe for concurrent use.
type HTMLSanitizer struct {
	policy *bluemonday.Policy
}

// NewHTMLSanitizer keeps common formatting (headings, lists, links, tables, code).
// Images are dropped: imported articles reference media through [[Image:...]] hooks.
func NewHTMLSanitizer() *HTMLSanitizer {
	policy := bluemonday.UGCPolicy()
	policy.SkipElementsContent("script", "style", "noscript")
	return &HTMLSanitizer{policy: policy}
}

// Sanitize returns the safe subset of html
func (s *HTMLSanitizer) Sanitize(html string) string {
	return s.policy.Sanitize(html)
}
