package converter

import (
	"context"
	"fmt"

	md "github.com/JohannesKaufmann/html-to-markdown"

	wikiSvc "supportkb/internal/domain/services/wiki"
	"supportkb/internal/service/importer/converter/sanitizer"
)

// htmlConverter sanitizes HTML, converts it to markdown and then to wiki markup
type htmlConverter struct {
	sanitizer *sanitizer.HTMLSanitizer
	converter *md.Converter
}

// NewHTMLConverter creates the HTML converter
func NewHTMLConverter() wikiSvc.ContentConverter {
	return &htmlConverter{
		sanitizer: sanitizer.NewHTMLSanitizer(),
		converter: md.NewConverter("", true, &md.Options{
			HeadingStyle:     "atx",
			BulletListMarker: "*",
			EmDelimiter:      "_",
			StrongDelimiter:  "**",
		}),
	}
}

func (c *htmlConverter) Convert(ctx context.Context, input []byte) (string, error) {
	sanitized := c.sanitizer.Sanitize(string(input))

	markdown, err := c.converter.ConvertString(sanitized)
	if err != nil {
		return "", fmt.Errorf("failed to convert HTML to markdown: %w", err)
	}

	return MarkdownToWiki(markdown), nil
}

func (c *htmlConverter) SupportedExtensions() []string {
	return []string{".html", ".htm"}
}

func (c *htmlConverter) Name() string {
	return "html"
}
