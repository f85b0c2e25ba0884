package converter

import (
	"context"
	"strings"

	"github.com/dlclark/regexp2"

	wikiSvc "supportkb/internal/domain/services/wiki"
)

var (
	strongPattern   = regexp2.MustCompile(`(\*\*|__)(?<text>\S(?:.*?\S)?)\1`, regexp2.None)
	emPattern       = regexp2.MustCompile(`(?<![\w*])[*_](?<text>[^\s*_](?:[^*_]*[^\s*_])?)[*_](?![\w*])`, regexp2.None)
	listItemPattern = regexp2.MustCompile(`^\s*[-+*]\s+`, regexp2.None)
	escapePattern   = regexp2.MustCompile(`\\(?<char>[\\*_{}\[\]()#+\-.!])`, regexp2.None)
)

// MarkdownToWiki rewrites the markdown constructs the wiki dialect knows:
// ATX headings, bullet lists, strong and emphasis. Everything else passes
// through as text.
func MarkdownToWiki(markdown string) string {
	lines := strings.Split(strings.ReplaceAll(markdown, "\r\n", "\n"), "\n")
	out := make([]string, 0, len(lines))

	for _, line := range lines {
		if level, text, ok := atxHeading(line); ok {
			marks := strings.Repeat("=", level)
			out = append(out, marks+" "+text+" "+marks)
			continue
		}
		if loc, _ := listItemPattern.FindStringMatch(line); loc != nil {
			line = "* " + line[loc.Length:]
		}
		out = append(out, inlineToWiki(line))
	}

	return strings.TrimSpace(strings.Join(out, "\n")) + "\n"
}

// atxHeading parses "## Title ##" style headings
func atxHeading(line string) (int, string, bool) {
	trimmed := strings.TrimSpace(line)
	level := 0
	for level < len(trimmed) && trimmed[level] == '#' {
		level++
	}
	if level == 0 || level > 6 || level == len(trimmed) || trimmed[level] != ' ' {
		return 0, "", false
	}
	text := strings.TrimSpace(strings.TrimRight(trimmed[level:], "#"))
	if text == "" {
		return 0, "", false
	}
	return level, inlineToWiki(text), true
}

func inlineToWiki(text string) string {
	if res, err := strongPattern.Replace(text, "'''${text}'''", -1, -1); err == nil {
		text = res
	}
	if res, err := emPattern.Replace(text, "''${text}''", -1, -1); err == nil {
		text = res
	}
	// html-to-markdown escapes punctuation that wiki markup treats as text
	if res, err := escapePattern.Replace(text, "${char}", -1, -1); err == nil {
		text = res
	}
	return text
}

// markdownConverter converts markdown files to wiki markup
type markdownConverter struct{}

func NewMarkdownConverter() wikiSvc.ContentConverter {
	return &markdownConverter{}
}

func (c *markdownConverter) Convert(ctx context.Context, input []byte) (string, error) {
	return MarkdownToWiki(string(input)), nil
}

func (c *markdownConverter) SupportedExtensions() []string {
	return []string{".md", ".markdown"}
}

func (c *markdownConverter) Name() string {
	return "markdown"
}

// wikiConverter is a passthrough for files already in wiki markup or plain text
type wikiConverter struct{}

func NewWikiConverter() wikiSvc.ContentConverter {
	return &wikiConverter{}
}

func (c *wikiConverter) Convert(ctx context.Context, input []byte) (string, error) {
	return strings.ReplaceAll(string(input), "\r\n", "\n"), nil
}

func (c *wikiConverter) SupportedExtensions() []string {
	return []string{".wiki", ".txt", ".text"}
}

func (c *wikiConverter) Name() string {
	return "wiki"
}
