// Package markup renders the knowledge base's wiki markup to HTML.
//
// The dialect is deliberately small: headings (= Title = .. ====== Title ======),
// paragraphs separated by blank lines, "* " bullet lists, '''bold''', ''italic''
// and [[...]] links. Headings get a stable id derived from their text, which is
// what anchors in [[#w_...]] and [[Title#w_...]] links point at.
package markup

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"net/url"
	"regexp"
	"strings"

	"github.com/dlclark/regexp2"
	"github.com/microcosm-cc/bluemonday"
)

var (
	headingPattern  = regexp2.MustCompile(`^(?<level>={1,6})\s*(?<text>.+?)\s*\k<level>\s*$`, regexp2.None)
	redirectPattern = regexp2.MustCompile(`^REDIRECT\s*\[\[(?<title>[^\]|#]+)\]\]\s*$`, regexp2.None)
	linkPattern     = regexp2.MustCompile(`\[\[(?<target>[^\]|]*)(?:\|(?<label>[^\]]*))?\]\]`, regexp2.None)
	boldPattern     = regexp2.MustCompile(`'''(?<text>.+?)'''`, regexp2.None)
	italicPattern   = regexp2.MustCompile(`''(?<text>.+?)''`, regexp2.None)

	headingIDAttr = regexp.MustCompile(`^w_[a-z0-9\-_]+$`)
	classAttr     = regexp.MustCompile(`^(redirect|hook)$`)
)

// Renderer implements the MarkupRenderer collaborator.
// Output is deterministic for identical input. Safe for concurrent use.
type Renderer struct {
	policy *bluemonday.Policy
	logger *slog.Logger
}

// NewRenderer creates a renderer whose output is sanitized with a UGC policy
// that keeps heading ids.
func NewRenderer(logger *slog.Logger) *Renderer {
	policy := bluemonday.UGCPolicy()
	policy.AllowAttrs("id").Matching(headingIDAttr).OnElements("h1", "h2", "h3", "h4", "h5", "h6")
	policy.AllowAttrs("class").Matching(classAttr).OnElements("p", "span")

	return &Renderer{policy: policy, logger: logger}
}

// Render converts markup to sanitized HTML. Links to other documents point at
// /kb/{locale}/{title}; the server resolves titles to slugs.
func (r *Renderer) Render(ctx context.Context, markup, locale string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	p := &renderPass{locale: locale, ids: newHeadingIDs()}
	lines := strings.Split(strings.ReplaceAll(markup, "\r\n", "\n"), "\n")

	if len(lines) > 0 {
		if m, _ := redirectPattern.FindStringMatch(strings.TrimSpace(lines[0])); m != nil {
			title := strings.TrimSpace(m.GroupByName("title").String())
			fmt.Fprintf(&p.out, `<p class="redirect">REDIRECT <a href="%s">%s</a></p>`,
				p.documentURL(title, ""), html.EscapeString(title))
			lines = lines[1:]
		}
	}

	for _, line := range lines {
		if err := p.line(line); err != nil {
			return "", err
		}
	}
	p.flush()

	return r.policy.Sanitize(p.out.String()), nil
}

type renderPass struct {
	locale    string
	ids       *headingIDs
	out       strings.Builder
	paragraph []string
	list      []string
}

func (p *renderPass) line(raw string) error {
	line := strings.TrimRight(raw, " \t")

	if strings.TrimSpace(line) == "" {
		p.flush()
		return nil
	}

	if m, err := headingPattern.FindStringMatch(line); err != nil {
		return fmt.Errorf("match heading: %w", err)
	} else if m != nil {
		p.flush()
		level := len(m.GroupByName("level").String())
		text := m.GroupByName("text").String()
		inline, err := p.inline(text)
		if err != nil {
			return err
		}
		fmt.Fprintf(&p.out, `<h%d id="%s">%s</h%d>`, level, p.ids.next(text), inline, level)
		return nil
	}

	if strings.HasPrefix(line, "* ") {
		p.flushParagraph()
		p.list = append(p.list, strings.TrimSpace(line[2:]))
		return nil
	}

	p.flushList()
	p.paragraph = append(p.paragraph, strings.TrimSpace(line))
	return nil
}

func (p *renderPass) flush() {
	p.flushParagraph()
	p.flushList()
}

func (p *renderPass) flushParagraph() {
	if len(p.paragraph) == 0 {
		return
	}
	inline, err := p.inline(strings.Join(p.paragraph, " "))
	if err != nil {
		inline = html.EscapeString(strings.Join(p.paragraph, " "))
	}
	fmt.Fprintf(&p.out, "<p>%s</p>", inline)
	p.paragraph = nil
}

func (p *renderPass) flushList() {
	if len(p.list) == 0 {
		return
	}
	p.out.WriteString("<ul>")
	for _, item := range p.list {
		inline, err := p.inline(item)
		if err != nil {
			inline = html.EscapeString(item)
		}
		fmt.Fprintf(&p.out, "<li>%s</li>", inline)
	}
	p.out.WriteString("</ul>")
	p.list = nil
}

// inline escapes text and expands links and emphasis
func (p *renderPass) inline(text string) (string, error) {
	var b strings.Builder
	// regexp2 reports positions in runes
	chars := []rune(text)
	last := 0

	m, err := linkPattern.FindStringMatch(text)
	for ; m != nil && err == nil; m, err = linkPattern.FindNextMatch(m) {
		b.WriteString(emphasis(html.EscapeString(string(chars[last:m.Index]))))
		b.WriteString(p.link(m.GroupByName("target").String(), m.GroupByName("label")))
		last = m.Index + m.Length
	}
	if err != nil {
		return "", fmt.Errorf("match links: %w", err)
	}
	b.WriteString(emphasis(html.EscapeString(string(chars[last:]))))

	return b.String(), nil
}

func (p *renderPass) link(target string, labelGroup *regexp2.Group) string {
	target = strings.TrimSpace(target)
	label := target
	if labelGroup != nil && labelGroup.Length > 0 {
		label = strings.TrimSpace(labelGroup.String())
	}

	if IsHookTarget(target) {
		return fmt.Sprintf(`<span class="hook">%s</span>`, html.EscapeString(label))
	}

	title, anchor, _ := strings.Cut(target, "#")
	title = strings.TrimSpace(title)
	anchor = strings.TrimSpace(anchor)
	if label == target && title != "" {
		label = title
	}

	var href string
	if title == "" {
		href = "#" + anchor
	} else {
		href = p.documentURL(title, anchor)
	}
	return fmt.Sprintf(`<a href="%s">%s</a>`, html.EscapeString(href), html.EscapeString(label))
}

func (p *renderPass) documentURL(title, anchor string) string {
	u := "/kb/" + url.PathEscape(p.locale) + "/" + url.PathEscape(title)
	if anchor != "" {
		u += "#" + anchor
	}
	return u
}

// emphasis expands ''' and '' on escaped text. html.EscapeString turns quotes
// into &#39;, so they are restored for matching and escaped again afterwards.
func emphasis(escaped string) string {
	escaped = strings.ReplaceAll(escaped, "&#39;", "'")
	out, err := boldPattern.Replace(escaped, "<strong>${text}</strong>", -1, -1)
	if err != nil {
		out = escaped
	}
	if res, err := italicPattern.Replace(out, "<em>${text}</em>", -1, -1); err == nil {
		out = res
	}
	return strings.ReplaceAll(out, "'", "&#39;")
}
