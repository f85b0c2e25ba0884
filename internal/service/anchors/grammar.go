package anchors

import (
	"slices"
	"strings"

	"github.com/dlclark/regexp2"

	"supportkb/internal/service/markup"
)

// An anchor must be followed by whitespace, a label separator or the closing
// brackets, so w_a never matches inside [[#w_ab]].
var (
	internalAnchorPattern = regexp2.MustCompile(`\[\[(?<ws>\s*)#(?<anchor>w_[a-z0-9\-_]+)(?=[\s|\]])`, regexp2.None)
	externalAnchorPattern = regexp2.MustCompile(`\[\[(?<title>[^\[\]|#]+)#(?<anchor>w_[a-z0-9\-_]+)(?=[\s|\]])`, regexp2.None)
)

// ExternalAnchor is a [[Title#w_anchor]] reference
type ExternalAnchor struct {
	Title  string
	Anchor string
}

// FindInternalAnchors returns the ids of [[#w_...]] links in order of appearance
func FindInternalAnchors(text string) []string {
	var ids []string
	m, err := internalAnchorPattern.FindStringMatch(text)
	for err == nil && m != nil {
		ids = append(ids, m.GroupByName("anchor").String())
		m, err = internalAnchorPattern.FindNextMatch(m)
	}
	return ids
}

// FindExternalAnchors returns [[Title#w_...]] links in order of appearance.
// Hook targets (Image:, Template:, ...) are never external anchors.
func FindExternalAnchors(text string) []ExternalAnchor {
	var found []ExternalAnchor
	m, err := externalAnchorPattern.FindStringMatch(text)
	for err == nil && m != nil {
		title := strings.TrimSpace(m.GroupByName("title").String())
		if title != "" && !markup.IsHookTarget(title) {
			found = append(found, ExternalAnchor{Title: title, Anchor: m.GroupByName("anchor").String()})
		}
		m, err = externalAnchorPattern.FindNextMatch(m)
	}
	return found
}

func HasInternalAnchor(text string) bool {
	ok, err := internalAnchorPattern.MatchString(text)
	return err == nil && ok
}

func HasExternalAnchor(text string) bool {
	return len(FindExternalAnchors(text)) > 0
}

// ReplaceInternalAnchors rewrites [[#old to [[#new for every old id in changes,
// keeping any whitespace between the brackets and the '#'.
// All occurrences are replaced in one pass, so the output of one replacement
// is never matched again.
func ReplaceInternalAnchors(text string, changes map[string]string) string {
	if len(changes) == 0 {
		return text
	}
	out, err := internalAnchorPattern.ReplaceFunc(text, func(m regexp2.Match) string {
		if to, ok := changes[m.GroupByName("anchor").String()]; ok {
			return "[[" + m.GroupByName("ws").String() + "#" + to
		}
		return m.String()
	}, -1, -1)
	if err != nil {
		return text
	}
	return out
}

// ReplaceExternalAnchors rewrites [[T#old to [[translatedTitle#new for every
// T in titles and every old id in changes, in one pass.
func ReplaceExternalAnchors(text string, titles []string, translatedTitle string, changes map[string]string) string {
	if len(changes) == 0 || len(titles) == 0 {
		return text
	}
	out, err := externalAnchorPattern.ReplaceFunc(text, func(m regexp2.Match) string {
		raw := m.GroupByName("title").String()
		title := strings.TrimSpace(raw)
		if markup.IsHookTarget(title) || !slices.Contains(titles, title) {
			return m.String()
		}
		if to, ok := changes[m.GroupByName("anchor").String()]; ok {
			lead := raw[:len(raw)-len(strings.TrimLeft(raw, " \t"))]
			return "[[" + lead + translatedTitle + "#" + to
		}
		return m.String()
	}, -1, -1)
	if err != nil {
		return text
	}
	return out
}
