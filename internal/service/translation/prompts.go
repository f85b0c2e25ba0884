package translation

import (
	"fmt"
	"strings"

	"supportkb/internal/service/markup"
)

const translatePrompt = `You translate support knowledge base articles written in a wiki markup.

Translate the article below from %s to %s.

Rules:
- Keep all markup intact: headings (= Title =), lists (* item), emphasis ('' and '''), and links ([[Target|label]]).
- Translate link labels but never link targets, anchors (#w_...), or hook names such as Image:, Template: or UI:.
- Do not add or remove content.
%s
Answer with a single JSON object and nothing else:
{"translation": "<the translated article>", "explanation": "<one or two sentences on choices you made>"}

Article:
%s`

const priorSection = `
An earlier version of this article was already translated. Reuse its wording wherever the source did not change.

Earlier source:
%s

Earlier translation:
%s
`

const headingMapPrompt = `Two versions of the same support article follow, one in %s and one in %s.
Each heading is listed as "id: text".

Match every %s heading to the %s heading with the same meaning. Leave out headings that have no equivalent.
Only use ids from the lists.

Answer with a single JSON object and nothing else:
{"map": {"<source id>": "<target id>"}, "explanation": "<one sentence>"}

%s headings:
%s
%s headings:
%s`

func buildTranslatePrompt(sourceLocale, targetLocale, text, priorSource, priorTranslation string) string {
	prior := ""
	if priorSource != "" && priorTranslation != "" {
		prior = fmt.Sprintf(priorSection, priorSource, priorTranslation)
	}
	return fmt.Sprintf(translatePrompt, sourceLocale, targetLocale, prior, text)
}

func buildHeadingMapPrompt(sourceLocale, targetLocale string, source, target []markup.Heading) string {
	return fmt.Sprintf(headingMapPrompt,
		sourceLocale, targetLocale,
		sourceLocale, targetLocale,
		sourceLocale, listHeadings(source),
		targetLocale, listHeadings(target),
	)
}

func listHeadings(headings []markup.Heading) string {
	var b strings.Builder
	for _, h := range headings {
		fmt.Fprintf(&b, "%s%s: %s\n", strings.Repeat("  ", h.Level-1), h.ID, h.Text)
	}
	return b.String()
}
