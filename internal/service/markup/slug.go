package markup

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// HeadingIDPrefix starts every generated heading id
const HeadingIDPrefix = "w_"

// fallbackSlug is used when a heading has no ASCII letters or digits (e.g. CJK titles)
const fallbackSlug = "section"

// Slugify folds s to lowercase ASCII words joined by '-'. Diacritics are
// dropped ("Réglages" -> "reglages"); other runes act as separators.
func Slugify(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}

	var b strings.Builder
	pendingDash := false
	for _, r := range strings.ToLower(folded) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
		default:
			pendingDash = true
		}
	}
	return b.String()
}

// headingIDs hands out unique heading ids within one rendered document
type headingIDs struct {
	seen map[string]int
}

func newHeadingIDs() *headingIDs {
	return &headingIDs{seen: make(map[string]int)}
}

// next returns w_<slug>, suffixing _2, _3... on repeats
func (h *headingIDs) next(text string) string {
	slug := Slugify(text)
	if slug == "" {
		slug = fallbackSlug
	}
	id := HeadingIDPrefix + slug

	h.seen[id]++
	if n := h.seen[id]; n > 1 {
		candidate := id + "_" + strconv.Itoa(n)
		for h.seen[candidate] > 0 {
			n++
			candidate = id + "_" + strconv.Itoa(n)
		}
		h.seen[candidate] = 1
		return candidate
	}
	return id
}

// DocumentSlug derives a URL slug from a document title
func DocumentSlug(title string) string {
	return Slugify(title)
}
