package markup

import (
	"strings"

	"golang.org/x/net/html"
)

// Heading is one h1-h6 element carrying an id
type Heading struct {
	Level int    `json:"level"`
	ID    string `json:"id"`
	Text  string `json:"text"`
}

// ExtractHeadings returns headings with a non-empty id in document order.
// Unparseable input yields no headings.
func ExtractHeadings(document string) []Heading {
	root, err := html.Parse(strings.NewReader(document))
	if err != nil {
		return nil
	}

	var headings []Heading
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if level := headingLevel(n.Data); level > 0 {
				if id := attr(n, "id"); id != "" {
					headings = append(headings, Heading{
						Level: level,
						ID:    id,
						Text:  strings.Join(strings.Fields(textContent(n)), " "),
					})
				}
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)

	return headings
}

// HeadingIDs returns the set of heading ids in document
func HeadingIDs(document string) map[string]struct{} {
	ids := make(map[string]struct{})
	for _, h := range ExtractHeadings(document) {
		ids[h.ID] = struct{}{}
	}
	return ids
}

func headingLevel(tag string) int {
	if len(tag) == 2 && tag[0] == 'h' && tag[1] >= '1' && tag[1] <= '6' {
		return int(tag[1] - '0')
	}
	return 0
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func textContent(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.WriteString(textContent(c))
	}
	return b.String()
}
