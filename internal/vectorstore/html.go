package vectorstore

import (
	"strings"

	"golang.org/x/net/html"
)

// stripHTML extracts visible text from an HTML fragment. Non-HTML input
// passes through with whitespace compacted.
func stripHTML(s string) string {
	if !strings.ContainsRune(s, '<') {
		return compactWhitespace(s)
	}
	node, err := html.Parse(strings.NewReader(s))
	if err != nil {
		return compactWhitespace(s)
	}
	var b strings.Builder
	extractText(node, &b, false)
	return strings.TrimSpace(compactWhitespace(b.String()))
}

func extractText(n *html.Node, b *strings.Builder, inHidden bool) {
	if n.Type == html.ElementNode {
		switch strings.ToLower(n.Data) {
		case "script", "style", "noscript":
			inHidden = true
		case "br", "p", "div", "li", "tr":
			b.WriteString("\n")
		}
	}
	if !inHidden && n.Type == html.TextNode {
		b.WriteString(n.Data)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		extractText(c, b, inHidden)
	}
}

func compactWhitespace(s string) string {
	fields := strings.Fields(s)
	return strings.Join(fields, " ")
}
