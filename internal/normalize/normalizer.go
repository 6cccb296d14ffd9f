// Package normalize turns raw page markup into bounded readable text.
package normalize

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/law-makers/scholarfetch/internal/classify"
)

// noiseSelector lists elements that never carry narrative content
const noiseSelector = "script, style, nav, footer, header, aside, noscript, iframe, svg"

// Normalizer strips markup and enforces the output size cap
type Normalizer struct {
	// MaxChars caps the output length in runes
	MaxChars int
	// MinTextChars is the extracted-text length below which the raw markup is
	// returned instead, since some pages keep useful data outside visible text.
	MinTextChars int
}

// New creates a Normalizer. Non-positive values fall back to the defaults.
func New(maxChars, minTextChars int) *Normalizer {
	if maxChars <= 0 {
		maxChars = classify.DefaultMaxLength
	}
	if minTextChars <= 0 {
		minTextChars = classify.DefaultMinLength
	}
	return &Normalizer{MaxChars: maxChars, MinTextChars: minTextChars}
}

// Normalize extracts visible text from raw and truncates it to MaxChars.
// Feeding the output back in never makes it longer. Input that parses to
// no elements is already text and is only truncated, so normalizing twice
// gives the same result. Text that quotes literal tags (an escaped
// "<script>" in the page) is read as markup on a second pass.
func (n *Normalizer) Normalize(raw string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil || plainText(doc) {
		return Truncate(raw, n.MaxChars)
	}

	doc.Find(noiseSelector).Remove()

	text := ExtractText(doc.Selection)
	if classify.Length(text) < n.MinTextChars {
		return Truncate(raw, n.MaxChars)
	}
	return Truncate(text, n.MaxChars)
}

// plainText reports whether the parser found nothing but the implied
// html, head and body wrappers
func plainText(doc *goquery.Document) bool {
	return doc.Find("head *, body *").Length() == 0
}

// ExtractText joins every non-blank text node, trimmed, with newlines
func ExtractText(sel *goquery.Selection) string {
	var parts []string
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.TextNode {
			if t := strings.TrimSpace(node.Data); t != "" {
				parts = append(parts, t)
			}
			return
		}
		if node.Type == html.CommentNode {
			return
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, node := range sel.Nodes {
		walk(node)
	}
	return strings.Join(parts, "\n")
}

// Truncate cuts s to at most max runes
func Truncate(s string, max int) string {
	return classify.Head(s, max)
}
