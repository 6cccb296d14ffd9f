// internal/engine/metadata/extractor.go
package metadata

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Title returns the trimmed <title> of markup, or "" when there is none
func Title(markup string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return ""
	}
	return TitleOf(doc)
}

// TitleOf returns the trimmed document title
func TitleOf(doc *goquery.Document) string {
	if doc == nil {
		return ""
	}
	return strings.Join(strings.Fields(doc.Find("title").First().Text()), " ")
}

// InlineScripts returns the bodies of all inline <script> elements in
// document order. External scripts are skipped.
func InlineScripts(doc *goquery.Document) []string {
	if doc == nil {
		return nil
	}
	var scripts []string
	doc.Find("script").Each(func(i int, sel *goquery.Selection) {
		if _, exists := sel.Attr("src"); exists {
			return
		}
		if typ, ok := sel.Attr("type"); ok && typ != "" && !strings.Contains(typ, "javascript") {
			return
		}
		if body := strings.TrimSpace(sel.Text()); body != "" {
			scripts = append(scripts, body)
		}
	})
	return scripts
}

// FormAction describes a form that a challenge page auto-submits
type FormAction struct {
	Action string
	Method string
	Fields map[string]string
}

// Forms extracts every form with its hidden/prefilled inputs
func Forms(doc *goquery.Document) []FormAction {
	if doc == nil {
		return nil
	}
	var forms []FormAction
	doc.Find("form").Each(func(i int, sel *goquery.Selection) {
		f := FormAction{
			Action: sel.AttrOr("action", ""),
			Method: strings.ToUpper(sel.AttrOr("method", "GET")),
			Fields: make(map[string]string),
		}
		sel.Find("input[name]").Each(func(j int, in *goquery.Selection) {
			name, _ := in.Attr("name")
			f.Fields[name] = in.AttrOr("value", "")
		})
		forms = append(forms, f)
	})
	return forms
}
