package normalize

import (
	"fmt"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	"github.com/PuerkitoBio/goquery"

	urlutil "github.com/law-makers/scholarfetch/internal/utils/url"
)

// Markdown converts approved markup to GitHub-flavoured Markdown.
// Relative links are resolved against baseURL and noise elements are dropped
// first, the same set Normalize strips.
func Markdown(markup, baseURL string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return "", fmt.Errorf("failed to parse markup: %w", err)
	}
	doc.Find(noiseSelector).Remove()

	converter := md.NewConverter("", true, nil)
	converter.Use(plugin.GitHubFlavored())
	converter.AddRules(md.Rule{
		Filter: []string{"a"},
		Replacement: func(content string, selec *goquery.Selection, opt *md.Options) *string {
			href, exists := selec.Attr("href")
			if !exists {
				return nil
			}
			text := strings.TrimSpace(content)
			if text == "" {
				return &text
			}
			str := fmt.Sprintf("[%s](%s)", text, urlutil.ResolveURL(baseURL, href))
			return &str
		},
	})

	out := converter.Convert(doc.Selection)
	return strings.TrimSpace(out), nil
}
