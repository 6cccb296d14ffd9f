package output

import (
	"fmt"
	"os"
	"strings"

	"github.com/law-makers/scholarfetch/internal/normalize"
	"github.com/law-makers/scholarfetch/pkg/models"
)

// RenderMarkdown converts the approved markup to Markdown with a short
// provenance header. Without markup the normalized text is used as is.
func RenderMarkdown(outcome *models.FetchOutcome) (string, error) {
	var b strings.Builder

	if outcome.Title != "" {
		fmt.Fprintf(&b, "# %s\n\n", outcome.Title)
	}
	fmt.Fprintf(&b, "> Source: %s  \n> Strategy: %s\n\n", outcome.URL, outcome.Strategy)

	body := outcome.Content
	if outcome.Markup != "" {
		converted, err := normalize.Markdown(outcome.Markup, outcome.URL)
		if err != nil {
			return "", err
		}
		if converted != "" {
			body = converted
		}
	}
	b.WriteString(body)
	b.WriteString("\n")
	return b.String(), nil
}

// SaveMarkdown writes RenderMarkdown's output to path
func SaveMarkdown(outcome *models.FetchOutcome, path string) error {
	mdStr, err := RenderMarkdown(outcome)
	if err != nil {
		return err
	}
	return os.WriteFile(path, []byte(mdStr), 0644)
}
