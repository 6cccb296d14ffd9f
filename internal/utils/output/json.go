package output

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/law-makers/scholarfetch/pkg/models"
)

// SaveJSON writes v as indented JSON to path. Raw markup never appears in
// the export because FetchOutcome does not serialize it.
func SaveJSON(v any, path string) error {
	content, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, content, 0644)
}

// SaveOutcome writes a single fetch result, picking the format from the
// file extension: .json, .md/.markdown, or plain text for anything else.
func SaveOutcome(outcome *models.FetchOutcome, path string) error {
	if outcome == nil {
		return fmt.Errorf("nothing to save")
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return SaveJSON(outcome, path)
	case ".md", ".markdown":
		return SaveMarkdown(outcome, path)
	default:
		return os.WriteFile(path, []byte(outcome.Content), 0644)
	}
}

// SaveSummary writes a batch summary as .json or .csv
func SaveSummary(summary *models.BatchSummary, path string) error {
	if summary == nil {
		return fmt.Errorf("nothing to save")
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		return SaveJSON(summary, path)
	case ".csv":
		return SaveCSV(summary, path)
	default:
		return fmt.Errorf("unsupported summary format %q (use .json or .csv)", ext)
	}
}
