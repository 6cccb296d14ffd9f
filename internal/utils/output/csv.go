package output

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"

	"github.com/law-makers/scholarfetch/internal/classify"
	"github.com/law-makers/scholarfetch/pkg/models"
)

var csvHeader = []string{"url", "success", "strategy", "attempts", "content_length", "processing_ms", "error"}

// SaveCSV writes one row per batch item, in input order
func SaveCSV(summary *models.BatchSummary, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return WriteCSV(file, summary)
}

// WriteCSV renders summary rows to w
func WriteCSV(w io.Writer, summary *models.BatchSummary) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(csvHeader); err != nil {
		return err
	}

	for _, r := range summary.Results {
		strategy := ""
		if r.Success {
			strategy = r.Strategy.String()
		}
		row := []string{
			r.URL,
			strconv.FormatBool(r.Success),
			strategy,
			strconv.Itoa(len(r.Attempts)),
			strconv.Itoa(classify.Length(r.Content)),
			strconv.FormatInt(r.ProcessingTime.Milliseconds(), 10),
			r.Error,
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}
