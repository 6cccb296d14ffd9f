package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/law-makers/scholarfetch/internal/engine/batch"
	"github.com/law-makers/scholarfetch/internal/ui"
	"github.com/law-makers/scholarfetch/internal/utils/headers"
	"github.com/law-makers/scholarfetch/internal/utils/output"
	"github.com/law-makers/scholarfetch/pkg/models"
)

var (
	batchFile    string
	batchOutput  string
	batchHeaders []string
)

var batchCmd = &cobra.Command{
	Use:   "batch [urls...]",
	Short: "Fetch up to 50 pages concurrently",
	Long: `Runs the strategy ladder for every URL, at most five at a time.

URLs come from arguments and/or a file with one URL per line (blank lines and
lines starting with # are skipped). A failing URL never stops the others; the
summary lists which pages need manual follow-up.`,
	Example: `  # A few URLs inline
  scholarfetch batch https://a.edu/award https://b.org/grant

  # From a file, saving a CSV summary
  scholarfetch batch --file urls.txt --output summary.csv`,
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().StringVarP(&batchFile, "file", "F", "", "File with one URL per line")
	batchCmd.Flags().StringVarP(&batchOutput, "output", "o", "", "Save the summary (.json or .csv)")
	batchCmd.Flags().StringArrayVarP(&batchHeaders, "header", "H", []string{}, "Extra request header for the HTTP strategies")
}

func runBatch(cmd *cobra.Command, args []string) error {
	raw := append([]string(nil), args...)
	if batchFile != "" {
		f, err := os.Open(batchFile)
		if err != nil {
			return fmt.Errorf("open url file: %w", err)
		}
		fromFile, err := readURLs(f)
		f.Close()
		if err != nil {
			return fmt.Errorf("read url file: %w", err)
		}
		raw = append(raw, fromFile...)
	}

	urls, err := batch.PrepareURLs(raw)
	if err != nil {
		return err
	}

	extra, err := headers.Parse(batchHeaders)
	if err != nil {
		return err
	}

	a := GetAppFromCmd(cmd)
	if a == nil {
		return fmt.Errorf("application not initialized")
	}
	ladder, err := a.NewLadder(extra)
	if err != nil {
		return err
	}

	var bar *progressbar.ProgressBar
	if !quiet && !jsonOutput {
		bar = progressbar.NewOptions(len(urls),
			progressbar.OptionSetWriter(cmd.ErrOrStderr()),
			progressbar.OptionSetDescription("Fetching"),
			progressbar.OptionShowCount(),
			progressbar.OptionSetElapsedTime(true),
			progressbar.OptionClearOnFinish(),
		)
	}

	orch := a.NewBatch(ladder, func(done, total int, r models.BatchItemResult) {
		log.Debug().
			Int("done", done).
			Int("total", total).
			Str("url", r.URL).
			Bool("success", r.Success).
			Msg("Batch item finished")
		if bar != nil {
			_ = bar.Add(1)
		}
	})

	summary := orch.Run(cmd.Context(), urls)
	if bar != nil {
		_ = bar.Finish()
	}

	if batchOutput != "" {
		if err := output.SaveSummary(summary, batchOutput); err != nil {
			return fmt.Errorf("failed to write summary: %w", err)
		}
		log.Info().Str("file", batchOutput).Msg("Summary saved")
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		return writeJSON(out, summary)
	}
	printSummary(out, summary)
	return nil
}

// readURLs reads one URL per line, skipping blanks and # comments
func readURLs(r io.Reader) ([]string, error) {
	var urls []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	return urls, sc.Err()
}

func printSummary(w io.Writer, s *models.BatchSummary) {
	fmt.Fprintln(w)
	for _, r := range s.Results {
		if r.Success {
			fmt.Fprintf(w, "%s %s %s\n", ui.Mark(true), r.URL,
				ui.Dim(fmt.Sprintf("[%s, %d chars, %s]", r.Strategy, len([]rune(r.Content)), r.ProcessingTime.Round(time.Millisecond))))
			continue
		}
		fmt.Fprintf(w, "%s %s\n    %s\n", ui.Mark(false), r.URL, ui.Dim(r.Error))
	}

	fmt.Fprintf(w, "\n%s %d total, %s, %s in %s\n",
		ui.Bold("Summary:"),
		s.Total,
		ui.Success(fmt.Sprintf("%d succeeded", s.Successful)),
		failedText(s.Failed),
		s.TotalTime.Round(time.Millisecond))
}

func failedText(n int) string {
	text := fmt.Sprintf("%d failed", n)
	if n == 0 {
		return ui.Dim(text)
	}
	return ui.Error(text)
}
