// internal/cli/fetch.go
package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/law-makers/scholarfetch/internal/engine"
	"github.com/law-makers/scholarfetch/internal/reqctx"
	"github.com/law-makers/scholarfetch/internal/ui"
	"github.com/law-makers/scholarfetch/internal/utils/headers"
	"github.com/law-makers/scholarfetch/internal/utils/output"
	urlutil "github.com/law-makers/scholarfetch/internal/utils/url"
	"github.com/law-makers/scholarfetch/pkg/models"
)

const previewChars = 500

var (
	fetchOutput  string
	fetchFormat  string
	fetchHeaders []string
)

// fetchCmd represents the fetch command
var fetchCmd = &cobra.Command{
	Use:   "fetch <url>",
	Short: "Fetch one page through the escalation ladder",
	Long: `Runs the strategy ladder for a single URL and prints the cleaned text.

Strategies are tried in order and the first one whose response passes the
classifier wins. When every strategy fails the full attempt trace is shown.`,
	Example: `  # Fetch and preview a scholarship page
  scholarfetch fetch https://example.edu/awards/merit

  # Save cleaned text, Markdown or the full JSON outcome
  scholarfetch fetch https://example.edu/awards/merit --output merit.md

  # Only the HTTP strategies, with an extra header
  scholarfetch fetch https://example.edu/awards/merit --strategies 1,2,3 -H "Referer: https://example.edu/"`,
	Args: cobra.ExactArgs(1),
	RunE: runFetch,
}

func init() {
	rootCmd.AddCommand(fetchCmd)

	fetchCmd.Flags().StringVarP(&fetchOutput, "output", "o", "", "File path to save output (.txt, .md or .json)")
	fetchCmd.Flags().StringVarP(&fetchFormat, "format", "f", "text", "Stdout format: text, markdown or json")
	fetchCmd.Flags().StringArrayVarP(&fetchHeaders, "header", "H", []string{}, "Extra request header (e.g., -H \"Referer: https://a.edu\")")
}

func runFetch(cmd *cobra.Command, args []string) error {
	target := args[0]
	if err := urlutil.ValidateURL(target); err != nil {
		return err
	}

	switch fetchFormat {
	case "text", "markdown", "json":
	default:
		return fmt.Errorf("invalid format: %s (must be text, markdown, or json)", fetchFormat)
	}

	extra, err := headers.Parse(fetchHeaders)
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

	ctx := reqctx.WithRequestContext(cmd.Context())
	log.Info().
		Str("request_id", reqctx.GetRequestContext(ctx).RequestID).
		Str("url", target).
		Msg("Fetching URL")

	start := time.Now()
	outcome, err := ladder.Fetch(ctx, target)
	elapsed := time.Since(start)

	out := cmd.OutOrStdout()
	if err != nil {
		var exhausted *engine.ExhaustedError
		if errors.As(err, &exhausted) && !jsonOutput {
			printTrace(out, outcome)
		}
		if jsonOutput || fetchFormat == "json" {
			_ = writeJSON(out, outcome)
		}
		return err
	}

	if fetchOutput != "" {
		if err := output.SaveOutcome(outcome, fetchOutput); err != nil {
			return fmt.Errorf("failed to write file: %w", err)
		}
		log.Info().Str("file", fetchOutput).Msg("Output saved")
		if !quiet {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s Saved to %s\n", ui.Mark(true), fetchOutput)
		}
	}

	switch {
	case jsonOutput || fetchFormat == "json":
		return writeJSON(out, outcome)
	case fetchFormat == "markdown":
		md, err := output.RenderMarkdown(outcome)
		if err != nil {
			return err
		}
		_, err = io.WriteString(out, md)
		return err
	default:
		printOutcome(out, outcome, elapsed)
		return nil
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printOutcome(w io.Writer, o *models.FetchOutcome, elapsed time.Duration) {
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "URL:       %s\n", o.URL)
	fmt.Fprintf(w, "Title:     %s\n", o.Title)
	fmt.Fprintf(w, "Strategy:  %s\n", ui.Success(o.Strategy.String()))
	fmt.Fprintf(w, "Length:    %d chars\n", utf8.RuneCountInString(o.Content))
	fmt.Fprintf(w, "Elapsed:   %s\n", elapsed.Round(time.Millisecond))

	if len(o.Attempts) > 1 {
		printTrace(w, o)
	}

	fmt.Fprintf(w, "\n%s\n%s\n", ui.Bold("Content Preview:"), preview(o.Content, previewChars))
}

func printTrace(w io.Writer, o *models.FetchOutcome) {
	if o == nil || len(o.Attempts) == 0 {
		return
	}
	fmt.Fprintf(w, "\n%s\n", ui.Bold("Attempts:"))
	for i, a := range o.Attempts {
		fmt.Fprintf(w, "  %s\n", ui.Attempt(i+1, a))
		if a.Outcome != models.OutcomeSuccess && a.Detail != "" {
			fmt.Fprintf(w, "     %s\n", ui.Dim(a.Detail))
		}
	}
}

// preview truncates s to n runes
func preview(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n]) + "..."
}
