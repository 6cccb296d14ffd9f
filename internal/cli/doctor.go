package cli

import (
	"fmt"
	"io"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"github.com/law-makers/scholarfetch/internal/app"
	"github.com/law-makers/scholarfetch/internal/engine"
	"github.com/law-makers/scholarfetch/internal/engine/dynamic"
	"github.com/law-makers/scholarfetch/internal/ui"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check the environment and show the configured ladder",
	Long: `Reports the version, the Chrome/Chromium binary the browser strategies will
use, and the strategy ladder in effect. Exits non-zero when a browser strategy
is enabled but no browser can be found.`,
	Args: cobra.NoArgs,
	RunE: runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

func runDoctor(cmd *cobra.Command, args []string) error {
	a := GetAppFromCmd(cmd)
	if a == nil {
		return fmt.Errorf("application not initialized")
	}
	return diagnose(cmd, a)
}

func diagnose(cmd *cobra.Command, a *app.Application) error {
	w := cmd.OutOrStdout()
	cfg := a.Config

	row(w, "Version", Version)
	row(w, "Go", runtime.Version()+" "+runtime.GOOS+"/"+runtime.GOARCH)

	chrome := a.ChromePath
	if chrome == "" {
		chrome = dynamic.FindChrome(cfg.ChromePath)
	}
	if chrome == "" {
		row(w, "Chrome", ui.Error("not found"))
	} else {
		row(w, "Chrome", chrome)
		row(w, "Chrome version", dynamic.ChromeVersion(cmd.Context(), chrome))
	}
	row(w, "Headless", fmt.Sprint(cfg.BrowserHeadless))
	row(w, "Proxies", fmt.Sprint(a.Proxies.Len()))
	row(w, "Batch concurrency", fmt.Sprint(cfg.BatchConcurrency))

	fmt.Fprintf(w, "\n%s\n", ui.Bold("Ladder:"))
	for i, s := range a.Strategies(nil) {
		kind := "http"
		if s.ID().IsBrowser() {
			kind = "browser"
		}
		fmt.Fprintf(w, "  %d. %-18s %s\n", i+1, s.ID(), ui.Dim(kind))
	}

	if a.UsesBrowser() && chrome == "" {
		fmt.Fprintf(w, "\n%s install Chrome/Chromium, set chrome_path, or disable browser strategies with --strategies 1,2,3\n",
			ui.Error("✗"))
		return engine.ErrBrowserNotFound
	}

	fmt.Fprintf(w, "\n%s ready\n", ui.Mark(true))
	return nil
}

func row(w io.Writer, label, value string) {
	fmt.Fprintf(w, "%-18s %s\n", label+":", strings.TrimSpace(value))
}
