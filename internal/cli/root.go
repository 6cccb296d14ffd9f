// internal/cli/root.go
package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/law-makers/scholarfetch/internal/app"
	"github.com/law-makers/scholarfetch/internal/config"
	"github.com/law-makers/scholarfetch/internal/ui"
)

// Version is set at build time with -ldflags "-X ...cli.Version=..."
var Version = "0.1.0"

var (
	quiet      bool
	jsonOutput bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "scholarfetch",
	Short: "Resilient page fetching for scholarship listings",
	Long: `Scholarfetch retrieves page content from sites that resist automated access.

Each URL climbs a fixed ladder of six strategies, from a TLS-impersonating HTTP
client up to a headless browser that waits out challenge pages, and stops at the
first one that yields real content. The result is cleaned, bounded text.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", ui.Error("Error:"), err)
		os.Exit(1)
	}
}

func init() {
	// Lazily initialize the application before running commands (avoid starting app for -h/help)
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if GetAppFromCmd(cmd) != nil {
			return nil
		}

		cfg, err := config.Load(cmd)
		if err != nil {
			return err
		}
		setupLogging(cfg)

		a, err := app.New(cmd.Context(), cfg)
		if err != nil {
			return err
		}

		SetApp(cmd, a)
		return nil
	}

	// Ensure app is closed after command runs
	rootCmd.PersistentPostRunE = func(cmd *cobra.Command, args []string) error {
		a := GetAppFromCmd(cmd)
		if a == nil {
			return nil
		}
		err := a.Close(cmd.Context())
		SetApp(cmd, nil)
		return err
	}
}

func init() {
	// Register centralized flags
	config.RegisterFlags(rootCmd)

	// Customize help and version flag descriptions
	rootCmd.Flags().BoolP("help", "h", false, "Help for scholarfetch")
	rootCmd.Flags().Bool("version", false, "Version for scholarfetch")
}

// setupLogging configures the global zerolog logger from cfg
func setupLogging(cfg *config.Config) {
	switch strings.ToLower(cfg.LogLevel) {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
		quiet = true
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	default:
		// Keep the console quiet unless asked: warnings still surface exhausted ladders
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	}

	if cfg.JSONLog {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
		jsonOutput = true
	} else {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	log.Debug().Str("level", cfg.LogLevel).Bool("json", cfg.JSONLog).Msg("Configuration loaded")
}
