package config

import "github.com/spf13/cobra"

// RegisterFlags registers common CLI flags on the provided root command
func RegisterFlags(cmd *cobra.Command) {
	if cmd == nil {
		return
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")
	cmd.PersistentFlags().BoolP("quiet", "q", false, "Suppress all output except errors")
	cmd.PersistentFlags().Bool("json", false, "Output in JSON format only")
	cmd.PersistentFlags().String("proxy", "", "Set HTTP/SOCKS5 proxy (e.g., http://localhost:8080)")
	cmd.PersistentFlags().String("user-agent", "", "Pin a single user agent for every strategy")
	cmd.PersistentFlags().String("config", "", "Path to configuration file (optional)")
	cmd.PersistentFlags().Int64("seed", DefaultSeed, "Seed for identity and delay sampling (0 = random)")
	cmd.PersistentFlags().StringSlice("strategies", nil, "Enabled strategies, in ladder order (names or 1-6)")
	cmd.PersistentFlags().String("chrome-path", "", "Chrome/Chromium executable for browser strategies")
	cmd.PersistentFlags().Bool("headful", false, "Show browser windows instead of running headless")
}

// flagKeys maps CLI flag names onto configuration keys
var flagKeys = map[string]string{
	"json":        "json",
	"proxy":       "proxy",
	"user-agent":  "user_agent",
	"seed":        "seed",
	"strategies":  "strategies",
	"chrome-path": "chrome_path",
}
