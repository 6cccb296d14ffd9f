package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/law-makers/scholarfetch/pkg/models"
)

// Config holds application configuration values
type Config struct {
	// Logging
	LogLevel string `mapstructure:"log_level"`
	JSONLog  bool   `mapstructure:"json"`

	// Identity
	UserAgent string   `mapstructure:"user_agent"`
	Proxy     string   `mapstructure:"proxy"`
	Proxies   []string `mapstructure:"proxies"`
	Seed      int64    `mapstructure:"seed"`

	// Classification
	MinContentLength int `mapstructure:"min_content_length"`
	MaxContentLength int `mapstructure:"max_content_length"`
	ScanWindow       int `mapstructure:"scan_window"`

	// Batch
	BatchConcurrency int     `mapstructure:"batch_concurrency"`
	BatchMinContent  int     `mapstructure:"batch_min_content"`
	RateLimitRPS     float64 `mapstructure:"rate_limit_rps"`
	RateLimitBurst   int     `mapstructure:"rate_limit_burst"`

	// Workers
	WorkerPoolSize  int    `mapstructure:"worker_pool_size"`
	BrowserPoolSize int    `mapstructure:"browser_pool_size"`
	BrowserHeadless bool   `mapstructure:"browser_headless"`
	ChromePath      string `mapstructure:"chrome_path"`

	Timeouts Timeouts `mapstructure:"timeouts"`

	// Strategies is the enabled subset as configured. StrategyIDs is the
	// resolved form, filled in by validation.
	Strategies  []string            `mapstructure:"strategies"`
	StrategyIDs []models.StrategyID `mapstructure:"-"`
}

// Timeouts bound each strategy's attempt
type Timeouts struct {
	TLSImpersonation time.Duration `mapstructure:"tls_impersonation"`
	BrowserHeaders   time.Duration `mapstructure:"browser_headers"`
	ChallengeSolver  time.Duration `mapstructure:"challenge_solver"`
	BrowserBasic     time.Duration `mapstructure:"browser_basic"`
	BrowserHuman     time.Duration `mapstructure:"browser_human"`
	BrowserChallenge time.Duration `mapstructure:"browser_challenge"`
	ScriptBudget     time.Duration `mapstructure:"script_budget"`
}

// AllProxies merges the single proxy flag with the configured list
func (c *Config) AllProxies() []string {
	out := make([]string, 0, len(c.Proxies)+1)
	if c.Proxy != "" {
		out = append(out, c.Proxy)
	}
	for _, p := range c.Proxies {
		if p = strings.TrimSpace(p); p != "" && p != c.Proxy {
			out = append(out, p)
		}
	}
	return out
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", DefaultLogLevel)
	v.SetDefault("json", DefaultJSONLog)
	v.SetDefault("seed", DefaultSeed)
	v.SetDefault("min_content_length", DefaultMinContentLength)
	v.SetDefault("max_content_length", DefaultMaxContentLength)
	v.SetDefault("scan_window", DefaultScanWindow)
	v.SetDefault("batch_concurrency", DefaultBatchConcurrency)
	v.SetDefault("batch_min_content", DefaultBatchMinContent)
	v.SetDefault("rate_limit_rps", DefaultRateLimitRPS)
	v.SetDefault("rate_limit_burst", DefaultRateLimitBurst)
	v.SetDefault("worker_pool_size", DefaultWorkerPoolSize)
	v.SetDefault("browser_pool_size", DefaultBrowserPoolSize)
	v.SetDefault("browser_headless", DefaultBrowserHeadless)
	v.SetDefault("timeouts.tls_impersonation", DefaultImpersonationTimeout)
	v.SetDefault("timeouts.browser_headers", DefaultHeaderClientTimeout)
	v.SetDefault("timeouts.challenge_solver", DefaultSolverTimeout)
	v.SetDefault("timeouts.browser_basic", DefaultBrowserBasicTimeout)
	v.SetDefault("timeouts.browser_human", DefaultBrowserHumanTimeout)
	v.SetDefault("timeouts.browser_challenge", DefaultBrowserChalTimeout)
	v.SetDefault("timeouts.script_budget", DefaultScriptBudget)
	v.SetDefault("strategies", DefaultStrategies)
}

// Load builds a Config by combining defaults, an optional config file,
// SCHOLARFETCH_* environment variables, and CLI flags, in increasing order
// of precedence. Caller should pass the command being run so flags can be read.
func Load(cmd *cobra.Command) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	var cfgFile string
	if cmd != nil {
		if f := cmd.Flags().Lookup("config"); f != nil {
			cfgFile = f.Value.String()
		}
	}
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("scholarfetch")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	// Only flags the user actually set override lower layers
	if cmd != nil {
		for name, key := range flagKeys {
			if f := cmd.Flags().Lookup(name); f != nil && f.Changed {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
		if f := cmd.Flags().Lookup("headful"); f != nil && f.Changed && f.Value.String() == "true" {
			v.Set("browser_headless", false)
		}
		if f := cmd.Flags().Lookup("verbose"); f != nil && f.Value.String() == "true" {
			v.Set("log_level", "debug")
		}
		if f := cmd.Flags().Lookup("quiet"); f != nil && f.Value.String() == "true" {
			v.Set("log_level", "error")
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Default returns the validated default configuration without consulting
// files, environment or flags
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	cfg := &Config{}
	_ = v.Unmarshal(cfg)
	_ = validate(cfg)
	return cfg
}
