package config

import (
	"fmt"
	"strings"

	"github.com/law-makers/scholarfetch/pkg/models"
)

func validate(c *Config) error {
	if c.MinContentLength <= 0 {
		return fmt.Errorf("min_content_length must be > 0")
	}
	if c.MaxContentLength < c.MinContentLength {
		return fmt.Errorf("max_content_length must be >= min_content_length")
	}
	if c.ScanWindow <= 0 {
		return fmt.Errorf("scan_window must be > 0")
	}
	if c.BatchConcurrency <= 0 || c.BatchConcurrency > DefaultMaxBatchWorkers {
		return fmt.Errorf("batch_concurrency must be between 1 and %d", DefaultMaxBatchWorkers)
	}
	if c.BatchMinContent < 1 {
		return fmt.Errorf("batch_min_content must be >= 1")
	}
	if c.RateLimitRPS < 0 {
		return fmt.Errorf("rate_limit_rps must be >= 0")
	}
	if c.WorkerPoolSize <= 0 || c.WorkerPoolSize > DefaultMaxWorkerPoolSize {
		return fmt.Errorf("worker_pool_size must be between 1 and %d", DefaultMaxWorkerPoolSize)
	}
	if c.BrowserPoolSize <= 0 || c.BrowserPoolSize > DefaultMaxWorkerPoolSize {
		return fmt.Errorf("browser_pool_size must be between 1 and %d", DefaultMaxWorkerPoolSize)
	}

	t := c.Timeouts
	for name, d := range map[string]int64{
		"tls_impersonation": int64(t.TLSImpersonation),
		"browser_headers":   int64(t.BrowserHeaders),
		"challenge_solver":  int64(t.ChallengeSolver),
		"browser_basic":     int64(t.BrowserBasic),
		"browser_human":     int64(t.BrowserHuman),
		"browser_challenge": int64(t.BrowserChallenge),
		"script_budget":     int64(t.ScriptBudget),
	} {
		if d <= 0 {
			return fmt.Errorf("timeouts.%s must be > 0", name)
		}
	}

	ids, err := ParseStrategies(c.Strategies)
	if err != nil {
		return err
	}
	c.StrategyIDs = ids
	return nil
}

// ParseStrategies resolves names (or ladder positions) into IDs, keeping
// ladder order regardless of the order given. Empty means all six.
func ParseStrategies(names []string) ([]models.StrategyID, error) {
	if len(names) == 0 {
		return append([]models.StrategyID(nil), models.AllStrategies...), nil
	}

	enabled := make(map[models.StrategyID]bool, len(names))
	for _, raw := range names {
		for _, name := range strings.Split(raw, ",") {
			name = strings.ToLower(strings.TrimSpace(name))
			if name == "" {
				continue
			}
			id, ok := models.ParseStrategy(name)
			if !ok {
				return nil, fmt.Errorf("unknown strategy %q", name)
			}
			enabled[id] = true
		}
	}
	if len(enabled) == 0 {
		return nil, fmt.Errorf("no strategies enabled")
	}

	ids := make([]models.StrategyID, 0, len(enabled))
	for _, id := range models.AllStrategies {
		if enabled[id] {
			ids = append(ids, id)
		}
	}
	return ids, nil
}
