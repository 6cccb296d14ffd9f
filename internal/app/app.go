// Package app provides the core application initialization and lifecycle management.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/law-makers/scholarfetch/internal/classify"
	"github.com/law-makers/scholarfetch/internal/config"
	"github.com/law-makers/scholarfetch/internal/engine"
	"github.com/law-makers/scholarfetch/internal/engine/batch"
	"github.com/law-makers/scholarfetch/internal/engine/dynamic"
	"github.com/law-makers/scholarfetch/internal/engine/hybrid"
	"github.com/law-makers/scholarfetch/internal/engine/static"
	"github.com/law-makers/scholarfetch/internal/normalize"
	"github.com/law-makers/scholarfetch/internal/profile"
	"github.com/law-makers/scholarfetch/internal/proxy"
	"github.com/law-makers/scholarfetch/internal/ratelimit"
	"github.com/law-makers/scholarfetch/internal/workpool"
	"github.com/law-makers/scholarfetch/pkg/models"
)

// Application holds all application dependencies and manages their lifecycle.
//
// It is created once at startup and shared across all CLI commands. Strategies
// are built per ladder so a command can add its own request headers.
type Application struct {
	Config      *config.Config
	Sampler     *profile.Sampler
	Classifier  *classify.Classifier
	Normalizer  *normalize.Normalizer
	Proxies     *proxy.Pool
	RateLimiter *ratelimit.DomainLimiter

	// Workers runs script evaluation; Browsers bounds live Chrome instances
	Workers  *workpool.Pool
	Browsers *workpool.Pool

	// ChromePath is the discovered browser, "" if none
	ChromePath string

	startTime time.Time
}

// New creates and initializes a new Application with all dependencies.
//
// If any step fails, an error is returned and no resources are allocated.
func New(ctx context.Context, cfg *config.Config) (*Application, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	pools := profile.Default().WithUserAgent(cfg.UserAgent)
	sampler := profile.NewSampler(pools, cfg.Seed)

	proxies, err := proxy.NewPool(cfg.AllProxies())
	if err != nil {
		return nil, fmt.Errorf("proxy configuration: %w", err)
	}

	policy := classify.DefaultPolicy()
	policy.MinLength = cfg.MinContentLength
	policy.ScanWindow = cfg.ScanWindow

	a := &Application{
		Config:     cfg,
		Sampler:    sampler,
		Classifier: classify.New(policy),
		Normalizer: normalize.New(cfg.MaxContentLength, cfg.MinContentLength),
		Proxies:    proxies,
		Workers:    workpool.New("scripts", cfg.WorkerPoolSize),
		Browsers:   workpool.New("browsers", cfg.BrowserPoolSize),
		startTime:  time.Now(),
	}

	// Zero rps disables per-host politeness
	if cfg.RateLimitRPS > 0 {
		a.RateLimiter = ratelimit.NewDomainLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	}

	if a.usesBrowser() {
		a.ChromePath = dynamic.FindChrome(cfg.ChromePath)
		if a.ChromePath == "" {
			log.Warn().Msg("No Chrome/Chromium found; browser strategies will fail")
		}
	}

	log.Debug().
		Int64("seed", cfg.Seed).
		Int("proxies", proxies.Len()).
		Int("workers", a.Workers.Size()).
		Int("browsers", a.Browsers.Size()).
		Str("chrome", a.ChromePath).
		Strs("strategies", strategyNames(cfg.StrategyIDs)).
		Msg("Application initialized")

	return a, nil
}

func (a *Application) usesBrowser() bool {
	for _, id := range a.Config.StrategyIDs {
		if id.IsBrowser() {
			return true
		}
	}
	return false
}

// UsesBrowser reports whether any enabled strategy needs Chrome
func (a *Application) UsesBrowser() bool {
	return a.usesBrowser()
}

// Strategies builds the enabled strategies in ladder order. extra headers
// are sent by the HTTP strategies only.
func (a *Application) Strategies(extra http.Header) []engine.Strategy {
	cfg := a.Config
	t := cfg.Timeouts

	staticOpts := func(timeout time.Duration) static.Options {
		return static.Options{
			Sampler:      a.Sampler,
			Classifier:   a.Classifier,
			Timeout:      timeout,
			ExtraHeaders: extra,
			Proxies:      a.Proxies,
		}
	}
	browserOpts := func(timeout time.Duration) dynamic.Options {
		return dynamic.Options{
			Sampler:    a.Sampler,
			Classifier: a.Classifier,
			ChromePath: a.ChromePath,
			Headless:   cfg.BrowserHeadless,
			Timeout:    timeout,
			Proxies:    a.Proxies,
			Pool:       a.Browsers,
		}
	}

	out := make([]engine.Strategy, 0, len(cfg.StrategyIDs))
	for _, id := range cfg.StrategyIDs {
		switch id {
		case models.StrategyTLSImpersonation:
			out = append(out, static.NewImpersonator(staticOpts(t.TLSImpersonation)))
		case models.StrategyBrowserHeaders:
			out = append(out, static.NewHeaderClient(staticOpts(t.BrowserHeaders)))
		case models.StrategyChallengeSolver:
			out = append(out, hybrid.NewSolver(hybrid.Options{
				Sampler:      a.Sampler,
				Classifier:   a.Classifier,
				Timeout:      t.ChallengeSolver,
				ExtraHeaders: extra,
				Proxies:      a.Proxies,
				Pool:         a.Workers,
				ScriptBudget: t.ScriptBudget,
			}))
		case models.StrategyBrowserBasic:
			out = append(out, dynamic.NewBasicBrowser(browserOpts(t.BrowserBasic)))
		case models.StrategyBrowserHuman:
			out = append(out, dynamic.NewHumanBrowser(browserOpts(t.BrowserHuman)))
		case models.StrategyBrowserChallenge:
			out = append(out, dynamic.NewChallengeBrowser(browserOpts(t.BrowserChallenge)))
		}
	}
	return out
}

// NewLadder assembles the escalation ladder for one command
func (a *Application) NewLadder(extra http.Header) (*engine.Ladder, error) {
	return engine.NewLadder(a.Strategies(extra), a.Classifier, a.Normalizer)
}

// NewBatch wires a batch orchestrator around ladder
func (a *Application) NewBatch(ladder engine.Fetcher, onProgress func(done, total int, r models.BatchItemResult)) *batch.Orchestrator {
	opts := batch.Options{
		Concurrency:     a.Config.BatchConcurrency,
		MinContentChars: a.Config.BatchMinContent,
		OnProgress:      onProgress,
	}
	if a.RateLimiter != nil {
		opts.Limiter = a.RateLimiter
	}
	return batch.New(ladder, opts)
}

// Close releases resources. Browser sessions are torn down by their
// strategies, so only bookkeeping remains.
func (a *Application) Close(ctx context.Context) error {
	ev := log.Debug().Dur("uptime", a.Uptime())
	if a.RateLimiter != nil {
		ev = ev.Int("rate_limited_hosts", a.RateLimiter.Hosts())
	}
	ev.Msg("Application shutdown complete")
	return nil
}

// Uptime returns how long the application has been running.
func (a *Application) Uptime() time.Duration {
	return time.Since(a.startTime)
}

func strategyNames(ids []models.StrategyID) []string {
	names := make([]string, len(ids))
	for i, id := range ids {
		names[i] = id.String()
	}
	return names
}
