// internal/engine/batch/batch.go
package batch

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/law-makers/scholarfetch/internal/classify"
	"github.com/law-makers/scholarfetch/internal/engine"
	"github.com/law-makers/scholarfetch/internal/ratelimit"
	urlutil "github.com/law-makers/scholarfetch/internal/utils/url"
	"github.com/law-makers/scholarfetch/pkg/models"
)

const (
	// DefaultConcurrency is the number of URLs processed at once
	DefaultConcurrency = 5

	// DefaultMinContentChars is the floor below which a fetched page is
	// treated as a failed item even though the ladder approved it
	DefaultMinContentChars = 100
)

// Options configure an Orchestrator
type Options struct {
	Concurrency     int
	MinContentChars int

	// Limiter throttles ladder runs per host. Nil disables throttling.
	Limiter ratelimit.Waiter

	// OnProgress is called after each item completes. Calls may come from
	// several goroutines at once.
	OnProgress func(done, total int, result models.BatchItemResult)
}

// Orchestrator runs the ladder over many URLs with bounded concurrency
type Orchestrator struct {
	fetcher engine.Fetcher
	opts    Options
}

// New creates an Orchestrator
func New(fetcher engine.Fetcher, opts Options) *Orchestrator {
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.MinContentChars <= 0 {
		opts.MinContentChars = DefaultMinContentChars
	}
	return &Orchestrator{fetcher: fetcher, opts: opts}
}

// Run processes urls and returns one result per input, in input order.
// A failing item never cancels its siblings. Callers are expected to have
// passed urls through PrepareURLs.
func (o *Orchestrator) Run(ctx context.Context, urls []string) *models.BatchSummary {
	start := time.Now()
	results := make([]models.BatchItemResult, len(urls))

	log.Info().
		Int("urls", len(urls)).
		Int("concurrency", o.opts.Concurrency).
		Msg("Starting batch")

	// Plain Group, not WithContext: one item failing must not cancel the rest
	var g errgroup.Group
	g.SetLimit(o.opts.Concurrency)

	var completed atomic.Int32

	for i, u := range urls {
		g.Go(func() error {
			results[i] = o.process(ctx, u)
			if o.opts.OnProgress != nil {
				o.opts.OnProgress(int(completed.Add(1)), len(urls), results[i])
			}
			return nil
		})
	}
	_ = g.Wait()

	summary := &models.BatchSummary{
		Total:     len(urls),
		Results:   results,
		TotalTime: time.Since(start),
	}
	for _, r := range results {
		if r.Success {
			summary.Successful++
		} else {
			summary.Failed++
		}
	}

	log.Info().
		Int("total", summary.Total).
		Int("successful", summary.Successful).
		Int("failed", summary.Failed).
		Dur("elapsed", summary.TotalTime).
		Msg("Batch complete")

	return summary
}

// process fetches one URL. It never panics and never returns without a result.
func (o *Orchestrator) process(ctx context.Context, rawURL string) (result models.BatchItemResult) {
	start := time.Now()
	result.URL = rawURL

	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Str("url", rawURL).
				Interface("panic", r).
				Msg("Recovered panic in batch item")
			result.Success = false
			result.Content = ""
			result.Error = fmt.Sprintf("internal error: %v", r)
		}
		result.ProcessingTime = time.Since(start)
	}()

	if !urlutil.HasHTTPScheme(rawURL) || urlutil.ValidateURL(rawURL) != nil {
		result.Error = "Invalid URL format"
		return result
	}

	if o.opts.Limiter != nil {
		if err := o.opts.Limiter.Wait(ctx, rawURL); err != nil {
			result.Error = fmt.Sprintf("rate limit wait: %v", err)
			return result
		}
	}

	outcome, err := o.fetcher.Fetch(ctx, rawURL)
	if outcome != nil {
		result.Attempts = outcome.Attempts
		result.Strategy = outcome.Strategy
	}
	if err != nil {
		var exhausted *engine.ExhaustedError
		if errors.As(err, &exhausted) {
			result.Error = exhausted.Error()
		} else {
			result.Error = fmt.Sprintf("fetch failed: %v", err)
		}
		return result
	}

	if outcome == nil || classify.Length(outcome.Content) < o.opts.MinContentChars {
		result.Error = "Failed to fetch page content or page too short"
		return result
	}

	result.Success = true
	result.Content = outcome.Content
	return result
}
