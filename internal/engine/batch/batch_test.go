package batch

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/law-makers/scholarfetch/internal/engine"
	"github.com/law-makers/scholarfetch/pkg/models"
)

var page = strings.Repeat("Scholarship details and eligibility requirements. ", 10)

// fakeFetcher answers from a per-URL table and tracks concurrency
type fakeFetcher struct {
	delay    time.Duration
	fail     map[string]error
	short    map[string]bool
	panics   map[string]bool
	inFlight atomic.Int32
	peak     atomic.Int32
	calls    atomic.Int32
}

func (f *fakeFetcher) Fetch(ctx context.Context, rawURL string) (*models.FetchOutcome, error) {
	f.calls.Add(1)
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		old := f.peak.Load()
		if n <= old || f.peak.CompareAndSwap(old, n) {
			break
		}
	}
	time.Sleep(f.delay)

	if f.panics[rawURL] {
		panic("renderer crashed")
	}
	out := &models.FetchOutcome{URL: rawURL}
	if err := f.fail[rawURL]; err != nil {
		out.State = models.StateExhausted
		return out, err
	}
	out.State = models.StateSucceeded
	out.Strategy = models.StrategyTLSImpersonation
	out.Content = page
	if f.short[rawURL] {
		out.Content = "tiny"
	}
	return out, nil
}

func exhausted(u string) error {
	attempts := make([]models.FetchAttempt, 0, len(models.AllStrategies))
	for _, id := range models.AllStrategies {
		attempts = append(attempts, models.FetchAttempt{Strategy: id, URL: u, Outcome: models.OutcomeBlocked, Detail: "status 403"})
	}
	return &engine.ExhaustedError{URL: u, Attempts: attempts}
}

func TestRun_ConcurrencyCap(t *testing.T) {
	f := &fakeFetcher{delay: 30 * time.Millisecond}
	urls := []string{
		"https://a.example/1", "https://b.example/2", "https://c.example/3",
		"https://d.example/4", "https://e.example/5", "https://f.example/6",
		"https://g.example/7", "https://h.example/8",
	}

	summary := New(f, Options{}).Run(context.Background(), urls)

	assert.Equal(t, 8, summary.Total)
	assert.Equal(t, 8, summary.Successful)
	assert.LessOrEqual(t, f.peak.Load(), int32(DefaultConcurrency))
	assert.Greater(t, f.peak.Load(), int32(1))
}

func TestRun_FiveURLs(t *testing.T) {
	f := &fakeFetcher{delay: 10 * time.Millisecond}
	urls := []string{"https://a.example", "https://b.example", "https://c.example", "https://d.example", "https://e.example"}

	summary := New(f, Options{}).Run(context.Background(), urls)

	require.Len(t, summary.Results, 5)
	assert.Equal(t, 5, summary.Successful)
	assert.LessOrEqual(t, f.peak.Load(), int32(5))
}

func TestRun_OneExhausted(t *testing.T) {
	bad := "https://blocked.example/award"
	f := &fakeFetcher{fail: map[string]error{bad: exhausted(bad)}}
	urls := []string{"https://ok.example/1", bad, "https://ok.example/2"}

	summary := New(f, Options{}).Run(context.Background(), urls)

	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 2, summary.Successful)
	assert.Equal(t, 1, summary.Failed)

	failed := summary.Results[1]
	assert.Equal(t, bad, failed.URL)
	assert.False(t, failed.Success)
	assert.Contains(t, failed.Error, "exhausted")
	assert.Empty(t, failed.Content)
}

func TestRun_PreservesInputOrder(t *testing.T) {
	f := &fakeFetcher{}
	urls := []string{"https://z.example", "https://y.example", "https://x.example", "https://w.example"}

	summary := New(f, Options{Concurrency: 4}).Run(context.Background(), urls)

	for i, r := range summary.Results {
		assert.Equal(t, urls[i], r.URL)
	}
}

func TestRun_ItemFailures(t *testing.T) {
	f := &fakeFetcher{
		short:  map[string]bool{"https://short.example": true},
		panics: map[string]bool{"https://panic.example": true},
		fail:   map[string]error{"https://down.example": errors.New("context deadline exceeded")},
	}
	urls := []string{
		"ftp://files.example/x",
		"https://short.example",
		"https://panic.example",
		"https://down.example",
		"https://fine.example",
	}

	summary := New(f, Options{}).Run(context.Background(), urls)
	r := summary.Results

	assert.Equal(t, "Invalid URL format", r[0].Error)
	assert.Contains(t, r[1].Error, "too short")
	assert.Contains(t, r[2].Error, "renderer crashed")
	assert.Contains(t, r[3].Error, "fetch failed")
	assert.True(t, r[4].Success)
	assert.Equal(t, 1, summary.Successful)
	assert.Equal(t, 4, summary.Failed)

	// invalid URLs never reach the ladder
	assert.EqualValues(t, 4, f.calls.Load())
}

type countingLimiter struct {
	mu    sync.Mutex
	hosts []string
}

func (c *countingLimiter) Wait(ctx context.Context, u string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hosts = append(c.hosts, u)
	return nil
}

func TestRun_LimiterAndProgress(t *testing.T) {
	lim := &countingLimiter{}
	var calls atomic.Int32
	var maxDone atomic.Int32

	opts := Options{
		Limiter: lim,
		OnProgress: func(done, total int, result models.BatchItemResult) {
			calls.Add(1)
			assert.Equal(t, 3, total)
			for {
				old := maxDone.Load()
				if int32(done) <= old || maxDone.CompareAndSwap(old, int32(done)) {
					break
				}
			}
		},
	}
	urls := []string{"https://a.example", "https://b.example", "https://c.example"}
	New(&fakeFetcher{}, opts).Run(context.Background(), urls)

	assert.Len(t, lim.hosts, 3)
	assert.EqualValues(t, 3, calls.Load())
	assert.EqualValues(t, 3, maxDone.Load())
}

func TestPrepareURLs(t *testing.T) {
	urls, err := PrepareURLs([]string{"  https://a.example ", "", "\t", "https://b.example"})
	require.NoError(t, err)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, urls)

	_, err = PrepareURLs([]string{" ", ""})
	assert.EqualError(t, err, "no valid URLs provided")

	many := make([]string, MaxURLs+1)
	for i := range many {
		many[i] = "https://example.org"
	}
	_, err = PrepareURLs(many)
	assert.EqualError(t, err, "maximum 50 URLs per batch")

	_, err = PrepareURLs(many[:MaxURLs])
	assert.NoError(t, err)
}
