// Package dynamic implements the three browser strategies. Each attempt
// launches its own Chrome, so no state leaks between URLs or strategies,
// and the browser is torn down before Attempt returns.
package dynamic

import (
	"context"
	"fmt"
	"time"

	"github.com/law-makers/scholarfetch/internal/classify"
	"github.com/law-makers/scholarfetch/internal/engine"
	"github.com/law-makers/scholarfetch/internal/profile"
	"github.com/law-makers/scholarfetch/internal/proxy"
	"github.com/law-makers/scholarfetch/internal/retry"
	"github.com/law-makers/scholarfetch/internal/workpool"
)

// Options configure the browser strategies
type Options struct {
	Sampler    *profile.Sampler
	Classifier *classify.Classifier

	// ChromePath overrides browser discovery
	ChromePath string
	Headless   bool
	Timeout    time.Duration
	Proxies    *proxy.Pool

	// Pool bounds the number of live browsers. Nil creates a private pool
	// sized for two concurrent sessions.
	Pool *workpool.Pool
}

func (o Options) withDefaults(name string, timeout time.Duration) Options {
	if o.Sampler == nil {
		o.Sampler = profile.NewSampler(profile.Default(), 0)
	}
	if o.Classifier == nil {
		o.Classifier = classify.New(classify.DefaultPolicy())
	}
	if o.Timeout <= 0 {
		o.Timeout = timeout
	}
	if o.Pool == nil {
		o.Pool = workpool.New(name, 2)
	}
	return o
}

// DefaultOptions returns headless options with stock pools
func DefaultOptions() Options {
	return Options{Headless: true}
}

type sleeper func(ctx context.Context, d time.Duration) error

// settle pauses for a random duration in [lo, hi]
func settle(ctx context.Context, s *profile.Sampler, sleep sleeper, lo, hi time.Duration) error {
	return sleep(ctx, s.Between(lo, hi))
}

// verifyRendered applies the checks shared by the basic and human browser
// strategies: block status first, then minimum length.
func verifyRendered(c *classify.Classifier, status int, body string) *engine.FetchError {
	if status != 0 && c.IsBlockStatus(status) {
		return engine.BlockedByStatus(status)
	}
	return verifyLength(c, body)
}

// verifyLength rejects bodies under the classifier's minimum length
func verifyLength(c *classify.Classifier, body string) *engine.FetchError {
	min := c.Policy().MinLength
	if n := classify.Length(body); n < min {
		return engine.ContentTooShort(n, min)
	}
	return nil
}

// proxyServer picks a proxy for one browser launch. Chrome takes the
// proxy as a single server string.
func proxyServer(p *proxy.Pool) string {
	u := p.Next()
	if u == nil {
		return ""
	}
	return u.String()
}

func locate(configured string) (string, error) {
	bin := FindChrome(configured)
	if bin == "" {
		return "", engine.RenderingEngineFailure(engine.ErrBrowserNotFound)
	}
	return bin, nil
}

var defaultSleep sleeper = retry.Sleep

func windowSize(v profile.Viewport) string {
	return fmt.Sprintf("%d,%d", v.Width, v.Height)
}
