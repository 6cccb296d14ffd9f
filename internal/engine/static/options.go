// Package static holds the two browserless HTTP strategies: direct requests
// behind an impersonated TLS handshake, and a browser-header client.
package static

import (
	"context"
	"net/http"
	"time"

	"github.com/law-makers/scholarfetch/internal/classify"
	"github.com/law-makers/scholarfetch/internal/profile"
	"github.com/law-makers/scholarfetch/internal/proxy"
	"github.com/law-makers/scholarfetch/internal/retry"
)

// Options are shared by both HTTP strategies
type Options struct {
	Sampler    *profile.Sampler
	Classifier *classify.Classifier

	// Timeout bounds a single try
	Timeout time.Duration

	// ExtraHeaders are applied on top of the generated browser headers
	ExtraHeaders http.Header

	// Proxies is optional; nil connects directly
	Proxies *proxy.Pool
}

func (o Options) withDefaults(timeout time.Duration) Options {
	if o.Sampler == nil {
		o.Sampler = profile.NewSampler(profile.Default(), 0)
	}
	if o.Classifier == nil {
		o.Classifier = classify.New(classify.DefaultPolicy())
	}
	if o.Timeout <= 0 {
		o.Timeout = timeout
	}
	return o
}

// sleeper is swapped out in tests
type sleeper func(ctx context.Context, d time.Duration) error

var defaultSleep sleeper = retry.Sleep
