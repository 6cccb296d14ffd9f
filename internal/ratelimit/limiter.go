// internal/ratelimit/limiter.go
package ratelimit

import (
	"context"
	"net/url"
	"strings"
	"sync"

	"golang.org/x/time/rate"
)

// Waiter is what the batch orchestrator needs from a politeness limiter
type Waiter interface {
	// Wait blocks until a fetch of urlStr may start, or ctx ends.
	Wait(ctx context.Context, urlStr string) error
}

// DomainLimiter spaces out ladder runs against the same site. Each host gets
// its own token bucket; "www." is folded so example.org and www.example.org
// share one.
type DomainLimiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.RWMutex
	perHost  rate.Limit
	burst    int
}

// NewDomainLimiter creates a limiter allowing requestsPerSecond ladder runs
// per host with the given burst
func NewDomainLimiter(requestsPerSecond float64, burst int) *DomainLimiter {
	if requestsPerSecond <= 0 {
		requestsPerSecond = 1.0
	}
	if burst <= 0 {
		burst = 2
	}

	return &DomainLimiter{
		limiters: make(map[string]*rate.Limiter),
		perHost:  rate.Limit(requestsPerSecond),
		burst:    burst,
	}
}

// Wait blocks until a fetch of urlStr can proceed
func (dl *DomainLimiter) Wait(ctx context.Context, urlStr string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	host := HostKey(urlStr)
	if host == "" {
		// Unparseable URL; the batch rejects it separately
		return nil
	}
	return dl.getLimiter(host).Wait(ctx)
}

// Allow reports whether a fetch of urlStr may start right now, consuming a
// token if so
func (dl *DomainLimiter) Allow(urlStr string) bool {
	host := HostKey(urlStr)
	if host == "" {
		return true
	}
	return dl.getLimiter(host).Allow()
}

// Hosts returns how many hosts currently have a bucket
func (dl *DomainLimiter) Hosts() int {
	dl.mu.RLock()
	defer dl.mu.RUnlock()
	return len(dl.limiters)
}

// SetLimit overrides the rate for one host
func (dl *DomainLimiter) SetLimit(host string, requestsPerSecond float64, burst int) {
	host = normalizeHost(host)

	dl.mu.Lock()
	defer dl.mu.Unlock()

	if limiter, exists := dl.limiters[host]; exists {
		limiter.SetLimit(rate.Limit(requestsPerSecond))
		limiter.SetBurst(burst)
	} else {
		dl.limiters[host] = rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
	}
}

func (dl *DomainLimiter) getLimiter(host string) *rate.Limiter {
	dl.mu.RLock()
	limiter, exists := dl.limiters[host]
	dl.mu.RUnlock()

	if exists {
		return limiter
	}

	dl.mu.Lock()
	defer dl.mu.Unlock()

	// Double-check after acquiring write lock
	if limiter, exists := dl.limiters[host]; exists {
		return limiter
	}

	limiter = rate.NewLimiter(dl.perHost, dl.burst)
	dl.limiters[host] = limiter
	return limiter
}

// HostKey returns the bucket key for urlStr, or "" if it has no host
func HostKey(urlStr string) string {
	u, err := url.Parse(urlStr)
	if err != nil {
		return ""
	}
	return normalizeHost(u.Hostname())
}

func normalizeHost(host string) string {
	return strings.TrimPrefix(strings.ToLower(host), "www.")
}
