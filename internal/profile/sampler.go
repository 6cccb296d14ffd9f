package profile

import (
	"math/rand"
	"sync"
	"time"
)

// Sampler draws identities and delays from a Pools using a seedable source.
// It is safe for concurrent use.
type Sampler struct {
	pools *Pools
	mu    sync.Mutex
	rng   *rand.Rand
}

// NewSampler creates a Sampler over pools. A zero seed picks a time-based seed.
func NewSampler(pools *Pools, seed int64) *Sampler {
	if pools == nil {
		pools = Default()
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Sampler{
		pools: pools,
		rng:   rand.New(rand.NewSource(seed)),
	}
}

// Pools returns the underlying (read-only) pools
func (s *Sampler) Pools() *Pools {
	return s.pools
}

// Intn returns a uniform int in [0, n). n <= 0 yields 0.
func (s *Sampler) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Intn(n)
}

// IntBetween returns a uniform int in [lo, hi]
func (s *Sampler) IntBetween(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + s.Intn(hi-lo+1)
}

// Between returns a uniform duration in [lo, hi]
func (s *Sampler) Between(lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return lo
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return lo + time.Duration(s.rng.Int63n(int64(hi-lo)+1))
}

// UserAgent picks a User-Agent string
func (s *Sampler) UserAgent() string {
	if len(s.pools.UserAgents) == 0 {
		return ""
	}
	return s.pools.UserAgents[s.Intn(len(s.pools.UserAgents))]
}

// ChromiumUserAgent picks a User-Agent that a Chrome binary can pass for.
// A pool without one (a pinned non-Chromium UA) falls back to UserAgent.
func (s *Sampler) ChromiumUserAgent() string {
	var chromium []string
	for _, ua := range s.pools.UserAgents {
		if isChromium(ua) {
			chromium = append(chromium, ua)
		}
	}
	if len(chromium) == 0 {
		return s.UserAgent()
	}
	return chromium[s.Intn(len(chromium))]
}

// Viewport picks a window size
func (s *Sampler) Viewport() Viewport {
	if len(s.pools.Viewports) == 0 {
		return Viewport{Width: 1920, Height: 1080}
	}
	return s.pools.Viewports[s.Intn(len(s.pools.Viewports))]
}

// Timezone picks an IANA timezone name
func (s *Sampler) Timezone() string {
	if len(s.pools.Timezones) == 0 {
		return "America/New_York"
	}
	return s.pools.Timezones[s.Intn(len(s.pools.Timezones))]
}

// TLSProfiles returns up to n distinct TLS profiles in random order
func (s *Sampler) TLSProfiles(n int) []TLSProfile {
	all := s.pools.TLSProfiles
	if n > len(all) {
		n = len(all)
	}
	if n <= 0 {
		return nil
	}

	s.mu.Lock()
	perm := s.rng.Perm(len(all))
	s.mu.Unlock()

	out := make([]TLSProfile, n)
	for i := 0; i < n; i++ {
		out[i] = all[perm[i]]
	}
	return out
}
