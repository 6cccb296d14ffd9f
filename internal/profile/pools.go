// Package profile holds the identity pools used to vary fetch fingerprints.
//
// Pools are plain data. They are built once, passed into strategies at
// construction and never mutated afterwards, so concurrent readers need no
// locking. Randomness lives in Sampler, not here.
package profile

// Viewport is a browser window size in CSS pixels
type Viewport struct {
	Width  int
	Height int
}

// TLSProfile names a browser handshake fingerprint together with the
// User-Agent that browser would send. The HTTP layer maps Name onto a
// concrete ClientHello.
type TLSProfile struct {
	Name      string
	UserAgent string
}

// Geolocation is a fixed position reported to pages that ask for it
type Geolocation struct {
	Latitude  float64
	Longitude float64
	Accuracy  float64
}

// Pools is the immutable identity configuration shared by all strategies
type Pools struct {
	UserAgents  []string
	Viewports   []Viewport
	TLSProfiles []TLSProfile
	Timezones   []string
	Locale      string
	Geolocation Geolocation
}

const (
	uaChromeWindows = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36"
	uaChromeMac     = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36"
	uaChromeLinux   = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36"
	uaFirefox       = "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:123.0) Gecko/20100101 Firefox/123.0"
	uaSafari        = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.3 Safari/605.1.15"
	uaEdge          = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36 Edg/122.0.0.0"
)

// Default returns the stock pools. Each call returns fresh slices so callers
// may derive their own variant without touching anyone else's.
func Default() *Pools {
	return &Pools{
		UserAgents: []string{
			uaChromeWindows,
			uaChromeMac,
			uaChromeLinux,
			uaFirefox,
			uaSafari,
			uaEdge,
		},
		Viewports: []Viewport{
			{1920, 1080},
			{1366, 768},
			{1536, 864},
			{1440, 900},
			{1280, 720},
			{2560, 1440},
		},
		TLSProfiles: []TLSProfile{
			{Name: "chrome100", UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/100.0.4896.127 Safari/537.36"},
			{Name: "chrome102", UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/102.0.5005.115 Safari/537.36"},
			{Name: "chrome106", UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/106.0.0.0 Safari/537.36"},
			{Name: "chrome115", UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/115.0.0.0 Safari/537.36"},
			{Name: "chrome120", UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"},
			{Name: "edge106", UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/106.0.0.0 Safari/537.36 Edg/106.0.1370.34"},
			{Name: "safari16", UserAgent: "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/16.0 Safari/605.1.15"},
		},
		Timezones: []string{
			"America/New_York",
			"America/Los_Angeles",
			"Europe/London",
		},
		Locale: "en-US",
		Geolocation: Geolocation{
			Latitude:  40.7128,
			Longitude: -74.0060,
			Accuracy:  100,
		},
	}
}

// WithUserAgent returns a copy of p where every identity reports ua.
// Used when the operator pins a User-Agent in configuration.
func (p *Pools) WithUserAgent(ua string) *Pools {
	if ua == "" {
		return p
	}
	cp := *p
	cp.UserAgents = []string{ua}
	cp.TLSProfiles = make([]TLSProfile, len(p.TLSProfiles))
	for i, tp := range p.TLSProfiles {
		tp.UserAgent = ua
		cp.TLSProfiles[i] = tp
	}
	return &cp
}
