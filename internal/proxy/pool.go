package proxy

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// DefaultCooldown is how long a failed proxy is skipped
const DefaultCooldown = 5 * time.Minute

// Pool rotates through upstream proxies, skipping ones that failed recently.
// A nil *Pool is valid and means "connect directly".
type Pool struct {
	proxies  []*url.URL
	index    int
	mu       sync.Mutex
	failed   map[string]time.Time
	cooldown time.Duration
	now      func() time.Time
}

// NewPool parses proxies (http://, https:// or socks5:// URLs; a bare
// host:port is taken as http). It returns nil, nil for an empty list.
func NewPool(proxies []string) (*Pool, error) {
	var parsed []*url.URL
	for _, raw := range proxies {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if !strings.Contains(raw, "://") {
			raw = "http://" + raw
		}
		u, err := url.Parse(raw)
		if err != nil || u.Host == "" {
			return nil, fmt.Errorf("invalid proxy %q", raw)
		}
		switch u.Scheme {
		case "http", "https", "socks5":
		default:
			return nil, fmt.Errorf("unsupported proxy scheme %q", u.Scheme)
		}
		parsed = append(parsed, u)
	}
	if len(parsed) == 0 {
		return nil, nil
	}
	return &Pool{
		proxies:  parsed,
		failed:   make(map[string]time.Time),
		cooldown: DefaultCooldown,
		now:      time.Now,
	}, nil
}

// Len returns the number of configured proxies
func (p *Pool) Len() int {
	if p == nil {
		return 0
	}
	return len(p.proxies)
}

// Next returns the next healthy proxy. When every proxy is cooling down it
// returns the next one in rotation anyway. Nil pools return nil.
func (p *Pool) Next() *url.URL {
	if p == nil {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	start := p.index
	for {
		proxy := p.proxies[p.index]
		p.index = (p.index + 1) % len(p.proxies)

		key := proxy.String()
		if failTime, ok := p.failed[key]; ok {
			if p.now().Sub(failTime) < p.cooldown {
				if p.index == start {
					return proxy
				}
				continue
			}
			delete(p.failed, key)
		}
		return proxy
	}
}

// ProxyFunc adapts the pool to http.Transport.Proxy. Each new connection
// takes the next proxy in rotation.
func (p *Pool) ProxyFunc() func(*http.Request) (*url.URL, error) {
	return func(*http.Request) (*url.URL, error) {
		return p.Next(), nil
	}
}

// MarkFailed puts proxy into cool-down
func (p *Pool) MarkFailed(proxy *url.URL) {
	if p == nil || proxy == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failed[proxy.String()] = p.now()
}

// MarkHealthy clears the failure status of a proxy
func (p *Pool) MarkHealthy(proxy *url.URL) {
	if p == nil || proxy == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.failed, proxy.String())
}
