package static

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/law-makers/scholarfetch/internal/engine"
	"github.com/law-makers/scholarfetch/internal/profile"
	"github.com/law-makers/scholarfetch/internal/utils/headers"
	"github.com/law-makers/scholarfetch/pkg/models"
)

const (
	// ImpersonatorTimeout bounds one profile try
	ImpersonatorTimeout = 25 * time.Second

	impersonatorProfiles = 3
	maxRedirects         = 10
)

// Impersonator requests pages directly while presenting the TLS handshake of
// a real browser. Each attempt walks up to three distinct fingerprints.
type Impersonator struct {
	opts      Options
	transport *helloTransport
	sleep     sleeper
}

// NewImpersonator creates the TLS impersonation strategy
func NewImpersonator(opts Options) *Impersonator {
	return &Impersonator{
		opts:      opts.withDefaults(ImpersonatorTimeout),
		transport: newHelloTransport(opts.Proxies),
		sleep:     defaultSleep,
	}
}

func (im *Impersonator) ID() models.StrategyID {
	return models.StrategyTLSImpersonation
}

// Attempt fetches rawURL, rotating TLS profiles on block statuses and
// transport errors
func (im *Impersonator) Attempt(ctx context.Context, rawURL string) (*engine.Response, error) {
	profiles := im.opts.Sampler.TLSProfiles(impersonatorProfiles)
	if len(profiles) == 0 {
		return nil, engine.TransportFailure(errors.New("no TLS profiles configured")).WithStrategy(im.ID())
	}

	var lastErr *engine.FetchError
	for i, p := range profiles {
		resp, err := im.try(ctx, rawURL, p)
		if err == nil {
			log.Debug().
				Str("url", rawURL).
				Str("profile", p.Name).
				Int("try", i+1).
				Msg("Impersonated request accepted")
			return resp, nil
		}
		lastErr = err.WithStrategy(im.ID())

		log.Debug().
			Str("url", rawURL).
			Str("profile", p.Name).
			Int("try", i+1).
			Err(err).
			Msg("Impersonated request rejected")

		if ctx.Err() != nil || i == len(profiles)-1 {
			break
		}

		var pause time.Duration
		switch err.Code {
		case engine.ErrCodeBlockedByStatus:
			pause = im.opts.Sampler.Between(1*time.Second, 2*time.Second)
		case engine.ErrCodeTransport:
			pause = im.opts.Sampler.Between(500*time.Millisecond, 1500*time.Millisecond)
		}
		if err := im.sleep(ctx, pause); err != nil {
			break
		}
	}
	return nil, lastErr
}

// try performs one profile's request, following redirects on fresh
// connections with the same fingerprint
func (im *Impersonator) try(ctx context.Context, rawURL string, p profile.TLSProfile) (*engine.Response, *engine.FetchError) {
	ctx, cancel := context.WithTimeout(ctx, im.opts.Timeout)
	defer cancel()

	target, err := url.Parse(rawURL)
	if err != nil {
		return nil, engine.TransportFailure(err)
	}
	jar, _ := cookiejar.New(nil)
	hello := helloFor(p.Name)

	for hop := 0; ; hop++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
		if err != nil {
			return nil, engine.TransportFailure(err)
		}
		req.Header = im.headers(p)
		for _, c := range jar.Cookies(target) {
			req.AddCookie(c)
		}

		resp, err := im.transport.roundTrip(req, hello)
		if err != nil {
			return nil, engine.TransportFailure(err)
		}
		body, err := readBody(resp)
		resp.Body.Close()
		if err != nil {
			return nil, engine.TransportFailure(err)
		}
		jar.SetCookies(target, resp.Cookies())

		if isRedirect(resp.StatusCode) {
			loc, err := resp.Location()
			if err != nil {
				return nil, engine.TransportFailure(fmt.Errorf("redirect without location: %w", err))
			}
			if hop >= maxRedirects {
				return nil, engine.TransportFailure(fmt.Errorf("stopped after %d redirects", maxRedirects))
			}
			target = loc
			continue
		}

		if fe := checkDirect(im.opts.Classifier, resp.StatusCode, body); fe != nil {
			return nil, fe
		}
		return &engine.Response{
			StatusCode: resp.StatusCode,
			Body:       body,
			FinalURL:   target.String(),
		}, nil
	}
}

func (im *Impersonator) headers(p profile.TLSProfile) http.Header {
	h := http.Header{}
	h.Set("User-Agent", p.UserAgent)
	h.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	h.Set("Accept-Language", "en-US,en;q=0.9")
	h.Set("Accept-Encoding", "gzip, deflate, br")
	headers.Merge(h, im.opts.ExtraHeaders)
	return h
}

func isRedirect(status int) bool {
	switch status {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		return true
	}
	return false
}
