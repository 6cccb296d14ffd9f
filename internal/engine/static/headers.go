package static

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/http2"

	"github.com/law-makers/scholarfetch/internal/engine"
	"github.com/law-makers/scholarfetch/internal/profile"
	"github.com/law-makers/scholarfetch/internal/retry"
	"github.com/law-makers/scholarfetch/internal/utils/headers"
	"github.com/law-makers/scholarfetch/pkg/models"
)

// HeaderClientTimeout bounds one try of the browser-header client
const HeaderClientTimeout = 20 * time.Second

// HeaderClient fetches with an ordinary HTTP/2-capable client that sends a
// complete desktop browser header set, resampled on every try.
type HeaderClient struct {
	opts      Options
	retry     retry.Config
	transport *http.Transport
}

// NewHeaderClient creates the browser-header strategy
func NewHeaderClient(opts Options) *HeaderClient {
	opts = opts.withDefaults(HeaderClientTimeout)

	transport := &http.Transport{
		Proxy: opts.Proxies.ProxyFunc(),
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:   true,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
	if err := http2.ConfigureTransport(transport); err != nil {
		log.Warn().Err(err).Msg("HTTP/2 unavailable for header client, using HTTP/1.1")
	}

	return &HeaderClient{
		opts: opts,
		retry: retry.Config{
			MaxAttempts:    2,
			InitialBackoff: 1500 * time.Millisecond,
			MaxBackoff:     1500 * time.Millisecond,
			Multiplier:     1,
			JitterFraction: 1.0 / 3,
			Jitter:         opts.Sampler,
			Name:           models.StrategyBrowserHeaders.String(),
		},
		transport: transport,
	}
}

func (hc *HeaderClient) ID() models.StrategyID {
	return models.StrategyBrowserHeaders
}

// Attempt fetches rawURL with up to two tries
func (hc *HeaderClient) Attempt(ctx context.Context, rawURL string) (*engine.Response, error) {
	var result *engine.Response
	var lastErr *engine.FetchError

	err := retry.Do(ctx, hc.retry, func(ctx context.Context, attempt int) error {
		resp, fe := hc.try(ctx, rawURL)
		if fe != nil {
			lastErr = fe
			return fe
		}
		result = resp
		return nil
	})
	if err == nil {
		return result, nil
	}
	if lastErr == nil {
		return nil, engine.TransportFailure(err).WithStrategy(hc.ID())
	}
	return nil, lastErr.WithStrategy(hc.ID())
}

func (hc *HeaderClient) try(ctx context.Context, rawURL string) (*engine.Response, *engine.FetchError) {
	ctx, cancel := context.WithTimeout(ctx, hc.opts.Timeout)
	defer cancel()

	ua := hc.opts.Sampler.UserAgent()
	hdr := profile.BrowserHeaders(ua, hc.opts.Sampler.Pools().Locale)
	// Let the transport negotiate and decode compression
	hdr.Del("Accept-Encoding")
	headers.Merge(hdr, hc.opts.ExtraHeaders)

	c := colly.NewCollector(
		colly.UserAgent(hdr.Get("User-Agent")),
		colly.AllowURLRevisit(),
	)
	c.WithTransport(hc.transport)
	c.SetRequestTimeout(hc.opts.Timeout)
	c.ParseHTTPErrorResponse = true
	c.DetectCharset = true
	c.MaxBodySize = maxBodyBytes
	c.Context = ctx

	var (
		status   int
		body     string
		finalURL = rawURL
		fetchErr error
	)
	c.OnResponse(func(r *colly.Response) {
		status = r.StatusCode
		body = string(r.Body)
		finalURL = r.Request.URL.String()
	})
	c.OnError(func(r *colly.Response, err error) {
		if r != nil {
			status = r.StatusCode
		}
		fetchErr = err
	})

	log.Debug().
		Str("url", rawURL).
		Str("user_agent", ua).
		Msg("Header client request")

	if err := c.Request(http.MethodGet, rawURL, nil, nil, hdr); err != nil && fetchErr == nil {
		fetchErr = err
	}
	if fetchErr != nil && status == 0 {
		if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(fetchErr, ctxErr) {
			fetchErr = errors.Join(fetchErr, ctxErr)
		}
		return nil, engine.TransportFailure(fetchErr)
	}

	if fe := checkStatusAndLength(hc.opts.Classifier, status, body); fe != nil {
		return nil, fe
	}
	return &engine.Response{StatusCode: status, Body: body, FinalURL: finalURL}, nil
}
