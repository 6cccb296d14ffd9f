// Package hybrid implements the challenge-solving strategy: a plain HTTP
// client that evaluates interstitial scripts in an embedded JS runtime
// instead of launching a browser.
package hybrid

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/law-makers/scholarfetch/internal/classify"
	"github.com/law-makers/scholarfetch/internal/engine"
	"github.com/law-makers/scholarfetch/internal/profile"
	"github.com/law-makers/scholarfetch/internal/proxy"
	"github.com/law-makers/scholarfetch/internal/retry"
	"github.com/law-makers/scholarfetch/internal/utils/headers"
	"github.com/law-makers/scholarfetch/internal/workpool"
	"github.com/law-makers/scholarfetch/pkg/models"
)

const (
	// SolverTimeout bounds the whole attempt, including the initial delay
	SolverTimeout = 30 * time.Second

	// interstitialWindow is how far into the final body interstitial
	// markers are searched
	interstitialWindow = 2000

	maxSolveRounds = 3
	maxBodyBytes   = 10 * 1024 * 1024
)

// Options configure the Solver
type Options struct {
	Sampler      *profile.Sampler
	Classifier   *classify.Classifier
	Timeout      time.Duration
	ExtraHeaders http.Header
	Proxies      *proxy.Pool

	// Pool bounds concurrent script evaluations. Nil creates a private pool.
	Pool *workpool.Pool

	// ScriptBudget bounds evaluation of one page
	ScriptBudget time.Duration
}

// Solver fetches pages behind script interstitials without a browser
type Solver struct {
	opts      Options
	transport *http.Transport

	// human latency before the first request
	delayMin, delayMax time.Duration
	sleep              func(ctx context.Context, d time.Duration) error
}

// NewSolver creates the challenge-solving strategy
func NewSolver(opts Options) *Solver {
	if opts.Sampler == nil {
		opts.Sampler = profile.NewSampler(profile.Default(), 0)
	}
	if opts.Classifier == nil {
		opts.Classifier = classify.New(classify.DefaultPolicy())
	}
	if opts.Timeout <= 0 {
		opts.Timeout = SolverTimeout
	}
	if opts.Pool == nil {
		opts.Pool = workpool.New("challenge-solver", 0)
	}
	if opts.ScriptBudget <= 0 {
		opts.ScriptBudget = DefaultScriptBudget
	}

	return &Solver{
		opts: opts,
		transport: &http.Transport{
			Proxy: opts.Proxies.ProxyFunc(),
			DialContext: (&net.Dialer{
				Timeout:   10 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			ForceAttemptHTTP2:   true,
			MaxIdleConns:        100,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
		},
		delayMin: 3 * time.Second,
		delayMax: 7 * time.Second,
		sleep:    retry.Sleep,
	}
}

func (s *Solver) ID() models.StrategyID {
	return models.StrategyChallengeSolver
}

// page is one fetched document
type page struct {
	status int
	body   string
	url    string
}

// Attempt fetches rawURL, evaluating up to three rounds of interstitial
// scripts before giving up
func (s *Solver) Attempt(ctx context.Context, rawURL string) (*engine.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	if err := s.sleep(ctx, s.opts.Sampler.Between(s.delayMin, s.delayMax)); err != nil {
		return nil, s.fail(engine.TransportFailure(err))
	}

	jar, _ := cookiejar.New(nil)
	client := &http.Client{Transport: s.transport, Jar: jar}
	ua := s.opts.Sampler.UserAgent()

	p, err := s.do(ctx, client, ua, http.MethodGet, rawURL, "", nil)
	if err != nil {
		return nil, s.fail(engine.TransportFailure(err))
	}

	for round := 1; round <= maxSolveRounds && NeedsSolving(p.status, p.body); round++ {
		sol, err := workpool.Submit(ctx, s.opts.Pool, func(ctx context.Context) (*Solution, error) {
			return Solve(ctx, p.url, p.body, ua, s.opts.ScriptBudget)
		})
		if err != nil {
			log.Debug().Str("url", rawURL).Int("round", round).Err(err).Msg("Challenge evaluation failed")
		}
		if sol.Empty() {
			log.Debug().Str("url", rawURL).Int("round", round).Msg("Challenge scripts produced nothing to act on")
			break
		}

		log.Debug().
			Str("url", rawURL).
			Int("round", round).
			Int("cookies", len(sol.Cookies)).
			Str("navigate", sol.Navigate).
			Bool("form", sol.Submit != nil).
			Msg("Challenge solved, retrying")

		if u, err := url.Parse(p.url); err == nil && len(sol.Cookies) > 0 {
			jar.SetCookies(u, sol.Cookies)
		}

		next, err := s.follow(ctx, client, ua, p, sol)
		if err != nil {
			return nil, s.fail(engine.TransportFailure(err))
		}
		p = next
	}

	if fe := s.check(p); fe != nil {
		return nil, s.fail(fe)
	}
	return &engine.Response{StatusCode: p.status, Body: p.body, FinalURL: p.url}, nil
}

// follow acts on a solution: submit the form, go where the script pointed,
// or reload with the new cookies
func (s *Solver) follow(ctx context.Context, client *http.Client, ua string, from *page, sol *Solution) (*page, error) {
	if f := sol.Submit; f != nil {
		form := url.Values{}
		for k, v := range f.Fields {
			form.Set(k, v)
		}
		if f.Method == http.MethodPost {
			return s.do(ctx, client, ua, http.MethodPost, f.Action, from.url, strings.NewReader(form.Encode()))
		}
		target, err := url.Parse(f.Action)
		if err != nil {
			return nil, err
		}
		target.RawQuery = form.Encode()
		return s.do(ctx, client, ua, http.MethodGet, target.String(), from.url, nil)
	}
	if sol.Navigate != "" {
		return s.do(ctx, client, ua, http.MethodGet, sol.Navigate, from.url, nil)
	}
	return s.do(ctx, client, ua, http.MethodGet, from.url, from.url, nil)
}

func (s *Solver) do(ctx context.Context, client *http.Client, ua, method, target, referer string, body io.Reader) (*page, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, err
	}
	req.Header = profile.BrowserHeaders(ua, s.opts.Sampler.Pools().Locale)
	req.Header.Del("Accept-Encoding")
	if referer != "" {
		req.Header.Set("Referer", referer)
		req.Header.Set("Sec-Fetch-Site", "same-origin")
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	headers.Merge(req.Header, s.opts.ExtraHeaders)

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return &page{status: resp.StatusCode, body: string(b), url: resp.Request.URL.String()}, nil
}

// check applies the acceptance rules to the final page
func (s *Solver) check(p *page) *engine.FetchError {
	c := s.opts.Classifier
	if c.IsBlockStatus(p.status) {
		return engine.BlockedByStatus(p.status)
	}
	if p.status != http.StatusOK {
		return engine.UnexpectedStatus(p.status)
	}
	if n := classify.Length(p.body); n < c.Policy().MinLength {
		return engine.ContentTooShort(n, c.Policy().MinLength).WithStatus(p.status)
	}
	if marker, found := classify.ContainsMarker(p.body, interstitialWindow, classify.InterstitialMarkers); found {
		return engine.ChallengeUnresolved(marker).WithStatus(p.status)
	}
	return nil
}

func (s *Solver) fail(fe *engine.FetchError) error {
	return fe.WithStrategy(s.ID())
}
