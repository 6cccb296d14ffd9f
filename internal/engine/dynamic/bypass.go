package dynamic

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-rod/rod/lib/proto"
	"github.com/rs/zerolog/log"

	"github.com/law-makers/scholarfetch/internal/classify"
	"github.com/law-makers/scholarfetch/internal/engine"
	"github.com/law-makers/scholarfetch/internal/reqctx"
	"github.com/law-makers/scholarfetch/internal/workpool"
	"github.com/law-makers/scholarfetch/pkg/models"
)

const (
	// ChallengeTimeout bounds the whole challenge-wait attempt
	ChallengeTimeout = 45 * time.Second

	challengeNavTimeout  = 30 * time.Second
	challengeInitialWait = 5 * time.Second
	challengeExtraWait   = 8 * time.Second
	challengeIdleWait    = 15 * time.Second
)

// ChallengeBrowser loads the page and waits out interstitial challenges.
// It is the last rung of the ladder.
type ChallengeBrowser struct {
	opts  Options
	sleep sleeper
}

// NewChallengeBrowser creates the challenge-wait strategy
func NewChallengeBrowser(opts Options) *ChallengeBrowser {
	return &ChallengeBrowser{
		opts:  opts.withDefaults("browser", ChallengeTimeout),
		sleep: defaultSleep,
	}
}

func (c *ChallengeBrowser) ID() models.StrategyID {
	return models.StrategyBrowserChallenge
}

func (c *ChallengeBrowser) Attempt(ctx context.Context, rawURL string) (*engine.Response, error) {
	bin, err := locate(c.opts.ChromePath)
	if err != nil {
		return nil, err
	}
	return workpool.Submit(ctx, c.opts.Pool, func(ctx context.Context) (*engine.Response, error) {
		return c.render(ctx, bin, rawURL)
	})
}

// resolvedStatus is the status reported for a page that got past its
// challenge. A block status left over from the interstitial, or no status
// at all, reads as 200.
func resolvedStatus(c *classify.Classifier, observed int) int {
	if observed == 0 || c.IsBlockStatus(observed) {
		return http.StatusOK
	}
	return observed
}

// challengeIndicator reports the first waiting-room marker anywhere in body
func challengeIndicator(body string) (string, bool) {
	return classify.ContainsMarker(body, 0, classify.WaitMarkers)
}

func (c *ChallengeBrowser) render(ctx context.Context, bin, rawURL string) (*engine.Response, error) {
	start := time.Now()
	rc := reqctx.GetRequestContext(ctx)

	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	s := c.opts.Sampler
	sess, ferr := launch(ctx, bin, c.opts, s.Viewport(), s.ChromiumUserAgent())
	if ferr != nil {
		return nil, ferr.WithStrategy(c.ID())
	}
	defer sess.close()

	page := sess.page.Context(ctx)
	if err := emulate(page, s.Timezone(), s.Pools().Locale); err != nil {
		log.Debug().Err(err).Msg("Emulation overrides failed")
	}
	if _, err := page.EvalOnNewDocument(challengeStealthJS); err != nil {
		return nil, engine.RenderingEngineFailure(fmt.Errorf("install stealth script: %w", err)).WithStrategy(c.ID())
	}

	nav := page.Timeout(challengeNavTimeout)
	loaded := nav.WaitNavigation(proto.PageLifecycleEventNameDOMContentLoaded)
	if err := nav.Navigate(rawURL); err != nil {
		return nil, engine.RenderingEngineFailure(fmt.Errorf("navigate: %w", err)).WithStrategy(c.ID())
	}
	loaded()
	nav.CancelTimeout()

	if err := c.sleep(ctx, challengeInitialWait); err != nil {
		return nil, engine.RenderingEngineFailure(err).WithStrategy(c.ID())
	}

	body, err := page.HTML()
	if err != nil {
		return nil, engine.RenderingEngineFailure(fmt.Errorf("read document: %w", err)).WithStrategy(c.ID())
	}

	if marker, ok := challengeIndicator(body); ok {
		log.Debug().
			Str("request_id", rc.RequestID).
			Str("url", rawURL).
			Str("marker", marker).
			Msg("Challenge detected, waiting longer")

		if err := c.sleep(ctx, challengeExtraWait); err != nil {
			return nil, engine.ChallengeUnresolved(marker).WithStrategy(c.ID())
		}

		// Best effort; a page that never goes idle is judged as it stands
		idleCtx, idleCancel := context.WithTimeout(ctx, challengeIdleWait)
		page.Context(idleCtx).WaitRequestIdle(500*time.Millisecond, nil, nil, nil)()
		idleCancel()
	}

	if _, err := page.Eval(`() => window.scrollBy(0, 500)`); err != nil {
		log.Debug().Err(err).Msg("Scroll failed")
	}
	if err := settle(ctx, s, c.sleep, time.Second, 2*time.Second); err != nil {
		return nil, engine.RenderingEngineFailure(err).WithStrategy(c.ID())
	}

	body, err = page.HTML()
	if err != nil {
		return nil, engine.RenderingEngineFailure(fmt.Errorf("read document: %w", err)).WithStrategy(c.ID())
	}

	// Interstitials are served as 403 or 503, so the document status says
	// nothing here. The rendered content decides.
	if ferr := verifyLength(c.opts.Classifier, body); ferr != nil {
		return nil, ferr.WithStrategy(c.ID())
	}
	if marker, ok := challengeIndicator(body); ok {
		return nil, engine.ChallengeUnresolved(marker).WithStrategy(c.ID())
	}

	finalURL := rawURL
	if info, err := page.Info(); err == nil {
		finalURL = info.URL
	}
	status := resolvedStatus(c.opts.Classifier, sess.Status())

	log.Debug().
		Str("request_id", rc.RequestID).
		Str("url", rawURL).
		Int("status", status).
		Int("length", len(body)).
		Dur("elapsed", time.Since(start)).
		Msg("Challenge wait render complete")

	return &engine.Response{StatusCode: status, Body: body, FinalURL: finalURL}, nil
}
