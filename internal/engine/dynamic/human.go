package dynamic

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/rs/zerolog/log"

	"github.com/law-makers/scholarfetch/internal/engine"
	"github.com/law-makers/scholarfetch/internal/profile"
	"github.com/law-makers/scholarfetch/internal/reqctx"
	"github.com/law-makers/scholarfetch/internal/workpool"
	"github.com/law-makers/scholarfetch/pkg/models"
)

// HumanTimeout bounds the human-simulation strategy, network idle included
const HumanTimeout = 35 * time.Second

// HumanBrowser renders with deep fingerprint masking and simulated mouse
// and scroll input
type HumanBrowser struct {
	opts  Options
	sleep sleeper
}

// NewHumanBrowser creates the human-simulation strategy
func NewHumanBrowser(opts Options) *HumanBrowser {
	return &HumanBrowser{
		opts:  opts.withDefaults("browser", HumanTimeout),
		sleep: defaultSleep,
	}
}

func (h *HumanBrowser) ID() models.StrategyID {
	return models.StrategyBrowserHuman
}

func (h *HumanBrowser) Attempt(ctx context.Context, rawURL string) (*engine.Response, error) {
	bin, err := locate(h.opts.ChromePath)
	if err != nil {
		return nil, err
	}
	return workpool.Submit(ctx, h.opts.Pool, func(ctx context.Context) (*engine.Response, error) {
		return h.render(ctx, bin, rawURL)
	})
}

func (h *HumanBrowser) render(ctx context.Context, bin, rawURL string) (*engine.Response, error) {
	start := time.Now()
	rc := reqctx.GetRequestContext(ctx)

	ctx, cancel := context.WithTimeout(ctx, h.opts.Timeout)
	defer cancel()

	s := h.opts.Sampler
	vp := s.Viewport()
	tz := s.Timezone()

	sess, ferr := launch(ctx, bin, h.opts, vp, s.ChromiumUserAgent())
	if ferr != nil {
		return nil, ferr.WithStrategy(h.ID())
	}
	defer sess.close()

	page := sess.page.Context(ctx)
	if err := h.prepare(sess, page, rawURL, tz); err != nil {
		return nil, engine.RenderingEngineFailure(err).WithStrategy(h.ID())
	}

	log.Debug().
		Str("request_id", rc.RequestID).
		Str("url", rawURL).
		Str("timezone", tz).
		Int("width", vp.Width).
		Int("height", vp.Height).
		Msg("Navigating with human simulation")

	idle := page.WaitNavigation(proto.PageLifecycleEventNameNetworkIdle)
	if err := page.Navigate(rawURL); err != nil {
		return nil, engine.RenderingEngineFailure(fmt.Errorf("navigate: %w", err)).WithStrategy(h.ID())
	}
	idle()
	if err := ctx.Err(); err != nil {
		return nil, engine.RenderingEngineFailure(fmt.Errorf("waiting for network idle: %w", err)).WithStrategy(h.ID())
	}

	status := sess.Status()
	if status != 0 && h.opts.Classifier.IsBlockStatus(status) {
		return nil, engine.BlockedByStatus(status).WithStrategy(h.ID())
	}

	if err := settle(ctx, s, h.sleep, time.Second, 2*time.Second); err != nil {
		return nil, engine.RenderingEngineFailure(err).WithStrategy(h.ID())
	}

	if err := h.interact(ctx, page, vp); err != nil {
		return nil, engine.RenderingEngineFailure(err).WithStrategy(h.ID())
	}

	if err := settle(ctx, s, h.sleep, 500*time.Millisecond, time.Second); err != nil {
		return nil, engine.RenderingEngineFailure(err).WithStrategy(h.ID())
	}

	body, err := page.HTML()
	if err != nil {
		return nil, engine.RenderingEngineFailure(fmt.Errorf("read document: %w", err)).WithStrategy(h.ID())
	}
	if ferr := verifyRendered(h.opts.Classifier, status, body); ferr != nil {
		return nil, ferr.WithStrategy(h.ID())
	}

	finalURL := rawURL
	if info, err := page.Info(); err == nil {
		finalURL = info.URL
	}
	if status == 0 {
		status = 200
	}

	log.Debug().
		Str("request_id", rc.RequestID).
		Str("url", rawURL).
		Int("status", status).
		Int("length", len(body)).
		Dur("elapsed", time.Since(start)).
		Msg("Human simulation render complete")

	return &engine.Response{StatusCode: status, Body: body, FinalURL: finalURL}, nil
}

// prepare installs the fingerprint overrides before navigation
func (h *HumanBrowser) prepare(sess *session, page *rod.Page, rawURL, timezone string) error {
	pools := h.opts.Sampler.Pools()

	if err := emulate(page, timezone, pools.Locale); err != nil {
		return err
	}

	geo := pools.Geolocation
	if err := (proto.EmulationSetGeolocationOverride{
		Latitude:  &geo.Latitude,
		Longitude: &geo.Longitude,
		Accuracy:  &geo.Accuracy,
	}).Call(page); err != nil {
		return fmt.Errorf("geolocation override: %w", err)
	}

	if u, err := url.Parse(rawURL); err == nil && u.Host != "" {
		grant := proto.BrowserGrantPermissions{
			Permissions: []proto.BrowserPermissionType{proto.BrowserPermissionTypeGeolocation},
			Origin:      u.Scheme + "://" + u.Host,
		}
		if err := grant.Call(sess.browser); err != nil {
			log.Debug().Err(err).Msg("Geolocation grant failed")
		}
	}

	if _, err := page.EvalOnNewDocument(humanStealthJS); err != nil {
		return fmt.Errorf("install stealth script: %w", err)
	}
	return nil
}

// interact moves the mouse a few times and scrolls part of the page
func (h *HumanBrowser) interact(ctx context.Context, page *rod.Page, vp profile.Viewport) error {
	s := h.opts.Sampler
	for _, p := range mousePath(s, vp, s.IntBetween(2, 5)) {
		if err := page.Mouse.MoveLinear(p, s.IntBetween(3, 8)); err != nil {
			return fmt.Errorf("mouse move: %w", err)
		}
		if err := settle(ctx, s, h.sleep, 100*time.Millisecond, 300*time.Millisecond); err != nil {
			return err
		}
	}

	if _, err := page.Eval(smoothScrollJS(200, 300, 80, 130)); err != nil {
		return fmt.Errorf("scroll: %w", err)
	}
	return nil
}

// mousePath returns n points at least 100px inside the viewport edges
func mousePath(s *profile.Sampler, vp profile.Viewport, n int) []proto.Point {
	points := make([]proto.Point, n)
	for i := range points {
		points[i] = proto.Point{
			X: float64(s.IntBetween(100, max(100, vp.Width-100))),
			Y: float64(s.IntBetween(100, max(100, vp.Height-100))),
		}
	}
	return points
}
