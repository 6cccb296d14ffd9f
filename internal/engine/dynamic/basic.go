// internal/engine/dynamic/basic.go
package dynamic

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	cdppage "github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog/log"

	"github.com/law-makers/scholarfetch/internal/engine"
	"github.com/law-makers/scholarfetch/internal/reqctx"
	"github.com/law-makers/scholarfetch/internal/workpool"
	"github.com/law-makers/scholarfetch/pkg/models"
)

const (
	// BasicTimeout bounds navigation for the basic browser strategy
	BasicTimeout = 25 * time.Second

	basicTimezone = "America/New_York"
)

// BasicBrowser renders the page in headless Chrome with a thin stealth layer
type BasicBrowser struct {
	opts  Options
	sleep sleeper
}

// NewBasicBrowser creates the basic browser strategy
func NewBasicBrowser(opts Options) *BasicBrowser {
	return &BasicBrowser{
		opts:  opts.withDefaults("browser", BasicTimeout),
		sleep: defaultSleep,
	}
}

func (b *BasicBrowser) ID() models.StrategyID {
	return models.StrategyBrowserBasic
}

// Attempt renders rawURL once
func (b *BasicBrowser) Attempt(ctx context.Context, rawURL string) (*engine.Response, error) {
	bin, err := locate(b.opts.ChromePath)
	if err != nil {
		return nil, err
	}

	return workpool.Submit(ctx, b.opts.Pool, func(ctx context.Context) (*engine.Response, error) {
		return b.render(ctx, bin, rawURL)
	})
}

func (b *BasicBrowser) allocatorOptions(bin, ua string, w, h int) []chromedp.ExecAllocatorOption {
	opts := []chromedp.ExecAllocatorOption{
		chromedp.ExecPath(bin),
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.Flag("headless", b.opts.Headless),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-background-networking", true),
		chromedp.Flag("disable-breakpad", true),
		chromedp.Flag("disable-default-apps", true),
		chromedp.Flag("disable-hang-monitor", true),
		chromedp.Flag("disable-sync", true),
		chromedp.Flag("disable-translate", true),
		chromedp.Flag("metrics-recording-only", true),
		chromedp.Flag("mute-audio", true),
		chromedp.WindowSize(w, h),
		chromedp.UserAgent(ua),
	}
	if server := proxyServer(b.opts.Proxies); server != "" {
		opts = append(opts, chromedp.ProxyServer(server))
	}
	return opts
}

func (b *BasicBrowser) render(ctx context.Context, bin, rawURL string) (*engine.Response, error) {
	start := time.Now()
	rc := reqctx.GetRequestContext(ctx)

	ua := b.opts.Sampler.ChromiumUserAgent()
	vp := b.opts.Sampler.Viewport()

	ctx, cancel := context.WithTimeout(ctx, b.opts.Timeout)
	defer cancel()

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, b.allocatorOptions(bin, ua, vp.Width, vp.Height)...)
	defer allocCancel()

	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	defer browserCancel()

	// The listener runs on chromedp's goroutine
	docs := newDocStatus("")
	chromedp.ListenTarget(browserCtx, func(ev interface{}) {
		if ev, ok := ev.(*network.EventResponseReceived); ok && ev.Type == network.ResourceTypeDocument {
			docs.record(string(ev.FrameID), int(ev.Response.Status))
		}
	})

	log.Debug().
		Str("request_id", rc.RequestID).
		Str("url", rawURL).
		Str("chrome", bin).
		Int("width", vp.Width).
		Int("height", vp.Height).
		Msg("Launching browser")

	err := chromedp.Run(browserCtx,
		network.Enable(),
		chromedp.ActionFunc(func(ctx context.Context) error {
			_, err := cdppage.AddScriptToEvaluateOnNewDocument(basicStealthJS).Do(ctx)
			return err
		}),
		emulation.SetTimezoneOverride(basicTimezone),
		emulation.SetLocaleOverride().WithLocale(b.opts.Sampler.Pools().Locale),
		chromedp.EmulateViewport(int64(vp.Width), int64(vp.Height)),
		chromedp.Navigate(rawURL),
	)
	if err != nil {
		return nil, engine.RenderingEngineFailure(fmt.Errorf("navigate: %w", err)).WithStrategy(b.ID())
	}

	code := docs.Status()
	if code != 0 && b.opts.Classifier.IsBlockStatus(code) {
		return nil, engine.BlockedByStatus(code).WithStrategy(b.ID())
	}

	if err := settle(ctx, b.opts.Sampler, b.sleep, 500*time.Millisecond, 1500*time.Millisecond); err != nil {
		return nil, engine.RenderingEngineFailure(err).WithStrategy(b.ID())
	}

	var body, finalURL string
	if err := chromedp.Run(browserCtx,
		chromedp.OuterHTML("html", &body, chromedp.ByQuery),
		chromedp.Location(&finalURL),
	); err != nil {
		return nil, engine.RenderingEngineFailure(fmt.Errorf("read document: %w", err)).WithStrategy(b.ID())
	}

	if ferr := verifyRendered(b.opts.Classifier, code, body); ferr != nil {
		return nil, ferr.WithStrategy(b.ID())
	}

	if code == 0 {
		code = 200
	}

	log.Debug().
		Str("request_id", rc.RequestID).
		Str("url", rawURL).
		Int("status", code).
		Int("length", len(body)).
		Dur("elapsed", time.Since(start)).
		Msg("Browser render complete")

	return &engine.Response{StatusCode: code, Body: body, FinalURL: finalURL}, nil
}
