package dynamic

import (
	"context"
	"fmt"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/rs/zerolog/log"

	"github.com/law-makers/scholarfetch/internal/engine"
	"github.com/law-makers/scholarfetch/internal/profile"
)

// session is one launched browser with a single stealth page
type session struct {
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page
	docs     *docStatus
}

// launch starts Chrome at bin and opens a stealth page sized to vp.
// The caller must close the session.
func launch(ctx context.Context, bin string, opts Options, vp profile.Viewport, ua string) (*session, *engine.FetchError) {
	l := launcher.New().
		Context(ctx).
		Bin(bin).
		Headless(opts.Headless).
		NoSandbox(true).
		Set("disable-blink-features", "AutomationControlled").
		Set("disable-dev-shm-usage").
		Set("disable-gpu").
		Set("window-size", windowSize(vp))

	if server := proxyServer(opts.Proxies); server != "" {
		l = l.Proxy(server)
	}

	controlURL, err := l.Launch()
	if err != nil {
		l.Cleanup()
		return nil, engine.RenderingEngineFailure(fmt.Errorf("launch browser: %w", err))
	}

	s := &session{launcher: l}

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		s.close()
		return nil, engine.RenderingEngineFailure(fmt.Errorf("connect browser: %w", err))
	}
	s.browser = browser

	page, err := stealth.Page(browser)
	if err != nil {
		s.close()
		return nil, engine.RenderingEngineFailure(fmt.Errorf("open page: %w", err))
	}
	s.page = page

	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             vp.Width,
		Height:            vp.Height,
		DeviceScaleFactor: 1,
	}); err != nil {
		log.Debug().Err(err).Msg("Failed to set viewport")
	}
	if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
		UserAgent:      ua,
		AcceptLanguage: "en-US,en;q=0.9",
	}); err != nil {
		log.Debug().Err(err).Msg("Failed to set user agent")
	}

	s.docs = newDocStatus(string(page.FrameID))
	wait := page.EachEvent(func(e *proto.NetworkResponseReceived) {
		s.docs.observe(e)
	})
	go wait()

	return s, nil
}

// Status returns the latest main document status, 0 if none was seen
func (s *session) Status() int {
	return s.docs.Status()
}

func (s *session) close() {
	if s.browser != nil {
		if err := s.browser.Close(); err != nil {
			log.Debug().Err(err).Msg("Browser close failed")
		}
	}
	s.launcher.Kill()
	s.launcher.Cleanup()
}

// emulate applies timezone and locale overrides to the page
func emulate(page *rod.Page, timezone, locale string) error {
	if err := (proto.EmulationSetTimezoneOverride{TimezoneID: timezone}).Call(page); err != nil {
		return fmt.Errorf("timezone override: %w", err)
	}
	if err := (proto.EmulationSetLocaleOverride{Locale: locale}).Call(page); err != nil {
		return fmt.Errorf("locale override: %w", err)
	}
	return nil
}
