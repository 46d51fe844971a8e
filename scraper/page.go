package scraper

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/use-agent/priceprobe/engine"
	"github.com/use-agent/priceprobe/models"
	"github.com/use-agent/priceprobe/pricescan"
)

// webdriverPatch runs before any page script and hides the automation flag.
const webdriverPatch = `Object.defineProperty(navigator, 'webdriver', { get: () => false });`

// Probe runs one complete browser session for url in the given mode.
//
// Lifecycle (numbered steps match the inline comments):
//
//  1. Launch            – fresh Chromium process for this attempt only
//  2. Connect           – CDP connection bound to the caller's context
//  3. Isolated context  – incognito browser context + one page
//  4. Identity          – user agent, Accept-Language, locale, viewport
//  5. Init patches      – webdriver flag (+ optional stealth), before navigation!
//  6. Hijack mount      – drop images/fonts/media, before navigation!
//  7. Navigate          – wait for DOMContentLoaded only, hard timeout
//  8. Extract           – page.HTML() + in-page price scan
//
// Every acquired resource is released by a defer, so page, context, browser
// and process are gone when Probe returns, whatever the outcome.
func (s *Scraper) Probe(ctx context.Context, url string, mode engine.Mode) (*engine.PageProbe, error) {
	s.activeSessions.Add(1)
	defer s.activeSessions.Add(-1)

	// ── 1. Launch ─────────────────────────────────────────────────────
	l := s.newLauncher(mode).Context(ctx)
	controlURL, err := l.Launch()
	if err != nil {
		return nil, models.NewScrapeError(
			models.ErrCodeBrowserCrash,
			"failed to launch "+mode.String()+" browser",
			err,
		)
	}
	s.launched.Add(1)
	defer func() {
		l.Kill()
		l.Cleanup()
	}()
	slog.Debug("browser launched", "mode", mode.String(), "controlURL", controlURL)

	// ── 2. Connect ────────────────────────────────────────────────────
	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		return nil, models.NewScrapeError(
			models.ErrCodeBrowserCrash,
			"failed to connect to browser",
			err,
		)
	}
	defer func() {
		if closeErr := browser.Close(); closeErr != nil {
			slog.Debug("cleanup: browser close failed", "error", closeErr)
		}
	}()

	// ── 3. Isolated context + page ────────────────────────────────────
	incognito, err := browser.Incognito()
	if err != nil {
		return nil, models.NewScrapeError(
			models.ErrCodeBrowserCrash,
			"failed to create browser context",
			err,
		)
	}
	defer func() { _ = incognito.Close() }()

	page, err := incognito.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, models.NewScrapeError(
			models.ErrCodeBrowserCrash,
			"failed to create page",
			err,
		)
	}
	defer func() { _ = page.Close() }()

	// ── 4. Identity ───────────────────────────────────────────────────
	if err := s.applyIdentity(page); err != nil {
		return nil, models.NewScrapeError(
			models.ErrCodeBrowserCrash,
			"failed to configure browsing context",
			err,
		)
	}

	// ── 5. Init patches ───────────────────────────────────────────────
	if _, err := page.EvalOnNewDocument(webdriverPatch); err != nil {
		return nil, models.NewScrapeError(
			models.ErrCodeBrowserCrash,
			"failed to install webdriver patch",
			err,
		)
	}
	if s.browserCfg.Stealth {
		if _, evalErr := page.EvalOnNewDocument(stealth.JS); evalErr != nil {
			slog.Warn("stealth injection failed, proceeding without stealth",
				"error", evalErr,
			)
		}
	}

	// ── 6. Mount hijack router ────────────────────────────────────────
	if router := setupHijack(page, s.browserCfg.BlockedResourceTypes); router != nil {
		defer func() { _ = router.Stop() }()
	}

	// ── 7. Navigate ───────────────────────────────────────────────────
	navCtx, cancel := context.WithTimeout(ctx, s.probeCfg.NavigationTimeout)
	defer cancel()

	nav := page.Context(navCtx)
	waitDOM := nav.WaitNavigation(proto.PageLifecycleEventNameDOMContentLoaded)
	if err := nav.Navigate(url); err != nil {
		return nil, categorizeError(err, "navigation to target URL failed")
	}
	waitDOM()
	if err := navCtx.Err(); err != nil {
		return nil, categorizeError(err, "timed out waiting for DOMContentLoaded")
	}

	// ── 8. Extract ────────────────────────────────────────────────────
	p := page.Context(ctx)
	rawHTML, err := p.HTML()
	if err != nil {
		return nil, categorizeError(err, "failed to extract page HTML")
	}

	res, err := p.Eval(pricescan.Script, s.pattern.Symbol())
	if err != nil {
		return nil, categorizeError(err, "price scan failed")
	}
	prices := slices.Collect(pricescan.FromJSON(res.Value))

	slog.Debug("page probed", "mode", mode.String(), "url", url,
		"htmlBytes", len(rawHTML), "prices", len(prices))

	return &engine.PageProbe{RawHTML: rawHTML, Prices: prices}, nil
}

// applyIdentity presents a realistic desktop browser: fixed user agent,
// matching Accept-Language, locale and viewport.
func (s *Scraper) applyIdentity(page *rod.Page) error {
	cfg := s.probeCfg
	if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
		UserAgent:      cfg.UserAgent,
		AcceptLanguage: cfg.Locale,
	}); err != nil {
		return err
	}
	if err := (proto.EmulationSetLocaleOverride{
		Locale: icuLocale(cfg.Locale),
	}).Call(page); err != nil {
		return err
	}
	return page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             cfg.ViewportWidth,
		Height:            cfg.ViewportHeight,
		DeviceScaleFactor: 1,
		Mobile:            false,
	})
}

// icuLocale converts a BCP 47 tag ("en-GB") to the ICU form CDP expects ("en_GB").
func icuLocale(tag string) string {
	return strings.ReplaceAll(tag, "-", "_")
}

// categorizeError wraps raw errors into typed ScrapeErrors so the caller can
// tell timeouts from navigation failures.
func categorizeError(err error, msg string) *models.ScrapeError {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return models.NewScrapeError(models.ErrCodeTimeout, msg, err)
	case errors.Is(err, context.Canceled):
		return models.NewScrapeError(models.ErrCodeTimeout, "request canceled", err)
	default:
		return models.NewScrapeError(models.ErrCodeNavigation, msg, err)
	}
}
