package scraper

import (
	"os"
	"sync/atomic"

	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/use-agent/priceprobe/config"
	"github.com/use-agent/priceprobe/engine"
	"github.com/use-agent/priceprobe/models"
	"github.com/use-agent/priceprobe/pricescan"
)

// offscreenPosition keeps the headed window out of any visible screen area.
const offscreenPosition = "-32000,-32000"

// Scraper is the rod-backed engine.Driver. Unlike a pooled scraper it owns no
// long-lived browser: every Probe launches, uses and closes its own Chromium
// process. It is safe for concurrent use.
type Scraper struct {
	browserCfg config.BrowserConfig
	probeCfg   config.ProbeConfig
	pattern    *pricescan.Pattern

	activeSessions atomic.Int32
	launched       atomic.Int64
}

var _ engine.Driver = (*Scraper)(nil)

// NewScraper creates a Scraper. No browser is started until Probe is called.
func NewScraper(browserCfg config.BrowserConfig, probeCfg config.ProbeConfig) *Scraper {
	return &Scraper{
		browserCfg: browserCfg,
		probeCfg:   probeCfg,
		pattern:    pricescan.NewPattern(probeCfg.CurrencySymbol),
	}
}

// Stats returns a snapshot of browser session activity.
func (s *Scraper) Stats() models.SessionStats {
	return models.SessionStats{
		ActiveSessions: int(s.activeSessions.Load()),
		Launched:       s.launched.Load(),
	}
}

// newLauncher builds the launcher for one attempt in the given mode.
func (s *Scraper) newLauncher(mode engine.Mode) *launcher.Launcher {
	l := launcher.New().
		Headless(mode == engine.Headless).
		NoSandbox(s.browserCfg.NoSandbox)

	if s.browserCfg.BrowserBin != "" {
		l = l.Bin(s.browserCfg.BrowserBin)
	}
	if s.browserCfg.Proxy != "" {
		l = l.Proxy(s.browserCfg.Proxy)
	}

	// ── Stealth flags ────────────────────────────────────────────────
	l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	l.Delete(flags.Flag("enable-automation"))
	l.Set(flags.Flag("disable-popup-blocking"))
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("disable-extensions"))
	l.Set(flags.Flag("no-first-run"))

	if mode == engine.Headed {
		l.Set(flags.Flag("window-position"), offscreenPosition)
		if s.browserCfg.Display != "" {
			l = l.Env(append(os.Environ(), "DISPLAY="+s.browserCfg.Display)...)
		}
	}
	return l
}
