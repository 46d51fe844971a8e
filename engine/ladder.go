package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/use-agent/priceprobe/blockdetect"
)

// Ladder tries each mode in order until one yields a page that is not
// blocked. It is a strict sequence, not a race: exactly one session runs at a
// time and no mode is retried.
type Ladder struct {
	driver Driver
	modes  []Mode
}

// NewLadder creates a Ladder over the standard [Headless, Headed] sequence.
func NewLadder(driver Driver) *Ladder {
	return &Ladder{driver: driver, modes: Modes}
}

// Result is the outcome of a full ladder run.
type Result struct {
	// Probe is the accepted page, or nil when every mode was exhausted.
	Probe *PageProbe

	// Mode is the accepted mode; when nothing was accepted it is the last
	// mode attempted, whether its session completed or not. Headless is the
	// default when no attempt started.
	Mode Mode

	// Accepted reports whether some mode produced a usable page.
	Accepted bool

	Attempts []Attempt
}

// Run walks the ladder for url. The error is non-nil only when ctx ended
// before the ladder finished; the partial Result is still returned.
func (l *Ladder) Run(ctx context.Context, url string) (*Result, error) {
	res := &Result{Mode: Headless}

	for _, mode := range l.modes {
		if err := ctx.Err(); err != nil {
			return res, fmt.Errorf("engine: ladder interrupted before %s: %w", mode, err)
		}

		res.Mode = mode
		slog.Debug("attempt starting", "mode", mode.String(), "url", url)
		start := time.Now()
		probe, err := l.driver.Probe(ctx, url, mode)
		attempt := Attempt{Mode: mode, Duration: time.Since(start)}

		if err != nil {
			attempt.Status = StatusUnavailable
			attempt.Err = fmt.Errorf("%w: %s: %w", ErrModeUnavailable, mode, err)
			res.Attempts = append(res.Attempts, attempt)
			slog.Info("attempt failed, trying next mode",
				"mode", mode.String(), "url", url, "error", err)
			continue
		}

		verdict := blockdetect.Detect(probe.RawHTML, len(probe.Prices))
		attempt.Signals = blockdetect.Strings(verdict.Signals)
		attempt.PriceCount = len(probe.Prices)
		attempt.HTMLBytes = len(probe.RawHTML)

		if verdict.Blocked {
			attempt.Status = StatusBlocked
			res.Attempts = append(res.Attempts, attempt)
			slog.Info("page blocked, trying next mode",
				"mode", mode.String(), "url", url, "signals", attempt.Signals)
			continue
		}

		if len(probe.Prices) == 0 {
			slog.Warn("no prices found and no block markers, accepting page",
				"mode", mode.String(), "url", url)
		}
		attempt.Status = StatusAccepted
		res.Attempts = append(res.Attempts, attempt)
		res.Probe = probe
		res.Accepted = true
		slog.Info("page accessible", "mode", mode.String(), "url", url,
			"prices", len(probe.Prices))
		return res, nil
	}

	slog.Warn("all modes exhausted", "url", url, "lastMode", res.Mode.String())
	return res, nil
}
