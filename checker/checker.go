// Package checker is the single entry point for a price check. The HTTP API,
// the CLI harness and the MCP server all go through Check and differ only in
// the Policy they pass.
package checker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"slices"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/use-agent/priceprobe/engine"
	"github.com/use-agent/priceprobe/models"
	"github.com/use-agent/priceprobe/pricing"
)

// Policy decides what a check returns when no mode produced a usable page.
type Policy int

const (
	// Lenient returns an empty outcome with found=false.
	Lenient Policy = iota
	// Strict fails with ErrNotAccessible.
	Strict
)

// ErrNotAccessible is returned under the Strict policy when every mode was
// blocked or unavailable.
var ErrNotAccessible = errors.New("checker: page not accessible")

// Request identifies the page and the optional target price.
type Request struct {
	URL   string
	Price string
}

// Outcome is the result of one check.
type Outcome struct {
	URL string

	// Prices is the normalised, de-duplicated price list. Never nil.
	Prices []float64

	UsedMode engine.Mode
	Accepted bool

	// Target is the canonical target price, nil when none was supplied.
	Target *float64
	Found  bool

	Attempts []engine.Attempt

	QueueWait time.Duration
	Total     time.Duration
}

// Checker runs price checks against a Driver, at most maxRuns at a time.
type Checker struct {
	ladder  *engine.Ladder
	symbol  string
	sem     *semaphore.Weighted
	maxRuns int

	inFlight     atomic.Int32
	runs         atomic.Int64
	headless     atomic.Int64
	headed       atomic.Int64
	inaccessible atomic.Int64
}

// New creates a Checker. maxRuns below 1 is treated as 1.
func New(driver engine.Driver, symbol string, maxRuns int) *Checker {
	if maxRuns < 1 {
		maxRuns = 1
	}
	return &Checker{
		ladder:  engine.NewLadder(driver),
		symbol:  symbol,
		sem:     semaphore.NewWeighted(int64(maxRuns)),
		maxRuns: maxRuns,
	}
}

// Check validates req, walks the fallback ladder and normalises what the
// accepted page showed.
//
// Input problems are reported as a *models.ScrapeError with code
// INVALID_INPUT before any browser is launched. Under Strict, an inaccessible
// page yields a PAGE_NOT_ACCESSIBLE error wrapping ErrNotAccessible; the
// outcome is returned alongside it so callers can still report the attempts.
func (c *Checker) Check(ctx context.Context, req Request, policy Policy) (*Outcome, error) {
	start := time.Now()

	if err := validateURL(req.URL); err != nil {
		return nil, models.NewScrapeError(models.ErrCodeInvalidInput, err.Error(), err)
	}
	target, err := pricing.ParseTarget(req.Price, c.symbol)
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeInvalidInput, err.Error(), err)
	}

	if err := c.sem.Acquire(ctx, 1); err != nil {
		return nil, models.NewScrapeError(models.ErrCodeTimeout,
			"gave up waiting for a free browser slot", err)
	}
	defer c.sem.Release(1)
	queueWait := time.Since(start)

	c.inFlight.Add(1)
	defer c.inFlight.Add(-1)
	c.runs.Add(1)

	res, err := c.ladder.Run(ctx, req.URL)
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeTimeout, "price check interrupted", err)
	}

	out := &Outcome{
		URL:       req.URL,
		Prices:    []float64{},
		UsedMode:  res.Mode,
		Accepted:  res.Accepted,
		Target:    target,
		Attempts:  res.Attempts,
		QueueWait: queueWait,
	}

	if res.Accepted {
		out.Prices = pricing.Normalize(slices.Values(res.Probe.Prices), c.symbol)
		out.Found = pricing.Found(target, out.Prices)
		c.countMode(res.Mode)
	} else {
		c.inaccessible.Add(1)
	}
	out.Total = time.Since(start)

	slog.Info("price check finished",
		"url", req.URL,
		"mode", out.UsedMode.String(),
		"accepted", out.Accepted,
		"prices", len(out.Prices),
		"found", out.Found,
		"totalMs", out.Total.Milliseconds(),
	)

	if !res.Accepted && policy == Strict {
		return out, models.NewScrapeError(models.ErrCodeNotAccessible,
			"page blocked or unavailable in every browser mode", ErrNotAccessible)
	}
	return out, nil
}

func (c *Checker) countMode(m engine.Mode) {
	switch m {
	case engine.Headless:
		c.headless.Add(1)
	case engine.Headed:
		c.headed.Add(1)
	}
}

// Stats returns a snapshot of check activity.
func (c *Checker) Stats() models.CheckerStats {
	return models.CheckerStats{
		MaxRuns:      c.maxRuns,
		InFlight:     int(c.inFlight.Load()),
		Runs:         c.runs.Load(),
		Headless:     c.headless.Load(),
		Headed:       c.headed.Load(),
		Inaccessible: c.inaccessible.Load(),
	}
}

func validateURL(raw string) error {
	if raw == "" {
		return errors.New("checker: url is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("checker: parse url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("checker: url scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("checker: url has no host")
	}
	return nil
}
