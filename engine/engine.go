package engine

import (
	"context"
	"errors"
	"time"
)

// Mode is the browser visibility used for one attempt.
type Mode int

const (
	// Headless runs Chromium without a window.
	Headless Mode = iota
	// Headed runs a real window positioned off-screen.
	Headed
)

func (m Mode) String() string {
	switch m {
	case Headless:
		return "headless"
	case Headed:
		return "headed"
	default:
		return "unknown"
	}
}

// Modes is the fallback ladder, tried in this order, each at most once.
var Modes = []Mode{Headless, Headed}

// ErrModeUnavailable marks a failed session attempt (launch failure, missing
// display, navigation timeout). The ladder recovers from it by moving on.
var ErrModeUnavailable = errors.New("engine: mode unavailable")

// Driver runs one complete browser session for the given mode and returns
// what the page showed. Implementations release every browser resource
// before returning, on success and on failure.
type Driver interface {
	Probe(ctx context.Context, url string, mode Mode) (*PageProbe, error)
}

// DriverFunc adapts a function to the Driver interface.
type DriverFunc func(ctx context.Context, url string, mode Mode) (*PageProbe, error)

func (f DriverFunc) Probe(ctx context.Context, url string, mode Mode) (*PageProbe, error) {
	return f(ctx, url, mode)
}

// PageProbe is the output of one navigation attempt.
type PageProbe struct {
	RawHTML string
	Prices  []string
}

// AttemptStatus is how a single mode attempt ended.
type AttemptStatus string

const (
	StatusAccepted    AttemptStatus = "accepted"
	StatusBlocked     AttemptStatus = "blocked"
	StatusUnavailable AttemptStatus = "unavailable"
)

// Attempt records one rung of the ladder.
type Attempt struct {
	Mode       Mode
	Status     AttemptStatus
	Signals    []string
	PriceCount int
	HTMLBytes  int
	Err        error
	Duration   time.Duration
}
