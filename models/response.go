package models

// PriceCheckResponse is the result record for POST /api/v1/price-check,
// also delivered to callbacks and printed by the CLI.
type PriceCheckResponse struct {
	// URL is the page that was checked.
	URL string `json:"url"`

	// NormalizedPrices holds each distinct price in first-seen order. It is
	// an empty array, never null, when nothing was found.
	NormalizedPrices []float64 `json:"normalizedPrices"`

	// UsedHeadless is true when the recorded mode was the headless one.
	UsedHeadless bool `json:"usedHeadless"`

	// MatchPrice is the canonical target, or null when none was supplied.
	MatchPrice *float64 `json:"matchPrice"`

	// Found reports whether MatchPrice is among NormalizedPrices.
	Found bool `json:"found"`

	// Accepted is false when every mode was blocked or unavailable.
	Accepted bool `json:"accepted"`

	// Attempts lists one entry per mode tried, in order.
	Attempts []AttemptReport `json:"attempts"`

	Timing TimingInfo `json:"timing"`

	// Error is populated only on failure responses.
	Error *ErrorDetail `json:"error,omitempty"`
}

// AttemptReport describes one rung of the fallback ladder.
type AttemptReport struct {
	Mode       string   `json:"mode"`   // "headless" or "headed"
	Status     string   `json:"status"` // "accepted", "blocked" or "unavailable"
	Signals    []string `json:"signals,omitempty"`
	PriceCount int      `json:"priceCount"`
	HTMLBytes  int      `json:"htmlBytes"`
	Error      string   `json:"error,omitempty"`
	DurationMs int64    `json:"durationMs"`
}

// TimingInfo breaks down the time spent in each phase.
type TimingInfo struct {
	// TotalMs is the end-to-end duration in milliseconds.
	TotalMs int64 `json:"totalMs"`

	// QueueMs is the time spent waiting for a free browser slot.
	QueueMs int64 `json:"queueMs"`

	// BrowserMs is the time spent across all browser sessions.
	BrowserMs int64 `json:"browserMs"`
}

// HealthResponse is the response for GET /api/v1/health.
type HealthResponse struct {
	Status       string       `json:"status"` // "healthy" or "busy"
	Uptime       string       `json:"uptime"`
	CheckerStats CheckerStats `json:"checker_stats"`
	SessionStats SessionStats `json:"session_stats"`
	Version      string       `json:"version"`
}

// CheckerStats reports price check activity since startup.
type CheckerStats struct {
	MaxRuns      int   `json:"max_runs"`
	InFlight     int   `json:"in_flight"`
	Runs         int64 `json:"runs"`
	Headless     int64 `json:"headless"`
	Headed       int64 `json:"headed"`
	Inaccessible int64 `json:"inaccessible"`
}

// SessionStats reports browser session activity.
type SessionStats struct {
	ActiveSessions int   `json:"active_sessions"`
	Launched       int64 `json:"launched"`
}

// ErrorResponse is returned by middleware that rejects a request before it
// reaches a handler.
type ErrorResponse struct {
	Error *ErrorDetail `json:"error"`
}
