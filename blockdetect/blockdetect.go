// Package blockdetect decides whether fetched page HTML is a block or
// challenge page rather than usable content.
package blockdetect

import "strings"

// Signal names one family of block markers.
type Signal string

const (
	SignalCDNChallenge      Signal = "cdn_challenge"
	SignalAttentionRequired Signal = "attention_required"
	SignalCaptcha           Signal = "captcha"
	SignalAccessDenied      Signal = "access_denied"
)

// rule pairs a signal with the lower-case markers that fire it.
type rule struct {
	signal  Signal
	markers []string
}

var rules = []rule{
	{SignalCDNChallenge, []string{"cloudflare"}},
	{SignalAttentionRequired, []string{"attention required"}},
	{SignalCaptcha, []string{"captcha"}},
	{SignalAccessDenied, []string{
		"access denied",
		"you don't have permission",
		"error 401",
		"error 403",
		"not authorized",
	}},
}

// Verdict is the outcome of Detect.
type Verdict struct {
	// Blocked is true only when no price was extracted and a signal fired.
	Blocked bool

	// Signals lists every signal that fired, in rule order, even when price
	// evidence overrode them.
	Signals []Signal
}

// Detect classifies a page. Any extracted price makes the page accessible
// regardless of markers; a page with no prices and no markers is also
// accessible.
func Detect(rawHTML string, priceCount int) Verdict {
	signals := Signals(rawHTML)
	return Verdict{
		Blocked: priceCount == 0 && len(signals) > 0,
		Signals: signals,
	}
}

// Signals returns the signals whose markers occur in the lower-cased HTML.
func Signals(rawHTML string) []Signal {
	lower := strings.ToLower(rawHTML)
	var fired []Signal
	for _, r := range rules {
		for _, m := range r.markers {
			if strings.Contains(lower, m) {
				fired = append(fired, r.signal)
				break
			}
		}
	}
	return fired
}

// Strings converts signals for logging and JSON output.
func Strings(signals []Signal) []string {
	out := make([]string, len(signals))
	for i, s := range signals {
		out[i] = string(s)
	}
	return out
}
