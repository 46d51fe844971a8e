package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Browser   BrowserConfig
	Probe     ProbeConfig
	Checker   CheckerConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Webhook   WebhookConfig
	Log       LogConfig
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string // default: "0.0.0.0"
	Port int    // default: 8080
	Mode string // "debug", "release", "test"; default: "release"
}

// BrowserConfig controls how each per-attempt Chromium process is launched.
type BrowserConfig struct {
	// BrowserBin overrides the Chromium binary path.
	BrowserBin string

	// Proxy is passed to Chromium as --proxy-server.
	Proxy string

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool // default: false

	// Display overrides DISPLAY for the headed attempt (e.g. ":99" under Xvfb).
	Display string

	// Stealth additionally injects the go-rod/stealth evasion script.
	Stealth bool // default: false

	// BlockedResourceTypes lists resource types to block. Stylesheets are
	// never blocked since they decide computed visibility.
	// default: ["Image", "Font", "Media"]
	BlockedResourceTypes []string
}

// ProbeConfig controls a single navigation attempt and the price pattern.
type ProbeConfig struct {
	// NavigationTimeout bounds navigation up to DOMContentLoaded.
	NavigationTimeout time.Duration // default: 60s

	// UserAgent is the identity presented by the browsing context.
	UserAgent string

	// Locale is applied to the browsing context and Accept-Language.
	Locale string // default: "en-GB"

	// ViewportWidth and ViewportHeight size the emulated desktop window.
	ViewportWidth  int // default: 1280
	ViewportHeight int // default: 800

	// CurrencySymbol is the single symbol recognised by the price pattern.
	CurrencySymbol string // default: "£"
}

// CheckerConfig bounds concurrent price checks.
type CheckerConfig struct {
	// MaxRuns is the number of checks allowed to hold a browser at once.
	MaxRuns int // default: 1
}

// AuthConfig controls API key authentication.
type AuthConfig struct {
	// Enabled toggles API key authentication.
	Enabled bool // default: true

	// APIKeys is the list of valid API keys.
	APIKeys []string
}

// RateLimitConfig controls per-key rate limiting.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate per API key.
	RequestsPerSecond float64 // default: 1

	// Burst is the maximum burst size per API key.
	Burst int // default: 3
}

// WebhookConfig controls result callbacks.
type WebhookConfig struct {
	// Secret signs callback bodies with HMAC-SHA256 when non-empty.
	Secret string
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "json"
}

// DefaultUserAgent is the desktop Chrome identity presented to target sites.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/114.0.0.0 Safari/537.36"

// Load reads configuration from environment variables with sane defaults.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Host: envOr("PRICEPROBE_HOST", "0.0.0.0"),
			Port: envIntOr("PRICEPROBE_PORT", 8080),
			Mode: envOr("PRICEPROBE_MODE", "release"),
		},
		Browser: BrowserConfig{
			BrowserBin: os.Getenv("PRICEPROBE_BROWSER_BIN"),
			Proxy:      os.Getenv("PRICEPROBE_PROXY"),
			NoSandbox:  envBoolOr("PRICEPROBE_NO_SANDBOX", false),
			Display:    os.Getenv("PRICEPROBE_DISPLAY"),
			Stealth:    envBoolOr("PRICEPROBE_STEALTH", false),
			BlockedResourceTypes: envSliceOr("PRICEPROBE_BLOCKED_RESOURCES", []string{
				"Image", "Font", "Media",
			}),
		},
		Probe: ProbeConfig{
			NavigationTimeout: envDurationOr("PRICEPROBE_NAV_TIMEOUT", 60*time.Second),
			UserAgent:         envOr("PRICEPROBE_USER_AGENT", DefaultUserAgent),
			Locale:            envOr("PRICEPROBE_LOCALE", "en-GB"),
			ViewportWidth:     envIntOr("PRICEPROBE_VIEWPORT_WIDTH", 1280),
			ViewportHeight:    envIntOr("PRICEPROBE_VIEWPORT_HEIGHT", 800),
			CurrencySymbol:    envOr("PRICEPROBE_CURRENCY_SYMBOL", "£"),
		},
		Checker: CheckerConfig{
			MaxRuns: envIntOr("PRICEPROBE_MAX_RUNS", 1),
		},
		Auth: AuthConfig{
			Enabled: envBoolOr("PRICEPROBE_AUTH_ENABLED", true),
			APIKeys: envSliceOr("PRICEPROBE_API_KEYS", nil),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: envFloatOr("PRICEPROBE_RATE_RPS", 1.0),
			Burst:             envIntOr("PRICEPROBE_RATE_BURST", 3),
		},
		Webhook: WebhookConfig{
			Secret: os.Getenv("PRICEPROBE_WEBHOOK_SECRET"),
		},
		Log: LogConfig{
			Level:  envOr("PRICEPROBE_LOG_LEVEL", "info"),
			Format: envOr("PRICEPROBE_LOG_FORMAT", "json"),
		},
	}
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}

// envSliceOr splits a comma-separated value. An explicitly empty list can be
// configured with a lone comma (",").
func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}
