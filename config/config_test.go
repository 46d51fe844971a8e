package config

import (
	"bytes"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 60*time.Second, cfg.Probe.NavigationTimeout)
	assert.Equal(t, "en-GB", cfg.Probe.Locale)
	assert.Equal(t, 1280, cfg.Probe.ViewportWidth)
	assert.Equal(t, 800, cfg.Probe.ViewportHeight)
	assert.Equal(t, "£", cfg.Probe.CurrencySymbol)
	assert.Equal(t, DefaultUserAgent, cfg.Probe.UserAgent)
	assert.Equal(t, 1, cfg.Checker.MaxRuns)
	assert.Equal(t, []string{"Image", "Font", "Media"}, cfg.Browser.BlockedResourceTypes)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PRICEPROBE_NAV_TIMEOUT", "15s")
	t.Setenv("PRICEPROBE_CURRENCY_SYMBOL", "$")
	t.Setenv("PRICEPROBE_MAX_RUNS", "4")
	t.Setenv("PRICEPROBE_STEALTH", "true")
	t.Setenv("PRICEPROBE_BLOCKED_RESOURCES", ",")
	t.Setenv("PRICEPROBE_API_KEYS", "a, b ,")

	cfg := Load()

	assert.Equal(t, 15*time.Second, cfg.Probe.NavigationTimeout)
	assert.Equal(t, "$", cfg.Probe.CurrencySymbol)
	assert.Equal(t, 4, cfg.Checker.MaxRuns)
	assert.True(t, cfg.Browser.Stealth)
	assert.Empty(t, cfg.Browser.BlockedResourceTypes)
	assert.Equal(t, []string{"a", "b"}, cfg.Auth.APIKeys)
}

func TestLoad_MalformedFallsBack(t *testing.T) {
	t.Setenv("PRICEPROBE_PORT", "eighty")
	t.Setenv("PRICEPROBE_NAV_TIMEOUT", "soon")

	cfg := Load()

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 60*time.Second, cfg.Probe.NavigationTimeout)
}

func TestLoad_NonPositiveTimeoutFallsBack(t *testing.T) {
	for _, v := range []string{"0s", "-5s"} {
		t.Setenv("PRICEPROBE_NAV_TIMEOUT", v)
		assert.Equal(t, 60*time.Second, Load().Probe.NavigationTimeout, v)
	}
}

func TestInitLogger(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	InitLogger(LogConfig{Level: "warn", Format: "text"}, &buf)

	slog.Info("dropped")
	slog.Warn("kept", "mode", "headed")

	assert.NotContains(t, buf.String(), "dropped")
	assert.Contains(t, buf.String(), "level=WARN msg=kept mode=headed")
}
