package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/use-agent/priceprobe/checker"
	"github.com/use-agent/priceprobe/config"
	"github.com/use-agent/priceprobe/engine"
	"github.com/use-agent/priceprobe/models"
	"github.com/use-agent/priceprobe/pricescan"
)

type fakeDriver struct {
	pages map[engine.Mode]string
	calls int
}

func (d *fakeDriver) Probe(_ context.Context, _ string, mode engine.Mode) (*engine.PageProbe, error) {
	d.calls++
	raw, ok := d.pages[mode]
	if !ok {
		return nil, errors.New("launch failed")
	}
	seq, err := pricescan.NewPattern("£").ScanHTML(raw)
	if err != nil {
		return nil, err
	}
	return &engine.PageProbe{RawHTML: raw, Prices: slices.Collect(seq)}, nil
}

func run(t *testing.T, d *fakeDriver, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd(func(*config.Config) engine.Driver { return d })
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append(args, "--log-level", "error"))
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), err
}

func decodeReport(t *testing.T, out string) models.PriceCheckResponse {
	t.Helper()
	var rep models.PriceCheckResponse
	require.NoError(t, json.Unmarshal([]byte(out), &rep))
	return rep
}

var productPage = map[engine.Mode]string{
	engine.Headless: `<html><body><h1>Kettle</h1><span class="now">£49.99</span><s>£59.99</s></body></html>`,
}

func TestCheck_StrictMatch(t *testing.T) {
	d := &fakeDriver{pages: productPage}

	out, err := run(t, d, "check", "--url", "https://shop.example/kettle", "--price", "£49.99")
	require.NoError(t, err)

	rep := decodeReport(t, out)
	assert.True(t, rep.Found)
	assert.True(t, rep.UsedHeadless)
	assert.Equal(t, []float64{49.99, 59.99}, rep.NormalizedPrices)
}

func TestCheck_StrictRequiresPrice(t *testing.T) {
	d := &fakeDriver{pages: productPage}

	_, err := run(t, d, "check", "--url", "https://shop.example/kettle")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "target price is required")
	assert.Zero(t, d.calls)
}

func TestCheck_StrictNoMatch(t *testing.T) {
	d := &fakeDriver{pages: productPage}

	out, err := run(t, d, "check", "--url", "https://shop.example/kettle", "--price", "45")
	assert.ErrorIs(t, err, errNoMatch)
	assert.False(t, decodeReport(t, out).Found)
}

func TestCheck_StrictNoPrices(t *testing.T) {
	d := &fakeDriver{pages: map[engine.Mode]string{
		engine.Headless: `<html><body>Currently unavailable</body></html>`,
	}}

	_, err := run(t, d, "check", "--url", "https://shop.example/kettle", "--price", "45")
	assert.ErrorIs(t, err, errNoPrices)
}

func TestCheck_StrictNothingLaunches(t *testing.T) {
	d := &fakeDriver{}

	_, err := run(t, d, "check", "--url", "https://shop.example/kettle", "--price", "45")
	assert.ErrorIs(t, err, checker.ErrNotAccessible)
	assert.Equal(t, 2, d.calls)
}

func TestCheck_LenientNothingLaunches(t *testing.T) {
	d := &fakeDriver{}

	out, err := run(t, d, "check", "--url", "https://shop.example/kettle", "--lenient")
	require.NoError(t, err)

	rep := decodeReport(t, out)
	assert.Empty(t, rep.NormalizedPrices)
	assert.False(t, rep.Found)
	assert.False(t, rep.Accepted)
}

func TestCheck_EnvFallbacks(t *testing.T) {
	t.Setenv("TARGET_URL", "https://shop.example/kettle")
	t.Setenv("MATCH_PRICE", "£59.99")
	d := &fakeDriver{pages: productPage}

	out, err := run(t, d, "check")
	require.NoError(t, err)
	assert.True(t, decodeReport(t, out).Found)
}

func TestScan_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "page.html")
	page := `<html><body>
		<div style="display:none">£1.00</div>
		<p>Only £5 today</p>
		<span>£1,299.00</span>
	</body></html>`
	require.NoError(t, os.WriteFile(path, []byte(page), 0o644))

	out, err := run(t, &fakeDriver{}, "scan", path, "--price", "£1299")
	require.NoError(t, err)

	var rep scanReport
	require.NoError(t, json.Unmarshal([]byte(out), &rep))
	assert.Equal(t, []string{"1299.00"}, rep.RawPrices)
	assert.Equal(t, []float64{1299}, rep.NormalizedPrices)
	assert.False(t, rep.Blocked)
	assert.True(t, rep.Found)
}

func TestScan_BlockedPage(t *testing.T) {
	cmd := newRootCmd(func(*config.Config) engine.Driver { return &fakeDriver{} })
	var stdout bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader(`<html><title>Attention Required! | Cloudflare</title></html>`))
	cmd.SetArgs([]string{"scan", "-"})
	require.NoError(t, cmd.Execute())

	var rep scanReport
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &rep))
	assert.True(t, rep.Blocked)
	assert.Equal(t, []string{"cdn_challenge", "attention_required"}, rep.Signals)
	assert.Empty(t, rep.RawPrices)
	assert.Nil(t, rep.MatchPrice)
}

func TestScan_MissingFile(t *testing.T) {
	_, err := run(t, &fakeDriver{}, "scan", filepath.Join(t.TempDir(), "nope.html"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
