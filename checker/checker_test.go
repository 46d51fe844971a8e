package checker

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/use-agent/priceprobe/engine"
	"github.com/use-agent/priceprobe/models"
	"github.com/use-agent/priceprobe/pricescan"
)

const productURL = "https://shop.example/product/42"

// staticDriver renders nothing: it scans the HTML configured for each mode
// with the static scanner. A missing mode fails to launch.
func staticDriver(t *testing.T, pages map[engine.Mode]string, calls *int32) engine.Driver {
	t.Helper()
	pattern := pricescan.NewPattern("£")
	return engine.DriverFunc(func(_ context.Context, _ string, mode engine.Mode) (*engine.PageProbe, error) {
		if calls != nil {
			atomic.AddInt32(calls, 1)
		}
		raw, ok := pages[mode]
		if !ok {
			return nil, errors.New("chromium: exec: no such file")
		}
		seq, err := pattern.ScanHTML(raw)
		if err != nil {
			return nil, err
		}
		return &engine.PageProbe{RawHTML: raw, Prices: slices.Collect(seq)}, nil
	})
}

func TestCheck_HeadlessPageWithPrice(t *testing.T) {
	c := New(staticDriver(t, map[engine.Mode]string{
		engine.Headless: `<html><body><span>£199.99</span></body></html>`,
	}, nil), "£", 1)

	out, err := c.Check(context.Background(), Request{URL: productURL}, Lenient)
	require.NoError(t, err)

	rep := out.Report()
	assert.True(t, rep.UsedHeadless)
	assert.Equal(t, []float64{199.99}, rep.NormalizedPrices)
	assert.Nil(t, rep.MatchPrice)
	assert.False(t, rep.Found)
}

func TestCheck_ChallengeThenHeadedPrice(t *testing.T) {
	c := New(staticDriver(t, map[engine.Mode]string{
		engine.Headless: `<html><head><title>Just a moment...</title></head><body>cloudflare</body></html>`,
		engine.Headed:   `<html><body><div class="price">£50.00</div></body></html>`,
	}, nil), "£", 1)

	out, err := c.Check(context.Background(), Request{URL: productURL, Price: "£50"}, Lenient)
	require.NoError(t, err)

	rep := out.Report()
	assert.False(t, rep.UsedHeadless)
	assert.Equal(t, []float64{50}, rep.NormalizedPrices)
	require.NotNil(t, rep.MatchPrice)
	assert.Equal(t, 50.0, *rep.MatchPrice)
	assert.True(t, rep.Found)
	require.Len(t, rep.Attempts, 2)
	assert.Equal(t, "blocked", rep.Attempts[0].Status)
	assert.Equal(t, []string{"cdn_challenge"}, rep.Attempts[0].Signals)
}

func TestCheck_NoModeLaunches_Lenient(t *testing.T) {
	c := New(staticDriver(t, nil, nil), "£", 1)

	out, err := c.Check(context.Background(), Request{URL: productURL, Price: "£10.00"}, Lenient)
	require.NoError(t, err)

	assert.False(t, out.Accepted)
	assert.Empty(t, out.Prices)
	assert.NotNil(t, out.Prices)
	assert.False(t, out.Found)
	assert.Equal(t, engine.Headed, out.UsedMode)
	assert.Equal(t, int64(1), c.Stats().Inaccessible)
}

func TestCheck_NoModeLaunches_Strict(t *testing.T) {
	c := New(staticDriver(t, nil, nil), "£", 1)

	out, err := c.Check(context.Background(), Request{URL: productURL}, Strict)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotAccessible)

	var se *models.ScrapeError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, models.ErrCodeNotAccessible, se.Code)

	require.NotNil(t, out)
	assert.Len(t, out.Attempts, 2)
}

func TestCheck_TargetMatchesCanonicalForm(t *testing.T) {
	c := New(staticDriver(t, map[engine.Mode]string{
		engine.Headless: `<html><body><p>Was <s>£120</s></p><b>£99</b><i>£1,234.56</i></body></html>`,
	}, nil), "£", 1)

	out, err := c.Check(context.Background(), Request{URL: productURL, Price: "£99.00"}, Lenient)
	require.NoError(t, err)

	require.NotNil(t, out.Target)
	assert.Equal(t, 99.0, *out.Target)
	assert.True(t, out.Found)
	assert.Contains(t, out.Prices, 1234.56)
	assert.Contains(t, out.Prices, 120.0)
}

func TestCheck_InvalidTargetFailsBeforeLaunch(t *testing.T) {
	var calls int32
	c := New(staticDriver(t, nil, &calls), "£", 1)

	_, err := c.Check(context.Background(), Request{URL: productURL, Price: "call us"}, Lenient)

	var se *models.ScrapeError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, models.ErrCodeInvalidInput, se.Code)
	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestCheck_InvalidURL(t *testing.T) {
	c := New(staticDriver(t, nil, nil), "£", 1)

	for _, raw := range []string{"", "shop.example/x", "ftp://shop.example/x", "https://"} {
		_, err := c.Check(context.Background(), Request{URL: raw}, Lenient)
		var se *models.ScrapeError
		require.True(t, errors.As(err, &se), raw)
		assert.Equal(t, models.ErrCodeInvalidInput, se.Code, raw)
	}
}

func TestCheck_MaxRunsBoundsConcurrency(t *testing.T) {
	var active, peak int32
	driver := engine.DriverFunc(func(_ context.Context, _ string, _ engine.Mode) (*engine.PageProbe, error) {
		n := atomic.AddInt32(&active, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		atomic.AddInt32(&active, -1)
		return &engine.PageProbe{RawHTML: "<p>£1.00</p>", Prices: []string{"1.00"}}, nil
	})
	c := New(driver, "£", 1)

	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Check(context.Background(), Request{URL: productURL}, Lenient)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&peak))
	assert.Equal(t, int64(4), c.Stats().Runs)
	assert.Equal(t, int64(4), c.Stats().Headless)
}

func TestCheck_CanceledWhileQueued(t *testing.T) {
	release := make(chan struct{})
	driver := engine.DriverFunc(func(_ context.Context, _ string, _ engine.Mode) (*engine.PageProbe, error) {
		<-release
		return &engine.PageProbe{}, nil
	})
	c := New(driver, "£", 1)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = c.Check(context.Background(), Request{URL: productURL}, Lenient)
	}()
	require.Eventually(t, func() bool { return c.Stats().InFlight == 1 }, time.Second, time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := c.Check(ctx, Request{URL: productURL}, Lenient)

	var se *models.ScrapeError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, models.ErrCodeTimeout, se.Code)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)
	<-done
}

func TestReport_JSONShape(t *testing.T) {
	out := &Outcome{URL: productURL, UsedMode: engine.Headed}

	b, err := json.Marshal(out.Report())
	require.NoError(t, err)

	s := string(b)
	assert.Contains(t, s, `"normalizedPrices":[]`)
	assert.Contains(t, s, `"matchPrice":null`)
	assert.Contains(t, s, `"usedHeadless":false`)
	assert.Contains(t, s, `"attempts":[]`)
	assert.NotContains(t, s, `"error"`)
}
