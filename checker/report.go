package checker

import (
	"github.com/use-agent/priceprobe/engine"
	"github.com/use-agent/priceprobe/models"
)

// Report converts the outcome into the wire result record.
func (o *Outcome) Report() models.PriceCheckResponse {
	prices := o.Prices
	if prices == nil {
		prices = []float64{}
	}

	var browserMs int64
	attempts := make([]models.AttemptReport, 0, len(o.Attempts))
	for _, a := range o.Attempts {
		r := models.AttemptReport{
			Mode:       a.Mode.String(),
			Status:     string(a.Status),
			Signals:    a.Signals,
			PriceCount: a.PriceCount,
			HTMLBytes:  a.HTMLBytes,
			DurationMs: a.Duration.Milliseconds(),
		}
		if a.Err != nil {
			r.Error = a.Err.Error()
		}
		browserMs += r.DurationMs
		attempts = append(attempts, r)
	}

	return models.PriceCheckResponse{
		URL:              o.URL,
		NormalizedPrices: prices,
		UsedHeadless:     o.UsedMode == engine.Headless,
		MatchPrice:       o.Target,
		Found:            o.Found,
		Accepted:         o.Accepted,
		Attempts:         attempts,
		Timing: models.TimingInfo{
			TotalMs:   o.Total.Milliseconds(),
			QueueMs:   o.QueueWait.Milliseconds(),
			BrowserMs: browserMs,
		},
	}
}
