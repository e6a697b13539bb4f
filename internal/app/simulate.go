package app

import (
	"context"
	"errors"
	"time"

	"weekend-momentum/internal/analytics"
	"weekend-momentum/internal/fetcher"
	"weekend-momentum/internal/service"
)

// SimulateAlert drives the alert path through the real pipeline using a
// synthetic bar series with the given daily swing (percent). A swing above
// roughly 4% lands the 30-day regime in high/extreme territory.
func (a *App) SimulateAlert(ctx context.Context, swingPct float64) error {
	if !a.Config.Alerting.Enabled {
		return errors.New("alerting is not enabled")
	}

	notifier := a.newNotifier()
	if notifier == nil {
		return errors.New("no alert channel configured")
	}

	if swingPct <= 0 {
		swingPct = 8
	}

	static := &staticBarFetcher{swing: swingPct / 100}

	svc := service.New(a.Config, nil, static, nil, nil, nil, notifier, a.Logger)

	bucket := time.Now().UTC().Truncate(a.Config.Scheduler.Interval)
	return svc.ProcessBucket(ctx, bucket)
}

// staticBarFetcher produces a deterministic series whose closes alternate up
// and down by a fixed fraction, so the simulated volatility is predictable.
type staticBarFetcher struct {
	swing float64
}

func (s *staticBarFetcher) FetchBars(ctx context.Context, symbol string, outputSize int, interval analytics.Interval) ([]analytics.Bar, error) {
	end := time.Now().UTC().Truncate(24 * time.Hour)
	step := 24 * time.Hour
	if interval == analytics.IntervalWeekly {
		step = 7 * 24 * time.Hour
	}

	bars := make([]analytics.Bar, 0, outputSize)
	price := 100.0
	for i := outputSize - 1; i >= 0; i-- {
		open := price
		if i%2 == 0 {
			price = open * (1 + s.swing)
		} else {
			price = open * (1 - s.swing)
		}
		high := open
		low := price
		if price > open {
			high, low = price, open
		}
		bars = append(bars, analytics.Bar{
			Date:   end.Add(-time.Duration(i) * step),
			Open:   open,
			High:   high * 1.002,
			Low:    low * 0.998,
			Close:  price,
			Volume: 1000,
		})
	}
	return bars, nil
}

var _ fetcher.BarFetcher = (*staticBarFetcher)(nil)
