package analytics

import "time"

// Interval selects the bar granularity requested from a quote provider.
type Interval string

const (
	IntervalHourly Interval = "1h"
	IntervalDaily  Interval = "1day"
	IntervalWeekly Interval = "1week"
)

// Bar is a single OHLC(V) observation. Series are ordered ascending by date
// with no duplicate dates; days on which the market does not trade are simply
// absent.
type Bar struct {
	Date   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Closes extracts the close column from a bar series.
func Closes(bars []Bar) []float64 {
	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}
	return closes
}

const dateLayout = "2006-01-02"

func dateKey(t time.Time) string {
	return t.UTC().Format(dateLayout)
}
