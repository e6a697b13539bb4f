package analytics

import (
	"time"

	"github.com/cinar/indicator"
)

// WeeklyMAPeriod is the long-horizon moving average tracked on weekly closes.
const WeeklyMAPeriod = 200

// WeeklyAveragePoint pairs a weekly close with its trailing simple moving
// average. Average is nil until period samples have accumulated.
type WeeklyAveragePoint struct {
	Date    time.Time
	Close   float64
	Average *float64
}

// WeeklyMovingAverage computes a trailing simple moving average over weekly
// closes. Points before the warmup completes carry a nil average.
func WeeklyMovingAverage(weekly []Bar, period int) []WeeklyAveragePoint {
	if period <= 0 || len(weekly) == 0 {
		return nil
	}

	sma := indicator.Sma(period, Closes(weekly))

	points := make([]WeeklyAveragePoint, len(weekly))
	for i, b := range weekly {
		points[i] = WeeklyAveragePoint{Date: b.Date, Close: b.Close}
		if i >= period-1 {
			avg := sma[i]
			points[i].Average = &avg
		}
	}
	return points
}
