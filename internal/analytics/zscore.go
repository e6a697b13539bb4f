package analytics

import (
	"math"

	"github.com/cinar/indicator"
)

const (
	// Minimum usable sizes before each z-score source is trusted.
	minExternalIVPoints = 30
	minFallbackCloses   = 40
	minRollingVolPoints = 30

	realizedVolWindow = 30
)

// RealizedVolSource tags z-score results derived from the rolling
// realized-volatility fallback rather than an external IV index.
const RealizedVolSource = "realized_vol_30d"

// IVZScoreResult reports how far current implied volatility sits from its
// historical mean. Source records which methodology produced the number.
// All fields are nil (Source empty) when neither source has enough data;
// that is a defined insufficient-data state, not an error.
type IVZScoreResult struct {
	Source  string
	Current *float64
	Mean    *float64
	Std     *float64
	ZScore  *float64
	Series  []float64
}

// IVZScore computes a z-score over the trailing lookback slice of an external
// implied-vol series, or of a rolling realized-volatility series derived from
// the bar closes when the external series is too short.
func IVZScore(external []float64, externalSource string, bars []Bar, lookback int) IVZScoreResult {
	if len(external) >= minExternalIVPoints {
		return scoreSeries(external, externalSource, lookback)
	}

	closes := Closes(bars)
	if len(closes) < minFallbackCloses {
		return IVZScoreResult{}
	}

	returns := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		returns = append(returns, math.Log(closes[i]/closes[i-1]))
	}

	rolled := indicator.Std(realizedVolWindow, returns)
	realized := make([]float64, 0, len(rolled))
	for i := realizedVolWindow - 1; i < len(rolled); i++ {
		realized = append(realized, rolled[i]*math.Sqrt(TradingDaysPerYear)*100)
	}
	if len(realized) < minRollingVolPoints {
		return IVZScoreResult{}
	}

	return scoreSeries(realized, RealizedVolSource, lookback)
}

func scoreSeries(series []float64, source string, lookback int) IVZScoreResult {
	slice := series
	if lookback > 0 && len(series) > lookback {
		slice = series[len(series)-lookback:]
	}

	m := mean(slice)
	sd := populationStd(slice)
	current := slice[len(slice)-1]

	z := 0.0
	if sd != 0 {
		z = (current - m) / sd
	}

	return IVZScoreResult{
		Source:  source,
		Current: &current,
		Mean:    &m,
		Std:     &sd,
		ZScore:  &z,
		Series:  slice,
	}
}
