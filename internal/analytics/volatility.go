package analytics

import (
	"fmt"
	"math"
	"time"
)

// TradingDaysPerYear annualizes daily volatility for continuously traded
// assets.
const TradingDaysPerYear = 365.0

// Regime classifies an annualized volatility level.
type Regime string

const (
	RegimeLow     Regime = "low"
	RegimeNormal  Regime = "normal"
	RegimeHigh    Regime = "high"
	RegimeExtreme Regime = "extreme"
)

// Regime thresholds on annualized volatility, expressed as decimals
// (0.8 = 80%).
const (
	VolExtremeThreshold = 0.8
	VolHighThreshold    = 0.5
	VolLowThreshold     = 0.2
)

// ClassifyRegime buckets an annualized volatility figure.
func ClassifyRegime(vol float64) Regime {
	switch {
	case vol > VolExtremeThreshold:
		return RegimeExtreme
	case vol > VolHighThreshold:
		return RegimeHigh
	case vol < VolLowThreshold:
		return RegimeLow
	default:
		return RegimeNormal
	}
}

// VolatilityWindow is one fixed-lookback volatility reading.
type VolatilityWindow struct {
	Label         string
	Days          int
	AnnualizedVol float64
	Regime        Regime
}

// VolPoint is one entry of a rolling volatility series.
type VolPoint struct {
	Date time.Time
	Vol  float64
}

// YangZhang computes the Yang-Zhang annualized volatility estimate for a
// window of bars, combining overnight, close-to-close, and intraday range
// statistics. Fewer than 3 bars yields 0: the variance terms are undefined
// below that size.
func YangZhang(bars []Bar, periodsPerYear float64) float64 {
	if len(bars) < 3 {
		return 0
	}

	n := len(bars) - 1
	overnight := make([]float64, 0, n)
	closeToClose := make([]float64, 0, n)
	rangeTerms := make([]float64, 0, n)

	for i := 1; i < len(bars); i++ {
		prev, cur := bars[i-1], bars[i]
		overnight = append(overnight, math.Log(cur.Open/prev.Close))
		closeToClose = append(closeToClose, math.Log(cur.Close/prev.Close))

		rs := math.Log(cur.High/cur.Close)*math.Log(cur.High/cur.Open) +
			math.Log(cur.Low/cur.Close)*math.Log(cur.Low/cur.Open)
		rangeTerms = append(rangeTerms, rs)
	}

	k := 0.34 / (1.34 + float64(n+1)/float64(n-1))

	yzVariance := sampleVariance(overnight) +
		k*sampleVariance(closeToClose) +
		(1-k)*mean(rangeTerms)
	if yzVariance < 0 {
		yzVariance = 0
	}

	return math.Sqrt(yzVariance * periodsPerYear)
}

// VolatilityWindows computes classified Yang-Zhang readings for each
// requested lookback, taken from the tail of the series.
func VolatilityWindows(bars []Bar, days ...int) []VolatilityWindow {
	if len(days) == 0 {
		days = []int{30, 60, 90}
	}

	windows := make([]VolatilityWindow, 0, len(days))
	for _, d := range days {
		tail := bars
		if len(bars) > d {
			tail = bars[len(bars)-d:]
		}
		vol := YangZhang(tail, TradingDaysPerYear)
		windows = append(windows, VolatilityWindow{
			Label:         fmt.Sprintf("%dd", d),
			Days:          d,
			AnnualizedVol: vol,
			Regime:        ClassifyRegime(vol),
		})
	}
	return windows
}

// RollingVolatility produces one Yang-Zhang reading per day once at least
// window trailing bars exist.
func RollingVolatility(bars []Bar, window int) []VolPoint {
	if window < 3 || len(bars) < window {
		return nil
	}

	points := make([]VolPoint, 0, len(bars)-window+1)
	for i := window; i <= len(bars); i++ {
		slice := bars[i-window : i]
		points = append(points, VolPoint{
			Date: slice[window-1].Date,
			Vol:  YangZhang(slice, TradingDaysPerYear),
		})
	}
	return points
}
