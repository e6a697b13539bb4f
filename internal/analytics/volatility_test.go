package analytics

import (
	"math"
	"testing"
	"time"
)

func syntheticBars(n int, swing float64) []Bar {
	start := day("2023-01-02")
	bars := make([]Bar, 0, n)
	price := 100.0
	for i := 0; i < n; i++ {
		open := price
		if i%2 == 0 {
			price = open * (1 + swing)
		} else {
			price = open * (1 - swing)
		}
		high, low := math.Max(open, price), math.Min(open, price)
		bars = append(bars, Bar{
			Date:  start.Add(time.Duration(i) * 24 * time.Hour),
			Open:  open,
			High:  high * 1.001,
			Low:   low * 0.999,
			Close: price,
		})
	}
	return bars
}

func TestYangZhangConstantSeriesIsZero(t *testing.T) {
	bars := make([]Bar, 30)
	for i := range bars {
		bars[i] = flatBar(day("2023-01-02").Add(time.Duration(i)*24*time.Hour).Format("2006-01-02"), 100)
	}
	if vol := YangZhang(bars, TradingDaysPerYear); vol != 0 {
		t.Fatalf("constant series volatility = %v, want exactly 0", vol)
	}
}

func TestYangZhangScaleInvariance(t *testing.T) {
	bars := syntheticBars(40, 0.03)
	scaled := make([]Bar, len(bars))
	for i, b := range bars {
		scaled[i] = Bar{
			Date:  b.Date,
			Open:  b.Open * 3.7,
			High:  b.High * 3.7,
			Low:   b.Low * 3.7,
			Close: b.Close * 3.7,
		}
	}

	v1 := YangZhang(bars, TradingDaysPerYear)
	v2 := YangZhang(scaled, TradingDaysPerYear)
	if math.Abs(v1-v2) > 1e-9 {
		t.Fatalf("volatility not scale invariant: %v vs %v", v1, v2)
	}
	if v1 <= 0 {
		t.Fatalf("expected positive volatility for a moving series, got %v", v1)
	}
}

func TestYangZhangTooFewBars(t *testing.T) {
	bars := syntheticBars(2, 0.03)
	if vol := YangZhang(bars, TradingDaysPerYear); vol != 0 {
		t.Fatalf("fewer than 3 bars must yield 0, got %v", vol)
	}
}

func TestClassifyRegime(t *testing.T) {
	cases := []struct {
		vol  float64
		want Regime
	}{
		{0.85, RegimeExtreme},
		{0.6, RegimeHigh},
		{0.8, RegimeHigh},   // boundary: > 0.8 is extreme, 0.8 is not
		{0.5, RegimeNormal}, // boundary: > 0.5 is high, 0.5 is not
		{0.3, RegimeNormal},
		{0.2, RegimeNormal},
		{0.1, RegimeLow},
	}
	for _, c := range cases {
		if got := ClassifyRegime(c.vol); got != c.want {
			t.Fatalf("ClassifyRegime(%v) = %s, want %s", c.vol, got, c.want)
		}
	}
}

func TestVolatilityWindowsLabels(t *testing.T) {
	bars := syntheticBars(120, 0.02)
	windows := VolatilityWindows(bars, 30, 60, 90)
	if len(windows) != 3 {
		t.Fatalf("expected 3 windows, got %d", len(windows))
	}
	for i, wantDays := range []int{30, 60, 90} {
		if windows[i].Days != wantDays {
			t.Fatalf("window %d days = %d, want %d", i, windows[i].Days, wantDays)
		}
		if windows[i].AnnualizedVol <= 0 {
			t.Fatalf("window %d volatility should be positive", i)
		}
		if windows[i].Regime != ClassifyRegime(windows[i].AnnualizedVol) {
			t.Fatalf("window %d regime not derived from its volatility", i)
		}
	}
}

func TestRollingVolatility(t *testing.T) {
	bars := syntheticBars(50, 0.02)
	points := RollingVolatility(bars, 30)
	if len(points) != 21 {
		t.Fatalf("expected 21 rolling points for 50 bars and window 30, got %d", len(points))
	}
	if !points[0].Date.Equal(bars[29].Date) {
		t.Fatalf("first rolling point should land on the 30th bar")
	}
	if points := RollingVolatility(bars[:10], 30); points != nil {
		t.Fatal("insufficient bars should yield no rolling series")
	}
}
