package analytics

import (
	"math"
	"testing"
)

func TestIVZScoreConstantExternalSeries(t *testing.T) {
	external := make([]float64, 50)
	for i := range external {
		external[i] = 20.0
	}

	res := IVZScore(external, "VOLIDX", nil, 1825)
	if res.Source != "VOLIDX" {
		t.Fatalf("source = %q, want VOLIDX", res.Source)
	}
	if res.ZScore == nil || *res.ZScore != 0 {
		t.Fatalf("constant series z-score should be exactly 0, got %v", res.ZScore)
	}
	if *res.Current != *res.Mean {
		t.Fatalf("current (%v) should equal mean (%v) for a constant series", *res.Current, *res.Mean)
	}
}

func TestIVZScoreLookbackSlice(t *testing.T) {
	external := make([]float64, 100)
	for i := range external {
		external[i] = float64(i)
	}

	res := IVZScore(external, "VOLIDX", nil, 10)
	if len(res.Series) != 10 {
		t.Fatalf("series length = %d, want trailing 10", len(res.Series))
	}
	// Trailing slice is 90..99 with mean 94.5.
	if math.Abs(*res.Mean-94.5) > 1e-9 {
		t.Fatalf("mean = %v, want 94.5", *res.Mean)
	}
	if *res.Current != 99 {
		t.Fatalf("current = %v, want 99", *res.Current)
	}
	if *res.ZScore <= 0 {
		t.Fatalf("current above mean should give positive z-score, got %v", *res.ZScore)
	}
}

func TestIVZScoreRealizedFallback(t *testing.T) {
	bars := syntheticBars(120, 0.02)

	res := IVZScore(nil, "VOLIDX", bars, 1825)
	if res.Source != RealizedVolSource {
		t.Fatalf("source = %q, want %q", res.Source, RealizedVolSource)
	}
	if res.ZScore == nil || res.Current == nil || res.Mean == nil || res.Std == nil {
		t.Fatal("fallback result should be fully populated")
	}
	if *res.Current <= 0 {
		t.Fatalf("realized volatility should be positive, got %v", *res.Current)
	}
}

func TestIVZScoreInsufficientData(t *testing.T) {
	// Below the 40-close minimum for the fallback and the 30-point
	// minimum for the external series.
	short := make([]float64, 10)
	bars := syntheticBars(30, 0.02)

	res := IVZScore(short, "VOLIDX", bars, 1825)
	if res.Source != "" {
		t.Fatalf("source should be empty for insufficient data, got %q", res.Source)
	}
	if res.Current != nil || res.Mean != nil || res.Std != nil || res.ZScore != nil {
		t.Fatal("all numeric fields should be nil for insufficient data")
	}
}
