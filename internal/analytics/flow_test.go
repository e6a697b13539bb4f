package analytics

import "testing"

func TestEstimateFlow(t *testing.T) {
	fundBars := []Bar{
		{Date: day("2024-01-04"), Close: 100, Volume: 500},
		{Date: day("2024-01-05"), Close: 102, Volume: 1000},
	}
	underlyingBars := []Bar{
		{Date: day("2024-01-04"), Close: 40000},
		{Date: day("2024-01-05"), Close: 40400},
	}

	est, err := EstimateFlow("IBIT", "BTC/USD", fundBars, underlyingBars)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	approx(t, "FundReturn", est.FundReturn, 2.0)
	approx(t, "UnderlyingReturn", est.UnderlyingReturn, 1.0)
	approx(t, "ExcessReturn", est.ExcessReturn, 1.0)
	approx(t, "DollarVolume", est.DollarVolume, 102000)
	approx(t, "Flow", est.Flow, 1020)
}

func TestEstimateFlowInsufficientBars(t *testing.T) {
	one := []Bar{{Date: day("2024-01-05"), Close: 100, Volume: 10}}
	two := []Bar{
		{Date: day("2024-01-04"), Close: 100},
		{Date: day("2024-01-05"), Close: 101},
	}

	if _, err := EstimateFlow("IBIT", "BTC/USD", one, two); err == nil {
		t.Fatal("one fund bar should be an error so the pair can be omitted")
	}
	if _, err := EstimateFlow("IBIT", "BTC/USD", two, one); err == nil {
		t.Fatal("one underlying bar should be an error so the pair can be omitted")
	}
}
