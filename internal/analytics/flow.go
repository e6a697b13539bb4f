package analytics

import "fmt"

// FlowEstimate is an inferred net buy/sell pressure on a fund, proxied by the
// fund's return in excess of its underlying asset's return, weighted by the
// fund's dollar volume.
type FlowEstimate struct {
	Fund             string
	Underlying       string
	FundReturn       float64
	UnderlyingReturn float64
	ExcessReturn     float64
	DollarVolume     float64
	Flow             float64
}

// EstimateFlow derives a flow estimate from the two most recent daily bars of
// a fund and its underlying. Too little history is an error so the caller can
// omit the pair from an aggregate without fabricating a number.
func EstimateFlow(fund, underlying string, fundBars, underlyingBars []Bar) (FlowEstimate, error) {
	if len(fundBars) < 2 {
		return FlowEstimate{}, fmt.Errorf("flow estimate %s: need 2 fund bars, have %d", fund, len(fundBars))
	}
	if len(underlyingBars) < 2 {
		return FlowEstimate{}, fmt.Errorf("flow estimate %s: need 2 underlying bars, have %d", fund, len(underlyingBars))
	}

	fLast, fPrev := fundBars[len(fundBars)-1], fundBars[len(fundBars)-2]
	uLast, uPrev := underlyingBars[len(underlyingBars)-1], underlyingBars[len(underlyingBars)-2]

	est := FlowEstimate{
		Fund:             fund,
		Underlying:       underlying,
		FundReturn:       pctChange(fPrev.Close, fLast.Close),
		UnderlyingReturn: pctChange(uPrev.Close, uLast.Close),
		DollarVolume:     fLast.Close * fLast.Volume,
	}
	est.ExcessReturn = est.FundReturn - est.UnderlyingReturn
	est.Flow = est.ExcessReturn / 100 * est.DollarVolume

	return est, nil
}
