package analytics

// WeekendSummary aggregates a set of weekend windows. It is recomputed in
// full from the window set; an empty set yields the zero value with
// TotalWeekends = 0.
type WeekendSummary struct {
	TotalWeekends int

	MonBelowFriPct        float64
	AvgFriDrift           float64
	FriClosedAboveOpenPct float64

	AvgFriToSatDrift float64
	AvgSatToSunDrift float64
	AvgSunToMonDrift float64

	AvgMonDrift           float64
	MonClosedAboveOpenPct float64

	AvgWeekendDrawdown   float64
	WorstWeekendDrawdown float64

	MondayRecoveryPct float64
}

// Summarize reduces weekend windows into a summary. Each average is taken
// over the subset of windows where the underlying field is present, so no
// division by zero can occur.
func Summarize(windows []WeekendWindow) WeekendSummary {
	if len(windows) == 0 {
		return WeekendSummary{}
	}

	s := WeekendSummary{TotalWeekends: len(windows)}

	var (
		monBelow, friUp, monUp, monRecovery int
		friDrifts, monDrifts                []float64
		friSat, satSun, sunMon              []float64
		drawdowns                           []float64
	)

	for _, w := range windows {
		if w.MonBelowFri {
			monBelow++
		}
		if w.Friday.Close > w.Friday.Open {
			friUp++
		}
		if w.Monday.Close > w.Monday.Open {
			monUp++
		}
		if w.MondayRecoveryPositive {
			monRecovery++
		}

		friDrifts = append(friDrifts, w.FriDrift)
		monDrifts = append(monDrifts, w.MonDrift)
		sunMon = append(sunMon, w.SunToMonDrift)
		drawdowns = append(drawdowns, w.WeekendDrawdown)

		if w.FriToSatDrift != nil {
			friSat = append(friSat, *w.FriToSatDrift)
		}
		if w.SatToSunDrift != nil {
			satSun = append(satSun, *w.SatToSunDrift)
		}
	}

	total := float64(len(windows))
	s.MonBelowFriPct = float64(monBelow) / total * 100
	s.FriClosedAboveOpenPct = float64(friUp) / total * 100
	s.MonClosedAboveOpenPct = float64(monUp) / total * 100
	s.MondayRecoveryPct = float64(monRecovery) / total * 100

	s.AvgFriDrift = mean(friDrifts)
	s.AvgMonDrift = mean(monDrifts)
	s.AvgFriToSatDrift = mean(friSat)
	s.AvgSatToSunDrift = mean(satSun)
	s.AvgSunToMonDrift = mean(sunMon)

	s.AvgWeekendDrawdown = mean(drawdowns)
	s.WorstWeekendDrawdown = drawdowns[0]
	for _, d := range drawdowns[1:] {
		if d < s.WorstWeekendDrawdown {
			s.WorstWeekendDrawdown = d
		}
	}

	return s
}
