package analytics

import "time"

// WeekendWindow is a Friday-anchored run of bars covering Friday through the
// following Monday. Saturday and Sunday are nil when the underlying market
// does not trade weekends. A window is only constructed when the Monday bar
// exists; a Friday with no resolvable Monday produces no window.
type WeekendWindow struct {
	Friday   Bar
	Saturday *Bar
	Sunday   *Bar
	Monday   Bar

	// Intraday drifts, open to close, in percent.
	FriDrift float64
	MonDrift float64

	// Pairwise close-to-close drifts; nil when the relevant day is missing.
	FriToSatDrift *float64
	SatToSunDrift *float64

	// Monday open against the pre-Monday reference close (Sunday, else
	// Saturday, else Friday).
	SunToMonDrift float64

	// Minimum weekend low relative to Friday close, in percent. Falls back
	// to Monday's open when no weekend bar traded.
	WeekendDrawdown float64

	MonBelowFri            bool
	MondayRecoveryPositive bool
}

// ExtractWeekendWindows partitions a chronologically ordered daily bar series
// into weekend windows, one per Friday with a following Monday bar. Missing
// Saturdays and Sundays are tolerated; a missing Monday skips the Friday.
func ExtractWeekendWindows(bars []Bar) []WeekendWindow {
	index := make(map[string]Bar, len(bars))
	for _, b := range bars {
		index[dateKey(b.Date)] = b
	}

	windows := make([]WeekendWindow, 0)
	for _, fri := range bars {
		if fri.Date.UTC().Weekday() != time.Friday {
			continue
		}
		mon, ok := index[dateKey(fri.Date.AddDate(0, 0, 3))]
		if !ok {
			continue
		}
		sat := lookupBar(index, fri.Date.AddDate(0, 0, 1))
		sun := lookupBar(index, fri.Date.AddDate(0, 0, 2))
		windows = append(windows, buildWindow(fri, sat, sun, mon))
	}
	return windows
}

func lookupBar(index map[string]Bar, date time.Time) *Bar {
	if b, ok := index[dateKey(date)]; ok {
		return &b
	}
	return nil
}

func buildWindow(fri Bar, sat, sun *Bar, mon Bar) WeekendWindow {
	w := WeekendWindow{
		Friday:   fri,
		Saturday: sat,
		Sunday:   sun,
		Monday:   mon,
		FriDrift: pctChange(fri.Open, fri.Close),
		MonDrift: pctChange(mon.Open, mon.Close),
	}

	if sat != nil {
		d := pctChange(fri.Close, sat.Close)
		w.FriToSatDrift = &d
	}
	if sat != nil && sun != nil {
		d := pctChange(sat.Close, sun.Close)
		w.SatToSunDrift = &d
	}

	preMonday := fri.Close
	switch {
	case sun != nil:
		preMonday = sun.Close
	case sat != nil:
		preMonday = sat.Close
	}
	w.SunToMonDrift = pctChange(preMonday, mon.Open)

	low := weekendLow(sat, sun, mon)
	w.WeekendDrawdown = pctChange(fri.Close, low)

	w.MonBelowFri = mon.Open < fri.Close
	w.MondayRecoveryPositive = mon.Close > fri.Close

	return w
}

// weekendLow is the lowest traded weekend price. With no weekend bars at all
// it falls back to Monday's open, the earliest price observable after the
// Friday close.
func weekendLow(sat, sun *Bar, mon Bar) float64 {
	low := mon.Open
	haveWeekend := false
	if sat != nil {
		low = sat.Low
		haveWeekend = true
	}
	if sun != nil && (!haveWeekend || sun.Low < low) {
		low = sun.Low
	}
	return low
}
