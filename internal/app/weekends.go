package app

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"weekend-momentum/internal/analytics"
)

// Weekends fetches daily bars for a symbol, extracts weekend windows, and
// prints the most recent windows alongside the aggregate summary.
func (a *App) Weekends(ctx context.Context, opts WeekendsOptions) error {
	symbol := opts.Symbol
	if symbol == "" {
		symbol = a.Config.Symbols.Primary
	}
	samples := opts.Samples
	if samples <= 0 {
		samples = a.Config.Analytics.DailyLookback
	}

	bars, err := a.newBarFetcher().FetchBars(ctx, symbol, samples, analytics.IntervalDaily)
	if err != nil {
		return fmt.Errorf("fetch daily bars for %s: %w", symbol, err)
	}

	windows := analytics.ExtractWeekendWindows(bars)
	summary := analytics.Summarize(windows)

	if len(windows) == 0 {
		fmt.Fprintf(os.Stdout, "no weekend windows found for %s in %d bars\n", symbol, len(bars))
		return nil
	}

	recent := windows
	if opts.Recent > 0 && len(windows) > opts.Recent {
		recent = windows[len(windows)-opts.Recent:]
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Friday\tFriDrift%\tSun→Mon%\tMonDrift%\tDrawdown%\tMonBelowFri\tRecovered")
	for _, w := range recent {
		fmt.Fprintf(
			writer,
			"%s\t%+.2f\t%+.2f\t%+.2f\t%.2f\t%t\t%t\n",
			w.Friday.Date.UTC().Format("2006-01-02"),
			w.FriDrift,
			w.SunToMonDrift,
			w.MonDrift,
			w.WeekendDrawdown,
			w.MonBelowFri,
			w.MondayRecoveryPositive,
		)
	}
	writer.Flush()

	fmt.Fprintf(os.Stdout, "\n%s over %d weekends:\n", symbol, summary.TotalWeekends)
	fmt.Fprintf(os.Stdout, "  Monday opened below Friday close: %.1f%%\n", summary.MonBelowFriPct)
	fmt.Fprintf(os.Stdout, "  Monday recovered above Friday close: %.1f%%\n", summary.MondayRecoveryPct)
	fmt.Fprintf(os.Stdout, "  Avg Friday drift: %+.2f%%  (closed above open %.1f%%)\n", summary.AvgFriDrift, summary.FriClosedAboveOpenPct)
	fmt.Fprintf(os.Stdout, "  Avg Monday drift: %+.2f%%  (closed above open %.1f%%)\n", summary.AvgMonDrift, summary.MonClosedAboveOpenPct)
	fmt.Fprintf(os.Stdout, "  Avg weekend drawdown: %.2f%%  (worst %.2f%%)\n", summary.AvgWeekendDrawdown, summary.WorstWeekendDrawdown)

	return nil
}
