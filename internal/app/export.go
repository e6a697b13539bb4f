package app

import (
	"context"
	"encoding/csv"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	chart "github.com/wcharczuk/go-chart/v2"

	"weekend-momentum/internal/storage"
)

// Export renders historical snapshots as CSV and/or PNG.
func (a *App) Export(ctx context.Context, opts ExportOptions) error {
	if opts.CSVPath == "" && opts.PNGPath == "" {
		return errors.New("at least one of --csv or --png must be provided")
	}

	opts.MaxPoints = a.Config.ResolveMaxPoints(opts.MaxPoints)

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot export")
	}
	if closeStore != nil {
		defer closeStore()
	}

	to := time.Now().UTC()
	if opts.To != nil {
		to = opts.To.UTC()
	}

	from := to.Add(-time.Duration(opts.MaxPoints) * a.Config.Scheduler.Interval)
	if opts.From != nil {
		from = opts.From.UTC()
	}

	if !from.Before(to) {
		return errors.New("from must be before to")
	}

	snapshots, err := store.ListSnapshotsBetween(ctx, from, to)
	if err != nil {
		return err
	}
	if len(snapshots) == 0 {
		a.Logger.Info().Msg("no snapshots found for export window")
		return nil
	}

	downsampled := downsampleSnapshots(snapshots, opts.MaxPoints)
	a.Logger.Info().Int("total", len(snapshots)).Int("exported", len(downsampled)).Msg("exporting snapshots")

	if opts.CSVPath != "" {
		if err := writeSnapshotsCSV(opts.CSVPath, downsampled); err != nil {
			return err
		}
	}

	if opts.PNGPath != "" {
		if err := writeSnapshotsPNG(opts.PNGPath, downsampled); err != nil {
			return err
		}
	}

	return nil
}

func downsampleSnapshots(snapshots []storage.Snapshot, max int) []storage.Snapshot {
	if max <= 0 || len(snapshots) <= max {
		return snapshots
	}

	result := make([]storage.Snapshot, 0, max)
	step := float64(len(snapshots)-1) / float64(max-1)
	for i := 0; i < max; i++ {
		idx := int(math.Round(step * float64(i)))
		if idx >= len(snapshots) {
			idx = len(snapshots) - 1
		}
		result = append(result, snapshots[idx])
	}
	return result
}

func writeSnapshotsCSV(path string, snapshots []storage.Snapshot) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{"bucket_ts", "symbol", "spot_price", "vol_30d", "vol_60d", "vol_90d", "regime_30d", "iv_zscore", "iv_source", "ma_200w", "weekend_count", "mon_below_fri_pct", "avg_weekend_drawdown", "flow_total", "status", "error"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, snap := range snapshots {
		errMsg := ""
		if snap.Error != nil {
			errMsg = sanitizeInline(*snap.Error)
		}
		record := []string{
			snap.Bucket.Format(time.RFC3339),
			snap.Symbol,
			optionalString(snap.SpotPrice),
			snap.Vol30.String(),
			snap.Vol60.String(),
			snap.Vol90.String(),
			snap.Regime30,
			optionalString(snap.IVZScore),
			stringOrEmpty(snap.IVSource),
			optionalString(snap.MA200W),
			intString(snap.WeekendCount),
			snap.MonBelowFriPct.String(),
			snap.AvgWeekendDrawdown.String(),
			snap.FlowTotal.String(),
			snap.Status,
			errMsg,
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	return writer.Error()
}

func writeSnapshotsPNG(path string, snapshots []storage.Snapshot) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	x := make([]time.Time, len(snapshots))
	vol30 := make([]float64, len(snapshots))
	vol60 := make([]float64, len(snapshots))
	vol90 := make([]float64, len(snapshots))
	zscore := make([]float64, len(snapshots))

	for i, snap := range snapshots {
		x[i] = snap.Bucket
		vol30[i] = snap.Vol30.InexactFloat64()
		vol60[i] = snap.Vol60.InexactFloat64()
		vol90[i] = snap.Vol90.InexactFloat64()
		if snap.IVZScore != nil {
			zscore[i] = snap.IVZScore.InexactFloat64()
		}
	}

	volFormatter := func(v interface{}) string {
		return chart.FloatValueFormatterWithFormat(v, "%.3f")
	}
	graph := chart.Chart{
		Width:  1280,
		Height: 720,
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeValueFormatter,
		},
		YAxis: chart.YAxis{
			Name:           "Annualized vol",
			ValueFormatter: volFormatter,
		},
		YAxisSecondary: chart.YAxis{
			Name:           "IV z-score",
			ValueFormatter: volFormatter,
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    "Vol 30d",
				XValues: x,
				YValues: vol30,
			},
			chart.TimeSeries{
				Name:    "Vol 60d",
				XValues: x,
				YValues: vol60,
			},
			chart.TimeSeries{
				Name:    "Vol 90d",
				XValues: x,
				YValues: vol90,
			},
			chart.TimeSeries{
				Name:    "IV z-score",
				XValues: x,
				YValues: zscore,
				YAxis:   chart.YAxisSecondary,
			},
		},
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return graph.Render(chart.PNG, file)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func formatDecimal(d decimal.Decimal, places int32) string {
	return d.StringFixed(places)
}

func optionalString(d *decimal.Decimal) string {
	if d == nil {
		return ""
	}
	return d.String()
}

func intString(v int) string {
	return strconv.Itoa(v)
}

func stringOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
