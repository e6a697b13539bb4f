package service

import (
	"context"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"weekend-momentum/internal/alerting"
	"weekend-momentum/internal/analytics"
	"weekend-momentum/internal/config"
	"weekend-momentum/internal/storage"
)

type fakeBarFetcher struct {
	swing   float64
	failing map[string]bool
}

func (f *fakeBarFetcher) FetchBars(_ context.Context, symbol string, outputSize int, _ analytics.Interval) ([]analytics.Bar, error) {
	if f.failing[symbol] {
		return nil, fmt.Errorf("provider rejected %s", symbol)
	}
	if outputSize > 120 {
		outputSize = 120
	}
	start := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
	bars := make([]analytics.Bar, 0, outputSize)
	price := 100.0
	for i := 0; i < outputSize; i++ {
		open := price
		if i%2 == 0 {
			price = open * (1 + f.swing)
		} else {
			price = open * (1 - f.swing)
		}
		high, low := math.Max(open, price), math.Min(open, price)
		bars = append(bars, analytics.Bar{
			Date:   start.Add(time.Duration(i) * 24 * time.Hour),
			Open:   open,
			High:   high * 1.002,
			Low:    low * 0.998,
			Close:  price,
			Volume: 1000,
		})
	}
	return bars, nil
}

type fakeSnapshotStore struct {
	snapshots []storage.Snapshot
}

func (f *fakeSnapshotStore) UpsertSnapshot(_ context.Context, snapshot storage.Snapshot) error {
	f.snapshots = append(f.snapshots, snapshot)
	return nil
}

func (f *fakeSnapshotStore) ListSnapshotsBetween(context.Context, time.Time, time.Time) ([]storage.Snapshot, error) {
	return f.snapshots, nil
}

func (f *fakeSnapshotStore) ListRecentSnapshots(context.Context, int) ([]storage.Snapshot, error) {
	return f.snapshots, nil
}

func (f *fakeSnapshotStore) MarkSnapshotErrored(context.Context, time.Time, string, string) error {
	return nil
}

func (f *fakeSnapshotStore) CountSnapshots(context.Context) (int64, error) {
	return int64(len(f.snapshots)), nil
}

type fakeAlertStore struct {
	alerts []storage.VolAlert
}

func (f *fakeAlertStore) InsertVolAlert(_ context.Context, alert storage.VolAlert) (storage.VolAlert, error) {
	alert.ID = int64(len(f.alerts) + 1)
	f.alerts = append(f.alerts, alert)
	return alert, nil
}

func (f *fakeAlertStore) ListRecentVolAlerts(context.Context, int) ([]storage.VolAlert, error) {
	return f.alerts, nil
}

func (f *fakeAlertStore) DeleteVolAlertsBefore(context.Context, time.Time) error {
	return nil
}

type fakeNotifier struct {
	sent []alerting.Notification
}

func (f *fakeNotifier) Notify(_ context.Context, note alerting.Notification) error {
	f.sent = append(f.sent, note)
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		Symbols: config.SymbolsConfig{Primary: "BTC/USD"},
		Analytics: config.AnalyticsConfig{
			DailyLookback:  120,
			WeeklyLookback: 60,
			IVLookback:     1825,
		},
		Alerting: config.AlertingConfig{
			Enabled:         true,
			ZScoreThreshold: 2.0,
			Channels:        []string{"telegram"},
		},
	}
}

func TestProcessBucketRecordsSnapshot(t *testing.T) {
	store := &fakeSnapshotStore{}
	alerts := &fakeAlertStore{}
	notifier := &fakeNotifier{}
	svc := New(testConfig(), nil, &fakeBarFetcher{swing: 0.005}, nil, store, alerts, notifier, zerolog.Nop())

	bucket := time.Date(2024, 1, 8, 12, 0, 0, 0, time.UTC)
	if err := svc.ProcessBucket(context.Background(), bucket); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(store.snapshots) != 1 {
		t.Fatalf("expected 1 snapshot, got %d", len(store.snapshots))
	}
	snap := store.snapshots[0]
	if !snap.Bucket.Equal(bucket) || snap.Symbol != "BTC/USD" {
		t.Fatalf("snapshot misattributed: %+v", snap)
	}
	if snap.Status != "complete" {
		t.Fatalf("status = %q, want complete", snap.Status)
	}
	if snap.Vol30.IsZero() {
		t.Fatal("a moving series should yield nonzero 30d volatility")
	}
	if snap.WeekendCount == 0 {
		t.Fatal("120 daily bars should contain weekend windows")
	}
	if snap.IVSource == nil || *snap.IVSource != analytics.RealizedVolSource {
		t.Fatalf("no iv index configured, source should be the realized fallback, got %v", snap.IVSource)
	}
}

func TestProcessBucketAlertsOnHighRegime(t *testing.T) {
	store := &fakeSnapshotStore{}
	alerts := &fakeAlertStore{}
	notifier := &fakeNotifier{}
	// 8% daily swings push annualized volatility far past the extreme bound.
	svc := New(testConfig(), nil, &fakeBarFetcher{swing: 0.08}, nil, store, alerts, notifier, zerolog.Nop())

	if err := svc.ProcessBucket(context.Background(), time.Date(2024, 1, 8, 12, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(notifier.sent) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(notifier.sent))
	}
	if len(alerts.alerts) != 1 {
		t.Fatalf("expected 1 persisted alert, got %d", len(alerts.alerts))
	}
	note := notifier.sent[0]
	if note.Regime != string(analytics.RegimeExtreme) && note.Regime != string(analytics.RegimeHigh) {
		t.Fatalf("regime = %q, want high or extreme", note.Regime)
	}
}

func TestAlertCooldownSuppressesRepeat(t *testing.T) {
	cfg := testConfig()
	cfg.Alerting.Cooldown = 30 * time.Minute
	notifier := &fakeNotifier{}
	svc := New(cfg, nil, &fakeBarFetcher{swing: 0.08}, nil, &fakeSnapshotStore{}, &fakeAlertStore{}, notifier, zerolog.Nop())

	first := time.Date(2024, 1, 8, 12, 0, 0, 0, time.UTC)
	for _, bucket := range []time.Time{first, first.Add(time.Minute), first.Add(time.Hour)} {
		if err := svc.ProcessBucket(context.Background(), bucket); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	// The one-minute repeat falls inside the cooldown; the one-hour repeat
	// does not.
	if len(notifier.sent) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(notifier.sent))
	}
}

func TestProcessBucketNoAlertWhenCalm(t *testing.T) {
	notifier := &fakeNotifier{}
	svc := New(testConfig(), nil, &fakeBarFetcher{swing: 0.001}, nil, &fakeSnapshotStore{}, &fakeAlertStore{}, notifier, zerolog.Nop())

	if err := svc.ProcessBucket(context.Background(), time.Date(2024, 1, 8, 12, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(notifier.sent) != 0 {
		t.Fatalf("calm series should not alert, got %d notifications", len(notifier.sent))
	}
}

func TestProcessBucketFatalOnPrimaryFetchFailure(t *testing.T) {
	fetcher := &fakeBarFetcher{swing: 0.005, failing: map[string]bool{"BTC/USD": true}}
	svc := New(testConfig(), nil, fetcher, nil, &fakeSnapshotStore{}, &fakeAlertStore{}, &fakeNotifier{}, zerolog.Nop())

	if err := svc.ProcessBucket(context.Background(), time.Now()); err == nil {
		t.Fatal("primary series failure must be fatal for the bucket")
	}
}

func TestFlowPairPartialFailureOmitted(t *testing.T) {
	cfg := testConfig()
	cfg.Symbols.FlowPairs = []config.FlowPair{
		{Fund: "IBIT", Underlying: "BTC/USD"},
		{Fund: "BADFUND", Underlying: "BTC/USD"},
	}
	fetcher := &fakeBarFetcher{swing: 0.005, failing: map[string]bool{"BADFUND": true}}
	store := &fakeSnapshotStore{}
	svc := New(cfg, nil, fetcher, nil, store, &fakeAlertStore{}, &fakeNotifier{}, zerolog.Nop())

	if err := svc.ProcessBucket(context.Background(), time.Date(2024, 1, 8, 12, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("a failing flow pair must not be fatal: %v", err)
	}
	if len(store.snapshots) != 1 {
		t.Fatalf("expected 1 snapshot, got %d", len(store.snapshots))
	}
}
