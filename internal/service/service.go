package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"weekend-momentum/internal/alerting"
	"weekend-momentum/internal/analytics"
	"weekend-momentum/internal/config"
	"weekend-momentum/internal/fetcher"
	"weekend-momentum/internal/scheduler"
	"weekend-momentum/internal/storage"
)

const flowBarCount = 5

// Service orchestrates fetching, analytics, persistence, and alerting.
type Service struct {
	scheduler  *scheduler.Scheduler
	bars       fetcher.BarFetcher
	spot       fetcher.SpotPriceFetcher
	store      storage.SnapshotStore
	alertStore storage.VolAlertStore
	notifier   alerting.Notifier
	logger     zerolog.Logger

	symbol         string
	ivSymbol       string
	flowPairs      []config.FlowPair
	dailyLookback  int
	weeklyLookback int
	ivLookback     int
	zThreshold     decimal.Decimal
	channels       []string
	alertsOn       bool
	cooldown       time.Duration
	lastAlert      time.Time
	locker         storage.AdvisoryLocker
	lockKey        int64
}

// New constructs the monitoring service.
func New(cfg *config.Config, sched *scheduler.Scheduler, bars fetcher.BarFetcher, spot fetcher.SpotPriceFetcher, store storage.SnapshotStore, alertStore storage.VolAlertStore, notifier alerting.Notifier, logger zerolog.Logger) *Service {
	var locker storage.AdvisoryLocker
	if l, ok := store.(storage.AdvisoryLocker); ok {
		locker = l
	}

	return &Service{
		scheduler:      sched,
		bars:           bars,
		spot:           spot,
		store:          store,
		alertStore:     alertStore,
		notifier:       notifier,
		logger:         logger.With().Str("component", "service").Logger(),
		symbol:         cfg.Symbols.Primary,
		ivSymbol:       cfg.Symbols.IVIndex,
		flowPairs:      cfg.Symbols.FlowPairs,
		dailyLookback:  cfg.Analytics.DailyLookback,
		weeklyLookback: cfg.Analytics.WeeklyLookback,
		ivLookback:     cfg.Analytics.IVLookback,
		zThreshold:     decimal.NewFromFloat(cfg.Alerting.ZScoreThreshold),
		channels:       cfg.Alerting.Channels,
		alertsOn:       cfg.Alerting.Enabled,
		cooldown:       cfg.Alerting.Cooldown,
		locker:         locker,
		lockKey:        cfg.Scheduler.AdvisoryLockKey,
	}
}

// Run begins the aligned sampling loop.
func (s *Service) Run(ctx context.Context) error {
	if s.scheduler == nil {
		return fmt.Errorf("scheduler not configured")
	}
	return s.scheduler.Run(ctx, s.ProcessBucket)
}

// ProcessBucket executes the pipeline for a single time bucket.
func (s *Service) ProcessBucket(ctx context.Context, bucket time.Time) error {
	unlock, proceed, err := s.acquireLock(ctx)
	if err != nil {
		return err
	}
	if !proceed {
		s.logger.Debug().Time("bucket", bucket).Msg("skip bucket because advisory lock held elsewhere")
		return nil
	}
	if unlock != nil {
		defer unlock()
	}

	if err := s.executeBucket(ctx, bucket); err != nil {
		s.recordFailure(ctx, bucket, err)
		return err
	}
	return nil
}

// recordFailure marks an existing snapshot for the bucket as errored. A bucket
// that never produced a snapshot has nothing to mark.
func (s *Service) recordFailure(ctx context.Context, bucket time.Time, cause error) {
	if s.store == nil {
		return
	}
	if err := s.store.MarkSnapshotErrored(ctx, bucket, s.symbol, cause.Error()); err != nil {
		if errors.Is(err, storage.ErrSnapshotNotFound) {
			return
		}
		s.logger.Error().Err(err).Time("bucket", bucket).Msg("failed to mark snapshot errored")
	}
}

func (s *Service) executeBucket(ctx context.Context, bucket time.Time) error {
	// The primary daily and weekly series are the sole required inputs;
	// a total fetch failure on either is fatal for the bucket.
	daily, err := s.bars.FetchBars(ctx, s.symbol, s.dailyLookback, analytics.IntervalDaily)
	if err != nil {
		return fmt.Errorf("fetch daily bars for %s: %w", s.symbol, err)
	}

	weekly, err := s.bars.FetchBars(ctx, s.symbol, s.weeklyLookback, analytics.IntervalWeekly)
	if err != nil {
		return fmt.Errorf("fetch weekly bars for %s: %w", s.symbol, err)
	}

	ivSeries := s.fetchIVSeries(ctx)
	flows := s.fetchFlows(ctx)

	windows := analytics.ExtractWeekendWindows(daily)
	summary := analytics.Summarize(windows)
	vols := analytics.VolatilityWindows(daily, 30, 60, 90)
	zres := analytics.IVZScore(ivSeries, s.ivSymbol, daily, s.ivLookback)
	maPoints := analytics.WeeklyMovingAverage(weekly, analytics.WeeklyMAPeriod)

	snapshot := storage.Snapshot{
		Bucket:             bucket,
		Symbol:             s.symbol,
		Vol30:              decimal.NewFromFloat(vols[0].AnnualizedVol),
		Vol60:              decimal.NewFromFloat(vols[1].AnnualizedVol),
		Vol90:              decimal.NewFromFloat(vols[2].AnnualizedVol),
		Regime30:           string(vols[0].Regime),
		WeekendCount:       summary.TotalWeekends,
		MonBelowFriPct:     decimal.NewFromFloat(summary.MonBelowFriPct),
		AvgWeekendDrawdown: decimal.NewFromFloat(summary.AvgWeekendDrawdown),
		FlowTotal:          totalFlow(flows),
		Status:             "complete",
		CreatedAt:          time.Now().UTC(),
	}

	if zres.ZScore != nil {
		z := decimal.NewFromFloat(*zres.ZScore)
		source := zres.Source
		snapshot.IVZScore = &z
		snapshot.IVSource = &source
	}

	if ma := latestAverage(maPoints); ma != nil {
		m := decimal.NewFromFloat(*ma)
		snapshot.MA200W = &m
	}

	if s.spot != nil {
		spotPrice, updatedAt, spotErr := s.spot.FetchSpot(ctx)
		if spotErr != nil {
			s.logger.Warn().Err(spotErr).Msg("spot cross-check unavailable")
		} else {
			snapshot.SpotPrice = &spotPrice
			s.logger.Debug().Time("updated_at", updatedAt).Str("spot", spotPrice.String()).Msg("spot cross-check recorded")
		}
	}

	if s.store != nil {
		if err := s.store.UpsertSnapshot(ctx, snapshot); err != nil {
			s.logger.Error().Err(err).Time("bucket", bucket).Msg("failed to upsert snapshot")
		}
	}

	s.logger.Info().Time("bucket", bucket).
		Str("symbol", s.symbol).
		Str("vol_30d", snapshot.Vol30.StringFixed(4)).
		Str("regime", snapshot.Regime30).
		Int("weekends", summary.TotalWeekends).
		Msg("snapshot recorded")

	s.maybeAlert(ctx, bucket, snapshot)

	return nil
}

func (s *Service) fetchIVSeries(ctx context.Context) []float64 {
	if s.ivSymbol == "" {
		return nil
	}
	bars, err := s.bars.FetchBars(ctx, s.ivSymbol, s.ivLookback, analytics.IntervalDaily)
	if err != nil {
		// Absent IV index is tolerated; the z-score falls back to
		// realized volatility.
		s.logger.Warn().Err(err).Str("symbol", s.ivSymbol).Msg("iv index unavailable, using realized fallback")
		return nil
	}
	return analytics.Closes(bars)
}

// fetchFlows settles all flow-pair fetches, tolerating partial failure: a
// failing pair is omitted from the aggregate, never fatal.
func (s *Service) fetchFlows(ctx context.Context) []analytics.FlowEstimate {
	if len(s.flowPairs) == 0 {
		return nil
	}

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		flows []analytics.FlowEstimate
	)

	for _, pair := range s.flowPairs {
		wg.Add(1)
		go func(pair config.FlowPair) {
			defer wg.Done()

			fundBars, err := s.bars.FetchBars(ctx, pair.Fund, flowBarCount, analytics.IntervalDaily)
			if err != nil {
				s.logger.Warn().Err(err).Str("fund", pair.Fund).Msg("flow pair fund fetch failed, omitting")
				return
			}
			underlyingBars, err := s.bars.FetchBars(ctx, pair.Underlying, flowBarCount, analytics.IntervalDaily)
			if err != nil {
				s.logger.Warn().Err(err).Str("underlying", pair.Underlying).Msg("flow pair underlying fetch failed, omitting")
				return
			}

			est, err := analytics.EstimateFlow(pair.Fund, pair.Underlying, fundBars, underlyingBars)
			if err != nil {
				s.logger.Warn().Err(err).Str("fund", pair.Fund).Msg("flow estimate skipped")
				return
			}

			mu.Lock()
			flows = append(flows, est)
			mu.Unlock()
		}(pair)
	}

	wg.Wait()
	return flows
}

func (s *Service) maybeAlert(ctx context.Context, bucket time.Time, snapshot storage.Snapshot) {
	if !s.alertsOn || s.notifier == nil {
		return
	}

	regimeTriggered := snapshot.Regime30 == string(analytics.RegimeHigh) ||
		snapshot.Regime30 == string(analytics.RegimeExtreme)

	zTriggered := false
	if snapshot.IVZScore != nil && !s.zThreshold.IsZero() {
		zTriggered = snapshot.IVZScore.Abs().GreaterThan(s.zThreshold)
	}

	if !regimeTriggered && !zTriggered {
		return
	}

	if s.cooldown > 0 && !s.lastAlert.IsZero() && bucket.Sub(s.lastAlert) < s.cooldown {
		s.logger.Debug().Time("bucket", bucket).Time("last_alert", s.lastAlert).Msg("alert suppressed by cooldown")
		return
	}
	s.lastAlert = bucket

	note := alerting.Notification{
		Bucket:     bucket,
		Symbol:     snapshot.Symbol,
		Vol30:      snapshot.Vol30,
		Regime:     snapshot.Regime30,
		IVZScore:   snapshot.IVZScore,
		ThresholdZ: s.zThreshold,
		Channels:   s.channels,
	}

	if s.alertStore != nil {
		record := storage.VolAlert{
			SampleTS:   bucket,
			Symbol:     snapshot.Symbol,
			Vol30:      snapshot.Vol30,
			Regime:     snapshot.Regime30,
			IVZScore:   snapshot.IVZScore,
			ThresholdZ: s.zThreshold,
			Channels:   s.channels,
		}
		if _, err := s.alertStore.InsertVolAlert(ctx, record); err != nil {
			s.logger.Error().Err(err).Time("bucket", bucket).Msg("failed to persist alert record")
		}
	}

	if err := s.notifier.Notify(ctx, note); err != nil {
		s.logger.Error().Err(err).Time("bucket", bucket).Msg("failed to dispatch alert")
	}
}

func (s *Service) acquireLock(ctx context.Context) (func(), bool, error) {
	if s.lockKey == 0 || s.locker == nil {
		return nil, true, nil
	}
	unlock, acquired, err := s.locker.TryAdvisoryLock(ctx, s.lockKey)
	if err != nil {
		return nil, false, fmt.Errorf("acquire advisory lock: %w", err)
	}
	if !acquired {
		return nil, false, nil
	}
	return unlock, true, nil
}

func totalFlow(flows []analytics.FlowEstimate) decimal.Decimal {
	total := decimal.Zero
	for _, f := range flows {
		total = total.Add(decimal.NewFromFloat(f.Flow))
	}
	return total
}

func latestAverage(points []analytics.WeeklyAveragePoint) *float64 {
	for i := len(points) - 1; i >= 0; i-- {
		if points[i].Average != nil {
			return points[i].Average
		}
	}
	return nil
}
