package app

import (
	"context"
	"errors"
	"time"

	"weekend-momentum/internal/service"
	"weekend-momentum/internal/storage"
)

// Backfill recomputes snapshots for historical buckets.
func (a *App) Backfill(ctx context.Context, opts BackfillOptions) error {
	interval := a.Config.Scheduler.Interval
	if interval <= 0 {
		return errors.New("scheduler interval not configured")
	}

	start := alignForward(opts.From.UTC(), interval)
	end := opts.To.UTC()
	if !start.Before(end) {
		return errors.New("backfill range is empty; check --from/--to")
	}

	var store *storage.Store
	var closeStore func()
	var err error
	var snapshotStore storage.SnapshotStore

	if opts.DryRun {
		a.Logger.Warn().Msg("backfill dry-run: nothing will be written")
	} else {
		store, closeStore, err = a.openStore(ctx)
		if err != nil {
			return err
		}
		if store == nil {
			return errors.New("database.dsn not configured; cannot backfill")
		}
		if closeStore != nil {
			defer closeStore()
		}
		snapshotStore = store
	}

	bars := a.newBarFetcher()
	spot := a.newSpotFetcher()

	svc := service.New(a.Config, nil, bars, spot, snapshotStore, nil, nil, a.Logger)

	processed := 0
	failed := 0
	for bucket := start; bucket.Before(end); bucket = bucket.Add(interval) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := svc.ProcessBucket(ctx, bucket); err != nil {
			failed++
			a.Logger.Error().Err(err).Time("bucket", bucket).Msg("backfill bucket failed")
			continue
		}
		processed++
	}

	a.Logger.Info().Int("processed", processed).Int("failed", failed).Msg("backfill finished")
	if failed > 0 {
		return errors.New("some buckets failed to backfill; check logs")
	}
	return nil
}

func alignForward(t time.Time, interval time.Duration) time.Time {
	truncated := t.Truncate(interval)
	if truncated.Before(t) {
		return truncated.Add(interval)
	}
	return truncated
}
