package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")

	// ErrSnapshotNotFound indicates no snapshot row matched the key.
	ErrSnapshotNotFound = errors.New("storage: snapshot not found")
)

const (
	upsertSnapshotSQL = `INSERT INTO snapshots (
        bucket_ts,
        symbol,
        spot_price,
        vol_30d,
        vol_60d,
        vol_90d,
        regime_30d,
        iv_zscore,
        iv_source,
        ma_200w,
        weekend_count,
        mon_below_fri_pct,
        avg_weekend_drawdown,
        flow_total,
        status,
        error
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16
    )
    ON CONFLICT (bucket_ts, symbol) DO UPDATE
    SET
        spot_price           = EXCLUDED.spot_price,
        vol_30d              = EXCLUDED.vol_30d,
        vol_60d              = EXCLUDED.vol_60d,
        vol_90d              = EXCLUDED.vol_90d,
        regime_30d           = EXCLUDED.regime_30d,
        iv_zscore            = EXCLUDED.iv_zscore,
        iv_source            = EXCLUDED.iv_source,
        ma_200w              = EXCLUDED.ma_200w,
        weekend_count        = EXCLUDED.weekend_count,
        mon_below_fri_pct    = EXCLUDED.mon_below_fri_pct,
        avg_weekend_drawdown = EXCLUDED.avg_weekend_drawdown,
        flow_total           = EXCLUDED.flow_total,
        status               = EXCLUDED.status,
        error                = EXCLUDED.error;`

	selectSnapshotColumns = `SELECT
        bucket_ts,
        symbol,
        spot_price,
        vol_30d,
        vol_60d,
        vol_90d,
        regime_30d,
        iv_zscore,
        iv_source,
        ma_200w,
        weekend_count,
        mon_below_fri_pct,
        avg_weekend_drawdown,
        flow_total,
        status,
        error,
        created_at
    FROM snapshots`

	listSnapshotsBetweenSQL = selectSnapshotColumns + `
    WHERE bucket_ts >= $1
      AND bucket_ts < $2
    ORDER BY bucket_ts;`

	listRecentSnapshotsSQL = selectSnapshotColumns + `
    ORDER BY bucket_ts DESC
    LIMIT $1;`

	markSnapshotErroredSQL = `UPDATE snapshots
    SET status = 'errored', error = $3
    WHERE bucket_ts = $1 AND symbol = $2;`

	countSnapshotsSQL = `SELECT COUNT(*) FROM snapshots;`

	insertVolAlertSQL = `INSERT INTO vol_alerts (
        sample_ts,
        symbol,
        vol_30d,
        regime,
        iv_zscore,
        threshold_z,
        channels
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7
    )
    ON CONFLICT (sample_ts, symbol) DO UPDATE
    SET vol_30d     = EXCLUDED.vol_30d,
        regime      = EXCLUDED.regime,
        iv_zscore   = EXCLUDED.iv_zscore,
        threshold_z = EXCLUDED.threshold_z,
        channels    = EXCLUDED.channels
    RETURNING id, sample_ts, symbol, vol_30d, regime, iv_zscore, threshold_z, channels, created_at;`

	listRecentVolAlertsSQL = `SELECT
        id,
        sample_ts,
        symbol,
        vol_30d,
        regime,
        iv_zscore,
        threshold_z,
        channels,
        created_at
    FROM vol_alerts
    ORDER BY created_at DESC
    LIMIT $1;`

	deleteVolAlertsBeforeSQL = `DELETE FROM vol_alerts WHERE created_at < $1;`

	tryAdvisoryLockSQL = `SELECT pg_try_advisory_lock($1);`
	advisoryUnlockSQL  = `SELECT pg_advisory_unlock($1);`
)

// SnapshotStore defines operations for snapshot persistence.
type SnapshotStore interface {
	UpsertSnapshot(ctx context.Context, snapshot Snapshot) error
	ListSnapshotsBetween(ctx context.Context, from, to time.Time) ([]Snapshot, error)
	ListRecentSnapshots(ctx context.Context, limit int) ([]Snapshot, error)
	MarkSnapshotErrored(ctx context.Context, bucket time.Time, symbol, errMsg string) error
	CountSnapshots(ctx context.Context) (int64, error)
}

// VolAlertStore defines operations for alert auditing.
type VolAlertStore interface {
	InsertVolAlert(ctx context.Context, alert VolAlert) (VolAlert, error)
	ListRecentVolAlerts(ctx context.Context, limit int) ([]VolAlert, error)
	DeleteVolAlertsBefore(ctx context.Context, olderThan time.Time) error
}

// AdvisoryLocker exposes advisory lock helpers.
type AdvisoryLocker interface {
	TryAdvisoryLock(ctx context.Context, key int64) (unlock func(), acquired bool, err error)
}

// Store aggregates access to snapshots and alerts.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wires a pgx pool into a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// TryAdvisoryLock attempts to acquire a postgres advisory lock and returns a release func.
func (s *Store) TryAdvisoryLock(ctx context.Context, key int64) (func(), bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, false, err
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("acquire connection: %w", err)
	}

	var acquired bool
	if err := conn.QueryRow(ctx, tryAdvisoryLockSQL, key).Scan(&acquired); err != nil {
		conn.Release()
		return nil, false, fmt.Errorf("try advisory lock: %w", err)
	}
	if !acquired {
		conn.Release()
		return nil, false, nil
	}

	unlock := func() {
		ctxUnlock, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		// Best effort; the lock is released anyway when the connection closes.
		_, _ = conn.Exec(ctxUnlock, advisoryUnlockSQL, key)
		conn.Release()
	}
	return unlock, true, nil
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// UpsertSnapshot persists or updates a snapshot.
func (s *Store) UpsertSnapshot(ctx context.Context, snapshot Snapshot) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	var spot interface{}
	if snapshot.SpotPrice != nil {
		spot = snapshot.SpotPrice.String()
	}
	var zscore interface{}
	if snapshot.IVZScore != nil {
		zscore = snapshot.IVZScore.String()
	}
	var ivSource interface{}
	if snapshot.IVSource != nil {
		ivSource = *snapshot.IVSource
	}
	var ma interface{}
	if snapshot.MA200W != nil {
		ma = snapshot.MA200W.String()
	}
	var errMsg interface{}
	if snapshot.Error != nil {
		errMsg = *snapshot.Error
	}

	_, execErr := pool.Exec(ctx, upsertSnapshotSQL,
		snapshot.Bucket,
		snapshot.Symbol,
		spot,
		snapshot.Vol30.String(),
		snapshot.Vol60.String(),
		snapshot.Vol90.String(),
		snapshot.Regime30,
		zscore,
		ivSource,
		ma,
		snapshot.WeekendCount,
		snapshot.MonBelowFriPct.String(),
		snapshot.AvgWeekendDrawdown.String(),
		snapshot.FlowTotal.String(),
		snapshot.Status,
		errMsg,
	)
	if execErr != nil {
		return fmt.Errorf("upsert snapshot: %w", execErr)
	}
	return nil
}

// ListSnapshotsBetween lists snapshots within a time window.
func (s *Store) ListSnapshotsBetween(ctx context.Context, from, to time.Time) ([]Snapshot, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listSnapshotsBetweenSQL, from, to)
	if queryErr != nil {
		return nil, fmt.Errorf("list snapshots between: %w", queryErr)
	}
	defer rows.Close()

	snapshots := make([]Snapshot, 0)
	for rows.Next() {
		snapshot, scanErr := scanSnapshot(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		snapshots = append(snapshots, snapshot)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return snapshots, nil
}

// ListRecentSnapshots lists the most recent snapshots ordered by descending bucket.
func (s *Store) ListRecentSnapshots(ctx context.Context, limit int) ([]Snapshot, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentSnapshotsSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent snapshots: %w", queryErr)
	}
	defer rows.Close()

	snapshots := make([]Snapshot, 0, limit)
	for rows.Next() {
		snapshot, scanErr := scanSnapshot(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		snapshots = append(snapshots, snapshot)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return snapshots, nil
}

// MarkSnapshotErrored marks a snapshot as errored.
func (s *Store) MarkSnapshotErrored(ctx context.Context, bucket time.Time, symbol, errMsg string) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	cmdTag, execErr := pool.Exec(ctx, markSnapshotErroredSQL, bucket, symbol, errMsg)
	if execErr != nil {
		return fmt.Errorf("mark snapshot errored: %w", execErr)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrSnapshotNotFound
	}
	return nil
}

// CountSnapshots counts stored snapshots.
func (s *Store) CountSnapshots(ctx context.Context) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}
	var count int64
	if scanErr := pool.QueryRow(ctx, countSnapshotsSQL).Scan(&count); scanErr != nil {
		return 0, fmt.Errorf("count snapshots: %w", scanErr)
	}
	return count, nil
}

// InsertVolAlert persists an alert emission.
func (s *Store) InsertVolAlert(ctx context.Context, alert VolAlert) (VolAlert, error) {
	pool, err := s.getPool()
	if err != nil {
		return VolAlert{}, err
	}

	var zscore interface{}
	if alert.IVZScore != nil {
		zscore = alert.IVZScore.String()
	}

	row := pool.QueryRow(ctx, insertVolAlertSQL,
		alert.SampleTS,
		alert.Symbol,
		alert.Vol30.String(),
		alert.Regime,
		zscore,
		alert.ThresholdZ.String(),
		alert.Channels,
	)

	rec, scanErr := scanVolAlert(row)
	if scanErr != nil {
		return VolAlert{}, fmt.Errorf("insert vol alert: %w", scanErr)
	}
	return rec, nil
}

// ListRecentVolAlerts lists most recent alerts.
func (s *Store) ListRecentVolAlerts(ctx context.Context, limit int) ([]VolAlert, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentVolAlertsSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent vol alerts: %w", queryErr)
	}
	defer rows.Close()

	alerts := make([]VolAlert, 0, limit)
	for rows.Next() {
		rec, scanErr := scanVolAlert(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		alerts = append(alerts, rec)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return alerts, nil
}

// DeleteVolAlertsBefore deletes historical alerts.
func (s *Store) DeleteVolAlertsBefore(ctx context.Context, olderThan time.Time) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if _, execErr := pool.Exec(ctx, deleteVolAlertsBeforeSQL, olderThan); execErr != nil {
		return fmt.Errorf("delete vol alerts before: %w", execErr)
	}
	return nil
}

func scanSnapshot(row pgx.Row) (Snapshot, error) {
	var (
		bucket       time.Time
		symbol       string
		spotStr      sql.NullString
		vol30Str     string
		vol60Str     string
		vol90Str     string
		regime       string
		zscoreStr    sql.NullString
		ivSource     sql.NullString
		maStr        sql.NullString
		weekendCount int
		monBelowStr  string
		drawdownStr  string
		flowStr      string
		status       string
		errMsg       sql.NullString
		createdAt    time.Time
	)

	if err := row.Scan(
		&bucket,
		&symbol,
		&spotStr,
		&vol30Str,
		&vol60Str,
		&vol90Str,
		&regime,
		&zscoreStr,
		&ivSource,
		&maStr,
		&weekendCount,
		&monBelowStr,
		&drawdownStr,
		&flowStr,
		&status,
		&errMsg,
		&createdAt,
	); err != nil {
		return Snapshot{}, err
	}

	snapshot := Snapshot{
		Bucket:       bucket,
		Symbol:       symbol,
		Regime30:     regime,
		WeekendCount: weekendCount,
		Status:       status,
		CreatedAt:    createdAt,
	}

	var err error
	if snapshot.Vol30, err = decimal.NewFromString(vol30Str); err != nil {
		return Snapshot{}, fmt.Errorf("parse vol_30d: %w", err)
	}
	if snapshot.Vol60, err = decimal.NewFromString(vol60Str); err != nil {
		return Snapshot{}, fmt.Errorf("parse vol_60d: %w", err)
	}
	if snapshot.Vol90, err = decimal.NewFromString(vol90Str); err != nil {
		return Snapshot{}, fmt.Errorf("parse vol_90d: %w", err)
	}
	if snapshot.MonBelowFriPct, err = decimal.NewFromString(monBelowStr); err != nil {
		return Snapshot{}, fmt.Errorf("parse mon_below_fri_pct: %w", err)
	}
	if snapshot.AvgWeekendDrawdown, err = decimal.NewFromString(drawdownStr); err != nil {
		return Snapshot{}, fmt.Errorf("parse avg_weekend_drawdown: %w", err)
	}
	if snapshot.FlowTotal, err = decimal.NewFromString(flowStr); err != nil {
		return Snapshot{}, fmt.Errorf("parse flow_total: %w", err)
	}

	if spotStr.Valid {
		spot, convErr := decimal.NewFromString(spotStr.String)
		if convErr != nil {
			return Snapshot{}, fmt.Errorf("parse spot_price: %w", convErr)
		}
		snapshot.SpotPrice = &spot
	}
	if zscoreStr.Valid {
		z, convErr := decimal.NewFromString(zscoreStr.String)
		if convErr != nil {
			return Snapshot{}, fmt.Errorf("parse iv_zscore: %w", convErr)
		}
		snapshot.IVZScore = &z
	}
	if ivSource.Valid {
		src := ivSource.String
		snapshot.IVSource = &src
	}
	if maStr.Valid {
		ma, convErr := decimal.NewFromString(maStr.String)
		if convErr != nil {
			return Snapshot{}, fmt.Errorf("parse ma_200w: %w", convErr)
		}
		snapshot.MA200W = &ma
	}
	if errMsg.Valid {
		msg := errMsg.String
		snapshot.Error = &msg
	}

	return snapshot, nil
}

func scanVolAlert(row pgx.Row) (VolAlert, error) {
	var (
		rec          VolAlert
		vol30Str     string
		zscoreStr    sql.NullString
		thresholdStr string
	)

	if err := row.Scan(
		&rec.ID,
		&rec.SampleTS,
		&rec.Symbol,
		&vol30Str,
		&rec.Regime,
		&zscoreStr,
		&thresholdStr,
		&rec.Channels,
		&rec.CreatedAt,
	); err != nil {
		return VolAlert{}, err
	}

	var err error
	if rec.Vol30, err = decimal.NewFromString(vol30Str); err != nil {
		return VolAlert{}, fmt.Errorf("parse vol_30d: %w", err)
	}
	if rec.ThresholdZ, err = decimal.NewFromString(thresholdStr); err != nil {
		return VolAlert{}, fmt.Errorf("parse threshold_z: %w", err)
	}
	if zscoreStr.Valid {
		z, convErr := decimal.NewFromString(zscoreStr.String)
		if convErr != nil {
			return VolAlert{}, fmt.Errorf("parse iv_zscore: %w", convErr)
		}
		rec.IVZScore = &z
	}

	return rec, nil
}
