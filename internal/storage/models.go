package storage

import (
	"time"

	"github.com/shopspring/decimal"
)

// Snapshot is one persisted analytics observation for a bucket.
type Snapshot struct {
	Bucket    time.Time
	Symbol    string
	SpotPrice *decimal.Decimal

	Vol30    decimal.Decimal
	Vol60    decimal.Decimal
	Vol90    decimal.Decimal
	Regime30 string

	IVZScore *decimal.Decimal
	IVSource *string

	MA200W *decimal.Decimal

	WeekendCount       int
	MonBelowFriPct     decimal.Decimal
	AvgWeekendDrawdown decimal.Decimal

	FlowTotal decimal.Decimal

	Status    string
	Error     *string
	CreatedAt time.Time
}

// VolAlert captures an emitted volatility alert for de-duplication/auditing.
type VolAlert struct {
	ID         int64
	SampleTS   time.Time
	Symbol     string
	Vol30      decimal.Decimal
	Regime     string
	IVZScore   *decimal.Decimal
	ThresholdZ decimal.Decimal
	Channels   []string
	CreatedAt  time.Time
}
