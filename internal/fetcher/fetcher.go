package fetcher

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"weekend-momentum/internal/analytics"
)

// BarFetcher retrieves an ascending OHLC(V) series for a symbol. The provider
// may return fewer bars than requested when history is limited.
type BarFetcher interface {
	FetchBars(ctx context.Context, symbol string, outputSize int, interval analytics.Interval) ([]analytics.Bar, error)
}

// SpotPriceFetcher retrieves a live spot price for cross-checking the latest
// close, along with the time the price was last updated.
type SpotPriceFetcher interface {
	FetchSpot(ctx context.Context) (decimal.Decimal, time.Time, error)
}
