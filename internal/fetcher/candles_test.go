package fetcher

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"weekend-momentum/internal/analytics"
)

func noopLogger() zerolog.Logger {
	return zerolog.Nop()
}

func TestFetchBarsMissingAPIKey(t *testing.T) {
	c := NewCandles(CandlesOptions{}, noopLogger())
	if _, err := c.FetchBars(context.Background(), "BTC/USD", 10, analytics.IntervalDaily); err == nil {
		t.Fatal("missing api key should be an error")
	}
}

func TestFetchBarsHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]any{"status": "error", "code": 400, "message": "symbol not found"})
	}))
	defer srv.Close()

	c := NewCandles(CandlesOptions{BaseURL: srv.URL, APIKey: "key", Timeout: time.Second}, noopLogger())
	if _, err := c.FetchBars(context.Background(), "NOPE", 10, analytics.IntervalDaily); err == nil {
		t.Fatal("HTTP 400 should be an error")
	}
}

func TestFetchBarsAPIErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"status": "error", "message": "rate limited"})
	}))
	defer srv.Close()

	c := NewCandles(CandlesOptions{BaseURL: srv.URL, APIKey: "key", Timeout: time.Second}, noopLogger())
	if _, err := c.FetchBars(context.Background(), "BTC/USD", 10, analytics.IntervalDaily); err == nil {
		t.Fatal("api error status should be an error even on HTTP 200")
	}
}

func TestFetchBarsSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("symbol") != "BTC/USD" || q.Get("interval") != "1day" || q.Get("outputsize") != "2" {
			t.Fatalf("unexpected query: %s", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "application/json")
		// Newest first, as the provider returns them.
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status": "ok",
			"values": []map[string]string{
				{"datetime": "2024-01-08", "open": "98", "high": "100", "low": "97", "close": "103", "volume": "1200"},
				{"datetime": "2024-01-05", "open": "100", "high": "105", "low": "98", "close": "102", "volume": "1000"},
			},
		})
	}))
	defer srv.Close()

	c := NewCandles(CandlesOptions{BaseURL: srv.URL, APIKey: "key", Timeout: time.Second}, noopLogger())
	bars, err := c.FetchBars(context.Background(), "BTC/USD", 2, analytics.IntervalDaily)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(bars) != 2 {
		t.Fatalf("expected 2 bars, got %d", len(bars))
	}
	if !bars[0].Date.Before(bars[1].Date) {
		t.Fatal("bars should be returned ascending by date")
	}
	if bars[0].Open != 100 || bars[0].Close != 102 || bars[0].Volume != 1000 {
		t.Fatalf("first bar parsed incorrectly: %+v", bars[0])
	}
	if bars[1].High != 100 || bars[1].Low != 97 {
		t.Fatalf("second bar parsed incorrectly: %+v", bars[1])
	}
}

func TestFetchBarsEmptyResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"status": "ok", "values": []map[string]string{}})
	}))
	defer srv.Close()

	c := NewCandles(CandlesOptions{BaseURL: srv.URL, APIKey: "key", Timeout: time.Second}, noopLogger())
	if _, err := c.FetchBars(context.Background(), "BTC/USD", 10, analytics.IntervalDaily); err == nil {
		t.Fatal("no bars at all should be an error for the caller to handle")
	}
}

func TestChainlinkMissingConfig(t *testing.T) {
	c := NewChainlink(ChainlinkOptions{}, noopLogger())
	if _, _, err := c.FetchSpot(context.Background()); err == nil {
		t.Fatal("missing rpc url should be an error")
	}

	c = NewChainlink(ChainlinkOptions{RPCURL: "http://localhost"}, noopLogger())
	if _, _, err := c.FetchSpot(context.Background()); err == nil {
		t.Fatal("missing feed address should be an error")
	}
}
