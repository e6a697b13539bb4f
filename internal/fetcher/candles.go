package fetcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"weekend-momentum/internal/analytics"
)

const timeSeriesPath = "/time_series"

// CandlesOptions parameterise the HTTP quote-provider client.
type CandlesOptions struct {
	BaseURL   string
	APIKey    string
	Timeout   time.Duration
	UserAgent string
}

// Candles fetches OHLC time series from a TwelveData-style quote API.
type Candles struct {
	opts    CandlesOptions
	logger  zerolog.Logger
	client  *http.Client
	baseURL string
}

// NewCandles constructs a quote-provider client.
func NewCandles(opts CandlesOptions, logger zerolog.Logger) *Candles {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.twelvedata.com"
	}

	return &Candles{
		opts:    opts,
		logger:  logger.With().Str("component", "candles_fetcher").Logger(),
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

// FetchBars retrieves up to outputSize bars for symbol, ascending by date.
func (c *Candles) FetchBars(ctx context.Context, symbol string, outputSize int, interval analytics.Interval) ([]analytics.Bar, error) {
	if c.opts.APIKey == "" {
		return nil, errors.New("quote provider api key not configured")
	}
	if symbol == "" {
		return nil, errors.New("symbol required")
	}
	if outputSize <= 0 {
		return nil, errors.New("output size must be greater than zero")
	}

	query := url.Values{}
	query.Set("symbol", symbol)
	query.Set("interval", string(interval))
	query.Set("outputsize", strconv.Itoa(outputSize))
	query.Set("apikey", c.opts.APIKey)

	endpoint := c.baseURL + timeSeriesPath + "?" + query.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if ua := strings.TrimSpace(c.opts.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	} else {
		req.Header.Set("User-Agent", "weekendwatch/1.0")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, parseHTTPError(resp.StatusCode, payload)
	}

	var series timeSeriesResponse
	if err := json.Unmarshal(payload, &series); err != nil {
		return nil, err
	}
	if strings.EqualFold(series.Status, "error") {
		if series.Message != "" {
			return nil, fmt.Errorf("quote api error: %s", series.Message)
		}
		return nil, errors.New("quote api returned error status")
	}
	if len(series.Values) == 0 {
		return nil, fmt.Errorf("quote api returned no bars for %s", symbol)
	}

	bars := make([]analytics.Bar, 0, len(series.Values))
	for _, v := range series.Values {
		bar, err := v.toBar()
		if err != nil {
			return nil, fmt.Errorf("parse bar for %s: %w", symbol, err)
		}
		bars = append(bars, bar)
	}

	// Providers return newest first; analytics expects ascending order.
	sort.Slice(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })

	return bars, nil
}

type timeSeriesResponse struct {
	Status  string           `json:"status"`
	Message string           `json:"message"`
	Values  []timeSeriesItem `json:"values"`
}

type timeSeriesItem struct {
	Datetime string `json:"datetime"`
	Open     string `json:"open"`
	High     string `json:"high"`
	Low      string `json:"low"`
	Close    string `json:"close"`
	Volume   string `json:"volume"`
}

var barDateLayouts = []string{"2006-01-02", "2006-01-02 15:04:05", time.RFC3339}

func (v timeSeriesItem) toBar() (analytics.Bar, error) {
	var date time.Time
	var err error
	for _, layout := range barDateLayouts {
		date, err = time.ParseInLocation(layout, v.Datetime, time.UTC)
		if err == nil {
			break
		}
	}
	if err != nil {
		return analytics.Bar{}, fmt.Errorf("parse datetime %q: %w", v.Datetime, err)
	}

	open, err := strconv.ParseFloat(v.Open, 64)
	if err != nil {
		return analytics.Bar{}, fmt.Errorf("parse open: %w", err)
	}
	high, err := strconv.ParseFloat(v.High, 64)
	if err != nil {
		return analytics.Bar{}, fmt.Errorf("parse high: %w", err)
	}
	low, err := strconv.ParseFloat(v.Low, 64)
	if err != nil {
		return analytics.Bar{}, fmt.Errorf("parse low: %w", err)
	}
	closePx, err := strconv.ParseFloat(v.Close, 64)
	if err != nil {
		return analytics.Bar{}, fmt.Errorf("parse close: %w", err)
	}

	volume := 0.0
	if v.Volume != "" {
		volume, err = strconv.ParseFloat(v.Volume, 64)
		if err != nil {
			return analytics.Bar{}, fmt.Errorf("parse volume: %w", err)
		}
	}

	return analytics.Bar{
		Date:   date,
		Open:   open,
		High:   high,
		Low:    low,
		Close:  closePx,
		Volume: volume,
	}, nil
}

type errorResponse struct {
	Status  string `json:"status"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func parseHTTPError(status int, payload []byte) error {
	var apiErr errorResponse
	if err := json.Unmarshal(payload, &apiErr); err == nil && apiErr.Message != "" {
		return fmt.Errorf("quote api error (%d): %s", status, apiErr.Message)
	}
	if len(payload) > 0 {
		return fmt.Errorf("quote api error (%d): %s", status, strings.TrimSpace(string(payload)))
	}
	return fmt.Errorf("quote api error (%d)", status)
}

var _ BarFetcher = (*Candles)(nil)
