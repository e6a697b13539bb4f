package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Symbols.Primary != "BTC/USD" {
		t.Fatalf("symbols.primary = %q, want BTC/USD", cfg.Symbols.Primary)
	}
	if cfg.Analytics.DailyLookback != 400 {
		t.Fatalf("analytics.daily_lookback = %d, want 400", cfg.Analytics.DailyLookback)
	}
	if cfg.Analytics.WeeklyLookback != 260 {
		t.Fatalf("analytics.weekly_lookback = %d, want 260", cfg.Analytics.WeeklyLookback)
	}
	if cfg.Scheduler.Interval != time.Minute {
		t.Fatalf("scheduler.interval = %s, want 1m", cfg.Scheduler.Interval)
	}
	if cfg.Alerting.ZScoreThreshold != 2.0 {
		t.Fatalf("alerting.zscore_threshold = %v, want 2.0", cfg.Alerting.ZScoreThreshold)
	}
	if cfg.Alerting.Enabled {
		t.Fatal("alerting should be disabled by default")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	base := func() *Config {
		cfg, err := Load("")
		if err != nil {
			t.Fatalf("load defaults: %v", err)
		}
		return cfg
	}

	cfg := base()
	cfg.Analytics.DailyLookback = 10
	if err := cfg.Validate(); err == nil {
		t.Fatal("daily lookback below 40 should fail validation")
	}

	cfg = base()
	cfg.Symbols.Primary = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("empty primary symbol should fail validation")
	}

	cfg = base()
	cfg.Symbols.FlowPairs = []FlowPair{{Fund: "IBIT"}}
	if err := cfg.Validate(); err == nil {
		t.Fatal("flow pair without underlying should fail validation")
	}

	cfg = base()
	cfg.Alerting.Telegram.Enabled = true
	if err := cfg.Validate(); err == nil {
		t.Fatal("telegram enabled without token should fail validation")
	}
}

func TestResolveMaxPoints(t *testing.T) {
	cfg := &Config{Export: ExportConfig{MaxDataPoints: 5000}}
	if got := cfg.ResolveMaxPoints(0); got != 5000 {
		t.Fatalf("ResolveMaxPoints(0) = %d, want config default", got)
	}
	if got := cfg.ResolveMaxPoints(250); got != 250 {
		t.Fatalf("ResolveMaxPoints(250) = %d, want override", got)
	}
}
