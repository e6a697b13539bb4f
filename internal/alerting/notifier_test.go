package alerting

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

func sampleNotification() Notification {
	z := decimal.NewFromFloat(2.4)
	return Notification{
		Bucket:     time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC),
		Symbol:     "BTC/USD",
		Vol30:      decimal.NewFromFloat(0.612),
		Regime:     "high",
		IVZScore:   &z,
		ThresholdZ: decimal.NewFromFloat(2.0),
		Channels:   []string{"telegram"},
	}
}

func TestTelegramNotifySendsMessage(t *testing.T) {
	var captured map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/bottoken123/sendMessage") {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]bool{"ok": true})
	}))
	defer srv.Close()

	n := NewTelegramNotifier("token123", "chat42", srv.URL, time.Second, zerolog.Nop())
	if err := n.Notify(context.Background(), sampleNotification()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if captured["chat_id"] != "chat42" {
		t.Fatalf("chat_id = %q, want chat42", captured["chat_id"])
	}
	text := captured["text"]
	for _, want := range []string{"[Volatility Alert]", "BTC/USD", "Regime: high", "IV z-score: 2.40"} {
		if !strings.Contains(text, want) {
			t.Fatalf("message missing %q:\n%s", want, text)
		}
	}
}

func TestTelegramNotifyRejectsNotOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": false, "description": "chat not found"})
	}))
	defer srv.Close()

	n := NewTelegramNotifier("token123", "chat42", srv.URL, time.Second, zerolog.Nop())
	if err := n.Notify(context.Background(), sampleNotification()); err == nil {
		t.Fatal("ok=false response should be an error")
	}
}

func TestTelegramNotifyRejectsHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	n := NewTelegramNotifier("token123", "chat42", srv.URL, time.Second, zerolog.Nop())
	if err := n.Notify(context.Background(), sampleNotification()); err == nil {
		t.Fatal("HTTP 401 should be an error")
	}
}
