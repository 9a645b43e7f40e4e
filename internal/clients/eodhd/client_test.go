package eodhd

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bregovic/shanon-sub001/internal/models"
)

func TestGetRealTimeQuote_ParsesResponse(t *testing.T) {
	ts := int64(1711670340) // 2024-03-28 23:59:00 UTC
	mockResp := map[string]interface{}{
		"code":          "CEZ.PR",
		"timestamp":     ts,
		"open":          1000.0,
		"high":          1020.0,
		"low":           995.0,
		"close":         1010.0,
		"volume":        float64(120000),
		"previousClose": 1002.0,
		"change":        8.0,
		"change_p":      "0.7984",
	}

	var capturedPath, capturedToken string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedPath = r.URL.Path
		capturedToken = r.URL.Query().Get("api_token")
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(mockResp)
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL))
	quote, err := client.GetRealTimeQuote(context.Background(), "CEZ.PR")
	if err != nil {
		t.Fatalf("GetRealTimeQuote failed: %v", err)
	}

	if capturedPath != "/real-time/CEZ.PR" {
		t.Errorf("expected path /real-time/CEZ.PR, got %s", capturedPath)
	}
	if capturedToken != "test-key" {
		t.Errorf("expected api_token test-key, got %s", capturedToken)
	}
	if quote.Close != 1010.0 {
		t.Errorf("expected close 1010, got %.2f", quote.Close)
	}
	if quote.ChangePct != 0.7984 {
		t.Errorf("expected change_p parsed from string, got %v", quote.ChangePct)
	}
	if quote.Volume != 120000 {
		t.Errorf("expected volume 120000, got %d", quote.Volume)
	}
	if !quote.Timestamp.Equal(time.Unix(ts, 0)) {
		t.Errorf("unexpected timestamp %v", quote.Timestamp)
	}
}

func TestTryFetch_MapsVariantAndNormalizes(t *testing.T) {
	var capturedPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedPath = r.URL.Path
		json.NewEncoder(w).Encode(map[string]interface{}{
			"code": "VOD.LSE", "close": 72.5, "previousClose": 71.0, "change": 1.5, "change_p": 2.11,
		})
	}))
	defer srv.Close()

	client := NewClient("k", WithBaseURL(srv.URL))
	rec, ok, err := client.TryFetch(context.Background(), "vod.l")
	if err != nil || !ok {
		t.Fatalf("TryFetch: ok=%v err=%v", ok, err)
	}
	if capturedPath != "/real-time/VOD.LSE" {
		t.Errorf("expected path /real-time/VOD.LSE, got %s", capturedPath)
	}
	if rec.Source != models.SourceEODHD || rec.Price != 72.5 || rec.Exchange != "LSE" {
		t.Errorf("unexpected record %+v", rec)
	}
}

func TestTryFetch_NAResponseIsNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":"NOPE.US","timestamp":"NA","close":"NA","previousClose":"NA","change":"NA","change_p":"NA"}`))
	}))
	defer srv.Close()

	rec, ok, err := NewClient("k", WithBaseURL(srv.URL)).TryFetch(context.Background(), "NOPE")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if ok || rec != nil {
		t.Errorf("expected not found, got ok=%v rec=%+v", ok, rec)
	}
}

func TestTryFetch_404IsNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Ticker Not Found.", http.StatusNotFound)
	}))
	defer srv.Close()

	_, ok, err := NewClient("k", WithBaseURL(srv.URL)).TryFetch(context.Background(), "XYZ")
	if err != nil || ok {
		t.Errorf("expected clean not-found, got ok=%v err=%v", ok, err)
	}
}

func TestTryFetch_ServerErrorIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "limit exceeded", http.StatusPaymentRequired)
	}))
	defer srv.Close()

	_, ok, err := NewClient("k", WithBaseURL(srv.URL)).TryFetch(context.Background(), "AAPL")
	if ok {
		t.Fatal("expected ok=false")
	}
	if !errors.Is(err, models.ErrProviderUnavailable) {
		t.Errorf("expected ErrProviderUnavailable, got %v", err)
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusPaymentRequired {
		t.Errorf("expected wrapped APIError 402, got %v", err)
	}
}

func TestTryFetch_MalformedBodyIsParseError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>maintenance</html>`))
	}))
	defer srv.Close()

	_, _, err := NewClient("k", WithBaseURL(srv.URL)).TryFetch(context.Background(), "AAPL")
	if !errors.Is(err, models.ErrParse) {
		t.Errorf("expected ErrParse, got %v", err)
	}
}

func TestTryFetch_TimeoutIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	client := NewClient("k", WithBaseURL(srv.URL), WithTimeout(20*time.Millisecond))
	_, _, err := client.TryFetch(context.Background(), "AAPL")
	if !errors.Is(err, models.ErrProviderUnavailable) {
		t.Errorf("expected ErrProviderUnavailable on timeout, got %v", err)
	}
}

func TestToEODHDSymbol(t *testing.T) {
	tests := []struct {
		variant, symbol, exchange string
	}{
		{"AAPL", "AAPL.US", "US"},
		{"CEZ.PR", "CEZ.PR", "PR"},
		{"VOD.L", "VOD.LSE", "LSE"},
		{"SAP.DE", "SAP.XETRA", "XETRA"},
		{"BHP.AX", "BHP.AU", "AU"},
		{"ABC.XX", "ABC.XX", "XX"},
	}
	for _, tt := range tests {
		symbol, exchange := ToEODHDSymbol(tt.variant)
		if symbol != tt.symbol || exchange != tt.exchange {
			t.Errorf("ToEODHDSymbol(%q) = (%q, %q), want (%q, %q)", tt.variant, symbol, exchange, tt.symbol, tt.exchange)
		}
	}
}
