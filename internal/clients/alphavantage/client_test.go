package alphavantage

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bregovic/shanon-sub001/internal/models"
)

func TestTryFetch_ParsesGlobalQuote(t *testing.T) {
	var query map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = map[string]string{
			"function": r.URL.Query().Get("function"),
			"symbol":   r.URL.Query().Get("symbol"),
			"apikey":   r.URL.Query().Get("apikey"),
		}
		w.Write([]byte(`{"Global Quote": {
			"01. symbol": "VOD.LON", "02. open": "71.00", "03. high": "73.10", "04. low": "70.80",
			"05. price": "72.50", "06. volume": "123456", "07. latest trading day": "2024-03-28",
			"08. previous close": "71.00", "09. change": "1.50", "10. change percent": "2.1127%"}}`))
	}))
	defer srv.Close()

	rec, ok, err := NewClient("demo", WithBaseURL(srv.URL)).TryFetch(context.Background(), "VOD.L")
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, "GLOBAL_QUOTE", query["function"])
	assert.Equal(t, "VOD.LON", query["symbol"])
	assert.Equal(t, "demo", query["apikey"])
	assert.Equal(t, 72.5, rec.Price)
	assert.Equal(t, "LON", rec.Exchange)
	assert.Equal(t, 71.0, rec.PreviousClose)
	assert.InDelta(t, 2.1127, rec.ChangePct, 1e-9)
	assert.Equal(t, models.SourceAlphaVantage, rec.Source)
}

func TestTryFetch_EmptyGlobalQuoteIsNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"Global Quote": {}}`))
	}))
	defer srv.Close()

	_, ok, err := NewClient("demo", WithBaseURL(srv.URL)).TryFetch(context.Background(), "NOPE")
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestTryFetch_ThrottleNoteIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"Note": "Thank you for using Alpha Vantage! Our standard API call frequency is 5 calls per minute"}`))
	}))
	defer srv.Close()

	_, ok, err := NewClient("demo", WithBaseURL(srv.URL)).TryFetch(context.Background(), "IBM")
	assert.False(t, ok)
	assert.True(t, errors.Is(err, models.ErrProviderUnavailable), "got %v", err)
}

func TestTryFetch_BadPriceIsParseError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"Global Quote": {"05. price": "n/a"}}`))
	}))
	defer srv.Close()

	_, _, err := NewClient("demo", WithBaseURL(srv.URL)).TryFetch(context.Background(), "IBM")
	assert.True(t, errors.Is(err, models.ErrParse), "got %v", err)
}

func TestTryFetch_UnsupportedMarketSkipsRequest(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	_, ok, err := NewClient("demo", WithBaseURL(srv.URL)).TryFetch(context.Background(), "CEZ.PR")
	assert.NoError(t, err)
	assert.False(t, ok)
	assert.False(t, called, "no request expected for an unsupported market")
}

func TestToAlphaVantageSymbol(t *testing.T) {
	s, ok := ToAlphaVantageSymbol("ibm")
	assert.True(t, ok)
	assert.Equal(t, "IBM", s)

	s, ok = ToAlphaVantageSymbol("SAP.DE")
	assert.True(t, ok)
	assert.Equal(t, "SAP.DEX", s)

	_, ok = ToAlphaVantageSymbol("CEZ.PR")
	assert.False(t, ok)
}
