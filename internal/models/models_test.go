package models

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(v float64) *float64 { return &v }

func TestQuoteRecord_MergeFetchedPreservesAnalytics(t *testing.T) {
	analyticsAt := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	stored := &QuoteRecord{
		Ticker:       "CEZ",
		DisplayName:  "ČEZ",
		CompanyName:  "CEZ a.s.",
		Price:        900,
		High52w:      ptr(1100),
		Low52w:       ptr(800),
		EMA212:       ptr(950),
		AnalyticsAt:  analyticsAt,
		Status:       StatusInactive,
		TrackHistory: true,
	}
	fetched := &QuoteRecord{
		Ticker:      "CEZ",
		Source:      SourceYahoo,
		Price:       1010,
		Currency:    "CZK",
		Exchange:    "PR",
		LastFetched: analyticsAt.Add(24 * time.Hour),
	}

	merged := stored.MergeFetched(fetched)

	assert.Equal(t, 1010.0, merged.Price)
	assert.Equal(t, SourceYahoo, merged.Source)
	assert.Equal(t, "CZK", merged.Currency)
	assert.Equal(t, "ČEZ", merged.DisplayName)
	assert.Equal(t, "CEZ a.s.", merged.CompanyName)
	require.NotNil(t, merged.High52w)
	assert.Equal(t, 1100.0, *merged.High52w)
	require.NotNil(t, merged.EMA212)
	assert.Equal(t, 950.0, *merged.EMA212)
	assert.Equal(t, analyticsAt, merged.AnalyticsAt)
	assert.Equal(t, StatusInactive, merged.Status)
	assert.True(t, merged.TrackHistory)
	// The fetched value itself is not mutated
	assert.Nil(t, fetched.High52w)
}

func TestNormalizeTicker(t *testing.T) {
	assert.Equal(t, "AAPL", NormalizeTicker("  aapl "))
	assert.Equal(t, "CEZ.PR", NormalizeTicker("cez.pr"))
}

func TestFxRate_PerUnit(t *testing.T) {
	r := FxRate{Rate: decimal.RequireFromString("16.543"), Amount: 100}
	assert.True(t, r.PerUnit().Equal(decimal.RequireFromString("0.16543")))

	r = FxRate{Rate: decimal.RequireFromString("24.5"), Amount: 0}
	assert.True(t, r.PerUnit().Equal(decimal.RequireFromString("24.5")))
}

func TestRatePair_Key(t *testing.T) {
	assert.Equal(t, "2024-01-05|USD", RatePair{Currency: "usd", Date: "2024-01-05"}.Key())
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-01-05")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), d)

	_, err = ParseDate("05.01.2024")
	assert.Error(t, err)
}

func TestErrorKinds(t *testing.T) {
	perr := &ProviderError{Provider: "eodhd", Variant: "CEZ.PR", Kind: ErrProviderUnavailable, Err: errors.New("timeout")}
	assert.ErrorIs(t, perr, ErrProviderUnavailable)
	assert.NotErrorIs(t, perr, ErrParse)

	serr := WrapStoreError("get quote", errors.New("connection refused"))
	assert.ErrorIs(t, serr, ErrStoreUnavailable)
	assert.ErrorIs(t, fmt.Errorf("outer: %w", serr), ErrStoreUnavailable)

	assert.NoError(t, WrapStoreError("get", nil))
	assert.Equal(t, ErrNotFound, WrapStoreError("get", ErrNotFound))

	ferr := &FetchError{Ticker: "XYZ", Attempts: []FetchAttempt{
		{Provider: "eodhd", Variant: "XYZ", Outcome: OutcomeNotFound},
		{Provider: "yahoo", Variant: "XYZ", Outcome: OutcomeUnavailable, Error: "status 503"},
	}}
	assert.ErrorIs(t, ferr, ErrQuoteNotFound)
	assert.Contains(t, ferr.Error(), "yahoo[XYZ]=unavailable")
}
