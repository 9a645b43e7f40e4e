// Package models defines data structures for Shanon
package models

import (
	"strings"
	"time"
)

// Quote record status values
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

// Quote source identifiers
const (
	SourceEODHD        = "eodhd"
	SourceYahoo        = "yahoo"
	SourceAlphaVantage = "alphavantage"
	SourceManual       = "manual"
)

// QuoteRecord is the last known quote for one canonical ticker.
// Exactly one row exists per canonical ticker; no history is kept here.
type QuoteRecord struct {
	Ticker         string  `json:"ticker"`
	DisplayName    string  `json:"display_name,omitempty"`
	CompanyName    string  `json:"company_name,omitempty"`
	Source         string  `json:"source"`
	ProviderSymbol string  `json:"provider_symbol,omitempty"` // variant that produced the price, e.g. "CEZ.PR"
	Price          float64 `json:"price"`
	Currency       string  `json:"currency"`
	Exchange       string  `json:"exchange,omitempty"`
	AssetType      string  `json:"asset_type,omitempty"`
	PreviousClose  float64 `json:"previous_close"`
	DayHigh        float64 `json:"day_high"`
	DayLow         float64 `json:"day_low"`
	Change         float64 `json:"change"`
	ChangePct      float64 `json:"change_pct"`

	// Computed by the analytics job; nil means undefined
	High52w     *float64  `json:"high_52w"`
	Low52w      *float64  `json:"low_52w"`
	AllTimeHigh *float64  `json:"all_time_high"`
	AllTimeLow  *float64  `json:"all_time_low"`
	EMA212      *float64  `json:"ema_212"`
	AnalyticsAt time.Time `json:"analytics_at"`

	LastFetched  time.Time `json:"last_fetched"`
	Status       string    `json:"status"`
	TrackHistory bool      `json:"track_history"`
}

// HasPrice reports whether the record carries a usable price.
func (q *QuoteRecord) HasPrice() bool {
	return q != nil && q.Price > 0
}

// IsActive reports whether the ticker participates in scheduled analytics.
func (q *QuoteRecord) IsActive() bool {
	return q.Status == "" || q.Status == StatusActive
}

// MergeFetched overlays a freshly fetched quote onto the stored row.
// Price, identity and change fields come from fetched; analytics,
// status, history tracking and display name are kept from q.
func (q *QuoteRecord) MergeFetched(fetched *QuoteRecord) *QuoteRecord {
	merged := *fetched
	merged.High52w = q.High52w
	merged.Low52w = q.Low52w
	merged.AllTimeHigh = q.AllTimeHigh
	merged.AllTimeLow = q.AllTimeLow
	merged.EMA212 = q.EMA212
	merged.AnalyticsAt = q.AnalyticsAt
	merged.Status = q.Status
	merged.TrackHistory = q.TrackHistory
	if q.DisplayName != "" {
		merged.DisplayName = q.DisplayName
	}
	if merged.CompanyName == "" {
		merged.CompanyName = q.CompanyName
	}
	return &merged
}

// ApplyAnalytics writes computed analytics onto the record.
func (q *QuoteRecord) ApplyAnalytics(a *Analytics) {
	q.High52w = a.High52w
	q.Low52w = a.Low52w
	q.AllTimeHigh = a.AllTimeHigh
	q.AllTimeLow = a.AllTimeLow
	q.EMA212 = a.EMA
	q.AnalyticsAt = a.ComputedAt
}

// NormalizeTicker upper-cases and trims a raw ticker string.
func NormalizeTicker(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// NormalizeCurrency upper-cases and trims an ISO currency code.
func NormalizeCurrency(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
