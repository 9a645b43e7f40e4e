package models

import (
	"strings"
	"time"
)

// TickerAlias maps a historical or renamed symbol onto its canonical ticker.
type TickerAlias struct {
	Alias       string    `json:"alias"`
	Canonical   string    `json:"canonical"`
	DisplayName string    `json:"display_name,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// PriceHistoryPoint is one daily price observation.
type PriceHistoryPoint struct {
	Ticker string    `json:"ticker"`
	Date   time.Time `json:"date"`
	Price  float64   `json:"price"`
}

// Analytics holds values derived from a ticker's price history.
type Analytics struct {
	Ticker      string    `json:"ticker"`
	High52w     *float64  `json:"high_52w"`
	Low52w      *float64  `json:"low_52w"`
	AllTimeHigh *float64  `json:"all_time_high"`
	AllTimeLow  *float64  `json:"all_time_low"`
	EMA         *float64  `json:"ema"`
	Points      int       `json:"points"`
	AsOf        time.Time `json:"as_of"`
	ComputedAt  time.Time `json:"computed_at"`
}

// ManualPrice is an operator-entered price used as the last-resort quote source.
type ManualPrice struct {
	Symbol    string    `json:"symbol"`
	Price     float64   `json:"price"`
	Currency  string    `json:"currency"`
	Note      string    `json:"note,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// WatchlistEntry marks a ticker a user wants kept fresh.
type WatchlistEntry struct {
	UserID  string `json:"user_id"`
	Ticker  string `json:"ticker"`
	Watched bool   `json:"watched"`
}

// DateLayout is the canonical calendar date format used in keys and APIs.
const DateLayout = "2006-01-02"

// TruncateDay returns t as midnight UTC of its calendar day.
func TruncateDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD date as midnight UTC.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, strings.TrimSpace(s), time.UTC)
}

// FormatDate formats t as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return TruncateDay(t).Format(DateLayout)
}
