package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// FxRate is the price of Amount units of Currency in the reporting currency on Date.
// At most one row exists per (currency, date).
type FxRate struct {
	Currency string          `json:"currency"`
	Date     time.Time       `json:"date"`
	Rate     decimal.Decimal `json:"rate"`
	Amount   int64           `json:"amount"`
	Source   string          `json:"source,omitempty"`
}

// PerUnit returns rate / amount. A non-positive amount is treated as 1.
func (r *FxRate) PerUnit() decimal.Decimal {
	if r.Amount <= 0 {
		return r.Rate
	}
	return r.Rate.Div(decimal.NewFromInt(r.Amount))
}

// RatePair identifies one FX lookup in a batch.
type RatePair struct {
	Currency string `json:"currency"`
	Date     string `json:"date"`
}

// Key returns the "date|currency" key used by batch results.
func (p RatePair) Key() string {
	return p.Date + "|" + NormalizeCurrency(p.Currency)
}

// RateResult is the outcome of a single-rate lookup.
type RateResult struct {
	Currency string    `json:"currency"`
	Date     string    `json:"date"`
	Rate     float64   `json:"rate"`
	Found    bool      `json:"found"`
	RateDate time.Time `json:"rate_date,omitempty"` // date of the row actually used
}

// FxImportResult summarises one fixing import.
type FxImportResult struct {
	Date     string   `json:"date"`
	Imported int      `json:"imported"`
	Rates    []string `json:"currencies"`
}
