package sqldb

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bregovic/shanon-sub001/internal/models"
)

type aliasRow struct {
	Alias       string    `gorm:"primaryKey;size:64"`
	Canonical   string    `gorm:"size:64;not null;index"`
	DisplayName string    `gorm:"size:255"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime:false"`
}

func (aliasRow) TableName() string { return "aliases" }

func (r aliasRow) toModel() *models.TickerAlias {
	return &models.TickerAlias{Alias: r.Alias, Canonical: r.Canonical, DisplayName: r.DisplayName, UpdatedAt: r.UpdatedAt}
}

type quoteRow struct {
	Ticker         string `gorm:"primaryKey;size:64"`
	DisplayName    string `gorm:"size:255"`
	CompanyName    string `gorm:"size:255"`
	Source         string `gorm:"size:32"`
	ProviderSymbol string `gorm:"size:64"`
	Price          float64
	Currency       string `gorm:"size:8"`
	Exchange       string `gorm:"size:32"`
	AssetType      string `gorm:"size:32"`
	PreviousClose  float64
	DayHigh        float64
	DayLow         float64
	Change         float64
	ChangePct      float64

	High52w     *float64
	Low52w      *float64
	AllTimeHigh *float64
	AllTimeLow  *float64
	EMA212      *float64 `gorm:"column:ema_212"`
	AnalyticsAt time.Time

	LastFetched  time.Time
	Status       string `gorm:"size:16;index"`
	TrackHistory bool
}

func (quoteRow) TableName() string { return "quotes" }

func newQuoteRow(q *models.QuoteRecord) quoteRow {
	return quoteRow{
		Ticker:         models.NormalizeTicker(q.Ticker),
		DisplayName:    q.DisplayName,
		CompanyName:    q.CompanyName,
		Source:         q.Source,
		ProviderSymbol: q.ProviderSymbol,
		Price:          q.Price,
		Currency:       q.Currency,
		Exchange:       q.Exchange,
		AssetType:      q.AssetType,
		PreviousClose:  q.PreviousClose,
		DayHigh:        q.DayHigh,
		DayLow:         q.DayLow,
		Change:         q.Change,
		ChangePct:      q.ChangePct,
		High52w:        q.High52w,
		Low52w:         q.Low52w,
		AllTimeHigh:    q.AllTimeHigh,
		AllTimeLow:     q.AllTimeLow,
		EMA212:         q.EMA212,
		AnalyticsAt:    q.AnalyticsAt.UTC(),
		LastFetched:    q.LastFetched.UTC(),
		Status:         q.Status,
		TrackHistory:   q.TrackHistory,
	}
}

func (r quoteRow) toModel() *models.QuoteRecord {
	return &models.QuoteRecord{
		Ticker:         r.Ticker,
		DisplayName:    r.DisplayName,
		CompanyName:    r.CompanyName,
		Source:         r.Source,
		ProviderSymbol: r.ProviderSymbol,
		Price:          r.Price,
		Currency:       r.Currency,
		Exchange:       r.Exchange,
		AssetType:      r.AssetType,
		PreviousClose:  r.PreviousClose,
		DayHigh:        r.DayHigh,
		DayLow:         r.DayLow,
		Change:         r.Change,
		ChangePct:      r.ChangePct,
		High52w:        r.High52w,
		Low52w:         r.Low52w,
		AllTimeHigh:    r.AllTimeHigh,
		AllTimeLow:     r.AllTimeLow,
		EMA212:         r.EMA212,
		AnalyticsAt:    r.AnalyticsAt,
		LastFetched:    r.LastFetched,
		Status:         r.Status,
		TrackHistory:   r.TrackHistory,
	}
}

// historyRow and fxRow key days as YYYY-MM-DD text so ordering is lexical on every driver.
type historyRow struct {
	Ticker string `gorm:"primaryKey;size:64"`
	Date   string `gorm:"primaryKey;size:10"`
	Price  float64
}

func (historyRow) TableName() string { return "price_history" }

type fxRow struct {
	Currency string `gorm:"primaryKey;size:8"`
	Date     string `gorm:"primaryKey;size:10"`
	Rate     string `gorm:"size:40;not null"`
	Amount   int64  `gorm:"not null;default:1"`
	Source   string `gorm:"size:32"`
}

func (fxRow) TableName() string { return "fx_rates" }

func (r fxRow) toModel() (*models.FxRate, error) {
	d, err := models.ParseDate(r.Date)
	if err != nil {
		return nil, fmt.Errorf("fx row %s date %q: %w", r.Currency, r.Date, err)
	}
	rate, err := decimal.NewFromString(r.Rate)
	if err != nil {
		return nil, fmt.Errorf("fx row %s rate %q: %w", r.Currency, r.Rate, err)
	}
	return &models.FxRate{Currency: r.Currency, Date: d, Rate: rate, Amount: r.Amount, Source: r.Source}, nil
}

type manualRow struct {
	Symbol    string `gorm:"primaryKey;size:64"`
	Price     float64
	Currency  string    `gorm:"size:8"`
	Note      string    `gorm:"size:255"`
	UpdatedAt time.Time `gorm:"autoUpdateTime:false"`
}

func (manualRow) TableName() string { return "manual_prices" }

type watchRow struct {
	UserID  string `gorm:"primaryKey;size:64"`
	Ticker  string `gorm:"primaryKey;size:64"`
	Watched bool   `gorm:"index"`
}

func (watchRow) TableName() string { return "watchlist" }

type transactionRow struct {
	ID     uint   `gorm:"primaryKey"`
	Ticker string `gorm:"size:64;not null;index"`
}

func (transactionRow) TableName() string { return "ledger_transactions" }

func allRows() []any {
	return []any{&aliasRow{}, &quoteRow{}, &historyRow{}, &fxRow{}, &manualRow{}, &watchRow{}, &transactionRow{}}
}
