// Package interfaces defines service contracts for Shanon
package interfaces

import (
	"context"
	"time"

	"github.com/bregovic/shanon-sub001/internal/models"
)

// StorageManager coordinates the persisted state the engine owns.
// A single canonical row per ticker lives in QuoteStore; history is append-only.
type StorageManager interface {
	AliasStore() AliasStore
	QuoteStore() QuoteStore
	HistoryStore() HistoryStore
	FxStore() FxStore
	ManualPriceStore() ManualPriceStore
	UniverseStore() UniverseStore

	// Lifecycle
	Close() error
}

// AliasStore persists alias -> canonical ticker mappings.
type AliasStore interface {
	// GetAlias returns models.ErrNotFound when symbol has no mapping.
	GetAlias(ctx context.Context, symbol string) (*models.TickerAlias, error)
	SaveAlias(ctx context.Context, alias *models.TickerAlias) error
	DeleteAlias(ctx context.Context, symbol string) error
	ListAliases(ctx context.Context) ([]*models.TickerAlias, error)
}

// QuoteStore persists the last known quote per canonical ticker.
type QuoteStore interface {
	// GetQuote returns models.ErrNotFound when no row exists.
	GetQuote(ctx context.Context, ticker string) (*models.QuoteRecord, error)
	// UpsertQuote inserts the row if absent, else overwrites it.
	UpsertQuote(ctx context.Context, quote *models.QuoteRecord) error
	ListQuotes(ctx context.Context, activeOnly bool) ([]*models.QuoteRecord, error)
}

// HistoryStore persists the daily price series.
type HistoryStore interface {
	// AppendPoint writes one row per ticker per calendar day; a second write on the same day replaces the price.
	AppendPoint(ctx context.Context, point *models.PriceHistoryPoint) error
	// GetHistory returns all points for ticker in ascending date order.
	GetHistory(ctx context.Context, ticker string) ([]models.PriceHistoryPoint, error)
}

// FxStore persists FX fixings keyed by (currency, date).
type FxStore interface {
	// GetRate returns models.ErrNotFound when no exact row exists.
	GetRate(ctx context.Context, currency string, date time.Time) (*models.FxRate, error)
	// GetNearestRate returns the latest row with row.Date <= date, or models.ErrNotFound.
	GetNearestRate(ctx context.Context, currency string, date time.Time) (*models.FxRate, error)
	SaveRates(ctx context.Context, rates []*models.FxRate) error
}

// ManualPriceStore persists operator-entered override prices.
type ManualPriceStore interface {
	GetManualPrice(ctx context.Context, symbol string) (*models.ManualPrice, error)
	SetManualPrice(ctx context.Context, price *models.ManualPrice) error
	DeleteManualPrice(ctx context.Context, symbol string) error
}

// UniverseStore reads the tickers that must be kept fresh.
// Watchlists and the transaction ledger are owned elsewhere; only SetWatch writes.
type UniverseStore interface {
	ListWatchedTickers(ctx context.Context) ([]string, error)
	ListTransactionTickers(ctx context.Context) ([]string, error)
	SetWatch(ctx context.Context, entry *models.WatchlistEntry) error
}
