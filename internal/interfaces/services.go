package interfaces

import (
	"context"
	"time"

	"github.com/bregovic/shanon-sub001/internal/models"
)

// AliasResolver canonicalizes raw ticker strings.
type AliasResolver interface {
	Resolve(ctx context.Context, symbol string) (string, error)
	SetAlias(ctx context.Context, oldSymbol, canonicalSymbol string) error
	GetAlias(ctx context.Context, symbol string) (*models.TickerAlias, error)
}

// QuoteCache serves quotes within a TTL and fetches through the provider chain otherwise.
type QuoteCache interface {
	GetOrFetch(ctx context.Context, ticker string, ttl time.Duration, forceFresh bool, currencyHint string) (*models.QuoteRecord, error)
	// Get returns the stored row without fetching, or models.ErrNotFound.
	Get(ctx context.Context, ticker string) (*models.QuoteRecord, error)
	// ApplyAnalytics writes analytics onto the stored row, or returns models.ErrNotFound.
	ApplyAnalytics(ctx context.Context, ticker string, a *models.Analytics) (*models.QuoteRecord, error)
}

// QuoteService answers quote requests and drives batch refresh.
type QuoteService interface {
	GetQuote(ctx context.Context, ticker string, forceFresh bool, currencyHint string) (*models.QuoteRecord, error)
	RefreshAll(ctx context.Context, perCallDelay time.Duration) (*models.RefreshResult, error)
	Universe(ctx context.Context) ([]string, error)
}

// AnalyticsService derives analytics from price history and stores them on the quote row.
type AnalyticsService interface {
	ComputeAnalytics(ctx context.Context, ticker string) (*models.Analytics, error)
	ComputeAll(ctx context.Context) (*models.AnalyticsRunResult, error)
}

// FxService resolves reporting-currency conversion rates.
type FxService interface {
	ResolveRate(ctx context.Context, currency, date string, nearest bool) (*models.RateResult, error)
	ResolveBatch(ctx context.Context, pairs []models.RatePair, nearest bool) (map[string]float64, error)
	ImportRates(ctx context.Context, date time.Time) (*models.FxImportResult, error)
}

// WatchlistService maintains the watched half of the refresh universe.
type WatchlistService interface {
	SetWatch(ctx context.Context, userID, ticker string, watched bool) (*models.WatchlistEntry, error)
	WatchedTickers(ctx context.Context) ([]string, error)
}
