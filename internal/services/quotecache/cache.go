// Package quotecache serves quotes within a TTL and refreshes them
// through the provider chain
package quotecache

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/bregovic/shanon-sub001/internal/common"
	"github.com/bregovic/shanon-sub001/internal/interfaces"
	"github.com/bregovic/shanon-sub001/internal/models"
	"github.com/bregovic/shanon-sub001/internal/services/provider"
)

// DefaultStoreTimeout bounds a single store call
const DefaultStoreTimeout = 5 * time.Second

// Fetcher is the provider chain as seen by the cache
type Fetcher interface {
	Fetch(ctx context.Context, canonical, currencyHint string) *provider.FetchResult
}

// Cache implements interfaces.QuoteCache over the quote and history tables.
// Fetches for the same ticker are collapsed into one flight, and every
// read-merge-write of a row holds that ticker's lock.
type Cache struct {
	quotes         interfaces.QuoteStore
	history        interfaces.HistoryStore
	fetcher        Fetcher
	group          singleflight.Group
	locksMu        sync.Mutex
	locks          map[string]*sync.Mutex
	storeTimeout   time.Duration
	historyDefault bool
	logger         *common.Logger
	now            func() time.Time
}

// Option configures the cache
type Option func(*Cache)

// WithStoreTimeout bounds each store call
func WithStoreTimeout(d time.Duration) Option {
	return func(c *Cache) {
		if d > 0 {
			c.storeTimeout = d
		}
	}
}

// WithHistoryDefault sets TrackHistory on rows created by the cache
func WithHistoryDefault(track bool) Option {
	return func(c *Cache) {
		c.historyDefault = track
	}
}

// NewCache creates a quote cache. history may be nil to disable the
// history path.
func NewCache(quotes interfaces.QuoteStore, history interfaces.HistoryStore, fetcher Fetcher, logger *common.Logger, opts ...Option) *Cache {
	c := &Cache{
		quotes:       quotes,
		history:      history,
		fetcher:      fetcher,
		locks:        make(map[string]*sync.Mutex),
		storeTimeout: DefaultStoreTimeout,
		logger:       logger,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetOrFetch returns the stored quote when it is younger than ttl and
// forceFresh is false. Otherwise it fetches, upserts and returns the new
// row. A miss or provider failure leaves the stored row untouched.
func (c *Cache) GetOrFetch(ctx context.Context, ticker string, ttl time.Duration, forceFresh bool, currencyHint string) (*models.QuoteRecord, error) {
	ticker = models.NormalizeTicker(ticker)

	if !forceFresh {
		stored, err := c.load(ctx, ticker)
		if err != nil {
			return nil, err
		}
		if stored != nil && common.IsFreshAt(stored.LastFetched, ttl, c.now()) {
			c.logger.Trace().Str("ticker", ticker).Msg("Quote served from cache")
			return stored, nil
		}
	}

	// The flight outlives any one caller; provider calls carry their own timeouts
	flightCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(ticker, func() (any, error) {
		return c.refresh(flightCtx, ticker, currencyHint)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			c.logger.Trace().Str("ticker", ticker).Msg("Joined in-flight fetch")
		}
		q := *res.Val.(*models.QuoteRecord)
		return &q, nil
	}
}

// Get returns the stored row without fetching, or models.ErrNotFound.
func (c *Cache) Get(ctx context.Context, ticker string) (*models.QuoteRecord, error) {
	q, err := c.load(ctx, models.NormalizeTicker(ticker))
	if err != nil {
		return nil, err
	}
	if q == nil {
		return nil, models.ErrNotFound
	}
	return q, nil
}

func (c *Cache) refresh(ctx context.Context, ticker, currencyHint string) (*models.QuoteRecord, error) {
	result := c.fetcher.Fetch(ctx, ticker, currencyHint)
	if !result.Found() {
		err := result.Err(ticker)
		c.logger.Info().Str("ticker", ticker).Str("reason", err.Error()).Msg("Quote fetch failed")
		return nil, err
	}

	unlock := c.lockTicker(ticker)
	defer unlock()

	// Re-read so analytics written since the freshness check survive the merge
	stored, err := c.load(ctx, ticker)
	if err != nil {
		return nil, err
	}

	var row *models.QuoteRecord
	if stored == nil {
		row = result.Quote
		row.Status = models.StatusActive
		row.TrackHistory = c.historyDefault
	} else {
		row = stored.MergeFetched(result.Quote)
	}
	row.Ticker = ticker

	storeCtx, cancel := context.WithTimeout(ctx, c.storeTimeout)
	err = c.quotes.UpsertQuote(storeCtx, row)
	cancel()
	if err != nil {
		err = models.WrapStoreError("upsert quote", err)
		c.logger.Error().Err(err).Str("ticker", ticker).Msg("Quote upsert failed")
		return nil, err
	}

	if row.TrackHistory && c.history != nil {
		c.appendHistory(ctx, row)
	}

	c.logger.Debug().
		Str("ticker", ticker).
		Str("provider", row.Source).
		Float64("price", row.Price).
		Str("currency", row.Currency).
		Msg("Quote refreshed")
	return row, nil
}

// ApplyAnalytics writes a onto the stored row for ticker. The row is
// re-read under the ticker lock, so a concurrent refresh keeps its price.
// Returns models.ErrNotFound when the ticker has no row.
func (c *Cache) ApplyAnalytics(ctx context.Context, ticker string, a *models.Analytics) (*models.QuoteRecord, error) {
	ticker = models.NormalizeTicker(ticker)
	unlock := c.lockTicker(ticker)
	defer unlock()

	stored, err := c.load(ctx, ticker)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, models.ErrNotFound
	}

	stored.ApplyAnalytics(a)
	storeCtx, cancel := context.WithTimeout(ctx, c.storeTimeout)
	defer cancel()
	if err := c.quotes.UpsertQuote(storeCtx, stored); err != nil {
		return nil, models.WrapStoreError("upsert quote", err)
	}
	return stored, nil
}

func (c *Cache) lockTicker(ticker string) func() {
	c.locksMu.Lock()
	mu, ok := c.locks[ticker]
	if !ok {
		mu = &sync.Mutex{}
		c.locks[ticker] = mu
	}
	c.locksMu.Unlock()

	mu.Lock()
	return mu.Unlock
}

func (c *Cache) appendHistory(ctx context.Context, row *models.QuoteRecord) {
	storeCtx, cancel := context.WithTimeout(ctx, c.storeTimeout)
	defer cancel()

	point := &models.PriceHistoryPoint{
		Ticker: row.Ticker,
		Date:   models.TruncateDay(row.LastFetched),
		Price:  row.Price,
	}
	if err := c.history.AppendPoint(storeCtx, point); err != nil {
		c.logger.Warn().Err(err).Str("ticker", row.Ticker).Msg("History append failed")
	}
}

// load returns the stored row, nil when absent.
func (c *Cache) load(ctx context.Context, ticker string) (*models.QuoteRecord, error) {
	storeCtx, cancel := context.WithTimeout(ctx, c.storeTimeout)
	defer cancel()

	q, err := c.quotes.GetQuote(storeCtx, ticker)
	if errors.Is(err, models.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		err = models.WrapStoreError("get quote", err)
		c.logger.Error().Err(err).Str("ticker", ticker).Msg("Quote read failed")
		return nil, err
	}
	return q, nil
}

// Compile-time check
var _ interfaces.QuoteCache = (*Cache)(nil)
