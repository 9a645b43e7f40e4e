// Package storetest holds behaviour checks shared by every StorageManager backend.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bregovic/shanon-sub001/internal/interfaces"
	"github.com/bregovic/shanon-sub001/internal/models"
)

// Backend builds fresh storage for one test.
type Backend struct {
	// New returns an empty StorageManager; cleanup is the backend's job.
	New func(t *testing.T) interfaces.StorageManager
	// AddTransaction seeds the externally owned ledger. Nil skips the ledger check.
	AddTransaction func(t *testing.T, mgr interfaces.StorageManager, ticker string)
}

// Run executes every check against b.
func Run(t *testing.T, b Backend) {
	t.Run("Aliases", func(t *testing.T) { testAliases(t, b.New(t)) })
	t.Run("QuoteUpsert", func(t *testing.T) { testQuoteUpsert(t, b.New(t)) })
	t.Run("QuoteList", func(t *testing.T) { testQuoteList(t, b.New(t)) })
	t.Run("HistorySameDayOverwrite", func(t *testing.T) { testHistory(t, b.New(t)) })
	t.Run("FxExactAndNearest", func(t *testing.T) { testFx(t, b.New(t)) })
	t.Run("ManualPrices", func(t *testing.T) { testManual(t, b.New(t)) })
	t.Run("Universe", func(t *testing.T) {
		mgr := b.New(t)
		testUniverse(t, mgr)
		if b.AddTransaction == nil {
			return
		}
		b.AddTransaction(t, mgr, "cez.pr")
		b.AddTransaction(t, mgr, "CEZ.PR")
		b.AddTransaction(t, mgr, "MSFT")
		tickers, err := mgr.UniverseStore().ListTransactionTickers(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []string{"CEZ.PR", "MSFT"}, tickers)
	})
}

func day(s string) time.Time {
	d, err := models.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func testAliases(t *testing.T, mgr interfaces.StorageManager) {
	ctx := context.Background()
	store := mgr.AliasStore()

	_, err := store.GetAlias(ctx, "BAACEZ")
	assert.True(t, errors.Is(err, models.ErrNotFound), "got %v", err)

	require.NoError(t, store.SaveAlias(ctx, &models.TickerAlias{Alias: "BAACEZ", Canonical: "CEZ.PR", DisplayName: "CEZ"}))
	require.NoError(t, store.SaveAlias(ctx, &models.TickerAlias{Alias: "FB", Canonical: "META"}))

	a, err := store.GetAlias(ctx, "baacez")
	require.NoError(t, err)
	assert.Equal(t, "CEZ.PR", a.Canonical)
	assert.Equal(t, "CEZ", a.DisplayName)

	list, err := store.ListAliases(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "BAACEZ", list[0].Alias)
	assert.Equal(t, "FB", list[1].Alias)

	require.NoError(t, store.DeleteAlias(ctx, "FB"))
	_, err = store.GetAlias(ctx, "FB")
	assert.True(t, errors.Is(err, models.ErrNotFound), "got %v", err)
}

func testQuoteUpsert(t *testing.T, mgr interfaces.StorageManager) {
	ctx := context.Background()
	store := mgr.QuoteStore()

	_, err := store.GetQuote(ctx, "AAPL")
	assert.True(t, errors.Is(err, models.ErrNotFound), "got %v", err)

	high := 200.0
	fetched := time.Date(2024, 3, 28, 15, 0, 0, 0, time.UTC)
	require.NoError(t, store.UpsertQuote(ctx, &models.QuoteRecord{
		Ticker: "AAPL", Price: 170, Currency: "USD", Source: models.SourceYahoo,
		High52w: &high, LastFetched: fetched, Status: models.StatusActive, TrackHistory: true,
	}))
	require.NoError(t, store.UpsertQuote(ctx, &models.QuoteRecord{
		Ticker: "AAPL", Price: 171.5, Currency: "USD", Source: models.SourceEODHD,
		High52w: &high, LastFetched: fetched.Add(time.Hour), Status: models.StatusActive, TrackHistory: true,
	}))

	q, err := store.GetQuote(ctx, "aapl")
	require.NoError(t, err)
	assert.Equal(t, 171.5, q.Price)
	assert.Equal(t, models.SourceEODHD, q.Source)
	require.NotNil(t, q.High52w)
	assert.Equal(t, 200.0, *q.High52w)
	assert.Nil(t, q.Low52w)
	assert.True(t, q.LastFetched.Equal(fetched.Add(time.Hour)), "last fetched %v", q.LastFetched)
	assert.True(t, q.TrackHistory)
}

func testQuoteList(t *testing.T, mgr interfaces.StorageManager) {
	ctx := context.Background()
	store := mgr.QuoteStore()

	require.NoError(t, store.UpsertQuote(ctx, &models.QuoteRecord{Ticker: "MSFT", Price: 1, Status: models.StatusActive}))
	require.NoError(t, store.UpsertQuote(ctx, &models.QuoteRecord{Ticker: "CEZ.PR", Price: 1, Status: models.StatusActive}))
	require.NoError(t, store.UpsertQuote(ctx, &models.QuoteRecord{Ticker: "OLD", Price: 1, Status: models.StatusInactive}))

	all, err := store.ListQuotes(ctx, false)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	active, err := store.ListQuotes(ctx, true)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, "CEZ.PR", active[0].Ticker)
	assert.Equal(t, "MSFT", active[1].Ticker)
}

func testHistory(t *testing.T, mgr interfaces.StorageManager) {
	ctx := context.Background()
	store := mgr.HistoryStore()

	require.NoError(t, store.AppendPoint(ctx, &models.PriceHistoryPoint{Ticker: "CEZ.PR", Date: day("2024-01-03"), Price: 3}))
	require.NoError(t, store.AppendPoint(ctx, &models.PriceHistoryPoint{Ticker: "CEZ.PR", Date: day("2024-01-01"), Price: 1}))
	require.NoError(t, store.AppendPoint(ctx, &models.PriceHistoryPoint{Ticker: "CEZ.PR", Date: day("2024-01-01").Add(15 * time.Hour), Price: 1.5}))
	require.NoError(t, store.AppendPoint(ctx, &models.PriceHistoryPoint{Ticker: "OTHER", Date: day("2024-01-02"), Price: 9}))

	points, err := store.GetHistory(ctx, "CEZ.PR")
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, "2024-01-01", models.FormatDate(points[0].Date))
	assert.Equal(t, 1.5, points[0].Price)
	assert.Equal(t, "2024-01-03", models.FormatDate(points[1].Date))

	empty, err := store.GetHistory(ctx, "NONE")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func testFx(t *testing.T, mgr interfaces.StorageManager) {
	ctx := context.Background()
	store := mgr.FxStore()

	require.NoError(t, store.SaveRates(ctx, []*models.FxRate{
		{Currency: "USD", Date: day("2024-01-01"), Rate: decimal.RequireFromString("23.000"), Amount: 1, Source: "cnb"},
		{Currency: "USD", Date: day("2024-01-10"), Rate: decimal.RequireFromString("24.000"), Amount: 1, Source: "cnb"},
		{Currency: "JPY", Date: day("2024-01-10"), Rate: decimal.RequireFromString("15.487"), Amount: 100, Source: "cnb"},
	}))

	r, err := store.GetRate(ctx, "usd", day("2024-01-10"))
	require.NoError(t, err)
	assert.True(t, r.Rate.Equal(decimal.NewFromInt(24)), "rate %s", r.Rate)

	_, err = store.GetRate(ctx, "USD", day("2024-01-05"))
	assert.True(t, errors.Is(err, models.ErrNotFound), "got %v", err)

	r, err = store.GetNearestRate(ctx, "USD", day("2024-01-05"))
	require.NoError(t, err)
	assert.Equal(t, "2024-01-01", models.FormatDate(r.Date))
	assert.True(t, r.Rate.Equal(decimal.NewFromInt(23)), "rate %s", r.Rate)

	_, err = store.GetNearestRate(ctx, "USD", day("2023-12-31"))
	assert.True(t, errors.Is(err, models.ErrNotFound), "got %v", err)

	jpy, err := store.GetRate(ctx, "JPY", day("2024-01-10"))
	require.NoError(t, err)
	assert.Equal(t, int64(100), jpy.Amount)
	assert.Equal(t, "0.15487", jpy.PerUnit().String())

	// Re-import of the same fixing replaces the row
	require.NoError(t, store.SaveRates(ctx, []*models.FxRate{
		{Currency: "USD", Date: day("2024-01-10"), Rate: decimal.RequireFromString("24.5"), Amount: 1},
	}))
	r, err = store.GetRate(ctx, "USD", day("2024-01-10"))
	require.NoError(t, err)
	assert.True(t, r.Rate.Equal(decimal.RequireFromString("24.5")), "rate %s", r.Rate)
}

func testManual(t *testing.T, mgr interfaces.StorageManager) {
	ctx := context.Background()
	store := mgr.ManualPriceStore()

	_, err := store.GetManualPrice(ctx, "PRIV")
	assert.True(t, errors.Is(err, models.ErrNotFound), "got %v", err)

	require.NoError(t, store.SetManualPrice(ctx, &models.ManualPrice{Symbol: "priv", Price: 12.5, Currency: "eur", UpdatedAt: day("2024-02-01")}))
	p, err := store.GetManualPrice(ctx, "PRIV")
	require.NoError(t, err)
	assert.Equal(t, 12.5, p.Price)
	assert.Equal(t, "EUR", p.Currency)

	require.NoError(t, store.DeleteManualPrice(ctx, "PRIV"))
	_, err = store.GetManualPrice(ctx, "PRIV")
	assert.True(t, errors.Is(err, models.ErrNotFound), "got %v", err)
}

func testUniverse(t *testing.T, mgr interfaces.StorageManager) {
	ctx := context.Background()
	store := mgr.UniverseStore()

	require.NoError(t, store.SetWatch(ctx, &models.WatchlistEntry{UserID: "u1", Ticker: "msft", Watched: true}))
	require.NoError(t, store.SetWatch(ctx, &models.WatchlistEntry{UserID: "u2", Ticker: "MSFT", Watched: true}))
	require.NoError(t, store.SetWatch(ctx, &models.WatchlistEntry{UserID: "u1", Ticker: "AAPL", Watched: true}))
	require.NoError(t, store.SetWatch(ctx, &models.WatchlistEntry{UserID: "u1", Ticker: "GONE", Watched: true}))
	require.NoError(t, store.SetWatch(ctx, &models.WatchlistEntry{UserID: "u1", Ticker: "GONE", Watched: false}))

	watched, err := store.ListWatchedTickers(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL", "MSFT"}, watched)
}
