package quote

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bregovic/shanon-sub001/internal/common"
	"github.com/bregovic/shanon-sub001/internal/models"
	"github.com/bregovic/shanon-sub001/internal/services/alias"
	"github.com/bregovic/shanon-sub001/internal/storage/memory"
)

// --- Mocks ---

type mockCache struct {
	mu       sync.Mutex
	failing  map[string]bool
	stored   map[string]*models.QuoteRecord
	calls    []string
	hints    map[string]string
	lastTTL  time.Duration
	lastForce bool
}

func newMockCache(failing ...string) *mockCache {
	m := &mockCache{failing: map[string]bool{}, stored: map[string]*models.QuoteRecord{}, hints: map[string]string{}}
	for _, f := range failing {
		m.failing[f] = true
	}
	return m
}

func (m *mockCache) GetOrFetch(_ context.Context, ticker string, ttl time.Duration, forceFresh bool, hint string) (*models.QuoteRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, ticker)
	m.hints[ticker] = hint
	m.lastTTL = ttl
	m.lastForce = forceFresh
	if m.failing[ticker] {
		return nil, &models.FetchError{Ticker: ticker, Attempts: []models.FetchAttempt{
			{Provider: "eodhd", Variant: ticker, Outcome: models.OutcomeUnavailable, Error: "502"},
		}}
	}
	return &models.QuoteRecord{Ticker: ticker, Price: 10, LastFetched: time.Now()}, nil
}

func (m *mockCache) Get(_ context.Context, ticker string) (*models.QuoteRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if q, ok := m.stored[ticker]; ok {
		return q, nil
	}
	return nil, models.ErrNotFound
}

func (m *mockCache) ApplyAnalytics(_ context.Context, ticker string, a *models.Analytics) (*models.QuoteRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.stored[ticker]
	if !ok {
		return nil, models.ErrNotFound
	}
	q.ApplyAnalytics(a)
	return q, nil
}

func (m *mockCache) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

func newTestService(store *memory.Manager, cache *mockCache, opts ...Option) *Service {
	logger := common.NewSilentLogger()
	resolver := alias.NewService(store.AliasStore(), store.QuoteStore(), logger)
	return NewService(resolver, cache, store.UniverseStore(), 15*time.Minute, logger, opts...)
}

func watch(t *testing.T, store *memory.Manager, tickers ...string) {
	t.Helper()
	for _, tk := range tickers {
		require.NoError(t, store.UniverseStore().SetWatch(context.Background(), &models.WatchlistEntry{UserID: "u1", Ticker: tk, Watched: true}))
	}
}

// --- Tests ---

func TestGetQuote_ResolvesAliasAndUsesTTL(t *testing.T) {
	ctx := context.Background()
	store := memory.NewManager()
	cache := newMockCache()
	svc := newTestService(store, cache)
	require.NoError(t, svc.aliases.SetAlias(ctx, "FB", "META"))

	q, err := svc.GetQuote(ctx, " fb ", false, "USD")
	require.NoError(t, err)
	assert.Equal(t, "META", q.Ticker)
	assert.Equal(t, []string{"META"}, cache.Calls())
	assert.Equal(t, 15*time.Minute, cache.lastTTL)
	assert.False(t, cache.lastForce)
	assert.Equal(t, "USD", cache.hints["META"])
}

func TestGetQuote_FailureSurfaces(t *testing.T) {
	store := memory.NewManager()
	svc := newTestService(store, newMockCache("NOPE"))

	q, err := svc.GetQuote(context.Background(), "NOPE", true, "")
	assert.Nil(t, q)
	assert.ErrorIs(t, err, models.ErrQuoteNotFound)
}

func TestUniverse_UnionResolvedDedupedSorted(t *testing.T) {
	ctx := context.Background()
	store := memory.NewManager()
	svc := newTestService(store, newMockCache())
	require.NoError(t, svc.aliases.SetAlias(ctx, "FB", "META"))

	watch(t, store, "msft", "FB")
	store.AddTransactionTicker("META")
	store.AddTransactionTicker("AAPL")

	got, err := svc.Universe(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL", "META", "MSFT"}, got)
}

func TestRefreshAll_IsolatesFailures(t *testing.T) {
	store := memory.NewManager()
	watch(t, store, "T1", "T2", "T3", "T4", "T5")
	cache := newMockCache("T3")

	res, err := newTestService(store, cache).RefreshAll(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 5, res.Total)
	assert.Equal(t, 4, res.Updated)
	assert.Equal(t, 1, res.Failed)
	require.Len(t, res.Details, 1)
	assert.True(t, strings.HasPrefix(res.Details[0], "T3: "), res.Details[0])
	assert.Len(t, cache.Calls(), 5)
	assert.True(t, cache.lastForce, "batch refresh forces a fetch")
	assert.Equal(t, time.Duration(0), cache.lastTTL)
}

func TestRefreshAll_ConcurrentWorkersSameCounts(t *testing.T) {
	store := memory.NewManager()
	watch(t, store, "A", "B", "C", "D", "E", "F")
	cache := newMockCache("B", "E")

	res, err := newTestService(store, cache, WithWorkers(4)).RefreshAll(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 6, res.Total)
	assert.Equal(t, 4, res.Updated)
	assert.Equal(t, 2, res.Failed)
	assert.Equal(t, []string{"B", "E"}, []string{res.Details[0][:1], res.Details[1][:1]})
}

func TestRefreshAll_PacingHoldsAcrossWorkers(t *testing.T) {
	store := memory.NewManager()
	watch(t, store, "A", "B", "C", "D")

	start := time.Now()
	_, err := newTestService(store, newMockCache(), WithWorkers(4)).RefreshAll(context.Background(), 30*time.Millisecond)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 85*time.Millisecond)
}

func TestRefreshAll_UsesStoredCurrencyAsHint(t *testing.T) {
	store := memory.NewManager()
	watch(t, store, "CEZ")
	cache := newMockCache()
	cache.stored["CEZ"] = &models.QuoteRecord{Ticker: "CEZ", Currency: "CZK"}

	_, err := newTestService(store, cache).RefreshAll(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, "CZK", cache.hints["CEZ"])
}

func TestRefreshAll_HookSeesEveryTicker(t *testing.T) {
	store := memory.NewManager()
	watch(t, store, "A", "B")

	var mu sync.Mutex
	seen := map[string]bool{}
	hook := func(ticker string, err error) {
		mu.Lock()
		seen[ticker] = err == nil
		mu.Unlock()
	}

	_, err := newTestService(store, newMockCache("B"), WithTickerHook(hook)).RefreshAll(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"A": true, "B": false}, seen)
}

func TestRefreshAll_EmptyUniverse(t *testing.T) {
	res, err := newTestService(memory.NewManager(), newMockCache()).RefreshAll(context.Background(), time.Second)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Total)
	assert.NotNil(t, res.Details)
}

func TestRefreshAll_StoreDown(t *testing.T) {
	store := memory.NewManager()
	store.FailWith = errors.New("down")

	_, err := newTestService(store, newMockCache()).RefreshAll(context.Background(), 0)
	assert.ErrorIs(t, err, models.ErrStoreUnavailable)
}
