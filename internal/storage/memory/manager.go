// Package memory provides an in-process StorageManager. It backs the
// "memory" storage backend and the service tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/bregovic/shanon-sub001/internal/interfaces"
	"github.com/bregovic/shanon-sub001/internal/models"
)

// Manager keeps every table in maps guarded by one mutex.
// Records are copied on the way in and out.
type Manager struct {
	mu sync.RWMutex

	aliases      map[string]models.TickerAlias
	quotes       map[string]models.QuoteRecord
	history      map[string]map[string]models.PriceHistoryPoint
	rates        map[string]map[string]models.FxRate
	manual       map[string]models.ManualPrice
	watchlist    map[string]models.WatchlistEntry
	transactions map[string]bool

	// FailWith makes every operation return this error when set.
	FailWith error
}

// NewManager creates an empty in-memory store
func NewManager() *Manager {
	return &Manager{
		aliases:      make(map[string]models.TickerAlias),
		quotes:       make(map[string]models.QuoteRecord),
		history:      make(map[string]map[string]models.PriceHistoryPoint),
		rates:        make(map[string]map[string]models.FxRate),
		manual:       make(map[string]models.ManualPrice),
		watchlist:    make(map[string]models.WatchlistEntry),
		transactions: make(map[string]bool),
	}
}

func (m *Manager) AliasStore() interfaces.AliasStore             { return (*aliasStore)(m) }
func (m *Manager) QuoteStore() interfaces.QuoteStore             { return (*quoteStore)(m) }
func (m *Manager) HistoryStore() interfaces.HistoryStore         { return (*historyStore)(m) }
func (m *Manager) FxStore() interfaces.FxStore                   { return (*fxStore)(m) }
func (m *Manager) ManualPriceStore() interfaces.ManualPriceStore { return (*manualStore)(m) }
func (m *Manager) UniverseStore() interfaces.UniverseStore       { return (*universeStore)(m) }

// Close is a no-op
func (m *Manager) Close() error { return nil }

// AddTransactionTicker records a ticker as appearing in the transaction ledger.
// The ledger is owned outside this engine; this is the seeding hook.
func (m *Manager) AddTransactionTicker(ticker string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transactions[models.NormalizeTicker(ticker)] = true
}

func (m *Manager) fail(op string) error {
	if m.FailWith == nil {
		return nil
	}
	return models.WrapStoreError(op, m.FailWith)
}

// --- aliases ---

type aliasStore Manager

func (s *aliasStore) GetAlias(_ context.Context, symbol string) (*models.TickerAlias, error) {
	m := (*Manager)(s)
	if err := m.fail("get alias"); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.aliases[models.NormalizeTicker(symbol)]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &a, nil
}

func (s *aliasStore) SaveAlias(_ context.Context, alias *models.TickerAlias) error {
	m := (*Manager)(s)
	if err := m.fail("save alias"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.aliases[models.NormalizeTicker(alias.Alias)] = *alias
	return nil
}

func (s *aliasStore) DeleteAlias(_ context.Context, symbol string) error {
	m := (*Manager)(s)
	if err := m.fail("delete alias"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.aliases, models.NormalizeTicker(symbol))
	return nil
}

func (s *aliasStore) ListAliases(_ context.Context) ([]*models.TickerAlias, error) {
	m := (*Manager)(s)
	if err := m.fail("list aliases"); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*models.TickerAlias, 0, len(m.aliases))
	for _, a := range m.aliases {
		a := a
		out = append(out, &a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Alias < out[j].Alias })
	return out, nil
}

// --- quotes ---

type quoteStore Manager

func (s *quoteStore) GetQuote(_ context.Context, ticker string) (*models.QuoteRecord, error) {
	m := (*Manager)(s)
	if err := m.fail("get quote"); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	q, ok := m.quotes[models.NormalizeTicker(ticker)]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &q, nil
}

func (s *quoteStore) UpsertQuote(_ context.Context, quote *models.QuoteRecord) error {
	m := (*Manager)(s)
	if err := m.fail("upsert quote"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.quotes[models.NormalizeTicker(quote.Ticker)] = *quote
	return nil
}

func (s *quoteStore) ListQuotes(_ context.Context, activeOnly bool) ([]*models.QuoteRecord, error) {
	m := (*Manager)(s)
	if err := m.fail("list quotes"); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*models.QuoteRecord, 0, len(m.quotes))
	for _, q := range m.quotes {
		if activeOnly && !q.IsActive() {
			continue
		}
		q := q
		out = append(out, &q)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ticker < out[j].Ticker })
	return out, nil
}

// --- history ---

type historyStore Manager

func (s *historyStore) AppendPoint(_ context.Context, point *models.PriceHistoryPoint) error {
	m := (*Manager)(s)
	if err := m.fail("append history"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	ticker := models.NormalizeTicker(point.Ticker)
	series, ok := m.history[ticker]
	if !ok {
		series = make(map[string]models.PriceHistoryPoint)
		m.history[ticker] = series
	}
	p := *point
	p.Ticker = ticker
	p.Date = models.TruncateDay(point.Date)
	series[models.FormatDate(p.Date)] = p
	return nil
}

func (s *historyStore) GetHistory(_ context.Context, ticker string) ([]models.PriceHistoryPoint, error) {
	m := (*Manager)(s)
	if err := m.fail("get history"); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	series := m.history[models.NormalizeTicker(ticker)]
	out := make([]models.PriceHistoryPoint, 0, len(series))
	for _, p := range series {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

// --- fx ---

type fxStore Manager

func (s *fxStore) GetRate(_ context.Context, currency string, date time.Time) (*models.FxRate, error) {
	m := (*Manager)(s)
	if err := m.fail("get rate"); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rates[models.NormalizeCurrency(currency)][models.FormatDate(date)]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &r, nil
}

func (s *fxStore) GetNearestRate(_ context.Context, currency string, date time.Time) (*models.FxRate, error) {
	m := (*Manager)(s)
	if err := m.fail("get nearest rate"); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	limit := models.TruncateDay(date)
	var best *models.FxRate
	for _, r := range m.rates[models.NormalizeCurrency(currency)] {
		if r.Date.After(limit) {
			continue
		}
		if best == nil || r.Date.After(best.Date) {
			r := r
			best = &r
		}
	}
	if best == nil {
		return nil, models.ErrNotFound
	}
	return best, nil
}

func (s *fxStore) SaveRates(_ context.Context, rates []*models.FxRate) error {
	m := (*Manager)(s)
	if err := m.fail("save rates"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range rates {
		cur := models.NormalizeCurrency(r.Currency)
		byDate, ok := m.rates[cur]
		if !ok {
			byDate = make(map[string]models.FxRate)
			m.rates[cur] = byDate
		}
		row := *r
		row.Currency = cur
		row.Date = models.TruncateDay(r.Date)
		byDate[models.FormatDate(row.Date)] = row
	}
	return nil
}

// --- manual prices ---

type manualStore Manager

func (s *manualStore) GetManualPrice(_ context.Context, symbol string) (*models.ManualPrice, error) {
	m := (*Manager)(s)
	if err := m.fail("get manual price"); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.manual[models.NormalizeTicker(symbol)]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &p, nil
}

func (s *manualStore) SetManualPrice(_ context.Context, price *models.ManualPrice) error {
	m := (*Manager)(s)
	if err := m.fail("set manual price"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p := *price
	p.Symbol = models.NormalizeTicker(price.Symbol)
	p.Currency = models.NormalizeCurrency(price.Currency)
	m.manual[p.Symbol] = p
	return nil
}

func (s *manualStore) DeleteManualPrice(_ context.Context, symbol string) error {
	m := (*Manager)(s)
	if err := m.fail("delete manual price"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.manual, models.NormalizeTicker(symbol))
	return nil
}

// --- universe ---

type universeStore Manager

func (s *universeStore) ListWatchedTickers(_ context.Context) ([]string, error) {
	m := (*Manager)(s)
	if err := m.fail("list watched"); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	seen := make(map[string]bool)
	var out []string
	for _, e := range m.watchlist {
		if e.Watched && !seen[e.Ticker] {
			seen[e.Ticker] = true
			out = append(out, e.Ticker)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (s *universeStore) ListTransactionTickers(_ context.Context) ([]string, error) {
	m := (*Manager)(s)
	if err := m.fail("list transaction tickers"); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.transactions))
	for t := range m.transactions {
		out = append(out, t)
	}
	sort.Strings(out)
	return out, nil
}

func (s *universeStore) SetWatch(_ context.Context, entry *models.WatchlistEntry) error {
	m := (*Manager)(s)
	if err := m.fail("set watch"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	e := *entry
	e.Ticker = models.NormalizeTicker(entry.Ticker)
	m.watchlist[e.UserID+"|"+e.Ticker] = e
	return nil
}

// Compile-time check
var _ interfaces.StorageManager = (*Manager)(nil)
