package surrealdb

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/bregovic/shanon-sub001/internal/models"
	"github.com/shopspring/decimal"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// HistoryStore persists daily prices, one record per ticker and day.
type HistoryStore struct{ base }

// historyRecord stores the day as YYYY-MM-DD so ordering is lexical.
type historyRecord struct {
	Ticker string  `json:"ticker"`
	Date   string  `json:"date"`
	Price  float64 `json:"price"`
}

func (s *HistoryStore) AppendPoint(ctx context.Context, point *models.PriceHistoryPoint) error {
	row := historyRecord{
		Ticker: models.NormalizeTicker(point.Ticker),
		Date:   models.FormatDate(point.Date),
		Price:  point.Price,
	}
	rid := surrealmodels.NewRecordID(tableHistory, recordKey(row.Ticker, row.Date))
	return upsert(ctx, s.base, "append history", rid, &row)
}

func (s *HistoryStore) GetHistory(ctx context.Context, ticker string) ([]models.PriceHistoryPoint, error) {
	sql := "SELECT ticker, date, price FROM price_history WHERE ticker = $ticker ORDER BY date ASC"
	rows, err := queryRows[historyRecord](ctx, s.base, "get history", sql, map[string]any{"ticker": models.NormalizeTicker(ticker)})
	if err != nil {
		return nil, err
	}
	points := make([]models.PriceHistoryPoint, 0, len(rows))
	for _, r := range rows {
		d, err := models.ParseDate(r.Date)
		if err != nil {
			s.logger.Warn().Str("ticker", r.Ticker).Str("date", r.Date).Msg("Skipping history row with bad date")
			continue
		}
		points = append(points, models.PriceHistoryPoint{Ticker: r.Ticker, Date: d, Price: r.Price})
	}
	sort.SliceStable(points, func(i, j int) bool { return points[i].Date.Before(points[j].Date) })
	return points, nil
}

// FxStore persists fixings keyed by (currency, date).
type FxStore struct{ base }

// fxRecord keeps the rate as a decimal string.
type fxRecord struct {
	Currency string `json:"currency"`
	Date     string `json:"date"`
	Rate     string `json:"rate"`
	Amount   int64  `json:"amount"`
	Source   string `json:"source,omitempty"`
}

func (r fxRecord) toModel() (*models.FxRate, error) {
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

func fxRID(currency string, date time.Time) surrealmodels.RecordID {
	return surrealmodels.NewRecordID(tableFxRate, recordKey(currency, models.FormatDate(date)))
}

func (s *FxStore) GetRate(ctx context.Context, currency string, date time.Time) (*models.FxRate, error) {
	row, err := selectOne[fxRecord](ctx, s.base, "get rate", fxRID(currency, date))
	if err != nil {
		return nil, err
	}
	rate, err := row.toModel()
	if err != nil {
		return nil, models.WrapStoreError("get rate", err)
	}
	return rate, nil
}

func (s *FxStore) GetNearestRate(ctx context.Context, currency string, date time.Time) (*models.FxRate, error) {
	sql := "SELECT * FROM fx_rate WHERE currency = $currency AND date <= $date ORDER BY date DESC LIMIT 1"
	vars := map[string]any{
		"currency": models.NormalizeCurrency(currency),
		"date":     models.FormatDate(date),
	}
	rows, err := queryRows[fxRecord](ctx, s.base, "get nearest rate", sql, vars)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, models.ErrNotFound
	}
	rate, err := rows[0].toModel()
	if err != nil {
		return nil, models.WrapStoreError("get nearest rate", err)
	}
	return rate, nil
}

func (s *FxStore) SaveRates(ctx context.Context, rates []*models.FxRate) error {
	for _, r := range rates {
		row := fxRecord{
			Currency: models.NormalizeCurrency(r.Currency),
			Date:     models.FormatDate(r.Date),
			Rate:     r.Rate.String(),
			Amount:   r.Amount,
			Source:   r.Source,
		}
		if err := upsert(ctx, s.base, "save rates", fxRID(row.Currency, r.Date), &row); err != nil {
			return err
		}
	}
	return nil
}

// UniverseStore reads the watchlist and transaction ledger tables.
type UniverseStore struct{ base }

type tickerRow struct {
	Ticker string `json:"ticker"`
}

func (s *UniverseStore) ListWatchedTickers(ctx context.Context) ([]string, error) {
	rows, err := queryRows[tickerRow](ctx, s.base, "list watched", "SELECT ticker FROM watchlist WHERE watched = true", nil)
	if err != nil {
		return nil, err
	}
	return distinctTickers(rows), nil
}

func (s *UniverseStore) ListTransactionTickers(ctx context.Context) ([]string, error) {
	rows, err := queryRows[tickerRow](ctx, s.base, "list transaction tickers", "SELECT ticker FROM ledger_transaction", nil)
	if err != nil {
		return nil, err
	}
	return distinctTickers(rows), nil
}

func (s *UniverseStore) SetWatch(ctx context.Context, entry *models.WatchlistEntry) error {
	row := *entry
	row.Ticker = models.NormalizeTicker(entry.Ticker)
	rid := surrealmodels.NewRecordID(tableWatchlist, recordKey(row.UserID, row.Ticker))
	return upsert(ctx, s.base, "set watch", rid, &row)
}

// addTransactionTicker seeds the ledger table; the ledger itself is written elsewhere.
func (s *UniverseStore) addTransactionTicker(ctx context.Context, ticker string) error {
	return exec(ctx, s.base, "add transaction", "CREATE ledger_transaction CONTENT { ticker: $ticker }",
		map[string]any{"ticker": models.NormalizeTicker(ticker)})
}

func distinctTickers(rows []tickerRow) []string {
	seen := make(map[string]bool, len(rows))
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		t := models.NormalizeTicker(r.Ticker)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
