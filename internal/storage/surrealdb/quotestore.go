package surrealdb

import (
	"context"
	"sort"

	"github.com/bregovic/shanon-sub001/internal/models"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// AliasStore persists alias mappings keyed by the alias symbol.
type AliasStore struct{ base }

func aliasRID(symbol string) surrealmodels.RecordID {
	return surrealmodels.NewRecordID(tableAlias, recordKey(symbol))
}

func (s *AliasStore) GetAlias(ctx context.Context, symbol string) (*models.TickerAlias, error) {
	return selectOne[models.TickerAlias](ctx, s.base, "get alias", aliasRID(symbol))
}

func (s *AliasStore) SaveAlias(ctx context.Context, alias *models.TickerAlias) error {
	row := *alias
	row.Alias = models.NormalizeTicker(alias.Alias)
	row.Canonical = models.NormalizeTicker(alias.Canonical)
	return upsert(ctx, s.base, "save alias", aliasRID(row.Alias), &row)
}

func (s *AliasStore) DeleteAlias(ctx context.Context, symbol string) error {
	return exec(ctx, s.base, "delete alias", "DELETE $rid", map[string]any{"rid": aliasRID(symbol)})
}

func (s *AliasStore) ListAliases(ctx context.Context) ([]*models.TickerAlias, error) {
	rows, err := queryRows[models.TickerAlias](ctx, s.base, "list aliases", "SELECT * FROM alias ORDER BY alias ASC", nil)
	if err != nil {
		return nil, err
	}
	out := make([]*models.TickerAlias, 0, len(rows))
	for i := range rows {
		out = append(out, &rows[i])
	}
	return out, nil
}

// QuoteStore persists one row per canonical ticker.
type QuoteStore struct{ base }

func quoteRID(ticker string) surrealmodels.RecordID {
	return surrealmodels.NewRecordID(tableQuote, recordKey(ticker))
}

func (s *QuoteStore) GetQuote(ctx context.Context, ticker string) (*models.QuoteRecord, error) {
	return selectOne[models.QuoteRecord](ctx, s.base, "get quote", quoteRID(ticker))
}

func (s *QuoteStore) UpsertQuote(ctx context.Context, quote *models.QuoteRecord) error {
	row := *quote
	row.Ticker = models.NormalizeTicker(quote.Ticker)
	return upsert(ctx, s.base, "upsert quote", quoteRID(row.Ticker), &row)
}

func (s *QuoteStore) ListQuotes(ctx context.Context, activeOnly bool) ([]*models.QuoteRecord, error) {
	rows, err := queryRows[models.QuoteRecord](ctx, s.base, "list quotes", "SELECT * FROM quote", nil)
	if err != nil {
		return nil, err
	}
	out := make([]*models.QuoteRecord, 0, len(rows))
	for i := range rows {
		if activeOnly && !rows[i].IsActive() {
			continue
		}
		out = append(out, &rows[i])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ticker < out[j].Ticker })
	return out, nil
}

// ManualPriceStore persists operator overrides keyed by symbol.
type ManualPriceStore struct{ base }

func manualRID(symbol string) surrealmodels.RecordID {
	return surrealmodels.NewRecordID(tableManualPrice, recordKey(symbol))
}

func (s *ManualPriceStore) GetManualPrice(ctx context.Context, symbol string) (*models.ManualPrice, error) {
	return selectOne[models.ManualPrice](ctx, s.base, "get manual price", manualRID(symbol))
}

func (s *ManualPriceStore) SetManualPrice(ctx context.Context, price *models.ManualPrice) error {
	row := *price
	row.Symbol = models.NormalizeTicker(price.Symbol)
	row.Currency = models.NormalizeCurrency(price.Currency)
	return upsert(ctx, s.base, "set manual price", manualRID(row.Symbol), &row)
}

func (s *ManualPriceStore) DeleteManualPrice(ctx context.Context, symbol string) error {
	return exec(ctx, s.base, "delete manual price", "DELETE $rid", map[string]any{"rid": manualRID(symbol)})
}
