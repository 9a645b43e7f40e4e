// Package sqldb implements the StorageManager on gorm, backed by PostgreSQL or SQLite.
package sqldb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/bregovic/shanon-sub001/internal/common"
	"github.com/bregovic/shanon-sub001/internal/interfaces"
	"github.com/bregovic/shanon-sub001/internal/models"
)

const (
	DefaultSQLitePath = "data/shanon.db"

	connectDeadline = 60 * time.Second
	connectBackoff  = 3 * time.Second
)

// Manager implements interfaces.StorageManager using gorm.
type Manager struct {
	db      *gorm.DB
	logger  *common.Logger
	timeout time.Duration
}

// Open connects to the backend named by config.Storage.Backend and migrates the schema.
// PostgreSQL connects are retried until the deadline passes.
func Open(logger *common.Logger, config *common.Config) (*Manager, error) {
	gcfg := &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)}

	var (
		db  *gorm.DB
		err error
	)
	switch config.Storage.Backend {
	case "postgres":
		deadline := time.Now().Add(connectDeadline)
		for {
			db, err = gorm.Open(postgres.Open(config.Storage.DSN), gcfg)
			if err == nil {
				break
			}
			if time.Now().After(deadline) {
				return nil, fmt.Errorf("postgres connect failed after %s: %w", connectDeadline, err)
			}
			logger.Warn().Err(err).Msg("Postgres connect failed, retrying")
			time.Sleep(connectBackoff)
		}
	case "sqlite":
		dsn := config.Storage.DSN
		if dsn == "" {
			dsn = DefaultSQLitePath
		}
		db, err = gorm.Open(sqlite.Open(dsn), gcfg)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite %s: %w", dsn, err)
		}
		// One connection keeps ":memory:" databases shared and serializes sqlite writers
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get sqlite handle: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	default:
		return nil, fmt.Errorf("sqldb: unsupported backend %q", config.Storage.Backend)
	}

	m, err := NewManager(db, logger, config.Storage.GetTimeout())
	if err != nil {
		return nil, err
	}

	logger.Info().Str("backend", config.Storage.Backend).Msg("SQL storage manager initialized")
	return m, nil
}

// NewManager wraps an open gorm handle and migrates the schema.
func NewManager(db *gorm.DB, logger *common.Logger, timeout time.Duration) (*Manager, error) {
	if err := db.AutoMigrate(allRows()...); err != nil {
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}
	return &Manager{db: db, logger: logger, timeout: timeout}, nil
}

func (m *Manager) AliasStore() interfaces.AliasStore             { return (*aliasStore)(m) }
func (m *Manager) QuoteStore() interfaces.QuoteStore             { return (*quoteStore)(m) }
func (m *Manager) HistoryStore() interfaces.HistoryStore         { return (*historyStore)(m) }
func (m *Manager) FxStore() interfaces.FxStore                   { return (*fxStore)(m) }
func (m *Manager) ManualPriceStore() interfaces.ManualPriceStore { return (*manualStore)(m) }
func (m *Manager) UniverseStore() interfaces.UniverseStore       { return (*universeStore)(m) }

func (m *Manager) Close() error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// AddTransactionTicker seeds the ledger table; the ledger itself is written elsewhere.
func (m *Manager) AddTransactionTicker(ctx context.Context, ticker string) error {
	return m.run(ctx, "add transaction", func(tx *gorm.DB) error {
		return tx.Create(&transactionRow{Ticker: models.NormalizeTicker(ticker)}).Error
	})
}

// run executes fn under the store timeout and maps gorm errors onto model errors.
func (m *Manager) run(ctx context.Context, op string, fn func(tx *gorm.DB) error) error {
	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}
	err := fn(m.db.WithContext(ctx))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.ErrNotFound
	}
	return models.WrapStoreError(op, err)
}

func upsertAll(tx *gorm.DB, row any) error {
	return tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(row).Error
}

// --- aliases ---

type aliasStore Manager

func (s *aliasStore) GetAlias(ctx context.Context, symbol string) (*models.TickerAlias, error) {
	var row aliasRow
	err := (*Manager)(s).run(ctx, "get alias", func(tx *gorm.DB) error {
		return tx.First(&row, "alias = ?", models.NormalizeTicker(symbol)).Error
	})
	if err != nil {
		return nil, err
	}
	return row.toModel(), nil
}

func (s *aliasStore) SaveAlias(ctx context.Context, alias *models.TickerAlias) error {
	row := aliasRow{
		Alias:       models.NormalizeTicker(alias.Alias),
		Canonical:   models.NormalizeTicker(alias.Canonical),
		DisplayName: alias.DisplayName,
		UpdatedAt:   alias.UpdatedAt.UTC(),
	}
	return (*Manager)(s).run(ctx, "save alias", func(tx *gorm.DB) error { return upsertAll(tx, &row) })
}

func (s *aliasStore) DeleteAlias(ctx context.Context, symbol string) error {
	return (*Manager)(s).run(ctx, "delete alias", func(tx *gorm.DB) error {
		return tx.Delete(&aliasRow{}, "alias = ?", models.NormalizeTicker(symbol)).Error
	})
}

func (s *aliasStore) ListAliases(ctx context.Context) ([]*models.TickerAlias, error) {
	var rows []aliasRow
	err := (*Manager)(s).run(ctx, "list aliases", func(tx *gorm.DB) error {
		return tx.Order("alias").Find(&rows).Error
	})
	if err != nil {
		return nil, err
	}
	out := make([]*models.TickerAlias, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toModel())
	}
	return out, nil
}

// --- quotes ---

type quoteStore Manager

func (s *quoteStore) GetQuote(ctx context.Context, ticker string) (*models.QuoteRecord, error) {
	var row quoteRow
	err := (*Manager)(s).run(ctx, "get quote", func(tx *gorm.DB) error {
		return tx.First(&row, "ticker = ?", models.NormalizeTicker(ticker)).Error
	})
	if err != nil {
		return nil, err
	}
	return row.toModel(), nil
}

func (s *quoteStore) UpsertQuote(ctx context.Context, quote *models.QuoteRecord) error {
	row := newQuoteRow(quote)
	return (*Manager)(s).run(ctx, "upsert quote", func(tx *gorm.DB) error { return upsertAll(tx, &row) })
}

func (s *quoteStore) ListQuotes(ctx context.Context, activeOnly bool) ([]*models.QuoteRecord, error) {
	var rows []quoteRow
	err := (*Manager)(s).run(ctx, "list quotes", func(tx *gorm.DB) error {
		q := tx.Order("ticker")
		if activeOnly {
			q = q.Where("status = ? OR status = ''", models.StatusActive)
		}
		return q.Find(&rows).Error
	})
	if err != nil {
		return nil, err
	}
	out := make([]*models.QuoteRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toModel())
	}
	return out, nil
}

// --- history ---

type historyStore Manager

func (s *historyStore) AppendPoint(ctx context.Context, point *models.PriceHistoryPoint) error {
	row := historyRow{
		Ticker: models.NormalizeTicker(point.Ticker),
		Date:   models.FormatDate(point.Date),
		Price:  point.Price,
	}
	return (*Manager)(s).run(ctx, "append history", func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "ticker"}, {Name: "date"}},
			DoUpdates: clause.AssignmentColumns([]string{"price"}),
		}).Create(&row).Error
	})
}

func (s *historyStore) GetHistory(ctx context.Context, ticker string) ([]models.PriceHistoryPoint, error) {
	var rows []historyRow
	err := (*Manager)(s).run(ctx, "get history", func(tx *gorm.DB) error {
		return tx.Where("ticker = ?", models.NormalizeTicker(ticker)).Order("date").Find(&rows).Error
	})
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
	return points, nil
}

// --- fx ---

type fxStore Manager

func (s *fxStore) GetRate(ctx context.Context, currency string, date time.Time) (*models.FxRate, error) {
	var row fxRow
	err := (*Manager)(s).run(ctx, "get rate", func(tx *gorm.DB) error {
		return tx.First(&row, "currency = ? AND date = ?", models.NormalizeCurrency(currency), models.FormatDate(date)).Error
	})
	if err != nil {
		return nil, err
	}
	rate, err := row.toModel()
	if err != nil {
		return nil, models.WrapStoreError("get rate", err)
	}
	return rate, nil
}

func (s *fxStore) GetNearestRate(ctx context.Context, currency string, date time.Time) (*models.FxRate, error) {
	var row fxRow
	err := (*Manager)(s).run(ctx, "get nearest rate", func(tx *gorm.DB) error {
		return tx.Where("currency = ? AND date <= ?", models.NormalizeCurrency(currency), models.FormatDate(date)).
			Order("date DESC").
			First(&row).Error
	})
	if err != nil {
		return nil, err
	}
	rate, err := row.toModel()
	if err != nil {
		return nil, models.WrapStoreError("get nearest rate", err)
	}
	return rate, nil
}

func (s *fxStore) SaveRates(ctx context.Context, rates []*models.FxRate) error {
	if len(rates) == 0 {
		return nil
	}
	rows := make([]fxRow, 0, len(rates))
	for _, r := range rates {
		rows = append(rows, fxRow{
			Currency: models.NormalizeCurrency(r.Currency),
			Date:     models.FormatDate(r.Date),
			Rate:     r.Rate.String(),
			Amount:   r.Amount,
			Source:   r.Source,
		})
	}
	return (*Manager)(s).run(ctx, "save rates", func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "currency"}, {Name: "date"}},
			DoUpdates: clause.AssignmentColumns([]string{"rate", "amount", "source"}),
		}).Create(&rows).Error
	})
}

// --- manual prices ---

type manualStore Manager

func (s *manualStore) GetManualPrice(ctx context.Context, symbol string) (*models.ManualPrice, error) {
	var row manualRow
	err := (*Manager)(s).run(ctx, "get manual price", func(tx *gorm.DB) error {
		return tx.First(&row, "symbol = ?", models.NormalizeTicker(symbol)).Error
	})
	if err != nil {
		return nil, err
	}
	return &models.ManualPrice{Symbol: row.Symbol, Price: row.Price, Currency: row.Currency, Note: row.Note, UpdatedAt: row.UpdatedAt}, nil
}

func (s *manualStore) SetManualPrice(ctx context.Context, price *models.ManualPrice) error {
	row := manualRow{
		Symbol:    models.NormalizeTicker(price.Symbol),
		Price:     price.Price,
		Currency:  models.NormalizeCurrency(price.Currency),
		Note:      price.Note,
		UpdatedAt: price.UpdatedAt.UTC(),
	}
	return (*Manager)(s).run(ctx, "set manual price", func(tx *gorm.DB) error { return upsertAll(tx, &row) })
}

func (s *manualStore) DeleteManualPrice(ctx context.Context, symbol string) error {
	return (*Manager)(s).run(ctx, "delete manual price", func(tx *gorm.DB) error {
		return tx.Delete(&manualRow{}, "symbol = ?", models.NormalizeTicker(symbol)).Error
	})
}

// --- universe ---

type universeStore Manager

func (s *universeStore) ListWatchedTickers(ctx context.Context) ([]string, error) {
	var tickers []string
	err := (*Manager)(s).run(ctx, "list watched", func(tx *gorm.DB) error {
		return tx.Model(&watchRow{}).Where("watched = ?", true).Distinct("ticker").Order("ticker").Pluck("ticker", &tickers).Error
	})
	return tickers, err
}

func (s *universeStore) ListTransactionTickers(ctx context.Context) ([]string, error) {
	var tickers []string
	err := (*Manager)(s).run(ctx, "list transaction tickers", func(tx *gorm.DB) error {
		return tx.Model(&transactionRow{}).Distinct("ticker").Order("ticker").Pluck("ticker", &tickers).Error
	})
	return tickers, err
}

func (s *universeStore) SetWatch(ctx context.Context, entry *models.WatchlistEntry) error {
	row := watchRow{UserID: entry.UserID, Ticker: models.NormalizeTicker(entry.Ticker), Watched: entry.Watched}
	return (*Manager)(s).run(ctx, "set watch", func(tx *gorm.DB) error { return upsertAll(tx, &row) })
}

// Compile-time check
var _ interfaces.StorageManager = (*Manager)(nil)
