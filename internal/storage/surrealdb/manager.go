// Package surrealdb implements the StorageManager on SurrealDB.
package surrealdb

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bregovic/shanon-sub001/internal/common"
	"github.com/bregovic/shanon-sub001/internal/interfaces"
	"github.com/bregovic/shanon-sub001/internal/models"
	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// Table names
const (
	tableAlias       = "alias"
	tableQuote       = "quote"
	tableHistory     = "price_history"
	tableFxRate      = "fx_rate"
	tableManualPrice = "manual_price"
	tableWatchlist   = "watchlist"
	tableTransaction = "ledger_transaction"
)

const writeAttempts = 3

// Manager implements interfaces.StorageManager using SurrealDB.
type Manager struct {
	db     *surrealdb.DB
	logger *common.Logger

	aliasStore    *AliasStore
	quoteStore    *QuoteStore
	historyStore  *HistoryStore
	fxStore       *FxStore
	manualStore   *ManualPriceStore
	universeStore *UniverseStore
}

// NewManager creates a new StorageManager connected to SurrealDB.
func NewManager(logger *common.Logger, config *common.Config) (*Manager, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := surrealdb.New(config.Storage.Address)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to SurrealDB: %w", err)
	}

	if _, err := db.SignIn(ctx, map[string]interface{}{
		"user": config.Storage.Username,
		"pass": config.Storage.Password,
	}); err != nil {
		db.Close(context.Background())
		return nil, fmt.Errorf("failed to sign in to SurrealDB: %w", err)
	}

	if err := db.Use(ctx, config.Storage.Namespace, config.Storage.Database); err != nil {
		db.Close(context.Background())
		return nil, fmt.Errorf("failed to select namespace/database: %w", err)
	}

	if err := defineTables(ctx, db); err != nil {
		db.Close(context.Background())
		return nil, err
	}

	m := newManager(db, logger, config.Storage.GetTimeout())

	logger.Info().
		Str("address", config.Storage.Address).
		Str("namespace", config.Storage.Namespace).
		Str("database", config.Storage.Database).
		Msg("SurrealDB storage manager initialized")

	return m, nil
}

func newManager(db *surrealdb.DB, logger *common.Logger, timeout time.Duration) *Manager {
	b := base{db: db, logger: logger, timeout: timeout}
	return &Manager{
		db:            db,
		logger:        logger,
		aliasStore:    &AliasStore{b},
		quoteStore:    &QuoteStore{b},
		historyStore:  &HistoryStore{b},
		fxStore:       &FxStore{b},
		manualStore:   &ManualPriceStore{b},
		universeStore: &UniverseStore{b},
	}
}

// defineTables creates every table up front; SurrealDB v3 errors when querying a missing table.
func defineTables(ctx context.Context, db *surrealdb.DB) error {
	tables := []string{tableAlias, tableQuote, tableHistory, tableFxRate, tableManualPrice, tableWatchlist, tableTransaction}
	for _, table := range tables {
		sql := fmt.Sprintf("DEFINE TABLE IF NOT EXISTS %s SCHEMALESS", table)
		if _, err := surrealdb.Query[any](ctx, db, sql, nil); err != nil {
			return fmt.Errorf("failed to define table %s: %w", table, err)
		}
	}
	return nil
}

func (m *Manager) AliasStore() interfaces.AliasStore             { return m.aliasStore }
func (m *Manager) QuoteStore() interfaces.QuoteStore             { return m.quoteStore }
func (m *Manager) HistoryStore() interfaces.HistoryStore         { return m.historyStore }
func (m *Manager) FxStore() interfaces.FxStore                   { return m.fxStore }
func (m *Manager) ManualPriceStore() interfaces.ManualPriceStore { return m.manualStore }
func (m *Manager) UniverseStore() interfaces.UniverseStore       { return m.universeStore }

func (m *Manager) Close() error {
	m.db.Close(context.Background())
	return nil
}

// base carries what every store needs.
type base struct {
	db      *surrealdb.DB
	logger  *common.Logger
	timeout time.Duration
}

func (b base) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if b.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, b.timeout)
}

// upsert writes data to rid, retrying transient failures.
func upsert[T any](ctx context.Context, b base, op string, rid any, data *T) error {
	ctx, cancel := b.withTimeout(ctx)
	defer cancel()

	sql := "UPSERT $rid CONTENT $data"
	vars := map[string]any{"rid": rid, "data": data}

	var lastErr error
	for attempt := 1; attempt <= writeAttempts; attempt++ {
		_, err := surrealdb.Query[[]T](ctx, b.db, sql, vars)
		if err == nil {
			return nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}
	return models.WrapStoreError(op, fmt.Errorf("after %d attempts: %w", writeAttempts, lastErr))
}

// selectOne reads a single record, mapping a missing row to models.ErrNotFound.
func selectOne[T any](ctx context.Context, b base, op string, rid surrealmodels.RecordID) (*T, error) {
	ctx, cancel := b.withTimeout(ctx)
	defer cancel()

	data, err := surrealdb.Select[T](ctx, b.db, rid)
	if err != nil {
		if isNotFoundError(err) {
			return nil, models.ErrNotFound
		}
		return nil, models.WrapStoreError(op, err)
	}
	if data == nil {
		return nil, models.ErrNotFound
	}
	return data, nil
}

// queryRows runs sql and returns the rows of its first statement.
func queryRows[T any](ctx context.Context, b base, op, sql string, vars map[string]any) ([]T, error) {
	ctx, cancel := b.withTimeout(ctx)
	defer cancel()

	results, err := surrealdb.Query[[]T](ctx, b.db, sql, vars)
	if err != nil {
		if isNotFoundError(err) {
			return nil, nil
		}
		return nil, models.WrapStoreError(op, err)
	}
	if results == nil || len(*results) == 0 {
		return nil, nil
	}
	return (*results)[0].Result, nil
}

func exec(ctx context.Context, b base, op, sql string, vars map[string]any) error {
	ctx, cancel := b.withTimeout(ctx)
	defer cancel()

	if _, err := surrealdb.Query[any](ctx, b.db, sql, vars); err != nil && !isNotFoundError(err) {
		return models.WrapStoreError(op, err)
	}
	return nil
}

func isNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "not found") || strings.Contains(msg, "does not exist")
}

// recordKey builds a record ID from normalized parts, e.g. "USD|2024-01-10".
func recordKey(parts ...string) string {
	keyed := make([]string, len(parts))
	for i, p := range parts {
		keyed[i] = models.NormalizeTicker(p)
	}
	return strings.Join(keyed, "|")
}

// Compile-time check
var _ interfaces.StorageManager = (*Manager)(nil)
