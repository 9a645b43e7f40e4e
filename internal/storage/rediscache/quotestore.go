// Package rediscache puts a Redis read-through cache in front of the quote table.
package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/bregovic/shanon-sub001/internal/common"
	"github.com/bregovic/shanon-sub001/internal/interfaces"
	"github.com/bregovic/shanon-sub001/internal/models"
)

const (
	DefaultTTL       = 5 * time.Minute
	DefaultNamespace = "shanon:quote"
)

// NewClient connects to Redis and verifies the connection.
func NewClient(ctx context.Context, config common.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     config.Address,
		Password: config.Password,
		DB:       config.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", config.Address, err)
	}
	return rdb, nil
}

// QuoteStore decorates a QuoteStore. Writes go to the inner store first and
// then refresh the cached row; cache failures never fail the call.
type QuoteStore struct {
	inner     interfaces.QuoteStore
	rdb       *redis.Client
	ttl       time.Duration
	namespace string
	logger    *common.Logger
}

// NewQuoteStore wraps inner. A nil rdb bypasses the cache entirely.
func NewQuoteStore(inner interfaces.QuoteStore, rdb *redis.Client, ttl time.Duration, logger *common.Logger) *QuoteStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	return &QuoteStore{inner: inner, rdb: rdb, ttl: ttl, namespace: DefaultNamespace, logger: logger}
}

func (s *QuoteStore) key(ticker string) string {
	return s.namespace + ":" + strings.ReplaceAll(models.NormalizeTicker(ticker), " ", "_")
}

func (s *QuoteStore) GetQuote(ctx context.Context, ticker string) (*models.QuoteRecord, error) {
	if s.rdb == nil {
		return s.inner.GetQuote(ctx, ticker)
	}

	key := s.key(ticker)
	b, err := s.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil && len(b) > 0:
		var q models.QuoteRecord
		if err := json.Unmarshal(b, &q); err == nil {
			return &q, nil
		}
		s.logger.Warn().Str("key", key).Msg("Dropping corrupt cached quote")
		_ = s.rdb.Del(ctx, key).Err()
	case err != nil && !errors.Is(err, redis.Nil):
		s.logger.Debug().Err(err).Str("key", key).Msg("Quote cache read failed")
	}

	q, err := s.inner.GetQuote(ctx, ticker)
	if err != nil {
		return nil, err
	}
	s.put(ctx, q)
	return q, nil
}

func (s *QuoteStore) UpsertQuote(ctx context.Context, quote *models.QuoteRecord) error {
	if err := s.inner.UpsertQuote(ctx, quote); err != nil {
		return err
	}
	if s.rdb != nil && !s.put(ctx, quote) {
		// Drop the old entry so reads fall through to the store
		key := s.key(quote.Ticker)
		if err := s.rdb.Del(ctx, key).Err(); err != nil {
			s.logger.Warn().Err(err).Str("key", key).Msg("Stale cached quote not evicted")
		}
	}
	return nil
}

func (s *QuoteStore) ListQuotes(ctx context.Context, activeOnly bool) ([]*models.QuoteRecord, error) {
	return s.inner.ListQuotes(ctx, activeOnly)
}

// put caches q and reports whether the write landed.
func (s *QuoteStore) put(ctx context.Context, q *models.QuoteRecord) bool {
	b, err := json.Marshal(q)
	if err != nil {
		return false
	}
	if err := s.rdb.Set(ctx, s.key(q.Ticker), b, s.ttl).Err(); err != nil {
		s.logger.Debug().Err(err).Str("ticker", q.Ticker).Msg("Quote cache write failed")
		return false
	}
	return true
}

// Manager overrides the quote table of an underlying StorageManager.
type Manager struct {
	interfaces.StorageManager
	quotes *QuoteStore
	rdb    *redis.Client
}

// Wrap returns inner with its QuoteStore cached in rdb.
func Wrap(inner interfaces.StorageManager, rdb *redis.Client, ttl time.Duration, logger *common.Logger) *Manager {
	return &Manager{
		StorageManager: inner,
		quotes:         NewQuoteStore(inner.QuoteStore(), rdb, ttl, logger),
		rdb:            rdb,
	}
}

func (m *Manager) QuoteStore() interfaces.QuoteStore { return m.quotes }

// Close closes the Redis client and the wrapped manager.
func (m *Manager) Close() error {
	var rerr error
	if m.rdb != nil {
		rerr = m.rdb.Close()
	}
	if err := m.StorageManager.Close(); err != nil {
		return err
	}
	return rerr
}

// Compile-time checks
var (
	_ interfaces.QuoteStore     = (*QuoteStore)(nil)
	_ interfaces.StorageManager = (*Manager)(nil)
)
