// Package analytics computes price-history analytics and stores them on
// the quote row
package analytics

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bregovic/shanon-sub001/internal/common"
	"github.com/bregovic/shanon-sub001/internal/interfaces"
	"github.com/bregovic/shanon-sub001/internal/models"
	"github.com/bregovic/shanon-sub001/internal/signals"
)

// Service implements interfaces.AnalyticsService
type Service struct {
	aliases  interfaces.AliasResolver
	cache    interfaces.QuoteCache
	quotes   interfaces.QuoteStore
	history  interfaces.HistoryStore
	computer *signals.Computer
	logger   *common.Logger
	now      func() time.Time
}

// NewService creates a new analytics service. Results are written back
// through cache; quotes is only listed.
func NewService(aliases interfaces.AliasResolver, cache interfaces.QuoteCache, quotes interfaces.QuoteStore, history interfaces.HistoryStore, logger *common.Logger) *Service {
	return &Service{
		aliases:  aliases,
		cache:    cache,
		quotes:   quotes,
		history:  history,
		computer: signals.NewComputer(),
		logger:   logger,
		now:      time.Now,
	}
}

// ComputeAnalytics derives analytics for ticker as of today and writes
// them onto its quote row. A ticker with no quote row yet returns the
// analytics without storing them.
func (s *Service) ComputeAnalytics(ctx context.Context, ticker string) (*models.Analytics, error) {
	canonical, err := s.aliases.Resolve(ctx, ticker)
	if err != nil {
		return nil, err
	}

	points, err := s.history.GetHistory(ctx, canonical)
	if err != nil {
		return nil, models.WrapStoreError("get history", err)
	}

	now := s.now()
	result := s.computer.Compute(canonical, points, now)
	result.ComputedAt = now

	if _, err := s.cache.ApplyAnalytics(ctx, canonical, result); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.logger.Debug().Str("ticker", canonical).Msg("No quote row; analytics not stored")
			return result, nil
		}
		return nil, err
	}

	s.logger.Debug().
		Str("ticker", canonical).
		Int("points", result.Points).
		Bool("ema", result.EMA != nil).
		Msg("Analytics computed")
	return result, nil
}

// ComputeAll computes analytics for every active quote. Per-ticker
// failures are recorded and the pass continues; a store failure listing
// the quotes aborts it.
func (s *Service) ComputeAll(ctx context.Context) (*models.AnalyticsRunResult, error) {
	quotes, err := s.quotes.ListQuotes(ctx, true)
	if err != nil {
		return nil, models.WrapStoreError("list quotes", err)
	}

	result := &models.AnalyticsRunResult{Total: len(quotes), Details: []string{}}
	for _, q := range quotes {
		if err := ctx.Err(); err != nil {
			result.Failed += result.Total - result.Computed - result.Failed
			result.Details = append(result.Details, fmt.Sprintf("cancelled: %v", err))
			break
		}
		if _, err := s.ComputeAnalytics(ctx, q.Ticker); err != nil {
			result.Failed++
			result.Details = append(result.Details, fmt.Sprintf("%s: %v", q.Ticker, err))
			s.logger.Warn().Err(err).Str("ticker", q.Ticker).Msg("Analytics failed")
			continue
		}
		result.Computed++
	}

	s.logger.Info().
		Int("total", result.Total).
		Int("computed", result.Computed).
		Int("failed", result.Failed).
		Msg("Analytics pass complete")
	return result, nil
}

// Compile-time check
var _ interfaces.AnalyticsService = (*Service)(nil)
