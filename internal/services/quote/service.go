// Package quote answers quote requests and drives batch refresh over the
// ticker universe
package quote

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/bregovic/shanon-sub001/internal/common"
	"github.com/bregovic/shanon-sub001/internal/interfaces"
	"github.com/bregovic/shanon-sub001/internal/models"
)

// TickerHook is called after each ticker in a batch refresh; err is nil on success.
type TickerHook func(ticker string, err error)

// Service implements interfaces.QuoteService
type Service struct {
	aliases  interfaces.AliasResolver
	cache    interfaces.QuoteCache
	universe interfaces.UniverseStore
	ttl      time.Duration
	workers  int
	hook     TickerHook
	logger   *common.Logger
	now      func() time.Time
}

// Option configures the service
type Option func(*Service)

// WithWorkers sets the number of concurrent refresh workers
func WithWorkers(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithTickerHook registers a per-ticker refresh callback
func WithTickerHook(hook TickerHook) Option {
	return func(s *Service) {
		s.hook = hook
	}
}

// NewService creates a new quote service
func NewService(aliases interfaces.AliasResolver, cache interfaces.QuoteCache, universe interfaces.UniverseStore, ttl time.Duration, logger *common.Logger, opts ...Option) *Service {
	s := &Service{
		aliases:  aliases,
		cache:    cache,
		universe: universe,
		ttl:      ttl,
		workers:  1,
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetQuote canonicalizes ticker and serves it through the cache.
func (s *Service) GetQuote(ctx context.Context, ticker string, forceFresh bool, currencyHint string) (*models.QuoteRecord, error) {
	canonical, err := s.aliases.Resolve(ctx, ticker)
	if err != nil {
		return nil, err
	}
	return s.cache.GetOrFetch(ctx, canonical, s.ttl, forceFresh, currencyHint)
}

// Universe returns the canonical tickers to keep fresh: every watched
// ticker plus every ticker referenced by a transaction, sorted.
func (s *Service) Universe(ctx context.Context) ([]string, error) {
	watched, err := s.universe.ListWatchedTickers(ctx)
	if err != nil {
		return nil, models.WrapStoreError("list watched tickers", err)
	}
	traded, err := s.universe.ListTransactionTickers(ctx)
	if err != nil {
		return nil, models.WrapStoreError("list transaction tickers", err)
	}

	seen := make(map[string]bool, len(watched)+len(traded))
	var out []string
	for _, raw := range append(watched, traded...) {
		canonical, err := s.aliases.Resolve(ctx, raw)
		if errors.Is(err, models.ErrInvalidAlias) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if !seen[canonical] {
			seen[canonical] = true
			out = append(out, canonical)
		}
	}
	sort.Strings(out)
	return out, nil
}

// RefreshAll force-refreshes every ticker in the universe. Ticker starts
// are spaced by perCallDelay across all workers; one ticker's failure
// never stops the others.
func (s *Service) RefreshAll(ctx context.Context, perCallDelay time.Duration) (*models.RefreshResult, error) {
	started := s.now()
	tickers, err := s.Universe(ctx)
	if err != nil {
		return nil, err
	}

	limit := rate.Inf
	if perCallDelay > 0 {
		limit = rate.Every(perCallDelay)
	}
	limiter := rate.NewLimiter(limit, 1)

	result := &models.RefreshResult{
		Total:     len(tickers),
		Details:   []string{},
		StartedAt: started,
	}

	workers := s.workers
	if workers > len(tickers) {
		workers = len(tickers)
	}

	s.logger.Info().
		Int("tickers", len(tickers)).
		Int("workers", workers).
		Dur("per_call_delay", perCallDelay).
		Msg("Batch refresh started")

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	record := func(ticker string, err error) {
		mu.Lock()
		if err == nil {
			result.Updated++
		} else {
			result.Failed++
			result.Details = append(result.Details, fmt.Sprintf("%s: %v", ticker, err))
		}
		mu.Unlock()
		if s.hook != nil {
			s.hook(ticker, err)
		}
	}

	jobs := make(chan string)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ticker := range jobs {
				if err := limiter.Wait(ctx); err != nil {
					record(ticker, fmt.Errorf("cancelled: %w", err))
					continue
				}
				record(ticker, s.refreshOne(ctx, ticker))
			}
		}()
	}
	for _, t := range tickers {
		jobs <- t
	}
	close(jobs)
	wg.Wait()

	sort.Strings(result.Details)
	result.Elapsed = s.now().Sub(started)

	s.logger.Info().
		Int("total", result.Total).
		Int("updated", result.Updated).
		Int("failed", result.Failed).
		Dur("elapsed", result.Elapsed).
		Msg("Batch refresh complete")
	return result, nil
}

// refreshOne fetches ticker, using the stored row's currency as the hint
// so suffix variants are tried for non-US listings.
func (s *Service) refreshOne(ctx context.Context, ticker string) error {
	hint := ""
	if stored, err := s.cache.Get(ctx, ticker); err == nil {
		hint = stored.Currency
	} else if !errors.Is(err, models.ErrNotFound) {
		return err
	}

	_, err := s.cache.GetOrFetch(ctx, ticker, 0, true, hint)
	if err != nil {
		s.logger.Debug().Err(err).Str("ticker", ticker).Msg("Ticker refresh failed")
	}
	return err
}

// Compile-time check
var _ interfaces.QuoteService = (*Service)(nil)
