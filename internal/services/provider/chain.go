// Package provider implements the ordered quote provider chain
package provider

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bregovic/shanon-sub001/internal/common"
	"github.com/bregovic/shanon-sub001/internal/interfaces"
	"github.com/bregovic/shanon-sub001/internal/models"
)

// DefaultCallTimeout bounds a single provider call
const DefaultCallTimeout = 10 * time.Second

// LastResort is implemented by providers that should only be consulted
// once every other provider has missed on every variant.
type LastResort interface {
	LastResort() bool
}

// FetchResult is the outcome of one chain fetch. Quote is nil when every
// provider and variant missed; that is a normal result, not an error.
type FetchResult struct {
	Quote    *models.QuoteRecord
	Attempts []models.FetchAttempt
}

// Found reports whether a provider produced a price
func (r *FetchResult) Found() bool {
	return r != nil && r.Quote.HasPrice()
}

// Err returns a FetchError describing the misses, or nil when found.
func (r *FetchResult) Err(ticker string) error {
	if r.Found() {
		return nil
	}
	return &models.FetchError{Ticker: ticker, Attempts: r.Attempts}
}

// Chain tries each candidate variant against each provider in order.
type Chain struct {
	primary     []interfaces.QuoteProvider
	lastResort  []interfaces.QuoteProvider
	pacer       *Pacer
	callTimeout time.Duration
	logger      *common.Logger
	now         func() time.Time
}

// NewChain creates a provider chain. pacer may be nil for unpaced use.
func NewChain(providers []interfaces.QuoteProvider, pacer *Pacer, callTimeout time.Duration, logger *common.Logger) *Chain {
	if callTimeout <= 0 {
		callTimeout = DefaultCallTimeout
	}
	if pacer == nil {
		pacer = NewPacer(nil)
	}
	c := &Chain{
		pacer:       pacer,
		callTimeout: callTimeout,
		logger:      logger,
		now:         time.Now,
	}
	for _, p := range providers {
		if lr, ok := p.(LastResort); ok && lr.LastResort() {
			c.lastResort = append(c.lastResort, p)
		} else {
			c.primary = append(c.primary, p)
		}
	}
	return c
}

// Providers returns provider names in the order they are consulted
func (c *Chain) Providers() []string {
	names := make([]string, 0, len(c.primary)+len(c.lastResort))
	for _, p := range c.primary {
		names = append(names, p.Name())
	}
	for _, p := range c.lastResort {
		names = append(names, p.Name())
	}
	return names
}

// Fetch resolves a quote for canonical. The first provider returning a
// positive price for any variant wins.
func (c *Chain) Fetch(ctx context.Context, canonical, currencyHint string) *FetchResult {
	result := &FetchResult{}
	variants := CandidateVariants(canonical, currencyHint)

	for _, group := range [][]interfaces.QuoteProvider{c.primary, c.lastResort} {
		for _, variant := range variants {
			for _, p := range group {
				if ctx.Err() != nil {
					result.Attempts = append(result.Attempts, models.FetchAttempt{
						Provider: p.Name(), Variant: variant,
						Outcome: models.OutcomeUnavailable, Error: ctx.Err().Error(),
					})
					return result
				}

				rec, attempt := c.try(ctx, p, variant)
				result.Attempts = append(result.Attempts, attempt)
				if rec == nil {
					continue
				}

				c.normalize(rec, canonical, variant, currencyHint, p.Name())
				result.Quote = rec

				c.logger.Debug().
					Str("ticker", canonical).
					Str("provider", p.Name()).
					Str("variant", variant).
					Float64("price", rec.Price).
					Str("currency", rec.Currency).
					Msg("Quote resolved")
				return result
			}
		}
	}

	c.logger.Debug().
		Str("ticker", canonical).
		Int("attempts", len(result.Attempts)).
		Msg("No provider returned a price")
	return result
}

// try makes one paced, time-bounded provider call.
func (c *Chain) try(ctx context.Context, p interfaces.QuoteProvider, variant string) (*models.QuoteRecord, models.FetchAttempt) {
	attempt := models.FetchAttempt{Provider: p.Name(), Variant: variant}
	start := time.Now()

	release, err := c.pacer.Acquire(ctx, p.Name())
	if err != nil {
		attempt.Outcome = models.OutcomeUnavailable
		attempt.Error = fmt.Sprintf("pacer: %v", err)
		attempt.Elapsed = time.Since(start)
		return nil, attempt
	}

	callCtx, cancel := context.WithTimeout(ctx, c.callTimeout)
	rec, ok, err := p.TryFetch(callCtx, variant)
	cancel()
	release()
	attempt.Elapsed = time.Since(start)

	switch {
	case err != nil:
		if errors.Is(err, models.ErrParse) {
			attempt.Outcome = models.OutcomeParseError
		} else {
			attempt.Outcome = models.OutcomeUnavailable
		}
		attempt.Error = err.Error()
		c.logger.Debug().Err(err).
			Str("provider", p.Name()).
			Str("variant", variant).
			Str("outcome", attempt.Outcome).
			Msg("Provider call failed")
		return nil, attempt
	case !ok || !rec.HasPrice():
		attempt.Outcome = models.OutcomeNotFound
		return nil, attempt
	}

	attempt.Outcome = models.OutcomeFound
	return rec, attempt
}

func (c *Chain) normalize(rec *models.QuoteRecord, canonical, variant, hint, providerName string) {
	rec.Ticker = canonical
	rec.Currency = normalizeCurrency(rec.Currency, variant, hint)
	if rec.Source == "" {
		rec.Source = providerName
	}
	if rec.ProviderSymbol == "" {
		rec.ProviderSymbol = variant
	}
	if rec.ChangePct == 0 && rec.PreviousClose > 0 && rec.Change != 0 {
		rec.ChangePct = rec.Change / rec.PreviousClose * 100
	}
	rec.LastFetched = c.now()
}
