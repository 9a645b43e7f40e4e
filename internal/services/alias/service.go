// Package alias canonicalizes ticker symbols through the alias table
package alias

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bregovic/shanon-sub001/internal/common"
	"github.com/bregovic/shanon-sub001/internal/interfaces"
	"github.com/bregovic/shanon-sub001/internal/models"
)

// Service implements interfaces.AliasResolver.
// A mapping always points at a symbol that is not itself an alias, so
// resolution is a single lookup.
type Service struct {
	mu      sync.Mutex // serializes SetAlias check-then-write
	aliases interfaces.AliasStore
	quotes  interfaces.QuoteStore
	logger  *common.Logger
	now     func() time.Time
}

// NewService creates a new alias resolver. quotes may be nil, in which
// case display names are not copied.
func NewService(aliases interfaces.AliasStore, quotes interfaces.QuoteStore, logger *common.Logger) *Service {
	return &Service{
		aliases: aliases,
		quotes:  quotes,
		logger:  logger,
		now:     time.Now,
	}
}

// Resolve returns the canonical form of symbol. A symbol without a
// mapping is its own canonical form.
func (s *Service) Resolve(ctx context.Context, symbol string) (string, error) {
	normalized := models.NormalizeTicker(symbol)
	if normalized == "" {
		return "", fmt.Errorf("%w: empty symbol", models.ErrInvalidAlias)
	}

	a, err := s.aliases.GetAlias(ctx, normalized)
	if errors.Is(err, models.ErrNotFound) {
		return normalized, nil
	}
	if err != nil {
		return "", models.WrapStoreError("resolve alias", err)
	}
	return models.NormalizeTicker(a.Canonical), nil
}

// GetAlias returns the stored mapping for symbol, or models.ErrNotFound.
func (s *Service) GetAlias(ctx context.Context, symbol string) (*models.TickerAlias, error) {
	a, err := s.aliases.GetAlias(ctx, models.NormalizeTicker(symbol))
	if err != nil {
		return nil, models.WrapStoreError("get alias", err)
	}
	return a, nil
}

// SetAlias maps oldSymbol onto canonicalSymbol. It rejects self-mappings,
// targets that are themselves aliases, and sources that other aliases
// already point at; a target that maps back to oldSymbol is a cycle.
func (s *Service) SetAlias(ctx context.Context, oldSymbol, canonicalSymbol string) error {
	old := models.NormalizeTicker(oldSymbol)
	canonical := models.NormalizeTicker(canonicalSymbol)

	s.mu.Lock()
	defer s.mu.Unlock()

	if old == "" || canonical == "" {
		return fmt.Errorf("%w: alias and canonical symbol are required", models.ErrInvalidAlias)
	}
	if old == canonical {
		return fmt.Errorf("%w: %s cannot alias itself", models.ErrInvalidAlias, old)
	}

	target, err := s.aliases.GetAlias(ctx, canonical)
	switch {
	case err == nil:
		if models.NormalizeTicker(target.Canonical) == old {
			return fmt.Errorf("%w: %s already aliases %s", models.ErrAliasCycle, canonical, old)
		}
		return fmt.Errorf("%w: target %s is itself an alias of %s", models.ErrInvalidAlias, canonical, target.Canonical)
	case !errors.Is(err, models.ErrNotFound):
		return models.WrapStoreError("get alias", err)
	}

	all, err := s.aliases.ListAliases(ctx)
	if err != nil {
		return models.WrapStoreError("list aliases", err)
	}
	for _, a := range all {
		if models.NormalizeTicker(a.Canonical) == old {
			return fmt.Errorf("%w: %s is the canonical symbol for %s", models.ErrInvalidAlias, old, a.Alias)
		}
	}

	mapping := &models.TickerAlias{
		Alias:     old,
		Canonical: canonical,
		UpdatedAt: s.now(),
	}
	if s.quotes != nil {
		if q, err := s.quotes.GetQuote(ctx, canonical); err == nil {
			mapping.DisplayName = q.DisplayName
			if mapping.DisplayName == "" {
				mapping.DisplayName = q.CompanyName
			}
		} else if !errors.Is(err, models.ErrNotFound) {
			s.logger.Warn().Err(err).Str("ticker", canonical).Msg("Display name lookup failed")
		}
	}

	if err := s.aliases.SaveAlias(ctx, mapping); err != nil {
		return models.WrapStoreError("save alias", err)
	}

	s.logger.Info().Str("alias", old).Str("canonical", canonical).Msg("Alias saved")
	return nil
}

// Compile-time check
var _ interfaces.AliasResolver = (*Service)(nil)
