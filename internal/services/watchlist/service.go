// Package watchlist records which tickers users watch
package watchlist

import (
	"context"
	"fmt"
	"strings"

	"github.com/bregovic/shanon-sub001/internal/common"
	"github.com/bregovic/shanon-sub001/internal/interfaces"
	"github.com/bregovic/shanon-sub001/internal/models"
)

// Compile-time interface check
var _ interfaces.WatchlistService = (*Service)(nil)

// Service implements WatchlistService
type Service struct {
	universe interfaces.UniverseStore
	aliases  interfaces.AliasResolver
	logger   *common.Logger
}

// NewService creates a new watchlist service
func NewService(universe interfaces.UniverseStore, aliases interfaces.AliasResolver, logger *common.Logger) *Service {
	return &Service{
		universe: universe,
		aliases:  aliases,
		logger:   logger,
	}
}

// SetWatch watches or unwatches ticker for userID. The ticker is stored in
// canonical form so a renamed symbol is refreshed under its new name.
func (s *Service) SetWatch(ctx context.Context, userID, ticker string, watched bool) (*models.WatchlistEntry, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("user id is required")
	}
	canonical, err := s.aliases.Resolve(ctx, ticker)
	if err != nil {
		return nil, err
	}

	entry := &models.WatchlistEntry{UserID: userID, Ticker: canonical, Watched: watched}
	if err := s.universe.SetWatch(ctx, entry); err != nil {
		return nil, models.WrapStoreError("set watch", err)
	}

	s.logger.Info().Str("user", userID).Str("ticker", canonical).Bool("watched", watched).Msg("Watchlist updated")
	return entry, nil
}

// WatchedTickers returns every ticker at least one user watches
func (s *Service) WatchedTickers(ctx context.Context) ([]string, error) {
	tickers, err := s.universe.ListWatchedTickers(ctx)
	if err != nil {
		return nil, models.WrapStoreError("list watched tickers", err)
	}
	return tickers, nil
}
