package watchlist

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bregovic/shanon-sub001/internal/common"
	"github.com/bregovic/shanon-sub001/internal/models"
	"github.com/bregovic/shanon-sub001/internal/services/alias"
	"github.com/bregovic/shanon-sub001/internal/storage/memory"
)

func newTestService(t *testing.T) (*Service, *memory.Manager) {
	t.Helper()
	mgr := memory.NewManager()
	logger := common.NewSilentLogger()
	aliases := alias.NewService(mgr.AliasStore(), mgr.QuoteStore(), logger)
	return NewService(mgr.UniverseStore(), aliases, logger), mgr
}

func TestSetWatch_StoresCanonicalTicker(t *testing.T) {
	svc, mgr := newTestService(t)
	ctx := context.Background()
	require.NoError(t, mgr.AliasStore().SaveAlias(ctx, &models.TickerAlias{Alias: "FB", Canonical: "META"}))

	entry, err := svc.SetWatch(ctx, "u1", "fb", true)
	require.NoError(t, err)
	assert.Equal(t, "META", entry.Ticker)

	tickers, err := svc.WatchedTickers(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"META"}, tickers)
}

func TestSetWatch_UnwatchRemovesTicker(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.SetWatch(ctx, "u1", "AAPL", true)
	require.NoError(t, err)
	_, err = svc.SetWatch(ctx, "u1", "AAPL", false)
	require.NoError(t, err)

	tickers, err := svc.WatchedTickers(ctx)
	require.NoError(t, err)
	assert.Empty(t, tickers)
}

func TestSetWatch_Validation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.SetWatch(ctx, " ", "AAPL", true)
	assert.Error(t, err)

	_, err = svc.SetWatch(ctx, "u1", "  ", true)
	assert.True(t, errors.Is(err, models.ErrInvalidAlias), "got %v", err)
}

func TestWatchedTickers_StoreFailure(t *testing.T) {
	svc, mgr := newTestService(t)
	mgr.FailWith = errors.New("connection reset")

	_, err := svc.WatchedTickers(context.Background())
	assert.True(t, errors.Is(err, models.ErrStoreUnavailable), "got %v", err)
}
