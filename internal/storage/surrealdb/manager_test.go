package surrealdb

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bregovic/shanon-sub001/internal/common"
	"github.com/bregovic/shanon-sub001/internal/interfaces"
	"github.com/bregovic/shanon-sub001/internal/models"
	"github.com/bregovic/shanon-sub001/internal/storage/storetest"
)

func TestNewManager(t *testing.T) {
	mgr := testManager(t)

	assert.NotNil(t, mgr.AliasStore())
	assert.NotNil(t, mgr.QuoteStore())
	assert.NotNil(t, mgr.HistoryStore())
	assert.NotNil(t, mgr.FxStore())
	assert.NotNil(t, mgr.ManualPriceStore())
	assert.NotNil(t, mgr.UniverseStore())
}

func TestNewManager_BadAddress(t *testing.T) {
	cfg := common.NewDefaultConfig()
	cfg.Storage.Address = "ws://127.0.0.1:1/rpc"

	_, err := NewManager(common.NewSilentLogger(), cfg)
	assert.Error(t, err)
}

func TestManager_Conformance(t *testing.T) {
	storetest.Run(t, storetest.Backend{
		New: func(t *testing.T) interfaces.StorageManager { return testManager(t) },
		AddTransaction: func(t *testing.T, mgr interfaces.StorageManager, ticker string) {
			require.NoError(t, mgr.(*Manager).universeStore.addTransactionTicker(context.Background(), ticker))
		},
	})
}

func TestQuoteStore_DottedTickerRoundTrip(t *testing.T) {
	ctx := context.Background()
	mgr := testManager(t)

	require.NoError(t, mgr.QuoteStore().UpsertQuote(ctx, &models.QuoteRecord{Ticker: "BRK.B", Price: 410, Currency: "USD"}))
	require.NoError(t, mgr.QuoteStore().UpsertQuote(ctx, &models.QuoteRecord{Ticker: "BRK_B", Price: 1, Currency: "USD"}))

	q, err := mgr.QuoteStore().GetQuote(ctx, "BRK.B")
	require.NoError(t, err)
	assert.Equal(t, "BRK.B", q.Ticker)
	assert.Equal(t, 410.0, q.Price)
}

func TestRecordKey(t *testing.T) {
	assert.Equal(t, "CEZ.PR", recordKey("cez.pr"))
	assert.Equal(t, "USD|2024-01-10", recordKey("usd", "2024-01-10"))
}
