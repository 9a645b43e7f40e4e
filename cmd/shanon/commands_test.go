package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bregovic/shanon-sub001/internal/app"
	"github.com/bregovic/shanon-sub001/internal/common"
	"github.com/bregovic/shanon-sub001/internal/models"
	"github.com/bregovic/shanon-sub001/internal/storage/memory"
)

// memoryOpener returns an opener that builds the app over mgr with only
// the manual provider enabled.
func memoryOpener(mgr *memory.Manager) opener {
	return func(string) (*app.App, error) {
		cfg := common.NewDefaultConfig()
		cfg.Clients.EODHD.APIKey = ""
		cfg.Clients.AlphaVantage.APIKey = ""
		cfg.Clients.Yahoo.Enabled = false
		cfg.Clients.CNB.Enabled = false
		cfg.Jobs.Enabled = false
		return app.New(cfg, common.NewSilentLogger(), mgr), nil
	}
}

func execute(t *testing.T, open opener, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd(open)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestQuoteCommand(t *testing.T) {
	mgr := memory.NewManager()
	require.NoError(t, mgr.ManualPriceStore().SetManualPrice(context.Background(), &models.ManualPrice{
		Symbol: "FUND", Price: 9.75, Currency: "EUR",
	}))

	out, err := execute(t, memoryOpener(mgr), "quote", "fund")
	require.NoError(t, err)

	var q models.QuoteRecord
	require.NoError(t, json.Unmarshal([]byte(out), &q))
	assert.Equal(t, "FUND", q.Ticker)
	assert.Equal(t, 9.75, q.Price)
	assert.Equal(t, "EUR", q.Currency)
}

func TestQuoteCommand_Miss(t *testing.T) {
	_, err := execute(t, memoryOpener(memory.NewManager()), "quote", "NOTHING")
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrQuoteNotFound), "got %v", err)
}

func TestQuoteCommand_RequiresTicker(t *testing.T) {
	_, err := execute(t, memoryOpener(memory.NewManager()), "quote")
	assert.Error(t, err)
}

func TestAliasCommands(t *testing.T) {
	mgr := memory.NewManager()
	open := memoryOpener(mgr)

	_, err := execute(t, open, "alias", "set", "fb", "meta")
	require.NoError(t, err)

	out, err := execute(t, open, "alias", "get", "FB")
	require.NoError(t, err)
	var view aliasView
	require.NoError(t, json.Unmarshal([]byte(out), &view))
	assert.Equal(t, "META", view.Canonical)
	require.NotNil(t, view.Mapping)
	assert.Equal(t, "FB", view.Mapping.Alias)

	out, err = execute(t, open, "alias", "get", "AAPL")
	require.NoError(t, err)
	view = aliasView{}
	require.NoError(t, json.Unmarshal([]byte(out), &view))
	assert.Equal(t, "AAPL", view.Canonical)
	assert.Nil(t, view.Mapping)

	_, err = execute(t, open, "alias", "set", "meta", "fb")
	assert.True(t, errors.Is(err, models.ErrAliasCycle), "got %v", err)
}

func TestFxRateCommand(t *testing.T) {
	mgr := memory.NewManager()
	d, _ := models.ParseDate("2024-01-10")
	require.NoError(t, mgr.FxStore().SaveRates(context.Background(), []*models.FxRate{
		{Currency: "USD", Date: d, Rate: decimal.RequireFromString("23.1"), Amount: 1},
	}))
	open := memoryOpener(mgr)

	out, err := execute(t, open, "fx", "rate", "usd", "2024-01-12", "--nearest")
	require.NoError(t, err)
	var r models.RateResult
	require.NoError(t, json.Unmarshal([]byte(out), &r))
	assert.True(t, r.Found)
	assert.Equal(t, 23.1, r.Rate)

	_, err = execute(t, open, "fx", "rate", "USD", "12/01/2024")
	assert.Error(t, err)
}

func TestFxImportCommand_NoSource(t *testing.T) {
	_, err := execute(t, memoryOpener(memory.NewManager()), "fx", "import", "--date", "2024-01-10")
	assert.Error(t, err)
}

func TestRefreshCommand(t *testing.T) {
	mgr := memory.NewManager()
	ctx := context.Background()
	require.NoError(t, mgr.ManualPriceStore().SetManualPrice(ctx, &models.ManualPrice{Symbol: "AAA", Price: 1, Currency: "USD"}))
	mgr.AddTransactionTicker("AAA")
	mgr.AddTransactionTicker("BBB")

	out, err := execute(t, memoryOpener(mgr), "refresh", "--delay", "0s")
	require.NoError(t, err)
	var result models.RefreshResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, 2, result.Total)
	assert.Equal(t, 1, result.Updated)
	assert.Equal(t, 1, result.Failed)
}

func TestAnalyticsCommand_All(t *testing.T) {
	mgr := memory.NewManager()
	ctx := context.Background()
	require.NoError(t, mgr.QuoteStore().UpsertQuote(ctx, &models.QuoteRecord{
		Ticker: "AAA", Price: 5, Status: models.StatusActive, LastFetched: time.Now(),
	}))

	out, err := execute(t, memoryOpener(mgr), "analytics")
	require.NoError(t, err)
	var result models.AnalyticsRunResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, 1, result.Total)
}

func TestOpenFailureIsReported(t *testing.T) {
	open := func(string) (*app.App, error) { return nil, errors.New("boom") }
	_, err := execute(t, open, "quote", "AAPL")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}
