package alias

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bregovic/shanon-sub001/internal/common"
	"github.com/bregovic/shanon-sub001/internal/interfaces"
	"github.com/bregovic/shanon-sub001/internal/models"
	"github.com/bregovic/shanon-sub001/internal/storage/memory"
)

func newTestService() (*Service, *memory.Manager) {
	store := memory.NewManager()
	return NewService(store.AliasStore(), store.QuoteStore(), common.NewSilentLogger()), store
}

func TestResolve_UnmappedIsIdentity(t *testing.T) {
	svc, _ := newTestService()

	got, err := svc.Resolve(context.Background(), "  aapl ")
	require.NoError(t, err)
	assert.Equal(t, "AAPL", got)
}

func TestResolve_FollowsMapping(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()
	require.NoError(t, svc.SetAlias(ctx, "fb", "META"))

	got, err := svc.Resolve(ctx, "FB")
	require.NoError(t, err)
	assert.Equal(t, "META", got)
}

func TestResolve_Idempotent(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()
	require.NoError(t, svc.SetAlias(ctx, "FB", "META"))

	for _, sym := range []string{"FB", "META", "AAPL"} {
		once, err := svc.Resolve(ctx, sym)
		require.NoError(t, err)
		twice, err := svc.Resolve(ctx, once)
		require.NoError(t, err)
		assert.Equal(t, once, twice, "Resolve(Resolve(%s))", sym)
	}
}

func TestResolve_EmptyIsInvalid(t *testing.T) {
	svc, _ := newTestService()
	_, err := svc.Resolve(context.Background(), "   ")
	assert.ErrorIs(t, err, models.ErrInvalidAlias)
}

func TestSetAlias_RejectsSelf(t *testing.T) {
	svc, _ := newTestService()
	err := svc.SetAlias(context.Background(), "AAPL", "aapl")
	assert.ErrorIs(t, err, models.ErrInvalidAlias)
}

func TestSetAlias_ReverseMappingIsCycle(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()
	require.NoError(t, svc.SetAlias(ctx, "A", "B"))

	err := svc.SetAlias(ctx, "B", "A")
	assert.ErrorIs(t, err, models.ErrAliasCycle)
}

func TestSetAlias_RejectsChainThroughTarget(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()
	require.NoError(t, svc.SetAlias(ctx, "B", "C"))

	err := svc.SetAlias(ctx, "A", "B")
	assert.ErrorIs(t, err, models.ErrInvalidAlias)
}

func TestSetAlias_RejectsChainThroughSource(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()
	require.NoError(t, svc.SetAlias(ctx, "A", "B"))

	err := svc.SetAlias(ctx, "B", "C")
	assert.True(t, errors.Is(err, models.ErrInvalidAlias) || errors.Is(err, models.ErrAliasCycle), "got %v", err)

	got, err := svc.Resolve(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, "B", got)
}

func TestSetAlias_UpdatesExistingMapping(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()
	require.NoError(t, svc.SetAlias(ctx, "OLD", "NEW1"))
	require.NoError(t, svc.SetAlias(ctx, "OLD", "NEW2"))

	got, err := svc.Resolve(ctx, "OLD")
	require.NoError(t, err)
	assert.Equal(t, "NEW2", got)
}

func TestSetAlias_CopiesDisplayName(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService()
	require.NoError(t, store.QuoteStore().UpsertQuote(ctx, &models.QuoteRecord{
		Ticker: "META", CompanyName: "Meta Platforms Inc", Price: 500,
	}))

	require.NoError(t, svc.SetAlias(ctx, "FB", "META"))

	a, err := svc.GetAlias(ctx, "fb")
	require.NoError(t, err)
	assert.Equal(t, "META", a.Canonical)
	assert.Equal(t, "Meta Platforms Inc", a.DisplayName)
	assert.False(t, a.UpdatedAt.IsZero())
}

func TestResolve_StoreDownIsStoreUnavailable(t *testing.T) {
	svc, store := newTestService()
	store.FailWith = errors.New("dial tcp: connection refused")

	_, err := svc.Resolve(context.Background(), "AAPL")
	assert.ErrorIs(t, err, models.ErrStoreUnavailable)
}

// slowAliasStore widens the gap between the checks and the write.
type slowAliasStore struct {
	interfaces.AliasStore
}

func (s slowAliasStore) GetAlias(ctx context.Context, symbol string) (*models.TickerAlias, error) {
	time.Sleep(5 * time.Millisecond)
	return s.AliasStore.GetAlias(ctx, symbol)
}

func TestSetAlias_ConcurrentReverseMappingsCannotCycle(t *testing.T) {
	ctx := context.Background()
	store := memory.NewManager()
	svc := NewService(slowAliasStore{store.AliasStore()}, nil, common.NewSilentLogger())

	var wg sync.WaitGroup
	errs := make([]error, 2)
	pairs := [][2]string{{"AAA", "BBB"}, {"BBB", "AAA"}}
	for i, p := range pairs {
		wg.Add(1)
		go func(i int, from, to string) {
			defer wg.Done()
			errs[i] = svc.SetAlias(ctx, from, to)
		}(i, p[0], p[1])
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, models.ErrAliasCycle)
		}
	}
	assert.Equal(t, 1, succeeded)

	aliases, err := store.AliasStore().ListAliases(ctx)
	require.NoError(t, err)
	assert.Len(t, aliases, 1)
}
