package provider

import (
	"context"
	"errors"

	"github.com/bregovic/shanon-sub001/internal/interfaces"
	"github.com/bregovic/shanon-sub001/internal/models"
)

// ManualOverride serves operator-entered prices. It matches the variant
// exactly, so a price set for "CEZ" is found on the bare-symbol pass.
type ManualOverride struct {
	store interfaces.ManualPriceStore
}

// NewManualOverride creates the manual price provider
func NewManualOverride(store interfaces.ManualPriceStore) *ManualOverride {
	return &ManualOverride{store: store}
}

// Name returns the provider identifier
func (m *ManualOverride) Name() string {
	return models.SourceManual
}

// LastResort defers manual prices until external sources have missed
func (m *ManualOverride) LastResort() bool {
	return true
}

// TryFetch looks up a manual price for variant
func (m *ManualOverride) TryFetch(ctx context.Context, variant string) (*models.QuoteRecord, bool, error) {
	p, err := m.store.GetManualPrice(ctx, models.NormalizeTicker(variant))
	if errors.Is(err, models.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, &models.ProviderError{Provider: m.Name(), Variant: variant, Kind: models.ErrProviderUnavailable, Err: err}
	}
	if p.Price <= 0 {
		return nil, false, nil
	}
	return &models.QuoteRecord{
		Source:         m.Name(),
		ProviderSymbol: variant,
		Price:          p.Price,
		Currency:       p.Currency,
	}, true, nil
}

// Compile-time check
var _ interfaces.QuoteProvider = (*ManualOverride)(nil)
