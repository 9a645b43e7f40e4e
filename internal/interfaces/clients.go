package interfaces

import (
	"context"
	"time"

	"github.com/bregovic/shanon-sub001/internal/models"
)

// QuoteProvider is one external or manual quote source.
// TryFetch returns (nil, false, nil) when the source has no price for variant;
// a non-nil error wraps models.ErrProviderUnavailable or models.ErrParse.
type QuoteProvider interface {
	Name() string
	TryFetch(ctx context.Context, variant string) (*models.QuoteRecord, bool, error)
}

// FxRateSource fetches a full set of daily fixings.
type FxRateSource interface {
	GetDailyRates(ctx context.Context, date time.Time) ([]*models.FxRate, error)
}
