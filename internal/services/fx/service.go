// Package fx resolves reporting-currency conversion rates and imports
// the daily fixing
package fx

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bregovic/shanon-sub001/internal/common"
	"github.com/bregovic/shanon-sub001/internal/interfaces"
	"github.com/bregovic/shanon-sub001/internal/models"
)

// Service implements interfaces.FxService
type Service struct {
	store             interfaces.FxStore
	source            interfaces.FxRateSource
	reportingCurrency string
	logger            *common.Logger
}

// NewService creates a rate resolver. source may be nil when imports are
// not needed.
func NewService(store interfaces.FxStore, source interfaces.FxRateSource, reportingCurrency string, logger *common.Logger) *Service {
	rc := models.NormalizeCurrency(reportingCurrency)
	if rc == "" {
		rc = "CZK"
	}
	return &Service{
		store:             store,
		source:            source,
		reportingCurrency: rc,
		logger:            logger,
	}
}

// ReportingCurrency returns the currency all rates convert into
func (s *Service) ReportingCurrency() string {
	return s.reportingCurrency
}

// lookup returns the per-unit rate and the date of the row used.
// found is false on a plain miss.
func (s *Service) lookup(ctx context.Context, currency string, date time.Time, nearest bool) (decimal.Decimal, time.Time, bool, error) {
	if currency == s.reportingCurrency {
		return decimal.NewFromInt(1), date, true, nil
	}

	row, err := s.store.GetRate(ctx, currency, date)
	if errors.Is(err, models.ErrNotFound) && nearest {
		row, err = s.store.GetNearestRate(ctx, currency, date)
	}
	if errors.Is(err, models.ErrNotFound) {
		return decimal.Zero, time.Time{}, false, nil
	}
	if err != nil {
		return decimal.Zero, time.Time{}, false, models.WrapStoreError("get rate", err)
	}
	return row.PerUnit(), row.Date, true, nil
}

// ResolveRate returns the rate for currency on date. A miss is reported
// as Found=false, not as an error.
func (s *Service) ResolveRate(ctx context.Context, currency, date string, nearest bool) (*models.RateResult, error) {
	cur := models.NormalizeCurrency(currency)
	if cur == "" {
		return nil, fmt.Errorf("currency is required")
	}
	day, err := models.ParseDate(date)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q: %w", date, err)
	}

	rate, rowDate, found, err := s.lookup(ctx, cur, day, nearest)
	if err != nil {
		return nil, err
	}

	result := &models.RateResult{Currency: cur, Date: models.FormatDate(day), Found: found}
	if found {
		result.Rate = rate.InexactFloat64()
		result.RateDate = rowDate
	}

	s.logger.Trace().
		Str("currency", cur).
		Str("date", result.Date).
		Bool("nearest", nearest).
		Bool("found", found).
		Msg("FX rate resolved")
	return result, nil
}

// ResolveBatch resolves every pair independently and returns only the
// resolved ones, keyed "date|currency". Pairs with an unparseable date are
// skipped like misses; a store failure fails the batch.
func (s *Service) ResolveBatch(ctx context.Context, pairs []models.RatePair, nearest bool) (map[string]float64, error) {
	out := make(map[string]float64, len(pairs))
	for _, p := range pairs {
		cur := models.NormalizeCurrency(p.Currency)
		key := p.Key()
		if _, done := out[key]; done || cur == "" {
			continue
		}
		day, err := models.ParseDate(p.Date)
		if err != nil {
			s.logger.Debug().Str("currency", cur).Str("date", p.Date).Msg("Skipping pair with invalid date")
			continue
		}

		rate, _, found, err := s.lookup(ctx, cur, day, nearest)
		if err != nil {
			return nil, err
		}
		if found {
			out[key] = rate.InexactFloat64()
		}
	}
	return out, nil
}

// Convert returns amount of currency expressed in the reporting currency
// on date, or models.ErrRateNotFound.
func (s *Service) Convert(ctx context.Context, amount decimal.Decimal, currency string, date time.Time, nearest bool) (decimal.Decimal, error) {
	cur := models.NormalizeCurrency(currency)
	rate, _, found, err := s.lookup(ctx, cur, models.TruncateDay(date), nearest)
	if err != nil {
		return decimal.Zero, err
	}
	if !found {
		return decimal.Zero, fmt.Errorf("%w: %s on %s", models.ErrRateNotFound, cur, models.FormatDate(date))
	}
	return amount.Mul(rate), nil
}

// ImportRates fetches the fixing for date and stores every row except the
// reporting currency. The result carries the fixing's own date, which
// precedes date on non-business days.
func (s *Service) ImportRates(ctx context.Context, date time.Time) (*models.FxImportResult, error) {
	if s.source == nil {
		return nil, fmt.Errorf("no FX rate source configured")
	}

	rates, err := s.source.GetDailyRates(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("fetch fixing: %w", err)
	}

	result := &models.FxImportResult{Date: models.FormatDate(date), Rates: []string{}}
	var rows []*models.FxRate
	for _, r := range rates {
		if models.NormalizeCurrency(r.Currency) == s.reportingCurrency {
			continue
		}
		rows = append(rows, r)
		result.Rates = append(result.Rates, models.NormalizeCurrency(r.Currency))
		result.Date = models.FormatDate(r.Date)
	}

	if len(rows) > 0 {
		if err := s.store.SaveRates(ctx, rows); err != nil {
			return nil, models.WrapStoreError("save rates", err)
		}
	}
	sort.Strings(result.Rates)
	result.Imported = len(rows)

	s.logger.Info().
		Str("date", result.Date).
		Int("imported", result.Imported).
		Msg("FX fixing imported")
	return result, nil
}

// Compile-time check
var _ interfaces.FxService = (*Service)(nil)
