// Package signals provides analytics calculations over daily price history
package signals

import (
	"sort"
	"time"

	"github.com/bregovic/shanon-sub001/internal/models"
)

// EMAPeriod is the long moving-average period used for every ticker.
const EMAPeriod = 212

// WindowDays is the trailing window used for 52-week high/low.
const WindowDays = 365

// SortAscending returns a copy of points ordered by date, oldest first.
func SortAscending(points []models.PriceHistoryPoint) []models.PriceHistoryPoint {
	sorted := make([]models.PriceHistoryPoint, len(points))
	copy(sorted, points)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})
	return sorted
}

// SMA averages the first period points of an ascending series.
func SMA(points []models.PriceHistoryPoint, period int) float64 {
	if period <= 0 || len(points) < period {
		return 0
	}

	sum := 0.0
	for i := 0; i < period; i++ {
		sum += points[i].Price
	}
	return sum / float64(period)
}

// SeededEMA computes the EMA over an ascending series. The seed is the SMA
// of the first period points; every later point then applies
// ema = price*k + ema*(1-k) with k = 2/(period+1), through the last point.
// Returns nil when the series is shorter than period.
func SeededEMA(points []models.PriceHistoryPoint, period int) *float64 {
	if period <= 0 || len(points) < period {
		return nil
	}

	k := 2.0 / float64(period+1)
	ema := SMA(points, period)
	for _, p := range points[period:] {
		ema = p.Price*k + ema*(1-k)
	}
	return &ema
}

// Range52Week returns the max and min price of points dated within the
// trailing WindowDays of asOf, inclusive of both ends. Points after asOf
// are ignored. Both results are nil when no point falls in the window.
func Range52Week(points []models.PriceHistoryPoint, asOf time.Time) (high, low *float64) {
	end := models.TruncateDay(asOf)
	start := end.AddDate(0, 0, -WindowDays)

	var hi, lo float64
	found := false
	for _, p := range points {
		d := models.TruncateDay(p.Date)
		if d.Before(start) || d.After(end) {
			continue
		}
		if !found {
			hi, lo = p.Price, p.Price
			found = true
			continue
		}
		if p.Price > hi {
			hi = p.Price
		}
		if p.Price < lo {
			lo = p.Price
		}
	}

	if !found {
		return nil, nil
	}
	return &hi, &lo
}

// AllTimeRange returns the max and min price across the whole series.
func AllTimeRange(points []models.PriceHistoryPoint) (high, low *float64) {
	if len(points) == 0 {
		return nil, nil
	}
	hi, lo := points[0].Price, points[0].Price
	for _, p := range points[1:] {
		if p.Price > hi {
			hi = p.Price
		}
		if p.Price < lo {
			lo = p.Price
		}
	}
	return &hi, &lo
}
