package signals

import (
	"time"

	"github.com/bregovic/shanon-sub001/internal/models"
)

// Computer derives analytics from a ticker's price history.
type Computer struct {
	now func() time.Time
}

// NewComputer creates a new analytics computer
func NewComputer() *Computer {
	return &Computer{now: time.Now}
}

// Compute returns 52-week range, all-time range and the seeded EMA for
// points as of asOf. Input order does not matter.
func (c *Computer) Compute(ticker string, points []models.PriceHistoryPoint, asOf time.Time) *models.Analytics {
	sorted := SortAscending(points)

	result := &models.Analytics{
		Ticker:     ticker,
		Points:     len(sorted),
		AsOf:       models.TruncateDay(asOf),
		ComputedAt: c.now(),
	}

	result.High52w, result.Low52w = Range52Week(sorted, asOf)
	result.AllTimeHigh, result.AllTimeLow = AllTimeRange(sorted)
	result.EMA = SeededEMA(sorted, EMAPeriod)

	return result
}
