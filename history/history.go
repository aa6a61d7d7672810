// Package history aggregates recent reports into the rolling summary the
// risk predictor consumes.
package history

import (
	"context"
	"time"

	"github.com/Dacosmicgiant/alatem-sos/models"
	"github.com/Dacosmicgiant/alatem-sos/storage"
)

// Provider supplies a fresh HistoricalSummary for one (area, condition)
// pair at each prediction call.
type Provider interface {
	Summary(ctx context.Context, area, condition string) (models.HistoricalSummary, error)
}

const lookbackDays = 30

// StoreProvider derives summaries from the report store.
type StoreProvider struct {
	store storage.Store
	now   func() time.Time
}

func NewStoreProvider(store storage.Store) *StoreProvider {
	return &StoreProvider{store: store, now: time.Now}
}

// Summary sums cases over the trailing 7 and 14 reports from the last 30
// days and derives a 7-day average. Pairs with no recent reports get an
// all-zero summary, which the model treats as a quiet baseline.
func (p *StoreProvider) Summary(ctx context.Context, area, condition string) (models.HistoricalSummary, error) {
	since := p.now().UTC().AddDate(0, 0, -lookbackDays)
	reports, err := p.store.RecentReports(ctx, area, condition, since)
	if err != nil {
		return models.HistoricalSummary{}, err
	}
	if len(reports) == 0 {
		return models.HistoricalSummary{}, nil
	}

	cases7 := trailingSum(reports, 7)
	cases14 := trailingSum(reports, 14)

	return models.HistoricalSummary{
		RecentCases7d:  cases7,
		RecentCases14d: cases14,
		AvgCases7d:     float64(cases7) / 7.0,
	}, nil
}

// trailingSum adds the case counts of the last n reports (reports arrive
// date-ascending from the store).
func trailingSum(reports []models.HealthReport, n int) int {
	start := len(reports) - n
	if start < 0 {
		start = 0
	}
	sum := 0
	for _, r := range reports[start:] {
		sum += r.Cases
	}
	return sum
}
