package history

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Dacosmicgiant/alatem-sos/models"
)

// fakeStore serves a canned report slice and records the since value it
// was queried with.
type fakeStore struct {
	reports []models.HealthReport
	since   time.Time
	err     error
}

func (f *fakeStore) SaveReport(ctx context.Context, report models.HealthReport) error { return nil }

func (f *fakeStore) Reports(ctx context.Context) ([]models.HealthReport, error) {
	return f.reports, nil
}

func (f *fakeStore) RecentReports(ctx context.Context, area, condition string, since time.Time) ([]models.HealthReport, error) {
	f.since = since
	if f.err != nil {
		return nil, f.err
	}
	return f.reports, nil
}

func (f *fakeStore) UpsertPrediction(ctx context.Context, record models.PredictionRecord) error {
	return nil
}

func (f *fakeStore) LatestPredictions(ctx context.Context, area string, limit int) ([]models.PredictionRecord, error) {
	return nil, nil
}

func (f *fakeStore) Close() {}

func testProvider(store *fakeStore) *StoreProvider {
	p := NewStoreProvider(store)
	p.now = func() time.Time {
		return time.Date(2025, 4, 15, 10, 0, 0, 0, time.UTC)
	}
	return p
}

func seriesReports(cases []int) []models.HealthReport {
	start := time.Date(2025, 3, 20, 0, 0, 0, 0, time.UTC)
	reports := make([]models.HealthReport, len(cases))
	for i, c := range cases {
		reports[i] = models.HealthReport{
			Date:      start.AddDate(0, 0, i),
			Area:      "DELMAS",
			Condition: "cholera",
			Cases:     c,
		}
	}
	return reports
}

func TestSummaryTrailingSums(t *testing.T) {
	// 16 daily reports of 1..16 cases: last 7 sum to 70, last 14 to 119.
	cases := make([]int, 16)
	for i := range cases {
		cases[i] = i + 1
	}
	store := &fakeStore{reports: seriesReports(cases)}

	got, err := testProvider(store).Summary(context.Background(), "DELMAS", "cholera")
	if err != nil {
		t.Fatalf("Summary() error: %v", err)
	}
	if got.RecentCases7d != 70 {
		t.Errorf("RecentCases7d = %d, want 70", got.RecentCases7d)
	}
	if got.RecentCases14d != 119 {
		t.Errorf("RecentCases14d = %d, want 119", got.RecentCases14d)
	}
	if got.AvgCases7d != 10 {
		t.Errorf("AvgCases7d = %v, want 10", got.AvgCases7d)
	}
}

func TestSummaryFewerReportsThanWindow(t *testing.T) {
	store := &fakeStore{reports: seriesReports([]int{3, 4})}

	got, err := testProvider(store).Summary(context.Background(), "DELMAS", "cholera")
	if err != nil {
		t.Fatalf("Summary() error: %v", err)
	}
	if got.RecentCases7d != 7 {
		t.Errorf("RecentCases7d = %d, want 7", got.RecentCases7d)
	}
	if got.RecentCases14d != 7 {
		t.Errorf("RecentCases14d = %d, want 7", got.RecentCases14d)
	}
	if got.AvgCases7d != 1.0 {
		t.Errorf("AvgCases7d = %v, want 1.0", got.AvgCases7d)
	}
}

func TestSummaryNoReports(t *testing.T) {
	store := &fakeStore{}

	got, err := testProvider(store).Summary(context.Background(), "DELMAS", "cholera")
	if err != nil {
		t.Fatalf("Summary() error: %v", err)
	}
	if got != (models.HistoricalSummary{}) {
		t.Errorf("Summary() with no reports = %+v, want zero value", got)
	}
}

func TestSummaryLookbackWindow(t *testing.T) {
	store := &fakeStore{}
	if _, err := testProvider(store).Summary(context.Background(), "DELMAS", "cholera"); err != nil {
		t.Fatalf("Summary() error: %v", err)
	}

	want := time.Date(2025, 3, 16, 10, 0, 0, 0, time.UTC)
	if !store.since.Equal(want) {
		t.Errorf("Summary() queried since %v, want %v", store.since, want)
	}
}

func TestSummaryStoreError(t *testing.T) {
	wantErr := errors.New("backend down")
	store := &fakeStore{err: wantErr}

	_, err := testProvider(store).Summary(context.Background(), "DELMAS", "cholera")
	if !errors.Is(err, wantErr) {
		t.Errorf("Summary() error = %v, want wrapped %v", err, wantErr)
	}
}
