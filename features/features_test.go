package features

import (
	"errors"
	"testing"
	"time"

	"github.com/Dacosmicgiant/alatem-sos/models"
)

func day(offset int) time.Time {
	return time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, offset)
}

func reportSeries(area, condition string, cases []int) []models.HealthReport {
	reports := make([]models.HealthReport, len(cases))
	for i, c := range cases {
		reports[i] = models.HealthReport{
			Date:       day(i),
			Area:       area,
			Condition:  condition,
			Cases:      c,
			Population: 300000,
			RiskFactor: 0.9,
			Rainfall:   3.5,
		}
	}
	return reports
}

func TestBuildOneToOne(t *testing.T) {
	reports := append(
		reportSeries("DELMAS", "cholera", []int{1, 2, 3, 4, 5}),
		reportSeries("TABARRE", "fever", []int{9, 8, 7})...,
	)

	b := NewBuilder()
	rows, err := b.Build(reports)
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	if len(rows) != len(reports) {
		t.Errorf("Build() returned %d rows for %d reports", len(rows), len(reports))
	}
}

func TestLagZeroFilledShortPartition(t *testing.T) {
	// Fewer than 7 rows in the partition: every lag must stay zero.
	rows, err := NewBuilder().Build(reportSeries("DELMAS", "cholera", []int{5, 9, 12, 4, 7, 3}))
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	for i, row := range rows {
		if row.CasesLag7 != 0 {
			t.Errorf("row %d: CasesLag7 = %v, want 0", i, row.CasesLag7)
		}
		if row.CasesLag14 != 0 {
			t.Errorf("row %d: CasesLag14 = %v, want 0", i, row.CasesLag14)
		}
	}
}

func TestLagValues(t *testing.T) {
	cases := make([]int, 16)
	for i := range cases {
		cases[i] = i + 1
	}
	rows, err := NewBuilder().Build(reportSeries("DELMAS", "cholera", cases))
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}

	if got := rows[7].CasesLag7; got != 1 {
		t.Errorf("row 7 CasesLag7 = %v, want 1", got)
	}
	if got := rows[15].CasesLag7; got != 9 {
		t.Errorf("row 15 CasesLag7 = %v, want 9", got)
	}
	if got := rows[13].CasesLag14; got != 0 {
		t.Errorf("row 13 CasesLag14 = %v, want 0", got)
	}
	if got := rows[14].CasesLag14; got != 1 {
		t.Errorf("row 14 CasesLag14 = %v, want 1", got)
	}
}

func TestRollingMean(t *testing.T) {
	rows, err := NewBuilder().Build(reportSeries("DELMAS", "cholera", []int{2, 4, 6, 8, 10, 12, 14, 16}))
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}

	tests := []struct {
		idx  int
		want float64
	}{
		{0, 2},  // single-row window
		{1, 3},  // (2+4)/2
		{2, 4},  // (2+4+6)/3
		{6, 8},  // full 7-row window (2..14)/7
		{7, 10}, // window slides: (4..16)/7
	}
	for _, tt := range tests {
		if got := rows[tt.idx].CasesRolling7; got != tt.want {
			t.Errorf("row %d CasesRolling7 = %v, want %v", tt.idx, got, tt.want)
		}
	}
}

func TestPartitionIsolation(t *testing.T) {
	// Interleave two areas by date; lags must come from the same area
	// only, never from the neighbouring partition.
	var reports []models.HealthReport
	for i := 0; i < 9; i++ {
		reports = append(reports,
			models.HealthReport{Date: day(i), Area: "DELMAS", Condition: "cholera", Cases: 100 + i},
			models.HealthReport{Date: day(i), Area: "TABARRE", Condition: "cholera", Cases: 200 + i},
		)
	}

	rows, err := NewBuilder().Build(reports)
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}

	for _, row := range rows {
		if row.CasesLag7 == 0 {
			continue
		}
		switch row.Area {
		case "DELMAS":
			if row.CasesLag7 >= 200 {
				t.Errorf("DELMAS row leaked TABARRE lag value %v", row.CasesLag7)
			}
		case "TABARRE":
			if row.CasesLag7 < 200 {
				t.Errorf("TABARRE row leaked DELMAS lag value %v", row.CasesLag7)
			}
		}
	}
}

func TestBuildGroupedAndDateOrdered(t *testing.T) {
	reports := append(
		reportSeries("TABARRE", "fever", []int{1, 2, 3}),
		reportSeries("DELMAS", "cholera", []int{4, 5, 6})...,
	)

	rows, err := NewBuilder().Build(reports)
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}

	for i := 1; i < len(rows); i++ {
		prev, cur := rows[i-1], rows[i]
		if cur.AreaEncoded < prev.AreaEncoded {
			t.Fatalf("rows not grouped by area id at index %d", i)
		}
		if cur.AreaEncoded == prev.AreaEncoded && cur.ConditionEncoded == prev.ConditionEncoded &&
			cur.Date.Before(prev.Date) {
			t.Fatalf("rows not date-ordered within partition at index %d", i)
		}
	}
}

func TestBuildUnknownCategoryAfterFit(t *testing.T) {
	b := NewBuilder()
	if _, err := b.Build(reportSeries("DELMAS", "cholera", []int{1, 2})); err != nil {
		t.Fatalf("initial Build() error: %v", err)
	}

	_, err := b.Build(reportSeries("MARTISSANT", "cholera", []int{3}))
	if !errors.Is(err, ErrUnknownCategory) {
		t.Errorf("Build() error = %v, want ErrUnknownCategory", err)
	}
}

func TestBuildDoesNotMutateInput(t *testing.T) {
	reports := reportSeries("DELMAS", "cholera", []int{7, 8, 9})
	original := make([]models.HealthReport, len(reports))
	copy(original, reports)

	if _, err := NewBuilder().Build(reports); err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	for i := range reports {
		if reports[i] != original[i] {
			t.Errorf("input report %d mutated: %+v", i, reports[i])
		}
	}
}

func TestCalendarFeatures(t *testing.T) {
	tests := []struct {
		name      string
		date      time.Time
		month     int
		dayOfWeek int
		dayOfYear int
		week      int
		rainy     int
	}{
		{"monday in january", time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC), 1, 0, 6, 2, 0},
		{"sunday in june", time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), 6, 6, 152, 22, 1},
		{"rainy season start", time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC), 4, 1, 91, 14, 1},
		{"rainy season end", time.Date(2025, 9, 30, 0, 0, 0, 0, time.UTC), 9, 1, 273, 40, 1},
		{"dry october", time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC), 10, 2, 274, 40, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			month, dow, doy, week, rainy := CalendarFeatures(tt.date)
			if month != tt.month {
				t.Errorf("month = %d, want %d", month, tt.month)
			}
			if dow != tt.dayOfWeek {
				t.Errorf("dayOfWeek = %d, want %d", dow, tt.dayOfWeek)
			}
			if doy != tt.dayOfYear {
				t.Errorf("dayOfYear = %d, want %d", doy, tt.dayOfYear)
			}
			if week != tt.week {
				t.Errorf("weekOfYear = %d, want %d", week, tt.week)
			}
			if rainy != tt.rainy {
				t.Errorf("rainy = %d, want %d", rainy, tt.rainy)
			}
		})
	}
}

func TestLabelCodec(t *testing.T) {
	c := NewLabelCodec([]string{"DELMAS", "CITE_SOLEIL", "DELMAS", "TABARRE"})

	if c.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", c.Len())
	}

	// Ids follow sorted order of the fitted values.
	tests := []struct {
		value string
		want  int
	}{
		{"CITE_SOLEIL", 0},
		{"DELMAS", 1},
		{"TABARRE", 2},
	}
	for _, tt := range tests {
		got, err := c.Encode(tt.value)
		if err != nil {
			t.Errorf("Encode(%q) error: %v", tt.value, err)
			continue
		}
		if got != tt.want {
			t.Errorf("Encode(%q) = %d, want %d", tt.value, got, tt.want)
		}
	}

	if _, err := c.Encode("MARTISSANT"); !errors.Is(err, ErrUnknownCategory) {
		t.Errorf("Encode(unknown) error = %v, want ErrUnknownCategory", err)
	}
	if c.Contains("MARTISSANT") {
		t.Error("Contains(unknown) = true, want false")
	}
}

func TestAssemble(t *testing.T) {
	vals := map[string]float64{"a": 1, "b": 2, "c": 3}

	vec, err := Assemble(vals, []string{"c", "a", "b"})
	if err != nil {
		t.Fatalf("Assemble() error: %v", err)
	}
	want := []float64{3, 1, 2}
	for i := range want {
		if vec[i] != want[i] {
			t.Errorf("vec[%d] = %v, want %v", i, vec[i], want[i])
		}
	}

	if _, err := Assemble(vals, []string{"a", "missing"}); err == nil {
		t.Error("Assemble() with missing column should fail")
	}
}
