// Package features turns raw health reports into the numeric feature rows
// consumed by the outbreak model. Lag and rolling statistics are computed
// strictly within one (area, condition) partition; mixing partitions would
// silently corrupt the signal, so the grouping here is a correctness
// invariant rather than an optimization.
package features

import (
	"fmt"
	"sort"
	"time"

	"github.com/Dacosmicgiant/alatem-sos/models"
)

// FeatureCols is the canonical feature column ordering. Inference builds
// vectors positionally, so this exact list is persisted with every trained
// model and must never be reordered in place.
var FeatureCols = []string{
	"area_encoded",
	"condition_encoded",
	"population",
	"risk_factor",
	"month",
	"day_of_week",
	"day_of_year",
	"week_of_year",
	"is_rainy_season",
	"rainfall",
	"cases_lag_7",
	"cases_lag_14",
	"cases_rolling_7",
}

// FeatureRow is one report with its derived model features attached.
type FeatureRow struct {
	Date       time.Time
	Area       string
	Condition  string
	Cases      int
	Population int
	RiskFactor float64
	Rainfall   float64

	AreaEncoded      int
	ConditionEncoded int
	Month            int
	DayOfWeek        int
	DayOfYear        int
	WeekOfYear       int
	IsRainySeason    int
	CasesLag7        float64
	CasesLag14       float64
	CasesRolling7    float64
}

// Values returns the row's features keyed by column name.
func (r *FeatureRow) Values() map[string]float64 {
	return map[string]float64{
		"area_encoded":      float64(r.AreaEncoded),
		"condition_encoded": float64(r.ConditionEncoded),
		"population":        float64(r.Population),
		"risk_factor":       r.RiskFactor,
		"month":             float64(r.Month),
		"day_of_week":       float64(r.DayOfWeek),
		"day_of_year":       float64(r.DayOfYear),
		"week_of_year":      float64(r.WeekOfYear),
		"is_rainy_season":   float64(r.IsRainySeason),
		"rainfall":          r.Rainfall,
		"cases_lag_7":       r.CasesLag7,
		"cases_lag_14":      r.CasesLag14,
		"cases_rolling_7":   r.CasesRolling7,
	}
}

// Assemble builds a feature vector from vals in the exact order given by
// cols. A column missing from vals is an error, never a silent zero.
func Assemble(vals map[string]float64, cols []string) ([]float64, error) {
	vec := make([]float64, len(cols))
	for i, col := range cols {
		v, ok := vals[col]
		if !ok {
			return nil, fmt.Errorf("missing feature column %q", col)
		}
		vec[i] = v
	}
	return vec, nil
}

// RainySeason reports whether month falls in Haiti's April-September rainy
// season.
func RainySeason(month time.Month) bool {
	return month >= time.April && month <= time.September
}

// CalendarFeatures returns the deterministic date-derived features:
// month, day of week (Monday=0), day of year, ISO week number and the
// rainy-season flag.
func CalendarFeatures(date time.Time) (month, dayOfWeek, dayOfYear, weekOfYear, rainy int) {
	month = int(date.Month())
	dayOfWeek = (int(date.Weekday()) + 6) % 7
	dayOfYear = date.YearDay()
	_, weekOfYear = date.ISOWeek()
	if RainySeason(date.Month()) {
		rainy = 1
	}
	return month, dayOfWeek, dayOfYear, weekOfYear, rainy
}

const (
	lagShort    = 7
	lagLong     = 14
	rollingSpan = 7
)

// Builder derives feature rows from health reports. The first Build call
// fits the category codecs; every later call reuses the same mapping and
// fails on values the codecs have never seen.
type Builder struct {
	Areas      *LabelCodec
	Conditions *LabelCodec
}

func NewBuilder() *Builder {
	return &Builder{}
}

// Build transforms reports into feature rows, one per input report. Rows
// come back grouped by (area id, condition id) and sorted by ascending
// date within each group. The input slice is never mutated.
func (b *Builder) Build(reports []models.HealthReport) ([]FeatureRow, error) {
	if b.Areas == nil {
		areas := make([]string, len(reports))
		conditions := make([]string, len(reports))
		for i, r := range reports {
			areas[i] = r.Area
			conditions[i] = r.Condition
		}
		b.Areas = NewLabelCodec(areas)
		b.Conditions = NewLabelCodec(conditions)
	}

	rows := make([]FeatureRow, 0, len(reports))
	for _, r := range reports {
		areaID, err := b.Areas.Encode(r.Area)
		if err != nil {
			return nil, err
		}
		conditionID, err := b.Conditions.Encode(r.Condition)
		if err != nil {
			return nil, err
		}

		month, dow, doy, week, rainy := CalendarFeatures(r.Date)
		rows = append(rows, FeatureRow{
			Date:             r.Date,
			Area:             r.Area,
			Condition:        r.Condition,
			Cases:            r.Cases,
			Population:       r.Population,
			RiskFactor:       r.RiskFactor,
			Rainfall:         r.Rainfall,
			AreaEncoded:      areaID,
			ConditionEncoded: conditionID,
			Month:            month,
			DayOfWeek:        dow,
			DayOfYear:        doy,
			WeekOfYear:       week,
			IsRainySeason:    rainy,
		})
	}

	// Partition-sort-scan: stable sort by group key then date, then one
	// forward pass per contiguous group.
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].AreaEncoded != rows[j].AreaEncoded {
			return rows[i].AreaEncoded < rows[j].AreaEncoded
		}
		if rows[i].ConditionEncoded != rows[j].ConditionEncoded {
			return rows[i].ConditionEncoded < rows[j].ConditionEncoded
		}
		return rows[i].Date.Before(rows[j].Date)
	})

	for start := 0; start < len(rows); {
		end := start
		for end < len(rows) &&
			rows[end].AreaEncoded == rows[start].AreaEncoded &&
			rows[end].ConditionEncoded == rows[start].ConditionEncoded {
			end++
		}
		fillLagRolling(rows[start:end])
		start = end
	}

	return rows, nil
}

// fillLagRolling computes the lag and trailing-mean features for one
// date-ordered partition. Lags are zero-filled until enough history
// exists; the rolling mean uses up to rollingSpan rows ending at the
// current one, with a minimum window of 1.
func fillLagRolling(group []FeatureRow) {
	for i := range group {
		if i >= lagShort {
			group[i].CasesLag7 = float64(group[i-lagShort].Cases)
		}
		if i >= lagLong {
			group[i].CasesLag14 = float64(group[i-lagLong].Cases)
		}

		lo := i - rollingSpan + 1
		if lo < 0 {
			lo = 0
		}
		sum := 0.0
		for j := lo; j <= i; j++ {
			sum += float64(group[j].Cases)
		}
		group[i].CasesRolling7 = sum / float64(i-lo+1)
	}
}
