package outbreak

import (
	"fmt"
	"sync"
	"time"

	"github.com/Dacosmicgiant/alatem-sos/features"
	"github.com/Dacosmicgiant/alatem-sos/models"
)

// Risk bucket boundaries are fixed constants of the design; alerting
// behavior depends on them exactly.
const (
	highRiskThreshold   = 0.7
	mediumRiskThreshold = 0.4
)

func riskLevelFor(probability float64) models.RiskLevel {
	switch {
	case probability > highRiskThreshold:
		return models.RiskHigh
	case probability > mediumRiskThreshold:
		return models.RiskMedium
	default:
		return models.RiskLow
	}
}

// Rainfall is not observable for future days, so inference imputes a
// seasonal typical value.
const (
	rainySeasonRainfall = 25.0
	drySeasonRainfall   = 5.0
)

// Default area attributes used when a zone is missing from the area table.
const (
	defaultPopulation = 100000
	defaultRiskFactor = 0.5
)

// Predictor projects day-by-day outbreak risk from a trained model pair.
// The pair is read-only during prediction; Swap replaces it wholesale
// after a retrain.
type Predictor struct {
	mu    sync.RWMutex
	pair  *ModelPair
	areas map[string]models.AreaInfo
	now   func() time.Time
}

// NewPredictor wraps a trained pair (which may be nil until training or
// loading has happened) together with the static area table.
func NewPredictor(pair *ModelPair, areas map[string]models.AreaInfo) *Predictor {
	return &Predictor{
		pair:  pair,
		areas: areas,
		now:   time.Now,
	}
}

// Ready reports whether a model pair is available for inference.
func (p *Predictor) Ready() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.pair != nil
}

// Swap installs a freshly trained pair.
func (p *Predictor) Swap(pair *ModelPair) {
	p.mu.Lock()
	p.pair = pair
	p.mu.Unlock()
}

// Predict returns one PredictionPoint per future calendar day, starting
// tomorrow. The historical summary is held constant across all daysAhead;
// the pipeline does not re-simulate compounding history within one call.
// The inference path contains no randomness: identical inputs always
// produce identical output.
func (p *Predictor) Predict(area, condition string, hist models.HistoricalSummary, daysAhead int) ([]models.PredictionPoint, error) {
	p.mu.RLock()
	pair := p.pair
	p.mu.RUnlock()

	if pair == nil {
		return nil, ErrModelNotTrained
	}
	if daysAhead <= 0 {
		return nil, fmt.Errorf("daysAhead must be positive, got %d", daysAhead)
	}

	areaID, err := pair.Areas.Encode(area)
	if err != nil {
		return nil, err
	}
	conditionID, err := pair.Conditions.Encode(condition)
	if err != nil {
		return nil, err
	}

	info, ok := p.areas[area]
	if !ok {
		info = models.AreaInfo{Population: defaultPopulation, RiskFactor: defaultRiskFactor}
	}

	today := p.now().UTC()
	points := make([]models.PredictionPoint, 0, daysAhead)
	for day := 1; day <= daysAhead; day++ {
		future := today.AddDate(0, 0, day)
		futureDate := time.Date(future.Year(), future.Month(), future.Day(), 0, 0, 0, 0, time.UTC)

		month, dow, doy, week, rainy := features.CalendarFeatures(futureDate)
		rainfall := drySeasonRainfall
		if rainy == 1 {
			rainfall = rainySeasonRainfall
		}

		vals := map[string]float64{
			"area_encoded":      float64(areaID),
			"condition_encoded": float64(conditionID),
			"population":        float64(info.Population),
			"risk_factor":       info.RiskFactor,
			"month":             float64(month),
			"day_of_week":       float64(dow),
			"day_of_year":       float64(doy),
			"week_of_year":      float64(week),
			"is_rainy_season":   float64(rainy),
			"rainfall":          rainfall,
			"cases_lag_7":       float64(hist.RecentCases7d),
			"cases_lag_14":      float64(hist.RecentCases14d),
			"cases_rolling_7":   hist.AvgCases7d,
		}

		vec, err := features.Assemble(vals, pair.FeatureCols)
		if err != nil {
			return nil, err
		}
		scaled := pair.Scaler.Transform(vec)

		probability := pair.Classifier.Probability(scaled)
		cases := pair.Regressor.Predict(scaled)
		if cases < 0 {
			cases = 0
		}

		points = append(points, models.PredictionPoint{
			Date:                futureDate,
			OutbreakProbability: probability,
			PredictedCases:      int(cases),
			RiskLevel:           riskLevelFor(probability),
		})
	}

	return points, nil
}
