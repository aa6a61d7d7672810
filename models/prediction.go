package models

import "time"

// RiskLevel buckets an outbreak probability for alerting.
type RiskLevel string

const (
	RiskLow    RiskLevel = "LOW"
	RiskMedium RiskLevel = "MEDIUM"
	RiskHigh   RiskLevel = "HIGH"
)

// PredictionPoint is the forecast for a single future calendar day.
type PredictionPoint struct {
	Date                time.Time `json:"date"`
	OutbreakProbability float64   `json:"outbreak_probability"`
	PredictedCases      int       `json:"predicted_cases"`
	RiskLevel           RiskLevel `json:"risk_level"`
}

// PredictionRecord is the persisted envelope for one (area, condition)
// scan. Date is the scan date, not a forecast date; the upsert key is
// (area, date, type, condition) so re-running a scan on the same day
// overwrites instead of duplicating.
type PredictionRecord struct {
	ID          string            `json:"id"`
	Area        string            `json:"area"`
	Condition   string            `json:"condition"`
	Type        string            `json:"type"`
	Date        string            `json:"date"`
	Predictions []PredictionPoint `json:"predictions"`
	Timestamp   time.Time         `json:"timestamp"`
	GeneratedBy string            `json:"generated_by"`
}

// PredictionTypeHealth tags records produced by the outbreak forecaster.
const PredictionTypeHealth = "health"

// HighRiskTrigger is handed to the alert broadcaster for every forecast
// day that lands in the HIGH bucket. The broadcaster decides recipients
// and message content.
type HighRiskTrigger struct {
	Area           string    `json:"area"`
	Condition      string    `json:"condition"`
	Date           time.Time `json:"date"`
	Probability    float64   `json:"probability"`
	PredictedCases int       `json:"predicted_cases"`
}
