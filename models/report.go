package models

import "time"

// HealthReport is one day's reported case count for an (area, condition)
// pair. Reports are immutable once recorded; report submission itself is
// handled by the SMS/web intake, not by this service.
type HealthReport struct {
	Date       time.Time `json:"date"`
	Area       string    `json:"area"`
	Condition  string    `json:"condition"`
	Cases      int       `json:"cases"`
	Population int       `json:"population"`
	RiskFactor float64   `json:"risk_factor"`
	Rainfall   float64   `json:"rainfall"`
}

// AreaInfo carries the static attributes of a geographic zone.
type AreaInfo struct {
	Population int     `json:"population"`
	RiskFactor float64 `json:"risk_factor"`
}

// HistoricalSummary is a pre-aggregated rolling view of recent reports for
// one (area, condition) pair. It is computed fresh for every prediction
// call and never persisted.
type HistoricalSummary struct {
	RecentCases7d  int     `json:"recent_cases_7d"`
	RecentCases14d int     `json:"recent_cases_14d"`
	AvgCases7d     float64 `json:"avg_cases_7d"`
}
