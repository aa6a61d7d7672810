// Package orchestrator drives the periodic outbreak scan: every
// (area, condition) pair gets a fresh history summary, a risk forecast,
// an idempotent persisted record and, for HIGH-risk days, an alert
// trigger. One pair's failure never aborts the rest of the scan.
package orchestrator

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Dacosmicgiant/alatem-sos/alerts"
	"github.com/Dacosmicgiant/alatem-sos/history"
	"github.com/Dacosmicgiant/alatem-sos/models"
	"github.com/Dacosmicgiant/alatem-sos/outbreak"
	"github.com/Dacosmicgiant/alatem-sos/storage"
)

var (
	predictionsGenerated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "alatem_forecaster_predictions_generated_total",
		Help: "Total number of (area, condition) forecasts computed.",
	})
	predictionsStored = promauto.NewCounter(prometheus.CounterOpts{
		Name: "alatem_forecaster_predictions_stored_total",
		Help: "Total number of prediction records persisted.",
	})
	predictionsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "alatem_forecaster_predictions_failed_total",
		Help: "Total number of per-pair forecast failures.",
	})
	alertsTriggered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "alatem_forecaster_alerts_triggered_total",
		Help: "Total number of HIGH-risk triggers handed to the alert sink.",
	})
	cycleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "alatem_forecaster_cycle_duration_seconds",
		Help:    "Duration of a full forecast scan.",
		Buckets: []float64{0.1, 0.5, 1.0, 2.5, 5.0, 10.0},
	})
)

// Orchestrator owns the scan loop over all configured pairs.
type Orchestrator struct {
	store       storage.Store
	summaries   history.Provider
	predictor   *outbreak.Predictor
	sink        alerts.Sink
	areas       []string
	conditions  []string
	daysAhead   int
	generatedBy string
	now         func() time.Time
}

func New(store storage.Store, summaries history.Provider, predictor *outbreak.Predictor, sink alerts.Sink, areas, conditions []string, daysAhead int) *Orchestrator {
	return &Orchestrator{
		store:       store,
		summaries:   summaries,
		predictor:   predictor,
		sink:        sink,
		areas:       areas,
		conditions:  conditions,
		daysAhead:   daysAhead,
		generatedBy: "ml_system",
		now:         time.Now,
	}
}

// RunCycle scans every configured (area, condition) pair, persists the
// forecasts and hands HIGH-risk triggers to the alert sink.
func (o *Orchestrator) RunCycle(ctx context.Context) {
	start := time.Now()
	defer func() {
		cycleDuration.Observe(time.Since(start).Seconds())
	}()

	if !o.predictor.Ready() {
		log.Printf("scan skipped: no trained model loaded")
		return
	}

	triggers := o.scan(ctx, o.areas)
	published := o.publish(ctx, triggers)

	log.Printf("forecast cycle completed: %d pairs, %d high-risk triggers, %d published (%.2fs)",
		len(o.areas)*len(o.conditions), len(triggers), published, time.Since(start).Seconds())
}

// ScanArea runs the same per-pair logic for a single area, on demand. The
// persisted records are returned for the caller (the HTTP surface) and
// triggers still flow to the alert sink.
func (o *Orchestrator) ScanArea(ctx context.Context, area string) ([]models.PredictionRecord, error) {
	if !o.predictor.Ready() {
		return nil, outbreak.ErrModelNotTrained
	}

	var records []models.PredictionRecord
	var triggers []models.HighRiskTrigger
	for _, condition := range o.conditions {
		record, pairTriggers, err := o.scanPair(ctx, area, condition)
		if err != nil {
			predictionsFailed.Inc()
			log.Printf("forecast failed for %s/%s: %v", area, condition, err)
			continue
		}
		records = append(records, *record)
		triggers = append(triggers, pairTriggers...)
	}
	o.publish(ctx, triggers)
	return records, nil
}

// scan walks all pairs for the given areas. Per-pair errors are logged
// and counted, never propagated: partial-failure isolation is the one
// failure-handling invariant here.
func (o *Orchestrator) scan(ctx context.Context, areas []string) []models.HighRiskTrigger {
	var triggers []models.HighRiskTrigger
	for _, area := range areas {
		for _, condition := range o.conditions {
			_, pairTriggers, err := o.scanPair(ctx, area, condition)
			if err != nil {
				predictionsFailed.Inc()
				log.Printf("forecast failed for %s/%s: %v", area, condition, err)
				continue
			}
			triggers = append(triggers, pairTriggers...)
		}
	}
	return triggers
}

func (o *Orchestrator) scanPair(ctx context.Context, area, condition string) (*models.PredictionRecord, []models.HighRiskTrigger, error) {
	summary, err := o.summaries.Summary(ctx, area, condition)
	if err != nil {
		return nil, nil, err
	}

	points, err := o.predictor.Predict(area, condition, summary, o.daysAhead)
	if err != nil {
		return nil, nil, err
	}
	predictionsGenerated.Inc()

	now := o.now().UTC()
	record := models.PredictionRecord{
		ID:          uuid.NewString(),
		Area:        area,
		Condition:   condition,
		Type:        models.PredictionTypeHealth,
		Date:        now.Format("2006-01-02"),
		Predictions: points,
		Timestamp:   now,
		GeneratedBy: o.generatedBy,
	}
	if err := o.store.UpsertPrediction(ctx, record); err != nil {
		return nil, nil, err
	}
	predictionsStored.Inc()

	var triggers []models.HighRiskTrigger
	for _, point := range points {
		if point.RiskLevel != models.RiskHigh {
			continue
		}
		triggers = append(triggers, models.HighRiskTrigger{
			Area:           area,
			Condition:      condition,
			Date:           point.Date,
			Probability:    point.OutbreakProbability,
			PredictedCases: point.PredictedCases,
		})
	}
	return &record, triggers, nil
}

func (o *Orchestrator) publish(ctx context.Context, triggers []models.HighRiskTrigger) int {
	published := 0
	for _, trigger := range triggers {
		if err := o.sink.Publish(ctx, trigger); err != nil {
			log.Printf("trigger publish failed for %s/%s: %v", trigger.Area, trigger.Condition, err)
			continue
		}
		alertsTriggered.Inc()
		published++
	}
	return published
}
