// Package storage persists health reports and prediction records behind a
// single interface. The backend (Postgres or flat JSON files) is chosen
// once at startup; callers never branch on it.
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/Dacosmicgiant/alatem-sos/config"
	"github.com/Dacosmicgiant/alatem-sos/models"
)

// Store is the persistence boundary of the forecasting pipeline.
type Store interface {
	// SaveReport records one health report. Reports are immutable: a
	// duplicate (date, area, condition) key is ignored, not overwritten.
	SaveReport(ctx context.Context, report models.HealthReport) error

	// Reports returns the full report history, ordered by date ascending.
	Reports(ctx context.Context) ([]models.HealthReport, error)

	// RecentReports returns the reports for one (area, condition) pair
	// on or after since, ordered by date ascending.
	RecentReports(ctx context.Context, area, condition string, since time.Time) ([]models.HealthReport, error)

	// UpsertPrediction writes a prediction record, overwriting any
	// existing record with the same (area, date, type, condition) key.
	UpsertPrediction(ctx context.Context, record models.PredictionRecord) error

	// LatestPredictions returns the most recent prediction records,
	// newest first, optionally filtered by area. limit caps the result.
	LatestPredictions(ctx context.Context, area string, limit int) ([]models.PredictionRecord, error)

	Close()
}

// New opens the backend named by the configuration.
func New(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.Storage.Backend {
	case "postgres":
		return NewPostgresStore(ctx, cfg.Database.GetDSN())
	case "flatfile":
		return NewFlatFileStore(cfg.Storage.DataDir)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}
