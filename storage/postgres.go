package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Dacosmicgiant/alatem-sos/models"
)

// PostgresStore persists through a pgx connection pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("db pool init failed: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("db ping failed: %w", err)
	}

	s := &PostgresStore{pool: pool}
	if err := s.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) ensureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS health_reports (
			report_date date NOT NULL,
			area text NOT NULL,
			condition text NOT NULL,
			cases int NOT NULL,
			population int NOT NULL,
			risk_factor float8 NOT NULL,
			rainfall float8 NOT NULL,
			PRIMARY KEY (report_date, area, condition)
		);
		CREATE TABLE IF NOT EXISTS predictions (
			area text NOT NULL,
			scan_date text NOT NULL,
			pred_type text NOT NULL,
			condition text NOT NULL,
			id text NOT NULL,
			points jsonb NOT NULL,
			generated_at timestamptz NOT NULL,
			generated_by text NOT NULL,
			PRIMARY KEY (area, scan_date, pred_type, condition)
		);
	`)
	if err != nil {
		return fmt.Errorf("schema init failed: %w", err)
	}
	return nil
}

func (s *PostgresStore) SaveReport(ctx context.Context, report models.HealthReport) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO health_reports (report_date, area, condition, cases, population, risk_factor, rainfall)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (report_date, area, condition) DO NOTHING
	`, report.Date, report.Area, report.Condition, report.Cases, report.Population, report.RiskFactor, report.Rainfall)
	if err != nil {
		return fmt.Errorf("report insert failed: %w", err)
	}
	return nil
}

func (s *PostgresStore) Reports(ctx context.Context) ([]models.HealthReport, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT report_date, area, condition, cases, population, risk_factor, rainfall
		FROM health_reports
		ORDER BY report_date ASC, area ASC, condition ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("report query failed: %w", err)
	}
	defer rows.Close()
	return scanReports(rows)
}

func (s *PostgresStore) RecentReports(ctx context.Context, area, condition string, since time.Time) ([]models.HealthReport, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT report_date, area, condition, cases, population, risk_factor, rainfall
		FROM health_reports
		WHERE area = $1 AND condition = $2 AND report_date >= $3
		ORDER BY report_date ASC
	`, area, condition, since)
	if err != nil {
		return nil, fmt.Errorf("recent report query failed: %w", err)
	}
	defer rows.Close()
	return scanReports(rows)
}

func scanReports(rows pgx.Rows) ([]models.HealthReport, error) {
	var reports []models.HealthReport
	for rows.Next() {
		var r models.HealthReport
		if err := rows.Scan(&r.Date, &r.Area, &r.Condition, &r.Cases, &r.Population, &r.RiskFactor, &r.Rainfall); err != nil {
			return nil, fmt.Errorf("report scan failed: %w", err)
		}
		reports = append(reports, r)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("report rows error: %w", rows.Err())
	}
	return reports, nil
}

func (s *PostgresStore) UpsertPrediction(ctx context.Context, record models.PredictionRecord) error {
	points, err := json.Marshal(record.Predictions)
	if err != nil {
		return fmt.Errorf("marshal prediction points: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO predictions (area, scan_date, pred_type, condition, id, points, generated_at, generated_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (area, scan_date, pred_type, condition) DO UPDATE SET
			id = EXCLUDED.id,
			points = EXCLUDED.points,
			generated_at = EXCLUDED.generated_at,
			generated_by = EXCLUDED.generated_by
	`, record.Area, record.Date, record.Type, record.Condition, record.ID, points, record.Timestamp, record.GeneratedBy)
	if err != nil {
		return fmt.Errorf("prediction upsert failed: %w", err)
	}
	return nil
}

func (s *PostgresStore) LatestPredictions(ctx context.Context, area string, limit int) ([]models.PredictionRecord, error) {
	query := `
		SELECT area, scan_date, pred_type, condition, id, points, generated_at, generated_by
		FROM predictions
	`
	args := []any{}
	if area != "" {
		query += ` WHERE area = $1`
		args = append(args, area)
	}
	query += ` ORDER BY generated_at DESC`
	if limit > 0 {
		query += fmt.Sprintf(` LIMIT %d`, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("prediction query failed: %w", err)
	}
	defer rows.Close()

	var records []models.PredictionRecord
	for rows.Next() {
		var rec models.PredictionRecord
		var points []byte
		if err := rows.Scan(&rec.Area, &rec.Date, &rec.Type, &rec.Condition, &rec.ID, &points, &rec.Timestamp, &rec.GeneratedBy); err != nil {
			return nil, fmt.Errorf("prediction scan failed: %w", err)
		}
		if err := json.Unmarshal(points, &rec.Predictions); err != nil {
			return nil, fmt.Errorf("unmarshal prediction points: %w", err)
		}
		records = append(records, rec)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("prediction rows error: %w", rows.Err())
	}
	return records, nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}
