package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/Dacosmicgiant/alatem-sos/models"
)

const (
	reportsFile     = "health_reports.json"
	predictionsFile = "predictions.json"
)

// FlatFileStore keeps each collection in one JSON file under a data
// directory. It exists for deployments without a database; all access
// goes through an in-process mutex and writes are temp-file + rename.
type FlatFileStore struct {
	mu  sync.Mutex
	dir string
}

func NewFlatFileStore(dir string) (*FlatFileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &FlatFileStore{dir: dir}, nil
}

func (s *FlatFileStore) SaveReport(ctx context.Context, report models.HealthReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var reports []models.HealthReport
	if err := s.load(reportsFile, &reports); err != nil {
		return err
	}
	for _, existing := range reports {
		if existing.Date.Equal(report.Date) && existing.Area == report.Area && existing.Condition == report.Condition {
			return nil
		}
	}
	reports = append(reports, report)
	return s.save(reportsFile, reports)
}

func (s *FlatFileStore) Reports(ctx context.Context) ([]models.HealthReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var reports []models.HealthReport
	if err := s.load(reportsFile, &reports); err != nil {
		return nil, err
	}
	sort.SliceStable(reports, func(i, j int) bool {
		return reports[i].Date.Before(reports[j].Date)
	})
	return reports, nil
}

func (s *FlatFileStore) RecentReports(ctx context.Context, area, condition string, since time.Time) ([]models.HealthReport, error) {
	all, err := s.Reports(ctx)
	if err != nil {
		return nil, err
	}

	var matched []models.HealthReport
	for _, r := range all {
		if r.Area == area && r.Condition == condition && !r.Date.Before(since) {
			matched = append(matched, r)
		}
	}
	return matched, nil
}

func (s *FlatFileStore) UpsertPrediction(ctx context.Context, record models.PredictionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var records []models.PredictionRecord
	if err := s.load(predictionsFile, &records); err != nil {
		return err
	}

	kept := records[:0]
	for _, existing := range records {
		if existing.Area == record.Area && existing.Date == record.Date &&
			existing.Type == record.Type && existing.Condition == record.Condition {
			continue
		}
		kept = append(kept, existing)
	}
	kept = append(kept, record)
	return s.save(predictionsFile, kept)
}

func (s *FlatFileStore) LatestPredictions(ctx context.Context, area string, limit int) ([]models.PredictionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var records []models.PredictionRecord
	if err := s.load(predictionsFile, &records); err != nil {
		return nil, err
	}

	var matched []models.PredictionRecord
	for _, rec := range records {
		if area == "" || rec.Area == area {
			matched = append(matched, rec)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Timestamp.After(matched[j].Timestamp)
	})
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

func (s *FlatFileStore) Close() {}

func (s *FlatFileStore) load(name string, dest any) error {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("parse %s: %w", name, err)
	}
	return nil
}

func (s *FlatFileStore) save(name string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", name, err)
	}

	tmp, err := os.CreateTemp(s.dir, "."+name+"-*")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", name, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close %s: %w", name, err)
	}
	if err := os.Rename(tmpName, filepath.Join(s.dir, name)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("install %s: %w", name, err)
	}
	return nil
}
