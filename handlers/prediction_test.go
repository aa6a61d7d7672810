package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Dacosmicgiant/alatem-sos/alerts"
	"github.com/Dacosmicgiant/alatem-sos/config"
	"github.com/Dacosmicgiant/alatem-sos/history"
	"github.com/Dacosmicgiant/alatem-sos/models"
	"github.com/Dacosmicgiant/alatem-sos/orchestrator"
	"github.com/Dacosmicgiant/alatem-sos/outbreak"
	"github.com/Dacosmicgiant/alatem-sos/storage"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testEnv struct {
	store     storage.Store
	predictor *outbreak.Predictor
	router    *gin.Engine
	cfg       *config.Config
}

func newTestEnv(t *testing.T, pair *outbreak.ModelPair) *testEnv {
	t.Helper()

	store, err := storage.NewFlatFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("store init: %v", err)
	}

	cfg := &config.Config{
		Forecast: config.ForecastConfig{
			DaysAhead: 3,
			ModelPath: filepath.Join(t.TempDir(), "outbreak_model.json"),
			TrainSeed: 42,
		},
	}

	predictor := outbreak.NewPredictor(pair, config.HaitiAreas)
	orch := orchestrator.New(store, history.NewStoreProvider(store), predictor, alerts.NopSink{},
		config.AreaCodes(), config.HealthConditions, cfg.Forecast.DaysAhead)

	h := NewPredictionHandler(store, orch, predictor, cfg)

	router := gin.New()
	router.GET("/health", h.Health)
	api := router.Group("/api")
	{
		api.GET("/predictions", h.GetPredictions)
		api.POST("/predictions/run", h.RunPredictions)
		api.POST("/model/retrain", h.Retrain)
	}

	return &testEnv{store: store, predictor: predictor, router: router, cfg: cfg}
}

func (e *testEnv) do(t *testing.T, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("response not JSON: %v\n%s", err, rec.Body.String())
	}
	return body
}

// seedTrainingHistory loads enough two-area, two-condition history for a
// successful training run.
func seedTrainingHistory(t *testing.T, store storage.Store) {
	t.Helper()
	ctx := context.Background()
	start := time.Now().UTC().AddDate(0, 0, -60)

	for _, area := range []string{"DELMAS", "CITE_SOLEIL"} {
		info := config.HaitiAreas[area]
		for _, condition := range []string{"cholera", "fever"} {
			threshold := config.OutbreakThresholds[condition]
			for i := 0; i < 60; i++ {
				cases := 3 + i%5
				if i%4 == 0 {
					cases = threshold + 5 + i%10
				}
				date := start.AddDate(0, 0, i)
				report := models.HealthReport{
					Date:       time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC),
					Area:       area,
					Condition:  condition,
					Cases:      cases,
					Population: info.Population,
					RiskFactor: info.RiskFactor,
					Rainfall:   float64(i % 12),
				}
				if err := store.SaveReport(ctx, report); err != nil {
					t.Fatalf("seed report: %v", err)
				}
			}
		}
	}
}

func TestHealthWithoutModel(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodGet, "/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /health status = %d, want 200", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["status"] != "inactive" {
		t.Errorf("status = %v, want inactive", body["status"])
	}
	if body["models_loaded"] != false {
		t.Errorf("models_loaded = %v, want false", body["models_loaded"])
	}
}

func TestGetPredictionsUnknownArea(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodGet, "/api/predictions?area=ATLANTIS")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unknown area status = %d, want 400", rec.Code)
	}
}

func TestGetPredictionsEmpty(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodGet, "/api/predictions")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /api/predictions status = %d, want 200", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["count"] != float64(0) {
		t.Errorf("count = %v, want 0", body["count"])
	}
}

func TestRunPredictionsWithoutModel(t *testing.T) {
	env := newTestEnv(t, nil)

	if rec := env.do(t, http.MethodPost, "/api/predictions/run"); rec.Code != http.StatusConflict {
		t.Errorf("full scan without model status = %d, want 409", rec.Code)
	}
	if rec := env.do(t, http.MethodPost, "/api/predictions/run?area=DELMAS"); rec.Code != http.StatusConflict {
		t.Errorf("area scan without model status = %d, want 409", rec.Code)
	}
}

func TestRunPredictionsUnknownArea(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodPost, "/api/predictions/run?area=ATLANTIS")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unknown area status = %d, want 400", rec.Code)
	}
}

func TestRetrainWithoutReports(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodPost, "/api/model/retrain")
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("retrain on empty history status = %d, want 422", rec.Code)
	}
}

func TestRetrainThenScanArea(t *testing.T) {
	env := newTestEnv(t, nil)
	seedTrainingHistory(t, env.store)

	rec := env.do(t, http.MethodPost, "/api/model/retrain")
	if rec.Code != http.StatusOK {
		t.Fatalf("retrain status = %d, want 200\n%s", rec.Code, rec.Body.String())
	}
	if !env.predictor.Ready() {
		t.Fatal("predictor not ready after retrain")
	}
	if _, err := os.Stat(env.cfg.Forecast.ModelPath); err != nil {
		t.Errorf("model artifact not written: %v", err)
	}

	// The trained codecs cover only the seeded areas, so scan one of them.
	rec = env.do(t, http.MethodPost, "/api/predictions/run?area=DELMAS")
	if rec.Code != http.StatusOK {
		t.Fatalf("area scan status = %d, want 200\n%s", rec.Code, rec.Body.String())
	}

	rec = env.do(t, http.MethodGet, "/api/predictions?area=DELMAS&limit=5")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /api/predictions status = %d, want 200", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["count"] == float64(0) {
		t.Error("no prediction records persisted after area scan")
	}
}
