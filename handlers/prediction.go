package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Dacosmicgiant/alatem-sos/config"
	"github.com/Dacosmicgiant/alatem-sos/orchestrator"
	"github.com/Dacosmicgiant/alatem-sos/outbreak"
	"github.com/Dacosmicgiant/alatem-sos/storage"
)

const (
	defaultPredictionLimit = 10
	maxPredictionLimit     = 100
)

type PredictionHandler struct {
	store     storage.Store
	orch      *orchestrator.Orchestrator
	predictor *outbreak.Predictor
	cfg       *config.Config
}

func NewPredictionHandler(store storage.Store, orch *orchestrator.Orchestrator, predictor *outbreak.Predictor, cfg *config.Config) *PredictionHandler {
	return &PredictionHandler{store: store, orch: orch, predictor: predictor, cfg: cfg}
}

// GetPredictions returns the latest persisted prediction records, newest
// first, optionally filtered by area.
func (h *PredictionHandler) GetPredictions(c *gin.Context) {
	area := c.Query("area")
	if area != "" {
		if _, ok := config.HaitiAreas[area]; !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown area"})
			return
		}
	}

	limit := defaultPredictionLimit
	if limitStr := c.Query("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			limit = l
		}
	}
	if limit > maxPredictionLimit {
		limit = maxPredictionLimit
	}

	records, err := h.store.LatestPredictions(c.Request.Context(), area, limit)
	if err != nil {
		log.Printf("prediction query failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database query failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": records, "count": len(records)})
}

// RunPredictions triggers an on-demand scan: one area if ?area= is given,
// otherwise the full configured set.
func (h *PredictionHandler) RunPredictions(c *gin.Context) {
	area := c.Query("area")
	if area == "" {
		if !h.predictor.Ready() {
			c.JSON(http.StatusConflict, gin.H{"error": "model not trained"})
			return
		}
		h.orch.RunCycle(c.Request.Context())
		c.JSON(http.StatusOK, gin.H{"status": "scan completed"})
		return
	}

	if _, ok := config.HaitiAreas[area]; !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown area"})
		return
	}

	records, err := h.orch.ScanArea(c.Request.Context(), area)
	if err != nil {
		if errors.Is(err, outbreak.ErrModelNotTrained) {
			c.JSON(http.StatusConflict, gin.H{"error": "model not trained"})
			return
		}
		log.Printf("area scan failed for %s: %v", area, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "scan failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "scan completed", "data": records, "count": len(records)})
}

// Retrain fits a new model pair from the stored report history, persists
// the artifact and swaps it into the live predictor.
func (h *PredictionHandler) Retrain(c *gin.Context) {
	reports, err := h.store.Reports(c.Request.Context())
	if err != nil {
		log.Printf("report load failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "report load failed"})
		return
	}

	pair, err := outbreak.Train(reports, outbreak.TrainConfig{
		Thresholds: config.OutbreakThresholds,
		Seed:       h.cfg.Forecast.TrainSeed,
	})
	if err != nil {
		log.Printf("training failed: %v", err)
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	if err := outbreak.SaveArtifact(pair, h.cfg.Forecast.ModelPath); err != nil {
		log.Printf("artifact save failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "artifact save failed"})
		return
	}

	h.predictor.Swap(pair)
	c.JSON(http.StatusOK, gin.H{"status": "model retrained", "reports": len(reports)})
}

// Health reports service and model status.
func (h *PredictionHandler) Health(c *gin.Context) {
	status := "active"
	message := "forecaster ready"
	if !h.predictor.Ready() {
		status = "inactive"
		message = "model not trained or loaded"
	}
	c.JSON(http.StatusOK, gin.H{
		"status":        status,
		"models_loaded": h.predictor.Ready(),
		"message":       message,
	})
}
