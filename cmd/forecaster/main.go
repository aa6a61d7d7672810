package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Dacosmicgiant/alatem-sos/alerts"
	"github.com/Dacosmicgiant/alatem-sos/config"
	"github.com/Dacosmicgiant/alatem-sos/handlers"
	"github.com/Dacosmicgiant/alatem-sos/history"
	"github.com/Dacosmicgiant/alatem-sos/middleware"
	"github.com/Dacosmicgiant/alatem-sos/orchestrator"
	"github.com/Dacosmicgiant/alatem-sos/outbreak"
	"github.com/Dacosmicgiant/alatem-sos/storage"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	store, err := storage.New(ctx, cfg)
	if err != nil {
		log.Fatalf("storage init failed: %v", err)
	}
	defer store.Close()
	log.Printf("storage connected: backend=%s", cfg.Storage.Backend)

	var sink alerts.Sink = alerts.NopSink{}
	if cfg.Redis.URL != "" {
		publisher, err := alerts.NewPublisher(ctx, cfg.Redis.URL, cfg.Redis.AlertChannel)
		if err != nil {
			log.Fatalf("redis init failed: %v", err)
		}
		defer publisher.Close()
		sink = publisher
		log.Printf("redis connected: channel=%s", cfg.Redis.AlertChannel)
	} else {
		log.Printf("no REDIS_URL set, alert triggers will not be published")
	}

	// Model loading is a one-time owner operation; the scan loop simply
	// skips cycles until a model exists (trained via the retrain API).
	var pair *outbreak.ModelPair
	if _, err := os.Stat(cfg.Forecast.ModelPath); err == nil {
		pair, err = outbreak.LoadArtifact(cfg.Forecast.ModelPath)
		if err != nil {
			log.Fatalf("model artifact load failed: %v", err)
		}
		log.Printf("model loaded: %s (%d areas, %d conditions)",
			cfg.Forecast.ModelPath, pair.Areas.Len(), pair.Conditions.Len())
	} else {
		log.Printf("no model artifact at %s, waiting for training", cfg.Forecast.ModelPath)
	}

	predictor := outbreak.NewPredictor(pair, config.HaitiAreas)
	summaries := history.NewStoreProvider(store)
	orch := orchestrator.New(store, summaries, predictor, sink,
		config.AreaCodes(), config.HealthConditions, cfg.Forecast.DaysAhead)

	go serveHTTP(cfg, store, orch, predictor)

	interval := time.Duration(cfg.Forecast.ScanIntervalSec) * time.Second
	log.Printf("forecaster running: interval=%s days_ahead=%d areas=%d conditions=%d",
		interval, cfg.Forecast.DaysAhead, len(config.AreaCodes()), len(config.HealthConditions))

	// Run first cycle immediately
	orch.RunCycle(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			orch.RunCycle(ctx)
		case <-ctx.Done():
			log.Printf("forecaster shutting down")
			return
		}
	}
}

func serveHTTP(cfg *config.Config, store storage.Store, orch *orchestrator.Orchestrator, predictor *outbreak.Predictor) {
	gin.SetMode(gin.ReleaseMode)
	router := gin.Default()
	router.Use(middleware.SetupCORS(cfg.CORS))

	h := handlers.NewPredictionHandler(store, orch, predictor, cfg)

	router.GET("/health", h.Health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	{
		api.GET("/predictions", h.GetPredictions)
		api.POST("/predictions/run", h.RunPredictions)
		api.POST("/model/retrain", h.Retrain)
	}

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	log.Printf("api server listening on %s", addr)
	if err := router.Run(addr); err != nil {
		log.Fatalf("api server failed: %v", err)
	}
}
