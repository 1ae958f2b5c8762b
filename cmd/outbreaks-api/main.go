package main

import (
	"context"
	"log"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"outbreak-pipeline/internal/api"
	"outbreak-pipeline/internal/api/handler"
	"outbreak-pipeline/internal/config"
	"outbreak-pipeline/internal/pipeline"
	"outbreak-pipeline/internal/store"
	"outbreak-pipeline/pkg/router"
	"outbreak-pipeline/pkg/utils"
)

// @title Outbreak Analytics API
// @version 1.0
// @description Batch analytics over institutional disease-outbreak reports.
// @BasePath /api/v1
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ %v", err)
	}

	if err := store.InitDB(cfg.DBPath); err != nil {
		log.Fatalf("❌ failed to open job store: %v", err)
	}
	handler.SetOutputDir(cfg.OutputDir)

	// Optional scheduled refresh: re-run a fixed analysis spec on a cron
	// schedule so the exported tables track the latest snapshot.
	if cfg.RefreshSpec != "" && cfg.RefreshSchedule != "" {
		c := cron.New()
		_, err := c.AddFunc(cfg.RefreshSchedule, func() {
			runRefresh(cfg)
		})
		if err != nil {
			log.Fatalf("❌ invalid refresh schedule %q: %v", cfg.RefreshSchedule, err)
		}
		c.Start()
		log.Printf("⏰ Scheduled refresh of %s (%s)", cfg.RefreshSpec, cfg.RefreshSchedule)
	}

	r := router.New()
	api.RegisterRoutes(r)
	r.Start(cfg.Addr)
}

func runRefresh(cfg config.ServerConfig) {
	job, err := config.LoadAnalysisSpec(cfg.RefreshSpec)
	if err != nil {
		log.Printf("❌ refresh: %v", err)
		return
	}

	jobID := uuid.New().String()
	if err := store.SaveJob(jobID, job); err != nil {
		log.Printf("❌ refresh: failed to save job: %v", err)
		return
	}

	om := utils.NewOutputManager(cfg.OutputDir)
	if _, err := pipeline.Run(context.Background(), jobID, job, om); err != nil {
		log.Printf("❌ refresh run %s failed: %v", jobID, err)
	}
}
