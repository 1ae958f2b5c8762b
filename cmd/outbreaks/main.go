package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/google/uuid"

	"outbreak-pipeline/internal/config"
	"outbreak-pipeline/internal/pipeline"
	"outbreak-pipeline/internal/store"
	"outbreak-pipeline/pkg/utils"
)

func main() {
	specPath := flag.String("spec", "analysis.yaml", "path to the YAML analysis spec")
	dbPath := flag.String("db", "outbreaks.db", "path to the job store database")
	outputDir := flag.String("out", "exports", "base directory for exported tables")
	flag.Parse()

	job, err := config.LoadAnalysisSpec(*specPath)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}

	if err := store.InitDB(*dbPath); err != nil {
		log.Fatalf("❌ failed to open job store: %v", err)
	}
	defer store.Close()

	jobID := uuid.New().String()
	if err := store.SaveJob(jobID, job); err != nil {
		log.Fatalf("❌ failed to save job: %v", err)
	}

	om := utils.NewOutputManager(*outputDir)
	result, err := pipeline.Run(context.Background(), jobID, job, om)
	if err != nil {
		log.Fatalf("❌ analysis run failed: %v", err)
	}

	fmt.Printf("📋 Loaded %d records (%d rows dropped)\n", result.Loaded, result.Dropped)
	for _, table := range result.Tables {
		fmt.Printf("📋 Table %s: %d groups\n", table.Name, len(table.Groups))
	}
	if len(result.Summary) > 0 {
		fmt.Printf("📋 Summary: %d variables\n", len(result.Summary))
	}
}
