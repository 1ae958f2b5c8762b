package pipeline

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"outbreak-pipeline/internal/model"
	"outbreak-pipeline/internal/store"
	"outbreak-pipeline/pkg/utils"
)

// RunResult carries everything a run produced, for callers that want the
// tables in memory (the CLI) on top of the exported files.
type RunResult struct {
	Tables  []TableResult      `json:"tables"`
	Summary []model.SummaryRow `json:"summary,omitempty"`
	Exports []ExportResult     `json:"exports,omitempty"`
	Loaded  int                `json:"loaded"`
	Dropped int                `json:"dropped"`
}

// ------------------- Pipeline Runner -------------------

// Run executes one analysis job end to end: load → derive → {aggregate,
// summarize} → export. Row-level failures are absorbed into the dropped
// count; only an unusable source fails the run.
func Run(ctx context.Context, jobID string, job model.AnalysisJobSpec, om *utils.OutputManager) (result RunResult, err error) {
	start := time.Now()
	fmt.Printf("🚀 Starting analysis run for job: %s\n", jobID)

	store.UpdateJobStatus(jobID, "running")

	defer func() {
		if err != nil {
			store.UpdateJobStatus(jobID, "failed")
			store.SaveJobError(jobID, err)
		}
	}()

	timeout := utils.ParseDuration(job.Concurrency.JobTimeout)
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	bufSize := job.Concurrency.ChannelBufferSize
	if bufSize <= 0 {
		bufSize = 100
	}

	errorCh := make(chan error, bufSize)
	var errWg sync.WaitGroup
	errWg.Add(1)
	go func() {
		defer errWg.Done()
		for e := range errorCh {
			log.Printf("❌ Error in job %s: %v\n", jobID, e)
			store.SaveJobError(jobID, e)
		}
	}()

	// --- LOAD STAGE ---
	loadStart := time.Now()
	store.UpdateJobStatus(jobID, "loading")
	store.SaveStageProgress(jobID, "load", "started", &loadStart, nil, 0, 0)
	store.SavePipelineLog(jobID, "load", "info", "Starting load stage", map[string]interface{}{
		"source": job.Source.URL,
	})

	loaded, err := LoadSource(ctx, job.Source)
	if err != nil {
		store.SavePipelineLog(jobID, "load", "error", "Load stage failed", map[string]interface{}{
			"error": err.Error(),
		})
		close(errorCh)
		errWg.Wait()
		return RunResult{}, err
	}

	loadEnd := time.Now()
	result.Loaded = len(loaded.Records)
	result.Dropped = loaded.Dropped
	store.SaveStageProgress(jobID, "load", "completed", &loadStart, &loadEnd, len(loaded.Records), loaded.Dropped)
	store.SavePipelineLog(jobID, "load", "info", "Load stage completed", map[string]interface{}{
		"records":     len(loaded.Records),
		"dropped":     loaded.Dropped,
		"duration_ms": loadEnd.Sub(loadStart).Milliseconds(),
	})

	// --- DERIVATION STAGE ---
	deriveStart := time.Now()
	store.UpdateJobStatus(jobID, "deriving")
	store.SaveStageProgress(jobID, "derivation", "started", &deriveStart, nil, 0, 0)

	rawCh := make(chan model.RawRecord, bufSize)
	derivedCh := make(chan model.OutbreakRecord, bufSize)

	go func() {
		defer close(rawCh)
		for _, raw := range loaded.Records {
			select {
			case <-ctx.Done():
				return
			case rawCh <- raw:
			}
		}
	}()

	DeriveRecords(ctx, rawCh, derivedCh, job.Concurrency.Workers.Derive)

	records := make([]model.OutbreakRecord, 0, len(loaded.Records))
	for rec := range derivedCh {
		records = append(records, rec)
	}

	deriveEnd := time.Now()
	store.SaveStageProgress(jobID, "derivation", "completed", &deriveStart, &deriveEnd, len(records), 0)
	store.SavePipelineLog(jobID, "derivation", "info", "Derivation stage completed", map[string]interface{}{
		"records":     len(records),
		"duration_ms": deriveEnd.Sub(deriveStart).Milliseconds(),
	})

	// --- AGGREGATION + SUMMARY STAGES ---
	// Independent reductions over the same immutable records, so they run
	// side by side.
	aggStart := time.Now()
	store.UpdateJobStatus(jobID, "aggregating")
	store.SaveStageProgress(jobID, "aggregation", "started", &aggStart, nil, 0, 0)
	store.SavePipelineLog(jobID, "aggregation", "info", "Starting aggregation stage", map[string]interface{}{
		"tables": len(job.Aggregations),
	})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		result.Tables = AggregateAll(records, job.Aggregations, errorCh)
	}()

	if job.Summary {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fmt.Println("📊 Starting summary stage...")
			rows, summaryErrs := Summarize(records, DefaultVariables())
			result.Summary = rows
			for _, e := range summaryErrs {
				errorCh <- e
			}
		}()
	}

	wg.Wait()

	groupTotal := 0
	for _, t := range result.Tables {
		groupTotal += len(t.Groups)
	}
	aggEnd := time.Now()
	store.SaveStageProgress(jobID, "aggregation", "completed", &aggStart, &aggEnd, groupTotal, 0)
	store.SavePipelineLog(jobID, "aggregation", "info", "Aggregation stage completed", map[string]interface{}{
		"tables":      len(result.Tables),
		"groups":      groupTotal,
		"duration_ms": aggEnd.Sub(aggStart).Milliseconds(),
	})
	fmt.Printf("📊 Aggregation Summary: %d groups across %d tables\n", groupTotal, len(result.Tables))

	// --- EXPORT STAGE ---
	exportStart := time.Now()
	store.UpdateJobStatus(jobID, "exporting")
	store.SaveStageProgress(jobID, "export", "started", &exportStart, nil, 0, 0)

	result.Exports = ExportTables(ctx, jobID, result.Tables, result.Summary, job.Export, om)

	exportEnd := time.Now()
	exportErrors := 0
	for _, e := range result.Exports {
		if !e.Success {
			exportErrors++
			errorCh <- fmt.Errorf("export failed (%s): %s", e.Type, e.Error)
		}
	}
	store.SaveStageProgress(jobID, "export", "completed", &exportStart, &exportEnd, len(result.Exports), exportErrors)

	close(errorCh)
	errWg.Wait()

	duration := time.Since(start)
	fmt.Printf("🏁 Analysis run completed for job: %s in %v\n", jobID, duration)

	store.UpdateJobStatus(jobID, "completed")
	return result, nil
}
