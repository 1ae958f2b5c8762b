package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"outbreak-pipeline/internal/model"
	"outbreak-pipeline/internal/pipeline"
	"outbreak-pipeline/internal/store"
	"outbreak-pipeline/pkg/utils"
)

var outputMgr = utils.NewOutputManager("exports")

// SetOutputDir points exports at the configured output directory.
func SetOutputDir(dir string) {
	outputMgr = utils.NewOutputManager(dir)
	outputMgr.EnsureOutputDirExists()
}

// CreateAnalysis creates a new analysis job
// @Summary Create a new analysis
// @Description Create and start an outbreak analysis run with the provided configuration
// @Tags analyses
// @Accept json
// @Produce json
// @Param analysis body model.AnalysisJobSpec true "Analysis configuration"
// @Success 200 {object} map[string]interface{} "Analysis created successfully"
// @Failure 400 {object} map[string]interface{} "Invalid request payload"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /analyses [post]
func CreateAnalysis(w http.ResponseWriter, r *http.Request) {
	var job model.AnalysisJobSpec
	if err := json.NewDecoder(r.Body).Decode(&job); err != nil {
		http.Error(w, "Invalid JSON payload", http.StatusBadRequest)
		return
	}

	if job.Source.URL == "" {
		http.Error(w, "A source is required", http.StatusBadRequest)
		return
	}
	if len(job.Aggregations) == 0 && !job.Summary {
		http.Error(w, "At least one aggregation or summary is required", http.StatusBadRequest)
		return
	}

	jobID := uuid.New().String()

	if err := store.SaveJob(jobID, job); err != nil {
		http.Error(w, "Failed to save job", http.StatusInternalServerError)
		return
	}

	// Run asynchronously; status and results land in the store
	ctx, cancel := context.WithTimeout(context.Background(), utils.ParseDuration(job.Concurrency.JobTimeout))
	go func() {
		defer cancel()
		if _, err := pipeline.Run(ctx, jobID, job, outputMgr); err != nil {
			store.SaveJobError(jobID, err)
		}
	}()

	resp := map[string]interface{}{
		"message":   "Analysis created successfully!",
		"jobID":     jobID,
		"status":    "pending",
		"createdAt": time.Now().UTC(),
	}

	writeJSON(w, http.StatusOK, resp)
}

// ListAnalyses retrieves all analysis jobs
// @Summary List all analyses
// @Description Get a list of all analysis jobs with their current status
// @Tags analyses
// @Produce json
// @Success 200 {array} store.JobInfo "List of analyses"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /analyses [get]
func ListAnalyses(w http.ResponseWriter, r *http.Request) {
	jobs, err := store.ListJobs()
	if err != nil {
		http.Error(w, "Failed to fetch analyses", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, jobs)
}

// GetAnalysis retrieves a specific analysis job
// @Summary Get analysis
// @Description Retrieve spec and status of a specific analysis job
// @Tags analyses
// @Produce json
// @Param id path string true "Analysis ID"
// @Success 200 {object} store.JobInfo "Analysis details"
// @Failure 404 {object} map[string]interface{} "Analysis not found"
// @Router /analyses/{id} [get]
func GetAnalysis(w http.ResponseWriter, r *http.Request) {
	jobID, ok := jobIDFromPath(w, r, "")
	if !ok {
		return
	}

	job, err := store.GetJob(jobID)
	if err != nil {
		http.Error(w, "Analysis not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// GetAnalysisResults retrieves the aggregation tables of a job
// @Summary Get analysis results
// @Description Retrieve the persisted aggregation tables (group counts and percentages)
// @Tags analyses
// @Produce json
// @Param id path string true "Analysis ID"
// @Success 200 {array} store.StoredGroupCount "Aggregation rows"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /analyses/{id}/results [get]
func GetAnalysisResults(w http.ResponseWriter, r *http.Request) {
	jobID, ok := jobIDFromPath(w, r, "/results")
	if !ok {
		return
	}

	groups, err := store.GetGroupCounts(jobID)
	if err != nil {
		http.Error(w, "Failed to fetch results", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, groups)
}

// GetAnalysisSummary retrieves the descriptive statistics of a job
// @Summary Get analysis summary
// @Description Retrieve the persisted per-variable descriptive statistics
// @Tags analyses
// @Produce json
// @Param id path string true "Analysis ID"
// @Success 200 {array} model.SummaryRow "Summary rows"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /analyses/{id}/summary [get]
func GetAnalysisSummary(w http.ResponseWriter, r *http.Request) {
	jobID, ok := jobIDFromPath(w, r, "/summary")
	if !ok {
		return
	}

	rows, err := store.GetSummaryRows(jobID)
	if err != nil {
		http.Error(w, "Failed to fetch summary", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

// GetAnalysisErrors retrieves the recorded errors of a job
// @Summary Get analysis errors
// @Description Retrieve errors recorded during an analysis run
// @Tags analyses
// @Produce json
// @Param id path string true "Analysis ID"
// @Success 200 {array} string "Error messages"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /analyses/{id}/errors [get]
func GetAnalysisErrors(w http.ResponseWriter, r *http.Request) {
	jobID, ok := jobIDFromPath(w, r, "/errors")
	if !ok {
		return
	}

	messages, err := store.GetJobErrors(jobID)
	if err != nil {
		http.Error(w, "Failed to fetch errors", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, messages)
}

// GetAnalysisLogs retrieves the pipeline logs of a job
// @Summary Get analysis logs
// @Description Retrieve per-stage pipeline log lines for an analysis run
// @Tags analyses
// @Produce json
// @Param id path string true "Analysis ID"
// @Success 200 {array} store.LogEntry "Log lines"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /analyses/{id}/logs [get]
func GetAnalysisLogs(w http.ResponseWriter, r *http.Request) {
	jobID, ok := jobIDFromPath(w, r, "/logs")
	if !ok {
		return
	}

	logs, err := store.GetPipelineLogs(jobID)
	if err != nil {
		http.Error(w, "Failed to fetch logs", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, logs)
}

// GetAnalysisProgress retrieves the stage progress of a job
// @Summary Get analysis progress
// @Description Retrieve stage-by-stage progress for an analysis run
// @Tags analyses
// @Produce json
// @Param id path string true "Analysis ID"
// @Success 200 {array} store.StageProgress "Stage progress"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /analyses/{id}/progress [get]
func GetAnalysisProgress(w http.ResponseWriter, r *http.Request) {
	jobID, ok := jobIDFromPath(w, r, "/progress")
	if !ok {
		return
	}

	progress, err := store.GetStageProgress(jobID)
	if err != nil {
		http.Error(w, "Failed to fetch progress", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, progress)
}

// ListAnalysisFiles lists the exported files of a job
// @Summary List analysis files
// @Description List the exported files of an analysis run with download URLs
// @Tags files
// @Produce json
// @Param id path string true "Analysis ID"
// @Success 200 {object} map[string]interface{} "Exported files"
// @Failure 404 {object} map[string]interface{} "No exports for this analysis"
// @Router /analyses/{id}/files [get]
func ListAnalysisFiles(w http.ResponseWriter, r *http.Request) {
	jobID, ok := jobIDFromPath(w, r, "/files")
	if !ok {
		return
	}

	jobDir := filepath.Join(outputMgr.BaseOutputDir, jobID)
	entries, err := os.ReadDir(jobDir)
	if err != nil {
		http.Error(w, "No exports for this analysis", http.StatusNotFound)
		return
	}

	files := make([]map[string]interface{}, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		size, _ := outputMgr.GetFileSize(filepath.Join(jobDir, name))
		files = append(files, map[string]interface{}{
			"name":        name,
			"type":        outputMgr.GetFileType(name),
			"size":        size,
			"downloadUrl": outputMgr.GetDownloadURL(jobID, name),
		})
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"jobID": jobID,
		"files": files,
		"count": len(files),
	})
}

// DownloadExport serves one exported file
// @Summary Download an exported file
// @Description Download a specific exported file from an analysis run
// @Tags files
// @Produce application/octet-stream
// @Param jobID path string true "Analysis ID"
// @Param filename path string true "File name"
// @Success 200 {file} file "File download"
// @Failure 400 {object} map[string]interface{} "Invalid URL format"
// @Failure 404 {object} map[string]interface{} "File not found"
// @Router /download/{jobID}/{filename} [get]
func DownloadExport(w http.ResponseWriter, r *http.Request) {
	// URL format: /api/v1/download/{jobID}/{filename}
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) != 5 {
		http.Error(w, "Invalid URL format", http.StatusBadRequest)
		return
	}
	jobID := parts[3]
	fileName := filepath.Base(parts[4])

	path := filepath.Join(outputMgr.BaseOutputDir, jobID, fileName)
	if _, err := os.Stat(path); err != nil {
		http.Error(w, "File not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileName))
	w.Header().Set("Content-Type", "application/octet-stream")
	http.ServeFile(w, r, path)
}

// jobIDFromPath extracts the job ID from /api/v1/analyses/{id}[suffix].
func jobIDFromPath(w http.ResponseWriter, r *http.Request, suffix string) (string, bool) {
	const prefix = "/api/v1/analyses/"

	path := r.URL.Path
	if !strings.HasPrefix(path, prefix) || !strings.HasSuffix(path, suffix) {
		http.Error(w, "Invalid path", http.StatusBadRequest)
		return "", false
	}

	jobID := strings.TrimSuffix(path[len(prefix):], suffix)
	if jobID == "" || strings.Contains(jobID, "/") {
		http.Error(w, "Job ID is required", http.StatusBadRequest)
		return "", false
	}
	return jobID, true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
