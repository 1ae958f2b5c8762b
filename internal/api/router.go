package api

import (
	httpSwagger "github.com/swaggo/http-swagger"

	_ "outbreak-pipeline/docs"
	"outbreak-pipeline/internal/api/handler"
	"outbreak-pipeline/pkg/router"
)

func RegisterRoutes(r *router.Router) {
	r.POST("/api/v1/analyses", handler.CreateAnalysis)
	r.GET("/api/v1/analyses", handler.ListAnalyses)
	// More specific routes first
	r.GET("/api/v1/analyses/*/errors", handler.GetAnalysisErrors)
	r.GET("/api/v1/analyses/*/results", handler.GetAnalysisResults)
	r.GET("/api/v1/analyses/*/summary", handler.GetAnalysisSummary)
	r.GET("/api/v1/analyses/*/logs", handler.GetAnalysisLogs)
	r.GET("/api/v1/analyses/*/progress", handler.GetAnalysisProgress)
	r.GET("/api/v1/analyses/*/files", handler.ListAnalysisFiles)
	// Generic analysis route last
	r.GET("/api/v1/analyses/*", handler.GetAnalysis)

	r.GET("/api/v1/download/*", handler.DownloadExport)

	r.Handle("GET", "/swagger/*", httpSwagger.WrapHandler)
}
