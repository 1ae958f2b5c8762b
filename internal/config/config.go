package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"outbreak-pipeline/internal/model"
)

// ServerConfig holds the API server settings, read from the environment
// with the OUTBREAKS_ prefix.
type ServerConfig struct {
	Addr            string `envconfig:"ADDR" default:":8080"`
	DBPath          string `envconfig:"DB_PATH" default:"outbreaks.db"`
	OutputDir       string `envconfig:"OUTPUT_DIR" default:"exports"`
	RefreshSpec     string `envconfig:"REFRESH_SPEC"`     // path to a YAML analysis spec
	RefreshSchedule string `envconfig:"REFRESH_SCHEDULE"` // cron expression, e.g. "0 6 * * *"
}

// Load reads server configuration from a .env file (if present) and the
// environment.
func Load() (ServerConfig, error) {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	var cfg ServerConfig
	if err := envconfig.Process("OUTBREAKS", &cfg); err != nil {
		return ServerConfig{}, fmt.Errorf("failed to process environment: %w", err)
	}
	return cfg, nil
}

// LoadAnalysisSpec reads a YAML analysis job spec from disk.
func LoadAnalysisSpec(path string) (model.AnalysisJobSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.AnalysisJobSpec{}, fmt.Errorf("failed to read analysis spec: %w", err)
	}

	var spec model.AnalysisJobSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return model.AnalysisJobSpec{}, fmt.Errorf("failed to parse analysis spec: %w", err)
	}

	if spec.Source.URL == "" {
		return model.AnalysisJobSpec{}, fmt.Errorf("analysis spec %s: source.url is required", path)
	}
	if len(spec.Aggregations) == 0 && !spec.Summary {
		return model.AnalysisJobSpec{}, fmt.Errorf("analysis spec %s: at least one aggregation or summary is required", path)
	}
	return spec, nil
}
