package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSpec(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "analysis.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadAnalysisSpec(t *testing.T) {
	path := writeSpec(t, `
source:
  type: csv
  url: data/outbreaks.csv
aggregations:
  - name: by_year_type
    group_by: [year, outbreak_type]
  - name: respiratory_by_setting
    group_by: [year, setting]
    filter:
      field: outbreak_type
      equals: Respiratory
    normalize: true
summary: true
export:
  formats: [csv, xlsx]
  db: true
`)

	spec, err := LoadAnalysisSpec(path)
	require.NoError(t, err)

	assert.Equal(t, "csv", spec.Source.Type)
	assert.Equal(t, "data/outbreaks.csv", spec.Source.URL)
	require.Len(t, spec.Aggregations, 2)
	assert.Equal(t, []string{"year", "outbreak_type"}, spec.Aggregations[0].GroupBy)

	second := spec.Aggregations[1]
	require.NotNil(t, second.Filter)
	assert.Equal(t, "outbreak_type", second.Filter.Field)
	assert.Equal(t, "Respiratory", second.Filter.Equals)
	assert.True(t, second.Normalize)

	assert.True(t, spec.Summary)
	require.NotNil(t, spec.Export)
	assert.Equal(t, []string{"csv", "xlsx"}, spec.Export.Formats)
	assert.True(t, spec.Export.DB)
}

func TestLoadAnalysisSpecSummaryOnly(t *testing.T) {
	path := writeSpec(t, `
source:
  type: csv
  url: data/outbreaks.csv
summary: true
`)

	spec, err := LoadAnalysisSpec(path)
	require.NoError(t, err)
	assert.Empty(t, spec.Aggregations)
	assert.True(t, spec.Summary)
}

func TestLoadAnalysisSpecValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"missing source url", "summary: true\n"},
		{"no work requested", "source:\n  url: data/outbreaks.csv\n"},
		{"malformed yaml", "source: [unterminated\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeSpec(t, tt.content)
			_, err := LoadAnalysisSpec(path)
			assert.Error(t, err)
		})
	}
}

func TestLoadAnalysisSpecMissingFile(t *testing.T) {
	_, err := LoadAnalysisSpec(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"OUTBREAKS_ADDR", "OUTBREAKS_DB_PATH", "OUTBREAKS_OUTPUT_DIR"} {
		t.Setenv(key, "placeholder")
		os.Unsetenv(key)
	}

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, "outbreaks.db", cfg.DBPath)
	assert.Equal(t, "exports", cfg.OutputDir)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("OUTBREAKS_ADDR", ":9090")
	t.Setenv("OUTBREAKS_REFRESH_SPEC", "analysis.yaml")
	t.Setenv("OUTBREAKS_REFRESH_SCHEDULE", "0 6 * * *")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, "analysis.yaml", cfg.RefreshSpec)
	assert.Equal(t, "0 6 * * *", cfg.RefreshSchedule)
}
