package pipeline

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"outbreak-pipeline/internal/model"
	"outbreak-pipeline/pkg/utils"
)

func exportFixture(t *testing.T) ([]TableResult, []model.SummaryRow) {
	t.Helper()

	groups, err := Aggregate(scenarioRecords(), model.AggregationSpec{
		Name:      "by_year_setting",
		GroupBy:   []string{"year", "setting"},
		Normalize: true,
	})
	require.NoError(t, err)

	summary, errs := Summarize(scenarioRecords(), DefaultVariables())
	require.Empty(t, errs)

	return []TableResult{{Name: "by_year_setting", Groups: groups}}, summary
}

func TestExportCSV(t *testing.T) {
	tables, summary := exportFixture(t)
	om := utils.NewOutputManager(t.TempDir())

	results := ExportTables(context.Background(), "job-1", tables, summary,
		&model.Export{Formats: []string{"csv"}}, om)

	require.Len(t, results, 2) // one table + summary
	for _, r := range results {
		assert.True(t, r.Success, r.Error)
	}

	file, err := os.Open(results[0].Path)
	require.NoError(t, err)
	defer file.Close()

	rows, err := csv.NewReader(file).ReadAll()
	require.NoError(t, err)

	assert.Equal(t, []string{"year", "setting", "count", "percentage"}, rows[0])
	assert.Len(t, rows, len(tables[0].Groups)+1)
	// first data row: 2021|LTCH, count 1, 100%
	assert.Equal(t, "2021", rows[1][0])
	assert.Equal(t, "1", rows[1][2])
	assert.Equal(t, "100.000000", rows[1][3])
}

func TestExportJSONAndXLSX(t *testing.T) {
	tables, summary := exportFixture(t)
	om := utils.NewOutputManager(t.TempDir())

	results := ExportTables(context.Background(), "job-2", tables, summary,
		&model.Export{Formats: []string{"json", "xlsx"}}, om)
	require.Len(t, results, 2)

	for _, r := range results {
		require.True(t, r.Success, r.Error)
		_, err := os.Stat(r.Path)
		assert.NoError(t, err)
	}

	// the workbook carries one sheet per table plus the summary sheet
	wb, err := excelize.OpenFile(results[1].Path)
	require.NoError(t, err)
	defer wb.Close()
	assert.ElementsMatch(t, []string{"by_year_setting", "Summary"}, wb.GetSheetList())

	cell, err := wb.GetCellValue("by_year_setting", "A1")
	require.NoError(t, err)
	assert.Equal(t, "year", cell)
}

func TestExportUnknownFormat(t *testing.T) {
	tables, _ := exportFixture(t)
	om := utils.NewOutputManager(t.TempDir())

	results := ExportTables(context.Background(), "job-3", tables, nil,
		&model.Export{Formats: []string{"parquet"}}, om)

	require.Len(t, results, 1)
	assert.False(t, results[0].Success)
}

func TestExportNilConfig(t *testing.T) {
	tables, _ := exportFixture(t)
	assert.Nil(t, ExportTables(context.Background(), "job-4", tables, nil, nil, nil))
}

func TestExportOutputsAreJobScoped(t *testing.T) {
	tables, _ := exportFixture(t)
	base := t.TempDir()
	om := utils.NewOutputManager(base)

	results := ExportTables(context.Background(), "job-5", tables, nil,
		&model.Export{Formats: []string{"csv"}}, om)
	require.Len(t, results, 1)

	rel, err := filepath.Rel(base, results[0].Path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("job-5", "by_year_setting.csv"), rel)
	assert.WithinDuration(t, time.Now(), results[0].ExportedAt, time.Minute)
}
