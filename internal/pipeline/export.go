package pipeline

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"outbreak-pipeline/internal/model"
	"outbreak-pipeline/internal/store"
	"outbreak-pipeline/pkg/utils"
)

// ExportResult represents the result of a single export operation.
type ExportResult struct {
	Type        string    `json:"type"` // "csv", "json", "xlsx", "database"
	Path        string    `json:"path"` // file path or table name
	RecordCount int       `json:"record_count"`
	Success     bool      `json:"success"`
	Error       string    `json:"error,omitempty"`
	ExportedAt  time.Time `json:"exported_at"`
}

// ExportTables writes the aggregation tables and summary rows to every
// configured target. These are the contract boundary to the report renderer:
// it reads the exported tables, never the in-memory records.
func ExportTables(ctx context.Context, jobID string, tables []TableResult, summary []model.SummaryRow, exp *model.Export, om *utils.OutputManager) []ExportResult {
	if exp == nil {
		fmt.Printf("💾 Export: no export configured, %d tables discarded\n", len(tables))
		return nil
	}

	var results []ExportResult
	formats := exp.Formats
	if len(formats) == 0 && !exp.DB {
		formats = []string{"csv"} // default
	}

	for _, format := range formats {
		select {
		case <-ctx.Done():
			return results
		default:
		}

		switch strings.ToLower(format) {
		case "csv":
			results = append(results, exportCSV(jobID, tables, summary, om)...)
		case "json":
			results = append(results, exportJSON(jobID, tables, summary, om))
		case "xlsx":
			results = append(results, exportXLSX(jobID, tables, summary, om))
		default:
			results = append(results, ExportResult{
				Type:       format,
				Success:    false,
				Error:      fmt.Sprintf("unknown export format: %s", format),
				ExportedAt: time.Now(),
			})
		}
	}

	if exp.DB {
		results = append(results, exportToStore(ctx, jobID, tables, summary))
	}

	for _, r := range results {
		if r.Success {
			fmt.Printf("✅ Export: %d rows exported to %s (%s)\n", r.RecordCount, r.Path, r.Type)
		} else {
			fmt.Printf("❌ Export failed (%s): %s\n", r.Type, r.Error)
		}
	}

	return results
}

// groupHeader builds the CSV/XLSX header for a table: the key fields in
// group-by order, then count and percentage.
func groupHeader(table TableResult) []string {
	var fields []string
	if len(table.Groups) > 0 {
		fields = table.Groups[0].Fields
	}
	return append(append([]string{}, fields...), "count", "percentage")
}

// groupRow renders one GroupCount as strings. A nil percentage renders
// empty, matching "undefined" in the output contract.
func groupRow(g model.GroupCount) []string {
	row := append([]string{}, g.Values...)
	row = append(row, strconv.Itoa(g.Count))
	if g.Percentage != nil {
		row = append(row, strconv.FormatFloat(*g.Percentage, 'f', 6, 64))
	} else {
		row = append(row, "")
	}
	return row
}

var summaryHeader = []string{
	"variable", "kind", "count",
	"mean", "median", "sd", "min", "max",
	"unique", "mode", "mode_freq",
	"min_date", "max_date",
}

// summaryRow renders one SummaryRow; cells outside the variable's kind stay
// blank.
func summaryRow(s model.SummaryRow) []string {
	row := make([]string, len(summaryHeader))
	row[0] = s.Variable
	row[1] = string(s.Kind)

	f := func(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }
	switch s.Kind {
	case model.KindNumeric:
		row[2] = strconv.Itoa(s.Numeric.Count)
		row[3], row[4], row[5] = f(s.Numeric.Mean), f(s.Numeric.Median), f(s.Numeric.SD)
		row[6], row[7] = f(s.Numeric.Min), f(s.Numeric.Max)
	case model.KindCategorical:
		row[2] = strconv.Itoa(s.Categorical.Count)
		row[8] = strconv.Itoa(s.Categorical.Unique)
		row[9] = s.Categorical.Mode
		row[10] = strconv.Itoa(s.Categorical.ModeFreq)
	case model.KindTemporal:
		row[2] = strconv.Itoa(s.Temporal.Count)
		if s.Temporal.Count > 0 {
			row[11] = s.Temporal.Min.Format("2006-01-02")
			row[12] = s.Temporal.Max.Format("2006-01-02")
		}
	}
	return row
}

func exportCSV(jobID string, tables []TableResult, summary []model.SummaryRow, om *utils.OutputManager) []ExportResult {
	var results []ExportResult

	for _, table := range tables {
		path, err := om.GetOutputFilePath(jobID, table.Name+".csv")
		if err == nil {
			err = writeCSVFile(path, groupHeader(table), func(w *csv.Writer) error {
				for _, g := range table.Groups {
					if err := w.Write(groupRow(g)); err != nil {
						return err
					}
				}
				return nil
			})
		}
		results = append(results, csvResult(path, len(table.Groups), err))
	}

	if len(summary) > 0 {
		path, err := om.GetOutputFilePath(jobID, "summary.csv")
		if err == nil {
			err = writeCSVFile(path, summaryHeader, func(w *csv.Writer) error {
				for _, s := range summary {
					if err := w.Write(summaryRow(s)); err != nil {
						return err
					}
				}
				return nil
			})
		}
		results = append(results, csvResult(path, len(summary), err))
	}

	return results
}

func csvResult(path string, count int, err error) ExportResult {
	result := ExportResult{Type: "csv", Path: path, RecordCount: count, Success: err == nil, ExportedAt: time.Now()}
	if err != nil {
		result.Error = err.Error()
	}
	return result
}

func writeCSVFile(path string, header []string, writeRows func(*csv.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if err := writeRows(writer); err != nil {
		return fmt.Errorf("failed to write rows: %w", err)
	}
	return nil
}

func exportJSON(jobID string, tables []TableResult, summary []model.SummaryRow, om *utils.OutputManager) ExportResult {
	result := ExportResult{Type: "json", ExportedAt: time.Now()}

	path, err := om.GetOutputFilePath(jobID, "results.json")
	if err != nil {
		result.Error = err.Error()
		return result
	}
	result.Path = path

	file, err := os.Create(path)
	if err != nil {
		result.Error = fmt.Sprintf("failed to create file: %v", err)
		return result
	}
	defer file.Close()

	rowCount := 0
	for _, t := range tables {
		rowCount += len(t.Groups)
	}

	payload := map[string]interface{}{
		"export_info": map[string]interface{}{
			"job_id":       jobID,
			"exported_at":  time.Now().UTC(),
			"table_count":  len(tables),
			"record_count": rowCount,
		},
		"tables":  tables,
		"summary": summary,
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(payload); err != nil {
		result.Error = fmt.Sprintf("failed to encode JSON: %v", err)
		return result
	}

	result.RecordCount = rowCount + len(summary)
	result.Success = true
	return result
}

func exportXLSX(jobID string, tables []TableResult, summary []model.SummaryRow, om *utils.OutputManager) ExportResult {
	result := ExportResult{Type: "xlsx", ExportedAt: time.Now()}

	path, err := om.GetOutputFilePath(jobID, "report.xlsx")
	if err != nil {
		result.Error = err.Error()
		return result
	}
	result.Path = path

	f := excelize.NewFile()
	defer f.Close()

	rowCount := 0
	for i, table := range tables {
		sheet := sheetName(table.Name)
		if i == 0 {
			f.SetSheetName("Sheet1", sheet)
		} else if _, err := f.NewSheet(sheet); err != nil {
			result.Error = fmt.Sprintf("failed to create sheet %s: %v", sheet, err)
			return result
		}

		writeSheetRow(f, sheet, 1, groupHeader(table))
		for r, g := range table.Groups {
			writeSheetRow(f, sheet, r+2, groupRow(g))
			rowCount++
		}
	}

	if len(summary) > 0 {
		sheet := "Summary"
		if len(tables) == 0 {
			f.SetSheetName("Sheet1", sheet)
		} else if _, err := f.NewSheet(sheet); err != nil {
			result.Error = fmt.Sprintf("failed to create summary sheet: %v", err)
			return result
		}
		writeSheetRow(f, sheet, 1, summaryHeader)
		for r, s := range summary {
			writeSheetRow(f, sheet, r+2, summaryRow(s))
			rowCount++
		}
	}

	if err := f.SaveAs(path); err != nil {
		result.Error = fmt.Sprintf("failed to save workbook: %v", err)
		return result
	}

	result.RecordCount = rowCount
	result.Success = true
	return result
}

// sheetName trims a table name to excelize's 31-character sheet limit.
func sheetName(name string) string {
	if name == "" {
		name = "table"
	}
	if len(name) > 31 {
		name = name[:31]
	}
	return name
}

func writeSheetRow(f *excelize.File, sheet string, row int, cells []string) {
	for col, cell := range cells {
		ref, err := excelize.CoordinatesToCellName(col+1, row)
		if err != nil {
			continue
		}
		f.SetCellValue(sheet, ref, cell)
	}
}

func exportToStore(ctx context.Context, jobID string, tables []TableResult, summary []model.SummaryRow) ExportResult {
	result := ExportResult{Type: "database", Path: "group_counts", ExportedAt: time.Now()}

	recordCount := 0
	var lastError error
	for _, table := range tables {
		select {
		case <-ctx.Done():
			result.Error = ctx.Err().Error()
			return result
		default:
		}
		if err := store.SaveGroupCounts(jobID, table.Name, table.Groups); err != nil {
			lastError = err
			continue
		}
		recordCount += len(table.Groups)
	}

	if len(summary) > 0 {
		if err := store.SaveSummaryRows(jobID, summary); err != nil {
			lastError = err
		} else {
			recordCount += len(summary)
		}
	}

	result.RecordCount = recordCount
	result.Success = lastError == nil
	if lastError != nil {
		result.Error = lastError.Error()
	}
	return result
}
