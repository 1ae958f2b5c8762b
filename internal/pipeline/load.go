package pipeline

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"outbreak-pipeline/internal/model"
	"outbreak-pipeline/pkg/utils"
)

// Required snapshot columns. Rows missing any of these are dropped.
const (
	colSetting   = "outbreak_setting"
	colType      = "type_of_outbreak"
	colDateBegan = "date_outbreak_began"
)

// Optional raw-only columns, retained for summaries over the raw dataset.
const (
	colInstitution = "institution_name"
	colAddress     = "institution_address"
	colAgent1      = "causative_agent_1"
	colAgent2      = "causative_agent_2"
	colDateOver    = "date_declared_over"
	colActive      = "active"
)

// LoadError means the source is unusable: unreadable, missing required
// columns, or zero valid rows after filtering. It aborts the whole run.
type LoadError struct {
	Source string
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s: %v", e.Source, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// LoadResult is the loader's output: the parsed rows plus the count of rows
// dropped for unparseable required fields.
type LoadResult struct {
	Records []model.RawRecord
	Dropped int
}

// OpenSource opens a snapshot source for reading: a local file path, or an
// http(s) URL fetched with retry.
func OpenSource(ctx context.Context, source model.Source) (io.ReadCloser, error) {
	if strings.HasPrefix(source.URL, "http://") || strings.HasPrefix(source.URL, "https://") {
		return fetchWithRetry(ctx, source.URL, DefaultFetchRetry)
	}
	file, err := os.Open(source.URL)
	if err != nil {
		return nil, &LoadError{Source: source.URL, Err: err}
	}
	return file, nil
}

// LoadRecords parses a CSV snapshot into typed raw records. Rows whose
// required fields fail to parse are dropped and counted rather than aborting
// the load; the load itself fails only if the header is unusable or no valid
// rows remain.
func LoadRecords(ctx context.Context, r io.Reader, source string) (LoadResult, error) {
	csvReader := csv.NewReader(r)
	csvReader.LazyQuotes = true
	csvReader.FieldsPerRecord = -1

	headers, err := csvReader.Read()
	if err != nil {
		return LoadResult{}, &LoadError{Source: source, Err: fmt.Errorf("failed to read CSV header: %w", err)}
	}

	// Clean header names: trim whitespace, lowercase, remove all quotes
	index := make(map[string]int, len(headers))
	for i, h := range headers {
		cleanHeader := strings.ToLower(strings.TrimSpace(h))
		cleanHeader = strings.ReplaceAll(cleanHeader, `"`, "")
		cleanHeader = strings.ReplaceAll(cleanHeader, " ", "_")
		index[cleanHeader] = i
	}

	for _, required := range []string{colSetting, colType, colDateBegan} {
		if _, ok := index[required]; !ok {
			return LoadResult{}, &LoadError{Source: source, Err: fmt.Errorf("missing required column %q", required)}
		}
	}

	var result LoadResult
	for {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		row, err := csvReader.Read()
		if err == io.EOF {
			break
		} else if err != nil {
			// malformed CSV line: recoverable, row dropped
			result.Dropped++
			continue
		}

		rec, ok := parseRow(row, index)
		if !ok {
			result.Dropped++
			continue
		}
		result.Records = append(result.Records, rec)
	}

	if len(result.Records) == 0 {
		return result, &LoadError{Source: source, Err: fmt.Errorf("no valid rows after filtering (%d dropped)", result.Dropped)}
	}

	fmt.Printf("📄 CSV load done: %d records read, %d rows dropped from %s\n",
		len(result.Records), result.Dropped, source)
	return result, nil
}

// parseRow converts one CSV row into a RawRecord. ok is false when a
// required field is missing or fails to parse.
func parseRow(row []string, index map[string]int) (model.RawRecord, bool) {
	cell := func(name string) string {
		i, ok := index[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	setting := cell(colSetting)
	outbreakType := cell(colType)
	if setting == "" || outbreakType == "" {
		return model.RawRecord{}, false
	}

	dateBegan, err := utils.ParseDate(cell(colDateBegan))
	if err != nil {
		return model.RawRecord{}, false
	}

	rec := model.RawRecord{
		Institution:     cell(colInstitution),
		Address:         cell(colAddress),
		Setting:         setting,
		Type:            outbreakType,
		CausativeAgent1: cell(colAgent1),
		CausativeAgent2: cell(colAgent2),
		DateBegan:       dateBegan,
		Active:          utils.ParseActive(cell(colActive)),
	}

	// date_declared_over is optional and frequently blank for active outbreaks
	if over := cell(colDateOver); over != "" {
		if t, err := utils.ParseDate(over); err == nil {
			rec.DateDeclaredOver = &t
		}
	}

	return rec, true
}

// LoadSource opens and parses a source in one step.
func LoadSource(ctx context.Context, source model.Source) (LoadResult, error) {
	rc, err := OpenSource(ctx, source)
	if err != nil {
		return LoadResult{}, err
	}
	defer rc.Close()
	return LoadRecords(ctx, rc, source.URL)
}
