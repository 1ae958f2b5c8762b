package pipeline

import (
	"fmt"
	"math"
	"sort"
	"time"

	"outbreak-pipeline/internal/model"
)

// Variable declares one dataset variable to summarize and its kind.
type Variable struct {
	Name string             `json:"name"`
	Kind model.VariableKind `json:"kind"`
}

// DefaultVariables covers the derived dataset plus the raw-only columns.
func DefaultVariables() []Variable {
	return []Variable{
		{Name: "year", Kind: model.KindNumeric},
		{Name: "outbreak_setting", Kind: model.KindCategorical},
		{Name: "type_of_outbreak", Kind: model.KindCategorical},
		{Name: "date_outbreak_began", Kind: model.KindTemporal},
		{Name: "date_declared_over", Kind: model.KindTemporal},
		{Name: "institution_name", Kind: model.KindCategorical},
		{Name: "causative_agent_1", Kind: model.KindCategorical},
		{Name: "active", Kind: model.KindCategorical},
	}
}

// UnsupportedVariableKindError means a variable's kind could not be
// determined. It is fatal for that variable only; the remaining variables
// are still summarized.
type UnsupportedVariableKindError struct {
	Variable string
	Kind     model.VariableKind
}

func (e *UnsupportedVariableKindError) Error() string {
	return fmt.Sprintf("unsupported kind %q for variable %q", e.Kind, e.Variable)
}

// Summarize computes one SummaryRow per variable, dispatched on the
// variable's declared kind. Missing values are excluded from every
// computation, never imputed. Variables whose kind cannot be determined
// contribute an error instead of a row.
func Summarize(records []model.OutbreakRecord, vars []Variable) ([]model.SummaryRow, []error) {
	rows := make([]model.SummaryRow, 0, len(vars))
	var errs []error

	for _, v := range vars {
		switch v.Kind {
		case model.KindNumeric:
			stats := summarizeNumeric(records, v.Name)
			rows = append(rows, model.SummaryRow{Variable: v.Name, Kind: v.Kind, Numeric: &stats})
		case model.KindCategorical:
			stats := summarizeCategorical(records, v.Name)
			rows = append(rows, model.SummaryRow{Variable: v.Name, Kind: v.Kind, Categorical: &stats})
		case model.KindTemporal:
			stats := summarizeTemporal(records, v.Name)
			rows = append(rows, model.SummaryRow{Variable: v.Name, Kind: v.Kind, Temporal: &stats})
		default:
			errs = append(errs, &UnsupportedVariableKindError{Variable: v.Name, Kind: v.Kind})
		}
	}

	return rows, errs
}

// numericValue extracts a numeric variable from a record. ok is false when
// the value is missing.
func numericValue(rec model.OutbreakRecord, name string) (float64, bool) {
	switch name {
	case "year":
		return float64(rec.Year), rec.Year != 0
	default:
		return 0, false
	}
}

// categoricalValue extracts a categorical variable. Empty strings count as
// missing.
func categoricalValue(rec model.OutbreakRecord, name string) (string, bool) {
	var v string
	switch name {
	case "outbreak_setting":
		v = string(rec.Setting)
	case "type_of_outbreak":
		v = string(rec.Type)
	case "institution_name":
		v = rec.Institution
	case "institution_address":
		v = rec.Address
	case "causative_agent_1":
		v = rec.CausativeAgent1
	case "causative_agent_2":
		v = rec.CausativeAgent2
	case "active":
		if rec.Active {
			v = "Y"
		} else {
			v = "N"
		}
	}
	return v, v != ""
}

// temporalValue extracts a date variable. Zero and nil dates are missing.
func temporalValue(rec model.OutbreakRecord, name string) (time.Time, bool) {
	switch name {
	case "date_outbreak_began":
		return rec.DateBegan, !rec.DateBegan.IsZero()
	case "date_declared_over":
		if rec.DateDeclaredOver == nil {
			return time.Time{}, false
		}
		return *rec.DateDeclaredOver, true
	default:
		return time.Time{}, false
	}
}

func summarizeNumeric(records []model.OutbreakRecord, name string) model.NumericStats {
	var values []float64
	for _, rec := range records {
		if v, ok := numericValue(rec, name); ok {
			values = append(values, v)
		}
	}

	stats := model.NumericStats{
		Count:  len(values),
		Mean:   math.NaN(),
		Median: math.NaN(),
		SD:     math.NaN(),
		Min:    math.NaN(),
		Max:    math.NaN(),
	}
	if len(values) == 0 {
		return stats
	}

	sort.Float64s(values)
	stats.Min = values[0]
	stats.Max = values[len(values)-1]
	stats.Median = median(values)

	var sum float64
	for _, v := range values {
		sum += v
	}
	stats.Mean = sum / float64(len(values))

	// sample standard deviation; undefined for a single value
	if len(values) >= 2 {
		var ss float64
		for _, v := range values {
			d := v - stats.Mean
			ss += d * d
		}
		stats.SD = math.Sqrt(ss / float64(len(values)-1))
	}

	return stats
}

// median of a sorted slice.
func median(sorted []float64) float64 {
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

func summarizeCategorical(records []model.OutbreakRecord, name string) model.CategoricalStats {
	freq := make(map[string]int)
	count := 0
	for _, rec := range records {
		if v, ok := categoricalValue(rec, name); ok {
			freq[v]++
			count++
		}
	}

	stats := model.CategoricalStats{Count: count, Unique: len(freq)}

	// mode tie-break: smallest value in sort order wins, so repeat runs
	// report the same mode
	for value, n := range freq {
		if n > stats.ModeFreq || (n == stats.ModeFreq && value < stats.Mode) {
			stats.Mode = value
			stats.ModeFreq = n
		}
	}

	return stats
}

func summarizeTemporal(records []model.OutbreakRecord, name string) model.TemporalStats {
	var stats model.TemporalStats
	for _, rec := range records {
		v, ok := temporalValue(rec, name)
		if !ok {
			continue
		}
		if stats.Count == 0 || v.Before(stats.Min) {
			stats.Min = v
		}
		if stats.Count == 0 || v.After(stats.Max) {
			stats.Max = v
		}
		stats.Count++
	}
	return stats
}
