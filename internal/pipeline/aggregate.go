package pipeline

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"outbreak-pipeline/internal/model"
)

// Field selectors accepted in AggregationSpec.GroupBy and Filter.Field.
const (
	FieldYear    = "year"
	FieldSetting = "setting"
	FieldType    = "outbreak_type"
)

// SelectorValue resolves one grouping field on a record. Years render as
// 4-digit strings so lexicographic key order is also chronological.
func SelectorValue(rec model.OutbreakRecord, field string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(field)) {
	case FieldYear:
		return strconv.Itoa(rec.Year), nil
	case FieldSetting:
		return string(rec.Setting), nil
	case FieldType, "type":
		return string(rec.Type), nil
	default:
		return "", fmt.Errorf("unknown group-by field: %s", field)
	}
}

// FilterPredicate builds a record predicate from an aggregation filter.
// A nil filter passes everything through.
func FilterPredicate(f *model.Filter) (func(model.OutbreakRecord) bool, error) {
	if f == nil {
		return func(model.OutbreakRecord) bool { return true }, nil
	}
	field := f.Field
	want := f.Equals
	// probe the selector once so a bad filter field fails the whole
	// aggregation up front instead of silently matching nothing
	if _, err := SelectorValue(model.OutbreakRecord{}, field); err != nil {
		return nil, err
	}
	return func(rec model.OutbreakRecord) bool {
		got, err := SelectorValue(rec, field)
		return err == nil && got == want
	}, nil
}

// Aggregate groups records by the ordered tuple of GroupBy selector values
// and counts records per group. With Normalize set, each group also gets its
// percentage share within its partition, the groups agreeing on every key
// field except the last (stacking) dimension. Output is sorted
// lexicographically by key tuple for reproducible reports.
func Aggregate(records []model.OutbreakRecord, spec model.AggregationSpec) ([]model.GroupCount, error) {
	if len(spec.GroupBy) == 0 {
		return nil, fmt.Errorf("aggregation %q: at least one group-by field is required", spec.Name)
	}

	keep, err := FilterPredicate(spec.Filter)
	if err != nil {
		return nil, fmt.Errorf("aggregation %q: %w", spec.Name, err)
	}

	groups := make(map[string]*model.GroupCount)
	for _, rec := range records {
		if !keep(rec) {
			continue
		}

		values := make([]string, len(spec.GroupBy))
		for i, field := range spec.GroupBy {
			v, err := SelectorValue(rec, field)
			if err != nil {
				return nil, fmt.Errorf("aggregation %q: %w", spec.Name, err)
			}
			values[i] = v
		}

		key := strings.Join(values, "|")
		if g, ok := groups[key]; ok {
			g.Count++
		} else {
			groups[key] = &model.GroupCount{
				Fields: append([]string(nil), spec.GroupBy...),
				Values: values,
				Count:  1,
			}
		}
	}

	results := make([]model.GroupCount, 0, len(groups))
	for _, g := range groups {
		results = append(results, *g)
	}

	// Stable key-tuple sort: ties broken field by field, so output order is
	// chronological/lexicographic and identical across runs.
	sort.Slice(results, func(i, j int) bool {
		return lessTuple(results[i].Values, results[j].Values)
	})

	if spec.Normalize {
		normalizeGroups(results)
	}

	return results, nil
}

// lessTuple compares key tuples element by element.
func lessTuple(a, b []string) bool {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return len(a) < len(b)
}

// normalizeGroups fills in per-partition percentages in place. A partition
// whose total is zero has no percentage defined; such groups keep a nil
// Percentage and the rest of the aggregation proceeds.
func normalizeGroups(groups []model.GroupCount) {
	totals := make(map[string]int)
	for _, g := range groups {
		totals[g.PartitionKey()] += g.Count
	}

	for i := range groups {
		total := totals[groups[i].PartitionKey()]
		if total == 0 {
			groups[i].Percentage = nil
			continue
		}
		pct := float64(groups[i].Count) / float64(total) * 100
		groups[i].Percentage = &pct
	}
}

// TableResult pairs an aggregation spec name with its computed groups.
type TableResult struct {
	Name   string             `json:"name"`
	Groups []model.GroupCount `json:"groups"`
}

// AggregateAll computes every configured aggregation. Tables are independent
// reductions, so they run in parallel; the output preserves spec order.
func AggregateAll(records []model.OutbreakRecord, specs []model.AggregationSpec, errs chan<- error) []TableResult {
	type indexed struct {
		i     int
		table TableResult
		err   error
	}

	resultCh := make(chan indexed, len(specs))
	for i, spec := range specs {
		go func(i int, spec model.AggregationSpec) {
			groups, err := Aggregate(records, spec)
			resultCh <- indexed{i: i, table: TableResult{Name: spec.Name, Groups: groups}, err: err}
		}(i, spec)
	}

	tables := make([]TableResult, len(specs))
	failed := make([]bool, len(specs))
	for range specs {
		r := <-resultCh
		if r.err != nil {
			failed[r.i] = true
			if errs != nil {
				errs <- r.err
			}
			continue
		}
		tables[r.i] = r.table
	}

	// drop failed tables, keep the rest of the run alive
	out := tables[:0]
	for i, t := range tables {
		if !failed[i] {
			out = append(out, t)
		}
	}
	return out
}
