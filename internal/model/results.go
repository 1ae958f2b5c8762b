package model

import (
	"encoding/json"
	"math"
	"strings"
	"time"
)

// GroupCount is one aggregation group: the ordered key tuple that identifies
// it, the record count, and the within-partition percentage when
// normalization was requested. Percentage is nil when the partition
// denominator is zero.
type GroupCount struct {
	Fields     []string `json:"fields"`
	Values     []string `json:"values"`
	Count      int      `json:"count"`
	Percentage *float64 `json:"percentage,omitempty"`
}

// Key renders the key tuple for storage and logging.
func (g GroupCount) Key() string {
	return strings.Join(g.Values, "|")
}

// PartitionKey is the key tuple minus the stacking dimension, i.e. the
// denominator base for percentage computation.
func (g GroupCount) PartitionKey() string {
	if len(g.Values) == 0 {
		return ""
	}
	return strings.Join(g.Values[:len(g.Values)-1], "|")
}

// VariableKind tags a summary variable as numeric, categorical or temporal.
type VariableKind string

const (
	KindNumeric     VariableKind = "numeric"
	KindCategorical VariableKind = "categorical"
	KindTemporal    VariableKind = "temporal"
)

// NumericStats holds descriptive statistics for a numeric variable.
// Mean/median/sd are NaN when undefined (no values, or n < 2 for sd).
type NumericStats struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	SD     float64 `json:"sd"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// numericStatsJSON is the wire form of NumericStats: undefined (NaN)
// statistics render as null, since encoding/json rejects NaN outright.
type numericStatsJSON struct {
	Count  int      `json:"count"`
	Mean   *float64 `json:"mean"`
	Median *float64 `json:"median"`
	SD     *float64 `json:"sd"`
	Min    *float64 `json:"min"`
	Max    *float64 `json:"max"`
}

func (s NumericStats) MarshalJSON() ([]byte, error) {
	return json.Marshal(numericStatsJSON{
		Count:  s.Count,
		Mean:   nullableFloat(s.Mean),
		Median: nullableFloat(s.Median),
		SD:     nullableFloat(s.SD),
		Min:    nullableFloat(s.Min),
		Max:    nullableFloat(s.Max),
	})
}

func (s *NumericStats) UnmarshalJSON(data []byte) error {
	var aux numericStatsJSON
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	s.Count = aux.Count
	s.Mean = floatOrNaN(aux.Mean)
	s.Median = floatOrNaN(aux.Median)
	s.SD = floatOrNaN(aux.SD)
	s.Min = floatOrNaN(aux.Min)
	s.Max = floatOrNaN(aux.Max)
	return nil
}

func nullableFloat(v float64) *float64 {
	if math.IsNaN(v) {
		return nil
	}
	return &v
}

func floatOrNaN(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v
}

// CategoricalStats holds descriptive statistics for a categorical variable.
// Ties for the mode break toward the lexicographically smallest value.
type CategoricalStats struct {
	Count    int    `json:"count"`
	Unique   int    `json:"unique"`
	Mode     string `json:"mode"`
	ModeFreq int    `json:"mode_freq"`
}

// TemporalStats holds descriptive statistics for a date variable.
type TemporalStats struct {
	Count int       `json:"count"`
	Min   time.Time `json:"min"`
	Max   time.Time `json:"max"`
}

// SummaryRow is one variable's descriptive statistics. Exactly one of the
// kind payloads is set, matching Kind.
type SummaryRow struct {
	Variable    string            `json:"variable"`
	Kind        VariableKind      `json:"kind"`
	Numeric     *NumericStats     `json:"numeric,omitempty"`
	Categorical *CategoricalStats `json:"categorical,omitempty"`
	Temporal    *TemporalStats    `json:"temporal,omitempty"`
}
