package model

// Source points at one outbreak snapshot (local CSV path or http(s) URL).
type Source struct {
	Type string `json:"type" yaml:"type"` // csv (default)
	URL  string `json:"url" yaml:"url"`
}

// Filter restricts an aggregation to records whose selector value matches.
type Filter struct {
	Field  string `json:"field" yaml:"field"`
	Equals string `json:"equals" yaml:"equals"`
}

// AggregationSpec describes one grouped count table. GroupBy is an ordered
// list of field selectors (year, setting, outbreak_type); the last entry is
// the stacking dimension when Normalize is set.
type AggregationSpec struct {
	Name      string   `json:"name" yaml:"name"`
	GroupBy   []string `json:"groupBy" yaml:"group_by"`
	Filter    *Filter  `json:"filter,omitempty" yaml:"filter,omitempty"`
	Normalize bool     `json:"normalize" yaml:"normalize"`
}

// Export defines where result tables are written.
type Export struct {
	Dir     string   `json:"dir" yaml:"dir"`         // per-job output directory root
	Formats []string `json:"formats" yaml:"formats"` // csv, json, xlsx
	DB      bool     `json:"db" yaml:"db"`           // persist tables to the job store
}

// Workers defines worker counts per pipeline stage.
type Workers struct {
	Derive    int `json:"derive" yaml:"derive"`
	Aggregate int `json:"aggregate" yaml:"aggregate"`
}

// ConcurrencyConfig defines extra concurrency and job options.
type ConcurrencyConfig struct {
	Workers           Workers `json:"workers" yaml:"workers"`
	ChannelBufferSize int     `json:"channelBufferSize" yaml:"channel_buffer_size"`
	JobTimeout        string  `json:"jobTimeout" yaml:"job_timeout"` // e.g. "5m"
}

// AnalysisJobSpec is the full configuration for one analysis run.
type AnalysisJobSpec struct {
	Source       Source            `json:"source" yaml:"source"`
	Aggregations []AggregationSpec `json:"aggregations" yaml:"aggregations"`
	Summary      bool              `json:"summary" yaml:"summary"`
	Export       *Export           `json:"export,omitempty" yaml:"export,omitempty"`
	Concurrency  ConcurrencyConfig `json:"concurrency" yaml:"concurrency"`
}
