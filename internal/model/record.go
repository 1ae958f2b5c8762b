package model

import "time"

// RawRecord is one row of the snapshot as produced by the loader: date
// fields parsed, categorical fields still raw strings.
type RawRecord struct {
	Institution      string     `json:"institution_name,omitempty"`
	Address          string     `json:"institution_address,omitempty"`
	Setting          string     `json:"outbreak_setting"`
	Type             string     `json:"type_of_outbreak"`
	CausativeAgent1  string     `json:"causative_agent_1,omitempty"`
	CausativeAgent2  string     `json:"causative_agent_2,omitempty"`
	DateBegan        time.Time  `json:"date_outbreak_began"`
	DateDeclaredOver *time.Time `json:"date_declared_over,omitempty"`
	Active           bool       `json:"active"`
}

// OutbreakRecord is one reported outbreak event after derivation: categorical
// fields collapsed onto the closed vocabularies and Year extracted from
// DateBegan. Records are never mutated after derivation.
type OutbreakRecord struct {
	Institution      string       `json:"institution_name,omitempty"`
	Address          string       `json:"institution_address,omitempty"`
	Setting          Setting      `json:"outbreak_setting"`
	Type             OutbreakType `json:"type_of_outbreak"`
	CausativeAgent1  string       `json:"causative_agent_1,omitempty"`
	CausativeAgent2  string       `json:"causative_agent_2,omitempty"`
	DateBegan        time.Time    `json:"date_outbreak_began"`
	DateDeclaredOver *time.Time   `json:"date_declared_over,omitempty"`
	Active           bool         `json:"active"`
	Year             int          `json:"year"`
}
