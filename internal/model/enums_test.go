package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseSetting(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Setting
	}{
		{"exact code", "LTCH", SettingLTCH},
		{"long form", "Long-Term Care Home", SettingLTCH},
		{"case and spacing", "  retirement  home ", SettingRetirementHome},
		{"hyphen variant", "Hospital - Acute Care", SettingHospitalAcute},
		{"space variant", "Hospital Chronic Care", SettingHospitalChronic},
		{"psychiatric", "Hospital-Psychiatric", SettingHospitalPsychiatric},
		{"shelter", "Shelter", SettingShelter},
		{"transitional", "Transitional Care", SettingTransitionalCare},
		{"unrecognized maps to Unknown", "Cruise Ship", SettingUnknown},
		{"empty maps to Unknown", "", SettingUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseSetting(tt.raw))
		})
	}
}

func TestParseOutbreakType(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want OutbreakType
	}{
		{"respiratory", "Respiratory", TypeRespiratory},
		{"respiratory with agent suffix", "Respiratory (COVID-19)", TypeRespiratory},
		{"enteric", "enteric", TypeEnteric},
		{"gastroenteric variant", "Gastroenteric", TypeEnteric},
		{"anything else is Other", "Febrile Illness", TypeOther},
		{"empty is Other", "", TypeOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseOutbreakType(tt.raw))
		})
	}
}
