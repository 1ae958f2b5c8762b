package model

import "strings"

// Setting is the category of institution where an outbreak occurred.
type Setting string

const (
	SettingLTCH                Setting = "LTCH"
	SettingRetirementHome      Setting = "Retirement Home"
	SettingHospitalChronic     Setting = "Hospital-Chronic Care"
	SettingHospitalAcute       Setting = "Hospital-Acute Care"
	SettingHospitalPsychiatric Setting = "Hospital-Psychiatric"
	SettingShelter             Setting = "Shelter"
	SettingTransitionalCare    Setting = "Transitional Care"
	SettingUnknown             Setting = "Unknown"
)

// OutbreakType is the transmission-mode classification of an outbreak.
type OutbreakType string

const (
	TypeRespiratory OutbreakType = "Respiratory"
	TypeEnteric     OutbreakType = "Enteric"
	TypeOther       OutbreakType = "Other"
)

// settingAliases maps normalized raw spellings onto the fixed vocabulary.
// The raw snapshot is hand-entered, so spellings drift between years.
var settingAliases = map[string]Setting{
	"ltch":                   SettingLTCH,
	"long-term care home":    SettingLTCH,
	"long term care home":    SettingLTCH,
	"retirement home":        SettingRetirementHome,
	"hospital-chronic care":  SettingHospitalChronic,
	"hospital chronic care":  SettingHospitalChronic,
	"hospital-acute care":    SettingHospitalAcute,
	"hospital acute care":    SettingHospitalAcute,
	"hospital-psychiatric":   SettingHospitalPsychiatric,
	"hospital psychiatric":   SettingHospitalPsychiatric,
	"psychiatric hospital":   SettingHospitalPsychiatric,
	"shelter":                SettingShelter,
	"transitional care":      SettingTransitionalCare,
	"transitional care home": SettingTransitionalCare,
}

// ParseSetting collapses a raw setting string onto the closed vocabulary.
// Unrecognized values map to SettingUnknown rather than being dropped, so
// derivation preserves the total record count.
func ParseSetting(raw string) Setting {
	key := normalizeCategory(raw)
	if s, ok := settingAliases[key]; ok {
		return s
	}
	return SettingUnknown
}

// ParseOutbreakType collapses a raw outbreak-type string onto the closed
// vocabulary. Anything that is not respiratory or enteric lands in TypeOther.
func ParseOutbreakType(raw string) OutbreakType {
	switch key := normalizeCategory(raw); {
	case strings.HasPrefix(key, "respiratory"):
		return TypeRespiratory
	case strings.HasPrefix(key, "enteric"), strings.HasPrefix(key, "gastroenteric"):
		return TypeEnteric
	default:
		return TypeOther
	}
}

func normalizeCategory(raw string) string {
	key := strings.ToLower(strings.TrimSpace(raw))
	key = strings.Join(strings.Fields(key), " ")
	// "Hospital - Acute Care" and "Hospital-Acute Care" are the same setting
	key = strings.ReplaceAll(key, " - ", "-")
	return key
}

// Settings lists the full vocabulary in report order.
func Settings() []Setting {
	return []Setting{
		SettingLTCH,
		SettingRetirementHome,
		SettingHospitalChronic,
		SettingHospitalAcute,
		SettingHospitalPsychiatric,
		SettingShelter,
		SettingTransitionalCare,
		SettingUnknown,
	}
}

// OutbreakTypes lists the full vocabulary in report order.
func OutbreakTypes() []OutbreakType {
	return []OutbreakType{TypeRespiratory, TypeEnteric, TypeOther}
}
