package pipeline

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"outbreak-pipeline/internal/model"
)

const sampleCSV = `institution_name,outbreak_setting,type_of_outbreak,date_outbreak_began,date_declared_over,active
Maple Manor,LTCH,Respiratory,2022-01-05,2022-01-20,N
City General,Hospital-Acute Care,Respiratory,2022-03-01,,Y
Sunrise Lodge,LTCH,Enteric,2021-06-10,2021-06-25,N
`

func TestLoadRecords(t *testing.T) {
	result, err := LoadRecords(context.Background(), strings.NewReader(sampleCSV), "test.csv")
	require.NoError(t, err)

	assert.Len(t, result.Records, 3)
	assert.Equal(t, 0, result.Dropped)

	first := result.Records[0]
	assert.Equal(t, "Maple Manor", first.Institution)
	assert.Equal(t, "LTCH", first.Setting)
	assert.Equal(t, "Respiratory", first.Type)
	assert.Equal(t, time.Date(2022, 1, 5, 0, 0, 0, 0, time.UTC), first.DateBegan)
	require.NotNil(t, first.DateDeclaredOver)
	assert.Equal(t, time.Date(2022, 1, 20, 0, 0, 0, 0, time.UTC), *first.DateDeclaredOver)
	assert.False(t, first.Active)

	second := result.Records[1]
	assert.Nil(t, second.DateDeclaredOver)
	assert.True(t, second.Active)
}

func TestLoadRecordsDropsUnparseableRows(t *testing.T) {
	csv := `outbreak_setting,type_of_outbreak,date_outbreak_began
LTCH,Respiratory,2022-01-05
LTCH,Respiratory,not-a-date
,Respiratory,2022-02-01
LTCH,Enteric,2021-06-10
`
	result, err := LoadRecords(context.Background(), strings.NewReader(csv), "test.csv")
	require.NoError(t, err)

	// Scenario C: bad rows never reach aggregation, they only move the
	// dropped counter
	assert.Len(t, result.Records, 2)
	assert.Equal(t, 2, result.Dropped)
}

func TestLoadRecordsHeaderVariants(t *testing.T) {
	// quoted, mixed-case headers with spaces still map onto snapshot columns
	csv := `"Outbreak Setting","Type Of Outbreak","Date Outbreak Began"
LTCH,Respiratory,2022-01-05
`
	result, err := LoadRecords(context.Background(), strings.NewReader(csv), "test.csv")
	require.NoError(t, err)
	assert.Len(t, result.Records, 1)
}

func TestLoadRecordsFailures(t *testing.T) {
	tests := []struct {
		name string
		csv  string
	}{
		{"empty source", ""},
		{"missing required column", "institution_name,type_of_outbreak,date_outbreak_began\nX,Respiratory,2022-01-05\n"},
		{"zero valid rows", "outbreak_setting,type_of_outbreak,date_outbreak_began\nLTCH,Respiratory,banana\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadRecords(context.Background(), strings.NewReader(tt.csv), "test.csv")
			require.Error(t, err)

			var loadErr *LoadError
			assert.ErrorAs(t, err, &loadErr)
		})
	}
}

func TestOpenSourceMissingFile(t *testing.T) {
	_, err := OpenSource(context.Background(), model.Source{Type: "csv", URL: "/nonexistent/outbreaks.csv"})
	require.Error(t, err)

	var loadErr *LoadError
	assert.ErrorAs(t, err, &loadErr)
}
