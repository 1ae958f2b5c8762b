package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"outbreak-pipeline/internal/model"
)

func rawRecord(setting, outbreakType string, began time.Time) model.RawRecord {
	return model.RawRecord{Setting: setting, Type: outbreakType, DateBegan: began}
}

func TestDeriveRecord(t *testing.T) {
	began := time.Date(2022, 3, 1, 0, 0, 0, 0, time.UTC)
	rec := DeriveRecord(rawRecord("LTCH", "Respiratory", began))

	assert.Equal(t, model.SettingLTCH, rec.Setting)
	assert.Equal(t, model.TypeRespiratory, rec.Type)
	assert.Equal(t, 2022, rec.Year)
	assert.Equal(t, began, rec.DateBegan)
}

func TestDeriveRecordYearInvariant(t *testing.T) {
	dates := []time.Time{
		time.Date(2016, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2019, 12, 31, 0, 0, 0, 0, time.UTC),
		time.Date(2023, 7, 15, 0, 0, 0, 0, time.UTC),
	}

	for _, d := range dates {
		rec := DeriveRecord(rawRecord("LTCH", "Enteric", d))
		assert.Equal(t, d.Year(), rec.Year)
	}
}

func TestDeriveRecordUnknownCategories(t *testing.T) {
	rec := DeriveRecord(rawRecord("Space Station", "Zombie Virus", time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)))

	// unrecognized categories land in fallback buckets, never dropped
	assert.Equal(t, model.SettingUnknown, rec.Setting)
	assert.Equal(t, model.TypeOther, rec.Type)
}

func TestDeriveAllPreservesCount(t *testing.T) {
	raws := []model.RawRecord{
		rawRecord("LTCH", "Respiratory", time.Date(2022, 1, 5, 0, 0, 0, 0, time.UTC)),
		rawRecord("Nowhere", "Mystery", time.Date(2021, 6, 10, 0, 0, 0, 0, time.UTC)),
		rawRecord("Shelter", "Enteric", time.Date(2020, 2, 2, 0, 0, 0, 0, time.UTC)),
	}

	records := DeriveAll(raws)
	assert.Len(t, records, len(raws))
}

func TestDeriveRecordsWorkerPool(t *testing.T) {
	in := make(chan model.RawRecord)
	out := make(chan model.OutbreakRecord)

	go func() {
		defer close(in)
		for i := 0; i < 250; i++ {
			in <- rawRecord("LTCH", "Respiratory", time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC))
		}
	}()

	DeriveRecords(context.Background(), in, out, 4)

	count := 0
	for rec := range out {
		assert.Equal(t, 2022, rec.Year)
		count++
	}
	assert.Equal(t, 250, count)
}
