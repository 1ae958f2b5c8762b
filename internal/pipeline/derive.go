package pipeline

import (
	"context"
	"fmt"
	"sync"

	"outbreak-pipeline/internal/model"
)

// DeriveRecord computes the analysis record from a loaded raw row: calendar
// year from the onset date and categorical normalization onto the closed
// vocabularies. Pure function; never drops a record. Unrecognized
// categories land in the Unknown/Other buckets.
func DeriveRecord(raw model.RawRecord) model.OutbreakRecord {
	return model.OutbreakRecord{
		Institution:      raw.Institution,
		Address:          raw.Address,
		Setting:          model.ParseSetting(raw.Setting),
		Type:             model.ParseOutbreakType(raw.Type),
		CausativeAgent1:  raw.CausativeAgent1,
		CausativeAgent2:  raw.CausativeAgent2,
		DateBegan:        raw.DateBegan,
		DateDeclaredOver: raw.DateDeclaredOver,
		Active:           raw.Active,
		Year:             raw.DateBegan.Year(),
	}
}

// DeriveRecords runs derivation over a channel of raw rows with a worker
// pool and closes out once all workers finish.
func DeriveRecords(ctx context.Context, in <-chan model.RawRecord, out chan<- model.OutbreakRecord, workerCount int) {
	if workerCount <= 0 {
		workerCount = 2 // default
	}

	var wg sync.WaitGroup
	wg.Add(workerCount)

	var derivedCount int64
	var mu sync.Mutex

	for i := 0; i < workerCount; i++ {
		go func(workerID int) {
			defer wg.Done()
			workerDerivedCount := 0

			for raw := range in {
				select {
				case <-ctx.Done():
					return
				default:
				}

				select {
				case <-ctx.Done():
					return
				case out <- DeriveRecord(raw):
					workerDerivedCount++
					if workerDerivedCount%500 == 0 {
						fmt.Printf("🔄 Derive Worker %d: %d records derived\n", workerID, workerDerivedCount)
					}
				}
			}

			mu.Lock()
			derivedCount += int64(workerDerivedCount)
			mu.Unlock()
		}(i)
	}

	go func() {
		wg.Wait()
		mu.Lock()
		fmt.Printf("🔄 Derivation Summary: %d records derived\n", derivedCount)
		mu.Unlock()
		close(out)
	}()
}

// DeriveAll is the slice form used by the batch runner and tests.
func DeriveAll(raws []model.RawRecord) []model.OutbreakRecord {
	records := make([]model.OutbreakRecord, len(raws))
	for i, raw := range raws {
		records[i] = DeriveRecord(raw)
	}
	return records
}
