package ingest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackfillSkipsClosedDays(t *testing.T) {
	fetcher := &fakeFetcher{
		history: func(date time.Time) ([]map[string]any, error) {
			return priceVolumeRecords(date.Format("2006-01-02")), nil
		},
	}
	loader := &fakeLoader{}
	p := NewPipeline(fetcher, loader, nil, nil)
	p.pace = time.Millisecond

	// Sunday 2025-05-18 through Saturday 2025-05-24: Friday and Saturday
	// are closed, leaving five trading days.
	start := time.Date(2025, 5, 18, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 5, 24, 0, 0, 0, 0, time.UTC)

	results, err := p.Backfill(context.Background(), start, end)
	require.NoError(t, err)
	require.Len(t, results, 5)

	assert.Equal(t, "2025-05-18", results[0].Date)
	assert.Equal(t, "2025-05-22", results[4].Date)
	for _, r := range results {
		assert.Equal(t, "loaded", r.Status)
		assert.Equal(t, 1, r.RowCount)
	}
	assert.Equal(t, 5, fetcher.historyCalls)
}

func TestBackfillIsolatesPerDateFailures(t *testing.T) {
	failDate := "2025-05-20"
	fetcher := &fakeFetcher{
		history: func(date time.Time) ([]map[string]any, error) {
			if date.Format("2006-01-02") == failDate {
				return nil, errors.New("upstream timeout")
			}
			return priceVolumeRecords(date.Format("2006-01-02")), nil
		},
	}
	loader := &fakeLoader{}
	p := NewPipeline(fetcher, loader, nil, nil)
	p.pace = time.Millisecond

	// Sunday through Thursday, all trading days; day 3 of 5 fails.
	start := time.Date(2025, 5, 18, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 5, 22, 0, 0, 0, 0, time.UTC)

	results, err := p.Backfill(context.Background(), start, end)
	require.NoError(t, err, "a single date's failure must not fail the run")
	require.Len(t, results, 5)

	for _, r := range results {
		if r.Date == failDate {
			assert.Equal(t, "error", r.Status)
			assert.Contains(t, r.Error, "upstream timeout")
		} else {
			assert.Equal(t, "loaded", r.Status)
			assert.Empty(t, r.Error)
		}
	}

	// Four days actually stored.
	assert.Len(t, loader.batches, 4)
}

func TestBackfillRejectsInvertedRange(t *testing.T) {
	p := NewPipeline(&fakeFetcher{}, &fakeLoader{}, nil, nil)

	start := time.Date(2025, 5, 22, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 5, 18, 0, 0, 0, 0, time.UTC)

	_, err := p.Backfill(context.Background(), start, end)
	require.Error(t, err)
}

func TestBackfillStopsOnCancelledContext(t *testing.T) {
	fetcher := &fakeFetcher{
		history: func(date time.Time) ([]map[string]any, error) {
			return priceVolumeRecords(date.Format("2006-01-02")), nil
		},
	}
	p := NewPipeline(fetcher, &fakeLoader{}, nil, nil)
	p.pace = 50 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Date(2025, 5, 18, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 5, 22, 0, 0, 0, 0, time.UTC)

	_, err := p.Backfill(ctx, start, end)
	require.Error(t, err)
}
