package ingest

import (
	"context"
	"log"
	"time"

	"golang.org/x/time/rate"

	"github.com/nepsedata/nepse-data-service/internal/apperr"
	"github.com/nepsedata/nepse-data-service/internal/calendar"
	"github.com/nepsedata/nepse-data-service/internal/transform"
)

// backfillPace is the fixed delay between upstream calls during a backfill.
const backfillPace = 2 * time.Second

// DateResult reports the ingestion outcome for one date of a backfill run.
type DateResult struct {
	Date     string `json:"date"`
	Status   string `json:"status"`
	RowCount int    `json:"row_count"`
	Error    string `json:"error,omitempty"`
}

// Backfill ingests the price/volume history for every trading day between
// start and end, inclusive. Closed-market days are skipped outright. Each
// date is ingested independently: a failure on one date is recorded in its
// result and does not stop the remaining dates.
func (p *Pipeline) Backfill(ctx context.Context, start, end time.Time) ([]DateResult, error) {
	if end.Before(start) {
		return nil, apperr.Validation("end date must not be before start date")
	}

	limiter := rate.NewLimiter(rate.Every(p.pace), 1)

	var results []DateResult
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if calendar.IsClosed(d) {
			continue
		}

		if err := limiter.Wait(ctx); err != nil {
			return results, err
		}

		res, err := p.IngestPriceVolume(ctx, d)
		dr := DateResult{
			Date:     d.Format(transform.DateLayout),
			Status:   res.Status.String(),
			RowCount: res.RowCount,
		}
		if err != nil {
			dr.Status = "error"
			dr.Error = err.Error()
			log.Printf("backfill %s failed: %v", dr.Date, err)
		}
		results = append(results, dr)
	}

	return results, nil
}
