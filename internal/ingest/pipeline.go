// Package ingest runs the scrape-and-store pipeline: calendar guard,
// upstream fetch, transformation, and transactional load, with explicit
// outcomes instead of exception-style control flow.
package ingest

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/nepsedata/nepse-data-service/internal/apperr"
	"github.com/nepsedata/nepse-data-service/internal/calendar"
	"github.com/nepsedata/nepse-data-service/internal/nepse"
	"github.com/nepsedata/nepse-data-service/internal/transform"
)

// Fetcher is the upstream capability the pipeline depends on.
type Fetcher interface {
	MarketStatus(ctx context.Context) (*nepse.MarketStatus, error)
	PriceVolumeHistory(ctx context.Context, date time.Time) ([]map[string]any, error)
	SectorSummary(ctx context.Context) ([]map[string]any, error)
	CompanyList(ctx context.Context) ([]map[string]any, error)
}

// Loader persists normalized batches.
type Loader interface {
	Load(batch *transform.Batch) error
}

// Locker serializes ingestion runs. Acquire returns false when another run
// holds the lock.
type Locker interface {
	Acquire(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}

// EventPublisher announces completed ingestion runs.
type EventPublisher interface {
	PublishIngested(ctx context.Context, dataset, businessDate string, rowCount int) error
}

// Status is the tagged outcome of one ingestion run.
type Status int

const (
	StatusLoaded Status = iota
	StatusMarketClosed
	StatusNoData
	StatusLocked
)

func (s Status) String() string {
	switch s {
	case StatusLoaded:
		return "loaded"
	case StatusMarketClosed:
		return "market closed"
	case StatusNoData:
		return "no data"
	case StatusLocked:
		return "ingestion already in progress"
	default:
		return "unknown"
	}
}

// Result describes a completed (or short-circuited) ingestion run.
type Result struct {
	Status       Status
	Dataset      string
	BusinessDate string
	RowCount     int
}

// Pipeline wires the guard, fetcher, transformer and loader together.
// locker and events may be nil.
type Pipeline struct {
	fetcher Fetcher
	loader  Loader
	locker  Locker
	events  EventPublisher
	now     func() time.Time // injectable clock for testing
	pace    time.Duration
}

// NewPipeline creates an ingestion pipeline.
func NewPipeline(fetcher Fetcher, loader Loader, locker Locker, events EventPublisher) *Pipeline {
	return &Pipeline{
		fetcher: fetcher,
		loader:  loader,
		locker:  locker,
		events:  events,
		now:     time.Now,
		pace:    backfillPace,
	}
}

// IngestPriceVolume fetches, transforms and stores the price/volume history
// for one business date.
func (p *Pipeline) IngestPriceVolume(ctx context.Context, date time.Time) (Result, error) {
	res := Result{Dataset: transform.PriceVolume.Name, BusinessDate: date.Format(transform.DateLayout)}

	if calendar.IsClosed(date) {
		res.Status = StatusMarketClosed
		return res, nil
	}

	release, ok, err := p.lock(ctx, "price_volume:"+res.BusinessDate)
	if err != nil {
		return res, err
	}
	if !ok {
		res.Status = StatusLocked
		return res, nil
	}
	defer release()

	records, err := p.fetcher.PriceVolumeHistory(ctx, date)
	if err != nil {
		return res, upstreamError("failed to fetch price/volume history", err)
	}

	return p.loadRecords(ctx, &res, transform.PriceVolume, records)
}

// IngestToday ingests the current day's price/volume history. On top of the
// weekday guard it consults the live market status and skips when the
// exchange does not report OPEN.
func (p *Pipeline) IngestToday(ctx context.Context) (Result, error) {
	today := p.now()
	res := Result{Dataset: transform.PriceVolume.Name, BusinessDate: today.Format(transform.DateLayout)}

	if calendar.IsClosed(today) {
		res.Status = StatusMarketClosed
		return res, nil
	}

	status, err := p.fetcher.MarketStatus(ctx)
	if err != nil {
		return res, upstreamError("failed to fetch market status", err)
	}
	if !status.Open() {
		res.Status = StatusMarketClosed
		return res, nil
	}

	return p.IngestPriceVolume(ctx, today)
}

// IngestSectorSummary fetches, transforms and stores today's sector-wise
// turnover summary.
func (p *Pipeline) IngestSectorSummary(ctx context.Context) (Result, error) {
	today := p.now()
	res := Result{Dataset: transform.SectorSummary.Name, BusinessDate: today.Format(transform.DateLayout)}

	if calendar.IsClosed(today) {
		res.Status = StatusMarketClosed
		return res, nil
	}

	release, ok, err := p.lock(ctx, "sector_summary:"+res.BusinessDate)
	if err != nil {
		return res, err
	}
	if !ok {
		res.Status = StatusLocked
		return res, nil
	}
	defer release()

	records, err := p.fetcher.SectorSummary(ctx)
	if err != nil {
		return res, upstreamError("failed to fetch sector summary", err)
	}

	return p.loadRecords(ctx, &res, transform.SectorSummary, records)
}

// RefreshSymbolSectors replaces the symbol/sector mapping with the
// provider's complete current snapshot. This is not date-driven, so the
// calendar guard does not apply.
func (p *Pipeline) RefreshSymbolSectors(ctx context.Context) (Result, error) {
	res := Result{Dataset: transform.SymbolSectors.Name}

	release, ok, err := p.lock(ctx, "symbol_sectors")
	if err != nil {
		return res, err
	}
	if !ok {
		res.Status = StatusLocked
		return res, nil
	}
	defer release()

	records, err := p.fetcher.CompanyList(ctx)
	if err != nil {
		return res, upstreamError("failed to fetch company list", err)
	}

	return p.loadRecords(ctx, &res, transform.SymbolSectors, records)
}

// loadRecords runs the transform-and-load tail shared by every dataset.
func (p *Pipeline) loadRecords(ctx context.Context, res *Result, ds *transform.Dataset, records []map[string]any) (Result, error) {
	batch, err := transform.Transform(ds, records, p.now())
	if err != nil {
		return *res, apperr.Store("failed to transform "+ds.Name+" batch", err)
	}
	if batch == nil {
		res.Status = StatusNoData
		return *res, nil
	}

	if err := p.loader.Load(batch); err != nil {
		return *res, apperr.Store("failed to load "+ds.Name+" batch", err)
	}

	res.Status = StatusLoaded
	res.RowCount = len(batch.Rows)
	log.Printf("ingested %d %s rows (business date %s)", res.RowCount, ds.Name, res.BusinessDate)

	if p.events != nil {
		if err := p.events.PublishIngested(ctx, ds.Name, res.BusinessDate, res.RowCount); err != nil {
			// Event publishing is best effort; the data is already stored.
			log.Printf("failed to publish ingestion event for %s: %v", ds.Name, err)
		}
	}

	return *res, nil
}

// lock acquires the named ingestion lock when a locker is configured. The
// returned func releases it.
func (p *Pipeline) lock(ctx context.Context, key string) (func(), bool, error) {
	if p.locker == nil {
		return func() {}, true, nil
	}

	ok, err := p.locker.Acquire(ctx, key)
	if err != nil {
		return nil, false, apperr.Store("failed to acquire ingestion lock", err)
	}
	if !ok {
		return nil, false, nil
	}

	release := func() {
		if err := p.locker.Release(context.WithoutCancel(ctx), key); err != nil {
			log.Printf("failed to release ingestion lock %s: %v", key, err)
		}
	}
	return release, true, nil
}

// upstreamError translates a fetch failure, keeping the provider's HTTP
// status when one exists.
func upstreamError(msg string, err error) error {
	var apiErr *nepse.APIError
	if errors.As(err, &apiErr) {
		return apperr.Upstream(msg, apiErr.StatusCode, err)
	}
	return apperr.Upstream(msg, 0, err)
}
