package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/nepsedata/nepse-data-service/internal/apperr"
	"github.com/nepsedata/nepse-data-service/internal/ingest"
	"github.com/nepsedata/nepse-data-service/internal/nepse"
	"github.com/nepsedata/nepse-data-service/internal/transform"
)

// Ingestor is the pipeline surface the handlers trigger.
type Ingestor interface {
	IngestToday(ctx context.Context) (ingest.Result, error)
	IngestSectorSummary(ctx context.Context) (ingest.Result, error)
	RefreshSymbolSectors(ctx context.Context) (ingest.Result, error)
	Backfill(ctx context.Context, start, end time.Time) ([]ingest.DateResult, error)
}

// SecurityStore validates incoming security identifiers against the
// ingested price history.
type SecurityStore interface {
	SecurityExists(securityID int64) (bool, error)
}

// ProxyClient is the upstream surface proxied straight through.
type ProxyClient interface {
	MarketStatus(ctx context.Context) (*nepse.MarketStatus, error)
	MarketSummary(ctx context.Context) (json.RawMessage, error)
	SectorOverview(ctx context.Context) (json.RawMessage, error)
	ReportsForSecurity(ctx context.Context, securityID int64) (json.RawMessage, error)
	DividendsForSecurity(ctx context.Context, securityID int64) (json.RawMessage, error)
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	ingestor Ingestor
	store    SecurityStore
	client   ProxyClient
	secret   string
}

// NewHandler creates a new Handler
func NewHandler(ingestor Ingestor, store SecurityStore, client ProxyClient, secret string) *Handler {
	return &Handler{
		ingestor: ingestor,
		store:    store,
		client:   client,
		secret:   secret,
	}
}

// scrapeRequest is the shared body of all secret-protected endpoints.
type scrapeRequest struct {
	SecretKeyScrape *string `json:"secret_key_scrape"`
	SecurityID      *int64  `json:"security_id"`
	StartDate       string  `json:"start_date"`
	EndDate         string  `json:"end_date"`
}

// authorize decodes the request body and enforces the shared secret. It
// writes the error response itself and returns false when the request must
// not proceed.
func (h *Handler) authorize(w http.ResponseWriter, r *http.Request) (*scrapeRequest, bool) {
	if h.secret == "" {
		writeError(w, apperr.Config("scrape secret is not configured"))
		return nil, false
	}

	var req scrapeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.Validation("invalid request body"))
		return nil, false
	}
	if req.SecretKeyScrape == nil {
		writeError(w, apperr.Validation("secret_key_scrape is required"))
		return nil, false
	}
	if *req.SecretKeyScrape != h.secret {
		writeError(w, apperr.Auth("invalid secret key"))
		return nil, false
	}

	return &req, true
}

// Scrape handles POST /api/v1/scrape
func (h *Handler) Scrape(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.authorize(w, r); !ok {
		return
	}

	res, err := h.ingestor.IngestToday(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, resultResponse(res))
}

// SectorSummary handles POST /api/v1/sector-summary
func (h *Handler) SectorSummary(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.authorize(w, r); !ok {
		return
	}

	res, err := h.ingestor.IngestSectorSummary(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, resultResponse(res))
}

// CompanyList handles POST /api/v1/company-list
func (h *Handler) CompanyList(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.authorize(w, r); !ok {
		return
	}

	res, err := h.ingestor.RefreshSymbolSectors(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, resultResponse(res))
}

// Backfill handles POST /api/v1/backfill
func (h *Handler) Backfill(w http.ResponseWriter, r *http.Request) {
	req, ok := h.authorize(w, r)
	if !ok {
		return
	}

	start, err := time.Parse(transform.DateLayout, req.StartDate)
	if err != nil {
		writeError(w, apperr.Validation("start_date must be YYYY-MM-DD"))
		return
	}
	end, err := time.Parse(transform.DateLayout, req.EndDate)
	if err != nil {
		writeError(w, apperr.Validation("end_date must be YYYY-MM-DD"))
		return
	}

	results, err := h.ingestor.Backfill(r.Context(), start, end)
	if err != nil {
		writeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"message": "backfill completed",
		"status":  "success",
		"results": results,
	})
}

// Financial handles POST /api/v1/financial
func (h *Handler) Financial(w http.ResponseWriter, r *http.Request) {
	h.securityProxy(w, r, h.client.ReportsForSecurity)
}

// Dividends handles POST /api/v1/divided
func (h *Handler) Dividends(w http.ResponseWriter, r *http.Request) {
	h.securityProxy(w, r, h.client.DividendsForSecurity)
}

// securityProxy validates the security identifier against the ingested
// history, then proxies the live upstream fetch.
func (h *Handler) securityProxy(w http.ResponseWriter, r *http.Request, fetch func(context.Context, int64) (json.RawMessage, error)) {
	req, ok := h.authorize(w, r)
	if !ok {
		return
	}
	if req.SecurityID == nil {
		writeError(w, apperr.Validation("security_id is required"))
		return
	}

	exists, err := h.store.SecurityExists(*req.SecurityID)
	if err != nil {
		writeError(w, apperr.Store("failed to look up security", err))
		return
	}
	if !exists {
		writeError(w, apperr.NotFound("unknown security_id"))
		return
	}

	raw, err := fetch(r.Context(), *req.SecurityID)
	if err != nil {
		writeError(w, upstreamError("failed to fetch from provider", err))
		return
	}
	respondRaw(w, http.StatusOK, raw)
}

// MarketStatus handles GET/POST /api/v1/market_status
func (h *Handler) MarketStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.client.MarketStatus(r.Context())
	if err != nil {
		writeError(w, upstreamError("failed to fetch market status", err))
		return
	}
	respondJSON(w, http.StatusOK, status)
}

// MarketSummary handles POST /api/v1/market-summary
func (h *Handler) MarketSummary(w http.ResponseWriter, r *http.Request) {
	raw, err := h.client.MarketSummary(r.Context())
	if err != nil {
		writeError(w, upstreamError("failed to fetch market summary", err))
		return
	}
	respondRaw(w, http.StatusOK, raw)
}

// SectorOverview handles POST /api/v1/sector-overview
func (h *Handler) SectorOverview(w http.ResponseWriter, r *http.Request) {
	raw, err := h.client.SectorOverview(r.Context())
	if err != nil {
		writeError(w, upstreamError("failed to fetch sector overview", err))
		return
	}
	respondRaw(w, http.StatusOK, raw)
}

// HealthCheck handles GET /health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func resultResponse(res ingest.Result) map[string]any {
	body := map[string]any{
		"message": res.Status.String(),
		"status":  "skipped",
	}
	if res.Status == ingest.StatusLoaded {
		body["message"] = "scrape completed"
		body["status"] = "success"
		body["row_count"] = res.RowCount
	}
	if res.BusinessDate != "" {
		body["business_date"] = res.BusinessDate
	}
	return body
}

// writeError is the single boundary translating pipeline errors into HTTP
// responses. Internal details are logged, never returned to the caller.
func writeError(w http.ResponseWriter, err error) {
	var ae *apperr.Error
	if errors.As(err, &ae) {
		if ae.Err != nil {
			log.Printf("%s: %v", ae.Message, ae.Err)
		}
		respondJSON(w, ae.HTTPStatus(), map[string]string{
			"message": ae.Message,
			"status":  "error",
		})
		return
	}

	log.Printf("unhandled error: %v", err)
	respondJSON(w, http.StatusInternalServerError, map[string]string{
		"message": "internal server error",
		"status":  "error",
	})
}

// upstreamError keeps the provider's status code when the failure carries
// one.
func upstreamError(msg string, err error) error {
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return err
	}
	var apiErr *nepse.APIError
	if errors.As(err, &apiErr) {
		return apperr.Upstream(msg, apiErr.StatusCode, err)
	}
	return apperr.Upstream(msg, 0, err)
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondRaw(w http.ResponseWriter, status int, raw json.RawMessage) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(raw)
}
