package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

// SetupRoutes configures all API routes
func SetupRoutes(h *Handler) http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/health", h.HealthCheck).Methods("GET")

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/scrape", h.Scrape).Methods("POST")
	api.HandleFunc("/sector-summary", h.SectorSummary).Methods("POST")
	api.HandleFunc("/company-list", h.CompanyList).Methods("POST")
	api.HandleFunc("/backfill", h.Backfill).Methods("POST")
	api.HandleFunc("/financial", h.Financial).Methods("POST")
	api.HandleFunc("/divided", h.Dividends).Methods("POST")
	api.HandleFunc("/market_status", h.MarketStatus).Methods("GET", "POST")
	api.HandleFunc("/market-summary", h.MarketSummary).Methods("POST")
	api.HandleFunc("/sector-overview", h.SectorOverview).Methods("POST")

	return cors.Default().Handler(r)
}
