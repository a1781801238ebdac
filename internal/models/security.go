package models

// Security is one known (security identifier, symbol) pair derived from the
// ingested price history. Used to validate incoming report/dividend requests.
type Security struct {
	ID     int64  `json:"security_id"`
	Symbol string `json:"symbol"`
}
