package models

import "time"

// IngestionEvent is published to Kafka after a successful scrape-and-store
// run.
type IngestionEvent struct {
	EventType    string    `json:"event_type"`
	Dataset      string    `json:"dataset"`
	BusinessDate string    `json:"business_date,omitempty"`
	RowCount     int       `json:"row_count"`
	Timestamp    time.Time `json:"timestamp"`
}
