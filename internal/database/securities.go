package database

import (
	"fmt"

	"github.com/nepsedata/nepse-data-service/internal/models"
)

// KnownSecurities returns the distinct (security_id, symbol) pairs already
// present in the ingested price history, optionally filtered to one
// identifier. An empty result is a valid negative answer; only
// infrastructure failures return an error.
func (db *DB) KnownSecurities(securityID *int64) ([]models.Security, error) {
	query := `
		SELECT DISTINCT security_id, symbol
		FROM stock_prices
		WHERE security_id IS NOT NULL
	`
	var args []any
	if securityID != nil {
		query += " AND security_id = $1"
		args = append(args, *securityID)
	}
	query += " ORDER BY security_id ASC"

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query known securities: %w", err)
	}
	defer rows.Close()

	var securities []models.Security
	for rows.Next() {
		var s models.Security
		if err := rows.Scan(&s.ID, &s.Symbol); err != nil {
			return nil, fmt.Errorf("failed to scan security: %w", err)
		}
		securities = append(securities, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate securities: %w", err)
	}

	return securities, nil
}

// SecurityExists reports whether the given identifier appears in the
// ingested price history.
func (db *DB) SecurityExists(securityID int64) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM stock_prices WHERE security_id = $1)`
	var exists bool
	if err := db.conn.QueryRow(query, securityID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check security existence: %w", err)
	}
	return exists, nil
}
