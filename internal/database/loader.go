package database

import (
	"fmt"
	"strings"

	"github.com/nepsedata/nepse-data-service/internal/transform"
)

// Load persists a normalized batch into its dataset's target table. The
// whole batch goes through a single transaction: either every row is
// visible afterwards or none is.
//
// Append datasets insert rows; datasets with conflict keys upgrade to
// insert-or-update so re-ingesting a date is idempotent. Replace datasets
// swap the entire table contents for the batch.
func (db *DB) Load(batch *transform.Batch) error {
	if batch == nil || len(batch.Rows) == 0 {
		return nil
	}

	ds := batch.Dataset

	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if ds.Strategy == transform.Replace {
		if _, err := tx.Exec("DELETE FROM " + ds.Table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", ds.Table, err)
		}
	}

	stmt, err := tx.Prepare(insertQuery(ds, batch.Columns))
	if err != nil {
		return fmt.Errorf("failed to prepare insert for %s: %w", ds.Table, err)
	}
	defer stmt.Close()

	args := make([]any, len(batch.Columns))
	for i, row := range batch.Rows {
		for j, col := range batch.Columns {
			args[j] = row[col]
		}
		if _, err := stmt.Exec(args...); err != nil {
			return fmt.Errorf("failed to insert row %d into %s: %w", i, ds.Table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// insertQuery builds the parameterized insert statement for a dataset.
// Column and table names come from the static dataset descriptors, never
// from upstream input.
func insertQuery(ds *transform.Dataset, columns []string) string {
	placeholders := make([]string, len(columns))
	for i := range columns {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}

	query := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		ds.Table,
		strings.Join(columns, ", "),
		strings.Join(placeholders, ", "),
	)

	if len(ds.ConflictKeys) > 0 {
		keys := make(map[string]bool, len(ds.ConflictKeys))
		for _, k := range ds.ConflictKeys {
			keys[k] = true
		}
		var updates []string
		for _, col := range columns {
			if !keys[col] {
				updates = append(updates, fmt.Sprintf("%s = EXCLUDED.%s", col, col))
			}
		}
		query += fmt.Sprintf(
			" ON CONFLICT (%s) DO UPDATE SET %s",
			strings.Join(ds.ConflictKeys, ", "),
			strings.Join(updates, ", "),
		)
	}

	return query
}

// CountRows returns the number of rows currently in a table.
func (db *DB) CountRows(table string) (int, error) {
	var count int
	if err := db.conn.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count rows in %s: %w", table, err)
	}
	return count, nil
}
