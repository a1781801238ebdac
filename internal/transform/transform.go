// Package transform converts semi-structured upstream datasets into
// storage-ready batches: declared-type coercion, tolerant date parsing,
// identifier stripping, column renaming, and deterministic ordering.
package transform

import (
	"fmt"
	"sort"
	"time"
)

// Row is one storage-ready record keyed by storage column name. Values are
// nil, string, int64, or decimal.Decimal.
type Row map[string]any

// Batch is an ordered, normalized dataset ready for loading.
type Batch struct {
	Dataset *Dataset
	Columns []string
	Rows    []Row
}

// Transform converts one upstream dataset into a storage-ready batch.
// now is the ingestion-run time, used for created_at columns.
//
// An empty input yields (nil, nil): "no data for this date" is an outcome,
// not an error. A missing declared field fails the whole batch; no partial
// data is ever produced.
func Transform(ds *Dataset, records []map[string]any, now time.Time) (*Batch, error) {
	if len(records) == 0 {
		return nil, nil
	}

	type sortableRow struct {
		row  Row
		date time.Time
		ok   bool
	}

	rows := make([]sortableRow, 0, len(records))
	for i, rec := range records {
		row := make(Row, len(ds.Fields)+1)
		var sr sortableRow

		for _, f := range ds.Fields {
			v, present := rec[f.Upstream]
			if !present {
				return nil, fmt.Errorf("dataset %s: record %d is missing expected field %q", ds.Name, i, f.Upstream)
			}

			col := SnakeCase(f.Upstream)
			switch f.Kind {
			case Int:
				row[col] = coerceInt(v)
			case Float:
				row[col] = coerceFloat(v)
			case String:
				row[col] = coerceString(v)
			case Date:
				t, ok := coerceDate(v)
				if ok {
					row[col] = t.Format(DateLayout)
				} else {
					row[col] = nil
				}
				if f.Upstream == ds.DateField {
					sr.date, sr.ok = t, ok
				}
			case DateTime:
				row[col] = coerceDateTime(v)
			default:
				return nil, fmt.Errorf("dataset %s: field %q has unrecognized kind %d", ds.Name, f.Upstream, f.Kind)
			}
		}

		if ds.AddCreatedAt {
			row["created_at"] = now.Format(DateLayout)
		}

		sr.row = row
		rows = append(rows, sr)
	}

	// Ascending by business date; rows with an unparseable date sort
	// first so the most recent date is always the last row.
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].ok != rows[j].ok {
			return !rows[i].ok
		}
		return rows[i].date.Before(rows[j].date)
	})

	out := make([]Row, len(rows))
	for i, sr := range rows {
		out[i] = sr.row
	}

	return &Batch{Dataset: ds, Columns: ds.Columns(), Rows: out}, nil
}
