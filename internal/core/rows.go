package core

import (
	"github.com/jmoiron/sqlx"
)

// Drain reads every row of every result set and closes rows.
func Drain(rows *sqlx.Rows) ([]Record, error) {
	defer func() { _ = rows.Close() }()

	var out []Record
	for {
		for rows.Next() {
			rec := Record{}
			if err := rows.MapScan(rec); err != nil {
				return nil, err
			}
			out = append(out, Normalize(rec))
		}
		if !rows.NextResultSet() {
			break
		}
	}
	return out, rows.Err()
}
