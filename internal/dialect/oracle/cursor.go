package oracle

import (
	"database/sql/driver"
	"io"

	ora "github.com/sijms/go-ora/v2"

	"github.com/ignaciocaff/dbproc/internal/core"
)

// fetchCursor drains a REF CURSOR output into records and closes it.
func fetchCursor(cursor *ora.RefCursor) ([]core.Record, error) {
	defer cursor.Close()

	rows, err := cursor.Query()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols := rows.Columns()
	dests := make([]driver.Value, len(cols))
	return populateRows(rows, cols, dests)
}

func populateRows(rows driver.Rows, cols []string, dests []driver.Value) ([]core.Record, error) {
	var allRows []core.Record
	for {
		if err := rows.Next(dests); err != nil {
			if err == io.EOF {
				break
			}
			return nil, err
		}
		rec := make(core.Record, len(cols))
		for i, col := range cols {
			rec[col] = dests[i]
		}
		allRows = append(allRows, core.Normalize(rec))
	}
	return allRows, nil
}
