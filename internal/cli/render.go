package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/shopspring/decimal"

	"github.com/ignaciocaff/dbproc"
)

func newTable(w io.Writer, header ...string) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	row := make(table.Row, len(header))
	for i, h := range header {
		row[i] = h
	}
	t.AppendHeader(row)
	return t
}

func renderJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// columns returns the union of the record keys, sorted.
func columns(records []dbproc.Record) []string {
	seen := map[string]bool{}
	var cols []string
	for _, rec := range records {
		for col := range rec {
			if !seen[col] {
				seen[col] = true
				cols = append(cols, col)
			}
		}
	}
	sort.Strings(cols)
	return cols
}

func renderRecords(w io.Writer, records []dbproc.Record) {
	if len(records) == 0 {
		_, _ = fmt.Fprintln(w, "(0 rows)")
		return
	}
	cols := columns(records)
	t := newTable(w, cols...)
	for _, rec := range records {
		row := make(table.Row, len(cols))
		for i, col := range cols {
			row[i] = formatValue(rec[col])
		}
		t.AppendRow(row)
	}
	t.Render()
	_, _ = fmt.Fprintf(w, "(%d rows)\n", len(records))
}

type resultView struct {
	Kind   string          `json:"kind"`
	Value  any             `json:"value,omitempty"`
	Record dbproc.Record   `json:"record,omitempty"`
	Rows   []dbproc.Record `json:"rows,omitempty"`
}

func renderResult(w io.Writer, res *dbproc.Result, format string) error {
	if format == "json" {
		return renderJSON(w, resultView{
			Kind:   res.Kind.String(),
			Value:  res.Value,
			Record: res.Record,
			Rows:   res.Rows,
		})
	}

	switch res.Kind {
	case dbproc.ResultScalar:
		_, _ = fmt.Fprintln(w, formatValue(res.Value))
	case dbproc.ResultRecord:
		renderRecords(w, []dbproc.Record{res.Record})
		if len(res.Rows) > 0 {
			renderRecords(w, res.Rows)
		}
	case dbproc.ResultRows:
		renderRecords(w, res.Rows)
	default:
		_, _ = fmt.Fprintln(w, "OK")
	}
	return nil
}

func formatValue(v any) string {
	switch v := v.(type) {
	case nil:
		return "NULL"
	case []byte:
		return string(v)
	case time.Time:
		return v.Format(time.RFC3339)
	case decimal.Decimal:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}
