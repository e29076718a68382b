package core

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type invoice struct {
	ID      int64           `db:"id"`
	Name    string          `db:"NAME"`
	Total   decimal.Decimal `db:"total"`
	Paid    bool            `db:"paid"`
	Note    *string
	Ignored string `db:"-"`
}

func TestResult_ScanScalar(t *testing.T) {
	res := &Result{Kind: ResultScalar, Value: int64(5)}

	var n int
	require.NoError(t, res.Scan(&n))
	assert.Equal(t, 5, n)

	var f float64
	require.NoError(t, res.Scan(&f))
	assert.Equal(t, 5.0, f)

	var s string
	require.NoError(t, res.Scan(&s))
	assert.Equal(t, "5", s)

	assert.Error(t, res.Scan(n))
}

func TestResult_ScanStruct(t *testing.T) {
	res := &Result{Kind: ResultRows, Rows: []Record{
		{"ID": int64(1), "name": "ana   ", "total": "12.50", "paid": "S", "note": "x", "Ignored": "no"},
		{"ID": int64(2), "name": "bo", "total": decimal.NewFromInt(3), "paid": int64(0), "note": nil},
	}}

	var first invoice
	require.NoError(t, res.Scan(&first))
	assert.Equal(t, int64(1), first.ID)
	assert.Equal(t, "ana", first.Name)
	assert.True(t, decimal.RequireFromString("12.5").Equal(first.Total))
	assert.True(t, first.Paid)
	require.NotNil(t, first.Note)
	assert.Equal(t, "x", *first.Note)
	assert.Empty(t, first.Ignored)

	var all []invoice
	require.NoError(t, res.Scan(&all))
	require.Len(t, all, 2)
	assert.False(t, all[1].Paid)
	assert.Nil(t, all[1].Note)

	var ptrs []*invoice
	require.NoError(t, res.Scan(&ptrs))
	assert.Equal(t, "bo", ptrs[1].Name)
}

func TestResult_ScanRecord(t *testing.T) {
	res := &Result{Kind: ResultRecord, Record: Record{"prev_name": nil}}

	var rec Record
	require.NoError(t, res.Scan(&rec))
	assert.Equal(t, Record{"prev_name": nil}, rec)

	var prev *string
	require.NoError(t, res.Scan(&prev))
	assert.Nil(t, prev)

	var rows []Record
	require.NoError(t, res.Scan(&rows))
	assert.Len(t, rows, 1)
}

func TestResult_ScanErrors(t *testing.T) {
	var inv invoice
	assert.Error(t, (&Result{Kind: ResultNone}).Scan(&inv))

	var n int
	wide := &Result{Kind: ResultRows, Rows: []Record{{"a": 1, "b": 2}}}
	assert.Error(t, wide.Scan(&n))

	var ns []int
	assert.Error(t, wide.Scan(&ns))

	bad := &Result{Kind: ResultScalar, Value: "abc"}
	assert.Error(t, bad.Scan(&n))
}

func TestResult_ScanTime(t *testing.T) {
	ts := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	var got time.Time
	require.NoError(t, (&Result{Kind: ResultScalar, Value: ts}).Scan(&got))
	assert.True(t, ts.Equal(got))

	require.NoError(t, (&Result{Kind: ResultScalar, Value: "2024-05-01T10:00:00Z"}).Scan(&got))
	assert.True(t, ts.Equal(got))
}

func TestResultKind_String(t *testing.T) {
	assert.Equal(t, "none", ResultNone.String())
	assert.Equal(t, "scalar", ResultScalar.String())
	assert.Equal(t, "record", ResultRecord.String())
	assert.Equal(t, "rows", ResultRows.String())
}

func TestResult_ScanRowsAndRecord(t *testing.T) {
	res := &Result{
		Kind:   ResultRecord,
		Record: Record{"total": int64(2)},
		Rows:   []Record{{"id": int64(1)}, {"id": int64(2)}},
	}

	var ids []int64
	require.NoError(t, res.Scan(&ids))
	assert.Equal(t, []int64{1, 2}, ids)

	var total int64
	require.NoError(t, res.Scan(&total))
	assert.Equal(t, int64(2), total)

	var rec Record
	require.NoError(t, res.Scan(&rec))
	assert.Equal(t, Record{"total": int64(2)}, rec)
}
