package mysql

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"regexp"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignaciocaff/dbproc/internal/core"
)

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = raw.Close() })
	return sqlx.NewDb(raw, "mysql"), mock
}

func newBackend() *Backend {
	return newLoggingBackend(zerolog.Nop())
}

func newLoggingBackend(logger zerolog.Logger) *Backend {
	b := New(logger)
	b.varName = func(param string) string { return "@v_" + param }
	return b
}

func routineRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"ROUTINE_SCHEMA", "ROUTINE_NAME", "ROUTINE_TYPE", "DATA_TYPE"}).
		AddRow("app", "add", "FUNCTION", "int").
		AddRow("app", "upsert", "PROCEDURE", nil)
}

func TestDialect_Match(t *testing.T) {
	connector, err := mysql.NewConnector(mysql.NewConfig())
	require.NoError(t, err)
	conn := sql.OpenDB(connector)
	defer func() { _ = conn.Close() }()

	raw, _, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = raw.Close() }()

	d := Dialect()
	assert.True(t, d.Match(sqlx.NewDb(conn, "anything")))
	assert.True(t, d.Match(sqlx.NewDb(raw, "mysql")))
	assert.False(t, d.Match(sqlx.NewDb(raw, "pgx")))
}

func TestBackend_DefaultSchema(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta(schemaQuery)).
		WillReturnRows(sqlmock.NewRows([]string{"schema"}).AddRow("app"))
	mock.ExpectQuery(regexp.QuoteMeta(schemaQuery)).
		WillReturnRows(sqlmock.NewRows([]string{"schema"}).AddRow(nil))

	schema, err := newBackend().DefaultSchema(context.Background(), db)
	require.NoError(t, err)
	assert.Equal(t, "app", schema)

	_, err = newBackend().DefaultSchema(context.Background(), db)
	assert.ErrorContains(t, err, "no database selected")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBackend_Enumerate(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta(routinesQuery)).WithArgs("app").WillReturnRows(routineRows())
	mock.ExpectQuery(regexp.QuoteMeta(procQuery)).WithArgs("app").WillReturnRows(
		sqlmock.NewRows([]string{"name", "type", "param_list"}).
			AddRow("add", "FUNCTION", "a INT, b INT").
			AddRow("upsert", "PROCEDURE", "IN id INT, IN name VARCHAR(10), OUT prev_name VARCHAR(10)"))

	procs, err := newBackend().Enumerate(context.Background(), db, "app")
	require.NoError(t, err)
	require.Len(t, procs, 2)

	add := procs[0]
	assert.Equal(t, "add", add.Name)
	assert.Equal(t, core.KindFunction, add.Kind)
	assert.Equal(t, core.ReturnsScalar, add.Returns)
	assert.Equal(t, "int", add.ReturnType)
	assert.True(t, add.SignatureKnown)
	assert.Len(t, add.Parameters, 2)

	upsert := procs[1]
	assert.Equal(t, core.KindProcedure, upsert.Kind)
	assert.Equal(t, core.ReturnsRecord, upsert.Returns)
	assert.True(t, upsert.SignatureKnown)
	assert.Equal(t, core.Parameter{Name: "prev_name", Direction: core.Out, Type: "VARCHAR(10)"}, upsert.Parameters[2])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBackend_Enumerate_PrivilegeDenied(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta(routinesQuery)).WithArgs("app").WillReturnRows(routineRows())
	mock.ExpectQuery(regexp.QuoteMeta(procQuery)).WithArgs("app").
		WillReturnError(&mysql.MySQLError{Number: 1142, Message: "SELECT command denied to user"})

	var buf bytes.Buffer
	procs, err := newLoggingBackend(zerolog.New(&buf)).Enumerate(context.Background(), db, "app")
	require.NoError(t, err)
	require.Len(t, procs, 2)

	warned := map[string]bool{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		if entry["level"] == "warn" {
			warned[entry["routine"].(string)] = true
			assert.Contains(t, entry["error"], "insufficient privilege")
		}
	}
	assert.Equal(t, map[string]bool{"add": true, "upsert": true}, warned)
	assert.Equal(t, core.ReturnsSet, procs[1].Returns, "outputs unknown without a signature")

	for _, p := range procs {
		assert.False(t, p.SignatureKnown, p.Name)
		assert.NotNil(t, p.Parameters, p.Name)
		assert.Empty(t, p.Parameters, p.Name)
		assert.True(t, errors.Is(p.SignatureErr, core.ErrInsufficientPrivilege), p.Name)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBackend_Enumerate_MissingFromProcTable(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta(routinesQuery)).WithArgs("app").WillReturnRows(routineRows())
	mock.ExpectQuery(regexp.QuoteMeta(procQuery)).WithArgs("app").WillReturnRows(
		sqlmock.NewRows([]string{"name", "type", "param_list"}).AddRow("add", "FUNCTION", "a INT, b INT"))

	procs, err := newBackend().Enumerate(context.Background(), db, "app")
	require.NoError(t, err)
	assert.True(t, procs[0].SignatureKnown)
	assert.False(t, procs[1].SignatureKnown)
	assert.ErrorIs(t, procs[1].SignatureErr, core.ErrInsufficientPrivilege)
}

func TestBackend_Enumerate_FatalErrors(t *testing.T) {
	t.Run("routines query fails", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectQuery(regexp.QuoteMeta(routinesQuery)).WillReturnError(assert.AnError)

		_, err := newBackend().Enumerate(context.Background(), db, "app")
		assert.ErrorIs(t, err, assert.AnError)
	})

	t.Run("proc query fails for other reasons", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectQuery(regexp.QuoteMeta(routinesQuery)).WillReturnRows(routineRows())
		mock.ExpectQuery(regexp.QuoteMeta(procQuery)).WillReturnError(assert.AnError)

		_, err := newBackend().Enumerate(context.Background(), db, "app")
		assert.ErrorIs(t, err, assert.AnError)
	})
}

func TestBackend_Invoke_Function(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT `app`.`add`(?, ?) AS `result`")).
		WithArgs(int64(2), int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"result"}).AddRow([]byte("5")))

	proc := &core.Procedure{
		Name: "add", Schema: "app", Kind: core.KindFunction, Returns: core.ReturnsScalar, ReturnType: "int",
		Parameters:     []core.Parameter{{Name: "a", Type: "INT"}, {Name: "b", Type: "INT"}},
		SignatureKnown: true,
	}
	bind, err := core.Bind(proc, []any{2, 3}, nil)
	require.NoError(t, err)

	res, err := newBackend().Invoke(context.Background(), db, bind)
	require.NoError(t, err)
	assert.Equal(t, core.ResultScalar, res.Kind)
	assert.Equal(t, int64(5), res.Value)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBackend_Invoke_ProcedureWithOut(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("CALL `app`.`upsert`(?, ?, @v_prev_name)")).
		WithArgs(int64(1), "x").
		WillReturnRows(sqlmock.NewRows([]string{"status"}))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT @v_prev_name")).
		WillReturnRows(sqlmock.NewRows([]string{"@v_prev_name"}).AddRow([]byte("old")))

	proc := &core.Procedure{
		Name: "upsert", Schema: "app", Kind: core.KindProcedure, Returns: core.ReturnsRecord,
		Parameters: []core.Parameter{
			{Name: "id", Type: "INT"},
			{Name: "name", Type: "VARCHAR(10)"},
			{Name: "prev_name", Direction: core.Out, Type: "VARCHAR(10)"},
		},
		SignatureKnown: true,
	}
	bind, err := core.Bind(proc, []any{1, "x"}, nil)
	require.NoError(t, err)

	res, err := newBackend().Invoke(context.Background(), db, bind)
	require.NoError(t, err)
	assert.Equal(t, core.ResultRecord, res.Kind)
	assert.Equal(t, core.Record{"prev_name": "old"}, res.Record)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBackend_Invoke_ProcedureWithInOut(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta("SET @v_total = ?")).
		WithArgs(int64(10)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("CALL `app`.`bump`(?, @v_total)")).
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"step"}).AddRow(int64(1)).AddRow(int64(2)))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT @v_total")).
		WillReturnRows(sqlmock.NewRows([]string{"@v_total"}).AddRow([]byte("15")))

	proc := &core.Procedure{
		Name: "bump", Schema: "app", Kind: core.KindProcedure, Returns: core.ReturnsRecord,
		Parameters: []core.Parameter{
			{Name: "step", Type: "INT"},
			{Name: "total", Direction: core.InOut, Type: "INT"},
		},
		SignatureKnown: true,
	}
	bind, err := core.Bind(proc, []any{5}, map[string]any{"total": 10})
	require.NoError(t, err)

	res, err := newBackend().Invoke(context.Background(), db, bind)
	require.NoError(t, err)
	assert.Equal(t, core.Record{"total": int64(15)}, res.Record)
	assert.Equal(t, []core.Record{{"step": int64(1)}, {"step": int64(2)}}, res.Rows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBackend_Invoke_PositionalOnly(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("CALL `app`.`report`(?, ?)")).
		WithArgs("2024", int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "label"}).AddRow(int64(1), []byte("a")))

	proc := &core.Procedure{Name: "report", Schema: "app", Kind: core.KindProcedure, Parameters: []core.Parameter{}}
	bind, err := core.Bind(proc, []any{"2024", 7}, nil)
	require.NoError(t, err)

	res, err := newBackend().Invoke(context.Background(), db, bind)
	require.NoError(t, err)
	assert.Equal(t, core.ResultRows, res.Kind)
	assert.Equal(t, []core.Record{{"id": int64(1), "label": "a"}}, res.Rows)
}

func TestBackend_Invoke_DriverErrorPassesThrough(t *testing.T) {
	db, mock := newMock(t)
	driverErr := &mysql.MySQLError{Number: 1305, Message: "PROCEDURE app.gone does not exist"}
	mock.ExpectQuery(regexp.QuoteMeta("CALL `app`.`gone`()")).WillReturnError(driverErr)

	proc := &core.Procedure{Name: "gone", Schema: "app", Kind: core.KindProcedure, Parameters: []core.Parameter{}, SignatureKnown: true}
	bind, err := core.Bind(proc, nil, nil)
	require.NoError(t, err)

	_, err = newBackend().Invoke(context.Background(), db, bind)
	var myErr *mysql.MySQLError
	require.True(t, errors.As(err, &myErr))
	assert.Equal(t, uint16(1305), myErr.Number)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionVar(t *testing.T) {
	v := sessionVar("prev name")
	assert.Regexp(t, `^@dbproc_prev_name_[0-9a-f]{8}$`, v)
	assert.NotEqual(t, v, sessionVar("prev name"))
}
