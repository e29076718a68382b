// Package mysql inspects and calls MySQL and MariaDB stored routines.
package mysql

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"

	"github.com/ignaciocaff/dbproc/internal/core"
)

const (
	routinesQuery = "SELECT ROUTINE_SCHEMA, ROUTINE_NAME, ROUTINE_TYPE, DATA_TYPE " +
		"FROM information_schema.routines WHERE ROUTINE_SCHEMA = ? ORDER BY ROUTINE_NAME, ROUTINE_TYPE"
	procQuery   = "SELECT name, type, param_list FROM mysql.proc WHERE db = ?"
	schemaQuery = "SELECT DATABASE() AS `schema`"
)

// MySQL server errors that mean the signature catalog cannot be read.
var privilegeErrors = map[uint16]bool{
	1044: true, // ER_DBACCESS_DENIED_ERROR
	1045: true, // ER_ACCESS_DENIED_ERROR
	1142: true, // ER_TABLEACCESS_DENIED_ERROR
	1143: true, // ER_COLUMNACCESS_DENIED_ERROR
	1146: true, // ER_NO_SUCH_TABLE, mysql.proc is gone in 8.0
}

type routineRow struct {
	Schema   string         `db:"ROUTINE_SCHEMA"`
	Name     string         `db:"ROUTINE_NAME"`
	Type     string         `db:"ROUTINE_TYPE"`
	DataType sql.NullString `db:"DATA_TYPE"`
}

type procRow struct {
	Name      string `db:"name"`
	Type      string `db:"type"`
	ParamList string `db:"param_list"`
}

// Dialect returns the MySQL entry for the dialect list.
func Dialect() core.Dialect {
	return core.Dialect{
		Name:  "mysql",
		Match: core.MatchDriver(isMySQL, "mysql"),
		New:   func(logger zerolog.Logger) core.Backend { return New(logger) },
	}
}

func isMySQL(d driver.Driver) bool {
	switch d.(type) {
	case *mysql.MySQLDriver, mysql.MySQLDriver:
		return true
	}
	return false
}

// Backend implements core.Backend for MySQL.
type Backend struct {
	logger  zerolog.Logger
	varName func(param string) string
}

func New(logger zerolog.Logger) *Backend {
	return &Backend{
		logger:  logger.With().Str("dialect", "mysql").Logger(),
		varName: sessionVar,
	}
}

// sessionVar returns a per-call user variable name for an OUT or INOUT parameter.
func sessionVar(param string) string {
	clean := strings.Map(func(r rune) rune {
		if r == '_' || r >= '0' && r <= '9' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' {
			return r
		}
		return '_'
	}, param)
	return fmt.Sprintf("@dbproc_%s_%s", clean, strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

func quote(ident string) string {
	return "`" + strings.ReplaceAll(ident, "`", "``") + "`"
}

func qualified(p *core.Procedure) string {
	return quote(p.Schema) + "." + quote(p.Name)
}

func (b *Backend) DefaultSchema(ctx context.Context, db *sqlx.DB) (string, error) {
	var schema sql.NullString
	if err := db.GetContext(ctx, &schema, schemaQuery); err != nil {
		return "", fmt.Errorf("failed to read current database: %w", err)
	}
	if !schema.Valid || schema.String == "" {
		return "", errors.New("no database selected")
	}
	return schema.String, nil
}

func (b *Backend) Enumerate(ctx context.Context, db *sqlx.DB, schema string) ([]*core.Procedure, error) {
	var routines []routineRow
	if err := db.SelectContext(ctx, &routines, routinesQuery, schema); err != nil {
		return nil, fmt.Errorf("failed to query information_schema.routines: %w", err)
	}

	signatures, sigErr := b.signatures(ctx, db, schema)
	if sigErr != nil && !errors.Is(sigErr, core.ErrInsufficientPrivilege) {
		return nil, sigErr
	}

	procs := make([]*core.Procedure, 0, len(routines))
	for _, r := range routines {
		p := &core.Procedure{
			Name:       r.Name,
			Schema:     r.Schema,
			Parameters: []core.Parameter{},
		}
		if strings.EqualFold(r.Type, "FUNCTION") {
			p.Kind = core.KindFunction
			p.Returns = core.ReturnsScalar
			p.ReturnType = r.DataType.String
		} else {
			p.Kind = core.KindProcedure
			p.Returns = core.ReturnsSet
		}

		switch list, ok := signatures[strings.ToUpper(r.Type)+" "+r.Name]; {
		case sigErr != nil:
			p.SignatureErr = sigErr
		case !ok:
			p.SignatureErr = fmt.Errorf("%w: %s not listed in mysql.proc", core.ErrInsufficientPrivilege, r.Name)
		default:
			params, err := parseParamList(list)
			if err != nil {
				p.SignatureErr = fmt.Errorf("failed to parse signature of %s: %w", r.Name, err)
				break
			}
			p.Parameters = params
			p.SignatureKnown = true
			if p.Kind == core.KindProcedure && p.HasOutputs() {
				// OUT values are returned as a record
				p.Returns = core.ReturnsRecord
			}
		}
		if p.SignatureErr != nil {
			b.logger.Warn().Err(p.SignatureErr).Str("routine", r.Name).
				Msg("routine signature unavailable, only positional arguments are supported")
		}
		procs = append(procs, p)
	}

	b.logger.Debug().Str("schema", schema).Int("routines", len(procs)).Msg("enumerated routines")
	return procs, nil
}

// signatures reads mysql.proc once for the whole schema, keyed by "TYPE name".
func (b *Backend) signatures(ctx context.Context, db *sqlx.DB, schema string) (map[string]string, error) {
	var rows []procRow
	if err := db.SelectContext(ctx, &rows, procQuery, schema); err != nil {
		var myErr *mysql.MySQLError
		if errors.As(err, &myErr) && privilegeErrors[myErr.Number] {
			return nil, fmt.Errorf("%w: %v", core.ErrInsufficientPrivilege, err)
		}
		return nil, fmt.Errorf("failed to query mysql.proc: %w", err)
	}
	out := make(map[string]string, len(rows))
	for _, r := range rows {
		out[strings.ToUpper(r.Type)+" "+r.Name] = r.ParamList
	}
	return out, nil
}

func (b *Backend) Invoke(ctx context.Context, db *sqlx.DB, bind *core.Binding) (*core.Result, error) {
	conn, err := db.Connx(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = conn.Close() }()

	if bind.Procedure.Kind == core.KindFunction {
		return b.callFunction(ctx, conn, bind)
	}
	return b.callProcedure(ctx, conn, bind)
}

func (b *Backend) callFunction(ctx context.Context, conn *sqlx.Conn, bind *core.Binding) (*core.Result, error) {
	p := bind.Procedure
	marks := make([]string, len(bind.Slots))
	args := make([]any, len(bind.Slots))
	for i, s := range bind.Slots {
		marks[i] = "?"
		args[i] = s.Value
	}

	query := fmt.Sprintf("SELECT %s(%s) AS `result`", qualified(p), strings.Join(marks, ", "))
	b.logger.Debug().Str("query", query).Msg("calling function")

	rec := map[string]any{}
	if err := conn.QueryRowxContext(ctx, query, args...).MapScan(rec); err != nil {
		return nil, err
	}
	return &core.Result{Kind: core.ResultScalar, Value: core.Coerce(p.ReturnType, rec["result"])}, nil
}

type fetchVar struct {
	name     string
	variable string
	typ      string
}

func (b *Backend) callProcedure(ctx context.Context, conn *sqlx.Conn, bind *core.Binding) (*core.Result, error) {
	p := bind.Procedure
	exprs := make([]string, 0, len(bind.Slots))
	var args []any
	var fetch []fetchVar

	for _, s := range bind.Slots {
		if !s.Fetch {
			exprs = append(exprs, "?")
			args = append(args, s.Value)
			continue
		}
		v := b.varName(s.Param.Name)
		if s.Param.Direction == core.InOut {
			if _, err := conn.ExecContext(ctx, "SET "+v+" = ?", s.Value); err != nil {
				return nil, err
			}
		}
		exprs = append(exprs, v)
		fetch = append(fetch, fetchVar{name: s.Param.Name, variable: v, typ: s.Param.Type})
	}

	query := fmt.Sprintf("CALL %s(%s)", qualified(p), strings.Join(exprs, ", "))
	b.logger.Debug().Str("query", query).Msg("calling procedure")

	rows, err := conn.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	records, err := core.Drain(rows)
	if err != nil {
		return nil, err
	}
	if len(fetch) == 0 {
		return &core.Result{Kind: core.ResultRows, Rows: records}, nil
	}

	vars := make([]string, len(fetch))
	for i, f := range fetch {
		vars[i] = f.variable
	}
	values := make([]any, len(fetch))
	dests := make([]any, len(fetch))
	for i := range values {
		dests[i] = &values[i]
	}
	if err := conn.QueryRowxContext(ctx, "SELECT "+strings.Join(vars, ", ")).Scan(dests...); err != nil {
		return nil, err
	}

	out := core.Record{}
	for i, f := range fetch {
		out[f.name] = core.Coerce(f.typ, values[i])
	}
	return &core.Result{Kind: core.ResultRecord, Record: out, Rows: records}, nil
}
