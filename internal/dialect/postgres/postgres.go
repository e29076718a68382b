// Package postgres inspects and calls PostgreSQL functions and procedures.
package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/rs/zerolog"

	"github.com/ignaciocaff/dbproc/internal/core"
)

const schemaQuery = "SELECT current_schema() AS schema"

// Argument arrays are flattened to comma separated text so that any
// database/sql driver can scan them.
const routinesQuery = `
	SELECT
		p.proname AS name,
		n.nspname AS schema,
		p.prokind::text AS kind,
		COALESCE(array_to_string(p.proargnames, ',', ''), '') AS arg_names,
		COALESCE(array_to_string(p.proargmodes, ','), '') AS arg_modes,
		COALESCE((
			SELECT string_agg(format_type(a.oid, NULL), ',' ORDER BY a.ord)
			FROM unnest(COALESCE(p.proallargtypes, p.proargtypes::oid[])) WITH ORDINALITY AS a(oid, ord)
		), '') AS arg_types,
		t.typname AS return_type,
		p.proretset AS returns_set,
		p.pronargs AS nargs,
		p.oid::bigint AS oid
	FROM pg_catalog.pg_proc p
	JOIN pg_catalog.pg_namespace n ON n.oid = p.pronamespace
	JOIN pg_catalog.pg_type t ON t.oid = p.prorettype
	WHERE n.nspname = $1
	  AND p.prokind IN ('f', 'p')
	ORDER BY p.proname, p.pronargs, p.oid`

type routineRow struct {
	Name       string `db:"name"`
	Schema     string `db:"schema"`
	Kind       string `db:"kind"`
	ArgNames   string `db:"arg_names"`
	ArgModes   string `db:"arg_modes"`
	ArgTypes   string `db:"arg_types"`
	ReturnType string `db:"return_type"`
	ReturnsSet bool   `db:"returns_set"`
	NArgs      int64  `db:"nargs"`
	OID        int64  `db:"oid"`
}

// before orders overloads: fewer input arguments first, then catalog oid.
func (r routineRow) before(o routineRow) bool {
	if r.NArgs != o.NArgs {
		return r.NArgs < o.NArgs
	}
	return r.OID < o.OID
}

// Dialect returns the PostgreSQL entry for the dialect list. Both pgx and
// lib/pq handles are accepted.
func Dialect() core.Dialect {
	return core.Dialect{
		Name:  "postgres",
		Match: core.MatchDriver(isPostgres, "pgx", "pgx/v5", "postgres"),
		New:   func(logger zerolog.Logger) core.Backend { return New(logger) },
	}
}

func isPostgres(d driver.Driver) bool {
	switch d.(type) {
	case *stdlib.Driver, *pq.Driver, pq.Driver:
		return true
	}
	return false
}

// Backend implements core.Backend for PostgreSQL.
type Backend struct {
	logger zerolog.Logger
}

func New(logger zerolog.Logger) *Backend {
	return &Backend{logger: logger.With().Str("dialect", "postgres").Logger()}
}

func quote(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

func qualified(p *core.Procedure) string {
	return quote(p.Schema) + "." + quote(p.Name)
}

func (b *Backend) DefaultSchema(ctx context.Context, db *sqlx.DB) (string, error) {
	var schema sql.NullString
	if err := db.GetContext(ctx, &schema, schemaQuery); err != nil {
		return "", fmt.Errorf("failed to read current schema: %w", err)
	}
	if !schema.Valid || schema.String == "" {
		return "", errors.New("no current schema")
	}
	return schema.String, nil
}

func (b *Backend) Enumerate(ctx context.Context, db *sqlx.DB, schema string) ([]*core.Procedure, error) {
	var rows []routineRow
	if err := db.SelectContext(ctx, &rows, routinesQuery, schema); err != nil {
		return nil, fmt.Errorf("failed to query pg_proc: %w", err)
	}

	// one routine per name; the pick must not depend on row order
	best := make(map[string]routineRow, len(rows))
	var names []string
	for _, r := range rows {
		kept, seen := best[r.Name]
		switch {
		case !seen:
			names = append(names, r.Name)
			best[r.Name] = r
		case r.before(kept):
			b.logger.Debug().Str("routine", r.Name).Str("args", kept.ArgTypes).Msg("skipping overload")
			best[r.Name] = r
		default:
			b.logger.Debug().Str("routine", r.Name).Str("args", r.ArgTypes).Msg("skipping overload")
		}
	}

	procs := make([]*core.Procedure, 0, len(names))
	for _, name := range names {
		p, err := describe(best[name])
		if err != nil {
			return nil, err
		}
		procs = append(procs, p)
	}

	b.logger.Debug().Str("schema", schema).Int("routines", len(procs)).Msg("enumerated routines")
	return procs, nil
}

func describe(r routineRow) (*core.Procedure, error) {
	p := &core.Procedure{
		Name:           r.Name,
		Schema:         r.Schema,
		ReturnType:     r.ReturnType,
		Parameters:     []core.Parameter{},
		SignatureKnown: true,
	}

	names, modes := splitList(r.ArgNames), splitList(r.ArgModes)
	for i, typ := range splitList(r.ArgTypes) {
		name := at(names, i)
		if name == "" {
			name = fmt.Sprintf("$%d", i+1)
		}
		if p.Index(name) >= 0 {
			return nil, fmt.Errorf("routine %s has duplicate parameter %q", r.Name, name)
		}
		param := core.Parameter{Name: name, Type: typ}
		switch at(modes, i) {
		case "", "i", "v":
			param.Direction = core.In
		case "o", "t":
			param.Direction = core.Out
		case "b":
			param.Direction = core.InOut
		default:
			return nil, fmt.Errorf("routine %s has unknown argument mode %q", r.Name, at(modes, i))
		}
		p.Parameters = append(p.Parameters, param)
	}

	if r.Kind == "p" {
		p.Kind = core.KindProcedure
		p.Returns = core.ReturnsNone
		if p.HasOutputs() {
			p.Returns = core.ReturnsRecord
		}
		return p, nil
	}

	p.Kind = core.KindFunction
	ret := strings.ToLower(r.ReturnType)
	switch {
	case r.ReturnsSet || ret == "set" || strings.HasPrefix(ret, "setof"):
		p.Returns = core.ReturnsSet
	case ret == "void":
		p.Returns = core.ReturnsNone
	case ret == "record" || p.HasOutputs():
		p.Returns = core.ReturnsRecord
	default:
		p.Returns = core.ReturnsScalar
	}
	return p, nil
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

func at(list []string, i int) string {
	if i < len(list) {
		return list[i]
	}
	return ""
}

func (b *Backend) Invoke(ctx context.Context, db *sqlx.DB, bind *core.Binding) (*core.Result, error) {
	conn, err := db.Connx(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = conn.Close() }()

	p := bind.Procedure
	exprs, args := arguments(bind)
	call := fmt.Sprintf("%s(%s)", qualified(p), strings.Join(exprs, ", "))

	var query string
	switch {
	case p.Kind == core.KindProcedure:
		query = "CALL " + call
	case p.Returns == core.ReturnsScalar:
		query = fmt.Sprintf("SELECT %s AS %s", call, quote(p.Name))
	case p.Returns == core.ReturnsNone:
		query = "SELECT " + call
	default:
		query = "SELECT * FROM " + call
	}
	b.logger.Debug().Str("query", query).Msg("calling routine")

	rows, err := conn.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	records, err := core.Drain(rows)
	if err != nil {
		return nil, err
	}

	switch p.Returns {
	case core.ReturnsScalar:
		var value any
		if len(records) > 0 {
			value = records[0][p.Name]
		}
		return &core.Result{Kind: core.ResultScalar, Value: core.Coerce(p.ReturnType, value)}, nil
	case core.ReturnsRecord:
		out := core.Record{}
		if len(records) > 0 {
			out = records[0]
		}
		for _, s := range bind.Fetched() {
			if v, ok := out[s.Param.Name]; ok {
				out[s.Param.Name] = core.Coerce(s.Param.Type, v)
			}
		}
		return &core.Result{Kind: core.ResultRecord, Record: out}, nil
	case core.ReturnsSet:
		return &core.Result{Kind: core.ResultRows, Rows: records}, nil
	}
	return &core.Result{Kind: core.ResultNone}, nil
}

// arguments renders the call's argument list. Functions never receive
// OUT parameters; procedures receive NULL in their place.
func arguments(bind *core.Binding) ([]string, []any) {
	var exprs []string
	var args []any
	for _, s := range bind.Slots {
		if s.Param.Direction == core.Out {
			if bind.Procedure.Kind == core.KindProcedure {
				exprs = append(exprs, "NULL")
			}
			continue
		}
		args = append(args, s.Value)
		exprs = append(exprs, fmt.Sprintf("$%d", len(args)))
	}
	return exprs, args
}
