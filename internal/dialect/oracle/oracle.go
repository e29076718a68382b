// Package oracle inspects and calls standalone Oracle procedures and
// functions through anonymous PL/SQL blocks.
package oracle

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
	ora "github.com/sijms/go-ora/v2"

	"github.com/ignaciocaff/dbproc/internal/core"
)

const (
	schemaQuery  = "SELECT SYS_CONTEXT('USERENV', 'CURRENT_SCHEMA') AS current_schema FROM DUAL"
	objectsQuery = "SELECT OBJECT_NAME, OBJECT_TYPE FROM ALL_OBJECTS " +
		"WHERE OWNER = :1 AND OBJECT_TYPE IN ('PROCEDURE', 'FUNCTION') ORDER BY OBJECT_NAME"
	argumentsQuery = "SELECT OBJECT_NAME, ARGUMENT_NAME, POSITION, IN_OUT, DATA_TYPE FROM ALL_ARGUMENTS " +
		"WHERE OWNER = :1 AND PACKAGE_NAME IS NULL AND DATA_LEVEL = 0 ORDER BY OBJECT_NAME, POSITION"
)

const refCursor = "REF CURSOR"

type objectRow struct {
	Name string `db:"OBJECT_NAME"`
	Type string `db:"OBJECT_TYPE"`
}

type argumentRow struct {
	Object   string         `db:"OBJECT_NAME"`
	Name     sql.NullString `db:"ARGUMENT_NAME"`
	Position int64          `db:"POSITION"`
	InOut    sql.NullString `db:"IN_OUT"`
	DataType sql.NullString `db:"DATA_TYPE"`
}

// Dialect returns the Oracle entry for the dialect list.
func Dialect() core.Dialect {
	return core.Dialect{
		Name:  "oracle",
		Match: core.MatchDriver(isOracle, "oracle"),
		New:   func(logger zerolog.Logger) core.Backend { return New(logger) },
	}
}

func isOracle(d driver.Driver) bool {
	_, ok := d.(*ora.OracleDriver)
	return ok
}

// Backend implements core.Backend for Oracle.
type Backend struct {
	logger zerolog.Logger
}

func New(logger zerolog.Logger) *Backend {
	return &Backend{logger: logger.With().Str("dialect", "oracle").Logger()}
}

func quote(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
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
	var objects []objectRow
	if err := db.SelectContext(ctx, &objects, objectsQuery, schema); err != nil {
		return nil, fmt.Errorf("failed to query all_objects: %w", err)
	}
	var args []argumentRow
	if err := db.SelectContext(ctx, &args, argumentsQuery, schema); err != nil {
		return nil, fmt.Errorf("failed to query all_arguments: %w", err)
	}

	byName := make(map[string]*core.Procedure, len(objects))
	procs := make([]*core.Procedure, 0, len(objects))
	for _, o := range objects {
		p := &core.Procedure{
			Name:           o.Name,
			Schema:         schema,
			Kind:           core.KindProcedure,
			Returns:        core.ReturnsNone,
			Parameters:     []core.Parameter{},
			SignatureKnown: true,
		}
		if o.Type == "FUNCTION" {
			p.Kind = core.KindFunction
			p.Returns = core.ReturnsScalar
		}
		byName[o.Name] = p
		procs = append(procs, p)
	}

	for _, a := range args {
		p, ok := byName[a.Object]
		if !ok {
			continue
		}
		if a.Position == 0 {
			p.ReturnType = a.DataType.String
			if p.ReturnType == refCursor {
				p.Returns = core.ReturnsSet
			}
			continue
		}
		// a routine without arguments still gets one row with no name
		if !a.Name.Valid {
			continue
		}
		dir, err := core.ParseDirection(a.InOut.String)
		if err != nil {
			return nil, fmt.Errorf("routine %s: %w", a.Object, err)
		}
		p.Parameters = append(p.Parameters, core.Parameter{Name: a.Name.String, Direction: dir, Type: a.DataType.String})
	}

	for _, p := range procs {
		if p.Kind == core.KindProcedure && p.HasOutputs() {
			p.Returns = core.ReturnsRecord
		}
	}

	b.logger.Debug().Str("schema", schema).Int("routines", len(procs)).Msg("enumerated routines")
	return procs, nil
}

// buildCmdText renders the anonymous block for a call with n arguments.
func buildCmdText(p *core.Procedure, n int) string {
	var sb strings.Builder
	sb.WriteString("BEGIN ")
	pos := 1
	if p.Kind == core.KindFunction {
		sb.WriteString(":1 := ")
		pos++
	}
	sb.WriteString(quote(p.Schema) + "." + quote(p.Name) + "(")
	for i := 0; i < n; i++ {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, ":%d", pos+i)
	}
	sb.WriteString("); END;")
	return sb.String()
}

type output struct {
	param core.Parameter
	dest  any
}

// buildExecutionArguments binds IN values directly and OUT or IN OUT
// values through sql.Out so the driver writes them back.
func buildExecutionArguments(bind *core.Binding, ret any) ([]any, []output) {
	var execArgs []any
	var outs []output
	if ret != nil {
		execArgs = append(execArgs, sql.Out{Dest: ret})
	}
	for _, s := range bind.Slots {
		switch {
		case !s.Fetch:
			execArgs = append(execArgs, s.Value)
		case s.Param.Direction == core.InOut:
			dest := outDest(s.Param.Type, s.Value)
			execArgs = append(execArgs, sql.Out{Dest: dest, In: true})
			outs = append(outs, output{param: s.Param, dest: dest})
		default:
			dest := outDest(s.Param.Type, nil)
			execArgs = append(execArgs, sql.Out{Dest: dest})
			outs = append(outs, output{param: s.Param, dest: dest})
		}
	}
	return execArgs, outs
}

// outDest allocates a destination for an output parameter. Scalars use
// the sql.Null types so that NULL survives in both directions; a nil
// initial value is bound as NULL, never as a zero value.
func outDest(declared string, initial any) any {
	t := strings.ToUpper(declared)
	if t == refCursor {
		return &ora.RefCursor{}
	}

	switch v := initial.(type) {
	case nil:
	case string:
		return &sql.NullString{String: v, Valid: true}
	case int:
		return &sql.NullInt64{Int64: int64(v), Valid: true}
	case int32:
		return &sql.NullInt64{Int64: int64(v), Valid: true}
	case int64:
		return &sql.NullInt64{Int64: v, Valid: true}
	case float32:
		return &sql.NullFloat64{Float64: float64(v), Valid: true}
	case float64:
		return &sql.NullFloat64{Float64: v, Valid: true}
	case bool:
		return &sql.NullBool{Bool: v, Valid: true}
	case time.Time:
		return &sql.NullTime{Time: v, Valid: true}
	default:
		dest := reflect.New(reflect.TypeOf(initial))
		dest.Elem().Set(reflect.ValueOf(initial))
		return dest.Interface()
	}

	switch {
	case t == "NUMBER" || t == "FLOAT" || t == "INTEGER" || t == "PLS_INTEGER" ||
		t == "BINARY_INTEGER" || t == "BINARY_FLOAT" || t == "BINARY_DOUBLE":
		return &sql.NullFloat64{}
	case t == "DATE" || strings.HasPrefix(t, "TIMESTAMP"):
		return &sql.NullTime{}
	}
	return &sql.NullString{}
}

func (b *Backend) Invoke(ctx context.Context, db *sqlx.DB, bind *core.Binding) (*core.Result, error) {
	conn, err := db.Connx(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = conn.Close() }()

	p := bind.Procedure
	var ret any
	if p.Kind == core.KindFunction {
		ret = outDest(p.ReturnType, nil)
	}
	execArgs, outs := buildExecutionArguments(bind, ret)
	cmdText := buildCmdText(p, len(bind.Slots))
	b.logger.Debug().Str("query", cmdText).Msg("calling routine")

	if _, err := conn.ExecContext(ctx, cmdText, execArgs...); err != nil {
		return nil, err
	}

	if ret != nil {
		value, err := readOut(ret)
		if err != nil {
			return nil, err
		}
		if rows, ok := value.([]core.Record); ok {
			return &core.Result{Kind: core.ResultRows, Rows: rows}, nil
		}
		return &core.Result{Kind: core.ResultScalar, Value: value}, nil
	}
	if len(outs) == 0 {
		return &core.Result{Kind: core.ResultNone}, nil
	}

	record := core.Record{}
	for _, o := range outs {
		value, err := readOut(o.dest)
		if err != nil {
			return nil, err
		}
		record[o.param.Name] = value
	}

	// a single REF CURSOR output is the usual way to return a row set
	if len(outs) == 1 {
		if rows, ok := record[outs[0].param.Name].([]core.Record); ok {
			return &core.Result{Kind: core.ResultRows, Rows: rows}, nil
		}
	}
	return &core.Result{Kind: core.ResultRecord, Record: record}, nil
}

func readOut(dest any) (any, error) {
	if cursor, ok := dest.(*ora.RefCursor); ok {
		return fetchCursor(cursor)
	}
	value := reflect.ValueOf(dest).Elem().Interface()
	if valuer, ok := value.(driver.Valuer); ok {
		// sql.Null* report nil when the driver left the parameter NULL
		return valuer.Value()
	}
	return value, nil
}
