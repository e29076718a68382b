// Package dbproc exposes the stored functions and procedures of a database
// as callable Go values.
//
//	w, err := dbproc.Wrap(ctx, db)
//	res, err := w.Call(ctx, "upsert", 1, sql.Named("name", "x"))
//
// The wrapper discovers routines once, when it is built. If the schema
// changes, build a new one.
package dbproc

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"

	"github.com/ignaciocaff/dbproc/internal/core"
)

// Names starting with reservedPrefix are never looked up as routines.
const reservedPrefix = "_"

// Wrapper is the read-only registry of routines found in one schema.
// It is not safe for concurrent use beyond what the underlying
// connection allows.
type Wrapper struct {
	db       *sqlx.DB
	dialect  string
	schema   string
	prefix   string
	logger   zerolog.Logger
	routines map[string]*Routine
}

// Wrap selects a dialect for db and enumerates the routines of the
// configured schema. The caller keeps ownership of db.
func Wrap(ctx context.Context, db *sqlx.DB, opts ...Option) (*Wrapper, error) {
	cfg := newConfig(opts)

	d, err := core.Select(db, cfg.dialects)
	if err != nil {
		return nil, err
	}
	logger := cfg.logger.With().Str("component", "dbproc").Logger()
	backend := d.New(logger)

	schema := cfg.schema
	if schema == "" {
		if schema, err = backend.DefaultSchema(ctx, db); err != nil {
			return nil, err
		}
	}

	procs, err := backend.Enumerate(ctx, db, schema)
	if err != nil {
		return nil, err
	}

	w := &Wrapper{
		db:       db,
		dialect:  d.Name,
		schema:   schema,
		prefix:   cfg.prefix,
		logger:   logger,
		routines: make(map[string]*Routine, len(procs)),
	}
	for _, p := range procs {
		if kept, dup := w.routines[p.Name]; dup {
			logger.Warn().
				Str("routine", p.Name).
				Stringer("kept", kept.desc.Kind).
				Stringer("skipped", p.Kind).
				Msg("duplicate routine name, keeping the first")
			continue
		}
		w.routines[p.Name] = &Routine{desc: p, backend: backend, db: db}
	}

	logger.Debug().
		Str("dialect", d.Name).
		Str("schema", schema).
		Int("routines", len(w.routines)).
		Msg("wrapped connection")
	return w, nil
}

// WrapDB is Wrap for a plain *sql.DB opened with driverName.
func WrapDB(ctx context.Context, db *sql.DB, driverName string, opts ...Option) (*Wrapper, error) {
	return Wrap(ctx, sqlx.NewDb(db, driverName), opts...)
}

// Dialect returns the name of the selected dialect.
func (w *Wrapper) Dialect() string { return w.dialect }

// Schema returns the inspected schema.
func (w *Wrapper) Schema() string { return w.schema }

// Get returns the routine called prefix+name.
func (w *Wrapper) Get(name string) (*Routine, error) {
	if strings.HasPrefix(name, reservedPrefix) {
		return nil, fmt.Errorf("%w: %s", ErrReservedName, name)
	}
	r, ok := w.routines[w.prefix+name]
	if !ok {
		return nil, fmt.Errorf("%w called %s", ErrProcedureNotFound, name)
	}
	return r, nil
}

// Has reports whether Get would find name.
func (w *Wrapper) Has(name string) bool {
	_, err := w.Get(name)
	return err == nil
}

// Names returns the names Get accepts, sorted.
func (w *Wrapper) Names() []string {
	names := make([]string, 0, len(w.routines))
	for full := range w.routines {
		name, ok := strings.CutPrefix(full, w.prefix)
		if !ok || strings.HasPrefix(name, reservedPrefix) {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Call looks up name and calls it with args. Plain values are bound
// positionally, sql.NamedArg values by parameter name.
func (w *Wrapper) Call(ctx context.Context, name string, args ...any) (*Result, error) {
	r, err := w.Get(name)
	if err != nil {
		return nil, err
	}
	return r.Call(ctx, args...)
}
