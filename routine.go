package dbproc

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/ignaciocaff/dbproc/internal/core"
)

// Routine marshals calls to one stored function or procedure.
type Routine struct {
	desc    *core.Procedure
	backend core.Backend
	db      *sqlx.DB
}

// Name returns the routine name as stored in the catalog.
func (r *Routine) Name() string { return r.desc.Name }

// Descriptor returns a copy of the routine's signature.
func (r *Routine) Descriptor() Procedure {
	d := *r.desc
	d.Parameters = append([]Parameter{}, r.desc.Parameters...)
	return d
}

// Call binds args and executes the routine. sql.Named values are bound by
// parameter name, everything else by position.
func (r *Routine) Call(ctx context.Context, args ...any) (*Result, error) {
	positional, named, err := core.SplitArgs(r.desc.Name, args)
	if err != nil {
		return nil, err
	}
	return r.Invoke(ctx, positional, named)
}

// Invoke executes the routine with explicit positional and named
// arguments. Argument errors are reported before the database is touched;
// driver errors are returned as they are.
func (r *Routine) Invoke(ctx context.Context, positional []any, named map[string]any) (*Result, error) {
	bind, err := core.Bind(r.desc, positional, named)
	if err != nil {
		return nil, err
	}
	return r.backend.Invoke(ctx, r.db, bind)
}
