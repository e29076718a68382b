package dbproc

import (
	"context"
)

// Execute calls the named routine and maps its result into result, which
// may point to a scalar, a struct, a Record or a slice of structs or
// Records. Struct fields are matched by their `db` tag or name.
func (w *Wrapper) Execute(ctx context.Context, name string, result any, args ...any) error {
	res, err := w.Call(ctx, name, args...)
	if err != nil {
		return err
	}
	return res.Scan(result)
}
