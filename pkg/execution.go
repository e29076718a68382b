// Package pkg keeps one process-wide wrapper for programs that configure
// the database once at startup and call routines by name afterwards.
package pkg

import (
	"context"
	"errors"
	"sync"

	"github.com/jmoiron/sqlx"

	"github.com/ignaciocaff/dbproc"
)

var (
	mu      sync.RWMutex
	wrapper *dbproc.Wrapper
)

// ErrNotConfigured is returned by Call and Execute before Configure succeeds.
var ErrNotConfigured = errors.New("dbproc: database not configured")

// Configure wraps dbConn and makes it the default for Call and Execute.
func Configure(ctx context.Context, dbConn *sqlx.DB, opts ...dbproc.Option) error {
	if dbConn == nil {
		return errors.New("dbproc: nil database connection")
	}
	w, err := dbproc.Wrap(ctx, dbConn, opts...)
	if err != nil {
		return err
	}
	mu.Lock()
	wrapper = w
	mu.Unlock()
	return nil
}

// Default returns the configured wrapper, or nil.
func Default() *dbproc.Wrapper {
	mu.RLock()
	defer mu.RUnlock()
	return wrapper
}

// Call calls a routine through the default wrapper.
func Call(ctx context.Context, procedureName string, args ...any) (*dbproc.Result, error) {
	w := Default()
	if w == nil {
		return nil, ErrNotConfigured
	}
	return w.Call(ctx, procedureName, args...)
}

// Execute calls a routine through the default wrapper and maps the result
// into result.
func Execute(ctx context.Context, procedureName string, result any, args ...any) error {
	w := Default()
	if w == nil {
		return ErrNotConfigured
	}
	return w.Execute(ctx, procedureName, result, args...)
}
