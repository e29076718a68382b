package core

import (
	"context"
	"database/sql/driver"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
)

// Backend inspects and calls routines for one dialect.
type Backend interface {
	// DefaultSchema returns the schema the connection is currently using.
	DefaultSchema(ctx context.Context, db *sqlx.DB) (string, error)

	// Enumerate lists the routines in schema. Procedures with no
	// parameters have an empty, non-nil Parameters slice.
	Enumerate(ctx context.Context, db *sqlx.DB, schema string) ([]*Procedure, error)

	// Invoke executes a bound call and decodes its result. The backend
	// acquires a dedicated connection for the call and releases it before
	// returning.
	Invoke(ctx context.Context, db *sqlx.DB, b *Binding) (*Result, error)
}

// Dialect pairs a connection matcher with the backend constructor used
// when it matches.
type Dialect struct {
	Name  string
	Match func(db *sqlx.DB) bool
	New   func(logger zerolog.Logger) Backend
}

// Select returns the first dialect in the list whose matcher accepts db.
func Select(db *sqlx.DB, dialects []Dialect) (Dialect, error) {
	if db == nil {
		return Dialect{}, fmt.Errorf("%w: nil handle", ErrUnsupportedConnection)
	}
	for _, d := range dialects {
		if d.Match != nil && d.Match(db) {
			return d, nil
		}
	}
	return Dialect{}, fmt.Errorf("%w: driver %T (%q)", ErrUnsupportedConnection, db.Driver(), db.DriverName())
}

// MatchDriver builds a matcher that accepts db when its driver passes is,
// or when the sqlx driver name is one of names.
func MatchDriver(is func(driver.Driver) bool, names ...string) func(*sqlx.DB) bool {
	return func(db *sqlx.DB) bool {
		if is != nil && is(db.Driver()) {
			return true
		}
		name := db.DriverName()
		for _, n := range names {
			if n == name {
				return true
			}
		}
		return false
	}
}
