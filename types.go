package dbproc

import (
	"github.com/ignaciocaff/dbproc/internal/core"
	"github.com/ignaciocaff/dbproc/internal/dialect/mysql"
	"github.com/ignaciocaff/dbproc/internal/dialect/oracle"
	"github.com/ignaciocaff/dbproc/internal/dialect/postgres"
)

type (
	Procedure     = core.Procedure
	Parameter     = core.Parameter
	Direction     = core.Direction
	Kind          = core.Kind
	Returns       = core.Returns
	Record        = core.Record
	Result        = core.Result
	ResultKind    = core.ResultKind
	Binding       = core.Binding
	Slot          = core.Slot
	Backend       = core.Backend
	Dialect       = core.Dialect
	ArgumentError = core.ArgumentError
)

const (
	In    = core.In
	Out   = core.Out
	InOut = core.InOut

	KindFunction  = core.KindFunction
	KindProcedure = core.KindProcedure

	ReturnsNone   = core.ReturnsNone
	ReturnsScalar = core.ReturnsScalar
	ReturnsRecord = core.ReturnsRecord
	ReturnsSet    = core.ReturnsSet

	ResultNone   = core.ResultNone
	ResultScalar = core.ResultScalar
	ResultRecord = core.ResultRecord
	ResultRows   = core.ResultRows
)

var (
	ErrUnsupportedConnection = core.ErrUnsupportedConnection
	ErrProcedureNotFound     = core.ErrProcedureNotFound
	ErrReservedName          = core.ErrReservedName
	ErrUnexpectedArgument    = core.ErrUnexpectedArgument
	ErrDuplicateArgument     = core.ErrDuplicateArgument
	ErrArgumentCountMismatch = core.ErrArgumentCountMismatch
	ErrInsufficientPrivilege = core.ErrInsufficientPrivilege
)

// DefaultDialects returns the built-in dialects in matching order.
func DefaultDialects() []Dialect {
	return []Dialect{
		mysql.Dialect(),
		postgres.Dialect(),
		oracle.Dialect(),
	}
}

// MatchDriver is exported for custom dialects; see core.MatchDriver.
var MatchDriver = core.MatchDriver
