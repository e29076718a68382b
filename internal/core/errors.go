package core

import (
	"errors"
	"fmt"
)

var (
	ErrUnsupportedConnection = errors.New("unsupported connection")
	ErrProcedureNotFound     = errors.New("no stored function/procedure")
	ErrReservedName          = errors.New("reserved name")
	ErrUnexpectedArgument    = errors.New("unexpected argument")
	ErrDuplicateArgument     = errors.New("multiple values for argument")
	ErrArgumentCountMismatch = errors.New("argument count mismatch")
	ErrInsufficientPrivilege = errors.New("insufficient privilege to read routine signature")
)

// ArgumentError is returned when a call's arguments do not fit the
// routine's signature. It unwraps to one of the argument sentinels.
type ArgumentError struct {
	Procedure string
	Argument  string
	Required  int
	Given     int
	Err       error
}

func (e *ArgumentError) Error() string {
	switch e.Err {
	case ErrUnexpectedArgument:
		if e.Argument == "" {
			return fmt.Sprintf("%s() does not support named arguments", e.Procedure)
		}
		return fmt.Sprintf("%s() got an unexpected argument '%s'", e.Procedure, e.Argument)
	case ErrDuplicateArgument:
		return fmt.Sprintf("%s() got multiple values for argument '%s'", e.Procedure, e.Argument)
	case ErrArgumentCountMismatch:
		return fmt.Sprintf("%s() takes exactly %d arguments (%d given)", e.Procedure, e.Required, e.Given)
	}
	return fmt.Sprintf("%s(): %v", e.Procedure, e.Err)
}

func (e *ArgumentError) Unwrap() error {
	return e.Err
}
