package core

import (
	"errors"
	"fmt"
	"reflect"
)

// Record is a row or a set of output parameters keyed by name.
type Record map[string]any

// ResultKind tells which field of a Result carries the decoded value.
type ResultKind int

const (
	ResultNone ResultKind = iota
	ResultScalar
	ResultRecord
	ResultRows
)

func (k ResultKind) String() string {
	switch k {
	case ResultScalar:
		return "scalar"
	case ResultRecord:
		return "record"
	case ResultRows:
		return "rows"
	default:
		return "none"
	}
}

// Result is the decoded outcome of a routine call.
type Result struct {
	Kind   ResultKind
	Value  any
	Record Record
	Rows   []Record
}

var recordType = reflect.TypeOf(Record(nil))

// Scan copies the result into dest, which must be a pointer to a scalar,
// a struct, a Record, or a slice of structs or Records.
//
// A procedure call can return both result rows and an OUT record. A slice
// destination then receives the rows; a struct, Record or scalar
// destination receives the OUT record. Read Result.Rows and Result.Record
// directly to get both.
func (r *Result) Scan(dest any) error {
	v := reflect.ValueOf(dest)
	if v.Kind() != reflect.Ptr || v.IsNil() {
		return errors.New("scan destination must be a non-nil pointer")
	}
	elem := v.Elem()

	switch {
	case elem.Kind() == reflect.Slice && elem.Type().Elem().Kind() != reflect.Uint8:
		return mapToSlice(elem, r.records())
	case elem.Kind() == reflect.Struct && !isValueStruct(elem.Type()):
		rec, ok := r.first()
		if !ok {
			return fmt.Errorf("no %s row to scan into %s", r.Kind, elem.Type())
		}
		return mapTo(elem, rec)
	case elem.Kind() == reflect.Map && elem.Type().ConvertibleTo(recordType):
		rec, ok := r.first()
		if !ok {
			return fmt.Errorf("no %s row to scan into %s", r.Kind, elem.Type())
		}
		elem.Set(reflect.ValueOf(rec).Convert(elem.Type()))
		return nil
	}

	value := r.Value
	if r.Kind != ResultScalar {
		rec, ok := r.first()
		if !ok || len(rec) != 1 {
			return fmt.Errorf("cannot scan %s result into %s", r.Kind, elem.Type())
		}
		for _, only := range rec {
			value = only
		}
	}
	return assign(elem, value)
}

// records returns rows, or the output record as a single row when there
// are none.
func (r *Result) records() []Record {
	if len(r.Rows) > 0 {
		return r.Rows
	}
	if r.Record != nil {
		return []Record{r.Record}
	}
	return nil
}

// first returns the output record, or the first row when there is none.
func (r *Result) first() (Record, bool) {
	if r.Record != nil {
		return r.Record, true
	}
	if len(r.Rows) > 0 {
		return r.Rows[0], true
	}
	return nil, false
}
