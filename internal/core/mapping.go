package core

import (
	"database/sql"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	timeType    = reflect.TypeOf(time.Time{})
	decimalType = reflect.TypeOf(decimal.Decimal{})
)

func isValueStruct(t reflect.Type) bool {
	return t == timeType || t == decimalType
}

func mapToSlice(slice reflect.Value, records []Record) error {
	elemType := slice.Type().Elem()
	out := reflect.MakeSlice(slice.Type(), 0, len(records))
	for _, rec := range records {
		if rec == nil {
			continue
		}
		newElem := reflect.New(elemType).Elem()
		switch {
		case elemType.Kind() == reflect.Map && recordType.ConvertibleTo(elemType):
			newElem.Set(reflect.ValueOf(rec).Convert(elemType))
		case elemType.Kind() == reflect.Struct && !isValueStruct(elemType):
			if err := mapTo(newElem, rec); err != nil {
				return err
			}
		case elemType.Kind() == reflect.Ptr && elemType.Elem().Kind() == reflect.Struct:
			ptr := reflect.New(elemType.Elem())
			if err := mapTo(ptr.Elem(), rec); err != nil {
				return err
			}
			newElem.Set(ptr)
		default:
			if len(rec) != 1 {
				return fmt.Errorf("cannot scan %d columns into %s", len(rec), elemType)
			}
			for _, only := range rec {
				if err := assign(newElem, only); err != nil {
					return err
				}
			}
		}
		out = reflect.Append(out, newElem)
	}
	slice.Set(out)
	return nil
}

// mapTo fills the struct v from rec. Fields are matched by their `db` tag,
// or by field name, case-insensitively. Unmatched fields are left alone.
func mapTo(v reflect.Value, rec Record) error {
	t := v.Type()
	lower := make(map[string]string, len(rec))
	for col := range rec {
		lower[strings.ToLower(col)] = col
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		tag := strings.Split(field.Tag.Get("db"), ",")[0]
		if tag == "-" {
			continue
		}
		if tag == "" {
			tag = field.Name
		}
		col, ok := lower[strings.ToLower(tag)]
		if !ok {
			continue
		}
		structField := v.Field(i)
		if !structField.CanSet() {
			continue
		}
		if err := assign(structField, rec[col]); err != nil {
			return fmt.Errorf("column %s: %w", col, err)
		}
	}
	return nil
}

func trimTrailingWhitespace(input string) string {
	if len(input) == 0 {
		return input
	}
	return strings.TrimRight(input, " ")
}

// assign converts value into dest following the loose rules drivers need:
// padded CHAR columns, numeric strings, S/N and Y/N flags.
func assign(dest reflect.Value, value any) error {
	fieldType := dest.Type()
	if value == nil {
		dest.Set(reflect.Zero(fieldType))
		return nil
	}
	if b, ok := value.([]byte); ok && fieldType.Kind() != reflect.Slice {
		value = string(b)
	}

	switch fieldType.Kind() {
	case reflect.Ptr:
		ptr := reflect.New(fieldType.Elem())
		if err := assign(ptr.Elem(), value); err != nil {
			return err
		}
		dest.Set(ptr)
		return nil
	case reflect.Interface:
		dest.Set(reflect.ValueOf(value))
		return nil
	}

	if s, ok := value.(string); ok && fieldType.Kind() == reflect.String {
		dest.SetString(trimTrailingWhitespace(s))
		return nil
	}

	valueType := reflect.TypeOf(value)
	if valueType.AssignableTo(fieldType) {
		dest.Set(reflect.ValueOf(value))
		return nil
	}
	if dest.CanAddr() {
		if scanner, ok := dest.Addr().Interface().(sql.Scanner); ok {
			return scanner.Scan(value)
		}
	}

	switch value := value.(type) {
	case string:
		return assignString(dest, value)
	case int64:
		switch {
		case isInt(fieldType):
			dest.SetInt(value)
		case isFloat(fieldType):
			dest.SetFloat(float64(value))
		case fieldType.Kind() == reflect.Bool:
			dest.SetBool(value != 0)
		case fieldType.Kind() == reflect.String:
			dest.SetString(strconv.FormatInt(value, 10))
		default:
			return unhandled(fieldType, value)
		}
	case int:
		return assign(dest, int64(value))
	case int32:
		return assign(dest, int64(value))
	case float32:
		return assign(dest, float64(value))
	case float64:
		switch {
		case isFloat(fieldType):
			dest.SetFloat(value)
		case isInt(fieldType):
			dest.SetInt(int64(value))
		case fieldType.Kind() == reflect.String:
			dest.SetString(strconv.FormatFloat(value, 'f', -1, 64))
		default:
			return unhandled(fieldType, value)
		}
	case decimal.Decimal:
		switch {
		case isFloat(fieldType):
			dest.SetFloat(value.InexactFloat64())
		case isInt(fieldType):
			dest.SetInt(value.IntPart())
		case fieldType.Kind() == reflect.String:
			dest.SetString(value.String())
		default:
			return unhandled(fieldType, value)
		}
	case bool:
		switch fieldType.Kind() {
		case reflect.Bool:
			dest.SetBool(value)
		case reflect.String:
			dest.SetString(strconv.FormatBool(value))
		default:
			return unhandled(fieldType, value)
		}
	case time.Time:
		if fieldType.Kind() == reflect.String {
			dest.SetString(value.Format(time.RFC3339))
			return nil
		}
		return unhandled(fieldType, value)
	default:
		if valueType.ConvertibleTo(fieldType) {
			dest.Set(reflect.ValueOf(value).Convert(fieldType))
			return nil
		}
		return unhandled(fieldType, value)
	}
	return nil
}

func assignString(dest reflect.Value, value string) error {
	fieldType := dest.Type()
	value = trimTrailingWhitespace(value)
	switch {
	case isInt(fieldType):
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return err
		}
		dest.SetInt(n)
	case isFloat(fieldType):
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		dest.SetFloat(f)
	case fieldType.Kind() == reflect.Bool:
		switch strings.ToUpper(value) {
		case "S", "Y", "1", "TRUE":
			dest.SetBool(true)
		case "N", "0", "FALSE", "":
			dest.SetBool(false)
		default:
			return unhandled(fieldType, value)
		}
	case fieldType == timeType:
		ts, err := time.Parse(time.RFC3339, value)
		if err != nil {
			return err
		}
		dest.Set(reflect.ValueOf(ts))
	default:
		return unhandled(fieldType, value)
	}
	return nil
}

func isInt(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return true
	}
	return false
}

func isFloat(t reflect.Type) bool {
	return t.Kind() == reflect.Float32 || t.Kind() == reflect.Float64
}

func unhandled(fieldType reflect.Type, value any) error {
	return fmt.Errorf("unhandled conversion from %T to %s", value, fieldType)
}
