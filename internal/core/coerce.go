package core

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Coerce turns a raw driver value into the Go type that fits the declared
// SQL type. Text protocols hand everything back as []byte; values that do
// not parse are returned as strings.
func Coerce(declared string, v any) any {
	switch raw := v.(type) {
	case nil:
		return nil
	case []byte:
		return coerceText(declared, string(raw))
	case string:
		return coerceText(declared, raw)
	}
	return v
}

// Normalize converts every []byte column of rec to string in place.
func Normalize(rec Record) Record {
	for k, v := range rec {
		if b, ok := v.([]byte); ok {
			rec[k] = string(b)
		}
	}
	return rec
}

func coerceText(declared, s string) any {
	base := strings.ToLower(strings.TrimSpace(declared))
	if i := strings.IndexAny(base, "( "); i >= 0 {
		base = base[:i]
	}
	switch base {
	case "tinyint", "smallint", "mediumint", "int", "integer", "bigint",
		"int2", "int4", "int8", "serial", "bigserial", "year":
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n
		}
	case "decimal", "numeric", "dec", "fixed", "number":
		if d, err := decimal.NewFromString(s); err == nil {
			return d
		}
	case "float", "double", "real", "float4", "float8", "binary_float", "binary_double":
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	case "bool", "boolean":
		if b, err := strconv.ParseBool(s); err == nil {
			return b
		}
	}
	return s
}
