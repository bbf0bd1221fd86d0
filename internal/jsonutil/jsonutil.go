// Package jsonutil contains helpers for working with decoded JSON values
// (map[string]any, []any, float64, string, bool, nil) and the few Go-native
// shapes the client builds by hand.
package jsonutil

import (
	"math"
	"strconv"
	"strings"
)

// AsMap returns v as a JSON object.
func AsMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, m != nil
	default:
		return nil, false
	}
}

// AsSlice returns v as a JSON array. Slices of objects built in Go code are
// converted to []any.
func AsSlice(v any) ([]any, bool) {
	switch s := v.(type) {
	case []any:
		return s, s != nil
	case []map[string]any:
		if s == nil {
			return nil, false
		}
		out := make([]any, len(s))
		for i, m := range s {
			out[i] = m
		}
		return out, true
	case []string:
		if s == nil {
			return nil, false
		}
		out := make([]any, len(s))
		for i, str := range s {
			out[i] = str
		}
		return out, true
	default:
		return nil, false
	}
}

// Number converts any Go numeric kind to float64. Strings and booleans are
// not numbers.
func Number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}

// IsComposite reports whether v is nil, an object or an array.
func IsComposite(v any) bool {
	if v == nil {
		return true
	}
	if _, ok := AsMap(v); ok {
		return true
	}
	_, ok := AsSlice(v)
	return ok
}

// String renders a scalar the way a JavaScript String() call would, so that
// rules authored against JSON payloads compare identically.
func String(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case bool:
		return strconv.FormatBool(s)
	case nil:
		return "null"
	}
	if n, ok := Number(v); ok {
		return formatNumber(n)
	}
	return ""
}

func formatNumber(n float64) string {
	switch {
	case math.IsNaN(n):
		return "NaN"
	case math.IsInf(n, 1):
		return "Infinity"
	case math.IsInf(n, -1):
		return "-Infinity"
	case n == 0:
		return "0"
	}
	abs := math.Abs(n)
	if abs >= 1e21 || abs < 1e-6 {
		// JavaScript writes exponents without padding: 1e-7, 1.5e+21.
		mant, exp, _ := strings.Cut(strconv.FormatFloat(n, 'e', -1, 64), "e")
		return mant + "e" + exp[:1] + strings.TrimLeft(exp[1:], "0")
	}
	return strconv.FormatFloat(n, 'f', -1, 64)
}

// Clone returns a deep copy of objects and arrays. Scalars are returned as is.
func Clone(v any) any {
	switch t := v.(type) {
	case map[string]any:
		if t == nil {
			return t
		}
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = Clone(val)
		}
		return out
	case []any:
		if t == nil {
			return t
		}
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = Clone(val)
		}
		return out
	case []map[string]any:
		if t == nil {
			return t
		}
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = Clone(val)
		}
		return out
	default:
		return v
	}
}

// Lookup walks nested objects following keys and returns the final value.
func Lookup(v any, keys ...string) (any, bool) {
	cur := v
	for _, k := range keys {
		m, ok := AsMap(cur)
		if !ok {
			return nil, false
		}
		cur, ok = m[k]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}
