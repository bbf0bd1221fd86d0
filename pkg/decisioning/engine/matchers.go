package engine

import (
	"strings"

	"odd-hq/decisioning/internal/jsonutil"
)

// Context is the evaluation input: an event merged with its flattened view.
// Matchers read keys directly, so both "xdm.web.webPageDetails.URL" and
// top-level keys such as "allocation" are visible.
type Context map[string]any

// MatcherFunc reports whether context[key] satisfies the matcher against
// the candidate values. Matchers never fail; bad input evaluates false.
type MatcherFunc func(ctx Context, key string, values []any) bool

// Matcher operator codes.
const (
	MatcherEquals             = "eq"
	MatcherNotEquals          = "ne"
	MatcherExists             = "ex"
	MatcherNotExists          = "nx"
	MatcherGreaterThan        = "gt"
	MatcherGreaterThanOrEqual = "ge"
	MatcherLessThan           = "lt"
	MatcherLessThanOrEqual    = "le"
	MatcherContains           = "co"
	MatcherNotContains        = "nc"
	MatcherStartsWith         = "sw"
	MatcherEndsWith           = "ew"
)

// DefaultMatchers returns a fresh copy of the built-in matcher table.
func DefaultMatchers() map[string]MatcherFunc {
	return map[string]MatcherFunc{
		MatcherEquals:             anyString(func(v, c string) bool { return v == c }),
		MatcherNotEquals:          noString(func(v, c string) bool { return v == c }),
		MatcherExists:             exists,
		MatcherNotExists:          notExists,
		MatcherGreaterThan:        anyNumber(func(v, c float64) bool { return v > c }),
		MatcherGreaterThanOrEqual: anyNumber(func(v, c float64) bool { return v >= c }),
		MatcherLessThan:           anyNumber(func(v, c float64) bool { return v < c }),
		MatcherLessThanOrEqual:    anyNumber(func(v, c float64) bool { return v <= c }),
		MatcherContains:           anyString(strings.Contains),
		MatcherNotContains:        noString(strings.Contains),
		MatcherStartsWith:         anyString(strings.HasPrefix),
		MatcherEndsWith:           anyString(strings.HasSuffix),
	}
}

// contextString returns the lowercased string form of a scalar context value.
func contextString(ctx Context, key string) (string, bool) {
	v, ok := ctx[key]
	if !ok || jsonutil.IsComposite(v) {
		return "", false
	}
	return strings.ToLower(jsonutil.String(v)), true
}

// anyString succeeds when any scalar candidate satisfies cmp.
func anyString(cmp func(value, candidate string) bool) MatcherFunc {
	return func(ctx Context, key string, values []any) bool {
		value, ok := contextString(ctx, key)
		if !ok {
			return false
		}
		for _, c := range values {
			if jsonutil.IsComposite(c) {
				continue
			}
			if cmp(value, strings.ToLower(jsonutil.String(c))) {
				return true
			}
		}
		return false
	}
}

// noString succeeds when no scalar candidate satisfies cmp, including when
// there are no candidates at all. A missing context value still fails.
func noString(cmp func(value, candidate string) bool) MatcherFunc {
	match := anyString(cmp)
	return func(ctx Context, key string, values []any) bool {
		if _, ok := contextString(ctx, key); !ok {
			return false
		}
		return !match(ctx, key, values)
	}
}

func anyNumber(cmp func(value, candidate float64) bool) MatcherFunc {
	return func(ctx Context, key string, values []any) bool {
		value, ok := jsonutil.Number(ctx[key])
		if !ok {
			return false
		}
		for _, c := range values {
			candidate, ok := jsonutil.Number(c)
			if ok && cmp(value, candidate) {
				return true
			}
		}
		return false
	}
}

func exists(ctx Context, key string, _ []any) bool {
	v, ok := ctx[key]
	return ok && v != nil
}

func notExists(ctx Context, key string, values []any) bool {
	return !exists(ctx, key, values)
}
