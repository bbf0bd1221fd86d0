package engine

import (
	"math"

	"odd-hq/decisioning/internal/jsonutil"
	"odd-hq/decisioning/pkg/ruleset"
)

// HistoryKey is the context key holding the prior-event index, shaped as
// events[eventType][eventID] = {"event": {...}, "timestamp": n, "count": n}.
const HistoryKey = "events"

var (
	eventTypeFields = []string{"iam.eventType", "eventType", "type"}
	eventIDFields   = []string{"iam.id", "id"}
)

// evaluateHistorical counts the prior events described by cond and compares
// the count with cond.Value.
func evaluateHistorical(cond *ruleset.HistoricalCondition, ctx Context) bool {
	index, _ := jsonutil.AsMap(ctx[HistoryKey])

	var count float64
	if cond.SearchType == ruleset.SearchTypeOrdered {
		count = countOrdered(cond.Events, index, cond.From, cond.To)
	} else {
		count = countAnyOrder(cond.Events, index, cond.From, cond.To)
	}
	return compareCount(count, cond.Matcher, cond.Value)
}

// countAnyOrder sums the counts of matching stored events. The window only
// applies when both bounds are set.
func countAnyOrder(descriptors []map[string]any, index map[string]any, from, to *float64) float64 {
	var total float64
	for _, desc := range descriptors {
		stored, ok := lookupEvent(index, desc)
		if !ok || !satisfies(desc, stored) {
			continue
		}
		if from != nil && to != nil {
			ts, ok := jsonutil.Number(stored["timestamp"])
			if !ok || ts < *from || ts > *to {
				continue
			}
		}
		total += storedCount(stored)
	}
	return total
}

// countOrdered returns 1 when every descriptor matches a stored event with a
// non-zero count and the timestamps never decrease, starting from from and
// never exceeding to. Otherwise it returns 0.
func countOrdered(descriptors []map[string]any, index map[string]any, from, to *float64) float64 {
	previous := from
	for _, desc := range descriptors {
		stored, ok := lookupEvent(index, desc)
		if !ok || !satisfies(desc, stored) {
			return 0
		}
		if n, ok := jsonutil.Number(stored["count"]); ok && n == 0 {
			return 0
		}

		var ts *float64
		if n, ok := jsonutil.Number(stored["timestamp"]); ok {
			ts = &n
		}
		afterPrevious := previous == nil || (ts != nil && *ts >= *previous)
		beforeEnd := to == nil || (ts != nil && *ts <= *to)
		if !afterPrevious || !beforeEnd {
			return 0
		}
		previous = ts
	}
	return 1
}

// lookupEvent finds the stored entry for a descriptor's type and id.
func lookupEvent(index map[string]any, desc map[string]any) (map[string]any, bool) {
	if index == nil {
		return nil, false
	}
	eventType, ok := firstKey(desc, eventTypeFields)
	if !ok {
		return nil, false
	}
	byID, ok := jsonutil.AsMap(index[eventType])
	if !ok {
		return nil, false
	}
	eventID, ok := firstKey(desc, eventIDFields)
	if !ok {
		return nil, false
	}
	return jsonutil.AsMap(byID[eventID])
}

// firstKey returns the first present field as an index key. Empty, false,
// zero and composite values do not qualify.
func firstKey(desc map[string]any, fields []string) (string, bool) {
	for _, f := range fields {
		v, present := desc[f]
		if !present {
			continue
		}
		if !truthy(v) || jsonutil.IsComposite(v) {
			return "", false
		}
		return jsonutil.String(v), true
	}
	return "", false
}

// satisfies reports whether every descriptor field equals the stored event's
// field of the same name.
func satisfies(desc map[string]any, stored map[string]any) bool {
	event, _ := jsonutil.AsMap(stored["event"])
	for k, want := range desc {
		got, present := event[k]
		if !present || !strictEqual(got, want) {
			return false
		}
	}
	return true
}

func storedCount(stored map[string]any) float64 {
	v, present := stored["count"]
	if !present {
		return 1
	}
	n, _ := jsonutil.Number(v)
	return n
}

func compareCount(count float64, matcher string, value any) bool {
	target, ok := jsonutil.Number(value)
	if !ok {
		return matcher == MatcherNotEquals
	}
	switch matcher {
	case MatcherGreaterThan:
		return count > target
	case MatcherGreaterThanOrEqual:
		return count >= target
	case MatcherLessThan:
		return count < target
	case MatcherLessThanOrEqual:
		return count <= target
	case MatcherEquals:
		return count == target
	case MatcherNotEquals:
		return count != target
	default:
		return false
	}
}

// strictEqual compares scalars by type and value. Objects and arrays are
// never equal.
func strictEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if an, ok := jsonutil.Number(a); ok {
		bn, ok := jsonutil.Number(b)
		return ok && an == bn
	}
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	}
	return false
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	}
	if n, ok := jsonutil.Number(v); ok {
		return n != 0 && !math.IsNaN(n)
	}
	return true
}
