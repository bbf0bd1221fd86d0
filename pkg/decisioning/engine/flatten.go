package engine

import (
	"strconv"
	"strings"

	"odd-hq/decisioning/internal/jsonutil"
)

// maxFlattenDepth bounds recursion. Values nested deeper are recorded whole
// under their path.
const maxFlattenDepth = 64

// Flatten returns a dot-path view of a JSON object: nested objects and
// arrays extend the path (array indices become path segments) and every
// scalar is recorded under its full path. Empty objects and arrays produce
// no entries. Input that is not an object is returned unchanged. The input
// is never modified.
func Flatten(v any) any {
	m, ok := jsonutil.AsMap(v)
	if !ok {
		return v
	}
	return FlattenMap(m)
}

// FlattenMap is Flatten for an object.
func FlattenMap(m map[string]any) map[string]any {
	out := make(map[string]any)
	flattenInto(out, nil, m, 0)
	return out
}

func flattenInto(out map[string]any, path []string, v any, depth int) {
	switch node := v.(type) {
	case map[string]any:
		if depth >= maxFlattenDepth {
			out[strings.Join(path, ".")] = node
			return
		}
		for k, child := range node {
			visit(out, append(path, k), child, depth)
		}
	default:
		items, ok := jsonutil.AsSlice(v)
		if !ok {
			return
		}
		if depth >= maxFlattenDepth {
			out[strings.Join(path, ".")] = v
			return
		}
		for i, child := range items {
			visit(out, append(path, strconv.Itoa(i)), child, depth)
		}
	}
}

func visit(out map[string]any, path []string, child any, depth int) {
	if isContainer(child) {
		// Copy the path so sibling branches do not share a backing array.
		next := make([]string, len(path))
		copy(next, path)
		flattenInto(out, next, child, depth+1)
		return
	}
	out[strings.Join(path, ".")] = child
}

func isContainer(v any) bool {
	if _, ok := jsonutil.AsMap(v); ok {
		return true
	}
	_, ok := jsonutil.AsSlice(v)
	return ok
}

// BuildContext merges an event with its flattened view. Top-level keys keep
// their original values so historical conditions can read the "events"
// index; dotted paths are added for matchers.
func BuildContext(event map[string]any) Context {
	ctx := make(Context, len(event))
	for k, v := range event {
		ctx[k] = v
	}
	for k, v := range FlattenMap(event) {
		ctx[k] = v
	}
	return ctx
}
