package engine

import (
	"reflect"
	"strings"
	"testing"
)

func TestFlatten(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  any
	}{
		{name: "scalar passes through", input: "x", want: "x"},
		{name: "nil passes through", input: nil, want: nil},
		{
			name:  "nested objects",
			input: map[string]any{"a": map[string]any{"b": map[string]any{"c": 1.0}}, "d": true},
			want:  map[string]any{"a.b.c": 1.0, "d": true},
		},
		{
			name:  "arrays use indices",
			input: map[string]any{"ids": []any{map[string]any{"id": "x"}, "y"}},
			want:  map[string]any{"ids.0.id": "x", "ids.1": "y"},
		},
		{
			name:  "null is a scalar",
			input: map[string]any{"a": nil},
			want:  map[string]any{"a": nil},
		},
		{
			name:  "empty containers vanish",
			input: map[string]any{"a": map[string]any{}, "b": []any{}},
			want:  map[string]any{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Flatten(tt.input)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Flatten() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFlatten_DoesNotMutateInput(t *testing.T) {
	input := map[string]any{"xdm": map[string]any{"web": map[string]any{"url": "https://x"}}}
	_ = Flatten(input)

	want := map[string]any{"xdm": map[string]any{"web": map[string]any{"url": "https://x"}}}
	if !reflect.DeepEqual(input, want) {
		t.Errorf("input mutated: %v", input)
	}
}

func TestFlatten_SiblingPaths(t *testing.T) {
	// Deep siblings must not overwrite each other's path prefix.
	input := map[string]any{
		"a": map[string]any{
			"b": map[string]any{"x": 1.0, "y": map[string]any{"z": 2.0}},
			"c": []any{[]any{3.0, 4.0}, map[string]any{"w": 5.0}},
		},
	}
	want := map[string]any{
		"a.b.x":   1.0,
		"a.b.y.z": 2.0,
		"a.c.0.0": 3.0,
		"a.c.0.1": 4.0,
		"a.c.1.w": 5.0,
	}
	if got := Flatten(input); !reflect.DeepEqual(got, want) {
		t.Errorf("Flatten() = %v, want %v", got, want)
	}
}

func TestFlatten_DepthGuard(t *testing.T) {
	var v any = "leaf"
	for i := 0; i < maxFlattenDepth+10; i++ {
		v = map[string]any{"n": v}
	}

	got := FlattenMap(v.(map[string]any))
	if len(got) != 1 {
		t.Fatalf("len(FlattenMap()) = %d, want 1", len(got))
	}
	for k, val := range got {
		if depth := strings.Count(k, ".") + 1; depth != maxFlattenDepth {
			t.Errorf("path depth = %d, want %d", depth, maxFlattenDepth)
		}
		if _, ok := val.(map[string]any); !ok {
			t.Errorf("value at guard = %T, want map", val)
		}
	}
}

func TestBuildContext(t *testing.T) {
	events := map[string]any{"display": map[string]any{}}
	event := map[string]any{
		"xdm":    map[string]any{"web": map[string]any{"webPageDetails": map[string]any{"URL": "https://luma.com/men"}}},
		"events": events,
	}

	ctx := BuildContext(event)

	if got := ctx["xdm.web.webPageDetails.URL"]; got != "https://luma.com/men" {
		t.Errorf("ctx[xdm.web.webPageDetails.URL] = %v", got)
	}
	if _, ok := ctx["xdm"].(map[string]any); !ok {
		t.Errorf("ctx[xdm] = %T, want top-level object kept", ctx["xdm"])
	}
	if got, ok := ctx["events"].(map[string]any); !ok || len(got) != 1 {
		t.Errorf("ctx[events] = %v, want history index kept", ctx["events"])
	}
}
