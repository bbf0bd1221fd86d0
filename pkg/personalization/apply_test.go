package personalization

import (
	"strings"
	"testing"

	"odd-hq/decisioning/pkg/decisioning"
)

type fakeElement struct {
	calls []string
}

func (e *fakeElement) ReplaceWith(html string)  { e.calls = append(e.calls, "replace:"+html) }
func (e *fakeElement) SetInnerHTML(html string) { e.calls = append(e.calls, "inner:"+html) }
func (e *fakeElement) Append(html string)       { e.calls = append(e.calls, "append:"+html) }
func (e *fakeElement) Prepend(html string)      { e.calls = append(e.calls, "prepend:"+html) }

type fakeRewriter struct {
	selectors []string
	fns       []func(Element)
}

func (r *fakeRewriter) OnElement(selector string, fn func(Element)) {
	r.selectors = append(r.selectors, selector)
	r.fns = append(r.fns, fn)
}

func contentResponse(entries ...map[string]any) *decisioning.Response {
	payload := make([]any, len(entries))
	for i, e := range entries {
		payload[i] = e
	}
	return &decisioning.Response{
		RequestID: "req-1",
		Handle: []decisioning.Handle{
			{Type: decisioning.HandleIdentityResult, Payload: []any{}},
			{
				Type: decisioning.HandleDecisions,
				Payload: []any{
					map[string]any{
						"id":    "proposition-1",
						"scope": decisioning.PageWideScope,
						"items": []any{
							map[string]any{
								"schema": decisioning.JSONContentItemSchema,
								"data": map[string]any{
									"content": map[string]any{"payload": payload},
								},
							},
							map[string]any{
								"schema": "https://ns.adobe.com/personalization/dom-action",
								"data":   map[string]any{"selector": "#ignored"},
							},
						},
					},
				},
			},
		},
	}
}

func TestApply(t *testing.T) {
	tests := []struct {
		name          string
		resp          *decisioning.Response
		wantSelectors []string
		wantCalls     []string
	}{
		{
			name:          "nil response",
			resp:          nil,
			wantSelectors: nil,
		},
		{
			name: "replace by default",
			resp: contentResponse(
				map[string]any{"selector": "#hero h1", "payload": "<h1>Hello</h1>"},
			),
			wantSelectors: []string{"#hero h1"},
			wantCalls:     []string{"replace:<h1>Hello</h1>"},
		},
		{
			name: "typed items",
			resp: contentResponse(
				map[string]any{"selector": "#a", "payload": "x", "type": TypeSetHTML},
				map[string]any{"selector": "#b", "payload": "y", "type": TypeAppendHTML},
				map[string]any{"selector": "#c", "payload": "z", "type": TypePrependHTML},
			),
			wantSelectors: []string{"#a", "#b", "#c"},
			wantCalls:     []string{"inner:x", "append:y", "prepend:z"},
		},
		{
			name: "unknown type and missing selector skipped",
			resp: contentResponse(
				map[string]any{"selector": "#a", "payload": "x", "type": "remove"},
				map[string]any{"payload": "no selector"},
				map[string]any{"selector": "#b", "payload": "y"},
			),
			wantSelectors: []string{"#b"},
			wantCalls:     []string{"replace:y"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rw := &fakeRewriter{}
			n := Apply(rw, tt.resp, nil)

			if n != len(tt.wantSelectors) {
				t.Errorf("Apply() = %d, want %d", n, len(tt.wantSelectors))
			}
			if strings.Join(rw.selectors, ",") != strings.Join(tt.wantSelectors, ",") {
				t.Errorf("selectors = %v, want %v", rw.selectors, tt.wantSelectors)
			}

			el := &fakeElement{}
			for _, fn := range rw.fns {
				fn(el)
			}
			if strings.Join(el.calls, ",") != strings.Join(tt.wantCalls, ",") {
				t.Errorf("element calls = %v, want %v", el.calls, tt.wantCalls)
			}
		})
	}
}

func TestApply_HTMLRewriter(t *testing.T) {
	resp := contentResponse(
		map[string]any{"selector": "#hero h1", "payload": "<h1>Welcome back</h1>"},
	)

	rw := NewHTMLRewriter(nil)
	if n := Apply(rw, resp, nil); n != 1 {
		t.Fatalf("Apply() = %d, want 1", n)
	}

	out, err := rw.RewriteString(`<html><body><div id="hero"><h1>Hello</h1></div><h1>Other</h1></body></html>`)
	if err != nil {
		t.Fatalf("RewriteString() error = %v", err)
	}
	if !strings.Contains(out, `<div id="hero"><h1>Welcome back</h1></div>`) {
		t.Errorf("RewriteString() = %s, want hero heading replaced", out)
	}
	if !strings.Contains(out, `<h1>Other</h1>`) {
		t.Errorf("RewriteString() = %s, want heading outside hero untouched", out)
	}
}
