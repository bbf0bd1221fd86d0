package decisioning

import (
	"odd-hq/decisioning/internal/jsonutil"
)

// Handle types and schemas found in responses.
const (
	HandleIdentityResult = "identity:result"
	HandleDecisions      = "personalization:decisions"

	// JSONContentItemSchema marks items whose content carries DOM changes.
	JSONContentItemSchema = "https://ns.adobe.com/personalization/json-content-item"

	// PageWideScope is the scope of propositions that apply to the whole page.
	PageWideScope = "__view__"
)

// Response is the decisioning response envelope.
type Response struct {
	RequestID string   `json:"requestId"`
	Handle    []Handle `json:"handle"`
}

// Handle is one typed fragment of a response.
type Handle struct {
	EventIndex *int   `json:"eventIndex,omitempty"`
	Type       string `json:"type"`
	Payload    []any  `json:"payload"`
}

// Proposition is a decision trimmed to the fields echoed in display events.
type Proposition struct {
	ID           any `json:"id"`
	Scope        any `json:"scope"`
	ScopeDetails any `json:"scopeDetails"`
}

// ContentItem is one DOM change of a JSON content item.
type ContentItem struct {
	Selector string
	Payload  string
	Type     string
}

// Decisions returns the payload entries of every decisions handle.
func (r *Response) Decisions() []map[string]any {
	if r == nil {
		return nil
	}
	var out []map[string]any
	for _, h := range r.Handle {
		if h.Type != HandleDecisions {
			continue
		}
		for _, p := range h.Payload {
			if m, ok := jsonutil.AsMap(p); ok {
				out = append(out, m)
			}
		}
	}
	return out
}

// Propositions returns every decision trimmed to id, scope and scopeDetails.
func (r *Response) Propositions() []Proposition {
	decisions := r.Decisions()
	out := make([]Proposition, 0, len(decisions))
	for _, d := range decisions {
		out = append(out, Proposition{ID: d["id"], Scope: d["scope"], ScopeDetails: d["scopeDetails"]})
	}
	return out
}

// ContentItems returns the selector changes of every JSON content item.
// Entries without a selector are skipped.
func (r *Response) ContentItems() []ContentItem {
	var out []ContentItem
	for _, d := range r.Decisions() {
		items, _ := jsonutil.AsSlice(d["items"])
		for _, raw := range items {
			item, ok := jsonutil.AsMap(raw)
			if !ok || item["schema"] != JSONContentItemSchema {
				continue
			}
			content, _ := jsonutil.Lookup(item, "data", "content", "payload")
			entries, _ := jsonutil.AsSlice(content)
			for _, e := range entries {
				m, ok := jsonutil.AsMap(e)
				if !ok {
					continue
				}
				selector, _ := m["selector"].(string)
				if selector == "" {
					continue
				}
				payload, _ := m["payload"].(string)
				kind, _ := m["type"].(string)
				out = append(out, ContentItem{Selector: selector, Payload: payload, Type: kind})
			}
		}
	}
	return out
}

// ECID returns the ECID of the identity result, or "".
func (r *Response) ECID() string {
	if r == nil {
		return ""
	}
	for _, h := range r.Handle {
		if h.Type != HandleIdentityResult {
			continue
		}
		for _, p := range h.Payload {
			m, ok := jsonutil.AsMap(p)
			if !ok {
				continue
			}
			if code, _ := jsonutil.Lookup(m, "namespace", "code"); code == "ECID" {
				id, _ := m["id"].(string)
				return id
			}
		}
	}
	return ""
}

// responseFromMap converts a decoded edge response.
func responseFromMap(m map[string]any) *Response {
	resp := &Response{}
	if m == nil {
		return resp
	}
	resp.RequestID, _ = m["requestId"].(string)
	handles, _ := jsonutil.AsSlice(m["handle"])
	for _, raw := range handles {
		h, ok := jsonutil.AsMap(raw)
		if !ok {
			continue
		}
		handle := Handle{}
		handle.Type, _ = h["type"].(string)
		if n, ok := jsonutil.Number(h["eventIndex"]); ok {
			idx := int(n)
			handle.EventIndex = &idx
		}
		handle.Payload, _ = jsonutil.AsSlice(h["payload"])
		resp.Handle = append(resp.Handle, handle)
	}
	return resp
}
