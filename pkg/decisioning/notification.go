package decisioning

import (
	"time"

	"odd-hq/decisioning/internal/jsonutil"
)

// EventTypeDisplay is the xdm.eventType of display notifications.
const EventTypeDisplay = "decisioning.propositionDisplay"

// wantsDisplayEvent reports whether event sets personalization.sendDisplayEvent.
func wantsDisplayEvent(event map[string]any) bool {
	v, ok := jsonutil.Lookup(event, "personalization", "sendDisplayEvent")
	return ok && truthy(v)
}

// DisplayEvent builds the notification reporting that the propositions of
// resp were displayed. The request's xdm is copied and extended.
func DisplayEvent(request map[string]any, resp *Response, now time.Time) map[string]any {
	xdm := map[string]any{}
	if src, ok := jsonutil.AsMap(request["xdm"]); ok {
		xdm, _ = jsonutil.Clone(src).(map[string]any)
	}

	propositions := []any{}
	for _, p := range resp.Propositions() {
		propositions = append(propositions, map[string]any{
			"id":           p.ID,
			"scope":        p.Scope,
			"scopeDetails": p.ScopeDetails,
		})
	}

	xdm["eventType"] = EventTypeDisplay
	xdm["timestamp"] = now.UTC().Format("2006-01-02T15:04:05.000Z07:00")
	xdm["_experience"] = map[string]any{
		"decisioning": map[string]any{
			"propositions": propositions,
			"propositionEventType": map[string]any{
				"display": 1,
			},
		},
	}
	return map[string]any{"xdm": xdm}
}
