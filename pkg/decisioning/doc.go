// Package decisioning is the client for on-device decisioning.
//
// A Client resolves the visitor's identity, evaluates the active ruleset
// locally and assembles the same response envelope the edge network returns
// from its interact endpoint:
//
//	{
//	  "requestId": "…",
//	  "handle": [
//	    {"type": "identity:result", "payload": [{"id": "…", "namespace": {"code": "ECID"}}]},
//	    {"eventIndex": 0, "type": "personalization:decisions", "payload": [ … ]}
//	  ]
//	}
//
// With on-device decisioning disabled the client forwards events to the edge
// network instead. In both modes an event carrying
// personalization.sendDisplayEvent triggers a display notification for the
// returned propositions.
//
// Rule evaluation failures never fail SendEvent. They are logged and the
// response carries an empty decisions payload.
package decisioning
