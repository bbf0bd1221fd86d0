package decisioning

import (
	"math"
	"sort"

	"odd-hq/decisioning/internal/jsonutil"
	"odd-hq/decisioning/pkg/identity"
)

const (
	namespaceECID = "ECID"
	namespaceFPID = "FPID"
)

// requestIdentities returns the non-empty identity array of a namespace in
// event.xdm.identityMap.
func requestIdentities(event map[string]any, namespace string) ([]any, bool) {
	v, ok := jsonutil.Lookup(event, "xdm", "identityMap", namespace)
	if !ok {
		return nil, false
	}
	ids, ok := jsonutil.AsSlice(v)
	if !ok || len(ids) == 0 {
		return nil, false
	}
	return ids, true
}

// resolveECID returns the ECID identities for event: the request's own ECID
// identities, an ECID derived from its first FPID, or a random ECID.
func resolveECID(event map[string]any, orgID string, ids *identity.Generator) ([]any, error) {
	if ecids, ok := requestIdentities(event, namespaceECID); ok {
		return ecids, nil
	}

	var (
		ecid string
		err  error
	)
	if fpids, ok := requestIdentities(event, namespaceFPID); ok {
		first, _ := jsonutil.AsMap(fpids[0])
		fpid, _ := first["id"].(string)
		ecid, err = ids.FromExternalID(orgID, fpid)
	} else {
		ecid, err = ids.Random()
	}
	if err != nil {
		return nil, err
	}
	return []any{map[string]any{"id": ecid}}, nil
}

// withECID returns a deep copy of event whose identity map holds ecids.
func withECID(event map[string]any, ecids []any) map[string]any {
	out, _ := jsonutil.Clone(event).(map[string]any)
	if out == nil {
		out = make(map[string]any)
	}
	xdm, ok := jsonutil.AsMap(out["xdm"])
	if !ok {
		xdm = make(map[string]any)
		out["xdm"] = xdm
	}
	identityMap, ok := jsonutil.AsMap(xdm["identityMap"])
	if !ok {
		identityMap = make(map[string]any)
		xdm["identityMap"] = identityMap
	}
	identityMap[namespaceECID] = ecids
	return out
}

// identityResult lists every identity of the event's identity map.
// Namespaces are listed in lexical order.
func identityResult(event map[string]any) Handle {
	payload := []any{}
	v, _ := jsonutil.Lookup(event, "xdm", "identityMap")
	identityMap, _ := jsonutil.AsMap(v)

	namespaces := make([]string, 0, len(identityMap))
	for ns := range identityMap {
		namespaces = append(namespaces, ns)
	}
	sort.Strings(namespaces)

	for _, ns := range namespaces {
		identities, _ := jsonutil.AsSlice(identityMap[ns])
		for _, raw := range identities {
			id, _ := jsonutil.AsMap(raw)
			result := map[string]any{
				"id":        id["id"],
				"namespace": map[string]any{"code": ns},
			}
			for _, field := range []string{"authenticatedState", "primary", "xid"} {
				if v, ok := id[field]; ok && truthy(v) {
					result[field] = v
				}
			}
			payload = append(payload, result)
		}
	}
	return Handle{Type: HandleIdentityResult, Payload: payload}
}

// truthy follows JavaScript truthiness for decoded JSON values.
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
