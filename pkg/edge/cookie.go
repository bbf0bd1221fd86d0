package edge

import (
	"net/http"

	"github.com/tidwall/gjson"
)

// ECIDCookieName is the cookie that carries a visitor's ECID.
const ECIDCookieName = "X-ADOBE-ECID"

// IdentityMapFromRequest returns an identityMap with the ECID stored in the
// request cookie, or nil when there is none.
func IdentityMapFromRequest(r *http.Request) map[string]any {
	c, err := r.Cookie(ECIDCookieName)
	if err != nil || c.Value == "" {
		return nil
	}
	return IdentityMap(c.Value)
}

// IdentityMap returns an identityMap holding ecid as the primary, ambiguous
// ECID identity.
func IdentityMap(ecid string) map[string]any {
	return map[string]any{
		"ECID": []any{
			map[string]any{
				"id":                 ecid,
				"authenticatedState": "ambiguous",
				"primary":            true,
			},
		},
	}
}

// ECIDCookie returns the cookie persisting ecid for later requests.
func ECIDCookie(ecid string) *http.Cookie {
	return &http.Cookie{
		Name:     ECIDCookieName,
		Value:    ecid,
		Path:     "/",
		Secure:   true,
		SameSite: http.SameSiteNoneMode,
	}
}

// ECIDFromBody returns the ECID of the identity:result handle in an
// encoded decisioning or interact response.
func ECIDFromBody(body []byte) string {
	return gjson.GetBytes(body,
		`handle.#(type=="identity:result").payload.#(namespace.code=="ECID").id`).String()
}

// RequestIDFromBody returns the requestId of an encoded response.
func RequestIDFromBody(body []byte) string {
	return gjson.GetBytes(body, "requestId").String()
}
