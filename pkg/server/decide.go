package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"odd-hq/decisioning/internal/jsonutil"
	"odd-hq/decisioning/pkg/decisioning"
	"odd-hq/decisioning/pkg/edge"
	"odd-hq/decisioning/pkg/server/middleware"
)

// EventTypeFetch is the event type of page decision requests.
const EventTypeFetch = "decisioning.propositionFetch"

// errMissingURL is returned when /decide cannot tell which page to decide for.
var errMissingURL = errors.New("page url is required")

// PageEvent builds the decision request for a page view. The identity map
// is omitted when identityMap is nil.
func PageEvent(pageURL string, identityMap map[string]any) map[string]any {
	xdm := map[string]any{
		"web": map[string]any{
			"webPageDetails": map[string]any{"URL": pageURL},
		},
	}
	if identityMap != nil {
		xdm["identityMap"] = identityMap
	}
	return map[string]any{
		"type":            EventTypeFetch,
		"personalization": map[string]any{"sendDisplayEvent": true},
		"xdm":             xdm,
	}
}

// handleDecide answers with the response envelope for a page. GET takes the
// page from the url query parameter or the Referer header; POST takes a JSON
// event, with the cookie identity added when the event has none.
func (s *Server) handleDecide(w http.ResponseWriter, r *http.Request) {
	var event map[string]any
	switch r.Method {
	case http.MethodGet:
		pageURL := r.URL.Query().Get("url")
		if pageURL == "" {
			pageURL = r.Referer()
		}
		if pageURL == "" {
			http.Error(w, errMissingURL.Error(), http.StatusBadRequest)
			return
		}
		event = PageEvent(pageURL, edge.IdentityMapFromRequest(r))
	case http.MethodPost:
		var err error
		if event, err = s.decodeEvent(w, r); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	default:
		w.Header().Set("Allow", "GET, POST")
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	resp, err := s.decider.SendEvent(r.Context(), event)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "failed to decide", "error", err)
		middleware.WriteError(w, r, err)
		return
	}

	body, err := json.Marshal(resp)
	if err != nil {
		middleware.WriteError(w, r, fmt.Errorf("failed to encode response: %w", err))
		return
	}

	setECIDCookie(w, resp)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func (s *Server) decodeEvent(w http.ResponseWriter, r *http.Request) (map[string]any, error) {
	if s.config.MaxBodyBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxBodyBytes)
	}
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read event: %w", err)
	}
	if len(strings.TrimSpace(string(raw))) == 0 {
		return nil, errors.New("event body is required")
	}
	event, err := edge.DecodeObject(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid event: %w", err)
	}

	if _, ok := jsonutil.Lookup(event, "xdm", "identityMap"); !ok {
		if identityMap := edge.IdentityMapFromRequest(r); identityMap != nil {
			xdm, ok := jsonutil.AsMap(event["xdm"])
			if !ok {
				xdm = map[string]any{}
				event["xdm"] = xdm
			}
			xdm["identityMap"] = identityMap
		}
	}
	return event, nil
}

// setECIDCookie persists the response ECID for the next request.
func setECIDCookie(w http.ResponseWriter, resp *decisioning.Response) {
	if ecid := resp.ECID(); ecid != "" {
		http.SetCookie(w, edge.ECIDCookie(ecid))
	}
}
