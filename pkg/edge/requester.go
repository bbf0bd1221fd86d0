package edge

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

const (
	// DefaultEdgeDomain is the edge network host.
	DefaultEdgeDomain = "edge.adobedc.net"

	// DefaultEdgeBasePath is the edge network base path.
	DefaultEdgeBasePath = "ee"

	// EndpointInteract returns personalization decisions for an event.
	EndpointInteract = "interact"

	// EndpointCollect records events without a response payload.
	EndpointCollect = "collect"

	edgeVersionPath = "irl1/v2"
)

// DefaultRequestHeaders are sent with every edge request.
var DefaultRequestHeaders = map[string]string{
	"accept":          "*/*",
	"accept-language": "en-US,en;q=0.9",
	"cache-control":   "no-cache",
	"content-type":    "text/plain; charset=UTF-8",
	"pragma":          "no-cache",
	"sec-fetch-dest":  "empty",
	"sec-fetch-mode":  "cors",
	"sec-fetch-site":  "cross-site",
	"sec-gpc":         "1",
	"Referrer-Policy": "strict-origin-when-cross-origin",
}

// IDGenerator produces request ids. *identity.Generator implements it.
type IDGenerator interface {
	UUID() (string, error)
}

// RequesterOptions identifies the datastream and edge endpoint.
type RequesterOptions struct {
	DatastreamID string
	EdgeDomain   string
	EdgeBasePath string
}

// Requester posts events to the edge network.
type Requester struct {
	opts    RequesterOptions
	fetcher Fetcher
	ids     IDGenerator
}

// NewRequester creates a requester.
func NewRequester(opts RequesterOptions, fetcher Fetcher, ids IDGenerator) (*Requester, error) {
	if opts.DatastreamID == "" {
		return nil, ErrMissingDatastream
	}
	if fetcher == nil {
		return nil, fmt.Errorf("fetcher is required")
	}
	if ids == nil {
		return nil, fmt.Errorf("id generator is required")
	}
	return &Requester{opts: opts, fetcher: fetcher, ids: ids}, nil
}

// URL returns the URL of an edge endpoint with a fresh request id.
func (r *Requester) URL(endpoint string) (string, error) {
	requestID, err := r.ids.UUID()
	if err != nil {
		return "", err
	}
	return EdgeURL(r.opts, endpoint, requestID), nil
}

// EdgeURL builds https://{domain}/{basePath}/irl1/v2/{endpoint}?dataStreamId=..&requestId=..
// Empty path segments are dropped.
func EdgeURL(opts RequesterOptions, endpoint, requestID string) string {
	domain := opts.EdgeDomain
	if domain == "" {
		domain = DefaultEdgeDomain
	}
	basePath := opts.EdgeBasePath
	if basePath == "" {
		basePath = DefaultEdgeBasePath
	}

	query := url.Values{}
	query.Set("dataStreamId", opts.DatastreamID)
	query.Set("requestId", requestID)

	return "https://" + JoinPath(domain, basePath, edgeVersionPath, endpoint) + "?" + query.Encode()
}

// JoinPath joins non-empty segments with "/".
func JoinPath(segments ...string) string {
	parts := make([]string, 0, len(segments))
	for _, s := range segments {
		s = strings.Trim(s, "/")
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "/")
}

// Interact posts {"event": event} to the interact endpoint and returns the
// decoded response.
func (r *Requester) Interact(ctx context.Context, event map[string]any) (map[string]any, error) {
	return r.post(ctx, EndpointInteract, map[string]any{"event": event})
}

// Collect posts {"events": [event]} to the collect endpoint. The edge
// network answers collect calls with 204, so the result is usually nil.
func (r *Requester) Collect(ctx context.Context, event map[string]any) (map[string]any, error) {
	return r.post(ctx, EndpointCollect, map[string]any{"events": []any{event}})
}

func (r *Requester) post(ctx context.Context, endpoint string, payload map[string]any) (map[string]any, error) {
	target, err := r.URL(endpoint)
	if err != nil {
		return nil, err
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s request: %w", endpoint, err)
	}
	headers := make(map[string]string, len(DefaultRequestHeaders))
	for k, v := range DefaultRequestHeaders {
		headers[k] = v
	}
	return r.fetcher.Fetch(ctx, target, &RequestOptions{
		Method:  "POST",
		Headers: headers,
		Body:    body,
	})
}
