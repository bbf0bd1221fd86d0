package source

import (
	"context"
	"fmt"

	"odd-hq/decisioning/pkg/edge"
)

const (
	// DefaultRuleDomain hosts published rules artifacts.
	DefaultRuleDomain = "assets.adobetarget.com"

	// DefaultRuleBasePath is the artifact base path.
	DefaultRuleBasePath = "aep-odd-rules"
)

// URLOptions identifies a rules artifact.
type URLOptions struct {
	OrgID         string
	DatastreamID  string
	PropertyToken string
	RuleDomain    string
	RuleBasePath  string
}

// RulesURL returns
// https://{domain}/{basePath}/{orgID}/production/v1/{propertyToken}/rules.json.
// The datastream id stands in for a missing property token, and empty
// segments are dropped.
func RulesURL(opts URLOptions) string {
	domain := opts.RuleDomain
	if domain == "" {
		domain = DefaultRuleDomain
	}
	basePath := opts.RuleBasePath
	if basePath == "" {
		basePath = DefaultRuleBasePath
	}
	token := opts.PropertyToken
	if token == "" {
		token = opts.DatastreamID
	}
	return "https://" + edge.JoinPath(domain, basePath, opts.OrgID, "production", "v1", token, "rules.json")
}

// HTTPSource downloads the rules artifact with a Fetcher.
type HTTPSource struct {
	url     string
	fetcher edge.Fetcher
}

// NewHTTPSource creates a source for the artifact identified by opts.
func NewHTTPSource(opts URLOptions, fetcher edge.Fetcher) *HTTPSource {
	return &HTTPSource{url: RulesURL(opts), fetcher: fetcher}
}

// Load fetches the artifact.
func (s *HTTPSource) Load(ctx context.Context) (map[string]any, error) {
	doc, err := s.fetcher.Fetch(ctx, s.url, &edge.RequestOptions{Method: "GET"})
	if err != nil {
		return nil, fmt.Errorf("%w, %w", ErrFetchRules, err)
	}
	return doc, nil
}

// Name returns "http".
func (s *HTTPSource) Name() string { return "http" }

// URL returns the artifact URL.
func (s *HTTPSource) URL() string { return s.url }
