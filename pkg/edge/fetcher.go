package edge

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/tidwall/gjson"

	"odd-hq/decisioning/pkg/telemetry/tracing"
)

// maxErrorBody bounds how much of a failed response is kept in a StatusError.
const maxErrorBody = 512

// RequestOptions describes an outbound request.
type RequestOptions struct {
	// Method defaults to GET, or POST when Body is set.
	Method  string
	Headers map[string]string
	Body    []byte
}

// Fetcher performs a request and decodes a JSON object response.
// A 204 response yields a nil map and a nil error.
type Fetcher interface {
	Fetch(ctx context.Context, url string, opts *RequestOptions) (map[string]any, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, url string, opts *RequestOptions) (map[string]any, error)

// Fetch calls f.
func (f FetcherFunc) Fetch(ctx context.Context, url string, opts *RequestOptions) (map[string]any, error) {
	return f(ctx, url, opts)
}

// HTTPFetcher is a Fetcher backed by net/http.
type HTTPFetcher struct {
	client *http.Client
	logger *slog.Logger
}

// NewHTTPFetcher creates a fetcher whose requests time out after timeout.
// A zero timeout leaves requests bounded only by their context.
func NewHTTPFetcher(timeout time.Duration, logger *slog.Logger) *HTTPFetcher {
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		ForceAttemptHTTP2:   true,
	}
	return NewHTTPFetcherWithClient(&http.Client{Transport: transport, Timeout: timeout}, logger)
}

// NewHTTPFetcherWithClient creates a fetcher around an existing client.
func NewHTTPFetcherWithClient(client *http.Client, logger *slog.Logger) *HTTPFetcher {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPFetcher{client: client, logger: logger}
}

// Fetch sends the request and decodes the response body.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string, opts *RequestOptions) (map[string]any, error) {
	if opts == nil {
		opts = &RequestOptions{}
	}
	method := opts.Method
	if method == "" {
		method = http.MethodGet
		if opts.Body != nil {
			method = http.MethodPost
		}
	}

	var body io.Reader
	if opts.Body != nil {
		body = bytes.NewReader(opts.Body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, &RequestError{URL: url, Cause: err}
	}
	for k, v := range opts.Headers {
		req.Header.Set(k, v)
	}
	tracing.Inject(ctx, req.Header)

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		f.logger.Warn("request failed",
			"method", method,
			"url", url,
			"error", err,
		)
		return nil, &RequestError{URL: url, Cause: err}
	}
	defer resp.Body.Close()

	f.logger.Debug("request completed",
		"method", method,
		"url", url,
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)

	if resp.StatusCode == http.StatusNoContent {
		return nil, nil
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &RequestError{URL: url, Cause: fmt.Errorf("failed to read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if len(raw) > maxErrorBody {
			raw = raw[:maxErrorBody]
		}
		return nil, &StatusError{URL: url, StatusCode: resp.StatusCode, Body: string(raw)}
	}

	if f.logger.Enabled(ctx, slog.LevelDebug) {
		f.logger.DebugContext(ctx, "response received",
			"url", url,
			"request_id", RequestIDFromBody(raw),
			"ecid", ECIDFromBody(raw),
		)
	}
	return DecodeObject(raw)
}

// DecodeObject decodes a JSON object. Numbers decode as float64.
func DecodeObject(raw []byte) (map[string]any, error) {
	if !gjson.ValidBytes(raw) {
		return nil, fmt.Errorf("%w: malformed json", ErrInvalidResponse)
	}
	result := gjson.ParseBytes(raw)
	if !result.IsObject() {
		return nil, fmt.Errorf("%w: expected an object, got %s", ErrInvalidResponse, result.Type)
	}
	obj, _ := result.Value().(map[string]any)
	return obj, nil
}
