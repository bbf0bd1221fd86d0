package server

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"odd-hq/decisioning/pkg/edge"
	"odd-hq/decisioning/pkg/personalization"
	"odd-hq/decisioning/pkg/server/middleware"
)

// Response headers of the origin that are not copied to the client.
var skippedOriginHeaders = map[string]bool{
	"Connection":        true,
	"Content-Length":    true,
	"Keep-Alive":        true,
	"Transfer-Encoding": true,
	"Upgrade":           true,
}

// handlePage proxies the origin page for the request path and applies the
// page's decisions to it. Non-HTML and unsuccessful origin responses pass
// through unchanged.
func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	event := PageEvent(publicURL(r), edge.IdentityMapFromRequest(r))
	resp, err := s.decider.SendEvent(r.Context(), event)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "failed to decide", "error", err)
		middleware.WriteError(w, r, err)
		return
	}

	originResp, err := s.fetchOrigin(r)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "failed to fetch origin", "error", err)
		middleware.WriteError(w, r, err)
		return
	}
	defer originResp.Body.Close()

	copyHeaders(w.Header(), originResp.Header)
	setECIDCookie(w, resp)

	if !isHTML(originResp) || originResp.StatusCode < 200 || originResp.StatusCode >= 300 {
		w.WriteHeader(originResp.StatusCode)
		_, _ = io.Copy(w, originResp.Body)
		return
	}

	page, err := s.readOrigin(originResp.Body)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	rw := personalization.NewHTMLRewriter(s.logger)
	rw.OnElement("head", func(el personalization.Element) {
		el.Append(s.browserConfig())
	})
	applied := personalization.Apply(rw, resp, s.logger)

	var out bytes.Buffer
	if err := rw.Rewrite(&out, bytes.NewReader(page)); err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	s.logger.DebugContext(r.Context(), "personalized page",
		"path", r.URL.Path,
		"content_items", applied,
	)
	w.WriteHeader(originResp.StatusCode)
	if r.Method != http.MethodHead {
		_, _ = w.Write(out.Bytes())
	}
}

// browserConfig tells the page's browser SDK that decisions were already
// applied on the server.
func (s *Server) browserConfig() string {
	return fmt.Sprintf(
		"<script>window.oddServerSideConfig = {preventAlloyImport: true, timestamp: %d};</script>",
		s.now().UnixMilli(),
	)
}

func (s *Server) fetchOrigin(r *http.Request) (*http.Response, error) {
	target, err := originURL(s.config.OriginURL, r.URL)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create origin request: %w", err)
	}
	for _, h := range []string{"Accept", "Accept-Language", "User-Agent"} {
		if v := r.Header.Get(h); v != "" {
			req.Header.Set(h, v)
		}
	}
	resp, err := s.origin.Do(req)
	if err != nil {
		return nil, fmt.Errorf("origin request failed: %w", err)
	}
	return resp, nil
}

func (s *Server) readOrigin(body io.Reader) ([]byte, error) {
	if s.config.MaxBodyBytes <= 0 {
		return io.ReadAll(body)
	}
	page, err := io.ReadAll(io.LimitReader(body, s.config.MaxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read origin page: %w", err)
	}
	if int64(len(page)) > s.config.MaxBodyBytes {
		return nil, fmt.Errorf("origin page exceeds %d bytes", s.config.MaxBodyBytes)
	}
	return page, nil
}

// originURL maps the request path and query onto the origin.
func originURL(origin string, reqURL *url.URL) (string, error) {
	base, err := url.Parse(origin)
	if err != nil {
		return "", fmt.Errorf("invalid origin url: %w", err)
	}
	u := *base
	u.Path = strings.TrimSuffix(base.Path, "/") + reqURL.Path
	u.RawPath = ""
	u.RawQuery = reqURL.RawQuery
	return u.String(), nil
}

// publicURL is the address the visitor requested.
func publicURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	return scheme + "://" + r.Host + r.URL.RequestURI()
}

func isHTML(resp *http.Response) bool {
	mediaType, _, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	return err == nil && mediaType == "text/html"
}

func copyHeaders(dst, src http.Header) {
	for k, vs := range src {
		if skippedOriginHeaders[k] {
			continue
		}
		for _, v := range vs {
			dst.Add(k, v)
		}
	}
}
