package personalization

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// HTMLRewriter is a Rewriter over a parsed HTML document. Callbacks are
// registered with OnElement and run by Rewrite in registration order.
type HTMLRewriter struct {
	handlers []handler
	logger   *slog.Logger
}

type handler struct {
	sel *selector
	fn  func(Element)
}

// NewHTMLRewriter creates an empty rewriter.
func NewHTMLRewriter(logger *slog.Logger) *HTMLRewriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &HTMLRewriter{logger: logger.With("component", "personalization.rewriter")}
}

// OnElement registers fn for every element matching selector. Selectors
// outside the supported subset are logged and skipped, so the page is still
// served without that change.
func (r *HTMLRewriter) OnElement(selector string, fn func(Element)) {
	sel, err := parseSelector(selector)
	if err != nil {
		r.logger.Warn("skipping unsupported selector",
			"selector", selector,
			"error", err,
		)
		return
	}
	r.handlers = append(r.handlers, handler{sel: sel, fn: fn})
}

// Rewrite parses the document from src, applies the registered callbacks and
// renders the result to dst. Elements are matched against the document as it
// was before any callback ran. Only parse and render failures are errors.
func (r *HTMLRewriter) Rewrite(dst io.Writer, src io.Reader) error {
	doc, err := html.Parse(src)
	if err != nil {
		return fmt.Errorf("failed to parse document: %w", err)
	}

	matched := make([][]*html.Node, len(r.handlers))
	walk(doc, func(n *html.Node) {
		for i, h := range r.handlers {
			if h.sel.matches(n) {
				matched[i] = append(matched[i], n)
			}
		}
	})

	for i, h := range r.handlers {
		for _, n := range matched[i] {
			if n.Parent == nil {
				// Detached by an earlier replacement.
				continue
			}
			el := &nodeElement{node: n, logger: r.logger}
			h.fn(el)
		}
		r.logger.Debug("applied selector",
			"selector", h.sel.raw,
			"matches", len(matched[i]),
		)
	}

	if err := html.Render(dst, doc); err != nil {
		return fmt.Errorf("failed to render document: %w", err)
	}
	return nil
}

// RewriteString is Rewrite over strings.
func (r *HTMLRewriter) RewriteString(document string) (string, error) {
	var sb strings.Builder
	if err := r.Rewrite(&sb, strings.NewReader(document)); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func walk(n *html.Node, fn func(*html.Node)) {
	fn(n)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, fn)
	}
}

// nodeElement implements Element on an html.Node.
type nodeElement struct {
	node   *html.Node
	logger *slog.Logger
}

func (e *nodeElement) ReplaceWith(markup string) {
	parent := e.node.Parent
	if parent == nil {
		return
	}
	for _, n := range e.fragment(parent, markup) {
		parent.InsertBefore(n, e.node)
	}
	parent.RemoveChild(e.node)
}

func (e *nodeElement) SetInnerHTML(markup string) {
	for c := e.node.FirstChild; c != nil; c = e.node.FirstChild {
		e.node.RemoveChild(c)
	}
	e.Append(markup)
}

func (e *nodeElement) Append(markup string) {
	for _, n := range e.fragment(e.node, markup) {
		e.node.AppendChild(n)
	}
}

func (e *nodeElement) Prepend(markup string) {
	first := e.node.FirstChild
	for _, n := range e.fragment(e.node, markup) {
		if first == nil {
			e.node.AppendChild(n)
		} else {
			e.node.InsertBefore(n, first)
		}
	}
}

// fragment parses markup in the context of the given element. A parse
// failure falls back to a text node so the document stays renderable.
func (e *nodeElement) fragment(context *html.Node, markup string) []*html.Node {
	if context.Type != html.ElementNode {
		context = &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	}
	nodes, err := html.ParseFragment(strings.NewReader(markup), context)
	if err != nil {
		e.logger.Warn("failed to parse content payload", "error", err)
		return []*html.Node{{Type: html.TextNode, Data: markup}}
	}
	return nodes
}
