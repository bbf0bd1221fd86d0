package personalization

import (
	"fmt"
	"log/slog"

	"odd-hq/decisioning/pkg/decisioning"
)

// Element is a matched element of the document being rewritten.
type Element interface {
	ReplaceWith(html string)
	SetInnerHTML(html string)
	Append(html string)
	Prepend(html string)
}

// Rewriter registers callbacks for elements matching a CSS selector.
type Rewriter interface {
	OnElement(selector string, fn func(Element))
}

// Content item types.
const (
	TypeReplaceWith = "replaceWith"
	TypeSetHTML     = "setHtml"
	TypeAppendHTML  = "appendHtml"
	TypePrependHTML = "prependHtml"
	defaultItemType = TypeReplaceWith
)

// Apply registers one rewrite per content item of resp and returns how many
// were registered. Items replace the matched element unless their type
// selects another change.
func Apply(rw Rewriter, resp *decisioning.Response, logger *slog.Logger) int {
	if logger == nil {
		logger = slog.Default()
	}
	registered := 0
	for _, item := range resp.ContentItems() {
		change, err := changeFor(item)
		if err != nil {
			logger.Warn("skipping content item",
				"selector", item.Selector,
				"error", err,
			)
			continue
		}
		rw.OnElement(item.Selector, change)
		registered++
		logger.Debug("registered content item",
			"selector", item.Selector,
			"type", item.Type,
		)
	}
	return registered
}

func changeFor(item decisioning.ContentItem) (func(Element), error) {
	payload := item.Payload
	kind := item.Type
	if kind == "" {
		kind = defaultItemType
	}
	switch kind {
	case TypeReplaceWith:
		return func(el Element) { el.ReplaceWith(payload) }, nil
	case TypeSetHTML:
		return func(el Element) { el.SetInnerHTML(payload) }, nil
	case TypeAppendHTML:
		return func(el Element) { el.Append(payload) }, nil
	case TypePrependHTML:
		return func(el Element) { el.Prepend(payload) }, nil
	default:
		return nil, fmt.Errorf("unsupported content item type %q", kind)
	}
}
