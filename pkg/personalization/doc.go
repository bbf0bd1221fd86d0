// Package personalization applies decisions to an HTML document.
//
// The package does not parse HTML. A Rewriter, typically a streaming HTML
// rewriter, matches CSS selectors and hands each matched Element to the
// registered callbacks:
//
//	n := personalization.Apply(rw, resp, logger)
package personalization
