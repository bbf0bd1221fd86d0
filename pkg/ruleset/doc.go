// Package ruleset parses decisioning rules documents.
//
// A rules document is JSON of the form
//
//	{
//	  "version": 1,
//	  "metadata": {"provider": "TGT", "providerData": {"identityTemplate": "...", "buckets": 2}},
//	  "rules": [{"key": "...", "condition": {...}, "consequences": [...]}]
//	}
//
// Conditions are a tagged tree: a "matcher" leaf compares one context key, a
// "group" combines children with "and" or "or", and a "historical" node
// counts prior events. Parsing fails with a *ParseError on the first
// structural problem; an unrecognized condition type is always fatal.
//
// The embedded JSON Schema can be enabled with Parser.WithSchemaValidation to
// reject unknown matcher codes and other mistakes the tree builder tolerates.
package ruleset
