// Package engine evaluates parsed rulesets against event contexts.
//
// # Evaluation
//
// A Context is an event merged with its Flatten view, so matchers can address
// nested fields by dot path ("xdm.web.webPageDetails.URL"). Matchers are pure
// and fail closed: a missing or mistyped value evaluates false, and an
// unknown operator code never matches. Group "and" evaluates every child in
// order, while "or" stops at the first child that holds. Historical conditions
// read the prior-event index stored under the "events" key.
//
// # Strategies
//
// NewExecutor picks a strategy once per ruleset. Rulesets with provider "TGT"
// run on a BucketedExecutor: the visitor's ECID is combined with each rule key
// through the identity template, hashed, and turned into an allocation
// percentage that the key's rules can match on. Allocations are memoized by an
// Allocator per engine. Every other ruleset runs on a DefaultExecutor.
//
// # Concurrency
//
// Engine holds the active ruleset behind an atomic pointer. Load replaces it
// without blocking Execute, and each Execute call sees one consistent
// snapshot.
package engine
