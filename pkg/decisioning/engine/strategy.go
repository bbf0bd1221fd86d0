package engine

import (
	"strings"

	"odd-hq/decisioning/internal/jsonutil"
	"odd-hq/decisioning/pkg/ruleset"
)

// Provider names reported by executors.
const (
	ProviderDefault = "DEFAULT"
	ProviderTarget  = ruleset.ProviderTarget
)

const (
	keyPlaceholder      = "<key>"
	identityPlaceholder = "<identity>"

	// AllocationKey is the context key bucketed rules match on.
	AllocationKey = "allocation"

	ecidNamespace = "ECID"
)

// Executor runs a ruleset against one context and returns the consequences
// of every matching rule, one slice per rule.
type Executor interface {
	Provider() string
	Execute(ctx Context) ([][]ruleset.Consequence, error)
}

// NewExecutor selects the strategy for rs from its metadata. Rulesets whose
// provider is TGT get a BucketedExecutor; everything else runs every rule.
func NewExecutor(rs *ruleset.Ruleset, evaluator *Evaluator, allocator *Allocator) (Executor, error) {
	if evaluator == nil {
		evaluator = NewEvaluator(nil)
	}
	if rs.Provider() != ProviderTarget {
		return &DefaultExecutor{rules: rs.Rules, evaluator: evaluator}, nil
	}
	if allocator == nil {
		allocator = NewAllocator()
	}
	return newBucketedExecutor(rs, evaluator, allocator)
}

// DefaultExecutor evaluates every rule against the shared context.
type DefaultExecutor struct {
	rules     []*ruleset.Rule
	evaluator *Evaluator
}

// Provider returns ProviderDefault.
func (e *DefaultExecutor) Provider() string { return ProviderDefault }

// Execute returns the non-empty rule results in declaration order.
func (e *DefaultExecutor) Execute(ctx Context) ([][]ruleset.Consequence, error) {
	return e.evaluator.evaluateRules(e.rules, ctx), nil
}

// BucketedExecutor allocates the visitor into a bucket per rule key and
// exposes the allocation to that key's rules.
type BucketedExecutor struct {
	noKey     []*ruleset.Rule
	keys      []string
	groups    map[string][]*ruleset.Rule
	template  string
	buckets   int
	evaluator *Evaluator
	allocator *Allocator
}

func newBucketedExecutor(rs *ruleset.Ruleset, evaluator *Evaluator, allocator *Allocator) (*BucketedExecutor, error) {
	data := rs.Metadata.ProviderData
	switch {
	case data == nil:
		return nil, ErrProviderDataMissing
	case data.IdentityTemplate == "":
		return nil, ErrIdentityTemplateMissing
	case data.Buckets <= 0:
		return nil, ErrBucketsMissing
	}

	noKey, keys, groups := rs.KeyedRules()
	return &BucketedExecutor{
		noKey:     noKey,
		keys:      keys,
		groups:    groups,
		template:  data.IdentityTemplate,
		buckets:   data.Buckets,
		evaluator: evaluator,
		allocator: allocator,
	}, nil
}

// Provider returns ProviderTarget.
func (e *BucketedExecutor) Provider() string { return ProviderTarget }

// Execute evaluates rules without a key on the shared context, then each
// key group, in first-seen order, on the context plus its allocation.
func (e *BucketedExecutor) Execute(ctx Context) ([][]ruleset.Consequence, error) {
	identity, err := ExtractIdentity(ctx)
	if err != nil {
		return nil, &ExecutionError{Provider: ProviderTarget, Cause: err}
	}

	results := e.evaluator.evaluateRules(e.noKey, ctx)
	for _, key := range e.keys {
		allocation := e.allocator.Allocate(BucketID(e.template, key, identity), e.buckets)
		results = append(results, e.evaluator.evaluateRules(e.groups[key], withAllocation(ctx, allocation))...)
	}
	return results, nil
}

// BucketID substitutes the first <key> and <identity> placeholders.
func BucketID(template, key, identity string) string {
	id := strings.Replace(template, keyPlaceholder, key, 1)
	return strings.Replace(id, identityPlaceholder, identity, 1)
}

// withAllocation returns a copy of ctx with the allocation added. A key
// already present in ctx is kept.
func withAllocation(ctx Context, allocation float64) Context {
	out := make(Context, len(ctx)+1)
	out[AllocationKey] = allocation
	for k, v := range ctx {
		out[k] = v
	}
	return out
}

// ExtractIdentity returns xdm.identityMap.ECID[0].id from the context.
func ExtractIdentity(ctx Context) (string, error) {
	xdm, ok := jsonutil.AsMap(ctx["xdm"])
	if !ok {
		return "", ErrXDMMissing
	}
	identityMap, ok := jsonutil.AsMap(xdm["identityMap"])
	if !ok {
		return "", ErrIdentityMapMissing
	}
	raw, present := identityMap[ecidNamespace]
	if !present || raw == nil {
		return "", ErrECIDNamespaceMissing
	}
	identities, ok := jsonutil.AsSlice(raw)
	if !ok || len(identities) == 0 {
		return "", ErrECIDIdentitiesInvalid
	}
	first, _ := jsonutil.AsMap(identities[0])
	id := first["id"]
	if !truthy(id) || jsonutil.IsComposite(id) {
		return "", ErrECIDIdentityMissing
	}
	return jsonutil.String(id), nil
}
