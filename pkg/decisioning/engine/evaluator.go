package engine

import (
	"odd-hq/decisioning/pkg/ruleset"
)

// Evaluator evaluates condition trees against a context. It is safe for
// concurrent use once constructed.
type Evaluator struct {
	matchers map[string]MatcherFunc
}

// NewEvaluator creates an evaluator with the built-in matchers. Entries in
// overrides replace or extend them.
func NewEvaluator(overrides map[string]MatcherFunc) *Evaluator {
	matchers := DefaultMatchers()
	for code, fn := range overrides {
		matchers[code] = fn
	}
	return &Evaluator{matchers: matchers}
}

// Evaluate reports whether cond holds for ctx. A nil condition holds.
func (ev *Evaluator) Evaluate(cond ruleset.Condition, ctx Context) bool {
	switch c := cond.(type) {
	case nil:
		return true
	case *ruleset.MatcherCondition:
		return ev.evaluateMatcher(c, ctx)
	case *ruleset.GroupCondition:
		return ev.evaluateGroup(c, ctx)
	case *ruleset.HistoricalCondition:
		return evaluateHistorical(c, ctx)
	default:
		return false
	}
}

// evaluateMatcher fails closed for unknown operator codes.
func (ev *Evaluator) evaluateMatcher(c *ruleset.MatcherCondition, ctx Context) bool {
	fn, ok := ev.matchers[c.Matcher]
	if !ok {
		return false
	}
	return fn(ctx, c.Key, c.Values)
}

// evaluateGroup folds "and" over every child without stopping early, while
// "or" stops at the first child that holds.
func (ev *Evaluator) evaluateGroup(c *ruleset.GroupCondition, ctx Context) bool {
	switch c.Logic {
	case ruleset.LogicAnd:
		result := true
		for _, child := range c.Conditions {
			if !ev.Evaluate(child, ctx) {
				result = false
			}
		}
		return result
	case ruleset.LogicOr:
		for _, child := range c.Conditions {
			if ev.Evaluate(child, ctx) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// executeRule returns the rule's consequences when its condition holds.
func (ev *Evaluator) executeRule(rule *ruleset.Rule, ctx Context) []ruleset.Consequence {
	if !ev.Evaluate(rule.Condition, ctx) {
		return nil
	}
	return rule.Consequences
}

// evaluateRules keeps the non-empty results in declaration order.
func (ev *Evaluator) evaluateRules(rules []*ruleset.Rule, ctx Context) [][]ruleset.Consequence {
	var out [][]ruleset.Consequence
	for _, rule := range rules {
		if consequences := ev.executeRule(rule, ctx); len(consequences) > 0 {
			out = append(out, consequences)
		}
	}
	return out
}
