package engine

import (
	"testing"

	"odd-hq/decisioning/pkg/ruleset"
)

// recordingEvaluator returns an evaluator whose "rec" matcher returns the
// boolean candidate value and logs the order in which keys were evaluated.
func recordingEvaluator(calls *[]string) *Evaluator {
	return NewEvaluator(map[string]MatcherFunc{
		"rec": func(_ Context, key string, values []any) bool {
			*calls = append(*calls, key)
			b, _ := values[0].(bool)
			return b
		},
	})
}

func rec(key string, result bool) *ruleset.MatcherCondition {
	return &ruleset.MatcherCondition{Key: key, Matcher: "rec", Values: []any{result}}
}

func TestEvaluator_GroupAnd_EvaluatesAllChildren(t *testing.T) {
	var calls []string
	ev := recordingEvaluator(&calls)

	group := &ruleset.GroupCondition{
		Logic:      ruleset.LogicAnd,
		Conditions: []ruleset.Condition{rec("a", true), rec("b", false), rec("c", true)},
	}

	if got := ev.Evaluate(group, Context{}); got {
		t.Errorf("Evaluate(and[t,f,t]) = %v, want false", got)
	}
	if len(calls) != 3 || calls[0] != "a" || calls[1] != "b" || calls[2] != "c" {
		t.Errorf("evaluated = %v, want [a b c]", calls)
	}
}

func TestEvaluator_GroupOr_StopsAtFirstTrue(t *testing.T) {
	var calls []string
	ev := recordingEvaluator(&calls)

	group := &ruleset.GroupCondition{
		Logic:      ruleset.LogicOr,
		Conditions: []ruleset.Condition{rec("a", false), rec("b", false), rec("c", true), rec("d", true)},
	}

	if got := ev.Evaluate(group, Context{}); !got {
		t.Errorf("Evaluate(or[f,f,t,t]) = %v, want true", got)
	}
	if len(calls) != 3 {
		t.Errorf("evaluated = %v, want [a b c]", calls)
	}
}

func TestEvaluator_Group(t *testing.T) {
	ev := NewEvaluator(nil)
	yes := &ruleset.MatcherCondition{Key: "k", Matcher: "ex"}
	no := &ruleset.MatcherCondition{Key: "missing", Matcher: "ex"}

	tests := []struct {
		name string
		cond ruleset.Condition
		want bool
	}{
		{name: "and all true", cond: &ruleset.GroupCondition{Logic: ruleset.LogicAnd, Conditions: []ruleset.Condition{yes, yes}}, want: true},
		{name: "and empty", cond: &ruleset.GroupCondition{Logic: ruleset.LogicAnd}, want: true},
		{name: "or all false", cond: &ruleset.GroupCondition{Logic: ruleset.LogicOr, Conditions: []ruleset.Condition{no, no}}, want: false},
		{name: "or empty", cond: &ruleset.GroupCondition{Logic: ruleset.LogicOr}, want: false},
		{name: "unknown logic", cond: &ruleset.GroupCondition{Logic: "xor", Conditions: []ruleset.Condition{yes}}, want: false},
		{
			name: "nested",
			cond: &ruleset.GroupCondition{Logic: ruleset.LogicOr, Conditions: []ruleset.Condition{
				no,
				&ruleset.GroupCondition{Logic: ruleset.LogicAnd, Conditions: []ruleset.Condition{yes, yes}},
			}},
			want: true,
		},
		{name: "unknown matcher fails closed", cond: &ruleset.MatcherCondition{Key: "k", Matcher: "regex"}, want: false},
		{name: "nil condition holds", cond: nil, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ev.Evaluate(tt.cond, Context{"k": "v"}); got != tt.want {
				t.Errorf("Evaluate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEvaluator_EvaluateRules(t *testing.T) {
	ev := NewEvaluator(nil)
	c1 := ruleset.Consequence{ID: "c1"}
	c2 := ruleset.Consequence{ID: "c2"}
	c3 := ruleset.Consequence{ID: "c3"}

	rules := []*ruleset.Rule{
		{Condition: &ruleset.MatcherCondition{Key: "page", Matcher: "eq", Values: []any{"home"}}, Consequences: []ruleset.Consequence{c1}},
		{Condition: &ruleset.MatcherCondition{Key: "page", Matcher: "eq", Values: []any{"cart"}}, Consequences: []ruleset.Consequence{c2}},
		{Condition: &ruleset.MatcherCondition{Key: "page", Matcher: "ex"}, Consequences: []ruleset.Consequence{c3}},
		{Condition: &ruleset.MatcherCondition{Key: "page", Matcher: "ex"}},
	}

	got := ev.evaluateRules(rules, Context{"page": "Home"})
	if len(got) != 2 {
		t.Fatalf("len(evaluateRules()) = %d, want 2", len(got))
	}
	if got[0][0].ID != "c1" || got[1][0].ID != "c3" {
		t.Errorf("evaluateRules() = %v, want [[c1] [c3]]", got)
	}
}
