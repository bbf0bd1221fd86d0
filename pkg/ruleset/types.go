package ruleset

// ConditionType identifies the kind of condition node in a rule document.
type ConditionType string

const (
	// ConditionTypeMatcher is a leaf predicate over a single context key.
	ConditionTypeMatcher ConditionType = "matcher"

	// ConditionTypeGroup composes child conditions with and/or logic.
	ConditionTypeGroup ConditionType = "group"

	// ConditionTypeHistorical counts prior events from the context event index.
	ConditionTypeHistorical ConditionType = "historical"
)

// Logic is the boolean operator of a group condition.
type Logic string

const (
	LogicAnd Logic = "and"
	LogicOr  Logic = "or"
)

// SearchType selects how historical events are counted.
type SearchType string

const (
	// SearchTypeAny sums the counts of every matching event.
	SearchTypeAny SearchType = "any"

	// SearchTypeOrdered yields 1 when all events occurred in the listed order.
	SearchTypeOrdered SearchType = "ordered"
)

// ProviderTarget selects bucketed execution.
const ProviderTarget = "TGT"

// Ruleset is a parsed rules document. It is not modified after parsing and
// may be shared between goroutines.
type Ruleset struct {
	Version  any
	Rules    []*Rule
	Metadata *Metadata
}

// Rule pairs a condition with the consequences returned when it holds.
// Rules sharing a non-empty Key are allocated together in bucketed mode.
type Rule struct {
	Key          string
	Condition    Condition
	Consequences []Consequence
}

// Consequence is an action attached to a rule. Detail is opaque to the
// engine and is echoed into the decisions payload.
type Consequence struct {
	ID     string
	Type   string
	Detail any
}

// Metadata selects the execution strategy.
type Metadata struct {
	Provider string

	// ProviderData is nil when the document has no providerData object.
	ProviderData *ProviderData
}

// ProviderData configures bucketed allocation.
type ProviderData struct {
	// IdentityTemplate contains <key> and <identity> placeholders.
	IdentityTemplate string

	// Buckets is the partition count. Zero means missing.
	Buckets int
}

// Condition is a node of a rule's condition tree. The concrete type is one
// of *MatcherCondition, *GroupCondition or *HistoricalCondition.
type Condition interface {
	Type() ConditionType
	condition()
}

// MatcherCondition applies a named matcher to one context key.
type MatcherCondition struct {
	Key     string
	Matcher string
	Values  []any
}

// GroupCondition combines child conditions.
type GroupCondition struct {
	Logic      Logic
	Conditions []Condition
}

// HistoricalCondition compares an event count against Value.
type HistoricalCondition struct {
	// Events are descriptors; every field must equal the stored event's field.
	Events     []map[string]any
	Matcher    string
	Value      any
	From       *float64
	To         *float64
	SearchType SearchType
}

// Type returns ConditionTypeMatcher.
func (*MatcherCondition) Type() ConditionType { return ConditionTypeMatcher }

// Type returns ConditionTypeGroup.
func (*GroupCondition) Type() ConditionType { return ConditionTypeGroup }

// Type returns ConditionTypeHistorical.
func (*HistoricalCondition) Type() ConditionType { return ConditionTypeHistorical }

func (*MatcherCondition) condition()    {}
func (*GroupCondition) condition()      {}
func (*HistoricalCondition) condition() {}

// KeyedRules splits rules into those without a key, in declaration order,
// and key groups in first-seen order.
func (rs *Ruleset) KeyedRules() (noKey []*Rule, keys []string, groups map[string][]*Rule) {
	groups = make(map[string][]*Rule)
	for _, r := range rs.Rules {
		if r.Key == "" {
			noKey = append(noKey, r)
			continue
		}
		if _, seen := groups[r.Key]; !seen {
			keys = append(keys, r.Key)
		}
		groups[r.Key] = append(groups[r.Key], r)
	}
	return noKey, keys, groups
}

// Provider returns the metadata provider, or "" without metadata.
func (rs *Ruleset) Provider() string {
	if rs == nil || rs.Metadata == nil {
		return ""
	}
	return rs.Metadata.Provider
}
