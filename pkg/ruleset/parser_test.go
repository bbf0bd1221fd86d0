package ruleset

import (
	"errors"
	"os"
	"strings"
	"testing"
)

func loadFixture(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile("testdata/" + name)
	if err != nil {
		t.Fatalf("failed to read fixture: %v", err)
	}
	return data
}

func TestParse_TargetRuleset(t *testing.T) {
	rs, err := Parse(loadFixture(t, "target-rules.json"))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if rs.Provider() != ProviderTarget {
		t.Errorf("Provider() = %q, want %q", rs.Provider(), ProviderTarget)
	}
	if rs.Metadata.ProviderData == nil {
		t.Fatal("ProviderData = nil, want populated")
	}
	if got := rs.Metadata.ProviderData.IdentityTemplate; got != "template.<key>.<identity>" {
		t.Errorf("IdentityTemplate = %q", got)
	}
	if got := rs.Metadata.ProviderData.Buckets; got != 2 {
		t.Errorf("Buckets = %d, want 2", got)
	}
	if len(rs.Rules) != 3 {
		t.Fatalf("len(Rules) = %d, want 3", len(rs.Rules))
	}

	first := rs.Rules[0]
	if first.Key != "" {
		t.Errorf("Rules[0].Key = %q, want empty", first.Key)
	}
	matcher, ok := first.Condition.(*MatcherCondition)
	if !ok {
		t.Fatalf("Rules[0].Condition = %T, want *MatcherCondition", first.Condition)
	}
	if matcher.Key != "xdm.web.webPageDetails.URL" || matcher.Matcher != "co" {
		t.Errorf("matcher = %+v", matcher)
	}

	keyed := rs.Rules[1]
	if keyed.Key != "activity2" {
		t.Errorf("Rules[1].Key = %q, want activity2", keyed.Key)
	}
	group, ok := keyed.Condition.(*GroupCondition)
	if !ok {
		t.Fatalf("Rules[1].Condition = %T, want *GroupCondition", keyed.Condition)
	}
	if group.Logic != LogicAnd || len(group.Conditions) != 1 {
		t.Fatalf("group = %+v", group)
	}
	child := group.Conditions[0].(*MatcherCondition)
	if child.Key != "allocation" || child.Matcher != "lt" {
		t.Errorf("child = %+v", child)
	}
	if len(child.Values) != 1 || child.Values[0] != float64(50) {
		t.Errorf("child.Values = %v, want [50]", child.Values)
	}

	if len(keyed.Consequences) != 1 || keyed.Consequences[0].ID != "consequence-3" {
		t.Errorf("Consequences = %+v", keyed.Consequences)
	}
	detail, ok := keyed.Consequences[0].Detail.(map[string]any)
	if !ok || detail["id"] != "proposition-1" {
		t.Errorf("Detail = %v", keyed.Consequences[0].Detail)
	}
}

func TestParse_Historical(t *testing.T) {
	doc := `{"rules":[{"condition":{"type":"historical","definition":{
		"events":[{"iam.eventType":"display","iam.id":"abc"},{"eventType":"click","id":"def"}],
		"matcher":"ge","value":1,"from":10,"to":20,"searchType":"ordered"}},
		"consequences":[]}]}`

	rs, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	h, ok := rs.Rules[0].Condition.(*HistoricalCondition)
	if !ok {
		t.Fatalf("Condition = %T, want *HistoricalCondition", rs.Rules[0].Condition)
	}
	if len(h.Events) != 2 || h.Events[0]["iam.id"] != "abc" {
		t.Errorf("Events = %v", h.Events)
	}
	if h.Matcher != "ge" || h.Value != float64(1) {
		t.Errorf("Matcher, Value = %s, %v", h.Matcher, h.Value)
	}
	if h.From == nil || *h.From != 10 || h.To == nil || *h.To != 20 {
		t.Errorf("From, To = %v, %v", h.From, h.To)
	}
	if h.SearchType != SearchTypeOrdered {
		t.Errorf("SearchType = %q, want ordered", h.SearchType)
	}
	if rs.Metadata != nil {
		t.Errorf("Metadata = %+v, want nil", rs.Metadata)
	}
}

func TestParse_OptionalWindow(t *testing.T) {
	doc := `{"rules":[{"condition":{"type":"historical","definition":{
		"events":[],"matcher":"eq","value":0}},"consequences":[]}]}`

	rs, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	h := rs.Rules[0].Condition.(*HistoricalCondition)
	if h.From != nil || h.To != nil {
		t.Errorf("From, To = %v, %v, want nil, nil", h.From, h.To)
	}
}

func TestParse_Metadata(t *testing.T) {
	tests := []struct {
		name        string
		metadata    string
		wantData    bool
		wantBuckets int
	}{
		{name: "no provider data", metadata: `{"provider":"TGT"}`, wantData: false},
		{name: "integer buckets", metadata: `{"provider":"TGT","providerData":{"buckets":4}}`, wantData: true, wantBuckets: 4},
		{name: "fractional buckets", metadata: `{"provider":"TGT","providerData":{"buckets":2.5}}`, wantData: true, wantBuckets: 0},
		{name: "string buckets", metadata: `{"provider":"TGT","providerData":{"buckets":"2"}}`, wantData: true, wantBuckets: 0},
		{name: "zero buckets", metadata: `{"provider":"TGT","providerData":{"buckets":0}}`, wantData: true, wantBuckets: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rs, err := Parse([]byte(`{"rules":[],"metadata":` + tt.metadata + `}`))
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			pd := rs.Metadata.ProviderData
			if (pd != nil) != tt.wantData {
				t.Fatalf("ProviderData = %+v, wantData %v", pd, tt.wantData)
			}
			if pd != nil && pd.Buckets != tt.wantBuckets {
				t.Errorf("Buckets = %d, want %d", pd.Buckets, tt.wantBuckets)
			}
		})
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name     string
		doc      string
		wantPath string
	}{
		{name: "invalid json", doc: `{"rules":`, wantPath: ""},
		{name: "not an object", doc: `[]`, wantPath: ""},
		{name: "rules missing", doc: `{}`, wantPath: "/rules"},
		{name: "rules not array", doc: `{"rules":{}}`, wantPath: "/rules"},
		{name: "rule not object", doc: `{"rules":[1]}`, wantPath: "/rules/0"},
		{
			name:     "unknown condition type",
			doc:      `{"rules":[{"condition":{"type":"script","definition":{}},"consequences":[]}]}`,
			wantPath: "/rules/0/condition/type",
		},
		{
			name:     "missing definition",
			doc:      `{"rules":[{"condition":{"type":"matcher"},"consequences":[]}]}`,
			wantPath: "/rules/0/condition/definition",
		},
		{
			name:     "missing consequences",
			doc:      `{"rules":[{"condition":{"type":"matcher","definition":{"key":"a","matcher":"ex"}}}]}`,
			wantPath: "/rules/0/consequences",
		},
		{
			name:     "group without conditions",
			doc:      `{"rules":[{"condition":{"type":"group","definition":{"logic":"and"}},"consequences":[]}]}`,
			wantPath: "/rules/0/condition/definition/conditions",
		},
		{
			name: "nested unknown type",
			doc: `{"rules":[{"condition":{"type":"group","definition":{"logic":"or","conditions":[
				{"type":"matcher","definition":{"key":"a","matcher":"ex"}},
				{"type":"nope","definition":{}}]}},"consequences":[]}]}`,
			wantPath: "/rules/0/condition/definition/conditions/1/type",
		},
		{
			name:     "values not array",
			doc:      `{"rules":[{"condition":{"type":"matcher","definition":{"key":"a","matcher":"eq","values":"x"}},"consequences":[]}]}`,
			wantPath: "/rules/0/condition/definition/values",
		},
		{
			name:     "metadata not object",
			doc:      `{"rules":[],"metadata":"TGT"}`,
			wantPath: "/metadata",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			if err == nil {
				t.Fatal("Parse() error = nil, want error")
			}
			if !errors.Is(err, ErrInvalidRuleset) {
				t.Errorf("Parse() error = %v, want ErrInvalidRuleset", err)
			}
			var perr *ParseError
			if !errors.As(err, &perr) {
				t.Fatalf("Parse() error = %T, want *ParseError", err)
			}
			if perr.Path != tt.wantPath {
				t.Errorf("ParseError.Path = %q, want %q", perr.Path, tt.wantPath)
			}
		})
	}
}

func TestParser_MaxDepth(t *testing.T) {
	leaf := `{"type":"matcher","definition":{"key":"a","matcher":"ex"}}`
	cond := leaf
	for i := 0; i < 4; i++ {
		cond = `{"type":"group","definition":{"logic":"and","conditions":[` + cond + `]}}`
	}
	doc := []byte(`{"rules":[{"condition":` + cond + `,"consequences":[]}]}`)

	if _, err := NewParser().WithMaxDepth(4).Parse(doc); err != nil {
		t.Errorf("Parse() at depth limit error = %v", err)
	}
	_, err := NewParser().WithMaxDepth(3).Parse(doc)
	if err == nil || !strings.Contains(err.Error(), "maximum depth") {
		t.Errorf("Parse() over depth limit error = %v, want depth error", err)
	}
}

func TestParser_MaxSize(t *testing.T) {
	_, err := NewParser().WithMaxSize(8).Parse([]byte(`{"rules":[]}`))
	if !errors.Is(err, ErrInvalidRuleset) {
		t.Errorf("Parse() error = %v, want ErrInvalidRuleset", err)
	}
}

func TestParser_SchemaValidation(t *testing.T) {
	badMatcher := []byte(`{"rules":[{"condition":{"type":"matcher",
		"definition":{"key":"a","matcher":"regex","values":["x"]}},"consequences":[]}]}`)

	if _, err := NewParser().Parse(badMatcher); err != nil {
		t.Errorf("Parse() without schema error = %v, want nil", err)
	}

	_, err := NewParser().WithSchemaValidation(true).Parse(badMatcher)
	if !errors.Is(err, ErrSchemaViolation) {
		t.Errorf("Parse() with schema error = %v, want ErrSchemaViolation", err)
	}
	if !errors.Is(err, ErrInvalidRuleset) {
		t.Errorf("Parse() with schema error = %v, want ErrInvalidRuleset", err)
	}

	if _, err := NewParser().WithSchemaValidation(true).Parse(loadFixture(t, "target-rules.json")); err != nil {
		t.Errorf("Parse() fixture with schema error = %v", err)
	}
}

func TestRuleset_KeyedRules(t *testing.T) {
	rs := &Ruleset{Rules: []*Rule{
		{Key: "b"},
		{},
		{Key: "a"},
		{Key: "b"},
		{},
	}}

	noKey, keys, groups := rs.KeyedRules()
	if len(noKey) != 2 {
		t.Errorf("len(noKey) = %d, want 2", len(noKey))
	}
	if len(keys) != 2 || keys[0] != "b" || keys[1] != "a" {
		t.Errorf("keys = %v, want [b a]", keys)
	}
	if len(groups["b"]) != 2 || groups["b"][0] != rs.Rules[0] || groups["b"][1] != rs.Rules[3] {
		t.Errorf("groups[b] not in declaration order")
	}
}

func TestRuleset_ProviderNil(t *testing.T) {
	var rs *Ruleset
	if got := rs.Provider(); got != "" {
		t.Errorf("Provider() = %q, want empty", got)
	}
}
