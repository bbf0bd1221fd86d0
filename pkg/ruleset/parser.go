package ruleset

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"odd-hq/decisioning/internal/jsonutil"
)

// Parser turns rules documents into a Ruleset.
type Parser struct {
	maxSize        int  // Maximum document size in bytes (default: 10MB)
	maxDepth       int  // Maximum condition nesting depth (default: 32)
	validateSchema bool // Validate against the embedded JSON Schema first
}

// NewParser creates a parser with default limits and schema validation off.
func NewParser() *Parser {
	return &Parser{
		maxSize:  10 * 1024 * 1024,
		maxDepth: 32,
	}
}

// WithMaxSize sets the maximum accepted document size.
func (p *Parser) WithMaxSize(size int) *Parser {
	p.maxSize = size
	return p
}

// WithMaxDepth sets the maximum condition nesting depth.
func (p *Parser) WithMaxDepth(depth int) *Parser {
	p.maxDepth = depth
	return p
}

// WithSchemaValidation enables structural validation against the ruleset
// schema before the rule tree is built.
func (p *Parser) WithSchemaValidation(enabled bool) *Parser {
	p.validateSchema = enabled
	return p
}

// Parse parses a rules document with a default parser.
func Parse(data []byte) (*Ruleset, error) {
	return NewParser().Parse(data)
}

// ParseDocument builds a Ruleset from an already decoded document with a
// default parser.
func ParseDocument(doc map[string]any) (*Ruleset, error) {
	return NewParser().ParseDocument(doc)
}

// Parse decodes JSON rules and builds the rule tree.
func (p *Parser) Parse(data []byte) (*Ruleset, error) {
	if p.maxSize > 0 && len(data) > p.maxSize {
		return nil, parseErrorf("", "document size %d exceeds maximum %d bytes", len(data), p.maxSize)
	}

	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &ParseError{Message: "invalid JSON", Cause: err}
	}
	doc, ok := jsonutil.AsMap(raw)
	if !ok {
		return nil, parseErrorf("", "document must be an object, got %s", kind(raw))
	}
	return p.ParseDocument(doc)
}

// ParseDocument builds the rule tree from a decoded document.
func (p *Parser) ParseDocument(doc map[string]any) (*Ruleset, error) {
	if doc == nil {
		return nil, parseErrorf("", "document is empty")
	}
	if p.validateSchema {
		if err := Validate(doc); err != nil {
			return nil, &ParseError{Message: "schema validation failed", Cause: err}
		}
	}

	rawRules, ok := jsonutil.AsSlice(doc["rules"])
	if !ok {
		return nil, parseErrorf("/rules", "rules must be an array")
	}

	rs := &Ruleset{
		Version: doc["version"],
		Rules:   make([]*Rule, 0, len(rawRules)),
	}
	for i, raw := range rawRules {
		rule, err := p.parseRule(raw, fmt.Sprintf("/rules/%d", i))
		if err != nil {
			return nil, err
		}
		rs.Rules = append(rs.Rules, rule)
	}

	metadata, err := parseMetadata(doc["metadata"])
	if err != nil {
		return nil, err
	}
	rs.Metadata = metadata

	return rs, nil
}

func (p *Parser) parseRule(raw any, path string) (*Rule, error) {
	m, ok := jsonutil.AsMap(raw)
	if !ok {
		return nil, parseErrorf(path, "rule must be an object, got %s", kind(raw))
	}

	condition, err := p.parseCondition(m["condition"], path+"/condition", 0)
	if err != nil {
		return nil, err
	}

	rawConsequences, ok := jsonutil.AsSlice(m["consequences"])
	if !ok {
		return nil, parseErrorf(path+"/consequences", "consequences must be an array")
	}
	consequences := make([]Consequence, 0, len(rawConsequences))
	for i, rc := range rawConsequences {
		cm, ok := jsonutil.AsMap(rc)
		if !ok {
			return nil, parseErrorf(fmt.Sprintf("%s/consequences/%d", path, i), "consequence must be an object, got %s", kind(rc))
		}
		consequences = append(consequences, Consequence{
			ID:     scalarString(cm["id"]),
			Type:   scalarString(cm["type"]),
			Detail: cm["detail"],
		})
	}

	return &Rule{
		Key:          scalarString(m["key"]),
		Condition:    condition,
		Consequences: consequences,
	}, nil
}

func (p *Parser) parseCondition(raw any, path string, depth int) (Condition, error) {
	if p.maxDepth > 0 && depth > p.maxDepth {
		return nil, parseErrorf(path, "condition nesting exceeds maximum depth %d", p.maxDepth)
	}

	m, ok := jsonutil.AsMap(raw)
	if !ok {
		return nil, parseErrorf(path, "condition must be an object, got %s", kind(raw))
	}
	definition, ok := jsonutil.AsMap(m["definition"])
	if !ok {
		return nil, parseErrorf(path+"/definition", "definition must be an object")
	}
	defPath := path + "/definition"

	condType, _ := m["type"].(string)
	switch ConditionType(condType) {
	case ConditionTypeMatcher:
		return parseMatcher(definition, defPath)
	case ConditionTypeGroup:
		return p.parseGroup(definition, defPath, depth)
	case ConditionTypeHistorical:
		return parseHistorical(definition, defPath)
	default:
		return nil, parseErrorf(path+"/type", "can not parse condition of type %q", condType)
	}
}

func parseMatcher(def map[string]any, path string) (*MatcherCondition, error) {
	cond := &MatcherCondition{
		Key:     scalarString(def["key"]),
		Matcher: scalarString(def["matcher"]),
	}
	if raw, present := def["values"]; present && raw != nil {
		values, ok := jsonutil.AsSlice(raw)
		if !ok {
			return nil, parseErrorf(path+"/values", "values must be an array, got %s", kind(raw))
		}
		cond.Values = values
	}
	return cond, nil
}

func (p *Parser) parseGroup(def map[string]any, path string, depth int) (*GroupCondition, error) {
	rawConditions, ok := jsonutil.AsSlice(def["conditions"])
	if !ok {
		return nil, parseErrorf(path+"/conditions", "conditions must be an array")
	}

	logic, _ := def["logic"].(string)
	group := &GroupCondition{
		Logic:      Logic(logic),
		Conditions: make([]Condition, 0, len(rawConditions)),
	}
	for i, rc := range rawConditions {
		child, err := p.parseCondition(rc, fmt.Sprintf("%s/conditions/%d", path, i), depth+1)
		if err != nil {
			return nil, err
		}
		group.Conditions = append(group.Conditions, child)
	}
	return group, nil
}

func parseHistorical(def map[string]any, path string) (*HistoricalCondition, error) {
	rawEvents, ok := jsonutil.AsSlice(def["events"])
	if !ok {
		return nil, parseErrorf(path+"/events", "events must be an array")
	}

	events := make([]map[string]any, 0, len(rawEvents))
	for i, re := range rawEvents {
		em, ok := jsonutil.AsMap(re)
		if !ok {
			return nil, parseErrorf(fmt.Sprintf("%s/events/%d", path, i), "event must be an object, got %s", kind(re))
		}
		events = append(events, em)
	}

	searchType, _ := def["searchType"].(string)
	return &HistoricalCondition{
		Events:     events,
		Matcher:    scalarString(def["matcher"]),
		Value:      def["value"],
		From:       optionalNumber(def["from"]),
		To:         optionalNumber(def["to"]),
		SearchType: SearchType(searchType),
	}, nil
}

func parseMetadata(raw any) (*Metadata, error) {
	if raw == nil {
		return nil, nil
	}
	m, ok := jsonutil.AsMap(raw)
	if !ok {
		return nil, parseErrorf("/metadata", "metadata must be an object, got %s", kind(raw))
	}

	metadata := &Metadata{Provider: scalarString(m["provider"])}
	if pd, ok := jsonutil.AsMap(m["providerData"]); ok {
		data := &ProviderData{}
		data.IdentityTemplate, _ = pd["identityTemplate"].(string)
		if n, ok := jsonutil.Number(pd["buckets"]); ok && n >= 1 && n == math.Trunc(n) && n <= math.MaxInt32 {
			data.Buckets = int(n)
		}
		metadata.ProviderData = data
	}
	return metadata, nil
}

// scalarString renders ids and keys that may be written as numbers.
// Missing, boolean and composite values read as "".
func scalarString(v any) string {
	switch s := v.(type) {
	case nil, bool:
		return ""
	case string:
		return s
	}
	if n, ok := jsonutil.Number(v); ok {
		return strconv.FormatFloat(n, 'f', -1, 64)
	}
	return ""
}

func optionalNumber(v any) *float64 {
	n, ok := jsonutil.Number(v)
	if !ok {
		return nil
	}
	return &n
}

func kind(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case string:
		return "string"
	case bool:
		return "boolean"
	}
	if _, ok := jsonutil.Number(v); ok {
		return "number"
	}
	return fmt.Sprintf("%T", v)
}
