package personalization

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

// ErrInvalidSelector is returned for selectors outside the supported subset.
var ErrInvalidSelector = errors.New("invalid selector")

// compound matches a single element: optional tag, optional id, any number
// of classes and structural pseudo-classes, e.g. "div#hero.banner" or
// "DIV:nth-of-type(2)".
type compound struct {
	tag     string
	id      string
	classes []string
	pseudos []pseudo
}

// pseudo is a structural pseudo-class with its 1-based position argument.
// first-child and first-of-type are stored as nth-child(1) and
// nth-of-type(1); last-child is nth-last-child(1).
type pseudo struct {
	name string
	n    int
}

const (
	pseudoNthChild     = "nth-child"
	pseudoNthOfType    = "nth-of-type"
	pseudoNthLastChild = "nth-last-child"
)

// step is a compound plus the combinator linking it to the previous step.
type step struct {
	compound
	child bool
}

// selector is a chain of compounds joined by descendant (" ") or child
// (">") combinators.
type selector struct {
	raw   string
	steps []step
}

// parseSelector supports type, id and class selectors, the nth-child,
// nth-of-type, first-child, last-child and first-of-type pseudo-classes, and
// descendant and child combinators.
func parseSelector(raw string) (*selector, error) {
	tokens := strings.Fields(strings.ReplaceAll(raw, ">", " > "))
	if len(tokens) == 0 {
		return nil, fmt.Errorf("%w: empty", ErrInvalidSelector)
	}

	sel := &selector{raw: raw}
	child := false
	for _, tok := range tokens {
		if tok == ">" {
			if len(sel.steps) == 0 || child {
				return nil, fmt.Errorf("%w: %q", ErrInvalidSelector, raw)
			}
			child = true
			continue
		}
		c, err := parseCompound(tok)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrInvalidSelector, raw, err)
		}
		sel.steps = append(sel.steps, step{compound: c, child: child})
		child = false
	}
	if child {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSelector, raw)
	}
	return sel, nil
}

func parseCompound(tok string) (compound, error) {
	var c compound
	i := nextDelim(tok, 0)
	c.tag = strings.ToLower(tok[:i])
	if c.tag == "*" {
		c.tag = ""
	}
	if strings.ContainsAny(c.tag, "[](),+~*") {
		return c, fmt.Errorf("unsupported token %q", tok)
	}

	for i < len(tok) {
		kind := tok[i]
		j := nextDelim(tok, i+1)
		if kind == ':' && strings.IndexByte(tok[i:j], '(') >= 0 {
			end := strings.IndexByte(tok[i:], ')')
			if end < 0 {
				return c, fmt.Errorf("unterminated pseudo-class in %q", tok)
			}
			j = i + end + 1
			if j < len(tok) && nextDelim(tok, j) != j {
				return c, fmt.Errorf("unsupported token %q", tok)
			}
		}
		name := tok[i+1 : j]
		if name == "" || strings.ContainsAny(name, "[],+~*") {
			return c, fmt.Errorf("unsupported token %q", tok)
		}
		switch kind {
		case '#':
			if c.id != "" {
				return c, fmt.Errorf("multiple ids in %q", tok)
			}
			c.id = name
		case '.':
			c.classes = append(c.classes, name)
		case ':':
			p, err := parsePseudo(name)
			if err != nil {
				return c, err
			}
			c.pseudos = append(c.pseudos, p)
		}
		i = j
	}
	return c, nil
}

// nextDelim returns the index of the next '#', '.' or ':' at or after i.
func nextDelim(tok string, i int) int {
	for i < len(tok) && tok[i] != '#' && tok[i] != '.' && tok[i] != ':' {
		i++
	}
	return i
}

func parsePseudo(raw string) (pseudo, error) {
	name, arg, hasArg := strings.Cut(strings.ToLower(raw), "(")
	if !hasArg {
		switch name {
		case "first-child":
			return pseudo{name: pseudoNthChild, n: 1}, nil
		case "last-child":
			return pseudo{name: pseudoNthLastChild, n: 1}, nil
		case "first-of-type":
			return pseudo{name: pseudoNthOfType, n: 1}, nil
		}
		return pseudo{}, fmt.Errorf("unsupported pseudo-class %q", raw)
	}

	switch name {
	case pseudoNthChild, pseudoNthOfType, pseudoNthLastChild:
	default:
		return pseudo{}, fmt.Errorf("unsupported pseudo-class %q", raw)
	}
	n, err := strconv.Atoi(strings.TrimSpace(strings.TrimSuffix(arg, ")")))
	if err != nil || n < 1 {
		return pseudo{}, fmt.Errorf("unsupported pseudo-class argument %q", raw)
	}
	return pseudo{name: name, n: n}, nil
}

func (c compound) matches(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	if c.tag != "" && n.Data != c.tag {
		return false
	}
	if c.id != "" && attr(n, "id") != c.id {
		return false
	}
	if len(c.classes) > 0 {
		have := strings.Fields(attr(n, "class"))
		for _, want := range c.classes {
			if !contains(have, want) {
				return false
			}
		}
	}
	for _, p := range c.pseudos {
		if position(n, p.name) != p.n {
			return false
		}
	}
	return true
}

// position returns the 1-based index of n among its element siblings as
// counted by the pseudo-class. Elements without a parent count as first.
func position(n *html.Node, name string) int {
	if n.Parent == nil {
		return 1
	}
	pos := 1
	switch name {
	case pseudoNthLastChild:
		for s := n.NextSibling; s != nil; s = s.NextSibling {
			if s.Type == html.ElementNode {
				pos++
			}
		}
	case pseudoNthOfType:
		for s := n.PrevSibling; s != nil; s = s.PrevSibling {
			if s.Type == html.ElementNode && s.Data == n.Data {
				pos++
			}
		}
	default:
		for s := n.PrevSibling; s != nil; s = s.PrevSibling {
			if s.Type == html.ElementNode {
				pos++
			}
		}
	}
	return pos
}

// matches reports whether n is matched by the selector, walking ancestors
// right to left.
func (s *selector) matches(n *html.Node) bool {
	return s.matchFrom(n, len(s.steps)-1)
}

func (s *selector) matchFrom(n *html.Node, i int) bool {
	st := s.steps[i]
	if !st.matches(n) {
		return false
	}
	if i == 0 {
		return true
	}
	if st.child {
		return n.Parent != nil && s.matchFrom(n.Parent, i-1)
	}
	for p := n.Parent; p != nil; p = p.Parent {
		if s.matchFrom(p, i-1) {
			return true
		}
	}
	return false
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val
		}
	}
	return ""
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
