package browsertest

import (
	"fmt"
	"strings"
)

// selector supports the CSS subset suites use: tag, #id, .class, [attr],
// [attr=value], descendant and child combinators, and selector lists.
type selector struct {
	alternatives [][]compound
}

type combinator int

const (
	descendant combinator = iota
	child
)

type compound struct {
	tag     string
	id      string
	classes []string
	attrs   []attrMatch
	// comb joins this compound to the previous one.
	comb combinator
}

type attrMatch struct {
	name     string
	value    string
	hasValue bool
}

func compileSelector(s string) (*selector, error) {
	sel := &selector{}
	for _, part := range strings.Split(s, ",") {
		chain, err := compileComplex(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		sel.alternatives = append(sel.alternatives, chain)
	}
	return sel, nil
}

func compileComplex(s string) ([]compound, error) {
	if s == "" {
		return nil, fmt.Errorf("empty selector")
	}
	s = strings.ReplaceAll(s, ">", " > ")

	var chain []compound
	comb := descendant
	for _, tok := range strings.Fields(s) {
		if tok == ">" {
			if len(chain) == 0 {
				return nil, fmt.Errorf("selector %q starts with a combinator", s)
			}
			comb = child
			continue
		}
		c, err := compileCompound(tok)
		if err != nil {
			return nil, err
		}
		c.comb = comb
		chain = append(chain, c)
		comb = descendant
	}
	if comb == child {
		return nil, fmt.Errorf("selector %q ends with a combinator", s)
	}
	return chain, nil
}

func compileCompound(s string) (compound, error) {
	var c compound
	i := 0
	readIdent := func() string {
		start := i
		for i < len(s) && isIdentChar(s[i]) {
			i++
		}
		return s[start:i]
	}

	c.tag = strings.ToLower(readIdent())
	if c.tag == "*" {
		c.tag = ""
	}
	for i < len(s) {
		switch s[i] {
		case '#':
			i++
			c.id = readIdent()
		case '.':
			i++
			c.classes = append(c.classes, readIdent())
		case '[':
			end := strings.IndexByte(s[i:], ']')
			if end < 0 {
				return c, fmt.Errorf("unclosed [ in %q", s)
			}
			body := s[i+1 : i+end]
			i += end + 1
			name, value, ok := strings.Cut(body, "=")
			value = strings.Trim(value, `"'`)
			c.attrs = append(c.attrs, attrMatch{name: strings.TrimSpace(name), value: value, hasValue: ok})
		default:
			return c, fmt.Errorf("unsupported selector %q", s)
		}
	}
	return c, nil
}

func (c compound) matches(n *Node) bool {
	if c.tag != "" && c.tag != n.Tag {
		return false
	}
	if c.id != "" && n.Attrs["id"] != c.id {
		return false
	}
	for _, cls := range c.classes {
		found := false
		for _, have := range n.classes() {
			if have == cls {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	for _, a := range c.attrs {
		v, ok := n.Attrs[a.name]
		if !ok || (a.hasValue && v != a.value) {
			return false
		}
	}
	return true
}

func (s *selector) matches(n *Node) bool {
	for _, chain := range s.alternatives {
		if matchChain(n, chain, len(chain)-1) {
			return true
		}
	}
	return false
}

func matchChain(n *Node, chain []compound, i int) bool {
	if !chain[i].matches(n) {
		return false
	}
	if i == 0 {
		return true
	}
	if chain[i].comb == child {
		return n.parent != nil && matchChain(n.parent, chain, i-1)
	}
	for p := n.parent; p != nil; p = p.parent {
		if matchChain(p, chain, i-1) {
			return true
		}
	}
	return false
}

func isIdentChar(c byte) bool {
	return c == '-' || c == '_' || c == '*' ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}
