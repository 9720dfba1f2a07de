package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var chainStart = regexp.MustCompile(`^[a-z]+\(`)

var locatorOps = map[string]LocatorOpKind{
	"get":      LocGet,
	"contains": LocContains,
	"find":     LocFind,
	"parents":  LocParents,
	"closest":  LocClosest,
	"first":    LocFirst,
	"last":     LocLast,
	"eq":       LocEq,
}

// ParseLocator parses either a bare CSS selector (`#menu-item-6777`) or a
// call chain such as `get("a").contains("KNOWLEDGE HUB")`.
func ParseLocator(s string) (*Locator, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, &ParseError{Message: "empty locator"}
	}
	if !chainStart.MatchString(s) {
		return &Locator{Ops: []LocatorOp{{Kind: LocGet, Arg: s}}}, nil
	}

	lp := &locatorParser{input: s}
	loc, err := lp.parse()
	if err != nil {
		return nil, err
	}
	if loc.Ops[0].Kind != LocGet {
		return nil, lp.errorf(0, "locator must start with get(), got %s()", loc.Ops[0].Kind)
	}
	return loc, nil
}

type locatorParser struct {
	input string
	pos   int
}

func (p *locatorParser) errorf(pos int, format string, args ...any) *ParseError {
	msg := fmt.Sprintf(format, args...)
	return &ParseError{Column: pos + 1, Message: "locator " + strconv.Quote(p.input) + ": " + msg}
}

func (p *locatorParser) parse() (*Locator, error) {
	loc := &Locator{}
	for {
		op, err := p.parseCall()
		if err != nil {
			return nil, err
		}
		loc.Ops = append(loc.Ops, op)

		if p.pos >= len(p.input) {
			return loc, nil
		}
		if p.input[p.pos] != '.' {
			return nil, p.errorf(p.pos, "expected '.' between calls, got %q", string(p.input[p.pos]))
		}
		p.pos++
	}
}

func (p *locatorParser) parseCall() (LocatorOp, error) {
	start := p.pos
	for p.pos < len(p.input) && p.input[p.pos] >= 'a' && p.input[p.pos] <= 'z' {
		p.pos++
	}
	name := p.input[start:p.pos]
	kind, ok := locatorOps[name]
	if !ok {
		return LocatorOp{}, p.errorf(start, "unknown locator call %q", name)
	}
	if p.pos >= len(p.input) || p.input[p.pos] != '(' {
		return LocatorOp{}, p.errorf(p.pos, "expected '(' after %s", name)
	}
	p.pos++

	op := LocatorOp{Kind: kind}
	switch kind {
	case LocFirst, LocLast:
	case LocEq:
		numStart := p.pos
		for p.pos < len(p.input) && (p.input[p.pos] == '-' || (p.input[p.pos] >= '0' && p.input[p.pos] <= '9')) {
			p.pos++
		}
		n, err := strconv.Atoi(p.input[numStart:p.pos])
		if err != nil {
			return LocatorOp{}, p.errorf(numStart, "eq() expects an integer index")
		}
		op.Index = n
	case LocParents:
		if p.pos < len(p.input) && p.input[p.pos] != ')' {
			arg, err := p.parseString()
			if err != nil {
				return LocatorOp{}, err
			}
			op.Arg = arg
		}
	default:
		arg, err := p.parseString()
		if err != nil {
			return LocatorOp{}, err
		}
		if arg == "" {
			return LocatorOp{}, p.errorf(start, "%s() needs a non-empty argument", name)
		}
		op.Arg = arg
	}

	if p.pos >= len(p.input) || p.input[p.pos] != ')' {
		return LocatorOp{}, p.errorf(p.pos, "expected ')' to close %s(", name)
	}
	p.pos++
	return op, nil
}

func (p *locatorParser) parseString() (string, error) {
	if p.pos >= len(p.input) || !isQuote(p.input[p.pos]) {
		return "", p.errorf(p.pos, "expected quoted string")
	}
	q := p.input[p.pos]
	start := p.pos
	p.pos++
	for p.pos < len(p.input) {
		c := p.input[p.pos]
		if c == '\\' && q == '"' {
			p.pos += 2
			continue
		}
		if c == q {
			p.pos++
			s, err := unquote(p.input[start:p.pos])
			if err != nil {
				return "", p.errorf(start, "invalid string")
			}
			return s, nil
		}
		p.pos++
	}
	return "", p.errorf(start, "unterminated string")
}
