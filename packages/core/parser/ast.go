package parser

import (
	"fmt"
	"strconv"
	"strings"
)

type Suite struct {
	Path               string
	Name               string
	Viewport           *Viewport
	Isolation          string
	SuppressPageErrors *bool
	Variables          []*Variable
	Cases              []*Case
}

type Variable struct {
	Name  string
	Value string
	Line  int
}

type Viewport struct {
	Width  int
	Height int
}

func (v *Viewport) String() string {
	return strconv.Itoa(v.Width) + "x" + strconv.Itoa(v.Height)
}

// ParseViewport parses a WIDTHxHEIGHT pair such as 1500x1000.
func ParseViewport(s string) (*Viewport, error) {
	w, h, ok := strings.Cut(strings.ToLower(strings.TrimSpace(s)), "x")
	if !ok {
		return nil, fmt.Errorf("invalid viewport %q: expected WIDTHxHEIGHT", s)
	}
	width, err := strconv.Atoi(w)
	if err != nil || width <= 0 {
		return nil, fmt.Errorf("invalid viewport width in %q", s)
	}
	height, err := strconv.Atoi(h)
	if err != nil || height <= 0 {
		return nil, fmt.Errorf("invalid viewport height in %q", s)
	}
	return &Viewport{Width: width, Height: height}, nil
}

type Case struct {
	Name        string
	Description string
	Tags        []string
	Metadata    *CaseMetadata
	Steps       []*Step
	Line        int
}

type CaseMetadata struct {
	Skip     string
	Only     bool
	Viewport *Viewport
}

type StepKind int

const (
	StepVisit StepKind = iota
	StepViewport
	StepScroll
	StepClick
	StepType
	StepRemoveAttr
	StepSetAttr
	StepCopy
	StepFetch
	StepExpect
)

func (k StepKind) String() string {
	switch k {
	case StepVisit:
		return "visit"
	case StepViewport:
		return "viewport"
	case StepScroll:
		return "scroll"
	case StepClick:
		return "click"
	case StepType:
		return "type"
	case StepRemoveAttr:
		return "remove-attr"
	case StepSetAttr:
		return "set-attr"
	case StepCopy:
		return "copy"
	case StepFetch:
		return "fetch"
	case StepExpect:
		return "expect"
	default:
		return "unknown"
	}
}

// IsInteraction reports whether the step acts on a located element.
func (k StepKind) IsInteraction() bool {
	switch k {
	case StepScroll, StepClick, StepType, StepRemoveAttr, StepSetAttr, StepCopy:
		return true
	}
	return false
}

type Step struct {
	Kind      StepKind
	URL       string
	Method    string
	Headers   []*Header
	Locator   *Locator
	Attribute string
	Value     string
	Viewport  *Viewport
	Assertion *Assertion
	Line      int
}

// String renders the step back in suite syntax.
func (s *Step) String() string {
	switch s.Kind {
	case StepVisit:
		return "visit " + s.URL
	case StepViewport:
		return "viewport " + s.Viewport.String()
	case StepScroll, StepClick, StepCopy:
		return s.Kind.String() + " " + s.Locator.String()
	case StepType:
		return "type " + s.Locator.String() + " " + strconv.Quote(s.Value)
	case StepRemoveAttr:
		return "remove-attr " + s.Locator.String() + " " + s.Attribute
	case StepSetAttr:
		return "set-attr " + s.Locator.String() + " " + s.Attribute + " " + strconv.Quote(s.Value)
	case StepFetch:
		return "fetch " + s.Method + " " + s.URL
	case StepExpect:
		return "expect " + s.Assertion.String()
	default:
		return s.Kind.String()
	}
}

type Header struct {
	Key   string
	Value string
	Line  int
}

type LocatorOpKind int

const (
	LocGet LocatorOpKind = iota
	LocContains
	LocFind
	LocParents
	LocClosest
	LocFirst
	LocLast
	LocEq
)

func (k LocatorOpKind) String() string {
	switch k {
	case LocGet:
		return "get"
	case LocContains:
		return "contains"
	case LocFind:
		return "find"
	case LocParents:
		return "parents"
	case LocClosest:
		return "closest"
	case LocFirst:
		return "first"
	case LocLast:
		return "last"
	case LocEq:
		return "eq"
	default:
		return "unknown"
	}
}

type LocatorOp struct {
	Kind  LocatorOpKind
	Arg   string
	Index int
}

// Locator is a chain of query operations resolved lazily against the
// current page every time it is used.
type Locator struct {
	Ops []LocatorOp
}

func (l *Locator) String() string {
	if l == nil {
		return ""
	}
	if len(l.Ops) == 1 && l.Ops[0].Kind == LocGet && !strings.ContainsAny(l.Ops[0].Arg, " \"'") {
		return l.Ops[0].Arg
	}
	parts := make([]string, 0, len(l.Ops))
	for _, op := range l.Ops {
		switch op.Kind {
		case LocFirst, LocLast:
			parts = append(parts, op.Kind.String()+"()")
		case LocEq:
			parts = append(parts, "eq("+strconv.Itoa(op.Index)+")")
		case LocParents:
			if op.Arg == "" {
				parts = append(parts, "parents()")
				continue
			}
			parts = append(parts, "parents("+strconv.Quote(op.Arg)+")")
		default:
			parts = append(parts, op.Kind.String()+"("+strconv.Quote(op.Arg)+")")
		}
	}
	return strings.Join(parts, ".")
}

type Subject int

const (
	SubjectURL Subject = iota
	SubjectTitle
	SubjectElement
	SubjectClipboard
	SubjectStatus
	SubjectHeader
	SubjectBody
)

func (s Subject) String() string {
	switch s {
	case SubjectURL:
		return "url"
	case SubjectTitle:
		return "title"
	case SubjectElement:
		return "element"
	case SubjectClipboard:
		return "clipboard"
	case SubjectStatus:
		return "status"
	case SubjectHeader:
		return "header"
	case SubjectBody:
		return "body"
	default:
		return "unknown"
	}
}

// IsPayload reports whether the subject is a JSON document captured
// during the case rather than live page state.
func (s Subject) IsPayload() bool {
	return s == SubjectClipboard || s == SubjectBody
}

type Property int

const (
	PropNone Property = iota
	PropText
	PropAttr
	PropCount
)

func (p Property) String() string {
	switch p {
	case PropText:
		return "text"
	case PropAttr:
		return "attr"
	case PropCount:
		return "count"
	default:
		return ""
	}
}

type Assertion struct {
	Subject  Subject
	Locator  *Locator
	Property Property
	// Name is the attribute or header name.
	Name     string
	Path     string
	Operator AssertionOperator
	Expected any
	Line     int
}

// Target renders the thing being asserted on, e.g. `a attr href`.
func (a *Assertion) Target() string {
	switch a.Subject {
	case SubjectElement:
		target := a.Locator.String()
		switch a.Property {
		case PropAttr:
			target += " attr " + a.Name
		case PropText, PropCount:
			target += " " + a.Property.String()
		}
		return target
	case SubjectHeader:
		return "header " + a.Name
	case SubjectClipboard, SubjectBody:
		if a.Path == "" {
			return a.Subject.String()
		}
		return a.Subject.String() + " " + a.Path
	default:
		return a.Subject.String()
	}
}

func (a *Assertion) String() string {
	s := a.Target() + " " + a.Operator.String()
	if a.Operator.TakesValue() {
		if str, ok := a.Expected.(string); ok {
			s += " " + strconv.Quote(str)
		} else {
			s += fmt.Sprintf(" %v", a.Expected)
		}
	}
	return s
}

type AssertionOperator int

const (
	OpEquals AssertionOperator = iota
	OpNotEquals
	OpContains
	OpNotContains
	OpStartsWith
	OpEndsWith
	OpMatches
	OpExists
	OpNotExists
	OpInViewport
	OpGreaterThan
	OpGreaterOrEqual
	OpLessThan
	OpLessOrEqual
	OpSchema
)

var operatorNames = map[string]AssertionOperator{
	"==":          OpEquals,
	"!=":          OpNotEquals,
	"contains":    OpContains,
	"!contains":   OpNotContains,
	"startsWith":  OpStartsWith,
	"endsWith":    OpEndsWith,
	"matches":     OpMatches,
	"exists":      OpExists,
	"!exists":     OpNotExists,
	"in-viewport": OpInViewport,
	">":           OpGreaterThan,
	">=":          OpGreaterOrEqual,
	"<":           OpLessThan,
	"<=":          OpLessOrEqual,
	"schema":      OpSchema,
}

// LookupOperator maps the textual form of an operator to its value.
func LookupOperator(s string) (AssertionOperator, bool) {
	op, ok := operatorNames[s]
	return op, ok
}

func (op AssertionOperator) String() string {
	for name, v := range operatorNames {
		if v == op {
			return name
		}
	}
	return "unknown"
}

// TakesValue reports whether the operator needs an expected value.
func (op AssertionOperator) TakesValue() bool {
	switch op {
	case OpExists, OpNotExists, OpInViewport:
		return false
	}
	return true
}

type ParseError struct {
	File    string
	Line    int
	Column  int
	Message string
}

func (e *ParseError) Error() string {
	if e.File != "" {
		return e.File + ":" + strconv.Itoa(e.Line) + ":" + strconv.Itoa(e.Column) + ": " + e.Message
	}
	return "line " + strconv.Itoa(e.Line) + ": " + e.Message
}
