package parser

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

const (
	IsolationNone    = "none"
	IsolationPerCase = "per-case"
)

type Parser struct {
	lexer    *Lexer
	curToken Token
	file     string
}

func NewParser(input string) *Parser {
	p := &Parser{
		lexer: NewLexer(input),
	}
	p.nextToken()
	return p
}

func ParseFile(path string) (*Suite, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(string(content), path)
}

func Parse(input, filename string) (*Suite, error) {
	p := NewParser(input)
	p.file = filename
	return p.ParseSuite()
}

func (p *Parser) nextToken() {
	p.curToken = p.lexer.NextToken()
	for p.curToken.Type == TokenBlank || p.curToken.Type == TokenComment {
		p.curToken = p.lexer.NextToken()
	}
}

func (p *Parser) errorAt(tok Token, column int, format string, args ...any) *ParseError {
	if column <= 0 {
		column = tok.Column
	}
	return &ParseError{
		File:    p.file,
		Line:    tok.Line,
		Column:  column,
		Message: fmt.Sprintf(format, args...),
	}
}

func (p *Parser) ParseSuite() (*Suite, error) {
	suite := &Suite{Path: p.file}

	for p.curToken.Type == TokenAnnotation || p.curToken.Type == TokenVariable {
		if p.curToken.Type == TokenVariable {
			suite.Variables = append(suite.Variables, &Variable{
				Name:  p.curToken.Value,
				Value: p.curToken.Literal,
				Line:  p.curToken.Line,
			})
		} else if err := p.parseSuiteAnnotation(suite); err != nil {
			return nil, err
		}
		p.nextToken()
	}

	for p.curToken.Type != TokenEOF {
		c, err := p.parseCase()
		if err != nil {
			return nil, err
		}
		suite.Cases = append(suite.Cases, c)
	}

	return suite, nil
}

func (p *Parser) parseSuiteAnnotation(suite *Suite) error {
	tok := p.curToken
	value := tok.Literal

	switch strings.ToLower(tok.Value) {
	case "suite":
		suite.Name = value
	case "viewport":
		vp, err := ParseViewport(value)
		if err != nil {
			return p.errorAt(tok, 0, "%v", err)
		}
		suite.Viewport = vp
	case "isolation":
		iso := strings.ToLower(value)
		if iso != IsolationNone && iso != IsolationPerCase {
			return p.errorAt(tok, 0, "invalid isolation %q: expected %s or %s", value, IsolationNone, IsolationPerCase)
		}
		suite.Isolation = iso
	case "suppress-page-errors":
		b := true
		if value != "" {
			v, err := strconv.ParseBool(value)
			if err != nil {
				return p.errorAt(tok, 0, "invalid boolean %q for @suppress-page-errors", value)
			}
			b = v
		}
		suite.SuppressPageErrors = &b
	}
	return nil
}

func (p *Parser) parseCase() (*Case, error) {
	c := &Case{
		Metadata: &CaseMetadata{},
		Line:     p.curToken.Line,
	}

	if p.curToken.Type == TokenCaseSeparator {
		c.Name = p.curToken.Value
		p.nextToken()
	}

	for p.curToken.Type != TokenEOF && p.curToken.Type != TokenCaseSeparator {
		switch p.curToken.Type {
		case TokenAnnotation:
			if err := p.parseCaseAnnotation(c); err != nil {
				return nil, err
			}
		case TokenVariable:
			return nil, p.errorAt(p.curToken, 0, "variables must be declared before the first case")
		case TokenStep:
			if err := p.parseStep(c); err != nil {
				return nil, err
			}
		}
		p.nextToken()
	}

	return c, nil
}

func (p *Parser) parseCaseAnnotation(c *Case) error {
	tok := p.curToken
	value := tok.Literal

	switch strings.ToLower(tok.Value) {
	case "name":
		if c.Name == "" {
			c.Name = value
		}
	case "description":
		c.Description = value
	case "tags":
		for _, t := range strings.Split(value, ",") {
			t = strings.TrimSpace(t)
			if t != "" {
				c.Tags = append(c.Tags, t)
			}
		}
	case "skip":
		c.Metadata.Skip = value
		if c.Metadata.Skip == "" {
			c.Metadata.Skip = "skipped"
		}
	case "only":
		c.Metadata.Only = true
	case "viewport":
		vp, err := ParseViewport(value)
		if err != nil {
			return p.errorAt(tok, 0, "%v", err)
		}
		c.Metadata.Viewport = vp
	}
	return nil
}

func (p *Parser) parseStep(c *Case) error {
	tok := p.curToken
	fields, err := SplitFields(tok.Literal)
	if err != nil {
		return p.wrapFieldError(tok, err)
	}

	step := &Step{Line: tok.Line}
	keyword := strings.ToLower(tok.Value)

	switch keyword {
	case "visit":
		if err := p.expectArgs(tok, fields, 1, "visit <url>"); err != nil {
			return err
		}
		step.Kind = StepVisit
		step.URL = fields[0].Text

	case "viewport":
		if err := p.expectArgs(tok, fields, 1, "viewport <width>x<height>"); err != nil {
			return err
		}
		vp, err := ParseViewport(fields[0].Text)
		if err != nil {
			return p.errorAt(tok, p.fieldColumn(tok, fields[0]), "%v", err)
		}
		step.Kind = StepViewport
		step.Viewport = vp

	case "scroll", "click", "copy":
		if err := p.expectArgs(tok, fields, 1, keyword+" <locator>"); err != nil {
			return err
		}
		loc, err := p.locatorFrom(tok, fields[0])
		if err != nil {
			return err
		}
		step.Kind = map[string]StepKind{"scroll": StepScroll, "click": StepClick, "copy": StepCopy}[keyword]
		step.Locator = loc

	case "type":
		if err := p.expectArgs(tok, fields, 2, `type <locator> "text"`); err != nil {
			return err
		}
		loc, err := p.locatorFrom(tok, fields[0])
		if err != nil {
			return err
		}
		step.Kind = StepType
		step.Locator = loc
		step.Value = fields[1].Text

	case "remove-attr":
		if err := p.expectArgs(tok, fields, 2, "remove-attr <locator> <name>"); err != nil {
			return err
		}
		loc, err := p.locatorFrom(tok, fields[0])
		if err != nil {
			return err
		}
		step.Kind = StepRemoveAttr
		step.Locator = loc
		step.Attribute = fields[1].Text

	case "set-attr":
		if err := p.expectArgs(tok, fields, 3, `set-attr <locator> <name> "value"`); err != nil {
			return err
		}
		loc, err := p.locatorFrom(tok, fields[0])
		if err != nil {
			return err
		}
		step.Kind = StepSetAttr
		step.Locator = loc
		step.Attribute = fields[1].Text
		step.Value = fields[2].Text

	case "fetch":
		if err := p.expectArgs(tok, fields, 2, "fetch <METHOD> <url>"); err != nil {
			return err
		}
		step.Kind = StepFetch
		step.Method = strings.ToUpper(fields[0].Text)
		step.URL = fields[1].Text

	case "header":
		if err := p.expectArgs(tok, fields, 2, `header <Name> "value"`); err != nil {
			return err
		}
		last := lastStep(c)
		if last == nil || last.Kind != StepFetch {
			return p.errorAt(tok, 0, "header must follow a fetch step")
		}
		last.Headers = append(last.Headers, &Header{
			Key:   strings.TrimSuffix(fields[0].Text, ":"),
			Value: fields[1].Text,
			Line:  tok.Line,
		})
		return nil

	case "expect":
		assertion, err := p.parseExpect(tok, fields)
		if err != nil {
			return err
		}
		step.Kind = StepExpect
		step.Assertion = assertion

	default:
		return p.errorAt(tok, 0, "unknown step %q", tok.Value)
	}

	c.Steps = append(c.Steps, step)
	return nil
}

func lastStep(c *Case) *Step {
	if len(c.Steps) == 0 {
		return nil
	}
	return c.Steps[len(c.Steps)-1]
}

func (p *Parser) expectArgs(tok Token, fields []Field, n int, usage string) error {
	if len(fields) < n {
		return p.errorAt(tok, 0, "missing arguments, usage: %s", usage)
	}
	if len(fields) > n {
		return p.errorAt(tok, p.fieldColumn(tok, fields[n]), "unexpected argument %q, usage: %s", fields[n].Text, usage)
	}
	return nil
}

// fieldColumn converts a column within the step arguments to a column
// within the source line.
func (p *Parser) fieldColumn(tok Token, f Field) int {
	return tok.Column + len(tok.Value) + f.Column
}

func (p *Parser) wrapFieldError(tok Token, err error) error {
	if pe, ok := err.(*ParseError); ok {
		return &ParseError{
			File:    p.file,
			Line:    tok.Line,
			Column:  tok.Column + len(tok.Value) + pe.Column,
			Message: pe.Message,
		}
	}
	return p.errorAt(tok, 0, "%v", err)
}

// locatorFrom treats a quoted field as a plain CSS selector, so selectors
// with spaces can be written as "header > strong".
func (p *Parser) locatorFrom(tok Token, f Field) (*Locator, error) {
	if f.Quoted {
		return &Locator{Ops: []LocatorOp{{Kind: LocGet, Arg: f.Text}}}, nil
	}
	loc, err := ParseLocator(f.Text)
	if err != nil {
		pe := err.(*ParseError)
		return nil, &ParseError{
			File:    p.file,
			Line:    tok.Line,
			Column:  p.fieldColumn(tok, f) + pe.Column - 1,
			Message: pe.Message,
		}
	}
	return loc, nil
}

func (p *Parser) parseExpect(tok Token, fields []Field) (*Assertion, error) {
	if len(fields) == 0 {
		return nil, p.errorAt(tok, 0, "expect needs a subject")
	}

	a := &Assertion{Line: tok.Line}
	rest := fields[1:]

	head := fields[0]
	subject := ""
	if !head.Quoted {
		subject = head.Text
	}

	switch subject {
	case "url", "title":
		a.Subject = SubjectURL
		if subject == "title" {
			a.Subject = SubjectTitle
		}
	case "status":
		a.Subject = SubjectStatus
	case "header":
		if len(rest) == 0 {
			return nil, p.errorAt(tok, 0, "expect header needs a header name")
		}
		a.Subject = SubjectHeader
		a.Name = rest[0].Text
		rest = rest[1:]
	case "clipboard", "body":
		a.Subject = SubjectClipboard
		if subject == "body" {
			a.Subject = SubjectBody
		}
		if len(rest) > 0 && !isOperatorField(rest[0]) {
			a.Path = rest[0].Text
			rest = rest[1:]
		}
	default:
		loc, err := p.locatorFrom(tok, head)
		if err != nil {
			return nil, err
		}
		a.Subject = SubjectElement
		a.Locator = loc
		if len(rest) > 0 && !rest[0].Quoted {
			switch rest[0].Text {
			case "text":
				a.Property = PropText
				rest = rest[1:]
			case "count":
				a.Property = PropCount
				rest = rest[1:]
			case "attr":
				if len(rest) < 2 {
					return nil, p.errorAt(tok, 0, "expect <locator> attr needs an attribute name")
				}
				a.Property = PropAttr
				a.Name = rest[1].Text
				rest = rest[2:]
				if len(rest) == 0 {
					a.Operator = OpExists
					return a, nil
				}
			}
		}
	}

	if len(rest) == 0 {
		return nil, p.errorAt(tok, 0, "expect %s needs an operator", a.Target())
	}
	opField := rest[0]
	op, ok := LookupOperator(opField.Text)
	if !ok || opField.Quoted {
		return nil, p.errorAt(tok, p.fieldColumn(tok, opField), "unknown operator %q", opField.Text)
	}
	a.Operator = op
	rest = rest[1:]

	if op.TakesValue() {
		if len(rest) == 0 {
			return nil, p.errorAt(tok, 0, "operator %s needs an expected value", opField.Text)
		}
		a.Expected = parseValue(rest[0])
		rest = rest[1:]
	}
	if len(rest) > 0 {
		return nil, p.errorAt(tok, p.fieldColumn(tok, rest[0]), "unexpected argument %q", rest[0].Text)
	}

	if err := checkOperator(a); err != nil {
		return nil, p.errorAt(tok, p.fieldColumn(tok, opField), "%v", err)
	}
	return a, nil
}

func isOperatorField(f Field) bool {
	if f.Quoted {
		return false
	}
	_, ok := LookupOperator(f.Text)
	return ok
}

// checkOperator rejects operators that make no sense for the subject.
func checkOperator(a *Assertion) error {
	switch a.Operator {
	case OpInViewport:
		if a.Subject != SubjectElement || a.Property != PropNone {
			return fmt.Errorf("in-viewport only applies to an element")
		}
	case OpSchema:
		if !a.Subject.IsPayload() {
			return fmt.Errorf("schema only applies to clipboard or body")
		}
	case OpGreaterThan, OpGreaterOrEqual, OpLessThan, OpLessOrEqual:
		switch a.Subject {
		case SubjectStatus, SubjectBody, SubjectClipboard:
		default:
			if a.Property != PropCount {
				return fmt.Errorf("%s needs a numeric subject", a.Operator)
			}
		}
	}

	if a.Subject == SubjectElement && a.Property == PropNone {
		switch a.Operator {
		case OpExists, OpNotExists, OpInViewport:
		default:
			return fmt.Errorf("expect <locator> supports exists, !exists or in-viewport; use text, attr or count for comparisons")
		}
	}
	return nil
}

// parseValue keeps quoted values as strings and converts bare numbers and
// booleans.
func parseValue(f Field) any {
	if f.Quoted {
		return f.Text
	}
	if i, err := strconv.Atoi(f.Text); err == nil {
		return i
	}
	if fl, err := strconv.ParseFloat(f.Text, 64); err == nil {
		return fl
	}
	if b, err := strconv.ParseBool(f.Text); err == nil && (f.Text == "true" || f.Text == "false") {
		return b
	}
	return f.Text
}
