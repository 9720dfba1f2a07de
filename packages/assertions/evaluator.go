package assertions

import (
	"context"
	"errors"
	"fmt"

	"github.com/abdul-hamid-achik/pagespec/packages/browser"
	"github.com/abdul-hamid-achik/pagespec/packages/core/parser"
	"github.com/abdul-hamid-achik/pagespec/packages/http"
	"github.com/abdul-hamid-achik/pagespec/packages/payload"
)

// Outcome classifies a failed result.
type Outcome int

const (
	// OutcomeMismatch means the predicate was evaluated and was false.
	OutcomeMismatch Outcome = iota
	// OutcomeNotFound means the locator matched no element.
	OutcomeNotFound
	// OutcomePostCondition means a captured payload could not be read,
	// parsed or searched.
	OutcomePostCondition
	// OutcomeError means the harness failed while reading page state.
	OutcomeError
)

type Result struct {
	Passed   bool
	Message  string
	Expected any
	Actual   any
	Subject  string
	Operator string
	Outcome  Outcome
	// Note carries information worth reporting even when the assertion
	// passed, such as a record search matching more than one record.
	Note string
	Err  error
}

type Evaluator struct {
	harness   browser.Harness
	baseDir   string
	clipboard *string
	response  *http.Response
}

// EvaluatorOption is a functional option for configuring an Evaluator.
type EvaluatorOption func(*Evaluator)

// WithBaseDir sets the directory schema files are resolved against.
func WithBaseDir(dir string) EvaluatorOption {
	return func(e *Evaluator) {
		e.baseDir = dir
	}
}

func WithResponse(resp *http.Response) EvaluatorOption {
	return func(e *Evaluator) {
		e.response = resp
	}
}

func WithClipboard(text string) EvaluatorOption {
	return func(e *Evaluator) {
		e.clipboard = &text
	}
}

func NewEvaluator(h browser.Harness, opts ...EvaluatorOption) *Evaluator {
	e := &Evaluator{harness: h}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Evaluator) SetClipboard(text string) {
	e.clipboard = &text
}

func (e *Evaluator) SetResponse(resp *http.Response) {
	e.response = resp
}

func (e *Evaluator) Evaluate(ctx context.Context, a *parser.Assertion) *Result {
	result := &Result{
		Subject:  a.Target(),
		Operator: a.Operator.String(),
		Expected: a.Expected,
	}

	switch a.Subject {
	case parser.SubjectURL:
		url, err := e.harness.URL(ctx)
		if err != nil {
			return harnessError(result, err)
		}
		return check(result, url, a)

	case parser.SubjectTitle:
		title, err := e.harness.Title(ctx)
		if err != nil {
			return harnessError(result, err)
		}
		return check(result, title, a)

	case parser.SubjectElement:
		return e.evaluateElement(ctx, result, a)

	case parser.SubjectClipboard:
		if e.clipboard == nil {
			return postCondition(result, "clipboard is empty: no copy step has run in this case")
		}
		return e.evaluatePayload(result, a, []byte(*e.clipboard), "clipboard")

	case parser.SubjectBody:
		if e.response == nil {
			return postCondition(result, "no response: no fetch step has run in this case")
		}
		return e.evaluatePayload(result, a, e.response.Body, "body")

	case parser.SubjectStatus:
		if e.response == nil {
			return postCondition(result, "no response: no fetch step has run in this case")
		}
		return check(result, e.response.StatusCode, a)

	case parser.SubjectHeader:
		if e.response == nil {
			return postCondition(result, "no response: no fetch step has run in this case")
		}
		var actual any
		if v, ok := e.response.Header(a.Name); ok {
			actual = v
		}
		return check(result, actual, a)
	}

	result.Message = fmt.Sprintf("unknown subject %s", a.Subject)
	return result
}

func (e *Evaluator) evaluateElement(ctx context.Context, result *Result, a *parser.Assertion) *Result {
	var els []browser.Element
	var err error
	if a.Operator == parser.OpNotExists && a.Property == parser.PropNone {
		els, err = e.harness.Query(ctx, a.Locator)
	} else {
		els, err = e.harness.WaitFor(ctx, a.Locator)
	}
	if err != nil {
		return harnessError(result, err)
	}

	if a.Property == parser.PropCount {
		return check(result, len(els), a)
	}
	if a.Operator == parser.OpNotExists && a.Property == parser.PropNone {
		result.Actual = len(els)
		if len(els) > 0 {
			result.Message = fmt.Sprintf("expected %s not to exist, found %d", a.Locator, len(els))
			return result
		}
		result.Passed = true
		return result
	}
	if len(els) == 0 {
		result.Outcome = OutcomeNotFound
		result.Message = fmt.Sprintf("no element matches %s", a.Locator)
		return result
	}

	el := els[0]
	switch a.Property {
	case parser.PropText:
		text, err := el.Text(ctx)
		if err != nil {
			return harnessError(result, err)
		}
		return check(result, text, a)

	case parser.PropAttr:
		v, ok, err := el.Attribute(ctx, a.Name)
		if err != nil {
			return harnessError(result, err)
		}
		if !ok {
			if a.Operator == parser.OpNotExists {
				result.Passed = true
				return result
			}
			result.Message = fmt.Sprintf("%s has no %s attribute", a.Locator, a.Name)
			return result
		}
		return check(result, v, a)
	}

	switch a.Operator {
	case parser.OpExists:
		result.Actual = len(els)
		result.Passed = true
	case parser.OpInViewport:
		in, err := el.InViewport(ctx)
		if err != nil {
			return harnessError(result, err)
		}
		result.Expected = "in viewport"
		result.Actual = "outside viewport"
		if in {
			result.Actual = "in viewport"
			result.Passed = true
			return result
		}
		result.Message = fmt.Sprintf("expected %s to be in the viewport", a.Locator)
	}
	return result
}

func (e *Evaluator) evaluatePayload(result *Result, a *parser.Assertion, doc []byte, source string) *Result {
	if a.Path == "" && a.Operator != parser.OpSchema {
		return check(result, string(doc), a)
	}

	v, err := payload.Lookup(doc, a.Path)
	if err != nil {
		missing := errors.Is(err, payload.ErrPathNotFound) || errors.Is(err, payload.ErrNoMatch)
		if missing && a.Operator == parser.OpNotExists {
			result.Passed = true
			return result
		}
		return postCondition(result, fmt.Sprintf("%s: %v", source, err))
	}

	if v.Matches > 1 {
		result.Note = fmt.Sprintf("%d records matched, using the first", v.Matches)
	}

	if a.Operator == parser.OpSchema {
		result.Actual = v.Raw
		passed, msg := validateSchema(v.Raw, a.Expected, e.baseDir)
		result.Passed = passed
		result.Message = msg
		return result
	}

	if v.Multi {
		items := v.Raw.([]any)
		result.Actual = items
		if a.Operator == parser.OpNotExists {
			result.Message = fmt.Sprintf("expected %s not to exist", a.Path)
			return result
		}
		if len(items) == 0 {
			result.Message = fmt.Sprintf("%s matched no records", a.Path)
			return result
		}
		for i, item := range items {
			if passed, msg := Compare(item, a.Operator, a.Expected); !passed {
				result.Message = fmt.Sprintf("record %d: %s", i, msg)
				return result
			}
		}
		result.Passed = true
		return result
	}

	return check(result, v.Raw, a)
}

func check(result *Result, actual any, a *parser.Assertion) *Result {
	result.Actual = actual
	passed, msg := Compare(actual, a.Operator, a.Expected)
	result.Passed = passed
	result.Message = msg
	if !passed && result.Note != "" {
		result.Message += " (" + result.Note + ")"
	}
	return result
}

func postCondition(result *Result, msg string) *Result {
	result.Outcome = OutcomePostCondition
	result.Message = msg
	return result
}

func harnessError(result *Result, err error) *Result {
	result.Outcome = OutcomeError
	result.Message = err.Error()
	result.Err = err
	return result
}
