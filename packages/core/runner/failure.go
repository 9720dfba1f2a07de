package runner

import (
	"fmt"

	"github.com/abdul-hamid-achik/pagespec/packages/assertions"
	"github.com/abdul-hamid-achik/pagespec/packages/core/parser"
)

// FailureKind classifies why a case failed.
type FailureKind string

const (
	// FailureLoad means navigation failed.
	FailureLoad FailureKind = "load"
	// FailureNotFound means a locator matched nothing where an element was required.
	FailureNotFound FailureKind = "not-found"
	// FailureAssertion means a predicate was evaluated and was false.
	FailureAssertion FailureKind = "assertion"
	// FailurePageError means the page threw while page errors were not suppressed.
	FailurePageError FailureKind = "page-error"
	// FailurePostCondition means a clipboard read, JSON parse or record
	// search failed after the primary action succeeded.
	FailurePostCondition FailureKind = "post-condition"
	// FailureAction means an interaction or a harness read returned an error.
	FailureAction FailureKind = "action"
	// FailureRequest means a fetch step could not complete.
	FailureRequest FailureKind = "request"
)

// Failure is the reason a case failed. It is reported once per case; the
// first failing step ends the case.
type Failure struct {
	Kind     FailureKind
	Step     *parser.Step
	Message  string
	Expected any
	Actual   any
	Err      error
}

func (f *Failure) Error() string {
	if f.Step != nil && f.Step.Line > 0 {
		return fmt.Sprintf("%s (line %d): %s", f.Kind, f.Step.Line, f.Message)
	}
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

func newFailure(kind FailureKind, step *parser.Step, err error) *Failure {
	return &Failure{Kind: kind, Step: step, Message: err.Error(), Err: err}
}

func failureFromResult(step *parser.Step, res *assertions.Result) *Failure {
	f := &Failure{
		Step:     step,
		Message:  res.Message,
		Expected: res.Expected,
		Actual:   res.Actual,
		Err:      res.Err,
	}
	switch res.Outcome {
	case assertions.OutcomeNotFound:
		f.Kind = FailureNotFound
	case assertions.OutcomePostCondition:
		f.Kind = FailurePostCondition
	case assertions.OutcomeError:
		f.Kind = FailureAction
	default:
		f.Kind = FailureAssertion
	}
	if f.Message == "" {
		f.Message = fmt.Sprintf("expect %s failed", res.Subject)
	}
	return f
}
