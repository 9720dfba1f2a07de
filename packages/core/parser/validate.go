package parser

import "fmt"

// Validate performs the static checks that need the whole suite: an
// in-viewport assertion must be reachable only after a viewport has been
// configured, response assertions need a preceding fetch and clipboard
// assertions need a preceding copy. defaultViewport is the run-level
// viewport, nil when none is configured. isolation is the run-level
// isolation mode; when empty the suite's @isolation applies.
func Validate(suite *Suite, defaultViewport *Viewport, isolation string) []error {
	var errs []error

	if isolation == "" {
		isolation = suite.Isolation
	}

	// with isolation none a viewport step in an earlier case carries over
	carried := suite.Viewport != nil || defaultViewport != nil

	for _, c := range suite.Cases {
		hasViewport := carried || (c.Metadata != nil && c.Metadata.Viewport != nil)
		hasFetch := false
		hasCopy := false

		for _, step := range c.Steps {
			switch step.Kind {
			case StepViewport:
				hasViewport = true
				if isolation != IsolationPerCase {
					carried = true
				}
			case StepFetch:
				hasFetch = true
			case StepCopy:
				hasCopy = true
			case StepExpect:
				a := step.Assertion
				switch {
				case a.Operator == OpInViewport && !hasViewport:
					errs = append(errs, validationError(suite, c, step,
						"in-viewport assertion on %s has no configured viewport", a.Locator))
				case (a.Subject == SubjectStatus || a.Subject == SubjectHeader || a.Subject == SubjectBody) && !hasFetch:
					errs = append(errs, validationError(suite, c, step,
						"expect %s needs a preceding fetch step", a.Subject))
				case a.Subject == SubjectClipboard && !hasCopy:
					errs = append(errs, validationError(suite, c, step,
						"expect clipboard needs a preceding copy step"))
				}
			}
		}
	}

	return errs
}

func validationError(suite *Suite, c *Case, step *Step, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	if c.Name != "" {
		msg = fmt.Sprintf("case %q: %s", c.Name, msg)
	}
	return &ParseError{File: suite.Path, Line: step.Line, Column: 1, Message: msg}
}
