package runner

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/pagespec/packages/assertions"
	"github.com/abdul-hamid-achik/pagespec/packages/browser"
	"github.com/abdul-hamid-achik/pagespec/packages/core/parser"
	"github.com/abdul-hamid-achik/pagespec/packages/http"
)

func caseResult(c *parser.Case) *CaseResult {
	return &CaseResult{
		Name:        c.Name,
		Description: c.Description,
		Tags:        c.Tags,
		Line:        c.Line,
	}
}

// caseState is what one case accumulates while its steps run.
type caseState struct {
	result    *CaseResult
	evaluator *assertions.Evaluator
	suppress  bool
}

func (r *Runner) runCase(ctx context.Context, suite *parser.Suite, c *parser.Case, suppress bool, baseDir string) *CaseResult {
	start := time.Now()
	cr := caseResult(c)
	state := &caseState{
		result:    cr,
		evaluator: assertions.NewEvaluator(r.harness, assertions.WithBaseDir(baseDir)),
		suppress:  suppress,
	}
	defer func() { cr.Duration = time.Since(start) }()

	log := r.logger.With("case", cr.DisplayName())

	if r.open {
		// errors thrown after the previous case finished belong to nobody
		if stale := r.harness.PageErrors(); len(stale) > 0 {
			log.Debug("discarding page errors from before the case", "count", len(stale))
		}
	}

	if err := r.applyCaseViewport(ctx, suite, c); err != nil {
		cr.Failure = newFailure(FailureAction, nil, err)
		return cr
	}

	for _, step := range c.Steps {
		if err := ctx.Err(); err != nil {
			cr.Failure = newFailure(FailureAction, step, err)
			return cr
		}

		log.Debug("step", "line", step.Line, "step", step.String())
		stepStart := time.Now()
		failure := r.runStep(ctx, step, state)
		if failure == nil {
			failure = r.checkPageErrors(step, state)
		}
		elapsed := time.Since(stepStart)

		var stepErr error
		if failure != nil {
			stepErr = failure
		}
		r.timings.Record(step.Kind.String(), elapsed, stepErr)
		cr.Steps = append(cr.Steps, &StepResult{Step: step, Duration: elapsed, Err: stepErr})

		if failure != nil {
			cr.Failure = failure
			return cr
		}
	}

	cr.Passed = true
	return cr
}

// applyCaseViewport applies the viewport in effect at the start of a case:
// the case annotation, then the suite annotation, then the current one
// (the run default, or one carried over from an earlier viewport step).
func (r *Runner) applyCaseViewport(ctx context.Context, suite *parser.Suite, c *parser.Case) error {
	vp := suite.Viewport
	if c.Metadata != nil && c.Metadata.Viewport != nil {
		vp = c.Metadata.Viewport
	}
	if vp == nil {
		vp = r.viewport
	}
	if vp == nil {
		return nil
	}
	return r.setViewport(ctx, vp)
}

func (r *Runner) setViewport(ctx context.Context, vp *parser.Viewport) error {
	r.viewport = vp
	if !r.open {
		return nil
	}
	if err := r.harness.SetViewport(ctx, vp.Width, vp.Height); err != nil {
		return fmt.Errorf("setting viewport %s: %w", vp, err)
	}
	return nil
}

func (r *Runner) checkPageErrors(step *parser.Step, state *caseState) *Failure {
	if !r.open {
		return nil
	}
	errs := r.harness.PageErrors()
	if len(errs) == 0 {
		return nil
	}
	if state.suppress {
		for _, pe := range errs {
			r.logger.Warn("suppressed page error", "case", state.result.DisplayName(), "line", step.Line, "error", pe.String())
		}
		state.result.PageErrors = append(state.result.PageErrors, errs...)
		return nil
	}

	msgs := make([]string, len(errs))
	for i, pe := range errs {
		msgs[i] = pe.String()
	}
	return &Failure{
		Kind:    FailurePageError,
		Step:    step,
		Message: "uncaught page error: " + strings.Join(msgs, "; "),
	}
}

func (r *Runner) runStep(ctx context.Context, step *parser.Step, state *caseState) *Failure {
	switch step.Kind {
	case parser.StepVisit:
		return r.visit(ctx, step)

	case parser.StepViewport:
		if err := r.setViewport(ctx, step.Viewport); err != nil {
			return newFailure(FailureAction, step, err)
		}
		return nil

	case parser.StepFetch:
		return r.fetch(ctx, step, state)

	case parser.StepExpect:
		return r.expect(ctx, step, state)
	}

	if step.Kind.IsInteraction() {
		return r.interact(ctx, step, state)
	}
	return &Failure{Kind: FailureAction, Step: step, Message: fmt.Sprintf("unsupported step %s", step.Kind)}
}

func (r *Runner) visit(ctx context.Context, step *parser.Step) *Failure {
	if err := r.ensureOpen(ctx); err != nil {
		return newFailure(FailureLoad, step, err)
	}
	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			return newFailure(FailureLoad, step, err)
		}
	}
	url := r.resolver.Resolve(step.URL)
	if err := r.harness.Navigate(ctx, url); err != nil {
		return newFailure(FailureLoad, step, fmt.Errorf("loading %s: %w", url, err))
	}
	return nil
}

func (r *Runner) interact(ctx context.Context, step *parser.Step, state *caseState) *Failure {
	if err := r.ensureOpen(ctx); err != nil {
		return newFailure(FailureAction, step, err)
	}

	loc := r.resolveLocator(step.Locator)
	els, err := r.harness.WaitFor(ctx, loc)
	if err != nil {
		return newFailure(FailureAction, step, err)
	}
	if len(els) == 0 {
		return &Failure{Kind: FailureNotFound, Step: step, Message: fmt.Sprintf("no element matches %s", loc)}
	}
	el := els[0]

	switch step.Kind {
	case parser.StepScroll:
		err = el.ScrollIntoView(ctx)
	case parser.StepClick:
		err = el.Click(ctx)
	case parser.StepType:
		err = el.Type(ctx, r.resolver.Resolve(step.Value))
	case parser.StepRemoveAttr:
		err = el.RemoveAttribute(ctx, step.Attribute)
	case parser.StepSetAttr:
		err = el.SetAttribute(ctx, step.Attribute, r.resolver.Resolve(step.Value))
	case parser.StepCopy:
		return r.copy(ctx, step, el, state)
	}
	if err != nil {
		return newFailure(FailureAction, step, fmt.Errorf("%s %s: %w", step.Kind, loc, err))
	}
	return nil
}

// copy clicks the element and waits for the clipboard read before the case
// moves on.
func (r *Runner) copy(ctx context.Context, step *parser.Step, el browser.Element, state *caseState) *Failure {
	if err := el.Click(ctx); err != nil {
		return newFailure(FailureAction, step, fmt.Errorf("copy %s: %w", step.Locator, err))
	}
	text, err := r.harness.ReadClipboard(ctx)
	if err != nil {
		return newFailure(FailurePostCondition, step, err)
	}
	state.evaluator.SetClipboard(text)
	return nil
}

func (r *Runner) fetch(ctx context.Context, step *parser.Step, state *caseState) *Failure {
	req := http.BuildRequestFromStep(step, r.resolver.Resolve)
	if err := http.ValidateURL(req.URL); err != nil {
		return newFailure(FailureRequest, step, err)
	}
	resp, err := r.client.Do(ctx, req)
	if err != nil {
		return newFailure(FailureRequest, step, fmt.Errorf("%s %s: %w", req.Method, req.URL, err))
	}
	state.evaluator.SetResponse(resp)
	state.result.Response = resp
	return nil
}

func (r *Runner) expect(ctx context.Context, step *parser.Step, state *caseState) *Failure {
	a := r.resolveAssertion(step.Assertion)
	if !a.Subject.IsPayload() && a.Subject != parser.SubjectStatus && a.Subject != parser.SubjectHeader {
		if err := r.ensureOpen(ctx); err != nil {
			return newFailure(FailureAction, step, err)
		}
	}

	res := state.evaluator.Evaluate(ctx, a)
	state.result.Assertions = append(state.result.Assertions, res)
	if res.Note != "" {
		state.result.Notes = append(state.result.Notes, fmt.Sprintf("line %d: %s", step.Line, res.Note))
		r.logger.Info(res.Note, "case", state.result.DisplayName(), "line", step.Line)
	}
	if !res.Passed {
		return failureFromResult(step, res)
	}
	return nil
}

// resolveAssertion returns a copy of a with variables expanded in the
// locator, path and expected value. Schema paths stay relative to the suite.
func (r *Runner) resolveAssertion(a *parser.Assertion) *parser.Assertion {
	resolved := *a
	resolved.Locator = r.resolveLocator(a.Locator)
	resolved.Path = r.resolver.Resolve(a.Path)
	if s, ok := a.Expected.(string); ok {
		resolved.Expected = r.resolver.Resolve(s)
		if a.Operator == parser.OpSchema {
			resolved.Expected = filepath.FromSlash(resolved.Expected.(string))
		}
	}
	return &resolved
}

func (r *Runner) resolveLocator(loc *parser.Locator) *parser.Locator {
	if loc == nil {
		return nil
	}
	resolved := &parser.Locator{Ops: make([]parser.LocatorOp, len(loc.Ops))}
	for i, op := range loc.Ops {
		op.Arg = r.resolver.Resolve(op.Arg)
		resolved.Ops[i] = op
	}
	return resolved
}
