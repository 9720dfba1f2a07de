package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/abdul-hamid-achik/pagespec/packages/assertions"
	"github.com/abdul-hamid-achik/pagespec/packages/browser"
	"github.com/abdul-hamid-achik/pagespec/packages/core/env"
	"github.com/abdul-hamid-achik/pagespec/packages/core/parser"
	"github.com/abdul-hamid-achik/pagespec/packages/http"
	"github.com/abdul-hamid-achik/pagespec/packages/timing"
)

// ErrNoHarness is returned by browser steps when the runner was built
// without a harness.
var ErrNoHarness = errors.New("no browser harness configured")

type Runner struct {
	harness  browser.Harness
	client   *http.Client
	resolver *env.Resolver
	config   *Config
	logger   *slog.Logger
	limiter  *rate.Limiter
	timings  *timing.Recorder
	hooks    []CaseHook

	// per-suite session state
	open     bool
	viewport *parser.Viewport
}

type Config struct {
	Environment  string
	Environments map[string]map[string]any
	EnvFile      string
	// Timeout bounds fetch steps. Browser waits use the harness timeout.
	Timeout     time.Duration
	ValidateSSL bool
	Headers     map[string]string
	// UserAgent replaces the default User-Agent of fetch steps.
	UserAgent   string
	Bail        bool
	NameFilter  string
	TagsFilter  []string
	// Isolation overrides the suite's @isolation when set.
	Isolation string
	// SuppressPageErrors overrides the suite's @suppress-page-errors when
	// set. Unset and unannotated means page errors fail the case.
	SuppressPageErrors *bool
	// Viewport applies to suites and cases that do not configure one.
	Viewport *parser.Viewport
	// NavigationRate limits visit steps per second. Zero is unlimited.
	NavigationRate float64
}

func NewRunner(h browser.Harness, cfg *Config, opts ...Option) *Runner {
	if cfg == nil {
		cfg = &Config{ValidateSSL: true}
	}

	clientOpts := []http.ClientOption{http.WithValidateSSL(cfg.ValidateSSL)}
	if cfg.Timeout > 0 {
		clientOpts = append(clientOpts, http.WithTimeout(cfg.Timeout))
	}
	if cfg.UserAgent != "" {
		clientOpts = append(clientOpts, http.WithUserAgent(cfg.UserAgent))
	}
	for k, v := range cfg.Headers {
		clientOpts = append(clientOpts, http.WithDefaultHeader(k, v))
	}

	r := &Runner{
		harness:  h,
		client:   http.NewClient(clientOpts...),
		resolver: env.NewResolver(),
		config:   cfg,
		logger:   slog.New(slog.DiscardHandler),
		timings:  timing.NewRecorder(),
	}
	if cfg.NavigationRate > 0 {
		r.limiter = rate.NewLimiter(rate.Limit(cfg.NavigationRate), 1)
	}

	for _, opt := range opts {
		opt(r)
	}

	r.resolver.SetWarnFunc(func(format string, args ...any) {
		r.logger.Warn(fmt.Sprintf(format, args...))
	})

	return r
}

type RunResult struct {
	RunID     string
	File      string
	Suite     string
	StartedAt time.Time
	Results   []*CaseResult
	Duration  time.Duration
	Passed    int
	Failed    int
	Skipped   int
	Timings   *timing.Summary
}

// Success reports whether no case failed.
func (r *RunResult) Success() bool {
	return r.Failed == 0
}

type CaseResult struct {
	Name        string
	Description string
	Tags        []string
	Line        int
	Passed      bool
	Skipped     bool
	SkipReason  string
	Duration    time.Duration
	Steps       []*StepResult
	Assertions  []*assertions.Result
	Failure     *Failure
	// PageErrors holds uncaught page errors that were suppressed.
	PageErrors []browser.PageError
	// Notes are informational messages, e.g. a record search matching
	// more than one record.
	Notes    []string
	Response *http.Response
}

// DisplayName returns the case name, or a placeholder for unnamed cases.
func (c *CaseResult) DisplayName() string {
	if c.Name == "" {
		return fmt.Sprintf("(unnamed case, line %d)", c.Line)
	}
	return c.Name
}

type StepResult struct {
	Step     *parser.Step
	Duration time.Duration
	Err      error
}

// RunFile parses a suite file, loads its environment and runs it.
func (r *Runner) RunFile(ctx context.Context, path string) (*RunResult, error) {
	suite, err := parser.ParseFile(path)
	if err != nil {
		return nil, fmt.Errorf("parsing file: %w", err)
	}

	environment, err := env.LoadEnvironment(filepath.Dir(path), r.config.Environment, r.config.Environments, r.config.EnvFile)
	if err != nil {
		return nil, fmt.Errorf("loading environment: %w", err)
	}
	r.resolver.SetVariables(environment.Variables)

	return r.RunSuite(ctx, suite)
}

// Resolver exposes the variable resolver, e.g. to seed variables before
// RunSuite.
func (r *Runner) Resolver() *env.Resolver {
	return r.resolver
}

// RunSuite validates and runs a parsed suite. Validation problems are
// returned as an error before any case runs; case failures are reported
// in the result.
func (r *Runner) RunSuite(ctx context.Context, suite *parser.Suite) (*RunResult, error) {
	for _, v := range suite.Variables {
		r.resolver.SetVariable(v.Name, v.Value)
	}

	if errs := parser.Validate(suite, r.config.Viewport, r.isolation(suite)); len(errs) > 0 {
		return nil, fmt.Errorf("validating suite: %w", errors.Join(errs...))
	}

	start := time.Now()
	result := &RunResult{
		RunID:     uuid.NewString(),
		File:      suite.Path,
		Suite:     suite.Name,
		StartedAt: start,
	}

	isolation := r.isolation(suite)
	suppress := r.suppressPageErrors(suite)
	baseDir := filepath.Dir(suite.Path)

	r.open = false
	r.viewport = r.config.Viewport
	defer r.closeSession()

	log := r.logger.With("suite", suite.Name, "file", suite.Path)
	log.Debug("running suite", "cases", len(suite.Cases), "isolation", isolation, "suppress_page_errors", suppress)

	hasOnly := false
	for _, c := range suite.Cases {
		if c.Metadata != nil && c.Metadata.Only {
			hasOnly = true
			break
		}
	}

	bailed := false
	ran := 0
	for _, c := range suite.Cases {
		var cr *CaseResult
		switch {
		case ctx.Err() != nil:
			cr = skipped(c, "cancelled")
		case bailed:
			cr = skipped(c, "bail")
		case !r.shouldRun(c, hasOnly):
			cr = skipped(c, "filtered out")
		case c.Metadata != nil && c.Metadata.Skip != "":
			cr = skipped(c, c.Metadata.Skip)
		default:
			var resetErr error
			if isolation == parser.IsolationPerCase && ran > 0 && r.open {
				resetErr = r.harness.Reset(ctx)
				r.viewport = r.config.Viewport
			}
			if resetErr != nil {
				cr = caseResult(c)
				cr.Failure = newFailure(FailureLoad, nil, fmt.Errorf("resetting browser context: %w", resetErr))
			} else {
				cr = r.runCase(ctx, suite, c, suppress, baseDir)
			}
			ran++
		}

		result.Results = append(result.Results, cr)
		switch {
		case cr.Skipped:
			result.Skipped++
			log.Debug("case skipped", "case", cr.DisplayName(), "reason", cr.SkipReason)
		case cr.Passed:
			result.Passed++
			log.Info("case passed", "case", cr.DisplayName(), "duration", cr.Duration)
		default:
			result.Failed++
			log.Info("case failed", "case", cr.DisplayName(), "kind", cr.Failure.Kind, "reason", cr.Failure.Message)
			if r.config.Bail {
				bailed = true
			}
		}
		r.notifyHooks(cr)
	}

	result.Duration = time.Since(start)
	result.Timings = r.timings.Summary()
	return result, ctx.Err()
}

func (r *Runner) isolation(suite *parser.Suite) string {
	if r.config.Isolation != "" {
		return r.config.Isolation
	}
	if suite.Isolation != "" {
		return suite.Isolation
	}
	return parser.IsolationNone
}

func (r *Runner) suppressPageErrors(suite *parser.Suite) bool {
	if r.config.SuppressPageErrors != nil {
		return *r.config.SuppressPageErrors
	}
	if suite.SuppressPageErrors != nil {
		return *suite.SuppressPageErrors
	}
	return false
}

func skipped(c *parser.Case, reason string) *CaseResult {
	return &CaseResult{
		Name:       c.Name,
		Tags:       c.Tags,
		Line:       c.Line,
		Skipped:    true,
		SkipReason: reason,
	}
}

// ensureOpen opens the browser session on first use, so suites made only
// of fetch steps never launch a browser.
func (r *Runner) ensureOpen(ctx context.Context) error {
	if r.open {
		return nil
	}
	if r.harness == nil {
		return ErrNoHarness
	}
	if err := r.harness.Open(ctx, browser.Session{Viewport: r.viewport}); err != nil {
		return fmt.Errorf("opening browser: %w", err)
	}
	r.open = true
	return nil
}

func (r *Runner) closeSession() {
	if !r.open {
		return
	}
	r.open = false
	if err := r.harness.Close(); err != nil {
		r.logger.Warn("closing browser", "error", err)
	}
}

func (r *Runner) shouldRun(c *parser.Case, hasOnly bool) bool {
	if hasOnly && (c.Metadata == nil || !c.Metadata.Only) {
		return false
	}

	if r.config.NameFilter != "" {
		if c.Name == "" || !matchesPattern(c.Name, r.config.NameFilter) {
			return false
		}
	}

	if len(r.config.TagsFilter) > 0 {
		if !hasAnyTag(c.Tags, r.config.TagsFilter) {
			return false
		}
	}

	return true
}

// matchesPattern supports a leading and/or trailing * wildcard.
func matchesPattern(name, pattern string) bool {
	if pattern == "" || pattern == "*" {
		return true
	}

	prefix := strings.HasPrefix(pattern, "*")
	suffix := strings.HasSuffix(pattern, "*")
	core := strings.TrimSuffix(strings.TrimPrefix(pattern, "*"), "*")

	switch {
	case prefix && suffix:
		return strings.Contains(name, core)
	case prefix:
		return strings.HasSuffix(name, core)
	case suffix:
		return strings.HasPrefix(name, core)
	default:
		return name == pattern
	}
}

func hasAnyTag(tags []string, filters []string) bool {
	for _, filter := range filters {
		for _, tag := range tags {
			if tag == filter {
				return true
			}
		}
	}
	return false
}
