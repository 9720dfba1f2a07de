package output

import (
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/abdul-hamid-achik/pagespec/packages/core/runner"
	"github.com/abdul-hamid-achik/pagespec/packages/timing"
)

// JSONOutput represents the complete JSON output structure
type JSONOutput struct {
	Summary  JSONSummary `json:"summary"`
	Suites   []JSONSuite `json:"suites"`
	Errors   []string    `json:"errors,omitempty"`
	Duration float64     `json:"duration"`
	Time     string      `json:"time"`
}

type JSONSummary struct {
	Total   int `json:"total"`
	Passed  int `json:"passed"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
}

type JSONSuite struct {
	RunID    string          `json:"runId"`
	Name     string          `json:"name,omitempty"`
	File     string          `json:"file"`
	Duration float64         `json:"duration"`
	Cases    []JSONCase      `json:"cases"`
	Timings  *timing.Summary `json:"timings,omitempty"`
}

type JSONCase struct {
	Name       string          `json:"name"`
	Line       int             `json:"line"`
	Status     string          `json:"status"`
	SkipReason string          `json:"skipReason,omitempty"`
	Duration   float64         `json:"duration"`
	Failure    *JSONFailure    `json:"failure,omitempty"`
	Assertions []JSONAssertion `json:"assertions,omitempty"`
	Notes      []string        `json:"notes,omitempty"`
	PageErrors []string        `json:"pageErrors,omitempty"`
}

type JSONFailure struct {
	Kind     string `json:"kind"`
	Line     int    `json:"line,omitempty"`
	Step     string `json:"step,omitempty"`
	Message  string `json:"message"`
	Expected any    `json:"expected,omitempty"`
	Actual   any    `json:"actual,omitempty"`
}

type JSONAssertion struct {
	Subject  string `json:"subject"`
	Operator string `json:"operator"`
	Expected any    `json:"expected"`
	Actual   any    `json:"actual"`
	Passed   bool   `json:"passed"`
	Message  string `json:"message,omitempty"`
}

// JSONFormatter formats test results as JSON
type JSONFormatter struct {
	writer io.Writer
	suites []JSONSuite
	errors []string
}

type JSONOption func(*JSONFormatter)

func NewJSONFormatter(opts ...JSONOption) *JSONFormatter {
	f := &JSONFormatter{
		writer: os.Stdout,
		suites: make([]JSONSuite, 0),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func JSONWithWriter(w io.Writer) JSONOption {
	return func(f *JSONFormatter) {
		if w != nil {
			f.writer = w
		}
	}
}

func (f *JSONFormatter) FormatResult(result *runner.RunResult) {
	suite := JSONSuite{
		RunID:    result.RunID,
		Name:     result.Suite,
		File:     result.File,
		Duration: float64(result.Duration.Milliseconds()),
		Cases:    make([]JSONCase, 0, len(result.Results)),
		Timings:  result.Timings,
	}

	for _, r := range result.Results {
		c := JSONCase{
			Name:       r.DisplayName(),
			Line:       r.Line,
			Status:     status(r),
			SkipReason: skipReason(r),
			Duration:   float64(r.Duration.Milliseconds()),
			Notes:      r.Notes,
		}

		if fail := r.Failure; fail != nil {
			c.Failure = &JSONFailure{
				Kind:     string(fail.Kind),
				Message:  fail.Message,
				Expected: fail.Expected,
				Actual:   fail.Actual,
			}
			if fail.Step != nil {
				c.Failure.Line = fail.Step.Line
				c.Failure.Step = fail.Step.String()
			}
		}

		for _, a := range r.Assertions {
			c.Assertions = append(c.Assertions, JSONAssertion{
				Subject:  a.Subject,
				Operator: a.Operator,
				Expected: a.Expected,
				Actual:   a.Actual,
				Passed:   a.Passed,
				Message:  a.Message,
			})
		}

		for _, pe := range r.PageErrors {
			c.PageErrors = append(c.PageErrors, pe.String())
		}

		suite.Cases = append(suite.Cases, c)
	}

	f.suites = append(f.suites, suite)
}

// FormatError records suite-level errors such as parse failures.
func (f *JSONFormatter) FormatError(err error) {
	f.errors = append(f.errors, err.Error())
}

func (f *JSONFormatter) FormatHeader(version string) {
	// No header needed for JSON output
}

// Flush writes the accumulated JSON output
func (f *JSONFormatter) Flush(totalDuration time.Duration) error {
	var summary JSONSummary
	for _, s := range f.suites {
		for _, c := range s.Cases {
			summary.Total++
			switch c.Status {
			case "passed":
				summary.Passed++
			case "failed":
				summary.Failed++
			default:
				summary.Skipped++
			}
		}
	}

	output := JSONOutput{
		Summary:  summary,
		Suites:   f.suites,
		Errors:   f.errors,
		Duration: float64(totalDuration.Milliseconds()),
		Time:     time.Now().Format(time.RFC3339),
	}

	encoder := json.NewEncoder(f.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(output)
}
