package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/pagespec/packages/core/runner"
)

// TAPFormatter formats test results as TAP version 13
type TAPFormatter struct {
	writer    io.Writer
	testCount int
	results   []tapResult
	errors    []string
}

type tapResult struct {
	number     int
	name       string
	passed     bool
	skipped    bool
	skipReason string
	kind       string
	message    string
	line       int
	expected   string
	actual     string
}

type TAPOption func(*TAPFormatter)

func NewTAPFormatter(opts ...TAPOption) *TAPFormatter {
	f := &TAPFormatter{
		writer:  os.Stdout,
		results: make([]tapResult, 0),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func TAPWithWriter(w io.Writer) TAPOption {
	return func(f *TAPFormatter) {
		if w != nil {
			f.writer = w
		}
	}
}

func (f *TAPFormatter) FormatResult(result *runner.RunResult) {
	for _, r := range result.Results {
		f.testCount++
		tr := tapResult{
			number:     f.testCount,
			name:       r.DisplayName(),
			passed:     r.Passed,
			skipped:    r.Skipped,
			skipReason: skipReason(r),
		}

		if fail := r.Failure; fail != nil {
			tr.kind = string(fail.Kind)
			tr.message = fail.Message
			if fail.Step != nil {
				tr.line = fail.Step.Line
			}
			if fail.Kind == runner.FailureAssertion {
				tr.expected = formatValue(fail.Expected, 200)
				tr.actual = formatValue(fail.Actual, 200)
			}
		}

		f.results = append(f.results, tr)
	}
}

// FormatError emits suite-level errors as TAP diagnostics.
func (f *TAPFormatter) FormatError(err error) {
	f.errors = append(f.errors, err.Error())
}

func (f *TAPFormatter) FormatHeader(version string) {
	// Header is written in Flush
}

// Flush writes the accumulated TAP output
func (f *TAPFormatter) Flush(totalDuration time.Duration) error {
	fmt.Fprintf(f.writer, "TAP version 13\n")
	fmt.Fprintf(f.writer, "1..%d\n", f.testCount)

	for _, msg := range f.errors {
		for _, line := range strings.Split(msg, "\n") {
			fmt.Fprintf(f.writer, "# %s\n", line)
		}
	}

	for _, r := range f.results {
		if r.skipped {
			reason := r.skipReason
			if reason == "" {
				reason = "filtered out"
			}
			fmt.Fprintf(f.writer, "ok %d - %s # SKIP %s\n", r.number, r.name, reason)
			continue
		}

		if r.passed {
			fmt.Fprintf(f.writer, "ok %d - %s\n", r.number, r.name)
			continue
		}

		fmt.Fprintf(f.writer, "not ok %d - %s\n", r.number, r.name)
		fmt.Fprintf(f.writer, "  ---\n")
		fmt.Fprintf(f.writer, "  kind: %s\n", r.kind)
		fmt.Fprintf(f.writer, "  message: %s\n", escapeYAML(r.message))
		if r.line > 0 {
			fmt.Fprintf(f.writer, "  line: %d\n", r.line)
		}
		if r.expected != "" || r.actual != "" {
			fmt.Fprintf(f.writer, "  expected: %s\n", escapeYAML(r.expected))
			fmt.Fprintf(f.writer, "  actual: %s\n", escapeYAML(r.actual))
		}
		fmt.Fprintf(f.writer, "  ...\n")
	}

	fmt.Fprintf(f.writer, "# time %dms\n", totalDuration.Milliseconds())
	return nil
}

func escapeYAML(s string) string {
	if s == "" || strings.ContainsAny(s, ":\n\"'[]{}#&*!|>%@`") {
		s = strings.ReplaceAll(s, `\`, `\\`)
		s = strings.ReplaceAll(s, "\"", "\\\"")
		s = strings.ReplaceAll(s, "\n", `\n`)
		return "\"" + s + "\""
	}
	return s
}
