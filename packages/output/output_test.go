package output

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdul-hamid-achik/pagespec/packages/assertions"
	"github.com/abdul-hamid-achik/pagespec/packages/browser"
	"github.com/abdul-hamid-achik/pagespec/packages/core/parser"
	"github.com/abdul-hamid-achik/pagespec/packages/core/runner"
	"github.com/abdul-hamid-achik/pagespec/packages/timing"
)

func sampleResult() *runner.RunResult {
	rec := timing.NewRecorder()
	rec.Record("visit", 800*time.Millisecond, nil)
	rec.Record("expect", 20*time.Millisecond, nil)

	urlStep := &parser.Step{Kind: parser.StepExpect, Line: 9, Assertion: &parser.Assertion{
		Subject: parser.SubjectURL, Operator: parser.OpEquals, Expected: "https://raptormaps.com/rmtechnology/",
	}}

	return &runner.RunResult{
		RunID:     "run-1",
		File:      "marketing.pagespec",
		Suite:     "Marketing site",
		StartedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Duration:  1500 * time.Millisecond,
		Passed:    1,
		Failed:    2,
		Skipped:   1,
		Timings:   rec.Summary(),
		Results: []*runner.CaseResult{
			{
				Name:       "Jobs links to technology",
				Passed:     true,
				Duration:   900 * time.Millisecond,
				Notes:      []string{"line 20: 2 records matched, using the first"},
				PageErrors: []browser.PageError{{Message: "ReferenceError: jQuery is not defined"}},
				Assertions: []*assertions.Result{{Passed: true, Subject: "url", Operator: "==", Expected: "x", Actual: "x"}},
			},
			{
				Name:     "Hub link",
				Duration: 300 * time.Millisecond,
				Failure: &runner.Failure{
					Kind:     runner.FailureAssertion,
					Step:     urlStep,
					Message:  `expected "https://raptormaps.com/rmtechnology/", got "https://raptormaps.com/jobs/"`,
					Expected: "https://raptormaps.com/rmtechnology/",
					Actual:   "https://raptormaps.com/jobs/",
				},
			},
			{
				Name:    "Docs",
				Failure: &runner.Failure{Kind: runner.FailureLoad, Message: "loading https://docs.raptormaps.com: timeout", Err: errors.New("timeout")},
			},
			{Name: "Explorer", Skipped: true, SkipReason: "bail"},
		},
	}
}

func TestNewFormatter(t *testing.T) {
	for _, name := range Formats {
		f, err := NewFormatter(name, Options{Writer: &bytes.Buffer{}})
		require.NoError(t, err, name)
		assert.NotNil(t, f)
	}
	_, err := NewFormatter("xml", Options{})
	assert.ErrorContains(t, err, "unknown output format")
}

func TestConsoleFormatter(t *testing.T) {
	var buf bytes.Buffer
	f := NewConsoleFormatter(WithWriter(&buf), WithNoColor(true), WithVerbose(true))
	f.FormatResult(sampleResult())
	f.FormatError(errors.New("boom"))

	out := buf.String()
	assert.Contains(t, out, "Running: Marketing site (marketing.pagespec)")
	assert.Contains(t, out, "✓ Jobs links to technology")
	assert.Contains(t, out, "✗ Hub link")
	assert.Contains(t, out, "[assertion]")
	assert.Contains(t, out, "at line 9")
	assert.Contains(t, out, `Expected: "https://raptormaps.com/rmtechnology/"`)
	assert.Contains(t, out, "[load] loading https://docs.raptormaps.com: timeout")
	assert.Contains(t, out, "- Explorer (bail)")
	assert.Contains(t, out, "2 records matched")
	assert.Contains(t, out, "suppressed page error: ReferenceError")
	assert.Contains(t, out, "1 passed, 2 failed, 1 skipped, 4 total")
	assert.Contains(t, out, "visit")
	assert.Contains(t, out, "Error: boom")
}

func TestJSONFormatter(t *testing.T) {
	var buf bytes.Buffer
	f := NewJSONFormatter(JSONWithWriter(&buf))
	f.FormatResult(sampleResult())
	f.FormatError(errors.New("other.pagespec:3:1: unknown step \"hover\""))
	require.NoError(t, f.Flush(2*time.Second))

	var out JSONOutput
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, JSONSummary{Total: 4, Passed: 1, Failed: 2, Skipped: 1}, out.Summary)
	require.Len(t, out.Suites, 1)
	assert.Equal(t, "run-1", out.Suites[0].RunID)
	cases := out.Suites[0].Cases
	assert.Equal(t, "passed", cases[0].Status)
	require.NotNil(t, cases[1].Failure)
	assert.Equal(t, "assertion", cases[1].Failure.Kind)
	assert.Equal(t, 9, cases[1].Failure.Line)
	assert.Equal(t, "bail", cases[3].SkipReason)
	assert.Len(t, out.Errors, 1)
	require.NotNil(t, out.Suites[0].Timings)
	assert.Len(t, out.Suites[0].Timings.Kinds, 2)
}

func TestJUnitFormatter(t *testing.T) {
	var buf bytes.Buffer
	f := NewJUnitFormatter(JUnitWithWriter(&buf))
	f.FormatResult(sampleResult())
	require.NoError(t, f.Flush(time.Second))

	assert.True(t, strings.HasPrefix(buf.String(), `<?xml version="1.0" encoding="UTF-8"?>`))

	var suites JUnitTestSuites
	require.NoError(t, xml.Unmarshal(buf.Bytes(), &suites))
	assert.Equal(t, 4, suites.Tests)
	assert.Equal(t, 1, suites.Failures)
	assert.Equal(t, 1, suites.Errors)
	assert.Equal(t, 1, suites.Skipped)

	cases := suites.TestSuites[0].TestCases
	assert.Contains(t, cases[0].SystemOut, "2 records matched")
	require.NotNil(t, cases[1].Failure)
	assert.Equal(t, "assertion", cases[1].Failure.Type)
	require.NotNil(t, cases[2].Error)
	assert.Equal(t, "load", cases[2].Error.Type)
	require.NotNil(t, cases[3].Skipped)

	require.NotNil(t, cases[0].Properties)
	assert.Contains(t, cases[0].Properties.Property, JUnitProperty{Name: "assertions", Value: "1"})
	assert.Contains(t, cases[0].Properties.Property, JUnitProperty{Name: "page-errors", Value: "1"})
	assert.Nil(t, cases[3].Properties)
}

func TestJUnitFormatter_SuiteErrors(t *testing.T) {
	var buf bytes.Buffer
	f := NewJUnitFormatter(JUnitWithWriter(&buf))
	f.FormatResult(sampleResult())
	f.FormatError(errors.New("broken.pagespec:3:1: unknown step \"hover\"\nsecond line"))
	require.NoError(t, f.Flush(time.Second))

	var suites JUnitTestSuites
	require.NoError(t, xml.Unmarshal(buf.Bytes(), &suites))
	require.Len(t, suites.TestSuites, 2)
	assert.Equal(t, 2, suites.Errors)
	assert.Equal(t, 5, suites.Tests)

	errSuite := suites.TestSuites[1]
	assert.Equal(t, "errors", errSuite.Name)
	require.Len(t, errSuite.TestCases, 1)
	require.NotNil(t, errSuite.TestCases[0].Error)
	assert.Equal(t, `broken.pagespec:3:1: unknown step "hover"`, errSuite.TestCases[0].Error.Message)
	assert.Contains(t, errSuite.TestCases[0].Error.Content, "second line")
}

func TestTAPFormatter(t *testing.T) {
	var buf bytes.Buffer
	f := NewTAPFormatter(TAPWithWriter(&buf))
	f.FormatResult(sampleResult())
	require.NoError(t, f.Flush(time.Second))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "TAP version 13\n1..4\n"))
	assert.Contains(t, out, "ok 1 - Jobs links to technology\n")
	assert.Contains(t, out, "not ok 2 - Hub link\n")
	assert.Contains(t, out, "  kind: assertion\n")
	assert.Contains(t, out, "  line: 9\n")
	assert.Contains(t, out, "not ok 3 - Docs\n")
	assert.Contains(t, out, "ok 4 - Explorer # SKIP bail\n")
}

func TestHTMLFormatter(t *testing.T) {
	var buf bytes.Buffer
	f := NewHTMLFormatter(HTMLWithWriter(&buf))
	f.FormatHeader("v1.2.3")
	f.FormatResult(sampleResult())
	require.NoError(t, f.Flush(time.Second))

	out := buf.String()
	assert.Contains(t, out, "<h1>pagespec v1.2.3</h1>")
	assert.Contains(t, out, `class="case failed"`)
	assert.Contains(t, out, "Hub link")
	assert.Contains(t, out, "1 passed, 2 failed, 1 skipped, 4 total")
	assert.Contains(t, out, "width: 25.0%")
}

func TestEscapeYAML(t *testing.T) {
	assert.Equal(t, "plain", escapeYAML("plain"))
	assert.Equal(t, `""`, escapeYAML(""))
	assert.Equal(t, `"a: \"b\"\nc"`, escapeYAML("a: \"b\"\nc"))
}

func TestProgress(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgress(3, &buf)
	p.Observe(&runner.CaseResult{Passed: true})
	p.Observe(&runner.CaseResult{Failure: &runner.Failure{Kind: runner.FailureNotFound}})
	p.Observe(&runner.CaseResult{Skipped: true})
	p.Finish()

	passed, failed, skipped := p.Counts()
	assert.Equal(t, 1, passed)
	assert.Equal(t, 1, failed)
	assert.Equal(t, 1, skipped)
	assert.NotEmpty(t, buf.String())
}
