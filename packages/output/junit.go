package output

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/pagespec/packages/core/runner"
)

// JUnitTestSuites is the root element
type JUnitTestSuites struct {
	XMLName    xml.Name         `xml:"testsuites"`
	Name       string           `xml:"name,attr,omitempty"`
	Tests      int              `xml:"tests,attr"`
	Failures   int              `xml:"failures,attr"`
	Errors     int              `xml:"errors,attr"`
	Skipped    int              `xml:"skipped,attr"`
	Time       float64          `xml:"time,attr"`
	Timestamp  string           `xml:"timestamp,attr,omitempty"`
	TestSuites []JUnitTestSuite `xml:"testsuite"`
}

// JUnitTestSuite is one suite file
type JUnitTestSuite struct {
	XMLName   xml.Name        `xml:"testsuite"`
	Name      string          `xml:"name,attr"`
	Tests     int             `xml:"tests,attr"`
	Failures  int             `xml:"failures,attr"`
	Errors    int             `xml:"errors,attr"`
	Skipped   int             `xml:"skipped,attr"`
	Time      float64         `xml:"time,attr"`
	Timestamp string          `xml:"timestamp,attr,omitempty"`
	TestCases []JUnitTestCase `xml:"testcase"`
}

type JUnitTestCase struct {
	XMLName    xml.Name         `xml:"testcase"`
	Name       string           `xml:"name,attr"`
	ClassName  string           `xml:"classname,attr"`
	Time       float64          `xml:"time,attr"`
	Properties *JUnitProperties `xml:"properties,omitempty"`
	Failure   *JUnitFailure `xml:"failure,omitempty"`
	Error     *JUnitError   `xml:"error,omitempty"`
	Skipped   *JUnitSkipped `xml:"skipped,omitempty"`
	SystemOut string        `xml:"system-out,omitempty"`
}

type JUnitFailure struct {
	Message string `xml:"message,attr,omitempty"`
	Type    string `xml:"type,attr,omitempty"`
	Content string `xml:",chardata"`
}

type JUnitError struct {
	Message string `xml:"message,attr,omitempty"`
	Type    string `xml:"type,attr,omitempty"`
	Content string `xml:",chardata"`
}

type JUnitProperties struct {
	Property []JUnitProperty `xml:"property"`
}

type JUnitProperty struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

type JUnitSkipped struct {
	Message string `xml:"message,attr,omitempty"`
}

// JUnitFormatter formats test results as JUnit XML
type JUnitFormatter struct {
	writer     io.Writer
	testSuites []JUnitTestSuite
	errors     []string
}

type JUnitOption func(*JUnitFormatter)

func NewJUnitFormatter(opts ...JUnitOption) *JUnitFormatter {
	f := &JUnitFormatter{
		writer:     os.Stdout,
		testSuites: make([]JUnitTestSuite, 0),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func JUnitWithWriter(w io.Writer) JUnitOption {
	return func(f *JUnitFormatter) {
		if w != nil {
			f.writer = w
		}
	}
}

// isError reports failures that are not predicate mismatches: the case
// could not be evaluated rather than evaluated to false.
func isError(kind runner.FailureKind) bool {
	switch kind {
	case runner.FailureLoad, runner.FailureAction, runner.FailureRequest:
		return true
	}
	return false
}

func (f *JUnitFormatter) FormatResult(result *runner.RunResult) {
	name := result.Suite
	if name == "" {
		name = result.File
	}
	suite := JUnitTestSuite{
		Name:      name,
		Tests:     len(result.Results),
		Skipped:   result.Skipped,
		Time:      result.Duration.Seconds(),
		Timestamp: result.StartedAt.Format(time.RFC3339),
		TestCases: make([]JUnitTestCase, 0, len(result.Results)),
	}

	for _, r := range result.Results {
		tc := JUnitTestCase{
			Name:      r.DisplayName(),
			ClassName: result.File,
			Time:      r.Duration.Seconds(),
		}
		tc.Properties = caseProperties(r)

		var out strings.Builder
		for _, note := range r.Notes {
			fmt.Fprintf(&out, "note: %s\n", note)
		}
		for _, pe := range r.PageErrors {
			fmt.Fprintf(&out, "suppressed page error: %s\n", pe)
		}
		tc.SystemOut = out.String()

		switch fail := r.Failure; {
		case r.Skipped:
			tc.Skipped = &JUnitSkipped{Message: r.SkipReason}
		case fail != nil && isError(fail.Kind):
			suite.Errors++
			tc.Error = &JUnitError{
				Message: fail.Message,
				Type:    string(fail.Kind),
				Content: failureDetail(fail),
			}
		case fail != nil:
			suite.Failures++
			tc.Failure = &JUnitFailure{
				Message: fail.Message,
				Type:    string(fail.Kind),
				Content: failureDetail(fail),
			}
		}

		suite.TestCases = append(suite.TestCases, tc)
	}

	f.testSuites = append(f.testSuites, suite)
}

// caseProperties records where a case lives and what it checked.
func caseProperties(r *runner.CaseResult) *JUnitProperties {
	var props []JUnitProperty
	if r.Line > 0 {
		props = append(props, JUnitProperty{Name: "line", Value: fmt.Sprint(r.Line)})
	}
	if len(r.Tags) > 0 {
		props = append(props, JUnitProperty{Name: "tags", Value: strings.Join(r.Tags, ",")})
	}
	if len(r.Assertions) > 0 {
		props = append(props, JUnitProperty{Name: "assertions", Value: fmt.Sprint(len(r.Assertions))})
	}
	if len(r.PageErrors) > 0 {
		props = append(props, JUnitProperty{Name: "page-errors", Value: fmt.Sprint(len(r.PageErrors))})
	}
	if len(props) == 0 {
		return nil
	}
	return &JUnitProperties{Property: props}
}

func failureDetail(fail *runner.Failure) string {
	var b strings.Builder
	if fail.Step != nil {
		fmt.Fprintf(&b, "line %d: %s\n", fail.Step.Line, fail.Step)
	}
	if fail.Kind == runner.FailureAssertion {
		fmt.Fprintf(&b, "expected: %s\nactual:   %s\n", formatValue(fail.Expected, 200), formatValue(fail.Actual, 200))
	}
	return b.String()
}

// FormatError reports a suite that could not run as an errored testcase
// in a synthetic "errors" suite.
func (f *JUnitFormatter) FormatError(err error) {
	f.errors = append(f.errors, err.Error())
}

func (f *JUnitFormatter) FormatHeader(version string) {
	// No header needed for JUnit XML
}

// Flush writes the accumulated JUnit XML output
func (f *JUnitFormatter) Flush(totalDuration time.Duration) error {
	if len(f.errors) > 0 {
		errSuite := JUnitTestSuite{Name: "errors", Tests: len(f.errors), Errors: len(f.errors)}
		for i, msg := range f.errors {
			errSuite.TestCases = append(errSuite.TestCases, JUnitTestCase{
				Name:      fmt.Sprintf("error %d", i+1),
				ClassName: "pagespec",
				Error:     &JUnitError{Message: firstLine(msg), Type: "suite", Content: msg},
			})
		}
		f.testSuites = append(f.testSuites, errSuite)
		f.errors = nil
	}

	var totalTests, totalFailures, totalErrors, totalSkipped int
	for _, suite := range f.testSuites {
		totalTests += suite.Tests
		totalFailures += suite.Failures
		totalErrors += suite.Errors
		totalSkipped += suite.Skipped
	}

	suites := JUnitTestSuites{
		Name:       "pagespec",
		Tests:      totalTests,
		Failures:   totalFailures,
		Errors:     totalErrors,
		Skipped:    totalSkipped,
		Time:       totalDuration.Seconds(),
		Timestamp:  time.Now().Format(time.RFC3339),
		TestSuites: f.testSuites,
	}

	fmt.Fprintf(f.writer, "<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n")
	encoder := xml.NewEncoder(f.writer)
	encoder.Indent("", "  ")
	return encoder.Encode(suites)
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
