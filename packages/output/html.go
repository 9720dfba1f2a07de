package output

import (
	"fmt"
	"html/template"
	"io"
	"os"
	"time"

	"github.com/abdul-hamid-achik/pagespec/packages/core/runner"
)

type HTMLOutput struct {
	Version        string
	Summary        JSONSummary
	Suites         []HTMLSuite
	Errors         []string
	Duration       float64
	Time           string
	PassedPercent  float64
	FailedPercent  float64
	SkippedPercent float64
}

type HTMLSuite struct {
	Name  string
	File  string
	Cases []HTMLCase
}

type HTMLCase struct {
	Name        string
	Status      string
	SkipReason  string
	Duration    float64
	FailureKind string
	Failure     string
	Step        string
	Expected    string
	Actual      string
	Notes       []string
	PageErrors  []string
	Assertions  []HTMLAssertion
}

type HTMLAssertion struct {
	Subject  string
	Operator string
	Expected string
	Actual   string
	Passed   bool
	Message  string
}

// HTMLFormatter renders a standalone HTML report
type HTMLFormatter struct {
	writer  io.Writer
	suites  []HTMLSuite
	errors  []string
	version string
}

type HTMLOption func(*HTMLFormatter)

func NewHTMLFormatter(opts ...HTMLOption) *HTMLFormatter {
	f := &HTMLFormatter{
		writer: os.Stdout,
		suites: make([]HTMLSuite, 0),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func HTMLWithWriter(w io.Writer) HTMLOption {
	return func(f *HTMLFormatter) {
		if w != nil {
			f.writer = w
		}
	}
}

func (f *HTMLFormatter) FormatResult(result *runner.RunResult) {
	suite := HTMLSuite{Name: result.Suite, File: result.File}

	for _, r := range result.Results {
		c := HTMLCase{
			Name:       r.DisplayName(),
			Status:     status(r),
			SkipReason: skipReason(r),
			Duration:   float64(r.Duration.Milliseconds()),
			Notes:      r.Notes,
		}
		if fail := r.Failure; fail != nil {
			c.FailureKind = string(fail.Kind)
			c.Failure = fail.Message
			if fail.Step != nil {
				c.Step = fmt.Sprintf("line %d: %s", fail.Step.Line, fail.Step)
			}
			if fail.Kind == runner.FailureAssertion {
				c.Expected = formatValue(fail.Expected, 200)
				c.Actual = formatValue(fail.Actual, 200)
			}
		}
		for _, pe := range r.PageErrors {
			c.PageErrors = append(c.PageErrors, pe.String())
		}
		for _, a := range r.Assertions {
			c.Assertions = append(c.Assertions, HTMLAssertion{
				Subject:  a.Subject,
				Operator: a.Operator,
				Expected: formatValue(a.Expected, 200),
				Actual:   formatValue(a.Actual, 200),
				Passed:   a.Passed,
				Message:  a.Message,
			})
		}
		suite.Cases = append(suite.Cases, c)
	}

	f.suites = append(f.suites, suite)
}

func (f *HTMLFormatter) FormatError(err error) {
	f.errors = append(f.errors, err.Error())
}

// FormatHeader captures the version for the HTML report
func (f *HTMLFormatter) FormatHeader(version string) {
	f.version = version
}

// Flush writes the accumulated HTML output
func (f *HTMLFormatter) Flush(totalDuration time.Duration) error {
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

	output := HTMLOutput{
		Version:  f.version,
		Summary:  summary,
		Suites:   f.suites,
		Errors:   f.errors,
		Duration: float64(totalDuration.Milliseconds()),
		Time:     time.Now().Format("2006-01-02 15:04:05"),
	}
	if summary.Total > 0 {
		total := float64(summary.Total)
		output.PassedPercent = float64(summary.Passed) / total * 100
		output.FailedPercent = float64(summary.Failed) / total * 100
		output.SkippedPercent = float64(summary.Skipped) / total * 100
	}

	tmpl, err := template.New("report").Parse(htmlTemplate)
	if err != nil {
		return fmt.Errorf("failed to parse HTML template: %w", err)
	}

	return tmpl.Execute(f.writer, output)
}

const htmlTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>pagespec report</title>
<style>
body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", sans-serif; margin: 2rem; color: #222; }
h1 { font-size: 1.4rem; }
.bar { display: flex; height: 10px; border-radius: 4px; overflow: hidden; background: #eee; margin: 1rem 0; }
.bar .passed { background: #2e7d32; } .bar .failed { background: #c62828; } .bar .skipped { background: #f9a825; }
.case { border-left: 4px solid #ccc; padding: .4rem .8rem; margin: .4rem 0; }
.case.passed { border-color: #2e7d32; } .case.failed { border-color: #c62828; background: #fff5f5; } .case.skipped { border-color: #f9a825; color: #777; }
.kind { font-family: monospace; background: #eee; padding: 0 .3rem; border-radius: 3px; }
.meta { color: #666; font-size: .85rem; }
table { border-collapse: collapse; font-size: .85rem; margin-top: .4rem; }
td, th { border: 1px solid #ddd; padding: .2rem .5rem; text-align: left; font-family: monospace; }
.errors { background: #fff5f5; border: 1px solid #c62828; padding: .5rem 1rem; }
</style>
</head>
<body>
<h1>pagespec {{.Version}}</h1>
<p class="meta">{{.Time}} · {{.Duration}}ms · {{.Summary.Passed}} passed, {{.Summary.Failed}} failed, {{.Summary.Skipped}} skipped, {{.Summary.Total}} total</p>
<div class="bar">
<div class="passed" style="width: {{printf "%.1f" .PassedPercent}}%"></div>
<div class="failed" style="width: {{printf "%.1f" .FailedPercent}}%"></div>
<div class="skipped" style="width: {{printf "%.1f" .SkippedPercent}}%"></div>
</div>
{{if .Errors}}<div class="errors">{{range .Errors}}<pre>{{.}}</pre>{{end}}</div>{{end}}
{{range .Suites}}
<h2>{{if .Name}}{{.Name}} <span class="meta">{{.File}}</span>{{else}}{{.File}}{{end}}</h2>
{{range .Cases}}
<div class="case {{.Status}}">
<strong>{{.Name}}</strong> <span class="meta">{{.Status}} · {{.Duration}}ms{{if .SkipReason}} · {{.SkipReason}}{{end}}</span>
{{if .Failure}}<div><span class="kind">{{.FailureKind}}</span> {{.Failure}}</div>
{{if .Step}}<div class="meta">{{.Step}}</div>{{end}}
{{if .Expected}}<div class="meta">expected {{.Expected}}, got {{.Actual}}</div>{{end}}{{end}}
{{range .Notes}}<div class="meta">note: {{.}}</div>{{end}}
{{range .PageErrors}}<div class="meta">suppressed page error: {{.}}</div>{{end}}
{{if .Assertions}}<table>
<tr><th></th><th>subject</th><th>operator</th><th>expected</th><th>actual</th></tr>
{{range .Assertions}}<tr><td>{{if .Passed}}✓{{else}}✗{{end}}</td><td>{{.Subject}}</td><td>{{.Operator}}</td><td>{{.Expected}}</td><td>{{.Actual}}</td></tr>
{{end}}</table>{{end}}
</div>
{{end}}
{{end}}
</body>
</html>
`
