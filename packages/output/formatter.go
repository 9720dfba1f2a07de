package output

import (
	"fmt"
	"io"
	"time"

	"github.com/abdul-hamid-achik/pagespec/packages/core/runner"
)

// Formatter renders run results. FormatResult is called once per suite file.
type Formatter interface {
	FormatResult(result *runner.RunResult)
	FormatError(err error)
	FormatHeader(version string)
}

// Flushable is implemented by formatters that accumulate results and
// write them in one document at the end of the run.
type Flushable interface {
	Flush(totalDuration time.Duration) error
}

// Formats lists the names accepted by NewFormatter.
var Formats = []string{"console", "json", "junit", "tap", "html"}

type Options struct {
	Writer  io.Writer
	Verbose bool
	NoColor bool
}

func NewFormatter(format string, opts Options) (Formatter, error) {
	switch format {
	case "", "console":
		return NewConsoleFormatter(WithWriter(opts.Writer), WithVerbose(opts.Verbose), WithNoColor(opts.NoColor)), nil
	case "json":
		return NewJSONFormatter(JSONWithWriter(opts.Writer)), nil
	case "junit":
		return NewJUnitFormatter(JUnitWithWriter(opts.Writer)), nil
	case "tap":
		return NewTAPFormatter(TAPWithWriter(opts.Writer)), nil
	case "html":
		return NewHTMLFormatter(HTMLWithWriter(opts.Writer)), nil
	default:
		return nil, fmt.Errorf("unknown output format %q (expected console, json, junit, tap or html)", format)
	}
}

func status(cr *runner.CaseResult) string {
	switch {
	case cr.Skipped:
		return "skipped"
	case cr.Passed:
		return "passed"
	default:
		return "failed"
	}
}

// skipReason hides the reason for cases dropped by filters.
func skipReason(cr *runner.CaseResult) string {
	if cr.SkipReason == "filtered out" {
		return ""
	}
	return cr.SkipReason
}

// formatValue formats a value for display, truncating or summarizing large values
func formatValue(v any, maxLen int) string {
	switch val := v.(type) {
	case nil:
		return "(none)"
	case []any:
		return fmt.Sprintf("[array with %d items]", len(val))
	case map[string]any:
		return fmt.Sprintf("{object with %d keys}", len(val))
	case string:
		if len(val) > maxLen {
			return fmt.Sprintf("%q...", val[:maxLen])
		}
		return fmt.Sprintf("%q", val)
	}
	str := fmt.Sprintf("%v", v)
	if len(str) > maxLen {
		return str[:maxLen] + "..."
	}
	return str
}
