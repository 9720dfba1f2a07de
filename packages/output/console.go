package output

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"

	"github.com/abdul-hamid-achik/pagespec/packages/core/runner"
)

type ConsoleFormatter struct {
	writer  io.Writer
	verbose bool
	noColor bool
}

type ConsoleOption func(*ConsoleFormatter)

func NewConsoleFormatter(opts ...ConsoleOption) *ConsoleFormatter {
	f := &ConsoleFormatter{
		writer: os.Stdout,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.noColor {
		color.NoColor = true
	}
	return f
}

func WithWriter(w io.Writer) ConsoleOption {
	return func(f *ConsoleFormatter) {
		if w != nil {
			f.writer = w
		}
	}
}

func WithVerbose(v bool) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.verbose = v
	}
}

func WithNoColor(nc bool) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.noColor = nc
	}
}

func (f *ConsoleFormatter) FormatResult(result *runner.RunResult) {
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()
	bold := color.New(color.Bold).SprintFunc()

	title := result.File
	if result.Suite != "" {
		title = result.Suite + " (" + result.File + ")"
	}
	fmt.Fprintf(f.writer, "\n%s\n\n", bold("Running: "+title))

	for _, r := range result.Results {
		if r.Skipped {
			fmt.Fprintf(f.writer, "  %s %s", yellow("-"), r.DisplayName())
			if reason := skipReason(r); reason != "" {
				fmt.Fprintf(f.writer, " (%s)", reason)
			}
			fmt.Fprintf(f.writer, "\n")
			continue
		}

		symbol := green("✓")
		if !r.Passed {
			symbol = red("✗")
		}
		fmt.Fprintf(f.writer, "  %s %s %s\n", symbol, r.DisplayName(), cyan(fmt.Sprintf("(%dms)", r.Duration.Milliseconds())))

		if f.verbose {
			for _, s := range r.Steps {
				fmt.Fprintf(f.writer, "    %s %s\n", cyan(fmt.Sprintf("%4dms", s.Duration.Milliseconds())), s.Step)
			}
			if r.Response != nil {
				fmt.Fprintf(f.writer, "    Status: %d\n", r.Response.StatusCode)
			}
		}

		for _, note := range r.Notes {
			fmt.Fprintf(f.writer, "    %s %s\n", cyan("i"), note)
		}
		for _, pe := range r.PageErrors {
			fmt.Fprintf(f.writer, "    %s suppressed page error: %s\n", yellow("!"), pe)
		}

		if fail := r.Failure; fail != nil {
			fmt.Fprintf(f.writer, "    %s [%s] %s\n", red("→"), fail.Kind, fail.Message)
			if fail.Step != nil {
				fmt.Fprintf(f.writer, "      at line %d: %s\n", fail.Step.Line, fail.Step)
			}
			if fail.Kind == runner.FailureAssertion {
				fmt.Fprintf(f.writer, "      Expected: %s\n", formatValue(fail.Expected, 100))
				fmt.Fprintf(f.writer, "      Actual:   %s\n", formatValue(fail.Actual, 100))
			}
		}
	}

	fmt.Fprintf(f.writer, "\n")
	fmt.Fprintf(f.writer, "Tests: ")
	if result.Passed > 0 {
		fmt.Fprintf(f.writer, "%s, ", green(fmt.Sprintf("%d passed", result.Passed)))
	}
	if result.Failed > 0 {
		fmt.Fprintf(f.writer, "%s, ", red(fmt.Sprintf("%d failed", result.Failed)))
	}
	if result.Skipped > 0 {
		fmt.Fprintf(f.writer, "%s, ", yellow(fmt.Sprintf("%d skipped", result.Skipped)))
	}
	total := result.Passed + result.Failed + result.Skipped
	fmt.Fprintf(f.writer, "%d total\n", total)
	fmt.Fprintf(f.writer, "Time:  %dms\n", result.Duration.Milliseconds())

	if f.verbose && result.Timings != nil && len(result.Timings.Kinds) > 0 {
		fmt.Fprintf(f.writer, "Steps:\n")
		for _, k := range result.Timings.Kinds {
			fmt.Fprintf(f.writer, "  %-12s n=%-4d p50=%-8s p95=%-8s max=%s\n",
				k.Kind, k.Count, k.P50.Round(time.Millisecond), k.P95.Round(time.Millisecond), k.Max.Round(time.Millisecond))
		}
	}
	fmt.Fprintf(f.writer, "\n")
}

func (f *ConsoleFormatter) FormatError(err error) {
	red := color.New(color.FgRed).SprintFunc()
	fmt.Fprintf(f.writer, "%s %v\n", red("Error:"), err)
}

func (f *ConsoleFormatter) FormatHeader(version string) {
	bold := color.New(color.Bold).SprintFunc()
	fmt.Fprintf(f.writer, "%s %s\n", bold("pagespec"), version)
}
