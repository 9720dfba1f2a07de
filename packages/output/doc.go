// Package output provides formatters for displaying run results.
//
// Supported output formats:
//   - Console: Human-readable colored terminal output
//   - JSON: Machine-readable JSON output, including step timings
//   - JUnit: JUnit XML format for CI integration
//   - TAP: Test Anything Protocol version 13
//   - HTML: A standalone report page
//
// Each formatter implements the Formatter interface and can optionally
// implement Flushable for formats that accumulate results before output.
// Progress renders a progress bar from the runner's case hook.
package output
