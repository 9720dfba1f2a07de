package metrics

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
)

// PrometheusExporter writes metrics in the Prometheus text exposition
// format, suitable for the node_exporter textfile collector.
type PrometheusExporter struct {
	writer   io.Writer
	filePath string
}

// PrometheusOption is a functional option for PrometheusExporter
type PrometheusOption func(*PrometheusExporter)

// WithPrometheusWriter sets the output writer for Prometheus metrics
func WithPrometheusWriter(w io.Writer) PrometheusOption {
	return func(p *PrometheusExporter) {
		p.writer = w
	}
}

// WithPrometheusFile writes the metrics to path, replacing it on every export.
func WithPrometheusFile(path string) PrometheusOption {
	return func(p *PrometheusExporter) {
		p.filePath = path
	}
}

func NewPrometheusExporter(opts ...PrometheusOption) *PrometheusExporter {
	p := &PrometheusExporter{}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *PrometheusExporter) Export(agg *Aggregate) error {
	var buf bytes.Buffer
	writePrometheus(&buf, agg)

	if p.filePath != "" {
		// Rename so the collector never reads a partial file.
		tmp := p.filePath + ".tmp"
		if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
			return fmt.Errorf("failed to write metrics file: %w", err)
		}
		if err := os.Rename(tmp, p.filePath); err != nil {
			return fmt.Errorf("failed to write metrics file: %w", err)
		}
	}

	if p.writer != nil {
		if _, err := p.writer.Write(buf.Bytes()); err != nil {
			return fmt.Errorf("failed to write metrics: %w", err)
		}
	}
	return nil
}

func writePrometheus(w io.Writer, agg *Aggregate) {
	header := func(name, typ, help string) {
		fmt.Fprintf(w, "# HELP pagespec_%s %s\n", name, help)
		fmt.Fprintf(w, "# TYPE pagespec_%s %s\n", name, typ)
	}

	header("cases", "gauge", "Cases in the last run by outcome")
	fmt.Fprintf(w, "pagespec_cases{outcome=\"passed\"} %d\n", agg.Passed)
	fmt.Fprintf(w, "pagespec_cases{outcome=\"failed\"} %d\n", agg.Failed)
	fmt.Fprintf(w, "pagespec_cases{outcome=\"skipped\"} %d\n", agg.Skipped)
	fmt.Fprintln(w)

	header("run_duration_ms", "gauge", "Wall time of the last run in milliseconds")
	fmt.Fprintf(w, "pagespec_run_duration_ms %.2f\n", agg.DurationMs)
	fmt.Fprintln(w)

	header("last_run_timestamp_seconds", "gauge", "Unix time the last run finished")
	fmt.Fprintf(w, "pagespec_last_run_timestamp_seconds %d\n", agg.Timestamp.Unix())
	fmt.Fprintln(w)

	if len(agg.FailuresByKind) > 0 {
		header("failures", "gauge", "Failed cases by failure kind")
		for _, kind := range agg.failureKinds() {
			fmt.Fprintf(w, "pagespec_failures{kind=\"%s\"} %d\n", sanitizeLabel(kind), agg.FailuresByKind[kind])
		}
		fmt.Fprintln(w)
	}

	if len(agg.Suites) > 0 {
		header("suite_cases", "gauge", "Cases per suite by outcome")
		for _, s := range agg.Suites {
			name := sanitizeLabel(s.Suite)
			fmt.Fprintf(w, "pagespec_suite_cases{suite=\"%s\",outcome=\"passed\"} %d\n", name, s.Passed)
			fmt.Fprintf(w, "pagespec_suite_cases{suite=\"%s\",outcome=\"failed\"} %d\n", name, s.Failed)
			fmt.Fprintf(w, "pagespec_suite_cases{suite=\"%s\",outcome=\"skipped\"} %d\n", name, s.Skipped)
		}
		fmt.Fprintln(w)

		header("suite_duration_ms", "gauge", "Wall time per suite in milliseconds")
		for _, s := range agg.Suites {
			fmt.Fprintf(w, "pagespec_suite_duration_ms{suite=\"%s\"} %.2f\n", sanitizeLabel(s.Suite), s.DurationMs)
		}
		fmt.Fprintln(w)
	}

	if len(agg.Steps) > 0 {
		header("step_duration_ms", "gauge", "Step latency by suite and step kind")
		for _, st := range agg.Steps {
			labels := fmt.Sprintf("suite=\"%s\",kind=\"%s\"", sanitizeLabel(st.Suite), sanitizeLabel(st.Kind))
			fmt.Fprintf(w, "pagespec_step_duration_ms{%s,quantile=\"0.5\"} %.2f\n", labels, st.P50Ms)
			fmt.Fprintf(w, "pagespec_step_duration_ms{%s,quantile=\"0.95\"} %.2f\n", labels, st.P95Ms)
			fmt.Fprintf(w, "pagespec_step_duration_ms{%s,quantile=\"0.99\"} %.2f\n", labels, st.P99Ms)
			fmt.Fprintf(w, "pagespec_step_duration_ms{%s,quantile=\"1\"} %.2f\n", labels, st.MaxMs)
		}
		fmt.Fprintln(w)

		header("steps", "gauge", "Steps executed by suite and step kind")
		for _, st := range agg.Steps {
			fmt.Fprintf(w, "pagespec_steps{suite=\"%s\",kind=\"%s\"} %d\n", sanitizeLabel(st.Suite), sanitizeLabel(st.Kind), st.Count)
		}
		fmt.Fprintln(w)

		header("step_errors", "gauge", "Failed steps by suite and step kind")
		for _, st := range agg.Steps {
			fmt.Fprintf(w, "pagespec_step_errors{suite=\"%s\",kind=\"%s\"} %d\n", sanitizeLabel(st.Suite), sanitizeLabel(st.Kind), st.Errors)
		}
	}
}

// sanitizeLabel makes a string safe for use as a Prometheus label value
func sanitizeLabel(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "\"", "\\\"")
	s = strings.ReplaceAll(s, "\n", "\\n")
	return s
}

func (p *PrometheusExporter) Close() error {
	return nil
}
