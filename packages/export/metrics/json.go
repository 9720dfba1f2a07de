package metrics

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"
)

// JSONExporter writes the aggregate as a JSON document.
type JSONExporter struct {
	writer   io.Writer
	filePath string
	version  string
}

// JSONOption is a functional option for JSONExporter
type JSONOption func(*JSONExporter)

// WithJSONWriter sets the output writer for JSON metrics
func WithJSONWriter(w io.Writer) JSONOption {
	return func(j *JSONExporter) {
		j.writer = w
	}
}

// WithJSONFile sets the output file for JSON metrics
func WithJSONFile(path string) JSONOption {
	return func(j *JSONExporter) {
		j.filePath = path
	}
}

// WithJSONVersion records the runner version in the metadata block.
func WithJSONVersion(version string) JSONOption {
	return func(j *JSONExporter) {
		j.version = version
	}
}

func NewJSONExporter(opts ...JSONOption) *JSONExporter {
	j := &JSONExporter{version: "dev"}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// JSONMetricsOutput is the complete JSON output structure
type JSONMetricsOutput struct {
	Metadata JSONMetadata `json:"metadata"`
	Metrics  *Aggregate   `json:"metrics"`
}

type JSONMetadata struct {
	GeneratedAt string `json:"generated_at"`
	Version     string `json:"version"`
}

func (j *JSONExporter) Export(agg *Aggregate) error {
	out := JSONMetricsOutput{
		Metadata: JSONMetadata{
			GeneratedAt: time.Now().UTC().Format(time.RFC3339),
			Version:     j.version,
		},
		Metrics: agg,
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metrics: %w", err)
	}
	data = append(data, '\n')

	if j.filePath != "" {
		if err := os.WriteFile(j.filePath, data, 0o644); err != nil {
			return fmt.Errorf("failed to write metrics file: %w", err)
		}
	}

	if j.writer != nil {
		if _, err := j.writer.Write(data); err != nil {
			return fmt.Errorf("failed to write metrics: %w", err)
		}
	}
	return nil
}

func (j *JSONExporter) Close() error {
	return nil
}
