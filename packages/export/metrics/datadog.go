package metrics

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DataDogExporter submits metrics to the DataDog series API.
type DataDogExporter struct {
	apiKey   string
	site     string // e.g. "datadoghq.com", "datadoghq.eu"
	endpoint string
	tags     []string
	prefix   string
	client   *http.Client
}

// DataDogOption is a functional option for DataDogExporter
type DataDogOption func(*DataDogExporter)

// WithDataDogSite sets the DataDog site (e.g., "datadoghq.com", "datadoghq.eu")
func WithDataDogSite(site string) DataDogOption {
	return func(d *DataDogExporter) {
		if site != "" {
			d.site = site
		}
	}
}

// WithDataDogTags sets additional tags for all metrics
func WithDataDogTags(tags []string) DataDogOption {
	return func(d *DataDogExporter) {
		d.tags = tags
	}
}

// WithDataDogPrefix sets a prefix for metric names
func WithDataDogPrefix(prefix string) DataDogOption {
	return func(d *DataDogExporter) {
		d.prefix = prefix
	}
}

// WithDataDogEndpoint overrides the series URL derived from the site.
func WithDataDogEndpoint(url string) DataDogOption {
	return func(d *DataDogExporter) {
		d.endpoint = url
	}
}

func WithDataDogHTTPClient(c *http.Client) DataDogOption {
	return func(d *DataDogExporter) {
		d.client = c
	}
}

func NewDataDogExporter(apiKey string, opts ...DataDogOption) (*DataDogExporter, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("DataDog API key not configured")
	}

	d := &DataDogExporter{
		apiKey: apiKey,
		site:   "datadoghq.com",
		prefix: "pagespec",
		client: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.endpoint == "" {
		d.endpoint = fmt.Sprintf("https://api.%s/api/v1/series", d.site)
	}
	return d, nil
}

type datadogMetric struct {
	Metric string   `json:"metric"`
	Type   string   `json:"type"`
	Points [][]any  `json:"points"`
	Tags   []string `json:"tags,omitempty"`
}

type datadogPayload struct {
	Series []datadogMetric `json:"series"`
}

func (d *DataDogExporter) Export(agg *Aggregate) error {
	now := float64(agg.Timestamp.Unix())
	var series []datadogMetric
	add := func(name, typ string, value float64, tags ...string) {
		series = append(series, datadogMetric{
			Metric: d.prefix + "." + name,
			Type:   typ,
			Points: [][]any{{now, value}},
			Tags:   append(tags, d.tags...),
		})
	}

	add("cases.passed", "gauge", float64(agg.Passed))
	add("cases.failed", "gauge", float64(agg.Failed))
	add("cases.skipped", "gauge", float64(agg.Skipped))
	add("run.duration", "gauge", agg.DurationMs)

	for _, kind := range agg.failureKinds() {
		add("failures", "gauge", float64(agg.FailuresByKind[kind]), "kind:"+kind)
	}

	for _, s := range agg.Suites {
		tag := "suite:" + s.Suite
		add("suite.failed", "gauge", float64(s.Failed), tag)
		add("suite.duration", "gauge", s.DurationMs, tag)
	}

	for _, st := range agg.Steps {
		tags := []string{"suite:" + st.Suite, "kind:" + st.Kind}
		add("step.duration.p50", "gauge", st.P50Ms, tags...)
		add("step.duration.p95", "gauge", st.P95Ms, tags...)
		add("step.duration.max", "gauge", st.MaxMs, tags...)
		add("step.errors", "gauge", float64(st.Errors), tags...)
	}

	return d.send(series)
}

func (d *DataDogExporter) send(series []datadogMetric) error {
	data, err := json.Marshal(datadogPayload{Series: series})
	if err != nil {
		return fmt.Errorf("failed to marshal metrics: %w", err)
	}

	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, d.endpoint, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("DD-API-KEY", d.apiKey)

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send metrics: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted && resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("DataDog API returned status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

func (d *DataDogExporter) Close() error {
	return nil
}
