// Package metrics exports run outcomes and step latencies to monitoring
// systems.
package metrics

import (
	"errors"
	"sort"
	"time"

	"github.com/abdul-hamid-achik/pagespec/packages/core/runner"
)

// Aggregate summarizes one pass over the suite files.
type Aggregate struct {
	Cases          int64            `json:"cases"`
	Passed         int64            `json:"passed"`
	Failed         int64            `json:"failed"`
	Skipped        int64            `json:"skipped"`
	DurationMs     float64          `json:"duration_ms"`
	FailuresByKind map[string]int64 `json:"failures_by_kind"`
	Suites         []SuiteAggregate `json:"suites"`
	Steps          []StepAggregate  `json:"steps"`
	Timestamp      time.Time        `json:"timestamp"`
}

// SuiteAggregate is the outcome of one suite file.
type SuiteAggregate struct {
	Suite      string  `json:"suite"`
	File       string  `json:"file"`
	Passed     int64   `json:"passed"`
	Failed     int64   `json:"failed"`
	Skipped    int64   `json:"skipped"`
	DurationMs float64 `json:"duration_ms"`
}

// StepAggregate is the latency of one step kind within a suite.
type StepAggregate struct {
	Suite  string  `json:"suite"`
	Kind   string  `json:"kind"`
	Count  int64   `json:"count"`
	Errors int64   `json:"errors"`
	P50Ms  float64 `json:"p50_ms"`
	P95Ms  float64 `json:"p95_ms"`
	P99Ms  float64 `json:"p99_ms"`
	MaxMs  float64 `json:"max_ms"`
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

// FromResults builds the aggregate of a pass.
func FromResults(results []*runner.RunResult) *Aggregate {
	agg := &Aggregate{
		FailuresByKind: map[string]int64{},
		Timestamp:      time.Now(),
	}

	for _, res := range results {
		name := res.Suite
		if name == "" {
			name = res.File
		}

		agg.Passed += int64(res.Passed)
		agg.Failed += int64(res.Failed)
		agg.Skipped += int64(res.Skipped)
		agg.DurationMs += ms(res.Duration)
		agg.Suites = append(agg.Suites, SuiteAggregate{
			Suite:      name,
			File:       res.File,
			Passed:     int64(res.Passed),
			Failed:     int64(res.Failed),
			Skipped:    int64(res.Skipped),
			DurationMs: ms(res.Duration),
		})

		for _, cr := range res.Results {
			if cr.Failure != nil {
				agg.FailuresByKind[string(cr.Failure.Kind)]++
			}
		}

		if res.Timings == nil {
			continue
		}
		for _, k := range res.Timings.Kinds {
			agg.Steps = append(agg.Steps, StepAggregate{
				Suite:  name,
				Kind:   k.Kind,
				Count:  k.Count,
				Errors: k.Errors,
				P50Ms:  ms(k.P50),
				P95Ms:  ms(k.P95),
				P99Ms:  ms(k.P99),
				MaxMs:  ms(k.Max),
			})
		}
	}

	agg.Cases = agg.Passed + agg.Failed + agg.Skipped
	return agg
}

// failureKinds returns the failure kinds in stable order.
func (a *Aggregate) failureKinds() []string {
	kinds := make([]string, 0, len(a.FailuresByKind))
	for k := range a.FailuresByKind {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// Exporter is the interface for metrics exporters
type Exporter interface {
	Export(agg *Aggregate) error
	Close() error
}

// Collector fans an aggregate out to several exporters.
type Collector struct {
	exporters []Exporter
}

func NewCollector(exporters ...Exporter) *Collector {
	return &Collector{exporters: exporters}
}

// Export sends agg to every exporter and joins their errors.
func (c *Collector) Export(agg *Aggregate) error {
	var errs []error
	for _, exp := range c.exporters {
		if err := exp.Export(agg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (c *Collector) Close() error {
	var errs []error
	for _, exp := range c.exporters {
		if err := exp.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
