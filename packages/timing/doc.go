// Package timing records step latencies in HDR histograms, one per step
// kind (visit, click, expect, ...), and summarises them as percentiles.
package timing
