package timing

import (
	"sort"
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// Histogram range: 1us to 60s, 3 significant digits.
const (
	minLatencyUs = 1
	maxLatencyUs = 60_000_000
	sigFigs      = 3
)

// Recorder collects step latencies per step kind.
type Recorder struct {
	mu    sync.Mutex
	total *hdrhistogram.Histogram
	kinds map[string]*kindMetrics
}

type kindMetrics struct {
	count     int64
	errors    int64
	histogram *hdrhistogram.Histogram
}

func NewRecorder() *Recorder {
	return &Recorder{
		total: hdrhistogram.New(minLatencyUs, maxLatencyUs, sigFigs),
		kinds: make(map[string]*kindMetrics),
	}
}

// Record adds one step execution. err marks the step as failed.
func (r *Recorder) Record(kind string, duration time.Duration, err error) {
	latencyUs := clamp(duration.Microseconds())

	r.mu.Lock()
	defer r.mu.Unlock()

	km, ok := r.kinds[kind]
	if !ok {
		km = &kindMetrics{histogram: hdrhistogram.New(minLatencyUs, maxLatencyUs, sigFigs)}
		r.kinds[kind] = km
	}
	km.count++
	if err != nil {
		km.errors++
	}
	_ = km.histogram.RecordValue(latencyUs)
	_ = r.total.RecordValue(latencyUs)
}

func clamp(us int64) int64 {
	if us < minLatencyUs {
		return minLatencyUs
	}
	if us > maxLatencyUs {
		return maxLatencyUs
	}
	return us
}

// Reset discards everything recorded so far.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.total.Reset()
	r.kinds = make(map[string]*kindMetrics)
}

type Summary struct {
	Steps int64         `json:"steps"`
	P50   time.Duration `json:"p50"`
	P95   time.Duration `json:"p95"`
	P99   time.Duration `json:"p99"`
	Max   time.Duration `json:"max"`
	// Kinds is sorted by kind name.
	Kinds []KindSummary `json:"kinds"`
}

type KindSummary struct {
	Kind   string        `json:"kind"`
	Count  int64         `json:"count"`
	Errors int64         `json:"errors"`
	P50    time.Duration `json:"p50"`
	P95    time.Duration `json:"p95"`
	P99    time.Duration `json:"p99"`
	Min    time.Duration `json:"min"`
	Max    time.Duration `json:"max"`
	Mean   time.Duration `json:"mean"`
}

func us(v int64) time.Duration {
	return time.Duration(v) * time.Microsecond
}

// Summary returns percentiles overall and per step kind.
func (r *Recorder) Summary() *Summary {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := &Summary{
		Steps: r.total.TotalCount(),
		P50:   us(r.total.ValueAtQuantile(50)),
		P95:   us(r.total.ValueAtQuantile(95)),
		P99:   us(r.total.ValueAtQuantile(99)),
		Max:   us(r.total.Max()),
	}

	for kind, km := range r.kinds {
		h := km.histogram
		s.Kinds = append(s.Kinds, KindSummary{
			Kind:   kind,
			Count:  km.count,
			Errors: km.errors,
			P50:    us(h.ValueAtQuantile(50)),
			P95:    us(h.ValueAtQuantile(95)),
			P99:    us(h.ValueAtQuantile(99)),
			Min:    us(h.Min()),
			Max:    us(h.Max()),
			Mean:   us(int64(h.Mean())),
		})
	}
	sort.Slice(s.Kinds, func(i, j int) bool { return s.Kinds[i].Kind < s.Kinds[j].Kind })

	return s
}

// Kind returns the summary for one step kind.
func (s *Summary) Kind(kind string) (KindSummary, bool) {
	for _, k := range s.Kinds {
		if k.Kind == kind {
			return k, true
		}
	}
	return KindSummary{}, false
}
