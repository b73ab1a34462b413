package core

import (
	"context"
	"encoding/json"
	"expvar"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var expvarSeq uint64

type opTotals struct {
	ms      float64
	success int64
	failure int64
}

// ExpvarMetricsRecorder aggregates store operation timings in-process and
// publishes them through expvar.
type ExpvarMetricsRecorder struct {
	name string
	mu   sync.Mutex
	ops  map[string]*opTotals
}

// OperationStats is the per-operation slice of an expvar snapshot.
type OperationStats struct {
	TotalMS  float64 `json:"total_ms"`
	Success  int64   `json:"success"`
	Failure  int64   `json:"failure"`
	Observed int64   `json:"observed"`
}

// ExpvarSnapshot is a point-in-time copy of the aggregated metrics.
type ExpvarSnapshot struct {
	Operations map[string]OperationStats `json:"operations"`
	TakenAt    time.Time                 `json:"taken_at"`
}

// NewExpvarMetricsRecorder publishes a recorder under name, generating a
// unique name when empty. expvar names are process global.
func NewExpvarMetricsRecorder(name string) *ExpvarMetricsRecorder {
	if name == "" {
		name = fmt.Sprintf("creatorhub_store_%d", atomic.AddUint64(&expvarSeq, 1))
	}
	r := &ExpvarMetricsRecorder{name: name, ops: make(map[string]*opTotals)}
	expvar.Publish(name, expvar.Func(func() any { return r.Snapshot() }))
	return r
}

// Name returns the expvar key.
func (r *ExpvarMetricsRecorder) Name() string { return r.name }

// Observe implements MetricsRecorder.
func (r *ExpvarMetricsRecorder) Observe(_ context.Context, operation string, success bool, d time.Duration) {
	if operation == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.ops[operation]
	if !ok {
		t = &opTotals{}
		r.ops[operation] = t
	}
	t.ms += float64(d) / float64(time.Millisecond)
	if success {
		t.success++
	} else {
		t.failure++
	}
}

// Snapshot copies the current totals.
func (r *ExpvarMetricsRecorder) Snapshot() ExpvarSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]OperationStats, len(r.ops))
	for op, t := range r.ops {
		out[op] = OperationStats{
			TotalMS:  t.ms,
			Success:  t.success,
			Failure:  t.failure,
			Observed: t.success + t.failure,
		}
	}
	return ExpvarSnapshot{Operations: out, TakenAt: time.Now().UTC()}
}

// PrometheusMetricsRecorder exports operation counts and latencies as
// Prometheus collectors.
type PrometheusMetricsRecorder struct {
	total    *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewPrometheusMetricsRecorder registers its collectors with reg. A nil reg
// uses a private registry, which is what tests want.
func NewPrometheusMetricsRecorder(reg prometheus.Registerer) (*PrometheusMetricsRecorder, error) {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	r := &PrometheusMetricsRecorder{
		total: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "creatorhub",
			Subsystem: "store",
			Name:      "operations_total",
			Help:      "Store operations by name and outcome.",
		}, []string{"operation", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "creatorhub",
			Subsystem: "store",
			Name:      "operation_duration_seconds",
			Help:      "Wall time of store operations including the remote round trip.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
	}
	for _, c := range []prometheus.Collector{r.total, r.duration} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register store metrics: %w", err)
		}
	}
	return r, nil
}

// Observe implements MetricsRecorder.
func (r *PrometheusMetricsRecorder) Observe(_ context.Context, operation string, success bool, d time.Duration) {
	outcome := "failure"
	if success {
		outcome = "success"
	}
	r.total.WithLabelValues(operation, outcome).Inc()
	r.duration.WithLabelValues(operation).Observe(d.Seconds())
}

// Counter exposes the counter vector for scraping in tests.
func (r *PrometheusMetricsRecorder) Counter() *prometheus.CounterVec { return r.total }

// MultiMetricsRecorder fans one observation out to several recorders.
type MultiMetricsRecorder []MetricsRecorder

// Observe implements MetricsRecorder.
func (m MultiMetricsRecorder) Observe(ctx context.Context, operation string, success bool, d time.Duration) {
	for _, r := range m {
		if r != nil {
			r.Observe(ctx, operation, success, d)
		}
	}
}

// TraceEntry is one finished span as written by JSONTracer.
type TraceEntry struct {
	Operation  string    `json:"operation"`
	OK         bool      `json:"ok"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	DurationMS float64   `json:"duration_ms"`
}

// JSONTracer writes finished spans as JSON lines and keeps them in memory.
type JSONTracer struct {
	mu      sync.Mutex
	entries []TraceEntry
	enc     *json.Encoder
}

// NewJSONTracer writes spans to w; w may be nil to only retain them.
func NewJSONTracer(w io.Writer) *JSONTracer {
	t := &JSONTracer{}
	if w != nil {
		t.enc = json.NewEncoder(w)
	}
	return t
}

// Start implements Tracer.
func (t *JSONTracer) Start(ctx context.Context, operation string) (context.Context, TraceSpan) {
	return ctx, &jsonSpan{tracer: t, operation: operation, started: time.Now().UTC()}
}

// Entries returns the spans recorded so far.
func (t *JSONTracer) Entries() []TraceEntry {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]TraceEntry(nil), t.entries...)
}

func (t *JSONTracer) finish(e TraceEntry) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = append(t.entries, e)
	if t.enc != nil {
		_ = t.enc.Encode(e)
	}
}

type jsonSpan struct {
	tracer    *JSONTracer
	operation string
	started   time.Time
	once      sync.Once
}

func (s *jsonSpan) End(err error) {
	s.once.Do(func() {
		e := TraceEntry{
			Operation:  s.operation,
			OK:         err == nil,
			StartedAt:  s.started,
			DurationMS: float64(time.Since(s.started)) / float64(time.Millisecond),
		}
		if err != nil {
			e.Error = err.Error()
		}
		s.tracer.finish(e)
	})
}
