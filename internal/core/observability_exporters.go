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
)

type exportFormatKey struct{}

// WithExportFormat annotates ctx with the export format an operation renders.
func WithExportFormat(ctx context.Context, format string) context.Context {
	return context.WithValue(ctx, exportFormatKey{}, format)
}

// ExportFormatFromContext returns the format set by WithExportFormat, or "".
func ExportFormatFromContext(ctx context.Context) string {
	format, _ := ctx.Value(exportFormatKey{}).(string)
	return format
}

func outcome(success bool) string {
	if success {
		return "success"
	}
	return "error"
}

var expvarSeq uint64

// OperationTotals counts one service operation.
type OperationTotals struct {
	Success    int64   `json:"success"`
	Error      int64   `json:"error"`
	DurationMS float64 `json:"duration_ms"`
}

// ModelTotals counts the operations run against one model and the artifacts
// exported from it per format.
type ModelTotals struct {
	Success int64            `json:"success"`
	Error   int64            `json:"error"`
	Exports map[string]int64 `json:"exports,omitempty"`
}

// GenomeMetrics is the document published by ExpvarMetricsRecorder.
type GenomeMetrics struct {
	Operations map[string]OperationTotals `json:"operations"`
	Models     map[string]ModelTotals     `json:"models"`
	Exports    map[string]int64           `json:"exports_by_format"`
	RecordedAt time.Time                  `json:"recorded_at"`
}

// ExpvarMetricsRecorder keeps genomecore operation counters and publishes them
// as one expvar variable, broken down by operation, model and export format.
type ExpvarMetricsRecorder struct {
	name string

	mu         sync.Mutex
	operations map[string]OperationTotals
	models     map[string]ModelTotals
	exports    map[string]int64
}

// NewExpvarMetricsRecorder publishes a recorder under name, or under a fresh
// genomecore_metrics_<n> name when name is empty.
func NewExpvarMetricsRecorder(name string) *ExpvarMetricsRecorder {
	if name == "" {
		name = fmt.Sprintf("genomecore_metrics_%d", atomic.AddUint64(&expvarSeq, 1))
	}
	rec := &ExpvarMetricsRecorder{
		name:       name,
		operations: make(map[string]OperationTotals),
		models:     make(map[string]ModelTotals),
		exports:    make(map[string]int64),
	}
	expvar.Publish(name, expvar.Func(func() any { return rec.Snapshot() }))
	return rec
}

// Name is the expvar variable the recorder is published under.
func (r *ExpvarMetricsRecorder) Name() string { return r.name }

// Observe implements MetricsRecorder. The model and export format come from
// ctx.
func (r *ExpvarMetricsRecorder) Observe(ctx context.Context, operation string, success bool, duration time.Duration) {
	if operation == "" {
		return
	}
	model := ModelFromContext(ctx)
	format := ExportFormatFromContext(ctx)

	r.mu.Lock()
	defer r.mu.Unlock()
	op := r.operations[operation]
	op.DurationMS += float64(duration) / float64(time.Millisecond)
	if success {
		op.Success++
	} else {
		op.Error++
	}
	r.operations[operation] = op

	if model == "" {
		return
	}
	m := r.models[model]
	if success {
		m.Success++
	} else {
		m.Error++
	}
	if success && format != "" {
		if m.Exports == nil {
			m.Exports = make(map[string]int64)
		}
		m.Exports[format]++
		r.exports[format]++
	}
	r.models[model] = m
}

// Snapshot copies the current counters.
func (r *ExpvarMetricsRecorder) Snapshot() GenomeMetrics {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := GenomeMetrics{
		Operations: make(map[string]OperationTotals, len(r.operations)),
		Models:     make(map[string]ModelTotals, len(r.models)),
		Exports:    make(map[string]int64, len(r.exports)),
		RecordedAt: time.Now().UTC(),
	}
	for op, totals := range r.operations {
		out.Operations[op] = totals
	}
	for name, m := range r.models {
		if m.Exports != nil {
			exports := make(map[string]int64, len(m.Exports))
			for f, n := range m.Exports {
				exports[f] = n
			}
			m.Exports = exports
		}
		out.Models[name] = m
	}
	for f, n := range r.exports {
		out.Exports[f] = n
	}
	return out
}

// SpanRecord is one finished service operation as written by JSONTracer.
type SpanRecord struct {
	Operation  string    `json:"operation"`
	Model      string    `json:"model,omitempty"`
	Format     string    `json:"format,omitempty"`
	Status     string    `json:"status"`
	Error      string    `json:"error,omitempty"`
	DurationMS float64   `json:"duration_ms"`
	StartedAt  time.Time `json:"started_at"`
	EndedAt    time.Time `json:"ended_at"`
}

// JSONTracer writes a SpanRecord line per finished operation and keeps the
// records for Spans.
type JSONTracer struct {
	mu    sync.Mutex
	spans []SpanRecord
	enc   *json.Encoder
}

// NewJSONTracer returns a tracer writing to w. A nil w only retains spans.
func NewJSONTracer(w io.Writer) *JSONTracer {
	t := &JSONTracer{}
	if w != nil {
		t.enc = json.NewEncoder(w)
	}
	return t
}

// Spans returns the finished spans in completion order.
func (t *JSONTracer) Spans() []SpanRecord {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]SpanRecord(nil), t.spans...)
}

// Start implements Tracer.
func (t *JSONTracer) Start(ctx context.Context, operation string) (context.Context, TraceSpan) {
	return ctx, &jsonSpan{
		tracer: t,
		record: SpanRecord{
			Operation: operation,
			Model:     ModelFromContext(ctx),
			Format:    ExportFormatFromContext(ctx),
			StartedAt: time.Now().UTC(),
		},
	}
}

type jsonSpan struct {
	tracer *JSONTracer
	record SpanRecord
}

func (s *jsonSpan) End(err error) {
	rec := s.record
	rec.EndedAt = time.Now().UTC()
	rec.DurationMS = float64(rec.EndedAt.Sub(rec.StartedAt)) / float64(time.Millisecond)
	rec.Status = outcome(err == nil)
	if err != nil {
		rec.Error = err.Error()
	}

	s.tracer.mu.Lock()
	defer s.tracer.mu.Unlock()
	s.tracer.spans = append(s.tracer.spans, rec)
	if s.tracer.enc != nil {
		_ = s.tracer.enc.Encode(rec)
	}
}
