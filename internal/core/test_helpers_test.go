package core

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"genomecore/pkg/domain"
	"genomecore/pkg/genome"
	"genomecore/pkg/model"
)

type captureLogger struct {
	mu    sync.Mutex
	calls []string
}

func (l *captureLogger) add(level, msg string) {
	l.mu.Lock()
	l.calls = append(l.calls, level+":"+msg)
	l.mu.Unlock()
}

func (l *captureLogger) Debug(msg string, _ ...any) { l.add("d", msg) }
func (l *captureLogger) Info(msg string, _ ...any)  { l.add("i", msg) }
func (l *captureLogger) Warn(msg string, _ ...any)  { l.add("w", msg) }
func (l *captureLogger) Error(msg string, _ ...any) { l.add("e", msg) }

func (l *captureLogger) count(level string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, c := range l.calls {
		if len(c) > len(level) && c[:len(level)+1] == level+":" {
			n++
		}
	}
	return n
}

type captureAuditRecorder struct {
	entries []AuditEntry
}

func (c *captureAuditRecorder) Record(_ context.Context, entry AuditEntry) {
	c.entries = append(c.entries, entry)
}

func (c *captureAuditRecorder) has(op string, status AuditStatus, predicate func(AuditEntry) bool) bool {
	for _, entry := range c.entries {
		if entry.Operation == op && entry.Status == status {
			if predicate == nil || predicate(entry) {
				return true
			}
		}
	}
	return false
}

type metricsCall struct {
	op       string
	success  bool
	duration time.Duration
}

type captureMetricsRecorder struct {
	calls []metricsCall
}

func (c *captureMetricsRecorder) Observe(_ context.Context, op string, success bool, duration time.Duration) {
	c.calls = append(c.calls, metricsCall{op: op, success: success, duration: duration})
}

func (c *captureMetricsRecorder) has(op string, success bool) bool {
	for _, call := range c.calls {
		if call.op == op && call.success == success {
			return true
		}
	}
	return false
}

type spanRecord struct {
	op    string
	model string
	err   error
}

type captureTracer struct {
	started []string
	ended   []spanRecord
}

func (c *captureTracer) Start(ctx context.Context, op string) (context.Context, TraceSpan) {
	c.started = append(c.started, op)
	return ctx, &captureSpan{tracer: c, op: op, model: ModelFromContext(ctx)}
}

type captureSpan struct {
	tracer *captureTracer
	op     string
	model  string
}

func (s *captureSpan) End(err error) {
	s.tracer.ended = append(s.tracer.ended, spanRecord{op: s.op, model: s.model, err: err})
}

// steppingClock advances by step on every read.
func steppingClock(step time.Duration) ClockFunc {
	var mu sync.Mutex
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(step)
		return now
	}
}

// populate adds genes A and B joined by a positive link, plus an instance
// holding both genes.
func populate(t *testing.T, doc *model.Document) {
	t.Helper()
	root := doc.Root()
	for _, id := range []string{"A", "B"} {
		if _, err := root.AddGene(genome.NewNode(id, genome.NodeGene, "gene"+id)); err != nil {
			t.Fatalf("gene %s: %v", id, err)
		}
	}
	if _, err := root.AddLinkage(genome.Linkage{ID: "L", Source: "A", Target: "B", Sign: domain.SignPositive}); err != nil {
		t.Fatalf("link: %v", err)
	}
	inst, err := doc.AddRootInstance("early", "Early")
	if err != nil {
		t.Fatalf("instance: %v", err)
	}
	for _, id := range []string{"A:0", "B:0"} {
		if _, err := inst.AddNodeInstance(genome.NodeInstance{ID: id, Activity: genome.Active()}); err != nil {
			t.Fatalf("node instance %s: %v", id, err)
		}
	}
}

// breakActivity adds a child instance whose copy of A exceeds its parent's
// activity.
func breakActivity(t *testing.T, doc *model.Document) {
	t.Helper()
	parent, ok := doc.Instance("early")
	if !ok {
		t.Fatalf("missing instance early")
	}
	if _, err := parent.SetNodeActivity("A:0", genome.Inactive()); err != nil {
		t.Fatalf("deactivate parent: %v", err)
	}
	child, err := doc.AddChildInstance("early", "late", "Late")
	if err != nil {
		t.Fatalf("child: %v", err)
	}
	if err := child.LoadNodeInstance(genome.NodeInstance{ID: "A:0", Activity: genome.Active()}); err != nil {
		t.Fatalf("load illegal activity: %v", err)
	}
}

func mustCreate(t *testing.T, svc *Service, name string) *model.Document {
	t.Helper()
	doc, _, err := svc.CreateModel(context.Background(), name, "")
	if err != nil {
		t.Fatalf("create %s: %v", name, err)
	}
	return doc
}

func describe(res domain.Result) string {
	return fmt.Sprintf("%+v", res.Violations)
}
