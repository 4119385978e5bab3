package core

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"expvar"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"genomecore/internal/blob"
	"genomecore/pkg/domain"
)

func TestServiceObservabilityCompliance(t *testing.T) {
	ctx := context.Background()
	audit := &captureAuditRecorder{}
	metrics := &captureMetricsRecorder{}
	tracer := &captureTracer{}
	logger := &captureLogger{}

	svc := NewInMemoryService(
		WithAuditRecorder(audit),
		WithMetricsRecorder(metrics),
		WithTracer(tracer),
		WithLogger(logger),
		WithClock(steppingClock(time.Millisecond)),
	)

	doc := mustCreate(t, svc, "urchin")
	populate(t, doc)
	if _, _, err := svc.SaveModel(ctx, "urchin", doc); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := svc.Export(ctx, "urchin", blob.FormatSIF); err != nil {
		t.Fatalf("export: %v", err)
	}
	if _, _, err := svc.OpenModel(ctx, "missing"); err == nil {
		t.Fatalf("expected open of missing model to fail")
	}

	if !audit.has("create_model", AuditStatusSuccess, func(e AuditEntry) bool {
		return e.EntityID == "urchin" && e.Entity == domain.EntityModel && e.Action == domain.ActionCreate
	}) {
		t.Fatalf("expected create_model audit entry, got %+v", audit.entries)
	}
	if !audit.has("save_model", AuditStatusSuccess, func(e AuditEntry) bool {
		return e.Duration == time.Millisecond && !e.Timestamp.IsZero()
	}) {
		t.Fatalf("expected save_model audit entry timed by the injected clock")
	}
	if !audit.has("open_model", AuditStatusError, func(e AuditEntry) bool { return e.Error != "" }) {
		t.Fatalf("expected failed open_model audit entry")
	}
	if !metrics.has("export_model", true) || !metrics.has("open_model", false) {
		t.Fatalf("unexpected metrics %+v", metrics.calls)
	}
	if len(tracer.started) != len(tracer.ended) {
		t.Fatalf("every span must end: started %v ended %v", tracer.started, tracer.ended)
	}
	for _, span := range tracer.ended {
		if span.op == "save_model" && span.model != "urchin" {
			t.Fatalf("expected span to carry the model name, got %+v", span)
		}
	}
	if logger.count("e") != 1 || logger.count("d") != len(tracer.started) {
		t.Fatalf("unexpected log calls %v", logger.calls)
	}
}

func TestServiceShortCircuitsCancelledContext(t *testing.T) {
	audit := &captureAuditRecorder{}
	svc := NewInMemoryService(WithAuditRecorder(audit))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := svc.ListModels(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if !audit.has("list_models", AuditStatusError, nil) {
		t.Fatalf("expected cancelled operation to be audited")
	}
}

func TestNilOptionsKeepDefaults(t *testing.T) {
	svc := NewInMemoryService(nil, WithLogger(nil), WithClock(nil), WithAuditRecorder(nil),
		WithMetricsRecorder(nil), WithTracer(nil), WithRulesEngine(nil))
	if _, ok := svc.logger.(noopLogger); !ok {
		t.Fatalf("expected noop logger")
	}
	if svc.engine == nil {
		t.Fatalf("expected default rules engine")
	}
	if _, err := svc.ListModels(context.Background()); err != nil {
		t.Fatalf("list: %v", err)
	}
}

func TestExpvarMetricsRecorder(t *testing.T) {
	rec := NewExpvarMetricsRecorder("")
	ctx := WithModel(context.Background(), "urchin")
	rec.Observe(ctx, "save_model", true, 3*time.Millisecond)
	rec.Observe(ctx, "save_model", false, time.Millisecond)
	rec.Observe(WithExportFormat(ctx, blob.FormatSBML), "export_model", true, time.Millisecond)
	rec.Observe(WithExportFormat(ctx, blob.FormatSIF), "export_model", false, time.Millisecond)
	rec.Observe(context.Background(), "list_models", true, time.Millisecond)
	rec.Observe(ctx, "", true, time.Second)

	snap := rec.Snapshot()
	save := snap.Operations["save_model"]
	if save.DurationMS != 4 || save.Success != 1 || save.Error != 1 {
		t.Fatalf("unexpected save_model totals %+v", save)
	}
	urchin := snap.Models["urchin"]
	if urchin.Success != 2 || urchin.Error != 2 {
		t.Fatalf("unexpected model totals %+v", urchin)
	}
	if urchin.Exports[blob.FormatSBML] != 1 || urchin.Exports[blob.FormatSIF] != 0 {
		t.Fatalf("failed exports must not count: %+v", urchin.Exports)
	}
	if snap.Exports[blob.FormatSBML] != 1 || len(snap.Models) != 1 {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
	if snap.Operations["list_models"].Success != 1 {
		t.Fatalf("operations without a model are still counted")
	}
	published := expvar.Get(rec.Name())
	if published == nil || !strings.Contains(published.String(), "exports_by_format") {
		t.Fatalf("expected recorder published under %s", rec.Name())
	}
}

func TestJSONTracerWritesSpans(t *testing.T) {
	var buf bytes.Buffer
	tracer := NewJSONTracer(&buf)
	svc := NewInMemoryService(WithTracer(tracer))
	doc := mustCreate(t, svc, "urchin")
	populate(t, doc)
	if _, _, err := svc.SaveModel(context.Background(), "urchin", doc); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := svc.Export(context.Background(), "urchin", blob.FormatSBML); err != nil {
		t.Fatalf("export: %v", err)
	}
	if _, _, err := svc.OpenModel(context.Background(), "ghost"); err == nil {
		t.Fatalf("expected failure")
	}

	spans := tracer.Spans()
	if len(spans) != 4 {
		t.Fatalf("expected 4 spans, got %+v", spans)
	}
	if spans[0].Operation != "create_model" || spans[0].Model != "urchin" || spans[0].Status != "success" || spans[0].Format != "" {
		t.Fatalf("unexpected first span %+v", spans[0])
	}
	if spans[2].Operation != "export_model" || spans[2].Format != blob.FormatSBML {
		t.Fatalf("export span must carry the format, got %+v", spans[2])
	}
	if spans[3].Status != "error" || spans[3].Error == "" {
		t.Fatalf("unexpected last span %+v", spans[3])
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 4 json lines, got %q", buf.String())
	}
	var decoded SpanRecord
	if err := json.Unmarshal([]byte(lines[2]), &decoded); err != nil || decoded.Model != "urchin" || decoded.Format != blob.FormatSBML {
		t.Fatalf("decode span: %v %+v", err, decoded)
	}
}

func TestPrometheusMetricsRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec, err := NewPrometheusMetricsRecorder(reg)
	if err != nil {
		t.Fatalf("new recorder: %v", err)
	}
	svc := NewInMemoryService(WithMetricsRecorder(rec))
	doc := mustCreate(t, svc, "urchin")
	if _, _, err := svc.CreateModel(context.Background(), "urchin", ""); err == nil {
		t.Fatalf("expected duplicate create to fail")
	}
	populate(t, doc)
	if _, _, err := svc.SaveModel(context.Background(), "urchin", doc); err != nil {
		t.Fatalf("save: %v", err)
	}
	for _, format := range []string{blob.FormatSIF, blob.FormatSIF, blob.FormatXML} {
		if _, err := svc.Export(context.Background(), "urchin", format); err != nil {
			t.Fatalf("export %s: %v", format, err)
		}
	}

	if got := testutil.ToFloat64(rec.operations.WithLabelValues("create_model", "success")); got != 1 {
		t.Fatalf("success count = %v", got)
	}
	if got := testutil.ToFloat64(rec.operations.WithLabelValues("create_model", "error")); got != 1 {
		t.Fatalf("error count = %v", got)
	}
	if got := testutil.ToFloat64(rec.models.WithLabelValues("urchin", "create_model", "error")); got != 1 {
		t.Fatalf("model error count = %v", got)
	}
	if got := testutil.ToFloat64(rec.exports.WithLabelValues("urchin", blob.FormatSIF)); got != 2 {
		t.Fatalf("sif exports = %v", got)
	}
	if n := testutil.CollectAndCount(rec.exports); n != 2 {
		t.Fatalf("expected sif and xml export series, got %d", n)
	}
	if n := testutil.CollectAndCount(rec.latency); n != 3 {
		t.Fatalf("expected create, save and export latency series, got %d", n)
	}

	again, err := NewPrometheusMetricsRecorder(reg)
	if err != nil {
		t.Fatalf("re-register: %v", err)
	}
	if again.operations != rec.operations || again.exports != rec.exports {
		t.Fatalf("expected existing collectors to be reused")
	}
}
