package model

import (
	"context"
	"errors"
	"testing"

	"genomecore/pkg/domain"
	"genomecore/pkg/genome"
)

func violationsByRule(res domain.Result) map[string][]domain.Violation {
	out := make(map[string][]domain.Violation)
	for _, v := range res.Violations {
		out[v.Rule] = append(out[v.Rule], v)
	}
	return out
}

func TestDefaultRulesCleanDocument(t *testing.T) {
	doc := newTestDocument(t)
	res, err := NewDefaultRulesEngine().Evaluate(context.Background(), doc)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if len(res.Violations) != 0 {
		t.Fatalf("expected no violations, got %+v", res.Violations)
	}
}

func TestDefaultRulesReportProblems(t *testing.T) {
	doc := newTestDocument(t)
	root := doc.Root()
	if _, err := root.AddLinkage(genome.Linkage{ID: "L2", Source: "A", Target: "B", Sign: domain.SignPositive, LandingPad: 1}, genome.PermitMergeable()); err != nil {
		t.Fatalf("duplicate path link: %v", err)
	}
	if _, err := root.AddGene(genome.NewNode("C", genome.NodeGene, "C")); err != nil {
		t.Fatalf("gene C: %v", err)
	}
	top, _ := doc.Instance("top")
	child, _ := doc.Instance("child")
	if _, err := top.AddNodeInstance(genome.NodeInstance{ID: "C:0", Activity: genome.Variable(0.3)}); err != nil {
		t.Fatalf("top C: %v", err)
	}
	if err := child.LoadNodeInstance(genome.NodeInstance{ID: "C:0", Activity: genome.Active()}); err != nil {
		t.Fatalf("load child C: %v", err)
	}
	if err := child.LoadGroup(genome.Group{ID: "ghost:0"}); err != nil {
		t.Fatalf("load dangling group: %v", err)
	}
	if _, err := doc.AddProxy("wide", "Wide", "top", 0, 20, false); err != nil {
		t.Fatalf("wide proxy: %v", err)
	}

	res, err := NewDefaultRulesEngine().Evaluate(context.Background(), doc)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if !res.HasBlocking() {
		t.Fatalf("expected blocking violations")
	}
	byRule := violationsByRule(res)
	if v := byRule["sbml_readiness"]; len(v) != 1 || v[0].EntityID != "L2" || v[0].Severity != domain.SeverityWarn {
		t.Fatalf("sbml violations = %+v", v)
	}
	if v := byRule["activity_consistency"]; len(v) != 1 || v[0].EntityID != "C:0" || v[0].OwnerKey != "child" {
		t.Fatalf("activity violations = %+v", v)
	}
	if v := byRule["group_references"]; len(v) != 1 || v[0].OwnerKey != "child" || v[0].Severity != domain.SeverityBlock {
		t.Fatalf("group violations = %+v", v)
	}
	if v := byRule["proxy_time_bounds"]; len(v) != 1 || v[0].EntityID != "wide" {
		t.Fatalf("proxy violations = %+v", v)
	}
}

type failingRule struct{}

func (failingRule) Name() string { return "broken" }

func (failingRule) Evaluate(context.Context, *Document) (domain.Result, error) {
	return domain.Result{}, errors.New("boom")
}

func TestRulesEngineStopsOnErrorAndCancel(t *testing.T) {
	engine := NewRulesEngine()
	engine.Register(failingRule{})
	if _, err := engine.Evaluate(context.Background(), newTestDocument(t)); err == nil || err.Error() != "rule broken: boom" {
		t.Fatalf("expected wrapped rule error, got %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewDefaultRulesEngine().Evaluate(ctx, newTestDocument(t)); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
}
