package model

import (
	"context"
	"fmt"

	"genomecore/pkg/domain"
	"genomecore/pkg/genome"
)

// Rule checks one consistency property of a document.
type Rule interface {
	Name() string
	Evaluate(ctx context.Context, doc *Document) (domain.Result, error)
}

// RulesEngine orchestrates rule evaluation.
type RulesEngine struct {
	rules []Rule
}

// NewRulesEngine constructs an engine instance.
func NewRulesEngine() *RulesEngine {
	return &RulesEngine{}
}

// NewDefaultRulesEngine builds a rules engine with the built-in rule set.
func NewDefaultRulesEngine() *RulesEngine {
	engine := NewRulesEngine()
	engine.Register(SBMLReadinessRule())
	engine.Register(ActivityConsistencyRule())
	engine.Register(GroupReferenceRule())
	engine.Register(ProxyTimeBoundsRule())
	return engine
}

// Register appends a rule to the engine.
func (e *RulesEngine) Register(rule Rule) {
	e.rules = append(e.rules, rule)
}

// Evaluate executes all registered rules and aggregates their results.
func (e *RulesEngine) Evaluate(ctx context.Context, doc *Document) (domain.Result, error) {
	var combined domain.Result
	for _, rule := range e.rules {
		if err := ctx.Err(); err != nil {
			return domain.Result{}, err
		}
		res, err := rule.Evaluate(ctx, doc)
		if err != nil {
			return domain.Result{}, fmt.Errorf("rule %s: %w", rule.Name(), err)
		}
		combined.Merge(res)
	}
	return combined, nil
}

// SBMLReadinessRule warns about every reason the root genome cannot be
// exported as SBML.
func SBMLReadinessRule() Rule { return sbmlReadinessRule{} }

type sbmlReadinessRule struct{}

func (sbmlReadinessRule) Name() string { return "sbml_readiness" }

func (r sbmlReadinessRule) Evaluate(_ context.Context, doc *Document) (domain.Result, error) {
	var res domain.Result
	root := doc.Root()
	for _, p := range root.SBMLProblems() {
		entity := domain.EntityLinkage
		if p.Kind == genome.SBMLXorLogic {
			entity = domain.EntityNode
		}
		res.Violations = append(res.Violations, domain.Violation{
			Rule:     r.Name(),
			Severity: domain.SeverityWarn,
			Message:  p.Detail,
			Entity:   entity,
			EntityID: p.ID,
			OwnerKey: root.Key(),
		})
	}
	return res, nil
}

// ActivityConsistencyRule blocks instance items whose activity the parent
// instance forbids.
func ActivityConsistencyRule() Rule { return activityConsistencyRule{} }

type activityConsistencyRule struct{}

func (activityConsistencyRule) Name() string { return "activity_consistency" }

func (r activityConsistencyRule) Evaluate(_ context.Context, doc *Document) (domain.Result, error) {
	var res domain.Result
	for _, inst := range doc.Instances() {
		for _, id := range inst.IllegalActivities() {
			entity := domain.EntityNodeInstance
			if _, ok := inst.LinkageInstance(id); ok {
				entity = domain.EntityLinkageInstance
			}
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     r.Name(),
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("%s activity is not permitted under parent instance %s", id, inst.Parent().Key()),
				Entity:   entity,
				EntityID: id,
				OwnerKey: inst.Key(),
			})
		}
	}
	return res, nil
}

// GroupReferenceRule blocks groups that reference missing parents, subsets
// or members.
func GroupReferenceRule() Rule { return groupReferenceRule{} }

type groupReferenceRule struct{}

func (groupReferenceRule) Name() string { return "group_references" }

func (r groupReferenceRule) Evaluate(_ context.Context, doc *Document) (domain.Result, error) {
	var res domain.Result
	for _, inst := range doc.Instances() {
		if err := inst.ValidateGroups(); err != nil {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     r.Name(),
				Severity: domain.SeverityBlock,
				Message:  err.Error(),
				Entity:   domain.EntityGroup,
				OwnerKey: inst.Key(),
			})
		}
	}
	return res, nil
}

// ProxyTimeBoundsRule warns when a proxy covers times outside the bounds of
// its static instance's root instance.
func ProxyTimeBoundsRule() Rule { return proxyTimeBoundsRule{} }

type proxyTimeBoundsRule struct{}

func (proxyTimeBoundsRule) Name() string { return "proxy_time_bounds" }

func (r proxyTimeBoundsRule) Evaluate(_ context.Context, doc *Document) (domain.Result, error) {
	var res domain.Result
	for _, p := range doc.Proxies() {
		bounds, ok := p.Static().RootInstance().Times()
		if !ok {
			continue
		}
		minTime, maxTime := p.TimeRange()
		if minTime < bounds.Min || maxTime > bounds.Max {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     r.Name(),
				Severity: domain.SeverityWarn,
				Message:  fmt.Sprintf("proxy %s covers %d-%d outside instance times %d-%d", p.Key(), minTime, maxTime, bounds.Min, bounds.Max),
				Entity:   domain.EntityProxy,
				EntityID: p.Key(),
				OwnerKey: p.Key(),
			})
		}
	}
	return res, nil
}
