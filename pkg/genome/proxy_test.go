package genome

import (
	"errors"
	"testing"

	"genomecore/pkg/domain"
)

type fakeSource struct {
	nodes  map[string]Activity
	links  map[string]Activity
	slices []Slice
}

func (f *fakeSource) NodeActivity(_, nodeID string, s Slice) (Activity, bool) {
	f.slices = append(f.slices, s)
	a, ok := f.nodes[nodeID]
	return a, ok
}

func (f *fakeSource) LinkActivity(_, linkID string, _ Slice) (Activity, bool) {
	a, ok := f.links[linkID]
	return a, ok
}

func TestProxyBuildsClampedInstances(t *testing.T) {
	_, top, child := groupFixture(t)
	if _, err := child.SetNodeActivity("A:0", Inactive()); err != nil {
		t.Fatalf("deactivate child: %v", err)
	}
	if _, err := top.SetNodeActivity("A:0", Variable(0.4)); err != nil {
		t.Fatalf("variable static: %v", err)
	}
	src := &fakeSource{
		nodes: map[string]Activity{"A:0": Active(), "B:0": Variable(0.9)},
		links: map[string]Activity{"L:0": Active()},
	}
	p, err := NewDynamicInstanceProxy("dyn", "Timecourse", top, 2, 5, false, src)
	if err != nil {
		t.Fatalf("proxy: %v", err)
	}
	keys := p.InstanceKeys()
	if len(keys) != 4 || keys[0] != "dyn:2" || keys[3] != "dyn:5" {
		t.Fatalf("InstanceKeys = %v", keys)
	}
	inst, err := p.Instance(3)
	if err != nil {
		t.Fatalf("instance: %v", err)
	}
	if inst.Key() != "dyn:3" || inst.Name() != "Timecourse (3)" || inst.Parent() != top {
		t.Fatalf("unexpected instance %s %q", inst.Key(), inst.Name())
	}
	a, _ := inst.NodeInstance("A:0")
	b, _ := inst.NodeInstance("B:0")
	if a.Activity != Variable(0.4) || b.Activity != Variable(0.9) {
		t.Fatalf("activities %s %s", a.Activity, b.Activity)
	}
	if _, ok := inst.LinkageInstance("L:0"); !ok {
		t.Fatalf("link instance missing")
	}
	if len(inst.IllegalActivities()) != 0 {
		t.Fatalf("generated instance violates its parent")
	}
	if src.slices[0] != (Slice{Min: 3, Max: 3}) {
		t.Fatalf("slice = %+v", src.slices[0])
	}
	if !inst.HasGroup("g1:0") || inst.HasGroup("s1:0") {
		t.Fatalf("groups = %v", inst.GroupIDs())
	}
	if !p.HasGroup("g1:0") || p.HasGroup("s1:0") || p.HasGroup("g1") {
		t.Fatalf("proxy HasGroup mismatch")
	}
	if _, err := p.Instance(9); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("time outside range must fail, got %v", err)
	}
}

func TestProxyCachesUntilInvalidated(t *testing.T) {
	_, top, _ := instanceFixture(t)
	src := &fakeSource{nodes: map[string]Activity{"A:0": Active()}}
	p, err := NewDynamicInstanceProxy("dyn", "Dyn", top, 0, 1, false, src)
	if err != nil {
		t.Fatalf("proxy: %v", err)
	}
	first, _ := p.Instance(0)
	again, _ := p.Instance(0)
	if first != again || len(src.slices) != 1 {
		t.Fatalf("instance not cached: %d source calls", len(src.slices))
	}
	if first.HasNode("B:0") {
		t.Fatalf("items the source omits must be left out")
	}
	if _, ok := first.LinkageInstance("L:0"); ok {
		t.Fatalf("link without both endpoints must be left out")
	}
	src.nodes["B:0"] = Active()
	p.Invalidate()
	rebuilt, _ := p.Instance(0)
	if rebuilt == first || !rebuilt.HasNode("B:0") {
		t.Fatalf("Invalidate did not rebuild")
	}
}

func TestSingleProxyAndNilSource(t *testing.T) {
	g, top, _ := instanceFixture(t)
	if _, err := NewDynamicInstanceProxy("top", "dup", top, 0, 1, true, nil); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("key collision must be rejected, got %v", err)
	}
	if _, err := NewDynamicInstanceProxy("bad", "range", top, 4, 1, true, nil); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("inverted range must be rejected, got %v", err)
	}
	p, err := NewDynamicInstanceProxy("one", "Summary", top, 1, 4, true, nil)
	if err != nil {
		t.Fatalf("proxy: %v", err)
	}
	if keys := p.InstanceKeys(); len(keys) != 1 || keys[0] != "one:ALL" {
		t.Fatalf("InstanceKeys = %v", keys)
	}
	inst, err := p.Instance(99)
	if err != nil {
		t.Fatalf("single instance: %v", err)
	}
	if inst.Key() != "one:ALL" || inst.Name() != "Summary (1-4)" {
		t.Fatalf("unexpected instance %s %q", inst.Key(), inst.Name())
	}
	if ni, _ := inst.NodeInstance("A:0"); ni.Activity != Active() {
		t.Fatalf("nil source should copy the static activity, got %s", ni.Activity)
	}
	if err := p.Detach(); err != nil {
		t.Fatalf("detach: %v", err)
	}
	if g.Labels().Contains("one") {
		t.Fatalf("proxy key still held")
	}
}
