package genome

import (
	"errors"
	"testing"

	"genomecore/pkg/domain"
)

func groupFixture(t *testing.T) (*DBGenome, *GenomeInstance, *GenomeInstance) {
	t.Helper()
	g, top, child := instanceFixture(t)
	if _, err := top.AddGroup(Group{ID: "g1", Name: "Endoderm", Members: domain.NewIDSet("A:0", "B:0")}); err != nil {
		t.Fatalf("add group: %v", err)
	}
	if _, err := top.AddGroup(Group{ID: "s1", Name: "Subset", ParentID: "g1", Members: domain.NewIDSet("A:0")}); err != nil {
		t.Fatalf("add subset: %v", err)
	}
	return g, top, child
}

func TestRootGroupsValidateMembers(t *testing.T) {
	_, top, child := groupFixture(t)
	if _, err := top.AddGroup(Group{ID: "bad", Members: domain.NewIDSet("Q:0")}); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("unknown member must be rejected, got %v", err)
	}
	if _, err := top.AddGroup(Group{ID: "s2", ParentID: "s1"}); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("subset of a subset must be rejected, got %v", err)
	}
	if _, err := top.AddGroup(Group{ID: "g2", ActiveSubset: "s1"}); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("root-level group with active subset must be rejected, got %v", err)
	}
	if _, err := top.AddGroup(Group{ID: "A"}); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("group ID colliding with a node label must be rejected, got %v", err)
	}
	if _, err := child.AddGroup(Group{ID: "g3"}); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("child instances must inherit, got %v", err)
	}
	if _, err := top.AddGroupMember("s1", "B:0"); err != nil {
		t.Fatalf("subset member from parent group: %v", err)
	}
	if _, err := top.RemoveGroupMember("g1", "A:0"); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("member held by subset must stay, got %v", err)
	}
}

func TestInheritedGroupsResolveThroughRoot(t *testing.T) {
	_, top, child := groupFixture(t)
	if _, err := child.InheritGroup("s1", ""); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("subsets cannot be inherited directly, got %v", err)
	}
	if _, err := child.InheritGroup("g1", "g1"); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("active subset must be a subset of the group, got %v", err)
	}
	if _, err := child.InheritGroup("g1", ""); err != nil {
		t.Fatalf("inherit: %v", err)
	}
	if !child.HasGroup("g1:0") || child.GroupName("g1:0") != "Endoderm" {
		t.Fatalf("inherited group not visible")
	}
	if !child.AreInGroup([]string{"A:0", "B:0"}, "g1:0") {
		t.Fatalf("full group should hold both members")
	}
	if _, err := child.SetActiveSubset("g1:0", "s1"); err != nil {
		t.Fatalf("set subset: %v", err)
	}
	if !child.IsInGroup("A:0", "g1:0") || child.IsInGroup("B:0", "g1:0") {
		t.Fatalf("active subset should narrow membership")
	}
	if got := child.GroupsForNode("A:0"); len(got) != 1 || got[0] != "g1:0" {
		t.Fatalf("GroupsForNode = %v", got)
	}
	if got := top.GroupsForNode("A:0"); len(got) != 2 {
		t.Fatalf("root GroupsForNode = %v", got)
	}

	grand, err := child.NewChildInstance("grand", "Grand")
	if err != nil {
		t.Fatalf("grandchild: %v", err)
	}
	if _, err := grand.InheritGroup("g1", ""); err != nil {
		t.Fatalf("inherit in grandchild: %v", err)
	}
	if !grand.HasGroup("g1:0:0") {
		t.Fatalf("grandchild group ID should carry two suffixes: %v", grand.GroupIDs())
	}
}

func TestRemoveGroupGuards(t *testing.T) {
	g, top, child := groupFixture(t)
	if _, err := child.InheritGroup("g1", "s1"); err != nil {
		t.Fatalf("inherit: %v", err)
	}
	if _, err := top.RemoveGroup("g1"); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("inherited group must stay, got %v", err)
	}
	if _, err := top.RemoveGroup("s1"); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("active subset must stay, got %v", err)
	}
	rm, err := child.RemoveGroup("g1:0")
	if err != nil {
		t.Fatalf("remove inherited: %v", err)
	}
	if _, err := top.RemoveGroup("s1"); err != nil {
		t.Fatalf("remove subset: %v", err)
	}
	if g.Labels().Contains("s1") {
		t.Fatalf("subset label not released")
	}
	if err := child.GroupChangeUndo(rm); err != nil {
		t.Fatalf("undo inherited removal: %v", err)
	}
	if got, ok := child.Group("g1:0"); !ok || got.ActiveSubset != "s1" {
		t.Fatalf("restored group = %+v %v", got, ok)
	}
}

func TestGroupChangeUndoRedoTracksLabels(t *testing.T) {
	g, top, _ := groupFixture(t)
	add, err := top.AddGroup(Group{ID: "g2", Name: "Mesoderm"})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	rename, err := top.SetGroupName("g2", "Ectoderm")
	if err != nil {
		t.Fatalf("rename: %v", err)
	}
	if err := top.GroupChangeUndo(rename); err != nil {
		t.Fatalf("undo rename: %v", err)
	}
	if top.GroupName("g2") != "Mesoderm" {
		t.Fatalf("rename not undone")
	}
	if err := top.GroupChangeUndo(add); err != nil {
		t.Fatalf("undo add: %v", err)
	}
	if top.HasGroup("g2") || g.Labels().Contains("g2") {
		t.Fatalf("undo add left the group or its label")
	}
	if err := top.GroupChangeRedo(add); err != nil {
		t.Fatalf("redo add: %v", err)
	}
	if !top.HasGroup("g2") || !g.Labels().Contains("g2") {
		t.Fatalf("redo add did not restore the group and label")
	}
}

func TestMappedCopyForms(t *testing.T) {
	groups := map[string]string{"g1": "n1", "s1": "ns1"}
	nodes := map[string]string{"A:0": "A:5"}

	root := Group{ID: "s1", Name: "Subset", ParentID: "g1", Members: domain.NewIDSet("A:0", "B:0")}
	got, err := root.MappedCopy(groups, nodes)
	if err != nil {
		t.Fatalf("root-level copy: %v", err)
	}
	if got.ID != "ns1" || got.ParentID != "n1" || !got.Members.Equal(domain.NewIDSet("A:5", "B:0")) {
		t.Fatalf("unexpected root-level copy %+v", got)
	}

	inherited := Group{ID: "g1:0:0", ActiveSubset: "s1"}
	got, err = inherited.MappedCopy(groups, nodes)
	if err != nil {
		t.Fatalf("inherited copy: %v", err)
	}
	if got.ID != "n1:0:0" || got.ActiveSubset != "ns1" || len(got.Members) != 0 {
		t.Fatalf("unexpected inherited copy %+v", got)
	}

	bad := []Group{
		{ID: "g1", ActiveSubset: "s1"},
		{ID: "g1:0", Members: domain.NewIDSet("A:0")},
		{ID: "g1:0", ParentID: "s1"},
		{ID: "g1:1"},
		{ID: "zz"},
		{ID: "g1:0", ActiveSubset: "zz"},
	}
	for _, b := range bad {
		if _, err := b.MappedCopy(groups, nodes); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Fatalf("MappedCopy(%+v) should fail, got %v", b, err)
		}
	}
}

func TestLoadGroupThenValidate(t *testing.T) {
	_, top, child := instanceFixture(t)
	if err := child.LoadGroup(Group{ID: "g1:0", ActiveSubset: "s1"}); err != nil {
		t.Fatalf("load inherited: %v", err)
	}
	if err := child.ValidateGroups(); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("dangling inherited group must fail validation, got %v", err)
	}
	if err := top.LoadGroup(Group{ID: "g1", Members: domain.NewIDSet("A:0", "B:0")}); err != nil {
		t.Fatalf("load root group: %v", err)
	}
	if err := top.LoadGroup(Group{ID: "s1", ParentID: "g1", Members: domain.NewIDSet("B:0")}); err != nil {
		t.Fatalf("load subset: %v", err)
	}
	if err := top.ValidateGroups(); err != nil {
		t.Fatalf("root validation: %v", err)
	}
	if err := child.ValidateGroups(); err != nil {
		t.Fatalf("child validation: %v", err)
	}
	if err := child.LoadGroup(Group{ID: "g1"}); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("wrong generation must be rejected, got %v", err)
	}
}
