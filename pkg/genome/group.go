package genome

import (
	"fmt"
	"strings"

	"genomecore/pkg/domain"
	"genomecore/pkg/overlay"
)

// Group is a region of a genome instance. Root instances define groups with
// members, optionally as a subset of another root-level group (ParentID).
// Deeper instances only reference an ancestor's group by inherited ID,
// optionally narrowed to one of its subsets (ActiveSubset).
type Group struct {
	ID           string
	Name         string
	ParentID     string
	ActiveSubset string
	Members      domain.IDSet
}

// Clone returns a deep copy.
func (g Group) Clone() Group {
	out := g
	out.Members = g.Members.Clone()
	return out
}

// InheritedGroupID returns the ID a group carries gen generations below the
// root instance: the base ID with one ":0" suffix per generation.
func InheritedGroupID(base string, gen int) string {
	return base + strings.Repeat(domain.IDSeparator+"0", gen)
}

// GroupBaseID returns the root-level ID a group ID refers to.
func GroupBaseID(id string) string { return domain.BaseID(id) }

// GroupGeneration returns how many generations below the root instance a
// group ID lives.
func GroupGeneration(id string) int { return strings.Count(id, domain.IDSeparator) }

func validGroupID(id string) bool {
	base := GroupBaseID(id)
	return domain.ValidBaseID(base) && InheritedGroupID(base, GroupGeneration(id)) == id
}

// MappedCopy returns a copy with every ID rewritten through groupIDs (old to
// new group base IDs) and nodeIDs (old to new node instance IDs). Group IDs
// must be mapped; unmapped member IDs are kept. The three legal forms are
// enforced: root-level groups and subsets live at generation zero without an
// active subset, while inherited references carry neither a parent nor
// members.
func (g Group) MappedCopy(groupIDs, nodeIDs map[string]string) (Group, error) {
	const op = "genome.Group.MappedCopy"
	if !validGroupID(g.ID) {
		return Group{}, domain.Contract(op, domain.ErrInvalidArgument, "malformed group id %q", g.ID)
	}
	gen := GroupGeneration(g.ID)
	mapGroup := func(id string) (string, error) {
		mapped, ok := groupIDs[id]
		if !ok {
			return "", domain.Contract(op, domain.ErrInvalidArgument, "group %s has no mapping", id)
		}
		return mapped, nil
	}
	out := Group{Name: g.Name}
	base, err := mapGroup(GroupBaseID(g.ID))
	if err != nil {
		return Group{}, err
	}
	out.ID = InheritedGroupID(base, gen)
	if gen == 0 {
		if g.ActiveSubset != "" {
			return Group{}, domain.Contract(op, domain.ErrInvalidArgument, "root-level group %s carries an active subset", g.ID)
		}
		if g.ParentID != "" {
			if out.ParentID, err = mapGroup(g.ParentID); err != nil {
				return Group{}, err
			}
		}
		out.Members = domain.NewIDSet()
		for id := range g.Members {
			if mapped, ok := nodeIDs[id]; ok {
				id = mapped
			}
			out.Members.Add(id)
		}
		return out, nil
	}
	if g.ParentID != "" || len(g.Members) > 0 {
		return Group{}, domain.Contract(op, domain.ErrInvalidArgument, "inherited group %s carries a parent or members", g.ID)
	}
	if g.ActiveSubset != "" {
		if out.ActiveSubset, err = mapGroup(g.ActiveSubset); err != nil {
			return Group{}, err
		}
	}
	return out, nil
}

// Group returns a copy of a group of this instance.
func (inst *GenomeInstance) Group(id string) (Group, bool) {
	g, ok := inst.groups[id]
	if !ok {
		return Group{}, false
	}
	return g.Clone(), true
}

// GroupName resolves the display name of a group through the root instance.
func (inst *GenomeInstance) GroupName(id string) string {
	if g, ok := inst.RootInstance().groups[GroupBaseID(id)]; ok {
		return g.Name
	}
	return ""
}

// AddGroup defines a group or subset in a root instance and registers its ID.
// Members must be node instances of this instance; subset members must also
// belong to the parent group.
func (inst *GenomeInstance) AddGroup(g Group) (GroupChange, error) {
	const op = "genome.AddGroup"
	if inst.parent != nil {
		return GroupChange{}, domain.Contract(op, domain.ErrInvalidArgument, "instance %s is not a root instance; inherit groups instead", inst.key)
	}
	if !domain.ValidBaseID(g.ID) {
		return GroupChange{}, domain.Contract(op, domain.ErrInvalidArgument, "group id %q", g.ID)
	}
	if _, dup := inst.groups[g.ID]; dup {
		return GroupChange{}, domain.Contract(op, domain.ErrInvalidArgument, "group %s already exists", g.ID)
	}
	if err := inst.checkRootGroup(op, g); err != nil {
		return GroupChange{}, err
	}
	if !inst.root.labels.AddExisting(g.ID) {
		return GroupChange{}, domain.Contract(op, domain.ErrInvalidArgument, "label %s already in use", g.ID)
	}
	cp := g.Clone()
	if cp.Members == nil {
		cp.Members = domain.NewIDSet()
	}
	inst.groups[g.ID] = &cp
	after := cp.Clone()
	inst.invalidateProxies()
	return GroupChange{GenomeKey: inst.key, Action: domain.ActionCreate, After: &after}, nil
}

func (inst *GenomeInstance) checkRootGroup(op string, g Group) error {
	if g.ActiveSubset != "" {
		return domain.Contract(op, domain.ErrInvalidArgument, "root-level group %s carries an active subset", g.ID)
	}
	var parent *Group
	if g.ParentID != "" {
		parent = inst.groups[g.ParentID]
		if parent == nil || parent.ParentID != "" {
			return domain.Contract(op, domain.ErrInvalidArgument, "group %s parent %s is not a root-level group", g.ID, g.ParentID)
		}
	}
	for id := range g.Members {
		if _, ok := inst.nodes[id]; !ok {
			return domain.Contract(op, domain.ErrInvalidArgument, "group %s member %s is not a node instance", g.ID, id)
		}
		if parent != nil && !parent.Members.Has(id) {
			return domain.Contract(op, domain.ErrInvalidArgument, "subset %s member %s is not in parent %s", g.ID, id, parent.ID)
		}
	}
	return nil
}

// InheritGroup references an ancestor's root-level group in a child
// instance. The parent instance must hold the group one generation up.
// activeSubset, when set, names a subset of that group.
func (inst *GenomeInstance) InheritGroup(baseID, activeSubset string) (GroupChange, error) {
	const op = "genome.InheritGroup"
	if inst.parent == nil {
		return GroupChange{}, domain.Contract(op, domain.ErrInvalidArgument, "root instance %s defines groups directly", inst.key)
	}
	gen := inst.Generation()
	id := InheritedGroupID(baseID, gen)
	if _, dup := inst.groups[id]; dup {
		return GroupChange{}, domain.Contract(op, domain.ErrInvalidArgument, "group %s already inherited", id)
	}
	if _, ok := inst.parent.groups[InheritedGroupID(baseID, gen-1)]; !ok {
		return GroupChange{}, domain.Contract(op, domain.ErrInvalidArgument, "parent %s does not hold group %s", inst.parent.key, baseID)
	}
	top := inst.RootInstance()
	if base := top.groups[baseID]; base == nil || base.ParentID != "" {
		return GroupChange{}, domain.Contract(op, domain.ErrInvalidArgument, "group %s is not a root-level group", baseID)
	}
	if err := inst.checkSubset(op, baseID, activeSubset); err != nil {
		return GroupChange{}, err
	}
	g := &Group{ID: id, ActiveSubset: activeSubset}
	inst.groups[id] = g
	after := g.Clone()
	inst.invalidateProxies()
	return GroupChange{GenomeKey: inst.key, Action: domain.ActionCreate, After: &after}, nil
}

func (inst *GenomeInstance) checkSubset(op, baseID, subset string) error {
	if subset == "" {
		return nil
	}
	sub := inst.RootInstance().groups[subset]
	if sub == nil || sub.ParentID != baseID {
		return domain.Contract(op, domain.ErrInvalidArgument, "%s is not a subset of group %s", subset, baseID)
	}
	return nil
}

// SetActiveSubset narrows or widens an inherited group.
func (inst *GenomeInstance) SetActiveSubset(id, subset string) (GroupChange, error) {
	const op = "genome.SetActiveSubset"
	g, ok := inst.groups[id]
	if !ok {
		return GroupChange{}, domain.Contract(op, domain.ErrNotFound, "group %s", id)
	}
	if GroupGeneration(id) == 0 {
		return GroupChange{}, domain.Contract(op, domain.ErrInvalidArgument, "root-level group %s cannot carry an active subset", id)
	}
	if err := inst.checkSubset(op, GroupBaseID(id), subset); err != nil {
		return GroupChange{}, err
	}
	return inst.updateGroup(g, func(g *Group) { g.ActiveSubset = subset }), nil
}

// SetGroupName renames a root-level group.
func (inst *GenomeInstance) SetGroupName(id, name string) (GroupChange, error) {
	g, ok := inst.groups[id]
	if !ok || GroupGeneration(id) != 0 {
		return GroupChange{}, domain.Contract("genome.SetGroupName", domain.ErrNotFound, "root-level group %s", id)
	}
	return inst.updateGroup(g, func(g *Group) { g.Name = name }), nil
}

// AddGroupMember adds a node instance to a root-level group or subset.
func (inst *GenomeInstance) AddGroupMember(groupID, nodeID string) (GroupChange, error) {
	const op = "genome.AddGroupMember"
	g, ok := inst.groups[groupID]
	if !ok || GroupGeneration(groupID) != 0 {
		return GroupChange{}, domain.Contract(op, domain.ErrNotFound, "root-level group %s", groupID)
	}
	if _, ok := inst.nodes[nodeID]; !ok {
		return GroupChange{}, domain.Contract(op, domain.ErrInvalidArgument, "%s is not a node instance", nodeID)
	}
	if g.ParentID != "" && !inst.groups[g.ParentID].Members.Has(nodeID) {
		return GroupChange{}, domain.Contract(op, domain.ErrInvalidArgument, "%s is not in parent group %s", nodeID, g.ParentID)
	}
	return inst.updateGroup(g, func(g *Group) { g.Members.Add(nodeID) }), nil
}

// RemoveGroupMember drops a node instance from a root-level group. A member
// still listed by one of the group's subsets cannot be removed.
func (inst *GenomeInstance) RemoveGroupMember(groupID, nodeID string) (GroupChange, error) {
	const op = "genome.RemoveGroupMember"
	g, ok := inst.groups[groupID]
	if !ok || GroupGeneration(groupID) != 0 {
		return GroupChange{}, domain.Contract(op, domain.ErrNotFound, "root-level group %s", groupID)
	}
	if !g.Members.Has(nodeID) {
		return GroupChange{}, domain.Contract(op, domain.ErrNotFound, "%s is not in group %s", nodeID, groupID)
	}
	for _, sub := range inst.groups {
		if sub.ParentID == groupID && sub.Members.Has(nodeID) {
			return GroupChange{}, domain.Contract(op, domain.ErrInvalidArgument, "%s is still in subset %s", nodeID, sub.ID)
		}
	}
	return inst.updateGroup(g, func(g *Group) { g.Members.Remove(nodeID) }), nil
}

func (inst *GenomeInstance) updateGroup(g *Group, mutate func(*Group)) GroupChange {
	before := g.Clone()
	mutate(g)
	after := g.Clone()
	inst.invalidateProxies()
	return GroupChange{GenomeKey: inst.key, Action: domain.ActionUpdate, Before: &before, After: &after}
}

// RemoveGroup deletes a group that no child instance inherits, no subset
// names as parent, no inherited reference uses as active subset and no
// overlay module is attached to.
func (inst *GenomeInstance) RemoveGroup(id string) (GroupChange, error) {
	const op = "genome.RemoveGroup"
	g, ok := inst.groups[id]
	if !ok {
		return GroupChange{}, domain.Contract(op, domain.ErrNotFound, "group %s", id)
	}
	base := GroupBaseID(id)
	childID := InheritedGroupID(base, GroupGeneration(id)+1)
	for _, c := range inst.children {
		if _, ok := c.groups[childID]; ok {
			return GroupChange{}, domain.Contract(op, domain.ErrInvalidArgument, "group %s is inherited by %s", id, c.key)
		}
	}
	if GroupGeneration(id) == 0 {
		for _, other := range inst.groups {
			if other.ParentID == id {
				return GroupChange{}, domain.Contract(op, domain.ErrInvalidArgument, "group %s is parent of subset %s", id, other.ID)
			}
		}
		var used bool
		inst.walkDescendants(func(d *GenomeInstance) {
			for _, dg := range d.groups {
				if dg.ActiveSubset == id {
					used = true
				}
			}
		})
		if used {
			return GroupChange{}, domain.Contract(op, domain.ErrInvalidArgument, "subset %s is active in a descendant instance", id)
		}
	}
	if inst.overlays.GroupInUse(id) {
		return GroupChange{}, domain.Contract(op, domain.ErrInvalidArgument, "group %s is attached to an overlay module", id)
	}
	if key, used := inst.proxyOverlayUsing(func(s *overlay.Set) bool { return s.GroupInUse(childID) || s.GroupInUse(id) }); used {
		return GroupChange{}, domain.Contract(op, domain.ErrInvalidArgument, "group %s is attached to an overlay module of proxy %s", id, key)
	}
	before := g.Clone()
	delete(inst.groups, id)
	if GroupGeneration(id) == 0 {
		inst.root.labels.Release(id)
	}
	inst.invalidateProxies()
	return GroupChange{GenomeKey: inst.key, Action: domain.ActionDelete, Before: &before}, nil
}

// IsInGroup reports whether a node instance of this instance belongs to a
// group this instance holds. Membership always resolves through the root
// instance, using the active subset when one is set.
func (inst *GenomeInstance) IsInGroup(nodeID, groupID string) bool {
	if _, ok := inst.nodes[nodeID]; !ok {
		return false
	}
	g, ok := inst.groups[groupID]
	if !ok {
		return false
	}
	membersOf := GroupBaseID(groupID)
	if g.ActiveSubset != "" {
		membersOf = g.ActiveSubset
	}
	rg, ok := inst.RootInstance().groups[membersOf]
	return ok && rg.Members.Has(nodeID)
}

// AreInGroup reports whether every node instance belongs to the group.
func (inst *GenomeInstance) AreInGroup(nodeIDs []string, groupID string) bool {
	for _, id := range nodeIDs {
		if !inst.IsInGroup(id, groupID) {
			return false
		}
	}
	return true
}

// GroupsForNode returns the IDs of groups holding the node instance.
func (inst *GenomeInstance) GroupsForNode(nodeID string) []string {
	var out []string
	for _, id := range inst.GroupIDs() {
		if inst.IsInGroup(nodeID, id) {
			out = append(out, id)
		}
	}
	return out
}

// LoadGroup inserts a group read from a document. Cross-references are
// checked afterwards by ValidateGroups, once every group is present.
func (inst *GenomeInstance) LoadGroup(g Group) error {
	const op = "genome.LoadGroup"
	if !validGroupID(g.ID) || GroupGeneration(g.ID) != inst.Generation() {
		return domain.Contract(op, domain.ErrInvalidArgument, "group id %q does not fit generation %d", g.ID, inst.Generation())
	}
	if _, dup := inst.groups[g.ID]; dup {
		return domain.Contract(op, domain.ErrInvalidArgument, "group %s already exists", g.ID)
	}
	if inst.parent == nil && !inst.root.labels.AddExisting(g.ID) {
		return domain.Contract(op, domain.ErrInvalidArgument, "label %s already in use", g.ID)
	}
	cp := g.Clone()
	if cp.Members == nil && inst.parent == nil {
		cp.Members = domain.NewIDSet()
	}
	inst.groups[g.ID] = &cp
	return nil
}

// ValidateGroups checks every group of the instance against the legal forms.
func (inst *GenomeInstance) ValidateGroups() error {
	const op = "genome.ValidateGroups"
	for _, id := range inst.GroupIDs() {
		g := inst.groups[id]
		if inst.parent == nil {
			if err := inst.checkRootGroup(op, *g); err != nil {
				return err
			}
			continue
		}
		if g.ParentID != "" || len(g.Members) > 0 {
			return domain.Contract(op, domain.ErrInvalidArgument, "inherited group %s carries a parent or members", id)
		}
		base := GroupBaseID(id)
		if _, ok := inst.parent.groups[InheritedGroupID(base, GroupGeneration(id)-1)]; !ok {
			return domain.Contract(op, domain.ErrInvalidArgument, "parent %s does not hold group %s", inst.parent.key, base)
		}
		if err := inst.checkSubset(op, base, g.ActiveSubset); err != nil {
			return err
		}
	}
	return nil
}

// GroupChangeUndo reverts a group change of this instance.
func (inst *GenomeInstance) GroupChangeUndo(c GroupChange) error {
	switch c.Action {
	case domain.ActionCreate:
		return inst.applyGroup(c, c.After, true)
	default:
		return inst.applyGroup(c, c.Before, false)
	}
}

// GroupChangeRedo reapplies a group change of this instance.
func (inst *GenomeInstance) GroupChangeRedo(c GroupChange) error {
	switch c.Action {
	case domain.ActionDelete:
		return inst.applyGroup(c, c.Before, true)
	default:
		return inst.applyGroup(c, c.After, false)
	}
}

func (inst *GenomeInstance) applyGroup(c GroupChange, snap *Group, remove bool) error {
	if c.GenomeKey != inst.key {
		return fmt.Errorf("%w: change for %s applied to %s", domain.ErrInvalidArgument, c.GenomeKey, inst.key)
	}
	if snap == nil {
		return fmt.Errorf("%w: %s group change without snapshot", domain.ErrInvalidArgument, c.Action)
	}
	rootLevel := GroupGeneration(snap.ID) == 0
	if remove {
		delete(inst.groups, snap.ID)
		if rootLevel {
			inst.root.labels.Release(snap.ID)
		}
		return nil
	}
	if _, exists := inst.groups[snap.ID]; !exists && rootLevel {
		inst.root.labels.AddExisting(snap.ID)
	}
	cp := snap.Clone()
	inst.groups[snap.ID] = &cp
	return nil
}
