package genome

import (
	"fmt"

	"genomecore/pkg/domain"
	"genomecore/pkg/overlay"
)

// AddNodeInstance inserts a node instance. Root instances may instantiate
// any root node; child instances may only hold items their parent holds,
// with an activity the parent permits.
func (inst *GenomeInstance) AddNodeInstance(ni NodeInstance) (GenomeChange, error) {
	if err := inst.insertNode("genome.AddNodeInstance", ni, true); err != nil {
		return GenomeChange{}, err
	}
	return inst.instanceChange(domain.EntityNodeInstance, domain.ActionCreate, nil, ni.Clone()), nil
}

// LoadNodeInstance inserts a node instance read from a document without
// checking the activity against the parent. Documents from older formats
// are repaired afterwards with FixupLegacyIOActivityBounds.
func (inst *GenomeInstance) LoadNodeInstance(ni NodeInstance) error {
	return inst.insertNode("genome.LoadNodeInstance", ni, false)
}

func (inst *GenomeInstance) insertNode(op string, ni NodeInstance, checkActivity bool) error {
	if _, err := domain.InstanceNumber(ni.ID); err != nil {
		return instanceIDError(op, ni.ID)
	}
	if !inst.root.HasNode(ni.BaseID()) {
		return domain.Contract(op, domain.ErrInvalidArgument, "root genome has no node %s", ni.BaseID())
	}
	if _, dup := inst.nodes[ni.ID]; dup {
		return domain.Contract(op, domain.ErrInvalidArgument, "node instance %s already exists", ni.ID)
	}
	if err := ni.Activity.Validate(false); err != nil {
		return domain.Contract(op, domain.ErrInvalidArgument, "%s: %v", ni.ID, err)
	}
	if inst.parent != nil {
		parent, ok := inst.parent.nodes[ni.ID]
		if !ok {
			return domain.Contract(op, domain.ErrInvalidArgument, "parent instance %s has no node %s", inst.parent.key, ni.ID)
		}
		if checkActivity && !ActivityAllowedInChild(parent.Activity, ni.Activity) {
			return domain.Contract(op, domain.ErrIllegalActivity, "%s cannot be %s under parent %s", ni.ID, ni.Activity, parent.Activity)
		}
	}
	cp := ni.Clone()
	inst.nodes[ni.ID] = &cp
	return nil
}

// RemoveNodeInstance deletes a node instance that no child instance, link
// instance, group or overlay module still references.
func (inst *GenomeInstance) RemoveNodeInstance(id string) (GenomeChange, error) {
	const op = "genome.RemoveNodeInstance"
	ni, ok := inst.nodes[id]
	if !ok {
		return GenomeChange{}, domain.Contract(op, domain.ErrNotFound, "node instance %s", id)
	}
	if inst.heldByChild(id, false) {
		return GenomeChange{}, domain.Contract(op, domain.ErrInvalidArgument, "%s is held by a child instance", id)
	}
	for _, li := range inst.links {
		if li.SourceInstance == id || li.TargetInstance == id {
			return GenomeChange{}, domain.Contract(op, domain.ErrInvalidArgument, "%s still has link instance %s", id, li.ID)
		}
	}
	for gid, g := range inst.groups {
		if g.Members.Has(id) {
			return GenomeChange{}, domain.Contract(op, domain.ErrInvalidArgument, "%s is a member of group %s", id, gid)
		}
	}
	if inst.overlays.NodeInUse(id) {
		return GenomeChange{}, domain.Contract(op, domain.ErrInvalidArgument, "%s is a member of an overlay module", id)
	}
	if key, used := inst.proxyOverlayUsing(func(s *overlay.Set) bool { return s.NodeInUse(id) }); used {
		return GenomeChange{}, domain.Contract(op, domain.ErrInvalidArgument, "%s is a member of an overlay module of proxy %s", id, key)
	}
	before := ni.Clone()
	delete(inst.nodes, id)
	return inst.instanceChange(domain.EntityNodeInstance, domain.ActionDelete, before, nil), nil
}

// AddLinkageInstance inserts a link instance between two node instances of
// this instance whose base IDs match the root link's endpoints.
func (inst *GenomeInstance) AddLinkageInstance(li LinkageInstance) (GenomeChange, error) {
	if err := inst.insertLink("genome.AddLinkageInstance", li, true); err != nil {
		return GenomeChange{}, err
	}
	return inst.instanceChange(domain.EntityLinkageInstance, domain.ActionCreate, nil, li.Clone()), nil
}

// LoadLinkageInstance inserts a link instance read from a document without
// the activity check.
func (inst *GenomeInstance) LoadLinkageInstance(li LinkageInstance) error {
	return inst.insertLink("genome.LoadLinkageInstance", li, false)
}

func (inst *GenomeInstance) insertLink(op string, li LinkageInstance, checkActivity bool) error {
	if _, err := domain.InstanceNumber(li.ID); err != nil {
		return instanceIDError(op, li.ID)
	}
	base, ok := inst.root.links[li.BaseID()]
	if !ok {
		return domain.Contract(op, domain.ErrInvalidArgument, "root genome has no link %s", li.BaseID())
	}
	if _, dup := inst.links[li.ID]; dup {
		return domain.Contract(op, domain.ErrInvalidArgument, "link instance %s already exists", li.ID)
	}
	if _, ok := inst.nodes[li.SourceInstance]; !ok || domain.BaseID(li.SourceInstance) != base.Source {
		return domain.Contract(op, domain.ErrInvalidArgument, "link instance %s source %s does not instantiate %s", li.ID, li.SourceInstance, base.Source)
	}
	if _, ok := inst.nodes[li.TargetInstance]; !ok || domain.BaseID(li.TargetInstance) != base.Target {
		return domain.Contract(op, domain.ErrInvalidArgument, "link instance %s target %s does not instantiate %s", li.ID, li.TargetInstance, base.Target)
	}
	if err := li.Activity.Validate(true); err != nil {
		return domain.Contract(op, domain.ErrInvalidArgument, "%s: %v", li.ID, err)
	}
	if inst.parent != nil {
		parent, ok := inst.parent.links[li.ID]
		if !ok {
			return domain.Contract(op, domain.ErrInvalidArgument, "parent instance %s has no link %s", inst.parent.key, li.ID)
		}
		if parent.SourceInstance != li.SourceInstance || parent.TargetInstance != li.TargetInstance {
			return domain.Contract(op, domain.ErrInvalidArgument, "link instance %s endpoints differ from parent", li.ID)
		}
		if checkActivity && !ActivityAllowedInChild(parent.Activity, li.Activity) {
			return domain.Contract(op, domain.ErrIllegalActivity, "%s cannot be %s under parent %s", li.ID, li.Activity, parent.Activity)
		}
	}
	cp := li.Clone()
	inst.links[li.ID] = &cp
	return nil
}

// RemoveLinkageInstance deletes a link instance no child instance holds.
func (inst *GenomeInstance) RemoveLinkageInstance(id string) (GenomeChange, error) {
	const op = "genome.RemoveLinkageInstance"
	li, ok := inst.links[id]
	if !ok {
		return GenomeChange{}, domain.Contract(op, domain.ErrNotFound, "link instance %s", id)
	}
	if inst.heldByChild(id, true) {
		return GenomeChange{}, domain.Contract(op, domain.ErrInvalidArgument, "%s is held by a child instance", id)
	}
	before := li.Clone()
	delete(inst.links, id)
	return inst.instanceChange(domain.EntityLinkageInstance, domain.ActionDelete, before, nil), nil
}

// CalcNodeActivityBounds collects the constraints on a node instance's
// activity from the parent and from every descendant instance.
func (inst *GenomeInstance) CalcNodeActivityBounds(id string) (ActivityBounds, error) {
	if _, ok := inst.nodes[id]; !ok {
		return ActivityBounds{}, domain.Contract("genome.CalcNodeActivityBounds", domain.ErrNotFound, "node instance %s", id)
	}
	var b ActivityBounds
	if inst.parent != nil {
		if p, ok := inst.parent.nodes[id]; ok {
			a := p.Activity
			b.Parent = &a
		}
	}
	inst.walkDescendants(func(d *GenomeInstance) {
		if ni, ok := d.nodes[id]; ok {
			b.note(ni.Activity)
		}
	})
	return b, nil
}

// CalcLinkActivityBounds is CalcNodeActivityBounds for link instances.
func (inst *GenomeInstance) CalcLinkActivityBounds(id string) (ActivityBounds, error) {
	if _, ok := inst.links[id]; !ok {
		return ActivityBounds{}, domain.Contract("genome.CalcLinkActivityBounds", domain.ErrNotFound, "link instance %s", id)
	}
	var b ActivityBounds
	if inst.parent != nil {
		if p, ok := inst.parent.links[id]; ok {
			a := p.Activity
			b.Parent = &a
		}
	}
	inst.walkDescendants(func(d *GenomeInstance) {
		if li, ok := d.links[id]; ok {
			b.note(li.Activity)
		}
	})
	return b, nil
}

func (inst *GenomeInstance) walkDescendants(fn func(*GenomeInstance)) {
	for _, c := range inst.Children() {
		fn(c)
		c.walkDescendants(fn)
	}
}

// SetNodeActivity changes a node instance's activity. Values the parent or
// any descendant forbids are rejected with domain.ErrIllegalActivity.
func (inst *GenomeInstance) SetNodeActivity(id string, a Activity) (GenomeChange, error) {
	const op = "genome.SetNodeActivity"
	if err := a.Validate(false); err != nil {
		return GenomeChange{}, domain.Contract(op, domain.ErrInvalidArgument, "%v", err)
	}
	bounds, err := inst.CalcNodeActivityBounds(id)
	if err != nil {
		return GenomeChange{}, err
	}
	if !bounds.Permits(a) {
		return GenomeChange{}, domain.Contract(op, domain.ErrIllegalActivity, "%s cannot be %s in instance %s", id, a, inst.key)
	}
	ni := inst.nodes[id]
	before := ni.Clone()
	ni.Activity = a
	return inst.instanceChange(domain.EntityNodeInstance, domain.ActionUpdate, before, ni.Clone()), nil
}

// SetLinkActivity changes a link instance's activity under the same rule.
func (inst *GenomeInstance) SetLinkActivity(id string, a Activity) (GenomeChange, error) {
	const op = "genome.SetLinkActivity"
	if err := a.Validate(true); err != nil {
		return GenomeChange{}, domain.Contract(op, domain.ErrInvalidArgument, "%v", err)
	}
	bounds, err := inst.CalcLinkActivityBounds(id)
	if err != nil {
		return GenomeChange{}, err
	}
	if !bounds.Permits(a) {
		return GenomeChange{}, domain.Contract(op, domain.ErrIllegalActivity, "%s cannot be %s in instance %s", id, a, inst.key)
	}
	li := inst.links[id]
	before := li.Clone()
	li.Activity = a
	return inst.instanceChange(domain.EntityLinkageInstance, domain.ActionUpdate, before, li.Clone()), nil
}

// EffectiveLinkActivity resolves a use-source link to its source node's
// activity.
func (inst *GenomeInstance) EffectiveLinkActivity(id string) (Activity, bool) {
	li, ok := inst.links[id]
	if !ok {
		return Activity{}, false
	}
	if li.Activity.State != StateUseSource {
		return li.Activity, true
	}
	src, ok := inst.nodes[li.SourceInstance]
	if !ok {
		return Activity{}, false
	}
	return src.Activity, true
}

// SetNodeNameOverride sets or clears the display name of a node instance.
func (inst *GenomeInstance) SetNodeNameOverride(id, name string) (GenomeChange, error) {
	ni, ok := inst.nodes[id]
	if !ok {
		return GenomeChange{}, domain.Contract("genome.SetNodeNameOverride", domain.ErrNotFound, "node instance %s", id)
	}
	before := ni.Clone()
	ni.NameOverride = name
	return inst.instanceChange(domain.EntityNodeInstance, domain.ActionUpdate, before, ni.Clone()), nil
}

// ReplaceNodeInstance overwrites the name override, description and URLs of
// a node instance. The activity must be unchanged; use SetNodeActivity.
func (inst *GenomeInstance) ReplaceNodeInstance(ni NodeInstance) (GenomeChange, error) {
	const op = "genome.ReplaceNodeInstance"
	cur, ok := inst.nodes[ni.ID]
	if !ok {
		return GenomeChange{}, domain.Contract(op, domain.ErrNotFound, "node instance %s", ni.ID)
	}
	if cur.Activity != ni.Activity {
		return GenomeChange{}, domain.Contract(op, domain.ErrInvalidArgument, "%s activity differs; use SetNodeActivity", ni.ID)
	}
	before := cur.Clone()
	cp := ni.Clone()
	inst.nodes[ni.ID] = &cp
	return inst.instanceChange(domain.EntityNodeInstance, domain.ActionUpdate, before, cp.Clone()), nil
}

// ReplaceLinkageInstance overwrites the description and URLs of a link
// instance. Endpoints and activity must be unchanged.
func (inst *GenomeInstance) ReplaceLinkageInstance(li LinkageInstance) (GenomeChange, error) {
	const op = "genome.ReplaceLinkageInstance"
	cur, ok := inst.links[li.ID]
	if !ok {
		return GenomeChange{}, domain.Contract(op, domain.ErrNotFound, "link instance %s", li.ID)
	}
	if cur.Activity != li.Activity || cur.SourceInstance != li.SourceInstance || cur.TargetInstance != li.TargetInstance {
		return GenomeChange{}, domain.Contract(op, domain.ErrInvalidArgument, "%s endpoints or activity differ", li.ID)
	}
	before := cur.Clone()
	cp := li.Clone()
	inst.links[li.ID] = &cp
	return inst.instanceChange(domain.EntityLinkageInstance, domain.ActionUpdate, before, cp.Clone()), nil
}

// FixupLegacyIOActivityBounds clamps every activity the parent forbids to the
// closest permitted value and returns the IDs it changed. Callers run it on
// parents before children so each level sees an already repaired parent.
func (inst *GenomeInstance) FixupLegacyIOActivityBounds() []string {
	if inst.parent == nil {
		return nil
	}
	var fixed []string
	for _, id := range inst.NodeIDs() {
		ni := inst.nodes[id]
		parent, ok := inst.parent.nodes[id]
		if !ok {
			continue
		}
		if clamped := ClampChildActivity(parent.Activity, ni.Activity); clamped != ni.Activity {
			ni.Activity = clamped
			fixed = append(fixed, id)
		}
	}
	for _, id := range inst.LinkIDs() {
		li := inst.links[id]
		parent, ok := inst.parent.links[id]
		if !ok {
			continue
		}
		if clamped := ClampChildActivity(parent.Activity, li.Activity); clamped != li.Activity {
			li.Activity = clamped
			fixed = append(fixed, id)
		}
	}
	return fixed
}

// IllegalActivities lists node and link instances whose activity the parent
// forbids.
func (inst *GenomeInstance) IllegalActivities() []string {
	if inst.parent == nil {
		return nil
	}
	var out []string
	for _, id := range inst.NodeIDs() {
		if p, ok := inst.parent.nodes[id]; ok && !ActivityAllowedInChild(p.Activity, inst.nodes[id].Activity) {
			out = append(out, id)
		}
	}
	for _, id := range inst.LinkIDs() {
		if p, ok := inst.parent.links[id]; ok && !ActivityAllowedInChild(p.Activity, inst.links[id].Activity) {
			out = append(out, id)
		}
	}
	return out
}

// ChangeUndo reverts a change produced by this instance.
func (inst *GenomeInstance) ChangeUndo(c GenomeChange) error {
	switch c.Action {
	case domain.ActionCreate:
		return inst.applySnapshot(c, c.After, true)
	default:
		return inst.applySnapshot(c, c.Before, false)
	}
}

// ChangeRedo reapplies a change produced by this instance.
func (inst *GenomeInstance) ChangeRedo(c GenomeChange) error {
	switch c.Action {
	case domain.ActionDelete:
		return inst.applySnapshot(c, c.Before, true)
	default:
		return inst.applySnapshot(c, c.After, false)
	}
}

func (inst *GenomeInstance) applySnapshot(c GenomeChange, snap any, remove bool) error {
	if c.GenomeKey != inst.key {
		return fmt.Errorf("%w: change for %s applied to %s", domain.ErrInvalidArgument, c.GenomeKey, inst.key)
	}
	defer inst.invalidateProxies()
	switch v := snap.(type) {
	case NodeInstance:
		if remove {
			delete(inst.nodes, v.ID)
			return nil
		}
		cp := v.Clone()
		inst.nodes[v.ID] = &cp
	case LinkageInstance:
		if remove {
			delete(inst.links, v.ID)
			return nil
		}
		cp := v.Clone()
		inst.links[v.ID] = &cp
	default:
		return snapshotError(c.Entity, snap)
	}
	return nil
}
