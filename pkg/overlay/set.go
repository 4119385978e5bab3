package overlay

import (
	"fmt"

	"genomecore/pkg/domain"
)

// View is the part of an owner an overlay validates module contents against.
type View interface {
	HasNode(id string) bool
	HasGroup(id string) bool
}

// Set is the per-owner overlay map. Every owner of one document shares the
// same labeller, so overlay, module and module linkage IDs never collide
// across owners.
type Set struct {
	ownerKey  string
	mode      domain.OwnerMode
	labels    *domain.Labeller
	view      View
	overlays  map[string]*NetworkOverlay
	firstView string
}

// NewSet returns an empty overlay map for an owner.
func NewSet(ownerKey string, mode domain.OwnerMode, labels *domain.Labeller, view View) *Set {
	return &Set{
		ownerKey: ownerKey,
		mode:     mode,
		labels:   labels,
		view:     view,
		overlays: make(map[string]*NetworkOverlay),
	}
}

// OwnerKey returns the key of the owner.
func (s *Set) OwnerKey() string { return s.ownerKey }

// Mode returns the owner kind.
func (s *Set) Mode() domain.OwnerMode { return s.mode }

// Len returns the number of overlays.
func (s *Set) Len() int { return len(s.overlays) }

// IDs returns overlay IDs in ascending order.
func (s *Set) IDs() []string {
	ids := domain.NewIDSet()
	for id := range s.overlays {
		ids.Add(id)
	}
	return ids.Sorted()
}

// Overlay returns a copy of the overlay with the given ID.
func (s *Set) Overlay(id string) (NetworkOverlay, bool) {
	o, ok := s.overlays[id]
	if !ok {
		return NetworkOverlay{}, false
	}
	return o.Clone(), true
}

// Module returns a copy of a module.
func (s *Set) Module(overlayID, moduleID string) (NetModule, bool) {
	o, ok := s.overlays[overlayID]
	if !ok {
		return NetModule{}, false
	}
	m, ok := o.Modules[moduleID]
	if !ok {
		return NetModule{}, false
	}
	return m.Clone(), true
}

// FirstViewOverlay returns the overlay shown first, or "".
func (s *Set) FirstViewOverlay() string { return s.firstView }

// NodeInUse reports whether any module of any overlay lists the node.
func (s *Set) NodeInUse(nodeID string) bool {
	for _, o := range s.overlays {
		for _, m := range o.Modules {
			if m.Members.Has(nodeID) {
				return true
			}
		}
	}
	return false
}

// GroupInUse reports whether any module is attached to the group.
func (s *Set) GroupInUse(groupID string) bool {
	for _, o := range s.overlays {
		for _, m := range o.Modules {
			if m.GroupID == groupID {
				return true
			}
		}
	}
	return false
}

// AddOverlay inserts a new overlay. An empty ID is allocated from the shared
// labeller; every module and linkage ID it carries is registered.
func (s *Set) AddOverlay(o NetworkOverlay) (NetworkOverlayChange, error) {
	const op = "overlay.AddOverlay"
	o = o.Clone()
	if o.ID == "" {
		o.ID = s.labels.Next()
	}
	if err := s.validateOverlay(op, o); err != nil {
		return NetworkOverlayChange{}, err
	}
	if err := s.register(op, o.labels()); err != nil {
		return NetworkOverlayChange{}, err
	}
	s.overlays[o.ID] = &o
	after := o.Clone()
	return NetworkOverlayChange{OwnerKey: s.ownerKey, Action: domain.ActionCreate, After: &after}, nil
}

// RemoveOverlay deletes an overlay and releases all of its IDs. When the
// overlay is the first view, an OwnerChange clearing it precedes the removal
// record.
func (s *Set) RemoveOverlay(id string) ([]Change, error) {
	o, ok := s.overlays[id]
	if !ok {
		return nil, domain.Contract("overlay.RemoveOverlay", domain.ErrNotFound, "overlay %s", id)
	}
	var out []Change
	if s.firstView == id {
		out = append(out, OwnerChange{OwnerKey: s.ownerKey, Mode: s.mode, Before: id})
		s.firstView = ""
	}
	before := o.Clone()
	for _, label := range before.labels() {
		s.labels.Release(label)
	}
	delete(s.overlays, id)
	return append(out, NetworkOverlayChange{OwnerKey: s.ownerKey, Action: domain.ActionDelete, Before: &before}), nil
}

// SetOverlayProperties renames an overlay or changes its description.
func (s *Set) SetOverlayProperties(id, name, description string) (NetworkOverlayChange, error) {
	o, ok := s.overlays[id]
	if !ok {
		return NetworkOverlayChange{}, domain.Contract("overlay.SetOverlayProperties", domain.ErrNotFound, "overlay %s", id)
	}
	before := o.Clone()
	o.Name = name
	o.Description = description
	after := o.Clone()
	return NetworkOverlayChange{OwnerKey: s.ownerKey, Action: domain.ActionUpdate, Before: &before, After: &after}, nil
}

// AddModule inserts a module into an overlay. An empty ID is allocated.
func (s *Set) AddModule(overlayID string, m NetModule) (NetModuleChange, error) {
	const op = "overlay.AddModule"
	o, ok := s.overlays[overlayID]
	if !ok {
		return NetModuleChange{}, domain.Contract(op, domain.ErrNotFound, "overlay %s", overlayID)
	}
	m = m.Clone()
	if m.ID == "" {
		m.ID = s.labels.Next()
	}
	if _, dup := o.Modules[m.ID]; dup {
		return NetModuleChange{}, domain.Contract(op, domain.ErrInvalidArgument, "module %s already exists", m.ID)
	}
	if err := s.validateModule(op, m); err != nil {
		return NetModuleChange{}, err
	}
	if !s.labels.AddExisting(m.ID) {
		return NetModuleChange{}, domain.Contract(op, domain.ErrInvalidArgument, "label %s already in use", m.ID)
	}
	if m.Members == nil {
		m.Members = domain.NewIDSet()
	}
	o.Modules[m.ID] = &m
	return s.moduleChange(overlayID, domain.ActionCreate, nil, m.Clone()), nil
}

// RemoveModule deletes a module. Linkages touching it are removed and the
// module is scrubbed from the first view; each side effect yields its own
// record. Records are ordered so that undoing them in reverse restores the
// original state.
func (s *Set) RemoveModule(overlayID, moduleID string) ([]Change, error) {
	const op = "overlay.RemoveModule"
	o, ok := s.overlays[overlayID]
	if !ok {
		return nil, domain.Contract(op, domain.ErrNotFound, "overlay %s", overlayID)
	}
	m, ok := o.Modules[moduleID]
	if !ok {
		return nil, domain.Contract(op, domain.ErrNotFound, "module %s in overlay %s", moduleID, overlayID)
	}
	var out []Change
	if o.FirstView.references(moduleID) {
		before := o.FirstView.Clone()
		o.FirstView.Modules.Set.Remove(moduleID)
		o.FirstView.Revealed.Set.Remove(moduleID)
		out = append(out, NetModuleChange{
			OwnerKey: s.ownerKey, OverlayID: overlayID, Entity: domain.EntityFirstView,
			Action: domain.ActionUpdate, Before: before, After: o.FirstView.Clone(),
		})
	}
	for _, lid := range o.LinkageIDs() {
		l := o.Linkages[lid]
		if l.Source != moduleID && l.Target != moduleID {
			continue
		}
		delete(o.Linkages, lid)
		s.labels.Release(lid)
		out = append(out, NetModuleChange{
			OwnerKey: s.ownerKey, OverlayID: overlayID, Entity: domain.EntityModuleLinkage,
			Action: domain.ActionDelete, Before: *l,
		})
	}
	delete(o.Modules, moduleID)
	s.labels.Release(moduleID)
	return append(out, s.moduleChange(overlayID, domain.ActionDelete, m.Clone(), nil)), nil
}

// ReplaceModule overwrites a module's fields. The ID must exist.
func (s *Set) ReplaceModule(overlayID string, m NetModule) (NetModuleChange, error) {
	const op = "overlay.ReplaceModule"
	o, ok := s.overlays[overlayID]
	if !ok {
		return NetModuleChange{}, domain.Contract(op, domain.ErrNotFound, "overlay %s", overlayID)
	}
	old, ok := o.Modules[m.ID]
	if !ok {
		return NetModuleChange{}, domain.Contract(op, domain.ErrNotFound, "module %s", m.ID)
	}
	m = m.Clone()
	if err := s.validateModule(op, m); err != nil {
		return NetModuleChange{}, err
	}
	if m.Members == nil {
		m.Members = domain.NewIDSet()
	}
	before := old.Clone()
	o.Modules[m.ID] = &m
	return s.moduleChange(overlayID, domain.ActionUpdate, before, m.Clone()), nil
}

// AddMembers adds nodes to a module.
func (s *Set) AddMembers(overlayID, moduleID string, nodeIDs ...string) (NetModuleChange, error) {
	m, ok := s.Module(overlayID, moduleID)
	if !ok {
		return NetModuleChange{}, domain.Contract("overlay.AddMembers", domain.ErrNotFound, "module %s in overlay %s", moduleID, overlayID)
	}
	if m.Members == nil {
		m.Members = domain.NewIDSet()
	}
	for _, id := range nodeIDs {
		m.Members.Add(id)
	}
	return s.ReplaceModule(overlayID, m)
}

// RemoveMembers drops nodes from a module.
func (s *Set) RemoveMembers(overlayID, moduleID string, nodeIDs ...string) (NetModuleChange, error) {
	m, ok := s.Module(overlayID, moduleID)
	if !ok {
		return NetModuleChange{}, domain.Contract("overlay.RemoveMembers", domain.ErrNotFound, "module %s in overlay %s", moduleID, overlayID)
	}
	for _, id := range nodeIDs {
		m.Members.Remove(id)
	}
	return s.ReplaceModule(overlayID, m)
}

// SetModuleTags replaces the free-form tags of a module.
func (s *Set) SetModuleTags(overlayID, moduleID string, tags []string) (NetModuleChange, error) {
	m, ok := s.Module(overlayID, moduleID)
	if !ok {
		return NetModuleChange{}, domain.Contract("overlay.SetModuleTags", domain.ErrNotFound, "module %s in overlay %s", moduleID, overlayID)
	}
	m.Tags = append([]string(nil), tags...)
	return s.ReplaceModule(overlayID, m)
}

// SetModuleNameValues replaces the name/value pairs of a module.
func (s *Set) SetModuleNameValues(overlayID, moduleID string, pairs []NameValuePair) (NetModuleChange, error) {
	m, ok := s.Module(overlayID, moduleID)
	if !ok {
		return NetModuleChange{}, domain.Contract("overlay.SetModuleNameValues", domain.ErrNotFound, "module %s in overlay %s", moduleID, overlayID)
	}
	m.NameValues = append([]NameValuePair(nil), pairs...)
	return s.ReplaceModule(overlayID, m)
}

// AddModuleLinkage inserts a linkage between two modules of the overlay.
func (s *Set) AddModuleLinkage(overlayID string, l NetModuleLinkage) (NetModuleChange, error) {
	const op = "overlay.AddModuleLinkage"
	o, ok := s.overlays[overlayID]
	if !ok {
		return NetModuleChange{}, domain.Contract(op, domain.ErrNotFound, "overlay %s", overlayID)
	}
	if l.ID == "" {
		l.ID = s.labels.Next()
	}
	if _, dup := o.Linkages[l.ID]; dup {
		return NetModuleChange{}, domain.Contract(op, domain.ErrInvalidArgument, "module linkage %s already exists", l.ID)
	}
	if _, ok := o.Modules[l.Source]; !ok {
		return NetModuleChange{}, domain.Contract(op, domain.ErrInvalidArgument, "unknown source module %s", l.Source)
	}
	if _, ok := o.Modules[l.Target]; !ok {
		return NetModuleChange{}, domain.Contract(op, domain.ErrInvalidArgument, "unknown target module %s", l.Target)
	}
	if !l.Sign.Valid() {
		return NetModuleChange{}, domain.Contract(op, domain.ErrInvalidArgument, "sign %d", l.Sign)
	}
	if !s.labels.AddExisting(l.ID) {
		return NetModuleChange{}, domain.Contract(op, domain.ErrInvalidArgument, "label %s already in use", l.ID)
	}
	o.Linkages[l.ID] = &l
	return NetModuleChange{
		OwnerKey: s.ownerKey, OverlayID: overlayID, Entity: domain.EntityModuleLinkage,
		Action: domain.ActionCreate, After: l,
	}, nil
}

// RemoveModuleLinkage deletes a module linkage.
func (s *Set) RemoveModuleLinkage(overlayID, linkageID string) (NetModuleChange, error) {
	const op = "overlay.RemoveModuleLinkage"
	o, ok := s.overlays[overlayID]
	if !ok {
		return NetModuleChange{}, domain.Contract(op, domain.ErrNotFound, "overlay %s", overlayID)
	}
	l, ok := o.Linkages[linkageID]
	if !ok {
		return NetModuleChange{}, domain.Contract(op, domain.ErrNotFound, "module linkage %s", linkageID)
	}
	delete(o.Linkages, linkageID)
	s.labels.Release(linkageID)
	return NetModuleChange{
		OwnerKey: s.ownerKey, OverlayID: overlayID, Entity: domain.EntityModuleLinkage,
		Action: domain.ActionDelete, Before: *l,
	}, nil
}

// SetFirstView replaces the first-view module selection of an overlay.
func (s *Set) SetFirstView(overlayID string, fv FirstView) (NetModuleChange, error) {
	const op = "overlay.SetFirstView"
	o, ok := s.overlays[overlayID]
	if !ok {
		return NetModuleChange{}, domain.Contract(op, domain.ErrNotFound, "overlay %s", overlayID)
	}
	for _, set := range []domain.IDSet{fv.Modules.Set, fv.Revealed.Set} {
		for id := range set {
			if _, ok := o.Modules[id]; !ok {
				return NetModuleChange{}, domain.Contract(op, domain.ErrInvalidArgument, "unknown module %s", id)
			}
		}
	}
	before := o.FirstView.Clone()
	o.FirstView = fv.Clone()
	return NetModuleChange{
		OwnerKey: s.ownerKey, OverlayID: overlayID, Entity: domain.EntityFirstView,
		Action: domain.ActionUpdate, Before: before, After: o.FirstView.Clone(),
	}, nil
}

// SetFirstViewOverlay selects the overlay shown when the owner is opened.
// An empty ID clears the selection.
func (s *Set) SetFirstViewOverlay(id string) (OwnerChange, error) {
	if id != "" {
		if _, ok := s.overlays[id]; !ok {
			return OwnerChange{}, domain.Contract("overlay.SetFirstViewOverlay", domain.ErrNotFound, "overlay %s", id)
		}
	}
	chg := OwnerChange{OwnerKey: s.ownerKey, Mode: s.mode, Before: s.firstView, After: id}
	s.firstView = id
	return chg, nil
}

func (s *Set) moduleChange(overlayID string, action domain.Action, before, after any) NetModuleChange {
	return NetModuleChange{
		OwnerKey: s.ownerKey, OverlayID: overlayID, Entity: domain.EntityNetModule,
		Action: action, Before: before, After: after,
	}
}

func (s *Set) validateOverlay(op string, o NetworkOverlay) error {
	if !domain.ValidBaseID(o.ID) {
		return domain.Contract(op, domain.ErrInvalidArgument, "overlay id %q", o.ID)
	}
	if _, dup := s.overlays[o.ID]; dup {
		return domain.Contract(op, domain.ErrInvalidArgument, "overlay %s already exists", o.ID)
	}
	for id, m := range o.Modules {
		if id != m.ID {
			return domain.Contract(op, domain.ErrInvalidArgument, "module key %s holds module %s", id, m.ID)
		}
		if err := s.validateModule(op, *m); err != nil {
			return err
		}
	}
	for _, l := range o.Linkages {
		if o.Modules[l.Source] == nil || o.Modules[l.Target] == nil {
			return domain.Contract(op, domain.ErrInvalidArgument, "module linkage %s references unknown module", l.ID)
		}
	}
	for _, set := range []domain.IDSet{o.FirstView.Modules.Set, o.FirstView.Revealed.Set} {
		for id := range set {
			if o.Modules[id] == nil {
				return domain.Contract(op, domain.ErrInvalidArgument, "first view references unknown module %s", id)
			}
		}
	}
	return nil
}

func (s *Set) validateModule(op string, m NetModule) error {
	if !domain.ValidBaseID(m.ID) {
		return domain.Contract(op, domain.ErrInvalidArgument, "module id %q", m.ID)
	}
	if s.view == nil {
		return nil
	}
	if m.GroupID != "" && !s.view.HasGroup(m.GroupID) {
		return domain.Contract(op, domain.ErrInvalidArgument, "module %s references unknown group %s", m.ID, m.GroupID)
	}
	for id := range m.Members {
		if !s.view.HasNode(id) {
			return domain.Contract(op, domain.ErrInvalidArgument, "module %s references unknown node %s", m.ID, id)
		}
	}
	return nil
}

// register reserves labels atomically: either all are reserved or none.
func (s *Set) register(op string, labels []string) error {
	for i, label := range labels {
		if !s.labels.AddExisting(label) {
			for _, done := range labels[:i] {
				s.labels.Release(done)
			}
			return domain.Contract(op, domain.ErrInvalidArgument, "label %s already in use", label)
		}
	}
	return nil
}

func (s *Set) checkOwner(c Change) error {
	if c.Owner() != s.ownerKey {
		return fmt.Errorf("%w: change for owner %s applied to %s", domain.ErrInvalidArgument, c.Owner(), s.ownerKey)
	}
	return nil
}
