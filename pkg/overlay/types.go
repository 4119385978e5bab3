// Package overlay implements network overlays: named annotation layers of
// node modules and module linkages attached to a root genome, a genome
// instance or a dynamic proxy.
package overlay

import "genomecore/pkg/domain"

// NameValuePair is a free-form attribute on a module.
type NameValuePair struct {
	Name  string
	Value string
}

// NetModule groups nodes of its owner, optionally tied to one group.
type NetModule struct {
	ID          string
	Name        string
	Description string
	GroupID     string
	Members     domain.IDSet
	Tags        []string
	NameValues  []NameValuePair
}

// Clone returns a deep copy.
func (m NetModule) Clone() NetModule {
	out := m
	out.Members = m.Members.Clone()
	if m.Tags != nil {
		out.Tags = append([]string(nil), m.Tags...)
	}
	if m.NameValues != nil {
		out.NameValues = append([]NameValuePair(nil), m.NameValues...)
	}
	return out
}

// NetModuleLinkage is a signed edge between two modules of one overlay.
type NetModuleLinkage struct {
	ID     string
	Source string
	Target string
	Sign   domain.Sign
}

// TaggedSet is a module ID set with a display mode tag.
type TaggedSet struct {
	Tag int
	Set domain.IDSet
}

// Clone returns a deep copy.
func (t TaggedSet) Clone() TaggedSet {
	return TaggedSet{Tag: t.Tag, Set: t.Set.Clone()}
}

// Equal reports whether both tagged sets hold the same tag and members.
func (t TaggedSet) Equal(o TaggedSet) bool {
	return t.Tag == o.Tag && t.Set.Equal(o.Set)
}

// FirstView is the module selection shown when the overlay is first opened.
type FirstView struct {
	Modules  TaggedSet
	Revealed TaggedSet
}

// Clone returns a deep copy.
func (f FirstView) Clone() FirstView {
	return FirstView{Modules: f.Modules.Clone(), Revealed: f.Revealed.Clone()}
}

// Equal reports whether both views select the same modules.
func (f FirstView) Equal(o FirstView) bool {
	return f.Modules.Equal(o.Modules) && f.Revealed.Equal(o.Revealed)
}

func (f FirstView) references(moduleID string) bool {
	return f.Modules.Set.Has(moduleID) || f.Revealed.Set.Has(moduleID)
}

// NetworkOverlay is a named collection of modules and module linkages.
type NetworkOverlay struct {
	ID          string
	Name        string
	Description string
	Modules     map[string]*NetModule
	Linkages    map[string]*NetModuleLinkage
	FirstView   FirstView
}

// NewNetworkOverlay returns an empty overlay.
func NewNetworkOverlay(id, name string) NetworkOverlay {
	return NetworkOverlay{
		ID:       id,
		Name:     name,
		Modules:  make(map[string]*NetModule),
		Linkages: make(map[string]*NetModuleLinkage),
	}
}

// Clone returns a deep copy.
func (o NetworkOverlay) Clone() NetworkOverlay {
	out := o
	out.Modules = make(map[string]*NetModule, len(o.Modules))
	for id, m := range o.Modules {
		cp := m.Clone()
		out.Modules[id] = &cp
	}
	out.Linkages = make(map[string]*NetModuleLinkage, len(o.Linkages))
	for id, l := range o.Linkages {
		cp := *l
		out.Linkages[id] = &cp
	}
	out.FirstView = o.FirstView.Clone()
	return out
}

// ModuleIDs returns the module IDs in ascending order.
func (o NetworkOverlay) ModuleIDs() []string {
	ids := domain.NewIDSet()
	for id := range o.Modules {
		ids.Add(id)
	}
	return ids.Sorted()
}

// LinkageIDs returns the module linkage IDs in ascending order.
func (o NetworkOverlay) LinkageIDs() []string {
	ids := domain.NewIDSet()
	for id := range o.Linkages {
		ids.Add(id)
	}
	return ids.Sorted()
}

// labels returns every ID the overlay holds in the shared namespace.
func (o NetworkOverlay) labels() []string {
	out := []string{o.ID}
	out = append(out, o.ModuleIDs()...)
	return append(out, o.LinkageIDs()...)
}
