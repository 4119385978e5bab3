package genome

import (
	"strconv"

	"genomecore/pkg/domain"
	"genomecore/pkg/overlay"
)

// Slice is the time span one proxy-generated instance summarizes.
type Slice struct {
	Min int
	Max int
}

// ActivitySource supplies the per-time activity of a proxy's items. A false
// result leaves the item out of the generated instance.
type ActivitySource interface {
	NodeActivity(proxyKey, nodeID string, s Slice) (Activity, bool)
	LinkActivity(proxyKey, linkID string, s Slice) (Activity, bool)
}

// AllTimesSuffix names the single instance of a proxy that summarizes its
// whole time range.
const AllTimesSuffix = "ALL"

// DynamicInstanceProxy generates genome instances below a static parent on
// demand, one per time point or a single one for the whole range. It stores
// no items of its own.
type DynamicInstanceProxy struct {
	key      string
	name     string
	static   *GenomeInstance
	minTime  int
	maxTime  int
	single   bool
	source   ActivitySource
	cache    map[string]*GenomeInstance
	overlays *overlay.Set
}

// NewDynamicInstanceProxy registers a proxy over static.
func NewDynamicInstanceProxy(key, name string, static *GenomeInstance, minTime, maxTime int, single bool, source ActivitySource) (*DynamicInstanceProxy, error) {
	const op = "genome.NewDynamicInstanceProxy"
	if static == nil {
		return nil, domain.Contract(op, domain.ErrInvalidArgument, "proxy %s needs a static instance", key)
	}
	if !domain.ValidBaseID(key) {
		return nil, domain.Contract(op, domain.ErrInvalidArgument, "proxy key %q", key)
	}
	if minTime > maxTime {
		return nil, domain.Contract(op, domain.ErrInvalidArgument, "min time %d after max time %d", minTime, maxTime)
	}
	labels := static.root.labels
	if !labels.AddExisting(key) {
		return nil, domain.Contract(op, domain.ErrInvalidArgument, "key %s already in use", key)
	}
	p := &DynamicInstanceProxy{
		key:     key,
		name:    name,
		static:  static,
		minTime: minTime,
		maxTime: maxTime,
		single:  single,
		source:  source,
		cache:   make(map[string]*GenomeInstance),
	}
	p.overlays = overlay.NewSet(key, domain.OwnerProxy, labels, p)
	static.proxies[key] = p
	return p, nil
}

// Detach releases the proxy's key and overlay IDs and unregisters it from
// its static instance.
func (p *DynamicInstanceProxy) Detach() error {
	for _, id := range p.overlays.IDs() {
		if _, err := p.overlays.RemoveOverlay(id); err != nil {
			return err
		}
	}
	delete(p.static.proxies, p.key)
	p.static.root.labels.Release(p.key)
	p.Invalidate()
	return nil
}

// Key returns the proxy key.
func (p *DynamicInstanceProxy) Key() string { return p.key }

// Name returns the display name.
func (p *DynamicInstanceProxy) Name() string { return p.name }

// Static returns the parent instance every generated instance hangs below.
func (p *DynamicInstanceProxy) Static() *GenomeInstance { return p.static }

// TimeRange returns the covered times.
func (p *DynamicInstanceProxy) TimeRange() (int, int) { return p.minTime, p.maxTime }

// IsSingle reports whether one instance summarizes the whole range.
func (p *DynamicInstanceProxy) IsSingle() bool { return p.single }

// SetSource swaps the activity source and drops cached instances.
func (p *DynamicInstanceProxy) SetSource(src ActivitySource) {
	p.source = src
	p.Invalidate()
}

// Invalidate drops every cached instance.
func (p *DynamicInstanceProxy) Invalidate() {
	p.cache = make(map[string]*GenomeInstance)
}

// InstanceKeys lists the keys of every instance the proxy can generate.
func (p *DynamicInstanceProxy) InstanceKeys() []string {
	if p.single {
		return []string{p.key + domain.IDSeparator + AllTimesSuffix}
	}
	out := make([]string, 0, p.maxTime-p.minTime+1)
	for t := p.minTime; t <= p.maxTime; t++ {
		out = append(out, domain.CombinedID(p.key, t))
	}
	return out
}

// Instance returns the generated instance for time t. Single proxies ignore
// t. Instances are built on first use and cached until Invalidate.
func (p *DynamicInstanceProxy) Instance(t int) (*GenomeInstance, error) {
	slice := Slice{Min: p.minTime, Max: p.maxTime}
	key := p.key + domain.IDSeparator + AllTimesSuffix
	if !p.single {
		if t < p.minTime || t > p.maxTime {
			return nil, domain.Contract("genome.DynamicInstanceProxy.Instance", domain.ErrInvalidArgument, "time %d outside %d-%d", t, p.minTime, p.maxTime)
		}
		slice = Slice{Min: t, Max: t}
		key = domain.CombinedID(p.key, t)
	}
	if inst, ok := p.cache[key]; ok {
		return inst, nil
	}
	inst := p.build(key, slice)
	p.cache[key] = inst
	return inst, nil
}

func (p *DynamicInstanceProxy) build(key string, s Slice) *GenomeInstance {
	name := p.name + " (" + strconv.Itoa(s.Min)
	if s.Max != s.Min {
		name += "-" + strconv.Itoa(s.Max)
	}
	name += ")"
	inst := newInstance(key, name, p.static.root, p.static)
	for id, parent := range p.static.nodes {
		act := parent.Activity
		if p.source != nil {
			reported, ok := p.source.NodeActivity(p.key, id, s)
			if !ok {
				continue
			}
			act = ClampChildActivity(parent.Activity, reported)
		}
		ni := parent.Clone()
		ni.Activity = act
		inst.nodes[id] = &ni
	}
	for id, parent := range p.static.links {
		if inst.nodes[parent.SourceInstance] == nil || inst.nodes[parent.TargetInstance] == nil {
			continue
		}
		act := parent.Activity
		if p.source != nil {
			reported, ok := p.source.LinkActivity(p.key, id, s)
			if !ok {
				continue
			}
			act = ClampChildActivity(parent.Activity, reported)
		}
		li := parent.Clone()
		li.Activity = act
		inst.links[id] = &li
	}
	gen := p.static.Generation() + 1
	for id, g := range p.static.groups {
		if g.ParentID != "" {
			continue
		}
		child := &Group{ID: InheritedGroupID(GroupBaseID(id), gen), ActiveSubset: g.ActiveSubset}
		inst.groups[child.ID] = child
	}
	return inst
}

// Overlays returns the proxy's overlay map.
func (p *DynamicInstanceProxy) Overlays() *overlay.Set { return p.overlays }

// NodeIDs returns the static instance's node instance IDs.
func (p *DynamicInstanceProxy) NodeIDs() []string { return p.static.NodeIDs() }

// LinkIDs returns the static instance's link instance IDs.
func (p *DynamicInstanceProxy) LinkIDs() []string { return p.static.LinkIDs() }

// HasNode reports whether the static instance holds the node.
func (p *DynamicInstanceProxy) HasNode(id string) bool { return p.static.HasNode(id) }

// HasGroup reports whether id is the inherited form of a static group one
// generation below it.
func (p *DynamicInstanceProxy) HasGroup(id string) bool {
	gen := p.static.Generation()
	if GroupGeneration(id) != gen+1 {
		return false
	}
	g, ok := p.static.groups[InheritedGroupID(GroupBaseID(id), gen)]
	return ok && g.ParentID == ""
}

// NodeName returns the static instance's name for the node.
func (p *DynamicInstanceProxy) NodeName(id string) string { return p.static.NodeName(id) }
