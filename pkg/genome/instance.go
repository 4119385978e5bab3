package genome

import (
	"strconv"

	"genomecore/pkg/domain"
	"genomecore/pkg/overlay"
)

// NodeInstance is a node or gene as it appears in one genome instance. Its
// ID is the root node ID plus an instance number.
type NodeInstance struct {
	ID           string
	Activity     Activity
	NameOverride string
	Description  string
	URLs         []string
}

// BaseID returns the ID of the root node.
func (n NodeInstance) BaseID() string { return domain.BaseID(n.ID) }

// Clone returns a deep copy.
func (n NodeInstance) Clone() NodeInstance {
	out := n
	if n.URLs != nil {
		out.URLs = append([]string(nil), n.URLs...)
	}
	return out
}

// LinkageInstance is a link as it appears in one genome instance, connecting
// two node instances.
type LinkageInstance struct {
	ID             string
	SourceInstance string
	TargetInstance string
	Activity       Activity
	Description    string
	URLs           []string
}

// BaseID returns the ID of the root link.
func (l LinkageInstance) BaseID() string { return domain.BaseID(l.ID) }

// Clone returns a deep copy.
func (l LinkageInstance) Clone() LinkageInstance {
	out := l
	if l.URLs != nil {
		out.URLs = append([]string(nil), l.URLs...)
	}
	return out
}

// TimeBounds is the time span a root instance covers.
type TimeBounds struct {
	Min int
	Max int
}

// GenomeInstance is a contextual view over the root genome. Root instances
// hang directly off the root genome; child instances hold a subset of their
// parent's items with activities the parent permits.
type GenomeInstance struct {
	key         string
	name        string
	description string
	root        *DBGenome
	parent      *GenomeInstance
	children    map[string]*GenomeInstance
	times       *TimeBounds
	nodes       map[string]*NodeInstance
	links       map[string]*LinkageInstance
	groups      map[string]*Group
	overlays    *overlay.Set
	proxies     map[string]*DynamicInstanceProxy
}

func newInstance(key, name string, root *DBGenome, parent *GenomeInstance) *GenomeInstance {
	inst := &GenomeInstance{
		key:      key,
		name:     name,
		root:     root,
		parent:   parent,
		children: make(map[string]*GenomeInstance),
		nodes:    make(map[string]*NodeInstance),
		links:    make(map[string]*LinkageInstance),
		groups:   make(map[string]*Group),
		proxies:  make(map[string]*DynamicInstanceProxy),
	}
	inst.overlays = overlay.NewSet(key, domain.OwnerInstance, root.labels, inst)
	return inst
}

// NewRootInstance creates a top-level instance and registers its key.
func (g *DBGenome) NewRootInstance(key, name string) (*GenomeInstance, error) {
	const op = "genome.NewRootInstance"
	if !domain.ValidBaseID(key) {
		return nil, domain.Contract(op, domain.ErrInvalidArgument, "instance key %q", key)
	}
	if !g.labels.AddExisting(key) {
		return nil, domain.Contract(op, domain.ErrInvalidArgument, "key %s already in use", key)
	}
	inst := newInstance(key, name, g, nil)
	g.instances[key] = inst
	return inst, nil
}

// NewChildInstance creates an instance below inst and registers its key.
func (inst *GenomeInstance) NewChildInstance(key, name string) (*GenomeInstance, error) {
	const op = "genome.NewChildInstance"
	if !domain.ValidBaseID(key) {
		return nil, domain.Contract(op, domain.ErrInvalidArgument, "instance key %q", key)
	}
	if !inst.root.labels.AddExisting(key) {
		return nil, domain.Contract(op, domain.ErrInvalidArgument, "key %s already in use", key)
	}
	child := newInstance(key, name, inst.root, inst)
	inst.children[key] = child
	return child, nil
}

// Detach removes a leaf instance from the tree and releases its key, its
// root-level group IDs and its overlay IDs. An instance that is the static
// parent of a proxy cannot be detached until the proxy is. Instances owned by
// a model.Document must be removed with Document.RemoveInstance, which also
// drops them from the document's index.
func (inst *GenomeInstance) Detach() error {
	if len(inst.children) > 0 {
		return domain.Contract("genome.Detach", domain.ErrInvalidArgument, "instance %s has child instances", inst.key)
	}
	if keys := sortedKeys(inst.proxies); len(keys) > 0 {
		return domain.Contract("genome.Detach", domain.ErrInvalidArgument, "instance %s is the static parent of proxy %s", inst.key, keys[0])
	}
	for _, id := range inst.overlays.IDs() {
		if _, err := inst.overlays.RemoveOverlay(id); err != nil {
			return err
		}
	}
	if inst.parent == nil {
		delete(inst.root.instances, inst.key)
		for id := range inst.groups {
			if GroupGeneration(id) == 0 {
				inst.root.labels.Release(id)
			}
		}
	} else {
		delete(inst.parent.children, inst.key)
	}
	inst.root.labels.Release(inst.key)
	return nil
}

// Proxies returns the proxies built on this instance in key order.
func (inst *GenomeInstance) Proxies() []*DynamicInstanceProxy {
	out := make([]*DynamicInstanceProxy, 0, len(inst.proxies))
	for _, key := range sortedKeys(inst.proxies) {
		out = append(out, inst.proxies[key])
	}
	return out
}

// proxyOverlayUsing returns the key of the first proxy over inst whose
// overlays satisfy inUse.
func (inst *GenomeInstance) proxyOverlayUsing(inUse func(*overlay.Set) bool) (string, bool) {
	for _, key := range sortedKeys(inst.proxies) {
		if inUse(inst.proxies[key].overlays) {
			return key, true
		}
	}
	return "", false
}

// invalidateProxies drops the instances cached by proxies over inst.
func (inst *GenomeInstance) invalidateProxies() {
	for _, p := range inst.proxies {
		p.Invalidate()
	}
}

// Key returns the instance key.
func (inst *GenomeInstance) Key() string { return inst.key }

// Name returns the display name.
func (inst *GenomeInstance) Name() string { return inst.name }

// SetName renames the instance.
func (inst *GenomeInstance) SetName(name string) { inst.name = name }

// Description returns the free-text description.
func (inst *GenomeInstance) Description() string { return inst.description }

// SetDescription replaces the description.
func (inst *GenomeInstance) SetDescription(d string) { inst.description = d }

// Root returns the root genome.
func (inst *GenomeInstance) Root() *DBGenome { return inst.root }

// Parent returns the parent instance, or nil for a root instance.
func (inst *GenomeInstance) Parent() *GenomeInstance { return inst.parent }

// IsRootInstance reports whether inst hangs directly off the root genome.
func (inst *GenomeInstance) IsRootInstance() bool { return inst.parent == nil }

// RootInstance returns the topmost ancestor.
func (inst *GenomeInstance) RootInstance() *GenomeInstance {
	cur := inst
	for cur.parent != nil {
		cur = cur.parent
	}
	return cur
}

// Generation returns the distance from the root instance.
func (inst *GenomeInstance) Generation() int {
	gen := 0
	for cur := inst.parent; cur != nil; cur = cur.parent {
		gen++
	}
	return gen
}

// Children returns the direct child instances in key order.
func (inst *GenomeInstance) Children() []*GenomeInstance {
	out := make([]*GenomeInstance, 0, len(inst.children))
	for _, key := range sortedKeys(inst.children) {
		out = append(out, inst.children[key])
	}
	return out
}

// Times returns the time bounds of a root instance.
func (inst *GenomeInstance) Times() (TimeBounds, bool) {
	if inst.times == nil {
		return TimeBounds{}, false
	}
	return *inst.times, true
}

// SetTimes sets the time bounds. Only root instances carry times.
func (inst *GenomeInstance) SetTimes(minTime, maxTime int) error {
	const op = "genome.SetTimes"
	if inst.parent != nil {
		return domain.Contract(op, domain.ErrInvalidArgument, "instance %s is not a root instance", inst.key)
	}
	if minTime > maxTime {
		return domain.Contract(op, domain.ErrInvalidArgument, "min time %d after max time %d", minTime, maxTime)
	}
	inst.times = &TimeBounds{Min: minTime, Max: maxTime}
	return nil
}

// ClearTimes removes the time bounds.
func (inst *GenomeInstance) ClearTimes() { inst.times = nil }

// Overlays returns the instance's overlay map.
func (inst *GenomeInstance) Overlays() *overlay.Set { return inst.overlays }

// NodeIDs returns node instance IDs in ascending order.
func (inst *GenomeInstance) NodeIDs() []string { return sortedKeys(inst.nodes) }

// LinkIDs returns link instance IDs in ascending order.
func (inst *GenomeInstance) LinkIDs() []string { return sortedKeys(inst.links) }

// GroupIDs returns group IDs in ascending order.
func (inst *GenomeInstance) GroupIDs() []string { return sortedKeys(inst.groups) }

// HasNode reports whether a node instance exists.
func (inst *GenomeInstance) HasNode(id string) bool {
	_, ok := inst.nodes[id]
	return ok
}

// HasGroup reports whether the instance holds the group.
func (inst *GenomeInstance) HasGroup(id string) bool {
	_, ok := inst.groups[id]
	return ok
}

// NodeName returns the override name of a node instance, falling back to
// the root node's name.
func (inst *GenomeInstance) NodeName(id string) string {
	ni, ok := inst.nodes[id]
	if !ok {
		return ""
	}
	if ni.NameOverride != "" {
		return ni.NameOverride
	}
	return inst.root.NodeName(ni.BaseID())
}

// NodeInstance returns a copy of a node instance.
func (inst *GenomeInstance) NodeInstance(id string) (NodeInstance, bool) {
	ni, ok := inst.nodes[id]
	if !ok {
		return NodeInstance{}, false
	}
	return ni.Clone(), true
}

// LinkageInstance returns a copy of a link instance.
func (inst *GenomeInstance) LinkageInstance(id string) (LinkageInstance, bool) {
	li, ok := inst.links[id]
	if !ok {
		return LinkageInstance{}, false
	}
	return li.Clone(), true
}

// NextInstanceNumber returns an unused instance number for baseID across
// the root instance's items.
func (inst *GenomeInstance) NextInstanceNumber(baseID string) int {
	top := inst.RootInstance()
	next := 0
	scan := func(id string) {
		if domain.BaseID(id) != baseID {
			return
		}
		if n, err := domain.InstanceNumber(id); err == nil && n >= next {
			next = n + 1
		}
	}
	for id := range top.nodes {
		scan(id)
	}
	for id := range top.links {
		scan(id)
	}
	return next
}

func (inst *GenomeInstance) holdsBase(baseID string, links bool) bool {
	if links {
		for _, li := range inst.links {
			if li.BaseID() == baseID {
				return true
			}
		}
		return false
	}
	for _, ni := range inst.nodes {
		if ni.BaseID() == baseID {
			return true
		}
	}
	return false
}

func (inst *GenomeInstance) heldByChild(id string, links bool) bool {
	for _, c := range inst.children {
		if links {
			if _, ok := c.links[id]; ok {
				return true
			}
		} else if _, ok := c.nodes[id]; ok {
			return true
		}
	}
	return false
}

// instanceChange builds the record of an applied mutation. Proxies over inst
// drop their cached instances since those were built from the old state.
func (inst *GenomeInstance) instanceChange(entity domain.EntityType, action domain.Action, before, after any) GenomeChange {
	inst.invalidateProxies()
	return GenomeChange{GenomeKey: inst.key, Entity: entity, Action: action, Before: before, After: after}
}

func instanceIDError(op, id string) error {
	return domain.Contract(op, domain.ErrInvalidArgument, "instance id %s must be base%sN", strconv.Quote(id), domain.IDSeparator)
}
