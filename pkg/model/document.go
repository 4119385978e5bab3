// Package model holds the document that ties a root genome, its instance
// tree and its dynamic proxies to one label namespace, and reads and writes
// that document as markup.
package model

import (
	"genomecore/pkg/domain"
	"genomecore/pkg/genome"
	"genomecore/pkg/overlay"
)

// FormatVersion is the markup version written by Write. Documents of earlier
// versions get their instance activities repaired on Read.
const FormatVersion = 2

// Document is one genome model: the root genome, every genome instance and
// every dynamic proxy, sharing a single labeller.
type Document struct {
	labels    *domain.Labeller
	root      *genome.DBGenome
	instances map[string]*genome.GenomeInstance
	proxies   map[string]*genome.DynamicInstanceProxy
	source    genome.ActivitySource
	fixups    []string
}

// New returns an empty document whose root genome has the given key and name.
func New(key, name string) *Document {
	labels := domain.NewLabeller()
	return newDocument(labels, genome.NewDBGenome(key, name, labels))
}

func newDocument(labels *domain.Labeller, root *genome.DBGenome) *Document {
	return &Document{
		labels:    labels,
		root:      root,
		instances: make(map[string]*genome.GenomeInstance),
		proxies:   make(map[string]*genome.DynamicInstanceProxy),
	}
}

// Labels returns the document-wide labeller.
func (d *Document) Labels() *domain.Labeller { return d.labels }

// Root returns the root genome.
func (d *Document) Root() *genome.DBGenome { return d.root }

// Fixups lists the instance items whose activity was repaired when the
// document was read from an older format.
func (d *Document) Fixups() []string { return append([]string(nil), d.fixups...) }

// Instances returns every genome instance with parents before children:
// root instances in key order, each followed by its subtree.
func (d *Document) Instances() []*genome.GenomeInstance {
	out := make([]*genome.GenomeInstance, 0, len(d.instances))
	var walk func(*genome.GenomeInstance)
	walk = func(inst *genome.GenomeInstance) {
		out = append(out, inst)
		for _, c := range inst.Children() {
			walk(c)
		}
	}
	for _, inst := range d.root.RootInstances() {
		walk(inst)
	}
	return out
}

// Instance looks up a genome instance by key.
func (d *Document) Instance(key string) (*genome.GenomeInstance, bool) {
	inst, ok := d.instances[key]
	return inst, ok
}

// AddRootInstance creates an instance directly below the root genome.
func (d *Document) AddRootInstance(key, name string) (*genome.GenomeInstance, error) {
	inst, err := d.root.NewRootInstance(key, name)
	if err != nil {
		return nil, err
	}
	d.instances[key] = inst
	return inst, nil
}

// AddChildInstance creates an instance below parentKey.
func (d *Document) AddChildInstance(parentKey, key, name string) (*genome.GenomeInstance, error) {
	parent, ok := d.instances[parentKey]
	if !ok {
		return nil, domain.Contract("model.AddChildInstance", domain.ErrNotFound, "instance %s", parentKey)
	}
	inst, err := parent.NewChildInstance(key, name)
	if err != nil {
		return nil, err
	}
	d.instances[key] = inst
	return inst, nil
}

// RemoveInstance detaches a leaf instance. Instances still used as the
// static parent of a proxy are kept.
func (d *Document) RemoveInstance(key string) error {
	const op = "model.RemoveInstance"
	inst, ok := d.instances[key]
	if !ok {
		return domain.Contract(op, domain.ErrNotFound, "instance %s", key)
	}
	for _, p := range d.proxies {
		if p.Static() == inst {
			return domain.Contract(op, domain.ErrInvalidArgument, "instance %s is the static parent of proxy %s", key, p.Key())
		}
	}
	if err := inst.Detach(); err != nil {
		return err
	}
	delete(d.instances, key)
	return nil
}

// Proxies returns the dynamic proxies in key order.
func (d *Document) Proxies() []*genome.DynamicInstanceProxy {
	ids := make(domain.IDSet, len(d.proxies))
	for key := range d.proxies {
		ids.Add(key)
	}
	out := make([]*genome.DynamicInstanceProxy, 0, len(ids))
	for _, key := range ids.Sorted() {
		out = append(out, d.proxies[key])
	}
	return out
}

// Proxy looks up a dynamic proxy by key.
func (d *Document) Proxy(key string) (*genome.DynamicInstanceProxy, bool) {
	p, ok := d.proxies[key]
	return p, ok
}

// AddProxy creates a dynamic proxy over the instance staticKey. The proxy
// draws activities from the document's activity source.
func (d *Document) AddProxy(key, name, staticKey string, minTime, maxTime int, single bool) (*genome.DynamicInstanceProxy, error) {
	static, ok := d.instances[staticKey]
	if !ok {
		return nil, domain.Contract("model.AddProxy", domain.ErrNotFound, "instance %s", staticKey)
	}
	p, err := genome.NewDynamicInstanceProxy(key, name, static, minTime, maxTime, single, d.source)
	if err != nil {
		return nil, err
	}
	d.proxies[key] = p
	return p, nil
}

// RemoveProxy detaches a proxy and releases its key.
func (d *Document) RemoveProxy(key string) error {
	p, ok := d.proxies[key]
	if !ok {
		return domain.Contract("model.RemoveProxy", domain.ErrNotFound, "proxy %s", key)
	}
	if err := p.Detach(); err != nil {
		return err
	}
	delete(d.proxies, key)
	return nil
}

// SetActivitySource attaches src to every proxy, present and future.
func (d *Document) SetActivitySource(src genome.ActivitySource) {
	d.source = src
	for _, p := range d.proxies {
		p.SetSource(src)
	}
}

// GenomeByKey resolves any genome of the document: the root, an instance, a
// proxy, or an instance a proxy generates ("proxy:t" or "proxy:ALL").
func (d *Document) GenomeByKey(key string) (genome.Genome, bool) {
	if key == d.root.Key() {
		return d.root, true
	}
	if inst, ok := d.instances[key]; ok {
		return inst, true
	}
	if p, ok := d.proxies[key]; ok {
		return p, true
	}
	if inst, ok := d.proxyInstance(key); ok {
		return inst, true
	}
	return nil, false
}

func (d *Document) proxyInstance(key string) (*genome.GenomeInstance, bool) {
	p, ok := d.proxies[domain.BaseID(key)]
	if !ok || !domain.IsInstanceID(key) {
		return nil, false
	}
	if p.IsSingle() {
		if key != p.InstanceKeys()[0] {
			return nil, false
		}
		inst, err := p.Instance(0)
		return inst, err == nil
	}
	t, err := domain.InstanceNumber(key)
	if err != nil {
		return nil, false
	}
	inst, err := p.Instance(t)
	return inst, err == nil
}

// OverlayOwner returns the overlay set of the root genome, an instance or a
// proxy. Proxy-generated instances own no overlays.
func (d *Document) OverlayOwner(key string) (*overlay.Set, bool) {
	if key == d.root.Key() {
		return d.root.Overlays(), true
	}
	if inst, ok := d.instances[key]; ok {
		return inst.Overlays(), true
	}
	if p, ok := d.proxies[key]; ok {
		return p.Overlays(), true
	}
	return nil, false
}
