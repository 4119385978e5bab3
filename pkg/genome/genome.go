package genome

import (
	"genomecore/pkg/domain"
	"genomecore/pkg/overlay"
)

// Genome is the read contract shared by the root genome, genome instances
// and dynamic proxies.
type Genome interface {
	Key() string
	Name() string
	NodeIDs() []string
	LinkIDs() []string
	HasNode(id string) bool
	HasGroup(id string) bool
	NodeName(id string) string
	Overlays() *overlay.Set
}

var (
	_ Genome = (*DBGenome)(nil)
	_ Genome = (*GenomeInstance)(nil)
	_ Genome = (*DynamicInstanceProxy)(nil)
)

// DBGenome is the root genome: the canonical nodes, genes, links and notes
// of a model. Node and gene IDs share one namespace with every other ID of
// the document through the labeller.
type DBGenome struct {
	key      string
	props    Properties
	labels   *domain.Labeller
	nodes    map[string]*Node
	genes    map[string]*Node
	links    map[string]*Linkage
	notes    map[string]*Note
	overlays *overlay.Set

	instances map[string]*GenomeInstance
}

// NewDBGenome returns an empty root genome drawing IDs from labels.
func NewDBGenome(key, name string, labels *domain.Labeller) *DBGenome {
	g := &DBGenome{
		key:       key,
		props:     Properties{Name: name},
		labels:    labels,
		nodes:     make(map[string]*Node),
		genes:     make(map[string]*Node),
		links:     make(map[string]*Linkage),
		notes:     make(map[string]*Note),
		instances: make(map[string]*GenomeInstance),
	}
	g.overlays = overlay.NewSet(key, domain.OwnerRoot, labels, g)
	return g
}

// Key returns the genome key.
func (g *DBGenome) Key() string { return g.key }

// Name returns the genome name.
func (g *DBGenome) Name() string { return g.props.Name }

// Properties returns the descriptive fields.
func (g *DBGenome) Properties() Properties { return g.props }

// Labels returns the shared ID namespace.
func (g *DBGenome) Labels() *domain.Labeller { return g.labels }

// Overlays returns the root overlay map.
func (g *DBGenome) Overlays() *overlay.Set { return g.overlays }

// Node returns a copy of a non-gene node.
func (g *DBGenome) Node(id string) (Node, bool) {
	n, ok := g.nodes[id]
	if !ok {
		return Node{}, false
	}
	return n.Clone(), true
}

// Gene returns a copy of a gene.
func (g *DBGenome) Gene(id string) (Node, bool) {
	n, ok := g.genes[id]
	if !ok {
		return Node{}, false
	}
	return n.Clone(), true
}

// AnyNode returns a copy of a node or gene.
func (g *DBGenome) AnyNode(id string) (Node, bool) {
	if n, ok := g.Node(id); ok {
		return n, true
	}
	return g.Gene(id)
}

func (g *DBGenome) lookup(id string) *Node {
	if n, ok := g.nodes[id]; ok {
		return n
	}
	return g.genes[id]
}

// Linkage returns a copy of a link.
func (g *DBGenome) Linkage(id string) (Linkage, bool) {
	l, ok := g.links[id]
	if !ok {
		return Linkage{}, false
	}
	return l.Clone(), true
}

// Note returns a copy of a note.
func (g *DBGenome) Note(id string) (Note, bool) {
	n, ok := g.notes[id]
	if !ok {
		return Note{}, false
	}
	return *n, true
}

// HasNode reports whether id names a node or gene.
func (g *DBGenome) HasNode(id string) bool { return g.lookup(id) != nil }

// HasGroup is always false; groups live on instances.
func (g *DBGenome) HasGroup(string) bool { return false }

// NodeName returns the name of a node or gene, or "".
func (g *DBGenome) NodeName(id string) string {
	if n := g.lookup(id); n != nil {
		return n.Name
	}
	return ""
}

// NodeIDs returns node and gene IDs in ascending order.
func (g *DBGenome) NodeIDs() []string {
	ids := domain.NewIDSet()
	for id := range g.nodes {
		ids.Add(id)
	}
	for id := range g.genes {
		ids.Add(id)
	}
	return ids.Sorted()
}

// GeneIDs returns gene IDs in ascending order.
func (g *DBGenome) GeneIDs() []string { return sortedKeys(g.genes) }

// NonGeneIDs returns non-gene node IDs in ascending order.
func (g *DBGenome) NonGeneIDs() []string { return sortedKeys(g.nodes) }

// LinkIDs returns link IDs in ascending order.
func (g *DBGenome) LinkIDs() []string { return sortedKeys(g.links) }

// NoteIDs returns note IDs in ascending order.
func (g *DBGenome) NoteIDs() []string { return sortedKeys(g.notes) }

// LinksInto returns the IDs of links targeting node id.
func (g *DBGenome) LinksInto(id string) []string {
	ids := domain.NewIDSet()
	for lid, l := range g.links {
		if l.Target == id {
			ids.Add(lid)
		}
	}
	return ids.Sorted()
}

// LinksOutOf returns the IDs of links leaving node id.
func (g *DBGenome) LinksOutOf(id string) []string {
	ids := domain.NewIDSet()
	for lid, l := range g.links {
		if l.Source == id {
			ids.Add(lid)
		}
	}
	return ids.Sorted()
}

// RootInstances returns the top-level instances in key order.
func (g *DBGenome) RootInstances() []*GenomeInstance {
	out := make([]*GenomeInstance, 0, len(g.instances))
	for _, key := range sortedKeys(g.instances) {
		out = append(out, g.instances[key])
	}
	return out
}

// inUse reports whether any root instance holds an instance of the item.
// Child instances only hold items their parent holds, so the root level
// suffices.
func (g *DBGenome) inUse(baseID string, links bool) bool {
	for _, inst := range g.instances {
		if inst.holdsBase(baseID, links) {
			return true
		}
	}
	return false
}

func sortedKeys[V any](m map[string]V) []string {
	ids := make(domain.IDSet, len(m))
	for id := range m {
		ids.Add(id)
	}
	return ids.Sorted()
}
