package genome

import (
	"genomecore/pkg/domain"
)

// LinkOption adjusts AddLinkage validation.
type LinkOption func(*linkOptions)

type linkOptions struct {
	permitMergeable bool
}

// PermitMergeable allows a link that duplicates the source, target, sign and
// evidence of an existing link.
func PermitMergeable() LinkOption {
	return func(o *linkOptions) { o.permitMergeable = true }
}

// SetProperties replaces the genome's name, long name and description.
func (g *DBGenome) SetProperties(p Properties) GenomeChange {
	before := g.props
	g.props = p
	return GenomeChange{GenomeKey: g.key, Entity: domain.EntityGenome, Action: domain.ActionUpdate, Before: before, After: p}
}

// AddNode inserts a non-gene node and registers its ID.
func (g *DBGenome) AddNode(n Node) (GenomeChange, error) {
	const op = "genome.AddNode"
	if n.IsGene() {
		return GenomeChange{}, domain.Contract(op, domain.ErrInvalidArgument, "%s is a gene; use AddGene", n.ID)
	}
	return g.addNode(op, n)
}

// AddGene inserts a gene and registers its ID.
func (g *DBGenome) AddGene(n Node) (GenomeChange, error) {
	const op = "genome.AddGene"
	if !n.IsGene() {
		return GenomeChange{}, domain.Contract(op, domain.ErrInvalidArgument, "%s has type %s, not gene", n.ID, n.Type)
	}
	return g.addNode(op, n)
}

func (g *DBGenome) addNode(op string, n Node) (GenomeChange, error) {
	if err := n.Validate(); err != nil {
		return GenomeChange{}, domain.Contract(op, domain.ErrInvalidArgument, "%v", err)
	}
	if g.lookup(n.ID) != nil {
		return GenomeChange{}, domain.Contract(op, domain.ErrInvalidArgument, "node %s already exists", n.ID)
	}
	if !g.labels.AddExisting(n.ID) {
		return GenomeChange{}, domain.Contract(op, domain.ErrInvalidArgument, "label %s already held by another item", n.ID)
	}
	n = n.Clone()
	g.putNode(&n)
	return GenomeChange{GenomeKey: g.key, Entity: nodeEntity(n), Action: domain.ActionCreate, After: n.Clone()}, nil
}

// AddLinkage inserts a link between existing nodes. A link with the same
// source, target, sign and evidence as an existing one is rejected unless
// PermitMergeable is passed.
func (g *DBGenome) AddLinkage(l Linkage, opts ...LinkOption) (GenomeChange, error) {
	const op = "genome.AddLinkage"
	var cfg linkOptions
	for _, opt := range opts {
		opt(&cfg)
	}
	if !domain.ValidBaseID(l.ID) {
		return GenomeChange{}, domain.Contract(op, domain.ErrInvalidArgument, "link id %q", l.ID)
	}
	if _, dup := g.links[l.ID]; dup {
		return GenomeChange{}, domain.Contract(op, domain.ErrInvalidArgument, "link %s already exists", l.ID)
	}
	if err := g.validateLink(op, l); err != nil {
		return GenomeChange{}, err
	}
	if !cfg.permitMergeable {
		key := l.mergeKey()
		for _, other := range g.links {
			if other.mergeKey() == key {
				return GenomeChange{}, domain.Contract(op, domain.ErrInvalidArgument, "link %s duplicates %s", l.ID, other.ID)
			}
		}
	}
	if !g.labels.AddExisting(l.ID) {
		return GenomeChange{}, domain.Contract(op, domain.ErrInvalidArgument, "label %s already held by another item", l.ID)
	}
	l = l.Clone()
	g.links[l.ID] = &l
	return GenomeChange{GenomeKey: g.key, Entity: domain.EntityLinkage, Action: domain.ActionCreate, After: l.Clone()}, nil
}

func (g *DBGenome) validateLink(op string, l Linkage) error {
	src := g.lookup(l.Source)
	if src == nil {
		return domain.Contract(op, domain.ErrInvalidArgument, "link %s source %s not in genome", l.ID, l.Source)
	}
	trg := g.lookup(l.Target)
	if trg == nil {
		return domain.Contract(op, domain.ErrInvalidArgument, "link %s target %s not in genome", l.ID, l.Target)
	}
	if !l.Sign.Valid() {
		return domain.Contract(op, domain.ErrInvalidArgument, "link %s sign %d", l.ID, l.Sign)
	}
	if l.Evidence < 0 || l.Evidence > MaxLinkEvidence {
		return domain.Contract(op, domain.ErrInvalidArgument, "link %s evidence %d out of range", l.ID, l.Evidence)
	}
	if l.LaunchPad < 0 || l.LaunchPad >= src.PadCount {
		return domain.Contract(op, domain.ErrInvalidArgument, "link %s launch pad %d outside source pads", l.ID, l.LaunchPad)
	}
	if l.LandingPad < 0 || l.LandingPad >= trg.PadCount {
		return domain.Contract(op, domain.ErrInvalidArgument, "link %s landing pad %d outside target pads", l.ID, l.LandingPad)
	}
	return nil
}

// AddNote inserts a note and registers its ID.
func (g *DBGenome) AddNote(n Note) (GenomeChange, error) {
	const op = "genome.AddNote"
	if !domain.ValidBaseID(n.ID) {
		return GenomeChange{}, domain.Contract(op, domain.ErrInvalidArgument, "note id %q", n.ID)
	}
	if _, dup := g.notes[n.ID]; dup {
		return GenomeChange{}, domain.Contract(op, domain.ErrInvalidArgument, "note %s already exists", n.ID)
	}
	if !g.labels.AddExisting(n.ID) {
		return GenomeChange{}, domain.Contract(op, domain.ErrInvalidArgument, "label %s already held by another item", n.ID)
	}
	g.notes[n.ID] = &n
	return GenomeChange{GenomeKey: g.key, Entity: domain.EntityNote, Action: domain.ActionCreate, After: n}, nil
}

// RemoveNode deletes a non-gene node. Nodes with attached links, overlay
// memberships or instances cannot be removed.
func (g *DBGenome) RemoveNode(id string) (GenomeChange, error) {
	n, ok := g.nodes[id]
	if !ok {
		return GenomeChange{}, domain.Contract("genome.RemoveNode", domain.ErrNotFound, "node %s", id)
	}
	return g.removeNode("genome.RemoveNode", n)
}

// RemoveGene deletes a gene under the same restrictions as RemoveNode.
func (g *DBGenome) RemoveGene(id string) (GenomeChange, error) {
	n, ok := g.genes[id]
	if !ok {
		return GenomeChange{}, domain.Contract("genome.RemoveGene", domain.ErrNotFound, "gene %s", id)
	}
	return g.removeNode("genome.RemoveGene", n)
}

func (g *DBGenome) removeNode(op string, n *Node) (GenomeChange, error) {
	if len(g.LinksInto(n.ID)) > 0 || len(g.LinksOutOf(n.ID)) > 0 {
		return GenomeChange{}, domain.Contract(op, domain.ErrInvalidArgument, "%s still has links", n.ID)
	}
	if g.overlays.NodeInUse(n.ID) {
		return GenomeChange{}, domain.Contract(op, domain.ErrInvalidArgument, "%s is a member of an overlay module", n.ID)
	}
	if g.inUse(n.ID, false) {
		return GenomeChange{}, domain.Contract(op, domain.ErrInvalidArgument, "%s has instances", n.ID)
	}
	before := n.Clone()
	g.dropNode(n.ID)
	g.labels.Release(n.ID)
	return GenomeChange{GenomeKey: g.key, Entity: nodeEntity(before), Action: domain.ActionDelete, Before: before}, nil
}

// RemoveLinkage deletes a link that no instance references.
func (g *DBGenome) RemoveLinkage(id string) (GenomeChange, error) {
	const op = "genome.RemoveLinkage"
	l, ok := g.links[id]
	if !ok {
		return GenomeChange{}, domain.Contract(op, domain.ErrNotFound, "link %s", id)
	}
	if g.inUse(id, true) {
		return GenomeChange{}, domain.Contract(op, domain.ErrInvalidArgument, "link %s has instances", id)
	}
	before := l.Clone()
	delete(g.links, id)
	g.labels.Release(id)
	return GenomeChange{GenomeKey: g.key, Entity: domain.EntityLinkage, Action: domain.ActionDelete, Before: before}, nil
}

// RemoveNote deletes a note.
func (g *DBGenome) RemoveNote(id string) (GenomeChange, error) {
	n, ok := g.notes[id]
	if !ok {
		return GenomeChange{}, domain.Contract("genome.RemoveNote", domain.ErrNotFound, "note %s", id)
	}
	before := *n
	delete(g.notes, id)
	g.labels.Release(id)
	return GenomeChange{GenomeKey: g.key, Entity: domain.EntityNote, Action: domain.ActionDelete, Before: before}, nil
}

// ChangeNodeName renames a node or gene.
func (g *DBGenome) ChangeNodeName(id, name string) (GenomeChange, error) {
	n := g.lookup(id)
	if n == nil {
		return GenomeChange{}, domain.Contract("genome.ChangeNodeName", domain.ErrNotFound, "node %s", id)
	}
	before := n.Clone()
	n.Name = name
	return g.nodeUpdate(before, n.Clone()), nil
}

// ChangeNodeType retypes a node, moving it between the node and gene
// collections when the category changes. The ID is kept and the pad count is
// remapped for the new type. Links whose pads no longer fit are rejected.
func (g *DBGenome) ChangeNodeType(id string, newType NodeType) (GenomeChange, error) {
	const op = "genome.ChangeNodeType"
	n := g.lookup(id)
	if n == nil {
		return GenomeChange{}, domain.Contract(op, domain.ErrNotFound, "node %s", id)
	}
	if !newType.Valid() {
		return GenomeChange{}, domain.Contract(op, domain.ErrInvalidArgument, "unknown type %q", newType)
	}
	after := convertNode(*n, newType)
	if err := g.checkPadsFit(op, id, after.PadCount); err != nil {
		return GenomeChange{}, err
	}
	before := n.Clone()
	g.dropNode(id)
	g.putNode(&after)
	return g.nodeUpdate(before, after.Clone()), nil
}

// ChangeNodePadCount resizes a node within its type's pad rules.
func (g *DBGenome) ChangeNodePadCount(id string, pads int) (GenomeChange, error) {
	const op = "genome.ChangeNodePadCount"
	n := g.lookup(id)
	if n == nil {
		return GenomeChange{}, domain.Contract(op, domain.ErrNotFound, "node %s", id)
	}
	if !n.Type.PadCountAllowed(pads) {
		return GenomeChange{}, domain.Contract(op, domain.ErrInvalidArgument, "pad count %d not allowed for %s", pads, n.Type)
	}
	if err := g.checkPadsFit(op, id, pads); err != nil {
		return GenomeChange{}, err
	}
	if n.Gene != nil {
		if err := ValidateRegions(n.Gene.Regions, pads); err != nil {
			return GenomeChange{}, domain.Contract(op, domain.ErrInvalidArgument, "%v", err)
		}
	}
	before := n.Clone()
	n.PadCount = pads
	return g.nodeUpdate(before, n.Clone()), nil
}

func (g *DBGenome) checkPadsFit(op, id string, pads int) error {
	for _, l := range g.links {
		if (l.Source == id && l.LaunchPad >= pads) || (l.Target == id && l.LandingPad >= pads) {
			return domain.Contract(op, domain.ErrInvalidArgument, "link %s uses a pad beyond %d", l.ID, pads-1)
		}
	}
	return nil
}

// ReplaceNode overwrites the descriptive fields of a node: description, URLs
// and internal logic. ID, type, name and pads are changed through their own
// operations and must match.
func (g *DBGenome) ReplaceNode(n Node) (GenomeChange, error) {
	const op = "genome.ReplaceNode"
	cur := g.lookup(n.ID)
	if cur == nil {
		return GenomeChange{}, domain.Contract(op, domain.ErrNotFound, "node %s", n.ID)
	}
	if cur.Type != n.Type || cur.PadCount != n.PadCount {
		return GenomeChange{}, domain.Contract(op, domain.ErrInvalidArgument, "node %s type or pads differ; use ChangeNodeType or ChangeNodePadCount", n.ID)
	}
	if err := n.Validate(); err != nil {
		return GenomeChange{}, domain.Contract(op, domain.ErrInvalidArgument, "%v", err)
	}
	before := cur.Clone()
	after := n.Clone()
	if after.Gene != nil && before.Gene != nil {
		after.Gene.Regions = before.Gene.Regions
	}
	g.putNode(&after)
	return g.nodeUpdate(before, after.Clone()), nil
}

// SetGeneRegions replaces the regions of a gene. Regions are sorted by pad
// and must not overlap.
func (g *DBGenome) SetGeneRegions(id string, regions []GeneRegion) (GenomeChange, error) {
	const op = "genome.SetGeneRegions"
	n, ok := g.genes[id]
	if !ok {
		return GenomeChange{}, domain.Contract(op, domain.ErrNotFound, "gene %s", id)
	}
	sorted := append([]GeneRegion(nil), regions...)
	SortRegions(sorted)
	if err := ValidateRegions(sorted, n.PadCount); err != nil {
		return GenomeChange{}, domain.Contract(op, domain.ErrInvalidArgument, "%v", err)
	}
	before := n.Clone()
	if len(sorted) == 0 {
		sorted = nil
	}
	n.Gene.Regions = sorted
	return g.nodeUpdate(before, n.Clone()), nil
}

// SetGeneEvidence changes the evidence level of a gene.
func (g *DBGenome) SetGeneEvidence(id string, evidence int) (GenomeChange, error) {
	const op = "genome.SetGeneEvidence"
	n, ok := g.genes[id]
	if !ok {
		return GenomeChange{}, domain.Contract(op, domain.ErrNotFound, "gene %s", id)
	}
	if evidence < 0 || evidence > MaxGeneEvidence {
		return GenomeChange{}, domain.Contract(op, domain.ErrInvalidArgument, "evidence %d out of range", evidence)
	}
	before := n.Clone()
	n.Gene.Evidence = evidence
	return g.nodeUpdate(before, n.Clone()), nil
}

// ReplaceLinkage overwrites a link. Endpoints may change but must exist.
func (g *DBGenome) ReplaceLinkage(l Linkage, opts ...LinkOption) (GenomeChange, error) {
	const op = "genome.ReplaceLinkage"
	var cfg linkOptions
	for _, opt := range opts {
		opt(&cfg)
	}
	cur, ok := g.links[l.ID]
	if !ok {
		return GenomeChange{}, domain.Contract(op, domain.ErrNotFound, "link %s", l.ID)
	}
	if err := g.validateLink(op, l); err != nil {
		return GenomeChange{}, err
	}
	if (cur.Source != l.Source || cur.Target != l.Target) && g.inUse(l.ID, true) {
		return GenomeChange{}, domain.Contract(op, domain.ErrInvalidArgument, "link %s has instances; endpoints are fixed", l.ID)
	}
	if !cfg.permitMergeable {
		key := l.mergeKey()
		for _, other := range g.links {
			if other.ID != l.ID && other.mergeKey() == key {
				return GenomeChange{}, domain.Contract(op, domain.ErrInvalidArgument, "link %s duplicates %s", l.ID, other.ID)
			}
		}
	}
	before := cur.Clone()
	l = l.Clone()
	g.links[l.ID] = &l
	return GenomeChange{GenomeKey: g.key, Entity: domain.EntityLinkage, Action: domain.ActionUpdate, Before: before, After: l.Clone()}, nil
}

// ChangeNote overwrites the name and text of a note.
func (g *DBGenome) ChangeNote(n Note) (GenomeChange, error) {
	cur, ok := g.notes[n.ID]
	if !ok {
		return GenomeChange{}, domain.Contract("genome.ChangeNote", domain.ErrNotFound, "note %s", n.ID)
	}
	before := *cur
	*cur = n
	return GenomeChange{GenomeKey: g.key, Entity: domain.EntityNote, Action: domain.ActionUpdate, Before: before, After: n}, nil
}

func (g *DBGenome) nodeUpdate(before, after Node) GenomeChange {
	return GenomeChange{GenomeKey: g.key, Entity: nodeEntity(after), Action: domain.ActionUpdate, Before: before, After: after}
}

// putNode stores n in the collection matching its type.
func (g *DBGenome) putNode(n *Node) {
	if n.IsGene() {
		delete(g.nodes, n.ID)
		g.genes[n.ID] = n
		return
	}
	delete(g.genes, n.ID)
	g.nodes[n.ID] = n
}

func (g *DBGenome) dropNode(id string) {
	delete(g.nodes, id)
	delete(g.genes, id)
}

func nodeEntity(n Node) domain.EntityType {
	if n.IsGene() {
		return domain.EntityGene
	}
	return domain.EntityNode
}
