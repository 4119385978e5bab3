// Package genome implements the root genome, genome instances with their
// activity and group inheritance rules, and dynamic instance proxies.
//
// All structures are plain mutable graphs without internal locking. Every
// mutator validates before it mutates and returns a change record that the
// owner can undo or redo.
package genome

import (
	"fmt"
	"sort"

	"genomecore/pkg/domain"
)

// Evidence bounds.
const (
	MaxGeneEvidence = 1
	MaxLinkEvidence = 10
)

// LogicFunction is the boolean function a node applies to its inputs during
// simulation.
type LogicFunction string

// Internal logic functions.
const (
	LogicAnd      LogicFunction = "and"
	LogicOr       LogicFunction = "or"
	LogicXor      LogicFunction = "xor"
	LogicConstant LogicFunction = "const"
)

// Valid reports whether f is a known function.
func (f LogicFunction) Valid() bool {
	switch f {
	case LogicAnd, LogicOr, LogicXor, LogicConstant:
		return true
	}
	return false
}

// SimParam is a named simulation parameter.
type SimParam struct {
	Name  string
	Value float64
}

// InternalLogic is the simulation sub-network of a node.
type InternalLogic struct {
	Function LogicFunction
	Params   []SimParam
}

func (l *InternalLogic) clone() *InternalLogic {
	if l == nil {
		return nil
	}
	out := &InternalLogic{Function: l.Function}
	if l.Params != nil {
		out.Params = append([]SimParam(nil), l.Params...)
	}
	return out
}

// GeneRegion assigns the pads StartPad..EndPad (inclusive) of a gene to a
// named cis-regulatory region.
type GeneRegion struct {
	Name     string
	StartPad int
	EndPad   int
	Evidence int
}

// Contains reports whether pad falls inside the region.
func (r GeneRegion) Contains(pad int) bool {
	return pad >= r.StartPad && pad <= r.EndPad
}

// GeneData holds the fields only genes carry.
type GeneData struct {
	Evidence int
	Regions  []GeneRegion
}

func (g *GeneData) clone() *GeneData {
	if g == nil {
		return nil
	}
	out := &GeneData{Evidence: g.Evidence}
	if g.Regions != nil {
		out.Regions = append([]GeneRegion(nil), g.Regions...)
	}
	return out
}

// Node is a root network node. Genes are nodes of type NodeGene with a
// non-nil Gene payload; every other type has a nil payload.
type Node struct {
	ID          string
	Type        NodeType
	Name        string
	PadCount    int
	Description string
	URLs        []string
	Logic       *InternalLogic
	Gene        *GeneData
}

// NewNode builds a node of type t with the type's default pad count.
func NewNode(id string, t NodeType, name string) Node {
	n := Node{ID: id, Type: t, Name: name, PadCount: t.DefaultPadCount()}
	if t.IsGene() {
		n.Gene = &GeneData{}
	}
	return n
}

// IsGene reports whether n is a gene.
func (n Node) IsGene() bool { return n.Type.IsGene() }

// Clone returns a deep copy.
func (n Node) Clone() Node {
	out := n
	if n.URLs != nil {
		out.URLs = append([]string(nil), n.URLs...)
	}
	out.Logic = n.Logic.clone()
	out.Gene = n.Gene.clone()
	return out
}

// RegionIndex returns the index of the region holding pad, or -1 when the
// pad is a holder pad or n is not a gene.
func (n Node) RegionIndex(pad int) int {
	if n.Gene == nil {
		return -1
	}
	for i, r := range n.Gene.Regions {
		if r.Contains(pad) {
			return i
		}
	}
	return -1
}

// Validate checks the node's internal consistency.
func (n Node) Validate() error {
	if !domain.ValidBaseID(n.ID) {
		return fmt.Errorf("%w: node id %q", domain.ErrInvalidArgument, n.ID)
	}
	if !n.Type.Valid() {
		return fmt.Errorf("%w: node %s has unknown type %q", domain.ErrInvalidArgument, n.ID, n.Type)
	}
	if !n.Type.PadCountAllowed(n.PadCount) {
		return fmt.Errorf("%w: node %s pad count %d not allowed for %s", domain.ErrInvalidArgument, n.ID, n.PadCount, n.Type)
	}
	if n.Logic != nil && !n.Logic.Function.Valid() {
		return fmt.Errorf("%w: node %s has unknown logic function %q", domain.ErrInvalidArgument, n.ID, n.Logic.Function)
	}
	if n.IsGene() != (n.Gene != nil) {
		return fmt.Errorf("%w: node %s gene payload does not match type %s", domain.ErrInvalidArgument, n.ID, n.Type)
	}
	if n.Gene == nil {
		return nil
	}
	if n.Gene.Evidence < 0 || n.Gene.Evidence > MaxGeneEvidence {
		return fmt.Errorf("%w: gene %s evidence %d out of range", domain.ErrInvalidArgument, n.ID, n.Gene.Evidence)
	}
	return ValidateRegions(n.Gene.Regions, n.PadCount)
}

// ValidateRegions checks that regions are ordered, in range and disjoint.
func ValidateRegions(regions []GeneRegion, padCount int) error {
	for i, r := range regions {
		if r.StartPad < 0 || r.EndPad < r.StartPad || r.EndPad >= padCount {
			return fmt.Errorf("%w: region %q spans pads %d-%d outside 0-%d", domain.ErrInvalidArgument, r.Name, r.StartPad, r.EndPad, padCount-1)
		}
		if r.Evidence < 0 || r.Evidence > MaxGeneEvidence {
			return fmt.Errorf("%w: region %q evidence %d out of range", domain.ErrInvalidArgument, r.Name, r.Evidence)
		}
		if i > 0 && r.StartPad <= regions[i-1].EndPad {
			return fmt.Errorf("%w: region %q overlaps or precedes region %q", domain.ErrInvalidArgument, r.Name, regions[i-1].Name)
		}
	}
	return nil
}

// SortRegions orders regions by their first pad.
func SortRegions(regions []GeneRegion) {
	sort.SliceStable(regions, func(i, j int) bool { return regions[i].StartPad < regions[j].StartPad })
}

// convertNode rebuilds n as newType, carrying the common fields across and
// remapping the pad count.
func convertNode(n Node, newType NodeType) Node {
	out := n.Clone()
	out.Type = newType
	out.PadCount = MapPadCount(n.PadCount, newType)
	switch {
	case newType.IsGene() && out.Gene == nil:
		out.Gene = &GeneData{}
	case !newType.IsGene():
		out.Gene = nil
	}
	return out
}

// Linkage is a directed, signed edge between two root nodes.
type Linkage struct {
	ID          string
	Source      string
	Target      string
	Sign        domain.Sign
	LaunchPad   int
	LandingPad  int
	Evidence    int
	Description string
	URLs        []string
}

// Clone returns a deep copy.
func (l Linkage) Clone() Linkage {
	out := l
	if l.URLs != nil {
		out.URLs = append([]string(nil), l.URLs...)
	}
	return out
}

func (l Linkage) mergeKey() linkTuple {
	return linkTuple{source: l.Source, target: l.Target, sign: l.Sign, evidence: l.Evidence}
}

type linkTuple struct {
	source, target string
	sign           domain.Sign
	evidence       int
}

// Note is a free-text annotation.
type Note struct {
	ID   string
	Name string
	Text string
}

// Properties are the genome-level descriptive fields.
type Properties struct {
	Name        string
	LongName    string
	Description string
}
