package genome

import "genomecore/pkg/domain"

// NodeType is the closed set of node shapes. NodeGene is the only type that
// carries gene data.
type NodeType string

// Node types.
const (
	NodeBare      NodeType = "bare"
	NodeBox       NodeType = "box"
	NodeBubble    NodeType = "bubble"
	NodeIntercell NodeType = "intercell"
	NodeSlash     NodeType = "slash"
	NodeDiamond   NodeType = "diamond"
	NodeGene      NodeType = "gene"
)

type padSpec struct {
	def, inc, max int
}

var padTable = map[NodeType]padSpec{
	NodeBare:      {def: 4, inc: 0, max: 4},
	NodeBox:       {def: 4, inc: 2, max: 40},
	NodeBubble:    {def: 4, inc: 0, max: 4},
	NodeIntercell: {def: 2, inc: 0, max: 2},
	NodeSlash:     {def: 2, inc: 0, max: 2},
	NodeDiamond:   {def: 4, inc: 4, max: 40},
	NodeGene:      {def: 5, inc: 1, max: 60},
}

var nodeTypeOrder = []NodeType{NodeBare, NodeBox, NodeBubble, NodeIntercell, NodeSlash, NodeDiamond, NodeGene}

// NodeTypes lists every node type in display order.
func NodeTypes() []NodeType {
	out := make([]NodeType, len(nodeTypeOrder))
	copy(out, nodeTypeOrder)
	return out
}

// ParseNodeType maps a markup tag to a node type.
func ParseNodeType(tag string) (NodeType, bool) {
	t := NodeType(tag)
	_, ok := padTable[t]
	return t, ok
}

// Valid reports whether t is a known node type.
func (t NodeType) Valid() bool {
	_, ok := padTable[t]
	return ok
}

// IsGene reports whether t is the gene type.
func (t NodeType) IsGene() bool { return t == NodeGene }

// DefaultPadCount returns the pad count a new node of type t starts with.
func (t NodeType) DefaultPadCount() int { return padTable[t].def }

// PadIncrement returns the step by which the pad count may grow. Zero means
// the pad count is fixed.
func (t NodeType) PadIncrement() int { return padTable[t].inc }

// MaxPadCount returns the largest pad count t supports.
func (t NodeType) MaxPadCount() int { return padTable[t].max }

// PadCountAllowed reports whether n is reachable from the default by whole
// increments without exceeding the maximum.
func (t NodeType) PadCountAllowed(n int) bool {
	pads, ok := padTable[t]
	if !ok || n < pads.def || n > pads.max {
		return false
	}
	if pads.inc == 0 {
		return n == pads.def
	}
	return (n-pads.def)%pads.inc == 0
}

// DisplayName resolves the user-facing name of t, falling back to the tag.
func (t NodeType) DisplayName(res domain.Resources) string {
	if res != nil {
		if s := res.String("nodeType." + string(t)); s != "" {
			return s
		}
	}
	return string(t)
}

// MapPadCount converts a pad count from a node being retyped into a count
// valid for newType: fixed-pad types snap to their default, counts that fit
// in the default use the default, and anything larger rounds up by whole
// increments, clamped to the largest reachable count.
func MapPadCount(old int, newType NodeType) int {
	pads := padTable[newType]
	if pads.inc == 0 || old <= pads.def {
		return pads.def
	}
	steps := (old - pads.def + pads.inc - 1) / pads.inc
	n := pads.def + steps*pads.inc
	if n > pads.max {
		n = pads.def + ((pads.max-pads.def)/pads.inc)*pads.inc
	}
	return n
}
