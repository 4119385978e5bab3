package genome

import (
	"fmt"

	"genomecore/pkg/domain"
)

// SBMLProblemKind classifies a reason the genome cannot be exported as SBML.
type SBMLProblemKind string

// SBML export blockers.
const (
	SBMLXorLogic      SBMLProblemKind = "xor_logic"
	SBMLUnsignedLink  SBMLProblemKind = "unsigned_link"
	SBMLDuplicatePath SBMLProblemKind = "duplicate_path"
)

// SBMLProblem names one blocker and the item causing it.
type SBMLProblem struct {
	Kind   SBMLProblemKind
	ID     string
	Detail string
}

type pathKey struct {
	source, target string
}

// SBMLProblems lists every reason the genome cannot be exported: non-gene
// nodes with inputs may not use XOR logic, links into non-gene nodes must be
// signed, and no two links may connect the same source to the same target.
func (g *DBGenome) SBMLProblems() []SBMLProblem {
	var out []SBMLProblem
	for _, id := range g.NonGeneIDs() {
		n := g.nodes[id]
		if n.Logic != nil && n.Logic.Function == LogicXor && len(g.LinksInto(id)) > 0 {
			out = append(out, SBMLProblem{Kind: SBMLXorLogic, ID: id, Detail: fmt.Sprintf("node %q uses XOR logic", n.Name)})
		}
	}
	seen := make(map[pathKey]string, len(g.links))
	for _, id := range g.LinkIDs() {
		l := g.links[id]
		if _, isNode := g.nodes[l.Target]; isNode && l.Sign == domain.SignNone {
			out = append(out, SBMLProblem{Kind: SBMLUnsignedLink, ID: id, Detail: fmt.Sprintf("link into %s has no sign", l.Target)})
		}
		key := pathKey{source: l.Source, target: l.Target}
		if first, dup := seen[key]; dup {
			out = append(out, SBMLProblem{Kind: SBMLDuplicatePath, ID: id, Detail: fmt.Sprintf("duplicates path of link %s", first)})
			continue
		}
		seen[key] = id
	}
	return out
}

// CanWriteSBML reports whether the genome satisfies every SBML export
// precondition.
func (g *DBGenome) CanWriteSBML() bool {
	return len(g.SBMLProblems()) == 0
}

// MergeableLinks returns the other links interchangeable with linkID: same
// source, target, sign and evidence. When the target is a gene with regions,
// candidates must land in the same region, or both on holder pads.
func (g *DBGenome) MergeableLinks(linkID string) (domain.IDSet, error) {
	l, ok := g.links[linkID]
	if !ok {
		return nil, domain.Contract("genome.MergeableLinks", domain.ErrNotFound, "link %s", linkID)
	}
	key := l.mergeKey()
	trg := g.lookup(l.Target)
	regional := trg != nil && trg.Gene != nil && len(trg.Gene.Regions) > 0
	region := -1
	if regional {
		region = trg.RegionIndex(l.LandingPad)
	}
	out := domain.NewIDSet()
	for id, other := range g.links {
		if id == linkID || other.mergeKey() != key {
			continue
		}
		if regional && trg.RegionIndex(other.LandingPad) != region {
			continue
		}
		out.Add(id)
	}
	return out, nil
}
