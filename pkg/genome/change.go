package genome

import (
	"fmt"

	"genomecore/pkg/domain"
)

// GenomeChange records one mutation of a root genome or genome instance.
// Before and After hold value snapshots whose type follows Entity:
//
//	EntityGenome           Properties
//	EntityNode, EntityGene Node
//	EntityLinkage          Linkage
//	EntityNote             Note
//	EntityNodeInstance     NodeInstance
//	EntityLinkageInstance  LinkageInstance
//
// Create records carry only After and delete records only Before.
type GenomeChange struct {
	GenomeKey string
	Entity    domain.EntityType
	Action    domain.Action
	Before    any
	After     any
}

// GroupChange records one mutation of an instance group.
type GroupChange struct {
	GenomeKey string
	Action    domain.Action
	Before    *Group
	After     *Group
}

// ChangeUndo reverts a change produced by this genome.
func (g *DBGenome) ChangeUndo(c GenomeChange) error {
	if c.GenomeKey != g.key {
		return fmt.Errorf("%w: change for %s applied to %s", domain.ErrInvalidArgument, c.GenomeKey, g.key)
	}
	switch c.Action {
	case domain.ActionCreate:
		return g.dropSnapshot(c.Entity, c.After)
	case domain.ActionDelete:
		return g.restoreSnapshot(c.Entity, c.Before, true)
	case domain.ActionUpdate:
		return g.restoreSnapshot(c.Entity, c.Before, false)
	}
	return fmt.Errorf("%w: unknown action %q", domain.ErrInvalidArgument, c.Action)
}

// ChangeRedo reapplies a change produced by this genome.
func (g *DBGenome) ChangeRedo(c GenomeChange) error {
	if c.GenomeKey != g.key {
		return fmt.Errorf("%w: change for %s applied to %s", domain.ErrInvalidArgument, c.GenomeKey, g.key)
	}
	switch c.Action {
	case domain.ActionCreate:
		return g.restoreSnapshot(c.Entity, c.After, true)
	case domain.ActionDelete:
		return g.dropSnapshot(c.Entity, c.Before)
	case domain.ActionUpdate:
		return g.restoreSnapshot(c.Entity, c.After, false)
	}
	return fmt.Errorf("%w: unknown action %q", domain.ErrInvalidArgument, c.Action)
}

func (g *DBGenome) dropSnapshot(entity domain.EntityType, snap any) error {
	var id string
	switch v := snap.(type) {
	case Node:
		id = v.ID
		g.dropNode(id)
	case Linkage:
		id = v.ID
		delete(g.links, id)
	case Note:
		id = v.ID
		delete(g.notes, id)
	default:
		return snapshotError(entity, snap)
	}
	g.labels.Release(id)
	return nil
}

// restoreSnapshot writes snap back into its collection. Restored items
// reclaim their label when register is set.
func (g *DBGenome) restoreSnapshot(entity domain.EntityType, snap any, register bool) error {
	var id string
	switch v := snap.(type) {
	case Properties:
		g.props = v
		return nil
	case Node:
		n := v.Clone()
		id = n.ID
		g.dropNode(id)
		g.putNode(&n)
	case Linkage:
		l := v.Clone()
		id = l.ID
		g.links[id] = &l
	case Note:
		id = v.ID
		g.notes[id] = &v
	default:
		return snapshotError(entity, snap)
	}
	if register {
		g.labels.AddExisting(id)
	}
	return nil
}

func snapshotError(entity domain.EntityType, snap any) error {
	return fmt.Errorf("%w: %s change carries %T", domain.ErrInvalidArgument, entity, snap)
}
