package model

import (
	"fmt"

	"genomecore/pkg/domain"
	"genomecore/pkg/genome"
	"genomecore/pkg/overlay"
)

// Undo reverts a change record produced by any owner in the document. The
// owner is found through the key the record carries.
func (d *Document) Undo(change any) error {
	return d.apply(change, true)
}

// Redo reapplies a change record produced by any owner in the document.
func (d *Document) Redo(change any) error {
	return d.apply(change, false)
}

// UndoAll reverts changes in reverse order, the way a multi-record
// operation such as RemoveModule must be unwound.
func (d *Document) UndoAll(changes []overlay.Change) error {
	for i := len(changes) - 1; i >= 0; i-- {
		if err := d.Undo(changes[i]); err != nil {
			return err
		}
	}
	return nil
}

// RedoAll reapplies changes in their original order.
func (d *Document) RedoAll(changes []overlay.Change) error {
	for _, c := range changes {
		if err := d.Redo(c); err != nil {
			return err
		}
	}
	return nil
}

func (d *Document) apply(change any, undo bool) error {
	switch c := change.(type) {
	case genome.GenomeChange:
		if c.GenomeKey == d.root.Key() {
			if undo {
				return d.root.ChangeUndo(c)
			}
			return d.root.ChangeRedo(c)
		}
		inst, err := d.ownerInstance(c.GenomeKey)
		if err != nil {
			return err
		}
		if undo {
			return inst.ChangeUndo(c)
		}
		return inst.ChangeRedo(c)
	case genome.GroupChange:
		inst, err := d.ownerInstance(c.GenomeKey)
		if err != nil {
			return err
		}
		if undo {
			return inst.GroupChangeUndo(c)
		}
		return inst.GroupChangeRedo(c)
	case overlay.Change:
		set, ok := d.OverlayOwner(c.Owner())
		if !ok {
			return domain.Contract("model.Document.apply", domain.ErrNotFound, "overlay owner %s", c.Owner())
		}
		if undo {
			return set.Undo(c)
		}
		return set.Redo(c)
	}
	return fmt.Errorf("%w: unsupported change record %T", domain.ErrInvalidArgument, change)
}

func (d *Document) ownerInstance(key string) (*genome.GenomeInstance, error) {
	inst, ok := d.instances[key]
	if !ok {
		return nil, domain.Contract("model.Document.apply", domain.ErrNotFound, "instance %s", key)
	}
	return inst, nil
}
