package overlay

import (
	"fmt"

	"genomecore/pkg/domain"
)

// Undo reverts a change produced by this set.
func (s *Set) Undo(c Change) error {
	if err := s.checkOwner(c); err != nil {
		return err
	}
	switch chg := c.(type) {
	case NetworkOverlayChange:
		return s.applyOverlay(chg.Action, chg.After, chg.Before, true)
	case NetModuleChange:
		return s.applyModule(chg, true)
	case OwnerChange:
		s.firstView = chg.Before
		return nil
	}
	return fmt.Errorf("%w: unsupported overlay change %T", domain.ErrInvalidArgument, c)
}

// Redo reapplies a change produced by this set.
func (s *Set) Redo(c Change) error {
	if err := s.checkOwner(c); err != nil {
		return err
	}
	switch chg := c.(type) {
	case NetworkOverlayChange:
		return s.applyOverlay(chg.Action, chg.Before, chg.After, false)
	case NetModuleChange:
		return s.applyModule(chg, false)
	case OwnerChange:
		s.firstView = chg.After
		return nil
	}
	return fmt.Errorf("%w: unsupported overlay change %T", domain.ErrInvalidArgument, c)
}

// applyOverlay moves the overlay map from state from to state to. For undo,
// a create becomes a removal and a delete becomes a restore.
func (s *Set) applyOverlay(action domain.Action, from, to *NetworkOverlay, undo bool) error {
	remove := (action == domain.ActionCreate) == undo
	switch {
	case action == domain.ActionUpdate:
		if to == nil {
			return fmt.Errorf("%w: overlay update without snapshot", domain.ErrInvalidArgument)
		}
		cp := to.Clone()
		s.overlays[cp.ID] = &cp
	case remove:
		if from == nil {
			return fmt.Errorf("%w: overlay change without snapshot", domain.ErrInvalidArgument)
		}
		for _, label := range from.labels() {
			s.labels.Release(label)
		}
		delete(s.overlays, from.ID)
	default:
		if to == nil {
			return fmt.Errorf("%w: overlay change without snapshot", domain.ErrInvalidArgument)
		}
		cp := to.Clone()
		for _, label := range cp.labels() {
			s.labels.AddExisting(label)
		}
		s.overlays[cp.ID] = &cp
	}
	return nil
}

func (s *Set) applyModule(chg NetModuleChange, undo bool) error {
	o, ok := s.overlays[chg.OverlayID]
	if !ok {
		return fmt.Errorf("%w: overlay %s", domain.ErrNotFound, chg.OverlayID)
	}
	target := chg.After
	if undo {
		target = chg.Before
	}
	remove := chg.Action != domain.ActionUpdate && (chg.Action == domain.ActionCreate) == undo
	snapshot := chg.Before
	if chg.Action == domain.ActionCreate {
		snapshot = chg.After
	}
	switch chg.Entity {
	case domain.EntityNetModule:
		if remove {
			m, ok := snapshot.(NetModule)
			if !ok {
				return badPayload(chg)
			}
			delete(o.Modules, m.ID)
			s.labels.Release(m.ID)
			return nil
		}
		m, ok := target.(NetModule)
		if !ok {
			return badPayload(chg)
		}
		cp := m.Clone()
		s.labels.AddExisting(cp.ID)
		o.Modules[cp.ID] = &cp
	case domain.EntityModuleLinkage:
		if remove {
			l, ok := snapshot.(NetModuleLinkage)
			if !ok {
				return badPayload(chg)
			}
			delete(o.Linkages, l.ID)
			s.labels.Release(l.ID)
			return nil
		}
		l, ok := target.(NetModuleLinkage)
		if !ok {
			return badPayload(chg)
		}
		s.labels.AddExisting(l.ID)
		o.Linkages[l.ID] = &l
	case domain.EntityFirstView:
		fv, ok := target.(FirstView)
		if !ok {
			return badPayload(chg)
		}
		o.FirstView = fv.Clone()
	default:
		return badPayload(chg)
	}
	return nil
}

func badPayload(chg NetModuleChange) error {
	return fmt.Errorf("%w: %s change on overlay %s carries unexpected payload", domain.ErrInvalidArgument, chg.Entity, chg.OverlayID)
}
