package overlay

import "genomecore/pkg/domain"

// Change is a record produced by a Set mutation. Set.Undo and Set.Redo
// accept any of the concrete record types below.
type Change interface {
	Owner() string
	isChange()
}

// NetworkOverlayChange records the creation, removal or property update of
// a whole overlay.
type NetworkOverlayChange struct {
	OwnerKey string
	Action   domain.Action
	Before   *NetworkOverlay
	After    *NetworkOverlay
}

// Owner returns the key of the owning genome, instance or proxy.
func (c NetworkOverlayChange) Owner() string { return c.OwnerKey }
func (NetworkOverlayChange) isChange()       {}

// NetModuleChange records a change inside one overlay. Entity selects the
// payload type: NetModule for EntityNetModule, NetModuleLinkage for
// EntityModuleLinkage and FirstView for EntityFirstView.
type NetModuleChange struct {
	OwnerKey  string
	OverlayID string
	Entity    domain.EntityType
	Action    domain.Action
	Before    any
	After     any
}

// Owner returns the key of the owning genome, instance or proxy.
func (c NetModuleChange) Owner() string { return c.OwnerKey }
func (NetModuleChange) isChange()       {}

// OwnerChange records a change of the owner's first-view overlay.
type OwnerChange struct {
	OwnerKey string
	Mode     domain.OwnerMode
	Before   string
	After    string
}

// Owner returns the key of the owning genome, instance or proxy.
func (c OwnerChange) Owner() string { return c.OwnerKey }
func (OwnerChange) isChange()       {}
