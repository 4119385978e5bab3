// Package domain defines the shared vocabulary of genomecore: entity kinds,
// change actions, identifiers, the label allocator, error kinds and the
// persistence contracts used by higher layers.
package domain

// EntityType identifies the kind of item a change record carries.
type EntityType string

// Supported entity type identifiers used in change records and reports.
const (
	// EntityModel identifies a stored model document.
	EntityModel EntityType = "model"
	// EntityGenome identifies genome-level properties (name, long name, description).
	EntityGenome EntityType = "genome"
	// EntityNode identifies a non-gene root node.
	EntityNode EntityType = "node"
	// EntityGene identifies a root gene.
	EntityGene EntityType = "gene"
	// EntityLinkage identifies a root linkage.
	EntityLinkage EntityType = "linkage"
	// EntityNote identifies a free-text note.
	EntityNote EntityType = "note"
	// EntityNodeInstance identifies a node or gene instance inside a genome instance.
	EntityNodeInstance EntityType = "node_instance"
	// EntityLinkageInstance identifies a linkage instance inside a genome instance.
	EntityLinkageInstance EntityType = "linkage_instance"
	// EntityGroup identifies a region/group of a genome instance.
	EntityGroup EntityType = "group"
	// EntityInstance identifies a genome instance.
	EntityInstance EntityType = "instance"
	// EntityProxy identifies a dynamic instance proxy.
	EntityProxy EntityType = "proxy"
	// EntityOverlay identifies a network overlay.
	EntityOverlay EntityType = "overlay"
	// EntityNetModule identifies a module of a network overlay.
	EntityNetModule EntityType = "net_module"
	// EntityModuleLinkage identifies a linkage between two net modules.
	EntityModuleLinkage EntityType = "module_linkage"
	// EntityFirstView identifies the first-view module sets of an overlay.
	EntityFirstView EntityType = "first_view"
	// EntityOverlayOwner identifies owner-level overlay state (the first-view overlay).
	EntityOverlayOwner EntityType = "overlay_owner"
)

// Action indicates the type of modification a change record describes.
type Action string

// Change actions. Undo and redo dispatch on these tags instead of inspecting
// which snapshots are populated.
const (
	// ActionCreate indicates an entity was added; only After is set.
	ActionCreate Action = "create"
	// ActionUpdate indicates an entity was modified; Before and After are set.
	ActionUpdate Action = "update"
	// ActionDelete indicates an entity was removed; only Before is set.
	ActionDelete Action = "delete"
)

// OwnerMode classifies the holder of a network overlay map.
type OwnerMode string

// Overlay owner modes.
const (
	OwnerRoot     OwnerMode = "root"
	OwnerInstance OwnerMode = "instance"
	OwnerProxy    OwnerMode = "proxy"
)

// Sign is the regulatory sign of a linkage or module linkage.
type Sign int

// Linkage signs.
const (
	SignNegative Sign = -1
	SignNone     Sign = 0
	SignPositive Sign = 1
)

var signTags = map[Sign]string{
	SignNegative: "negative",
	SignNone:     "none",
	SignPositive: "positive",
}

// String returns the markup tag of the sign.
func (s Sign) String() string {
	if tag, ok := signTags[s]; ok {
		return tag
	}
	return "unknown"
}

// Valid reports whether s is one of the three defined signs.
func (s Sign) Valid() bool {
	_, ok := signTags[s]
	return ok
}

// ParseSign maps a markup tag back to a Sign.
func ParseSign(tag string) (Sign, bool) {
	for sign, t := range signTags {
		if t == tag {
			return sign, true
		}
	}
	return SignNone, false
}

// Severity captures rule outcomes.
type Severity string

// Rule evaluation severities determine whether a model may be saved.
const (
	// SeverityBlock prevents the model from being saved.
	SeverityBlock Severity = "block"
	// SeverityWarn is reported but does not prevent saving.
	SeverityWarn Severity = "warn"
	SeverityLog  Severity = "log"
)

// Violation reports a failed rule evaluation.
type Violation struct {
	Rule     string
	Severity Severity
	Message  string
	Entity   EntityType
	EntityID string
	OwnerKey string
}

// Result aggregates violations from the rules engine.
type Result struct {
	Violations []Violation
}

// Merge appends violations from another result.
func (r *Result) Merge(other Result) {
	if len(other.Violations) == 0 {
		return
	}
	r.Violations = append(r.Violations, other.Violations...)
}

// HasBlocking returns true if the result contains blocking violations.
func (r Result) HasBlocking() bool {
	for _, v := range r.Violations {
		if v.Severity == SeverityBlock {
			return true
		}
	}
	return false
}

// RuleViolationError is returned when blocking violations are present.
type RuleViolationError struct {
	Result Result
}

func (e RuleViolationError) Error() string {
	return "model blocked by rules"
}

// Resources resolves user-facing display strings for enumerated values.
// Implementations return "" for unknown keys.
type Resources interface {
	String(key string) string
}
