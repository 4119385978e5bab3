package genome

import (
	"fmt"

	"genomecore/pkg/domain"
)

// ActivityState classifies an instance item's activity.
type ActivityState string

// Activity states. Vestigial applies to nodes only, use-source to links only.
const (
	StateActive    ActivityState = "active"
	StateInactive  ActivityState = "inactive"
	StateVariable  ActivityState = "variable"
	StateVestigial ActivityState = "vestigial"
	StateUseSource ActivityState = "useSource"
)

// ParseActivityState maps a markup tag to a state.
func ParseActivityState(tag string) (ActivityState, bool) {
	switch s := ActivityState(tag); s {
	case StateActive, StateInactive, StateVariable, StateVestigial, StateUseSource:
		return s, true
	}
	return "", false
}

// Activity is a state plus, for StateVariable, a level in [0, 1].
type Activity struct {
	State ActivityState
	Level float64
}

// Active returns the active activity.
func Active() Activity { return Activity{State: StateActive} }

// Inactive returns the inactive activity.
func Inactive() Activity { return Activity{State: StateInactive} }

// Variable returns a variable activity at level.
func Variable(level float64) Activity { return Activity{State: StateVariable, Level: level} }

// Vestigial returns the vestigial node activity.
func Vestigial() Activity { return Activity{State: StateVestigial} }

// UseSource returns the link activity that mirrors the source node.
func UseSource() Activity { return Activity{State: StateUseSource} }

func (a Activity) String() string {
	if a.State == StateVariable {
		return fmt.Sprintf("%s(%g)", a.State, a.Level)
	}
	return string(a.State)
}

// Validate checks a against the item kind it is applied to.
func (a Activity) Validate(forLink bool) error {
	switch a.State {
	case StateActive, StateInactive:
	case StateVariable:
		if a.Level < 0 || a.Level > 1 {
			return fmt.Errorf("%w: variable level %g outside [0,1]", domain.ErrInvalidArgument, a.Level)
		}
	case StateVestigial:
		if forLink {
			return fmt.Errorf("%w: links cannot be vestigial", domain.ErrInvalidArgument)
		}
	case StateUseSource:
		if !forLink {
			return fmt.Errorf("%w: only links can use their source activity", domain.ErrInvalidArgument)
		}
	default:
		return fmt.Errorf("%w: unknown activity %q", domain.ErrInvalidArgument, a.State)
	}
	return nil
}

// ActivityAllowedInChild reports whether a child instance item may carry
// child when its parent instance carries parent. An active parent permits
// anything, an inactive parent forces inactive, a variable parent permits
// inactive or a variable level no higher than its own, and vestigial or
// use-source parents permit only themselves or inactive.
func ActivityAllowedInChild(parent, child Activity) bool {
	if child.State == StateInactive {
		return true
	}
	switch parent.State {
	case StateActive:
		return true
	case StateVariable:
		return child.State == StateVariable && child.Level <= parent.Level
	case StateVestigial, StateUseSource:
		return child.State == parent.State
	}
	return false
}

// ClampChildActivity returns the closest activity to child that parent
// permits.
func ClampChildActivity(parent, child Activity) Activity {
	if ActivityAllowedInChild(parent, child) {
		return child
	}
	switch parent.State {
	case StateVariable, StateVestigial, StateUseSource:
		if child.State == StateActive || child.State == StateVariable {
			return parent
		}
	}
	return Inactive()
}

// ActivityBounds constrains the activity an instance item may take: the
// parent's activity from above and every activity already present in
// descendant instances from below.
type ActivityBounds struct {
	// Parent is nil for root instances.
	Parent *Activity
	// Descendants holds the distinct states found below the instance.
	Descendants map[ActivityState]bool
	// MaxDescendantLevel is the highest variable level found below.
	MaxDescendantLevel float64
}

// Permits reports whether a satisfies both bounds.
func (b ActivityBounds) Permits(a Activity) bool {
	if b.Parent != nil && !ActivityAllowedInChild(*b.Parent, a) {
		return false
	}
	for state := range b.Descendants {
		child := Activity{State: state}
		if state == StateVariable {
			child.Level = b.MaxDescendantLevel
		}
		if !ActivityAllowedInChild(a, child) {
			return false
		}
	}
	return true
}

func (b *ActivityBounds) note(a Activity) {
	if b.Descendants == nil {
		b.Descendants = make(map[ActivityState]bool)
	}
	b.Descendants[a.State] = true
	if a.State == StateVariable && a.Level > b.MaxDescendantLevel {
		b.MaxDescendantLevel = a.Level
	}
}
