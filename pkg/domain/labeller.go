package domain

import "strconv"

// Labeller is the ID namespace shared by every genome, instance, proxy and
// overlay of one model document. It is not safe for concurrent use; callers
// serialize mutations through the document owner.
type Labeller struct {
	used map[string]struct{}
	next int
}

// NewLabeller returns an empty namespace.
func NewLabeller() *Labeller {
	return &Labeller{used: make(map[string]struct{})}
}

// Next returns the label Allocate would mint, without reserving it.
func (l *Labeller) Next() string {
	n := l.next
	for {
		label := strconv.Itoa(n)
		if _, taken := l.used[label]; !taken {
			return label
		}
		n++
	}
}

// Allocate mints and reserves a fresh label.
func (l *Labeller) Allocate() string {
	for {
		label := strconv.Itoa(l.next)
		l.next++
		if _, taken := l.used[label]; !taken {
			l.used[label] = struct{}{}
			return label
		}
	}
}

// AddExisting reserves a label chosen elsewhere. It returns false when the
// label is already held.
func (l *Labeller) AddExisting(label string) bool {
	if _, taken := l.used[label]; taken {
		return false
	}
	l.used[label] = struct{}{}
	return true
}

// Release returns a label to the namespace.
func (l *Labeller) Release(label string) bool {
	if _, taken := l.used[label]; !taken {
		return false
	}
	delete(l.used, label)
	return true
}

// Contains reports whether label is reserved.
func (l *Labeller) Contains(label string) bool {
	_, taken := l.used[label]
	return taken
}

// Len returns the number of reserved labels.
func (l *Labeller) Len() int { return len(l.used) }
