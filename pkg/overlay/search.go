package overlay

import (
	"strings"
	"unicode"

	"genomecore/pkg/domain"
)

// Query selects modules. Build one with ByTag or ByNameValue.
type Query struct {
	byTag bool
	tag   string
	name  string
	value string
}

// ByTag matches modules carrying tag, ignoring case and whitespace.
func ByTag(tag string) Query {
	return Query{byTag: true, tag: NormalizeTag(tag)}
}

// ByNameValue matches modules holding exactly this name/value pair.
func ByNameValue(name, value string) Query {
	return Query{name: name, value: value}
}

// NormalizeTag upper-cases a tag and strips all whitespace.
func NormalizeTag(tag string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return unicode.ToUpper(r)
	}, tag)
}

func (q Query) matches(m *NetModule) bool {
	if q.byTag {
		for _, t := range m.Tags {
			if NormalizeTag(t) == q.tag {
				return true
			}
		}
		return false
	}
	for _, nv := range m.NameValues {
		if nv.Name == q.name && nv.Value == q.value {
			return true
		}
	}
	return false
}

// FindMatchingNetworkModules returns, per overlay ID, the modules matching q.
// Overlays without matches are omitted.
func (s *Set) FindMatchingNetworkModules(q Query) map[string]domain.IDSet {
	out := make(map[string]domain.IDSet)
	for oid, o := range s.overlays {
		for mid, m := range o.Modules {
			if !q.matches(m) {
				continue
			}
			if out[oid] == nil {
				out[oid] = domain.NewIDSet()
			}
			out[oid].Add(mid)
		}
	}
	return out
}
