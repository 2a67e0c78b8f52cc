package graph

import (
	"strings"

	"github.com/OFFIS-RIT/idisk/backend/pkg/common"
)

// RemoveStats counts what RemoveSource deleted.
type RemoveStats struct {
	Concepts      int
	Atoms         int
	Attributes    int
	Relationships int
}

// RemoveSource deletes every atom, attribute, relationship and
// relationship attribute of source, compared case insensitively. Concepts
// left without atoms are dropped, together with the relationships pointing
// at them. Relationships pointing at concepts that lost atoms are moved to
// the new concept values.
//
// Attribute and relationship lists of the input concepts are modified.
func RemoveSource(concepts []*common.Concept, source string) ([]*common.Concept, RemoveStats) {
	var stats RemoveStats
	fromSource := func(src string) bool {
		return strings.EqualFold(src, source)
	}

	// nil marks a dropped concept.
	replaced := make(map[*common.Concept]*common.Concept, len(concepts))
	for _, c := range concepts {
		before := c.NumAtoms()
		next, ok := c.WithoutAtoms(func(a *common.Atom) bool { return fromSource(a.Source) })
		if !ok {
			stats.Atoms += before
			stats.Concepts++
			replaced[c] = nil
			continue
		}
		stats.Atoms += before - next.NumAtoms()
		replaced[c] = next
	}

	out := make([]*common.Concept, 0, len(concepts))
	for _, c := range concepts {
		next := replaced[c]
		if next == nil {
			continue
		}
		stats.Attributes += next.RemoveAttributes(func(a *common.Attribute) bool {
			return fromSource(a.Source)
		})
		stats.Relationships += next.RemoveRelationships(func(r *common.Relationship) bool {
			if fromSource(r.Source) {
				return true
			}
			obj := r.Object.Concept()
			if obj == nil {
				return false
			}
			target, known := replaced[obj]
			if !known {
				return false
			}
			if target == nil {
				return true
			}
			r.Object = common.ConceptObject(target)
			return false
		})
		for _, r := range next.Relationships {
			stats.Attributes += r.RemoveAttributes(func(a *common.Attribute) bool {
				return fromSource(a.Source)
			})
		}
		out = append(out, next)
	}
	return out, stats
}
