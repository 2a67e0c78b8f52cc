package graph

import (
	"fmt"
	"iter"
	"slices"

	"github.com/OFFIS-RIT/idisk/backend/pkg/common"
	"github.com/OFFIS-RIT/idisk/backend/pkg/logger"
)

// UnionFind merges connected concepts. Slot i starts with concepts[i];
// after a union the slot of the surviving root holds the merged concept.
//
// A UnionFind is not safe for concurrent use.
type UnionFind struct {
	concepts []*common.Concept
	parent   []int

	// index maps every concept that ever sat in a slot to that slot.
	index map[*common.Concept]int
	byID  map[string]int
}

// NewUnionFind starts a run over concepts. The slice is copied, the
// concepts are not.
func NewUnionFind(concepts []*common.Concept) *UnionFind {
	u := &UnionFind{
		concepts: slices.Clone(concepts),
		parent:   make([]int, len(concepts)),
		index:    make(map[*common.Concept]int, len(concepts)),
		byID:     make(map[string]int, len(concepts)),
	}
	for i, c := range concepts {
		u.parent[i] = i
		u.index[c] = i
		u.byID[c.ID.String()] = i
	}
	return u
}

func (u *UnionFind) Len() int {
	return len(u.concepts)
}

// Concept returns the concept currently stored in slot i.
func (u *UnionFind) Concept(i int) *common.Concept {
	return u.concepts[i]
}

// Find returns the root of i and points every slot on the way directly at
// it.
func (u *UnionFind) Find(i int) int {
	root := i
	for u.parent[root] != root {
		root = u.parent[root]
	}
	for u.parent[i] != root {
		next := u.parent[i]
		u.parent[i] = root
		i = next
	}
	return root
}

// Union merges the components of i and j. The concept with fewer atoms is
// merged into the one with more; on a tie the lower root survives.
// Unioning two members of one component is a no-op.
func (u *UnionFind) Union(i, j int) {
	pi, pj := u.Find(i), u.Find(j)
	if pi == pj {
		return
	}

	big, small := pi, pj
	nb, ns := u.concepts[pi].NumAtoms(), u.concepts[pj].NumAtoms()
	if ns > nb || (ns == nb && pj < pi) {
		big, small = pj, pi
	}

	merged := Merge(u.concepts[big], u.concepts[small])
	u.concepts[big] = merged
	u.index[merged] = big
	u.parent[small] = big
}

// Apply unions every connection in order. All connections are checked
// against the number of concepts before the first union, a bad one leaves
// the run untouched.
func (u *UnionFind) Apply(cnxs []common.Connection) error {
	if err := common.CheckConnections(cnxs, len(u.concepts)); err != nil {
		return err
	}
	for _, c := range cnxs {
		u.Union(c.I, c.J)
	}
	return nil
}

// ApplySeq unions connections as they are produced. A connection out of
// range stops the run with an error; earlier unions stay applied.
func (u *UnionFind) ApplySeq(cnxs iter.Seq[common.Connection]) (int, error) {
	n := 0
	for c := range cnxs {
		if err := c.Check(len(u.concepts)); err != nil {
			return n, fmt.Errorf("connection %d: %w", n, err)
		}
		u.Union(c.I, c.J)
		n++
	}
	return n, nil
}

func (u *UnionFind) flatten() {
	for i := range u.parent {
		u.Find(i)
	}
}

func (u *UnionFind) slotOf(c *common.Concept) (int, bool) {
	if i, ok := u.index[c]; ok {
		return i, true
	}
	i, ok := u.byID[c.ID.String()]
	return i, ok
}

// Repair points every relationship of every root concept whose object was
// merged away at the concept now standing for the object's component.
// Relationships that become equal through this are collapsed. Objects that
// are not part of this run are left as they are and logged; the number of
// such relationships is returned.
func (u *UnionFind) Repair() int {
	u.flatten()

	missing := 0
	for i, c := range u.concepts {
		if u.parent[i] != i {
			continue
		}
		rewritten := false
		for _, rel := range c.Relationships {
			obj := rel.Object.Concept()
			if obj == nil {
				continue
			}
			slot, ok := u.slotOf(obj)
			if !ok {
				missing++
				logger.Warn(fmt.Sprintf("[Merge] Object of %s '%s' not found", rel.Name, obj.ID),
					"subject", c.ID.String())
				continue
			}
			target := u.concepts[u.parent[slot]]
			if target != obj {
				rel.Object = common.ConceptObject(target)
				rewritten = true
			}
		}
		if rewritten {
			dedupeRelationships(c)
		}
	}
	return missing
}

func dedupeRelationships(c *common.Concept) {
	kept := make([]*common.Relationship, 0, len(c.Relationships))
	for _, rel := range c.Relationships {
		dup := slices.ContainsFunc(kept, func(k *common.Relationship) bool {
			return k.Equal(rel)
		})
		if !dup {
			kept = append(kept, rel)
		}
	}
	c.Relationships = kept
}

// Roots returns the root slots in ascending order.
func (u *UnionFind) Roots() []int {
	u.flatten()
	var roots []int
	for i, p := range u.parent {
		if p == i {
			roots = append(roots, i)
		}
	}
	return roots
}

func (u *UnionFind) sizes() []int {
	u.flatten()
	sizes := make([]int, len(u.parent))
	for _, p := range u.parent {
		sizes[p]++
	}
	return sizes
}

func (u *UnionFind) collect(keep func(size int) bool) []*common.Concept {
	sizes := u.sizes()
	var out []*common.Concept
	for i, p := range u.parent {
		if p == i && keep(sizes[i]) {
			out = append(out, u.concepts[i])
		}
	}
	return out
}

// Merged returns one concept per component, the deduplicated collection.
func (u *UnionFind) Merged() []*common.Concept {
	return u.collect(func(int) bool { return true })
}

// Intersection returns the concepts of components with at least two
// original members.
func (u *UnionFind) Intersection() []*common.Concept {
	return u.collect(func(size int) bool { return size >= 2 })
}

// Difference returns the concepts that were never merged with anything.
func (u *UnionFind) Difference() []*common.Concept {
	return u.collect(func(size int) bool { return size == 1 })
}
