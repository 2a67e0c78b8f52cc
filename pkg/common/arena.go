package common

import "iter"

// Handle addresses a concept inside an Arena.
type Handle int

// Arena is the index addressed store of every concept created during one
// loading session. Dropped slots keep their handle but are no longer
// enumerated.
type Arena struct {
	concepts []*Concept
	dropped  []bool
	live     int
}

func NewArena() *Arena {
	return &Arena{}
}

func (a *Arena) Add(c *Concept) Handle {
	a.concepts = append(a.concepts, c)
	a.dropped = append(a.dropped, false)
	a.live++
	return Handle(len(a.concepts) - 1)
}

// Get returns the concept at h, or nil if h is out of range or dropped.
func (a *Arena) Get(h Handle) *Concept {
	if h < 0 || int(h) >= len(a.concepts) || a.dropped[h] {
		return nil
	}
	return a.concepts[h]
}

func (a *Arena) Drop(h Handle) {
	if h < 0 || int(h) >= len(a.concepts) || a.dropped[h] {
		return
	}
	a.dropped[h] = true
	a.concepts[h] = nil
	a.live--
}

// Len is the number of slots ever allocated.
func (a *Arena) Len() int {
	return len(a.concepts)
}

// Live is the number of concepts not dropped.
func (a *Arena) Live() int {
	return a.live
}

// All enumerates live concepts in handle order.
func (a *Arena) All() iter.Seq2[Handle, *Concept] {
	return func(yield func(Handle, *Concept) bool) {
		for i, c := range a.concepts {
			if a.dropped[i] {
				continue
			}
			if !yield(Handle(i), c) {
				return
			}
		}
	}
}

// Concepts returns the live concepts in handle order.
func (a *Arena) Concepts() []*Concept {
	out := make([]*Concept, 0, a.live)
	for _, c := range a.All() {
		out = append(out, c)
	}
	return out
}

// Index maps the identifier of every live concept to the concept. When two
// concepts share an identifier the later one wins.
func (a *Arena) Index() map[string]*Concept {
	index := make(map[string]*Concept, a.live)
	for _, c := range a.All() {
		index[c.ID.String()] = c
	}
	return index
}
