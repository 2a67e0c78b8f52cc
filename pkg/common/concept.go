package common

import (
	"fmt"
	"slices"
	"strings"
)

// Concept is one real world entity: a non-empty, duplicate free set of
// Atoms plus the Attributes and Relationships describing it.
//
// The atom set is frozen when the concept is built. Adding atoms produces
// a new Concept value (WithAtoms), which keeps the equality snapshot of a
// concept stable while it is used as a map key or compared.
type Concept struct {
	ID            ID
	Type          string
	Attributes    []*Attribute
	Relationships []*Relationship

	atoms     []*Atom
	keys      map[AtomKey]struct{}
	vocab     *Vocabulary
	preferred *Atom
}

// NewConceptParams describes a concept. An empty ID allocates a fresh
// identifier, a nil Vocabulary uses DefaultVocabulary for source ranking.
type NewConceptParams struct {
	ID         string
	Type       string
	Atoms      []*Atom
	Vocabulary *Vocabulary
}

// NewConcept builds a concept from its atoms. Equal atoms are collapsed,
// the first occurrence wins. A concept without atoms is rejected with
// ErrNoAtoms.
func NewConcept(ids *IDAllocator, params NewConceptParams) (*Concept, error) {
	if len(params.Atoms) == 0 {
		return nil, ErrNoAtoms
	}
	id, err := ids.Resolve(KindConcept, params.ID)
	if err != nil {
		return nil, err
	}
	vocab := params.Vocabulary
	if vocab == nil {
		vocab = DefaultVocabulary()
	}

	c := &Concept{
		ID:    id,
		Type:  params.Type,
		vocab: vocab,
		keys:  make(map[AtomKey]struct{}, len(params.Atoms)),
		atoms: make([]*Atom, 0, len(params.Atoms)),
	}
	for _, a := range params.Atoms {
		if a == nil {
			return nil, fmt.Errorf("concept %s: nil atom", id)
		}
		c.addAtom(a)
	}
	return c, nil
}

func (c *Concept) addAtom(a *Atom) bool {
	key := a.Key()
	if _, ok := c.keys[key]; ok {
		return false
	}
	c.keys[key] = struct{}{}
	c.atoms = append(c.atoms, a)
	return true
}

func (c *Concept) ElementID() ID {
	return c.ID
}

// Atoms returns the atoms in insertion order. The returned slice is a copy.
func (c *Concept) Atoms() []*Atom {
	return slices.Clone(c.atoms)
}

func (c *Concept) NumAtoms() int {
	return len(c.atoms)
}

func (c *Concept) HasAtom(a *Atom) bool {
	_, ok := c.keys[a.Key()]
	return ok
}

// Terms returns the set of lowercased atom terms.
func (c *Concept) Terms() map[string]struct{} {
	terms := make(map[string]struct{}, len(c.atoms))
	for _, a := range c.atoms {
		terms[a.LowerTerm()] = struct{}{}
	}
	return terms
}

func (c *Concept) Vocabulary() *Vocabulary {
	return c.vocab
}

// Equal compares concept type and atom set. Identifiers, attributes and
// relationships are not part of a concept's identity.
func (c *Concept) Equal(other *Concept) bool {
	if c == other {
		return true
	}
	if c == nil || other == nil {
		return false
	}
	if c.Type != other.Type || len(c.keys) != len(other.keys) {
		return false
	}
	for k := range c.keys {
		if _, ok := other.keys[k]; !ok {
			return false
		}
	}
	return true
}

// WithAtoms returns a shallow copy of c whose atom set also contains every
// atom of extra not equal to an existing one. Attribute and relationship
// slices are copied, the elements themselves are shared.
func (c *Concept) WithAtoms(extra ...*Atom) *Concept {
	next := &Concept{
		ID:            c.ID,
		Type:          c.Type,
		Attributes:    slices.Clone(c.Attributes),
		Relationships: slices.Clone(c.Relationships),
		atoms:         make([]*Atom, 0, len(c.atoms)+len(extra)),
		keys:          make(map[AtomKey]struct{}, len(c.atoms)+len(extra)),
		vocab:         c.vocab,
	}
	for _, a := range c.atoms {
		next.addAtom(a)
	}
	for _, a := range extra {
		next.addAtom(a)
	}
	return next
}

// WithoutAtoms returns a copy of c without the atoms for which drop returns
// true. The second result is false when no atom would be left; such a
// concept must be discarded.
func (c *Concept) WithoutAtoms(drop func(*Atom) bool) (*Concept, bool) {
	kept := make([]*Atom, 0, len(c.atoms))
	for _, a := range c.atoms {
		if !drop(a) {
			kept = append(kept, a)
		}
	}
	if len(kept) == 0 {
		return nil, false
	}
	if len(kept) == len(c.atoms) {
		return c, true
	}
	next := &Concept{
		ID:            c.ID,
		Type:          c.Type,
		Attributes:    slices.Clone(c.Attributes),
		Relationships: slices.Clone(c.Relationships),
		atoms:         kept,
		keys:          make(map[AtomKey]struct{}, len(kept)),
		vocab:         c.vocab,
	}
	for _, a := range kept {
		next.keys[a.Key()] = struct{}{}
	}
	next.Adopt()
	return next, true
}

// Adopt points the subject of every attribute and relationship at c.
func (c *Concept) Adopt() {
	for _, attr := range c.Attributes {
		attr.Subject = c
	}
	for _, rel := range c.Relationships {
		rel.Subject = c
	}
}

// AddAttribute attaches attr unless an equal attribute is already present.
func (c *Concept) AddAttribute(attr *Attribute) bool {
	var added bool
	c.Attributes, added = appendAttribute(c.Attributes, attr)
	if added {
		attr.Subject = c
	}
	return added
}

// AddRelationship attaches rel unless an equal relationship is already
// present. The relationship's attributes keep pointing at rel.
func (c *Concept) AddRelationship(rel *Relationship) bool {
	for _, existing := range c.Relationships {
		if existing.Equal(rel) {
			return false
		}
	}
	rel.Subject = c
	c.Relationships = append(c.Relationships, rel)
	return true
}

func (c *Concept) RemoveAttributes(drop func(*Attribute) bool) int {
	var removed int
	c.Attributes, removed = filterAttributes(c.Attributes, drop)
	return removed
}

func (c *Concept) RemoveRelationships(drop func(*Relationship) bool) int {
	kept := c.Relationships[:0]
	removed := 0
	for _, r := range c.Relationships {
		if drop(r) {
			removed++
			continue
		}
		kept = append(kept, r)
	}
	clear(c.Relationships[len(kept):])
	c.Relationships = kept
	return removed
}

// PreferredAtom returns the atom naming this concept. Candidates are the
// atoms flagged preferred, or all atoms when none is. Among the candidates
// the one from the highest ranked source wins; ties go to the
// lexicographically smallest lowercased term, then the smallest source id.
// The result is memoized.
func (c *Concept) PreferredAtom() *Atom {
	if c.preferred != nil {
		return c.preferred
	}
	candidates := make([]*Atom, 0, len(c.atoms))
	for _, a := range c.atoms {
		if a.IsPreferred {
			candidates = append(candidates, a)
		}
	}
	if len(candidates) == 0 {
		candidates = c.atoms
	}

	var best *Atom
	for _, a := range candidates {
		if best == nil || c.preferredLess(a, best) {
			best = a
		}
	}
	c.preferred = best
	return best
}

func (c *Concept) preferredLess(a, b *Atom) bool {
	ra, rb := c.vocab.SourceRank(a.Source), c.vocab.SourceRank(b.Source)
	if ra != rb {
		return ra < rb
	}
	ta, tb := a.LowerTerm(), b.LowerTerm()
	if ta != tb {
		return ta < tb
	}
	return a.SourceID < b.SourceID
}

// PreferredTerm is the term of PreferredAtom.
func (c *Concept) PreferredTerm() string {
	if a := c.PreferredAtom(); a != nil {
		return a.Term
	}
	return ""
}

func (c *Concept) String() string {
	return fmt.Sprintf("%s: %s", c.ID, c.PreferredTerm())
}

// PrefixTokens splits a merged prefix such as "NMCD_DSLD" into its source
// tokens.
func PrefixTokens(prefix string) []string {
	if prefix == "" {
		return nil
	}
	return strings.Split(prefix, "_")
}
