package common

import (
	"encoding/json"
	"strings"
)

// Atom is a single source attributed string naming a Concept, e.g. the
// term "5-HTP" as listed by NMCD under id 1234.
//
// Two atoms are equal when their lowercased term, source, source id, term
// type and extra attributes match. The identifier and the preferred flag
// are not part of the identity.
type Atom struct {
	ID          ID
	Term        string
	Source      string
	SourceID    string
	TermType    string
	IsPreferred bool
	// Extra holds additional per atom data such as a linking_score.
	Extra map[string]any
}

// AtomKey is a comparable snapshot of the equality fields of an Atom and
// can be used as a map key.
type AtomKey struct {
	Term     string
	Source   string
	SourceID string
	TermType string
	Extra    string
}

// NewAtomParams describes an atom to create. An empty ID allocates a fresh
// identifier.
type NewAtomParams struct {
	ID          string
	Term        string
	Source      string
	SourceID    string
	TermType    string
	IsPreferred bool
	Extra       map[string]any
}

func NewAtom(ids *IDAllocator, params NewAtomParams) (*Atom, error) {
	id, err := ids.Resolve(KindAtom, params.ID)
	if err != nil {
		return nil, err
	}
	return &Atom{
		ID:          id,
		Term:        params.Term,
		Source:      params.Source,
		SourceID:    params.SourceID,
		TermType:    params.TermType,
		IsPreferred: params.IsPreferred,
		Extra:       params.Extra,
	}, nil
}

// Key returns the equality snapshot of the atom. Extra attributes are
// encoded with sorted keys so equal maps produce equal keys.
func (a *Atom) Key() AtomKey {
	return AtomKey{
		Term:     strings.ToLower(a.Term),
		Source:   a.Source,
		SourceID: a.SourceID,
		TermType: a.TermType,
		Extra:    canonicalExtra(a.Extra),
	}
}

func (a *Atom) Equal(other *Atom) bool {
	if a == other {
		return true
	}
	if a == nil || other == nil {
		return false
	}
	return a.Key() == other.Key()
}

// LowerTerm is the form used for connection discovery.
func (a *Atom) LowerTerm() string {
	return strings.ToLower(a.Term)
}

// HasExtra reports whether the extra attribute name is set.
func (a *Atom) HasExtra(name string) bool {
	_, ok := a.Extra[name]
	return ok
}

func (a *Atom) String() string {
	return a.Term
}

func canonicalExtra(extra map[string]any) string {
	if len(extra) == 0 {
		return ""
	}
	// encoding/json writes map keys in sorted order.
	b, err := json.Marshal(extra)
	if err != nil {
		return "!" + err.Error()
	}
	return string(b)
}
