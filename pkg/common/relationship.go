package common

// RelObject is the target of a Relationship. It is either a Concept or,
// until resolution, the raw identifier string read from a record.
type RelObject struct {
	concept *Concept
	ref     string
}

func ConceptObject(c *Concept) RelObject {
	return RelObject{concept: c}
}

func RefObject(ref string) RelObject {
	return RelObject{ref: ref}
}

// Concept returns the target concept or nil when unresolved.
func (o RelObject) Concept() *Concept {
	return o.concept
}

// Ref returns the raw identifier of an unresolved object.
func (o RelObject) Ref() string {
	return o.ref
}

func (o RelObject) IsResolved() bool {
	return o.concept != nil
}

// String returns the identifier of the target, resolved or not.
func (o RelObject) String() string {
	if o.concept != nil {
		return o.concept.ID.String()
	}
	return o.ref
}

func (o RelObject) Equal(other RelObject) bool {
	switch {
	case o.concept != nil && other.concept != nil:
		return o.concept.Equal(other.concept)
	case o.concept == nil && other.concept == nil:
		return o.ref == other.ref
	default:
		return false
	}
}

// Relationship is a directed, named edge owned by its Subject concept.
// Identity is name, object and source; subject, identifier and the
// relationship's own attributes are ignored.
type Relationship struct {
	ID         ID
	Subject    *Concept
	Name       string
	Object     RelObject
	Source     string
	Attributes []*Attribute
}

type NewRelationshipParams struct {
	ID     string
	Name   string
	Object RelObject
	Source string
}

func NewRelationship(ids *IDAllocator, params NewRelationshipParams) (*Relationship, error) {
	id, err := ids.Resolve(KindRelationship, params.ID)
	if err != nil {
		return nil, err
	}
	return &Relationship{
		ID:     id,
		Name:   params.Name,
		Object: params.Object,
		Source: params.Source,
	}, nil
}

func (r *Relationship) ElementID() ID {
	return r.ID
}

func (r *Relationship) Equal(other *Relationship) bool {
	if r == other {
		return true
	}
	if r == nil || other == nil {
		return false
	}
	return r.Name == other.Name &&
		r.Source == other.Source &&
		r.Object.Equal(other.Object)
}

// AddAttribute attaches attr to the relationship unless an equal attribute
// is already present. It reports whether attr was added.
func (r *Relationship) AddAttribute(attr *Attribute) bool {
	var added bool
	r.Attributes, added = appendAttribute(r.Attributes, attr)
	if added {
		attr.Subject = r
	}
	return added
}

// RemoveAttributes drops every attribute for which drop returns true.
func (r *Relationship) RemoveAttributes(drop func(*Attribute) bool) int {
	var removed int
	r.Attributes, removed = filterAttributes(r.Attributes, drop)
	return removed
}

func filterAttributes(attrs []*Attribute, drop func(*Attribute) bool) ([]*Attribute, int) {
	kept := attrs[:0]
	removed := 0
	for _, a := range attrs {
		if drop(a) {
			removed++
			continue
		}
		kept = append(kept, a)
	}
	clear(attrs[len(kept):])
	return kept, removed
}
