package common

// Element is a data element that can own attributes.
type Element interface {
	ElementID() ID
}

// Attribute is a named fact about a Concept or a Relationship. Subject is
// a back reference to the owner; it is not part of the identity.
type Attribute struct {
	ID      ID
	Subject Element
	Name    string
	Value   string
	Source  string
}

// AttributeKey is the comparable equality snapshot of an Attribute.
type AttributeKey struct {
	Name   string
	Value  string
	Source string
}

type NewAttributeParams struct {
	ID     string
	Name   string
	Value  string
	Source string
}

func NewAttribute(ids *IDAllocator, params NewAttributeParams) (*Attribute, error) {
	id, err := ids.Resolve(KindAttribute, params.ID)
	if err != nil {
		return nil, err
	}
	return &Attribute{
		ID:     id,
		Name:   params.Name,
		Value:  params.Value,
		Source: params.Source,
	}, nil
}

func (a *Attribute) Key() AttributeKey {
	return AttributeKey{Name: a.Name, Value: a.Value, Source: a.Source}
}

func (a *Attribute) Equal(other *Attribute) bool {
	if a == other {
		return true
	}
	if a == nil || other == nil {
		return false
	}
	return a.Key() == other.Key()
}

// SubjectID returns the identifier of the owner or the zero ID.
func (a *Attribute) SubjectID() ID {
	if a.Subject == nil {
		return ID{}
	}
	return a.Subject.ElementID()
}

// appendAttribute adds attr unless an equal attribute is already present.
func appendAttribute(attrs []*Attribute, attr *Attribute) ([]*Attribute, bool) {
	for _, existing := range attrs {
		if existing.Equal(attr) {
			return attrs, false
		}
	}
	return append(attrs, attr), true
}
