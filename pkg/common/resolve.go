package common

// ResolveRelationships replaces every unresolved relationship object that
// names a concept in index with that concept. It returns the relationships
// whose object could not be found; those keep their raw identifier.
func ResolveRelationships(concepts []*Concept, index map[string]*Concept) []*Relationship {
	var dangling []*Relationship
	for _, c := range concepts {
		for _, rel := range c.Relationships {
			if rel.Object.IsResolved() {
				continue
			}
			if target, ok := index[rel.Object.Ref()]; ok {
				rel.Object = ConceptObject(target)
				continue
			}
			dangling = append(dangling, rel)
		}
	}
	return dangling
}

// IndexByID maps concept identifiers to concepts; later concepts win.
func IndexByID(concepts []*Concept) map[string]*Concept {
	index := make(map[string]*Concept, len(concepts))
	for _, c := range concepts {
		index[c.ID.String()] = c
	}
	return index
}
