package common

import "errors"

var (
	// ErrNoAtoms is returned when a Concept would be left without Atoms.
	ErrNoAtoms = errors.New("concept must have at least one atom")
	// ErrInvalidID is returned for identifiers that do not end in seven digits.
	ErrInvalidID = errors.New("identifier must match '.+[0-9]{7}'")
	// ErrUnknownVocabulary is returned by strict validation for values that
	// are not part of the configured vocabulary.
	ErrUnknownVocabulary = errors.New("unknown vocabulary value")
)

// ErrConnectionOutOfRange is returned for connections naming an index
// outside of the concept list they refer to.
var ErrConnectionOutOfRange = errors.New("connection index out of range")
