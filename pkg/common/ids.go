package common

import (
	"fmt"
	"strconv"
)

// Kind is the kind of a data element. Every kind has its own identifier
// counter and default prefix.
type Kind int

const (
	KindAtom Kind = iota
	KindConcept
	KindAttribute
	KindRelationship
	kindCount
)

// DefaultPrefix returns the prefix of freshly allocated identifiers.
func (k Kind) DefaultPrefix() string {
	switch k {
	case KindAtom:
		return "DA"
	case KindConcept:
		return "DC"
	case KindAttribute:
		return "DAT"
	case KindRelationship:
		return "DR"
	default:
		return ""
	}
}

func (k Kind) String() string {
	switch k {
	case KindAtom:
		return "atom"
	case KindConcept:
		return "concept"
	case KindAttribute:
		return "attribute"
	case KindRelationship:
		return "relationship"
	default:
		return "unknown"
	}
}

const idDigits = 7

// ID is a prefix followed by a zero padded seven digit counter, e.g.
// DC0000042. Merged concepts carry the union of their sources' prefixes,
// e.g. NMCD_DSLD0000042.
type ID struct {
	Prefix string
	Number int
}

// ParseID splits value into its prefix and its trailing seven digits.
func ParseID(value string) (ID, error) {
	if len(value) <= idDigits {
		return ID{}, fmt.Errorf("%w: %q", ErrInvalidID, value)
	}
	suffix := value[len(value)-idDigits:]
	for _, r := range suffix {
		if r < '0' || r > '9' {
			return ID{}, fmt.Errorf("%w: %q", ErrInvalidID, value)
		}
	}
	n, err := strconv.Atoi(suffix)
	if err != nil {
		return ID{}, fmt.Errorf("%w: %q", ErrInvalidID, value)
	}
	return ID{Prefix: value[:len(value)-idDigits], Number: n}, nil
}

func (id ID) String() string {
	if id.IsZero() {
		return ""
	}
	return fmt.Sprintf("%s%0*d", id.Prefix, idDigits, id.Number)
}

func (id ID) IsZero() bool {
	return id.Prefix == "" && id.Number == 0
}

// WithPrefix returns the identifier with the same number and a new prefix.
func (id ID) WithPrefix(prefix string) ID {
	return ID{Prefix: prefix, Number: id.Number}
}

// IDAllocator hands out identifiers per element kind. Each build or merge
// session owns one allocator; it is not safe for concurrent use.
type IDAllocator struct {
	counters [kindCount]int
}

func NewIDAllocator() *IDAllocator {
	return &IDAllocator{}
}

// Allocate increments the counter of kind and returns a fresh identifier
// with the kind's default prefix.
func (a *IDAllocator) Allocate(kind Kind) ID {
	a.counters[kind]++
	return ID{Prefix: kind.DefaultPrefix(), Number: a.counters[kind]}
}

// Observe parses an explicit identifier, e.g. one read from a persisted
// file, and advances the counter of kind past it. The identifier is
// returned unchanged.
func (a *IDAllocator) Observe(kind Kind, explicit string) (ID, error) {
	id, err := ParseID(explicit)
	if err != nil {
		return ID{}, err
	}
	a.Seed(kind, id.Number)
	return id, nil
}

// Seed makes sure the next identifier of kind is greater than n.
func (a *IDAllocator) Seed(kind Kind, n int) {
	if n > a.counters[kind] {
		a.counters[kind] = n
	}
}

// Current returns the last number handed out or observed for kind.
func (a *IDAllocator) Current(kind Kind) int {
	return a.counters[kind]
}

// Resolve allocates a fresh identifier when explicit is empty and observes
// it otherwise.
func (a *IDAllocator) Resolve(kind Kind, explicit string) (ID, error) {
	if explicit == "" {
		return a.Allocate(kind), nil
	}
	return a.Observe(kind, explicit)
}
