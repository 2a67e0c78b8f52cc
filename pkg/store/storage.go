package store

import (
	"context"
	"errors"
	"time"

	"github.com/OFFIS-RIT/idisk/backend/pkg/common"
)

// ErrNotFound is returned when a knowledge base or concept does not exist.
var ErrNotFound = errors.New("not found")

// KnowledgeBase describes a stored knowledge base.
type KnowledgeBase struct {
	Name      string    `json:"name"`
	Concepts  int       `json:"concepts"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ConceptStorage persists knowledge bases. Every knowledge base is stored
// under a name, saving it again replaces the previous content.
//
// Loading observes every persisted identifier on ids, so elements created
// afterwards never collide with stored ones.
type ConceptStorage interface {
	SaveConcepts(ctx context.Context, kb string, concepts []*common.Concept) error
	LoadConcepts(ctx context.Context, kb string, ids *common.IDAllocator) ([]*common.Concept, error)
	GetConcept(ctx context.Context, kb string, ui string) (*common.Concept, error)
	ListKnowledgeBases(ctx context.Context) ([]KnowledgeBase, error)
	DeleteKnowledgeBase(ctx context.Context, kb string) error
}

// Exporter writes concepts to an external representation such as RRF
// files or a Neo4j graph.
type Exporter interface {
	Export(ctx context.Context, concepts []*common.Concept) error
}
