package pgx

import (
	"context"
	"errors"
	"fmt"
	"time"

	pgxv5 "github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/OFFIS-RIT/idisk/backend/pkg/common"
	"github.com/OFFIS-RIT/idisk/backend/pkg/logger"
	"github.com/OFFIS-RIT/idisk/backend/pkg/store"
)

type pgxIConn interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, optionsAndArgs ...any) (pgxv5.Rows, error)
	QueryRow(ctx context.Context, sql string, optionsAndArgs ...any) pgxv5.Row
	Begin(ctx context.Context) (pgxv5.Tx, error)
}

// ConceptDBStorage implements store.ConceptStorage on PostgreSQL. Every
// knowledge base is kept as rows keyed by (kb, position).
type ConceptDBStorage struct {
	conn  pgxIConn
	vocab *common.Vocabulary
}

var _ store.ConceptStorage = (*ConceptDBStorage)(nil)

type ConceptDBStorageOption func(*ConceptDBStorage)

// WithVocabulary sets the vocabulary used to rank sources of loaded
// concepts.
func WithVocabulary(vocab *common.Vocabulary) ConceptDBStorageOption {
	return func(s *ConceptDBStorage) {
		s.vocab = vocab
	}
}

func NewConceptDBStorageWithConnection(conn pgxIConn, opts ...ConceptDBStorageOption) *ConceptDBStorage {
	s := &ConceptDBStorage{conn: conn}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(s)
	}
	if s.vocab == nil {
		s.vocab = common.DefaultVocabulary()
	}
	return s
}

// SaveConcepts replaces the content of kb with concepts in one
// transaction.
func (s *ConceptDBStorage) SaveConcepts(ctx context.Context, kb string, concepts []*common.Concept) error {
	rows, err := buildRows(concepts)
	if err != nil {
		return err
	}

	start := time.Now()
	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO knowledge_bases (name, concepts, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (name) DO UPDATE SET concepts = EXCLUDED.concepts, updated_at = now()`,
		kb, len(concepts))
	if err != nil {
		return fmt.Errorf("failed to upsert knowledge base %s: %w", kb, err)
	}

	for _, table := range []string{"concepts", "atoms", "attributes", "relationships"} {
		if _, err := tx.Exec(ctx, "DELETE FROM "+table+" WHERE kb = $1", kb); err != nil {
			return fmt.Errorf("failed to clear %s of %s: %w", table, kb, err)
		}
	}

	copies := []struct {
		table   string
		columns []string
		rows    [][]any
	}{
		{"concepts", conceptColumns, copyRows(kb, rows.concepts)},
		{"atoms", atomColumns, copyRows(kb, rows.atoms)},
		{"attributes", attributeColumns, copyRows(kb, rows.attributes)},
		{"relationships", relationshipColumns, copyRows(kb, rows.relationships)},
	}
	for _, c := range copies {
		if len(c.rows) == 0 {
			continue
		}
		n, err := tx.CopyFrom(ctx, pgxv5.Identifier{c.table}, c.columns, pgxv5.CopyFromRows(c.rows))
		if err != nil {
			return fmt.Errorf("failed to copy %s of %s: %w", c.table, kb, err)
		}
		logger.Debug("[Store] Copied rows", "kb", kb, "table", c.table, "rows", n)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit knowledge base %s: %w", kb, err)
	}
	logger.Info("[Store] Saved knowledge base", "kb", kb, "concepts", len(concepts), "duration", time.Since(start))
	return nil
}

// LoadConcepts reads kb and resolves relationship objects among the loaded
// concepts. Unresolvable objects are logged and kept as references.
func (s *ConceptDBStorage) LoadConcepts(ctx context.Context, kb string, ids *common.IDAllocator) ([]*common.Concept, error) {
	var exists bool
	if err := s.conn.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM knowledge_bases WHERE name = $1)", kb).Scan(&exists); err != nil {
		return nil, fmt.Errorf("failed to look up knowledge base %s: %w", kb, err)
	}
	if !exists {
		return nil, fmt.Errorf("knowledge base %s: %w", kb, store.ErrNotFound)
	}

	rows, err := s.queryRows(ctx, "kb = $1", kb)
	if err != nil {
		return nil, err
	}
	if ids == nil {
		ids = common.NewIDAllocator()
	}
	concepts, err := assemble(rows, ids, s.vocab)
	if err != nil {
		return nil, fmt.Errorf("failed to load knowledge base %s: %w", kb, err)
	}

	for _, rel := range common.ResolveRelationships(concepts, common.IndexByID(concepts)) {
		logger.Warn(fmt.Sprintf("[Store] Object of %s '%s' not found", rel.Subject.ID, rel.Object.Ref()))
	}
	return concepts, nil
}

// GetConcept returns a single concept of kb. Relationship objects are
// returned as unresolved references. When several concepts share ui the
// last one wins.
func (s *ConceptDBStorage) GetConcept(ctx context.Context, kb string, ui string) (*common.Concept, error) {
	var row conceptRow
	err := s.conn.QueryRow(ctx, `
		SELECT pos, ui, concept_type FROM concepts
		WHERE kb = $1 AND ui = $2
		ORDER BY pos DESC LIMIT 1`, kb, ui).Scan(&row.Pos, &row.UI, &row.Type)
	if errors.Is(err, pgxv5.ErrNoRows) {
		return nil, fmt.Errorf("concept %s in %s: %w", ui, kb, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get concept %s: %w", ui, err)
	}

	rows, err := s.queryRows(ctx, "kb = $1 AND concept_pos = $2", kb, row.Pos)
	if err != nil {
		return nil, err
	}
	rows.concepts = []conceptRow{row}

	concepts, err := assemble(rows, common.NewIDAllocator(), s.vocab)
	if err != nil {
		return nil, err
	}
	return concepts[0], nil
}

func (s *ConceptDBStorage) ListKnowledgeBases(ctx context.Context) ([]store.KnowledgeBase, error) {
	rows, err := s.conn.Query(ctx, "SELECT name, concepts, updated_at FROM knowledge_bases ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("failed to list knowledge bases: %w", err)
	}
	kbs, err := pgxv5.CollectRows(rows, pgxv5.RowToStructByPos[store.KnowledgeBase])
	if err != nil {
		return nil, fmt.Errorf("failed to scan knowledge bases: %w", err)
	}
	return kbs, nil
}

// DeleteKnowledgeBase removes kb and all of its rows.
func (s *ConceptDBStorage) DeleteKnowledgeBase(ctx context.Context, kb string) error {
	tag, err := s.conn.Exec(ctx, "DELETE FROM knowledge_bases WHERE name = $1", kb)
	if err != nil {
		return fmt.Errorf("failed to delete knowledge base %s: %w", kb, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("knowledge base %s: %w", kb, store.ErrNotFound)
	}
	return nil
}

// queryRows reads atoms, attributes and relationships matching where and,
// when where does not filter by concept, the concept rows as well.
func (s *ConceptDBStorage) queryRows(ctx context.Context, where string, args ...any) (rowSet, error) {
	var (
		out rowSet
		err error
	)
	if len(args) == 1 {
		out.concepts, err = collect[conceptRow](ctx, s.conn,
			"SELECT pos, ui, concept_type FROM concepts WHERE "+where+" ORDER BY pos", args...)
		if err != nil {
			return rowSet{}, err
		}
	}
	out.atoms, err = collect[atomRow](ctx, s.conn,
		"SELECT concept_pos, pos, ui, term, src, src_id, term_type, is_preferred, extra FROM atoms WHERE "+where+" ORDER BY concept_pos, pos", args...)
	if err != nil {
		return rowSet{}, err
	}
	out.attributes, err = collect[attributeRow](ctx, s.conn,
		"SELECT concept_pos, rel_pos, pos, ui, name, value, src FROM attributes WHERE "+where+" ORDER BY concept_pos, rel_pos, pos", args...)
	if err != nil {
		return rowSet{}, err
	}
	out.relationships, err = collect[relationshipRow](ctx, s.conn,
		"SELECT concept_pos, pos, ui, name, object, src FROM relationships WHERE "+where+" ORDER BY concept_pos, pos", args...)
	if err != nil {
		return rowSet{}, err
	}
	return out, nil
}

func collect[T any](ctx context.Context, conn pgxIConn, sql string, args ...any) ([]T, error) {
	rows, err := conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}
	out, err := pgxv5.CollectRows(rows, pgxv5.RowToStructByPos[T])
	if err != nil {
		return nil, fmt.Errorf("failed to scan rows: %w", err)
	}
	return out, nil
}
