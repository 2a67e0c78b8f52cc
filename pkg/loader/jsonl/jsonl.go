package jsonl

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/OFFIS-RIT/idisk/backend/pkg/common"
	"github.com/OFFIS-RIT/idisk/backend/pkg/loader"
	"github.com/OFFIS-RIT/idisk/backend/pkg/logger"

	"github.com/go-playground/validator"
	"github.com/invopop/jsonschema"
)

const maxLineSize = 64 * 1024 * 1024

// RecordError reports a record that could not be turned into a concept.
type RecordError struct {
	File string
	Line int
	Err  error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("%s:%d: %v", e.File, e.Line, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}

// Session loads concept records from one or more files. It owns the
// identifier allocator and the arena of every concept it creates, so
// relationships can be resolved across files once all of them are read.
type Session struct {
	ids      *common.IDAllocator
	arena    *common.Arena
	vocab    *common.Vocabulary
	validate *validator.Validate
}

type NewSessionParams struct {
	IDs        *common.IDAllocator
	Vocabulary *common.Vocabulary
}

func NewSession(params NewSessionParams) *Session {
	ids := params.IDs
	if ids == nil {
		ids = common.NewIDAllocator()
	}
	vocab := params.Vocabulary
	if vocab == nil {
		vocab = common.DefaultVocabulary()
	}

	validate := validator.New()
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	return &Session{
		ids:      ids,
		arena:    common.NewArena(),
		vocab:    vocab,
		validate: validate,
	}
}

func (s *Session) IDs() *common.IDAllocator {
	return s.ids
}

func (s *Session) Vocabulary() *common.Vocabulary {
	return s.vocab
}

// Concepts returns every concept read so far, in read order.
func (s *Session) Concepts() []*common.Concept {
	return s.arena.Concepts()
}

// ErrTrailingData is returned when a line holds more than one JSON value.
var ErrTrailingData = errors.New("unexpected data after record")

// Read parses one JSON lines file. Relationship objects keep the raw
// identifier of their target until Resolve runs. The first bad record
// aborts the read with a RecordError.
func (s *Session) Read(ctx context.Context, r io.Reader, name string) ([]*common.Concept, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var concepts []*common.Concept
	line := 0
	for scanner.Scan() {
		line++
		if line%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		data := bytes.TrimSpace(scanner.Bytes())
		if len(data) == 0 {
			continue
		}

		c, err := s.parse(data)
		if err != nil {
			return nil, &RecordError{File: name, Line: line, Err: err}
		}
		s.arena.Add(c)
		concepts = append(concepts, c)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}

	logger.Debug("[Loader] Read concepts", "file", name, "concepts", len(concepts))
	return concepts, nil
}

func (s *Session) parse(data []byte) (*common.Concept, error) {
	var rec Record
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&rec); err != nil {
		return nil, fmt.Errorf("failed to decode record: %w", err)
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return nil, ErrTrailingData
	}
	if err := s.validate.Struct(rec); err != nil {
		return nil, fmt.Errorf("invalid record: %w", err)
	}
	return s.build(rec)
}

func (s *Session) build(rec Record) (*common.Concept, error) {
	atoms := make([]*common.Atom, 0, len(rec.Synonyms))
	for _, syn := range rec.Synonyms {
		atom, err := common.NewAtom(s.ids, common.NewAtomParams{
			Term:        syn.Term,
			Source:      syn.Source,
			SourceID:    syn.SourceID,
			TermType:    syn.TermType,
			IsPreferred: syn.IsPreferred,
			Extra:       syn.Extra,
		})
		if err != nil {
			return nil, err
		}
		atoms = append(atoms, atom)
	}

	c, err := common.NewConcept(s.ids, common.NewConceptParams{
		ID:         rec.UI,
		Type:       rec.ConceptType,
		Atoms:      atoms,
		Vocabulary: s.vocab,
	})
	if err != nil {
		return nil, fmt.Errorf("concept %q: %w", rec.UI, err)
	}

	for _, a := range rec.Attributes {
		attr, err := s.attribute(a)
		if err != nil {
			return nil, err
		}
		c.AddAttribute(attr)
	}
	for _, r := range rec.Relationships {
		rel, err := common.NewRelationship(s.ids, common.NewRelationshipParams{
			Name:   r.Name,
			Object: common.RefObject(r.Object),
			Source: r.Source,
		})
		if err != nil {
			return nil, err
		}
		for _, a := range r.Attributes {
			attr, err := s.attribute(a)
			if err != nil {
				return nil, err
			}
			rel.AddAttribute(attr)
		}
		c.AddRelationship(rel)
	}

	if err := s.vocab.ValidateConcept(c); err != nil {
		return nil, fmt.Errorf("concept %q: %w", rec.UI, err)
	}
	return c, nil
}

func (s *Session) attribute(a AttributeRecord) (*common.Attribute, error) {
	return common.NewAttribute(s.ids, common.NewAttributeParams{
		Name:   a.Name,
		Value:  string(a.Value),
		Source: a.Source,
	})
}

// Resolve links every relationship object to the concept it names. Objects
// that name no loaded concept are logged and left as raw identifiers. It
// returns the number of such dangling references.
func (s *Session) Resolve() int {
	concepts := s.arena.Concepts()
	dangling := common.ResolveRelationships(concepts, s.arena.Index())
	for _, rel := range dangling {
		logger.Warn(fmt.Sprintf("[Loader] Object of %s '%s' not found", rel.Name, rel.Object.Ref()),
			"subject", rel.Subject.ID.String())
	}
	return len(dangling)
}

// LoadFiles fetches the content of every file, reads them in the given
// order and resolves relationships once all of them are read. The result
// holds the concepts of all files in order.
func (s *Session) LoadFiles(ctx context.Context, parallel int, files ...loader.SourceFile) ([]*common.Concept, error) {
	contents, err := loader.GetContents(ctx, files, parallel)
	if err != nil {
		return nil, err
	}

	var concepts []*common.Concept
	for i, content := range contents {
		read, err := s.Read(ctx, bytes.NewReader(content), files[i].FilePath)
		if err != nil {
			return nil, err
		}
		concepts = append(concepts, read...)
	}

	if n := s.Resolve(); n > 0 {
		logger.Info("[Loader] Unresolved relationship objects", "count", n)
	}
	logger.Info("[Loader] Loaded concepts", "files", len(files), "concepts", len(concepts))
	return concepts, nil
}

// Load is a shortcut for a fresh session loading files.
func Load(ctx context.Context, vocab *common.Vocabulary, files ...loader.SourceFile) ([]*common.Concept, *Session, error) {
	s := NewSession(NewSessionParams{Vocabulary: vocab})
	concepts, err := s.LoadFiles(ctx, len(files), files...)
	if err != nil {
		return nil, nil, err
	}
	return concepts, s, nil
}

// Write serializes concepts as JSON lines.
func Write(w io.Writer, concepts []*common.Concept) error {
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	enc.SetEscapeHTML(false)
	for _, c := range concepts {
		if err := enc.Encode(FromConcept(c)); err != nil {
			return fmt.Errorf("failed to encode concept %s: %w", c.ID, err)
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("failed to write concepts: %w", err)
	}
	return nil
}

// Schema returns the JSON Schema of a Record.
func Schema() ([]byte, error) {
	r := &jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	schema := r.Reflect(&Record{})
	schema.Title = "iDISK concept record"
	return json.MarshalIndent(schema, "", "  ")
}
