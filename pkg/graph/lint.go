package graph

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/OFFIS-RIT/idisk/backend/internal/util"
	"github.com/OFFIS-RIT/idisk/backend/pkg/common"
	"github.com/OFFIS-RIT/idisk/backend/pkg/loader/jsonl"
	"github.com/OFFIS-RIT/idisk/backend/pkg/logger/console"
)

var uiPattern = regexp.MustCompile(`^[a-zA-Z]+[0-9]{7}`)

// Schema describes which concept types and relationships exist and which
// attribute names they may carry. A nil property set allows any name.
type Schema interface {
	NodeProperties(ctx context.Context, label string) (props map[string]struct{}, ok bool, err error)
	RelationshipProperties(ctx context.Context, name string) (props map[string]struct{}, ok bool, err error)
}

// VocabularySchema is a Schema backed by a Vocabulary. Every known concept
// type and relationship accepts every known attribute name.
type VocabularySchema struct {
	Vocabulary *common.Vocabulary
}

func (s VocabularySchema) attributeNames() map[string]struct{} {
	if len(s.Vocabulary.AttributeNames) == 0 {
		return nil
	}
	props := make(map[string]struct{}, len(s.Vocabulary.AttributeNames))
	for _, name := range s.Vocabulary.AttributeNames {
		props[name] = struct{}{}
	}
	return props
}

func (s VocabularySchema) NodeProperties(ctx context.Context, label string) (map[string]struct{}, bool, error) {
	if !s.Vocabulary.IsConceptType(strings.ToUpper(label)) {
		return nil, false, nil
	}
	return s.attributeNames(), true, nil
}

func (s VocabularySchema) RelationshipProperties(ctx context.Context, name string) (map[string]struct{}, bool, error) {
	if !s.Vocabulary.IsRelationshipName(name) {
		return nil, false, nil
	}
	return s.attributeNames(), true, nil
}

type schemaEntry struct {
	props map[string]struct{}
	ok    bool
}

// LintReport lists the distinct problems found in one concepts file.
type LintReport struct {
	File     string   `json:"file"`
	Concepts int      `json:"concepts"`
	Warnings []string `json:"warnings"`
}

type linter struct {
	schema   Schema
	nodes    map[string]schemaEntry
	edges    map[string]schemaEntry
	warnings map[string]struct{}
}

func (l *linter) warn(format string, args ...any) {
	l.warnings[fmt.Sprintf(format, args...)] = struct{}{}
}

func (l *linter) node(ctx context.Context, label string) (schemaEntry, error) {
	if e, ok := l.nodes[label]; ok {
		return e, nil
	}
	props, ok, err := l.schema.NodeProperties(ctx, label)
	if err != nil {
		return schemaEntry{}, fmt.Errorf("failed to look up label %q: %w", label, err)
	}
	e := schemaEntry{props: props, ok: ok}
	l.nodes[label] = e
	return e, nil
}

func (l *linter) edge(ctx context.Context, name string) (schemaEntry, error) {
	if e, ok := l.edges[name]; ok {
		return e, nil
	}
	props, ok, err := l.schema.RelationshipProperties(ctx, name)
	if err != nil {
		return schemaEntry{}, fmt.Errorf("failed to look up relationship %q: %w", name, err)
	}
	e := schemaEntry{props: props, ok: ok}
	l.edges[name] = e
	return e, nil
}

func (l *linter) attribute(attr jsonl.AttributeRecord, props map[string]struct{}) {
	if props != nil {
		if _, ok := props[attr.Name]; !ok {
			l.warn("Unknown attribute name '%s'.", attr.Name)
		}
	}
	if util.HasBadWhitespace(string(attr.Value)) {
		l.warn("Bad whitespace (newline or tab) in '%s'.", attr.Value)
	}
}

func (l *linter) record(ctx context.Context, rec jsonl.Record) error {
	node, err := l.node(ctx, rec.ConceptType)
	if err != nil {
		return err
	}
	if !node.ok {
		l.warn("Label '%s' not in schema.", rec.ConceptType)
	}
	for _, syn := range rec.Synonyms {
		if util.HasBadWhitespace(syn.Term) {
			l.warn("Bad whitespace (newline or tab) in '%s'.", syn.Term)
		}
	}
	if !uiPattern.MatchString(rec.UI) {
		l.warn("Improperly formatted UI: '%s'", rec.UI)
	}
	if !node.ok {
		return nil
	}

	for _, attr := range rec.Attributes {
		l.attribute(attr, node.props)
	}
	for _, rel := range rec.Relationships {
		edge, err := l.edge(ctx, rel.Name)
		if err != nil {
			return err
		}
		if !edge.ok {
			l.warn("Relationship '%s' not in schema.", rel.Name)
			continue
		}
		for _, attr := range rel.Attributes {
			l.attribute(attr, edge.props)
		}
	}
	return nil
}

// Lint checks a concepts file against schema. Problems in the data are
// reported as warnings, never as errors; undecodable lines are skipped.
// Only failing schema lookups and read errors abort the check.
func Lint(ctx context.Context, r io.Reader, name string, schema Schema) (*LintReport, error) {
	l := &linter{
		schema:   schema,
		nodes:    make(map[string]schemaEntry),
		edges:    make(map[string]schemaEntry),
		warnings: make(map[string]struct{}),
	}
	report := &LintReport{File: name}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		data := bytes.TrimSpace(scanner.Bytes())
		if len(data) == 0 {
			continue
		}
		var rec jsonl.Record
		if err := json.Unmarshal(data, &rec); err != nil {
			l.warn("Bad JSON at line %d. Skipping...", line)
			continue
		}
		report.Concepts++
		if err := l.record(ctx, rec); err != nil {
			return nil, fmt.Errorf("%s:%d: %w", name, line, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}

	report.Warnings = slices.Sorted(maps.Keys(l.warnings))
	return report, nil
}

// ErrorFile is where the warnings of a checked file are saved.
func ErrorFile(path string) string {
	return path + ".error"
}

// WriteErrorFile saves the warnings next to the checked file, one warning
// per line prefixed with the file name. Nothing is written for a clean
// report.
func (r *LintReport) WriteErrorFile() (string, error) {
	if len(r.Warnings) == 0 {
		return "", nil
	}
	path := ErrorFile(r.File)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	out := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Output:    f,
		Prefix:    filepath.Base(r.File),
		Plain:     true,
		WarnLevel: true,
	})
	for _, w := range r.Warnings {
		out.Warn(w)
	}
	return path, nil
}
