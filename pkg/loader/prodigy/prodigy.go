package prodigy

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"slices"

	"github.com/OFFIS-RIT/idisk/backend/pkg/common"
	"github.com/OFFIS-RIT/idisk/backend/pkg/loader"
)

// AcceptEqual is the label annotators pick for two concepts that denote
// the same entity.
const AcceptEqual = 1

type TaskTerm struct {
	Term     string `json:"term"`
	Source   string `json:"src"`
	SourceID string `json:"src_id"`
}

// Task presents one candidate connection for manual review. InputHash is
// the position of the connection in its connections file.
type Task struct {
	InputHash int      `json:"_input_hash"`
	Ing1      TaskTerm `json:"ing1"`
	Ing2      TaskTerm `json:"ing2"`
	MatchedOn []string `json:"matched_on"`
}

// Annotation is a reviewed task as exported by the annotation tool. Only
// the fields needed to filter connections are decoded.
type Annotation struct {
	InputHash int    `json:"_input_hash"`
	Answer    string `json:"answer"`
	Accept    []int  `json:"accept"`
}

// Accepted reports whether the reviewer marked the pair as equal.
func (a Annotation) Accepted() bool {
	return a.Answer == "accept" && slices.Contains(a.Accept, AcceptEqual)
}

func taskTerm(c *common.Concept) TaskTerm {
	a := c.PreferredAtom()
	return TaskTerm{Term: a.Term, Source: a.Source, SourceID: a.SourceID}
}

// NewTask builds the review task of connection k between a and b.
func NewTask(k int, a, b *common.Concept) Task {
	terms := b.Terms()
	matched := make([]string, 0)
	for term := range a.Terms() {
		if _, ok := terms[term]; ok {
			matched = append(matched, term)
		}
	}
	slices.Sort(matched)

	return Task{
		InputHash: k,
		Ing1:      taskTerm(a),
		Ing2:      taskTerm(b),
		MatchedOn: matched,
	}
}

// WriteTasks writes one task per connection as JSON lines. Every connection
// is checked against concepts before anything is written.
func WriteTasks(w io.Writer, concepts []*common.Concept, cnxs []common.Connection) (int, error) {
	if err := common.CheckConnections(cnxs, len(concepts)); err != nil {
		return 0, err
	}

	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	enc.SetEscapeHTML(false)
	for k, c := range cnxs {
		if err := enc.Encode(NewTask(k, concepts[c.I], concepts[c.J])); err != nil {
			return k, fmt.Errorf("failed to encode task %d: %w", k, err)
		}
	}
	if err := bw.Flush(); err != nil {
		return len(cnxs), fmt.Errorf("failed to write tasks: %w", err)
	}
	return len(cnxs), nil
}

// ReadAnnotations decodes annotation JSON lines. Blank lines are skipped.
func ReadAnnotations(r io.Reader) ([]Annotation, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var anns []Annotation
	line := 0
	for scanner.Scan() {
		line++
		data := bytes.TrimSpace(scanner.Bytes())
		if len(data) == 0 {
			continue
		}
		var ann Annotation
		if err := json.Unmarshal(data, &ann); err != nil {
			return nil, fmt.Errorf("line %d: failed to decode annotation: %w", line, err)
		}
		anns = append(anns, ann)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read annotations: %w", err)
	}
	return anns, nil
}

// LoadAnnotations reads an annotations SourceFile through its loader.
func LoadAnnotations(ctx context.Context, file loader.SourceFile) ([]Annotation, error) {
	content, err := file.GetContent(ctx)
	if err != nil {
		return nil, err
	}
	anns, err := ReadAnnotations(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", file.FilePath, err)
	}
	return anns, nil
}
