package queue

import (
	"encoding/json"
	"fmt"
	"path"
	"slices"

	"github.com/go-playground/validator"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	ExportJSONL = "jsonl"
	ExportRRF   = "rrf"
	ExportNeo4j = "neo4j"
)

// MergeJobMsg asks the worker to build knowledge base KnowledgeBase from
// concept files stored in S3.
//
// Without ConnectionsFile the connections are discovered. An
// AnnotationsFile keeps only the connections a reviewer accepted.
type MergeJobMsg struct {
	CorrelationID   string   `json:"correlation_id" validate:"required"`
	KnowledgeBase   string   `json:"kb" validate:"required,max=128,excludesall=/\\,ne=.,ne=.."`
	Operation       string   `json:"operation" validate:"required,oneof=union intersection difference"`
	ConceptFiles    []string `json:"concept_files" validate:"required,min=1,dive,required"`
	ConnectionsFile string   `json:"connections_file,omitempty"`
	AnnotationsFile string   `json:"annotations_file,omitempty"`
	FilterBasic     bool     `json:"filter_basic,omitempty"`
	RemoveSource    string   `json:"remove_source,omitempty"`
	IgnoreTypes     []string `json:"ignore_types,omitempty"`
	Exports         []string `json:"exports,omitempty" validate:"dive,oneof=jsonl rrf neo4j"`
}

// ExportJobMsg exports a stored knowledge base.
type ExportJobMsg struct {
	CorrelationID string   `json:"correlation_id" validate:"required"`
	KnowledgeBase string   `json:"kb" validate:"required,max=128,excludesall=/\\,ne=.,ne=.."`
	Exports       []string `json:"exports" validate:"required,min=1,dive,oneof=jsonl rrf neo4j"`
}

type DeleteJobMsg struct {
	CorrelationID string `json:"correlation_id" validate:"required"`
	KnowledgeBase string `json:"kb" validate:"required,max=128,excludesall=/\\,ne=.,ne=.."`
}

// JobEvent is published on the event exchange when a job ends.
type JobEvent struct {
	CorrelationID string   `json:"correlation_id"`
	KnowledgeBase string   `json:"kb"`
	Status        string   `json:"status"`
	Concepts      int      `json:"concepts,omitempty"`
	Outputs       []string `json:"outputs,omitempty"`
	Error         string   `json:"error,omitempty"`
}

var validate = validator.New()

// NewCorrelationID returns a fresh job identifier.
func NewCorrelationID() (string, error) {
	return gonanoid.New()
}

func parse[T any](body []byte) (*T, error) {
	msg := new(T)
	if err := json.Unmarshal(body, msg); err != nil {
		return nil, fmt.Errorf("failed to decode message: %w", err)
	}
	if err := validate.Struct(msg); err != nil {
		return nil, fmt.Errorf("invalid message: %w", err)
	}
	return msg, nil
}

func ParseMergeJob(body []byte) (*MergeJobMsg, error) {
	return parse[MergeJobMsg](body)
}

func ParseExportJob(body []byte) (*ExportJobMsg, error) {
	return parse[ExportJobMsg](body)
}

func ParseDeleteJob(body []byte) (*DeleteJobMsg, error) {
	return parse[DeleteJobMsg](body)
}

// WantsExport reports whether exports names kind. An empty list means
// JSON lines only.
func WantsExport(exports []string, kind string) bool {
	if len(exports) == 0 {
		return kind == ExportJSONL
	}
	return slices.Contains(exports, kind)
}

// KnowledgeBasePrefix is the S3 prefix of every output of kb.
func KnowledgeBasePrefix(kb string) string {
	return path.Join("results", kb) + "/"
}

// ResultPrefix is the S3 prefix of the outputs of one job.
func ResultPrefix(kb, correlationID string) string {
	return path.Join("results", kb, correlationID) + "/"
}
