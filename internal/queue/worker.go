package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rabbitmq/amqp091-go"

	"github.com/OFFIS-RIT/idisk/backend/internal/storage"
	"github.com/OFFIS-RIT/idisk/backend/internal/util"
	"github.com/OFFIS-RIT/idisk/backend/pkg/common"
	"github.com/OFFIS-RIT/idisk/backend/pkg/graph"
	"github.com/OFFIS-RIT/idisk/backend/pkg/leaselock"
	"github.com/OFFIS-RIT/idisk/backend/pkg/loader"
	"github.com/OFFIS-RIT/idisk/backend/pkg/loader/csv"
	"github.com/OFFIS-RIT/idisk/backend/pkg/loader/jsonl"
	"github.com/OFFIS-RIT/idisk/backend/pkg/loader/prodigy"
	s3loader "github.com/OFFIS-RIT/idisk/backend/pkg/loader/s3"
	"github.com/OFFIS-RIT/idisk/backend/pkg/logger"
	"github.com/OFFIS-RIT/idisk/backend/pkg/store"
	neo4jstore "github.com/OFFIS-RIT/idisk/backend/pkg/store/neo4j"
	pgstore "github.com/OFFIS-RIT/idisk/backend/pkg/store/pgx"
	"github.com/OFFIS-RIT/idisk/backend/pkg/store/rrf"
)

// Worker processes job messages. Neo4j is optional; jobs asking for a
// Neo4j export fail without it.
type Worker struct {
	S3      *awss3.Client
	Conn    *pgxpool.Pool
	Channel *amqp091.Channel
	Graph   *graph.GraphClient
	Vocab   *common.Vocabulary
	Neo4j   *neo4jstore.Client

	// ParallelFiles bounds concurrent S3 reads of one job.
	ParallelFiles int
	LockTTL       time.Duration
}

// Handle dispatches body to the processor of queueName.
func (w *Worker) Handle(ctx context.Context, queueName string, body []byte) error {
	switch queueName {
	case MergeQueue:
		return w.ProcessMergeMessage(ctx, body)
	case ExportQueue:
		return w.ProcessExportMessage(ctx, body)
	case DeleteQueue:
		return w.ProcessDeleteMessage(ctx, body)
	default:
		return fmt.Errorf("unknown queue %s", queueName)
	}
}

func (w *Worker) lockOptions() leaselock.Options {
	return leaselock.Options{
		TTL:         w.LockTTL,
		Wait:        true,
		WaitJitter:  250 * time.Millisecond,
		TokenPrefix: "worker",
	}
}

// runJob claims the job, runs fn under the lease of kb and records the
// outcome. A job that is already running or completed is skipped.
func (w *Worker) runJob(ctx context.Context, correlationID, kb string, fn func(ctx context.Context) (*JobEvent, error)) error {
	jobs := pgstore.NewJobStore(w.Conn)
	claimed, err := jobs.ClaimJob(ctx, correlationID)
	if err != nil {
		return err
	}
	if !claimed {
		logger.Info("[Queue] Skipping job: already claimed or finished", "correlation_id", correlationID)
		return nil
	}

	var event *JobEvent
	err = leaselock.New(w.Conn).WithLease(ctx, leaselock.KBKey(kb), w.lockOptions(), func(ctx context.Context) error {
		var err error
		event, err = fn(ctx)
		return err
	})
	if err != nil {
		failCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if failErr := jobs.FailJob(failCtx, correlationID, err); failErr != nil {
			logger.Warn("[Queue] Failed to mark job as failed", "correlation_id", correlationID, "err", failErr)
		}
		w.publish(JobEvent{CorrelationID: correlationID, KnowledgeBase: kb, Status: string(pgstore.JobFailed), Error: err.Error()})
		return err
	}

	if err := jobs.CompleteJob(ctx, correlationID, event.Concepts); err != nil {
		return err
	}
	event.CorrelationID = correlationID
	event.KnowledgeBase = kb
	event.Status = string(pgstore.JobCompleted)
	w.publish(*event)
	return nil
}

func (w *Worker) publish(event JobEvent) {
	if w.Channel == nil {
		return
	}
	body, err := json.Marshal(event)
	if err != nil {
		logger.Warn("[Queue] Failed to encode job event", "err", err)
		return
	}
	_, err = util.Retry(3, func() (struct{}, error) {
		return struct{}{}, PublishTopic(w.Channel, "job."+event.Status, body)
	})
	if err != nil {
		logger.Warn("[Queue] Failed to publish job event", "correlation_id", event.CorrelationID, "err", err)
	}
}

func (w *Worker) storage() *pgstore.ConceptDBStorage {
	return pgstore.NewConceptDBStorageWithConnection(w.Conn, pgstore.WithVocabulary(w.Vocab))
}

// ProcessMergeMessage builds a knowledge base from concept files, merges
// it, stores the result and writes the requested exports.
func (w *Worker) ProcessMergeMessage(ctx context.Context, body []byte) error {
	msg, err := ParseMergeJob(body)
	if err != nil {
		return err
	}
	return w.runJob(ctx, msg.CorrelationID, msg.KnowledgeBase, func(ctx context.Context) (*JobEvent, error) {
		return w.merge(ctx, msg)
	})
}

func (w *Worker) merge(ctx context.Context, msg *MergeJobMsg) (*JobEvent, error) {
	start := time.Now()
	op, err := graph.ParseOperation(msg.Operation)
	if err != nil {
		return nil, err
	}

	s3l := s3loader.NewS3FileLoaderWithClient(storage.Bucket(), w.S3)
	files := make([]loader.SourceFile, 0, len(msg.ConceptFiles))
	for _, key := range msg.ConceptFiles {
		files = append(files, loader.NewConceptsFile(loader.NewSourceFileParams{FilePath: key, Loader: s3l}))
	}

	session := jsonl.NewSession(jsonl.NewSessionParams{Vocabulary: w.Vocab})
	concepts, err := session.LoadFiles(ctx, w.ParallelFiles, files...)
	if err != nil {
		return nil, err
	}

	cnxs, err := w.connections(ctx, s3l, msg, concepts)
	if err != nil {
		return nil, err
	}

	res, err := w.Graph.Merge(ctx, concepts, cnxs, op, msg.IgnoreTypes)
	if err != nil {
		return nil, err
	}
	merged := res.Concepts

	if msg.RemoveSource != "" {
		var stats graph.RemoveStats
		merged, stats = graph.RemoveSource(merged, msg.RemoveSource)
		logger.Info("[Queue] Removed source", "source", msg.RemoveSource, "concepts", stats.Concepts,
			"atoms", stats.Atoms, "attributes", stats.Attributes, "relationships", stats.Relationships)
	}

	if err := w.storage().SaveConcepts(ctx, msg.KnowledgeBase, merged); err != nil {
		return nil, err
	}

	outputs, err := w.export(ctx, ResultPrefix(msg.KnowledgeBase, msg.CorrelationID), msg.Exports, merged)
	if err != nil {
		return nil, err
	}

	logger.Info("[Queue] Merge job finished", "kb", msg.KnowledgeBase, "correlation_id", msg.CorrelationID,
		"input", len(concepts), "output", len(merged), "duration", util.FormatDuration(time.Since(start)))
	return &JobEvent{Concepts: len(merged), Outputs: outputs}, nil
}

// connections returns the connections of a merge job. nil lets the merge
// discover them.
func (w *Worker) connections(ctx context.Context, s3l loader.FileLoader, msg *MergeJobMsg, concepts []*common.Concept) ([]common.Connection, error) {
	var cnxs []common.Connection
	if msg.ConnectionsFile != "" {
		file := loader.NewConnectionsFile(loader.NewSourceFileParams{FilePath: msg.ConnectionsFile, Loader: s3l})
		loaded, err := csv.NewConnectionsLoader(s3l).Load(ctx, file)
		if err != nil {
			return nil, err
		}
		cnxs = append(make([]common.Connection, 0, len(loaded)), loaded...)
	}

	if msg.AnnotationsFile == "" && !msg.FilterBasic {
		return cnxs, nil
	}
	if cnxs == nil {
		var err error
		if cnxs, err = w.Graph.FindConnections(ctx, concepts, msg.IgnoreTypes); err != nil {
			return nil, err
		}
	}

	if msg.FilterBasic {
		filtered, err := graph.FilterBasic(concepts, cnxs, msg.IgnoreTypes)
		if err != nil {
			return nil, err
		}
		logger.Info("[Queue] Filtered connections", "before", len(cnxs), "after", len(filtered))
		cnxs = filtered
	}
	if msg.AnnotationsFile != "" {
		file := loader.NewAnnotationsFile(loader.NewSourceFileParams{FilePath: msg.AnnotationsFile, Loader: s3l})
		anns, err := prodigy.LoadAnnotations(ctx, file)
		if err != nil {
			return nil, err
		}
		before := len(cnxs)
		cnxs = graph.FilterAnnotated(cnxs, anns)
		logger.Info("[Queue] Applied annotations", "annotations", len(anns), "before", before, "after", len(cnxs))
	}
	return cnxs, nil
}

// export writes concepts below prefix in every requested format and
// returns the written keys.
func (w *Worker) export(ctx context.Context, prefix string, exports []string, concepts []*common.Concept) ([]string, error) {
	var outputs []string

	if WantsExport(exports, ExportJSONL) {
		key := prefix + "concepts.jsonl"
		if err := w.writeObject(ctx, key, func(out io.Writer) error {
			return jsonl.Write(out, concepts)
		}); err != nil {
			return nil, err
		}
		outputs = append(outputs, key)
	}

	if WantsExport(exports, ExportRRF) {
		exporter := rrf.NewExporter(func(name string) (io.WriteCloser, error) {
			return storage.NewObjectWriter(ctx, w.S3, prefix+"rrf/"+name), nil
		})
		if err := exporter.Export(ctx, concepts); err != nil {
			return nil, err
		}
		for _, name := range rrf.Files {
			outputs = append(outputs, prefix+"rrf/"+name)
		}
	}

	if WantsExport(exports, ExportNeo4j) {
		if w.Neo4j == nil {
			return nil, neo4jstore.ErrNotConfigured
		}
		var exporter store.Exporter = w.Neo4j
		if err := exporter.Export(ctx, concepts); err != nil {
			return nil, err
		}
		outputs = append(outputs, "neo4j")
	}
	return outputs, nil
}

func (w *Worker) writeObject(ctx context.Context, key string, write func(io.Writer) error) error {
	out := storage.NewObjectWriter(ctx, w.S3, key)
	if err := write(out); err != nil {
		return err
	}
	return out.Close()
}

// ProcessExportMessage exports a stored knowledge base.
func (w *Worker) ProcessExportMessage(ctx context.Context, body []byte) error {
	msg, err := ParseExportJob(body)
	if err != nil {
		return err
	}
	return w.runJob(ctx, msg.CorrelationID, msg.KnowledgeBase, func(ctx context.Context) (*JobEvent, error) {
		concepts, err := w.storage().LoadConcepts(ctx, msg.KnowledgeBase, common.NewIDAllocator())
		if err != nil {
			return nil, err
		}
		outputs, err := w.export(ctx, ResultPrefix(msg.KnowledgeBase, msg.CorrelationID), msg.Exports, concepts)
		if err != nil {
			return nil, err
		}
		return &JobEvent{Concepts: len(concepts), Outputs: outputs}, nil
	})
}

// ProcessDeleteMessage removes a stored knowledge base and its outputs.
func (w *Worker) ProcessDeleteMessage(ctx context.Context, body []byte) error {
	msg, err := ParseDeleteJob(body)
	if err != nil {
		return err
	}
	return w.runJob(ctx, msg.CorrelationID, msg.KnowledgeBase, func(ctx context.Context) (*JobEvent, error) {
		err := w.storage().DeleteKnowledgeBase(ctx, msg.KnowledgeBase)
		if errors.Is(err, store.ErrNotFound) {
			logger.Warn("[Queue] Knowledge base not stored, removing outputs only", "kb", msg.KnowledgeBase)
		} else if err != nil {
			return nil, err
		}
		if err := storage.DeleteFolder(ctx, w.S3, KnowledgeBasePrefix(msg.KnowledgeBase)); err != nil {
			return nil, err
		}
		logger.Info("[Queue] Deleted knowledge base", "kb", msg.KnowledgeBase)
		return &JobEvent{}, nil
	})
}
