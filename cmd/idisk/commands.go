package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/OFFIS-RIT/idisk/backend/internal/util"
	"github.com/OFFIS-RIT/idisk/backend/pkg/common"
	"github.com/OFFIS-RIT/idisk/backend/pkg/graph"
	"github.com/OFFIS-RIT/idisk/backend/pkg/leaselock"
	"github.com/OFFIS-RIT/idisk/backend/pkg/loader/jsonl"
	"github.com/OFFIS-RIT/idisk/backend/pkg/loader/prodigy"
	"github.com/OFFIS-RIT/idisk/backend/pkg/logger"
	neo4jstore "github.com/OFFIS-RIT/idisk/backend/pkg/store/neo4j"
	pgstore "github.com/OFFIS-RIT/idisk/backend/pkg/store/pgx"
	"github.com/OFFIS-RIT/idisk/backend/pkg/store/rrf"
)

func commands() []command {
	return []command{
		{"find-connections", "write candidate connections between concepts as CSV", findConnectionsCmd},
		{"union", "merge connected concepts and keep every concept", setCmd(graph.OperationUnion)},
		{"intersection", "keep only concepts built from more than one input concept", setCmd(graph.OperationIntersection)},
		{"difference", "keep only concepts nothing was merged into", setCmd(graph.OperationDifference)},
		{"filter-connections", "drop connections without a shared preferred term", filterConnectionsCmd},
		{"to-prodigy", "write connections as annotation tasks", toProdigyCmd},
		{"filter-annotated", "keep connections accepted during annotation", filterAnnotatedCmd},
		{"remove-source", "remove all data of a source", removeSourceCmd},
		{"check", "lint concept files and write warnings to <file>.error", checkCmd},
		{"count", "count data elements of concept files", countCmd},
		{"schema", "print the JSON Schema of a concept record", schemaCmd},
		{"export-rrf", "write concepts as RRF tables", exportRRFCmd},
		{"export-neo4j", "write concepts to Neo4j", exportNeo4jCmd},
		{"export-pg", "store concepts as a knowledge base in PostgreSQL", exportPGCmd},
		{"load-pg", "read a knowledge base from PostgreSQL", loadPGCmd},
		{"migrate", "apply the PostgreSQL migrations", migrateCmd},
	}
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	return fs
}

func required(fs *flag.FlagSet, values map[string]bool) error {
	for name, ok := range values {
		if !ok {
			return fmt.Errorf("%w: %s needs -%s", errUsage, fs.Name(), name)
		}
	}
	return nil
}

func findConnectionsCmd(ctx context.Context, cfg *config, args []string) error {
	fs := newFlagSet("find-connections")
	var concepts listFlag
	fs.Var(&concepts, "concepts", "comma separated concept files")
	out := fs.String("out", "", "connections file, stdout if empty")
	cfg.graphFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := required(fs, map[string]bool{"concepts": len(concepts.values) > 0}); err != nil {
		return err
	}

	all, err := loadConcepts(ctx, cfg, concepts.values)
	if err != nil {
		return err
	}
	g, err := cfg.graphClient()
	if err != nil {
		return err
	}
	cnxs, err := g.Connections(ctx, all, cfg.ignoreTypes.values)
	if err != nil {
		return err
	}
	if err := writeConnectionSeq(*out, cnxs); err != nil {
		return err
	}
	return ctx.Err()
}

func setCmd(op graph.Operation) func(ctx context.Context, cfg *config, args []string) error {
	return func(ctx context.Context, cfg *config, args []string) error {
		fs := newFlagSet(string(op))
		var concepts listFlag
		fs.Var(&concepts, "concepts", "comma separated concept files")
		connections := fs.String("connections", "", "connections file, discovered if empty")
		out := fs.String("out", "", "result file, stdout if empty")
		cfg.graphFlags(fs)
		if err := fs.Parse(args); err != nil {
			return err
		}
		if err := required(fs, map[string]bool{"concepts": len(concepts.values) > 0}); err != nil {
			return err
		}

		all, err := loadConcepts(ctx, cfg, concepts.values)
		if err != nil {
			return err
		}
		var cnxs []common.Connection
		if *connections != "" {
			if cnxs, err = loadConnections(ctx, *connections); err != nil {
				return err
			}
			// an empty file merges nothing instead of discovering
			if cnxs == nil {
				cnxs = []common.Connection{}
			}
		}

		g, err := cfg.graphClient()
		if err != nil {
			return err
		}
		res, err := g.Merge(ctx, all, cnxs, op, cfg.ignoreTypes.values)
		if err != nil {
			return err
		}
		reportMissing(res.Missing)
		return writeConcepts(*out, res.Concepts)
	}
}

// reportMissing sums up the objects Repair already warned about one by one.
func reportMissing(n int) {
	if n > 0 {
		logger.Info("[Merge] Relationship objects not found after merge", "count", n)
	}
}

func filterConnectionsCmd(ctx context.Context, cfg *config, args []string) error {
	fs := newFlagSet("filter-connections")
	var concepts listFlag
	fs.Var(&concepts, "concepts", "comma separated concept files")
	connections := fs.String("connections", "", "connections file")
	out := fs.String("out", "", "filtered connections file, stdout if empty")
	fs.Var(&cfg.ignoreTypes, "ignore-types", "comma separated concept types whose connections are kept unchecked")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := required(fs, map[string]bool{"concepts": len(concepts.values) > 0, "connections": *connections != ""}); err != nil {
		return err
	}

	all, err := loadConcepts(ctx, cfg, concepts.values)
	if err != nil {
		return err
	}
	cnxs, err := loadConnections(ctx, *connections)
	if err != nil {
		return err
	}
	kept, err := graph.FilterBasic(all, cnxs, cfg.ignoreTypes.values)
	if err != nil {
		return err
	}
	logger.Info("[Filter] Filtered connections", "input", len(cnxs), "kept", len(kept))
	return writeConnections(*out, kept)
}

func toProdigyCmd(ctx context.Context, cfg *config, args []string) error {
	fs := newFlagSet("to-prodigy")
	var concepts listFlag
	fs.Var(&concepts, "concepts", "comma separated concept files")
	connections := fs.String("connections", "", "connections file, discovered if empty")
	out := fs.String("out", "", "tasks file, stdout if empty")
	cfg.graphFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := required(fs, map[string]bool{"concepts": len(concepts.values) > 0}); err != nil {
		return err
	}

	all, err := loadConcepts(ctx, cfg, concepts.values)
	if err != nil {
		return err
	}
	var cnxs []common.Connection
	if *connections != "" {
		cnxs, err = loadConnections(ctx, *connections)
	} else {
		var g *graph.GraphClient
		if g, err = cfg.graphClient(); err == nil {
			cnxs, err = g.FindConnections(ctx, all, cfg.ignoreTypes.values)
		}
	}
	if err != nil {
		return err
	}

	return writeFile(*out, func(w io.Writer) error {
		n, err := prodigy.WriteTasks(w, all, cnxs)
		if err == nil {
			logger.Info("[Prodigy] Wrote tasks", "tasks", n)
		}
		return err
	})
}

func filterAnnotatedCmd(ctx context.Context, cfg *config, args []string) error {
	fs := newFlagSet("filter-annotated")
	connections := fs.String("connections", "", "connections file")
	annotations := fs.String("annotations", "", "annotations file")
	out := fs.String("out", "", "accepted connections file, stdout if empty")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := required(fs, map[string]bool{"connections": *connections != "", "annotations": *annotations != ""}); err != nil {
		return err
	}

	cnxs, err := loadConnections(ctx, *connections)
	if err != nil {
		return err
	}
	anns, err := loadAnnotations(ctx, *annotations)
	if err != nil {
		return err
	}
	kept := graph.FilterAnnotated(cnxs, anns)
	logger.Info("[Filter] Kept annotated connections", "input", len(cnxs), "kept", len(kept))
	return writeConnections(*out, kept)
}

func removeSourceCmd(ctx context.Context, cfg *config, args []string) error {
	fs := newFlagSet("remove-source")
	var concepts listFlag
	fs.Var(&concepts, "concepts", "comma separated concept files")
	source := fs.String("source", "", "source abbreviation, e.g. NMCD")
	out := fs.String("out", "", "result file, stdout if empty")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := required(fs, map[string]bool{"concepts": len(concepts.values) > 0, "source": *source != ""}); err != nil {
		return err
	}

	all, err := loadConcepts(ctx, cfg, concepts.values)
	if err != nil {
		return err
	}
	kept, stats := graph.RemoveSource(all, *source)
	logger.Info("[Prune] Removed source", "source", *source, "concepts", stats.Concepts,
		"atoms", stats.Atoms, "attributes", stats.Attributes, "relationships", stats.Relationships)
	return writeConcepts(*out, kept)
}

func checkCmd(ctx context.Context, cfg *config, args []string) error {
	fs := newFlagSet("check")
	useNeo4j := fs.Bool("neo4j", false, "check against the schema of the Neo4j database")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return fmt.Errorf("%w: check needs at least one file", errUsage)
	}

	var schema graph.Schema = graph.VocabularySchema{Vocabulary: cfg.vocab}
	if *useNeo4j {
		neo, err := neo4jstore.NewClientFromEnv(ctx)
		if err != nil {
			return err
		}
		defer neo.Close(context.Background())
		schema = neo
	}

	for _, path := range fs.Args() {
		if err := checkFile(ctx, path, schema); err != nil {
			return err
		}
	}
	return nil
}

func checkFile(ctx context.Context, path string, schema graph.Schema) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	report, err := graph.Lint(ctx, f, path, schema)
	if err != nil {
		return err
	}
	errorFile, err := report.WriteErrorFile()
	if err != nil {
		return err
	}
	if errorFile != "" {
		logger.Warn("[Check] Found problems", "file", path, "warnings", len(report.Warnings), "report", errorFile)
		return nil
	}
	logger.Info("[Check] No problems found", "file", path)
	return nil
}

func countCmd(ctx context.Context, cfg *config, args []string) error {
	fs := newFlagSet("count")
	var concepts listFlag
	fs.Var(&concepts, "concepts", "comma separated concept files")
	out := fs.String("out", "", "counts file, stdout if empty")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := required(fs, map[string]bool{"concepts": len(concepts.values) > 0}); err != nil {
		return err
	}

	all, err := loadConcepts(ctx, cfg, concepts.values)
	if err != nil {
		return err
	}
	counts := graph.Count(all)
	return writeFile(*out, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(counts)
	})
}

func schemaCmd(ctx context.Context, cfg *config, args []string) error {
	fs := newFlagSet("schema")
	out := fs.String("out", "", "schema file, stdout if empty")
	if err := fs.Parse(args); err != nil {
		return err
	}

	schema, err := jsonl.Schema()
	if err != nil {
		return err
	}
	return writeFile(*out, func(w io.Writer) error {
		_, err := w.Write(append(schema, '\n'))
		return err
	})
}

func exportRRFCmd(ctx context.Context, cfg *config, args []string) error {
	fs := newFlagSet("export-rrf")
	var concepts listFlag
	fs.Var(&concepts, "concepts", "comma separated concept files")
	dir := fs.String("out", "", "output directory")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := required(fs, map[string]bool{"concepts": len(concepts.values) > 0, "out": *dir != ""}); err != nil {
		return err
	}

	all, err := loadConcepts(ctx, cfg, concepts.values)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(*dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", *dir, err)
	}
	return rrf.NewDirExporter(*dir).Export(ctx, all)
}

func exportNeo4jCmd(ctx context.Context, cfg *config, args []string) error {
	fs := newFlagSet("export-neo4j")
	var concepts listFlag
	fs.Var(&concepts, "concepts", "comma separated concept files")
	schemaFile := fs.String("schema", "", "cypher file applied to an empty database before the export")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := required(fs, map[string]bool{"concepts": len(concepts.values) > 0}); err != nil {
		return err
	}

	all, err := loadConcepts(ctx, cfg, concepts.values)
	if err != nil {
		return err
	}
	neo, err := neo4jstore.NewClientFromEnv(ctx)
	if err != nil {
		return err
	}
	defer neo.Close(context.Background())

	if *schemaFile != "" {
		cypher, err := os.ReadFile(*schemaFile)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", *schemaFile, err)
		}
		if err := neo.ApplySchema(ctx, string(cypher)); err != nil {
			return err
		}
	}
	return neo.Export(ctx, all)
}

func connectPG(ctx context.Context) (*pgxpool.Pool, error) {
	databaseURL := util.GetEnv("DATABASE_URL")
	if databaseURL == "" {
		return nil, errors.New("DATABASE_URL is not set")
	}
	if err := pgstore.Migrate(databaseURL); err != nil {
		return nil, err
	}
	return pgxpool.New(ctx, databaseURL)
}

func exportPGCmd(ctx context.Context, cfg *config, args []string) error {
	fs := newFlagSet("export-pg")
	var concepts listFlag
	fs.Var(&concepts, "concepts", "comma separated concept files")
	kb := fs.String("kb", "", "knowledge base name")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := required(fs, map[string]bool{"concepts": len(concepts.values) > 0, "kb": *kb != ""}); err != nil {
		return err
	}

	all, err := loadConcepts(ctx, cfg, concepts.values)
	if err != nil {
		return err
	}
	conn, err := connectPG(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	storage := pgstore.NewConceptDBStorageWithConnection(conn, pgstore.WithVocabulary(cfg.vocab))
	opts := leaselock.Options{Wait: true, TokenPrefix: "cli"}
	return leaselock.New(conn).WithLease(ctx, leaselock.KBKey(*kb), opts, func(ctx context.Context) error {
		return storage.SaveConcepts(ctx, *kb, all)
	})
}

func loadPGCmd(ctx context.Context, cfg *config, args []string) error {
	fs := newFlagSet("load-pg")
	kb := fs.String("kb", "", "knowledge base name")
	out := fs.String("out", "", "concepts file, stdout if empty")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := required(fs, map[string]bool{"kb": *kb != ""}); err != nil {
		return err
	}

	conn, err := connectPG(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	storage := pgstore.NewConceptDBStorageWithConnection(conn, pgstore.WithVocabulary(cfg.vocab))
	all, err := storage.LoadConcepts(ctx, *kb, common.NewIDAllocator())
	if err != nil {
		return err
	}
	return writeConcepts(*out, all)
}

func migrateCmd(ctx context.Context, cfg *config, args []string) error {
	fs := newFlagSet("migrate")
	if err := fs.Parse(args); err != nil {
		return err
	}
	databaseURL := util.GetEnv("DATABASE_URL")
	if databaseURL == "" {
		return errors.New("DATABASE_URL is not set")
	}
	return pgstore.Migrate(databaseURL)
}
