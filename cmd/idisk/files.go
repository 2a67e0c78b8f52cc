package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"iter"
	"os"

	"github.com/OFFIS-RIT/idisk/backend/pkg/common"
	"github.com/OFFIS-RIT/idisk/backend/pkg/loader"
	"github.com/OFFIS-RIT/idisk/backend/pkg/loader/csv"
	loaderio "github.com/OFFIS-RIT/idisk/backend/pkg/loader/io"
	"github.com/OFFIS-RIT/idisk/backend/pkg/loader/jsonl"
	"github.com/OFFIS-RIT/idisk/backend/pkg/loader/prodigy"
)

var files = loaderio.NewIOFileLoader()

func sourceFile(path string) loader.NewSourceFileParams {
	return loader.NewSourceFileParams{FilePath: path, Loader: files}
}

// loadConcepts reads the concept files in order into one session. The
// positions of the returned concepts are the indices connections refer to.
func loadConcepts(ctx context.Context, cfg *config, paths []string) ([]*common.Concept, error) {
	sources := make([]loader.SourceFile, len(paths))
	for i, path := range paths {
		sources[i] = loader.NewConceptsFile(sourceFile(path))
	}
	s := jsonl.NewSession(jsonl.NewSessionParams{Vocabulary: cfg.vocab})
	return s.LoadFiles(ctx, cfg.parallel, sources...)
}

func loadConnections(ctx context.Context, path string) ([]common.Connection, error) {
	return csv.NewConnectionsLoader(files).Load(ctx, loader.NewConnectionsFile(sourceFile(path)))
}

func loadAnnotations(ctx context.Context, path string) ([]prodigy.Annotation, error) {
	return prodigy.LoadAnnotations(ctx, loader.NewAnnotationsFile(sourceFile(path)))
}

// writeFile creates path and hands a buffered writer to write. An empty
// path or "-" writes to stdout.
func writeFile(path string, write func(w io.Writer) error) error {
	if path == "" || path == "-" {
		bw := bufio.NewWriter(os.Stdout)
		if err := write(bw); err != nil {
			return err
		}
		return bw.Flush()
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	bw := bufio.NewWriter(f)
	if err := write(bw); err != nil {
		f.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}

func writeConcepts(path string, concepts []*common.Concept) error {
	return writeFile(path, func(w io.Writer) error {
		return jsonl.Write(w, concepts)
	})
}

func writeConnections(path string, cnxs []common.Connection) error {
	return writeConnectionSeq(path, csv.Seq(cnxs))
}

// writeConnectionSeq writes rows while cnxs produces them.
func writeConnectionSeq(path string, cnxs iter.Seq[common.Connection]) error {
	return writeFile(path, func(w io.Writer) error {
		_, err := csv.WriteConnections(w, cnxs)
		return err
	})
}
