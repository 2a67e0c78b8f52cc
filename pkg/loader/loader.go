package loader

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

type SourceFileType string

const (
	SourceFileTypeConcepts    SourceFileType = "concepts"
	SourceFileTypeConnections SourceFileType = "connections"
	SourceFileTypeAnnotations SourceFileType = "annotations"
)

// SourceFile is an input of a knowledge base build: a JSON lines file of
// concept records, a connections CSV or a JSON lines file of annotations.
//
// The actual content is retrieved via the associated FileLoader.
type SourceFile struct {
	ID       string
	FilePath string
	FileType SourceFileType
	Loader   FileLoader
}

// NewSourceFileParams defines the input parameters for creating a new
// SourceFile.
type NewSourceFileParams struct {
	ID       string
	FilePath string
	Loader   FileLoader
}

func newSourceFile(params NewSourceFileParams, fileType SourceFileType) SourceFile {
	id := params.ID
	if id == "" {
		id = params.FilePath
	}
	return SourceFile{
		ID:       id,
		FilePath: params.FilePath,
		FileType: fileType,
		Loader:   params.Loader,
	}
}

// NewConceptsFile creates a SourceFile holding concept records.
func NewConceptsFile(params NewSourceFileParams) SourceFile {
	return newSourceFile(params, SourceFileTypeConcepts)
}

// NewConnectionsFile creates a SourceFile holding candidate connections.
func NewConnectionsFile(params NewSourceFileParams) SourceFile {
	return newSourceFile(params, SourceFileTypeConnections)
}

// NewAnnotationsFile creates a SourceFile holding curation annotations.
func NewAnnotationsFile(params NewSourceFileParams) SourceFile {
	return newSourceFile(params, SourceFileTypeAnnotations)
}

// GetContent retrieves the raw content of the file using its Loader.
func (f *SourceFile) GetContent(ctx context.Context) ([]byte, error) {
	if f.Loader == nil {
		return nil, fmt.Errorf("no loader configured for %s", f.FilePath)
	}
	return f.Loader.GetFileContent(ctx, *f)
}

// FileLoader defines the interface for loading the contents of a SourceFile.
// Implementations may load files from disk, cloud storage, or other sources.
type FileLoader interface {
	GetFileContent(ctx context.Context, file SourceFile) ([]byte, error)
}

func CacheKey(file SourceFile) string {
	return file.ID + ":" + file.FilePath
}

// GetContents fetches every file with at most parallel concurrent reads.
// The result keeps the order of files.
func GetContents(ctx context.Context, files []SourceFile, parallel int) ([][]byte, error) {
	contents := make([][]byte, len(files))
	g, gctx := errgroup.WithContext(ctx)
	if parallel > 0 {
		g.SetLimit(parallel)
	}
	for i := range files {
		g.Go(func() error {
			content, err := files[i].GetContent(gctx)
			if err != nil {
				return fmt.Errorf("failed to load %s: %w", files[i].FilePath, err)
			}
			contents[i] = content
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return contents, nil
}
