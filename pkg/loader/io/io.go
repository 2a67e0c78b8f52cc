package io

import (
	"context"
	"os"
	"sync"

	"github.com/OFFIS-RIT/idisk/backend/pkg/loader"

	"golang.org/x/sync/singleflight"
)

// IOFileLoader loads files directly from the local filesystem with caching.
type IOFileLoader struct {
	cache   map[string][]byte
	cacheMu sync.RWMutex
	group   singleflight.Group
}

// NewIOFileLoader creates a new filesystem-based file loader.
func NewIOFileLoader() *IOFileLoader {
	return &IOFileLoader{
		cache: make(map[string][]byte),
	}
}

// GetFileContent reads the file content from the filesystem. Results are cached.
func (l *IOFileLoader) GetFileContent(ctx context.Context, file loader.SourceFile) ([]byte, error) {
	key := loader.CacheKey(file)

	l.cacheMu.RLock()
	if cached, ok := l.cache[key]; ok {
		l.cacheMu.RUnlock()
		return cached, nil
	}
	l.cacheMu.RUnlock()

	result, err, _ := l.group.Do(key, func() (any, error) {
		l.cacheMu.RLock()
		if cached, ok := l.cache[key]; ok {
			l.cacheMu.RUnlock()
			return cached, nil
		}
		l.cacheMu.RUnlock()

		if err := ctx.Err(); err != nil {
			return nil, err
		}
		result, err := os.ReadFile(file.FilePath)
		if err != nil {
			return nil, err
		}

		l.cacheMu.Lock()
		l.cache[key] = result
		l.cacheMu.Unlock()

		return result, nil
	})
	if err != nil {
		return nil, err
	}

	return result.([]byte), nil
}

// Forget drops a cached file, e.g. after it was rewritten.
func (l *IOFileLoader) Forget(file loader.SourceFile) {
	l.cacheMu.Lock()
	delete(l.cache, loader.CacheKey(file))
	l.cacheMu.Unlock()
}
