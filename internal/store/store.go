// Package store persists the local library, the sync params, the baseline
// of the last successful pass and the run history.
package store

import (
	"errors"
	"fmt"

	"musicfree/internal/library"
	"musicfree/internal/syncer"
)

// Document names shared by both backends.
const (
	libraryDoc  = "library"
	paramsDoc   = "sync"
	baselineDoc = "baseline"
)

// DefaultRunLimit caps the run history kept by the file store and the page
// size used when callers ask for no limit.
const DefaultRunLimit = 50

// ErrNotFound signals a missing document.
var ErrNotFound = errors.New("document not found")

var (
	_ syncer.Store = (*PGStore)(nil)
	_ syncer.Store = (*FileStore)(nil)
)

func decodeLibrary(name string, data []byte) (library.Config, error) {
	cfg, err := library.ParseConfig(data)
	if err != nil {
		return library.Config{}, fmt.Errorf("decode %s: %w", name, err)
	}
	return cfg, nil
}

func runLimit(limit int) int {
	if limit <= 0 || limit > DefaultRunLimit {
		return DefaultRunLimit
	}
	return limit
}
