package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"
	"sync"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"

	"musicfree/internal/library"
	"musicfree/internal/syncer"
)

const (
	runsDoc = "runs"

	// the state directory lives next to the audios and covers folders
	stateDir = "state"
)

// FileStore keeps each document as a JSON file on a billy filesystem. It is
// used when no database is configured.
type FileStore struct {
	fs       billy.Filesystem
	defaults syncer.Params
	maxRuns  int

	mu sync.Mutex
}

// NewFile creates a FileStore rooted at fs.
func NewFile(fs billy.Filesystem, defaults syncer.Params) *FileStore {
	return &FileStore{fs: fs, defaults: defaults, maxRuns: DefaultRunLimit}
}

func docPath(name string) string {
	return path.Join(stateDir, name+".json")
}

func (s *FileStore) read(name string) ([]byte, error) {
	data, err := util.ReadFile(s.fs, docPath(name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return data, nil
}

// write replaces the document through a temp file so readers never see a
// partial file.
func (s *FileStore) write(name string, data []byte) error {
	if err := s.fs.MkdirAll(stateDir, 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	tmp, err := util.TempFile(s.fs, stateDir, "."+name+"-")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		_ = s.fs.Remove(tmpName)
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		_ = s.fs.Remove(tmpName)
		return fmt.Errorf("close %s: %w", name, err)
	}
	if err := s.fs.Rename(tmpName, docPath(name)); err != nil {
		_ = s.fs.Remove(tmpName)
		return fmt.Errorf("replace %s: %w", name, err)
	}
	return nil
}

// LoadLibrary returns the saved library or an empty one.
func (s *FileStore) LoadLibrary(ctx context.Context) (library.Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.read(libraryDoc)
	if errors.Is(err, ErrNotFound) {
		return library.Config{Playlists: []library.LocalPlaylist{}}, nil
	}
	if err != nil {
		return library.Config{}, err
	}
	return decodeLibrary(libraryDoc, data)
}

func (s *FileStore) SaveLibrary(ctx context.Context, cfg library.Config) error {
	data, err := cfg.Marshal()
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(libraryDoc, data)
}

// LoadParams returns the saved params or the defaults.
func (s *FileStore) LoadParams(ctx context.Context) (syncer.Params, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.read(paramsDoc)
	if errors.Is(err, ErrNotFound) {
		return s.defaults, nil
	}
	if err != nil {
		return syncer.Params{}, err
	}
	var params syncer.Params
	if err := json.Unmarshal(data, &params); err != nil {
		return syncer.Params{}, fmt.Errorf("decode %s: %w", paramsDoc, err)
	}
	return params, nil
}

func (s *FileStore) SaveParams(ctx context.Context, params syncer.Params) error {
	data, err := json.MarshalIndent(params, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", paramsDoc, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(paramsDoc, data)
}

// LoadBaseline returns nil when no pass has succeeded yet.
func (s *FileStore) LoadBaseline(ctx context.Context) (*library.Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.read(baselineDoc)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	cfg, err := decodeLibrary(baselineDoc, data)
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (s *FileStore) SaveBaseline(ctx context.Context, cfg library.Config) error {
	data, err := cfg.Marshal()
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(baselineDoc, data)
}

func (s *FileStore) ClearBaseline(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fs.Remove(docPath(baselineDoc)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", baselineDoc, err)
	}
	return nil
}

func (s *FileStore) loadRuns() ([]syncer.Run, error) {
	data, err := s.read(runsDoc)
	if errors.Is(err, ErrNotFound) {
		return []syncer.Run{}, nil
	}
	if err != nil {
		return nil, err
	}
	var runs []syncer.Run
	if err := json.Unmarshal(data, &runs); err != nil {
		return nil, fmt.Errorf("decode %s: %w", runsDoc, err)
	}
	return runs, nil
}

// RecordRun prepends the run and drops the oldest entries beyond the cap.
func (s *FileStore) RecordRun(ctx context.Context, run syncer.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	runs, err := s.loadRuns()
	if err != nil {
		return err
	}
	for _, existing := range runs {
		if existing.ID == run.ID {
			return ErrRunExists
		}
	}
	runs = append([]syncer.Run{run}, runs...)
	if len(runs) > s.maxRuns {
		runs = runs[:s.maxRuns]
	}

	data, err := json.Marshal(runs)
	if err != nil {
		return fmt.Errorf("encode %s: %w", runsDoc, err)
	}
	return s.write(runsDoc, data)
}

// ListRuns returns the most recent runs first.
func (s *FileStore) ListRuns(ctx context.Context, limit int) ([]syncer.Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	runs, err := s.loadRuns()
	if err != nil {
		return nil, err
	}
	if n := runLimit(limit); n < len(runs) {
		runs = runs[:n]
	}
	return runs, nil
}
