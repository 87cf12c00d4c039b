package syncer

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"musicfree/internal/library"
	"musicfree/internal/remote"
)

type writeCall struct {
	target  remote.Target
	files   map[string][]byte
	message string
}

type fakeRemote struct {
	mu       sync.Mutex
	doc      *remote.Document
	fetchErr error
	writeErr error
	writes   []writeCall
	revision int
	// entered, when set, is closed as the first Fetch starts.
	entered chan struct{}
	// block, when set, is received from before Fetch returns.
	block chan struct{}
}

func (f *fakeRemote) Fetch(ctx context.Context, target remote.Target, name string) (*remote.Document, error) {
	f.mu.Lock()
	entered := f.entered
	f.entered = nil
	f.mu.Unlock()
	if entered != nil {
		close(entered)
	}
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	if f.doc == nil {
		return nil, nil
	}
	cp := *f.doc
	return &cp, nil
}

func (f *fakeRemote) Write(ctx context.Context, target remote.Target, files map[string][]byte, message string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return "", f.writeErr
	}
	f.writes = append(f.writes, writeCall{target: target, files: files, message: message})
	f.revision++
	sha := fmt.Sprintf("rev-%d", f.revision)
	f.doc = &remote.Document{Content: files[FileName], SHA: sha}
	return sha, nil
}

func (f *fakeRemote) writeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.writes)
}

func (f *fakeRemote) setConfig(cfg library.Config, sha string) {
	data, err := cfg.Marshal()
	if err != nil {
		panic(err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.doc = &remote.Document{Content: data, SHA: sha}
}

func (f *fakeRemote) written(i int) library.Config {
	f.mu.Lock()
	defer f.mu.Unlock()
	cfg, err := library.ParseConfig(f.writes[i].files[FileName])
	if err != nil {
		panic(err)
	}
	return cfg
}

type fakeAssets struct {
	mu        sync.Mutex
	existing  map[string]bool
	existsErr error
	failAudio map[string]bool
	audios    []string
	covers    []string
}

func newFakeAssets(existing ...string) *fakeAssets {
	f := &fakeAssets{existing: make(map[string]bool), failAudio: make(map[string]bool)}
	for _, p := range existing {
		f.existing[p] = true
	}
	return f
}

func (f *fakeAssets) PathExists(ctx context.Context, path string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.existsErr != nil {
		return false, f.existsErr
	}
	return f.existing[path], nil
}

func (f *fakeAssets) DownloadAudio(ctx context.Context, audio library.Audio) (library.LocalAudio, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.audios = append(f.audios, audio.ID)
	if f.failAudio[audio.ID] {
		return library.LocalAudio{}, errors.New("download failed")
	}
	path := "audios/" + audio.ID + ".mp3"
	f.existing[path] = true
	return library.LocalAudio{Audio: audio, Path: path}, nil
}

func (f *fakeAssets) DownloadCover(ctx context.Context, url, platform string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.covers = append(f.covers, url)
	path := "covers/" + platform + "/" + fmt.Sprint(len(f.covers)) + ".jpg"
	f.existing[path] = true
	return path, nil
}

type memoryStore struct {
	mu       sync.Mutex
	lib      library.Config
	params   Params
	baseline *library.Config
	runs     []Run
	saveErr  error
}

func (m *memoryStore) LoadLibrary(ctx context.Context) (library.Config, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lib.Clone(), nil
}

func (m *memoryStore) SaveLibrary(ctx context.Context, cfg library.Config) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.lib = cfg.Clone()
	return nil
}

func (m *memoryStore) LoadParams(ctx context.Context) (Params, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.params, nil
}

func (m *memoryStore) SaveParams(ctx context.Context, params Params) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.params = params
	return nil
}

func (m *memoryStore) LoadBaseline(ctx context.Context) (*library.Config, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.baseline == nil {
		return nil, nil
	}
	cp := m.baseline.Clone()
	return &cp, nil
}

func (m *memoryStore) SaveBaseline(ctx context.Context, cfg library.Config) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := cfg.Clone()
	m.baseline = &cp
	return nil
}

func (m *memoryStore) ClearBaseline(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.baseline = nil
	return nil
}

func (m *memoryStore) RecordRun(ctx context.Context, run Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append([]Run{run}, m.runs...)
	return nil
}

func (m *memoryStore) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit > 0 && limit < len(m.runs) {
		return append([]Run(nil), m.runs[:limit]...), nil
	}
	return append([]Run(nil), m.runs...), nil
}
