// Package syncer reconciles the local library with the copy stored in a
// remote repository.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/rs/zerolog/log"

	"musicfree/internal/library"
	"musicfree/internal/remote"
)

const (
	// FileName is the name of the library document in the remote repository.
	FileName = "musicfree.json"
	// DefaultInterval is used when Params.Interval is not set.
	DefaultInterval = 5 * time.Minute
)

// Transport selects the repository client used for a pass.
type Transport string

const (
	TransportGitHub Transport = "github"
	TransportGit    Transport = "git"
)

// Valid reports whether t names a known transport. Empty means the default.
func (t Transport) Valid() bool {
	return t == "" || t == TransportGitHub || t == TransportGit
}

// Params carries the repository settings and the bookkeeping of the last
// successful pass.
type Params struct {
	RepoURL       string        `json:"repo_url"`
	Token         string        `json:"token"`
	Transport     Transport     `json:"transport,omitempty"`
	Interval      time.Duration `json:"interval"`
	LastSyncTime  *time.Time    `json:"last_sync_time,omitempty"`
	LastRemoteSHA string        `json:"last_remote_sha,omitempty"`
}

// Configured reports whether a repository is set.
func (p Params) Configured() bool {
	return p.RepoURL != ""
}

// Target returns the repository locator for the remote client.
func (p Params) Target() remote.Target {
	return remote.Target{RepoURL: p.RepoURL, Token: p.Token}
}

// SyncInterval returns the configured interval or DefaultInterval.
func (p Params) SyncInterval() time.Duration {
	if p.Interval <= 0 {
		return DefaultInterval
	}
	return p.Interval
}

// Assets is the device-local storage for downloaded audio files and covers.
type Assets interface {
	PathExists(ctx context.Context, path string) (bool, error)
	DownloadAudio(ctx context.Context, audio library.Audio) (library.LocalAudio, error)
	DownloadCover(ctx context.Context, url, platform string) (string, error)
}

// Result is the outcome of one successful pass.
type Result struct {
	Config    library.Config
	Params    Params
	Changed   bool
	Uploaded  bool
	Downloads DownloadReport
}

// Option configures a Syncer.
type Option func(*Syncer)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Syncer) {
		s.now = now
	}
}

// WithHostname overrides the device name used in commit messages.
func WithHostname(name string) Option {
	return func(s *Syncer) {
		s.hostname = name
	}
}

// WithTransport registers the client used when Params.Transport is t.
func WithTransport(t Transport, client remote.Client) Option {
	return func(s *Syncer) {
		s.clients[t] = client
	}
}

// Syncer runs sync passes. It keeps no state between passes; callers must
// not run two passes at once (see Runner).
type Syncer struct {
	client   remote.Client
	clients  map[Transport]remote.Client
	assets   Assets
	now      func() time.Time
	hostname string
}

// New creates a Syncer. client serves every transport without a dedicated
// client registered through WithTransport.
func New(client remote.Client, assets Assets, opts ...Option) *Syncer {
	s := &Syncer{
		client:  client,
		clients: make(map[Transport]remote.Client),
		assets:  assets,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.hostname == "" {
		if host, err := os.Hostname(); err == nil {
			s.hostname = host
		} else {
			s.hostname = "unknown"
		}
	}
	return s
}

func (s *Syncer) clientFor(t Transport) remote.Client {
	if c, ok := s.clients[t]; ok {
		return c
	}
	return s.client
}

// Sync reconciles local with the remote document and returns the merged
// library with updated params. baseline is the library as it was after the
// previous successful pass; when nil no local deletions are inferred.
func (s *Syncer) Sync(ctx context.Context, local library.Config, params Params, baseline *library.Config) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	if !params.Configured() {
		return Result{}, ErrNotConfigured
	}

	client := s.clientFor(params.Transport)
	target := params.Target()

	doc, err := client.Fetch(ctx, target, FileName)
	if err != nil {
		if errors.Is(err, remote.ErrUnreachable) {
			return Result{}, &OfflineError{Err: err}
		}
		return Result{}, fmt.Errorf("fetch %s: %w", FileName, err)
	}

	remoteCfg, ok := parseRemote(doc)
	if !ok {
		return s.bootstrap(ctx, client, local, params)
	}

	mask := library.Diff{}
	if baseline != nil {
		mask = library.Compute(*baseline, local).Mask()
	}

	merged := library.Merge(local, remoteCfg, mask)
	localChanged := !merged.Equal(local)
	remoteChanged := !merged.Equal(remoteCfg)

	out := params
	out.LastRemoteSHA = doc.SHA

	if remoteChanged {
		revision, err := s.write(ctx, client, target, merged)
		if err != nil {
			return Result{}, err
		}
		if revision != "" {
			out.LastRemoteSHA = revision
		}
	}

	var report DownloadReport
	if localChanged {
		merged, report = s.downloadMissing(ctx, local, remoteCfg, merged)
	}

	now := s.now()
	out.LastSyncTime = &now

	log.Info().
		Bool("local_changed", localChanged).
		Bool("remote_changed", remoteChanged).
		Int("downloads", report.Attempted).
		Int("download_failures", report.Failed).
		Msg("library synced")

	return Result{
		Config:    merged,
		Params:    out,
		Changed:   localChanged,
		Uploaded:  remoteChanged,
		Downloads: report,
	}, nil
}

func parseRemote(doc *remote.Document) (library.Config, bool) {
	if doc == nil {
		return library.Config{}, false
	}
	cfg, err := library.ParseConfig(doc.Content)
	if err != nil {
		log.Warn().Err(err).Msg("remote library is not valid, treating as absent")
		return library.Config{}, false
	}
	return cfg, true
}

func (s *Syncer) bootstrap(ctx context.Context, client remote.Client, local library.Config, params Params) (Result, error) {
	revision, err := s.write(ctx, client, params.Target(), local)
	if err != nil {
		return Result{}, err
	}

	now := s.now()
	out := params
	out.LastSyncTime = &now
	out.LastRemoteSHA = revision

	log.Info().Int("playlists", len(local.Playlists)).Msg("remote library bootstrapped")

	return Result{Config: local, Params: out, Uploaded: true}, nil
}

func (s *Syncer) write(ctx context.Context, client remote.Client, target remote.Target, cfg library.Config) (string, error) {
	data, err := cfg.Marshal()
	if err != nil {
		return "", err
	}
	message := fmt.Sprintf("Update from %s (%s) at %s", s.hostname, runtime.GOOS, s.now().UTC().Format(time.RFC3339))
	revision, err := client.Write(ctx, target, map[string][]byte{FileName: data}, message)
	if err != nil {
		return "", fmt.Errorf("write %s: %w", FileName, err)
	}
	return revision, nil
}

func isOffline(err error) bool {
	return errors.Is(err, ErrOffline)
}

// Inspect describes the remote library file for the transport selected by
// params. It returns nil when the file does not exist.
func (s *Syncer) Inspect(ctx context.Context, params Params) (*remote.FileInfo, error) {
	if !params.Configured() {
		return nil, ErrNotConfigured
	}
	inspector, ok := s.clientFor(params.Transport).(remote.Inspector)
	if !ok {
		return nil, ErrInspectUnsupported
	}
	info, err := inspector.Info(ctx, params.Target(), FileName)
	if err != nil {
		if errors.Is(err, remote.ErrUnreachable) {
			return nil, &OfflineError{Err: err}
		}
		return nil, fmt.Errorf("inspect %s: %w", FileName, err)
	}
	return info, nil
}
