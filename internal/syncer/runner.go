package syncer

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"musicfree/internal/library"
	"musicfree/internal/logging"
	"musicfree/internal/remote"
)

// Store persists the local library, the sync params, the baseline of the
// last successful pass and the run history.
type Store interface {
	LoadLibrary(ctx context.Context) (library.Config, error)
	SaveLibrary(ctx context.Context, cfg library.Config) error
	LoadParams(ctx context.Context) (Params, error)
	SaveParams(ctx context.Context, params Params) error
	LoadBaseline(ctx context.Context) (*library.Config, error)
	SaveBaseline(ctx context.Context, cfg library.Config) error
	// ClearBaseline forgets the baseline so the next pass runs without a
	// deletion mask.
	ClearBaseline(ctx context.Context) error
	RecordRun(ctx context.Context, run Run) error
	ListRuns(ctx context.Context, limit int) ([]Run, error)
}

// Run is the history entry of one pass.
type Run struct {
	ID             string    `json:"id"`
	Manual         bool      `json:"manual"`
	StartedAt      time.Time `json:"started_at"`
	FinishedAt     time.Time `json:"finished_at"`
	Status         Status    `json:"status"`
	Changed        bool      `json:"changed"`
	Uploaded       bool      `json:"uploaded"`
	Downloaded     int       `json:"downloaded"`
	DownloadFailed int       `json:"download_failed"`
	AudioIDs       []string  `json:"audio_ids"`
	RemoteSHA      string    `json:"remote_sha,omitempty"`
	Error          string    `json:"error,omitempty"`
}

// Runner serializes sync passes and owns the persisted sync state. Library
// and params edits made while a pass is in flight are folded into its result
// instead of being overwritten.
type Runner struct {
	syncer *Syncer
	store  Store
	now    func() time.Time

	inflight sync.Mutex
	// set when edits were folded into a result that was already uploaded
	pending atomic.Bool
	// guards store reads and writes of library and params
	stateMu sync.Mutex

	mu       sync.RWMutex
	snapshot StatusSnapshot
	wake     chan struct{}
}

// NewRunner creates a Runner.
func NewRunner(s *Syncer, store Store) *Runner {
	return &Runner{
		syncer:   s,
		store:    store,
		now:      time.Now,
		snapshot: StatusSnapshot{Status: StatusIdle},
		wake:     make(chan struct{}, 1),
	}
}

// Snapshot returns the current sync state.
func (r *Runner) Snapshot() StatusSnapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshot
}

// Run performs one pass. It returns ErrSyncInProgress when a pass is already
// running.
func (r *Runner) Run(ctx context.Context, manual bool) (Run, error) {
	if !r.inflight.TryLock() {
		return Run{}, ErrSyncInProgress
	}
	defer r.inflight.Unlock()
	return r.run(ctx, manual)
}

// Trigger starts a pass in the background and reports whether it did. The
// pass outlives ctx cancellation.
func (r *Runner) Trigger(ctx context.Context, manual bool) bool {
	if !r.inflight.TryLock() {
		return false
	}
	go func() {
		defer r.inflight.Unlock()
		if _, err := r.run(context.WithoutCancel(ctx), manual); err != nil && !errors.Is(err, ErrNotConfigured) {
			log.Debug().Err(err).Msg("background sync failed")
		}
	}()
	return true
}

// Wait blocks until no pass is in flight.
func (r *Runner) Wait() {
	r.inflight.Lock()
	r.inflight.Unlock()
}

// run performs a pass and then follow-up passes for as long as edits made
// during the previous pass still have to be uploaded. It returns the entry of
// the first pass.
func (r *Runner) run(ctx context.Context, manual bool) (Run, error) {
	first, err := r.runOnce(ctx, manual)
	if err != nil {
		return first, err
	}
	for ctx.Err() == nil && r.pending.CompareAndSwap(true, false) {
		log.Info().Str("sync_run_id", first.ID).Msg("uploading edits made during sync")
		if _, err := r.runOnce(ctx, false); err != nil {
			log.Debug().Err(err).Msg("follow-up sync failed")
			break
		}
	}
	return first, nil
}

func (r *Runner) runOnce(ctx context.Context, manual bool) (Run, error) {
	entry := Run{ID: uuid.NewString(), Manual: manual, StartedAt: r.now()}
	ctx = logging.WithRunID(ctx, entry.ID)

	r.stateMu.Lock()
	local, err := r.store.LoadLibrary(ctx)
	var params Params
	if err == nil {
		params, err = r.store.LoadParams(ctx)
	}
	var baseline *library.Config
	if err == nil {
		baseline, err = r.store.LoadBaseline(ctx)
	}
	r.stateMu.Unlock()
	if err != nil {
		return r.finish(ctx, entry, Result{}, err)
	}
	if !params.Configured() {
		return entry, ErrNotConfigured
	}

	r.setStatus(func(s *StatusSnapshot) {
		s.Status = StatusSyncing
		s.Running = true
	})

	result, err := r.syncer.Sync(ctx, local, params, baseline)
	if err == nil {
		err = r.persist(ctx, local, result)
	}
	return r.finish(ctx, entry, result, err)
}

// persist saves the pass result. Edits stored since the pass loaded its
// input are merged on top of the result, with the pass input as baseline,
// and mark a follow-up pass. Params and baseline are left alone when the
// repository changed during the pass.
func (r *Runner) persist(ctx context.Context, local library.Config, result Result) error {
	r.stateMu.Lock()
	defer r.stateMu.Unlock()

	current, err := r.store.LoadLibrary(ctx)
	if err != nil {
		return err
	}
	merged := result.Config
	if !current.Equal(local) {
		merged = library.Merge(current, result.Config, library.Compute(local, current).Mask())
		r.pending.Store(true)
		log.Info().Msg("library edited during sync, folding edits into result")
	}
	if !merged.Equal(current) {
		if err := r.store.SaveLibrary(ctx, merged); err != nil {
			return err
		}
	}

	params, err := r.store.LoadParams(ctx)
	if err != nil {
		return err
	}
	if params.RepoURL != result.Params.RepoURL {
		log.Info().Msg("repository changed during sync, keeping the reset sync state")
		return nil
	}
	params.LastSyncTime = result.Params.LastSyncTime
	params.LastRemoteSHA = result.Params.LastRemoteSHA
	if err := r.store.SaveParams(ctx, params); err != nil {
		return err
	}
	return r.store.SaveBaseline(ctx, result.Config)
}

func (r *Runner) finish(ctx context.Context, entry Run, result Result, err error) (Run, error) {
	entry.FinishedAt = r.now()
	entry.Status = StatusFor(err)
	if err != nil {
		entry.Error = err.Error()
	} else {
		entry.Changed = result.Changed
		entry.Uploaded = result.Uploaded
		entry.Downloaded = result.Downloads.Attempted - result.Downloads.Failed
		entry.DownloadFailed = result.Downloads.Failed
		entry.AudioIDs = result.Downloads.AudioIDs
		entry.RemoteSHA = result.Params.LastRemoteSHA
	}

	r.setStatus(func(s *StatusSnapshot) {
		s.Status = entry.Status
		s.Running = false
		s.LastError = entry.Error
		if err == nil {
			s.Changed = result.Changed
			s.LastSyncTime = result.Params.LastSyncTime
		}
	})

	logging.SyncPass(entry.ID, entry.Status.String(), entry.Changed, entry.FinishedAt.Sub(entry.StartedAt), err)

	if recErr := r.store.RecordRun(ctx, entry); recErr != nil {
		log.Warn().Err(recErr).Str("sync_run_id", entry.ID).Msg("failed to record sync run")
	}
	return entry, err
}

func (r *Runner) setStatus(update func(*StatusSnapshot)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	update(&r.snapshot)
}

// Library returns the stored library.
func (r *Runner) Library(ctx context.Context) (library.Config, error) {
	r.stateMu.Lock()
	defer r.stateMu.Unlock()
	return r.store.LoadLibrary(ctx)
}

// UpdateLibrary applies fn to the stored library and saves the result.
func (r *Runner) UpdateLibrary(ctx context.Context, fn func(library.Config) (library.Config, error)) (library.Config, error) {
	r.stateMu.Lock()
	defer r.stateMu.Unlock()

	current, err := r.store.LoadLibrary(ctx)
	if err != nil {
		return library.Config{}, err
	}
	next, err := fn(current)
	if err != nil {
		return library.Config{}, err
	}
	if err := r.store.SaveLibrary(ctx, next); err != nil {
		return library.Config{}, err
	}
	return next, nil
}

// Params returns the stored sync params.
func (r *Runner) Params(ctx context.Context) (Params, error) {
	r.stateMu.Lock()
	defer r.stateMu.Unlock()
	return r.store.LoadParams(ctx)
}

// UpdateParams applies fn to the stored params and saves the result. An
// error from fn aborts the update. A change of repository drops the baseline
// and the recorded remote revision.
func (r *Runner) UpdateParams(ctx context.Context, fn func(Params) (Params, error)) (Params, error) {
	r.stateMu.Lock()
	defer r.stateMu.Unlock()

	current, err := r.store.LoadParams(ctx)
	if err != nil {
		return Params{}, err
	}
	next, err := fn(current)
	if err != nil {
		return Params{}, err
	}
	if next.RepoURL != current.RepoURL {
		next.LastRemoteSHA = ""
		next.LastSyncTime = nil
		if err := r.store.ClearBaseline(ctx); err != nil {
			return Params{}, err
		}
	}
	if err := r.store.SaveParams(ctx, next); err != nil {
		return Params{}, err
	}

	select {
	case r.wake <- struct{}{}:
	default:
	}
	return next, nil
}

// Runs returns the most recent run entries, newest first.
func (r *Runner) Runs(ctx context.Context, limit int) ([]Run, error) {
	return r.store.ListRuns(ctx, limit)
}

// Loop runs a pass every params interval until ctx is done. Ticks that find a
// pass in flight are skipped. Params changes restart the timer.
func (r *Runner) Loop(ctx context.Context) {
	for {
		interval := DefaultInterval
		if params, err := r.Params(ctx); err == nil {
			interval = params.SyncInterval()
		} else if ctx.Err() == nil {
			log.Warn().Err(err).Msg("failed to load sync params")
		}

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-r.wake:
			timer.Stop()
			continue
		case <-timer.C:
		}

		if _, err := r.Run(ctx, false); err != nil {
			switch {
			case errors.Is(err, ErrSyncInProgress):
				log.Debug().Msg("sync tick skipped, pass in flight")
			case errors.Is(err, ErrNotConfigured):
			default:
				log.Debug().Err(err).Msg("scheduled sync failed")
			}
		}
	}
}

// RemoteInfo describes the remote library file of the configured repository.
func (r *Runner) RemoteInfo(ctx context.Context) (*remote.FileInfo, error) {
	params, err := r.Params(ctx)
	if err != nil {
		return nil, err
	}
	return r.syncer.Inspect(ctx, params)
}
