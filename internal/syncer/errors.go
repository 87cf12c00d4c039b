package syncer

import (
	"errors"
	"fmt"
)

var (
	// ErrOffline matches any *OfflineError.
	ErrOffline = errors.New("remote offline")
	// ErrSyncInProgress is returned when a pass is requested while one is running.
	ErrSyncInProgress = errors.New("sync already in progress")
	// ErrNotConfigured is returned when no repository has been set up.
	ErrNotConfigured = errors.New("sync repository not configured")
	// ErrInspectUnsupported is returned when the transport cannot describe
	// the remote file.
	ErrInspectUnsupported = errors.New("transport does not support inspection")
)

// OfflineError reports that the remote could not be reached before anything
// was written. Local state is unaffected.
type OfflineError struct {
	Err error
}

func (e *OfflineError) Error() string {
	return fmt.Sprintf("remote offline: %v", e.Err)
}

func (e *OfflineError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrOffline) hold for every OfflineError.
func (e *OfflineError) Is(target error) bool {
	return target == ErrOffline
}
