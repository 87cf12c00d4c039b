package syncer

import "time"

// Status is the state of the sync indicator.
type Status string

const (
	// StatusIdle means no pass has run yet.
	StatusIdle Status = "idle"
	// StatusSyncing means a pass is in flight.
	StatusSyncing Status = "syncing"
	// StatusSuccess means the last pass completed.
	StatusSuccess Status = "success"
	// StatusOffline means the last pass could not reach the remote; the
	// library was saved locally only.
	StatusOffline Status = "offline"
	// StatusError means the last pass failed after reaching the remote.
	StatusError Status = "error"
)

// String returns the string representation of Status
func (s Status) String() string {
	return string(s)
}

// IsTerminal returns true if the status is the outcome of a finished pass.
func (s Status) IsTerminal() bool {
	return s == StatusSuccess || s == StatusOffline || s == StatusError
}

// StatusFor classifies the outcome of a pass.
func StatusFor(err error) Status {
	switch {
	case err == nil:
		return StatusSuccess
	case isOffline(err):
		return StatusOffline
	default:
		return StatusError
	}
}

// StatusSnapshot is the observable sync state.
type StatusSnapshot struct {
	Status       Status     `json:"status"`
	LastSyncTime *time.Time `json:"last_sync_time,omitempty"`
	LastError    string     `json:"last_error,omitempty"`
	Changed      bool       `json:"changed"`
	Running      bool       `json:"running"`
}
