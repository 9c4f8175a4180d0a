// Package sync implements the manifest-based WebDAV synchronization
// engine: incremental manifest building, pure diff planning,
// last-writer-wins conflict resolution, typed transfer execution and the
// orchestrator that drives a run end to end.
package sync

// State is the engine's per-run state machine, surfaced to callers
// through the progress callback:
//
//	idle → checking → syncing → {uploading, downloading} → resolving
//	     → completed | failed | cancelled
type State string

const (
	StateIdle        State = "idle"
	StateChecking    State = "checking"
	StateSyncing     State = "syncing"
	StateUploading   State = "uploading"
	StateDownloading State = "downloading"
	StateResolving   State = "resolving"
	StateCompleted   State = "completed"
	StateFailed      State = "failed"
	StateCancelled   State = "cancelled"
)

// Terminal reports whether the state ends a run.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed || s == StateCancelled
}

// Status is a snapshot of a run, carrying enough for a UI to render
// success, partial success or failure without exception internals.
type Status struct {
	State          State
	CurrentItem    string
	CompletedItems int
	TotalItems     int
	FailedItems    int
	ErrorMessage   string
	LastSuccessAt  int64
}

// ProgressFunc receives a Status snapshot on every state transition and
// after every per-item step. This is the engine's only UI-facing
// contract.
type ProgressFunc func(Status)
