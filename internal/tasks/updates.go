package tasks

import "fmt"

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Phase enumerates the reconciliation state machine. A run moves forward
// through the phases in order; Failed is reachable from any of them.
type Phase int

const (
	Idle Phase = iota
	FetchingRemote
	Recreating
	Reconciling
	Uploading
	CommittingBaseline
	Done
	Failed
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case FetchingRemote:
		return "fetching_remote"
	case Recreating:
		return "recreating"
	case Reconciling:
		return "reconciling"
	case Uploading:
		return "uploading"
	case CommittingBaseline:
		return "committing_baseline"
	case Done:
		return "done"
	case Failed:
		return "failed"
	default:
		return ""
	}
}

func fetchingRemoteUpdate(name string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchingRemote,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Fetching remote state for %s...", name),
	}
}

func recreatingUpdate(name string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Recreating,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Creating remote playlist for %s...", name),
	}
}

func reconcilingUpdate(step, total int, message string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Reconciling,
		Step:    step,
		Total:   total,
		Message: message,
	}
}

func uploadingUpdate(name string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Uploading,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Uploading cover image for %s...", name),
	}
}

func committingUpdate(name string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   CommittingBaseline,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Recording baseline for %s...", name),
	}
}

func doneUpdate(result *SyncResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Done,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Sync complete: +%d -%d tracks", result.TracksAdded, result.TracksRemoved),
		Data:    result,
	}
}

func failedUpdate(err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Failed,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Sync failed: %v", err),
	}
}

func syncAllUpdate(step, total int, name string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Reconciling,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Syncing: %s...", step, total, name),
	}
}

func syncAllCompletedUpdate(step, total int, name string, result *SyncResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Done,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s (+%d -%d)", step, total, name, result.TracksAdded, result.TracksRemoved),
		Data:    result,
	}
}

func syncAllFailedUpdate(step, total int, name string, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Failed,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, name, err),
	}
}
