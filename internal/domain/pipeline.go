package domain

// RunState is the lifecycle state of a conversion run.
type RunState string

const (
	RunStateIdle                RunState = "idle"
	RunStateRunning             RunState = "running"
	RunStateCompleted           RunState = "completed"
	RunStateCompletedWithErrors RunState = "completed_with_errors"
	RunStateCancelled           RunState = "cancelled"
	RunStateFailed              RunState = "failed"
)

// Terminal reports whether the state is a final outcome.
func (s RunState) Terminal() bool {
	switch s {
	case RunStateCompleted, RunStateCompletedWithErrors, RunStateCancelled, RunStateFailed:
		return true
	}
	return false
}

// EventKind identifies a pipeline event posted to the control surface.
type EventKind string

const (
	EventPageCountKnown EventKind = "page_count_known"
	EventPreviewReady   EventKind = "preview_ready"
	EventStatusChanged  EventKind = "status_changed"
	EventBatchCommitted EventKind = "batch_committed"
	EventRunFinished    EventKind = "run_finished"
	EventError          EventKind = "error"
)

// Event is a typed message posted from the pipeline goroutine to the
// control surface. The pipeline never touches control-surface state
// directly; events are the only channel back.
type Event struct {
	Kind      EventKind `json:"kind"`
	Message   string    `json:"message,omitempty"`
	Page      int       `json:"page,omitempty"`       // 1-based, for page-scoped events
	PageCount int       `json:"page_count,omitempty"` // for page_count_known
	Text      string    `json:"text,omitempty"`       // for batch_committed
	Progress  int       `json:"progress,omitempty"`   // pages attempted so far in the run
	Outcome   RunState  `json:"outcome,omitempty"`    // for run_finished
	ErrorKind string    `json:"error_kind,omitempty"` // for error events
}

// DocumentInfo describes the currently loaded document.
type DocumentInfo struct {
	Path      string   `json:"path"`
	FileType  FileType `json:"file_type"`
	PageCount int      `json:"page_count"`
}

// RunStatus is a point-in-time snapshot of a conversion run.
type RunStatus struct {
	RunID          string   `json:"run_id"`
	State          RunState `json:"state"`
	FromPage       int      `json:"from_page"`
	ToPage         int      `json:"to_page"`
	BatchSize      int      `json:"batch_size"`
	PagesAttempted int      `json:"pages_attempted"`
	PagesTotal     int      `json:"pages_total"`
	Message        string   `json:"message,omitempty"`
}

// StatusSnapshot bundles document and run state for the control surface.
type StatusSnapshot struct {
	Document *DocumentInfo `json:"document,omitempty"`
	Run      *RunStatus    `json:"run,omitempty"`
}
