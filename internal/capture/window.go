package capture

import (
	"time"

	"mothtrap/internal/detection"
	"mothtrap/internal/storage"
)

// WindowState tracks the lifecycle of one capture window.
type WindowState string

const (
	WindowPending      WindowState = "pending"
	WindowCapturing    WindowState = "capturing"
	WindowJoined       WindowState = "joined"
	WindowCommitted    WindowState = "committed"
	WindowDiscarded    WindowState = "discarded"
	WindowFailedCommit WindowState = "failed_commit"
)

// Terminal reports whether the state is an end state for its window.
func (s WindowState) Terminal() bool {
	switch s {
	case WindowCommitted, WindowDiscarded, WindowFailedCommit:
		return true
	default:
		return false
	}
}

// TaskStatus classifies how one capture task ended.
type TaskStatus string

const (
	// TaskOK: the task ran and finalized its container.
	TaskOK TaskStatus = "ok"
	// TaskFailed: output was abandoned for this window; Err carries the
	// failure marker.
	TaskFailed TaskStatus = "failed"
	// TaskSkipped: the peripheral was unavailable and the task was a no-op.
	TaskSkipped TaskStatus = "skipped"
)

// TaskResult is the immutable summary a capture task hands over after its
// done flag is set. Frames counts video frames; Bytes counts audio PCM bytes
// or video data bytes respectively.
type TaskResult struct {
	Status TaskStatus
	Frames int
	Bytes  int64
	Err    error
}

// Window is one bounded interval of synchronized audio+video acquisition.
// Exactly one window may be in state WindowCapturing system-wide; the
// orchestrator enforces this.
type Window struct {
	Cycle      uint64
	Start      time.Time
	Duration   time.Duration
	FrameRate  int
	SampleRate int

	State    WindowState
	Degraded bool // hard timeout hit; data may be truncated
	Persist  bool // latched once true, never re-evaluated

	Trigger *detection.Event
	Video   TaskResult
	Audio   TaskResult
	Stored  storage.CommitResult
}

// Stamp returns the timestamp permanent artifacts are named from: the trigger
// event when there is one, otherwise the window start.
func (w *Window) Stamp() time.Time {
	if w.Trigger != nil {
		return w.Trigger.Timestamp
	}
	return w.Start
}

// Sequence returns the detection sequence associated with the window, zero
// when it never had a trigger.
func (w *Window) Sequence() uint64 {
	if w.Trigger != nil {
		return w.Trigger.Sequence
	}
	return 0
}
