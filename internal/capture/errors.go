package capture

import (
	"errors"
	"fmt"
	"strings"
)

// Failure categories. Every task failure is tagged with one of these markers
// so callers can classify without string matching. None of them is ever
// escalated to a process-fatal error.
var (
	// ErrSensorUnavailable: the peripheral could not be initialized. The
	// affected modality becomes a no-op; the window continues without it.
	ErrSensorUnavailable = errors.New("sensor unavailable")
	// ErrStorageWrite: writing capture output failed. The affected task's
	// output is abandoned for this window only.
	ErrStorageWrite = errors.New("storage write error")
	// ErrWindowTimeout: the window overran its hard deadline and was
	// finalized with partial data.
	ErrWindowTimeout = errors.New("window timeout")
	// ErrWindowActive: a window start was requested while one is in flight.
	ErrWindowActive = errors.New("capture window already active")
	// ErrCorruptIndex: the frame index disagrees with the data written.
	// Per-window isolation should make this unreachable.
	ErrCorruptIndex = errors.New("corrupt index state")
)

// Wrap tags err with a failure marker and task context. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, task, operation, message string, err error) error {
	detail := buildDetail(task, operation, message)
	if marker == nil {
		marker = ErrStorageWrite
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

func buildDetail(task, operation, message string) string {
	parts := make([]string, 0, 3)
	if task = strings.TrimSpace(task); task != "" {
		parts = append(parts, task)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "capture failure"
	}
	return strings.Join(parts, ": ")
}
