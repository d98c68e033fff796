package capture

import (
	"log/slog"
	"sync/atomic"
	"time"

	"mothtrap/internal/avi"
	"mothtrap/internal/logging"
)

// videoTask pulls compressed frames at the target frame interval and builds
// the AVI container. It owns its source and scratch output exclusively; the
// orchestrator only ever reads the done flag and, after that, the result.
type videoTask struct {
	src           FrameSource
	clock         Clock
	logger        *slog.Logger
	interval      time.Duration
	duration      time.Duration
	deadline      time.Duration
	targetFrames  int
	streamPath    string
	containerPath string
	params        avi.Params

	stop   atomic.Bool
	done   atomic.Bool
	stream *avi.StreamWriter
	result TaskResult
}

func newVideoTask(src FrameSource, clock Clock, logger *slog.Logger, w *Window, grace time.Duration, streamPath, containerPath string, params avi.Params) *videoTask {
	return &videoTask{
		src:           src,
		clock:         clock,
		logger:        logging.NewComponentLogger(logger, "video-task"),
		interval:      time.Second / time.Duration(w.FrameRate),
		duration:      w.Duration,
		deadline:      w.Duration + grace,
		targetFrames:  int(w.Duration.Milliseconds()) * w.FrameRate / 1000,
		streamPath:    streamPath,
		containerPath: containerPath,
		params:        params,
	}
}

// Done reports whether the task has exited and its result is safe to read.
func (t *videoTask) Done() bool { return t.done.Load() }

// Finalize instructs the task to stop capturing and emit its container over
// whatever frames it has. Write-once; called by the orchestrator on timeout.
func (t *videoTask) Finalize() { t.stop.Store(true) }

func (t *videoTask) run() {
	defer t.done.Store(true)

	if t.src == nil {
		t.result = TaskResult{Status: TaskSkipped, Err: Wrap(ErrSensorUnavailable, "video", "init", "no frame source", nil)}
		return
	}

	stream, err := avi.NewStreamWriter(t.streamPath)
	if err != nil {
		t.result = TaskResult{Status: TaskFailed, Err: Wrap(ErrStorageWrite, "video", "open scratch", "", err)}
		return
	}
	t.stream = stream

	start := t.clock.Now()
	var writeErr error
	readFaults := 0

	for {
		if t.stop.Load() {
			break
		}
		elapsed := t.clock.Now().Sub(start)
		if elapsed >= t.duration || elapsed >= t.deadline {
			break
		}
		if stream.FrameCount() >= t.targetFrames {
			break
		}

		frame, ok, err := t.src.NextFrame()
		switch {
		case err != nil:
			// A faulting read degrades frame rate like a missed frame; the
			// cadence continues.
			readFaults++
		case ok:
			if err := stream.AppendFrame(frame); err != nil {
				writeErr = Wrap(ErrStorageWrite, "video", "append frame", "", err)
				t.logger.Warn("aborting video capture", logging.Error(writeErr))
				break
			}
		}
		if writeErr != nil {
			break
		}

		t.clock.Sleep(t.interval)
	}

	if readFaults > 0 {
		t.logger.Warn("frame reads faulted during window", logging.Int("faults", readFaults))
	}

	// Finalize over whatever frames succeeded, even after a write failure, so
	// the container stays structurally valid.
	frames := stream.FrameCount()
	bytes := stream.DataBytes()
	if err := avi.Finalize(t.containerPath, t.params, stream); err != nil {
		if writeErr == nil {
			writeErr = Wrap(ErrStorageWrite, "video", "finalize container", "", err)
		}
	}

	status := TaskOK
	if writeErr != nil {
		status = TaskFailed
	}
	t.result = TaskResult{Status: status, Frames: frames, Bytes: bytes, Err: writeErr}
}
