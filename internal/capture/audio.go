package capture

import (
	"log/slog"
	"sync/atomic"
	"time"

	"mothtrap/internal/logging"
	"mothtrap/internal/wav"
)

// audioYield is the cooperative pause between chunk reads so the audio loop
// never starves the video task or the OS/radio stack.
const audioYield = time.Millisecond

// audioTask appends fixed-size PCM chunks to the WAV destination. The header
// declares the full target duration up front; an underrun leaves a parseable
// file whose declared size exceeds its content.
type audioTask struct {
	src         SampleSource
	clock       Clock
	logger      *slog.Logger
	deadline    time.Duration
	chunkBytes  int
	targetBytes int64
	sampleRate  int
	duration    time.Duration
	path        string

	stop   atomic.Bool
	done   atomic.Bool
	result TaskResult
}

func newAudioTask(src SampleSource, clock Clock, logger *slog.Logger, w *Window, grace time.Duration, chunkBytes int, path string) *audioTask {
	return &audioTask{
		src:         src,
		clock:       clock,
		logger:      logging.NewComponentLogger(logger, "audio-task"),
		deadline:    w.Duration + grace,
		chunkBytes:  chunkBytes,
		targetBytes: int64(wav.DeclaredDataSize(w.Duration, w.SampleRate)),
		sampleRate:  w.SampleRate,
		duration:    w.Duration,
		path:        path,
	}
}

// Done reports whether the task has exited and its result is safe to read.
func (t *audioTask) Done() bool { return t.done.Load() }

// Finalize instructs the task to stop after the current chunk. Write-once;
// called by the orchestrator on timeout.
func (t *audioTask) Finalize() { t.stop.Store(true) }

func (t *audioTask) run() {
	defer t.done.Store(true)

	if t.src == nil {
		t.result = TaskResult{Status: TaskSkipped, Err: Wrap(ErrSensorUnavailable, "audio", "init", "no sample source", nil)}
		return
	}

	writer, err := wav.Create(t.path, t.sampleRate, t.duration)
	if err != nil {
		t.result = TaskResult{Status: TaskFailed, Err: Wrap(ErrStorageWrite, "audio", "create wav", "", err)}
		return
	}
	defer writer.Close()

	start := t.clock.Now()
	buf := make([]byte, t.chunkBytes)
	var writeErr error

	for writer.BytesWritten() < t.targetBytes {
		if t.stop.Load() {
			break
		}
		if t.clock.Now().Sub(start) >= t.deadline {
			break
		}

		n, err := t.src.Read(buf)
		if n > 0 {
			if err := writer.AppendSamples(buf[:n]); err != nil {
				writeErr = Wrap(ErrStorageWrite, "audio", "append samples", "", err)
				t.logger.Warn("aborting audio capture", logging.Error(writeErr))
				break
			}
		}
		if err != nil {
			// Read timeouts and transient faults count as underrun, not
			// failure; the file stays parseable either way.
			t.logger.Debug("sample read fault", logging.Error(err))
		}

		t.clock.Sleep(audioYield)
	}

	status := TaskOK
	if writeErr != nil {
		status = TaskFailed
	}
	t.result = TaskResult{Status: status, Bytes: writer.BytesWritten(), Err: writeErr}
}
