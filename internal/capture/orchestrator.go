package capture

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"mothtrap/internal/avi"
	"mothtrap/internal/config"
	"mothtrap/internal/detection"
	"mothtrap/internal/envsense"
	"mothtrap/internal/logging"
	"mothtrap/internal/storage"
)

// joinPollInterval is how often the orchestrator samples the tasks' done
// flags while a window is in flight. Coarse on purpose: the tasks own their
// own timing and the join only needs to notice completion.
const joinPollInterval = 25 * time.Millisecond

// Orchestrator runs capture windows. It spawns one video and one audio task
// per window, joins them, and hands the scratch artifacts to the storage
// lifecycle manager. The tasks share nothing with the orchestrator beyond
// their write-once done flags.
type Orchestrator struct {
	cfg     *config.Config
	logger  *slog.Logger
	clock   Clock
	frames  FrameSource
	samples SampleSource
	store   *storage.Manager
	env     envsense.Provider
	monitor *detection.Monitor

	mu     sync.Mutex
	active bool
	cycle  uint64
	last   *Window
}

// OrchestratorOption configures optional Orchestrator behavior.
type OrchestratorOption func(*Orchestrator)

// WithClock overrides the orchestrator's time source. Intended for tests.
func WithClock(clock Clock) OrchestratorOption {
	return func(o *Orchestrator) { o.clock = clock }
}

// NewOrchestrator wires a capture orchestrator. frames and samples may be nil
// when a peripheral is absent; the matching task is skipped per window. The
// monitor is only consulted under the continuous policy, to decide whether a
// window saw a detection while open.
func NewOrchestrator(cfg *config.Config, frames FrameSource, samples SampleSource, store *storage.Manager, env envsense.Provider, monitor *detection.Monitor, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		cfg:     cfg,
		logger:  logging.NewComponentLogger(logger, "capture"),
		clock:   SystemClock,
		frames:  frames,
		samples: samples,
		store:   store,
		env:     env,
		monitor: monitor,
	}
}

// Active reports whether a window is currently in flight.
func (o *Orchestrator) Active() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.active
}

// Cycle returns the number of windows started since boot.
func (o *Orchestrator) Cycle() uint64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.cycle
}

// LastWindow returns a copy of the most recently finished window, or nil when
// none has finished yet.
func (o *Orchestrator) LastWindow() *Window {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.last == nil {
		return nil
	}
	w := *o.last
	return &w
}

// RunWindow executes one complete capture window and blocks until it reaches
// a terminal state. Under the triggered policy the caller passes the accepted
// detection event and the window always persists; under the continuous policy
// trigger is normally nil and the window persists only if the beam monitor
// reports a crossing while the window is open. At most one window runs at a
// time; a second call while one is in flight fails with ErrWindowActive.
//
// Context cancellation does not interrupt the tasks mid-window; the window
// runs to its bound and is then discarded.
func (o *Orchestrator) RunWindow(ctx context.Context, trigger *detection.Event) (*Window, error) {
	o.mu.Lock()
	if o.active {
		o.mu.Unlock()
		return nil, ErrWindowActive
	}
	o.active = true
	o.cycle++
	cycle := o.cycle
	o.mu.Unlock()

	defer func() {
		o.mu.Lock()
		o.active = false
		o.mu.Unlock()
	}()

	w := &Window{
		Cycle:      cycle,
		Start:      o.clock.Now(),
		Duration:   o.cfg.WindowDuration(),
		FrameRate:  o.cfg.Capture.FrameRate,
		SampleRate: o.cfg.Capture.SampleRate,
		State:      WindowPending,
		Trigger:    trigger,
	}
	continuous := o.cfg.Capture.Policy == config.PolicyContinuous
	w.Persist = trigger != nil

	scratch, err := o.store.NewScratch(cycle)
	if err != nil {
		w.State = WindowFailedCommit
		o.finish(w)
		return w, Wrap(ErrStorageWrite, "orchestrator", "create scratch", "", err)
	}

	grace := o.cfg.WindowGrace()
	params := avi.Params{
		Width:     o.cfg.Capture.FrameWidth,
		Height:    o.cfg.Capture.FrameHeight,
		FrameRate: o.cfg.Capture.FrameRate,
	}
	video := newVideoTask(o.frames, o.clock, o.logger, w, grace, scratch.VideoStream, scratch.VideoPath, params)
	audio := newAudioTask(o.samples, o.clock, o.logger, w, grace, o.cfg.Capture.AudioChunkB, scratch.AudioPath)

	// The microphone is powered only while its task runs. A failed power-up
	// degrades the window to video-only rather than aborting it.
	micOn := false
	if o.samples != nil {
		if err := o.samples.Start(); err != nil {
			o.logger.Warn("microphone start failed, window is video-only", logging.Error(err))
			audio.src = nil
		} else {
			micOn = true
		}
	}

	w.State = WindowCapturing
	o.logger.Info("capture window opened",
		logging.Uint64("cycle", cycle),
		logging.Uint64("sequence", w.Sequence()),
		logging.Duration("duration", w.Duration),
		logging.Bool("persist", w.Persist),
	)

	go video.run()
	go audio.run()

	deadline := w.Start.Add(w.Duration + grace)
	for !(video.Done() && audio.Done()) {
		if !w.Degraded && o.clock.Now().After(deadline) {
			// Hard bound. Tell both tasks to wrap up over whatever they have.
			w.Degraded = true
			video.Finalize()
			audio.Finalize()
			o.logger.Warn("window overran its deadline", logging.Error(ErrWindowTimeout), logging.Uint64("cycle", cycle))
		}
		if continuous && !w.Persist && o.monitor != nil {
			if event, ok := o.monitor.Poll(); ok {
				w.Trigger = &event
				w.Persist = true
				o.logger.Info("detection during open window", logging.Uint64("sequence", event.Sequence))
			}
		}
		o.clock.Sleep(joinPollInterval)
	}
	w.State = WindowJoined
	w.Video = video.result
	w.Audio = audio.result

	if micOn {
		if err := o.samples.Stop(); err != nil {
			o.logger.Warn("microphone stop failed", logging.Error(err))
		}
	}

	var snapshot envsense.Snapshot
	if o.env != nil {
		snapshot = o.env.Snapshot()
	}

	switch {
	case ctx.Err() != nil:
		// Shutdown arrived while the window ran. Never publish a window the
		// operator asked to abandon.
		o.discard(scratch, w, WindowDiscarded)
	case w.Video.Status == TaskFailed || w.Audio.Status == TaskFailed:
		o.discard(scratch, w, WindowFailedCommit)
	case w.Video.Status == TaskSkipped && w.Audio.Status == TaskSkipped:
		// Both peripherals were absent; there is nothing to keep.
		o.discard(scratch, w, WindowDiscarded)
	case !w.Persist:
		o.discard(scratch, w, WindowDiscarded)
	default:
		stored, err := o.store.Commit(w.Stamp(), w.Sequence(), scratch, snapshot)
		if err != nil {
			o.discard(scratch, w, WindowFailedCommit)
			o.finish(w)
			return w, Wrap(ErrStorageWrite, "orchestrator", "commit window", "", err)
		}
		w.Stored = stored
		w.State = WindowCommitted
	}

	o.logger.Info("capture window closed",
		logging.Uint64("cycle", cycle),
		logging.String("state", string(w.State)),
		logging.Int("frames", w.Video.Frames),
		logging.Int64("audio_bytes", w.Audio.Bytes),
		logging.Bool("degraded", w.Degraded),
	)

	o.finish(w)
	if w.Video.Status == TaskFailed {
		return w, w.Video.Err
	}
	if w.Audio.Status == TaskFailed {
		return w, w.Audio.Err
	}
	return w, nil
}

func (o *Orchestrator) discard(scratch storage.Scratch, w *Window, state WindowState) {
	if err := o.store.Discard(scratch); err != nil {
		o.logger.Warn("scratch discard failed", logging.Error(err))
	}
	w.State = state
}

func (o *Orchestrator) finish(w *Window) {
	o.mu.Lock()
	snapshot := *w
	o.last = &snapshot
	o.mu.Unlock()
}
