package capture

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"mothtrap/internal/config"
	"mothtrap/internal/detection"
	"mothtrap/internal/envsense"
	"mothtrap/internal/logging"
	"mothtrap/internal/storage"
)

// Orchestrator tests run real windows against the wall clock, kept short so
// the whole suite stays fast.
func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	base := t.TempDir()
	cfg.Paths.StorageDir = filepath.Join(base, "captures")
	cfg.Paths.ScratchDir = filepath.Join(base, "scratch")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Capture.DurationMs = 400
	cfg.Capture.GraceMs = 200
	cfg.Capture.FrameRate = 25
	cfg.Capture.SampleRate = 8000
	cfg.Capture.AudioChunkB = 256
	cfg.Capture.MinFreeSpace = 0
	for _, dir := range []string{cfg.Paths.StorageDir, cfg.Paths.ScratchDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatal(err)
		}
	}
	return &cfg
}

func steadyFrames() FrameSource {
	return frameFunc(func() ([]byte, bool, error) { return []byte("fake-jpeg"), true, nil })
}

func scratchEntries(t *testing.T, cfg *config.Config) int {
	t.Helper()
	entries, err := os.ReadDir(cfg.Paths.ScratchDir)
	if err != nil {
		t.Fatalf("read scratch root: %v", err)
	}
	return len(entries)
}

func TestRunWindowCommitsTriggeredWindow(t *testing.T) {
	cfg := testConfig(t)
	store := storage.NewManager(cfg, nil, logging.NewNop())
	env := envsense.NewStatic(envsense.Snapshot{AirTempC: 17.5, LightPct: 4})
	samples := &fakeSamples{}

	o := NewOrchestrator(cfg, steadyFrames(), samples, store, env, nil, logging.NewNop())
	trigger := &detection.Event{Timestamp: time.Now(), Sequence: 7}

	w, err := o.RunWindow(context.Background(), trigger)
	if err != nil {
		t.Fatalf("RunWindow: %v", err)
	}
	if w.State != WindowCommitted {
		t.Fatalf("state = %q, want %q", w.State, WindowCommitted)
	}
	if w.Video.Status != TaskOK || w.Audio.Status != TaskOK {
		t.Fatalf("task status video=%q audio=%q", w.Video.Status, w.Audio.Status)
	}
	if w.Stored.VideoPath == "" || w.Stored.AudioPath == "" {
		t.Fatalf("stored paths incomplete: %+v", w.Stored)
	}
	for _, path := range []string{w.Stored.VideoPath, w.Stored.AudioPath} {
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("committed artifact missing: %v", err)
		}
	}
	if n := scratchEntries(t, cfg); n != 0 {
		t.Fatalf("scratch root holds %d entries after commit, want 0", n)
	}

	if samples.started != 1 || samples.stopped != 1 {
		t.Fatalf("microphone power cycles: started=%d stopped=%d, want 1 each", samples.started, samples.stopped)
	}

	if o.Active() {
		t.Fatal("orchestrator still active after window finished")
	}
	last := o.LastWindow()
	if last == nil || last.State != WindowCommitted || last.Cycle != 1 {
		t.Fatalf("LastWindow = %+v", last)
	}
}

func TestRunWindowDiscardsUntriggeredContinuousWindow(t *testing.T) {
	cfg := testConfig(t)
	cfg.Capture.Policy = config.PolicyContinuous
	store := storage.NewManager(cfg, nil, logging.NewNop())
	monitor := detection.NewMonitor(
		detection.LineFunc(func() (bool, error) { return false, nil }),
		nil, 10*time.Millisecond, 10*time.Millisecond)

	o := NewOrchestrator(cfg, steadyFrames(), &fakeSamples{}, store, nil, monitor, logging.NewNop())

	w, err := o.RunWindow(context.Background(), nil)
	if err != nil {
		t.Fatalf("RunWindow: %v", err)
	}
	if w.State != WindowDiscarded {
		t.Fatalf("state = %q, want %q", w.State, WindowDiscarded)
	}
	if w.Persist {
		t.Fatal("window persisted without a detection")
	}
	if n := scratchEntries(t, cfg); n != 0 {
		t.Fatalf("scratch root holds %d entries after discard, want 0", n)
	}
	entries, err := os.ReadDir(cfg.Paths.StorageDir)
	if err != nil {
		t.Fatalf("read storage root: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("storage root holds %d entries, want 0", len(entries))
	}
}

func TestRunWindowPersistsOnMidWindowDetection(t *testing.T) {
	cfg := testConfig(t)
	cfg.Capture.Policy = config.PolicyContinuous
	store := storage.NewManager(cfg, nil, logging.NewNop())
	monitor := detection.NewMonitor(
		detection.LineFunc(func() (bool, error) { return true, nil }),
		nil, 10*time.Millisecond, 10*time.Millisecond)

	o := NewOrchestrator(cfg, steadyFrames(), &fakeSamples{}, store, nil, monitor, logging.NewNop())

	w, err := o.RunWindow(context.Background(), nil)
	if err != nil {
		t.Fatalf("RunWindow: %v", err)
	}
	if w.State != WindowCommitted {
		t.Fatalf("state = %q, want %q", w.State, WindowCommitted)
	}
	if w.Trigger == nil {
		t.Fatal("window committed without latching the detection event")
	}
	if w.Sequence() == 0 {
		t.Fatal("latched event carries no sequence")
	}
}

func TestRunWindowRejectsConcurrentStart(t *testing.T) {
	cfg := testConfig(t)
	store := storage.NewManager(cfg, nil, logging.NewNop())
	o := NewOrchestrator(cfg, steadyFrames(), &fakeSamples{}, store, nil, nil, logging.NewNop())
	trigger := &detection.Event{Timestamp: time.Now(), Sequence: 1}

	done := make(chan struct{})
	go func() {
		defer close(done)
		if _, err := o.RunWindow(context.Background(), trigger); err != nil {
			t.Errorf("first window: %v", err)
		}
	}()

	time.Sleep(100 * time.Millisecond)
	if _, err := o.RunWindow(context.Background(), trigger); !errors.Is(err, ErrWindowActive) {
		t.Fatalf("second start: err = %v, want ErrWindowActive", err)
	}
	<-done

	if got := o.Cycle(); got != 1 {
		t.Fatalf("cycle count = %d, want 1", got)
	}
}

func TestRunWindowDiscardsOnCancelledContext(t *testing.T) {
	cfg := testConfig(t)
	store := storage.NewManager(cfg, nil, logging.NewNop())
	o := NewOrchestrator(cfg, steadyFrames(), &fakeSamples{}, store, nil, nil, logging.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	w, err := o.RunWindow(ctx, &detection.Event{Timestamp: time.Now(), Sequence: 1})
	if err != nil {
		t.Fatalf("RunWindow: %v", err)
	}
	if w.State != WindowDiscarded {
		t.Fatalf("state = %q, want %q", w.State, WindowDiscarded)
	}
	if n := scratchEntries(t, cfg); n != 0 {
		t.Fatalf("scratch root holds %d entries, want 0", n)
	}
}

func TestRunWindowVideoOnlyWhenMicStartFails(t *testing.T) {
	cfg := testConfig(t)
	store := storage.NewManager(cfg, nil, logging.NewNop())
	samples := &fakeSamples{startErr: errors.New("mic detached")}
	o := NewOrchestrator(cfg, steadyFrames(), samples, store, nil, nil, logging.NewNop())

	w, err := o.RunWindow(context.Background(), &detection.Event{Timestamp: time.Now(), Sequence: 3})
	if err != nil {
		t.Fatalf("RunWindow: %v", err)
	}
	if w.State != WindowCommitted {
		t.Fatalf("state = %q, want %q", w.State, WindowCommitted)
	}
	if w.Audio.Status != TaskSkipped {
		t.Fatalf("audio status = %q, want %q", w.Audio.Status, TaskSkipped)
	}
	if w.Stored.VideoPath == "" || w.Stored.AudioPath != "" {
		t.Fatalf("stored paths = %+v, want video only", w.Stored)
	}
}

func TestRunWindowFailedCommitOnVideoWriteFailure(t *testing.T) {
	cfg := testConfig(t)
	store := storage.NewManager(cfg, nil, logging.NewNop())

	// Scratch artifacts vanish mid-window, as when removable media is yanked.
	// Video finalization fails; audio had already completed on its own.
	calls := 0
	frames := frameFunc(func() ([]byte, bool, error) {
		calls++
		if calls == 3 {
			entries, err := os.ReadDir(cfg.Paths.ScratchDir)
			if err != nil {
				t.Errorf("read scratch root: %v", err)
			}
			for _, entry := range entries {
				_ = os.RemoveAll(filepath.Join(cfg.Paths.ScratchDir, entry.Name()))
			}
		}
		return []byte("fake-jpeg"), true, nil
	})

	o := NewOrchestrator(cfg, frames, &fakeSamples{}, store, nil, nil, logging.NewNop())

	w, err := o.RunWindow(context.Background(), &detection.Event{Timestamp: time.Now(), Sequence: 5})
	if !errors.Is(err, ErrStorageWrite) {
		t.Fatalf("err = %v, want ErrStorageWrite", err)
	}
	if w.State != WindowFailedCommit {
		t.Fatalf("state = %q, want %q", w.State, WindowFailedCommit)
	}
	if w.Video.Status != TaskFailed {
		t.Fatalf("video status = %q, want %q", w.Video.Status, TaskFailed)
	}
	if w.Audio.Status != TaskOK {
		t.Fatalf("audio status = %q, want %q", w.Audio.Status, TaskOK)
	}

	// Both-or-neither: permanent storage holds nothing from the failed window.
	entries, readErr := os.ReadDir(cfg.Paths.StorageDir)
	if readErr != nil {
		t.Fatalf("read storage root: %v", readErr)
	}
	if len(entries) != 0 {
		t.Fatalf("storage root holds %d entries after failed commit, want 0", len(entries))
	}
	if n := scratchEntries(t, cfg); n != 0 {
		t.Fatalf("scratch root holds %d entries after failed commit, want 0", n)
	}
}

func TestRunWindowDegradedOnDeadline(t *testing.T) {
	cfg := testConfig(t)
	store := storage.NewManager(cfg, nil, logging.NewNop())

	// One camera read stalls well past duration+grace; the orchestrator must
	// flag the window degraded and finalize over the frames it has.
	calls := 0
	frames := frameFunc(func() ([]byte, bool, error) {
		calls++
		if calls == 2 {
			time.Sleep(900 * time.Millisecond)
		}
		return []byte("fake-jpeg"), true, nil
	})

	o := NewOrchestrator(cfg, frames, &fakeSamples{}, store, nil, nil, logging.NewNop())

	w, err := o.RunWindow(context.Background(), &detection.Event{Timestamp: time.Now(), Sequence: 2})
	if err != nil {
		t.Fatalf("RunWindow: %v", err)
	}
	if !w.Degraded {
		t.Fatal("window not flagged degraded after overrunning its deadline")
	}
	if w.State != WindowCommitted {
		t.Fatalf("state = %q, want %q", w.State, WindowCommitted)
	}
	if w.Video.Status != TaskOK {
		t.Fatalf("video status = %q, err = %v", w.Video.Status, w.Video.Err)
	}
}

func TestRunWindowsBackToBack(t *testing.T) {
	cfg := testConfig(t)
	cfg.Capture.DurationMs = 100
	store := storage.NewManager(cfg, nil, logging.NewNop())
	o := NewOrchestrator(cfg, steadyFrames(), &fakeSamples{}, store, nil, nil, logging.NewNop())

	for i := 1; i <= 3; i++ {
		w, err := o.RunWindow(context.Background(), &detection.Event{Timestamp: time.Now(), Sequence: uint64(i)})
		if err != nil {
			t.Fatalf("window %d: %v", i, err)
		}
		if w.Cycle != uint64(i) {
			t.Fatalf("window %d carries cycle %d", i, w.Cycle)
		}
		if !w.State.Terminal() {
			t.Fatalf("window %d ended in non-terminal state %q", i, w.State)
		}
	}
	if n := scratchEntries(t, cfg); n != 0 {
		t.Fatalf("scratch root holds %d entries after runs, want 0", n)
	}
}
