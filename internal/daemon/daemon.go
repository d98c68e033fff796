package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"mothtrap/internal/capture"
	"mothtrap/internal/config"
	"mothtrap/internal/counters"
	"mothtrap/internal/detection"
	"mothtrap/internal/envsense"
	"mothtrap/internal/logging"
	"mothtrap/internal/notifications"
	"mothtrap/internal/storage"
)

// beamPollInterval is the cadence of the detection loop. The debounce interval
// is an order of magnitude larger, so a crossing is always sampled repeatedly.
const beamPollInterval = 10 * time.Millisecond

// orphanMaxAge is how old a scratch window directory must be before the
// startup sweep treats it as a crash leftover.
const orphanMaxAge = time.Hour

// Daemon coordinates the detection loop, capture orchestrator, and support
// services, and enforces single-instance execution.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *storage.Manager
	counters *counters.Store
	orch     *capture.Orchestrator
	monitor  *detection.Monitor
	env      envsense.Provider
	notifier notifications.Service

	lockPath string
	lock     *flock.Flock

	running    atomic.Bool
	storageLow atomic.Bool
	cancel     context.CancelFunc
	done       chan struct{}

	api    *apiServer
	devmon *deviceMonitor
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *storage.Manager, counterStore *counters.Store, orch *capture.Orchestrator, monitor *detection.Monitor, env envsense.Provider, notifier notifications.Service, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil || counterStore == nil || orch == nil || monitor == nil {
		return nil, errors.New("daemon requires config, storage, counters, orchestrator, and monitor")
	}
	if notifier == nil {
		notifier = notifications.NewService(cfg)
	}

	lockPath := filepath.Join(cfg.Paths.LogDir, "mothtrapd.lock")
	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    store,
		counters: counterStore,
		orch:     orch,
		monitor:  monitor,
		env:      env,
		notifier: notifier,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	d.api = newAPIServer(cfg, d, logger)
	d.devmon = newDeviceMonitor(cfg, logger)
	return d, nil
}

// Start acquires the daemon lock, sweeps stale scratch directories, and
// launches the detection loop plus support services.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another mothtrap daemon instance is already running")
	}

	for _, dir := range []string{d.cfg.Paths.StorageDir, d.store.ScratchRoot()} {
		if err := storage.CheckWritable(dir); err != nil {
			_ = d.lock.Unlock()
			return fmt.Errorf("storage preflight: %w", err)
		}
	}

	swept := storage.CleanOrphans(d.store.ScratchRoot(), orphanMaxAge, d.logger)
	if len(swept.Removed) > 0 {
		d.logger.Info("startup scratch sweep", logging.Int("removed", len(swept.Removed)))
	}

	if err := d.counters.Increment(ctx, counters.CounterBoots); err != nil {
		d.logger.Warn("boot counter bump failed", logging.Error(err))
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.done = make(chan struct{})

	if err := d.api.start(runCtx); err != nil {
		cancel()
		_ = d.lock.Unlock()
		return err
	}
	d.devmon.Start(runCtx)

	d.running.Store(true)
	go d.run(runCtx)

	d.logger.Info("mothtrap daemon started",
		logging.String("device", d.cfg.DeviceName),
		logging.String("policy", d.cfg.Capture.Policy),
		logging.String("schedule", d.cfg.Schedule.Mode),
		logging.String("lock", d.lockPath),
	)
	if err := d.notifier.NotifyStarted(ctx, d.cfg.DeviceName); err != nil {
		d.logger.Warn("startup notification failed", logging.Error(err))
	}
	return nil
}

// Stop halts the detection loop, waits for an in-flight window to reach a
// terminal state, and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if d.done != nil {
		<-d.done
		d.done = nil
	}
	d.devmon.Stop()
	d.api.stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("mothtrap daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.counters != nil {
		return d.counters.Close()
	}
	return nil
}

// run is the detection loop. Under the triggered policy it polls the beam and
// opens a window per accepted event; under the continuous policy it keeps a
// window open back to back and lets the orchestrator latch detections.
func (d *Daemon) run(ctx context.Context) {
	defer close(d.done)

	continuous := d.cfg.Capture.Policy == config.PolicyContinuous
	ticker := time.NewTicker(beamPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if continuous {
			if d.storageReady(ctx) {
				d.runWindow(ctx, nil)
			}
			continue
		}

		event, ok := d.monitor.Poll()
		if !ok {
			continue
		}
		d.logger.Info("beam crossing accepted",
			logging.Uint64("sequence", event.Sequence),
			logging.Time("at", event.Timestamp),
		)
		if err := d.counters.Increment(ctx, counters.CounterDetections); err != nil {
			d.logger.Warn("detection counter bump failed", logging.Error(err))
		}
		if !d.storageReady(ctx) {
			continue
		}
		d.runWindow(ctx, &event)
	}
}

// storageReady reports whether the free-space floor allows opening a window.
// The low-storage alert fires once per low episode, not once per skipped
// window, and clears when space recovers.
func (d *Daemon) storageReady(ctx context.Context) bool {
	minFree := d.cfg.Capture.MinFreeSpace * 1024 * 1024
	err := storage.CheckFreeSpace(d.cfg.Paths.StorageDir, minFree)
	if err == nil {
		d.storageLow.Store(false)
		return true
	}
	if d.storageLow.CompareAndSwap(false, true) {
		d.logger.Warn("storage below free-space floor, suspending captures", logging.Error(err))
		free, _ := storage.FreeBytes(d.cfg.Paths.StorageDir)
		if notifyErr := d.notifier.NotifyStorageLow(ctx, d.cfg.DeviceName, free); notifyErr != nil {
			d.logger.Warn("storage notification failed", logging.Error(notifyErr))
		}
	}
	return false
}

func (d *Daemon) runWindow(ctx context.Context, trigger *detection.Event) {
	w, err := d.orch.RunWindow(ctx, trigger)
	if err != nil {
		if errors.Is(err, capture.ErrWindowActive) {
			return
		}
		d.logger.Error("capture window failed", logging.Error(err))
		_ = d.counters.Increment(context.Background(), counters.CounterFailures)
		if notifyErr := d.notifier.NotifyError(context.Background(), err, "capture window"); notifyErr != nil {
			d.logger.Warn("error notification failed", logging.Error(notifyErr))
		}
	}
	if w == nil {
		return
	}

	switch w.State {
	case capture.WindowCommitted:
		_ = d.counters.Increment(context.Background(), counters.CounterCommitted)
		if trigger == nil && w.Trigger != nil {
			// Continuous policy: the detection was latched inside the window.
			_ = d.counters.Increment(context.Background(), counters.CounterDetections)
		}
		if err := d.notifier.NotifyCaptureCommitted(ctx, d.cfg.DeviceName, w.Stored.VideoPath, w.Sequence()); err != nil {
			d.logger.Warn("capture notification failed", logging.Error(err))
		}
	case capture.WindowDiscarded:
		_ = d.counters.Increment(context.Background(), counters.CounterDiscarded)
	}
}

// Status describes daemon runtime state for the CLI and the status API.
type Status struct {
	Running        bool              `json:"running"`
	DeviceName     string            `json:"device_name"`
	Policy         string            `json:"policy"`
	ScheduleMode   string            `json:"schedule_mode"`
	Armed          bool              `json:"armed"`
	CaptureActive  bool              `json:"capture_active"`
	Cycles         uint64            `json:"cycles"`
	LastWindow     *WindowSummary    `json:"last_window,omitempty"`
	Counters       map[string]int64  `json:"counters"`
	Environment    envsense.Snapshot `json:"environment"`
	CameraPresent  bool              `json:"camera_present"`
	MicPresent     bool              `json:"microphone_present"`
	StorageDir     string            `json:"storage_dir"`
	StorageOK      bool              `json:"storage_ok"`
	LockFilePath   string            `json:"lock_file"`
	CountersDBPath string            `json:"counters_db"`
}

// WindowSummary is the wire representation of a finished capture window.
type WindowSummary struct {
	Cycle      uint64 `json:"cycle"`
	State      string `json:"state"`
	Sequence   uint64 `json:"sequence"`
	Frames     int    `json:"frames"`
	AudioBytes int64  `json:"audio_bytes"`
	Degraded   bool   `json:"degraded"`
	VideoPath  string `json:"video_path,omitempty"`
	AudioPath  string `json:"audio_path,omitempty"`
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	status := Status{
		Running:        d.running.Load(),
		DeviceName:     d.cfg.DeviceName,
		Policy:         d.cfg.Capture.Policy,
		ScheduleMode:   d.cfg.Schedule.Mode,
		Armed:          d.monitor.Armed(),
		CaptureActive:  d.orch.Active(),
		Cycles:         d.orch.Cycle(),
		StorageDir:     d.cfg.Paths.StorageDir,
		LockFilePath:   d.lockPath,
		CountersDBPath: d.counters.Path(),
		CameraPresent:  d.devmon.CameraPresent(),
		MicPresent:     d.devmon.MicPresent(),
	}

	if d.env != nil {
		status.Environment = d.env.Snapshot()
	}
	if values, err := d.counters.Snapshot(ctx); err == nil {
		status.Counters = values
	}
	minFree := d.cfg.Capture.MinFreeSpace * 1024 * 1024
	status.StorageOK = storage.CheckFreeSpace(d.cfg.Paths.StorageDir, minFree) == nil

	if last := d.orch.LastWindow(); last != nil {
		status.LastWindow = &WindowSummary{
			Cycle:      last.Cycle,
			State:      string(last.State),
			Sequence:   last.Sequence(),
			Frames:     last.Video.Frames,
			AudioBytes: last.Audio.Bytes,
			Degraded:   last.Degraded,
			VideoPath:  last.Stored.VideoPath,
			AudioPath:  last.Stored.AudioPath,
		}
	}
	return status
}
