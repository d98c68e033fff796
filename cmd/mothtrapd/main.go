package main

import (
	"context"
	"log"
	"os/signal"
	"path/filepath"
	"syscall"

	"mothtrap/internal/capture"
	"mothtrap/internal/config"
	"mothtrap/internal/counters"
	"mothtrap/internal/daemon"
	"mothtrap/internal/detection"
	"mothtrap/internal/detlog"
	"mothtrap/internal/envsense"
	"mothtrap/internal/logging"
	"mothtrap/internal/notifications"
	"mothtrap/internal/storage"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load("")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatalf("ensure directories: %v", err)
	}

	logger, err := logging.New(logging.Options{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{"stdout", filepath.Join(cfg.Paths.LogDir, "mothtrapd.log")},
	})
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	counterStore, err := counters.Open(cfg)
	if err != nil {
		logger.Error("open counters store", logging.Error(err))
		return
	}

	env := envsense.NewStatic(envsense.Snapshot{})
	recorder := detlog.NewCSVRecorder(filepath.Join(cfg.Paths.StorageDir, "detections.csv"))
	store := storage.NewManager(cfg, recorder, logger)

	line := detection.NewFileLine(cfg.Detection.BeamDevice)
	monitor := detection.NewMonitor(line, daemon.NewScheduler(cfg, env),
		cfg.DebounceInterval(), cfg.CooldownInterval())

	// Missing peripherals degrade the affected modality per window instead of
	// refusing to start; field units boot with whatever hardware answers.
	var frames capture.FrameSource
	if src, err := capture.OpenMJPEG(cfg.Capture.VideoDevice); err != nil {
		logger.Warn("camera unavailable", logging.Error(err),
			logging.String("device", cfg.Capture.VideoDevice))
	} else {
		frames = src
		defer src.Close()
	}
	samples := capture.NewPCMSource(cfg.Capture.AudioDevice)

	orch := capture.NewOrchestrator(cfg, frames, samples, store, env, monitor, logger)
	notifier := notifications.NewService(cfg)

	d, err := daemon.New(cfg, store, counterStore, orch, monitor, env, notifier, logger)
	if err != nil {
		logger.Error("create daemon", logging.Error(err))
		return
	}
	defer d.Close()

	if err := d.Start(ctx); err != nil {
		logger.Error("daemon start", logging.Error(err))
		return
	}

	<-ctx.Done()
	logger.Info("mothtrapd shutting down")
	d.Stop()
}
