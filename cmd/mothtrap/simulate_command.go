package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"mothtrap/internal/capture"
	"mothtrap/internal/detection"
	"mothtrap/internal/envsense"
	"mothtrap/internal/logging"
	"mothtrap/internal/simulate"
	"mothtrap/internal/storage"
)

// simulate runs capture windows with synthetic sources so the pipeline and
// the storage layout can be exercised on a workstation.
func newSimulateCommand(ctx *commandContext) *cobra.Command {
	var windows int

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run capture windows with synthetic camera and microphone",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return err
			}

			logger := logging.NewNop()
			env := envsense.NewStatic(envsense.Snapshot{AirTempC: 18, HumidityPct: 60, LightPct: 5})
			store := storage.NewManager(cfg, nil, logger)
			frames := simulate.NewFrameGenerator(cfg.Capture.FrameWidth, cfg.Capture.FrameHeight)
			tone := simulate.NewToneSource(cfg.Capture.SampleRate, 440)
			orch := capture.NewOrchestrator(cfg, frames, tone, store, env, nil, logger)

			out := cmd.OutOrStdout()
			for i := 1; i <= windows; i++ {
				trigger := &detection.Event{Timestamp: time.Now(), Sequence: uint64(i)}
				w, err := orch.RunWindow(cmd.Context(), trigger)
				if err != nil {
					return fmt.Errorf("window %d: %w", i, err)
				}
				fmt.Fprintf(out, "Window %d: %s, %d frames, %d audio bytes\n",
					w.Cycle, w.State, w.Video.Frames, w.Audio.Bytes)
				if w.Stored.VideoPath != "" {
					fmt.Fprintf(out, "  video: %s\n", w.Stored.VideoPath)
				}
				if w.Stored.AudioPath != "" {
					fmt.Fprintf(out, "  audio: %s\n", w.Stored.AudioPath)
				}
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&windows, "windows", "n", 1, "Number of capture windows to run")
	return cmd
}
